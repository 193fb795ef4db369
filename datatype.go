// Copyright 2015 The astrogo Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fitsio

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// TFORM type codes. P and Q (the 32- and 64-bit variable-length array
// convention) have no constant here: ParseTFORM recognizes them only to
// reject them with Unsupported.
const (
	TypeLogical    = 'L'
	TypeBit        = 'X'
	TypeByte       = 'B'
	TypeInt16      = 'I'
	TypeInt32      = 'J'
	TypeInt64      = 'K'
	TypeChar       = 'A'
	TypeFloat32    = 'E'
	TypeFloat64    = 'D'
	TypeComplex64  = 'C'
	TypeComplex128 = 'M'
)

// DataType is a parsed TFORMn descriptor: a repeat count and an element
// code, together with the derived wire geometry of one table cell.
type DataType struct {
	Code       byte
	Repeat     int
	ElemBytes  int // wire bytes of a single element
	TotalBytes int // wire bytes of the whole cell (one row's worth of this column)
}

var elemBytes = map[byte]int{
	TypeLogical:    1,
	TypeBit:        1,
	TypeByte:       1,
	TypeInt16:      2,
	TypeInt32:      4,
	TypeInt64:      8,
	TypeChar:       1,
	TypeFloat32:    4,
	TypeFloat64:    8,
	TypeComplex64:  8,
	TypeComplex128: 16,
}

// ParseTFORM parses a binary-table TFORMn value: an optional decimal
// repeat count followed by a one-letter type code. 'P' and 'Q' (the
// variable-length array convention) parse successfully as far as the
// grammar goes but are rejected with ErrUnsupported.
func ParseTFORM(form string) (DataType, error) {
	form = strings.TrimSpace(form)
	j := strings.IndexFunc(form, func(r rune) bool {
		return strings.ContainsRune("LXBIJKAEDCMPQlxbijkaedcmpq", r)
	})
	if j < 0 {
		return DataType{}, errInvalidValue(-1, fmt.Sprintf("invalid TFORM %q: no type code", form), nil)
	}

	repeat := 1
	if j > 0 {
		n, err := strconv.Atoi(form[:j])
		if err != nil {
			return DataType{}, errInvalidValue(-1, fmt.Sprintf("invalid TFORM %q: bad repeat count", form), err)
		}
		repeat = n
	}

	code := form[j]
	if code >= 'a' && code <= 'z' {
		code -= 'a' - 'A'
	}

	if code == 'P' || code == 'Q' {
		return DataType{}, errUnsupported(fmt.Sprintf("variable-length array TFORM %q is not supported", form))
	}

	sz, ok := elemBytes[code]
	if !ok {
		return DataType{}, errInvalidValue(-1, fmt.Sprintf("invalid TFORM %q: unknown type code %q", form, code), nil)
	}

	dt := DataType{Code: code, Repeat: repeat, ElemBytes: sz}
	switch code {
	case TypeChar:
		dt.TotalBytes = repeat
	case TypeBit:
		dt.TotalBytes = (repeat + 7) / 8
	default:
		dt.TotalBytes = repeat * sz
	}
	return dt, nil
}

// String renders the canonical TFORMn value of this DataType. A repeat
// count of 1 is omitted, so a DataType parsed from "1J" renders as "J".
func (dt DataType) String() string {
	if dt.Repeat == 1 {
		return string(dt.Code)
	}
	return fmt.Sprintf("%d%c", dt.Repeat, dt.Code)
}

// goTypeForCode is the Go type one element of each TFORM code decodes to.
var goTypeForCode = map[byte]reflect.Type{
	TypeLogical:    reflect.TypeOf(false),
	TypeByte:       reflect.TypeOf(byte(0)),
	TypeInt16:      reflect.TypeOf(int16(0)),
	TypeInt32:      reflect.TypeOf(int32(0)),
	TypeInt64:      reflect.TypeOf(int64(0)),
	TypeChar:       reflect.TypeOf(""),
	TypeFloat32:    reflect.TypeOf(float32(0)),
	TypeFloat64:    reflect.TypeOf(float64(0)),
	TypeComplex64:  reflect.TypeOf(complex64(0)),
	TypeComplex128: reflect.TypeOf(complex128(0)),
}

// GoType returns the Go type a single element of this descriptor decodes
// to, or nil for the bit type X, whose elements are not byte-addressable.
func (dt DataType) GoType() reflect.Type { return goTypeForCode[dt.Code] }

// codeForGoKind is the inverse mapping used by ColumnsFromStruct to derive
// a TFORM code from a struct field's Go type.
var codeForGoKind = map[reflect.Kind]byte{
	reflect.Bool:       TypeLogical,
	reflect.Uint8:      TypeByte,
	reflect.Int16:      TypeInt16,
	reflect.Int32:      TypeInt32,
	reflect.Int64:      TypeInt64,
	reflect.Int:        TypeInt64,
	reflect.String:     TypeChar,
	reflect.Float32:    TypeFloat32,
	reflect.Float64:    TypeFloat64,
	reflect.Complex64:  TypeComplex64,
	reflect.Complex128: TypeComplex128,
}

// formFromGoType derives a TFORM string from a struct field's reflect.Type,
// defaulting string fields to a fixed width since a binary table column
// has no way to vary a cell's byte width row to row.
func formFromGoType(rt reflect.Type, strWidth int) (string, error) {
	kind := rt.Kind()
	if kind == reflect.Array {
		elemCode, ok := codeForGoKind[rt.Elem().Kind()]
		if !ok {
			return "", errUnsupported(fmt.Sprintf("no TFORM mapping for array element kind %s", rt.Elem().Kind()))
		}
		return fmt.Sprintf("%d%c", rt.Len(), elemCode), nil
	}
	code, ok := codeForGoKind[kind]
	if !ok {
		return "", errUnsupported(fmt.Sprintf("no TFORM mapping for Go kind %s", kind))
	}
	if code == TypeChar {
		if strWidth <= 0 {
			strWidth = 1
		}
		return fmt.Sprintf("%d%c", strWidth, code), nil
	}
	return string(code), nil
}
