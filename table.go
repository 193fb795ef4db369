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

// Column describes one field of a binary table: its name, wire format,
// and the optional scale/zero/null metadata used to turn a raw wire value
// into an effective one.
type Column struct {
	Name   string  // TTYPEn
	Format string  // TFORMn, as written
	Unit   string  // TUNITn
	Dim    string  // TDIMn, preserved opaque
	Scale  float64 // TSCALn, 1 if absent
	Zero   float64 // TZEROn, 0 if absent

	HasNull bool  // whether TNULLn was present
	Null    int64 // TNULLn, integer null sentinel

	dtype  DataType
	offset int // byte offset of this column within one row stride
}

// Type returns the parsed TFORM descriptor for this column.
func (c Column) Type() DataType { return c.dtype }

// tableStrides computes the stride geometry of a Binary Table HDU:
// strideLength is NAXIS1 (the row width the writer already summed
// over all columns' TFORMn.TotalBytes), totalStrides is NAXIS2 (the row
// count).
func tableStrides(cc *CardCollection) (strideLength, totalStrides int64, err error) {
	if cc.Str("XTENSION", "") == "" {
		return 0, 0, errInvalidHeader(-1, "missing mandatory XTENSION keyword", nil)
	}
	naxis := cc.Int("NAXIS", -1)
	if naxis != 2 {
		return 0, 0, errInvalidHeader(-1, fmt.Sprintf("binary table NAXIS must be 2, got %d", naxis), nil)
	}
	naxis1 := cc.Int("NAXIS1", -1)
	if naxis1 < 0 {
		return 0, 0, errInvalidHeader(-1, "missing mandatory NAXIS1 keyword", nil)
	}
	naxis2 := cc.Int("NAXIS2", -1)
	if naxis2 < 0 {
		return 0, 0, errInvalidHeader(-1, "missing mandatory NAXIS2 keyword", nil)
	}
	return naxis1, naxis2, nil
}

// parseColumns reads TFIELDS and every TTYPEn/TFORMn/TUNITn/TNULLn/
// TSCALn/TZEROn/TDIMn keyword set, 1-based per FITS, and verifies the
// column widths sum to exactly NAXIS1 -- the cross-check the format
// itself doesn't enforce but that catches a corrupt or hand-edited
// header before any stride is misread.
func parseColumns(cc *CardCollection) ([]Column, error) {
	tfields := cc.Int("TFIELDS", -1)
	if tfields < 0 {
		return nil, errInvalidHeader(-1, "missing mandatory TFIELDS keyword", nil)
	}
	naxis1 := cc.Int("NAXIS1", -1)

	cols := make([]Column, tfields)
	offset := 0
	for i := int64(0); i < tfields; i++ {
		n := i + 1
		formKey := fmt.Sprintf("TFORM%d", n)
		form := cc.Str(formKey, "")
		if form == "" {
			return nil, errInvalidHeader(-1, fmt.Sprintf("missing mandatory %s keyword", formKey), nil)
		}
		dt, err := ParseTFORM(form)
		if err != nil {
			return nil, err
		}

		col := Column{
			Format: form,
			Scale:  1,
			dtype:  dt,
			offset: offset,
		}
		col.Name = cc.Str(fmt.Sprintf("TTYPE%d", n), "")
		col.Unit = cc.Str(fmt.Sprintf("TUNIT%d", n), "")
		col.Dim = cc.Str(fmt.Sprintf("TDIM%d", n), "")
		if c := cc.Get(fmt.Sprintf("TSCAL%d", n)); c != nil {
			if v, ok := c.Value.(float64); ok {
				col.Scale = v
			} else if v, ok := c.Value.(int64); ok {
				col.Scale = float64(v)
			}
		}
		if c := cc.Get(fmt.Sprintf("TZERO%d", n)); c != nil {
			if v, ok := c.Value.(float64); ok {
				col.Zero = v
			} else if v, ok := c.Value.(int64); ok {
				col.Zero = float64(v)
			}
		}
		if c := cc.Get(fmt.Sprintf("TNULL%d", n)); c != nil {
			if v, ok := c.Value.(int64); ok {
				col.HasNull = true
				col.Null = v
			}
		}

		cols[i] = col
		offset += dt.TotalBytes
	}

	if naxis1 >= 0 && int64(offset) != naxis1 {
		return nil, errInvalidHeader(-1, fmt.Sprintf("column widths sum to %d bytes, NAXIS1 says %d", offset, naxis1), nil)
	}
	return cols, nil
}

// Columns returns the parsed column descriptors of a Binary Table HDU, in
// 1-based field order. It is nil for Image HDUs.
func (h *HDU) Columns() []Column { return h.columns }

// Column returns the i-th (1-based) column descriptor of a Binary Table
// HDU, or an InvalidValue error if i is out of range.
func (h *HDU) Column(i int) (Column, error) {
	if i < 1 || i > len(h.columns) {
		return Column{}, errInvalidValue(-1, fmt.Sprintf("column index %d out of range [1,%d]", i, len(h.columns)), nil)
	}
	return h.columns[i-1], nil
}

// NewBinaryTableHDU builds a write-side BINTABLE extension: XTENSION,
// BITPIX=8, NAXIS=2, NAXIS1 (row width, summed from cols), NAXIS2=nrows,
// PCOUNT=0, GCOUNT=1, TFIELDS, and a TTYPEn/TFORMn/... block per column.
func NewBinaryTableHDU(cols []Column, nrows int64, extname string) (*HDU, error) {
	rowWidth := 0
	for _, c := range cols {
		dt, err := ParseTFORM(c.Format)
		if err != nil {
			return nil, err
		}
		rowWidth += dt.TotalBytes
	}

	cc, err := NewCardCollection(
		Card{Name: "XTENSION", Value: "BINTABLE", Comment: "binary table extension"},
		Card{Name: "BITPIX", Value: int64(8), Comment: "8-bit bytes"},
		Card{Name: "NAXIS", Value: int64(2), Comment: "2-dimensional binary table"},
		Card{Name: "NAXIS1", Value: int64(rowWidth), Comment: "width of table in bytes"},
		Card{Name: "NAXIS2", Value: nrows, Comment: "number of rows in table"},
		Card{Name: "PCOUNT", Value: int64(0), Comment: "size of special data area"},
		Card{Name: "GCOUNT", Value: int64(1), Comment: "one data group"},
		Card{Name: "TFIELDS", Value: int64(len(cols)), Comment: "number of fields in each row"},
	)
	if err != nil {
		return nil, err
	}
	if extname != "" {
		if err := cc.Set("EXTNAME", extname, "extension name"); err != nil {
			return nil, err
		}
	}

	for i, c := range cols {
		n := i + 1
		if err := cc.Set(fmt.Sprintf("TFORM%d", n), c.Format, ""); err != nil {
			return nil, err
		}
		if c.Name != "" {
			if err := cc.Set(fmt.Sprintf("TTYPE%d", n), c.Name, ""); err != nil {
				return nil, err
			}
		}
		if c.Unit != "" {
			if err := cc.Set(fmt.Sprintf("TUNIT%d", n), c.Unit, ""); err != nil {
				return nil, err
			}
		}
		if c.Dim != "" {
			if err := cc.Set(fmt.Sprintf("TDIM%d", n), c.Dim, ""); err != nil {
				return nil, err
			}
		}
		if c.Scale != 0 && c.Scale != 1 {
			if err := cc.Set(fmt.Sprintf("TSCAL%d", n), c.Scale, ""); err != nil {
				return nil, err
			}
		}
		if c.Zero != 0 {
			if err := cc.Set(fmt.Sprintf("TZERO%d", n), c.Zero, ""); err != nil {
				return nil, err
			}
		}
		if c.HasNull {
			if err := cc.Set(fmt.Sprintf("TNULL%d", n), c.Null, ""); err != nil {
				return nil, err
			}
		}
	}

	return newHDU(BinaryTable, cc), nil
}

// fitsStructTag is the struct-tag key ColumnsFromStruct reads to learn a
// field's column name, overriding the Go field name.
const fitsStructTag = "fits"

// ColumnsFromStruct infers a binary-table column schema from an exported
// struct field list, as a write-side convenience.
// Only fixed-width fields are supported (no
// slices): string fields get a fixed TFORM width taken from a "width=N"
// option in the fits tag, or 16 when none is given, since a binary-table
// column cannot vary width row to row.
func ColumnsFromStruct(v interface{}) ([]Column, error) {
	rt := reflect.TypeOf(v)
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil, errInvalidValue(-1, fmt.Sprintf("ColumnsFromStruct needs a struct, got %s", rt.Kind()), nil)
	}

	cols := make([]Column, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		name := f.Name
		strWidth := 0
		if tag, ok := f.Tag.Lookup(fitsStructTag); ok {
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if w, err := strconv.Atoi(strings.TrimPrefix(opt, "width=")); err == nil {
					strWidth = w
				}
			}
		}
		if f.Type.Kind() == reflect.String && strWidth == 0 {
			strWidth = 16
		}
		form, err := formFromGoType(f.Type, strWidth)
		if err != nil {
			return nil, err
		}
		dt, err := ParseTFORM(form)
		if err != nil {
			return nil, err
		}
		cols = append(cols, Column{Name: name, Format: form, Scale: 1, dtype: dt})
	}
	return cols, nil
}

// DecodeRow decodes one raw row stride of a Binary Table HDU into one
// effective value per column, in column order. Integer and float columns
// apply TSCALn*wire+TZEROn when either is non-default; string and
// boolean columns are returned as-is.
func (h *HDU) DecodeRow(stride []byte) ([]interface{}, error) {
	if h.kind != BinaryTable {
		return nil, errInvalidState("DecodeRow called on a non-table HDU")
	}
	codec := WireCodec()
	out := make([]interface{}, len(h.columns))
	for i, col := range h.columns {
		cell := stride[col.offset : col.offset+col.dtype.TotalBytes]
		v, err := decodeCell(codec, col, cell)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func decodeCell(codec Codec, col Column, cell []byte) (interface{}, error) {
	scaled := func(raw float64) float64 {
		if col.Scale == 0 && col.Zero == 0 {
			return raw
		}
		scale := col.Scale
		if scale == 0 {
			scale = 1
		}
		return raw*scale + col.Zero
	}

	switch col.dtype.Code {
	case TypeLogical:
		vals := make([]bool, col.dtype.Repeat)
		for i := range vals {
			vals[i] = cell[i] == 'T'
		}
		if col.dtype.Repeat == 1 {
			return vals[0], nil
		}
		return vals, nil

	case TypeBit:
		return append([]byte(nil), cell...), nil

	case TypeByte:
		vals := make([]float64, col.dtype.Repeat)
		for i := range vals {
			vals[i] = scaled(float64(codec.DecodeU8(cell[i : i+1])))
		}
		return shrink(vals, col.dtype.Repeat), nil

	case TypeInt16:
		vals := make([]float64, col.dtype.Repeat)
		for i := range vals {
			vals[i] = scaled(float64(codec.DecodeI16(cell[i*2 : i*2+2])))
		}
		return shrink(vals, col.dtype.Repeat), nil

	case TypeInt32:
		vals := make([]float64, col.dtype.Repeat)
		for i := range vals {
			vals[i] = scaled(float64(codec.DecodeI32(cell[i*4 : i*4+4])))
		}
		return shrink(vals, col.dtype.Repeat), nil

	case TypeInt64:
		vals := make([]float64, col.dtype.Repeat)
		for i := range vals {
			vals[i] = scaled(float64(codec.DecodeI64(cell[i*8 : i*8+8])))
		}
		return shrink(vals, col.dtype.Repeat), nil

	case TypeChar:
		return strings.TrimRight(string(cell), " \x00"), nil

	case TypeFloat32:
		vals := make([]float64, col.dtype.Repeat)
		for i := range vals {
			vals[i] = scaled(float64(codec.DecodeF32(cell[i*4 : i*4+4])))
		}
		return shrink(vals, col.dtype.Repeat), nil

	case TypeFloat64:
		vals := make([]float64, col.dtype.Repeat)
		for i := range vals {
			vals[i] = scaled(codec.DecodeF64(cell[i*8 : i*8+8]))
		}
		return shrink(vals, col.dtype.Repeat), nil

	case TypeComplex64:
		vals := make([]complex128, col.dtype.Repeat)
		for i := range vals {
			vals[i] = complex128(codec.DecodeC64(cell[i*8 : i*8+8]))
		}
		if col.dtype.Repeat == 1 {
			return vals[0], nil
		}
		return vals, nil

	case TypeComplex128:
		vals := make([]complex128, col.dtype.Repeat)
		for i := range vals {
			vals[i] = codec.DecodeC128(cell[i*16 : i*16+16])
		}
		if col.dtype.Repeat == 1 {
			return vals[0], nil
		}
		return vals, nil

	default:
		return nil, errUnsupported(fmt.Sprintf("no decoder for TFORM code %q", string(col.dtype.Code)))
	}
}

// shrink returns vals[0] when repeat==1, so a scalar column decodes to a
// plain float64 rather than a one-element slice.
func shrink(vals []float64, repeat int) interface{} {
	if repeat == 1 {
		return vals[0]
	}
	return vals
}

// EncodeRow is the inverse of DecodeRow: it encodes one effective value
// per column (in column order, as produced by DecodeRow or built by the
// caller) into one raw row stride ready for FitsFile.WriteStride.
// Integer and float columns remove TSCALn/TZEROn before writing the wire
// value.
func (h *HDU) EncodeRow(values []interface{}) ([]byte, error) {
	if h.kind != BinaryTable {
		return nil, errInvalidState("EncodeRow called on a non-table HDU")
	}
	if len(values) != len(h.columns) {
		return nil, errInvalidValue(-1, fmt.Sprintf("got %d values, table has %d columns", len(values), len(h.columns)), nil)
	}
	codec := WireCodec()
	out := make([]byte, h.strideLength)
	for i, col := range h.columns {
		cell, err := encodeCell(codec, col, values[i])
		if err != nil {
			return nil, err
		}
		copy(out[col.offset:col.offset+col.dtype.TotalBytes], cell)
	}
	return out, nil
}

func encodeCell(codec Codec, col Column, v interface{}) ([]byte, error) {
	unscale := func(eff float64) float64 {
		scale := col.Scale
		if scale == 0 {
			scale = 1
		}
		return (eff - col.Zero) / scale
	}
	cell := make([]byte, col.dtype.TotalBytes)

	switch col.dtype.Code {
	case TypeLogical:
		bs, ok := asBoolSlice(v, col.dtype.Repeat)
		if !ok {
			return nil, errInvalidValue(-1, fmt.Sprintf("column %q wants bool, got %T", col.Name, v), nil)
		}
		for i, b := range bs {
			if b {
				cell[i] = 'T'
			} else {
				cell[i] = 'F'
			}
		}

	case TypeBit:
		raw, ok := v.([]byte)
		if !ok || len(raw) != len(cell) {
			return nil, errInvalidValue(-1, fmt.Sprintf("column %q wants %d raw bytes for TypeBit", col.Name, len(cell)), nil)
		}
		copy(cell, raw)

	case TypeByte:
		fs, ok := asFloatSlice(v, col.dtype.Repeat)
		if !ok {
			return nil, errInvalidValue(-1, fmt.Sprintf("column %q wants numeric value(s)", col.Name), nil)
		}
		for i, f := range fs {
			copy(cell[i:i+1], codec.EncodeU8(uint8(unscale(f))))
		}

	case TypeInt16:
		fs, ok := asFloatSlice(v, col.dtype.Repeat)
		if !ok {
			return nil, errInvalidValue(-1, fmt.Sprintf("column %q wants numeric value(s)", col.Name), nil)
		}
		for i, f := range fs {
			copy(cell[i*2:i*2+2], codec.EncodeI16(int16(unscale(f))))
		}

	case TypeInt32:
		fs, ok := asFloatSlice(v, col.dtype.Repeat)
		if !ok {
			return nil, errInvalidValue(-1, fmt.Sprintf("column %q wants numeric value(s)", col.Name), nil)
		}
		for i, f := range fs {
			copy(cell[i*4:i*4+4], codec.EncodeI32(int32(unscale(f))))
		}

	case TypeInt64:
		fs, ok := asFloatSlice(v, col.dtype.Repeat)
		if !ok {
			return nil, errInvalidValue(-1, fmt.Sprintf("column %q wants numeric value(s)", col.Name), nil)
		}
		for i, f := range fs {
			copy(cell[i*8:i*8+8], codec.EncodeI64(int64(unscale(f))))
		}

	case TypeChar:
		s, ok := v.(string)
		if !ok {
			return nil, errInvalidValue(-1, fmt.Sprintf("column %q wants string, got %T", col.Name, v), nil)
		}
		copy(cell, s)
		for i := len(s); i < len(cell); i++ {
			cell[i] = ' '
		}

	case TypeFloat32:
		fs, ok := asFloatSlice(v, col.dtype.Repeat)
		if !ok {
			return nil, errInvalidValue(-1, fmt.Sprintf("column %q wants numeric value(s)", col.Name), nil)
		}
		for i, f := range fs {
			copy(cell[i*4:i*4+4], codec.EncodeF32(float32(unscale(f))))
		}

	case TypeFloat64:
		fs, ok := asFloatSlice(v, col.dtype.Repeat)
		if !ok {
			return nil, errInvalidValue(-1, fmt.Sprintf("column %q wants numeric value(s)", col.Name), nil)
		}
		for i, f := range fs {
			copy(cell[i*8:i*8+8], codec.EncodeF64(unscale(f)))
		}

	case TypeComplex64:
		cs, ok := asComplexSlice(v, col.dtype.Repeat)
		if !ok {
			return nil, errInvalidValue(-1, fmt.Sprintf("column %q wants complex value(s)", col.Name), nil)
		}
		for i, c := range cs {
			copy(cell[i*8:i*8+8], codec.EncodeC64(complex64(c)))
		}

	case TypeComplex128:
		cs, ok := asComplexSlice(v, col.dtype.Repeat)
		if !ok {
			return nil, errInvalidValue(-1, fmt.Sprintf("column %q wants complex value(s)", col.Name), nil)
		}
		for i, c := range cs {
			copy(cell[i*16:i*16+16], codec.EncodeC128(c))
		}

	default:
		return nil, errUnsupported(fmt.Sprintf("no encoder for TFORM code %q", string(col.dtype.Code)))
	}
	return cell, nil
}

func asFloatSlice(v interface{}, repeat int) ([]float64, bool) {
	switch vv := v.(type) {
	case float64:
		return []float64{vv}, repeat == 1
	case []float64:
		return vv, len(vv) == repeat
	case int64:
		return []float64{float64(vv)}, repeat == 1
	case int:
		return []float64{float64(vv)}, repeat == 1
	default:
		return nil, false
	}
}

func asBoolSlice(v interface{}, repeat int) ([]bool, bool) {
	switch vv := v.(type) {
	case bool:
		return []bool{vv}, repeat == 1
	case []bool:
		return vv, len(vv) == repeat
	default:
		return nil, false
	}
}

func asComplexSlice(v interface{}, repeat int) ([]complex128, bool) {
	switch vv := v.(type) {
	case complex128:
		return []complex128{vv}, repeat == 1
	case []complex128:
		return vv, len(vv) == repeat
	default:
		return nil, false
	}
}
