// Copyright 2015 The astrogo Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fitsio

import (
	"bytes"
	stdbinary "encoding/binary"

	"github.com/gonuts/binary"
)

// Codec encodes and decodes the fixed-width primitive types a FITS stream
// is built from. FITS data is always big-endian on the wire; WireCodec is
// the variant actually used when reading or writing a file. NativeCodec
// exists alongside it so the round-trip invariant (decode(encode(v)) == v)
// can be exercised independently of byte order.
type Codec struct {
	order stdbinary.ByteOrder
}

// WireCodec is the big-endian codec every FITS HDU is encoded/decoded with.
func WireCodec() Codec { return Codec{order: binary.BigEndian} }

// NativeCodec is the little-endian "straight" variant used for symmetry
// testing; it is never used to read or write an actual FITS stream.
func NativeCodec() Codec { return Codec{order: binary.LittleEndian} }

func (c Codec) encode(v interface{}, n int) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, n))
	enc := binary.NewEncoder(buf)
	enc.Order = c.order
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func (c Codec) decode(b []byte, v interface{}) {
	dec := binary.NewDecoder(bytes.NewReader(b))
	dec.Order = c.order
	if err := dec.Decode(v); err != nil {
		panic(err)
	}
}

func (c Codec) EncodeI16(v int16) []byte { return c.encode(&v, 2) }
func (c Codec) DecodeI16(b []byte) int16 { var v int16; c.decode(b, &v); return v }

func (c Codec) EncodeI32(v int32) []byte { return c.encode(&v, 4) }
func (c Codec) DecodeI32(b []byte) int32 { var v int32; c.decode(b, &v); return v }

func (c Codec) EncodeI64(v int64) []byte { return c.encode(&v, 8) }
func (c Codec) DecodeI64(b []byte) int64 { var v int64; c.decode(b, &v); return v }

func (c Codec) EncodeU8(v uint8) []byte { return c.encode(&v, 1) }
func (c Codec) DecodeU8(b []byte) uint8 { var v uint8; c.decode(b, &v); return v }

func (c Codec) EncodeF32(v float32) []byte { return c.encode(&v, 4) }
func (c Codec) DecodeF32(b []byte) float32 { var v float32; c.decode(b, &v); return v }

func (c Codec) EncodeF64(v float64) []byte { return c.encode(&v, 8) }
func (c Codec) DecodeF64(b []byte) float64 { var v float64; c.decode(b, &v); return v }

// EncodeC64 encodes a complex64 as two consecutive float32 (real, imag),
// the FITS 'C' wire layout (8 bytes).
func (c Codec) EncodeC64(v complex64) []byte {
	out := make([]byte, 0, 8)
	out = append(out, c.EncodeF32(real(v))...)
	out = append(out, c.EncodeF32(imag(v))...)
	return out
}

func (c Codec) DecodeC64(b []byte) complex64 {
	re := c.DecodeF32(b[0:4])
	im := c.DecodeF32(b[4:8])
	return complex(re, im)
}

// EncodeC128 encodes a complex128 as two consecutive float64 (real, imag),
// the FITS 'M' wire layout (16 bytes).
func (c Codec) EncodeC128(v complex128) []byte {
	out := make([]byte, 0, 16)
	out = append(out, c.EncodeF64(real(v))...)
	out = append(out, c.EncodeF64(imag(v))...)
	return out
}

func (c Codec) DecodeC128(b []byte) complex128 {
	re := c.DecodeF64(b[0:8])
	im := c.DecodeF64(b[8:16])
	return complex(re, im)
}
