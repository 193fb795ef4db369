// Copyright 2015 The astrogo Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fitsio

import (
	"fmt"
	"reflect"
)

// validBitpix is the set of pixel widths the FITS standard allows for
// BITPIX: positive values are two's-complement integers, negative values
// are IEEE floats of the corresponding magnitude.
var validBitpix = map[int64]bool{
	8: true, 16: true, 32: true, 64: true, -32: true, -64: true,
}

// imageStrides computes the stride geometry of an Image HDU (primary or
// extension) from its card collection: NAXIS1 is the fastest-varying
// axis and forms one stride; the remaining axes multiply into the stride
// count. NAXIS==0 is a data-less HDU (zero strides of zero length);
// NAXIS==1 is a single stride.
func imageStrides(cc *CardCollection) (strideLength, totalStrides int64, err error) {
	bitpix := cc.Int("BITPIX", 0)
	if !validBitpix[bitpix] {
		return 0, 0, errInvalidHeader(-1, fmt.Sprintf("BITPIX=%d is not one of {8,16,32,64,-32,-64}", bitpix), nil)
	}
	naxis := cc.Int("NAXIS", -1)
	if naxis < 0 {
		return 0, 0, errInvalidHeader(-1, "missing mandatory NAXIS keyword", nil)
	}
	if naxis == 0 {
		return 0, 0, nil
	}

	elemBytes := bitpix
	if elemBytes < 0 {
		elemBytes = -elemBytes
	}
	elemBytes /= 8

	naxis1 := cc.Int("NAXIS1", -1)
	if naxis1 < 0 {
		return 0, 0, errInvalidHeader(-1, "missing mandatory NAXIS1 keyword", nil)
	}

	totalStrides = 1
	for i := int64(2); i <= naxis; i++ {
		key := fmt.Sprintf("NAXIS%d", i)
		n := cc.Int(key, -1)
		if n < 0 {
			return 0, 0, errInvalidHeader(-1, fmt.Sprintf("missing mandatory %s keyword", key), nil)
		}
		totalStrides *= n
	}
	return elemBytes * naxis1, totalStrides, nil
}

// Axes returns the NAXIS1..NAXISn dimensions of an Image HDU, fastest
// varying first. It is empty for a NAXIS==0 image and panics if called on
// a BinaryTable HDU (NAXIS there means something else: row width).
func (h *HDU) Axes() []int64 {
	if h.kind == BinaryTable {
		panic("fitsio: Axes called on a binary table HDU")
	}
	naxis := h.cards.Int("NAXIS", 0)
	axes := make([]int64, naxis)
	for i := range axes {
		axes[i] = h.cards.Int(fmt.Sprintf("NAXIS%d", i+1), 0)
	}
	return axes
}

// NewPrimaryImageHDU builds a write-side primary HDU: SIMPLE=T, BITPIX,
// NAXIS/NAXISn from axes (fastest-varying first), EXTEND=T. Cards are
// finalized (not yet sorted/encoded) and mutable until the HDU is passed
// to FitsFile.Append, which writes its header.
func NewPrimaryImageHDU(bitpix int64, axes []int64) (*HDU, error) {
	cards, err := imageCards(bitpix, axes)
	if err != nil {
		return nil, err
	}
	cc, err := NewCardCollection(append([]Card{
		{Name: "SIMPLE", Value: true, Comment: "conforms to FITS standard"},
	}, cards...)...)
	if err != nil {
		return nil, err
	}
	if err := cc.Set("EXTEND", true, "there may be FITS extensions"); err != nil {
		return nil, err
	}
	return newHDU(PrimaryImage, cc), nil
}

// NewImageExtensionHDU builds a write-side image-extension HDU:
// XTENSION='IMAGE', BITPIX, NAXIS/NAXISn, PCOUNT=0, GCOUNT=1, and
// EXTNAME if extname is non-empty.
func NewImageExtensionHDU(bitpix int64, axes []int64, extname string) (*HDU, error) {
	cards, err := imageCards(bitpix, axes)
	if err != nil {
		return nil, err
	}
	cc, err := NewCardCollection(append([]Card{
		{Name: "XTENSION", Value: "IMAGE   ", Comment: "IMAGE extension"},
	}, cards...)...)
	if err != nil {
		return nil, err
	}
	if err := cc.Set("PCOUNT", int64(0), "no group parameters"); err != nil {
		return nil, err
	}
	if err := cc.Set("GCOUNT", int64(1), "one data group"); err != nil {
		return nil, err
	}
	if extname != "" {
		if err := cc.Set("EXTNAME", extname, "extension name"); err != nil {
			return nil, err
		}
	}
	return newHDU(ImageExtension, cc), nil
}

// imageCards builds the BITPIX/NAXIS/NAXISn card trio shared by primary
// and extension images.
func imageCards(bitpix int64, axes []int64) ([]Card, error) {
	if !validBitpix[bitpix] {
		return nil, errInvalidHeader(-1, fmt.Sprintf("BITPIX=%d is not one of {8,16,32,64,-32,-64}", bitpix), nil)
	}
	cards := make([]Card, 0, 2+len(axes))
	cards = append(cards, Card{Name: "BITPIX", Value: bitpix, Comment: "number of bits per data pixel"})
	cards = append(cards, Card{Name: "NAXIS", Value: int64(len(axes)), Comment: "number of data axes"})
	for i, n := range axes {
		if n < 0 {
			return nil, errInvalidHeader(-1, fmt.Sprintf("NAXIS%d must be >= 0", i+1), nil)
		}
		cards = append(cards, Card{
			Name:    fmt.Sprintf("NAXIS%d", i+1),
			Value:   n,
			Comment: fmt.Sprintf("length of data axis %d", i+1),
		})
	}
	return cards, nil
}

// pixelGoType maps a BITPIX value to the Go element type one stride
// decodes into.
func pixelGoType(bitpix int64) (reflect.Type, error) {
	switch bitpix {
	case 8:
		return reflect.TypeOf(uint8(0)), nil
	case 16:
		return reflect.TypeOf(int16(0)), nil
	case 32:
		return reflect.TypeOf(int32(0)), nil
	case 64:
		return reflect.TypeOf(int64(0)), nil
	case -32:
		return reflect.TypeOf(float32(0)), nil
	case -64:
		return reflect.TypeOf(float64(0)), nil
	default:
		return nil, errInvalidHeader(-1, fmt.Sprintf("BITPIX=%d is not one of {8,16,32,64,-32,-64}", bitpix), nil)
	}
}

// DecodePixels decodes one raw stride (as returned by FitsFile.ReadStride)
// of an Image HDU into a slice of the Go type matching BITPIX: []uint8,
// []int16, []int32, []int64, []float32, or []float64, each of length
// NAXIS1.
func DecodePixels(h *HDU, stride []byte) (interface{}, error) {
	if h.kind == BinaryTable {
		return nil, errInvalidState("DecodePixels called on a binary table HDU")
	}
	bitpix := h.Bitpix()
	rt, err := pixelGoType(bitpix)
	if err != nil {
		return nil, err
	}
	elemSize := int(rt.Size())
	if len(stride)%elemSize != 0 {
		return nil, errInvalidValue(-1, fmt.Sprintf("stride of %d bytes is not a multiple of element size %d", len(stride), elemSize), nil)
	}
	n := len(stride) / elemSize
	codec := WireCodec()

	switch bitpix {
	case 8:
		out := make([]uint8, n)
		for i := range out {
			out[i] = codec.DecodeU8(stride[i : i+1])
		}
		return out, nil
	case 16:
		out := make([]int16, n)
		for i := range out {
			out[i] = codec.DecodeI16(stride[i*2 : i*2+2])
		}
		return out, nil
	case 32:
		out := make([]int32, n)
		for i := range out {
			out[i] = codec.DecodeI32(stride[i*4 : i*4+4])
		}
		return out, nil
	case 64:
		out := make([]int64, n)
		for i := range out {
			out[i] = codec.DecodeI64(stride[i*8 : i*8+8])
		}
		return out, nil
	case -32:
		out := make([]float32, n)
		for i := range out {
			out[i] = codec.DecodeF32(stride[i*4 : i*4+4])
		}
		return out, nil
	case -64:
		out := make([]float64, n)
		for i := range out {
			out[i] = codec.DecodeF64(stride[i*8 : i*8+8])
		}
		return out, nil
	}
	panic("unreachable")
}

// EncodePixels is the inverse of DecodePixels: it encodes a typed pixel
// slice matching h's BITPIX into one raw stride ready for
// FitsFile.WriteStride.
func EncodePixels(h *HDU, data interface{}) ([]byte, error) {
	if h.kind == BinaryTable {
		return nil, errInvalidState("EncodePixels called on a binary table HDU")
	}
	bitpix := h.Bitpix()
	codec := WireCodec()

	switch bitpix {
	case 8:
		v, ok := data.([]uint8)
		if !ok {
			return nil, errInvalidValue(-1, fmt.Sprintf("BITPIX=8 wants []uint8, got %T", data), nil)
		}
		out := make([]byte, len(v))
		for i, p := range v {
			copy(out[i:i+1], codec.EncodeU8(p))
		}
		return out, nil
	case 16:
		v, ok := data.([]int16)
		if !ok {
			return nil, errInvalidValue(-1, fmt.Sprintf("BITPIX=16 wants []int16, got %T", data), nil)
		}
		out := make([]byte, len(v)*2)
		for i, p := range v {
			copy(out[i*2:i*2+2], codec.EncodeI16(p))
		}
		return out, nil
	case 32:
		v, ok := data.([]int32)
		if !ok {
			return nil, errInvalidValue(-1, fmt.Sprintf("BITPIX=32 wants []int32, got %T", data), nil)
		}
		out := make([]byte, len(v)*4)
		for i, p := range v {
			copy(out[i*4:i*4+4], codec.EncodeI32(p))
		}
		return out, nil
	case 64:
		v, ok := data.([]int64)
		if !ok {
			return nil, errInvalidValue(-1, fmt.Sprintf("BITPIX=64 wants []int64, got %T", data), nil)
		}
		out := make([]byte, len(v)*8)
		for i, p := range v {
			copy(out[i*8:i*8+8], codec.EncodeI64(p))
		}
		return out, nil
	case -32:
		v, ok := data.([]float32)
		if !ok {
			return nil, errInvalidValue(-1, fmt.Sprintf("BITPIX=-32 wants []float32, got %T", data), nil)
		}
		out := make([]byte, len(v)*4)
		for i, p := range v {
			copy(out[i*4:i*4+4], codec.EncodeF32(p))
		}
		return out, nil
	case -64:
		v, ok := data.([]float64)
		if !ok {
			return nil, errInvalidValue(-1, fmt.Sprintf("BITPIX=-64 wants []float64, got %T", data), nil)
		}
		out := make([]byte, len(v)*8)
		for i, p := range v {
			copy(out[i*8:i*8+8], codec.EncodeF64(p))
		}
		return out, nil
	default:
		return nil, errInvalidHeader(-1, fmt.Sprintf("BITPIX=%d is not one of {8,16,32,64,-32,-64}", bitpix), nil)
	}
}
