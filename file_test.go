// Copyright 2015 The astrogo Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fitsio

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestFitsFileEmptyPrimaryHDU(t *testing.T) {
	var buf bytes.Buffer
	out, err := Open(&buf, WriteMode)
	if err != nil {
		t.Fatalf("Open(write): %v", err)
	}
	h, err := NewPrimaryImageHDU(8, nil)
	if err != nil {
		t.Fatalf("NewPrimaryImageHDU: %v", err)
	}
	if err := out.Append(h); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if buf.Len()%blockSize != 0 {
		t.Fatalf("output is %d bytes, not block-aligned", buf.Len())
	}
	if buf.Len() != blockSize {
		t.Fatalf("an empty primary HDU should be exactly one block, got %d bytes", buf.Len())
	}

	in, err := Open(bytes.NewReader(buf.Bytes()), ReadMode)
	if err != nil {
		t.Fatalf("Open(read): %v", err)
	}
	got, err := in.Advance()
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if got == nil {
		t.Fatalf("Advance returned nil, want the primary HDU")
	}
	if got.Kind() != PrimaryImage {
		t.Fatalf("Kind() = %v, want PrimaryImage", got.Kind())
	}
	if got.TotalStrides() != 0 {
		t.Fatalf("TotalStrides() = %d, want 0 for NAXIS=0", got.TotalStrides())
	}
	next, err := in.Advance()
	if err != nil {
		t.Fatalf("second Advance: %v", err)
	}
	if next != nil {
		t.Fatalf("second Advance should return nil at end-of-stream")
	}
}

func TestFitsFileImageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	out, err := Open(&buf, WriteMode)
	if err != nil {
		t.Fatalf("Open(write): %v", err)
	}
	h, err := NewPrimaryImageHDU(16, []int64{4, 2})
	if err != nil {
		t.Fatalf("NewPrimaryImageHDU: %v", err)
	}
	if err := out.Append(h); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rows := [][]int16{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
	}
	for _, row := range rows {
		raw, err := EncodePixels(h, row)
		if err != nil {
			t.Fatalf("EncodePixels: %v", err)
		}
		if err := out.WriteStride(raw); err != nil {
			t.Fatalf("WriteStride: %v", err)
		}
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	in, err := Open(bytes.NewReader(buf.Bytes()), ReadMode)
	if err != nil {
		t.Fatalf("Open(read): %v", err)
	}
	hdu, err := in.Advance()
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if hdu.TotalStrides() != 2 {
		t.Fatalf("TotalStrides() = %d, want 2", hdu.TotalStrides())
	}
	for i := int64(0); i < hdu.TotalStrides(); i++ {
		raw, err := in.ReadStride()
		if err != nil {
			t.Fatalf("ReadStride: %v", err)
		}
		pix, err := DecodePixels(hdu, raw)
		if err != nil {
			t.Fatalf("DecodePixels: %v", err)
		}
		got, ok := pix.([]int16)
		if !ok {
			t.Fatalf("DecodePixels returned %T", pix)
		}
		for j, v := range got {
			if v != rows[i][j] {
				t.Errorf("row %d pixel %d = %d, want %d", i, j, v, rows[i][j])
			}
		}
	}
	if !hdu.Done() {
		t.Fatalf("HDU should be Done after consuming all strides")
	}
	end, err := in.Advance()
	if err != nil {
		t.Fatalf("final Advance: %v", err)
	}
	if end != nil {
		t.Fatalf("expected end-of-stream after the only HDU")
	}
}

func TestFitsFileTableRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	out, err := Open(&buf, WriteMode)
	if err != nil {
		t.Fatalf("Open(write): %v", err)
	}
	primary, err := NewPrimaryImageHDU(8, nil)
	if err != nil {
		t.Fatalf("NewPrimaryImageHDU: %v", err)
	}
	if err := out.Append(primary); err != nil {
		t.Fatalf("Append(primary): %v", err)
	}

	tbl, err := NewBinaryTableHDU([]Column{
		{Name: "ID", Format: "1J"},
		{Name: "VAL", Format: "1D"},
	}, 2, "DATA")
	if err != nil {
		t.Fatalf("NewBinaryTableHDU: %v", err)
	}
	if err := out.Append(tbl); err != nil {
		t.Fatalf("Append(table): %v", err)
	}
	rows := [][]interface{}{
		{float64(1), float64(1.5)},
		{float64(2), float64(2.5)},
	}
	for _, row := range rows {
		raw, err := tbl.EncodeRow(row)
		if err != nil {
			t.Fatalf("EncodeRow: %v", err)
		}
		if err := out.WriteStride(raw); err != nil {
			t.Fatalf("WriteStride: %v", err)
		}
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	in, err := Open(bytes.NewReader(buf.Bytes()), ReadMode)
	if err != nil {
		t.Fatalf("Open(read): %v", err)
	}
	if _, err := in.Advance(); err != nil { // primary
		t.Fatalf("Advance(primary): %v", err)
	}
	hdu, err := in.Advance()
	if err != nil {
		t.Fatalf("Advance(table): %v", err)
	}
	if hdu == nil || hdu.Kind() != BinaryTable {
		t.Fatalf("expected a binary table HDU, got %v", hdu)
	}
	if hdu.Name() != "DATA" {
		t.Fatalf("Name() = %q, want DATA", hdu.Name())
	}
	for i := int64(0); i < hdu.TotalStrides(); i++ {
		raw, err := in.ReadStride()
		if err != nil {
			t.Fatalf("ReadStride: %v", err)
		}
		got, err := hdu.DecodeRow(raw)
		if err != nil {
			t.Fatalf("DecodeRow: %v", err)
		}
		if got[0] != rows[i][0] || got[1] != rows[i][1] {
			t.Errorf("row %d = %v, want %v", i, got, rows[i])
		}
	}
}

func TestFitsFileCopyHDU(t *testing.T) {
	var srcBuf bytes.Buffer
	src, err := Open(&srcBuf, WriteMode)
	if err != nil {
		t.Fatalf("Open(write): %v", err)
	}
	h, err := NewPrimaryImageHDU(8, []int64{4})
	if err != nil {
		t.Fatalf("NewPrimaryImageHDU: %v", err)
	}
	if err := src.Append(h); err != nil {
		t.Fatalf("Append: %v", err)
	}
	raw := []byte{1, 2, 3, 4}
	if err := src.WriteStride(raw); err != nil {
		t.Fatalf("WriteStride: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	in, err := Open(bytes.NewReader(srcBuf.Bytes()), ReadMode)
	if err != nil {
		t.Fatalf("Open(read): %v", err)
	}
	if _, err := in.Advance(); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	var dstBuf bytes.Buffer
	out, err := Open(&dstBuf, WriteMode)
	if err != nil {
		t.Fatalf("Open(write dst): %v", err)
	}
	if err := CopyHDU(out, in); err != nil {
		t.Fatalf("CopyHDU: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close(dst): %v", err)
	}
	if !bytes.Equal(srcBuf.Bytes(), dstBuf.Bytes()) {
		t.Fatalf("copied file differs from the source file")
	}
}

func TestFitsFileCloseIdempotent(t *testing.T) {
	var buf bytes.Buffer
	out, err := Open(&buf, WriteMode)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	h, err := NewPrimaryImageHDU(8, nil)
	if err != nil {
		t.Fatalf("NewPrimaryImageHDU: %v", err)
	}
	if err := out.Append(h); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
}

func TestFitsFileForwardOnlyStreamEquivalence(t *testing.T) {
	var buf bytes.Buffer
	out, err := Open(&buf, WriteMode)
	if err != nil {
		t.Fatalf("Open(write): %v", err)
	}
	h, err := NewPrimaryImageHDU(32, []int64{2, 2})
	if err != nil {
		t.Fatalf("NewPrimaryImageHDU: %v", err)
	}
	if err := out.Append(h); err != nil {
		t.Fatalf("Append: %v", err)
	}
	for i := 0; i < 2; i++ {
		raw, err := EncodePixels(h, []int32{int32(i), int32(i + 1)})
		if err != nil {
			t.Fatalf("EncodePixels: %v", err)
		}
		if err := out.WriteStride(raw); err != nil {
			t.Fatalf("WriteStride: %v", err)
		}
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	seekable, err := Open(bytes.NewReader(buf.Bytes()), ReadMode)
	if err != nil {
		t.Fatalf("Open(seekable): %v", err)
	}
	forward, err := Open(nonSeekingReader{bytes.NewReader(buf.Bytes())}, ReadMode)
	if err != nil {
		t.Fatalf("Open(forward-only): %v", err)
	}

	for {
		h1, err1 := seekable.Advance()
		h2, err2 := forward.Advance()
		if (err1 == nil) != (err2 == nil) {
			t.Fatalf("Advance error mismatch: %v vs %v", err1, err2)
		}
		if err1 != nil {
			t.Fatalf("Advance: %v", err1)
		}
		if (h1 == nil) != (h2 == nil) {
			t.Fatalf("Advance nil mismatch")
		}
		if h1 == nil {
			break
		}
		if h1.TotalStrides() != h2.TotalStrides() {
			t.Fatalf("TotalStrides mismatch: %d vs %d", h1.TotalStrides(), h2.TotalStrides())
		}
		for i := int64(0); i < h1.TotalStrides(); i++ {
			s1, e1 := seekable.ReadStride()
			s2, e2 := forward.ReadStride()
			if e1 != nil || e2 != nil {
				t.Fatalf("ReadStride errors: %v / %v", e1, e2)
			}
			if !bytes.Equal(s1, s2) {
				t.Fatalf("stride %d differs between seekable and forward-only streams", i)
			}
		}
	}
}

var _ io.Reader = nonSeekingReader{}

func TestFitsFileUsePrototype(t *testing.T) {
	var buf bytes.Buffer
	out, err := Open(&buf, WriteMode)
	if err != nil {
		t.Fatalf("Open(write): %v", err)
	}
	h, err := NewPrimaryImageHDU(8, []int64{3})
	if err != nil {
		t.Fatalf("NewPrimaryImageHDU: %v", err)
	}
	if err := out.Append(h); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := out.WriteStride([]byte{9, 8, 7}); err != nil {
		t.Fatalf("WriteStride: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	in, err := Open(bytes.NewReader(buf.Bytes()), ReadMode)
	if err != nil {
		t.Fatalf("Open(read): %v", err)
	}
	proto := newHDU(PrimaryImage, nil)
	in.UsePrototype(proto)
	got, err := in.Advance()
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if got != proto {
		t.Fatalf("Advance should return the supplied prototype HDU")
	}
	if got.Header() == nil || !got.Header().Has("SIMPLE") {
		t.Fatalf("prototype did not pick up the on-disk header cards")
	}
	stride, err := in.ReadStride()
	if err != nil {
		t.Fatalf("ReadStride: %v", err)
	}
	if !bytes.Equal(stride, []byte{9, 8, 7}) {
		t.Fatalf("stride = %v, want [9 8 7]", stride)
	}
}

func TestHDUCardsImmutableAfterHeader(t *testing.T) {
	var buf bytes.Buffer
	out, err := Open(&buf, WriteMode)
	if err != nil {
		t.Fatalf("Open(write): %v", err)
	}
	h, err := NewPrimaryImageHDU(8, nil)
	if err != nil {
		t.Fatalf("NewPrimaryImageHDU: %v", err)
	}
	if err := h.SetCard("OBJECT", "M31", ""); err != nil {
		t.Fatalf("SetCard before Append: %v", err)
	}
	if err := out.Append(h); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := h.SetCard("OBJECT", "M32", ""); err == nil {
		t.Fatalf("SetCard after the header was written should fail")
	}
	if err := h.AppendCard(Card{Name: "EXTRA", Value: int64(1)}); err == nil {
		t.Fatalf("AppendCard after the header was written should fail")
	}
}

func TestFitsFileLongStringRoundTrip(t *testing.T) {
	long := "this string value is deliberately much longer than the sixty-eight characters one card can hold, so it must continue"

	var buf bytes.Buffer
	out, err := Open(&buf, WriteMode)
	if err != nil {
		t.Fatalf("Open(write): %v", err)
	}
	h, err := NewPrimaryImageHDU(8, nil)
	if err != nil {
		t.Fatalf("NewPrimaryImageHDU: %v", err)
	}
	if err := h.SetCard("LONGSTRN", "OGIP 1.0", "long string convention in use"); err != nil {
		t.Fatalf("SetCard(LONGSTRN): %v", err)
	}
	if err := h.SetCard("SURVEY", long, ""); err != nil {
		t.Fatalf("SetCard(SURVEY): %v", err)
	}
	if err := out.Append(h); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	in, err := Open(bytes.NewReader(buf.Bytes()), ReadMode)
	if err != nil {
		t.Fatalf("Open(read): %v", err)
	}
	got, err := in.Advance()
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if v := got.Header().Str("SURVEY", ""); v != long {
		t.Fatalf("SURVEY round-tripped as %q, want %q", v, long)
	}
}

// TestFitsFileOpenPathWritesFillBytes guards against a BlockStream that
// decides its pad direction from which interfaces the underlying object
// happens to implement rather than from the mode it was opened in: a real
// *os.File satisfies io.Reader, io.Writer and io.Seeker simultaneously
// regardless of mode, so Open(path, WriteMode) must still pad with space
// bytes (not a bare forward seek, which would leave the gap a sparse hole
// that reads back as zero or, for a trailing pad, never extend the file
// at all).
func TestFitsFileOpenPathWritesFillBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty-primary.fits")

	out, err := Open(path, WriteMode)
	if err != nil {
		t.Fatalf("Open(path, WriteMode): %v", err)
	}
	h, err := NewPrimaryImageHDU(8, nil)
	if err != nil {
		t.Fatalf("NewPrimaryImageHDU: %v", err)
	}
	if err := out.Append(h); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(raw) != blockSize {
		t.Fatalf("file is %d bytes, want exactly %d (an unpadded seek would leave it short)", len(raw), blockSize)
	}
	if raw[len(raw)-1] != ' ' {
		t.Fatalf("last header pad byte is %q, want space (a bare seek leaves a null hole)", raw[len(raw)-1])
	}
	for _, b := range raw {
		if b != ' ' && b < 0x21 {
			t.Fatalf("header pad byte %q is not printable ASCII space-or-content", b)
		}
	}
}
