// Copyright 2015 The astrogo Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fitsio

import (
	"bytes"
	"io"
	"testing"
)

// nonSeekingReader wraps an io.Reader but hides any io.Seeker it might
// implement, so tests can exercise BlockStream's forward-only path.
type nonSeekingReader struct {
	io.Reader
}

func TestBlockStreamPadToBlock(t *testing.T) {
	var buf bytes.Buffer
	bs, err := NewBlockStream(&buf, WriteMode)
	if err != nil {
		t.Fatalf("NewBlockStream: %v", err)
	}
	if err := bs.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := bs.PadToBlock(spaceFill); err != nil {
		t.Fatalf("PadToBlock: %v", err)
	}
	if bs.Pos()%blockSize != 0 {
		t.Fatalf("position %d is not block-aligned", bs.Pos())
	}
	if buf.Len() != blockSize {
		t.Fatalf("buffer is %d bytes, want %d", buf.Len(), blockSize)
	}
	if buf.Bytes()[buf.Len()-1] != ' ' {
		t.Fatalf("last pad byte is %q, want space", buf.Bytes()[buf.Len()-1])
	}

	// a stream already aligned pads to zero.
	if err := bs.PadToBlock(spaceFill); err != nil {
		t.Fatalf("PadToBlock on aligned stream: %v", err)
	}
	if buf.Len() != blockSize {
		t.Fatalf("PadToBlock on an aligned stream wrote extra bytes: %d", buf.Len())
	}
}

func TestBlockStreamForwardOnlySkip(t *testing.T) {
	payload := append([]byte("0123456789"), bytes.Repeat([]byte{0}, 20)...)
	r := nonSeekingReader{bytes.NewReader(payload)}
	bs, err := NewBlockStream(r, ReadMode)
	if err != nil {
		t.Fatalf("NewBlockStream: %v", err)
	}
	if bs.Seekable() {
		t.Fatalf("nonSeekingReader wrongly reported as seekable")
	}
	if err := bs.SkipForward(10, nullFill); err != nil {
		t.Fatalf("SkipForward: %v", err)
	}
	if bs.Pos() != 10 {
		t.Fatalf("Pos() = %d, want 10", bs.Pos())
	}
	rest := make([]byte, 5)
	if err := bs.Read(rest); err != nil {
		t.Fatalf("Read after skip: %v", err)
	}
	for _, b := range rest {
		if b != 0 {
			t.Fatalf("expected zero-filled tail, got %v", rest)
		}
	}
}

func TestBlockStreamSeekableUsesTrueSeek(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAA}, 100)
	r := bytes.NewReader(payload)
	bs, err := NewBlockStream(r, ReadMode)
	if err != nil {
		t.Fatalf("NewBlockStream: %v", err)
	}
	if !bs.Seekable() {
		t.Fatalf("bytes.Reader should report seekable")
	}
	if err := bs.SkipForward(50, nullFill); err != nil {
		t.Fatalf("SkipForward: %v", err)
	}
	if bs.Pos() != 50 {
		t.Fatalf("Pos() = %d, want 50", bs.Pos())
	}
}

func TestBlockStreamWriteTracksPosition(t *testing.T) {
	var buf bytes.Buffer
	bs, err := NewBlockStream(&buf, WriteMode)
	if err != nil {
		t.Fatalf("NewBlockStream: %v", err)
	}
	if err := bs.Write(make([]byte, 37)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if bs.Pos() != 37 {
		t.Fatalf("Pos() = %d, want 37", bs.Pos())
	}
}

func TestBlockStreamShortReadIsIOError(t *testing.T) {
	bs, err := NewBlockStream(bytes.NewReader([]byte("short")), ReadMode)
	if err != nil {
		t.Fatalf("NewBlockStream: %v", err)
	}
	buf := make([]byte, 80)
	err = bs.Read(buf)
	if err == nil {
		t.Fatalf("expected an error reading past a short buffer")
	}
	var fe *Error
	if !asError(err, &fe) || fe.Kind != KindIO {
		t.Fatalf("got %v, want a KindIO *Error", err)
	}
}

// asError is a small helper mirroring errors.As without importing errors
// twice across test files for a one-off assertion.
func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
