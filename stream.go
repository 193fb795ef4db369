// Copyright 2015 The astrogo Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fitsio

import (
	"fmt"
	"io"
)

// blockSize is the fixed FITS alignment unit: every header section and
// every data section is padded up to an integer number of these.
const blockSize = 2880

// cardSize is the fixed width of a single header card.
const cardSize = 80

// spaceFill and nullFill are the two padding bytes the FITS standard
// mandates: headers pad with space, data pads with null.
const (
	spaceFill byte = 0x20
	nullFill  byte = 0x00
)

// padBlock returns the number of fill bytes needed to bring sz up to the
// next blockSize boundary (0 if sz is already aligned).
func padBlock(sz int64) int64 {
	return (blockSize - (sz % blockSize)) % blockSize
}

// BlockStream wraps a byte source/sink with a logical, block-aware
// position. It is the sole means by which FitsFile and HDU touch the
// underlying stream: every read, write and pad operation flows through
// it, so that non-seekable sources and sinks (sockets, pipes) are
// supported on equal footing with seekable ones (files, in-memory
// buffers).
//
// Random access is intentionally not offered: BlockStream only ever
// moves forward.
type BlockStream struct {
	r        io.Reader
	w        io.Writer
	seeker   io.Seeker
	seekable bool
	pos      int64
}

// NewBlockStream wraps rw for the single direction mode calls for. A
// *os.File (the documented Open(path, mode) input) satisfies io.Reader,
// io.Writer and io.Seeker regardless of which mode it was actually opened
// in, so the active direction is decided by mode, not by which interfaces
// rw happens to implement: in ReadMode only bs.r is wired, in WriteMode
// only bs.w is. This keeps SkipForward/PadToBlock from mistaking a
// write-mode stream for a seekable read-mode one and silently leaving a
// sparse hole instead of emitting fill bytes. If rw also implements
// io.Seeker, its position is probed once at construction time via
// Seek(0, io.SeekCurrent): when the probe succeeds the stream is treated
// as seekable and starts at that position (so a stream already partway
// through reports a correct starting position); when it fails, as it
// does for an *os.File on a pipe, the stream is forward-only from 0.
func NewBlockStream(rw interface{}, mode Mode) (*BlockStream, error) {
	bs := &BlockStream{}
	switch mode {
	case ReadMode:
		if r, ok := rw.(io.Reader); ok {
			bs.r = r
		}
	case WriteMode:
		if w, ok := rw.(io.Writer); ok {
			bs.w = w
		}
	}
	if s, ok := rw.(io.Seeker); ok {
		if pos, err := s.Seek(0, io.SeekCurrent); err == nil {
			bs.seeker = s
			bs.seekable = true
			bs.pos = pos
		}
	}
	return bs, nil
}

// Seekable reports whether the underlying stream supports true seeking.
// BlockStream never uses this to seek backward; it only informs callers
// who want to know the capability of the source they opened.
func (bs *BlockStream) Seekable() bool { return bs.seekable }

// Pos returns the current logical byte offset into the stream.
func (bs *BlockStream) Pos() int64 { return bs.pos }

// TryReadFull behaves like Read but returns the raw io error (possibly
// io.EOF or io.ErrUnexpectedEOF, unwrapped) together with the number of
// bytes actually read, so a caller probing for the start of the next HDU
// can distinguish a clean end-of-stream (n == 0, err == io.EOF) from a
// truncated one (0 < n < len(buf)).
func (bs *BlockStream) TryReadFull(buf []byte) (int, error) {
	if bs.r == nil {
		return 0, errIO(bs.pos, "stream not open for reading", nil)
	}
	n, err := io.ReadFull(bs.r, buf)
	bs.pos += int64(n)
	return n, err
}

// Read fills buf entirely (short reads are an error), advancing the
// logical position by len(buf).
func (bs *BlockStream) Read(buf []byte) error {
	n, err := bs.TryReadFull(buf)
	if err != nil {
		return errIO(bs.pos, fmt.Sprintf("unexpected end of stream after %d/%d bytes", n, len(buf)), err)
	}
	return nil
}

// Write emits buf entirely, advancing the logical position by len(buf).
func (bs *BlockStream) Write(buf []byte) error {
	if bs.w == nil {
		return errIO(bs.pos, "stream not open for writing", nil)
	}
	n, err := bs.w.Write(buf)
	bs.pos += int64(n)
	if err != nil {
		return errIO(bs.pos, "short write", err)
	}
	if n != len(buf) {
		return errIO(bs.pos, "short write", io.ErrShortWrite)
	}
	return nil
}

// SkipForward advances the logical position by n bytes without handing
// the contents to the caller: on a readable stream the bytes are
// discarded, on a writable one fill bytes are emitted. It never seeks
// backward; n must be >= 0.
func (bs *BlockStream) SkipForward(n int64, fill byte) error {
	if n <= 0 {
		return nil
	}
	if bs.seekable && bs.r != nil {
		// a true seek still only moves forward here, but it avoids
		// materializing a (possibly large) fill buffer on read.
		newPos, err := bs.seeker.Seek(n, io.SeekCurrent)
		if err != nil {
			return errIO(bs.pos, "seek forward failed", err)
		}
		bs.pos = newPos
		return nil
	}
	const chunk = 4096
	buf := make([]byte, chunk)
	for i := range buf {
		buf[i] = fill
	}
	for n > 0 {
		step := n
		if step > chunk {
			step = chunk
		}
		if bs.w != nil {
			if err := bs.Write(buf[:step]); err != nil {
				return err
			}
		} else {
			if err := bs.Read(buf[:step]); err != nil {
				return err
			}
		}
		n -= step
	}
	return nil
}

// PadToBlock advances to the next 2880-byte boundary, reading (and
// discarding) fill bytes or writing them, depending on which side of the
// stream is active. fill should be spaceFill after a header and nullFill
// after a data section. It is a no-op if the stream is already aligned.
func (bs *BlockStream) PadToBlock(fill byte) error {
	n := padBlock(bs.pos)
	if n == 0 {
		return nil
	}
	return bs.SkipForward(n, fill)
}
