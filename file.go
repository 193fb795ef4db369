// Copyright 2015 The astrogo Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fitsio

import (
	"io"
	"os"
)

// Mode selects whether a FitsFile drives its BlockStream on the read or
// the write side. A FitsFile never does both: Advance is read-only,
// Append/WriteStride are write-only.
type Mode int

const (
	ReadMode Mode = iota
	WriteMode
)

// FitsFile owns one BlockStream and drives a sequence of HDUs through
// it, one at a time, in strict ascending order. FITS is always
// big-endian on the wire, so
// every HDU this type produces or consumes is encoded/decoded with
// WireCodec; no caller-selectable endianness exists because no other
// byte order is a legal FITS file.
type FitsFile struct {
	bs   *BlockStream
	mode Mode

	closer    io.Closer
	ownsClose bool
	closed    bool

	hdus    []*HDU
	current *HDU

	prototypes []*HDU
	protoIdx   int
}

// Open opens src for the given mode. src is either a path (string), in
// which case the file is opened/created and owned by the returned
// FitsFile (closed by Close), or an io.Reader (ReadMode) / io.Writer
// (WriteMode) supplied by the caller, which Close never closes.
func Open(src interface{}, mode Mode) (*FitsFile, error) {
	switch mode {
	case ReadMode:
		switch v := src.(type) {
		case string:
			r, err := os.Open(v)
			if err != nil {
				return nil, errIO(0, "could not open "+v, err)
			}
			return newFitsFile(r, mode, r, true)
		case io.Reader:
			return newFitsFile(v, mode, nil, false)
		default:
			return nil, errInvalidState("Open in ReadMode needs a path string or an io.Reader")
		}
	case WriteMode:
		switch v := src.(type) {
		case string:
			w, err := os.Create(v)
			if err != nil {
				return nil, errIO(0, "could not create "+v, err)
			}
			return newFitsFile(w, mode, w, true)
		case io.Writer:
			return newFitsFile(v, mode, nil, false)
		default:
			return nil, errInvalidState("Open in WriteMode needs a path string or an io.Writer")
		}
	default:
		return nil, errInvalidState("unknown FitsFile mode")
	}
}

func newFitsFile(rw interface{}, mode Mode, closer io.Closer, owns bool) (*FitsFile, error) {
	bs, err := NewBlockStream(rw, mode)
	if err != nil {
		return nil, err
	}
	return &FitsFile{bs: bs, mode: mode, closer: closer, ownsClose: owns}, nil
}

// Mode reports whether this FitsFile is reading or writing.
func (f *FitsFile) Mode() Mode { return f.mode }

// HDUs returns every HDU produced (read mode) or appended (write mode) so
// far, in stream order.
func (f *FitsFile) HDUs() []*HDU { return f.hdus }

// Current returns the HDU most recently produced by Advance or accepted
// by Append, or nil before the first one.
func (f *FitsFile) Current() *HDU { return f.current }

// UsePrototype pre-populates the next HDU Advance will use, instead of
// auto-dispatching on SIMPLE/XTENSION. This supports user-driven type
// selection: the prototype's Kind decides which stride strategy
// Advance computes, regardless of what the header on disk actually says.
// Prototypes are consumed in the order supplied, oldest first.
func (f *FitsFile) UsePrototype(h *HDU) {
	f.prototypes = append(f.prototypes, h)
}

// Advance reads the next HDU: if the previously returned HDU has not
// reached Done, it is first driven there with readToFinish.
// It then attempts to read a header at the stream's current (already
// block-aligned) position; a clean end-of-stream there returns (nil, nil)
// -- the normal iteration terminator, not an error. Any other
// failure, including a truncated header, is returned as an error.
func (f *FitsFile) Advance() (*HDU, error) {
	if f.mode != ReadMode {
		return nil, errInvalidState("Advance called on a FitsFile not opened in ReadMode")
	}
	if f.current != nil && !f.current.Done() {
		if err := f.current.readToFinish(f.bs); err != nil {
			return nil, err
		}
	}

	headerPos := f.bs.Pos()
	cc, ok, err := readNextHeader(f.bs)
	if err != nil {
		return nil, err
	}
	if !ok {
		f.current = nil
		return nil, nil
	}

	var h *HDU
	if f.protoIdx < len(f.prototypes) {
		h = f.prototypes[f.protoIdx]
		f.protoIdx++
	} else {
		kind, derr := dispatchKind(cc)
		if derr != nil {
			return nil, derr
		}
		h = newHDU(kind, nil)
	}

	if err := h.readHeader(f.bs, cc, headerPos); err != nil {
		return nil, err
	}
	f.hdus = append(f.hdus, h)
	f.current = h
	return h, nil
}

// Append writes h's header (sorting its cards into canonical order) and
// makes it the current HDU for subsequent WriteStride calls. The
// previous HDU, if any, must already be Done: strides must be written
// and the data pad emitted before the next HDU's header can start.
func (f *FitsFile) Append(h *HDU) error {
	if f.mode != WriteMode {
		return errInvalidState("Append called on a FitsFile not opened in WriteMode")
	}
	if f.current != nil && !f.current.Done() {
		return errInvalidState("previous HDU is not finished: write its remaining strides first")
	}
	if err := h.writeHeader(f.bs); err != nil {
		return err
	}
	f.hdus = append(f.hdus, h)
	f.current = h
	return nil
}

// ReadStride reads one stride of the current HDU. See HDU's lifecycle
// for the Header -> Strides -> Done transitions this drives.
func (f *FitsFile) ReadStride() ([]byte, error) {
	if f.current == nil {
		return nil, errInvalidState("ReadStride called with no current HDU")
	}
	return f.current.readStride(f.bs)
}

// WriteStride writes one stride of the current HDU; data must be exactly
// Current().StrideLength() bytes.
func (f *FitsFile) WriteStride(data []byte) error {
	if f.current == nil {
		return errInvalidState("WriteStride called with no current HDU")
	}
	return f.current.writeStride(f.bs, data)
}

// ReadToFinish skips any remaining strides and the trailing data pad of
// the current HDU, driving it straight to Done. It is a no-op if the
// current HDU is already Done.
func (f *FitsFile) ReadToFinish() error {
	if f.current == nil {
		return nil
	}
	return f.current.readToFinish(f.bs)
}

// Close is idempotent. In WriteMode it pads the stream position up to
// the next block boundary (so a caller who stops mid-HDU still leaves a
// block-aligned file) and flushes the underlying writer if it exposes a
// Flush method; it then closes the underlying stream only if FitsFile
// opened it itself (a path was passed to Open, not a caller-supplied
// stream) -- externally supplied streams are never closed.
func (f *FitsFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	var err error
	if f.mode == WriteMode && f.bs.w != nil && f.bs.Pos()%blockSize != 0 {
		err = f.bs.PadToBlock(nullFill)
	}
	if flusher, ok := f.bs.w.(interface{ Flush() error }); ok {
		if ferr := flusher.Flush(); ferr != nil && err == nil {
			err = ferr
		}
	}
	if f.ownsClose && f.closer != nil {
		if cerr := f.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// CopyHDU copies in.Current() -- normally the HDU most recently returned
// by in.Advance() -- to out, streaming each data stride straight through
// rather than materializing the whole payload.
func CopyHDU(out *FitsFile, in *FitsFile) error {
	src := in.Current()
	if src == nil {
		return errInvalidState("CopyHDU called with no current HDU on the source file")
	}
	cc, err := src.Header().Clone()
	if err != nil {
		return err
	}
	dst := newHDU(src.Kind(), cc)
	if err := out.Append(dst); err != nil {
		return err
	}
	for i := int64(0); i < src.TotalStrides(); i++ {
		stride, err := in.ReadStride()
		if err != nil {
			return err
		}
		if err := out.WriteStride(stride); err != nil {
			return err
		}
	}
	return nil
}
