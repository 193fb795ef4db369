// Copyright 2015 The astrogo Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fitsio

import (
	"fmt"
	"io"
	"strings"
)

// HDUKind identifies the three concrete HDU shapes this library
// understands. ASCII table extensions and any other XTENSION value are
// not a fourth kind: they surface as ErrUnsupported at dispatch time.
type HDUKind int

const (
	PrimaryImage HDUKind = iota
	ImageExtension
	BinaryTable
)

func (k HDUKind) String() string {
	switch k {
	case PrimaryImage:
		return "primary-image"
	case ImageExtension:
		return "image-extension"
	case BinaryTable:
		return "binary-table"
	default:
		return "unknown"
	}
}

// lifecycleState is the HDU's position in the Start -> Header -> Strides
// -> Done state machine.
type lifecycleState int

const (
	stateStart lifecycleState = iota
	stateHeader
	stateStrides
	stateDone
)

// maxHeaderCards bounds how many cards a header may contain before its
// missing END is treated as a corrupt file rather than an unbounded read.
const maxHeaderCards = 10000

// HDU is the shared state machine for all three HDU kinds: header I/O,
// block padding, stride iteration, and the mandatory keyword accessors.
// Rather than a class per kind, HDU is a tagged variant: Kind selects a
// small strategy (stridesFor, plus image.go/table.go's pixel/row codecs
// and, for tables, the parsed Columns) instead of a distinct Go type.
type HDU struct {
	kind  HDUKind
	cards *CardCollection

	headerPosition int64
	dataPosition   int64

	strideLength  int64
	totalStrides  int64
	strideCounter int64

	// columns is populated only for BinaryTable HDUs, parsed from
	// TFIELDS/TTYPEn/TFORMn/... once the header is known.
	columns []Column

	state lifecycleState
}

// newHDU constructs an HDU of the given kind around cards, in the Start
// state. The write-side constructors (NewPrimaryImageHDU,
// NewImageExtensionHDU, NewBinaryTableHDU) pass a finished card
// collection; the read side (Advance, prototypes) passes nil and lets
// readHeader fill the cards in.
func newHDU(kind HDUKind, cards *CardCollection) *HDU {
	return &HDU{kind: kind, cards: cards, state: stateStart}
}

// Kind returns which of the three supported HDU shapes this is.
func (h *HDU) Kind() HDUKind { return h.kind }

// Header returns the card collection backing this HDU. SetCard and
// AppendCard refuse changes once the HDU has left the Start state;
// changes made directly through the returned collection are not checked
// against the lifecycle state.
func (h *HDU) Header() *CardCollection { return h.cards }

// HeaderPosition and DataPosition are the logical byte offsets, always
// multiples of 2880, at which this HDU's header and data sections begin.
func (h *HDU) HeaderPosition() int64 { return h.headerPosition }
func (h *HDU) DataPosition() int64   { return h.dataPosition }

// StrideLength is the byte size of one stride (one image plane-row or one
// table row). TotalStrides is how many strides the data section holds.
// StrideCounter is how many have been consumed or emitted so far.
func (h *HDU) StrideLength() int64  { return h.strideLength }
func (h *HDU) TotalStrides() int64  { return h.totalStrides }
func (h *HDU) StrideCounter() int64 { return h.strideCounter }

// Done reports whether this HDU has reached its terminal lifecycle state.
func (h *HDU) Done() bool { return h.state == stateDone }

// Name returns EXTNAME if present, else "PRIMARY" for the primary HDU and
// "" for an unnamed extension.
func (h *HDU) Name() string {
	if n := h.cards.Str("EXTNAME", ""); n != "" {
		return n
	}
	if h.kind == PrimaryImage {
		return "PRIMARY"
	}
	return ""
}

// Version returns EXTVER, defaulting to 1 when absent.
func (h *HDU) Version() int64 { return h.cards.Int("EXTVER", 1) }

// Bitpix, Naxis, NaxisN and Extend read the corresponding mandatory
// keywords.
func (h *HDU) Bitpix() int64      { return h.cards.Int("BITPIX", 0) }
func (h *HDU) Naxis() int64       { return h.cards.Int("NAXIS", 0) }
func (h *HDU) NaxisN(i int) int64 { return h.cards.Int(fmt.Sprintf("NAXIS%d", i), 0) }
func (h *HDU) Extend() bool       { return h.cards.Bool("EXTEND", false) }

// AppendCard and SetCard mutate the header; both fail with InvalidState
// once the header has left the Start state (invariant: "no mutation after
// Start").
func (h *HDU) AppendCard(c Card) error {
	if h.state != stateStart {
		return errInvalidState("cannot append a card once the header has been read or written")
	}
	return h.cards.Append(c)
}

func (h *HDU) SetCard(name string, value interface{}, comment string) error {
	if h.state != stateStart {
		return errInvalidState("cannot set a card once the header has been read or written")
	}
	return h.cards.Set(name, value, comment)
}

// dispatchKind inspects a freshly parsed card collection and determines
// which HDU kind it describes: SIMPLE marks a primary image;
// otherwise XTENSION selects IMAGE or BINTABLE. ASCII TABLE and any other
// extension type are Unsupported, the same bucket unknown extensions fall
// into.
func dispatchKind(cc *CardCollection) (HDUKind, error) {
	if cc.Has("SIMPLE") {
		return PrimaryImage, nil
	}
	xt := strings.TrimSpace(cc.Str("XTENSION", ""))
	switch xt {
	case "IMAGE":
		return ImageExtension, nil
	case "BINTABLE":
		return BinaryTable, nil
	case "TABLE":
		return 0, errUnsupported("ASCII table extensions (XTENSION=TABLE) are not supported")
	default:
		return 0, errUnsupported(fmt.Sprintf("unknown extension type %q", xt))
	}
}

// stridesFor computes the stride geometry for kind from its (already
// populated) card collection, dispatching to the image or table strategy.
func stridesFor(kind HDUKind, cc *CardCollection) (strideLength, totalStrides int64, err error) {
	switch kind {
	case PrimaryImage, ImageExtension:
		return imageStrides(cc)
	case BinaryTable:
		return tableStrides(cc)
	default:
		return 0, 0, errUnsupported(fmt.Sprintf("unknown HDU kind %v", kind))
	}
}

// readNextHeader attempts to read cards for the next HDU starting at the
// stream's current (block-aligned) position. ok is false with a nil error
// only at a clean end-of-stream, the normal advance() terminator; any
// other failure is returned as an error, including a truncated header.
func readNextHeader(bs *BlockStream) (cc *CardCollection, ok bool, err error) {
	cc, _ = NewCardCollection()
	buf := make([]byte, cardSize)

	for i := 0; i < maxHeaderCards; i++ {
		offset := bs.Pos()
		n, rerr := bs.TryReadFull(buf)
		if rerr != nil {
			if i == 0 && n == 0 && rerr == io.EOF {
				return nil, false, nil
			}
			return nil, true, errIO(bs.Pos(), fmt.Sprintf("unexpected end of stream after %d/%d bytes", n, len(buf)), rerr)
		}

		card, perr := ParseCard(offset, buf)
		if perr != nil {
			return nil, true, perr
		}
		if card.Name == keywordEnd {
			return cc, true, nil
		}
		if aerr := cc.Append(*card); aerr != nil {
			return nil, true, aerr
		}
	}
	return nil, true, errInvalidHeader(bs.Pos(), "no END card within the maximum header size", nil)
}

// readHeader drives the Start -> Header transition on the read side: it
// assumes the card collection has already been parsed and the kind
// dispatched (both done by FitsFile.Advance, which needs the cards before
// it can even construct the right HDU wrapper), pads the header to a
// block boundary, and computes the stride geometry.
func (h *HDU) readHeader(bs *BlockStream, cc *CardCollection, headerPosition int64) error {
	if h.state != stateStart {
		return errInvalidState("readHeader called out of order")
	}
	h.headerPosition = headerPosition
	h.cards = cc
	if err := bs.PadToBlock(spaceFill); err != nil {
		return err
	}
	h.dataPosition = bs.Pos()

	sl, ts, err := stridesFor(h.kind, h.cards)
	if err != nil {
		return err
	}
	h.strideLength = sl
	h.totalStrides = ts
	if h.kind == BinaryTable {
		cols, cerr := parseColumns(h.cards)
		if cerr != nil {
			return cerr
		}
		h.columns = cols
	}
	h.state = stateHeader
	if h.totalStrides == 0 {
		// no data section: the HDU is terminal as soon as its header is.
		h.state = stateDone
	}
	return nil
}

// writeHeader drives the Start -> Header transition on the write side:
// sorts the cards into canonical order, encodes and emits them, pads, and
// computes the stride geometry.
func (h *HDU) writeHeader(bs *BlockStream) error {
	if h.state != stateStart {
		return errInvalidState("writeHeader called out of order")
	}
	h.headerPosition = bs.Pos()
	if h.headerPosition%blockSize != 0 {
		return errInvalidState("writeHeader called off a block boundary")
	}

	h.cards.Sort()
	data, err := h.cards.Encode()
	if err != nil {
		return err
	}
	if err := bs.Write(data); err != nil {
		return err
	}
	if err := bs.PadToBlock(spaceFill); err != nil {
		return err
	}
	h.dataPosition = bs.Pos()

	sl, ts, err := stridesFor(h.kind, h.cards)
	if err != nil {
		return err
	}
	h.strideLength = sl
	h.totalStrides = ts
	if h.kind == BinaryTable {
		cols, cerr := parseColumns(h.cards)
		if cerr != nil {
			return cerr
		}
		h.columns = cols
	}
	h.state = stateHeader
	if h.totalStrides == 0 {
		h.state = stateDone
	}
	return nil
}

// readStride consumes exactly one stride, transitioning Header -> Strides
// on the first call and Strides -> Done (with the trailing data pad) on
// the call that exhausts TotalStrides.
func (h *HDU) readStride(bs *BlockStream) ([]byte, error) {
	switch h.state {
	case stateStart:
		return nil, errInvalidState("readStride called before the header was read")
	case stateDone:
		return nil, errInvalidState("readStride called on a finished HDU")
	}
	if h.strideCounter >= h.totalStrides {
		return nil, errInvalidState("readStride called past totalStrides")
	}

	buf := make([]byte, h.strideLength)
	if err := bs.Read(buf); err != nil {
		return nil, err
	}
	h.strideCounter++
	h.state = stateStrides

	if h.strideCounter == h.totalStrides {
		if err := bs.PadToBlock(nullFill); err != nil {
			return nil, err
		}
		h.state = stateDone
	}
	return buf, nil
}

// writeStride emits exactly one stride, with the same transitions as
// readStride.
func (h *HDU) writeStride(bs *BlockStream, data []byte) error {
	switch h.state {
	case stateStart:
		return errInvalidState("writeStride called before the header was written")
	case stateDone:
		return errInvalidState("writeStride called on a finished HDU")
	}
	if int64(len(data)) != h.strideLength {
		return errInvalidValue(-1, fmt.Sprintf("stride is %d bytes, want %d", len(data), h.strideLength), nil)
	}
	if h.strideCounter >= h.totalStrides {
		return errInvalidState("writeStride called past totalStrides")
	}

	if err := bs.Write(data); err != nil {
		return err
	}
	h.strideCounter++
	h.state = stateStrides

	if h.strideCounter == h.totalStrides {
		if err := bs.PadToBlock(nullFill); err != nil {
			return err
		}
		h.state = stateDone
	}
	return nil
}

// readToFinish skips any remaining strides and the trailing data pad,
// driving the HDU straight to Done. It is a no-op if already Done, and
// safe to call right after readHeader when totalStrides is 0.
func (h *HDU) readToFinish(bs *BlockStream) error {
	if h.state == stateDone {
		return nil
	}
	if h.state == stateStart {
		return errInvalidState("readToFinish called before the header was read")
	}

	remaining := h.totalStrides - h.strideCounter
	if remaining > 0 {
		if err := bs.SkipForward(remaining*h.strideLength, nullFill); err != nil {
			return err
		}
		h.strideCounter = h.totalStrides
	}
	if err := bs.PadToBlock(nullFill); err != nil {
		return err
	}
	h.state = stateDone
	return nil
}
