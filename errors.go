// Copyright 2015 The astrogo Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fitsio

import (
	"errors"
	"fmt"
)

// Kind discriminates the category of error a FITS operation failed with.
type Kind int

const (
	// KindIO signals that the underlying stream failed or ended
	// unexpectedly in the middle of a card or a stride.
	KindIO Kind = iota

	// KindInvalidCard signals a malformed 80-byte header card.
	KindInvalidCard

	// KindInvalidHeader signals a missing mandatory keyword, contradictory
	// keywords, or a header with no END card within sane bounds.
	KindInvalidHeader

	// KindInvalidState signals an API call made out of HDU lifecycle order.
	KindInvalidState

	// KindUnsupported signals a feature this library does not implement:
	// variable-length arrays, ASCII tables, groups, or an unknown
	// extension type.
	KindUnsupported

	// KindInvalidValue signals a numeric parse failure in a card value.
	KindInvalidValue
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindInvalidCard:
		return "invalid-card"
	case KindInvalidHeader:
		return "invalid-header"
	case KindInvalidState:
		return "invalid-state"
	case KindUnsupported:
		return "unsupported"
	case KindInvalidValue:
		return "invalid-value"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every failing operation in this
// package. Offset is the byte offset into the logical stream at which the
// failure was detected, or -1 when no offset applies.
type Error struct {
	Kind   Kind
	Offset int64
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Offset >= 0 {
		if e.Err != nil {
			return fmt.Sprintf("fitsio: %s (offset=%d): %v", e.Msg, e.Offset, e.Err)
		}
		return fmt.Sprintf("fitsio: %s (offset=%d)", e.Msg, e.Offset)
	}
	if e.Err != nil {
		return fmt.Sprintf("fitsio: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("fitsio: %s", e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Kind, so that
// callers can write errors.Is(err, fitsio.ErrUnsupported) against the
// sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels usable with errors.Is to test the Kind of a returned error
// without inspecting Offset or Msg.
var (
	ErrIO            = &Error{Kind: KindIO, Offset: -1}
	ErrInvalidCard   = &Error{Kind: KindInvalidCard, Offset: -1}
	ErrInvalidHeader = &Error{Kind: KindInvalidHeader, Offset: -1}
	ErrInvalidState  = &Error{Kind: KindInvalidState, Offset: -1}
	ErrUnsupported   = &Error{Kind: KindUnsupported, Offset: -1}
	ErrInvalidValue  = &Error{Kind: KindInvalidValue, Offset: -1}
)

func errIO(offset int64, msg string, cause error) error {
	return &Error{Kind: KindIO, Offset: offset, Msg: msg, Err: cause}
}

func errInvalidCard(offset int64, msg string, cause error) error {
	return &Error{Kind: KindInvalidCard, Offset: offset, Msg: msg, Err: cause}
}

func errInvalidHeader(offset int64, msg string, cause error) error {
	return &Error{Kind: KindInvalidHeader, Offset: offset, Msg: msg, Err: cause}
}

func errInvalidState(msg string) error {
	return &Error{Kind: KindInvalidState, Offset: -1, Msg: msg}
}

func errUnsupported(msg string) error {
	return &Error{Kind: KindUnsupported, Offset: -1, Msg: msg}
}

func errInvalidValue(offset int64, msg string, cause error) error {
	return &Error{Kind: KindInvalidValue, Offset: offset, Msg: msg, Err: cause}
}
