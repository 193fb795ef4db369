// Copyright 2015 The astrogo Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fitsio

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CardCollection is an ordered, keyword-indexed sequence of cards backing
// one HDU's header. It never stores an explicit END card: one is
// synthesized on Encode, and Sort always leaves it implicit as "last".
type CardCollection struct {
	cards []Card
}

// NewCardCollection builds a collection from an initial set of cards,
// applying the same duplicate/commentary/CONTINUE rules as Append.
func NewCardCollection(cards ...Card) (*CardCollection, error) {
	cc := &CardCollection{cards: make([]Card, 0, len(cards))}
	if err := cc.Append(cards...); err != nil {
		return nil, err
	}
	return cc, nil
}

// Len returns the number of cards, excluding the implicit END.
func (cc *CardCollection) Len() int { return len(cc.cards) }

// At returns the i-th card (not counting the implicit END). Panics if i is
// out of range, matching slice indexing semantics.
func (cc *CardCollection) At(i int) *Card { return &cc.cards[i] }

// asciiEqualFold reports whether a and b are the same FITS keyword under
// ASCII-only case folding. No locale affects the comparison, unlike
// strings.EqualFold, which case-folds outside plain ASCII too.
func asciiEqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'a' && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if cb >= 'a' && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Index returns the position of the first card named n, or -1. The
// comparison is ASCII case-insensitive, so a header card read as "bitpix"
// still matches a lookup for "BITPIX".
func (cc *CardCollection) Index(n string) int {
	for i := range cc.cards {
		if asciiEqualFold(cc.cards[i].Name, n) {
			return i
		}
	}
	return -1
}

// Has reports whether a card named n exists.
func (cc *CardCollection) Has(n string) bool { return cc.Index(n) >= 0 }

// Get returns the first card named n, or nil.
func (cc *CardCollection) Get(n string) *Card {
	if i := cc.Index(n); i >= 0 {
		return &cc.cards[i]
	}
	return nil
}

// Int returns the int64 value of the first card named n, or def if the
// card is absent or not an integer.
func (cc *CardCollection) Int(n string, def int64) int64 {
	if c := cc.Get(n); c != nil {
		if v, ok := c.Value.(int64); ok {
			return v
		}
	}
	return def
}

// Str returns the string value of the first card named n, or def.
func (cc *CardCollection) Str(n string, def string) string {
	if c := cc.Get(n); c != nil {
		if v, ok := c.Value.(string); ok {
			return v
		}
	}
	return def
}

// Bool returns the boolean value of the first card named n, or def.
func (cc *CardCollection) Bool(n string, def bool) bool {
	if c := cc.Get(n); c != nil {
		if v, ok := c.Value.(bool); ok {
			return v
		}
	}
	return def
}

// Keys returns the keyword of every non-commentary, non-END card, in
// collection order.
func (cc *CardCollection) Keys() []string {
	keys := make([]string, 0, len(cc.cards))
	for i := range cc.cards {
		if name := cc.cards[i].Name; !IsCommentary(name) && name != keywordEnd {
			keys = append(keys, name)
		}
	}
	return keys
}

// LongStringEnabled reports whether the OGIP long-string convention
// applies to this collection, signaled by the presence of LONGSTRN.
func (cc *CardCollection) LongStringEnabled() bool {
	return cc.Has("LONGSTRN")
}

// Clone returns a detached deep copy of cc: every Card is value-typed
// (Name, Value, Comment are all immutable scalars or strings), so copying
// the slice is sufficient. A clone is metadata only: there is no owning
// back-reference to a FitsFile to detach.
func (cc *CardCollection) Clone() (*CardCollection, error) {
	cards := make([]Card, len(cc.cards))
	copy(cards, cc.cards)
	return NewCardCollection(cards...)
}

// Append adds cards to the collection. Commentary cards (COMMENT, HISTORY,
// blank) are always appended, never treated as duplicates. A CONTINUE card
// folds into the string value of the immediately preceding card when
// LongStringEnabled and that value ends in '&'; otherwise it is kept as a
// literal CONTINUE card. A duplicate non-commentary keyword is
// InvalidHeader. An END card is silently absorbed: END is always
// synthesized at Encode time.
func (cc *CardCollection) Append(cards ...Card) error {
	for _, card := range cards {
		card.Value = normalizeValue(card.Value)

		switch {
		case card.Name == keywordContinue:
			if cc.LongStringEnabled() && len(cc.cards) > 0 {
				prev := &cc.cards[len(cc.cards)-1]
				if prevStr, ok := prev.Value.(string); ok && strings.HasSuffix(prevStr, "&") {
					cont, _ := card.Value.(string)
					prev.Value = strings.TrimSuffix(prevStr, "&") + cont
					continue
				}
			}
			cc.cards = append(cc.cards, card)

		case IsCommentary(card.Name):
			cc.cards = append(cc.cards, card)

		case card.Name == keywordEnd:
			continue

		case cc.Has(card.Name):
			return errInvalidHeader(-1, fmt.Sprintf("duplicate card %q", card.Name), nil)

		default:
			cc.cards = append(cc.cards, card)
		}
	}
	return nil
}

// Set replaces the value and comment of the first card named n, or
// appends a new card if none exists. Commentary keywords are always
// appended, matching Append.
func (cc *CardCollection) Set(n string, value interface{}, comment string) error {
	if IsCommentary(n) {
		cc.cards = append(cc.cards, Card{Name: n, Value: normalizeValue(value), Comment: comment})
		return nil
	}
	if i := cc.Index(n); i >= 0 {
		cc.cards[i].Value = normalizeValue(value)
		cc.cards[i].Comment = comment
		return nil
	}
	return cc.Append(Card{Name: n, Value: value, Comment: comment})
}

// normalizeValue widens integer, float, and complex value types into the
// canonical representation Card.Bytes understands (int64, float64,
// complex128), so that callers building cards by hand don't have to think
// about which sized type to use.
func normalizeValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case int:
		return int64(vv)
	case int8:
		return int64(vv)
	case int16:
		return int64(vv)
	case int32:
		return int64(vv)
	case uint:
		return int64(vv)
	case uint8:
		return int64(vv)
	case uint16:
		return int64(vv)
	case uint32:
		return int64(vv)
	case uint64:
		return int64(vv)
	case float32:
		return float64(vv)
	case complex64:
		return complex128(vv)
	default:
		return v
	}
}

// cardPriority ranks a keyword for the canonical mandatory-first sort
// order: primary (SIMPLE/BITPIX/NAXIS/NAXISn/EXTEND) and
// extension (XTENSION/BITPIX/NAXIS/NAXIS1/NAXIS2/PCOUNT/GCOUNT/TFIELDS/
// TFORMn) mandatory keywords each get a fixed rank; everything else
// shares one rank, so sort.SliceStable preserves their relative input
// order. seq breaks ties within the NAXISn/TFORMn families by column
// number.
func cardPriority(name string) (rank, seq int) {
	switch name {
	case "SIMPLE", "XTENSION":
		return 0, 0
	case "BITPIX":
		return 10, 0
	case "NAXIS":
		return 20, 0
	case "EXTEND":
		return 40, 0
	case "PCOUNT":
		return 50, 0
	case "GCOUNT":
		return 60, 0
	case "TFIELDS":
		return 70, 0
	}
	if n, ok := numericSuffix(name, "NAXIS"); ok {
		return 30, n
	}
	if n, ok := numericSuffix(name, "TFORM"); ok {
		return 80, n
	}
	return 1000, 0
}

// numericSuffix reports whether name is prefix followed by a decimal
// integer (e.g. "NAXIS2" under prefix "NAXIS"), and that integer.
func numericSuffix(name, prefix string) (int, bool) {
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	suffix := name[len(prefix):]
	if suffix == "" {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Sort reorders the collection into canonical form: mandatory keywords
// first in FITS-prescribed order, everything else keeping its relative
// insertion order, commentary cards interleaved wherever they fall.
func (cc *CardCollection) Sort() {
	idx := make([]int, len(cc.cards))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, sa := cardPriority(cc.cards[idx[a]].Name)
		rb, sb := cardPriority(cc.cards[idx[b]].Name)
		if ra != rb {
			return ra < rb
		}
		return sa < sb
	})
	sorted := make([]Card, len(cc.cards))
	for i, j := range idx {
		sorted[i] = cc.cards[j]
	}
	cc.cards = sorted
}

// Encode serializes the collection to header-block bytes: every card in
// order, long string values split across CONTINUE cards when
// LongStringEnabled, followed by the synthesized END card. The caller is
// responsible for padding the result to a block boundary.
func (cc *CardCollection) Encode() ([]byte, error) {
	var buf bytes.Buffer
	for i := range cc.cards {
		c := &cc.cards[i]
		line, err := cc.encodeCard(c)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
	}
	end, err := (&Card{Name: keywordEnd}).Bytes()
	if err != nil {
		return nil, err
	}
	buf.Write(end)
	return buf.Bytes(), nil
}

func (cc *CardCollection) encodeCard(c *Card) ([]byte, error) {
	if str, ok := c.Value.(string); ok && cc.LongStringEnabled() {
		if split, ok := splitLongString(c, str); ok {
			return split, nil
		}
	}
	return c.Bytes()
}

// splitLongString renders c, whose Value is str, across an initial card
// and as many CONTINUE cards as needed under the OGIP long-string
// convention. ok is false when str is short enough that no splitting is
// needed, in which case the caller should fall through to Card.Bytes
// (which also places the comment).
func splitLongString(c *Card, str string) (out []byte, ok bool) {
	prefixLen := 10
	if len(c.Name) > 8 {
		prefixLen = len(hierarchPrefix) + len(c.Name) + 2
	}
	capacity := cardSize - prefixLen - 2 // 2 quote chars
	if len(str) <= capacity {
		return nil, false
	}

	var buf bytes.Buffer
	head := str[:capacity-1] + "&"
	line, err := (&Card{Name: c.Name, Value: head}).Bytes()
	if err != nil {
		return nil, false
	}
	buf.Write(line)

	const contCapacity = cardSize - 8 - 2 // CONTINUE keyword, no "= "
	rest := str[capacity-1:]
	for len(rest) > 0 {
		end := contCapacity - 1
		last := end >= len(rest)
		if last {
			end = len(rest)
		}
		piece := rest[:end]
		if !last {
			piece += "&"
		}
		cline, err := (&Card{Name: keywordContinue, Value: piece}).Bytes()
		if err != nil {
			return nil, false
		}
		buf.Write(cline)
		rest = rest[end:]
	}
	return buf.Bytes(), true
}
