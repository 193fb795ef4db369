// Copyright 2015 The astrogo Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fitsio

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Reserved keywords with special serialization rules.
const (
	keywordEnd      = "END"
	keywordComment  = "COMMENT"
	keywordHistory  = "HISTORY"
	keywordContinue = "CONTINUE"
	hierarchPrefix  = "HIERARCH "
)

// Card is a single 80-byte FITS header record: a keyword, an optional
// typed value, and an optional trailing comment. Value is one of nil,
// bool, int64, float64, complex128, or string.
type Card struct {
	Name    string
	Value   interface{}
	Comment string
}

// IsCommentary reports whether name takes free-text rather than a typed
// value: COMMENT, HISTORY, and blank keyword cards.
func IsCommentary(name string) bool {
	switch name {
	case "", keywordComment, keywordHistory:
		return true
	}
	return false
}

// ParseCard decodes one 80-byte header line. offset is the line's byte
// position in the stream, used only to annotate a returned error.
func ParseCard(offset int64, line []byte) (*Card, error) {
	if len(line) != cardSize {
		return nil, errInvalidCard(offset, fmt.Sprintf("card is %d bytes, want %d", len(line), cardSize), nil)
	}

	if bytes.HasPrefix(line, []byte(hierarchPrefix)) {
		eq := bytes.IndexByte(line, '=')
		if eq < 0 {
			return &Card{Comment: strings.TrimRight(string(line[len(hierarchPrefix):]), " ")}, nil
		}
		name := strings.TrimSpace(string(line[len(hierarchPrefix):eq]))
		return parseValueField(offset, name, line[eq+1:])
	}

	keyword := strings.TrimRight(string(line[:8]), " ")

	switch keyword {
	case keywordEnd:
		return &Card{Name: keywordEnd}, nil
	case keywordComment, keywordHistory, "":
		return &Card{Name: keyword, Comment: strings.TrimRight(string(line[8:]), " ")}, nil
	case keywordContinue:
		str, _, err := parseQuotedString(offset, strings.TrimLeft(string(line[8:]), " "))
		if err != nil {
			return nil, err
		}
		return &Card{Name: keywordContinue, Value: str}, nil
	}

	if len(line) < 10 || string(line[8:10]) != "= " {
		// columns 9-80 without "= " in 9-10: the whole remainder is free
		// text, same as a commentary card under an arbitrary keyword.
		return &Card{Name: keyword, Comment: strings.TrimRight(string(line[8:]), " ")}, nil
	}

	return parseValueField(offset, keyword, line[10:])
}

// parseValueField parses the value+comment portion of a card (everything
// after the "kw= " prefix) for a non-commentary, non-END keyword.
func parseValueField(offset int64, name string, field []byte) (*Card, error) {
	i := 0
	for i < len(field) && field[i] == ' ' {
		i++
	}
	if i == len(field) {
		// absence of a value string is legal: the keyword is present but
		// its value is undefined.
		return &Card{Name: name}, nil
	}

	card := &Card{Name: name}

	switch field[i] {
	case '\'':
		str, n, err := parseQuotedString(offset, string(field[i:]))
		if err != nil {
			return nil, err
		}
		card.Value = str
		i += n

	case '(':
		end := bytes.IndexByte(field[i:], ')')
		if end < 0 {
			return nil, errInvalidCard(offset, "complex value missing closing ')'", nil)
		}
		var re, im float64
		tok := strings.TrimSpace(string(field[i : i+end+1]))
		if _, err := fmt.Sscanf(tok, "(%f,%f)", &re, &im); err != nil {
			return nil, errInvalidCard(offset, fmt.Sprintf("malformed complex value %q", tok), err)
		}
		card.Value = complex(re, im)
		i += end + 1

	default:
		var tok string
		if end := bytes.Index(field[i:], []byte(" /")); end < 0 {
			tok = strings.TrimRight(string(field[i:]), " ")
			i = len(field)
		} else {
			tok = string(field[i : i+end])
			i += end
		}
		v, err := parseScalarToken(offset, tok)
		if err != nil {
			return nil, err
		}
		card.Value = v
	}

	if i < len(field) {
		if slash := bytes.IndexByte(field[i:], '/'); slash >= 0 {
			card.Comment = strings.TrimSpace(string(field[i+slash+1:]))
		}
	}
	return card, nil
}

// parseScalarToken parses a boolean, integer, or floating-point token (the
// default branch of the value grammar: anything not a quoted string or a
// complex pair).
func parseScalarToken(offset int64, tok string) (interface{}, error) {
	switch tok {
	case "T":
		return true, nil
	case "F":
		return false, nil
	case "":
		return nil, errInvalidCard(offset, "empty value token", nil)
	}

	if strings.ContainsAny(tok, ".DE") {
		norm := strings.Replace(tok, "D", "E", 1)
		f, err := strconv.ParseFloat(norm, 64)
		if err != nil {
			return nil, errInvalidValue(offset, fmt.Sprintf("malformed float value %q", tok), err)
		}
		return f, nil
	}

	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return nil, errInvalidValue(offset, fmt.Sprintf("malformed integer value %q", tok), err)
	}
	return n, nil
}

// parseQuotedString runs the 3-state quote-escape parser over s (which
// must begin with a quote): state 0 awaits the opening quote, state 1
// accumulates characters, state 2 has just seen a quote and decides
// whether it closes the string or is an escaped '' standing for a literal
// quote. Returns the unescaped, right-trimmed string and the index of the
// byte following the closing quote.
func parseQuotedString(offset int64, s string) (string, int, error) {
	var buf bytes.Buffer
	state := 0
	for i, ch := range s {
		quote := ch == '\''
		switch state {
		case 0:
			if !quote {
				return "", 0, errInvalidCard(offset, fmt.Sprintf("string value does not start with a quote (%q)", s), nil)
			}
			state = 1
		case 1:
			if quote {
				state = 2
			} else {
				buf.WriteRune(ch)
			}
		case 2:
			if quote {
				buf.WriteRune(ch)
				state = 1
			} else {
				return strings.TrimRight(buf.String(), " "), i, nil
			}
		}
	}
	if state == 2 {
		return strings.TrimRight(buf.String(), " "), len(s), nil
	}
	return "", 0, errInvalidCard(offset, fmt.Sprintf("unterminated quoted string (%q)", s), nil)
}

// Bytes serializes the card to exactly 80 bytes. It does not perform OGIP
// CONTINUE splitting for long strings: CardCollection does that, since
// whether splitting applies depends on collection-level state (the
// presence of LONGSTRN).
func (c *Card) Bytes() ([]byte, error) {
	if err := verifyCardName(c.Name); err != nil {
		return nil, err
	}

	switch c.Name {
	case keywordEnd:
		return padCard([]byte(keywordEnd))
	case "", keywordComment, keywordHistory:
		return padCard([]byte(fmt.Sprintf("%-8s%s", c.Name, c.Comment)))
	case keywordContinue:
		str, ok := c.Value.(string)
		if !ok {
			return nil, errInvalidCard(-1, "CONTINUE card requires a string value", nil)
		}
		return padCard([]byte(fmt.Sprintf("%-8s%s", keywordContinue, quoteString(str))))
	}

	var buf bytes.Buffer
	if len(c.Name) <= 8 {
		fmt.Fprintf(&buf, "%-8s= ", c.Name)
	} else {
		key := c.Name
		if !strings.HasPrefix(key, hierarchPrefix) {
			key = hierarchPrefix + key
		}
		fmt.Fprintf(&buf, "%s= ", key)
	}

	if c.Value == nil {
		if c.Comment != "" {
			fmt.Fprintf(&buf, " / %s", c.Comment)
		}
		return padCard(buf.Bytes())
	}

	valstr, err := formatCardValue(c.Value)
	if err != nil {
		return nil, err
	}
	buf.WriteString(valstr)

	if c.Comment != "" {
		rem := cardSize - buf.Len()
		comment := " / " + c.Comment
		if len(comment) > rem {
			return nil, errInvalidCard(-1, fmt.Sprintf("value+comment exceeds card width for %q", c.Name), nil)
		}
		buf.WriteString(comment)
	}

	return padCard(buf.Bytes())
}

// formatCardValue renders a typed card value right-justified to FITS'
// conventional column width (20 for scalars), quoting strings per the
// '' escape rule.
func formatCardValue(v interface{}) (string, error) {
	switch vv := v.(type) {
	case bool:
		s := "F"
		if vv {
			s = "T"
		}
		return fmt.Sprintf("%20s", s), nil

	case int64:
		return fmt.Sprintf("%20d", vv), nil

	case int:
		return fmt.Sprintf("%20d", vv), nil

	case float64:
		s := strconv.FormatFloat(vv, 'G', 17, 64)
		if !strings.ContainsAny(s, ".E") {
			s += "."
		}
		return fmt.Sprintf("%20s", s), nil

	case complex128:
		return fmt.Sprintf("(%16.9E,%16.9E)", real(vv), imag(vv)), nil

	case string:
		q := quoteString(vv)
		if len(q) < 20 {
			q = fmt.Sprintf("%-20s", q)
		}
		return q, nil

	default:
		return "", errInvalidCard(-1, fmt.Sprintf("unsupported card value type %T", v), nil)
	}
}

// quoteString wraps s in single quotes, doubling embedded quotes, and pads
// the content to the FITS minimum string length of 8.
func quoteString(s string) string {
	escaped := strings.Replace(s, "'", "''", -1)
	if len(escaped) < 8 {
		escaped = fmt.Sprintf("%-8s", escaped)
	}
	return "'" + escaped + "'"
}

// padCard right-pads b with spaces to exactly 80 bytes.
func padCard(b []byte) ([]byte, error) {
	if len(b) > cardSize {
		return nil, errInvalidCard(-1, fmt.Sprintf("serialized card is %d bytes, want <=%d", len(b), cardSize), nil)
	}
	out := make([]byte, cardSize)
	copy(out, b)
	for i := len(b); i < cardSize; i++ {
		out[i] = ' '
	}
	return out, nil
}

// verifyCardName checks name conforms to the FITS keyword grammar: capital
// letters, digits, '-' or '_', with no embedded spaces before a trailing
// padding run. HIERARCH keywords (name longer than 8 chars) are exempt
// from the 8-char cap but still may not contain '='.
func verifyCardName(name string) error {
	if len(name) > 8 && strings.Contains(name, "=") {
		return errInvalidCard(-1, fmt.Sprintf("keyword contains an equal sign: %q", name), nil)
	}
	if len(name) <= 8 {
		spaces := false
		for idx, c := range name {
			switch {
			case (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_':
				if spaces {
					return errInvalidCard(-1, fmt.Sprintf("keyword contains embedded space(s): %q", name), nil)
				}
			case c == ' ':
				spaces = true
			default:
				return errInvalidCard(-1, fmt.Sprintf("keyword contains illegal character %q at index %d", name, idx), nil)
			}
		}
	}
	return nil
}
