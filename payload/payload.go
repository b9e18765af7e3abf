// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package payload encodes card payloads: an identifier and the start of
// a validity date, serialised as JSON and base64 encoded for a QR code.
package payload // import "github.com/unixdj/qrcard/payload"

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrInvalidDate       = errors.New("payload: invalid date")
	ErrEmptyIdentifier   = errors.New("payload: empty identifier")
	ErrInvalidIdentifier = errors.New("payload: identifier is not valid UTF-8")
	ErrMalformed         = errors.New("payload: malformed text")
)

// Offset is the UTC offset of validity dates in seconds.
const Offset = 8 * 60 * 60

// Zone is the fixed time zone of validity dates, UTC+08:00.
var Zone = time.FixedZone("UTC+8", Offset)

// A Date is a civil date in the proleptic Gregorian calendar.
type Date struct {
	Year, Month, Day int
}

// DateError reports an invalid Date.
type DateError struct {
	Date
}

func (e *DateError) Error() string {
	return fmt.Sprintf("%s %d-%d-%d", ErrInvalidDate,
		e.Year, e.Month, e.Day)
}

func (e *DateError) Unwrap() error { return ErrInvalidDate }

// Validate checks that d names a day of years 1 to 9999.
func (d Date) Validate() error {
	if d.Year < 1 || d.Year > 9999 || d.Month < 1 || d.Month > 12 ||
		d.Day < 1 || d.Day > 31 {
		return &DateError{d}
	}
	// time.Date normalises 30 February to 1 or 2 March.
	t := d.Time()
	if t.Day() != d.Day {
		return &DateError{d}
	}
	return nil
}

// Time returns midnight of d in Zone.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, Zone)
}

// Timestamp returns the Unix time of midnight of d in Zone.
func (d Date) Timestamp() int64 { return d.Time().Unix() }

// DateOf returns the date in Zone of the Unix time ts.
func DateOf(ts int64) Date {
	t := time.Unix(ts, 0).In(Zone)
	return Date{t.Year(), int(t.Month()), t.Day()}
}

// String returns d as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Format returns d formatted by a time.Time layout,
// such as "Valid 2006-01-02" or "有效日期：2006年1月2日".
func (d Date) Format(layout string) string {
	return d.Time().Format(layout)
}

// A Payload is the content of a card code.
type Payload struct {
	Identifier string `json:"cardNo"`
	Timestamp  int64  `json:"timeStamp"`
}

// CheckIdentifier reports whether identifier can be carried intact: it
// must be non-empty valid UTF-8.
func CheckIdentifier(identifier string) error {
	switch {
	case identifier == "":
		return ErrEmptyIdentifier
	case !utf8.ValidString(identifier):
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, identifier)
	}
	return nil
}

// New returns the Payload for identifier valid from d.
func New(identifier string, d Date) (Payload, error) {
	if err := CheckIdentifier(identifier); err != nil {
		return Payload{}, err
	}
	if err := d.Validate(); err != nil {
		return Payload{}, err
	}
	return Payload{identifier, d.Timestamp()}, nil
}

// Date returns the validity date of p.
func (p Payload) Date() Date { return DateOf(p.Timestamp) }

// JSON returns p as a single line JSON object with keys in
// lexicographic order, without escaping of <, >, &, U+2028 and U+2029.
func (p Payload) JSON() ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return unescapeSeparators(bytes.TrimSuffix(b.Bytes(), []byte{'\n'})), nil
}

// unescapeSeparators replaces the \u2028 and \u2029 escapes that
// encoding/json always writes with the characters themselves.
func unescapeSeparators(j []byte) []byte {
	if !bytes.Contains(j, []byte(`\u202`)) {
		return j
	}
	out := make([]byte, 0, len(j))
	for i := 0; i < len(j); i++ {
		if j[i] != '\\' || i+1 == len(j) {
			out = append(out, j[i])
			continue
		}
		if esc := j[i:min(i+6, len(j))]; string(esc) == `\u2028` ||
			string(esc) == `\u2029` {
			out = utf8.AppendRune(out, 0x2028+rune(esc[5]-'8'))
			i += 5
			continue
		}
		// Keep any other escape, \\ included, whole.
		out = append(out, j[i], j[i+1])
		i++
	}
	return out
}

// Text returns the base64 encoding of p's JSON, standard alphabet
// with padding.
func (p Payload) Text() (string, error) {
	j, err := p.JSON()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(j), nil
}

// Encode returns the text of the payload for identifier valid from
// year-month-day, and its timestamp.
func Encode(identifier string, year, month, day int) (string, int64, error) {
	p, err := New(identifier, Date{year, month, day})
	if err != nil {
		return "", 0, err
	}
	text, err := p.Text()
	if err != nil {
		return "", 0, err
	}
	return text, p.Timestamp, nil
}

// Decode parses text returned by Encode.
func Decode(text string) (Payload, error) {
	j, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var p Payload
	dec := json.NewDecoder(bytes.NewReader(j))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return Payload{}, fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	if p.Identifier == "" {
		return Payload{}, fmt.Errorf("%w: %w", ErrMalformed,
			ErrEmptyIdentifier)
	}
	return p, nil
}

// filenameReplacer replaces characters that would place the file
// elsewhere.
var filenameReplacer = strings.NewReplacer("/", "_", "\\", "_", "\x00", "_")

// Filename returns the name of the image file for identifier valid
// from d: identifier_YYYY-MM-DD.png.
func Filename(identifier string, d Date) string {
	return filenameReplacer.Replace(identifier) + "_" + d.String() + ".png"
}
