// Copyright 2011 The Go Authors.  All rights reserved.
// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package coding implements low-level QR coding details.
package coding // import "github.com/unixdj/qrcard/coding"

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/unixdj/qrcard/gf256"
)

var (
	ErrLevel    = errors.New("qr: invalid level")
	ErrVersion  = errors.New("qr: invalid version")
	ErrMask     = errors.New("qr: invalid mask")
	ErrFinished = errors.New("qr: encoder already produced a code")
)

// Field is the field for QR error correction.
var Field = gf256.NewField(0x11d, 2)

// A Version represents a QR version.
// The version specifies the size of the QR code:
// a QR code with version v has 4v+17 pixels on a side.
// Versions run from 1 to 40: the larger the version,
// the more information the code can store.
type Version int

// QR version range.
const (
	MinVersion Version = 1
	MaxVersion Version = 40
)

func (v Version) String() string { return strconv.Itoa(int(v)) }

// IsValid reports whether v is a QR version.
func (v Version) IsValid() bool { return MinVersion <= v && v <= MaxVersion }

// Size returns the number of modules on a side of a code of version v.
func (v Version) Size() int { return int(v)*4 + 17 }

// QR version size classes.  The length of the character count
// field depends on the size class.
const (
	Class0 = iota // versions 1 to 9
	Class1        // versions 10 to 26
	Class2        // versions 27 to 40
)

// SizeClass returns the size class of v, as documented under Class0.
func (v Version) SizeClass() int {
	switch {
	case v <= 9:
		return Class0
	case v <= 26:
		return Class1
	}
	return Class2
}

// MaxClassVersion returns the largest version in the size class.
func MaxClassVersion(class int) Version {
	return [...]Version{9, 26, 40}[class]
}

// Bytes returns the total number of codewords, data and check,
// in a code of version v.
func (v Version) Bytes() int { return vtab[v].words }

// DataBytes returns the number of data bytes that can be
// stored in a QR code with the given version and level.
func (v Version) DataBytes(l Level) int {
	vt := &vtab[v]
	lev := vt.level[l]
	return vt.words - lev.nblock*lev.check
}

// DataBits returns the number of data bits that can be
// stored in a QR code with the given version and level.
func (v Version) DataBits(l Level) int { return v.DataBytes(l) * 8 }

// Blocks returns the number of error correction blocks and the number
// of check bytes per block for the given version and level.
func (v Version) Blocks(l Level) (nblock, check int) {
	lev := vtab[v].level[l]
	return lev.nblock, lev.check
}

// AlignmentPositions returns the centre coordinates of alignment
// patterns along either axis, including the timing row.  The list is
// empty for version 1.
func (v Version) AlignmentPositions() []int {
	vt := &vtab[v]
	if vt.align == 0 {
		return nil
	}
	last := v.Size() - 7
	pos := []int{6}
	for p := vt.align; p <= last; p += vt.step {
		pos = append(pos, p)
		if vt.step == 0 {
			break
		}
	}
	return pos
}

// VersionBits returns the 18 bit version information of v,
// or 0 for versions below 7, which carry none.
func (v Version) VersionBits() int { return vtab[v].pattern }

// A Level represents a QR error correction level.
// From least to most tolerant of errors, they are L, M, Q, H.
type Level int

const (
	L Level = iota // 7% of codewords can be restored
	M              // 15%
	Q              // 25%
	H              // 30%
)

func (l Level) String() string {
	if L <= l && l <= H {
		return "LMQH"[l : l+1]
	}
	return strconv.Itoa(int(l))
}

// IsValid reports whether l is an error correction level.
func (l Level) IsValid() bool { return L <= l && l <= H }

// FormatBits returns the 15 bit format information for the level and
// mask, with error detection bits, as stored in the code.
func (l Level) FormatBits(mask int) uint16 { return ftab[l][mask] }

// A version describes metadata associated with a version.
type version struct {
	align   int // first alignment pattern centre after 6, 0 if none
	step    int // distance between the rest
	words   int // total codewords
	pattern int // version information
	level   [4]level
}

type level struct {
	nblock int // blocks
	check  int // check bytes per block
}

// Bits accumulates a bit stream.
type Bits struct {
	b    []byte
	nbit int
}

// NewBits returns Bits with enough capacity for a QR code of the
// given version.
func NewBits(v Version) *Bits {
	return &Bits{b: make([]byte, 0, v.Bytes())}
}

func (b *Bits) Reset() {
	b.b = b.b[:0]
	b.nbit = 0
}

// Bits returns the number of bits written.
func (b *Bits) Bits() int { return b.nbit }

// Bytes returns the bit stream.  It panics on a fractional byte.
func (b *Bits) Bytes() []byte {
	if b.nbit%8 != 0 {
		panic("qr: fractional byte")
	}
	return b.b
}

// Write appends the nbit low bits of v, most significant first.
func (b *Bits) Write(v uint32, nbit int) {
	for nbit > 0 {
		nbit--
		if b.nbit&7 == 0 {
			b.b = append(b.b, 0)
		}
		if v>>uint(nbit)&1 != 0 {
			b.b[len(b.b)-1] |= 0x80 >> uint(b.nbit&7)
		}
		b.nbit++
	}
}

// Pad adds up to 4 terminator bits, zero bits up to a byte boundary
// and alternating pad bytes 0xec, 0x11 to fill n bytes.
func (b *Bits) Pad(n int) {
	if b.nbit > n*8 {
		panic("qr: too much data")
	}
	b.nbit = min(b.nbit+4, n*8)
	b.nbit = (b.nbit + 7) &^ 7
	for len(b.b) < b.nbit/8 {
		b.b = append(b.b, 0)
	}
	for pad := byte(0xec); len(b.b) < n; pad ^= 0xec ^ 0x11 {
		b.b = append(b.b, pad)
	}
	b.nbit = n * 8
}

// AddCheckBytes adds terminator, padding and check bytes to b for the
// given QR version and level.  The data and check bytes of each block
// follow the data bytes of all blocks in block order.
func (b *Bits) AddCheckBytes(v Version, l Level) {
	nd := v.DataBytes(l)
	b.Pad(nd)
	nblock, check := v.Blocks(l)
	// Blocks in the first group are one byte shorter
	// than blocks in the second.
	db := nd / nblock
	short := nblock - nd%nblock
	rs := gf256.NewRSEncoder(Field, check)
	dat := b.b[:nd]
	ecc := make([]byte, nblock*check)
	for i, cb := 0, ecc; i < nblock; i++ {
		n := db
		if i >= short {
			n++
		}
		rs.ECC(dat[:n], cb[:check])
		dat, cb = dat[n:], cb[check:]
	}
	b.b = append(b.b, ecc...)
	b.nbit = len(b.b) * 8
	if len(b.b) != v.Bytes() {
		panic("qr: internal error")
	}
}

// Permute returns data and check bytes in b with blocks interleaved
// for the given QR code version and level.  b must have had check
// bytes added.
func (b *Bits) Permute(v Version, l Level) []byte {
	src := b.Bytes()
	if len(src) != v.Bytes() {
		panic("qr: wrong data length")
	}
	nd := v.DataBytes(l)
	nblock, _ := v.Blocks(l)
	dst := make([]byte, len(src))
	interleave(dst[:nd], src[:nd], nblock)
	interleave(dst[nd:], src[nd:], nblock)
	return dst
}

// interleave interleaves nblock blocks from src to dst, which must be
// of equal length.  If the length is not a multiple of nblock, the
// last len(src)%nblock blocks are one byte longer than the rest.
func interleave(dst, src []byte, nblock int) {
	db := len(src) / nblock
	short := nblock - len(src)%nblock
	extra := dst[db*nblock:]
	for i := 0; i < nblock; i++ {
		for j, v := range src[:db] {
			dst[j*nblock+i] = v
		}
		src = src[db:]
		if i >= short {
			extra[i-short] = src[0]
			src = src[1:]
		}
	}
}

// A Mode is a QR segment encoding mode.
type Mode int

// Encoding modes.
const (
	Numeric      Mode = iota // digits
	Alphanumeric             // 0-9A-Z $%*+-./:
	Byte                     // any data
	nmodes
)

var modeName = [nmodes]string{"numeric", "alphanumeric", "byte"}

func (mode Mode) String() string {
	if mode.IsValid() {
		return modeName[mode]
	}
	return strconv.Itoa(int(mode))
}

// IsValid reports whether mode is a supported encoding mode.
func (mode Mode) IsValid() bool { return Numeric <= mode && mode < nmodes }

// Indicator returns the 4 bit mode indicator.
func (mode Mode) Indicator() uint32 {
	return [nmodes]uint32{1, 2, 4}[mode]
}

// CountLength returns the length of the character count field in the
// given version size class.
func (mode Mode) CountLength(class int) int {
	return [nmodes][3]int{
		{10, 12, 14},
		{9, 11, 13},
		{8, 16, 16},
	}[mode][class]
}

// Length returns the length in bits of n bytes encoded in mode at the
// given version size class, including the header.
func (mode Mode) Length(n, class int) int {
	l := 4 + mode.CountLength(class)
	switch mode {
	case Numeric:
		l += (10*n + 2) / 3
	case Alphanumeric:
		l += (11*n + 1) / 2
	default:
		l += 8 * n
	}
	return l
}

const alphamask uint64 = 0x07fffffe_07ffec31 // SPACE $% *+ -./ [0-9] : [A-Z]

// Accepts reports whether the byte c is encodable in mode.
func (mode Mode) Accepts(c byte) bool {
	switch mode {
	case Numeric:
		return c-'0' < 10
	case Alphanumeric:
		return c >= ' ' && alphamask>>(c-' ')&1 != 0
	}
	return mode == Byte
}

// Alphanumeric encoding table.  Used after validation.
// "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ $%*+-./:"
var alpha = [64]byte{
	00, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, // 0x40
	25, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35, 00, 00, 00, 00, 00, // 0x50
	36, 00, 00, 00, 37, 38, 00, 00, 00, 00, 39, 40, 00, 41, 42, 43, // 0x20
	00, 01, 02, 03, 04, 05, 06, 07, 010, 9, 44, 00, 00, 00, 00, 00, // 0x30
}

// A Segment describes a QR code segment.
type Segment struct {
	Text string // data to encode
	Mode Mode   // encoding mode
}

// SegmentError represents an invalid Segment.
type SegmentError Segment

func (e SegmentError) Error() string {
	if e.Mode.IsValid() {
		return fmt.Sprintf("qr: non-%s string %#q", e.Mode, e.Text)
	}
	return fmt.Sprintf("qr: invalid mode %d", e.Mode)
}

// IsValid reports whether seg is encodable.
func (seg Segment) IsValid() bool {
	if !seg.Mode.IsValid() {
		return false
	}
	for i := 0; i < len(seg.Text); i++ {
		if !seg.Mode.Accepts(seg.Text[i]) {
			return false
		}
	}
	return true
}

// EncodedLength returns the encoded length in bits of seg in the
// given QR version size class.  The segment is not validated.
func (seg Segment) EncodedLength(class int) int {
	return seg.Mode.Length(len(seg.Text), class)
}

// CountError reports a segment too long for its character count field.
type CountError struct {
	Segment
	Version
}

func (e CountError) Error() string {
	return fmt.Sprintf("qr: %d byte %s segment does not fit "+
		"the count field of version %s",
		len(e.Text), e.Mode, e.Version)
}

// Encode writes seg encoded for the given QR version to b.
func (seg Segment) Encode(b *Bits, v Version) error {
	if !seg.IsValid() {
		return SegmentError(seg)
	}
	class := v.SizeClass()
	s := seg.Text
	cl := seg.Mode.CountLength(class)
	if len(s) >= 1<<uint(cl) {
		return CountError{seg, v}
	}
	b.Write(seg.Mode.Indicator(), 4)
	b.Write(uint32(len(s)), cl)
	switch seg.Mode {
	case Numeric:
		for ; len(s) >= 3; s = s[3:] {
			b.Write(uint32(s[0]-'0')*100+uint32(s[1]-'0')*10+
				uint32(s[2]-'0'), 10)
		}
		switch len(s) {
		case 2:
			b.Write(uint32(s[0]-'0')*10+uint32(s[1]-'0'), 7)
		case 1:
			b.Write(uint32(s[0]-'0'), 4)
		}
	case Alphanumeric:
		for ; len(s) >= 2; s = s[2:] {
			b.Write(uint32(alpha[s[0]&0x3f])*45+
				uint32(alpha[s[1]&0x3f]), 11)
		}
		if len(s) == 1 {
			b.Write(uint32(alpha[s[0]&0x3f]), 6)
		}
	default:
		for i := 0; i < len(s); i++ {
			b.Write(uint32(s[i]), 8)
		}
	}
	return nil
}

// A Code is a square pixel grid.
type Code struct {
	Bitmap []byte // 1 is black, 0 is white
	Size   int    // number of pixels on a side
	Stride int    // number of bytes per row
	Mask   int    // mask pattern applied
}

// Black returns true if the pixel at (x,y) is black.
// Pixels outside the code are white.
func (c *Code) Black(x, y int) bool {
	return 0 <= x && x < c.Size && 0 <= y && y < c.Size &&
		c.Bitmap[y*c.Stride+x>>3]&(0x80>>uint(x&7)) != 0
}

// Encoder encodes a QR code.
type Encoder struct {
	p    *Plan
	b    *Bits
	data []byte // serialised data and check bits, nil until finished
}

func newEncoder(p *Plan) *Encoder {
	return &Encoder{p: p, b: NewBits(p.Version)}
}

// NewEncoder returns an Encoder for the given version and level.
func NewEncoder(version Version, level Level) (*Encoder, error) {
	p, err := makePlan(version, level)
	if err != nil {
		return nil, err
	}
	return newEncoder(p), nil
}

// Write adds text to e.
func (e *Encoder) Write(text ...Segment) error {
	if e.data != nil {
		return ErrFinished
	}
	for _, t := range text {
		if err := t.Encode(e.b, e.p.Version); err != nil {
			return err
		}
	}
	return nil
}

// Reset discards data written to e.
func (e *Encoder) Reset() {
	e.b.Reset()
	e.data = nil
}

// finish adds check bytes and lays out the data bits.
func (e *Encoder) finish() error {
	if e.data != nil {
		return nil
	}
	if e.b.Bits() > e.p.DataBits {
		return fmt.Errorf("qr: cannot encode %d bits into %d-bit code",
			e.b.Bits(), e.p.DataBits)
	}
	e.b.AddCheckBytes(e.p.Version, e.p.Level)
	bits := e.b.Permute(e.p.Version, e.p.Level)
	e.data = make([]byte, e.p.Size*e.p.Stride)
	e.p.Serialise(bits, e.data)
	return nil
}

// CodeMask returns a QR code containing data written to e with the
// given mask pattern applied.
func (e *Encoder) CodeMask(mask int) (*Code, error) {
	if mask < 0 || mask >= len(e.p.Pattern) {
		return nil, ErrMask
	}
	if err := e.finish(); err != nil {
		return nil, err
	}
	c := &Code{
		Bitmap: make([]byte, len(e.data)),
		Size:   e.p.Size,
		Stride: e.p.Stride,
		Mask:   mask,
	}
	xor(c.Bitmap, e.data, e.p.Pattern[mask])
	return c, nil
}

// xor xors a and b into dst.  a and b may not be shorter than dst.
func xor(dst, a, b []byte) {
	a = a[:len(dst)]
	b = b[:len(dst)]
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

// Code returns a QR code containing data written to e.
// Of the eight mask patterns it applies the one giving the smallest
// penalty, the lowest numbered on a tie.
func (e *Encoder) Code() (*Code, error) {
	if err := e.finish(); err != nil {
		return nil, err
	}
	c := &Code{Size: e.p.Size, Stride: e.p.Stride,
		Bitmap: make([]byte, len(e.data))}
	best := &Code{Size: e.p.Size, Stride: e.p.Stride,
		Bitmap: make([]byte, len(e.data))}
	pen := 1 << 30 // largest penalty is < 1<<20
	for mask, v := range e.p.Pattern {
		xor(c.Bitmap, e.data, v)
		c.Mask = mask
		if p := c.Penalty(); p < pen {
			best, pen, c = c, p, best
		}
	}
	return best, nil
}

// Encode is a wrapper around Write and Code.
func (e *Encoder) Encode(text ...Segment) (*Code, error) {
	if err := e.Write(text...); err != nil {
		return nil, err
	}
	return e.Code()
}

// Encode encodes text using an Encoder with the given version and level.
func Encode(version Version, level Level, text ...Segment) (*Code, error) {
	e, err := NewEncoder(version, level)
	if err != nil {
		return nil, err
	}
	return e.Encode(text...)
}
