// Copyright 2011 The Go Authors.  All rights reserved.
// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coding

import "sync"

// A Plan describes how to construct a QR code
// with a specific version and level.
type Plan struct {
	Version Version // QR code version
	Level   Level   // QR error correction Level

	DataBits int // number of data bits
	Size     int // number of pixels on a side
	Stride   int // number of bytes per bitmap row

	// Map marks function pixels: finder, separator, timing,
	// alignment, format and version pixels.  Data and check bits
	// go to the pixels not marked.
	Map []byte

	// Pattern holds for each mask the function pixels, the format
	// bits and the mask bits over the data area.  A code is the
	// serialised data xor a Pattern.
	Pattern [8][]byte
}

// Pre-allocated Plans.  A Plan is created the first time a
// combination of version and level is used and shared afterwards.
var plans [MaxVersion + 1][H + 1]struct {
	once sync.Once
	p    *Plan
}

// NewPlan returns a Plan for a QR code with the given version and
// level.  The Plan is a copy the caller may modify.
func NewPlan(version Version, level Level) (*Plan, error) {
	pp, err := makePlan(version, level)
	if err != nil {
		return nil, err
	}
	p := *pp
	p.Map = append([]byte(nil), pp.Map...)
	for i := range p.Pattern {
		p.Pattern[i] = append([]byte(nil), pp.Pattern[i]...)
	}
	return &p, nil
}

// makePlan returns plans[version][level].
// If it doesn't exist, it is created.
func makePlan(version Version, level Level) (*Plan, error) {
	if !version.IsValid() {
		return nil, ErrVersion
	}
	if !level.IsValid() {
		return nil, ErrLevel
	}
	p := &plans[version][level]
	p.once.Do(func() {
		p.p = vplan(version, level)
	})
	return p.p, nil
}

// grid addresses pixels of a bitmap of stride bytes per row.
type grid struct {
	b      []byte
	stride int
}

func (g grid) get(x, y int) bool {
	return g.b[y*g.stride+x>>3]&(0x80>>uint(x&7)) != 0
}

func (g grid) set(x, y int, black bool) {
	off, bit := y*g.stride+x>>3, byte(0x80)>>uint(x&7)
	if black {
		g.b[off] |= bit
	} else {
		g.b[off] &^= bit
	}
}

// planner draws function patterns, marking them in the map.
type planner struct {
	siz      int
	mmap, fn grid
}

// put sets a function pixel.
func (p *planner) put(x, y int, black bool) {
	p.mmap.set(x, y, true)
	p.fn.set(x, y, black)
}

// finder draws a position box with its separator centred at x, y.
func (p *planner) finder(x, y int) {
	for dy := -4; dy <= 4; dy++ {
		for dx := -4; dx <= 4; dx++ {
			xx, yy := x+dx, y+dy
			if xx < 0 || xx >= p.siz || yy < 0 || yy >= p.siz {
				continue
			}
			d := max(abs(dx), abs(dy))
			p.put(xx, yy, d != 2 && d != 4)
		}
	}
}

// alignment draws an alignment box centred at x, y.
func (p *planner) alignment(x, y int) {
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			p.put(x+dx, y+dy, max(abs(dx), abs(dy)) != 1)
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// vplan creates a Plan for the given version and level.
func vplan(v Version, l Level) *Plan {
	siz := v.Size()
	stride := (siz + 7) >> 3
	p := &Plan{
		Version:  v,
		Level:    l,
		DataBits: v.DataBits(l),
		Size:     siz,
		Stride:   stride,
		Map:      make([]byte, stride*siz),
	}
	pl := planner{
		siz:  siz,
		mmap: grid{p.Map, stride},
		fn:   grid{make([]byte, stride*siz), stride},
	}

	// Timing markers (overwritten by boxes).
	for i := 0; i < siz; i++ {
		pl.put(6, i, i&1 == 0)
		pl.put(i, 6, i&1 == 0)
	}

	// Position boxes.
	pl.finder(3, 3)
	pl.finder(siz-4, 3)
	pl.finder(3, siz-4)

	// Alignment boxes, except where they would overlap position boxes.
	apos := v.AlignmentPositions()
	for i, x := range apos {
		for j, y := range apos {
			if i == 0 && j == 0 || i == 0 && j == len(apos)-1 ||
				i == len(apos)-1 && j == 0 {
				continue
			}
			pl.alignment(x, y)
		}
	}

	// Reserve format pixels; drawn per mask.
	for i := 0; i < 9; i++ {
		pl.mmap.set(8, i, true)
		pl.mmap.set(i, 8, true)
	}
	for i := 0; i < 8; i++ {
		pl.mmap.set(siz-1-i, 8, true)
		pl.mmap.set(8, siz-1-i, true)
	}

	// Version pattern: 6x3 pixels at (0, siz-11) and 3x6 at (siz-11, 0).
	if vb := v.VersionBits(); vb != 0 {
		for i := 0; i < 18; i++ {
			black := vb>>uint(i)&1 != 0
			a, b := siz-11+i%3, i/3
			pl.put(a, b, black)
			pl.put(b, a, black)
		}
	}

	// One lonely black pixel
	pl.put(8, siz-8, true)

	for mask := range p.Pattern {
		b := make([]byte, len(pl.fn.b))
		copy(b, pl.fn.b)
		g := grid{b, stride}
		fplan(g, siz, l.FormatBits(mask))
		mplan(g, pl.mmap, siz, mask)
		p.Pattern[mask] = b
	}
	return p
}

// fplan draws the format bits, bit 0 first.
func fplan(g grid, siz int, fb uint16) {
	bit := func(i int) bool { return fb>>uint(i)&1 != 0 }
	// Around the top left position box.
	for i := 0; i < 6; i++ {
		g.set(8, i, bit(i))
	}
	g.set(8, 7, bit(6))
	g.set(8, 8, bit(7))
	g.set(7, 8, bit(8))
	for i := 9; i < 15; i++ {
		g.set(14-i, 8, bit(i))
	}
	// Split between the other two.
	for i := 0; i < 8; i++ {
		g.set(siz-1-i, 8, bit(i))
	}
	for i := 8; i < 15; i++ {
		g.set(8, siz-15+i, bit(i))
	}
}

// Mask patterns, x is the column and y the row:
//
//	0: ▄▀▄▀▄▀▄▀▄▀▄▀  1: ▄▄▄▄▄▄▄▄▄▄▄▄  2:  ██ ██ ██ ██  3: ▄█▀▄█▀▄█▀▄█▀
//	   ▄▀▄▀▄▀▄▀▄▀▄▀     ▄▄▄▄▄▄▄▄▄▄▄▄      ██ ██ ██ ██     ▀▄█▀▄█▀▄█▀▄█
//	   ▄▀▄▀▄▀▄▀▄▀▄▀     ▄▄▄▄▄▄▄▄▄▄▄▄      ██ ██ ██ ██     █▀▄█▀▄█▀▄█▀▄
//
//	4:    ███   ███  5:  ▄▄▄▄▄ ▄▄▄▄▄  6:    ▄▄▄   ▄▄▄  7: ▄█▄▀ ▀▄█▄▀ ▀
//	   ███   ███         █▀▄▀█ █▀▄▀█      ▄▀▄ █ ▄▀▄ █     ▄▀█▀▄ ▄▀█▀▄
//	      ███   ███      ██▄██ ██▄██      █▄▄▀  █▄▄▀      ▄  ▀██▄  ▀██
var maskFunc = [8]func(x, y int) bool{
	func(x, y int) bool { return (x+y)%2 == 0 },
	func(x, y int) bool { return y%2 == 0 },
	func(x, y int) bool { return x%3 == 0 },
	func(x, y int) bool { return (x+y)%3 == 0 },
	func(x, y int) bool { return (x/3+y/2)%2 == 0 },
	func(x, y int) bool { return x*y%2+x*y%3 == 0 },
	func(x, y int) bool { return (x*y%2+x*y%3)%2 == 0 },
	func(x, y int) bool { return ((x+y)%2+x*y%3)%2 == 0 },
}

// MaskBit reports whether mask inverts the pixel at x, y.
func MaskBit(mask, x, y int) bool { return maskFunc[mask](x, y) }

// mplan sets the mask bits over the data area.
func mplan(g, mmap grid, siz, mask int) {
	f := maskFunc[mask]
	for y := 0; y < siz; y++ {
		for x := 0; x < siz; x++ {
			if !mmap.get(x, y) && f(x, y) {
				g.set(x, y, true)
			}
		}
	}
}

// Reserved reports whether the pixel at x, y is a function pixel.
func (p *Plan) Reserved(x, y int) bool {
	return grid{p.Map, p.Stride}.get(x, y)
}

// Serialise writes bits from s to the bitmap in zigzag scan order:
// two columns at a time from the right, alternately upwards and
// downwards, skipping the vertical timing column and function pixels.
// Remainder pixels are left white.
func (p *Plan) Serialise(s []byte, bitmap []byte) {
	siz := p.Size
	g, m := grid{bitmap, p.Stride}, grid{p.Map, p.Stride}
	i, n := 0, len(s)*8
	for right := siz - 1; right >= 1; right -= 2 {
		if right == 6 { // vertical timing strip
			right = 5
		}
		up := (right+1)&2 == 0
		for vert := 0; vert < siz; vert++ {
			y := vert
			if up {
				y = siz - 1 - vert
			}
			for x := right; x >= right-1; x-- {
				if m.get(x, y) {
					continue
				}
				if i < n && s[i>>3]&(0x80>>uint(i&7)) != 0 {
					g.set(x, y, true)
				}
				i++
			}
		}
	}
}
