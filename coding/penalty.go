// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package coding

// Penalty returns the penalty value for a QR code.
// The value is used for choosing the mask.
//
// Total penalty is the sum of penalties for runs and boxes of
// same-colour pixels, finder-like patterns and colour balance.
//
//   - RunP: for non-overlapping runs of n pixels, n>=5 -> n-2
//   - BoxP: for possibly overlapping 2x2 boxes -> 3
//   - FindP: for possibly overlapping finder patterns -> 40
//     The pattern is 1011101 with 0000 on either side;
//     it may extend into the quiet zone
//   - BalP: for n% of black pixels -> 10*(ceiling(abs(n-50)/5)-1)
//
// https://www.nayuki.io/page/creating-a-qr-code-step-by-step
func (c *Code) Penalty() int {
	siz := c.Size
	p := 0
	dark := 0
	line := make([]bool, siz)
	for y := 0; y < siz; y++ {
		for x := range line {
			line[x] = c.Black(x, y)
			if line[x] {
				dark++
			}
		}
		p += linePenalty(line)
	}
	for x := 0; x < siz; x++ {
		for y := range line {
			line[y] = c.Black(x, y)
		}
		p += linePenalty(line)
	}
	for y := 1; y < siz; y++ {
		for x := 1; x < siz; x++ {
			b := c.Black(x, y)
			if b == c.Black(x-1, y) && b == c.Black(x, y-1) &&
				b == c.Black(x-1, y-1) {
				p += BoxPP
			}
		}
	}
	return p + balancePenalty(dark, siz*siz)
}

// Penalty weights.
const (
	MinRun    = 5  // RunP:  minimum run length
	RunPDelta = -2 // RunP:  add to run length
	BoxPP     = 3  // BoxP:  points per box
	FindPP    = 40 // FindP: points per pattern
	BalPP     = 10 // BalP:  points per 5% step
)

// finder-like patterns read left to right, 11 bits with the
// quiet zone side first or last.
const (
	findB = 0b0000_1011101 // quiet zone before
	findA = 0b1011101_0000 // quiet zone after
)

// linePenalty returns RunP and FindP for a row or column.
func linePenalty(line []bool) int {
	p := 0
	run := 0
	for i, b := range line {
		if i > 0 && b != line[i-1] {
			if run >= MinRun {
				p += run + RunPDelta
			}
			run = 0
		}
		run++
	}
	if run >= MinRun {
		p += run + RunPDelta
	}

	// Slide an 11 pixel window from 4 pixels before the line to
	// 4 pixels past it.  Pixels outside the code are white.
	at := func(i int) uint16 {
		if i >= 0 && i < len(line) && line[i] {
			return 1
		}
		return 0
	}
	var win uint16
	for i := -4; i < -4+10; i++ {
		win = win<<1 | at(i)
	}
	for i := -4 + 10; i < len(line)+4; i++ {
		win = (win<<1 | at(i)) & 0x7ff
		if win == findB || win == findA {
			p += FindPP
		}
	}
	return p
}

// balancePenalty returns BalP for dark of total pixels.
func balancePenalty(dark, total int) int {
	dev := dark*20 - total*10
	if dev < 0 {
		dev = -dev
	}
	// k is the number of full 5% steps away from 50%.
	k := (dev+total-1)/total - 1
	if k < 0 {
		k = 0
	}
	return k * BalPP
}
