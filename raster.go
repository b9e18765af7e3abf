// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qr

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/boombuler/barcode"
	"golang.org/x/image/draw"
)

// QuietZoneModules is the width in modules of the quiet zone.
const QuietZoneModules = 4

// MaxSide is the largest image side in pixels Render produces,
// whatever MaxSize is.
const MaxSide = 1 << 14

// ErrUnsatisfiableDimensions is returned by Render when no integer module
// scale gives an image within the size bounds.
var ErrUnsatisfiableDimensions = errors.New("qr: unsatisfiable dimensions")

// A Matrix is a square grid of modules.
type Matrix interface {
	Size() int           // number of modules on a side
	Black(x, y int) bool // false outside the grid
}

// RenderOptions control rendering.
type RenderOptions struct {
	// Scale is the preferred number of pixels per module on a side.
	// It is raised or lowered to the nearest scale within the bounds.
	// Scale below 1 selects the smallest valid scale.
	Scale int

	// QuietZone adds QuietZoneModules white modules on each side.
	QuietZone bool

	// MinSize and MaxSize bound the image side in pixels.
	// Zero means no bound.
	MinSize, MaxSize int

	// Dark and Light default to black and white.
	Dark, Light color.Color
}

// A DimensionError describes bounds that no module scale satisfies.
type DimensionError struct {
	Modules  int // modules on a side, quiet zone included
	Min, Max int // bounds in pixels
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: %d modules in %d..%d pixels",
		ErrUnsatisfiableDimensions, e.Modules, e.Min, e.Max)
}

func (e *DimensionError) Unwrap() error { return ErrUnsatisfiableDimensions }

// Modules returns the number of modules on a side of an image of
// m rendered with opt, quiet zone included.
func (opt *RenderOptions) Modules(m Matrix) int {
	n := m.Size()
	if opt.QuietZone {
		n += 2 * QuietZoneModules
	}
	return n
}

// ScaleFor returns the module scale for n modules on a side: the scale s
// nearest to opt.Scale such that MinSize <= s*n <= MaxSize and
// s*n <= MaxSide.
func (opt *RenderOptions) ScaleFor(n int) (int, error) {
	if n <= 0 || opt.MinSize < 0 || opt.MaxSize < 0 {
		return 0, &DimensionError{n, opt.MinSize, opt.MaxSize}
	}
	lo := opt.MinSize / n
	if opt.MinSize%n != 0 {
		lo++
	}
	lo = max(lo, 1)
	hi := MaxSide / n
	if opt.MaxSize != 0 {
		hi = min(hi, opt.MaxSize/n)
	}
	if hi < lo {
		return 0, &DimensionError{n, opt.MinSize, opt.MaxSize}
	}
	return min(max(opt.Scale, lo), hi), nil
}

// Render draws m into a new image, scale pixels per module, with the top
// left module at the origin of the quiet zone or, without one, of the
// image.
func Render(m Matrix, opt RenderOptions) (*image.RGBA, error) {
	n := opt.Modules(m)
	scale, err := opt.ScaleFor(n)
	if err != nil {
		return nil, err
	}
	dark, light := opt.Dark, opt.Light
	if dark == nil {
		dark = color.Black
	}
	if light == nil {
		light = color.White
	}
	img := image.NewRGBA(image.Rect(0, 0, n*scale, n*scale))
	draw.Draw(img, img.Bounds(), image.NewUniform(light), image.Point{},
		draw.Src)
	off := 0
	if opt.QuietZone {
		off = QuietZoneModules * scale
	}
	src := image.NewUniform(dark)
	siz := m.Size()
	for y := 0; y < siz; y++ {
		for x := 0; x < siz; {
			if !m.Black(x, y) {
				x++
				continue
			}
			// Draw a run of black modules at once.
			start := x
			for x < siz && m.Black(x, y) {
				x++
			}
			r := image.Rect(off+start*scale, off+y*scale,
				off+x*scale, off+(y+1)*scale)
			draw.Draw(img, r, src, image.Point{}, draw.Src)
		}
	}
	return img, nil
}

// FromBarcode returns a Matrix reading the modules of a two-dimensional
// barcode at one pixel per module, such as one returned by
// github.com/boombuler/barcode/qr.Encode.  Dark pixels are black modules.
func FromBarcode(b barcode.Barcode) Matrix {
	return barcodeMatrix{b, b.Bounds()}
}

type barcodeMatrix struct {
	b barcode.Barcode
	r image.Rectangle
}

func (m barcodeMatrix) Size() int { return m.r.Dx() }

func (m barcodeMatrix) Black(x, y int) bool {
	p := image.Pt(x, y).Add(m.r.Min)
	if !p.In(m.r) {
		return false
	}
	g := color.Gray16Model.Convert(m.b.At(p.X, p.Y)).(color.Gray16)
	return g.Y < 0x8000
}
