// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package label composes a code image with a line of text below it.
package label // import "github.com/unixdj/qrcard/label"

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrFontLoad        = errors.New("label: cannot load font")
	ErrGlyphRender     = errors.New("label: cannot render glyph")
	ErrCanvasTooNarrow = errors.New("label: canvas too narrow")
)

// GlyphError reports a rune the font has no glyph for.
type GlyphError struct {
	Rune rune
	Text string
}

func (e *GlyphError) Error() string {
	return fmt.Sprintf("%s %U %q in %q", ErrGlyphRender, e.Rune, e.Rune,
		e.Text)
}

func (e *GlyphError) Unwrap() error { return ErrGlyphRender }

// DefaultSize is the default font size in pixels.
const DefaultSize = 20

// A Font is a font face at a fixed size.  It must not be used
// concurrently.
type Font struct {
	f    *sfnt.Font
	face font.Face
	buf  sfnt.Buffer
}

// Load parses an OpenType or TrueType font, or the first font of a
// collection (.ttc), and returns its face at size pixels.
func Load(data []byte, size float64) (*Font, error) {
	if !(size > 0) {
		return nil, fmt.Errorf("%w: size %g", ErrFontLoad, size)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no data", ErrFontLoad)
	}
	c, err := opentype.ParseCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFontLoad, err)
	}
	f, err := c.Font(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFontLoad, err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFontLoad, err)
	}
	return &Font{f: f, face: face}, nil
}

// Default returns the Go Regular font at size pixels.
// It covers Latin, Greek and Cyrillic; use Load for CJK text.
func Default(size float64) (*Font, error) {
	return Load(goregular.TTF, size)
}

// Close releases the face.  The Font cannot be used afterwards.
func (f *Font) Close() error {
	if f.face == nil {
		return nil
	}
	err := f.face.Close()
	f.face = nil
	return err
}

// check returns a *GlyphError for the first rune of text the font has
// no glyph for.
func (f *Font) check(text string) error {
	for _, r := range text {
		x, err := f.f.GlyphIndex(&f.buf, r)
		if err != nil {
			return fmt.Errorf("%w: %v", &GlyphError{r, text}, err)
		}
		if x == 0 {
			return &GlyphError{r, text}
		}
	}
	return nil
}

// bounds returns the pixel bounds of the ink of text drawn with the dot
// at the origin.
func (f *Font) bounds(text string) (image.Rectangle, error) {
	if f.face == nil {
		return image.Rectangle{}, fmt.Errorf("%w: font closed", ErrFontLoad)
	}
	if err := f.check(text); err != nil {
		return image.Rectangle{}, err
	}
	b, _ := font.BoundString(f.face, text)
	return image.Rect(b.Min.X.Floor(), b.Min.Y.Floor(),
		b.Max.X.Ceil(), b.Max.Y.Ceil()), nil
}

// Measure returns the width and height in pixels of the ink of text,
// normalised to NFC.
func (f *Font) Measure(text string) (w, h int, err error) {
	b, err := f.bounds(norm.NFC.String(text))
	return b.Dx(), b.Dy(), err
}

// drawText draws text with the top left corner of its ink at pt.
func (f *Font) drawText(dst draw.Image, text string, pt image.Point, c color.Color) error {
	b, err := f.bounds(text)
	if err != nil {
		return err
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: f.face,
		Dot:  fixed.P(pt.X-b.Min.X, pt.Y-b.Min.Y),
	}
	d.DrawString(text)
	return nil
}

// Layout describes the canvas.
type Layout struct {
	Width      int         // canvas width
	Top        int         // space above the code
	Gap        int         // space between the code and the text
	Bottom     int         // space below the text
	Background color.Color // default white
	Foreground color.Color // text colour, default black
}

// DefaultLayout returns a 200 pixel wide layout with 120 pixels of
// margins.
func DefaultLayout() Layout {
	return Layout{Width: 200, Top: 60, Gap: 20, Bottom: 40}
}

// Margins returns the sum of vertical margins.
func (l Layout) Margins() int { return l.Top + l.Gap + l.Bottom }

// Compose returns a new canvas l.Width pixels wide with the code
// image at l.Top and text below it, each centred horizontally.  The
// canvas is the height of the code and of the text ink plus l.Margins.
func Compose(code image.Image, text string, f *Font, l Layout) (*image.RGBA, error) {
	if l.Top < 0 || l.Gap < 0 || l.Bottom < 0 {
		return nil, fmt.Errorf("label: negative margin in %d/%d/%d",
			l.Top, l.Gap, l.Bottom)
	}
	text = norm.NFC.String(text)
	tb, err := f.bounds(text)
	if err != nil {
		return nil, err
	}
	cb := code.Bounds()
	if cb.Dx() > l.Width || tb.Dx() > l.Width {
		return nil, fmt.Errorf("%w: %d pixels for %d pixel code "+
			"and %d pixel text", ErrCanvasTooNarrow,
			l.Width, cb.Dx(), tb.Dx())
	}
	bg, fg := l.Background, l.Foreground
	if bg == nil {
		bg = color.White
	}
	if fg == nil {
		fg = color.Black
	}

	canvas := image.NewRGBA(image.Rect(0, 0, l.Width,
		cb.Dy()+tb.Dy()+l.Margins()))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg),
		image.Point{}, draw.Src)
	at := image.Pt((l.Width-cb.Dx())/2, l.Top)
	draw.Draw(canvas, cb.Sub(cb.Min).Add(at), code, cb.Min, draw.Over)
	at = image.Pt((l.Width-tb.Dx())/2, l.Top+cb.Dy()+l.Gap)
	if err := f.drawText(canvas, text, at, fg); err != nil {
		return nil, err
	}
	return canvas, nil
}
