// Copyright 2011 The Go Authors.  All rights reserved.
// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package qr encodes QR codes at error correction level M.

Encode picks the narrowest single encoding mode for the text and the
smallest version that holds it, and returns an immutable Code.  Render
turns a Code, or any other square Matrix, into an RGBA image.
*/
package qr // import "github.com/unixdj/qrcard"

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/boombuler/barcode"

	"github.com/unixdj/qrcard/coding"
)

// ErrPayloadTooLarge is returned when the text does not fit a version 40
// code at level M.
var ErrPayloadTooLarge = errors.New("qr: payload too large")

// Level is the error correction level of all codes produced by Encode.
// Up to 15% of codewords can be restored.
const Level = coding.M

// ModeFor returns the narrowest mode able to encode text: numeric if text
// consists of digits, alphanumeric if it consists of digits, upper case
// letters and " $%*+-./:", and byte otherwise.  Empty text is byte.
func ModeFor(text string) coding.Mode {
	if text == "" {
		return coding.Byte
	}
	for _, m := range [...]coding.Mode{coding.Numeric, coding.Alphanumeric} {
		if (coding.Segment{Text: text, Mode: m}).IsValid() {
			return m
		}
	}
	return coding.Byte
}

// SelectVersion returns the smallest version that holds n characters
// encoded in mode at level M.
func SelectVersion(n int, mode coding.Mode) (coding.Version, error) {
	for v := coding.MinVersion; v <= coding.MaxVersion; v++ {
		class := v.SizeClass()
		if n >= 1<<uint(mode.CountLength(class)) {
			continue
		}
		if mode.Length(n, class) <= v.DataBits(Level) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %d characters in %s mode",
		ErrPayloadTooLarge, n, mode)
}

// A Code is a QR code.  It is immutable.
type Code struct {
	c       *coding.Code
	version coding.Version
	mode    coding.Mode
	text    string
}

// Encode returns a QR code containing text at level M.
func Encode(text string) (*Code, error) {
	mode := ModeFor(text)
	v, err := SelectVersion(len(text), mode)
	if err != nil {
		return nil, err
	}
	c, err := coding.Encode(v, Level, coding.Segment{Text: text, Mode: mode})
	if err != nil {
		return nil, err
	}
	return &Code{c: c, version: v, mode: mode, text: text}, nil
}

// Size returns the number of modules on a side.
func (c *Code) Size() int { return c.c.Size }

// Black reports whether the module at (x,y) is black.
// Modules outside the code are white.
func (c *Code) Black(x, y int) bool { return c.c.Black(x, y) }

// Version returns the version of the code.
func (c *Code) Version() coding.Version { return c.version }

// Level returns the error correction level, always Level.
func (c *Code) Level() coding.Level { return Level }

// Mode returns the encoding mode of the content.
func (c *Code) Mode() coding.Mode { return c.mode }

// Mask returns the mask pattern applied to the code.
func (c *Code) Mask() int { return c.c.Mask }

// Penalty returns the penalty score of the code as masked.
func (c *Code) Penalty() int { return c.c.Penalty() }

// Content returns the encoded text.
func (c *Code) Content() string { return c.text }

// Stride returns the number of bytes per row of Bitmap.
func (c *Code) Stride() int { return c.c.Stride }

// Bitmap returns a copy of the modules, one bit per module, rows Stride
// bytes apart, most significant bit first.  1 is black.
func (c *Code) Bitmap() []byte {
	return append([]byte(nil), c.c.Bitmap...)
}

// String renders the code with a quiet zone as UTF-8 half blocks,
// two rows of modules per line.  Black modules are drawn.
func (c *Code) String() string {
	const q = QuietZoneModules
	siz := c.Size()
	var b strings.Builder
	b.Grow((siz + 2*q) * ((siz+2*q+1)/2) * 3)
	for y := -q; y < siz+q; y += 2 {
		for x := -q; x < siz+q; x++ {
			b.WriteString([4]string{" ", "▀", "▄", "█"}[pair(c, x, y)])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// pair returns the modules at (x,y) and (x,y+1) as bits 0 and 1.
func pair(m Matrix, x, y int) int {
	p := 0
	if m.Black(x, y) {
		p |= 1
	}
	if m.Black(x, y+1) {
		p |= 2
	}
	return p
}

// Image returns an Image displaying the code at one pixel per module,
// without a quiet zone.  See Render for scaling.
func (c *Code) Image() image.Image { return codeImage{c} }

// Barcode returns the code as a barcode.Barcode, for use with
// github.com/boombuler/barcode functions such as barcode.Scale.
func (c *Code) Barcode() barcode.Barcode { return codeImage{c} }

var (
	whiteColor color.Color = color.Gray{0xFF}
	blackColor color.Color = color.Gray{0x00}
)

// codeImage implements image.Image and barcode.Barcode.
type codeImage struct {
	*Code
}

func (c codeImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.Size(), c.Size())
}

func (c codeImage) At(x, y int) color.Color {
	if c.Black(x, y) {
		return blackColor
	}
	return whiteColor
}

func (codeImage) ColorModel() color.Model { return color.GrayModel }

func (codeImage) Metadata() barcode.Metadata {
	return barcode.Metadata{CodeKind: barcode.TypeQR, Dimensions: 2}
}
