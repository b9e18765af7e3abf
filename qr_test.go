// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qr_test

import (
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/boombuler/barcode"
	bqr "github.com/boombuler/barcode/qr"
	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/require"

	"github.com/unixdj/qrcard"
	"github.com/unixdj/qrcard/coding"
	"github.com/unixdj/qrcard/payload"
)

func TestModeFor(t *testing.T) {
	tests := []struct {
		text string
		mode coding.Mode
	}{
		{"", coding.Byte},
		{"0123456789", coding.Numeric},
		{"HELLO WORLD", coding.Alphanumeric},
		{"A1 $%*+-./:", coding.Alphanumeric},
		{"Hello", coding.Byte},
		{"eyJjYXJkTm8iOiJYMSJ9", coding.Byte},
		{"QUJD=", coding.Byte},
		{"日本", coding.Byte},
	}
	for _, tt := range tests {
		require.Equal(t, tt.mode, qr.ModeFor(tt.text), "%q", tt.text)
	}
}

func TestSelectVersion(t *testing.T) {
	tests := []struct {
		n    int
		mode coding.Mode
		v    coding.Version
	}{
		{0, coding.Byte, 1},
		{14, coding.Byte, 1},
		{15, coding.Byte, 2},
		{26, coding.Byte, 2},
		{27, coding.Byte, 3},
		{42, coding.Byte, 3},
		{43, coding.Byte, 4},
		{62, coding.Byte, 4},
		{63, coding.Byte, 5},
		{2331, coding.Byte, 40},
		{34, coding.Numeric, 1},
		{35, coding.Numeric, 2},
		{20, coding.Alphanumeric, 1},
		{21, coding.Alphanumeric, 2},
	}
	for _, tt := range tests {
		v, err := qr.SelectVersion(tt.n, tt.mode)
		require.NoError(t, err)
		require.Equal(t, tt.v, v, "%d characters in %s mode", tt.n, tt.mode)
	}

	_, err := qr.SelectVersion(2332, coding.Byte)
	require.ErrorIs(t, err, qr.ErrPayloadTooLarge)
	_, err = qr.Encode(strings.Repeat("a", 2332))
	require.ErrorIs(t, err, qr.ErrPayloadTooLarge)
}

func TestCapacityMonotonic(t *testing.T) {
	for _, mode := range []coding.Mode{coding.Numeric, coding.Alphanumeric, coding.Byte} {
		prev := coding.MinVersion
		for n := 0; ; n++ {
			v, err := qr.SelectVersion(n, mode)
			if errors.Is(err, qr.ErrPayloadTooLarge) {
				require.Equal(t, coding.MaxVersion, prev)
				break
			}
			require.NoError(t, err)
			require.GreaterOrEqual(t, v, prev, "%d characters in %s mode", n, mode)
			prev = v
		}
	}
}

func TestSelectVersionMatchesGoQRCode(t *testing.T) {
	for _, n := range []int{1, 14, 15, 26, 27, 61, 62, 63, 100, 213, 214, 500, 1000, 2000, 2331} {
		text := strings.Repeat("a", n)
		want, err := qrcode.New(text, qrcode.Medium)
		require.NoError(t, err)
		c, err := qr.Encode(text)
		require.NoError(t, err)
		require.Equal(t, want.VersionNumber, int(c.Version()), "%d bytes", n)
	}
}

// finderAt checks a position box with its top left corner at x, y.
func finderAt(t *testing.T, m qr.Matrix, x, y int) {
	t.Helper()
	for dy := -1; dy < 8; dy++ {
		for dx := -1; dx < 8; dx++ {
			d := max(abs(dx-3), abs(dy-3))
			require.Equal(t, d != 2 && d != 4, m.Black(x+dx, y+dy),
				"finder at %d,%d: module %d,%d", x, y, dx, dy)
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func finders(t *testing.T, m qr.Matrix) {
	t.Helper()
	siz := m.Size()
	finderAt(t, m, 0, 0)
	finderAt(t, m, siz-7, 0)
	finderAt(t, m, 0, siz-7)
}

var texts = []string{
	"",
	"0",
	"HELLO WORLD",
	"eyJjYXJkTm8iOiJYMSIsInRpbWVTdGFtcCI6MTcwMzQzMzYwMH0=",
	strings.Repeat("0123456789", 20),
	strings.Repeat("base64+/", 60),
}

func TestFinderFixedPoints(t *testing.T) {
	for _, text := range texts {
		c, err := qr.Encode(text)
		require.NoError(t, err)
		require.Equal(t, int(c.Version())*4+17, c.Size())
		finders(t, c)
	}
}

func TestMaskOptimality(t *testing.T) {
	for _, text := range texts {
		c, err := qr.Encode(text)
		require.NoError(t, err)
		e, err := coding.NewEncoder(c.Version(), c.Level())
		require.NoError(t, err)
		require.NoError(t, e.Write(coding.Segment{Text: text, Mode: c.Mode()}))
		for mask := 0; mask < 8; mask++ {
			m, err := e.CodeMask(mask)
			require.NoError(t, err)
			require.LessOrEqual(t, c.Penalty(), m.Penalty(), "%q mask %d", text, mask)
			if mask == c.Mask() {
				require.Equal(t, m.Bitmap, c.Bitmap())
			}
		}
	}
}

func TestEncodeIdempotent(t *testing.T) {
	text, _, err := payload.Encode("ABC123", 2024, 1, 1)
	require.NoError(t, err)
	a, err := qr.Encode(text)
	require.NoError(t, err)
	b, err := qr.Encode(text)
	require.NoError(t, err)
	require.Equal(t, a.Bitmap(), b.Bitmap())
	require.Equal(t, a.Mask(), b.Mask())

	opt := qr.RenderOptions{Scale: 3, QuietZone: true}
	ia, err := qr.Render(a, opt)
	require.NoError(t, err)
	ib, err := qr.Render(b, opt)
	require.NoError(t, err)
	require.Equal(t, ia.Pix, ib.Pix)
}

func TestEncodeScenario(t *testing.T) {
	text, ts, err := payload.Encode("X1", 2023, 12, 25)
	require.NoError(t, err)
	require.Equal(t, int64(1703433600), ts)
	c, err := qr.Encode(text)
	require.NoError(t, err)
	require.Equal(t, coding.Byte, c.Mode())
	want, err := qr.SelectVersion(len(text), coding.Byte)
	require.NoError(t, err)
	require.Equal(t, want, c.Version())
	if c.Version() > 1 {
		_, err := coding.Encode(c.Version()-1, coding.M,
			coding.Segment{Text: text, Mode: coding.Byte})
		require.Error(t, err, "a smaller version holds the text")
	}
	require.Equal(t, text, c.Content())
}

func TestBitmapIsCopy(t *testing.T) {
	c, err := qr.Encode("immutable")
	require.NoError(t, err)
	b := c.Bitmap()
	require.True(t, c.Black(0, 0))
	for i := range b {
		b[i] = 0
	}
	require.True(t, c.Black(0, 0))
	require.Len(t, b, c.Size()*c.Stride())
}

func TestString(t *testing.T) {
	c, err := qr.Encode("HELLO WORLD")
	require.NoError(t, err)
	w := c.Size() + 2*qr.QuietZoneModules
	lines := strings.Split(strings.TrimSuffix(c.String(), "\n"), "\n")
	require.Len(t, lines, (w+1)/2)
	for _, l := range lines {
		require.Equal(t, w, utf8.RuneCountInString(l))
	}
	require.Equal(t, strings.Repeat(" ", w), lines[0])
	// Rows 0 and 1 of the top left finder.
	require.Equal(t, "    █▀▀▀▀▀█", lines[2][:4+7*3])
}

func TestBarcode(t *testing.T) {
	c, err := qr.Encode("HELLO WORLD")
	require.NoError(t, err)
	bc := c.Barcode()
	require.Equal(t, barcode.Metadata{CodeKind: "QR Code", Dimensions: 2}, bc.Metadata())
	require.Equal(t, "HELLO WORLD", bc.Content())
	require.Equal(t, image.Rect(0, 0, 21, 21), bc.Bounds())

	scaled, err := barcode.Scale(bc, 84, 84)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 84, 84), scaled.Bounds())
	require.Equal(t, color.Gray16Model.Convert(color.Black),
		color.Gray16Model.Convert(scaled.At(1, 1)))

	m := qr.FromBarcode(bc)
	require.Equal(t, c.Size(), m.Size())
	for y := -1; y <= c.Size(); y++ {
		for x := -1; x <= c.Size(); x++ {
			require.Equal(t, c.Black(x, y), m.Black(x, y))
		}
	}
}

func TestFromBoombuler(t *testing.T) {
	bc, err := bqr.Encode("HELLO WORLD", bqr.M, bqr.AlphaNumeric)
	require.NoError(t, err)
	m := qr.FromBarcode(bc)
	require.Equal(t, 21, m.Size())
	finders(t, m)

	// Same version, fixed patterns alike.
	c, err := qr.Encode("HELLO WORLD")
	require.NoError(t, err)
	require.Equal(t, c.Size(), m.Size())
	for i := 8; i < 13; i++ {
		require.Equal(t, c.Black(6, i), m.Black(6, i), "timing")
	}

	img, err := qr.Render(m, qr.RenderOptions{Scale: 2})
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 42, 42), img.Bounds())
}
