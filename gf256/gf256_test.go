// Copyright 2010 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gf256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var f = NewField(0x11d, 2) // x^8 + x^4 + x^3 + x^2 + 1

func TestBasic(t *testing.T) {
	require.Equal(t, 0, f.Log(1))
	require.Equal(t, byte(1), f.Exp(0))
	require.Equal(t, -1, f.Log(0))
	require.Equal(t, byte(0), f.Exp(-1))
	for i := 0; i < 255; i++ {
		require.Equal(t, i, f.Log(f.Exp(i)), "Log(Exp(%d))", i)
	}
	require.Equal(t, byte(0), f.Inv(0))
	for i := 1; i < 256; i++ {
		x := byte(i)
		require.Equal(t, x, f.Exp(f.Log(x)), "Exp(Log(%#x))", x)
		require.Equal(t, byte(1), f.Mul(x, f.Inv(x)), "%#x * Inv", x)
		require.Equal(t, byte(0), f.Add(x, x))
		require.Equal(t, byte(0), f.Mul(x, 0))
	}
}

func TestMulMatchesShiftAndAdd(t *testing.T) {
	for x := 0; x < 256; x += 7 {
		for y := 0; y < 256; y += 5 {
			require.Equal(t, byte(mul(x, y, 0x11d)),
				f.Mul(byte(x), byte(y)), "%#x * %#x", x, y)
		}
	}
}

func TestInvalidField(t *testing.T) {
	require.Panics(t, func() { NewField(0x11b+0x100, 2) }, "degree 9")
	require.Panics(t, func() { NewField(0x1ff, 2) }, "reducible")
	require.Panics(t, func() { NewField(0x11b, 2) }, "2 is not a generator mod 0x11b")
	require.NotPanics(t, func() { NewField(0x11b, 3) })
}

func TestGenerator(t *testing.T) {
	// (x - 1)(x - 2) = x² + 3x + 2
	gen, lgen := f.gen(2)
	require.Equal(t, []byte{1, 3, 2}, gen)
	require.Equal(t, []byte{0, byte(f.Log(3)), 1}, lgen)
}

func TestECC(t *testing.T) {
	tests := []struct {
		name        string
		data, check []byte
	}{
		{
			// numeric "01234567", version 1-M
			name: "numeric",
			data: []byte{
				0x10, 0x20, 0x0c, 0x56, 0x61, 0x80, 0xec, 0x11,
				0xec, 0x11, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11,
			},
			check: []byte{
				0xa5, 0x24, 0xd4, 0xc1, 0xed, 0x36, 0xc7, 0x87,
				0x2c, 0x55,
			},
		},
		{
			// alphanumeric "HELLO WORLD", version 1-M
			name: "alphanumeric",
			data: []byte{
				0x20, 0x5b, 0x0b, 0x78, 0xd1, 0x72, 0xdc, 0x4d,
				0x43, 0x40, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11,
			},
			check: []byte{
				0xc4, 0x23, 0x27, 0x77, 0xeb, 0xd7, 0xe7, 0xe2,
				0x5d, 0x17,
			},
		},
	}
	rs := NewRSEncoder(f, 10)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := make([]byte, 10)
			rs.ECC(tt.data, check)
			require.Equal(t, tt.check, check)
			// the scratch buffer is reused
			rs.ECC(tt.data, check)
			require.Equal(t, tt.check, check)
		})
	}
}

func TestECCRemainderIsZero(t *testing.T) {
	// A codeword followed by its check bytes is divisible by the
	// generator, so its check bytes are all zero.
	rs := NewRSEncoder(f, 16)
	data := []byte("reed-solomon over gf(256)")
	check := make([]byte, 16)
	rs.ECC(data, check)
	full := append(append([]byte{}, data...), check...)
	zero := make([]byte, 16)
	rs.ECC(full, zero)
	require.Equal(t, make([]byte, 16), zero)
}

func BenchmarkECC(b *testing.B) {
	data := []byte{0x10, 0x20, 0x0c, 0x56, 0x61, 0x80, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11}
	check := make([]byte, 26)
	rs := NewRSEncoder(f, len(check))
	b.SetBytes(int64(len(data)))
	for i := 0; i < b.N; i++ {
		rs.ECC(data, check)
	}
}
