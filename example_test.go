// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qr_test

import (
	"fmt"
	"log"

	"github.com/unixdj/qrcard"
)

func ExampleEncode() {
	c, err := qr.Encode("HELLO WORLD")
	if err != nil {
		log.Fatalln(err)
	}
	fmt.Println(c.Version(), c.Level(), c.Mode(), c.Size())
	// Output: 1 M alphanumeric 21
}

func ExampleRender() {
	c, err := qr.Encode("eyJjYXJkTm8iOiJYMSIsInRpbWVTdGFtcCI6MTcwMzQzMzYwMH0=")
	if err != nil {
		log.Fatalln(err)
	}
	img, err := qr.Render(c, qr.RenderOptions{Scale: 4, MaxSize: 160})
	if err != nil {
		log.Fatalln(err)
	}
	fmt.Println(c.Version(), img.Bounds())
	// Output: 4 (0,0)-(132,132)
}
