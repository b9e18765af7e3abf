// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/unixdj/qrcard"
	"github.com/unixdj/qrcard/internal/config"
	"github.com/unixdj/qrcard/label"
	"github.com/unixdj/qrcard/payload"
)

// A card is the input of the command.
type card struct {
	id   string
	date payload.Date
}

var prompts = [4]string{"Card number: ", "Year: ", "Month: ", "Day: "}

// parseCard parses the identifier, year, month and day.
func parseCard(f []string) (card, error) {
	if len(f) != 4 {
		return card{}, fmt.Errorf("need 4 fields, got %d", len(f))
	}
	var ymd [3]int
	for i, s := range f[1:] {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return card{}, fmt.Errorf("%s%q: not a number",
				strings.ToLower(prompts[i+1]), s)
		}
		ymd[i] = n
	}
	c := card{f[0], payload.Date{Year: ymd[0], Month: ymd[1], Day: ymd[2]}}
	if err := payload.CheckIdentifier(c.id); err != nil {
		return card{}, err
	}
	return c, c.date.Validate()
}

// readCard reads the fields of a card from r, one per line, printing
// prompts to w unless w is nil.
func readCard(r io.Reader, w io.Writer) (card, error) {
	sc := bufio.NewScanner(r)
	var f [4]string
	for i, p := range prompts {
		if w != nil {
			fmt.Fprint(w, p)
		}
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return card{}, err
			}
			return card{}, io.ErrUnexpectedEOF
		}
		f[i] = strings.TrimSpace(sc.Text())
	}
	return parseCard(f[:])
}

// stageError records the pipeline stage that failed.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func fail(stage string, err error) error {
	return &stageError{stage, err}
}

// job is one run of the pipeline.
type job struct {
	cfg    *config.Config
	log    *zap.Logger
	font   *label.Font
	term   io.Writer // if not nil, the code is printed here
	dryRun bool
}

// run encodes c and writes the card image, returning its path.
func (j *job) run(c card) (string, error) {
	p, err := payload.New(c.id, c.date)
	if err != nil {
		return "", fail("payload", err)
	}
	text, err := p.Text()
	if err != nil {
		return "", fail("payload", err)
	}
	j.log.Info("payload", zap.String("base64", text),
		zap.Int64("timestamp", p.Timestamp))

	code, err := qr.Encode(text)
	if err != nil {
		return "", fail("encode", err)
	}
	j.log.Debug("encoded", zap.Int("version", int(code.Version())),
		zap.Stringer("mode", code.Mode()), zap.Int("mask", code.Mask()),
		zap.Int("penalty", code.Penalty()))
	if j.term != nil {
		fmt.Fprint(j.term, code)
	}

	cfg := j.cfg
	img, err := qr.Render(code, qr.RenderOptions{
		Scale:     cfg.Scale,
		QuietZone: cfg.QuietZone,
		MinSize:   cfg.MinSize,
		MaxSize:   cfg.MaxSize,
	})
	if err != nil {
		return "", fail("render", err)
	}
	canvas, err := label.Compose(img, c.date.Format(cfg.Label), j.font,
		label.Layout{
			Width:  cfg.Width,
			Top:    cfg.Top,
			Gap:    cfg.Gap,
			Bottom: cfg.Bottom,
		})
	if err != nil {
		return "", fail("compose", err)
	}

	name := filepath.Join(cfg.OutputDir, payload.Filename(c.id, c.date))
	if j.dryRun {
		j.log.Info("dry run", zap.String("file", name),
			zap.Stringer("size", canvas.Bounds().Size()))
		return name, nil
	}
	if err := writePNG(name, canvas); err != nil {
		return "", fail("write", err)
	}
	j.log.Info("saved", zap.String("file", name),
		zap.Stringer("size", canvas.Bounds().Size()))
	return name, nil
}

// openFont returns the font named in cfg, or Go Regular.
func openFont(cfg *config.Config) (*label.Font, error) {
	if cfg.Font == "" {
		return label.Default(cfg.FontSize)
	}
	data, err := os.ReadFile(cfg.Font)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", label.ErrFontLoad, err)
	}
	return label.Load(data, cfg.FontSize)
}

// writePNG writes img to a temporary file in the directory of name and
// renames it to name, leaving no file on failure.
func writePNG(name string, img image.Image) (err error) {
	f, err := os.CreateTemp(filepath.Dir(name), ".qrcard-*.png")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err = enc.Encode(f, img); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Chmod(f.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(f.Name(), name)
}

// stage returns the failing stage of err and its cause.
func stage(err error) (string, error) {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage, se.err
	}
	return "input", err
}
