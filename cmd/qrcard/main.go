// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Qrcard writes a card image: a QR code of a card number and the start
// of its validity, with the date printed below the code.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pborman/getopt/v2"
	"go.uber.org/zap"

	"github.com/unixdj/qrcard/internal/config"
	"github.com/unixdj/qrcard/internal/logger"
)

// options are the command line options.  Options that were seen
// override the configuration.
type options struct {
	set    *getopt.Set
	config string        // configuration file
	print  bool          // print the code to the terminal
	dryRun bool          // do not write the image
	json   bool          // JSON logs
	flags  config.Config // option values
	fields map[getopt.Option]func(dst, src *config.Config)
}

func newOptions() *options {
	o := &options{
		set:    getopt.New(),
		flags:  *config.Defaults(),
		fields: make(map[getopt.Option]func(dst, src *config.Config)),
	}
	s, f := o.set, &o.flags
	bind := func(op getopt.Option, apply func(dst, src *config.Config)) {
		o.fields[op] = apply
	}
	s.SetParameters("[card year month day]")
	s.SetUsage(func() { usage(s) })
	s.Flag(opt(func() { help(s) }), 'h', "show this help").SetFlag()
	s.Flag(opt(version), 'V', "print version and copyright").SetFlag()
	s.FlagLong(&o.config, "config", 'c', `configuration file [`+
		config.DefaultPath+`, if it exists]`, "file")
	bind(s.FlagLong(&f.OutputDir, "output", 'o', "output directory",
		"dir"), func(d, v *config.Config) { d.OutputDir = v.OutputDir })
	bind(s.FlagLong(&f.Scale, "scale", 's', `preferred pixels per `+
		`module; 0 for the smallest within bounds`, "scale"),
		func(d, v *config.Config) { d.Scale = v.Scale })
	bind(s.FlagLong(&f.QuietZone, "quiet-zone", 'm',
		"add a 4 module quiet zone"),
		func(d, v *config.Config) { d.QuietZone = v.QuietZone })
	bind(s.FlagLong(&f.MinSize, "min", 0, "minimum code size in pixels",
		"pixels"), func(d, v *config.Config) { d.MinSize = v.MinSize })
	bind(s.FlagLong(&f.MaxSize, "max", 0, `maximum code size in `+
		`pixels; 0 for none`, "pixels"),
		func(d, v *config.Config) { d.MaxSize = v.MaxSize })
	bind(s.FlagLong(&f.Width, "width", 'w', "image width in pixels",
		"pixels"), func(d, v *config.Config) { d.Width = v.Width })
	bind(s.FlagLong(&f.Font, "font", 'f', `TrueType or OpenType font `+
		`file or collection; default Go Regular`, "file"),
		func(d, v *config.Config) { d.Font = v.Font })
	bind(s.FlagLong(&f.FontSize, "font-size", 'F', "font size in pixels",
		"size"), func(d, v *config.Config) { d.FontSize = v.FontSize })
	bind(s.FlagLong(&f.Label, "label", 'l', `label text, with the date `+
		`formatted as in Go's time.Layout, e.g. "有效日期：2006年1月2日"`,
		"layout"), func(d, v *config.Config) { d.Label = v.Label })
	bind(s.FlagLong(&f.LogLevel, "log-level", 'v', `log level: `+
		`debug, info, warn or error`, "level"),
		func(d, v *config.Config) { d.LogLevel = v.LogLevel })
	bind(s.FlagLong(&o.json, "json", 'j', "log in JSON"),
		func(d, _ *config.Config) { d.LogFormat = logger.JSON })
	s.FlagLong(&o.print, "print", 'p', "print the code to the terminal")
	s.FlagLong(&o.dryRun, "dry-run", 'n', "do not write the image")
	return o
}

// parse parses args, args[0] being the program name.
func (o *options) parse(args []string) error {
	return o.set.Getopt(args, nil)
}

// apply overrides c with the options seen.
func (o *options) apply(c *config.Config) {
	o.set.Visit(func(op getopt.Option) {
		if f := o.fields[op]; f != nil {
			f(c, &o.flags)
		}
	})
}

// load returns the configuration with the options applied.
func (o *options) load() (*config.Config, error) {
	if err := config.LoadDotenv(".env"); err != nil {
		return nil, err
	}
	path := o.config
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if o.config == "" && errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Load("")
	}
	if err != nil {
		return nil, err
	}
	o.apply(cfg)
	return cfg, cfg.Validate()
}

func printUsage(w io.Writer, s *getopt.Set) {
	fmt.Fprint(w, "QR code card generator\nUsage: ", s.UsageLine(), `
With no arguments, the card number, year, month and day are read from
standard input, one per line.  The image is written to the output
directory as card_YYYY-MM-DD.png.  Options override the configuration
file and QRCARD_* environment variables.

`)
	s.PrintOptions(w)
}

type opt func()

func (opt) String() string                    { return "" }
func (o opt) Set(string, getopt.Option) error { o(); return nil }

func usage(s *getopt.Set) {
	printUsage(os.Stderr, s)
	os.Exit(2)
}

func help(s *getopt.Set) {
	printUsage(os.Stdout, s)
	os.Exit(0)
}

func version() {
	fmt.Println(`qrcard version 1.0.0
Copyright (c) 2011 The Go Authors
Copyright (c) 2024 Vadim Vygonets`)
	os.Exit(0)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func main() {
	o := newOptions()
	if err := o.parse(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage(o.set)
	}
	args := o.set.Args()
	if len(args) != 0 && len(args) != 4 {
		fmt.Fprintf(os.Stderr, "expected 4 arguments, got %d\n",
			len(args))
		usage(o.set)
	}

	cfg, err := o.load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()
	if err := run(o, cfg, log, args); err != nil {
		st, cause := stage(err)
		log.Error("failed", zap.String("stage", st), zap.Error(cause))
		log.Sync()
		os.Exit(1)
	}
}

func run(o *options, cfg *config.Config, log *zap.Logger, args []string) error {
	var (
		c   card
		err error
	)
	if len(args) == 4 {
		c, err = parseCard(args)
	} else {
		var w io.Writer
		if isTerminal(os.Stdin) {
			w = os.Stdout
		}
		c, err = readCard(os.Stdin, w)
	}
	if err != nil {
		return err
	}

	f, err := openFont(cfg)
	if err != nil {
		return fail("font", err)
	}
	defer f.Close()
	j := &job{cfg: cfg, log: log, font: f, dryRun: o.dryRun}
	if o.print {
		j.term = os.Stdout
	}
	_, err = j.run(c)
	return err
}
