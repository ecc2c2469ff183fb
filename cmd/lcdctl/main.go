// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// lcdctl writes text to an HD44780 character LCD.
//
// Each positional argument is written to the next row. \0 to \7 in the text
// select the CGRAM glyphs loaded with -glyph. With the sim transport, the
// emulated panel is printed on the terminal and can be saved as a PNG.
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/GermanBionicSystems/charlcd/lcdsim"
	"github.com/GermanBionicSystems/charlcd/lcdterm"
	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"
)

// glyph is a -glyph value, slot:hexbytes.
type glyph struct {
	slot    uint8
	pattern [8]byte
}

type glyphFlag []glyph

func (g *glyphFlag) String() string {
	parts := make([]string, len(*g))
	for i, v := range *g {
		parts[i] = fmt.Sprintf("%d:%x", v.slot, v.pattern)
	}
	return strings.Join(parts, ",")
}

func (g *glyphFlag) Set(s string) error {
	v, err := parseGlyph(s)
	if err != nil {
		return err
	}
	*g = append(*g, v)
	return nil
}

func parseGlyph(s string) (glyph, error) {
	slot, rows, ok := strings.Cut(s, ":")
	if !ok {
		return glyph{}, fmt.Errorf("glyph %q: expected slot:hexbytes", s)
	}
	n, err := strconv.ParseUint(slot, 10, 8)
	if err != nil || n > 7 {
		return glyph{}, fmt.Errorf("glyph %q: slot must be 0-7", s)
	}
	raw, err := hex.DecodeString(rows)
	if err != nil {
		return glyph{}, fmt.Errorf("glyph %q: %w", s, err)
	}
	if len(raw) > 8 {
		return glyph{}, fmt.Errorf("glyph %q: at most 8 rows", s)
	}
	g := glyph{slot: uint8(n)}
	copy(g.pattern[:], raw)
	return g, nil
}

// options are the display operations requested on the command line.
type options struct {
	clear      bool
	reinit     bool
	cursor     string
	autoscroll bool
	rtl        bool
	scroll     int
	backlight  string
	rgb        string
	glyphs     glyphFlag
}

func main() {
	if err := mainImpl(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "lcdctl: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("lcdctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "TOML configuration file")
	printConfig := fs.Bool("print-config", false, "print the effective configuration and exit")
	var opts options
	fs.BoolVar(&opts.clear, "clear", false, "clear the display first")
	fs.BoolVar(&opts.reinit, "reinit", false, "run the initialization sequence again")
	fs.StringVar(&opts.cursor, "cursor", "", "cursor style: off, solid or blink")
	fs.BoolVar(&opts.autoscroll, "autoscroll", false, "shift the display on each character")
	fs.BoolVar(&opts.rtl, "rtl", false, "write right to left")
	fs.IntVar(&opts.scroll, "scroll", 0, "scroll the display N positions, negative is left")
	fs.StringVar(&opts.backlight, "backlight", "", "backlight: on or off")
	fs.StringVar(&opts.rgb, "rgb", "", "backlight color as rrggbb, for RGB backlights")
	fs.Var(&opts.glyphs, "glyph", "load a CGRAM glyph, slot:hexbytes (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	switch opts.cursor {
	case "", "off", "solid", "blink":
	default:
		return fmt.Errorf("-cursor: unknown style %q", opts.cursor)
	}
	switch opts.backlight {
	case "", "on", "off":
	default:
		return fmt.Errorf("-backlight: expected on or off, got %q", opts.backlight)
	}
	if opts.rgb != "" {
		if _, err := parseRGB(opts.rgb); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *printConfig {
		return writeConfig(stdout, cfg)
	}
	logger := initLogger(stderr, "lcdctl", cfg.Log.Level)

	t, err := openTarget(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := t.Close(); err != nil {
			logger.Warn().Err(err).Msg("close failed")
		}
	}()
	logger.Debug().Str("transport", cfg.Transport).Stringer("dev", t.dev).Msg("opened display")

	if err := apply(t, cfg, &opts, fs.Args(), logger); err != nil {
		return err
	}
	if t.sim != nil {
		return showSim(t.sim, cfg.Sim, stdout, logger)
	}
	return nil
}

// apply runs the requested operations in a fixed order: initialization,
// glyphs, clear, entry mode, text, cursor, scroll.
func apply(t *target, cfg Config, opts *options, lines []string, logger zerolog.Logger) error {
	dev := t.dev
	if opts.reinit {
		if err := dev.Reinitialize(); err != nil {
			return err
		}
	}
	if opts.backlight != "" {
		if t.backlight == nil {
			logger.Warn().Str("transport", cfg.Transport).Msg("no backlight control")
		} else if err := t.backlight.Backlight(boolIntensity(opts.backlight == "on")); err != nil {
			return err
		}
	}
	if opts.rgb != "" {
		c, err := parseRGB(opts.rgb)
		if err != nil {
			return err
		}
		if t.rgb == nil {
			logger.Warn().Str("transport", cfg.Transport).Msg("no RGB backlight")
		} else if err := t.rgb.RGBBacklight(c[0], c[1], c[2]); err != nil {
			return err
		}
	}
	for _, g := range opts.glyphs {
		if err := dev.LoadCustomCharacter(g.pattern, g.slot); err != nil {
			return err
		}
		logger.Debug().Uint8("slot", g.slot).Hex("pattern", g.pattern[:]).Msg("loaded glyph")
	}
	if opts.clear {
		if err := dev.Clear(); err != nil {
			return err
		}
	}
	if opts.rtl {
		if err := dev.RightToLeft(); err != nil {
			return err
		}
	}
	if opts.autoscroll {
		if err := dev.Autoscroll(); err != nil {
			return err
		}
	}
	for i, line := range lines {
		if i >= cfg.Rows {
			logger.Warn().Int("rows", cfg.Rows).Int("lines", len(lines)).Msg("extra lines dropped")
			break
		}
		text := fitLine(expandGlyphs(line), cfg.Cols)
		x := uint8(0)
		if opts.rtl {
			x = uint8(cfg.Cols - 1)
		}
		if err := dev.GotoXY(x, uint8(i)); err != nil {
			return err
		}
		if _, err := dev.WriteString(text); err != nil {
			return err
		}
	}
	switch opts.cursor {
	case "off":
		if err := dev.HideCursor(); err != nil {
			return err
		}
	case "solid":
		if err := dev.CursorSolid(); err != nil {
			return err
		}
	case "blink":
		if err := dev.CursorBlinking(); err != nil {
			return err
		}
	}
	for n := opts.scroll; n != 0; {
		var err error
		if n < 0 {
			err = dev.ScrollDisplayLeft()
			n++
		} else {
			err = dev.ScrollDisplayRight()
			n--
		}
		if err != nil {
			return err
		}
	}
	// Leaves the controller initialized even when nothing was requested.
	return dev.Init()
}

func boolIntensity(on bool) display.Intensity {
	if on {
		return 0xff
	}
	return 0
}

// parseRGB decodes rrggbb.
func parseRGB(s string) ([3]display.Intensity, error) {
	var c [3]display.Intensity
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "#"))
	if err != nil || len(raw) != 3 {
		return c, fmt.Errorf("-rgb: expected rrggbb, got %q", s)
	}
	for i, v := range raw {
		c[i] = display.Intensity(v)
	}
	return c, nil
}

// expandGlyphs replaces \0 to \7 with the matching CGRAM character code.
func expandGlyphs(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7' {
			sb.WriteByte(s[i+1] - '0')
			i++
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// fitLine truncates s to cols characters.
func fitLine(s string, cols int) string {
	if len(s) > cols {
		return s[:cols]
	}
	return s
}

func showSim(sim *lcdsim.Dev, cfg SimConfig, stdout io.Writer, logger zerolog.Logger) error {
	var errs []error
	for _, v := range sim.Violations() {
		logger.Warn().Stringer("violation", v).Msg("timing")
	}
	if cfg.Terminal {
		w := stdout
		if f, ok := stdout.(*os.File); ok {
			w = colorable.NewColorable(f)
		}
		term := lcdterm.New(&lcdterm.Opts{W: w})
		errs = append(errs, term.RenderSim(sim), term.Halt())
	}
	if cfg.PNG != "" {
		ro := &lcdsim.RenderOpts{}
		if cfg.Font != "" {
			face, err := lcdsim.LoadFont(cfg.Font, cfg.FontSize)
			if err != nil {
				return err
			}
			ro.Face = face
		}
		if err := sim.SavePNG(cfg.PNG, ro); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.PNG).Msg("saved")
	}
	return errors.Join(errs...)
}
