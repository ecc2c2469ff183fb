// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdterm draws the text of a character LCD on a terminal using ANSI
// color codes, framed by the backlight.
//
// Pair it with lcdsim to watch a program drive a display that is still in
// the mail.
package lcdterm

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/GermanBionicSystems/charlcd/lcdsim"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// Opts represents the options available for this display.
type Opts struct {
	// W receives the frames. Defaults to a colorable stdout.
	W       io.Writer
	Palette *ansi256.Palette
	// Backlight colors the frame, Ink the cells showing a CGRAM glyph.
	Backlight, Ink color.Color

	_ struct{}
}

// Dev redraws frames in place on a terminal.
type Dev struct {
	w         io.Writer
	palette   ansi256.Palette
	backlight color.NRGBA
	ink       color.NRGBA

	height int
	buf    bytes.Buffer
}

// New returns a Dev writing to the terminal.
func New(opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	d := &Dev{
		w:         opts.W,
		palette:   *p,
		backlight: toNRGBA(opts.Backlight, lcdsim.DefaultBackground),
		ink:       toNRGBA(opts.Ink, lcdsim.DefaultInk),
	}
	if d.w == nil {
		d.w = colorable.NewColorableStdout()
	}
	return d
}

func toNRGBA(c color.Color, def color.NRGBA) color.NRGBA {
	if c == nil {
		return def
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

func (d *Dev) String() string {
	return "LCDTerm"
}

// Halt resets the terminal colors below the last frame.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Render draws lines as one frame. A frame replaces the previous one when
// nothing else was written to the terminal in between.
func (d *Dev) Render(lines []string) error {
	width := 0
	for _, l := range lines {
		if n := utf8.RuneCountInString(l); n > width {
			width = n
		}
	}
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	if d.height != 0 {
		fmt.Fprintf(&d.buf, "\033[%dA", d.height)
	}
	bl := d.palette.Block(d.backlight)
	border := strings.Repeat(bl, width+2)
	d.line(border)
	for _, l := range lines {
		_, _ = d.buf.WriteString("\r\033[0m")
		_, _ = d.buf.WriteString(bl)
		_, _ = d.buf.WriteString("\033[0m")
		n := 0
		for _, r := range l {
			if r == lcdsim.GlyphRune {
				_, _ = d.buf.WriteString(d.palette.Block(d.ink))
				_, _ = d.buf.WriteString("\033[0m")
			} else {
				_, _ = d.buf.WriteRune(r)
			}
			n++
		}
		_, _ = d.buf.WriteString(strings.Repeat(" ", width-n))
		_, _ = d.buf.WriteString(bl)
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	d.line(border)
	d.height = len(lines) + 2
	_, err := d.buf.WriteTo(d.w)
	return err
}

func (d *Dev) line(s string) {
	_, _ = d.buf.WriteString("\r\033[0m")
	_, _ = d.buf.WriteString(s)
	_, _ = d.buf.WriteString("\033[0m\n")
}

// RenderSim draws the current content of an emulated display.
func (d *Dev) RenderSim(sim *lcdsim.Dev) error {
	return d.Render(sim.Lines())
}

var _ fmt.Stringer = &Dev{}
