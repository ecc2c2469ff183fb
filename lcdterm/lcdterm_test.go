// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdterm

import (
	"bytes"
	"image/color"
	"strings"
	"testing"

	"github.com/GermanBionicSystems/charlcd/lcdsim"
	"github.com/maruel/ansi256"
)

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	d := New(&Opts{W: &buf})
	if s := d.String(); s != "LCDTerm" {
		t.Errorf("String() = %q", s)
	}
	if err := d.Render([]string{"Hello", "wo" + string(lcdsim.GlyphRune) + "ld"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Hello") || !strings.Contains(out, "wo") {
		t.Errorf("frame is missing the text: %q", out)
	}
	if strings.ContainsRune(out, lcdsim.GlyphRune) {
		t.Error("glyph marker should be drawn as a block")
	}
	ink := ansi256.Default.Block(lcdsim.DefaultInk)
	if !strings.Contains(out, ink) {
		t.Error("glyph block missing")
	}
	// 2 text rows plus the top and bottom border.
	if n := strings.Count(out, "\n"); n != 4 {
		t.Errorf("%d lines, expected 4", n)
	}
	if strings.Contains(out, "\033[4A") {
		t.Error("first frame should not move the cursor up")
	}

	buf.Reset()
	if err := d.Render([]string{"again", ""}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "\033[4A") {
		t.Errorf("second frame should redraw in place: %q", buf.String())
	}

	buf.Reset()
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "\n\033[0m" {
		t.Errorf("Halt() wrote %q", got)
	}
}

func TestRenderSim(t *testing.T) {
	var buf bytes.Buffer
	d := New(&Opts{W: &buf})
	sim := lcdsim.New(&lcdsim.Opts{Rows: 4, Cols: 20})
	if err := d.RenderSim(sim); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 6 {
		t.Errorf("%d lines, expected 6", n)
	}
}

func TestColors(t *testing.T) {
	var buf bytes.Buffer
	d := New(&Opts{W: &buf, Backlight: color.RGBA{0, 0, 0xff, 0xff}, Ink: color.Gray{0xff}})
	if err := d.Render([]string{string(lcdsim.GlyphRune)}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if bl := ansi256.Default.Block(color.NRGBA{0, 0, 0xff, 0xff}); !strings.Contains(out, bl) {
		t.Errorf("backlight block missing: %q", out)
	}
	if ink := ansi256.Default.Block(color.NRGBA{0xff, 0xff, 0xff, 0xff}); !strings.Contains(out, ink) {
		t.Errorf("ink block missing: %q", out)
	}
}
