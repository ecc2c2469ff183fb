// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseGlyph(t *testing.T) {
	g, err := parseGlyph("3:040e0e0e1f")
	if err != nil {
		t.Fatal(err)
	}
	want := glyph{slot: 3, pattern: [8]byte{0x04, 0x0e, 0x0e, 0x0e, 0x1f}}
	if diff := cmp.Diff(g, want, cmp.AllowUnexported(glyph{})); diff != "" {
		t.Errorf("mismatch (-got +want):\n%s", diff)
	}
	for _, bad := range []string{"040e", "8:00", "x:00", "1:zz", "1:000102030405060708"} {
		if _, err := parseGlyph(bad); err == nil {
			t.Errorf("parseGlyph(%q) should fail", bad)
		}
	}
}

func TestExpandGlyphs(t *testing.T) {
	if got := expandGlyphs(`a\0b\7\8\`); got != "a\x00b\x07\\8\\" {
		t.Errorf("expandGlyphs() = %q", got)
	}
	if got := fitLine("abcdef", 4); got != "abcd" {
		t.Errorf("fitLine() = %q", got)
	}
}

func runSim(t *testing.T, config string, args ...string) (string, string) {
	t.Helper()
	path := writeFile(t, config)
	var stdout, stderr bytes.Buffer
	if err := mainImpl(append([]string{"-config", path}, args...), &stdout, &stderr); err != nil {
		t.Fatalf("mainImpl() = %v\n%s", err, stderr.String())
	}
	return stdout.String(), stderr.String()
}

func TestSimTerminal(t *testing.T) {
	out, _ := runSim(t, "transport = \"sim\"\n", "-clear", "-cursor", "blink", "Hello", "world", "dropped")
	if !strings.Contains(out, "Hello") || !strings.Contains(out, "world") {
		t.Errorf("terminal output is missing the text:\n%s", out)
	}
	if strings.Contains(out, "dropped") {
		t.Error("a 2 row display shows only 2 lines")
	}
}

func TestSimPNG(t *testing.T) {
	png := filepath.Join(t.TempDir(), "lcd.png")
	config := fmt.Sprintf("transport = \"sim\"\nrows = 4\ncols = 20\n[sim]\nterminal = false\npng = %q\n", png)
	out, _ := runSim(t, config, "-glyph", "0:1f1f1f1f1f1f1f1f", `\0 ok`)
	if out != "" {
		t.Errorf("terminal disabled, got %q", out)
	}
	if _, err := os.Stat(png); err != nil {
		t.Error(err)
	}
}

func TestParseRGB(t *testing.T) {
	c, err := parseRGB("#ff8000")
	if err != nil {
		t.Fatal(err)
	}
	if c[0] != 0xff || c[1] != 0x80 || c[2] != 0 {
		t.Errorf("parseRGB() = %v", c)
	}
	for _, bad := range []string{"", "ff80", "gg0000", "ff800000"} {
		if _, err := parseRGB(bad); err == nil {
			t.Errorf("parseRGB(%q) should fail", bad)
		}
	}
}

func TestSimNoRGB(t *testing.T) {
	_, logs := runSim(t, "[sim]\nterminal = false\n", "-rgb", "00ff00", "x")
	if !strings.Contains(logs, "no RGB backlight") {
		t.Errorf("expected a warning:\n%s", logs)
	}
}

func TestSimTrace(t *testing.T) {
	_, logs := runSim(t, "[log]\nlevel = \"trace\"\n[sim]\nterminal = false\n", "x")
	if !strings.Contains(logs, "data 0x78") {
		t.Errorf("trace is missing the data write:\n%s", logs)
	}
}

func TestPrintConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := mainImpl([]string{"-print-config"}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), `transport = "sim"`) {
		t.Errorf("unexpected output:\n%s", stdout.String())
	}
}

func TestBadFlags(t *testing.T) {
	for _, args := range [][]string{
		{"-cursor", "fat"},
		{"-backlight", "dim"},
		{"-glyph", "9:00"},
		{"-rgb", "fff"},
		{"-config", filepath.Join(t.TempDir(), "missing.toml")},
	} {
		var stdout, stderr bytes.Buffer
		if err := mainImpl(args, &stdout, &stderr); err == nil {
			t.Errorf("mainImpl(%q) should fail", args)
		}
	}
}
