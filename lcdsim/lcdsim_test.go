// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GermanBionicSystems/charlcd/hd44780"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"
)

// send transmits instructions as full bytes, once the controller is in 4-bit
// mode.
func send(t *testing.T, d *Dev, reg hd44780.Register, values ...byte) {
	t.Helper()
	for _, v := range values {
		if err := d.Send(v, reg, hd44780.Byte); err != nil {
			t.Fatal(err)
		}
	}
}

// getFourBit returns a controller switched to 4-bit 2-line mode without
// timing checks.
func getFourBit(t *testing.T, opts *Opts) *Dev {
	d := New(opts)
	if err := d.Prepare(); err != nil {
		t.Fatal(err)
	}
	if err := d.Send(0x02, hd44780.Instruction, hd44780.Nibble); err != nil {
		t.Fatal(err)
	}
	send(t, d, hd44780.Instruction, 0x28, 0x0c, 0x06, 0x01)
	return d
}

func TestNotPrepared(t *testing.T) {
	d := New(nil)
	if err := d.Send(0x03, hd44780.Instruction, hd44780.Nibble); !errors.Is(err, ErrNotPrepared) {
		t.Errorf("expected ErrNotPrepared, got %v", err)
	}
}

func TestPowerOn(t *testing.T) {
	d := New(nil)
	if d.FourBit() || d.TwoLine() {
		t.Error("power on state should be 8-bit 1-line")
	}
	if c := d.Control(); c != 0 {
		t.Errorf("Control() = %s", c)
	}
	if m := d.Mode(); m != hd44780.EntryIncrement {
		t.Errorf("Mode() = %s", m)
	}
	if s := d.String(); s != "lcdsim 16x2" {
		t.Errorf("String() = %q", s)
	}
}

func TestEightBitNibbles(t *testing.T) {
	d := New(nil)
	_ = d.Prepare()
	// In 8-bit mode every strobe is a whole instruction, so 0x32 is two
	// function sets, the second selecting 4-bit mode.
	if err := d.Send(0x32, hd44780.Instruction, hd44780.Byte); err != nil {
		t.Fatal(err)
	}
	want := []Op{{hd44780.Instruction, 0x30}, {hd44780.Instruction, 0x20}}
	if diff := cmp.Diff(d.Ops(), want); diff != "" {
		t.Errorf("Ops() mismatch (-got +want):\n%s", diff)
	}
	if !d.FourBit() {
		t.Error("function set with DL=0 should select 4-bit mode")
	}
}

func TestDDRAMWrap(t *testing.T) {
	d := getFourBit(t, &Opts{Rows: 2, Cols: 16})
	// Last cell of line 1.
	send(t, d, hd44780.Instruction, 0x80|0x27)
	send(t, d, hd44780.Data, 'a', 'b')
	if ac, _ := d.Address(); ac != 0x41 {
		t.Errorf("address 0x%02x, expected 0x41", ac)
	}
	send(t, d, hd44780.Instruction, 0x80|0x67)
	send(t, d, hd44780.Data, 'c')
	if ac, _ := d.Address(); ac != 0x00 {
		t.Errorf("address 0x%02x, expected 0x00", ac)
	}
	// Decrement from 0 wraps to the end of line 2.
	send(t, d, hd44780.Instruction, 0x04)
	send(t, d, hd44780.Data, 'd')
	if ac, _ := d.Address(); ac != 0x67 {
		t.Errorf("address 0x%02x, expected 0x67", ac)
	}
	want := []string{"d               ", "b               "}
	if diff := cmp.Diff(d.Lines(), want); diff != "" {
		t.Errorf("Lines() mismatch (-got +want):\n%s", diff)
	}
}

func TestAutoscroll(t *testing.T) {
	d := getFourBit(t, &Opts{Rows: 1, Cols: 4})
	send(t, d, hd44780.Instruction, 0x80|0x04, 0x07)
	send(t, d, hd44780.Data, '1', '2', '3')
	if s := d.Shift(); s != 3 {
		t.Errorf("Shift() = %d", s)
	}
	if got := d.Lines()[0]; got != " 123" {
		t.Errorf("Lines()[0] = %q", got)
	}
	// Clear resets the shift and forces increment.
	send(t, d, hd44780.Instruction, 0x05, 0x01)
	if s := d.Shift(); s != 0 {
		t.Errorf("Shift() = %d after clear", s)
	}
	if m := d.Mode(); m != hd44780.EntryIncrement|hd44780.EntryShift {
		t.Errorf("Mode() = %s after clear", m)
	}
}

func TestCursorShift(t *testing.T) {
	d := getFourBit(t, nil)
	send(t, d, hd44780.Instruction, 0x80|0x05, 0x14, 0x14, 0x10)
	if col, row, ok := d.CursorPos(); !ok || col != 6 || row != 0 {
		t.Errorf("CursorPos() = %d, %d, %t", col, row, ok)
	}
	send(t, d, hd44780.Instruction, 0x80|0x30)
	if _, _, ok := d.CursorPos(); ok {
		t.Error("address 0x30 is outside a 16 column window")
	}
}

func TestCGRAM(t *testing.T) {
	d := getFourBit(t, nil)
	send(t, d, hd44780.Instruction, 0x40|0x3f)
	send(t, d, hd44780.Data, 0x11, 0x1f)
	if ac, cg := d.Address(); !cg || ac != 0x01 {
		t.Errorf("Address() = 0x%02x, %t", ac, cg)
	}
	want := [8]byte{0x1f}
	if got := d.Glyph(0); got != want {
		t.Errorf("Glyph(0) = %v", got)
	}
	if got := d.Glyph(7)[7]; got != 0x11 {
		t.Errorf("Glyph(7)[7] = 0x%02x", got)
	}
}

func TestViolations(t *testing.T) {
	clock := &Clock{}
	d := New(&Opts{Clock: clock})
	_ = d.Prepare()
	steps := []struct {
		wait time.Duration
		want int
	}{
		{0, 0},
		{4 * time.Millisecond, 1},
		{200 * time.Microsecond, 1},
		{100 * time.Microsecond, 1},
		{10 * time.Microsecond, 2},
	}
	for i, s := range steps {
		clock.Delay(s.wait)
		if err := d.Send(0x03, hd44780.Instruction, hd44780.Nibble); err != nil {
			t.Fatal(err)
		}
		if got := len(d.Violations()); got != s.want {
			t.Errorf("step %d: %d violations, expected %d", i, got, s.want)
		}
	}
	v := d.Violations()[0]
	if v.At != 4*time.Millisecond || v.Early != 100*time.Microsecond {
		t.Errorf("unexpected violation %s", v)
	}
}

func TestPowerCycle(t *testing.T) {
	d := getFourBit(t, nil)
	send(t, d, hd44780.Data, 'x')
	d.PowerCycle()
	if d.FourBit() || len(d.Ops()) != 0 {
		t.Error("PowerCycle() should reset the controller")
	}
	if err := d.Send(0x03, hd44780.Instruction, hd44780.Nibble); err != nil {
		t.Errorf("bus should stay prepared: %v", err)
	}
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	logger := zerolog.New(&buf).Level(zerolog.TraceLevel)
	d := getFourBit(t, &Opts{Logger: &logger})
	send(t, d, hd44780.Data, 'A')
	if !strings.Contains(buf.String(), `"op":"data 0x41"`) {
		t.Errorf("trace is missing the data write:\n%s", buf.String())
	}
}

func TestRender(t *testing.T) {
	d := getFourBit(t, &Opts{Rows: 2, Cols: 16})
	send(t, d, hd44780.Instruction, 0x40)
	send(t, d, hd44780.Data, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f)
	send(t, d, hd44780.Instruction, 0x80)
	send(t, d, hd44780.Data, 0x00, 'H')

	bg := color.NRGBA{0, 0, 0xff, 0xff}
	ink := color.NRGBA{0xff, 0, 0, 0xff}
	img := d.Render(&RenderOpts{Scale: 3, Background: bg, Ink: ink})
	want := image.Rect(0, 0, (2*2+16*6-1)*3, (2*2+2*9-1)*3)
	if img.Bounds() != want {
		t.Fatalf("Bounds() = %v, expected %v", img.Bounds(), want)
	}
	model := color.RGBAModel
	if got := model.Convert(img.At(0, 0)); got != model.Convert(bg) {
		t.Errorf("margin pixel %v", got)
	}
	// Middle of the first dot of the full block glyph at cell 0, 0.
	if got := model.Convert(img.At(2*3+1, 2*3+1)); got != model.Convert(ink) {
		t.Errorf("glyph pixel %v", got)
	}

	// Nothing is drawn with the display off.
	send(t, d, hd44780.Instruction, 0x08)
	img = d.Render(&RenderOpts{Scale: 3, Background: bg, Ink: ink})
	if got := model.Convert(img.At(2*3+1, 2*3+1)); got != model.Convert(bg) {
		t.Errorf("display off pixel %v", got)
	}
}

func TestSavePNG(t *testing.T) {
	d := getFourBit(t, nil)
	send(t, d, hd44780.Data, 'o', 'k')
	if err := d.SavePNG(filepath.Join(t.TempDir(), "lcd.png"), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFont(filepath.Join(t.TempDir(), "missing.ttf"), 12); err == nil {
		t.Error("LoadFont() should fail on a missing file")
	}
}

// drawer records the last image drawn.
type drawer struct {
	bounds image.Rectangle
	img    image.Image
}

func (dr *drawer) String() string             { return "drawer" }
func (dr *drawer) Halt() error                { return nil }
func (dr *drawer) ColorModel() color.Model    { return color.NRGBAModel }
func (dr *drawer) Bounds() image.Rectangle    { return dr.bounds }
func (dr *drawer) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	dr.img = src
	return nil
}

func TestDrawTo(t *testing.T) {
	d := getFourBit(t, nil)
	dst := &drawer{bounds: image.Rect(0, 0, 400, 100)}
	if err := d.DrawTo(dst, nil); err != nil {
		t.Fatal(err)
	}
	// 16 columns are 99 dots wide; 400 pixels fit a scale of 4.
	if got := dst.img.Bounds().Dx(); got != 99*4 {
		t.Errorf("drawn width %d", got)
	}
}

var _ display.Drawer = &drawer{}
