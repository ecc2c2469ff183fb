// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdsim emulates an HD44780 controller behind an hd44780.Bus.
//
// It decodes the nibble stream the way the controller does, starting in 8-bit
// mode at power on, and keeps DDRAM, CGRAM, the address counter, display
// shift, entry mode and display control. Useful while you are waiting for your
// display to come by mail, and for checking timing: with a Clock shared with
// hd44780.Dev, every strobe that reaches the controller while it is still
// busy is recorded as a Violation.
package lcdsim

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GermanBionicSystems/charlcd/hd44780"
	"github.com/rs/zerolog"
)

const (
	ddramSize = 0x80
	cgramSize = 0x40

	// Cells per line in 2-line mode, and in total in 1-line mode.
	lineLen2 = 40
	lineLen1 = 80
	line2    = 0x40
)

// Execution times from Table 6 of the datasheet, and Figure 24 for the
// function sets following power on.
const (
	execDefault  = 37 * time.Microsecond
	execClear    = 1520 * time.Microsecond
	execPowerUp1 = 4100 * time.Microsecond
	execPowerUp2 = 100 * time.Microsecond
)

// GlyphRune stands for a CGRAM character in Lines.
const GlyphRune = '■'

// rowOffset is the DDRAM address of column 0 of each visible row.
var rowOffset = []byte{0x00, 0x40, 0x14, 0x54}

var ErrNotPrepared = errors.New("lcdsim: Send before Prepare")

// Clock is a virtual time source. It implements hd44780.Delayer by advancing
// instead of blocking, so a simulated session runs at full speed.
type Clock struct {
	mu  sync.Mutex
	now time.Duration
}

// Delay advances the clock by d.
func (c *Clock) Delay(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// Now returns the time elapsed since the clock was created.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Violation is a strobe received while the controller was busy.
type Violation struct {
	At       time.Duration
	Early    time.Duration
	Register hd44780.Register
	Nibble   byte
}

func (v Violation) String() string {
	return fmt.Sprintf("strobe at %s, %s early (rs=%t nibble=0x%x)", v.At, v.Early, v.Register, v.Nibble)
}

// Op is an instruction or data byte as executed by the controller.
type Op struct {
	Register hd44780.Register
	Value    byte
}

func (o Op) String() string {
	if o.Register == hd44780.Data {
		return fmt.Sprintf("data 0x%02x", o.Value)
	}
	return fmt.Sprintf("instr 0x%02x", o.Value)
}

// Opts represents the options available for the emulator.
type Opts struct {
	// Rows and Cols of the visible window. Defaults to 2x16. At most 4 rows.
	Rows, Cols int
	// Clock enables busy checking. Use the same Clock as the hd44780.Dev
	// Delayer.
	Clock *Clock
	// Logger receives a trace of every executed operation.
	Logger *zerolog.Logger

	_ struct{}
}

// Dev is an emulated controller and display glass.
type Dev struct {
	rows  int
	cols  int
	clock *Clock
	log   zerolog.Logger

	mu           sync.Mutex
	prepared     bool
	fourBit      bool
	pending      bool
	high         byte
	twoLine      bool
	font5x10     bool
	ddram        [ddramSize]byte
	cgram        [cgramSize]byte
	ac           byte
	cgMode       bool
	control      hd44780.DisplayControl
	mode         hd44780.EntryMode
	shift        int
	functionSets int
	busyUntil    time.Duration
	ops          []Op
	violations   []Violation
}

// New returns a powered on controller.
func New(opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	d := &Dev{rows: opts.Rows, cols: opts.Cols, clock: opts.Clock, log: zerolog.Nop()}
	if d.rows <= 0 {
		d.rows = 2
	}
	if d.rows > len(rowOffset) {
		d.rows = len(rowOffset)
	}
	if d.cols <= 0 {
		d.cols = 16
	}
	if opts.Logger != nil {
		d.log = *opts.Logger
	}
	d.powerOn()
	return d
}

// powerOn is the internal reset: 8-bit interface, 1 line, display off,
// increment without shift. DDRAM content is undefined on real parts; here it
// is blank.
func (d *Dev) powerOn() {
	d.fourBit = false
	d.pending = false
	d.twoLine = false
	d.font5x10 = false
	for i := range d.ddram {
		d.ddram[i] = ' '
	}
	d.cgram = [cgramSize]byte{}
	d.ac = 0
	d.cgMode = false
	d.control = 0
	d.mode = hd44780.EntryIncrement
	d.shift = 0
	d.functionSets = 0
	d.busyUntil = 0
	d.ops = nil
	d.violations = nil
}

// PowerCycle resets the controller as if power had been removed. The bus
// lines stay prepared.
func (d *Dev) PowerCycle() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.powerOn()
	if d.clock != nil {
		d.busyUntil = d.clock.Now()
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("lcdsim %dx%d", d.cols, d.rows)
}

// Prepare implements hd44780.Bus.
func (d *Dev) Prepare() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prepared = true
	return nil
}

// Send implements hd44780.Bus.
func (d *Dev) Send(value byte, reg hd44780.Register, width hd44780.Width) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.prepared {
		return ErrNotPrepared
	}
	if width == hd44780.Byte {
		d.strobe(value>>4, reg)
	}
	d.strobe(value&0x0f, reg)
	return nil
}

// strobe latches one nibble from D7-D4.
func (d *Dev) strobe(n byte, reg hd44780.Register) {
	if d.clock != nil {
		if now := d.clock.Now(); now < d.busyUntil {
			v := Violation{At: now, Early: d.busyUntil - now, Register: reg, Nibble: n}
			d.violations = append(d.violations, v)
			d.log.Warn().Stringer("violation", v).Msg("strobe while busy")
		}
	}
	if !d.fourBit {
		// D3-D0 are not wired in 4-bit mode; they read as 0.
		d.execute(n<<4, reg)
		return
	}
	if !d.pending {
		d.high = n
		d.pending = true
		return
	}
	d.pending = false
	d.execute(d.high<<4|n, reg)
}

func (d *Dev) execute(v byte, reg hd44780.Register) {
	op := Op{Register: reg, Value: v}
	d.ops = append(d.ops, op)
	d.log.Trace().Stringer("op", op).Msg("execute")

	busy := execDefault
	if reg == hd44780.Data {
		d.writeData(v)
	} else {
		busy = d.instruction(v)
	}
	if d.clock != nil {
		d.busyUntil = d.clock.Now() + busy
	}
}

func (d *Dev) instruction(v byte) time.Duration {
	switch {
	case v&0x80 != 0:
		d.ac = v & 0x7f
		d.cgMode = false
	case v&0x40 != 0:
		d.ac = v & 0x3f
		d.cgMode = true
	case v&0x20 != 0:
		return d.functionSet(v)
	case v&0x10 != 0:
		right := v&0x04 != 0
		if v&0x08 != 0 {
			d.shiftDisplay(right)
		} else {
			d.moveAddress(right)
		}
	case v&0x08 != 0:
		d.control = hd44780.DisplayControl(v & 0x07)
	case v&0x04 != 0:
		d.mode = hd44780.EntryMode(v & 0x03)
	case v&0x02 != 0:
		d.ac = 0
		d.cgMode = false
		d.shift = 0
		return execClear
	case v&0x01 != 0:
		for i := range d.ddram {
			d.ddram[i] = ' '
		}
		d.ac = 0
		d.cgMode = false
		d.shift = 0
		d.mode |= hd44780.EntryIncrement
		return execClear
	}
	return execDefault
}

func (d *Dev) functionSet(v byte) time.Duration {
	d.fourBit = v&0x10 == 0
	d.pending = false
	d.twoLine = v&0x08 != 0
	d.font5x10 = v&0x04 != 0
	d.functionSets++
	switch d.functionSets {
	case 1:
		return execPowerUp1
	case 2:
		return execPowerUp2
	}
	return execDefault
}

func (d *Dev) lineLen() int {
	if d.twoLine {
		return lineLen2
	}
	return lineLen1
}

// moveAddress steps the address counter, wrapping within DDRAM lines or
// CGRAM.
func (d *Dev) moveAddress(increment bool) {
	if d.cgMode {
		if increment {
			d.ac = (d.ac + 1) & (cgramSize - 1)
		} else {
			d.ac = (d.ac - 1) & (cgramSize - 1)
		}
		return
	}
	if !d.twoLine {
		a := int(d.ac)
		if increment {
			a++
		} else {
			a--
		}
		d.ac = byte((a + lineLen1) % lineLen1)
		return
	}
	switch {
	case increment && d.ac == lineLen2-1:
		d.ac = line2
	case increment && d.ac == line2+lineLen2-1:
		d.ac = 0
	case !increment && d.ac == 0:
		d.ac = line2 + lineLen2 - 1
	case !increment && d.ac == line2:
		d.ac = lineLen2 - 1
	case increment:
		d.ac++
	default:
		d.ac--
	}
}

// shiftDisplay moves the window over DDRAM. Shifting the display left shows
// later addresses.
func (d *Dev) shiftDisplay(right bool) {
	n := d.lineLen()
	if right {
		d.shift = (d.shift - 1 + n) % n
	} else {
		d.shift = (d.shift + 1) % n
	}
}

func (d *Dev) writeData(v byte) {
	if d.cgMode {
		d.cgram[d.ac&(cgramSize-1)] = v
		d.moveAddress(d.mode&hd44780.EntryIncrement != 0)
		return
	}
	d.ddram[d.ac&(ddramSize-1)] = v
	inc := d.mode&hd44780.EntryIncrement != 0
	d.moveAddress(inc)
	if d.mode&hd44780.EntryShift != 0 {
		d.shiftDisplay(!inc)
	}
}

// cellAddress is the DDRAM address shown at col, row of the window.
func (d *Dev) cellAddress(col, row int) byte {
	off := rowOffset[row]
	if !d.twoLine {
		return byte((int(off) + col + d.shift) % lineLen1)
	}
	base := off & line2
	pos := (int(off&^line2) + col + d.shift) % lineLen2
	return base + byte(pos)
}

// Cells returns the character codes in the visible window, regardless of
// whether the display is on.
func (d *Dev) Cells() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cells()
}

func (d *Dev) cells() [][]byte {
	out := make([][]byte, d.rows)
	for r := range out {
		out[r] = make([]byte, d.cols)
		for c := range out[r] {
			out[r][c] = d.ddram[d.cellAddress(c, r)]
		}
	}
	return out
}

// Lines returns what the glass shows, one string per row. CGRAM characters
// appear as GlyphRune and codes outside printable ASCII as '?'. A display
// that is off shows blank rows.
func (d *Dev) Lines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, d.rows)
	on := d.control&hd44780.DisplayOn != 0
	for r, row := range d.cells() {
		var sb strings.Builder
		for _, c := range row {
			switch {
			case !on:
				sb.WriteByte(' ')
			case c < 0x10:
				sb.WriteRune(GlyphRune)
			case c >= 0x20 && c < 0x7f:
				sb.WriteByte(c)
			default:
				sb.WriteByte('?')
			}
		}
		out[r] = sb.String()
	}
	return out
}

// Text returns Lines joined by newlines.
func (d *Dev) Text() string {
	return strings.Join(d.Lines(), "\n")
}

// CursorPos returns the window position of the address counter. ok is false
// when the counter points into CGRAM or outside the window.
func (d *Dev) CursorPos() (col, row int, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cgMode {
		return 0, 0, false
	}
	for r := 0; r < d.rows; r++ {
		for c := 0; c < d.cols; c++ {
			if d.cellAddress(c, r) == d.ac {
				return c, r, true
			}
		}
	}
	return 0, 0, false
}

// Address returns the address counter and whether it points into CGRAM.
func (d *Dev) Address() (ac byte, cgram bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ac, d.cgMode
}

// Glyph returns the 8 rows of CGRAM character slot (0-7).
func (d *Dev) Glyph(slot int) [8]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	var g [8]byte
	copy(g[:], d.cgram[(slot&7)*8:])
	return g
}

// Control returns the display control bits last executed.
func (d *Dev) Control() hd44780.DisplayControl {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.control
}

// Mode returns the entry mode bits last executed.
func (d *Dev) Mode() hd44780.EntryMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Shift returns the display shift in cells; positive is left.
func (d *Dev) Shift() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shift
}

// FourBit reports whether the interface is in 4-bit mode.
func (d *Dev) FourBit() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fourBit
}

// TwoLine reports whether the function set selected 2-line addressing.
func (d *Dev) TwoLine() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.twoLine
}

// Ops returns every executed operation since power on.
func (d *Dev) Ops() []Op {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Op(nil), d.ops...)
}

// ResetOps forgets the executed operations.
func (d *Dev) ResetOps() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ops = nil
}

// Violations returns the strobes that arrived while busy.
func (d *Dev) Violations() []Violation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Violation(nil), d.violations...)
}

var _ hd44780.Bus = &Dev{}
var _ hd44780.Delayer = &Clock{}
