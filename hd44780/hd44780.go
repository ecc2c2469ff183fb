// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780 controls the Hitachi HD44780 character LCD controller, and
// the many compatible parts, over a write-only 4-bit parallel bus.
//
// Dev implements the controller protocol: the power-up initialization
// sequence, the display control and entry mode state, and the settle delays
// from the datasheet. The physical wiring is supplied as a Bus. This package
// provides a six line GPIO bus and a gpio.Group bus; the pcf857x, nxp74hc595
// and aip31068 packages provide backpack buses.
//
// The R/W line is never used. The busy flag cannot be read, so every
// operation waits for the worst case execution time listed in the datasheet.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package hd44780

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3"
)

const packageName = "hd44780"

// Instructions. See Table 6 of the datasheet.
const (
	cmdClear          byte = 0x01
	cmdHome           byte = 0x02
	cmdEntryMode      byte = 0x04
	cmdDisplayControl byte = 0x08
	cmdCursorLeft     byte = 0x10
	cmdCursorRight    byte = 0x14
	cmdScrollLeft     byte = 0x18
	cmdScrollRight    byte = 0x1c
	cmdFunctionSet    byte = 0x20
	cmdSetCGRAMAddr   byte = 0x40

	// 4-bit interface, 2 lines, 5x8 dots.
	functionSet4Bit2Line byte = cmdFunctionSet | 0x08

	// Function set with DL=1, as seen on D7-D4 while still in 8-bit mode.
	nibbleFunctionSet8Bit byte = 0x03
	// Function set with DL=0.
	nibbleFunctionSet4Bit byte = 0x02
)

// Settle times. Every transmission is followed by delaySettle. Instructions
// that take longer add their own delay on top.
const (
	delaySettle     = 37 * time.Microsecond
	delayClear      = 2000 * time.Microsecond
	delayHome       = 1600 * time.Microsecond
	delayPowerUp1st = 4200 * time.Microsecond
	delayPowerUp2nd = 150 * time.Microsecond
)

// MaxRow is the highest row GotoXY addresses. Larger rows are clamped.
const MaxRow = 3

// rowAddress is the "set DDRAM address" instruction for column 0 of each row.
var rowAddress = [MaxRow + 1]byte{0x80, 0xc0, 0x94, 0xd4}

// DisplayControl is the argument of the "display on/off control"
// instruction.
type DisplayControl byte

const (
	DisplayOn DisplayControl = 0x04
	CursorOn  DisplayControl = 0x02
	BlinkOn   DisplayControl = 0x01
)

func (c DisplayControl) String() string {
	return fmt.Sprintf("D=%d C=%d B=%d", c>>2&1, c>>1&1, c&1)
}

// EntryMode is the argument of the "entry mode set" instruction.
type EntryMode byte

const (
	// EntryIncrement moves the cursor right after each write. Without it the
	// cursor moves left.
	EntryIncrement EntryMode = 0x02
	// EntryShift shifts the whole display on each write (autoscroll).
	EntryShift EntryMode = 0x01
)

func (m EntryMode) String() string {
	return fmt.Sprintf("I/D=%d S=%d", m>>1&1, m&1)
}

// Opts holds the construction options for a Dev.
type Opts struct {
	// Delayer implements every settle delay. Defaults to SpinDelayer.
	Delayer Delayer
}

// DefaultOpts is used when New is called with nil options.
var DefaultOpts = Opts{Delayer: SpinDelayer}

// Dev is an HD44780 controller reached through a Bus.
//
// The controller is initialized lazily by the first operation. The cached
// display control and entry mode always match the last instruction the bus
// accepted.
//
// Methods are serialized by a mutex. The bus lines must not be driven by
// anything else while a Dev owns them.
type Dev struct {
	mu          sync.Mutex
	bus         Bus
	delay       Delayer
	initialized bool
	control     DisplayControl
	mode        EntryMode
}

// New returns a Dev using bus. Nothing is sent until the first operation.
func New(bus Bus, opts *Opts) *Dev {
	if opts == nil {
		opts = &DefaultOpts
	}
	delay := opts.Delayer
	if delay == nil {
		delay = SpinDelayer
	}
	return &Dev{bus: bus, delay: delay}
}

func wrap(err error) error {
	if err == nil || strings.HasPrefix(err.Error(), packageName) {
		return err
	}
	return fmt.Errorf("%s: %w", packageName, err)
}

func (d *Dev) String() string {
	return fmt.Sprintf("%s{%s}", packageName, d.bus)
}

// Halt turns the display off. The contents of the display are kept.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setDisplayControl(d.control &^ DisplayOn)
}

// Initialized reports whether the initialization sequence has run.
func (d *Dev) Initialized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initialized
}

// Control returns the display control bits last sent.
func (d *Dev) Control() DisplayControl {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.control
}

// Mode returns the entry mode bits last sent.
func (d *Dev) Mode() EntryMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Init initializes the controller if that has not happened yet. Calling it is
// optional; every other operation does it first.
func (d *Dev) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.init()
}

// Reinitialize runs the initialization sequence again, bringing the
// controller back to a clean state: display on, cursor hidden, screen
// cleared, left to right without autoscroll.
func (d *Dev) Reinitialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = true
	return d.runInit()
}

func (d *Dev) init() error {
	if d.initialized {
		return nil
	}
	d.initialized = true
	return d.runInit()
}

// runInit is the initialization by instruction of Figure 24 of the
// datasheet. It assumes power has been stable for at least 15ms.
func (d *Dev) runInit() error {
	err := d.initSequence()
	if err != nil {
		d.initialized = false
	}
	return err
}

func (d *Dev) initSequence() error {
	if err := d.bus.Prepare(); err != nil {
		return wrap(err)
	}

	if err := d.send(nibbleFunctionSet8Bit, Instruction, Nibble); err != nil {
		return err
	}
	d.delay.Delay(delayPowerUp1st)
	if err := d.send(nibbleFunctionSet8Bit, Instruction, Nibble); err != nil {
		return err
	}
	d.delay.Delay(delayPowerUp2nd)
	if err := d.send(nibbleFunctionSet8Bit, Instruction, Nibble); err != nil {
		return err
	}

	if err := d.send(nibbleFunctionSet4Bit, Instruction, Nibble); err != nil {
		return err
	}
	if err := d.send(functionSet4Bit2Line, Instruction, Byte); err != nil {
		return err
	}

	if err := d.setDisplayControl(0); err != nil {
		return err
	}
	if err := d.clear(); err != nil {
		return err
	}
	if err := d.setEntryMode(EntryIncrement); err != nil {
		return err
	}
	return d.setDisplayControl(DisplayOn)
}

// send is the single path to the bus. Every transmission is followed by the
// standard instruction settle time.
func (d *Dev) send(value byte, reg Register, width Width) error {
	if err := d.init(); err != nil {
		return err
	}
	if err := d.bus.Send(value, reg, width); err != nil {
		return wrap(err)
	}
	d.delay.Delay(delaySettle)
	return nil
}

func (d *Dev) command(cmd byte) error {
	return d.send(cmd, Instruction, Byte)
}

// Command sends an arbitrary instruction byte.
func (d *Dev) Command(cmd byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.command(cmd)
}

// Clear blanks the display, moves the cursor to the upper left corner and
// resets the display shift.
func (d *Dev) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clear()
}

func (d *Dev) clear() error {
	if err := d.command(cmdClear); err != nil {
		return err
	}
	// Table 6 lists no execution time for clear; return home needs 1.52ms.
	d.delay.Delay(delayClear)
	return nil
}

// Home moves the cursor to the upper left corner and resets the display
// shift. The display contents are kept.
//
// Home takes about 1.6ms. Scrolling back and calling GotoXY(0, 0) is faster.
func (d *Dev) Home() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.command(cmdHome); err != nil {
		return err
	}
	d.delay.Delay(delayHome)
	return nil
}

// GotoXY moves the cursor to column x of row y, both zero based. Rows above
// MaxRow are clamped. Columns are not checked.
func (d *Dev) GotoXY(x, y uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gotoXY(x, y)
}

func (d *Dev) gotoXY(x, y uint8) error {
	if y > MaxRow {
		y = MaxRow
	}
	return d.command(rowAddress[y] + x)
}

// SetCursor is GotoXY, named as in LiquidCrystal.
func (d *Dev) SetCursor(col, row uint8) error {
	return d.GotoXY(col, row)
}

// GotoLine moves the cursor to the start of row y.
func (d *Dev) GotoLine(y uint8) error {
	return d.GotoXY(0, y)
}

// ScrollDisplayLeft shifts the whole display one position to the left.
func (d *Dev) ScrollDisplayLeft() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.command(cmdScrollLeft)
}

// ScrollDisplayRight shifts the whole display one position to the right.
func (d *Dev) ScrollDisplayRight() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.command(cmdScrollRight)
}

// MoveCursorLeft moves the cursor one position left without writing.
func (d *Dev) MoveCursorLeft() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.command(cmdCursorLeft)
}

// MoveCursorRight moves the cursor one position right without writing.
func (d *Dev) MoveCursorRight() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.command(cmdCursorRight)
}

// LoadCustomCharacter stores a 5x8 glyph in CGRAM slot 0-7. Each byte of
// pattern is one row, top first, using the low 5 bits. Writing the slot
// number as a character afterwards displays the glyph.
//
// The address counter is left in CGRAM; call GotoXY or Clear before writing
// text again.
func (d *Dev) LoadCustomCharacter(pattern [8]byte, slot uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	base := (slot & 0x07) * 8
	for i, row := range pattern {
		if err := d.command(cmdSetCGRAMAddr | (base + byte(i))); err != nil {
			return err
		}
		if err := d.send(row, Data, Byte); err != nil {
			return err
		}
	}
	return nil
}

// CreateChar is LoadCustomCharacter, named as in LiquidCrystal. Missing rows
// are blank.
func (d *Dev) CreateChar(slot uint8, pattern []byte) error {
	var p [8]byte
	copy(p[:], pattern)
	return d.LoadCustomCharacter(p, slot)
}

// SetDisplayControl sends the display on/off control instruction with the
// given bits.
func (d *Dev) SetDisplayControl(c DisplayControl) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setDisplayControl(c)
}

func (d *Dev) setDisplayControl(c DisplayControl) error {
	c &= DisplayOn | CursorOn | BlinkOn
	if err := d.command(cmdDisplayControl | byte(c)); err != nil {
		return err
	}
	d.control = c
	return nil
}

// updateControl resends the whole control byte; the controller cannot change
// a single bit.
func (d *Dev) updateControl(set, clear DisplayControl) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.init(); err != nil {
		return err
	}
	return d.setDisplayControl(d.control&^clear | set)
}

// DisplayOn turns the display on.
func (d *Dev) DisplayOn() error {
	return d.updateControl(DisplayOn, 0)
}

// DisplayOff turns the display off, keeping its contents.
func (d *Dev) DisplayOff() error {
	return d.updateControl(0, DisplayOn)
}

// Cursor shows the cursor, keeping the blink bit as it was.
func (d *Dev) Cursor() error {
	return d.updateControl(CursorOn, 0)
}

// NoCursor hides the cursor, keeping the blink bit as it was.
func (d *Dev) NoCursor() error {
	return d.updateControl(0, CursorOn)
}

// Blink makes the cursor position blink. It does not show the cursor.
func (d *Dev) Blink() error {
	return d.updateControl(BlinkOn, 0)
}

// NoBlink stops the cursor position blinking.
func (d *Dev) NoBlink() error {
	return d.updateControl(0, BlinkOn)
}

// CursorSolid shows a steady underline cursor.
func (d *Dev) CursorSolid() error {
	return d.updateControl(CursorOn, BlinkOn)
}

// CursorBlinking shows the underline cursor with a blinking block.
func (d *Dev) CursorBlinking() error {
	return d.updateControl(CursorOn|BlinkOn, 0)
}

// HideCursor hides the cursor and stops blinking.
func (d *Dev) HideCursor() error {
	return d.updateControl(0, CursorOn|BlinkOn)
}

// SetEntryMode sends the entry mode set instruction with the given bits.
func (d *Dev) SetEntryMode(m EntryMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setEntryMode(m)
}

func (d *Dev) setEntryMode(m EntryMode) error {
	m &= EntryIncrement | EntryShift
	if err := d.command(cmdEntryMode | byte(m)); err != nil {
		return err
	}
	d.mode = m
	return nil
}

func (d *Dev) updateMode(set, clear EntryMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.init(); err != nil {
		return err
	}
	return d.setEntryMode(d.mode&^clear | set)
}

// LeftToRight moves the cursor right after each character. This is the
// default.
func (d *Dev) LeftToRight() error {
	return d.updateMode(EntryIncrement, 0)
}

// RightToLeft moves the cursor left after each character.
func (d *Dev) RightToLeft() error {
	return d.updateMode(0, EntryIncrement)
}

// Autoscroll shifts the display on every character so the cursor stays in
// place.
func (d *Dev) Autoscroll() error {
	return d.updateMode(EntryShift, 0)
}

// NoAutoscroll turns autoscroll off. This is the default.
func (d *Dev) NoAutoscroll() error {
	return d.updateMode(0, EntryShift)
}

// WriteByte writes one character at the cursor.
func (d *Dev) WriteByte(c byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.send(c, Data, Byte)
}

// Write writes p as characters, starting at the cursor. The cursor advances
// according to the entry mode; nothing wraps to the next row.
func (d *Dev) Write(p []byte) (n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range p {
		if err = d.send(c, Data, Byte); err != nil {
			return
		}
		n++
	}
	return
}

// WriteString writes s, see Write.
func (d *Dev) WriteString(s string) (int, error) {
	return d.Write([]byte(s))
}

var _ conn.Resource = &Dev{}
