// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pcf857x drives HD44780 displays through LCD backpacks built on the
// TI/NXP PCF8574 (8 pins) or PCF8575 (16 pins) I2C I/O expander. These are
// the backpacks usually sold with LCD1602 and LCD2004 modules.
//
// The expander has no registers: every write sets all of its pins at once.
// Backpack composes the whole port value for each edge of the enable strobe,
// so clocking one nibble costs at most three I2C writes. At 100kHz each write
// takes far longer than the strobe minimums.
//
// # Datasheet
//
// https://www.ti.com/lit/ds/symlink/pcf8574.pdf
//
// A good description of the I2C LCD backpack wiring can be found here:
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
package pcf857x

import (
	"errors"
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/charlcd/hd44780"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
)

// Variant represents the actual chip model.
type Variant string

const (
	PCF8574 Variant = "PCF8574"
	PCF8575 Variant = "PCF8575"

	// DefaultAddress is the address of a backpack with A0-A2 left open.
	DefaultAddress uint16 = 0x27
)

var (
	ErrInvalidPinMap = errors.New("pcf857x: invalid pin map")
)

// PinMap gives the expander pin number wired to each LCD line.
type PinMap struct {
	RS, RW, E, Backlight int
	D4, D5, D6, D7       int
}

// DefaultPinMap is the wiring of the common LCD2004/LCD1602 backpack.
var DefaultPinMap = PinMap{RS: 0, RW: 1, E: 2, Backlight: 3, D4: 4, D5: 5, D6: 6, D7: 7}

// Backpack is an hd44780.Bus over a PCF857x backpack.
type Backpack struct {
	chip  Variant
	width int
	pins  PinMap
	data  [4]uint16

	mu        sync.Mutex
	d         *i2c.Dev
	value     uint32
	backlight bool
}

// New returns a backpack on the I2C bus. pins may be nil for DefaultPinMap.
// Nothing is written until Prepare.
func New(bus i2c.Bus, address uint16, chip Variant, pins *PinMap) (*Backpack, error) {
	if pins == nil {
		pins = &DefaultPinMap
	}
	b := &Backpack{
		d:         &i2c.Dev{Bus: bus, Addr: address},
		chip:      chip,
		width:     8,
		pins:      *pins,
		backlight: true,
		// An impossible port value forces the first write.
		value: 1 << 16,
	}
	if chip == PCF8575 {
		b.width = 16
	}
	if err := b.checkPins(); err != nil {
		return nil, err
	}
	b.data = [4]uint16{1 << pins.D4, 1 << pins.D5, 1 << pins.D6, 1 << pins.D7}
	return b, nil
}

// NewLCD returns a controller on a backpack with the default wiring.
func NewLCD(bus i2c.Bus, address uint16, chip Variant, opts *hd44780.Opts) (*hd44780.Dev, *Backpack, error) {
	b, err := New(bus, address, chip, nil)
	if err != nil {
		return nil, nil, err
	}
	return hd44780.New(b, opts), b, nil
}

func (b *Backpack) checkPins() error {
	seen := map[int]bool{}
	for _, p := range []int{b.pins.RS, b.pins.RW, b.pins.E, b.pins.Backlight, b.pins.D4, b.pins.D5, b.pins.D6, b.pins.D7} {
		if p < 0 || p >= b.width || seen[p] {
			return fmt.Errorf("%w: pin %d on %s", ErrInvalidPinMap, p, b.chip)
		}
		seen[p] = true
	}
	return nil
}

// port composes the expander value for a nibble with E low. R/W is always low.
func (b *Backpack) port(nibble byte, reg hd44780.Register) uint16 {
	var v uint16
	for ix, bit := range b.data {
		if nibble>>ix&1 == 1 {
			v |= bit
		}
	}
	if reg == hd44780.Data {
		v |= 1 << b.pins.RS
	}
	if b.backlight {
		v |= 1 << b.pins.Backlight
	}
	return v
}

// write performs the low-level write to the device. If the port value is
// unchanged, the write is skipped.
func (b *Backpack) write(v uint16) error {
	if b.value == uint32(v) {
		return nil
	}
	w := make([]byte, b.width/8)
	for ix := range w {
		w[ix] = byte(v >> (ix * 8))
	}
	if err := b.d.Tx(w, nil); err != nil {
		return fmt.Errorf("pcf857x: %w", err)
	}
	b.value = uint32(v)
	return nil
}

// Prepare implements hd44780.Bus. It drives every LCD line low, keeping the
// backlight state.
func (b *Backpack) Prepare() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.write(b.port(0, hd44780.Instruction))
}

// Send implements hd44780.Bus.
func (b *Backpack) Send(value byte, reg hd44780.Register, width hd44780.Width) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if width == hd44780.Byte {
		if err := b.nibble(value>>4, reg); err != nil {
			return err
		}
	}
	return b.nibble(value&0x0f, reg)
}

// nibble sets RS and the data lines, then pulses E. The first write is
// skipped when the lines already hold the right levels.
func (b *Backpack) nibble(n byte, reg hd44780.Register) error {
	v := b.port(n, reg)
	if err := b.write(v); err != nil {
		return err
	}
	if err := b.write(v | 1<<b.pins.E); err != nil {
		return err
	}
	return b.write(v)
}

// Backlight implements display.DisplayBacklight. Any non-zero intensity turns
// it on.
func (b *Backpack) Backlight(intensity display.Intensity) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.backlight = intensity != 0
	v := uint16(b.value)
	if b.value > 0xffff {
		v = 0
	}
	if b.backlight {
		v |= 1 << b.pins.Backlight
	} else {
		v &^= 1 << b.pins.Backlight
	}
	return b.write(v)
}

func (b *Backpack) String() string {
	return fmt.Sprintf("%s_%x", b.chip, b.d.Addr)
}

var _ hd44780.Bus = &Backpack{}
var _ display.DisplayBacklight = &Backpack{}
