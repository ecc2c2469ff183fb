// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// The 74HC595 is a serial shift register. It converts a serial stream to a
// parallel output, which makes it an SPI => Parallel converter. Package
// nxp74hc595 uses one to drive an HD44780 display, as on the SPI side of the
// Adafruit I2C/SPI LCD backpack.
//
// Every SPI transfer shifts in a whole byte and latches it onto the outputs
// when chip select is released, so each edge of the enable strobe is one
// transfer.
//
// # Datasheet
//
// https://www.nexperia.com/product/74HC595D
//
// There's a nice tutorial on the device here:
//
// https://docs.arduino.cc/tutorials/communication/guide-to-shift-out/
package nxp74hc595

import (
	"errors"
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/charlcd/hd44780"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/spi"
)

const (
	devName = "74HC595"
	numPins = 8
)

var (
	ErrInvalidPinMap = errors.New("nxp74hc595: invalid pin map")
)

// PinMap gives the register output (Q0-Q7) wired to each LCD line.
type PinMap struct {
	RS, E, Backlight int
	D4, D5, D6, D7   int
}

// AdafruitPinMap is the wiring of the SPI side of the Adafruit backpack. The
// data lines are in the reverse order of the I2C side.
var AdafruitPinMap = PinMap{RS: 1, E: 2, Backlight: 7, D4: 6, D5: 5, D6: 4, D7: 3}

// Backpack is an hd44780.Bus over a 74HC595.
type Backpack struct {
	pins PinMap
	data [4]byte

	mu        sync.Mutex
	conn      spi.Conn
	value     uint16
	backlight bool
}

// New returns a backpack on conn. pins may be nil for AdafruitPinMap.
func New(conn spi.Conn, pins *PinMap) (*Backpack, error) {
	if pins == nil {
		pins = &AdafruitPinMap
	}
	seen := map[int]bool{}
	for _, p := range []int{pins.RS, pins.E, pins.Backlight, pins.D4, pins.D5, pins.D6, pins.D7} {
		if p < 0 || p >= numPins || seen[p] {
			return nil, fmt.Errorf("%w: output %d", ErrInvalidPinMap, p)
		}
		seen[p] = true
	}
	return &Backpack{
		conn:      conn,
		pins:      *pins,
		data:      [4]byte{1 << pins.D4, 1 << pins.D5, 1 << pins.D6, 1 << pins.D7},
		backlight: true,
		// setting value to an invalid initial state forces the first write to
		// happen, even if it's 0.
		value: 1 << 9,
	}, nil
}

// NewAdafruitSPIBackpack returns a controller on the SPI side of the Adafruit
// I2C/SPI backpack.
func NewAdafruitSPIBackpack(conn spi.Conn, opts *hd44780.Opts) (*hd44780.Dev, *Backpack, error) {
	b, err := New(conn, nil)
	if err != nil {
		return nil, nil, err
	}
	return hd44780.New(b, opts), b, nil
}

func (b *Backpack) port(nibble byte, reg hd44780.Register) byte {
	var v byte
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

// ErrHalted is returned by every operation after Halt.
var ErrHalted = errors.New("nxp74hc595: halted")

// write does the low-level write to the device.
func (b *Backpack) write(v byte) error {
	if b.conn == nil {
		return ErrHalted
	}
	if b.value == uint16(v) {
		return nil
	}
	if err := b.conn.Tx([]byte{v}, nil); err != nil {
		return fmt.Errorf("nxp74hc595: %w", err)
	}
	b.value = uint16(v)
	return nil
}

// Prepare implements hd44780.Bus.
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

// Backlight implements display.DisplayBacklight.
func (b *Backpack) Backlight(intensity display.Intensity) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.backlight = intensity != 0
	v := byte(b.value)
	if b.backlight {
		v |= 1 << b.pins.Backlight
	} else {
		v &^= 1 << b.pins.Backlight
	}
	return b.write(v)
}

// Halt drives every output low and releases the connection.
func (b *Backpack) Halt() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.write(0)
	b.conn = nil
	return err
}

func (b *Backpack) String() string {
	return devName
}

var _ hd44780.Bus = &Backpack{}
var _ display.DisplayBacklight = &Backpack{}
