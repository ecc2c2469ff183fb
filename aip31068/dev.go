// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// The aip31068 is an HD44780 compatible controller with an I²C interface. It
// is not a _backpack_ chip providing GPIO pins over I²C: the I²C writes go
// directly to the LCD controller, prefixed by a control byte selecting the
// instruction or data register.
//
// Bus adapts it to hd44780.Dev. There is no 4-bit parallel bus behind the
// I²C port, so nibble transmissions are sent in their 8-bit form and every
// function set keeps the interface length bit (DL) set.
//
// This driver also suits the Waveshare LCD1602 I²C modules and other
// ST7032/AiP31068 based displays.
//
// # Datasheet
//
// https://support.newhavendisplay.com/hc/en-us/article_attachments/4414498095511
package aip31068

import (
	"fmt"
	"strings"
	"sync"

	"github.com/GermanBionicSystems/charlcd/hd44780"
	"periph.io/x/conn/v3/i2c"
)

const (
	// Control byte: Co (bit 7) clear means this is the last control byte,
	// RS (bit 6) selects the data register.
	controlInstruction byte = 0x00
	controlData        byte = 0x40

	functionSetMask byte = 0xe0
	functionSet     byte = 0x20
	functionSet8Bit byte = 0x10

	packageName = "aip31068"

	// DefaultAddress is the fixed address of the AiP31068.
	DefaultAddress uint16 = 0x3e
)

// Bus is an hd44780.Bus writing to an AiP31068 over I²C.
type Bus struct {
	mu sync.Mutex
	d  *i2c.Dev
}

func wrap(err error) error {
	if err == nil || strings.HasPrefix(err.Error(), packageName) {
		return err
	}
	return fmt.Errorf("%s: %w", packageName, err)
}

// New returns a bus for the controller at address.
func New(bus i2c.Bus, address uint16) *Bus {
	return &Bus{d: &i2c.Dev{Bus: bus, Addr: address}}
}

// NewLCD returns a controller at DefaultAddress.
func NewLCD(bus i2c.Bus, opts *hd44780.Opts) *hd44780.Dev {
	return hd44780.New(New(bus, DefaultAddress), opts)
}

// Prepare implements hd44780.Bus. There are no lines to configure.
func (b *Bus) Prepare() error {
	return nil
}

// Send implements hd44780.Bus.
func (b *Bus) Send(value byte, reg hd44780.Register, width hd44780.Width) error {
	if width == hd44780.Nibble {
		// The nibble is what an 8-bit bus would see on D7-D4.
		value <<= 4
	}
	control := controlData
	if reg == hd44780.Instruction {
		control = controlInstruction
		if value&functionSetMask == functionSet {
			value |= functionSet8Bit
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return wrap(b.d.Tx([]byte{control, value}, nil))
}

func (b *Bus) String() string {
	return fmt.Sprintf("%s_%x", packageName, b.d.Addr)
}

var _ hd44780.Bus = &Bus{}
