// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3/cpu"
)

// Register selects which controller register a transmission targets. It is
// the level driven onto the RS line.
type Register bool

const (
	Instruction Register = false
	Data        Register = true
)

// Width selects how much of a value a transmission carries.
type Width uint8

const (
	// Byte sends all 8 bits, high nibble first.
	Byte Width = iota
	// Nibble sends only the low 4 bits. It is used during the power-up
	// handshake, before the controller has been switched to 4-bit mode.
	Nibble
)

func (w Width) String() string {
	if w == Nibble {
		return "nibble"
	}
	return "byte"
}

// Bus physically moves nibbles and bytes to the controller. It knows nothing
// about LCD commands, and Dev knows nothing about pins.
//
// Implementations own the strobe timing (E high >= 450ns, E low >= 550ns).
// Every settle delay between transmissions belongs to Dev, so Send must
// return as soon as the last strobe has completed.
type Bus interface {
	// Prepare configures every bus line for output and drives the strobe to
	// its idle (low) level. It may be called more than once.
	Prepare() error
	// Send drives the register select line and clocks value onto the data
	// lines.
	Send(value byte, reg Register, width Width) error
}

// Delayer blocks the caller for at least d. Over-delaying only costs
// throughput; under-delaying corrupts the display.
type Delayer interface {
	Delay(d time.Duration)
}

// DelayFunc adapts an ordinary function to a Delayer.
type DelayFunc func(d time.Duration)

// Delay calls f(d).
func (f DelayFunc) Delay(d time.Duration) {
	f(d)
}

var (
	// SpinDelayer busy-waits without yielding to the scheduler.
	SpinDelayer Delayer = DelayFunc(cpu.Nanospin)
	// SleepDelayer uses time.Sleep. Sleep granularity makes it much slower
	// than SpinDelayer for the 37µs settle times, but it does not burn a CPU.
	SleepDelayer Delayer = DelayFunc(time.Sleep)
)

const (
	strobeHigh = time.Microsecond
	strobeLow  = time.Microsecond
)

// strobe pulses the enable line, latching whatever is on the data lines.
func strobe(e gpio.PinOut, d Delayer) error {
	if err := e.Out(gpio.High); err != nil {
		return err
	}
	d.Delay(strobeHigh)
	if err := e.Out(gpio.Low); err != nil {
		return err
	}
	d.Delay(strobeLow)
	return nil
}

// GPIOBus drives the controller over six discrete GPIO lines: RS, E and
// D4-D7. R/W must be tied low.
//
// RS and the data lines are driven with Out() on every transmission, which
// also configures them as outputs, so they may be used for something else
// between calls. E is owned by the bus and must not be repurposed.
type GPIOBus struct {
	rs    gpio.PinOut
	e     gpio.PinOut
	data  [4]gpio.PinOut
	delay Delayer
}

// NewGPIOBus returns a bus on the given pins.
func NewGPIOBus(rs, e, d4, d5, d6, d7 gpio.PinOut) *GPIOBus {
	return &GPIOBus{
		rs:    rs,
		e:     e,
		data:  [4]gpio.PinOut{d4, d5, d6, d7},
		delay: SpinDelayer,
	}
}

// SetDelayer replaces the delayer used for the strobe pulse.
func (b *GPIOBus) SetDelayer(d Delayer) {
	b.delay = d
}

// Prepare drives E low, then RS and the data lines.
func (b *GPIOBus) Prepare() error {
	if err := b.e.Out(gpio.Low); err != nil {
		return wrap(err)
	}
	if err := b.rs.Out(gpio.Low); err != nil {
		return wrap(err)
	}
	for _, p := range b.data {
		if err := p.Out(gpio.Low); err != nil {
			return wrap(err)
		}
	}
	return nil
}

// Send implements Bus.
func (b *GPIOBus) Send(value byte, reg Register, width Width) error {
	if err := b.rs.Out(gpio.Level(reg)); err != nil {
		return wrap(err)
	}
	if width == Byte {
		if err := b.nibble(value >> 4); err != nil {
			return wrap(err)
		}
	}
	return wrap(b.nibble(value & 0x0f))
}

func (b *GPIOBus) nibble(v byte) error {
	for ix, p := range b.data {
		if err := p.Out(gpio.Level(v>>ix&1 == 1)); err != nil {
			return err
		}
	}
	return strobe(b.e, b.delay)
}

func (b *GPIOBus) String() string {
	return fmt.Sprintf("GPIOBus{RS: %s, E: %s, D4-D7: %s %s %s %s}",
		b.rs, b.e, b.data[0], b.data[1], b.data[2], b.data[3])
}

// GroupBus drives D4-D7 through the first four pins of a gpio.Group, writing
// the whole nibble in a single operation. RS and E are discrete pins.
//
// This suits gpioioctl line sets and I/O expanders where a group write is a
// single bus transaction.
type GroupBus struct {
	data  gpio.Group
	rs    gpio.PinOut
	e     gpio.PinOut
	delay Delayer
}

// NewGroupBus returns a bus writing data nibbles to the group.
func NewGroupBus(data gpio.Group, rs, e gpio.PinOut) *GroupBus {
	return &GroupBus{data: data, rs: rs, e: e, delay: SpinDelayer}
}

// SetDelayer replaces the delayer used for the strobe pulse.
func (b *GroupBus) SetDelayer(d Delayer) {
	b.delay = d
}

// Prepare implements Bus.
func (b *GroupBus) Prepare() error {
	if err := b.e.Out(gpio.Low); err != nil {
		return wrap(err)
	}
	if err := b.rs.Out(gpio.Low); err != nil {
		return wrap(err)
	}
	return wrap(b.data.Out(0, 0x0f))
}

// Send implements Bus.
func (b *GroupBus) Send(value byte, reg Register, width Width) error {
	if err := b.rs.Out(gpio.Level(reg)); err != nil {
		return wrap(err)
	}
	if width == Byte {
		if err := b.nibble(value >> 4); err != nil {
			return wrap(err)
		}
	}
	return wrap(b.nibble(value & 0x0f))
}

func (b *GroupBus) nibble(v byte) error {
	if err := b.data.Out(gpio.GPIOValue(v), 0x0f); err != nil {
		return err
	}
	return strobe(b.e, b.delay)
}

func (b *GroupBus) String() string {
	return fmt.Sprintf("GroupBus{%s}", b.data)
}

var _ Bus = &GPIOBus{}
var _ Bus = &GroupBus{}
