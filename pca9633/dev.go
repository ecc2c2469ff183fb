// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pca9633 drives the NXP PCA9633 four channel LED PWM controller as
// an LCD backlight: per channel intensity, group dimming of all channels and
// hardware blinking.
//
// # Datasheet
//
// https://www.nxp.com/docs/en/data-sheet/PCA9633.pdf
package pca9633

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
)

// LEDStructure is how the LEDs are wired to the outputs.
type LEDStructure byte

const (
	// OpenDrain LEDs sink into the outputs.
	OpenDrain LEDStructure = iota
	// TotemPole outputs drive the LEDs directly.
	TotemPole
)

// Registers.
const (
	regMode1  byte = 0x00
	regMode2  byte = 0x01
	regPWM0   byte = 0x02
	regGrpPWM byte = 0x06
	regGrpFrq byte = 0x07
	regLEDOut byte = 0x08

	// Control register flag: auto-increment through all registers.
	autoIncrement byte = 0x80
)

const (
	// Oscillator on, auto-increment enabled, responds to ALLCALL.
	mode1Default byte = 0x81
	// Outputs change on STOP, open drain, off when OE is high.
	mode2Default byte = 0x01
	mode2Totem   byte = 0x04
	mode2Invert  byte = 0x10
	mode2Blink   byte = 0x20
)

// LED driver output states, 2 bits per channel in LEDOUT.
const (
	ledOff      byte = 0x00
	ledPWMGroup byte = 0x03
)

const (
	// Blink period is (GRPFREQ + 1) / 24 seconds.
	blinkStep      = time.Second / 24
	maxBlinkPeriod = 256 * blinkStep
)

// Dev is a PCA9633.
type Dev struct {
	mu     sync.Mutex
	d      *i2c.Dev
	pwm    [4]byte
	ledout byte
	mode2  byte
	dim    byte
	blink  bool
}

// New returns a PCA9633 with every channel off and no dimming.
func New(bus i2c.Bus, address uint16, structure LEDStructure) (*Dev, error) {
	dev := &Dev{d: &i2c.Dev{Bus: bus, Addr: address}, mode2: mode2Default, dim: 0xff}
	if structure == TotemPole {
		dev.mode2 |= mode2Totem
	}
	// Writing 0 to the SLEEP bit starts the oscillator.
	if err := dev.write(regMode1, mode1Default); err != nil {
		return nil, err
	}
	if err := dev.write(regMode2, dev.mode2); err != nil {
		return nil, err
	}
	if err := dev.write(regGrpPWM, dev.dim); err != nil {
		return nil, err
	}
	if err := dev.write(regLEDOut, ledOff); err != nil {
		return nil, err
	}
	return dev, nil
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("pca9633: %w", err)
}

func (dev *Dev) write(reg byte, values ...byte) error {
	if len(values) > 1 {
		reg |= autoIncrement
	}
	return wrap(dev.d.Tx(append([]byte{reg}, values...), nil))
}

// Out sets the intensity of channels 0 to len(intensities)-1 in a single
// transaction. A channel at 0 is switched off.
func (dev *Dev) Out(intensities ...display.Intensity) error {
	if len(intensities) > len(dev.pwm) {
		return fmt.Errorf("pca9633: %d channels, expected at most %d", len(intensities), len(dev.pwm))
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	pwm := dev.pwm
	ledout := dev.ledout
	for ix, v := range intensities {
		pwm[ix] = byte(v)
		ledout &^= 0x03 << (2 * ix)
		if v != 0 {
			ledout |= ledPWMGroup << (2 * ix)
		}
	}
	if err := dev.write(regPWM0, pwm[:]...); err != nil {
		return err
	}
	dev.pwm = pwm
	if ledout == dev.ledout {
		return nil
	}
	if err := dev.write(regLEDOut, ledout); err != nil {
		return err
	}
	dev.ledout = ledout
	return nil
}

// Backlight implements display.DisplayBacklight by dimming every channel
// together, keeping their relative intensities. While blinking, the new
// level applies once Blink(0, 0) stops it.
func (dev *Dev) Backlight(intensity display.Intensity) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if !dev.blink {
		if err := dev.write(regGrpPWM, byte(intensity)); err != nil {
			return err
		}
	}
	dev.dim = byte(intensity)
	return nil
}

// Blink flashes every lit channel with the given period and duty cycle. A
// period of 0 stops blinking. Periods range from 41.6ms to 10.67s and are
// clamped.
func (dev *Dev) Blink(period time.Duration, duty display.Intensity) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if period <= 0 {
		if err := dev.setMode2(dev.mode2 &^ mode2Blink); err != nil {
			return err
		}
		dev.blink = false
		return dev.write(regGrpPWM, dev.dim)
	}
	if period > maxBlinkPeriod {
		period = maxBlinkPeriod
	}
	frq := int(period/blinkStep) - 1
	if frq < 0 {
		frq = 0
	}
	if err := dev.write(regGrpFrq, byte(frq)); err != nil {
		return err
	}
	if err := dev.write(regGrpPWM, byte(duty)); err != nil {
		return err
	}
	if err := dev.setMode2(dev.mode2 | mode2Blink); err != nil {
		return err
	}
	dev.blink = true
	return nil
}

// SetInvert inverts the output logic, for LEDs switched through an inverting
// transistor.
func (dev *Dev) SetInvert(invert bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if invert {
		return dev.setMode2(dev.mode2 | mode2Invert)
	}
	return dev.setMode2(dev.mode2 &^ mode2Invert)
}

func (dev *Dev) setMode2(v byte) error {
	if v == dev.mode2 {
		return nil
	}
	if err := dev.write(regMode2, v); err != nil {
		return err
	}
	dev.mode2 = v
	return nil
}

// Halt switches every channel off. Implements conn.Resource.
func (dev *Dev) Halt() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.write(regLEDOut, ledOff); err != nil {
		return err
	}
	dev.ledout = ledOff
	return nil
}

func (dev *Dev) String() string {
	return fmt.Sprintf("PCA9633{%s}", dev.d)
}

var _ display.DisplayBacklight = &Dev{}
