// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// The Waveshare 1602 LCD is a 2 line by 16 column LCD display. It's available
// in multiple variants:
//
//   - LCD1602 5V Blue Backlight
//   - LCD1602 3.3V Yellow Backlight
//   - LCD1602 3.3V Blue Backlight
//
// These are bare LCD displays with no backpack. They have an hd44780 compatible
// driver chip. Use hd44780.NewGPIOBus.
//
//   - LCD1602 I²C Module, White color w/ Blue Background, 16x2 characters, 3.3V/5V
//   - LCD1602 I²C Module, Options for 3 Colors 3.3v/5v Backlight Adjustable
//
// These displays use the [aip31068] I²C LCD Driver chip. The command set is
// compatible with the HD44780. The tri-color version has purchase options to
// select a backlight color and uses an SN3193 to dim the backlight.
//
//   - LCD1602 RGB Module, 16x2 Characters LCD, RGB Backlight, 3.3V/5V, I²C Bus
//
// This display uses the AiP31068 I²C LCD Driver w/ a [pca9633] RGB LED PWM
// controller.
package waveshare1602

import (
	"fmt"

	"github.com/GermanBionicSystems/charlcd/aip31068"
	"github.com/GermanBionicSystems/charlcd/hd44780"
	"github.com/GermanBionicSystems/charlcd/pca9633"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
)

type Variant string

const (
	// SKU 19537 - RGB Backlight
	LCD1602RGBBacklight Variant = "LCD1602RGBBacklight"
	// SKU 23991 - I²C w/ Monochrome Backlight
	LCD1602MonoBacklight Variant = "LCD1602MonoBacklight"
	// Not Implemented. SKU 30494, 30495, and 30496. Uses an SN3193 for
	// controlling the backlight.
	LCD1602DimmableMonoBacklight Variant = "LCD1602DimmableMonoBacklight"

	LCDAddress uint16 = aip31068.DefaultAddress
	RGBAddress uint16 = 0x60

	Rows = 2
	Cols = 16
)

// RGBBacklight is the PCA9633 lighting the RGB module.
type RGBBacklight struct {
	controller *pca9633.Dev
}

// New returns the LCD of a Waveshare I²C module, and its backlight for the
// RGB variant. The backlight starts white at full intensity.
func New(bus i2c.Bus, variant Variant, opts *hd44780.Opts) (*hd44780.Dev, *RGBBacklight, error) {
	var bl *RGBBacklight
	switch variant {
	case LCD1602RGBBacklight:
		controller, err := pca9633.New(bus, RGBAddress, pca9633.OpenDrain)
		if err != nil {
			return nil, nil, err
		}
		bl = &RGBBacklight{controller: controller}
		if err := bl.RGBBacklight(0xff, 0xff, 0xff); err != nil {
			return nil, nil, err
		}
	case LCD1602MonoBacklight:
	case LCD1602DimmableMonoBacklight:
		return nil, nil, fmt.Errorf("waveshare1602: %s: %w", variant, display.ErrNotImplemented)
	default:
		return nil, nil, fmt.Errorf("waveshare1602: unknown variant %q", variant)
	}
	return hd44780.New(aip31068.New(bus, LCDAddress), opts), bl, nil
}

// NewTextDisplay returns the module as a display.TextDisplay.
func NewTextDisplay(bus i2c.Bus, variant Variant) (*hd44780.TextDisplay, error) {
	dev, bl, err := New(bus, variant, nil)
	if err != nil {
		return nil, err
	}
	if bl == nil {
		return hd44780.NewTextDisplay(dev, Rows, Cols, nil), nil
	}
	return hd44780.NewTextDisplay(dev, Rows, Cols, bl), nil
}

func (bl *RGBBacklight) String() string {
	return bl.controller.String()
}

// RGBBacklight sets the backlight color. The module does not persist
// settings, so it can be called as often as desired.
func (bl *RGBBacklight) RGBBacklight(red, green, blue display.Intensity) error {
	// The device is really connected to the LEDs in this channel order...
	return bl.controller.Out(blue, green, red)
}

// Backlight dims the backlight, keeping its color.
func (bl *RGBBacklight) Backlight(intensity display.Intensity) error {
	return bl.controller.Backlight(intensity)
}

// Halt switches the backlight off.
func (bl *RGBBacklight) Halt() error {
	return bl.controller.Halt()
}

var _ display.DisplayRGBBacklight = &RGBBacklight{}
var _ display.DisplayBacklight = &RGBBacklight{}
