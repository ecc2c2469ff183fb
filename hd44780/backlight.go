// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
)

// GPIOMonoBacklight switches a backlight with a single GPIO pin. Any non-zero
// intensity turns it on.
type GPIOMonoBacklight struct {
	pin gpio.PinOut
}

// NewBacklight returns a backlight driven by pin.
func NewBacklight(pin gpio.PinOut) *GPIOMonoBacklight {
	return &GPIOMonoBacklight{pin: pin}
}

// Backlight implements display.DisplayBacklight.
func (bl *GPIOMonoBacklight) Backlight(intensity display.Intensity) error {
	return wrap(bl.pin.Out(gpio.Level(intensity != 0)))
}

var _ display.DisplayBacklight = &GPIOMonoBacklight{}
