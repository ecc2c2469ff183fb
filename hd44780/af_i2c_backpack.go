// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/mcp23xxx"
)

// GPIO numbers of the MCP23008 on the Adafruit I2C/SPI LCD backpack.
const (
	afRS        = 1
	afE         = 2
	afD4        = 3
	afD5        = 4
	afD6        = 5
	afD7        = 6
	afBacklight = 7
)

// NewAdafruitI2CBackpack returns a display on the I2C side of the Adafruit
// I2C/SPI LCD backpack, and the backlight switch.
//
// # Product Information
//
// https://www.adafruit.com/product/292
//
// The I2C side uses an MCP23008 I/O expander, so every line change is an I2C
// transaction. That is far slower than the strobe minimums; the pulse delays
// only add a few microseconds.
//
// The SPI side is served by the nxp74hc595 package.
func NewAdafruitI2CBackpack(bus i2c.Bus, address uint16, opts *Opts) (*Dev, *GPIOMonoBacklight, error) {
	mcp, err := mcp23xxx.NewI2C(bus, mcp23xxx.MCP23008, address)
	if err != nil {
		return nil, nil, wrap(err)
	}
	port := mcp.Pins[0]
	lcdBus := NewGPIOBus(port[afRS], port[afE], port[afD4], port[afD5], port[afD6], port[afD7])
	return New(lcdBus, opts), NewBacklight(port[afBacklight]), nil
}
