// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package charlcd is a container for HD44780 character LCD drivers.
//
// The protocol lives in hd44780. The buses are in hd44780 (discrete GPIO,
// gpio.Group, Adafruit MCP23008 backpack), pcf857x, nxp74hc595 and aip31068.
// waveshare1602 pairs aip31068 with a pca9633 RGB backlight.
// lcdsim emulates the controller and lcdterm draws it on a terminal.
package charlcd
