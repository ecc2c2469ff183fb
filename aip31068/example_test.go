// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package aip31068_test

import (
	"log"

	"github.com/GermanBionicSystems/charlcd/aip31068"
	"github.com/GermanBionicSystems/charlcd/hd44780"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

func Example() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatalf("failed to open I²C: %v", err)
	}
	defer bus.Close()

	lcd := aip31068.NewLCD(bus, nil)
	td := hd44780.NewTextDisplay(lcd, 2, 16, nil)
	_ = td.Clear()
	_, _ = td.WriteString("aip31068")
	_ = td.MoveTo(2, 1)
	_, _ = td.WriteString("line 2")
}
