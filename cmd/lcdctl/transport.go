// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/GermanBionicSystems/charlcd/aip31068"
	"github.com/GermanBionicSystems/charlcd/hd44780"
	"github.com/GermanBionicSystems/charlcd/lcdsim"
	"github.com/GermanBionicSystems/charlcd/nxp74hc595"
	"github.com/GermanBionicSystems/charlcd/pcf857x"
	"github.com/GermanBionicSystems/charlcd/waveshare1602"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/gpioioctl"
)

// mcp23008Address is the Adafruit backpack with no address jumpers set.
const mcp23008Address = 0x20

// target is an opened display and whatever must be closed with it.
type target struct {
	dev       *hd44780.Dev
	backlight display.DisplayBacklight
	rgb       display.DisplayRGBBacklight
	sim       *lcdsim.Dev
	closers   []io.Closer
}

func (t *target) Close() error {
	var errs []error
	for i := len(t.closers) - 1; i >= 0; i-- {
		errs = append(errs, t.closers[i].Close())
	}
	return errors.Join(errs...)
}

func openTarget(cfg Config, logger zerolog.Logger) (*target, error) {
	if cfg.Transport == transportSim {
		return openSim(cfg, logger), nil
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	switch cfg.Transport {
	case transportGPIO:
		return openGPIO(cfg.GPIO)
	case transportGroup:
		return openGroup(cfg.GPIO)
	case transportHC595:
		return openHC595(cfg.SPI)
	}
	return openI2C(cfg)
}

func openSim(cfg Config, logger zerolog.Logger) *target {
	clock := &lcdsim.Clock{}
	sim := lcdsim.New(&lcdsim.Opts{Rows: cfg.Rows, Cols: cfg.Cols, Clock: clock, Logger: &logger})
	return &target{
		dev: hd44780.New(sim, &hd44780.Opts{Delayer: clock}),
		sim: sim,
	}
}

func pinByName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio: no pin named %q", name)
	}
	return p, nil
}

func openGPIO(cfg GPIOConfig) (*target, error) {
	var pins [6]gpio.PinOut
	for i, name := range []string{cfg.RS, cfg.E, cfg.D4, cfg.D5, cfg.D6, cfg.D7} {
		p, err := pinByName(name)
		if err != nil {
			return nil, err
		}
		pins[i] = p
	}
	t := &target{dev: hd44780.New(hd44780.NewGPIOBus(pins[0], pins[1], pins[2], pins[3], pins[4], pins[5]), nil)}
	if cfg.Backlight != "" {
		p, err := pinByName(cfg.Backlight)
		if err != nil {
			return nil, err
		}
		t.backlight = hd44780.NewBacklight(p)
	}
	return t, nil
}

// openGroup requests D4-D7 as one line set from the first GPIO chip.
func openGroup(cfg GPIOConfig) (*target, error) {
	if len(gpioioctl.Chips) == 0 {
		return nil, errors.New("gpio: no GPIO chip found")
	}
	ls, err := gpioioctl.Chips[0].LineSet(gpioioctl.LineOutput, gpio.NoEdge, gpio.PullNoChange,
		cfg.D4, cfg.D5, cfg.D6, cfg.D7)
	if err != nil {
		return nil, fmt.Errorf("gpio: %w", err)
	}
	rs, err := pinByName(cfg.RS)
	if err != nil {
		return nil, err
	}
	e, err := pinByName(cfg.E)
	if err != nil {
		return nil, err
	}
	t := &target{dev: hd44780.New(hd44780.NewGroupBus(ls, rs, e), nil), closers: []io.Closer{ls}}
	if cfg.Backlight != "" {
		p, err := pinByName(cfg.Backlight)
		if err != nil {
			return nil, err
		}
		t.backlight = hd44780.NewBacklight(p)
	}
	return t, nil
}

func openHC595(cfg SPIConfig) (*target, error) {
	port, err := spireg.Open(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("spi: %w", err)
	}
	conn, err := port.Connect(physic.Frequency(cfg.Hz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("spi: %w", err)
	}
	dev, bl, err := nxp74hc595.NewAdafruitSPIBackpack(conn, nil)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return &target{dev: dev, backlight: bl, closers: []io.Closer{port}}, nil
}

func openI2C(cfg Config) (*target, error) {
	bus, err := i2creg.Open(cfg.I2C.Bus)
	if err != nil {
		return nil, fmt.Errorf("i2c: %w", err)
	}
	addr := uint16(cfg.I2C.Addr)
	t := &target{closers: []io.Closer{bus}}
	switch cfg.Transport {
	case transportPCF8574, transportPCF8575:
		chip := pcf857x.PCF8574
		if cfg.Transport == transportPCF8575 {
			chip = pcf857x.PCF8575
		}
		if addr == 0 {
			addr = pcf857x.DefaultAddress
		}
		var b *pcf857x.Backpack
		t.dev, b, err = pcf857x.NewLCD(bus, addr, chip, nil)
		t.backlight = b
	case transportMCP23008:
		if addr == 0 {
			addr = mcp23008Address
		}
		var bl *hd44780.GPIOMonoBacklight
		t.dev, bl, err = hd44780.NewAdafruitI2CBackpack(bus, addr, nil)
		t.backlight = bl
	case transportAIP31068:
		if addr == 0 {
			addr = aip31068.DefaultAddress
		}
		t.dev = hd44780.New(aip31068.New(bus, addr), nil)
	case transportWS1602:
		var bl *waveshare1602.RGBBacklight
		t.dev, bl, err = waveshare1602.New(bus, waveshare1602.LCD1602RGBBacklight, nil)
		if bl != nil {
			t.backlight, t.rgb = bl, bl
		}
	}
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	return t, nil
}
