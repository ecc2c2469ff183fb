// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/GermanBionicSystems/charlcd/waveshare1602"
)

// Transports selectable with the transport key.
const (
	transportGPIO     = "gpio"
	transportGroup    = "group"
	transportPCF8574  = "pcf8574"
	transportPCF8575  = "pcf8575"
	transportMCP23008 = "mcp23008"
	transportHC595    = "hc595"
	transportAIP31068 = "aip31068"
	transportWS1602   = "waveshare1602"
	transportSim      = "sim"
)

var transports = []string{
	transportGPIO, transportGroup, transportPCF8574, transportPCF8575,
	transportMCP23008, transportHC595, transportAIP31068, transportWS1602, transportSim,
}

type Config struct {
	Transport string     `toml:"transport"`
	Rows      int        `toml:"rows"`
	Cols      int        `toml:"cols"`
	GPIO      GPIOConfig `toml:"gpio"`
	I2C       I2CConfig  `toml:"i2c"`
	SPI       SPIConfig  `toml:"spi"`
	Sim       SimConfig  `toml:"sim"`
	Log       LogConfig  `toml:"log"`
}

// GPIOConfig names the host pins, as known to gpioreg. Backlight is
// optional.
type GPIOConfig struct {
	RS        string `toml:"rs"`
	E         string `toml:"e"`
	D4        string `toml:"d4"`
	D5        string `toml:"d5"`
	D6        string `toml:"d6"`
	D7        string `toml:"d7"`
	Backlight string `toml:"backlight"`
}

// I2CConfig selects the bus for i2creg.Open. Addr 0 means the chip default.
type I2CConfig struct {
	Bus  string `toml:"bus"`
	Addr int    `toml:"addr"`
}

type SPIConfig struct {
	Port string `toml:"port"`
	Hz   int64  `toml:"hz"`
}

// SimConfig controls the outputs of the sim transport.
type SimConfig struct {
	PNG      string  `toml:"png"`
	Font     string  `toml:"font"`
	FontSize float64 `toml:"font_size"`
	Terminal bool    `toml:"terminal"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func DefaultConfig() Config {
	return Config{
		Transport: transportSim,
		Rows:      2,
		Cols:      16,
		SPI:       SPIConfig{Hz: 1_000_000},
		Sim:       SimConfig{FontSize: 12, Terminal: true},
		Log:       LogConfig{Level: "info"},
	}
}

// loadConfig returns the defaults overlaid with the file at path. An empty
// path returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Config{}, fmt.Errorf("config load failed (%s): unknown keys %s", path, strings.Join(keys, ", "))
		}
	}
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func ValidateConfig(cfg Config) error {
	known := false
	for _, t := range transports {
		if cfg.Transport == t {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("unknown transport %q, expected one of %s", cfg.Transport, strings.Join(transports, ", "))
	}
	if cfg.Rows < 1 || cfg.Rows > 4 {
		return fmt.Errorf("rows must be between 1 and 4, got %d", cfg.Rows)
	}
	if cfg.Cols < 1 || cfg.Cols > 40 {
		return fmt.Errorf("cols must be between 1 and 40, got %d", cfg.Cols)
	}
	switch cfg.Transport {
	case transportGPIO, transportGroup:
		if err := validatePins(cfg.GPIO); err != nil {
			return fmt.Errorf("gpio: %w", err)
		}
	case transportPCF8574, transportPCF8575, transportMCP23008, transportAIP31068:
		if cfg.I2C.Addr < 0 || cfg.I2C.Addr > 0x7f {
			return fmt.Errorf("i2c: addr 0x%x is not a 7-bit address", cfg.I2C.Addr)
		}
	case transportWS1602:
		if cfg.I2C.Addr != 0 {
			return fmt.Errorf("i2c: %s has fixed addresses, got addr 0x%x", transportWS1602, cfg.I2C.Addr)
		}
		if cfg.Rows > waveshare1602.Rows || cfg.Cols > waveshare1602.Cols {
			return fmt.Errorf("%s is %dx%d, got %dx%d", transportWS1602, waveshare1602.Rows, waveshare1602.Cols, cfg.Rows, cfg.Cols)
		}
	case transportHC595:
		if cfg.SPI.Hz <= 0 {
			return fmt.Errorf("spi: hz must be positive, got %d", cfg.SPI.Hz)
		}
	case transportSim:
		if cfg.Sim.Font != "" && cfg.Sim.FontSize <= 0 {
			return fmt.Errorf("sim: font_size must be positive, got %g", cfg.Sim.FontSize)
		}
	}
	if _, ok := parseLevel(cfg.Log.Level); !ok && strings.TrimSpace(cfg.Log.Level) != "" {
		return fmt.Errorf("log: unknown level %q", cfg.Log.Level)
	}
	return nil
}

func validatePins(p GPIOConfig) error {
	for _, pin := range []struct{ key, name string }{
		{"rs", p.RS}, {"e", p.E}, {"d4", p.D4}, {"d5", p.D5}, {"d6", p.D6}, {"d7", p.D7},
	} {
		if strings.TrimSpace(pin.name) == "" {
			return fmt.Errorf("%s pin is required", pin.key)
		}
	}
	return nil
}

// writeConfig prints cfg as TOML.
func writeConfig(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}
