// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcf857x

import (
	"errors"
	"testing"
	"time"

	"github.com/GermanBionicSystems/charlcd/hd44780"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func getBackpack(t *testing.T, chip Variant) (*Backpack, *i2ctest.Record) {
	rec := &i2ctest.Record{}
	b, err := New(rec, DefaultAddress, chip, nil)
	if err != nil {
		t.Fatal(err)
	}
	return b, rec
}

// writes returns the bytes of every recorded transaction.
func writes(t *testing.T, rec *i2ctest.Record) [][]byte {
	var got [][]byte
	for _, op := range rec.Ops {
		if op.Addr != DefaultAddress {
			t.Errorf("write to address 0x%x, expected 0x%x", op.Addr, DefaultAddress)
		}
		got = append(got, op.W)
	}
	return got
}

func TestSend(t *testing.T) {
	tests := []struct {
		name  string
		value byte
		reg   hd44780.Register
		width hd44780.Width
		want  [][]byte
	}{
		{
			name:  "data byte",
			value: 'A',
			reg:   hd44780.Data,
			width: hd44780.Byte,
			// D7-D4 | BL | E | RS
			want: [][]byte{{0x08}, {0x49}, {0x4d}, {0x49}, {0x19}, {0x1d}, {0x19}},
		},
		{
			name:  "instruction nibble",
			value: 0x03,
			reg:   hd44780.Instruction,
			width: hd44780.Nibble,
			want:  [][]byte{{0x08}, {0x38}, {0x3c}, {0x38}},
		},
		{
			name:  "instruction byte with repeated nibble",
			value: 0x22,
			reg:   hd44780.Instruction,
			width: hd44780.Byte,
			want:  [][]byte{{0x08}, {0x28}, {0x2c}, {0x28}, {0x2c}, {0x28}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, rec := getBackpack(t, PCF8574)
			if err := b.Prepare(); err != nil {
				t.Fatal(err)
			}
			if err := b.Send(tc.value, tc.reg, tc.width); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(writes(t, rec), tc.want); diff != "" {
				t.Errorf("Send() writes mismatch (-got +want):\n%s", diff)
			}
		})
	}
}

func TestPCF8575(t *testing.T) {
	rec := &i2ctest.Record{}
	pins := PinMap{RS: 8, RW: 9, E: 10, Backlight: 11, D4: 12, D5: 13, D6: 14, D7: 15}
	b, err := New(rec, DefaultAddress, PCF8575, &pins)
	if err != nil {
		t.Fatal(err)
	}
	if err = b.Send(0x01, hd44780.Instruction, hd44780.Nibble); err != nil {
		t.Fatal(err)
	}
	want := [][]byte{{0x00, 0x18}, {0x00, 0x1c}, {0x00, 0x18}}
	if diff := cmp.Diff(writes(t, rec), want); diff != "" {
		t.Errorf("Send() writes mismatch (-got +want):\n%s", diff)
	}
}

func TestBacklight(t *testing.T) {
	b, rec := getBackpack(t, PCF8574)
	if err := b.Prepare(); err != nil {
		t.Fatal(err)
	}
	if err := b.Backlight(0); err != nil {
		t.Fatal(err)
	}
	// The backlight bit is kept off by subsequent transmissions.
	if err := b.Send(0x00, hd44780.Instruction, hd44780.Nibble); err != nil {
		t.Fatal(err)
	}
	if err := b.Backlight(0xff); err != nil {
		t.Fatal(err)
	}
	want := [][]byte{{0x08}, {0x00}, {0x04}, {0x00}, {0x08}}
	if diff := cmp.Diff(writes(t, rec), want); diff != "" {
		t.Errorf("writes mismatch (-got +want):\n%s", diff)
	}
}

func TestInvalidPinMap(t *testing.T) {
	for _, pins := range []PinMap{
		{RS: 0, RW: 1, E: 2, Backlight: 3, D4: 4, D5: 5, D6: 6, D7: 8},
		{RS: 0, RW: 1, E: 0, Backlight: 3, D4: 4, D5: 5, D6: 6, D7: 7},
		{RS: -1, RW: 1, E: 2, Backlight: 3, D4: 4, D5: 5, D6: 6, D7: 7},
	} {
		_, err := New(&i2ctest.Record{}, DefaultAddress, PCF8574, &pins)
		if !errors.Is(err, ErrInvalidPinMap) {
			t.Errorf("New(%+v) expected ErrInvalidPinMap, got %v", pins, err)
		}
	}
}

func TestNewLCD(t *testing.T) {
	rec := &i2ctest.Record{}
	dev, b, err := NewLCD(rec, DefaultAddress, PCF8574, &hd44780.Opts{Delayer: hd44780.DelayFunc(func(time.Duration) {})})
	if err != nil {
		t.Fatal(err)
	}
	if s := b.String(); s != "PCF8574_27" {
		t.Errorf("String() = %q", s)
	}
	if err = dev.WriteByte('A'); err != nil {
		t.Fatal(err)
	}
	got := writes(t, rec)
	if len(got) < 6 {
		t.Fatalf("expected the init sequence before the data byte, got %d writes", len(got))
	}
	// The data byte is the last two strobed nibbles.
	tail := got[len(got)-6:]
	want := [][]byte{{0x49}, {0x4d}, {0x49}, {0x19}, {0x1d}, {0x19}}
	if diff := cmp.Diff(tail, want); diff != "" {
		t.Errorf("data byte writes mismatch (-got +want):\n%s", diff)
	}
}
