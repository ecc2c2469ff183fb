// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

var (
	ErrNotImplemented = fmt.Errorf("%s: %w", packageName, display.ErrNotImplemented)
)

// TextDisplay presents a Dev of a known size as a periph display.TextDisplay.
// Positions are 1 based, as the interface requires, and are range checked.
type TextDisplay struct {
	dev       *Dev
	rows      int
	cols      int
	backlight display.DisplayBacklight
}

// NewTextDisplay wraps dev. backlight may be nil if the backlight is hard
// wired.
func NewTextDisplay(dev *Dev, rows, cols int, backlight display.DisplayBacklight) *TextDisplay {
	if rows > MaxRow+1 {
		rows = MaxRow + 1
	}
	return &TextDisplay{dev: dev, rows: rows, cols: cols, backlight: backlight}
}

// Dev returns the underlying controller.
func (td *TextDisplay) Dev() *Dev {
	return td.dev
}

// AutoScroll turns the entry mode shift on or off.
func (td *TextDisplay) AutoScroll(enabled bool) error {
	if enabled {
		return td.dev.Autoscroll()
	}
	return td.dev.NoAutoscroll()
}

// Clear clears the screen and moves the cursor to the first position.
func (td *TextDisplay) Clear() error {
	return td.dev.Clear()
}

// Cols returns the number of columns.
func (td *TextDisplay) Cols() int {
	return td.cols
}

// Cursor sets the cursor mode. Modes combine, so
// Cursor(display.CursorUnderline, display.CursorBlink) shows both.
func (td *TextDisplay) Cursor(modes ...display.CursorMode) error {
	if err := td.dev.Init(); err != nil {
		return err
	}
	c := td.dev.Control() & DisplayOn
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
		case display.CursorUnderline:
			c |= CursorOn
		case display.CursorBlink, display.CursorBlock:
			c |= BlinkOn
		default:
			return fmt.Errorf("%s: unexpected cursor: %d", packageName, mode)
		}
	}
	return td.dev.SetDisplayControl(c)
}

// Display turns the display on or off.
func (td *TextDisplay) Display(on bool) error {
	if on {
		return td.dev.DisplayOn()
	}
	return td.dev.DisplayOff()
}

// Home moves the cursor to (MinRow(), MinCol()).
func (td *TextDisplay) Home() error {
	return td.dev.Home()
}

// MinCol returns the first column number.
func (td *TextDisplay) MinCol() int {
	return 1
}

// MinRow returns the first row number.
func (td *TextDisplay) MinRow() int {
	return 1
}

// Move moves the cursor forward or backward. The controller cannot move
// between rows.
func (td *TextDisplay) Move(dir display.CursorDirection) error {
	switch dir {
	case display.Forward:
		return td.dev.MoveCursorRight()
	case display.Backward:
		return td.dev.MoveCursorLeft()
	default:
		return ErrNotImplemented
	}
}

// MoveTo moves the cursor to row, col.
func (td *TextDisplay) MoveTo(row, col int) error {
	if row < td.MinRow() || row > td.rows || col < td.MinCol() || col > td.cols {
		return fmt.Errorf("%s: MoveTo(%d,%d) value out of range", packageName, row, col)
	}
	return td.dev.GotoXY(uint8(col-1), uint8(row-1))
}

// Rows returns the number of rows.
func (td *TextDisplay) Rows() int {
	return td.rows
}

func (td *TextDisplay) String() string {
	return fmt.Sprintf("%s - Rows: %d, Cols: %d", td.dev, td.rows, td.cols)
}

// Write writes p at the cursor.
func (td *TextDisplay) Write(p []byte) (int, error) {
	return td.dev.Write(p)
}

// WriteString writes s at the cursor.
func (td *TextDisplay) WriteString(s string) (int, error) {
	return td.dev.WriteString(s)
}

// Backlight switches the backlight. Without a backlight controller it
// returns ErrNotImplemented.
func (td *TextDisplay) Backlight(intensity display.Intensity) error {
	if td.backlight == nil {
		return ErrNotImplemented
	}
	return td.backlight.Backlight(intensity)
}

// Halt clears the display, turns the backlight off and turns the display off.
func (td *TextDisplay) Halt() error {
	_ = td.dev.Clear()
	if td.backlight != nil {
		_ = td.backlight.Backlight(0)
	}
	return td.dev.Halt()
}

var _ display.TextDisplay = &TextDisplay{}
var _ display.DisplayBacklight = &TextDisplay{}
var _ conn.Resource = &TextDisplay{}
