// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/GermanBionicSystems/charlcd/hd44780"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"periph.io/x/conn/v3/display"
)

// Panel geometry, in dots. A character is 5x8 dots with a one dot gap.
const (
	glyphW  = 5
	glyphH  = 8
	cellW   = glyphW + 1
	cellH   = glyphH + 1
	margin  = 2
	cursorY = glyphH - 1
)

// RenderOpts controls Render.
type RenderOpts struct {
	// Scale is the size of a dot in pixels. Defaults to 4.
	Scale int
	// Face draws ROM characters. Defaults to basicfont.Face7x13. CGRAM
	// characters are always drawn dot by dot.
	Face font.Face
	// Background is the lit panel, Ink the dots. Default to a yellow-green
	// panel.
	Background, Ink color.Color
}

var (
	DefaultBackground = color.NRGBA{0x9b, 0xc6, 0x3b, 0xff}
	DefaultInk        = color.NRGBA{0x1e, 0x2c, 0x10, 0xff}
)

// LoadFont parses a TrueType font file for RenderOpts.Face.
func LoadFont(path string, size float64) (font.Face, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lcdsim: %w", err)
	}
	f, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("lcdsim: %s: %w", path, err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}

func (o *RenderOpts) defaults() RenderOpts {
	r := RenderOpts{}
	if o != nil {
		r = *o
	}
	if r.Scale <= 0 {
		r.Scale = 4
	}
	if r.Face == nil {
		r.Face = basicfont.Face7x13
	}
	if r.Background == nil {
		r.Background = DefaultBackground
	}
	if r.Ink == nil {
		r.Ink = DefaultInk
	}
	return r
}

// Size returns the pixel size of a rendered panel.
func (d *Dev) Size(scale int) image.Point {
	if scale <= 0 {
		scale = 4
	}
	return image.Point{
		X: (2*margin + d.cols*cellW - 1) * scale,
		Y: (2*margin + d.rows*cellH - 1) * scale,
	}
}

// Render draws the panel as it currently looks. A blinking cursor is drawn
// in its visible phase.
func (d *Dev) Render(opts *RenderOpts) image.Image {
	o := opts.defaults()
	size := d.Size(o.Scale)

	d.mu.Lock()
	cells := d.cells()
	control := d.control
	cgram := d.cgram
	d.mu.Unlock()
	col, row, cursorOK := d.CursorPos()

	dc := gg.NewContext(size.X, size.Y)
	dc.SetColor(o.Background)
	dc.Clear()
	if control&hd44780.DisplayOn == 0 {
		return dc.Image()
	}
	dc.SetColor(o.Ink)
	dc.SetFontFace(o.Face)
	s := float64(o.Scale)
	for r, line := range cells {
		for c, code := range line {
			x := float64((margin + c*cellW) * o.Scale)
			y := float64((margin + r*cellH) * o.Scale)
			switch {
			case code < 0x10:
				base := int(code&7) * 8
				for j := 0; j < glyphH; j++ {
					bits := cgram[base+j]
					for i := 0; i < glyphW; i++ {
						if bits>>(glyphW-1-i)&1 == 1 {
							dc.DrawRectangle(x+float64(i)*s, y+float64(j)*s, s, s)
						}
					}
				}
				dc.Fill()
			case code > ' ' && code < 0x7f:
				dc.DrawStringAnchored(string(rune(code)), x+glyphW*s/2, y+glyphH*s/2, 0.5, 0.5)
			}
		}
	}
	if cursorOK {
		x := float64((margin + col*cellW) * o.Scale)
		y := float64((margin + row*cellH) * o.Scale)
		if control&hd44780.BlinkOn != 0 {
			dc.DrawRectangle(x, y, glyphW*s, glyphH*s)
		} else if control&hd44780.CursorOn != 0 {
			dc.DrawRectangle(x, y+cursorY*s, glyphW*s, s)
		}
		dc.Fill()
	}
	return dc.Image()
}

// SavePNG renders the panel into a PNG file.
func (d *Dev) SavePNG(path string, opts *RenderOpts) error {
	if err := gg.SavePNG(path, d.Render(opts)); err != nil {
		return fmt.Errorf("lcdsim: %w", err)
	}
	return nil
}

// DrawTo renders the panel onto dst, scaled to fit its width.
func (d *Dev) DrawTo(dst display.Drawer, opts *RenderOpts) error {
	o := opts.defaults()
	b := dst.Bounds()
	if w := d.Size(1).X; b.Dx() >= w {
		o.Scale = b.Dx() / w
	} else {
		o.Scale = 1
	}
	return dst.Draw(b, d.Render(&o), image.Point{})
}
