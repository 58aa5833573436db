// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package geom holds the integer geometry shared by every part of the compositor.
package geom

import "fmt"

// Box is a rectangle in layout coordinates
type Box struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Edges is a bitmask of box edges. Values match wlr_edges so they can be converted directly
type Edges uint32

const (
	EdgeNone   Edges = 0
	EdgeTop    Edges = 1
	EdgeBottom Edges = 2
	EdgeLeft   Edges = 4
	EdgeRight  Edges = 8
)

func (b Box) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", b.Width, b.Height, b.X, b.Y)
}

func (b Box) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

func (b Box) Right() int {
	return b.X + b.Width
}

func (b Box) Bottom() int {
	return b.Y + b.Height
}

// Contains reports whether the point lies inside the box. The right and bottom edges are exclusive
func (b Box) Contains(x, y float64) bool {
	if b.Empty() {
		return false
	}
	return x >= float64(b.X) && x < float64(b.Right()) &&
		y >= float64(b.Y) && y < float64(b.Bottom())
}

// Inset shrinks the box by n on every side. Width and height never drop below 0
func (b Box) Inset(n int) Box {
	out := Box{
		X:      b.X + n,
		Y:      b.Y + n,
		Width:  b.Width - 2*n,
		Height: b.Height - 2*n,
	}
	out.Width = max(out.Width, 0)
	out.Height = max(out.Height, 0)
	return out
}

// Union returns the smallest box containing both boxes. Empty boxes are ignored
func (b Box) Union(o Box) Box {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	x := min(b.X, o.X)
	y := min(b.Y, o.Y)
	return Box{
		X:      x,
		Y:      y,
		Width:  max(b.Right(), o.Right()) - x,
		Height: max(b.Bottom(), o.Bottom()) - y,
	}
}

// Fit scales a width x height rectangle uniformly so that it fits into cell, never scaling up,
// and centres it inside the cell. The returned scale is in (0, 1]
func Fit(width, height int, cell Box) (Box, float64) {
	if width <= 0 || height <= 0 || cell.Empty() {
		return Box{X: cell.X + cell.Width/2, Y: cell.Y + cell.Height/2}, 1
	}
	scale := min(1.0, float64(cell.Width)/float64(width), float64(cell.Height)/float64(height))
	w := int(float64(width) * scale)
	h := int(float64(height) * scale)
	return Box{
		X:      cell.X + (cell.Width-w)/2,
		Y:      cell.Y + (cell.Height-h)/2,
		Width:  w,
		Height: h,
	}, scale
}
