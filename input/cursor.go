// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package input

import (
	"github.com/mstarongithub/strata/geom"
	"github.com/mstarongithub/strata/view"
	"github.com/sirupsen/logrus"
)

type CursorMode int

const (
	CursorPassthrough CursorMode = iota
	CursorMove
	CursorResize
)

func (m CursorMode) String() string {
	switch m {
	case CursorPassthrough:
		return "passthrough"
	case CursorMove:
		return "move"
	case CursorResize:
		return "resize"
	default:
		return "unknown"
	}
}

type cursorState struct {
	mode    CursorMode
	grabbed *view.View
	grabX   float64
	grabY   float64
	grabBox geom.Box
	edges   geom.Edges
}

func (r *Router) Mode() CursorMode {
	return r.mode
}

// Grabbed returns the view under an interactive move or resize, if any
func (r *Router) Grabbed() *view.View {
	return r.grabbed
}

// BeginInteractive starts moving or resizing v. Clients may only ask for this
// while they hold pointer focus, anything else is ignored
func (r *Router) BeginInteractive(v *view.View, mode CursorMode, edges geom.Edges) {
	if v == nil || !v.Visible() || mode == CursorPassthrough {
		return
	}
	if r.pointerFocus == nil || r.pointerFocus != v.Node {
		logrus.WithField("view", v.ID).Debugln("Ignoring interactive request from view without pointer focus")
		return
	}
	cx, cy := r.cursor.Position()
	box := v.Geometry()
	r.grabbed = v
	r.mode = mode
	if mode == CursorMove {
		r.grabX = cx - float64(box.X)
		r.grabY = cy - float64(box.Y)
	} else {
		borderX := box.X
		if edges&geom.EdgeRight != 0 {
			borderX += box.Width
		}
		borderY := box.Y
		if edges&geom.EdgeBottom != 0 {
			borderY += box.Height
		}
		r.grabX = cx - float64(borderX)
		r.grabY = cy - float64(borderY)
		r.grabBox = box
		r.edges = edges
	}
	logrus.WithFields(logrus.Fields{
		"view":  v.ID,
		"mode":  mode,
		"edges": edges,
	}).Debugln("beginInteractive")
}

// ResetCursorMode ends any interactive grab
func (r *Router) ResetCursorMode() {
	r.cursorState = cursorState{}
}

func (r *Router) processMove() {
	cx, cy := r.cursor.Position()
	x := int(cx - r.grabX)
	y := int(cy - r.grabY)
	if y < r.TopMargin {
		y = r.TopMargin
	}
	r.views.Move(r.grabbed, x, y)
}

func (r *Router) processResize() {
	cx, cy := r.cursor.Position()
	borderX := int(cx - r.grabX)
	borderY := int(cy - r.grabY)
	left := r.grabBox.X
	right := r.grabBox.Right()
	top := r.grabBox.Y
	bottom := r.grabBox.Bottom()

	if r.edges&geom.EdgeTop != 0 {
		top = borderY
		if top >= bottom {
			top = bottom - 1
		}
	} else if r.edges&geom.EdgeBottom != 0 {
		bottom = borderY
		if bottom <= top {
			bottom = top + 1
		}
	}
	if r.edges&geom.EdgeLeft != 0 {
		left = borderX
		if left >= right {
			left = right - 1
		}
	} else if r.edges&geom.EdgeRight != 0 {
		right = borderX
		if right <= left {
			right = left + 1
		}
	}

	r.views.SetGeometry(r.grabbed, geom.Box{X: left, Y: top, Width: right - left, Height: bottom - top})
}
