// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package view

import (
	"fmt"
	"strings"

	"github.com/mstarongithub/strata/geom"
	"github.com/mstarongithub/strata/scene"
)

// ID addresses a view for as long as it lives. IDs are never reused
type ID uint64

type State uint8

const (
	StateMapped State = 1 << iota
	StateMaximized
	StateMinimized
	StateFullscreen
	StateTiled
)

var stateNames = []string{"mapped", "maximized", "minimized", "fullscreen", "tiled"}

func (s State) String() string {
	var parts []string
	for i, name := range stateNames {
		if s&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return "unmapped"
	}
	return strings.Join(parts, "|")
}

// Toplevel is the protocol side of a window.
// The Set* requests return the serial of the configure they schedule
type Toplevel interface {
	Title() string
	AppID() string
	// Geometry is the window geometry of the last committed buffer, X and Y
	// being the offset of the visible window inside its surface
	Geometry() geom.Box
	SetActivated(activated bool)
	SetSize(width, height int) uint32
	SetMaximized(maximized bool) uint32
	SetFullscreen(fullscreen bool) uint32
	Close()
}

type configure struct {
	serial        uint32
	width, height int
}

type View struct {
	ID       ID
	Toplevel Toplevel
	Node     *scene.Node
	Title    string
	AppID    string

	state State
	// geometry to go back to when leaving maximized and fullscreen
	restoreMax  geom.Box
	restoreFull geom.Box

	pending *configure
	acked   uint32

	borders [4]*scene.Node
}

func (v *View) String() string {
	return fmt.Sprintf("view %d (%s)", v.ID, v.AppID)
}

func (v *View) Is(s State) bool {
	return v.state&s == s
}

func (v *View) State() State {
	return v.state
}

func (v *View) Mapped() bool {
	return v.Is(StateMapped)
}

// Visible reports whether the view is mapped and not minimized
func (v *View) Visible() bool {
	return v.Mapped() && !v.Is(StateMinimized)
}

// Geometry is the window box in layout coordinates
func (v *View) Geometry() geom.Box {
	x, y := v.Node.Position()
	w, h := v.Node.Size()
	off := v.Toplevel.Geometry()
	return geom.Box{X: x + off.X, Y: y + off.Y, Width: w, Height: h}
}

// PendingSerial returns the serial of the last unacknowledged configure, or 0
func (v *View) PendingSerial() uint32 {
	if v.pending == nil {
		return 0
	}
	return v.pending.serial
}

// Borders returns the decoration nodes, top, bottom, left, right
func (v *View) Borders() [4]*scene.Node {
	return v.borders
}

// moveTo places the window box, accounting for the client side offset of the surface
func (v *View) moveTo(x, y int) {
	off := v.Toplevel.Geometry()
	v.Node.SetPosition(x-off.X, y-off.Y)
}
