// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"github.com/mstarongithub/strata/compositor"
	"github.com/mstarongithub/strata/input"
	"github.com/mstarongithub/strata/scene"
	"github.com/mstarongithub/strata/view"
	"github.com/sirupsen/logrus"
	"github.com/swaywm/go-wlroots/wlroots"
)

// wlSeat forwards focus and input to the wlroots seat
type wlSeat struct {
	b *Backend
}

var _ compositor.Seat = (*wlSeat)(nil)

func (s *wlSeat) SetKeyboard(kb *input.Keyboard) {
	if dev, ok := kb.Handle.(wlroots.InputDevice); ok {
		s.b.seat.SetKeyboard(dev)
	}
}

func (s *wlSeat) KeyboardKey(time, keycode uint32, pressed bool) {
	state := wlroots.KeyStateReleased
	if pressed {
		state = wlroots.KeyStatePressed
	}
	s.b.seat.NotifyKeyboardKey(time, keycode, state)
}

func (s *wlSeat) KeyboardModifiers(kb *input.Keyboard) {
	if dev, ok := kb.Handle.(wlroots.InputDevice); ok {
		s.b.seat.NotifyKeyboardModifiers(dev.Keyboard())
	}
}

// resolve finds the surface the pointer is over. The graph only knows the window,
// the surface inside it comes from the wlroots scene
func (s *wlSeat) resolve(n *scene.Node, sx, sy float64) (wlroots.Surface, float64, float64, bool) {
	if surface, lsx, lsy, ok := s.b.surfaceAt(s.b.cursor.X(), s.b.cursor.Y()); ok {
		return surface, lsx, lsy, true
	}
	if n == nil {
		return wlroots.Surface{}, 0, 0, false
	}
	if v, ok := n.Data.(*view.View); ok {
		if t, ok := v.Toplevel.(*wlToplevel); ok {
			return t.surface(), sx, sy, true
		}
	}
	return wlroots.Surface{}, 0, 0, false
}

func (s *wlSeat) PointerEnter(n *scene.Node, sx, sy float64) {
	surface, lsx, lsy, ok := s.resolve(n, sx, sy)
	if !ok {
		logrus.WithField("node", n).Debugln("No surface under pointer")
		return
	}
	s.b.seat.NotifyPointerEnter(surface, lsx, lsy)
}

// PointerMotion re-enters as well, wlroots drops the duplicate enter when the
// surface did not change but catches moves between subsurfaces of one window
func (s *wlSeat) PointerMotion(time uint32, sx, sy float64) {
	surface, lsx, lsy, ok := s.resolve(nil, sx, sy)
	if !ok {
		return
	}
	s.b.seat.NotifyPointerEnter(surface, lsx, lsy)
	s.b.seat.NotifyPointerMotion(time, lsx, lsy)
}

func (s *wlSeat) PointerClear() {
	s.b.seat.ClearPointerFocus()
}

func (s *wlSeat) PointerButton(time, button uint32, pressed bool) {
	state := wlroots.ButtonStateReleased
	if pressed {
		state = wlroots.ButtonStatePressed
	}
	s.b.seat.NotifyPointerButton(time, button, state)
}

func (s *wlSeat) PointerAxis(time uint32, axis input.AxisEvent) {
	var orientation uint32
	if !axis.Vertical {
		orientation = 1
	}
	s.b.seat.NotifyPointerAxis(time, wlroots.AxisOrientation(orientation), axis.Delta, axis.Discrete, wlroots.AxisSource(axis.Source))
}

func (s *wlSeat) PointerFrame() {
	s.b.seat.NotifyPointerFrame()
}

func (s *wlSeat) KeyboardEnter(v *view.View) {
	t, ok := v.Toplevel.(*wlToplevel)
	if !ok {
		return
	}
	/* wlroots keeps track of the focused surface and sends key events there */
	s.b.seat.NotifyKeyboardEnter(t.surface(), s.b.seat.Keyboard())
}

// KeyboardClear only happens when no view is left to focus. The client was already
// deactivated, and wlroots drops the focus once its surface goes away
func (s *wlSeat) KeyboardClear() {
	logrus.Debugln("Keyboard focus cleared")
}

// wlCursor is the input.Cursor of the wlr_cursor
type wlCursor struct {
	b *Backend
}

func (c *wlCursor) Position() (float64, float64) {
	return c.b.cursor.X(), c.b.cursor.Y()
}

func (c *wlCursor) SetDefaultImage() {
	c.b.cursor.SetXCursor(c.b.cursorMgr, "default")
}
