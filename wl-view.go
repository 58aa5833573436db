// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"github.com/mstarongithub/strata/geom"
	"github.com/mstarongithub/strata/scene"
	"github.com/mstarongithub/strata/view"
	"github.com/swaywm/go-wlroots/wlroots"
)

// wlToplevel is the view.Toplevel of an xdg toplevel.
// Configure serials are not reported back by go-wlroots, so every configure is
// returned as serial 0 and settles once the client commits the requested size
type wlToplevel struct {
	toplevel wlroots.XDGTopLevel
}

var _ view.Toplevel = (*wlToplevel)(nil)

func (t *wlToplevel) Title() string {
	return t.toplevel.Title()
}

func (t *wlToplevel) AppID() string {
	return t.toplevel.AppID()
}

func (t *wlToplevel) Geometry() geom.Box {
	box := t.toplevel.Base().Geometry()
	return geom.Box{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}
}

func (t *wlToplevel) SetActivated(activated bool) {
	t.toplevel.SetActivated(activated)
}

func (t *wlToplevel) SetSize(width, height int) uint32 {
	t.toplevel.Base().TopLevelSetSize(uint32(width), uint32(height))
	return 0
}

// SetMaximized only changes the size through SetSize, clients learn the state from it
func (t *wlToplevel) SetMaximized(bool) uint32 {
	return 0
}

func (t *wlToplevel) SetFullscreen(bool) uint32 {
	return 0
}

func (t *wlToplevel) Close() {
	t.toplevel.SendClose()
}

func (t *wlToplevel) surface() wlroots.Surface {
	return t.toplevel.Base().Surface()
}

// sceneSink pushes graph changes to a wlroots scene node
type sceneSink struct {
	node wlroots.SceneNode
	// owned nodes are destroyed by wlroots together with their surface
	owned bool
}

var _ scene.Sink = (*sceneSink)(nil)

func (s *sceneSink) SetPosition(x, y int) {
	s.node.SetPosition(float64(x), float64(y))
}

func (s *sceneSink) SetEnabled(enabled bool) {
	s.node.SetEnabled(enabled)
}

func (s *sceneSink) RaiseToTop() {
	s.node.RaiseToTop()
}

func (s *sceneSink) Destroy() {
	if s.owned {
		return
	}
	s.node.Destroy()
}
