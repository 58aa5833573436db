// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package compositor

import (
	"time"

	"github.com/mstarongithub/strata/eventbus"
	"github.com/mstarongithub/strata/geom"
	"github.com/mstarongithub/strata/input"
	"github.com/mstarongithub/strata/output"
	"github.com/mstarongithub/strata/scene"
	"github.com/mstarongithub/strata/view"
	"github.com/sirupsen/logrus"
)

// Outputs

func (s *Server) NewOutput(dev output.Device) *output.Output {
	return s.Outputs.Discover(dev)
}

func (s *Server) OutputFrame(dev output.Device, now time.Time) {
	s.Outputs.Frame(dev, now)
}

func (s *Server) OutputResized(dev output.Device, width, height int) {
	s.Outputs.Resize(dev, width, height)
}

func (s *Server) OutputDestroyed(dev output.Device) {
	s.Outputs.Destroy(dev)
}

func (s *Server) outputChanged(o *output.Output, removed bool) {
	if removed {
		s.Layers.RemoveOutput(o.Name)
		delete(s.announced, o.Name)
		s.Bus.Publish(eventbus.OutputRemoved, eventbus.Payload{"name": o.Name})
		s.Arrange()
		return
	}
	if !o.Enabled {
		return
	}
	// Arranging reports the new usable area through usableChanged
	s.Layers.ArrangeOutput(o.Name, o.Box)
	if !s.announced[o.Name] {
		s.announced[o.Name] = true
		s.Bus.Publish(eventbus.OutputAdded, eventbus.Payload{
			"name":    o.Name,
			"x":       o.Box.X,
			"y":       o.Box.Y,
			"width":   o.Box.Width,
			"height":  o.Box.Height,
			"refresh": o.Mode.Refresh,
			"nested":  o.Nested,
		})
	}
	// Other outputs may have moved in the layout
	for _, other := range s.Outputs.Enabled() {
		if other != o {
			s.Layers.ArrangeOutput(other.Name, other.Box)
		}
	}
}

func (s *Server) usableChanged(name string, usable geom.Box) {
	logrus.WithFields(logrus.Fields{
		"output": name,
		"usable": usable,
	}).Debugln("Usable area changed")
	if o := s.Outputs.Primary(); o != nil && o.Name == name {
		s.Arrange()
	}
}

// Windows

// NewToplevel registers a window the client just created. It stays invisible until mapped
func (s *Server) NewToplevel(t view.Toplevel, sink scene.Sink) *view.View {
	return s.Views.Create(t, sink)
}

func (s *Server) MapView(v *view.View) {
	if v == nil || v.Mapped() {
		return
	}
	if !s.placed[v.ID] {
		s.placed[v.ID] = true
		s.placeView(v)
	}
	s.Views.Map(v)
	s.Overview.ViewMapped(v)
	s.Arrange()
}

// placeView centres a new window on the output under the cursor
func (s *Server) placeView(v *view.View) {
	var o *output.Output
	if s.cursor != nil {
		o = s.Outputs.At(s.cursor.Position())
	}
	if o == nil {
		o = s.Outputs.Primary()
	}
	if o == nil {
		return
	}
	s.Views.Place(v, s.usable(o), s.Config.Input.MenuBarHeight)
}

func (s *Server) UnmapView(v *view.View) {
	if v == nil || !v.Mapped() {
		return
	}
	s.Input.ViewUnmapped(v)
	s.Overview.ViewUnmapped(v)
	s.Views.Unmap(v)
	s.Arrange()
}

func (s *Server) DestroyView(v *view.View) {
	if v == nil {
		return
	}
	s.UnmapView(v)
	delete(s.placed, v.ID)
	s.Views.Destroy(v)
}

// CommitView picks up client state after a surface commit
func (s *Server) CommitView(v *view.View) {
	s.Views.Commit(v)
}

func (s *Server) AckConfigure(v *view.View, serial uint32) {
	s.Views.AckConfigure(v, serial)
}

// RequestMove starts an interactive move, as asked for by a client
func (s *Server) RequestMove(v *view.View) {
	if s.Overview.Active() {
		return
	}
	s.Input.BeginInteractive(v, input.CursorMove, geom.EdgeNone)
}

func (s *Server) RequestResize(v *view.View, edges geom.Edges) {
	if s.Overview.Active() {
		return
	}
	s.Input.BeginInteractive(v, input.CursorResize, edges)
}

func (s *Server) RequestMaximize(v *view.View, maximized bool) {
	if v == nil || !v.Mapped() {
		return
	}
	s.setMaximized(v, maximized)
}

func (s *Server) RequestFullscreen(v *view.View, fullscreen bool) {
	if v == nil || !v.Mapped() {
		return
	}
	s.setFullscreen(v, fullscreen)
}

func (s *Server) RequestMinimize(v *view.View) {
	if v == nil || !v.Mapped() {
		return
	}
	s.Views.Minimize(v)
	s.Arrange()
}

func (s *Server) NegotiateDecoration(requested view.DecorationMode) view.DecorationMode {
	return view.NegotiateDecoration(requested)
}

// Layer surfaces

// NewLayerSurface binds a panel or dock to an output, the primary one when the client
// left it to us. Without any output the surface is closed right away
func (s *Server) NewLayerSurface(outputName, layer, namespace string, client scene.LayerClient, sink scene.Sink) *scene.LayerSurface {
	if outputName == "" {
		if o := s.Outputs.Primary(); o != nil {
			outputName = o.Name
		}
	}
	if outputName == "" || s.Outputs.Find(outputName) == nil {
		logrus.WithFields(logrus.Fields{
			"output":    outputName,
			"namespace": namespace,
		}).Warnln("No output for layer surface, closing it")
		if client != nil {
			client.Close()
		}
		return nil
	}
	return s.Layers.CreateLayerSurface(outputName, layer, namespace, client, sink)
}

func (s *Server) CommitLayerSurface(ls *scene.LayerSurface, state scene.LayerState) {
	if ls == nil {
		return
	}
	s.Layers.Commit(ls, state)
}

func (s *Server) MapLayerSurface(ls *scene.LayerSurface) {
	if ls == nil {
		return
	}
	s.Layers.Map(ls)
}

func (s *Server) UnmapLayerSurface(ls *scene.LayerSurface) {
	if ls == nil {
		return
	}
	s.Layers.Unmap(ls)
	s.Input.NodeGone(ls.Node)
}

func (s *Server) DestroyLayerSurface(ls *scene.LayerSurface) {
	if ls == nil {
		return
	}
	s.Input.NodeGone(ls.Node)
	s.Layers.Destroy(ls)
}

// Pointer

func (s *Server) PointerMotion(time uint32) {
	s.Input.HandleMotion(time)
}

// PointerButton forwards a button event. Ending a grab puts tiled windows back in place
func (s *Server) PointerButton(time, button uint32, pressed bool) {
	grabbed := s.Input.Grabbed()
	s.Input.HandleButton(time, button, pressed)
	if grabbed != nil && s.Input.Grabbed() == nil {
		s.Arrange()
	}
}
