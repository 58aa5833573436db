// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package compositor ties the managers together. The backend drives a Server by
// calling its handler methods, always from the event loop
package compositor

import (
	"fmt"

	"github.com/mstarongithub/strata/config"
	"github.com/mstarongithub/strata/eventbus"
	"github.com/mstarongithub/strata/geom"
	"github.com/mstarongithub/strata/input"
	"github.com/mstarongithub/strata/output"
	"github.com/mstarongithub/strata/overview"
	"github.com/mstarongithub/strata/scene"
	"github.com/mstarongithub/strata/tiler"
	"github.com/mstarongithub/strata/view"
	"github.com/sirupsen/logrus"
)

// Seat is the backend seat, receiving keyboard focus as well as forwarded input
type Seat interface {
	input.Seat
	view.Seat
}

type Options struct {
	Seat   Seat
	Cursor input.Cursor
	// Timer starts periodic timers on the event loop
	Timer output.TimerFunc
	// Quit asks the event loop to stop
	Quit func()
	// NewBorderSink creates backend rectangles for window borders. Optional
	NewBorderSink func() scene.Sink
}

type Server struct {
	Config config.Config

	Bus      *eventbus.Bus
	Graph    *scene.Graph
	Outputs  *output.Manager
	Layers   *scene.Shell
	Views    *view.Manager
	Input    *input.Router
	Tiler    *tiler.Engine
	Overview *overview.Controller

	cursor    input.Cursor
	quit      func()
	announced map[string]bool
	placed    map[view.ID]bool
	unsub     []func()
}

func New(cfg config.Config, opts Options) (*Server, error) {
	focused, err := scene.ParseColor(cfg.Tiling.FocusedColor)
	if err != nil {
		return nil, fmt.Errorf("tiling.focused_color: %w", err)
	}
	normal, err := scene.ParseColor(cfg.Tiling.NormalColor)
	if err != nil {
		return nil, fmt.Errorf("tiling.normal_color: %w", err)
	}
	mod, err := input.ParseModifier(cfg.Input.Modifier)
	if err != nil {
		return nil, fmt.Errorf("input.modifier: %w", err)
	}

	s := &Server{
		Config:    cfg,
		Bus:       eventbus.New(),
		Graph:     scene.New(),
		Outputs:   output.NewManager(opts.Timer),
		cursor:    opts.Cursor,
		quit:      opts.Quit,
		announced: make(map[string]bool),
		placed:    make(map[view.ID]bool),
	}
	s.Outputs.OnChange = s.outputChanged
	s.Layers = scene.NewShell(s.Graph)
	s.Layers.OnUsableChange = s.usableChanged

	s.Views = view.NewManager(s.Graph, opts.Seat, s.Bus)
	s.Views.BorderWidth = cfg.Tiling.BorderWidth
	s.Views.FocusedColor = focused
	s.Views.NormalColor = normal
	s.Views.NewBorderSink = opts.NewBorderSink

	s.Input = input.NewRouter(opts.Seat, opts.Cursor, s.Graph, s.Views)
	s.Input.Modifier = mod
	s.Input.Bindings = input.DefaultBindings(mod)
	s.Input.TopMargin = cfg.Input.MenuBarHeight
	s.Input.Layout = cfg.Input.Layout
	s.Input.RepeatRate = cfg.Input.RepeatRate
	s.Input.RepeatDelay = cfg.Input.RepeatDelay
	s.Input.OnAction = s.RunAction

	s.Tiler = tiler.New(s.Views, s.Bus, tiler.Config{
		MasterRatio: cfg.Tiling.MasterRatio,
		InnerGap:    cfg.Tiling.InnerGap,
		OuterGap:    cfg.Tiling.OuterGap,
	})
	s.Tiler.Grabbed = s.Input.Grabbed

	s.Overview = overview.New(s.Views, s.Bus, overview.Config{
		TopStrip: cfg.Overview.TopStrip,
		Padding:  cfg.Overview.Padding,
	})
	s.Input.Intercept = s.Overview.HandleClick

	s.unsub = append(s.unsub,
		s.Bus.Subscribe(eventbus.ShortcutActivate, s.handleShortcutRequest),
		s.Bus.Subscribe(eventbus.MultitaskToggle, func(eventbus.Event) { s.ToggleOverview() }),
		s.Bus.Subscribe(eventbus.WindowFocused, func(eventbus.Event) { s.Arrange() }),
	)

	if cfg.Tiling.Enabled {
		s.Tiler.Toggle()
	}
	logrus.WithFields(logrus.Fields{
		"modifier": mod,
		"tiling":   s.Tiler.Enabled(),
	}).Debugln("Compositor core set up")
	return s, nil
}

// Close stops the event bus. Backend resources are the backend's to free
func (s *Server) Close() {
	for _, u := range s.unsub {
		u()
	}
	s.unsub = nil
	s.Bus.Close()
}

func (s *Server) Quit() {
	logrus.Infoln("Quit requested")
	if s.quit != nil {
		s.quit()
	}
}

// Arrange re-applies the tiling layout over the primary output
func (s *Server) Arrange() {
	if !s.Tiler.Enabled() || s.Overview.Active() {
		return
	}
	o := s.Outputs.Primary()
	if o == nil {
		return
	}
	s.Tiler.Arrange(s.usable(o))
}

func (s *Server) usable(o *output.Output) geom.Box {
	if box, ok := s.Layers.Usable(o.Name); ok {
		return box
	}
	return o.Box
}

// outputFor returns the output showing the centre of v, falling back to the primary one
func (s *Server) outputFor(v *view.View) *output.Output {
	box := v.Geometry()
	if o := s.Outputs.At(float64(box.X+box.Width/2), float64(box.Y+box.Height/2)); o != nil {
		return o
	}
	return s.Outputs.Primary()
}

// ToggleOverview shows or hides the multitask view on the primary output
func (s *Server) ToggleOverview() {
	o := s.Outputs.Primary()
	if o == nil && !s.Overview.Active() {
		return
	}
	var area geom.Box
	if o != nil {
		area = o.Box
	}
	s.Overview.Toggle(area)
	if !s.Overview.Active() {
		s.Arrange()
	}
}

// RunAction performs a compositor action and reports whether it applied
func (s *Server) RunAction(a input.Action) bool {
	focused := s.Views.Focused()
	switch a {
	case input.ActionQuit:
		s.Quit()
	case input.ActionToggleOverview:
		s.ToggleOverview()
	case input.ActionToggleTiling:
		s.Tiler.Toggle()
		s.Arrange()
	case input.ActionCycleFocus:
		s.Views.CycleFocus()
	case input.ActionMaximize:
		if focused != nil {
			s.setMaximized(focused, !focused.Is(view.StateMaximized))
		}
	case input.ActionFullscreen:
		if focused != nil {
			s.setFullscreen(focused, !focused.Is(view.StateFullscreen))
		}
	case input.ActionMinimize:
		if focused != nil {
			s.Views.Minimize(focused)
			s.Arrange()
		}
	case input.ActionRestoreAll:
		s.Views.RestoreAll()
		s.Arrange()
	case input.ActionClose:
		if focused != nil {
			s.Views.Close(focused)
		}
	default:
		return false
	}
	return true
}

func (s *Server) handleShortcutRequest(ev eventbus.Event) {
	name, _ := ev.Payload["name"].(string)
	action, ok := input.ParseAction(name)
	if !ok {
		logrus.WithField("shortcut", name).Warnln("Unknown shortcut requested")
		return
	}
	s.RunAction(action)
}

func (s *Server) setMaximized(v *view.View, maximized bool) {
	o := s.outputFor(v)
	if o == nil {
		return
	}
	s.Views.SetMaximized(v, maximized, s.usable(o))
	s.Arrange()
}

func (s *Server) setFullscreen(v *view.View, fullscreen bool) {
	o := s.outputFor(v)
	if o == nil {
		return
	}
	s.Views.SetFullscreen(v, fullscreen, o.Box)
	s.Arrange()
}
