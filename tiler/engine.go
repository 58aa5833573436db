// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tiler

import (
	"github.com/mstarongithub/strata/eventbus"
	"github.com/mstarongithub/strata/geom"
	"github.com/mstarongithub/strata/view"
	"github.com/sirupsen/logrus"
	"gitlab.com/mstarongitlab/goutils/sliceutils"
)

type Engine struct {
	Config Config
	// Grabbed returns the view under an interactive grab. It is left where the user drags it
	Grabbed func() *view.View

	views   *view.Manager
	bus     *eventbus.Bus
	enabled bool
}

func New(views *view.Manager, bus *eventbus.Bus, cfg Config) *Engine {
	return &Engine{
		Config: cfg,
		views:  views,
		bus:    bus,
	}
}

func (e *Engine) Enabled() bool {
	return e.enabled
}

// Toggle switches tiling on or off and returns the new state.
// Turning it off leaves windows where they are but releases them from the layout
func (e *Engine) Toggle() bool {
	e.enabled = !e.enabled
	if !e.enabled {
		for _, v := range e.views.Mapped() {
			e.views.SetTiled(v, false)
		}
	}
	logrus.WithField("enabled", e.enabled).Infoln("Tiling toggled")
	e.bus.Publish(eventbus.TilingChanged, eventbus.Payload{"enabled": e.enabled})
	return e.enabled
}

// Tiled returns the views the layout applies to, in focus order
func (e *Engine) Tiled() []*view.View {
	var grabbed *view.View
	if e.Grabbed != nil {
		grabbed = e.Grabbed()
	}
	return sliceutils.Filter(e.views.Visible(), func(v *view.View) bool {
		return v != grabbed && !v.Is(view.StateFullscreen) && !v.Is(view.StateMaximized)
	})
}

// Arrange lays out the tiled views over usable. Does nothing while tiling is off
func (e *Engine) Arrange(usable geom.Box) {
	if !e.enabled {
		return
	}
	views := e.Tiled()
	tiles := Compute(len(views), usable, e.Config)
	logrus.WithFields(logrus.Fields{
		"views":  len(views),
		"usable": usable,
	}).Debugln("Arranging tiles")
	for i, v := range views {
		e.views.SetTiled(v, true)
		e.views.SetGeometry(v, tiles[i])
	}
}
