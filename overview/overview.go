// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package overview implements the multitask view, which shows every window
// as a scaled down thumbnail in a grid
package overview

import (
	"math"

	"github.com/mstarongithub/strata/eventbus"
	"github.com/mstarongithub/strata/geom"
	"github.com/mstarongithub/strata/scene"
	"github.com/mstarongithub/strata/view"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// TopStrip is left free at the top of the output, for the shell's own controls
	TopStrip int
	Padding  int
}

func DefaultConfig() Config {
	return Config{TopStrip: 60, Padding: 20}
}

// Grid splits area into cells for n windows, ceil(sqrt(n)) columns wide, row major
func Grid(n int, area geom.Box) []geom.Box {
	if n <= 0 {
		return nil
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	cellW := area.Width / cols
	cellH := area.Height / rows
	cells := make([]geom.Box, n)
	for i := range cells {
		cells[i] = geom.Box{
			X:      area.X + (i%cols)*cellW,
			Y:      area.Y + (i/cols)*cellH,
			Width:  cellW,
			Height: cellH,
		}
	}
	return cells
}

type position struct {
	x, y int
	// width and height are only kept for windows shrunk through a configure
	width, height int
	resized       bool
}

type Controller struct {
	Config Config

	views  *view.Manager
	bus    *eventbus.Bus
	active bool
	area   geom.Box
	order  []*view.View
	saved  map[view.ID]position
}

func New(views *view.Manager, bus *eventbus.Bus, cfg Config) *Controller {
	return &Controller{
		Config: cfg,
		views:  views,
		bus:    bus,
	}
}

func (c *Controller) Active() bool {
	return c.active
}

// Toggle activates the overview over area, or leaves it
func (c *Controller) Toggle(area geom.Box) {
	if c.active {
		c.Deactivate()
	} else {
		c.Activate(area)
	}
}

// Activate remembers where every visible window is and lays them out as thumbnails over area
func (c *Controller) Activate(area geom.Box) {
	if c.active {
		return
	}
	c.active = true
	c.area = area
	c.order = c.views.Visible()
	c.saved = make(map[view.ID]position, len(c.order))
	for _, v := range c.order {
		c.snapshot(v)
	}
	c.layout()
	logrus.WithField("views", len(c.order)).Debugln("Overview activated")
	c.bus.Publish(eventbus.MultitaskChanged, eventbus.Payload{"active": true})
}

// Deactivate puts every window back at the position it had before.
// Scaled thumbnails keep whatever size the clients currently use, windows that
// were shrunk through a configure are asked to take their old size again
func (c *Controller) Deactivate() {
	if !c.active {
		return
	}
	for _, v := range c.order {
		c.restore(v)
	}
	c.active = false
	c.order = nil
	c.saved = nil
	logrus.Debugln("Overview deactivated")
	c.bus.Publish(eventbus.MultitaskChanged, eventbus.Payload{"active": false})
}

// HandleClick consumes button presses while active. A click on a thumbnail
// focuses its window, any click leaves the overview
func (c *Controller) HandleClick(x, y float64) bool {
	if !c.active {
		return false
	}
	var hit *view.View
	for _, v := range c.order {
		if v.Node.VisibleBox().Contains(x, y) {
			hit = v
			break
		}
	}
	c.Deactivate()
	if hit != nil {
		c.views.FocusView(hit)
	}
	return true
}

// ViewMapped gives a window mapped while the overview is shown a cell of its own
func (c *Controller) ViewMapped(v *view.View) {
	if !c.active || c.tracked(v) {
		return
	}
	c.order = append(c.order, v)
	c.snapshot(v)
	c.layout()
}

// ViewUnmapped drops v from the grid
func (c *Controller) ViewUnmapped(v *view.View) {
	if !c.active {
		return
	}
	for i, o := range c.order {
		if o == v {
			c.restore(v)
			c.order = append(c.order[:i], c.order[i+1:]...)
			delete(c.saved, v.ID)
			c.layout()
			return
		}
	}
}

func (c *Controller) tracked(v *view.View) bool {
	_, ok := c.saved[v.ID]
	return ok
}

func (c *Controller) snapshot(v *view.View) {
	x, y := v.Node.Position()
	c.saved[v.ID] = position{x: x, y: y}
}

func (c *Controller) restore(v *view.View) {
	s, ok := c.saved[v.ID]
	if !ok {
		return
	}
	if s.resized {
		c.views.SetGeometry(v, windowBox(v, geom.Box{X: s.x, Y: s.y, Width: s.width, Height: s.height}))
		return
	}
	v.Node.SetScale(1)
	v.Node.SetPosition(s.x, s.y)
}

// windowBox turns a box in node coordinates into the window geometry SetGeometry takes
func windowBox(v *view.View, box geom.Box) geom.Box {
	off := v.Toplevel.Geometry()
	box.X += off.X
	box.Y += off.Y
	return box
}

// scalable reports whether a scale set on n is what ends up on screen.
// Nodes without a backend only live in the graph, so for them it always is
func scalable(n *scene.Node) bool {
	if n.Sink() == nil {
		return true
	}
	_, ok := n.Sink().(scene.Scaler)
	return ok
}

func (c *Controller) layout() {
	area := c.area
	area.Y += c.Config.TopStrip
	area.Height = max(area.Height-c.Config.TopStrip, 0)
	cells := Grid(len(c.order), area)
	for i, v := range c.order {
		s := c.saved[v.ID]
		w, h := v.Node.Size()
		if s.resized {
			w, h = s.width, s.height
		}
		box, scale := geom.Fit(w, h, cells[i].Inset(c.Config.Padding))
		if scalable(v.Node) {
			v.Node.SetScale(scale)
			v.Node.SetPosition(box.X, box.Y)
			continue
		}
		// The backend can't draw scaled windows, shrink them for real so
		// the hit boxes match what is shown
		if !s.resized {
			s.width, s.height, s.resized = w, h, true
			c.saved[v.ID] = s
		}
		c.views.SetGeometry(v, windowBox(v, box))
	}
}
