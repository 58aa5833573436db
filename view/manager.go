// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package view

import (
	"container/list"
	"errors"

	"github.com/mstarongithub/strata/eventbus"
	"github.com/mstarongithub/strata/geom"
	"github.com/mstarongithub/strata/scene"
	"github.com/sirupsen/logrus"
	"gitlab.com/mstarongitlab/goutils/sliceutils"
)

var ErrUnknownView = errors.New("unknown view")

// Seat receives keyboard focus changes
type Seat interface {
	KeyboardEnter(v *View)
	KeyboardClear()
}

const (
	borderTop = iota
	borderBottom
	borderLeft
	borderRight
)

type Manager struct {
	graph *scene.Graph
	seat  Seat
	bus   *eventbus.Bus

	views   map[ID]*View
	nextID  ID
	order   list.List // mapped views, most recently focused first
	focused *View

	BorderWidth  int
	FocusedColor scene.Color
	NormalColor  scene.Color
	// NewBorderSink creates the backend rectangle for a border node. Borders
	// are tracked without a backend when nil
	NewBorderSink func() scene.Sink
}

func NewManager(graph *scene.Graph, seat Seat, bus *eventbus.Bus) *Manager {
	return &Manager{
		graph: graph,
		seat:  seat,
		bus:   bus,
		views: make(map[ID]*View),
	}
}

// Create registers a new toplevel. Its node sits in the windows layer, disabled until Map
func (m *Manager) Create(t Toplevel, sink scene.Sink) *View {
	m.nextID++
	v := &View{ID: m.nextID, Toplevel: t}
	v.Node = scene.NewNode(scene.NodeView, v, sink)
	m.graph.Attach(scene.LayerWindows, v.Node)
	for i := range v.borders {
		var s scene.Sink
		if m.NewBorderSink != nil {
			s = m.NewBorderSink()
		}
		b := scene.NewNode(scene.NodeBorder, v, s)
		b.SetEnabled(true)
		v.Node.AddChild(b)
		v.borders[i] = b
	}
	m.views[v.ID] = v
	logrus.WithField("view", v.ID).Debugln("Created view")
	return v
}

func (m *Manager) Get(id ID) (*View, error) {
	v, ok := m.views[id]
	if !ok {
		return nil, ErrUnknownView
	}
	return v, nil
}

func (m *Manager) Focused() *View {
	return m.focused
}

// Mapped returns the mapped views in focus order, most recent first
func (m *Manager) Mapped() []*View {
	views := make([]*View, 0, m.order.Len())
	for e := m.order.Front(); e != nil; e = e.Next() {
		views = append(views, e.Value.(*View))
	}
	return views
}

// Visible returns the mapped views that are not minimized, in focus order
func (m *Manager) Visible() []*View {
	return sliceutils.Filter(m.Mapped(), func(v *View) bool {
		return !v.Is(StateMinimized)
	})
}

func (m *Manager) element(v *View) *list.Element {
	for e := m.order.Front(); e != nil; e = e.Next() {
		if e.Value.(*View) == v {
			return e
		}
	}
	return nil
}

func (m *Manager) Map(v *View) {
	if v == nil || v.Mapped() {
		return
	}
	v.state |= StateMapped
	v.Title = v.Toplevel.Title()
	v.AppID = v.Toplevel.AppID()
	if geo := v.Toplevel.Geometry(); !geo.Empty() {
		v.Node.SetSize(geo.Width, geo.Height)
	}
	v.Node.SetEnabled(true)
	m.order.PushFront(v)
	m.updateBorders(v)
	logrus.WithFields(logrus.Fields{
		"view":   v.ID,
		"title":  v.Title,
		"app_id": v.AppID,
	}).Infoln("Mapped view")
	m.publish(eventbus.WindowCreated, v)
	m.FocusView(v)
}

// Unmap hides the view and hands focus to the next one in line.
// Callers are responsible for ending grabs on v
func (m *Manager) Unmap(v *View) {
	if v == nil || !v.Mapped() {
		return
	}
	v.state &^= StateMapped
	v.Node.SetEnabled(false)
	if e := m.element(v); e != nil {
		m.order.Remove(e)
	}
	logrus.WithField("view", v.ID).Debugln("Unmapped view")
	if m.focused == v {
		m.focused = nil
		m.focusNext()
	}
}

func (m *Manager) Destroy(v *View) {
	if v == nil {
		return
	}
	if _, ok := m.views[v.ID]; !ok {
		return
	}
	m.Unmap(v)
	m.graph.Detach(v.Node)
	delete(m.views, v.ID)
	logrus.WithField("view", v.ID).Debugln("Destroyed view")
	m.bus.Publish(eventbus.WindowDestroyed, eventbus.Payload{"id": uint64(v.ID)})
}

// focusNext focuses the most recent visible view, or clears keyboard focus
func (m *Manager) focusNext() {
	if visible := m.Visible(); len(visible) > 0 {
		m.FocusView(visible[0])
		return
	}
	m.seat.KeyboardClear()
}

// FocusView gives v keyboard focus and raises it. Focusing the focused view does nothing
func (m *Manager) FocusView(v *View) {
	if v == nil || !v.Mapped() {
		return
	}
	if m.focused == v {
		return
	}
	if v.Is(StateMinimized) {
		v.state &^= StateMinimized
		v.Node.SetEnabled(true)
	}
	prev := m.focused
	if prev != nil {
		prev.Toplevel.SetActivated(false)
	}
	logrus.WithFields(logrus.Fields{
		"view": v.ID,
		"prev": prev,
	}).Debugln("focusView")
	m.focused = v
	m.graph.RaiseToTop(v.Node)
	if e := m.element(v); e != nil {
		m.order.MoveToFront(e)
	}
	v.Toplevel.SetActivated(true)
	m.seat.KeyboardEnter(v)
	if prev != nil {
		m.updateBorders(prev)
	}
	m.updateBorders(v)
	m.publish(eventbus.WindowFocused, v)
}

// CycleFocus sends the focused view to the back of the focus order and focuses the next one
func (m *Manager) CycleFocus() {
	if len(m.Visible()) < 2 {
		return
	}
	if m.focused != nil {
		if e := m.element(m.focused); e != nil {
			m.order.MoveToBack(e)
		}
	}
	m.FocusView(m.Visible()[0])
}

// Minimize hides the view where it is
func (m *Manager) Minimize(v *View) {
	if v == nil || !v.Mapped() || v.Is(StateMinimized) {
		return
	}
	v.state |= StateMinimized
	v.Node.SetEnabled(false)
	m.publish(eventbus.WindowStateChanged, v)
	if m.focused == v {
		v.Toplevel.SetActivated(false)
		m.focused = nil
		m.updateBorders(v)
		m.focusNext()
	}
}

// Restore shows a minimized view at its last position and focuses it
func (m *Manager) Restore(v *View) {
	if v == nil || !v.Is(StateMinimized) {
		return
	}
	v.state &^= StateMinimized
	v.Node.SetEnabled(true)
	m.publish(eventbus.WindowStateChanged, v)
	m.FocusView(v)
}

// RestoreAll restores every minimized view, leaving the first of them focused
func (m *Manager) RestoreAll() {
	minimized := sliceutils.Filter(m.Mapped(), func(v *View) bool {
		return v.Is(StateMinimized)
	})
	for i := len(minimized) - 1; i >= 0; i-- {
		m.Restore(minimized[i])
	}
}

// SetMaximized fills area with the view, or puts it back where it was before
func (m *Manager) SetMaximized(v *View, maximized bool, area geom.Box) {
	if v == nil || !v.Mapped() || v.Is(StateMaximized) == maximized {
		return
	}
	if maximized {
		v.restoreMax = v.Geometry()
		v.state |= StateMaximized
		v.Toplevel.SetMaximized(true)
		m.SetGeometry(v, area)
	} else {
		v.state &^= StateMaximized
		v.Toplevel.SetMaximized(false)
		m.SetGeometry(v, v.restoreMax)
	}
	m.publish(eventbus.WindowStateChanged, v)
}

// SetFullscreen moves the view to the fullscreen layer covering area, or back to the windows layer
func (m *Manager) SetFullscreen(v *View, fullscreen bool, area geom.Box) {
	if v == nil || !v.Mapped() || v.Is(StateFullscreen) == fullscreen {
		return
	}
	if fullscreen {
		v.restoreFull = v.Geometry()
		v.state |= StateFullscreen
		v.Toplevel.SetFullscreen(true)
		m.graph.Reparent(v.Node, scene.LayerFullscreen)
		m.SetGeometry(v, area)
	} else {
		v.state &^= StateFullscreen
		v.Toplevel.SetFullscreen(false)
		m.graph.Reparent(v.Node, scene.LayerWindows)
		m.SetGeometry(v, v.restoreFull)
	}
	m.publish(eventbus.WindowStateChanged, v)
}

// SetTiled marks whether the tiling engine owns the view's geometry
func (m *Manager) SetTiled(v *View, tiled bool) {
	if tiled {
		v.state |= StateTiled
	} else {
		v.state &^= StateTiled
	}
}

func (m *Manager) Close(v *View) {
	if v == nil {
		return
	}
	logrus.WithField("view", v.ID).Debugln("Asking view to close")
	v.Toplevel.Close()
}

// Place centres a view that is about to be mapped inside area, keeping its top edge at or below minY
func (m *Manager) Place(v *View, area geom.Box, minY int) {
	geo := v.Toplevel.Geometry()
	x := area.X + (area.Width-geo.Width)/2
	y := area.Y + (area.Height-geo.Height)/2
	y = max(y, area.Y, minY)
	v.moveTo(x, y)
}

// Move places the window box at x, y without touching its size
func (m *Manager) Move(v *View, x, y int) {
	v.moveTo(x, y)
	m.publish(eventbus.WindowGeometryChanged, v)
}

// SetGeometry places and sizes the view. The size is sent to the client as a
// configure; until it is acknowledged, commits with the old size are ignored
func (m *Manager) SetGeometry(v *View, box geom.Box) {
	v.moveTo(box.X, box.Y)
	w, h := v.Node.Size()
	if w != box.Width || h != box.Height {
		v.Node.SetSize(box.Width, box.Height)
		serial := v.Toplevel.SetSize(box.Width, box.Height)
		v.pending = &configure{serial: serial, width: box.Width, height: box.Height}
	}
	m.updateBorders(v)
	m.publish(eventbus.WindowGeometryChanged, v)
}

// AckConfigure records that the client acknowledged the configure with serial
func (m *Manager) AckConfigure(v *View, serial uint32) {
	if serial > v.acked {
		v.acked = serial
	}
}

// Commit picks up the state the client committed: title and app id are taken as is,
// a new size once any pending configure has been answered. A configure with
// serial 0 is only answered by a commit of the requested size
func (m *Manager) Commit(v *View) {
	if v == nil || !v.Mapped() {
		return
	}
	if title := v.Toplevel.Title(); title != v.Title {
		v.Title = title
		m.publish(eventbus.WindowTitleChanged, v)
	}
	v.AppID = v.Toplevel.AppID()

	geo := v.Toplevel.Geometry()
	if p := v.pending; p != nil {
		// serial 0 means the backend can't report acks, wait for the size instead
		unacked := p.serial == 0 || v.acked < p.serial
		if unacked && (geo.Width != p.width || geo.Height != p.height) {
			return
		}
		v.pending = nil
	}
	if geo.Empty() {
		return
	}
	w, h := v.Node.Size()
	if geo.Width == w && geo.Height == h {
		return
	}
	v.Node.SetSize(geo.Width, geo.Height)
	m.updateBorders(v)
	m.publish(eventbus.WindowGeometryChanged, v)
}

// Restack repaints the borders of every view, used after colours or width changed
func (m *Manager) Restack() {
	for _, v := range m.views {
		m.updateBorders(v)
	}
}

func (m *Manager) updateBorders(v *View) {
	bw := m.BorderWidth
	w, h := v.Node.Size()
	show := bw > 0 && !v.Is(StateFullscreen)
	color := m.NormalColor
	if v == m.focused {
		color = m.FocusedColor
	}
	boxes := [4]geom.Box{
		borderTop:    {X: -bw, Y: -bw, Width: w + 2*bw, Height: bw},
		borderBottom: {X: -bw, Y: h, Width: w + 2*bw, Height: bw},
		borderLeft:   {X: -bw, Y: 0, Width: bw, Height: h},
		borderRight:  {X: w, Y: 0, Width: bw, Height: h},
	}
	off := v.Toplevel.Geometry()
	for i, b := range v.borders {
		b.SetPosition(boxes[i].X+off.X, boxes[i].Y+off.Y)
		b.SetSize(boxes[i].Width, boxes[i].Height)
		b.SetEnabled(show)
		if c, ok := b.Sink().(scene.Colorer); ok {
			c.SetColor(color)
		}
	}
}

func (m *Manager) publish(name string, v *View) {
	box := v.Geometry()
	m.bus.Publish(name, eventbus.Payload{
		"id":     uint64(v.ID),
		"title":  v.Title,
		"app_id": v.AppID,
		"x":      box.X,
		"y":      box.Y,
		"width":  box.Width,
		"height": box.Height,
		"state":  v.state.String(),
	})
}
