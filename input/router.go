// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package input routes keyboard and pointer events to compositor bindings,
// interactive move and resize, and the focused clients
package input

import (
	"github.com/mstarongithub/strata/scene"
	"github.com/mstarongithub/strata/view"
	"github.com/sirupsen/logrus"
)

// Seat forwards input to clients
type Seat interface {
	SetKeyboard(kb *Keyboard)
	KeyboardKey(time, keycode uint32, pressed bool)
	KeyboardModifiers(kb *Keyboard)
	// PointerEnter gives pointer focus to the surface of n at the node local point
	PointerEnter(n *scene.Node, sx, sy float64)
	PointerMotion(time uint32, sx, sy float64)
	PointerClear()
	PointerButton(time, button uint32, pressed bool)
	PointerAxis(time uint32, axis AxisEvent)
	PointerFrame()
}

// Cursor is the pointer image moving over the output layout
type Cursor interface {
	Position() (x, y float64)
	SetDefaultImage()
}

type AxisEvent struct {
	Vertical bool
	Delta    float64
	Discrete int32
	// backend specific axis source
	Source uint32
}

type Keyboard struct {
	Name        string
	Layout      string
	RepeatRate  int
	RepeatDelay int
	// Handle is the backend device
	Handle any
}

type Router struct {
	seat   Seat
	cursor Cursor
	graph  *scene.Graph
	views  *view.Manager

	Bindings []Binding
	// Modifier has to be held for key presses to be offered to Bindings
	Modifier Modifier
	// TopMargin is kept free of moved windows, the height of the global menu bar
	TopMargin   int
	Layout      string
	RepeatRate  int
	RepeatDelay int

	// OnAction runs a binding. It reports whether the key was consumed
	OnAction func(Action) bool
	// Intercept sees button presses first and may consume them
	Intercept func(x, y float64) bool

	keyboards []*Keyboard
	active    *Keyboard

	// presses kept from the seat, their releases are swallowed too
	consumedKeys    map[uint32]bool
	consumedButtons map[uint32]bool

	cursorState
	pointerFocus *scene.Node
}

func NewRouter(seat Seat, cursor Cursor, graph *scene.Graph, views *view.Manager) *Router {
	return &Router{
		seat:        seat,
		cursor:      cursor,
		graph:       graph,
		views:       views,
		Modifier:    ModLogo,
		Bindings:    DefaultBindings(ModLogo),
		Layout:      "us",
		RepeatRate:  25,
		RepeatDelay: 600,

		consumedKeys:    make(map[uint32]bool),
		consumedButtons: make(map[uint32]bool),
	}
}

// AddKeyboard tracks a new keyboard with the configured keymap and repeat settings.
// The new keyboard becomes the active one
func (r *Router) AddKeyboard(name string, handle any) *Keyboard {
	kb := &Keyboard{
		Name:        name,
		Layout:      r.Layout,
		RepeatRate:  r.RepeatRate,
		RepeatDelay: r.RepeatDelay,
		Handle:      handle,
	}
	r.keyboards = append(r.keyboards, kb)
	logrus.WithFields(logrus.Fields{
		"keyboard": name,
		"layout":   kb.Layout,
	}).Infoln("New keyboard")
	r.activate(kb)
	return kb
}

func (r *Router) RemoveKeyboard(kb *Keyboard) {
	for i, k := range r.keyboards {
		if k == kb {
			r.keyboards = append(r.keyboards[:i], r.keyboards[i+1:]...)
			break
		}
	}
	if r.active == kb {
		r.active = nil
		if len(r.keyboards) > 0 {
			r.activate(r.keyboards[len(r.keyboards)-1])
		}
	}
}

func (r *Router) Keyboards() []*Keyboard {
	return r.keyboards
}

// ActiveKeyboard is the keyboard that reported the latest event
func (r *Router) ActiveKeyboard() *Keyboard {
	return r.active
}

func (r *Router) activate(kb *Keyboard) {
	if r.active == kb {
		return
	}
	r.active = kb
	r.seat.SetKeyboard(kb)
}

// HandleKey processes a key event. syms are the keysyms the key produces under the
// current keymap state and mods the modifiers held at the time
func (r *Router) HandleKey(kb *Keyboard, time, keycode uint32, syms []Keysym, mods Modifier, pressed bool) {
	r.activate(kb)
	if !pressed && r.consumedKeys[keycode] {
		delete(r.consumedKeys, keycode)
		return
	}
	if pressed && mods&r.Modifier != 0 && r.OnAction != nil {
		for _, sym := range syms {
			b, ok := Lookup(r.Bindings, mods, sym)
			if !ok {
				continue
			}
			logrus.WithFields(logrus.Fields{
				"action":    b.Action,
				"modifiers": mods,
			}).Debugln("Key binding")
			if r.OnAction(b.Action) {
				r.consumedKeys[keycode] = true
				return
			}
		}
	}
	r.seat.KeyboardKey(time, keycode, pressed)
}

func (r *Router) HandleModifiers(kb *Keyboard) {
	r.activate(kb)
	r.seat.KeyboardModifiers(kb)
}

// HandleMotion processes the cursor having moved to its current position
func (r *Router) HandleMotion(time uint32) {
	switch r.mode {
	case CursorMove:
		r.processMove()
		return
	case CursorResize:
		r.processResize()
		return
	}

	x, y := r.cursor.Position()
	n, sx, sy := r.graph.At(x, y)
	if n == nil {
		r.cursor.SetDefaultImage()
		if r.pointerFocus != nil {
			r.pointerFocus = nil
			r.seat.PointerClear()
		}
		return
	}
	if n != r.pointerFocus {
		r.pointerFocus = n
		r.seat.PointerEnter(n, sx, sy)
	}
	r.seat.PointerMotion(time, sx, sy)
}

// HandleButton forwards a button event. Presses are offered to Intercept first and
// focus the view under the cursor, releases end any interactive grab
func (r *Router) HandleButton(time, button uint32, pressed bool) {
	if !pressed {
		if r.consumedButtons[button] {
			delete(r.consumedButtons, button)
		} else {
			r.seat.PointerButton(time, button, pressed)
		}
		if r.mode != CursorPassthrough {
			r.ResetCursorMode()
		}
		return
	}
	x, y := r.cursor.Position()
	if r.Intercept != nil && r.Intercept(x, y) {
		r.consumedButtons[button] = true
		return
	}
	r.seat.PointerButton(time, button, pressed)
	n, _, _ := r.graph.At(x, y)
	logrus.WithField("node", n).Debugln("handleButton")
	if n == nil {
		return
	}
	if v, ok := n.Data.(*view.View); ok {
		r.views.FocusView(v)
	}
}

func (r *Router) HandleAxis(time uint32, axis AxisEvent) {
	r.seat.PointerAxis(time, axis)
}

func (r *Router) HandleFrame() {
	r.seat.PointerFrame()
}

// PointerFocus is the node the pointer last entered
func (r *Router) PointerFocus() *scene.Node {
	return r.pointerFocus
}

// ViewUnmapped drops every reference the router holds to v
func (r *Router) ViewUnmapped(v *view.View) {
	if r.grabbed == v {
		r.ResetCursorMode()
	}
	if r.pointerFocus != nil && r.pointerFocus == v.Node {
		r.pointerFocus = nil
	}
}

// NodeGone forgets a destroyed layer surface node
func (r *Router) NodeGone(n *scene.Node) {
	if r.pointerFocus == n {
		r.pointerFocus = nil
	}
}
