// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package eventbus is the side channel the compositor uses to talk to shell applications.
// Events are keyed by name and carry a loosely typed payload.
//
// Local handlers run synchronously on the publishing goroutine (the event loop).
// Remote subscribers (ipc connections) get events through a non-blocking fan-out
// and send requests back through Request, which funnels them into the loop.
package eventbus

import (
	"sync"

	"github.com/mstarongithub/strata/util/multiplexer"
	"github.com/sirupsen/logrus"
)

// Announcements
const (
	WindowCreated         = "window_created"
	WindowDestroyed       = "window_destroyed"
	WindowFocused         = "window_focused"
	WindowGeometryChanged = "window_geometry_changed"
	WindowTitleChanged    = "window_title_changed"
	WindowStateChanged    = "window_state_changed"
	OutputAdded           = "output_added"
	OutputRemoved         = "output_removed"
	MultitaskChanged      = "multitask_changed"
	TilingChanged         = "tiling_changed"
)

// Requests shell applications may send
const (
	ShortcutActivate = "shortcut_activate"
	MultitaskToggle  = "multitask_toggle"
)

type Payload map[string]any

type Event struct {
	Name    string  `json:"name"`
	Payload Payload `json:"payload,omitempty"`
}

type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

type Bus struct {
	handlers map[string][]subscription
	nextID   uint64

	remote   *multiplexer.OneToMany[Event]
	requests chan Event
	inbound  *multiplexer.ManyToOne[Event]
	stopOnce sync.Once
}

// New creates a bus and starts its remote fan-out goroutine
func New() *Bus {
	requests := make(chan Event, 64)
	b := &Bus{
		handlers: make(map[string][]subscription),
		remote:   multiplexer.NewOneToMany[Event](64),
		requests: requests,
		inbound:  multiplexer.NewManyToOne(requests),
	}
	go b.remote.StartPlexer()
	return b
}

// Subscribe registers a local handler for the named event. Call the returned func to unsubscribe
func (b *Bus) Subscribe(name string, h Handler) (unsubscribe func()) {
	b.nextID++
	id := b.nextID
	b.handlers[name] = append(b.handlers[name], subscription{id: id, handler: h})
	return func() {
		subs := b.handlers[name]
		for i, s := range subs {
			if s.id == id {
				b.handlers[name] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the event to local handlers and queues it for remote subscribers.
// Must be called on the event loop
func (b *Bus) Publish(name string, payload Payload) {
	ev := Event{Name: name, Payload: payload}
	logrus.WithFields(logrus.Fields{
		"event":   name,
		"payload": payload,
	}).Debugln("Publishing bus event")
	for _, s := range append([]subscription(nil), b.handlers[name]...) {
		s.handler(ev)
	}
	if err := b.remote.Send(ev); err != nil {
		logrus.WithError(err).WithField("event", name).Warnln("Dropped event for remote subscribers")
	}
}

// Listen registers a remote subscriber. The channel is closed by Unlisten or Close.
// Safe to call from any goroutine
func (b *Bus) Listen(name string) (<-chan Event, error) {
	return b.remote.MakeReceiver(name)
}

// Unlisten removes a remote subscriber. Safe to call from any goroutine
func (b *Bus) Unlisten(name string) {
	b.remote.CloseReceiver(name)
}

// Request hands a request from a remote client to the loop.
// Safe to call from any goroutine, blocks while the request queue is full
func (b *Bus) Request(ev Event) error {
	return b.inbound.Send(ev)
}

// ServeRequests forwards queued requests to post, one at a time, until Close.
// post is expected to run the delivery on the event loop. Run as a goroutine
func (b *Bus) ServeRequests(post func(func()) error) {
	for ev := range b.requests {
		ev := ev
		if err := post(func() { b.Deliver(ev) }); err != nil {
			logrus.WithError(err).WithField("request", ev.Name).Warnln("Failed to hand request to loop")
		}
	}
}

// Deliver runs the local handlers for ev without forwarding it to remote subscribers.
// Used for requests, which are addressed to the compositor only
func (b *Bus) Deliver(ev Event) {
	subs := b.handlers[ev.Name]
	if len(subs) == 0 {
		logrus.WithField("request", ev.Name).Debugln("No handler for request")
		return
	}
	for _, s := range append([]subscription(nil), subs...) {
		s.handler(ev)
	}
}

// Close stops the remote fan-out and the request queue
func (b *Bus) Close() {
	b.stopOnce.Do(func() {
		b.inbound.Close()
		b.remote.CloseSender(true)
	})
}
