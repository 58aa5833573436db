// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package multiplexer

import (
	"errors"
	"sync"
)

var (
	ErrClosed         = errors.New("multiplexer has been closed")
	ErrReceiverExists = errors.New("receiver with that name already exists")
	ErrFull           = errors.New("multiplexer inbound buffer is full")
)

// OneToMany distributes every message sent into it to all named receivers.
// Sending never blocks: messages are dropped if the inbound buffer is full,
// and a receiver that doesn't keep up misses messages instead of stalling the others
type OneToMany[T any] struct {
	inbound   chan T
	outbound  map[string]chan T // Use map here to give names to outbound channels
	bufSize   int
	lock      sync.Mutex
	closeChan chan struct{}
	done      chan struct{}
	closed    bool
}

// NewOneToMany creates a new plexer. bufSize is used for the inbound channel and every receiver
func NewOneToMany[T any](bufSize int) *OneToMany[T] {
	return &OneToMany[T]{
		inbound:   make(chan T, bufSize),
		outbound:  make(map[string]chan T),
		bufSize:   bufSize,
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Send queues a message for distribution without blocking
func (o *OneToMany[T]) Send(msg T) error {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.closed {
		return ErrClosed
	}
	select {
	case o.inbound <- msg:
		return nil
	default:
		return ErrFull
	}
}

// Create a new receiver for the multiplexer to send messages to.
// Please do not close this manually, instead use the CloseReceiver func
func (o *OneToMany[T]) MakeReceiver(name string) (<-chan T, error) {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.closed {
		return nil, ErrClosed
	}
	if _, ok := o.outbound[name]; ok {
		return nil, ErrReceiverExists
	}
	rec := make(chan T, o.bufSize)
	o.outbound[name] = rec
	return rec, nil
}

// Closes a receiver channel with the given name and removes it from the multiplexer
func (o *OneToMany[T]) CloseReceiver(name string) {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.closed {
		return
	}
	if val, ok := o.outbound[name]; ok {
		close(val)
		delete(o.outbound, name)
	}
}

// Receivers returns the number of currently registered receivers
func (o *OneToMany[T]) Receivers() int {
	o.lock.Lock()
	defer o.lock.Unlock()
	return len(o.outbound)
}

// Start this one to many multiplexer
// intended to run as a goroutine (`go plexer.StartPlexer()`)
// Returns once CloseSender has been called
func (o *OneToMany[T]) StartPlexer() {
	defer close(o.done)
	for {
		select {
		// Message gotten from inbound channel
		case msg := <-o.inbound:
			o.lock.Lock()
			for _, c := range o.outbound {
				select {
				case c <- msg:
				default:
					// Slow receiver, drop
				}
			}
			o.lock.Unlock()
		// Told to close the plexer including sender
		case <-o.closeChan:
			o.lock.Lock()
			// No need to send any signal there as readers will just stop
			for name, c := range o.outbound {
				close(c)
				delete(o.outbound, name)
			}
			o.lock.Unlock()
			return
		}
	}
}

// Close the sender and all receiver channels, mark the plexer as closed and stop the distribution goroutine.
// Blocks until the distribution goroutine has exited if it was started
func (o *OneToMany[T]) CloseSender(started bool) {
	o.lock.Lock()
	if o.closed {
		o.lock.Unlock()
		return
	}
	o.closed = true
	o.lock.Unlock()
	close(o.closeChan)
	if started {
		<-o.done
	}
}
