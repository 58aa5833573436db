// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package loop is the single threaded event loop the compositor runs on.
// It multiplexes file descriptors (the display connection, timers and a wake fd)
// with poll(2). Every callback runs on the goroutine calling Run, one at a time,
// so compositor state touched only from callbacks needs no locking.
// Other goroutines hand work to the loop with Post.
package loop

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

var ErrStopped = errors.New("event loop stopped")

type source struct {
	fd      int
	onReady func() error
	removed bool
}

type Loop struct {
	sources []*source
	idle    []func()
	wakeFd  int
	timers  map[*Timer]struct{}

	lock    sync.Mutex
	posted  []func()
	stopped bool
	closed  bool
}

// New creates a loop with its wake eventfd
func New() (*Loop, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("failed to create wake eventfd: %w", err)
	}
	return &Loop{wakeFd: fd, timers: make(map[*Timer]struct{})}, nil
}

// AddFd watches fd for readability. onReady is called on the loop whenever fd is readable.
// If onReady returns an error, Run stops and returns it.
// The returned func removes the fd from the loop, it does not close it
func (l *Loop) AddFd(fd int, onReady func() error) (remove func()) {
	src := &source{fd: fd, onReady: onReady}
	l.sources = append(l.sources, src)
	return func() {
		src.removed = true
	}
}

// OnIdle registers fn to run after every batch of ready sources has been handled.
// Used for work that must see all pending events first, like flushing clients
func (l *Loop) OnIdle(fn func()) {
	l.idle = append(l.idle, fn)
}

// Post queues fn to run on the loop. Safe to call from any goroutine
func (l *Loop) Post(fn func()) error {
	l.lock.Lock()
	if l.stopped || l.closed {
		l.lock.Unlock()
		return ErrStopped
	}
	l.posted = append(l.posted, fn)
	l.lock.Unlock()
	return l.wake()
}

// Call runs fn on the loop and waits for its result or for ctx to end
func Call[T any](ctx context.Context, l *Loop, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	var zero T
	done := make(chan result, 1)
	if err := l.Post(func() {
		val, err := fn()
		done <- result{val, err}
	}); err != nil {
		return zero, err
	}
	select {
	case res := <-done:
		return res.val, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Stop makes Run return after the current batch. Safe to call from any goroutine
func (l *Loop) Stop() {
	l.lock.Lock()
	if l.stopped {
		l.lock.Unlock()
		return
	}
	l.stopped = true
	l.lock.Unlock()
	if err := l.wake(); err != nil {
		logrus.WithError(err).Warnln("Failed to wake loop for stop")
	}
}

func (l *Loop) isStopped() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.stopped
}

func (l *Loop) wake() error {
	buf := make([]byte, 8)
	binary.NativeEndian.PutUint64(buf, 1)
	if _, err := unix.Write(l.wakeFd, buf); err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("failed to write wake eventfd: %w", err)
	}
	return nil
}

func (l *Loop) runPosted() {
	buf := make([]byte, 8)
	// Drain the counter, the value itself doesn't matter
	_, _ = unix.Read(l.wakeFd, buf)

	l.lock.Lock()
	posted := l.posted
	l.posted = nil
	l.lock.Unlock()

	for _, fn := range posted {
		fn()
	}
}

// Run blocks, dispatching sources until Stop is called or a source fails.
// The calling goroutine is locked to its OS thread for the duration
func (l *Loop) Run() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for !l.isStopped() {
		if err := l.dispatch(-1); err != nil {
			return err
		}
	}
	return nil
}

// dispatch waits up to timeout milliseconds (-1 waits forever) and handles one batch
func (l *Loop) dispatch(timeout int) error {
	l.compact()
	fds := make([]unix.PollFd, 0, len(l.sources)+1)
	fds = append(fds, unix.PollFd{Fd: int32(l.wakeFd), Events: unix.POLLIN})
	for _, src := range l.sources {
		fds = append(fds, unix.PollFd{Fd: int32(src.fd), Events: unix.POLLIN})
	}

	n, err := unix.Poll(fds, timeout)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil
		}
		return fmt.Errorf("poll failed: %w", err)
	}

	if n > 0 {
		// Snapshot, callbacks may add or remove sources
		sources := append([]*source(nil), l.sources...)
		for i, pfd := range fds[1:] {
			if pfd.Revents == 0 {
				continue
			}
			src := sources[i]
			if src.removed {
				continue
			}
			if err := src.onReady(); err != nil {
				return err
			}
		}
		if fds[0].Revents != 0 {
			l.runPosted()
		}
	}

	for _, fn := range l.idle {
		fn()
	}
	return nil
}

func (l *Loop) compact() {
	kept := l.sources[:0]
	for _, src := range l.sources {
		if !src.removed {
			kept = append(kept, src)
		}
	}
	l.sources = kept
}

// Close releases the wake fd and stops every timer that is still running.
// Fds added through AddFd belong to their callers and stay open
func (l *Loop) Close() error {
	l.lock.Lock()
	l.closed = true
	l.lock.Unlock()
	var errs []error
	for t := range l.timers {
		if err := t.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := unix.Close(l.wakeFd); err != nil {
		errs = append(errs, fmt.Errorf("failed to close wake eventfd: %w", err))
	}
	return errors.Join(errs...)
}

// Timer is a periodic timerfd source
type Timer struct {
	fd     int
	loop   *Loop
	remove func()
}

// AddTimer fires fn on the loop every interval, starting one interval from now
func (l *Loop) AddTimer(interval time.Duration, fn func()) (*Timer, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid timer interval %v", interval)
	}
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("failed to create timerfd: %w", err)
	}
	spec := unix.ItimerSpec{
		Interval: unix.NsecToTimespec(interval.Nanoseconds()),
		Value:    unix.NsecToTimespec(interval.Nanoseconds()),
	}
	if err = unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to arm timerfd: %w", err)
	}

	t := &Timer{fd: fd, loop: l}
	buf := make([]byte, 8)
	t.remove = l.AddFd(fd, func() error {
		// Expiration count, missed ticks are coalesced into one call
		if _, err := unix.Read(fd, buf); err != nil {
			if errors.Is(err, unix.EAGAIN) {
				return nil
			}
			return fmt.Errorf("failed to read timerfd: %w", err)
		}
		fn()
		return nil
	})
	l.timers[t] = struct{}{}
	return t, nil
}

// Stop disarms the timer and removes it from the loop
func (t *Timer) Stop() error {
	if t.remove == nil {
		return nil
	}
	t.remove()
	t.remove = nil
	delete(t.loop.timers, t)
	return unix.Close(t.fd)
}
