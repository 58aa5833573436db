// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package wrappers gives streams like stdin and stdout a Close that doesn't close
// the underlying file, so the repl can shut down without taking them with it
package wrappers

import (
	"errors"
	"io"
	"sync/atomic"
)

var ErrClosed = errors.New("closed")

type ReaderWrapper struct {
	closed  atomic.Bool
	wrapped io.Reader
}

func NewReaderWrapper(wraps io.Reader) *ReaderWrapper {
	return &ReaderWrapper{wrapped: wraps}
}

// Close implements repl.ReadCloser. Safe to call from another goroutine than the reader
func (r *ReaderWrapper) Close() error {
	r.closed.Store(true)
	return nil
}

// Read implements repl.ReadCloser.
// A read already blocked in the wrapped reader still returns its data
func (r *ReaderWrapper) Read(p []byte) (n int, err error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	return r.wrapped.Read(p)
}
