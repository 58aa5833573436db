// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/gorilla/mux"
	"github.com/mstarongithub/strata/eventbus"
	"github.com/sirupsen/logrus"
)

// Name of the socket inside the xdg runtime dir
const SOCKET_NAME = "strata.sock"

// Executor runs fn on the compositor's event loop and waits for it to return
type Executor func(ctx context.Context, fn func() error) error

type Server struct {
	provider Provider
	bus      *eventbus.Bus
	exec     Executor

	server   *http.Server
	listener net.Listener
	path     string
}

// DefaultSocketPath returns the socket path in the xdg runtime dir, creating the dir if needed
func DefaultSocketPath() (string, error) {
	return xdg.RuntimeFile(SOCKET_NAME)
}

func jsonResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	logrus.WithFields(logrus.Fields{
		"status": status,
		"path":   r.URL.Path,
	}).Debugln("ipc request")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Warnln("Failed to write ipc response")
	}
}

func errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}
	jsonResponse(w, r, status, ErrorResponse{Error: err.Error()})
}

func NewServer(provider Provider, bus *eventbus.Bus, exec Executor) *Server {
	s := &Server{
		provider: provider,
		bus:      bus,
		exec:     exec,
	}
	s.server = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    5 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s
}

// Handler builds the routes. Exposed so tests can drive it without a socket
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/outputs", func(w http.ResponseWriter, r *http.Request) {
		req := OutputRequest{
			IncludeModes: r.URL.Query().Get("modes") != "",
			TargetOutput: r.URL.Query().Get("output"),
		}
		req.SpecifiesOutput = req.TargetOutput != ""
		var res OutputResponse
		err := s.exec(r.Context(), func() (err error) {
			res, err = s.provider.QueryOutputs(req)
			return err
		})
		if err != nil {
			errorResponse(w, r, err)
			return
		}
		jsonResponse(w, r, http.StatusOK, res)
	}).Methods(http.MethodGet)

	router.HandleFunc("/windows", func(w http.ResponseWriter, r *http.Request) {
		var res WindowsResponse
		err := s.exec(r.Context(), func() error {
			res = s.provider.QueryWindows()
			return nil
		})
		if err != nil {
			errorResponse(w, r, err)
			return
		}
		jsonResponse(w, r, http.StatusOK, res)
	}).Methods(http.MethodGet)

	router.HandleFunc("/windows/{id:[0-9]+}/{action}", func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		id, err := strconv.ParseUint(vars["id"], 10, 64)
		if err != nil {
			errorResponse(w, r, fmt.Errorf("%w: invalid window id %q", ErrBadRequest, vars["id"]))
			return
		}
		err = s.exec(r.Context(), func() error {
			return s.provider.WindowAction(id, vars["action"])
		})
		if err != nil {
			errorResponse(w, r, err)
			return
		}
		jsonResponse(w, r, http.StatusOK, map[string]any{"id": id, "action": vars["action"]})
	}).Methods(http.MethodPost)

	router.HandleFunc("/shortcuts/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		s.request(w, r, eventbus.Event{
			Name:    eventbus.ShortcutActivate,
			Payload: eventbus.Payload{"name": name},
		})
	}).Methods(http.MethodPost)

	router.HandleFunc("/multitask/toggle", func(w http.ResponseWriter, r *http.Request) {
		s.request(w, r, eventbus.Event{Name: eventbus.MultitaskToggle})
	}).Methods(http.MethodPost)

	router.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	router.PathPrefix("/").Handler(http.NotFoundHandler())
	return router
}

// request queues a bus request. It is answered with 202 since requests carry no result
func (s *Server) request(w http.ResponseWriter, r *http.Request, ev eventbus.Event) {
	if err := s.bus.Request(ev); err != nil {
		errorResponse(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusAccepted, ev)
}

// Listen binds the unix socket at path, replacing a stale socket from an earlier run
func (s *Server) Listen(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create socket dir: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale socket %s: %w", path, err)
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", path, err)
	}
	s.listener = l
	s.path = path
	logrus.WithField("socket", path).Infoln("ipc listening")
	return nil
}

// Serve handles connections until Close. Run as a goroutine after Listen
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("ipc server not listening")
	}
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ipc server stopped: %w", err)
	}
	return nil
}

// Close shuts the server down and removes the socket
func (s *Server) Close(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	if s.path != "" {
		os.Remove(s.path)
	}
	return err
}
