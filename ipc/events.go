// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ipc

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mstarongithub/strata/eventbus"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// handleEvents streams bus events to a websocket client. An optional comma
// separated "filter" query parameter limits the stream to the named events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warnln("websocket accept failed")
		return
	}
	defer c.Close(websocket.StatusInternalError, "")

	filter := map[string]bool{}
	for _, name := range strings.Split(r.URL.Query().Get("filter"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			filter[name] = true
		}
	}

	id := uuid.NewString()
	events, err := s.bus.Listen(id)
	if err != nil {
		c.Close(websocket.StatusInternalError, err.Error())
		return
	}
	defer s.bus.Unlisten(id)
	log := logrus.WithField("subscriber", id)
	log.Debugln("Event subscriber connected")
	defer log.Debugln("Event subscriber disconnected")

	// Clients never send anything, reading only handles close frames
	ctx := c.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				c.Close(websocket.StatusGoingAway, "compositor shutting down")
				return
			}
			if len(filter) > 0 && !filter[ev.Name] {
				continue
			}
			if err := writeEvent(ctx, c, ev); err != nil {
				log.WithError(err).Debugln("Failed to write event")
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, c *websocket.Conn, ev eventbus.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c, ev)
}
