// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mstarongithub/strata/eventbus"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Host part of request urls. The transport ignores it and always dials the socket
const clientHost = "strata"

// Client talks to a running compositor over its ipc socket
type Client struct {
	http *http.Client
	base string
}

func NewClient(socketPath string) *Client {
	dialer := &net.Dialer{}
	return &Client{
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					return dialer.DialContext(ctx, "unix", socketPath)
				},
			},
		},
		base: "http://" + clientHost,
	}
}

// newClientWith is used by tests to point the client at an httptest server
func newClientWith(hc *http.Client, base string) *Client {
	return &Client{http: hc, base: base}
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach compositor: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var e ErrorResponse
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = res.Status
		}
		switch res.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, e.Error)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", ErrBadRequest, e.Error)
		}
		return fmt.Errorf("compositor answered %s: %s", res.Status, e.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) Outputs(ctx context.Context, req OutputRequest) (OutputResponse, error) {
	q := url.Values{}
	if req.IncludeModes {
		q.Set("modes", "1")
	}
	if req.SpecifiesOutput {
		q.Set("output", req.TargetOutput)
	}
	path := "/outputs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var res OutputResponse
	err := c.do(ctx, http.MethodGet, path, &res)
	return res, err
}

func (c *Client) Windows(ctx context.Context) (WindowsResponse, error) {
	var res WindowsResponse
	err := c.do(ctx, http.MethodGet, "/windows", &res)
	return res, err
}

func (c *Client) WindowAction(ctx context.Context, id uint64, action string) error {
	return c.do(ctx, http.MethodPost, "/windows/"+strconv.FormatUint(id, 10)+"/"+url.PathEscape(action), nil)
}

func (c *Client) Shortcut(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/shortcuts/"+url.PathEscape(name), nil)
}

func (c *Client) ToggleMultitask(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/multitask/toggle", nil)
}

// Events streams bus events to fn until ctx ends or the compositor goes away
func (c *Client) Events(ctx context.Context, filter []string, fn func(eventbus.Event)) error {
	u := "ws" + c.base[len("http"):] + "/events"
	if len(filter) > 0 {
		u += "?" + url.Values{"filter": {strings.Join(filter, ",")}}.Encode()
	}
	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{HTTPClient: c.http})
	if err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	for {
		var ev eventbus.Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("event stream broke: %w", err)
		}
		fn(ev)
	}
}
