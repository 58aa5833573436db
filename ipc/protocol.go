// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package ipc is the side channel shell applications and the strata tool mode
// use to talk to a running compositor: plain JSON over HTTP on a unix socket,
// plus a websocket streaming bus events
package ipc

import "errors"

// TODO: Look into adding support for sway and hyprland ipc so that strata can interact with those in tool mode

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
)

// Actions accepted by POST /windows/{id}/{action}
const (
	ACTION_FOCUS        = "focus"
	ACTION_CLOSE        = "close"
	ACTION_MINIMIZE     = "minimize"
	ACTION_RESTORE      = "restore"
	ACTION_MAXIMIZE     = "maximize"
	ACTION_UNMAXIMIZE   = "unmaximize"
	ACTION_FULLSCREEN   = "fullscreen"
	ACTION_UNFULLSCREEN = "unfullscreen"
)

type (
	// A request to list the available Outputs
	OutputRequest struct {
		// Whether to include the modes an output supports
		IncludeModes bool `json:"include_modes"`
		// Target one specific output
		SpecifiesOutput bool `json:"specifies_output"`
		// Name of the output you want info on. Only matters if SpecifiesOutput is set
		TargetOutput string `json:"target_output"`
	}

	// A mode an output supports
	OutputMode struct {
		// Mode height in pixel
		Height int `json:"height"`
		// Mode width in pixel
		Width int `json:"width"`
		// Refresh rate of the mode in millihertz
		RefreshRate int  `json:"refresh_rate"`
		Preferred   bool `json:"preferred,omitempty"`
	}

	OutputInfo struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
		Nested  bool   `json:"nested"`
		// Position and size in the global layout
		X      int `json:"x"`
		Y      int `json:"y"`
		Width  int `json:"width"`
		Height int `json:"height"`
		// Refresh rate of the current mode in millihertz
		RefreshRate int `json:"refresh_rate"`
		// Area left after panels reserved their space
		Usable Box `json:"usable"`
	}

	Box struct {
		X      int `json:"x"`
		Y      int `json:"y"`
		Width  int `json:"width"`
		Height int `json:"height"`
	}

	// Response to a OutputRequest message
	OutputResponse struct {
		// List of all outputs. Only contains target output if specified
		Outputs []OutputInfo `json:"outputs"`
		// A list of modes an output supports. Only set if IncludeModes is true
		OutputModes map[string][]OutputMode `json:"output_modes,omitempty"`
		// Nr of outputs found
		OutputsFound int `json:"outputs_found"`
	}

	WindowInfo struct {
		ID      uint64 `json:"id"`
		Title   string `json:"title"`
		AppID   string `json:"app_id"`
		Box     Box    `json:"box"`
		State   string `json:"state"`
		Focused bool   `json:"focused"`
	}

	// Windows in focus order, most recently focused first
	WindowsResponse struct {
		Windows []WindowInfo `json:"windows"`
	}

	ErrorResponse struct {
		Error string `json:"error"`
	}
)

// Provider answers queries. Its methods are only ever called on the compositor's event loop
type Provider interface {
	QueryOutputs(req OutputRequest) (OutputResponse, error)
	QueryWindows() WindowsResponse
	WindowAction(id uint64, action string) error
}
