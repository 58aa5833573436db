// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
)

// Where the config lives, relative to the xdg config dirs
const CONFIG_FILE = "strata/config.toml"

type StartType int

const (
	// Tells strata to start a repl in parallel for interacting with it
	START_REPL = StartType(iota)
	// Tells strata to execute a specific command on startup
	START_SINGLE_COMMAND
	// Tells strata to start without any specific targets
	// Note: Shell applications are expected to come in through the socket
	START_NONE
)

var startTypeNames = map[StartType]string{
	START_REPL:           "repl",
	START_SINGLE_COMMAND: "command",
	START_NONE:           "none",
}

func (s StartType) String() string {
	return startTypeNames[s]
}

func (s *StartType) UnmarshalText(text []byte) error {
	for t, name := range startTypeNames {
		if strings.EqualFold(name, string(text)) {
			*s = t
			return nil
		}
	}
	return fmt.Errorf("unknown start type %q", text)
}

type Config struct {
	StartType StartType `toml:"start_type,omitempty"`
	// What command to execute on start. Only matters if StartType is set to START_SINGLE_COMMAND
	StartCommand *string `toml:"start_command,omitempty"`
	// Name of the wayland socket. Picked automatically when empty
	Socket string `toml:"socket,omitempty"`
	Debug  bool   `toml:"debug,omitempty"`

	Tiling   TilingConfig   `toml:"tiling"`
	Overview OverviewConfig `toml:"overview"`
	Input    InputConfig    `toml:"input"`
	Ipc      IpcConfig      `toml:"ipc"`
}

type TilingConfig struct {
	// Whether windows start out tiled
	Enabled      bool    `toml:"enabled"`
	MasterRatio  float64 `toml:"master_ratio"`
	InnerGap     int     `toml:"inner_gap"`
	OuterGap     int     `toml:"outer_gap"`
	BorderWidth  int     `toml:"border_width"`
	FocusedColor string  `toml:"focused_color"`
	NormalColor  string  `toml:"normal_color"`
}

type OverviewConfig struct {
	// Space at the top of the output kept free of thumbnails
	TopStrip int `toml:"top_strip"`
	Padding  int `toml:"padding"`
}

type InputConfig struct {
	// Modifier for compositor key bindings, like "logo" or "ctrl+alt"
	Modifier    string `toml:"modifier"`
	Layout      string `toml:"layout"`
	RepeatRate  int    `toml:"repeat_rate"`
	RepeatDelay int    `toml:"repeat_delay"`
	// Height of the global menu bar. Windows can't be dragged above it
	MenuBarHeight int `toml:"menu_bar_height"`
}

type IpcConfig struct {
	Enabled bool `toml:"enabled"`
	// Path of the ipc socket. Defaults to strata.sock in the xdg runtime dir
	Socket string `toml:"socket,omitempty"`
}

func Default() Config {
	return Config{
		StartType: START_NONE,
		Tiling: TilingConfig{
			MasterRatio:  0.6,
			InnerGap:     10,
			OuterGap:     10,
			BorderWidth:  2,
			FocusedColor: "#3daee9",
			NormalColor:  "#4d4d4d",
		},
		Overview: OverviewConfig{
			TopStrip: 60,
			Padding:  20,
		},
		Input: InputConfig{
			Modifier:      "logo",
			Layout:        "us",
			RepeatRate:    25,
			RepeatDelay:   600,
			MenuBarHeight: 0,
		},
		Ipc: IpcConfig{
			Enabled: true,
		},
	}
}

// Load reads the config at path over the defaults. With an empty path the
// xdg config dirs are searched, and a missing file there just means defaults
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		found, err := xdg.SearchConfigFile(CONFIG_FILE)
		if err != nil {
			logrus.WithField("file", CONFIG_FILE).Debugln("No config file found, using defaults")
			return cfg, nil
		}
		path = found
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err = toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err = cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	logrus.WithField("file", path).Infoln("Loaded config")
	return cfg, nil
}

// Validate checks values that have no sensible interpretation
func (c *Config) Validate() error {
	var errs []error
	if c.Tiling.MasterRatio <= 0 || c.Tiling.MasterRatio >= 1 {
		errs = append(errs, fmt.Errorf("tiling.master_ratio must be between 0 and 1, got %v", c.Tiling.MasterRatio))
	}
	if c.Tiling.InnerGap < 0 || c.Tiling.OuterGap < 0 || c.Tiling.BorderWidth < 0 {
		errs = append(errs, errors.New("tiling gaps and border width can't be negative"))
	}
	if c.Overview.TopStrip < 0 || c.Overview.Padding < 0 {
		errs = append(errs, errors.New("overview sizes can't be negative"))
	}
	if c.Input.RepeatRate < 0 || c.Input.RepeatDelay < 0 {
		errs = append(errs, errors.New("key repeat settings can't be negative"))
	}
	if c.StartType == START_SINGLE_COMMAND && (c.StartCommand == nil || *c.StartCommand == "") {
		errs = append(errs, errors.New("start_type is command but no start_command is set"))
	}
	return errors.Join(errs...)
}
