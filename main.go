// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"os"

	"github.com/mstarongithub/strata/config"
	"github.com/mstarongithub/strata/ipc"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "strata",
		Usage: "a small wayland session compositor",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      "config",
				Usage:     "Path to the config file. Searched for in the xdg config dirs when not set",
				TakesFile: true,
			},
			&cli.StringFlag{
				Name:  "socket",
				Usage: "Name of the wayland socket. Picked automatically when not set",
			},
			&cli.StringFlag{
				Name:  "command",
				Usage: "Command to run once the compositor is up",
			},
			&cli.BoolFlag{
				Name:  "repl",
				Usage: "Read compositor commands from stdin",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:      "ipc",
				Usage:     "Path of the ipc socket",
				TakesFile: true,
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Action:   wlMain,
		Commands: utilCommands(),
	}
	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Errorln("strata failed")
		os.Exit(1)
	}
}

// loadConfig reads the config file and lets the command line override it
func loadConfig(c *cli.Context) (config.Config, error) {
	conf, err := config.Load(c.String("config"))
	if err != nil {
		return conf, err
	}
	if c.IsSet("socket") {
		conf.Socket = c.String("socket")
	}
	if c.IsSet("command") {
		cmd := c.String("command")
		conf.StartType = config.START_SINGLE_COMMAND
		conf.StartCommand = &cmd
	}
	if c.Bool("repl") {
		conf.StartType = config.START_REPL
	}
	if c.Bool("debug") {
		conf.Debug = true
	}
	if c.IsSet("ipc") {
		conf.Ipc.Socket = c.String("ipc")
	}
	if conf.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return conf, conf.Validate()
}

func ipcSocketPath(conf config.Config) (string, error) {
	if conf.Ipc.Socket != "" {
		return conf.Ipc.Socket, nil
	}
	return ipc.DefaultSocketPath()
}
