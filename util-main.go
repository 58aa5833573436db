// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mstarongithub/strata/eventbus"
	"github.com/mstarongithub/strata/ipc"
	"github.com/urfave/cli/v2"
	"gitlab.com/mstarongitlab/goutils/sliceutils"
)

const utilTimeout = 5 * time.Second

// utilCommands are the tools for inspecting and poking a running compositor
func utilCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "outputs",
			Usage:  "List the outputs of the running compositor",
			Action: withClient(utilListOutputs),
		},
		{
			Name:  "modes",
			Usage: "List the modes of an output",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "output", Usage: "Output to list the modes of", Required: true},
			},
			Action: withClient(utilListOutputModes),
		},
		{
			Name:   "windows",
			Usage:  "List the mapped windows",
			Action: withClient(utilListWindows),
		},
		{
			Name:      "window",
			Usage:     "Apply an action to a window",
			ArgsUsage: "<id> <focus|close|minimize|restore|maximize|unmaximize|fullscreen|unfullscreen>",
			Action:    withClient(utilWindowAction),
		},
		{
			Name:      "shortcut",
			Usage:     "Trigger a compositor shortcut, like toggle-overview",
			ArgsUsage: "<name>",
			Action:    withClient(utilShortcut),
		},
		{
			Name:   "overview",
			Usage:  "Toggle the window overview",
			Action: withClient(utilOverview),
		},
		{
			Name:  "events",
			Usage: "Print compositor events as json lines until interrupted",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{Name: "filter", Usage: "Only print events with these names"},
			},
			Action: withClient(utilEvents),
		},
	}
}

type utilAction func(c *cli.Context, client *ipc.Client) error

// withClient connects to the compositor named by the config and turns failures into exit code 1
func withClient(action utilAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		conf, err := loadConfig(c)
		if err != nil {
			return cli.Exit(fmt.Sprintf("error loading config: %s", err), 1)
		}
		path, err := ipcSocketPath(conf)
		if err != nil {
			return cli.Exit(fmt.Sprintf("error finding ipc socket: %s", err), 1)
		}
		if err = action(c, ipc.NewClient(path)); err != nil {
			return cli.Exit(err.Error(), 1)
		}
		return nil
	}
}

func utilListOutputs(c *cli.Context, client *ipc.Client) error {
	ctx, cancel := context.WithTimeout(c.Context, utilTimeout)
	defer cancel()
	res, err := client.Outputs(ctx, ipc.OutputRequest{})
	if err != nil {
		return err
	}
	printOutputs(c.App.Writer, res)
	return nil
}

func printOutputs(w io.Writer, res ipc.OutputResponse) {
	for i, output := range res.Outputs {
		state := "enabled"
		if !output.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(w, "Output %v: %s (%s) %dx%d at %d,%d\n", i, output.Name, state, output.Width, output.Height, output.X, output.Y)
	}
}

func utilListOutputModes(c *cli.Context, client *ipc.Client) error {
	ctx, cancel := context.WithTimeout(c.Context, utilTimeout)
	defer cancel()
	outputName := c.String("output")
	res, err := client.Outputs(ctx, ipc.OutputRequest{
		IncludeModes:    true,
		SpecifiesOutput: true,
		TargetOutput:    outputName,
	})
	if err != nil {
		return err
	}
	printModes(c.App.Writer, outputName, res.OutputModes[outputName])
	return nil
}

func printModes(w io.Writer, outputName string, modes []ipc.OutputMode) {
	fmt.Fprintf(w, "Modes for output %s:\n", outputName)
	if len(modes) == 0 {
		fmt.Fprintln(w, "\tnone, the output takes any size")
		return
	}
	preferred := sliceutils.Filter(modes, func(m ipc.OutputMode) bool { return m.Preferred })
	for _, mode := range modes {
		if len(preferred) > 0 && mode == preferred[0] {
			fmt.Fprintf(w, "\t- %dx%d@%.3fHz (preferred)\n", mode.Width, mode.Height, float64(mode.RefreshRate)/1000)
		} else {
			fmt.Fprintf(w, "\t- %dx%d@%.3fHz\n", mode.Width, mode.Height, float64(mode.RefreshRate)/1000)
		}
	}
}

func utilListWindows(c *cli.Context, client *ipc.Client) error {
	ctx, cancel := context.WithTimeout(c.Context, utilTimeout)
	defer cancel()
	res, err := client.Windows(ctx)
	if err != nil {
		return err
	}
	printWindows(c.App.Writer, res)
	return nil
}

func printWindows(w io.Writer, res ipc.WindowsResponse) {
	for _, win := range res.Windows {
		marker := " "
		if win.Focused {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %d\t%s\t%q\t%dx%d at %d,%d\t%s\n",
			marker, win.ID, win.AppID, win.Title,
			win.Box.Width, win.Box.Height, win.Box.X, win.Box.Y, win.State)
	}
}

func utilWindowAction(c *cli.Context, client *ipc.Client) error {
	if c.NArg() != 2 {
		return fmt.Errorf("expected a window id and an action, got %d arguments", c.NArg())
	}
	id, err := strconv.ParseUint(c.Args().Get(0), 10, 64)
	if err != nil {
		return fmt.Errorf("bad window id %q: %w", c.Args().Get(0), err)
	}
	ctx, cancel := context.WithTimeout(c.Context, utilTimeout)
	defer cancel()
	return client.WindowAction(ctx, id, c.Args().Get(1))
}

func utilShortcut(c *cli.Context, client *ipc.Client) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected a shortcut name")
	}
	ctx, cancel := context.WithTimeout(c.Context, utilTimeout)
	defer cancel()
	return client.Shortcut(ctx, c.Args().First())
}

func utilOverview(c *cli.Context, client *ipc.Client) error {
	ctx, cancel := context.WithTimeout(c.Context, utilTimeout)
	defer cancel()
	return client.ToggleMultitask(ctx)
}

func utilEvents(c *cli.Context, client *ipc.Client) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	enc := json.NewEncoder(c.App.Writer)
	return client.Events(ctx, c.StringSlice("filter"), func(ev eventbus.Event) {
		enc.Encode(ev)
	})
}
