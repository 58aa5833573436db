// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mstarongithub/strata/compositor"
	"github.com/mstarongithub/strata/input"
	"github.com/mstarongithub/strata/ipc"
	"github.com/mstarongithub/strata/loop"
	"github.com/mstarongithub/strata/repl"
	"github.com/mstarongithub/strata/util/wrappers"
	"github.com/sirupsen/logrus"
)

const replTimeout = 5 * time.Second

// onLoop runs fn on the event loop and returns its reply
func onLoop(l *loop.Loop, fn func() (string, error)) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), replTimeout)
	defer cancel()
	res, err := loop.Call(ctx, l, fn)
	if err != nil {
		// Errors are replies, only quitting ends the repl
		return "Error: " + err.Error(), nil
	}
	return res, nil
}

func replCommands(l *loop.Loop, core *compositor.Server) *repl.Dispatcher {
	d := repl.NewDispatcher()

	d.Register("run", "<command> [args...]", func(args []string, r *repl.Repl) (string, error) {
		if len(args) == 0 {
			return "Nothing to run", nil
		}
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Stdout = r.Output
		cmd.Stderr = r.Output
		cmdString := strings.Join(args, " ")
		if err := cmd.Start(); err != nil {
			logrus.WithError(err).WithField("command", cmdString).Errorln("Command failed to start")
			return "Failed to start " + args[0], nil
		}
		go func() {
			err := cmd.Wait()
			if exiterr, ok := err.(*exec.ExitError); ok {
				logrus.WithError(err).WithFields(logrus.Fields{
					"exit-code": exiterr.ExitCode(),
					"command":   cmdString,
				}).Warningln("Bad command completion")
			}
		}()
		return "Running " + args[0], nil
	})

	d.Register("quit", "", func([]string, *repl.Repl) (string, error) {
		l.Stop()
		return "Quitting", repl.ErrQuit
	})

	d.Register("windows", "", func([]string, *repl.Repl) (string, error) {
		return onLoop(l, func() (string, error) {
			var b strings.Builder
			printWindows(&b, core.QueryWindows())
			return strings.TrimRight(b.String(), "\n"), nil
		})
	})

	d.Register("outputs", "", func([]string, *repl.Repl) (string, error) {
		return onLoop(l, func() (string, error) {
			res, err := core.QueryOutputs(ipc.OutputRequest{})
			if err != nil {
				return "", err
			}
			var b strings.Builder
			printOutputs(&b, res)
			return strings.TrimRight(b.String(), "\n"), nil
		})
	})

	d.Register("overview", "", func([]string, *repl.Repl) (string, error) {
		return onLoop(l, func() (string, error) {
			core.ToggleOverview()
			return fmt.Sprintf("Overview active: %v", core.Overview.Active()), nil
		})
	})

	d.Register("tile", "", func([]string, *repl.Repl) (string, error) {
		return onLoop(l, func() (string, error) {
			core.RunAction(input.ActionToggleTiling)
			return fmt.Sprintf("Tiling enabled: %v", core.Tiler.Enabled()), nil
		})
	})

	d.Register("shortcut", "<name>", func(args []string, _ *repl.Repl) (string, error) {
		if len(args) != 1 {
			return "Usage: shortcut <name>", nil
		}
		action, ok := input.ParseAction(args[0])
		if !ok {
			return "Unknown shortcut " + args[0], nil
		}
		return onLoop(l, func() (string, error) {
			return fmt.Sprintf("Applied: %v", core.RunAction(action)), nil
		})
	})

	for _, action := range []string{ipc.ACTION_FOCUS, ipc.ACTION_CLOSE, ipc.ACTION_MINIMIZE, ipc.ACTION_RESTORE} {
		action := action
		d.Register(action, "<window id>", func(args []string, _ *repl.Repl) (string, error) {
			if len(args) != 1 {
				return "Usage: " + action + " <window id>", nil
			}
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return "Bad window id " + args[0], nil
			}
			return onLoop(l, func() (string, error) {
				return "Done", core.WindowAction(id, action)
			})
		})
	}

	d.Register("inspect", "<cursor|keyboards|tiling>", func(args []string, _ *repl.Repl) (string, error) {
		var target string
		if len(args) > 0 {
			target = args[0]
		}
		return onLoop(l, func() (string, error) {
			switch target {
			case "cursor":
				grabbed := "none"
				if v := core.Input.Grabbed(); v != nil {
					grabbed = strconv.FormatUint(uint64(v.ID), 10)
				}
				return fmt.Sprintf("Cursor mode: %s, grabbed view: %s", core.Input.Mode(), grabbed), nil
			case "keyboards":
				var names []string
				for _, kb := range core.Input.Keyboards() {
					names = append(names, kb.Name)
				}
				return "Keyboards: " + strings.Join(names, ", "), nil
			case "tiling":
				return fmt.Sprintf("Tiling enabled: %v, tiled views: %d", core.Tiler.Enabled(), len(core.Tiler.Tiled())), nil
			default:
				return "Usage: inspect <cursor|keyboards|tiling>", nil
			}
		})
	})
	return d
}

func replRunner(l *loop.Loop, core *compositor.Server) {
	// Give repl some wrappers around stdin and stdout so that it closes those instead of stdin & stdout themselves
	commandRepl := repl.NewRepl(wrappers.NewReaderWrapper(os.Stdin), wrappers.NewWriterWrapper(os.Stdout))
	logrus.Debugln("Starting repl")
	if err := commandRepl.Run(replCommands(l, core).Handle); err != nil {
		logrus.WithError(err).Warnln("repl stopped")
	}
}
