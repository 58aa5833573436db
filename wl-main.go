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
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/mstarongithub/strata/compositor"
	"github.com/mstarongithub/strata/config"
	"github.com/mstarongithub/strata/ipc"
	"github.com/mstarongithub/strata/loop"
	"github.com/sirupsen/logrus"
	"github.com/swaywm/go-wlroots/wlroots"
	"github.com/urfave/cli/v2"
)

func fatal(msg string, err error) cli.ExitCoder {
	logrus.WithError(err).Errorln(msg)
	return cli.Exit(fmt.Sprintf("error %s: %s", msg, err), 1)
}

func bridgeWlrootsLog(debug bool) {
	level := wlroots.LogImportanceError
	if debug {
		level = wlroots.LogImportanceDebug
	}
	wlroots.OnLog(level, func(importance wlroots.LogImportance, msg string) {
		switch importance {
		case wlroots.LogImportanceDebug:
			logrus.WithField("source", "wlroots").Debugln(msg)
		case wlroots.LogImportanceInfo:
			logrus.WithField("source", "wlroots").Infoln(msg)
		case wlroots.LogImportanceError:
			logrus.WithField("source", "wlroots").Errorln(msg)
		case wlroots.LogImportanceSilent:
			return
		}
	})
}

// loopExecutor runs ipc work on the event loop
func loopExecutor(l *loop.Loop) ipc.Executor {
	return func(ctx context.Context, fn func() error) error {
		_, err := loop.Call(ctx, l, func() (struct{}, error) {
			return struct{}{}, fn()
		})
		return err
	}
}

func wlMain(c *cli.Context) error {
	conf, err := loadConfig(c)
	if err != nil {
		return fatal("loading config", err)
	}
	bridgeWlrootsLog(conf.Debug)

	// The renderer binds its context to the creating thread, the loop has to run on it too
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l, err := loop.New()
	if err != nil {
		return fatal("creating event loop", err)
	}
	defer l.Close()

	backend, err := NewBackend(l)
	if err != nil {
		return fatal("initializing server", err)
	}
	core, err := compositor.New(conf, backend.Options())
	if err != nil {
		return fatal("initializing compositor", err)
	}
	defer core.Close()
	backend.Attach(core)

	if err = backend.Start(conf.Socket); err != nil {
		return fatal("starting server", err)
	}
	go core.Bus.ServeRequests(l.Post)

	if conf.Ipc.Enabled {
		ipcServer, err := startIpc(conf, core, l)
		if err != nil {
			return fatal("starting ipc", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := ipcServer.Close(ctx); err != nil {
				logrus.WithError(err).Warnln("ipc server did not shut down cleanly")
			}
		}()
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		sig, ok := <-signals
		if !ok {
			return
		}
		logrus.WithField("signal", sig).Infoln("Shutting down")
		l.Stop()
	}()

	switch conf.StartType {
	case config.START_SINGLE_COMMAND:
		runStartCommand(*conf.StartCommand)
	case config.START_REPL:
		go replRunner(l, core)
	}

	// start the wayland event loop
	runErr := l.Run()
	backend.Destroy()
	if runErr != nil {
		return fatal("running server", runErr)
	}
	logrus.Infoln("Compositor stopped")
	return nil
}

func startIpc(conf config.Config, core *compositor.Server, l *loop.Loop) (*ipc.Server, error) {
	path, err := ipcSocketPath(conf)
	if err != nil {
		return nil, err
	}
	server := ipc.NewServer(core, core.Bus, loopExecutor(l))
	if err = server.Listen(path); err != nil {
		return nil, err
	}
	go func() {
		if err := server.Serve(); err != nil {
			logrus.WithError(err).Errorln("ipc server failed")
		}
	}()
	return server, nil
}

// runStartCommand starts the session command through the shell. It inherits WAYLAND_DISPLAY
func runStartCommand(command string) {
	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		logrus.WithError(err).WithField("command", command).Errorln("Command failed to start")
		return
	}
	logrus.WithFields(logrus.Fields{
		"command": command,
		"pid":     cmd.Process.Pid,
	}).Infoln("Started session command")
	go func() {
		err := cmd.Wait()
		if exiterr, ok := err.(*exec.ExitError); ok {
			logrus.WithError(err).WithFields(logrus.Fields{
				"exit-code": exiterr.ExitCode(),
				"command":   command,
			}).Warningln("Bad command completion")
		}
	}()
}
