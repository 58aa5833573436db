// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mstarongithub/strata/util"
)

// ErrQuit ends Run cleanly after its reply has been written
var ErrQuit = errors.New("repl quit")

type MessageHandler func(string, *Repl) (string, error)

// ReadCloser combines the Reader and Closer interfaces
type ReadCloser interface {
	io.Reader
	io.Closer
}

type Repl struct {
	Input   ReadCloser
	Output  io.WriteCloser
	scanner *bufio.Scanner
	writer  *bufio.Writer
}

// Creates a new repl
// If no input is given, stdin will be used
// If no output is given, stdout will be used
// Note: The given reader and writer will be closed if the repl is started and then stops
func NewRepl(in ReadCloser, out io.WriteCloser) *Repl {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Repl{
		Input:   in,
		Output:  out,
		scanner: bufio.NewScanner(in),
		writer:  bufio.NewWriter(out),
	}
}

// Starts the repl
// Blocks execution until the repl closes
// All input will be passed to the handler func
// If it receives an error from the message handler or during writing, it calls Close.
// ErrQuit from the handler writes the reply first and makes Run return nil
func (r *Repl) Run(onMessage MessageHandler) error {
	for r.scanner.Scan() {
		newMessage := r.scanner.Text()
		res, err := onMessage(newMessage, r)
		quit := errors.Is(err, ErrQuit)
		if err != nil && !quit {
			r.Close()
			return fmt.Errorf("message handler errored out on message \"%s\": %w", newMessage, err)
		}
		if err = r.write(res); err != nil {
			r.Close()
			return err
		}
		if quit {
			r.Close()
			return nil
		}
	}
	return r.scanner.Err()
}

func (r *Repl) write(res string) error {
	if res == "" {
		return nil
	}
	if _, err := r.writer.WriteString(res + "\n"); err != nil {
		return fmt.Errorf("failed to write result \"%s\": %w", res, err)
	}
	if err := r.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	return nil
}

// Close stops the repl if it was still running
// This will also close the reader and writer
func (r *Repl) Close() {
	r.Input.Close()
	r.Output.Close()
}

// Command handles one repl command. args are the words following the command name
type Command func(args []string, r *Repl) (string, error)

type entry struct {
	usage string
	run   Command
}

// Dispatcher routes lines to commands by their first word
type Dispatcher struct {
	commands map[string]entry
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{commands: make(map[string]entry)}
}

// Register adds a command. Registering a name again replaces the earlier command
func (d *Dispatcher) Register(name, usage string, cmd Command) {
	d.commands[name] = entry{usage: usage, run: cmd}
}

// Handle is a MessageHandler running the command named by the first word of in
func (d *Dispatcher) Handle(in string, r *Repl) (string, error) {
	var name, rest string
	util.Unpack(strings.SplitN(strings.TrimSpace(in), " ", 2), &name, &rest)
	switch name {
	case "":
		return "", nil
	case "help":
		return d.help(), nil
	}
	e, ok := d.commands[name]
	if !ok {
		return fmt.Sprintf("Unknown command %q, try help", name), nil
	}
	return e.run(strings.Fields(rest), r)
}

func (d *Dispatcher) help() string {
	names := make([]string, 0, len(d.commands))
	for name := range d.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("Commands:")
	for _, name := range names {
		fmt.Fprintf(&b, "\n\t%s %s", name, d.commands[name].usage)
	}
	return b.String()
}
