// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package output tracks the displays attached to the compositor, negotiates their modes
// and lays them out left to right in one global coordinate space.
package output

import (
	"errors"
	"fmt"
	"time"

	"github.com/mstarongithub/strata/geom"
	"github.com/sirupsen/logrus"
	"gitlab.com/mstarongitlab/goutils/sliceutils"
)

// Roughly 60Hz. Some nested hosts never signal frame completion on their own
const DefaultPumpInterval = 16 * time.Millisecond

var ErrNoMode = errors.New("no mode could be committed")

// Mode is a display mode. Refresh is in millihertz, 0 means unknown
type Mode struct {
	Width     int
	Height    int
	Refresh   int
	Preferred bool
}

func (m Mode) String() string {
	return fmt.Sprintf("%dx%d@%.3fHz", m.Width, m.Height, float64(m.Refresh)/1000)
}

// Synthetic modes tried in order when the preferred mode is rejected.
// The 0Hz variant is for hosts that don't report a refresh rate
var fallbackModes = []Mode{
	{Width: 1280, Height: 720, Refresh: 60000},
	{Width: 1280, Height: 720, Refresh: 0},
	{Width: 800, Height: 600, Refresh: 60000},
}

// Device is the backend side of an output
type Device interface {
	Name() string
	// PreferredMode returns the native mode of the device, if it has one
	PreferredMode() (Mode, bool)
	Modes() []Mode
	// Commit tries to enable the device with mode. custom is set for synthetic modes.
	// Returns the mode the device ended up in, which for custom modes may differ
	// from the requested size, and whether the backend accepted the state
	Commit(mode Mode, custom bool) (Mode, bool)
	// Nested reports whether the device is a window on another display server
	Nested() bool
	DisableHardwareCursors()
	// Attach binds the device to the global layout and creates its scene output
	Attach()
	// Detach undoes Attach
	Detach()
	// Render composes the scene for this device and commits it
	Render(now time.Time)
}

// TimerFunc starts a periodic timer on the event loop and returns a func stopping it
type TimerFunc func(interval time.Duration, fn func()) (stop func() error, err error)

type Output struct {
	Name    string
	Box     geom.Box
	Mode    Mode
	Enabled bool
	Nested  bool

	dev      Device
	stopPump func() error
	frames   uint64
}

func (o *Output) Device() Device {
	return o.dev
}

// Frames returns how many frames have been rendered on this output
func (o *Output) Frames() uint64 {
	return o.frames
}

type Manager struct {
	outputs      []*Output
	startTimer   TimerFunc
	PumpInterval time.Duration

	// Called after an output was added, resized or removed
	OnChange func(o *Output, removed bool)
}

func NewManager(startTimer TimerFunc) *Manager {
	return &Manager{
		startTimer:   startTimer,
		PumpInterval: DefaultPumpInterval,
	}
}

// Discover creates an output for a newly found device and tries to enable it.
// The output is tracked even if no mode could be committed, it is just left disabled
func (m *Manager) Discover(dev Device) *Output {
	log := logrus.WithField("output", dev.Name())
	log.Debugln("New output discovered")

	o := &Output{
		Name:   dev.Name(),
		Nested: dev.Nested(),
		dev:    dev,
	}
	m.outputs = append(m.outputs, o)

	mode, err := negotiate(dev)
	if err != nil {
		log.WithError(err).Errorln("Leaving output disabled")
		return o
	}
	o.Mode = mode
	o.Enabled = true
	o.Box = geom.Box{Width: mode.Width, Height: mode.Height}

	if o.Nested {
		// Hardware cursor planes don't exist inside a host window
		dev.DisableHardwareCursors()
		m.startPump(o)
	}
	dev.Attach()
	m.relayout()

	log.WithFields(logrus.Fields{
		"mode":   mode,
		"box":    o.Box,
		"nested": o.Nested,
	}).Infoln("Output enabled")
	if m.OnChange != nil {
		m.OnChange(o, false)
	}
	return o
}

// negotiate walks the fallback chain and returns the first mode the device accepts
func negotiate(dev Device) (Mode, error) {
	log := logrus.WithField("output", dev.Name())
	if mode, ok := dev.PreferredMode(); ok {
		if applied, ok := dev.Commit(mode, false); ok {
			return applied, nil
		}
		log.WithField("mode", mode).Warnln("Preferred mode rejected, trying fallbacks")
	}
	for _, mode := range fallbackModes {
		if applied, ok := dev.Commit(mode, true); ok {
			if applied != mode {
				log.WithFields(logrus.Fields{
					"requested": mode,
					"applied":   applied,
				}).Debugln("Backend picked its own size")
			}
			return applied, nil
		}
		log.WithField("mode", mode).Debugln("Fallback mode rejected")
	}
	return Mode{}, ErrNoMode
}

func (m *Manager) startPump(o *Output) {
	if m.startTimer == nil {
		return
	}
	stop, err := m.startTimer(m.PumpInterval, func() {
		m.render(o, time.Now())
	})
	if err != nil {
		logrus.WithError(err).WithField("output", o.Name).Warnln("Failed to start frame pump")
		return
	}
	o.stopPump = stop
}

// Destroy forgets the output of a disconnected device
func (m *Manager) Destroy(dev Device) *Output {
	o := m.lookup(dev)
	if o == nil {
		return nil
	}
	logrus.WithField("output", o.Name).Debugln("Output getting destroyed")
	if o.stopPump != nil {
		if err := o.stopPump(); err != nil {
			logrus.WithError(err).WithField("output", o.Name).Warnln("Failed to stop frame pump")
		}
		o.stopPump = nil
	}
	if o.Enabled {
		dev.Detach()
	}
	o.Enabled = false
	for i, other := range m.outputs {
		if other == o {
			m.outputs = append(m.outputs[:i], m.outputs[i+1:]...)
			break
		}
	}
	m.relayout()
	if m.OnChange != nil {
		m.OnChange(o, true)
	}
	return o
}

// Resize applies a backend requested size change, like a nested window being resized
func (m *Manager) Resize(dev Device, width, height int) *Output {
	o := m.lookup(dev)
	if o == nil || !o.Enabled {
		return nil
	}
	if width <= 0 || height <= 0 || (o.Box.Width == width && o.Box.Height == height) {
		return o
	}
	logrus.WithFields(logrus.Fields{
		"output": o.Name,
		"width":  width,
		"height": height,
	}).Debugln("Output resized")
	o.Mode.Width = width
	o.Mode.Height = height
	o.Box.Width = width
	o.Box.Height = height
	m.relayout()
	if m.OnChange != nil {
		m.OnChange(o, false)
	}
	return o
}

// Frame handles a frame event from the backend
func (m *Manager) Frame(dev Device, now time.Time) {
	o := m.lookup(dev)
	if o == nil || !o.Enabled {
		return
	}
	m.render(o, now)
}

func (m *Manager) render(o *Output, now time.Time) {
	o.frames++
	o.dev.Render(now)
}

// relayout places enabled outputs left to right in discovery order
func (m *Manager) relayout() {
	x := 0
	for _, o := range m.Enabled() {
		o.Box.X = x
		o.Box.Y = 0
		x += o.Box.Width
	}
}

func (m *Manager) lookup(dev Device) *Output {
	for _, o := range m.outputs {
		if o.dev == dev {
			return o
		}
	}
	return nil
}

// Outputs returns every known output, enabled or not
func (m *Manager) Outputs() []*Output {
	return append([]*Output(nil), m.outputs...)
}

func (m *Manager) Enabled() []*Output {
	return sliceutils.Filter(m.outputs, func(o *Output) bool {
		return o.Enabled
	})
}

func (m *Manager) Find(name string) *Output {
	for _, o := range m.outputs {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// At returns the enabled output containing the layout point, or nil
func (m *Manager) At(x, y float64) *Output {
	for _, o := range m.Enabled() {
		if o.Box.Contains(x, y) {
			return o
		}
	}
	return nil
}

// Primary is the first enabled output, nil if there is none
func (m *Manager) Primary() *Output {
	enabled := m.Enabled()
	if len(enabled) == 0 {
		return nil
	}
	return enabled[0]
}

// Layout is the bounding box of all enabled outputs
func (m *Manager) Layout() geom.Box {
	var box geom.Box
	for _, o := range m.Enabled() {
		box = box.Union(o.Box)
	}
	return box
}
