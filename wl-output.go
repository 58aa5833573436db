// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/mstarongithub/strata/output"
	"github.com/sirupsen/logrus"
	"github.com/swaywm/go-wlroots/wlroots"
)

// Name prefixes wlroots gives outputs of the nested backends
var nestedPrefixes = []string{"WL-", "X11-"}

// wlOutput is an output.Device backed by a wlroots output
type wlOutput struct {
	b      *Backend
	output wlroots.Output
	nested bool
}

var _ output.Device = (*wlOutput)(nil)

func newWlOutput(b *Backend, o wlroots.Output) *wlOutput {
	dev := &wlOutput{b: b, output: o}
	for _, prefix := range nestedPrefixes {
		if strings.HasPrefix(o.Name(), prefix) {
			dev.nested = true
		}
	}
	return dev
}

func (d *wlOutput) Name() string {
	return d.output.Name()
}

func (d *wlOutput) PreferredMode() (output.Mode, bool) {
	mode, err := d.output.PrefferedMode()
	if err != nil {
		return output.Mode{}, false
	}
	return output.Mode{
		Width:     int(mode.Width()),
		Height:    int(mode.Height()),
		Refresh:   int(mode.Refresh()),
		Preferred: true,
	}, true
}

func (d *wlOutput) Modes() []output.Mode {
	var modes []output.Mode
	for _, mode := range d.output.Modes() {
		modes = append(modes, output.Mode{
			Width:     int(mode.Width()),
			Height:    int(mode.Height()),
			Refresh:   int(mode.Refresh()),
			Preferred: mode.Preferred(),
		})
	}
	return modes
}

// Commit enables the output. Hardware modes can only be the preferred one, custom
// modes leave the size to the backend, so the applied mode is read back from the
// output. An output that is still 0x0 afterwards did not take the state
func (d *wlOutput) Commit(mode output.Mode, custom bool) (output.Mode, bool) {
	oState := wlroots.NewOutputState()
	oState.StateInit()
	defer oState.Finish()
	oState.StateSetEnabled(true)

	if !custom {
		preferred, err := d.output.PrefferedMode()
		if err != nil || int(preferred.Width()) != mode.Width || int(preferred.Height()) != mode.Height {
			return output.Mode{}, false
		}
		oState.SetMode(preferred)
	}
	d.output.CommitState(oState)

	width, height := d.output.EffectiveResolution()
	if width <= 0 || height <= 0 {
		return output.Mode{}, false
	}
	applied := mode
	applied.Width, applied.Height = int(width), int(height)
	if custom && (applied.Width != mode.Width || applied.Height != mode.Height) {
		// the backend chose the size, so the requested refresh says nothing about it
		applied.Refresh = 0
	}
	return applied, true
}

func (d *wlOutput) Nested() bool {
	return d.nested
}

// DisableHardwareCursors is left to wlroots, which falls back to software cursors
// on nested outputs by itself
func (d *wlOutput) DisableHardwareCursors() {
	logrus.WithField("output", d.Name()).Debugln("Using software cursors")
}

func (d *wlOutput) Attach() {
	/* add_auto arranges outputs left to right, the same way the output manager does,
	 * and announces a wl_output global for the output */
	lOutput := d.b.outputLayout.AddOutputAuto(d.output)
	sceneOutput := d.b.scene.NewOutput(d.output)
	d.b.sceneLayout.AddOutput(lOutput, sceneOutput)

	if err := d.output.SetTitle(fmt.Sprintf("strata - %s", d.Name())); err != nil {
		logrus.WithError(err).WithField("output", d.Name()).Debugln("Output has no title to set")
	}
}

// Detach is a no-op, wlroots drops the layout and scene output of a destroyed output itself
func (d *wlOutput) Detach() {}

func (d *wlOutput) Render(now time.Time) {
	sOut, err := d.b.scene.SceneOutput(d.output)
	if err != nil {
		return
	}
	/* Render the scene if needed and commit the output */
	sOut.Commit()
	sOut.SendFrameDone(now)
}
