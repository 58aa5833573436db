// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mstarongithub/strata/compositor"
	"github.com/mstarongithub/strata/geom"
	"github.com/mstarongithub/strata/input"
	"github.com/mstarongithub/strata/loop"
	"github.com/mstarongithub/strata/view"
	"github.com/sirupsen/logrus"
	"github.com/swaywm/go-wlroots/wlroots"
	"github.com/swaywm/go-wlroots/xkb"
)

// Backend owns every wlroots object and translates wlroots events into calls on the core.
// All of it runs on the event loop thread
type Backend struct {
	display      wlroots.Display
	backend      wlroots.Backend
	renderer     wlroots.Renderer
	allocator    wlroots.Allocator
	scene        wlroots.Scene
	sceneLayout  wlroots.SceneOutputLayout
	outputLayout wlroots.OutputLayout
	xdgShell     wlroots.XDGShell

	cursor    wlroots.Cursor
	cursorMgr wlroots.XCursorManager
	seat      wlroots.Seat

	loop *loop.Loop
	core *compositor.Server

	outputs   map[wlroots.Output]*wlOutput
	views     map[wlroots.XDGSurface]*view.View
	keyboards map[wlroots.InputDevice]*input.Keyboard
	socket    string
}

func NewBackend(l *loop.Loop) (b *Backend, err error) {
	b = &Backend{
		loop:      l,
		outputs:   make(map[wlroots.Output]*wlOutput),
		views:     make(map[wlroots.XDGSurface]*view.View),
		keyboards: make(map[wlroots.InputDevice]*input.Keyboard),
	}

	/* The display handles the client socket and the globals. The backend picks
	 * DRM, or a window on a running Wayland or X11 session. WLR_BACKENDS forces one */
	b.display = wlroots.NewDisplay()
	b.backend, err = b.display.BackendAutocreate()
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}

	b.renderer, err = b.backend.RendererAutoCreate()
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	b.renderer.InitDisplay(b.display)

	b.allocator, err = b.backend.AllocatorAutocreate(b.renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to create allocator: %w", err)
	}

	b.display.CompositorCreate(5, b.renderer)
	b.display.SubCompositorCreate()
	b.display.DataDeviceManagerCreate()

	b.outputLayout = wlroots.NewOutputLayout()
	b.backend.OnNewOutput(b.handleNewOutput)

	/* The wlroots scene does the rendering and damage tracking. Our own graph
	 * decides stacking and pushes it down through the node sinks */
	b.scene = wlroots.NewScene()
	b.sceneLayout = b.scene.AttachOutputLayout(b.outputLayout)

	b.xdgShell = b.display.XDGShellCreate(3)
	b.xdgShell.OnNewSurface(b.handleNewXDGSurface)

	b.cursor = wlroots.NewCursor()
	b.cursor.AttachOutputLayout(b.outputLayout)
	b.cursorMgr = wlroots.NewXCursorManager("", 24)
	b.cursorMgr.Load(1)
	b.cursor.OnMotion(b.handleCursorMotion)
	b.cursor.OnMotionAbsolute(b.handleCursorMotionAbsolute)
	b.cursor.OnButton(b.handleCursorButton)
	b.cursor.OnAxis(b.handleCursorAxis)
	b.cursor.OnFrame(b.handleCursorFrame)

	b.backend.OnNewInput(b.handleNewInput)
	b.seat = b.display.SeatCreate("seat0")
	b.seat.OnSetCursorRequest(b.handleSetCursorRequest)

	return b, nil
}

// Options returns the backend handles the core needs
func (b *Backend) Options() compositor.Options {
	return compositor.Options{
		Seat:   &wlSeat{b: b},
		Cursor: &wlCursor{b: b},
		Timer: func(interval time.Duration, fn func()) (func() error, error) {
			t, err := b.loop.AddTimer(interval, fn)
			if err != nil {
				return nil, err
			}
			return t.Stop, nil
		},
		Quit: b.loop.Stop,
	}
}

// Attach hands the core to the backend. Must happen before Start
func (b *Backend) Attach(core *compositor.Server) {
	b.core = core
}

// Start opens the client socket, starts the backend and hooks the display into the loop
func (b *Backend) Start(socketName string) error {
	var err error
	if socketName == "" {
		b.socket, err = b.display.AddSocketAuto()
	} else {
		b.socket = socketName
		err = b.display.AddSocket(socketName)
	}
	if err != nil {
		b.backend.Destroy()
		return fmt.Errorf("failed to open wayland socket: %w", err)
	}
	logrus.WithField("socket", b.socket).Debugln("got wl socket")

	/* Starting the backend enumerates outputs and inputs, which already calls
	 * into the core, so it has to be attached by now */
	if err = b.backend.Start(); err != nil {
		b.backend.Destroy()
		b.display.Destroy()
		return fmt.Errorf("failed to start backend: %w", err)
	}

	if res := os.Getenv("WAYLAND_DISPLAY"); res != "" {
		logrus.WithField("WAYLAND_DISPLAY", res).Debugln("Wayland display already set, overwriting")
	}
	if err = os.Setenv("WAYLAND_DISPLAY", b.socket); err != nil {
		return err
	}

	evl := b.display.EventLoop()
	b.loop.AddFd(int(evl.Fd()), func() error {
		evl.Dispatch(0)
		return nil
	})
	b.loop.OnIdle(b.idle)

	logrus.WithField("WAYLAND_DISPLAY", b.socket).Infoln("Running Wayland compositor")
	return nil
}

func (b *Backend) Socket() string {
	return b.socket
}

// idle runs after every batch of events. Clients only tell us about new buffers
// through commits, so this is where their state is picked up before it gets flushed
func (b *Backend) idle() {
	for _, v := range b.views {
		b.core.CommitView(v)
	}
	b.display.FlushClients()
}

// Destroy tears down wlroots once the loop has stopped
func (b *Backend) Destroy() {
	b.display.DestroyClients()
	b.scene.Tree().Node().Destroy()
	b.cursorMgr.Destroy()
	b.outputLayout.Destroy()
	b.display.Destroy()
}

// Outputs

func (b *Backend) handleNewOutput(output wlroots.Output) {
	logrus.WithField("name", output.Name()).Debugln("New output added")

	/* Configures the output created by the backend to use our allocator
	 * and our renderer. Must be done once, before commiting the output */
	output.InitRender(b.allocator, b.renderer)

	dev := newWlOutput(b, output)
	b.outputs[output] = dev

	output.OnFrame(func(output wlroots.Output) {
		b.core.OutputFrame(dev, time.Now())
	})
	output.OnRequestState(func(output wlroots.Output, state wlroots.OutputState) {
		/* Nested backends ask for a new mode when their host window is resized */
		output.CommitState(state)
		width, height := output.EffectiveResolution()
		b.core.OutputResized(dev, int(width), int(height))
	})
	output.OnDestroy(func(output wlroots.Output) {
		logrus.WithField("name", output.Name()).Debugln("Output getting destroyed")
		b.core.OutputDestroyed(dev)
		delete(b.outputs, output)
	})

	b.core.NewOutput(dev)
}

// Inputs

func (b *Backend) handleNewInput(dev wlroots.InputDevice) {
	switch dev.Type() {
	case wlroots.InputDeviceTypePointer:
		/* Pointer handling is proxied through wlr_cursor */
		b.cursor.AttachInputDevice(dev)
	case wlroots.InputDeviceTypeKeyboard:
		b.handleNewKeyboard(dev)
	}

	/* There is always a cursor, even without pointer devices */
	caps := wlroots.SeatCapabilityPointer
	if len(b.keyboards) > 0 {
		caps |= wlroots.SeatCapabilityKeyboard
	}
	b.seat.SetCapabilities(caps)
}

func (b *Backend) handleNewKeyboard(dev wlroots.InputDevice) {
	keyboard := dev.Keyboard()
	kb := b.core.Input.AddKeyboard(fmt.Sprintf("keyboard-%d", len(b.keyboards)), dev)

	/* xkbcommon reads the layout from its environment when the keymap is
	 * created without explicit names */
	if kb.Layout != "" {
		os.Setenv("XKB_DEFAULT_LAYOUT", kb.Layout)
	}
	context := xkb.NewContext(xkb.KeySymFlagNoFlags)
	keymap := context.KeyMap()
	keyboard.SetKeymap(keymap)
	keymap.Destroy()
	context.Destroy()
	keyboard.SetRepeatInfo(int32(kb.RepeatRate), int32(kb.RepeatDelay))

	keyboard.OnModifiers(func(keyboard wlroots.Keyboard) {
		b.core.Input.HandleModifiers(kb)
	})
	keyboard.OnKey(func(keyboard wlroots.Keyboard, time uint32, keyCode uint32, updateState bool, state wlroots.KeyState) {
		// translate libinput keycode to xkbcommon and obtain keysyms
		raw := keyboard.XKBState().Syms(xkb.KeyCode(keyCode + 8))
		syms := make([]input.Keysym, 0, len(raw))
		for _, sym := range raw {
			syms = append(syms, input.Keysym(sym))
		}
		b.core.Input.HandleKey(kb, time, keyCode, syms, input.Modifier(keyboard.Modifiers()), state == wlroots.KeyStatePressed)
	})

	b.keyboards[dev] = kb
	b.seat.SetKeyboard(dev)
}

func (b *Backend) handleCursorMotion(dev wlroots.InputDevice, time uint32, dx float64, dy float64) {
	b.cursor.Move(dev, dx, dy)
	b.core.PointerMotion(time)
}

func (b *Backend) handleCursorMotionAbsolute(dev wlroots.InputDevice, time uint32, x float64, y float64) {
	/* Absolute motion, 0..1 on each axis, happens when running nested */
	b.cursor.WarpAbsolute(dev, x, y)
	b.core.PointerMotion(time)
}

func (b *Backend) handleCursorButton(_ wlroots.InputDevice, time uint32, button uint32, state wlroots.ButtonState) {
	b.core.PointerButton(time, button, state == wlroots.ButtonStatePressed)
}

func (b *Backend) handleCursorAxis(_ wlroots.InputDevice, time uint32, source wlroots.AxisSource, orientation wlroots.AxisOrientation, delta float64, deltaDiscrete int32) {
	// wl_pointer.axis, 0 is the vertical axis
	b.core.Input.HandleAxis(time, input.AxisEvent{
		Vertical: uint32(orientation) == 0,
		Delta:    delta,
		Discrete: deltaDiscrete,
		Source:   uint32(source),
	})
}

func (b *Backend) handleCursorFrame() {
	b.core.Input.HandleFrame()
}

func (b *Backend) handleSetCursorRequest(client wlroots.SeatClient, surface wlroots.Surface, _ uint32, hotspotX int32, hotspotY int32) {
	/* Any client can send this, only the one with pointer focus gets its way */
	if b.seat.PointerState().FocusedClient() == client {
		b.cursor.SetSurface(surface, hotspotX, hotspotY)
	}
}

// surfaceAt returns the client surface under the layout point. Subsurfaces and popups
// are only known to the wlroots scene, so the exact surface is looked up there
func (b *Backend) surfaceAt(lx, ly float64) (wlroots.Surface, float64, float64, bool) {
	node, sx, sy := b.scene.Tree().Node().At(lx, ly)
	if node.Nil() || node.Type() != wlroots.SceneNodeBuffer {
		return wlroots.Surface{}, 0, 0, false
	}
	sceneSurface := node.SceneBuffer().SceneSurface()
	if sceneSurface.Nil() {
		return wlroots.Surface{}, 0, 0, false
	}
	return sceneSurface.Surface(), sx, sy, true
}

// Windows

func (b *Backend) handleNewXDGSurface(xdgSurface wlroots.XDGSurface) {
	logrus.WithField("surface", xdgSurface).Debugln("New surface inbound")

	if xdgSurface.Role() == wlroots.XDGSurfaceRolePopup {
		/* Popups live in their parent's scene tree and never become views */
		parent := xdgSurface.Popup().Parent()
		if parent.Nil() {
			logrus.WithField("surface", xdgSurface).Warnln("Popup without parent, ignoring it")
			return
		}
		xdgSurface.SetData(parent.XDGSurface().SceneTree().NewXDGSurface(xdgSurface))
		return
	}
	if xdgSurface.Role() != wlroots.XDGSurfaceRoleTopLevel {
		logrus.WithFields(logrus.Fields{
			"surface": xdgSurface,
			"role":    xdgSurface.Role(),
		}).Warnln("Ignoring xdg surface without a known role")
		return
	}

	toplevel := xdgSurface.TopLevel()
	tree := b.scene.Tree().NewXDGSurface(toplevel.Base())
	xdgSurface.SetData(tree)

	v := b.core.NewToplevel(&wlToplevel{toplevel: toplevel}, &sceneSink{node: tree.Node(), owned: true})
	b.views[xdgSurface] = v
	logrus.WithFields(logrus.Fields{
		"view":       v.ID,
		"decoration": b.core.NegotiateDecoration(view.DecorationNone),
	}).Debugln("Toplevel registered")

	xdgSurface.OnMap(func(wlroots.XDGSurface) {
		b.core.MapView(v)
	})
	xdgSurface.OnUnmap(func(wlroots.XDGSurface) {
		b.core.UnmapView(v)
	})
	xdgSurface.OnDestroy(func(surface wlroots.XDGSurface) {
		b.core.DestroyView(v)
		delete(b.views, surface)
	})
	/* Only move and resize requests are bound. Maximize, fullscreen and minimize
	 * reach the core through key bindings and ipc */
	toplevel.OnRequestMove(func(client wlroots.SeatClient, serial uint32) {
		b.core.RequestMove(v)
	})
	toplevel.OnRequestResize(func(client wlroots.SeatClient, serial uint32, edges wlroots.Edges) {
		b.core.RequestResize(v, geom.Edges(edges))
	})
}
