// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package input

// Action is something a key binding asks the compositor to do
type Action int

const (
	ActionNone Action = iota
	ActionToggleOverview
	ActionToggleTiling
	ActionCycleFocus
	ActionQuit
	ActionMaximize
	ActionFullscreen
	ActionMinimize
	ActionRestoreAll
	ActionClose
)

var actionNames = map[Action]string{
	ActionNone:           "none",
	ActionToggleOverview: "toggle-overview",
	ActionToggleTiling:   "toggle-tiling",
	ActionCycleFocus:     "cycle-focus",
	ActionQuit:           "quit",
	ActionMaximize:       "maximize",
	ActionFullscreen:     "fullscreen",
	ActionMinimize:       "minimize",
	ActionRestoreAll:     "restore-all",
	ActionClose:          "close",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAction maps a shortcut name, as sent over the bus, to its action
func ParseAction(name string) (Action, bool) {
	for a, n := range actionNames {
		if n == name && a != ActionNone {
			return a, true
		}
	}
	return ActionNone, false
}

type Binding struct {
	Sym       Keysym
	Modifiers Modifier
	Action    Action
}

// DefaultBindings returns the compositor shortcuts with mod as the main modifier
func DefaultBindings(mod Modifier) []Binding {
	return []Binding{
		{Sym: KeyEscape, Modifiers: mod, Action: ActionQuit},
		{Sym: KeyF1, Modifiers: mod, Action: ActionCycleFocus},
		{Sym: KeyTab, Modifiers: mod, Action: ActionCycleFocus},
		{Sym: KeyW, Modifiers: mod, Action: ActionToggleOverview},
		{Sym: KeyT, Modifiers: mod, Action: ActionToggleTiling},
		{Sym: KeyUp, Modifiers: mod, Action: ActionMaximize},
		{Sym: KeyF11, Modifiers: mod, Action: ActionFullscreen},
		{Sym: KeyF, Modifiers: mod, Action: ActionFullscreen},
		{Sym: KeyDown, Modifiers: mod, Action: ActionMinimize},
		{Sym: KeyUp, Modifiers: mod | ModShift, Action: ActionRestoreAll},
		{Sym: KeyQ, Modifiers: mod, Action: ActionClose},
	}
}

// Lookup finds the binding for sym under mods, ignoring lock modifiers
func Lookup(bindings []Binding, mods Modifier, sym Keysym) (Binding, bool) {
	mods &^= lockMods
	for _, b := range bindings {
		if b.Sym == sym && b.Modifiers == mods {
			return b, true
		}
	}
	return Binding{}, false
}
