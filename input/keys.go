// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package input

import (
	"fmt"
	"strings"
)

// Keysym is an xkb keysym value
type Keysym uint32

// Only the keysyms used by compositor bindings
const (
	KeyTab    Keysym = 0xff09
	KeyEscape Keysym = 0xff1b
	KeyUp     Keysym = 0xff52
	KeyDown   Keysym = 0xff54
	KeyF1     Keysym = 0xffbe
	KeyF11    Keysym = 0xffc8
	KeyF      Keysym = 0x0066
	KeyQ      Keysym = 0x0071
	KeyT      Keysym = 0x0074
	KeyW      Keysym = 0x0077
)

// Modifier is a keyboard modifier mask, bit compatible with wlroots
type Modifier uint32

const (
	ModShift Modifier = 1 << iota
	ModCaps
	ModCtrl
	ModAlt
	ModMod2
	ModMod3
	ModLogo
	ModMod5
)

// lock modifiers never take part in binding matches
const lockMods = ModCaps | ModMod2

var modifierNames = map[string]Modifier{
	"shift": ModShift,
	"ctrl":  ModCtrl,
	"alt":   ModAlt,
	"logo":  ModLogo,
	"super": ModLogo,
	"mod4":  ModLogo,
	"mod1":  ModAlt,
}

// ParseModifier reads a modifier combination like "logo" or "ctrl+alt"
func ParseModifier(s string) (Modifier, error) {
	var mods Modifier
	for _, part := range strings.Split(s, "+") {
		m, ok := modifierNames[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return 0, fmt.Errorf("unknown modifier %q in %q", part, s)
		}
		mods |= m
	}
	return mods, nil
}

func (m Modifier) String() string {
	var parts []string
	for _, named := range []struct {
		mod  Modifier
		name string
	}{
		{ModCtrl, "ctrl"},
		{ModAlt, "alt"},
		{ModShift, "shift"},
		{ModLogo, "logo"},
	} {
		if m&named.mod != 0 {
			parts = append(parts, named.name)
		}
	}
	return strings.Join(parts, "+")
}
