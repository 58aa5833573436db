// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package scene

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is straight RGBA in the 0..1 range, the format wlroots scene rects take
type Color [4]float32

// ParseColor reads "#rrggbb" or "#rrggbbaa"
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("invalid colour %q: expected #rrggbb or #rrggbbaa", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return Color{
		float32((v>>24)&0xff) / 255,
		float32((v>>16)&0xff) / 255,
		float32((v>>8)&0xff) / 255,
		float32(v&0xff) / 255,
	}, nil
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x",
		uint8(c[0]*255+0.5), uint8(c[1]*255+0.5), uint8(c[2]*255+0.5), uint8(c[3]*255+0.5))
}
