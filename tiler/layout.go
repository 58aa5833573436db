// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package tiler arranges windows in a master and stack layout:
// the most recently focused window takes the left column, the rest share the right one
package tiler

import (
	"math"

	"github.com/mstarongithub/strata/geom"
)

const (
	DEFAULT_MASTER_RATIO = 0.6
	DEFAULT_GAP          = 10
)

type Config struct {
	MasterRatio float64 // Share of the width the master column gets
	InnerGap    int     // Space between tiles
	OuterGap    int     // Space between tiles and the edge of the usable area
}

func DefaultConfig() Config {
	return Config{
		MasterRatio: DEFAULT_MASTER_RATIO,
		InnerGap:    DEFAULT_GAP,
		OuterGap:    DEFAULT_GAP,
	}
}

// Compute returns the tile for each of n windows inside usable, master first
func Compute(n int, usable geom.Box, cfg Config) []geom.Box {
	if n <= 0 {
		return nil
	}
	inner := usable.Inset(cfg.OuterGap)
	if n == 1 {
		return []geom.Box{inner}
	}

	gap := cfg.InnerGap
	masterW := int(math.Floor(float64(inner.Width-gap)*cfg.MasterRatio)) - gap/2
	tiles := make([]geom.Box, 0, n)
	tiles = append(tiles, geom.Box{X: inner.X, Y: inner.Y, Width: masterW, Height: inner.Height})

	stackX := inner.X + masterW + gap
	stackW := inner.Right() - stackX
	slots := n - 1
	slotH := (inner.Height - gap*(slots-1)) / slots
	for i := 0; i < slots; i++ {
		tiles = append(tiles, geom.Box{
			X:      stackX,
			Y:      inner.Y + i*(slotH+gap),
			Width:  stackW,
			Height: slotH,
		})
	}
	return tiles
}
