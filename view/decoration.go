// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package view

import "github.com/sirupsen/logrus"

type DecorationMode int

const (
	DecorationNone DecorationMode = iota
	DecorationClientSide
	DecorationServerSide
)

func (d DecorationMode) String() string {
	switch d {
	case DecorationClientSide:
		return "client-side"
	case DecorationServerSide:
		return "server-side"
	default:
		return "none"
	}
}

// NegotiateDecoration answers a client's decoration request. Borders are drawn by
// the compositor, so the answer is always server side
func NegotiateDecoration(requested DecorationMode) DecorationMode {
	logrus.WithField("requested", requested).Debugln("Decoration mode requested")
	return DecorationServerSide
}
