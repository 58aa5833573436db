// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package util

// Unpacks a slice into arguments
// If the slice has less elements than variables passed in, the rest of the variables are not modified
// If the slice has more elements than the variables passed in, the additional elements are ignored
func Unpack[T any](toUnpack []T, unpackInto ...*T) {
	for i := range min(len(toUnpack), len(unpackInto)) {
		*unpackInto[i] = toUnpack[i]
	}
}
