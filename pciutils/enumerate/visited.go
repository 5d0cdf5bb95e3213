// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package enumerate

import "math/bits"

// visitedBuses is a set of bus numbers, one bit per bus.
type visitedBuses [4]uint64

func (v *visitedBuses) add(bus uint8) {
	v[bus>>6] |= 1 << (bus & 63)
}

func (v *visitedBuses) has(bus uint8) bool {
	return v[bus>>6]&(1<<(bus&63)) != 0
}

func (v *visitedBuses) len() int {
	n := 0
	for _, word := range v {
		n += bits.OnesCount64(word)
	}
	return n
}
