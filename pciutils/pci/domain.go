// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package pci

import (
	"errors"
	"fmt"
)

var ErrInvalidBusRange = errors.New("invalid bus range")

// Domain is one host bridge's configuration space window: the physical base
// of its memory-mapped extended configuration region and the inclusive range
// of buses decoded through it.
//
// Build domains with NewDomain. A Domain is a value and is not modified after
// construction, so StartBus <= EndBus holds for every domain the packages of
// this module hand out.
type Domain struct {
	BaseAddress uint64
	StartBus    uint8
	EndBus      uint8
}

func NewDomain(base uint64, startBus, endBus uint8) (Domain, error) {
	if startBus > endBus {
		return Domain{}, fmt.Errorf("%w: start bus %#02x after end bus %#02x", ErrInvalidBusRange, startBus, endBus)
	}

	return Domain{
		BaseAddress: base,
		StartBus:    startBus,
		EndBus:      endBus,
	}, nil
}

func (d Domain) Contains(bus uint8) bool {
	return d.StartBus <= bus && bus <= d.EndBus
}

func (d Domain) Buses() int {
	return int(d.EndBus) - int(d.StartBus) + 1
}

// WindowSize is the number of bytes of extended configuration space the
// domain decodes, 1 MiB per bus.
func (d Domain) WindowSize() uint64 {
	return uint64(d.Buses()) << 20
}

func (d Domain) String() string {
	return fmt.Sprintf("%#x [bus %02x-%02x]", d.BaseAddress, d.StartBus, d.EndBus)
}
