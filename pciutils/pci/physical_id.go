// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package pci

import (
	"errors"
	"fmt"
	"slices"
)

var ErrNullID = errors.New("physical id for a null device id")

// PhysicalID is the discovery result for one present function.
type PhysicalID struct {
	address      Address
	id           ID
	class        ClassCode
	headerType   uint8
	capabilities []Capability
}

func NewPhysicalID(address Address, id ID, class ClassCode, headerType uint8, capabilities []Capability) (PhysicalID, error) {
	if id.IsNull() {
		return PhysicalID{}, fmt.Errorf("%w at %s", ErrNullID, address)
	}

	return PhysicalID{
		address:      address,
		id:           id,
		class:        class,
		headerType:   headerType,
		capabilities: slices.Clone(capabilities),
	}, nil
}

func (p PhysicalID) Address() Address {
	return p.address
}

func (p PhysicalID) ID() ID {
	return p.id
}

func (p PhysicalID) Class() ClassCode {
	return p.class
}

func (p PhysicalID) HeaderType() uint8 {
	return p.headerType
}

func (p PhysicalID) IsMultiFunction() bool {
	return p.headerType&HeaderTypeMultiFunction != 0
}

func (p PhysicalID) IsBridge() bool {
	return p.class.IsPCIToPCIBridge()
}

// Capabilities returns the capability list in chain order.
func (p PhysicalID) Capabilities() []Capability {
	return slices.Clone(p.capabilities)
}

// Capability returns the first capability with the given id.
func (p PhysicalID) Capability(id uint8) (Capability, bool) {
	for _, c := range p.capabilities {
		if c.id == id {
			return c, true
		}
	}
	return Capability{}, false
}

func (p PhysicalID) String() string {
	return fmt.Sprintf("%s %s class %s", p.address, p.id, p.class)
}
