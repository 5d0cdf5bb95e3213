// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package pci

import (
	"errors"
	"fmt"
)

var (
	ErrNoAccess   = errors.New("capability has no configuration access")
	ErrOutOfRange = errors.New("configuration offset out of range")
)

// ConfigAccessor performs raw configuration space transactions for a function.
type ConfigAccessor interface {
	Read8(addr Address, offset uint16) (uint8, error)
	Read16(addr Address, offset uint16) (uint16, error)
	Read32(addr Address, offset uint16) (uint32, error)
	Write8(addr Address, offset uint16, value uint8) error
	Write16(addr Address, offset uint16, value uint16) error
	Write32(addr Address, offset uint16, value uint32) error
}

// Capability is one entry of a function's capability list as seen at
// discovery time. Register reads and writes always go to the device; offsets
// passed to them are relative to the start of the capability structure.
type Capability struct {
	address Address
	id      uint8
	offset  uint8
	access  ConfigAccessor
}

func NewCapability(access ConfigAccessor, address Address, id, offset uint8) Capability {
	return Capability{
		address: address,
		id:      id,
		offset:  offset,
		access:  access,
	}
}

func (c Capability) Address() Address {
	return c.address
}

func (c Capability) ID() uint8 {
	return c.id
}

func (c Capability) Offset() uint8 {
	return c.offset
}

func (c Capability) Name() string {
	return CapabilityName(c.id)
}

func (c Capability) String() string {
	return fmt.Sprintf("%s@%#02x", c.Name(), c.offset)
}

// field translates a relative offset into the function's configuration
// space. Accesses ending past the extended space are rejected.
func (c Capability) field(offset uint16, width uint32) (uint16, error) {
	if c.access == nil {
		return 0, ErrNoAccess
	}
	field := uint32(c.offset) + uint32(offset)
	if field+width > ExtendedConfigSize {
		return 0, fmt.Errorf("%w: %s offset %#x from capability at %#02x", ErrOutOfRange, c.address, offset, c.offset)
	}
	return uint16(field), nil
}

func (c Capability) Read8(offset uint16) (uint8, error) {
	field, err := c.field(offset, 1)
	if err != nil {
		return 0, err
	}
	return c.access.Read8(c.address, field)
}

func (c Capability) Read16(offset uint16) (uint16, error) {
	field, err := c.field(offset, 2)
	if err != nil {
		return 0, err
	}
	return c.access.Read16(c.address, field)
}

func (c Capability) Read32(offset uint16) (uint32, error) {
	field, err := c.field(offset, 4)
	if err != nil {
		return 0, err
	}
	return c.access.Read32(c.address, field)
}

func (c Capability) Write8(offset uint16, value uint8) error {
	field, err := c.field(offset, 1)
	if err != nil {
		return err
	}
	return c.access.Write8(c.address, field, value)
}

func (c Capability) Write16(offset uint16, value uint16) error {
	field, err := c.field(offset, 2)
	if err != nil {
		return err
	}
	return c.access.Write16(c.address, field, value)
}

func (c Capability) Write32(offset uint16, value uint32) error {
	field, err := c.field(offset, 4)
	if err != nil {
		return err
	}
	return c.access.Write32(c.address, field, value)
}
