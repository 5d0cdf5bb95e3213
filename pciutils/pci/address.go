// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package pci

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidAddress = errors.New("invalid pci address")

// Address identifies one PCI function system-wide.
//
// Addresses compare with == over all four fields. There is intentionally no
// ordering: callers needing a canonical order must define one explicitly.
type Address struct {
	Domain   uint16
	Bus      uint8
	Device   uint8
	Function uint8
}

func NewAddress(domain uint16, bus, device, function uint8) (Address, error) {
	if device >= MaxDevices {
		return Address{}, fmt.Errorf("%w: device %d out of range", ErrInvalidAddress, device)
	}
	if function >= MaxFunctions {
		return Address{}, fmt.Errorf("%w: function %d out of range", ErrInvalidAddress, function)
	}

	return Address{
		Domain:   domain,
		Bus:      bus,
		Device:   device,
		Function: function,
	}, nil
}

// IsNull reports whether a is the "no address" sentinel: bus, device and
// function all zero. The domain is not inspected, so 0001:00:00.0 is null as
// well as 0000:00:00.0.
func (a Address) IsNull() bool {
	return a.Bus == 0 && a.Device == 0 && a.Function == 0
}

func (a Address) IsValid() bool {
	return !a.IsNull()
}

// IOAddressForField returns the value written to the legacy address port to
// select register field of this function. The register offset is truncated to
// its dword.
func (a Address) IOAddressForField(field uint8) uint32 {
	return 0x80000000 |
		uint32(a.Bus)<<16 |
		uint32(a.Device&0x1f)<<11 |
		uint32(a.Function&0x07)<<8 |
		uint32(field&0xfc)
}

func (a Address) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%1x", a.Domain, a.Bus, a.Device, a.Function)
}

// ParseAddress parses "dddd:bb:dd.f" or "bb:dd.f" (domain 0), all in hex.
func ParseAddress(s string) (Address, error) {
	parts := strings.Split(s, ":")

	var domain uint64
	switch len(parts) {
	case 2:
	case 3:
		var err error
		if domain, err = strconv.ParseUint(parts[0], 16, 16); err != nil {
			return Address{}, fmt.Errorf("%w: %q: domain: %w", ErrInvalidAddress, s, err)
		}
		parts = parts[1:]
	default:
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	bus, err := strconv.ParseUint(parts[0], 16, 8)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: bus: %w", ErrInvalidAddress, s, err)
	}

	slot, fn, ok := strings.Cut(parts[1], ".")
	if !ok {
		return Address{}, fmt.Errorf("%w: %q: missing function", ErrInvalidAddress, s)
	}

	device, err := strconv.ParseUint(slot, 16, 8)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: device: %w", ErrInvalidAddress, s, err)
	}

	function, err := strconv.ParseUint(fn, 16, 8)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: function: %w", ErrInvalidAddress, s, err)
	}

	return NewAddress(uint16(domain), uint8(bus), uint8(device), uint8(function))
}
