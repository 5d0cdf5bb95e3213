// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package access implements the two configuration space access mechanisms:
// legacy port I/O through the 0xCF8/0xCFC pair and memory-mapped extended
// configuration space (ECAM). A host bridge uses exactly one of them.
package access

import (
	"errors"
	"fmt"

	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
)

var (
	ErrOutOfRange  = pci.ErrOutOfRange
	ErrUnreachable = errors.New("address not reachable through this mechanism")
	ErrMisaligned  = errors.New("misaligned configuration access")
	ErrIOFault     = errors.New("configuration transaction failed")
	ErrUnsupported = errors.New("access mechanism not supported on this platform")
	ErrShortWindow = errors.New("configuration window smaller than the domain")
	ErrUnknownKind = errors.New("unknown access mechanism")
)

type Kind int

const (
	KindPortIO Kind = iota + 1
	KindMemoryMapped
)

func (k Kind) String() string {
	switch k {
	case KindPortIO:
		return "port"
	case KindMemoryMapped:
		return "mmio"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "port", "portio", "legacy":
		return KindPortIO, nil
	case "mmio", "ecam", "mmconfig":
		return KindMemoryMapped, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Mechanism is the closed set of configuration access implementations.
// Only *PortIO and *MemoryMapped satisfy it.
type Mechanism interface {
	pci.ConfigAccessor
	Kind() Kind

	sealed()
}

var (
	_ Mechanism = (*PortIO)(nil)
	_ Mechanism = (*MemoryMapped)(nil)
)

func checkAccess(addr pci.Address, offset, width, size uint16) error {
	if addr.Device >= pci.MaxDevices || addr.Function >= pci.MaxFunctions {
		return fmt.Errorf("%w: %s", ErrUnreachable, addr)
	}
	if offset >= size || size-offset < width {
		return fmt.Errorf("%w: %s offset %#x width %d (limit %#x)", ErrOutOfRange, addr, offset, width, size)
	}
	if offset%width != 0 {
		return fmt.Errorf("%w: %s offset %#x width %d", ErrMisaligned, addr, offset, width)
	}
	return nil
}
