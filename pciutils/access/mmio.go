// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package access

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"sync/atomic"
	"unsafe"

	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
)

// Configuration space is little-endian; loads below are in host order.
var bigEndian = binary.NativeEndian.Uint16([]byte{0x12, 0x34}) == 0x1234

// MemoryMapped reaches the 4096 byte extended configuration space of every
// function on one domain through its mapped window. The window must stay
// mapped for as long as the mechanism is in use.
type MemoryMapped struct {
	number uint16
	domain pci.Domain
	window []byte
}

func NewMemoryMapped(number uint16, domain pci.Domain, window []byte) (*MemoryMapped, error) {
	if uint64(len(window)) < domain.WindowSize() {
		return nil, fmt.Errorf("%w: %d bytes for %s", ErrShortWindow, len(window), domain)
	}

	return &MemoryMapped{
		number: number,
		domain: domain,
		window: window,
	}, nil
}

func (m *MemoryMapped) Kind() Kind {
	return KindMemoryMapped
}

func (m *MemoryMapped) sealed() {}

func (m *MemoryMapped) Domain() pci.Domain {
	return m.domain
}

func (m *MemoryMapped) Number() uint16 {
	return m.number
}

func (m *MemoryMapped) locate(addr pci.Address, offset, width uint16) (unsafe.Pointer, error) {
	if addr.Domain != m.number {
		return nil, fmt.Errorf("%w: %s: window serves domain %04x", ErrUnreachable, addr, m.number)
	}
	if !m.domain.Contains(addr.Bus) {
		return nil, fmt.Errorf("%w: %s: bus outside %s", ErrUnreachable, addr, m.domain)
	}
	if err := checkAccess(addr, offset, width, pci.ExtendedConfigSize); err != nil {
		return nil, err
	}

	at := uint64(addr.Bus-m.domain.StartBus)<<20 |
		uint64(addr.Device)<<15 |
		uint64(addr.Function)<<12 |
		uint64(offset)

	return unsafe.Pointer(&m.window[at]), nil
}

func (m *MemoryMapped) Read8(addr pci.Address, offset uint16) (uint8, error) {
	p, err := m.locate(addr, offset, 1)
	if err != nil {
		return 0, err
	}
	return *(*uint8)(p), nil
}

func (m *MemoryMapped) Read16(addr pci.Address, offset uint16) (uint16, error) {
	p, err := m.locate(addr, offset, 2)
	if err != nil {
		return 0, err
	}
	v := *(*uint16)(p)
	if bigEndian {
		v = bits.ReverseBytes16(v)
	}
	return v, nil
}

func (m *MemoryMapped) Read32(addr pci.Address, offset uint16) (uint32, error) {
	p, err := m.locate(addr, offset, 4)
	if err != nil {
		return 0, err
	}
	v := atomic.LoadUint32((*uint32)(p))
	if bigEndian {
		v = bits.ReverseBytes32(v)
	}
	return v, nil
}

func (m *MemoryMapped) Write8(addr pci.Address, offset uint16, value uint8) error {
	p, err := m.locate(addr, offset, 1)
	if err != nil {
		return err
	}
	*(*uint8)(p) = value
	return nil
}

func (m *MemoryMapped) Write16(addr pci.Address, offset uint16, value uint16) error {
	p, err := m.locate(addr, offset, 2)
	if err != nil {
		return err
	}
	if bigEndian {
		value = bits.ReverseBytes16(value)
	}
	*(*uint16)(p) = value
	return nil
}

func (m *MemoryMapped) Write32(addr pci.Address, offset uint16, value uint32) error {
	p, err := m.locate(addr, offset, 4)
	if err != nil {
		return err
	}
	if bigEndian {
		value = bits.ReverseBytes32(value)
	}
	atomic.StoreUint32((*uint32)(p), value)
	return nil
}
