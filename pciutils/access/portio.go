// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package access

import (
	"fmt"
	"sync"

	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
)

// Ports performs raw x86 I/O port transactions.
type Ports interface {
	In8(port uint16) (uint8, error)
	In16(port uint16) (uint16, error)
	In32(port uint16) (uint32, error)
	Out8(port uint16, value uint8) error
	Out16(port uint16, value uint16) error
	Out32(port uint16, value uint32) error
}

// LegacyPorts is the exclusive handle on the shared address/data port pair.
// Every configuration transaction, the address write followed by the data
// access, runs under its lock. Create one per machine and hand it to every
// component that needs legacy access.
type LegacyPorts struct {
	mu sync.Mutex
	io Ports
}

func NewLegacyPorts(io Ports) *LegacyPorts {
	return &LegacyPorts{io: io}
}

func (l *LegacyPorts) transaction(addr pci.Address, offset uint16, data func(io Ports, port uint16) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.io.Out32(pci.LegacyAddressPort, addr.IOAddressForField(uint8(offset))); err != nil {
		return fmt.Errorf("%w: %s: select %#x: %w", ErrIOFault, addr, offset, err)
	}
	if err := data(l.io, pci.LegacyDataPort+offset&0x3); err != nil {
		return fmt.Errorf("%w: %s: data %#x: %w", ErrIOFault, addr, offset, err)
	}
	return nil
}

// PortIO reaches the 256 byte legacy configuration space of domain 0.
type PortIO struct {
	ports *LegacyPorts
}

func NewPortIO(ports *LegacyPorts) *PortIO {
	return &PortIO{ports: ports}
}

func (p *PortIO) Kind() Kind {
	return KindPortIO
}

func (p *PortIO) sealed() {}

func (p *PortIO) check(addr pci.Address, offset, width uint16) error {
	if addr.Domain != 0 {
		return fmt.Errorf("%w: %s: legacy ports only reach domain 0", ErrUnreachable, addr)
	}
	return checkAccess(addr, offset, width, pci.LegacyConfigSize)
}

func (p *PortIO) Read8(addr pci.Address, offset uint16) (uint8, error) {
	if err := p.check(addr, offset, 1); err != nil {
		return 0, err
	}

	var v uint8
	err := p.ports.transaction(addr, offset, func(io Ports, port uint16) (err error) {
		v, err = io.In8(port)
		return err
	})
	return v, err
}

func (p *PortIO) Read16(addr pci.Address, offset uint16) (uint16, error) {
	if err := p.check(addr, offset, 2); err != nil {
		return 0, err
	}

	var v uint16
	err := p.ports.transaction(addr, offset, func(io Ports, port uint16) (err error) {
		v, err = io.In16(port)
		return err
	})
	return v, err
}

func (p *PortIO) Read32(addr pci.Address, offset uint16) (uint32, error) {
	if err := p.check(addr, offset, 4); err != nil {
		return 0, err
	}

	var v uint32
	err := p.ports.transaction(addr, offset, func(io Ports, port uint16) (err error) {
		v, err = io.In32(port)
		return err
	})
	return v, err
}

func (p *PortIO) Write8(addr pci.Address, offset uint16, value uint8) error {
	if err := p.check(addr, offset, 1); err != nil {
		return err
	}
	return p.ports.transaction(addr, offset, func(io Ports, port uint16) error {
		return io.Out8(port, value)
	})
}

func (p *PortIO) Write16(addr pci.Address, offset uint16, value uint16) error {
	if err := p.check(addr, offset, 2); err != nil {
		return err
	}
	return p.ports.transaction(addr, offset, func(io Ports, port uint16) error {
		return io.Out16(port, value)
	})
}

func (p *PortIO) Write32(addr pci.Address, offset uint16, value uint32) error {
	if err := p.check(addr, offset, 4); err != nil {
		return err
	}
	return p.ports.transaction(addr, offset, func(io Ports, port uint16) error {
		return io.Out32(port, value)
	})
}
