// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package emulate provides an in-memory PCI host bridge. It answers legacy
// configuration cycles on ports 0xCF8-0xCFF like a chipset does and exposes
// each segment's extended configuration space as an ECAM image, so both
// access mechanisms can run against the same topology.
package emulate

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ironcore-dev/pci-discovery/pciutils/access"
	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
)

var (
	ErrInjectedFault = errors.New("injected configuration fault")
	ErrUnhandledPort = errors.New("unhandled I/O port")
)

var _ access.Ports = (*Host)(nil)

type segment struct {
	domain pci.Domain
	ecam   []byte
}

type Host struct {
	mu       sync.Mutex
	address  uint32
	segments map[uint16]*segment
	probes   map[pci.Address]int
	faults   map[pci.Address]struct{}
}

func NewHost() *Host {
	return &Host{
		segments: map[uint16]*segment{},
		probes:   map[pci.Address]int{},
		faults:   map[pci.Address]struct{}{},
	}
}

// AddSegment registers a host bridge decoding domain. Every function of it
// starts out absent.
func (h *Host) AddSegment(number uint16, domain pci.Domain) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ecam := make([]byte, domain.WindowSize())
	for i := range ecam {
		ecam[i] = 0xff
	}
	h.segments[number] = &segment{domain: domain, ecam: ecam}
}

// Window returns the ECAM image of a segment, nil if there is none.
func (h *Host) Window(number uint16) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.segments[number]; ok {
		return s.ecam
	}
	return nil
}

func (h *Host) config(addr pci.Address) []byte {
	s, ok := h.segments[addr.Domain]
	if !ok || !s.domain.Contains(addr.Bus) || addr.Device >= pci.MaxDevices || addr.Function >= pci.MaxFunctions {
		return nil
	}
	at := uint64(addr.Bus-s.domain.StartBus)<<20 | uint64(addr.Device)<<15 | uint64(addr.Function)<<12
	return s.ecam[at : at+pci.ExtendedConfigSize]
}

// AddFunction makes addr present with an all-zero configuration space. It
// panics if no segment decodes addr.
func (h *Host) AddFunction(addr pci.Address) *Function {
	h.mu.Lock()
	defer h.mu.Unlock()

	cfg := h.config(addr)
	if cfg == nil {
		panic(fmt.Sprintf("emulate: no segment decodes %s", addr))
	}
	clear(cfg)
	return &Function{host: h, cfg: cfg}
}

// FailAt makes every legacy data cycle targeting addr fail.
func (h *Host) FailAt(addr pci.Address) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.faults[addr] = struct{}{}
}

// Probes returns how many legacy data cycles targeted addr.
func (h *Host) Probes(addr pci.Address) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.probes[addr]
}

// ResetProbes forgets all counted data cycles.
func (h *Host) ResetProbes() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.probes)
}

// selected decodes the latched address for a data cycle at port.
func (h *Host) selected(port uint16, width int) (pci.Address, int, error) {
	addr := pci.Address{
		Bus:      uint8(h.address >> 16),
		Device:   uint8(h.address>>11) & 0x1f,
		Function: uint8(h.address>>8) & 0x07,
	}
	offset := int(h.address&0xfc) + int(port-pci.LegacyDataPort)
	if offset+width > pci.LegacyConfigSize {
		return addr, 0, fmt.Errorf("%w: %#x width %d", ErrUnhandledPort, port, width)
	}

	h.probes[addr]++
	if _, ok := h.faults[addr]; ok {
		return addr, 0, fmt.Errorf("%w at %s", ErrInjectedFault, addr)
	}
	return addr, offset, nil
}

func (h *Host) readData(port uint16, width int) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf := []byte{0xff, 0xff, 0xff, 0xff}
	if h.address&0x80000000 == 0 {
		return buf, nil
	}

	addr, offset, err := h.selected(port, width)
	if err != nil {
		return nil, err
	}
	if cfg := h.config(addr); cfg != nil {
		copy(buf, cfg[offset:offset+width])
	}
	return buf, nil
}

func (h *Host) writeData(port uint16, value []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.address&0x80000000 == 0 {
		return nil
	}

	addr, offset, err := h.selected(port, len(value))
	if err != nil {
		return err
	}
	if cfg := h.config(addr); cfg != nil {
		copy(cfg[offset:], value)
	}
	return nil
}

func isData(port uint16, width int) bool {
	return port >= pci.LegacyDataPort && int(port)+width <= pci.LegacyDataPort+4
}

func (h *Host) In8(port uint16) (uint8, error) {
	if !isData(port, 1) {
		return 0, fmt.Errorf("%w: %#x", ErrUnhandledPort, port)
	}
	b, err := h.readData(port, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (h *Host) In16(port uint16) (uint16, error) {
	if !isData(port, 2) {
		return 0, fmt.Errorf("%w: %#x", ErrUnhandledPort, port)
	}
	b, err := h.readData(port, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (h *Host) In32(port uint16) (uint32, error) {
	if port == pci.LegacyAddressPort {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.address, nil
	}
	if !isData(port, 4) {
		return 0, fmt.Errorf("%w: %#x", ErrUnhandledPort, port)
	}
	b, err := h.readData(port, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (h *Host) Out8(port uint16, value uint8) error {
	if !isData(port, 1) {
		return fmt.Errorf("%w: %#x", ErrUnhandledPort, port)
	}
	return h.writeData(port, []byte{value})
}

func (h *Host) Out16(port uint16, value uint16) error {
	if !isData(port, 2) {
		return fmt.Errorf("%w: %#x", ErrUnhandledPort, port)
	}
	return h.writeData(port, binary.LittleEndian.AppendUint16(nil, value))
}

func (h *Host) Out32(port uint16, value uint32) error {
	if port == pci.LegacyAddressPort {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.address = value
		return nil
	}
	if !isData(port, 4) {
		return fmt.Errorf("%w: %#x", ErrUnhandledPort, port)
	}
	return h.writeData(port, binary.LittleEndian.AppendUint32(nil, value))
}
