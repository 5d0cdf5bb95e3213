// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package emulate

import (
	"encoding/binary"

	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
)

// Function edits the configuration space of one emulated function.
type Function struct {
	host *Host
	cfg  []byte
}

func (f *Function) Set8(offset uint16, v uint8) *Function {
	f.host.mu.Lock()
	defer f.host.mu.Unlock()
	f.cfg[offset] = v
	return f
}

func (f *Function) Set16(offset uint16, v uint16) *Function {
	f.host.mu.Lock()
	defer f.host.mu.Unlock()
	binary.LittleEndian.PutUint16(f.cfg[offset:], v)
	return f
}

func (f *Function) Set32(offset uint16, v uint32) *Function {
	f.host.mu.Lock()
	defer f.host.mu.Unlock()
	binary.LittleEndian.PutUint32(f.cfg[offset:], v)
	return f
}

func (f *Function) Get16(offset uint16) uint16 {
	f.host.mu.Lock()
	defer f.host.mu.Unlock()
	return binary.LittleEndian.Uint16(f.cfg[offset:])
}

func (f *Function) SetID(vendor, device uint16) *Function {
	return f.Set16(pci.RegVendorID, vendor).Set16(pci.RegDeviceID, device)
}

func (f *Function) SetClass(class, subclass, progIF uint8) *Function {
	return f.Set8(pci.RegClass, class).Set8(pci.RegSubclass, subclass).Set8(pci.RegProgIF, progIF)
}

func (f *Function) SetRevision(revision uint8) *Function {
	return f.Set8(pci.RegRevisionID, revision)
}

func (f *Function) SetHeaderType(headerType uint8) *Function {
	return f.Set8(pci.RegHeaderType, headerType)
}

func (f *Function) SetStatus(status uint16) *Function {
	return f.Set16(pci.RegStatus, status)
}

// SetBridge turns the function into a PCI-to-PCI bridge forwarding to
// secondary.
func (f *Function) SetBridge(secondary uint8) *Function {
	return f.SetClass(pci.ClassBridge, pci.SubclassPCIToPCIBridge, 0).
		SetHeaderType(pci.HeaderTypeBridge).
		Set8(pci.RegSecondaryBus, secondary).
		Set8(pci.RegSubordinateBus, secondary)
}

// SetCapabilities advertises a capability list starting at first.
func (f *Function) SetCapabilities(first uint8) *Function {
	return f.SetStatus(f.Get16(pci.RegStatus)|pci.StatusCapabilitiesList).
		Set8(pci.RegCapabilitiesPointer, first)
}

// SetCapability writes a capability header at offset.
func (f *Function) SetCapability(offset uint8, id, next uint8) *Function {
	return f.Set8(uint16(offset), id).Set8(uint16(offset)+1, next)
}
