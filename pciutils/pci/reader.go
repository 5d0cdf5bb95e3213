// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package pci

// Class is a packed 24-bit class code: class<<16 | subclass<<8 | prog-if.
type Class uint32
type Vendor uint32

var (
	ClassAHCI         Class = 0x010601
	Class3DController Class = 0x030200

	VendorIntel  Vendor = 0x8086
	VendorNvidia Vendor = 0x10de
)

// Filter restricts the functions a Reader returns. Zero fields match anything.
type Filter struct {
	Vendor Vendor
	Class  Class
}

func (f Filter) matches(vendor, class uint32) bool {
	if f.Vendor != 0 && vendor != uint32(f.Vendor) {
		return false
	}
	if f.Class != 0 && class != uint32(f.Class) {
		return false
	}
	return true
}

// Reader lists the function addresses some inventory knows about.
type Reader interface {
	Read() ([]Address, error)
}
