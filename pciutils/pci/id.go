// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package pci

import "fmt"

// ID is a function's self-reported vendor and device pair.
type ID struct {
	VendorID uint16
	DeviceID uint16
}

// IsNull reports whether no device is present.
func (id ID) IsNull() bool {
	return id.VendorID == 0 && id.DeviceID == 0
}

func (id ID) String() string {
	return fmt.Sprintf("%04x:%04x", id.VendorID, id.DeviceID)
}

type ClassCode struct {
	Class    uint8
	Subclass uint8
	ProgIF   uint8
	Revision uint8
}

func (c ClassCode) String() string {
	return fmt.Sprintf("%02x%02x%02x", c.Class, c.Subclass, c.ProgIF)
}

func (c ClassCode) IsPCIToPCIBridge() bool {
	return c.Class == ClassBridge && c.Subclass == SubclassPCIToPCIBridge
}
