// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package pci

// Configuration space register offsets.
const (
	RegVendorID            = 0x00 // u16
	RegDeviceID            = 0x02 // u16
	RegCommand             = 0x04 // u16
	RegStatus              = 0x06 // u16
	RegRevisionID          = 0x08 // u8
	RegProgIF              = 0x09 // u8
	RegSubclass            = 0x0a // u8
	RegClass               = 0x0b // u8
	RegCacheLineSize       = 0x0c // u8
	RegLatencyTimer        = 0x0d // u8
	RegHeaderType          = 0x0e // u8
	RegBIST                = 0x0f // u8
	RegBAR0                = 0x10 // u32
	RegBAR1                = 0x14 // u32
	RegBAR2                = 0x18 // u32
	RegBAR3                = 0x1c // u32
	RegBAR4                = 0x20 // u32
	RegBAR5                = 0x24 // u32
	RegPrimaryBus          = 0x18 // u8, bridge only
	RegSecondaryBus        = 0x19 // u8, bridge only
	RegSubordinateBus      = 0x1a // u8, bridge only
	RegSubsystemVendorID   = 0x2c // u16
	RegSubsystemID         = 0x2e // u16
	RegCapabilitiesPointer = 0x34 // u8
	RegInterruptLine       = 0x3c // u8
	RegInterruptPin        = 0x3d // u8
)

const (
	HeaderTypeDevice        = 0x00
	HeaderTypeBridge        = 0x01
	HeaderTypeLayoutMask    = 0x7f
	HeaderTypeMultiFunction = 0x80

	StatusCapabilitiesList = 0x10

	// VendorNone is what an absent function answers for its vendor id.
	VendorNone = 0xffff

	LegacyAddressPort = 0xcf8
	LegacyDataPort    = 0xcfc

	MaxBuses     = 256
	MaxDevices   = 32
	MaxFunctions = 8

	LegacyConfigSize   = 256
	ExtendedConfigSize = 4096

	// Capability structures live after the standard header and are dword aligned.
	CapabilityWindowStart = 0x40
	CapabilityWindowEnd   = 0xfc
)

// Capability ids.
const (
	CapNull              uint8 = 0x00
	CapPowerManagement   uint8 = 0x01
	CapAGP               uint8 = 0x02
	CapVPD               uint8 = 0x03
	CapSlotID            uint8 = 0x04
	CapMSI               uint8 = 0x05
	CapCompactPCIHotSwap uint8 = 0x06
	CapPCIX              uint8 = 0x07
	CapHyperTransport    uint8 = 0x08
	CapVendorSpecific    uint8 = 0x09
	CapDebugPort         uint8 = 0x0a
	CapCompactPCI        uint8 = 0x0b
	CapPCIHotPlug        uint8 = 0x0c
	CapBridgeSubsystemID uint8 = 0x0d
	CapAGP8x             uint8 = 0x0e
	CapSecureDevice      uint8 = 0x0f
	CapPCIExpress        uint8 = 0x10
	CapMSIX              uint8 = 0x11
	CapSATA              uint8 = 0x12
	CapAdvancedFeatures  uint8 = 0x13
	CapEnhancedAlloc     uint8 = 0x14
)

// Class codes, see PCI Code and ID Assignment Specification.
const (
	ClassMassStorage uint8 = 0x01
	ClassNetwork     uint8 = 0x02
	ClassDisplay     uint8 = 0x03
	ClassBridge      uint8 = 0x06

	SubclassIDE            uint8 = 0x01
	SubclassSATA           uint8 = 0x06
	SubclassHostBridge     uint8 = 0x00
	SubclassPCIToPCIBridge uint8 = 0x04

	ProgIFAHCI uint8 = 0x01
)

var capabilityNames = map[uint8]string{
	CapNull:              "Null",
	CapPowerManagement:   "Power Management",
	CapAGP:               "AGP",
	CapVPD:               "Vital Product Data",
	CapSlotID:            "Slot Identification",
	CapMSI:               "MSI",
	CapCompactPCIHotSwap: "CompactPCI HotSwap",
	CapPCIX:              "PCI-X",
	CapHyperTransport:    "HyperTransport",
	CapVendorSpecific:    "Vendor Specific",
	CapDebugPort:         "Debug Port",
	CapCompactPCI:        "CompactPCI",
	CapPCIHotPlug:        "PCI Hot-Plug",
	CapBridgeSubsystemID: "Bridge Subsystem VID",
	CapAGP8x:             "AGP 8x",
	CapSecureDevice:      "Secure Device",
	CapPCIExpress:        "PCI Express",
	CapMSIX:              "MSI-X",
	CapSATA:              "SATA Data/Index",
	CapAdvancedFeatures:  "Advanced Features",
	CapEnhancedAlloc:     "Enhanced Allocation",
}

// CapabilityName returns the human-readable name of a standard capability id.
func CapabilityName(id uint8) string {
	if name, ok := capabilityNames[id]; ok {
		return name
	}
	return "Unknown"
}
