// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"fmt"

	"github.com/ironcore-dev/pci-discovery/eventutils/recorder"
	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
)

// Namer resolves human-readable names. Unknown ids resolve to "".
type Namer interface {
	Vendor(id uint16) string
	Product(id pci.ID) string
	Class(code pci.ClassCode) string
}

type Capability struct {
	ID     uint8  `json:"id"`
	Name   string `json:"name"`
	Offset uint8  `json:"offset"`
}

type Device struct {
	Address       string       `json:"address"`
	VendorID      string       `json:"vendorID"`
	DeviceID      string       `json:"deviceID"`
	Vendor        string       `json:"vendor,omitempty"`
	Product       string       `json:"product,omitempty"`
	Class         string       `json:"class"`
	ClassName     string       `json:"className,omitempty"`
	Revision      uint8        `json:"revision"`
	HeaderType    uint8        `json:"headerType"`
	MultiFunction bool         `json:"multiFunction,omitempty"`
	Bridge        bool         `json:"bridge,omitempty"`
	Capabilities  []Capability `json:"capabilities,omitempty"`
}

// NewDevice converts a discovered function. names may be nil.
func NewDevice(d pci.PhysicalID, names Namer) Device {
	id := d.ID()
	class := d.Class()

	device := Device{
		Address:       d.Address().String(),
		VendorID:      fmt.Sprintf("%04x", id.VendorID),
		DeviceID:      fmt.Sprintf("%04x", id.DeviceID),
		Class:         class.String(),
		Revision:      class.Revision,
		HeaderType:    d.HeaderType() & pci.HeaderTypeLayoutMask,
		MultiFunction: d.IsMultiFunction(),
		Bridge:        d.IsBridge(),
	}
	if names != nil {
		device.Vendor = names.Vendor(id.VendorID)
		device.Product = names.Product(id)
		device.ClassName = names.Class(class)
	}

	for _, c := range d.Capabilities() {
		device.Capabilities = append(device.Capabilities, Capability{
			ID:     c.ID(),
			Name:   c.Name(),
			Offset: c.Offset(),
		})
	}
	return device
}

type Event struct {
	Address   string `json:"address"`
	Type      string `json:"type"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
	EventTime int64  `json:"eventTime"`
}

func NewEvent(e *recorder.Event) Event {
	return Event{
		Address:   e.Address.String(),
		Type:      e.Type,
		Reason:    e.Reason,
		Message:   e.Message,
		EventTime: e.EventTime,
	}
}
