// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package pciids resolves vendor, product and class names from the pci.ids
// database.
package pciids

import (
	"fmt"

	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
	"github.com/jaypipes/pcidb"
)

type Options struct {
	// Path is a pci.ids file to use instead of the well-known locations.
	Path string
	// Chroot is prepended to the well-known locations.
	Chroot string
}

// Names answers name lookups. Unknown ids resolve to "".
type Names struct {
	db *pcidb.PCIDB
}

func Load(opts Options) (*Names, error) {
	var dbOpts []*pcidb.WithOption
	if opts.Chroot != "" {
		dbOpts = append(dbOpts, pcidb.WithChroot(opts.Chroot))
	}
	if opts.Path != "" {
		dbOpts = append(dbOpts, pcidb.WithDirectPath(opts.Path))
	}

	db, err := pcidb.New(dbOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load pci.ids: %w", err)
	}
	return NewNames(db), nil
}

func NewNames(db *pcidb.PCIDB) *Names {
	return &Names{db: db}
}

func (n *Names) Vendor(id uint16) string {
	if v, ok := n.db.Vendors[fmt.Sprintf("%04x", id)]; ok {
		return v.Name
	}
	return ""
}

func (n *Names) Product(id pci.ID) string {
	if p, ok := n.db.Products[fmt.Sprintf("%04x%04x", id.VendorID, id.DeviceID)]; ok {
		return p.Name
	}
	return ""
}

// Class returns the most specific name known for the class triplet.
func (n *Names) Class(code pci.ClassCode) string {
	class, ok := n.db.Classes[fmt.Sprintf("%02x", code.Class)]
	if !ok {
		return ""
	}

	subclassID := fmt.Sprintf("%02x", code.Subclass)
	progIFID := fmt.Sprintf("%02x", code.ProgIF)
	for _, subclass := range class.Subclasses {
		if subclass.ID != subclassID {
			continue
		}
		for _, progIF := range subclass.ProgrammingInterfaces {
			if progIF.ID == progIFID {
				return progIF.Name
			}
		}
		return subclass.Name
	}
	return class.Name
}

// Describe formats a function as "vendor product (class)", falling back to
// the numeric ids for unknown parts.
func (n *Names) Describe(device pci.PhysicalID) string {
	id := device.ID()

	vendor := n.Vendor(id.VendorID)
	if vendor == "" {
		vendor = fmt.Sprintf("%04x", id.VendorID)
	}
	product := n.Product(id)
	if product == "" {
		product = fmt.Sprintf("%04x", id.DeviceID)
	}
	class := n.Class(device.Class())
	if class == "" {
		class = device.Class().String()
	}

	return fmt.Sprintf("%s %s (%s)", vendor, product, class)
}
