// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package registry keeps the result of one discovery run and answers
// queries over it. A Registry never changes after construction and is
// safe for concurrent use.
package registry

import (
	"fmt"
	"iter"
	"slices"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-logr/logr"
	"github.com/ironcore-dev/pci-discovery/pciutils/enumerate"
	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Match selects which parts of the class triplet DevicesMatching compares.
type Match uint8

const (
	MatchClass Match = 1 << iota
	MatchSubclass
	MatchProgIF

	MatchAll = MatchClass | MatchSubclass | MatchProgIF
)

var _ pci.Reader = (*Registry)(nil)

type Registry struct {
	devices *orderedmap.OrderedMap[pci.Address, pci.PhysicalID]
}

// New builds a registry in the order of devices. For duplicate addresses
// the first device wins.
func New(devices []pci.PhysicalID) *Registry {
	m := orderedmap.NewOrderedMap[pci.Address, pci.PhysicalID]()
	for _, device := range devices {
		if _, ok := m.Get(device.Address()); ok {
			continue
		}
		m.Set(device.Address(), device)
	}
	return &Registry{devices: m}
}

// Discover runs e over bridges and builds a registry from the result. The
// registry is returned even if some domains were excluded.
func Discover(log logr.Logger, e *enumerate.Enumerator, bridges ...enumerate.HostBridge) (*Registry, error) {
	devices, err := e.Enumerate(bridges...)
	r := New(devices)
	if err != nil {
		log.Error(err, "Discovery incomplete", "devices", r.Len())
		return r, err
	}

	log.V(1).Info("Discovery complete", "devices", r.Len())
	return r, nil
}

func (r *Registry) Len() int {
	return r.devices.Len()
}

// AllDevices yields every device in discovery order.
func (r *Registry) AllDevices() iter.Seq[pci.PhysicalID] {
	return func(yield func(pci.PhysicalID) bool) {
		for el := r.devices.Front(); el != nil; el = el.Next() {
			if !yield(el.Value) {
				return
			}
		}
	}
}

func (r *Registry) DeviceAt(addr pci.Address) (pci.PhysicalID, bool) {
	return r.devices.Get(addr)
}

// DevicesMatching yields the devices whose class fields selected by mask
// equal the given ones. An empty mask matches every device.
func (r *Registry) DevicesMatching(class, subclass, progIF uint8, mask Match) iter.Seq[pci.PhysicalID] {
	return r.filter(func(device pci.PhysicalID) bool {
		c := device.Class()
		if mask&MatchClass != 0 && c.Class != class {
			return false
		}
		if mask&MatchSubclass != 0 && c.Subclass != subclass {
			return false
		}
		if mask&MatchProgIF != 0 && c.ProgIF != progIF {
			return false
		}
		return true
	})
}

// DevicesWithCapability yields the devices advertising capability id.
func (r *Registry) DevicesWithCapability(id uint8) iter.Seq[pci.PhysicalID] {
	return r.filter(func(device pci.PhysicalID) bool {
		_, ok := device.Capability(id)
		return ok
	})
}

func (r *Registry) filter(keep func(pci.PhysicalID) bool) iter.Seq[pci.PhysicalID] {
	return func(yield func(pci.PhysicalID) bool) {
		for device := range r.AllDevices() {
			if keep(device) && !yield(device) {
				return
			}
		}
	}
}

// Read returns the addresses of all devices in discovery order.
func (r *Registry) Read() ([]pci.Address, error) {
	return r.devices.Keys(), nil
}

// Diff compares the registry with another inventory. missing lists the
// addresses only the other inventory knows, unexpected the ones only the
// registry knows. Both are sorted.
func (r *Registry) Diff(other pci.Reader) (missing, unexpected []pci.Address, err error) {
	theirs, err := other.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("error reading inventory: %w", err)
	}

	ours := sets.New(r.devices.Keys()...)
	seen := sets.New(theirs...)

	missing = sortAddresses(seen.Difference(ours).UnsortedList())
	unexpected = sortAddresses(ours.Difference(seen).UnsortedList())
	return missing, unexpected, nil
}

func sortAddresses(addrs []pci.Address) []pci.Address {
	slices.SortFunc(addrs, compareAddress)
	return addrs
}

func compareAddress(a, b pci.Address) int {
	switch {
	case a.Domain != b.Domain:
		return int(a.Domain) - int(b.Domain)
	case a.Bus != b.Bus:
		return int(a.Bus) - int(b.Bus)
	case a.Device != b.Device:
		return int(a.Device) - int(b.Device)
	default:
		return int(a.Function) - int(b.Function)
	}
}
