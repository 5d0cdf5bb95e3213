// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package enumerate walks the configuration space of host bridges and
// reports every present function together with its capability list.
package enumerate

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/ironcore-dev/pci-discovery/eventutils/recorder"
	"github.com/ironcore-dev/pci-discovery/pciutils/access"
	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
)

var ErrDomainExcluded = errors.New("domain excluded from discovery")

// Event reasons.
const (
	ReasonDomainExcluded   = "DomainExcluded"
	ReasonFunctionFault    = "FunctionFault"
	ReasonChainTruncated   = "CapabilityChainTruncated"
	ReasonBridgeSuppressed = "BridgeSuppressed"
	ReasonBridgeOutOfRange = "BridgeOutOfRange"
)

// maxCapabilities is the number of distinct dword offsets in the
// capability window.
const maxCapabilities = (pci.CapabilityWindowEnd-pci.CapabilityWindowStart)/4 + 1

// HostBridge is one domain together with the mechanism reaching it.
type HostBridge struct {
	Number uint16
	Domain pci.Domain
	Access access.Mechanism
}

func (b HostBridge) String() string {
	kind := "none"
	if b.Access != nil {
		kind = b.Access.Kind().String()
	}
	return fmt.Sprintf("%04x %s via %s", b.Number, b.Domain, kind)
}

type Option func(*Enumerator)

// WithRecorder records faults, truncated capability chains and skipped
// bridges as events.
func WithRecorder(r recorder.EventRecorder) Option {
	return func(e *Enumerator) {
		e.recorder = r
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Enumerator) {
		e.metrics = m
	}
}

type Enumerator struct {
	log      logr.Logger
	recorder recorder.EventRecorder
	metrics  *Metrics
}

func New(log logr.Logger, opts ...Option) *Enumerator {
	e := &Enumerator{log: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Enumerator) event(addr pci.Address, eventType, reason, format string, args ...any) {
	if e.recorder != nil {
		e.recorder.Eventf(addr, eventType, reason, format, args...)
	}
}

// Enumerate discovers the functions of every bridge. Devices are returned
// in walk order: bridges in the given order, buses ascending, functions
// behind a PCI-to-PCI bridge right after the bridge itself.
//
// Faults never abort the walk. A function whose configuration cannot be
// read is left out. A domain whose host bridge cannot be read is left out
// entirely, and the returned error joins one ErrDomainExcluded per such
// domain. The device slice is valid even when an error is returned.
func (e *Enumerator) Enumerate(bridges ...HostBridge) ([]pci.PhysicalID, error) {
	var (
		devices []pci.PhysicalID
		errs    []error
	)

	for _, bridge := range bridges {
		found, err := e.enumerateDomain(bridge)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		devices = append(devices, found...)
	}

	e.log.V(1).Info("Discovery finished", "domains", len(bridges), "excluded", len(errs), "functions", len(devices))
	return devices, errors.Join(errs...)
}

func (e *Enumerator) enumerateDomain(bridge HostBridge) ([]pci.PhysicalID, error) {
	log := e.log.WithValues("segment", fmt.Sprintf("%04x", bridge.Number))
	identity := pci.Address{Domain: bridge.Number, Bus: bridge.Domain.StartBus}

	if err := e.probeHostBridge(bridge, identity); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrDomainExcluded, bridge, err)
		log.Error(err, "Excluding domain")
		e.event(identity, recorder.EventTypeWarning, ReasonDomainExcluded, "host bridge unreadable: %v", err)
		e.metrics.fault(scopeDomain)
		return nil, err
	}

	w := &walk{
		Enumerator: e,
		log:        log,
		bridge:     bridge,
	}
	for bus := int(bridge.Domain.StartBus); bus <= int(bridge.Domain.EndBus); bus++ {
		if w.visited.has(uint8(bus)) {
			continue
		}
		w.scanBus(uint8(bus))
	}

	log.V(1).Info("Scanned domain", "buses", w.visited.len(), "functions", len(w.devices))
	return w.devices, nil
}

func (e *Enumerator) probeHostBridge(bridge HostBridge, identity pci.Address) error {
	if bridge.Access == nil {
		return errors.New("no access mechanism")
	}
	if bridge.Domain.StartBus > bridge.Domain.EndBus {
		return fmt.Errorf("%w: start bus %#02x after end bus %#02x",
			pci.ErrInvalidBusRange, bridge.Domain.StartBus, bridge.Domain.EndBus)
	}
	_, err := bridge.Access.Read16(identity, pci.RegVendorID)
	return err
}

// walk holds the state of one domain's scan.
type walk struct {
	*Enumerator
	log     logr.Logger
	bridge  HostBridge
	visited visitedBuses
	devices []pci.PhysicalID
}

func (w *walk) address(bus, device, function uint8) pci.Address {
	return pci.Address{Domain: w.bridge.Number, Bus: bus, Device: device, Function: function}
}

func (w *walk) fault(addr pci.Address, err error) {
	w.log.V(1).Info("Dropping function", "address", addr, "error", err.Error())
	w.event(addr, recorder.EventTypeWarning, ReasonFunctionFault, "configuration access failed: %v", err)
	w.metrics.fault(scopeFunction)
}

func (w *walk) scanBus(bus uint8) {
	w.visited.add(bus)
	w.log.V(2).Info("Scanning bus", "bus", bus)

	for device := range uint8(pci.MaxDevices) {
		w.scanDevice(bus, device)
	}
}

func (w *walk) scanDevice(bus, device uint8) {
	addr := w.address(bus, device, 0)
	mech := w.bridge.Access

	vendor, err := mech.Read16(addr, pci.RegVendorID)
	if err != nil {
		w.fault(addr, err)
		return
	}
	if vendor == pci.VendorNone {
		return
	}

	headerType, err := mech.Read8(addr, pci.RegHeaderType)
	if err != nil {
		w.fault(addr, err)
		return
	}

	w.scanFunction(addr, vendor)
	if headerType&pci.HeaderTypeMultiFunction == 0 {
		return
	}

	for function := uint8(1); function < pci.MaxFunctions; function++ {
		addr := w.address(bus, device, function)
		vendor, err := mech.Read16(addr, pci.RegVendorID)
		if err != nil {
			w.fault(addr, err)
			continue
		}
		if vendor == pci.VendorNone {
			continue
		}
		w.scanFunction(addr, vendor)
	}
}

func (w *walk) scanFunction(addr pci.Address, vendor uint16) {
	device, err := w.readFunction(addr, vendor)
	if err != nil {
		w.fault(addr, err)
		return
	}
	if device == nil {
		return
	}

	w.devices = append(w.devices, *device)
	w.metrics.function()
	w.log.V(2).Info("Found function", "address", addr, "id", device.ID().String(), "class", device.Class().String(),
		"capabilities", len(device.Capabilities()))

	if device.IsBridge() {
		w.followBridge(addr)
	}
}

// readFunction reads the identity, class and capabilities of a present
// function. It returns nil without error for a function reporting a null id.
func (w *walk) readFunction(addr pci.Address, vendor uint16) (*pci.PhysicalID, error) {
	mech := w.bridge.Access

	deviceID, err := mech.Read16(addr, pci.RegDeviceID)
	if err != nil {
		return nil, err
	}
	id := pci.ID{VendorID: vendor, DeviceID: deviceID}
	if id.IsNull() {
		w.log.V(3).Info("Skipping function with null id", "address", addr)
		return nil, nil
	}

	classRev, err := mech.Read32(addr, pci.RegRevisionID)
	if err != nil {
		return nil, err
	}
	class := pci.ClassCode{
		Class:    uint8(classRev >> 24),
		Subclass: uint8(classRev >> 16),
		ProgIF:   uint8(classRev >> 8),
		Revision: uint8(classRev),
	}

	headerType, err := mech.Read8(addr, pci.RegHeaderType)
	if err != nil {
		return nil, err
	}
	status, err := mech.Read16(addr, pci.RegStatus)
	if err != nil {
		return nil, err
	}

	caps, err := w.capabilities(addr, status)
	if err != nil {
		return nil, err
	}

	device, err := pci.NewPhysicalID(addr, id, class, headerType, caps)
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (w *walk) followBridge(addr pci.Address) {
	secondary, err := w.bridge.Access.Read8(addr, pci.RegSecondaryBus)
	if err != nil {
		w.fault(addr, err)
		return
	}

	switch {
	case !w.bridge.Domain.Contains(secondary):
		w.log.V(1).Info("Not following bridge outside domain", "address", addr, "secondary", secondary)
		w.event(addr, recorder.EventTypeWarning, ReasonBridgeOutOfRange,
			"secondary bus %#02x outside %s", secondary, w.bridge.Domain)
		w.metrics.suppressed()
	case w.visited.has(secondary):
		w.log.V(1).Info("Not following bridge to scanned bus", "address", addr, "secondary", secondary)
		w.event(addr, recorder.EventTypeWarning, ReasonBridgeSuppressed,
			"secondary bus %#02x already scanned", secondary)
		w.metrics.suppressed()
	default:
		w.scanBus(secondary)
	}
}

// capabilities walks the capability list of a function. Pointers have
// their low two bits masked. The walk ends at a null pointer, a pointer
// outside the capability window, a revisited offset or a null capability
// id.
func (w *walk) capabilities(addr pci.Address, status uint16) ([]pci.Capability, error) {
	if status&pci.StatusCapabilitiesList == 0 {
		return nil, nil
	}

	mech := w.bridge.Access
	pointer, err := mech.Read8(addr, pci.RegCapabilitiesPointer)
	if err != nil {
		return nil, err
	}

	var (
		caps []pci.Capability
		seen uint64
	)
	pointer &= 0xfc
	for range maxCapabilities {
		if pointer == 0 {
			return caps, nil
		}
		if pointer < pci.CapabilityWindowStart || pointer > pci.CapabilityWindowEnd {
			w.truncated(addr, "pointer %#02x outside the capability window", pointer)
			return caps, nil
		}
		bit := uint64(1) << (pointer >> 2)
		if seen&bit != 0 {
			w.truncated(addr, "pointer %#02x revisited", pointer)
			return caps, nil
		}
		seen |= bit

		id, err := mech.Read8(addr, uint16(pointer))
		if err != nil {
			return nil, err
		}
		if id == pci.CapNull {
			return caps, nil
		}
		next, err := mech.Read8(addr, uint16(pointer)+1)
		if err != nil {
			return nil, err
		}

		caps = append(caps, pci.NewCapability(mech, addr, id, pointer))
		pointer = next & 0xfc
	}

	if pointer != 0 {
		w.truncated(addr, "more than %d capabilities", maxCapabilities)
	}
	return caps, nil
}

func (w *walk) truncated(addr pci.Address, format string, args ...any) {
	w.log.V(1).Info("Truncating capability chain", "address", addr, "reason", fmt.Sprintf(format, args...))
	w.event(addr, recorder.EventTypeWarning, ReasonChainTruncated, format, args...)
	w.metrics.truncated()
}
