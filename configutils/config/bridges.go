// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/ironcore-dev/pci-discovery/pciutils/access"
	"github.com/ironcore-dev/pci-discovery/pciutils/enumerate"
	"github.com/ironcore-dev/pci-discovery/pciutils/mcfg"
	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
)

var ErrNoMechanism = errors.New("no usable configuration access mechanism")

// WindowMapper maps the configuration window of a domain.
type WindowMapper interface {
	Map(domain pci.Domain) ([]byte, error)
}

// Bridges resolves the configured mechanism into the host bridges to
// enumerate. "auto" prefers memory-mapped access to every segment and falls
// back to the legacy ports on domain 0 if any segment cannot be mapped.
func Bridges(log logr.Logger, opts Options, ports access.Ports, mapper WindowMapper) ([]enumerate.HostBridge, error) {
	opts.Defaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if opts.Mechanism == MechanismAuto {
		bridges, err := memoryMappedBridges(log, opts, mapper)
		if err == nil {
			return bridges, nil
		}
		log.V(1).Info("Falling back to legacy port access", "reason", err.Error())
		return legacyBridges(log, opts, ports)
	}

	kind, err := access.ParseKind(opts.Mechanism)
	if err != nil {
		return nil, err
	}
	if kind == access.KindPortIO {
		return legacyBridges(log, opts, ports)
	}
	return memoryMappedBridges(log, opts, mapper)
}

func segments(opts Options) ([]mcfg.Segment, error) {
	if len(opts.Domains) == 0 {
		return mcfg.Load(opts.MCFGPath)
	}

	result := make([]mcfg.Segment, 0, len(opts.Domains))
	for _, d := range opts.Domains {
		domain, err := pci.NewDomain(d.Base, d.StartBus, d.EndBus)
		if err != nil {
			return nil, err
		}
		result = append(result, mcfg.Segment{Number: d.Segment, Domain: domain})
	}
	return result, nil
}

func memoryMappedBridges(log logr.Logger, opts Options, mapper WindowMapper) ([]enumerate.HostBridge, error) {
	if mapper == nil {
		return nil, fmt.Errorf("%w: no window mapper", ErrNoMechanism)
	}

	segs, err := segments(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoMechanism, err)
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: no memory-mapped segments", ErrNoMechanism)
	}

	bridges := make([]enumerate.HostBridge, 0, len(segs))
	for _, seg := range segs {
		window, err := mapper.Map(seg.Domain)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %04x: %w", ErrNoMechanism, seg.Number, err)
		}
		mmio, err := access.NewMemoryMapped(seg.Number, seg.Domain, window)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %04x: %w", ErrNoMechanism, seg.Number, err)
		}

		log.V(1).Info("Using memory-mapped access", "segment", seg.String())
		bridges = append(bridges, enumerate.HostBridge{
			Number: seg.Number,
			Domain: seg.Domain,
			Access: mmio,
		})
	}
	return bridges, nil
}

// legacyBridges reaches domain 0 through the port pair. A configured
// override for segment 0 narrows the scanned bus range.
func legacyBridges(log logr.Logger, opts Options, ports access.Ports) ([]enumerate.HostBridge, error) {
	if ports == nil {
		return nil, fmt.Errorf("%w: legacy ports unavailable", ErrNoMechanism)
	}

	start, end := uint8(0), uint8(pci.MaxBuses-1)
	for _, d := range opts.Domains {
		if d.Segment == 0 {
			start, end = d.StartBus, d.EndBus
		}
	}
	domain, err := pci.NewDomain(0, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	log.V(1).Info("Using legacy port access", "domain", domain.String())
	return []enumerate.HostBridge{{
		Domain: domain,
		Access: access.NewPortIO(access.NewLegacyPorts(ports)),
	}}, nil
}
