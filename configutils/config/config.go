// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package config holds the discovery settings and turns them into the host
// bridges to enumerate.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ironcore-dev/pci-discovery/eventutils/recorder"
	"github.com/ironcore-dev/pci-discovery/pciutils/access"
	"github.com/ironcore-dev/pci-discovery/pciutils/mcfg"
	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
	"gopkg.in/ini.v1"
)

const (
	MechanismAuto = "auto"

	DefaultSysfsPath = "/sys"

	discoverySection = "discovery"
	domainPrefix     = "domain."
)

var ErrInvalidConfig = errors.New("invalid discovery configuration")

// DomainOverride replaces the MCFG table entry for one segment. Base is the
// physical address of the start bus's configuration window.
type DomainOverride struct {
	Segment  uint16
	Base     uint64
	StartBus uint8
	EndBus   uint8
}

type Options struct {
	// Mechanism is "auto", "port" or "mmio".
	Mechanism  string
	MCFGPath   string
	MemPath    string
	SysfsPath  string
	PCIIDsPath string
	MaxEvents  int
	EventTTL   time.Duration
	Domains    []DomainOverride
}

func (o *Options) Defaults() {
	if o.Mechanism == "" {
		o.Mechanism = MechanismAuto
	}

	if o.MCFGPath == "" {
		o.MCFGPath = mcfg.DefaultPath
	}

	if o.MemPath == "" {
		o.MemPath = access.DefaultMemPath
	}

	if o.SysfsPath == "" {
		o.SysfsPath = DefaultSysfsPath
	}

	if o.MaxEvents <= 0 {
		o.MaxEvents = 1000
	}

	if o.EventTTL <= 0 {
		o.EventTTL = time.Hour
	}
}

func (o *Options) Validate() error {
	if o.Mechanism != MechanismAuto {
		if _, err := access.ParseKind(o.Mechanism); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	seen := map[uint16]bool{}
	for _, d := range o.Domains {
		if seen[d.Segment] {
			return fmt.Errorf("%w: segment %04x configured twice", ErrInvalidConfig, d.Segment)
		}
		seen[d.Segment] = true

		if _, err := pci.NewDomain(d.Base, d.StartBus, d.EndBus); err != nil {
			return fmt.Errorf("%w: segment %04x: %w", ErrInvalidConfig, d.Segment, err)
		}
	}
	return nil
}

func (o *Options) EventStoreOptions() recorder.EventStoreOptions {
	return recorder.EventStoreOptions{
		MaxEvents: o.MaxEvents,
		TTL:       o.EventTTL,
	}
}

// Load reads options from an ini file:
//
//	[discovery]
//	mechanism = mmio
//	mcfg = /sys/firmware/acpi/tables/MCFG
//	max_events = 500
//	event_ttl = 30m
//
//	[domain.1]
//	base = 0xf0000000
//	start_bus = 0
//	end_bus = 0x3f
//
// Unset values take their defaults.
func Load(path string) (Options, error) {
	file, err := ini.Load(path)
	if err != nil {
		return Options{}, fmt.Errorf("error loading config %s: %w", path, err)
	}

	var opts Options
	discovery := file.Section(discoverySection)
	opts.Mechanism = discovery.Key("mechanism").String()
	opts.MCFGPath = discovery.Key("mcfg").String()
	opts.MemPath = discovery.Key("mem").String()
	opts.SysfsPath = discovery.Key("sysfs").String()
	opts.PCIIDsPath = discovery.Key("pci_ids").String()

	if discovery.HasKey("max_events") {
		if opts.MaxEvents, err = discovery.Key("max_events").Int(); err != nil {
			return Options{}, fmt.Errorf("%w: max_events: %w", ErrInvalidConfig, err)
		}
	}
	if discovery.HasKey("event_ttl") {
		if opts.EventTTL, err = discovery.Key("event_ttl").Duration(); err != nil {
			return Options{}, fmt.Errorf("%w: event_ttl: %w", ErrInvalidConfig, err)
		}
	}

	for _, section := range file.Sections() {
		name, ok := strings.CutPrefix(section.Name(), domainPrefix)
		if !ok {
			continue
		}
		d, err := parseDomain(name, section)
		if err != nil {
			return Options{}, fmt.Errorf("%w: [%s]: %w", ErrInvalidConfig, section.Name(), err)
		}
		opts.Domains = append(opts.Domains, d)
	}

	opts.Defaults()
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func parseDomain(name string, section *ini.Section) (DomainOverride, error) {
	segment, err := strconv.ParseUint(name, 0, 16)
	if err != nil {
		return DomainOverride{}, fmt.Errorf("segment number: %w", err)
	}
	base, err := parseUint(section, "base", 64)
	if err != nil {
		return DomainOverride{}, err
	}
	start, err := parseUint(section, "start_bus", 8)
	if err != nil {
		return DomainOverride{}, err
	}
	end, err := parseUint(section, "end_bus", 8)
	if err != nil {
		return DomainOverride{}, err
	}

	return DomainOverride{
		Segment:  uint16(segment),
		Base:     base,
		StartBus: uint8(start),
		EndBus:   uint8(end),
	}, nil
}

// parseUint reads a required key accepting 0x-prefixed hex.
func parseUint(section *ini.Section, key string, bits int) (uint64, error) {
	if !section.HasKey(key) {
		return 0, fmt.Errorf("missing %s", key)
	}
	v, err := strconv.ParseUint(section.Key(key).String(), 0, bits)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
