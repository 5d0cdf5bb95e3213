// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package pci

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/prometheus/procfs/sysfs"
)

// sysfsReader reports the functions the running kernel enumerated, used to
// cross-check a discovery pass against the operating system's view.
type sysfsReader struct {
	log    logr.Logger
	fs     sysfs.FS
	filter Filter
}

func NewReader(log logr.Logger, filter Filter) (*sysfsReader, error) {
	fs, err := sysfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("failed to open sysfs: %w", err)
	}

	return &sysfsReader{
		log:    log,
		fs:     fs,
		filter: filter,
	}, nil
}

func NewReaderWithMount(log logr.Logger, mountPoint string, filter Filter) (*sysfsReader, error) {
	fs, err := sysfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("failed to open sysfs: %w", err)
	}

	return &sysfsReader{
		log:    log,
		fs:     fs,
		filter: filter,
	}, nil
}

func (r *sysfsReader) Read() ([]Address, error) {
	devices, err := r.fs.PciDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to read pci devices: %w", err)
	}

	var addresses []Address
	for _, device := range devices {
		if !r.filter.matches(device.Vendor, device.Class) {
			r.log.V(3).Info(
				"Skipping device, filter not matching",
				"device", device.Name(),
				"vendor", fmt.Sprintf("%#04x", device.Vendor),
				"class", fmt.Sprintf("%#06x", device.Class),
			)
			continue
		}

		r.log.V(2).Info("Found pci device", "device", device.Name())
		addresses = append(addresses, Address{
			Domain:   uint16(device.Location.Segment),
			Bus:      uint8(device.Location.Bus),
			Device:   uint8(device.Location.Device),
			Function: uint8(device.Location.Function),
		})
	}

	return addresses, nil
}
