// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/go-logr/logr"
	"github.com/ironcore-dev/pci-discovery/configutils/config"
	"github.com/ironcore-dev/pci-discovery/pciutils/access"
	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
)

type windowMapper interface {
	config.WindowMapper
	Close() error
}

// platform provides the machine-facing parts of discovery.
type platform struct {
	ports  func() (access.Ports, error)
	mapper func(path string) windowMapper
	sysfs  func(log logr.Logger, mount string) (pci.Reader, error)
}

func hardware() platform {
	return platform{
		ports: access.HardwarePorts,
		mapper: func(path string) windowMapper {
			return access.NewMapper(path)
		},
		sysfs: func(log logr.Logger, mount string) (pci.Reader, error) {
			return pci.NewReaderWithMount(log, mount, pci.Filter{})
		},
	}
}
