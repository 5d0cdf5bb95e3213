// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package access

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
	"golang.org/x/sys/unix"
)

const DefaultMemPath = "/dev/mem"

// Mapper maps domain configuration windows from a physical memory device.
// Windows stay mapped until Close.
type Mapper struct {
	path string

	mu      sync.Mutex
	file    *os.File
	windows [][]byte
}

func NewMapper(path string) *Mapper {
	if path == "" {
		path = DefaultMemPath
	}
	return &Mapper{path: path}
}

func (m *Mapper) Map(domain pci.Domain) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		f, err := os.OpenFile(m.path, os.O_RDWR|os.O_SYNC, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
		}
		m.file = f
	}

	window, err := unix.Mmap(int(m.file.Fd()), int64(domain.BaseAddress), int(domain.WindowSize()),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("failed to map %s from %s: %w", domain, m.path, err)
	}

	m.windows = append(m.windows, window)
	return window, nil
}

func (m *Mapper) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, window := range m.windows {
		if err := unix.Munmap(window); err != nil {
			errs = append(errs, err)
		}
	}
	m.windows = nil

	if m.file != nil {
		if err := m.file.Close(); err != nil {
			errs = append(errs, err)
		}
		m.file = nil
	}

	return errors.Join(errs...)
}
