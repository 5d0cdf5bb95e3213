// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package access

import (
	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
)

const DefaultMemPath = "/dev/mem"

type Mapper struct{}

func NewMapper(string) *Mapper {
	return &Mapper{}
}

func (m *Mapper) Map(pci.Domain) ([]byte, error) {
	return nil, ErrUnsupported
}

func (m *Mapper) Close() error {
	return nil
}
