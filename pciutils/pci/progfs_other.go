// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package pci

import (
	"github.com/go-logr/logr"
)

type sysfsReader struct {
	log logr.Logger
}

func NewReader(log logr.Logger, _ Filter) (*sysfsReader, error) {
	log.V(1).Info("NOT SUPPORTED OS")

	return &sysfsReader{
		log: log,
	}, nil
}

func NewReaderWithMount(log logr.Logger, _ string, _ Filter) (*sysfsReader, error) {
	return NewReader(log, Filter{})
}

func (r *sysfsReader) Read() ([]Address, error) {
	r.log.V(1).Info("NOT SUPPORTED OS")
	return nil, nil
}
