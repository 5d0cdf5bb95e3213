// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package mcfg reads the ACPI MCFG table, which lists the host bridges whose
// extended configuration space is memory mapped.
package mcfg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
)

const (
	DefaultPath = "/sys/firmware/acpi/tables/MCFG"

	Signature = "MCFG"

	headerSize = 36
	// The MCFG preamble is the SDT header followed by 8 reserved bytes.
	preambleSize = headerSize + 8
	entrySize    = 16
)

var (
	ErrInvalidTable = errors.New("invalid MCFG table")
	ErrChecksum     = errors.New("MCFG checksum mismatch")
)

// Segment is one host bridge announced by the table.
type Segment struct {
	Number uint16
	Domain pci.Domain
}

func (s Segment) String() string {
	return fmt.Sprintf("%04x %s", s.Number, s.Domain)
}

// Parse decodes a raw MCFG table. The allocation base of an entry refers to
// bus 0, so the window of every returned domain starts at its first bus.
func Parse(table []byte) ([]Segment, error) {
	if len(table) < preambleSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidTable, len(table))
	}
	if sig := string(table[:4]); sig != Signature {
		return nil, fmt.Errorf("%w: signature %q", ErrInvalidTable, sig)
	}

	length := binary.LittleEndian.Uint32(table[4:8])
	if length < preambleSize || uint64(length) > uint64(len(table)) {
		return nil, fmt.Errorf("%w: length %d of %d bytes", ErrInvalidTable, length, len(table))
	}
	table = table[:length]

	var sum uint8
	for _, b := range table {
		sum += b
	}
	if sum != 0 {
		return nil, fmt.Errorf("%w: residue %#02x", ErrChecksum, sum)
	}

	entries := table[preambleSize:]
	if len(entries)%entrySize != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidTable, len(entries)%entrySize)
	}

	segments := make([]Segment, 0, len(entries)/entrySize)
	for i := 0; i < len(entries); i += entrySize {
		entry := entries[i : i+entrySize]
		base := binary.LittleEndian.Uint64(entry[0:8])
		number := binary.LittleEndian.Uint16(entry[8:10])
		start, end := entry[10], entry[11]

		domain, err := pci.NewDomain(base+uint64(start)<<20, start, end)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidTable, i/entrySize, err)
		}
		segments = append(segments, Segment{Number: number, Domain: domain})
	}

	return segments, nil
}

// Load reads and parses the table at path, DefaultPath if empty.
func Load(path string) ([]Segment, error) {
	if path == "" {
		path = DefaultPath
	}

	table, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading MCFG table: %w", err)
	}

	return Parse(table)
}
