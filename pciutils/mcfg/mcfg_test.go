// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package mcfg_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/ironcore-dev/pci-discovery/pciutils/mcfg"
	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type entry struct {
	base       uint64
	segment    uint16
	start, end uint8
}

func table(entries ...entry) []byte {
	buf := make([]byte, 44, 44+16*len(entries))
	copy(buf, "MCFG")
	buf[8] = 1
	copy(buf[10:16], "IRNCRE")
	copy(buf[16:24], "PCIDISCO")

	for _, e := range entries {
		buf = binary.LittleEndian.AppendUint64(buf, e.base)
		buf = binary.LittleEndian.AppendUint16(buf, e.segment)
		buf = append(buf, e.start, e.end, 0, 0, 0, 0)
	}
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(buf)))
	seal(buf)
	return buf
}

func seal(buf []byte) {
	buf[9] = 0
	var sum uint8
	for _, b := range buf {
		sum += b
	}
	buf[9] = -sum
}

var _ = Describe("Parse", func() {
	It("should decode every allocation", func() {
		segments, err := mcfg.Parse(table(
			entry{base: 0xe0000000, segment: 0, start: 0, end: 0xff},
			entry{base: 0xf0000000, segment: 1, start: 0x80, end: 0x83},
		))
		Expect(err).NotTo(HaveOccurred())
		Expect(segments).To(HaveLen(2))

		Expect(segments[0].Number).To(Equal(uint16(0)))
		Expect(segments[0].Domain).To(Equal(pci.Domain{BaseAddress: 0xe0000000, StartBus: 0, EndBus: 0xff}))

		By("moving the window to the first decoded bus")
		Expect(segments[1].Number).To(Equal(uint16(1)))
		Expect(segments[1].Domain).To(Equal(pci.Domain{BaseAddress: 0xf8000000, StartBus: 0x80, EndBus: 0x83}))
		Expect(segments[1].Domain.WindowSize()).To(Equal(uint64(4 << 20)))
	})

	It("should accept a table without allocations", func() {
		segments, err := mcfg.Parse(table())
		Expect(err).NotTo(HaveOccurred())
		Expect(segments).To(BeEmpty())
	})

	It("should ignore bytes beyond the table length", func() {
		raw := append(table(entry{base: 0xe0000000, end: 0x3f}), 0xde, 0xad)
		segments, err := mcfg.Parse(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(segments).To(HaveLen(1))
	})

	DescribeTable("should reject malformed tables",
		func(mutate func([]byte) []byte, expected error) {
			_, err := mcfg.Parse(mutate(table(entry{base: 0xe0000000, end: 0xff})))
			Expect(err).To(MatchError(expected))
		},
		Entry("truncated preamble", func(b []byte) []byte { return b[:40] }, mcfg.ErrInvalidTable),
		Entry("wrong signature", func(b []byte) []byte {
			copy(b, "APIC")
			seal(b)
			return b
		}, mcfg.ErrInvalidTable),
		Entry("length beyond the data", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[4:8], uint32(len(b)+16))
			seal(b)
			return b
		}, mcfg.ErrInvalidTable),
		Entry("partial allocation", func(b []byte) []byte {
			b = append(b, 0, 0, 0, 0)
			binary.LittleEndian.PutUint32(b[4:8], uint32(len(b)))
			seal(b)
			return b
		}, mcfg.ErrInvalidTable),
		Entry("inverted bus range", func(b []byte) []byte {
			b[44+10], b[44+11] = 0x10, 0x0f
			seal(b)
			return b
		}, pci.ErrInvalidBusRange),
		Entry("bad checksum", func(b []byte) []byte {
			b[9]++
			return b
		}, mcfg.ErrChecksum),
	)
})

var _ = Describe("Load", func() {
	It("should read the table from a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "MCFG")
		Expect(os.WriteFile(path, table(entry{base: 0xc0000000, segment: 2, start: 0, end: 7}), 0o600)).To(Succeed())

		segments, err := mcfg.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(segments).To(ConsistOf(mcfg.Segment{
			Number: 2,
			Domain: pci.Domain{BaseAddress: 0xc0000000, StartBus: 0, EndBus: 7},
		}))
	})

	It("should fail on a missing table", func() {
		_, err := mcfg.Load(filepath.Join(GinkgoT().TempDir(), "missing"))
		Expect(err).To(MatchError(os.ErrNotExist))
	})
})
