// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package pci_test

import (
	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Address", func() {

	It("should encode the legacy io address", func() {
		addr := pci.Address{Bus: 0x12, Device: 0x1f, Function: 0x7}
		Expect(addr.IOAddressForField(0x3c)).To(Equal(uint32(0x80000000 | 0x12<<16 | 0x1f<<11 | 0x7<<8 | 0x3c)))
		Expect(pci.Address{}.IOAddressForField(0)).To(Equal(uint32(0x80000000)))
	})

	It("should mask the field to its dword for every address", func() {
		var bad []uint32
		for bus := 0; bus < pci.MaxBuses; bus += 17 {
			for device := uint8(0); device < pci.MaxDevices; device++ {
				for function := uint8(0); function < pci.MaxFunctions; function++ {
					addr := pci.Address{Domain: 3, Bus: uint8(bus), Device: device, Function: function}
					for field := 0; field < pci.LegacyConfigSize; field++ {
						key := addr.IOAddressForField(uint8(field))
						switch {
						case key&0x3 != 0,
							key&0x7f000000 != 0,
							key&0x80000000 == 0,
							key != addr.IOAddressForField(uint8(field)&^0x3):
							bad = append(bad, key)
						}
					}
				}
			}
		}
		Expect(bad).To(BeEmpty())
	})

	It("should be null iff bus, device and function are zero", func() {
		for _, domain := range []uint16{0, 1, 0xffff} {
			for bus := 0; bus < pci.MaxBuses; bus += 51 {
				for device := uint8(0); device < pci.MaxDevices; device += 5 {
					for function := uint8(0); function < pci.MaxFunctions; function++ {
						addr := pci.Address{Domain: domain, Bus: uint8(bus), Device: device, Function: function}
						null := bus == 0 && device == 0 && function == 0
						Expect(addr.IsNull()).To(Equal(null), addr.String())
						Expect(addr.IsValid()).To(Equal(!null), addr.String())
					}
				}
			}
		}
	})

	It("should treat addresses differing only in domain as distinct but both null", func() {
		a := pci.Address{Domain: 0}
		b := pci.Address{Domain: 1}
		Expect(a).NotTo(Equal(b))
		Expect(a.IsNull()).To(BeTrue())
		Expect(b.IsNull()).To(BeTrue())
	})

	It("should reject out of range device and function", func() {
		_, err := pci.NewAddress(0, 0, 32, 0)
		Expect(err).To(MatchError(pci.ErrInvalidAddress))

		_, err = pci.NewAddress(0, 0, 0, 8)
		Expect(err).To(MatchError(pci.ErrInvalidAddress))

		addr, err := pci.NewAddress(2, 0xff, 31, 7)
		Expect(err).NotTo(HaveOccurred())
		Expect(addr).To(Equal(pci.Address{Domain: 2, Bus: 0xff, Device: 31, Function: 7}))
	})

	DescribeTable("parsing",
		func(in string, want pci.Address) {
			addr, err := pci.ParseAddress(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(addr).To(Equal(want))
			Expect(addr.String()).To(HaveSuffix(in[len(in)-7:]))
		},
		Entry("full", "0001:3a:1f.7", pci.Address{Domain: 1, Bus: 0x3a, Device: 0x1f, Function: 7}),
		Entry("without domain", "00:02.0", pci.Address{Device: 2}),
	)

	DescribeTable("parsing failures",
		func(in string) {
			_, err := pci.ParseAddress(in)
			Expect(err).To(MatchError(pci.ErrInvalidAddress))
		},
		Entry("empty", ""),
		Entry("missing function", "00:02"),
		Entry("device out of range", "00:20.0"),
		Entry("function out of range", "00:1f.8"),
		Entry("garbage domain", "zz:00:00.0"),
		Entry("too many parts", "0:0:0:00.0"),
	)
})

var _ = Describe("Domain", func() {
	It("should reject inverted bus ranges", func() {
		_, err := pci.NewDomain(0xe0000000, 2, 1)
		Expect(err).To(MatchError(pci.ErrInvalidBusRange))
	})

	It("should allow single bus domains", func() {
		d, err := pci.NewDomain(0xe0000000, 4, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Buses()).To(Equal(1))
		Expect(d.WindowSize()).To(Equal(uint64(1 << 20)))
		Expect(d.Contains(4)).To(BeTrue())
		Expect(d.Contains(3)).To(BeFalse())
		Expect(d.Contains(5)).To(BeFalse())
	})

	It("should size the full window", func() {
		d, err := pci.NewDomain(0xb0000000, 0, 0xff)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Buses()).To(Equal(256))
		Expect(d.WindowSize()).To(Equal(uint64(256 << 20)))
	})
})
