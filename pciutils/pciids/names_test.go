// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package pciids_test

import (
	"os"
	"path/filepath"

	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
	"github.com/ironcore-dev/pci-discovery/pciutils/pciids"
	"github.com/jaypipes/pcidb"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const idsFile = `# test pci.ids
8086  Intel Corporation
	100e  82540EM Gigabit Ethernet Controller
	2922  82801IR/IO/IH (ICH9R/DO/DH) 6 port SATA Controller [AHCI mode]
10de  NVIDIA Corporation

C 01  Mass storage controller
	01  IDE interface
	06  SATA controller
		01  AHCI 1.0
C 02  Network controller
	00  Ethernet controller
C ff  Unassigned class
`

var _ = Describe("Names", func() {
	var names *pciids.Names

	BeforeEach(func() {
		intel := &pcidb.Vendor{ID: "8086", Name: "Intel Corporation"}
		e1000 := &pcidb.Product{VendorID: "8086", ID: "100e", Name: "82540EM Gigabit Ethernet Controller"}
		intel.Products = []*pcidb.Product{e1000}

		names = pciids.NewNames(&pcidb.PCIDB{
			Vendors:  map[string]*pcidb.Vendor{"8086": intel},
			Products: map[string]*pcidb.Product{"8086100e": e1000},
			Classes: map[string]*pcidb.Class{
				"01": {
					ID:   "01",
					Name: "Mass storage controller",
					Subclasses: []*pcidb.Subclass{
						{ID: "01", Name: "IDE interface"},
						{ID: "06", Name: "SATA controller", ProgrammingInterfaces: []*pcidb.ProgrammingInterface{
							{ID: "01", Name: "AHCI 1.0"},
						}},
					},
				},
			},
		})
	})

	It("should resolve vendors and products", func() {
		Expect(names.Vendor(0x8086)).To(Equal("Intel Corporation"))
		Expect(names.Vendor(0x10de)).To(BeEmpty())
		Expect(names.Product(pci.ID{VendorID: 0x8086, DeviceID: 0x100e})).To(Equal("82540EM Gigabit Ethernet Controller"))
		Expect(names.Product(pci.ID{VendorID: 0x8086, DeviceID: 0x100f})).To(BeEmpty())
	})

	DescribeTable("should pick the most specific class name",
		func(code pci.ClassCode, expected string) {
			Expect(names.Class(code)).To(Equal(expected))
		},
		Entry("prog-if", pci.ClassCode{Class: 0x01, Subclass: 0x06, ProgIF: 0x01}, "AHCI 1.0"),
		Entry("subclass", pci.ClassCode{Class: 0x01, Subclass: 0x06, ProgIF: 0x02}, "SATA controller"),
		Entry("class", pci.ClassCode{Class: 0x01, Subclass: 0x80}, "Mass storage controller"),
		Entry("unknown", pci.ClassCode{Class: 0x0c}, ""),
	)

	It("should describe functions", func() {
		nic, err := pci.NewPhysicalID(pci.Address{Bus: 1}, pci.ID{VendorID: 0x8086, DeviceID: 0x100e},
			pci.ClassCode{Class: 0x02}, 0, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(names.Describe(nic)).To(Equal("Intel Corporation 82540EM Gigabit Ethernet Controller (020000)"))

		gpu, err := pci.NewPhysicalID(pci.Address{Bus: 2}, pci.ID{VendorID: 0x10de, DeviceID: 0x2330},
			pci.ClassCode{Class: 0x01, Subclass: 0x01}, 0, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(names.Describe(gpu)).To(Equal("10de 2330 (IDE interface)"))
	})
})

var _ = Describe("Load", func() {
	It("should read a pci.ids file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "pci.ids")
		Expect(os.WriteFile(path, []byte(idsFile), 0o644)).To(Succeed())

		names, err := pciids.Load(pciids.Options{Path: path})
		Expect(err).NotTo(HaveOccurred())
		Expect(names.Vendor(0x10de)).To(Equal("NVIDIA Corporation"))
		Expect(names.Product(pci.ID{VendorID: 0x8086, DeviceID: 0x2922})).To(HavePrefix("82801IR"))
		Expect(names.Class(pci.ClassCode{Class: 0x01, Subclass: 0x06, ProgIF: 0x01})).To(Equal("AHCI 1.0"))
		Expect(names.Class(pci.ClassCode{Class: 0x02})).To(Equal("Ethernet controller"))
	})
})
