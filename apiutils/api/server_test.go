// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/ironcore-dev/pci-discovery/apiutils/api"
	"github.com/ironcore-dev/pci-discovery/eventutils/recorder"
	"github.com/ironcore-dev/pci-discovery/pciutils/access"
	"github.com/ironcore-dev/pci-discovery/pciutils/emulate"
	"github.com/ironcore-dev/pci-discovery/pciutils/enumerate"
	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
	"github.com/ironcore-dev/pci-discovery/pciutils/registry"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

type fakeNames struct{}

func (fakeNames) Vendor(id uint16) string {
	if id == 0x8086 {
		return "Intel Corporation"
	}
	return ""
}

func (fakeNames) Product(pci.ID) string { return "" }

func (fakeNames) Class(code pci.ClassCode) string {
	if code.Class == pci.ClassMassStorage {
		return "Mass storage controller"
	}
	return ""
}

var _ = Describe("Handler", func() {
	var srv *httptest.Server

	get := func(path string, status int, into any) {
		resp, err := http.Get(srv.URL + path)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = resp.Body.Close() }()

		Expect(resp.StatusCode).To(Equal(status))
		if into != nil {
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
			Expect(json.NewDecoder(resp.Body).Decode(into)).To(Succeed())
		}
	}

	BeforeEach(func() {
		domain, err := pci.NewDomain(0xe0000000, 0, 1)
		Expect(err).NotTo(HaveOccurred())

		host := emulate.NewHost()
		host.AddSegment(0, domain)
		host.AddFunction(pci.Address{}).
			SetID(0x8086, 0x29c0).
			SetClass(pci.ClassBridge, pci.SubclassHostBridge, 0)
		host.AddFunction(pci.Address{Device: 0x1f}).
			SetID(0x8086, 0x2916).
			SetClass(pci.ClassBridge, 0x01, 0).
			SetHeaderType(pci.HeaderTypeMultiFunction)
		host.AddFunction(pci.Address{Device: 0x1f, Function: 2}).
			SetID(0x8086, 0x2922).
			SetClass(pci.ClassMassStorage, pci.SubclassSATA, pci.ProgIFAHCI).
			SetRevision(0x02).
			SetCapabilities(0x80).
			SetCapability(0x80, pci.CapMSI, 0xa8).
			SetCapability(0xa8, pci.CapSATA, 0)
		host.AddFunction(pci.Address{Bus: 1, Device: 0}).
			SetID(0x1b21, 0x0612).
			SetClass(pci.ClassMassStorage, pci.SubclassSATA, pci.ProgIFAHCI).
			SetCapabilities(0x50).
			SetCapability(0x50, pci.CapPCIExpress, 0)

		mmio, err := access.NewMemoryMapped(0, domain, host.Window(0))
		Expect(err).NotTo(HaveOccurred())

		store := recorder.NewEventStore(logf.Log, recorder.EventStoreOptions{})
		metricsRegistry := prometheus.NewRegistry()
		enumerator := enumerate.New(logf.Log,
			enumerate.WithRecorder(store),
			enumerate.WithMetrics(enumerate.NewMetrics(metricsRegistry)),
		)

		reg, err := registry.Discover(logf.Log, enumerator, enumerate.HostBridge{Domain: domain, Access: mmio})
		Expect(err).NotTo(HaveOccurred())
		store.Eventf(pci.Address{Bus: 1}, recorder.EventTypeWarning, "Test", "recorded %d", 1)

		srv = httptest.NewServer(api.NewHandler(logf.Log, reg,
			api.WithEvents(store),
			api.WithNames(fakeNames{}),
			api.WithGatherer(metricsRegistry),
		))
		DeferCleanup(srv.Close)
	})

	It("should list all devices", func() {
		var devices []api.Device
		get("/devices", http.StatusOK, &devices)
		Expect(devices).To(HaveLen(4))
		Expect(devices[0].Address).To(Equal("0000:00:00.0"))
		Expect(devices[1].MultiFunction).To(BeTrue())
		Expect(devices[2]).To(Equal(api.Device{
			Address:    "0000:00:1f.2",
			VendorID:   "8086",
			DeviceID:   "2922",
			Vendor:     "Intel Corporation",
			Class:      "010601",
			ClassName:  "Mass storage controller",
			Revision:   0x02,
			HeaderType: 0,
			Capabilities: []api.Capability{
				{ID: pci.CapMSI, Name: "MSI", Offset: 0x80},
				{ID: pci.CapSATA, Name: "SATA Data/Index", Offset: 0xa8},
			},
		}))
	})

	DescribeTable("should filter devices",
		func(query string, expected []string) {
			var devices []api.Device
			get("/devices?"+query, http.StatusOK, &devices)

			addrs := []string{}
			for _, d := range devices {
				addrs = append(addrs, d.Address)
			}
			Expect(addrs).To(Equal(expected))
		},
		Entry("by full class", "class=01&subclass=06&progif=01", []string{"0000:00:1f.2", "0000:01:00.0"}),
		Entry("by class only", "class=06", []string{"0000:00:00.0", "0000:00:1f.0"}),
		Entry("by class and subclass", "class=06&subclass=01", []string{"0000:00:1f.0"}),
		Entry("by capability", "capability=10", []string{"0000:01:00.0"}),
		Entry("by class and capability", "class=01&capability=05", []string{"0000:00:1f.2"}),
		Entry("without match", "class=03", []string{}),
	)

	It("should reject malformed queries", func() {
		get("/devices?class=zz", http.StatusBadRequest, &map[string]string{})
		get("/devices?capability=100", http.StatusBadRequest, &map[string]string{})
	})

	It("should look up single devices", func() {
		var device api.Device
		get("/devices/0000:01:00.0", http.StatusOK, &device)
		Expect(device.VendorID).To(Equal("1b21"))

		get("/devices/00:1f.2", http.StatusOK, &device)
		Expect(device.DeviceID).To(Equal("2922"))

		var failure map[string]string
		get("/devices/0000:00:05.0", http.StatusNotFound, &failure)
		Expect(failure).To(HaveKeyWithValue("error", ContainSubstring("0000:00:05.0")))

		get("/devices/not-an-address", http.StatusBadRequest, &failure)
		Expect(failure).To(HaveKey("error"))
	})

	It("should list events", func() {
		var events []api.Event
		get("/events", http.StatusOK, &events)
		Expect(events).To(ConsistOf(And(
			HaveField("Address", "0000:01:00.0"),
			HaveField("Reason", "Test"),
			HaveField("Message", "recorded 1"),
		)))
	})

	It("should expose metrics", func() {
		resp, err := http.Get(srv.URL + "/metrics")
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring("pci_discovery_functions_total 4"))
	})

	It("should only serve reads", func() {
		resp, err := http.Post(srv.URL+"/devices", "application/json", nil)
		Expect(err).NotTo(HaveOccurred())
		_ = resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
	})
})
