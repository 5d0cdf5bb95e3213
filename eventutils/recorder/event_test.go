// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package recorder_test

import (
	"sync/atomic"
	"time"

	"github.com/ironcore-dev/pci-discovery/eventutils/recorder"
	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

var _ = Describe("Store", func() {
	var (
		store *recorder.Store
		now   atomic.Int64
	)

	BeforeEach(func() {
		now.Store(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC).Unix())
		store = recorder.NewEventStore(logf.Log, recorder.EventStoreOptions{
			MaxEvents: 3,
			TTL:       time.Minute,
		})
		store.SetClock(func() time.Time { return time.Unix(now.Load(), 0) })
	})

	It("should record formatted events in order", func() {
		store.Eventf(pci.Address{Bus: 1}, recorder.EventTypeWarning, "FunctionFault", "vendor id: %s", "timeout")
		store.Eventf(pci.Address{Bus: 2}, recorder.EventTypeNormal, "BridgeSuppressed", "bus %#02x", 3)

		events := store.ListEvents()
		Expect(events).To(HaveLen(2))
		Expect(events[0]).To(HaveField("Address", pci.Address{Bus: 1}))
		Expect(events[0]).To(HaveField("Message", "vendor id: timeout"))
		Expect(events[1]).To(HaveField("Reason", "BridgeSuppressed"))
		Expect(events[1]).To(HaveField("Message", "bus 0x03"))
	})

	It("should override the oldest event when full", func() {
		for bus := range uint8(5) {
			store.Eventf(pci.Address{Bus: bus}, recorder.EventTypeNormal, "Test", "event %d", bus)
		}

		events := store.ListEvents()
		Expect(events).To(HaveLen(3))
		Expect(events[0].Address.Bus).To(Equal(uint8(2)))
		Expect(events[2].Address.Bus).To(Equal(uint8(4)))
	})

	It("should hand out copies", func() {
		store.Eventf(pci.Address{}, recorder.EventTypeNormal, "Test", "original")
		store.ListEvents()[0].Message = "changed"
		Expect(store.ListEvents()[0].Message).To(Equal("original"))
	})

	It("should expire events after their TTL", func() {
		store.Eventf(pci.Address{Bus: 1}, recorder.EventTypeNormal, "Test", "old")
		now.Add(30)
		store.Eventf(pci.Address{Bus: 2}, recorder.EventTypeNormal, "Test", "new")

		now.Add(40)
		store.RemoveExpiredEvents()
		Expect(store.ListEvents()).To(ConsistOf(HaveField("Message", "new")))

		now.Add(60)
		store.RemoveExpiredEvents()
		Expect(store.ListEvents()).To(BeEmpty())
	})

	It("should expire events in the background", func(ctx SpecContext) {
		store = recorder.NewEventStore(logf.Log, recorder.EventStoreOptions{
			TTL:            time.Second,
			ResyncInterval: 10 * time.Millisecond,
		})
		store.SetClock(func() time.Time { return time.Unix(now.Load(), 0) })
		store.Eventf(pci.Address{}, recorder.EventTypeNormal, "Test", "short lived")

		go store.Start(ctx)

		Consistently(store.ListEvents, 100*time.Millisecond).Should(HaveLen(1))
		now.Add(2)
		Eventually(store.ListEvents).Should(BeEmpty())
	})
})

var _ = Describe("EventStoreOptions", func() {
	It("should fill in defaults", func() {
		opts := recorder.EventStoreOptions{}
		opts.Defaults()
		Expect(opts).To(Equal(recorder.EventStoreOptions{
			MaxEvents:      1000,
			TTL:            time.Hour,
			ResyncInterval: time.Minute,
		}))
	})
})
