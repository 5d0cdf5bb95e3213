// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	EventTypeNormal  = "Normal"
	EventTypeWarning = "Warning"
)

// EventRecorder defines an interface for recording discovery events
type EventRecorder interface {
	Eventf(address pci.Address, eventType string, reason string, messageFormat string, args ...any)
}

// EventStore defines an interface for listing events
type EventStore interface {
	ListEvents() []*Event
}

type Event struct {
	Address   pci.Address
	Type      string
	Reason    string
	Message   string
	EventTime int64
}

// EventStoreOptions defines options to initialize the discovery event store
type EventStoreOptions struct {
	MaxEvents      int
	TTL            time.Duration
	ResyncInterval time.Duration
}

func (o *EventStoreOptions) Defaults() {
	if o.MaxEvents <= 0 {
		o.MaxEvents = 1000
	}

	if o.TTL <= 0 {
		o.TTL = time.Hour
	}

	if o.ResyncInterval <= 0 {
		o.ResyncInterval = time.Minute
	}
}

// Store implements the EventRecorder and EventStore interface
// and represents an in-memory event store with TTL for events.
type Store struct {
	maxEvents           int           // Maximum number of events in the store
	events              []*Event      // Slice of events
	mutex               sync.Mutex    // Mutex for thread safety
	eventTTL            time.Duration // TTL for events
	eventResyncInterval time.Duration // Resync interval for event store's TTL expiration check
	head                int           // Index of the oldest event
	count               int           // Current number of events in the store
	log                 logr.Logger   // Logger for logging overridden events
	now                 func() time.Time
}

// NewEventStore creates a new EventStore with a fixed number of events and set TTL for events.
func NewEventStore(log logr.Logger, opts EventStoreOptions) *Store {
	opts.Defaults()

	return &Store{
		maxEvents:           opts.MaxEvents,
		events:              make([]*Event, opts.MaxEvents),
		eventTTL:            opts.TTL,
		eventResyncInterval: opts.ResyncInterval,
		log:                 log,
		now:                 time.Now,
	}
}

// Eventf logs and records an event with formatted message.
func (es *Store) Eventf(address pci.Address, eventType, reason, messageFormat string, args ...any) {
	message := fmt.Sprintf(messageFormat, args...)
	es.log.V(2).Info("Recording event", "address", address, "type", eventType, "reason", reason, "message", message)
	es.recordEvent(address, eventType, reason, message)
}

// recordEvent adds a new Event to the store.
func (es *Store) recordEvent(address pci.Address, eventType, reason, message string) {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	index := (es.head + es.count) % es.maxEvents

	// If the store is full, overwrite the oldest event and move the head
	if es.count == es.maxEvents {
		es.log.V(1).Info("Overriding event", "event", es.events[es.head])
		es.head = (es.head + 1) % es.maxEvents
	} else {
		es.count++
	}

	es.events[index] = &Event{
		Address:   address,
		Type:      eventType,
		Reason:    reason,
		Message:   message,
		EventTime: es.now().Unix(),
	}
}

// removeExpiredEvents checks and removes events whose TTL has expired.
func (es *Store) removeExpiredEvents() {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	now := es.now()

	for es.count > 0 {
		event := es.events[es.head]
		if time.Unix(event.EventTime, 0).Add(es.eventTTL).After(now) {
			break
		}

		es.events[es.head] = nil
		es.head = (es.head + 1) % es.maxEvents
		es.count--
	}
}

// Start runs the event store's TTL expiration check until ctx is done.
func (es *Store) Start(ctx context.Context) {
	wait.UntilWithContext(ctx, func(ctx context.Context) {
		es.removeExpiredEvents()
	}, es.eventResyncInterval)
}

// ListEvents returns a copy of all events currently in the store, oldest first.
func (es *Store) ListEvents() []*Event {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	result := make([]*Event, 0, es.count)
	for i := 0; i < es.count; i++ {
		event := *es.events[(es.head+i)%es.maxEvents]
		result = append(result, &event)
	}

	return result
}
