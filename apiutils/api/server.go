// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package api serves a discovery snapshot over HTTP as JSON.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"github.com/ironcore-dev/pci-discovery/eventutils/recorder"
	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
	"github.com/ironcore-dev/pci-discovery/pciutils/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var errBadQuery = errors.New("bad query")

type Option func(*server)

func WithEvents(events recorder.EventStore) Option {
	return func(s *server) {
		s.events = events
	}
}

func WithNames(names Namer) Option {
	return func(s *server) {
		s.names = names
	}
}

// WithGatherer exposes the metrics of g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *server) {
		s.gatherer = g
	}
}

type server struct {
	log      logr.Logger
	registry *registry.Registry
	events   recorder.EventStore
	names    Namer
	gatherer prometheus.Gatherer
}

// NewHandler returns the read-only query API over reg:
//
//	GET /devices[?class=&subclass=&progif=&capability=]
//	GET /devices/{address}
//	GET /events
//	GET /metrics
//
// Query values are hex.
func NewHandler(log logr.Logger, reg *registry.Registry, opts ...Option) http.Handler {
	s := &server{log: log, registry: reg}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.HandleFunc("/devices", s.listDevices).Methods(http.MethodGet)
	r.HandleFunc("/devices/{address}", s.getDevice).Methods(http.MethodGet)
	r.HandleFunc("/events", s.listEvents).Methods(http.MethodGet)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error(err, "Failed to write response")
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	s.log.V(1).Info("Request failed", "status", status, "error", err.Error())
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *server) listDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.query(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	result := []Device{}
	for d := range devices {
		result = append(result, NewDevice(d, s.names))
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *server) query(r *http.Request) (iter.Seq[pci.PhysicalID], error) {
	values := r.URL.Query()

	var (
		fields [3]uint8
		mask   registry.Match
	)
	for i, param := range []struct {
		name string
		bit  registry.Match
	}{
		{"class", registry.MatchClass},
		{"subclass", registry.MatchSubclass},
		{"progif", registry.MatchProgIF},
	} {
		if !values.Has(param.name) {
			continue
		}
		v, err := strconv.ParseUint(values.Get(param.name), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errBadQuery, param.name, err)
		}
		fields[i] = uint8(v)
		mask |= param.bit
	}
	devices := s.registry.DevicesMatching(fields[0], fields[1], fields[2], mask)

	if !values.Has("capability") {
		return devices, nil
	}
	v, err := strconv.ParseUint(values.Get("capability"), 16, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: capability: %w", errBadQuery, err)
	}
	return func(yield func(pci.PhysicalID) bool) {
		for d := range devices {
			if _, ok := d.Capability(uint8(v)); ok && !yield(d) {
				return
			}
		}
	}, nil
}

func (s *server) getDevice(w http.ResponseWriter, r *http.Request) {
	addr, err := pci.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	d, ok := s.registry.DeviceAt(addr)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("no device at %s", addr))
		return
	}
	s.writeJSON(w, http.StatusOK, NewDevice(d, s.names))
}

func (s *server) listEvents(w http.ResponseWriter, _ *http.Request) {
	result := []Event{}
	if s.events != nil {
		for _, e := range s.events.ListEvents() {
			result = append(result, NewEvent(e))
		}
	}
	s.writeJSON(w, http.StatusOK, result)
}
