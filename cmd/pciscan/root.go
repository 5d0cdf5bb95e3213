// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/ironcore-dev/pci-discovery/configutils/config"
	"github.com/ironcore-dev/pci-discovery/eventutils/recorder"
	"github.com/ironcore-dev/pci-discovery/pciutils/enumerate"
	"github.com/ironcore-dev/pci-discovery/pciutils/pciids"
	"github.com/ironcore-dev/pci-discovery/pciutils/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

type app struct {
	platform platform

	configFile string
	flags      config.Options
	names      bool
	zapOpts    zap.Options

	log logr.Logger
}

func newRootCommand(p platform) *cobra.Command {
	a := &app{
		platform: p,
		zapOpts:  zap.Options{Development: true},
	}

	cmd := &cobra.Command{
		Use:          "pciscan",
		Short:        "Discover PCI functions through configuration space",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logf.SetLogger(zap.New(zap.UseFlagOptions(&a.zapOpts), zap.WriteTo(cmd.ErrOrStderr())))
			a.log = logf.Log.WithName("pciscan")
			return nil
		},
	}

	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	a.zapOpts.BindFlags(goFlags)
	cmd.PersistentFlags().AddGoFlagSet(goFlags)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "ini file with discovery settings")
	flags.StringVar(&a.flags.Mechanism, "mechanism", "", "configuration access mechanism: auto, port or mmio")
	flags.StringVar(&a.flags.MCFGPath, "mcfg", "", "path of the ACPI MCFG table")
	flags.StringVar(&a.flags.MemPath, "mem", "", "physical memory device for memory-mapped access")
	flags.StringVar(&a.flags.SysfsPath, "sysfs", "", "sysfs mount point used by verify")
	flags.StringVar(&a.flags.PCIIDsPath, "pci-ids", "", "pci.ids database for names")
	flags.BoolVar(&a.names, "names", false, "resolve vendor, product and class names")

	cmd.AddCommand(
		a.listCommand(),
		a.showCommand(),
		a.matchCommand(),
		a.verifyCommand(),
		a.eventsCommand(),
		a.serveCommand(),
	)
	return cmd
}

// options merges the config file with explicitly set flags.
func (a *app) options(cmd *cobra.Command) (config.Options, error) {
	var opts config.Options
	if a.configFile != "" {
		var err error
		if opts, err = config.Load(a.configFile); err != nil {
			return config.Options{}, err
		}
	}

	flags := cmd.Flags()
	override := func(name string, dst *string, value string) {
		if flags.Changed(name) {
			*dst = value
		}
	}
	override("mechanism", &opts.Mechanism, a.flags.Mechanism)
	override("mcfg", &opts.MCFGPath, a.flags.MCFGPath)
	override("mem", &opts.MemPath, a.flags.MemPath)
	override("sysfs", &opts.SysfsPath, a.flags.SysfsPath)
	override("pci-ids", &opts.PCIIDsPath, a.flags.PCIIDsPath)

	opts.Defaults()
	if err := opts.Validate(); err != nil {
		return config.Options{}, err
	}
	return opts, nil
}

// session is one discovery run and what it produced.
type session struct {
	opts     config.Options
	registry *registry.Registry
	events   *recorder.Store
	metrics  *prometheus.Registry
	names    *pciids.Names
	mapper   windowMapper
}

func (s *session) Close() error {
	return s.mapper.Close()
}

// discover runs discovery. Excluded domains are reported but do not fail
// the command, the remaining devices are still usable.
func (a *app) discover(cmd *cobra.Command) (*session, error) {
	opts, err := a.options(cmd)
	if err != nil {
		return nil, err
	}

	ports, err := a.platform.ports()
	if err != nil {
		a.log.V(1).Info("Legacy ports unavailable", "error", err.Error())
		ports = nil
	}
	mapper := a.platform.mapper(opts.MemPath)

	bridges, err := config.Bridges(a.log, opts, ports, mapper)
	if err != nil {
		return nil, errors.Join(err, mapper.Close())
	}

	s := &session{
		opts:    opts,
		events:  recorder.NewEventStore(a.log.WithName("events"), opts.EventStoreOptions()),
		metrics: prometheus.NewRegistry(),
		mapper:  mapper,
	}
	enumerator := enumerate.New(a.log.WithName("enumerate"),
		enumerate.WithRecorder(s.events),
		enumerate.WithMetrics(enumerate.NewMetrics(s.metrics)),
	)

	start := time.Now()
	s.registry, err = registry.Discover(a.log, enumerator, bridges...)
	if err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	a.log.V(1).Info("Discovered devices", "devices", s.registry.Len(), "duration", time.Since(start).String())

	if a.names || opts.PCIIDsPath != "" {
		names, err := pciids.Load(pciids.Options{Path: opts.PCIIDsPath})
		if err != nil {
			a.log.Error(err, "Names unavailable")
		} else {
			s.names = names
		}
	}
	return s, nil
}

// namer avoids handing a typed nil to interfaces.
func (s *session) namer() namer {
	if s.names == nil {
		return nil
	}
	return s.names
}
