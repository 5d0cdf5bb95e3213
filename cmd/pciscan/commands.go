// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ironcore-dev/pci-discovery/apiutils/api"
	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
	"github.com/ironcore-dev/pci-discovery/pciutils/registry"
	"github.com/spf13/cobra"
)

var errMismatch = errors.New("inventory mismatch")

func (a *app) listCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every discovered function",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			s, err := a.discover(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			return printDevices(cmd.OutOrStdout(), output, s.namer(), s.registry.AllDevices())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func (a *app) showCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show ADDRESS",
		Short: "Show one function and its capabilities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			addr, err := pci.ParseAddress(args[0])
			if err != nil {
				return err
			}

			s, err := a.discover(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			d, ok := s.registry.DeviceAt(addr)
			if !ok {
				return fmt.Errorf("no device at %s", addr)
			}
			return printDevice(cmd.OutOrStdout(), output, s.namer(), d)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func parseMask(s string) (registry.Match, error) {
	var mask registry.Match
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "c", "class":
			mask |= registry.MatchClass
		case "s", "subclass":
			mask |= registry.MatchSubclass
		case "p", "progif":
			mask |= registry.MatchProgIF
		case "":
		default:
			return 0, fmt.Errorf("unknown mask field %q", part)
		}
	}
	return mask, nil
}

func (a *app) matchCommand() *cobra.Command {
	var (
		output string
		mask   string
	)

	cmd := &cobra.Command{
		Use:   "match CLASS SUBCLASS PROGIF",
		Short: "List functions by class code, all values in hex",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			var fields [3]uint8
			for i, arg := range args {
				v, err := strconv.ParseUint(arg, 16, 8)
				if err != nil {
					return fmt.Errorf("invalid class field %q: %w", arg, err)
				}
				fields[i] = uint8(v)
			}
			match, err := parseMask(mask)
			if err != nil {
				return err
			}

			s, err := a.discover(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			return printDevices(cmd.OutOrStdout(), output, s.namer(),
				s.registry.DevicesMatching(fields[0], fields[1], fields[2], match))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	cmd.Flags().StringVar(&mask, "mask", "c,s,p", "class fields to compare: c(lass), s(ubclass), p(rogif)")
	return cmd
}

func (a *app) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Compare the discovered functions with the kernel's view in sysfs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.discover(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			reader, err := a.platform.sysfs(a.log.WithName("sysfs"), s.opts.SysfsPath)
			if err != nil {
				return err
			}
			missing, unexpected, err := s.registry.Diff(reader)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, addr := range missing {
				_, _ = fmt.Fprintf(out, "missing    %s\n", addr)
			}
			for _, addr := range unexpected {
				_, _ = fmt.Fprintf(out, "unexpected %s\n", addr)
			}
			if len(missing) > 0 || len(unexpected) > 0 {
				return fmt.Errorf("%w: %d missing, %d unexpected", errMismatch, len(missing), len(unexpected))
			}
			_, _ = fmt.Fprintf(out, "%d functions match\n", s.registry.Len())
			return nil
		},
	}
}

func (a *app) eventsCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Run discovery and print the recorded events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			s, err := a.discover(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			return printEvents(cmd.OutOrStdout(), output, s.events.ListEvents())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func (a *app) serveCommand() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve one discovery snapshot over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.discover(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return err
			}

			handler := api.NewHandler(a.log.WithName("api"), s.registry,
				api.WithEvents(s.events),
				api.WithNames(s.namer()),
				api.WithGatherer(s.metrics),
			)
			srv := &http.Server{
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx := cmd.Context()
			go s.events.Start(ctx)

			errc := make(chan error, 1)
			go func() {
				errc <- srv.Serve(ln)
			}()
			a.log.Info("Serving discovery snapshot", "address", ln.Addr().String(), "devices", s.registry.Len())

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":8080", "address to listen on")
	return cmd
}
