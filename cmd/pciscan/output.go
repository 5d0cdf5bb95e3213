// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"
	"text/tabwriter"

	"github.com/ironcore-dev/pci-discovery/apiutils/api"
	"github.com/ironcore-dev/pci-discovery/eventutils/recorder"
	"github.com/ironcore-dev/pci-discovery/pciutils/pci"
)

type namer = api.Namer

const (
	outputTable = "table"
	outputJSON  = "json"
)

func checkOutput(format string) error {
	switch format {
	case outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDevices(w io.Writer, format string, names namer, devices iter.Seq[pci.PhysicalID]) error {
	var views []api.Device
	for d := range devices {
		views = append(views, api.NewDevice(d, names))
	}

	if format == outputJSON {
		if views == nil {
			views = []api.Device{}
		}
		return writeJSON(w, views)
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	if names != nil {
		_, _ = fmt.Fprintln(tw, "ADDRESS\tID\tCLASS\tVENDOR\tPRODUCT\tCAPABILITIES")
	} else {
		_, _ = fmt.Fprintln(tw, "ADDRESS\tID\tCLASS\tCAPABILITIES")
	}
	for _, d := range views {
		var caps []string
		for _, c := range d.Capabilities {
			caps = append(caps, c.Name)
		}
		id := d.VendorID + ":" + d.DeviceID
		if names != nil {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				d.Address, id, orDash(d.ClassName, d.Class), orDash(d.Vendor, ""), orDash(d.Product, ""), strings.Join(caps, ","))
		} else {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Address, id, d.Class, strings.Join(caps, ","))
		}
	}
	return tw.Flush()
}

func orDash(s, fallback string) string {
	switch {
	case s != "":
		return s
	case fallback != "":
		return fallback
	default:
		return "-"
	}
}

func printDevice(w io.Writer, format string, names namer, d pci.PhysicalID) error {
	view := api.NewDevice(d, names)
	if format == outputJSON {
		return writeJSON(w, view)
	}

	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Address:\t%s\n", view.Address)
	_, _ = fmt.Fprintf(tw, "ID:\t%s:%s\n", view.VendorID, view.DeviceID)
	if view.Vendor != "" || view.Product != "" {
		_, _ = fmt.Fprintf(tw, "Name:\t%s %s\n", orDash(view.Vendor, ""), orDash(view.Product, ""))
	}
	_, _ = fmt.Fprintf(tw, "Class:\t%s (rev %02x)\n", orDash(view.ClassName, view.Class), view.Revision)
	_, _ = fmt.Fprintf(tw, "Header type:\t%02x\n", view.HeaderType)
	_, _ = fmt.Fprintf(tw, "Multi-function:\t%t\n", view.MultiFunction)
	_, _ = fmt.Fprintf(tw, "Bridge:\t%t\n", view.Bridge)
	_, _ = fmt.Fprintln(tw, "Capabilities:\t")
	for _, c := range view.Capabilities {
		_, _ = fmt.Fprintf(tw, "  [%02x]\t%s (%#02x)\n", c.Offset, c.Name, c.ID)
	}
	return tw.Flush()
}

func printEvents(w io.Writer, format string, events []*recorder.Event) error {
	views := []api.Event{}
	for _, e := range events {
		views = append(views, api.NewEvent(e))
	}
	if format == outputJSON {
		return writeJSON(w, views)
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ADDRESS\tTYPE\tREASON\tMESSAGE")
	for _, e := range views {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Address, e.Type, e.Reason, e.Message)
	}
	return tw.Flush()
}
