// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"sigs.k8s.io/controller-runtime/pkg/manager/signals"
)

func main() {
	if err := newRootCommand(hardware()).ExecuteContext(signals.SetupSignalHandler()); err != nil {
		os.Exit(1)
	}
}
