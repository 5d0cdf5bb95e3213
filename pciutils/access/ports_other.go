// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

//go:build !(linux && amd64)

package access

func HardwarePorts() (Ports, error) {
	return nil, ErrUnsupported
}
