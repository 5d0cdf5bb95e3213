// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package access

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// implemented in ports_linux_amd64.s
func inb(port uint16) uint8
func inw(port uint16) uint16
func inl(port uint16) uint32
func outb(port uint16, value uint8)
func outw(port uint16, value uint16)
func outl(port uint16, value uint32)

// hardwarePorts executes in/out instructions directly. The I/O privilege
// level is per thread, so every instruction runs on a locked thread that has
// raised it.
type hardwarePorts struct{}

// HardwarePorts returns the machine's I/O ports. It requires CAP_SYS_RAWIO.
func HardwarePorts() (Ports, error) {
	var h hardwarePorts
	if err := h.onThread(func() {}); err != nil {
		return nil, err
	}
	return h, nil
}

func (hardwarePorts) onThread(fn func()) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := unix.Iopl(3); err != nil {
		return fmt.Errorf("%w: iopl: %w", ErrUnsupported, err)
	}
	fn()
	return nil
}

func (h hardwarePorts) In8(port uint16) (v uint8, err error) {
	err = h.onThread(func() { v = inb(port) })
	return v, err
}

func (h hardwarePorts) In16(port uint16) (v uint16, err error) {
	err = h.onThread(func() { v = inw(port) })
	return v, err
}

func (h hardwarePorts) In32(port uint16) (v uint32, err error) {
	err = h.onThread(func() { v = inl(port) })
	return v, err
}

func (h hardwarePorts) Out8(port uint16, value uint8) error {
	return h.onThread(func() { outb(port, value) })
}

func (h hardwarePorts) Out16(port uint16, value uint16) error {
	return h.onThread(func() { outw(port, value) })
}

func (h hardwarePorts) Out32(port uint16, value uint32) error {
	return h.onThread(func() { outl(port, value) })
}
