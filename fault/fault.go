// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fault implements the terminal fault path of the bootloader: bring
// the clock to a known state, blink a diagnostic code and reset.
package fault

import (
	"fmt"

	"github.com/embeddedgo/boot/mcu"
)

// Kind tells who raised the fault.
type Kind uint32

const (
	Exception  Kind = 0
	Bootloader Kind = 1
	Firmware   Kind = 2 // reason codes are application specific
)

func (k Kind) String() string {
	switch k {
	case Exception:
		return "exception"
	case Bootloader:
		return "bootloader"
	case Firmware:
		return "firmware"
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// Reason codes used by the bootloader.
type Reason uint32

const (
	FWReturn Reason = 0 // firmware returned unexpectedly
	CRC      Reason = 1 // firmware CRC verification failed
	Flash    Reason = 2 // flash erase or program failed
	Update   Reason = 3 // update could not be installed
)

func (r Reason) String() string {
	switch r {
	case FWReturn:
		return "fwreturn"
	case CRC:
		return "crc"
	case Flash:
		return "flash"
	case Update:
		return "update"
	}
	return fmt.Sprintf("reason(%d)", uint32(r))
}

// Code is the diagnostic triple carried into the fault path.
type Code struct {
	Kind   Kind
	Reason Reason
	Addr   uint32
}

func (c Code) String() string {
	return fmt.Sprintf("%v/%v@%#x", c.Kind, c.Reason, c.Addr)
}

// Core is the part of the CPU core the fault path needs.
type Core interface {
	DisableIRQ()
	// SystemReset requests a system reset. It does not return.
	SystemReset()
}

// LED is the diagnostic indicator.
type LED interface {
	Init()
	Set(on bool)
}

// Panicker is implemented by Handler. Components that must escalate
// unrecoverable errors accept it.
type Panicker interface {
	Panic(kind Kind, reason Reason, addr uint32)
}

// Repeat is the number of times the diagnostic frame is blinked.
const Repeat = 5

// Handler is the panic handler.
type Handler struct {
	Core  Core
	RCC   *mcu.RCC
	Flash *mcu.Flash
	LED   LED             // nil if the board has no indicator
	Delay func(units int) // busy delay used by the blink encoder
}

// Panic disables interrupts, switches the system clock to MSI, blinks the
// diagnostic code (if an LED is configured) and resets the device. It never
// returns.
func (h *Handler) Panic(kind Kind, reason Reason, addr uint32) {
	h.Core.DisableIRQ()

	// MSI @ 2.1 MHz
	rcc := h.RCC
	mcu.StoreBits(rcc.ICSCR, mcu.MSIRANGE, mcu.MSIRANGE_5)
	mcu.SetBits(rcc.CR, mcu.MSION)
	for rcc.CR.Load()&mcu.MSIRDY == 0 {
	}
	mcu.StoreBits(rcc.CFGR, mcu.SW, mcu.SW_MSI)
	for rcc.CFGR.Load()&mcu.SWS != mcu.SWS_MSI {
	}
	// no wait states at this clock
	mcu.ClearBits(h.Flash.ACR, mcu.LATENCY)

	if h.LED != nil {
		h.LED.Init()
		for i := 0; i < Repeat; i++ {
			h.frame(Code{kind, reason, addr})
		}
	}
	h.Core.SystemReset()
	for {
	}
}

// FirmwarePanic is the entry exported to the firmware through the boot table.
func (h *Handler) FirmwarePanic(reason Reason, addr uint32) {
	h.Panic(Firmware, reason, addr)
}
