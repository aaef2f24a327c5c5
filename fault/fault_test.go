// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fault_test

import (
	"testing"

	"github.com/embeddedgo/boot/fault"
	"github.com/embeddedgo/boot/mcu"
	"github.com/embeddedgo/boot/sim"
)

func newHandler(cfg sim.Config) (*sim.Device, *fault.Handler) {
	d := sim.New(cfg)
	return d, &fault.Handler{
		Core:  d,
		RCC:   &d.RCCRegs,
		Flash: &d.FlashRegs,
		LED:   d.LED(),
		Delay: d.Delay,
	}
}

func TestPanic(t *testing.T) {
	tests := []fault.Code{
		{Kind: fault.Bootloader, Reason: fault.CRC, Addr: 0},
		{Kind: fault.Bootloader, Reason: fault.Flash, Addr: 4},
		{Kind: fault.Firmware, Reason: 0x1f, Addr: 0x08003101},
		{Kind: fault.Exception, Reason: fault.FWReturn, Addr: 0xffffffff},
	}
	for _, want := range tests {
		t.Run(want.String(), func(t *testing.T) {
			d, h := newHandler(sim.STM32L072)
			// leave MSI: HSI16, one wait state
			d.RCCRegs.CFGR.Store(1)
			d.RCCRegs.ICSCR.Store(6 << 13)
			d.FlashRegs.ACR.Store(mcu.LATENCY)
			returned := false
			rst := d.Run(func() {
				h.Panic(want.Kind, want.Reason, want.Addr)
				returned = true
			})
			if rst == nil || returned {
				t.Fatal("Panic returned")
			}
			if !rst.IRQDisabled {
				t.Error("interrupts enabled at reset")
			}
			if !rst.MSI || rst.MSIRange != mcu.MSIRANGE_5 || rst.Latency != 0 {
				t.Errorf("clock: MSI=%t range=%#x latency=%d", rst.MSI, rst.MSIRange, rst.Latency)
			}
			codes, err := rst.Codes()
			if err != nil {
				t.Fatal(err)
			}
			if len(codes) != fault.Repeat {
				t.Fatalf("got %d frames, want %d", len(codes), fault.Repeat)
			}
			for _, c := range codes {
				if c != want {
					t.Errorf("got %v, want %v", c, want)
				}
			}
			if d.Resets() != 1 {
				t.Errorf("got %d resets, want 1", d.Resets())
			}
		})
	}
}

func TestPanicNoLED(t *testing.T) {
	cfg := sim.STM32L072
	cfg.LED = false
	d, h := newHandler(cfg)
	if h.LED != nil {
		t.Fatal("unexpected LED")
	}
	rst := d.Run(func() { h.Panic(fault.Bootloader, fault.Update, 0x08020000) })
	if rst == nil {
		t.Fatal("no reset")
	}
	if len(rst.Trace) != 0 {
		t.Errorf("LED activity without LED: %v", rst.Trace)
	}
}

func TestFirmwarePanic(t *testing.T) {
	d, h := newHandler(sim.STM32L151)
	rst := d.Run(func() { h.FirmwarePanic(7, 0x1234) })
	if rst == nil {
		t.Fatal("no reset")
	}
	c, ok := rst.Code()
	want := fault.Code{Kind: fault.Firmware, Reason: 7, Addr: 0x1234}
	if !ok || c != want {
		t.Errorf("got %v, want %v", c, want)
	}
}
