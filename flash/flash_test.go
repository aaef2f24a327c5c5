// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flash_test

import (
	"testing"

	"github.com/embeddedgo/boot/fault"
	"github.com/embeddedgo/boot/flash"
	"github.com/embeddedgo/boot/sim"
)

const area = 0x08010000

func newEngine(t *testing.T, cfg sim.Config) (*sim.Device, *flash.Engine) {
	t.Helper()
	d := sim.New(cfg)
	h := &fault.Handler{
		Core:  d,
		RCC:   &d.RCCRegs,
		Flash: &d.FlashRegs,
		LED:   d.LED(),
		Delay: d.Delay,
	}
	return d, flash.New(&d.FlashRegs, d, d, h, cfg.Geometry)
}

func words(n int, seed uint32) []uint32 {
	w := make([]uint32, n)
	for i := range w {
		w[i] = seed + uint32(i)*0x01010101 | 1
	}
	return w
}

func fill(t *testing.T, d *sim.Device, addr uint32, n int, v uint32) {
	t.Helper()
	w := make([]uint32, n)
	for i := range w {
		w[i] = v
	}
	if err := d.PokeWords(addr, w...); err != nil {
		t.Fatal(err)
	}
}

func check(t *testing.T, d *sim.Device, addr uint32, want []uint32) {
	t.Helper()
	for i, w := range want {
		a := addr + uint32(i)*4
		if got := d.Load(a); got != w {
			t.Fatalf("%#08x: got 0x%08X, want 0x%08X", a, got, w)
		}
	}
}

func TestWrite(t *testing.T) {
	tests := []struct {
		name  string
		cfg   sim.Config
		off   uint32
		n     int
		erase bool
		execs int
	}{
		{"L0/pages", sim.STM32L072, 0, 64, true, 4},
		{"L0/words", sim.STM32L072, 4, 5, false, 0},
		{"L0/mixed", sim.STM32L072, 0x38, 20, false, 1},
		{"L0/tail", sim.STM32L072, 0x40, 17, false, 1},
		{"L1/pages", sim.STM32L151, 0, 128, true, 4},
		{"L1/mixed", sim.STM32L151, 0x7c, 40, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, e := newEngine(t, tt.cfg)
			pb := tt.cfg.Geometry.PageBytes()
			if tt.erase {
				fill(t, d, area, 3*int(pb)/4, 0xAAAAAAAA)
			}
			src := words(tt.n, 0x10203040)
			if rst := d.Run(func() { e.Write(area+tt.off, src, tt.erase) }); rst != nil {
				t.Fatalf("reset: %v", rst)
			}
			check(t, d, area+tt.off, src)
			if got := d.HalfPageExecs(); got != tt.execs {
				t.Errorf("got %d half-page writes, want %d", got, tt.execs)
			}
			if tt.erase {
				end := area + tt.off + uint32(tt.n)*4
				if got := d.Load(end); got != 0xAAAAAAAA {
					t.Errorf("word after the written range: got 0x%08X", got)
				}
			}
			if !d.Locked() || !e.Locked() {
				t.Error("controller left unlocked")
			}
			if errs := d.Errors(); errs != 0 {
				t.Errorf("SR errors: %#x", errs)
			}
		})
	}
}

func TestErase(t *testing.T) {
	d, e := newEngine(t, sim.STM32L072)
	fill(t, d, area, 3*32, 0x55555555)
	if rst := d.Run(func() { e.Erase(area+0x10, area+0x90, 0) }); rst != nil {
		t.Fatalf("reset: %v", rst)
	}
	check(t, d, area, make([]uint32, 64))
	check(t, d, area+0x100, []uint32{0x55555555})
	if !d.Locked() {
		t.Error("controller left unlocked")
	}
}

func TestWritePage(t *testing.T) {
	d, e := newEngine(t, sim.STM32L072)
	fill(t, d, area, 32, 0xFFFFFFFF)
	page := words(32, 7)
	if rst := d.Run(func() { e.WritePage(area, page) }); rst != nil {
		t.Fatalf("reset: %v", rst)
	}
	check(t, d, area, page)
}

func TestUnlockNesting(t *testing.T) {
	d, e := newEngine(t, sim.STM32L072)
	outer := e.Unlock()
	if d.Locked() {
		t.Fatal("still locked")
	}
	inner := e.Unlock()
	inner()
	inner()
	if d.Locked() || e.Locked() {
		t.Fatal("inner scope relocked the controller")
	}
	outer()
	if !d.Locked() || !e.Locked() {
		t.Fatal("outer scope left the controller unlocked")
	}
	relock := e.Unlock()
	if d.Locked() {
		t.Fatal("second unlock failed")
	}
	relock()
}

func TestFailure(t *testing.T) {
	tests := []struct {
		name string
		fail int
		run  func(e *flash.Engine)
		diag uint32
	}{
		{"erase", 2, func(e *flash.Engine) { e.Erase(area, area+0x200, 0) }, flash.DiagErase},
		{"erase-diag", 1, func(e *flash.Engine) { e.Erase(area, area+0x80, 7) }, 7},
		{"write-erase", 1, func(e *flash.Engine) { e.Write(area, words(32, 1), true) }, flash.DiagWriteErase},
		{"half-page", 1, func(e *flash.Engine) { e.Write(area, words(16, 1), false) }, flash.DiagHalfPage},
		{"word", 3, func(e *flash.Engine) { e.Write(area+4, words(4, 1), false) }, flash.DiagWord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, e := newEngine(t, sim.STM32L072)
			d.FailOp(tt.fail)
			returned := false
			rst := d.Run(func() {
				tt.run(e)
				returned = true
			})
			if rst == nil || returned {
				t.Fatal("failed operation returned to the caller")
			}
			c, ok := rst.Code()
			want := fault.Code{Kind: fault.Bootloader, Reason: fault.Flash, Addr: tt.diag}
			if !ok || c != want {
				t.Errorf("got %v, want %v", c, want)
			}
			if c.Reason == 0 {
				t.Error("zero reason code")
			}
			if !d.Locked() {
				t.Error("controller unlocked after reset")
			}
		})
	}
}

func TestWriteNotErased(t *testing.T) {
	d, e := newEngine(t, sim.STM32L072)
	fill(t, d, area, 1, 0x12345678)
	rst := d.Run(func() { e.Write(area, []uint32{1}, false) })
	if rst == nil {
		t.Fatal("write over programmed word succeeded")
	}
	want := fault.Code{Kind: fault.Bootloader, Reason: fault.Flash, Addr: flash.DiagWord}
	if c, ok := rst.Code(); !ok || c != want {
		t.Errorf("got %v, want %v", c, want)
	}
	check(t, d, area, []uint32{0x12345678})
}

func TestWriteUnaligned(t *testing.T) {
	_, e := newEngine(t, sim.STM32L072)
	defer func() {
		if recover() == nil {
			t.Error("unaligned write did not panic")
		}
	}()
	e.Write(area+2, []uint32{1}, false)
}
