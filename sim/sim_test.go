// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"bytes"
	"errors"
	"testing"

	"github.com/embeddedgo/boot/fault"
	"github.com/embeddedgo/boot/mcu"
)

const testAddr = 0x08010000

func unlock(d *Device) {
	d.FlashRegs.PEKEYR.Store(mcu.PEKEY1)
	d.FlashRegs.PEKEYR.Store(mcu.PEKEY2)
	d.FlashRegs.PRGKEYR.Store(mcu.PRGKEY1)
	d.FlashRegs.PRGKEYR.Store(mcu.PRGKEY2)
}

func waitEOP(t *testing.T, d *Device) {
	t.Helper()
	for d.FlashRegs.SR.Load()&mcu.BSY != 0 {
	}
	if d.FlashRegs.SR.Load()&mcu.EOP == 0 {
		t.Fatalf("no EOP, SR=%#x", d.FlashRegs.SR.Load())
	}
	d.FlashRegs.SR.Store(mcu.EOP)
}

func TestPowerOn(t *testing.T) {
	d := New(STM32L072)
	if !d.Locked() {
		t.Error("NVM controller unlocked at power on")
	}
	if got := d.FlashRegs.PECR.Load(); got != mcu.PELOCK|mcu.PRGLOCK|mcu.OPTLOCK {
		t.Errorf("PECR: got 0x%08X", got)
	}
	if d.RCCRegs.CR.Load()&mcu.MSIRDY == 0 {
		t.Error("MSI not ready")
	}
}

func TestUnlockSequence(t *testing.T) {
	d := New(STM32L072)
	unlock(d)
	if got := d.FlashRegs.PECR.Load(); got&(mcu.PELOCK|mcu.PRGLOCK) != 0 {
		t.Fatalf("PECR after keys: 0x%08X", got)
	}
	mcu.SetBits(d.FlashRegs.PECR, mcu.PELOCK)
	if got := d.FlashRegs.PECR.Load(); got&(mcu.PELOCK|mcu.PRGLOCK) != mcu.PELOCK|mcu.PRGLOCK {
		t.Fatalf("PECR after relock: 0x%08X", got)
	}
	unlock(d)
	if d.Locked() {
		t.Fatal("second unlock failed")
	}
}

func TestWrongKey(t *testing.T) {
	d := New(STM32L072)
	d.FlashRegs.PEKEYR.Store(mcu.PEKEY1)
	d.FlashRegs.PEKEYR.Store(mcu.PRGKEY2)
	unlock(d)
	if !d.Locked() {
		t.Fatal("unlocked after a wrong key")
	}
	d.Store(testAddr, 1)
	if d.Errors()&mcu.WRPERR == 0 {
		t.Error("no WRPERR on a write to locked flash")
	}
	if got := d.Load(testAddr); got != 0 {
		t.Errorf("locked flash modified: 0x%08X", got)
	}
	rst := d.Run(d.SystemReset)
	if rst == nil {
		t.Fatal("no reset")
	}
	unlock(d)
	if d.Locked() {
		t.Error("key error survived the reset")
	}
}

func TestProgram(t *testing.T) {
	d := New(STM32L072)
	unlock(d)
	d.Store(testAddr, 0xCAFEBABE)
	waitEOP(t, d)
	if got := d.Load(testAddr); got != 0xCAFEBABE {
		t.Fatalf("got 0x%08X", got)
	}
	d.Store(testAddr, 1)
	if d.Errors()&mcu.NOTZEROERR == 0 {
		t.Error("no NOTZEROERR")
	}
	d.FlashRegs.SR.Store(mcu.NOTZEROERR)
	if d.Errors() != 0 {
		t.Error("error flag not cleared")
	}
	mcu.SetBits(d.FlashRegs.PECR, mcu.PROG|mcu.ERASE)
	d.Store(testAddr+8, 0)
	waitEOP(t, d)
	if got := d.Load(testAddr); got != 0 {
		t.Errorf("page not erased: 0x%08X", got)
	}
	if d.Ops() != 2 {
		t.Errorf("got %d operations, want 2", d.Ops())
	}
}

func TestHalfPageLatch(t *testing.T) {
	d := New(STM32L072)
	unlock(d)
	mcu.SetBits(d.FlashRegs.PECR, mcu.PROG|mcu.FPRG)
	d.Store(testAddr+4, 1)
	if d.Errors()&mcu.PGAERR == 0 {
		t.Error("no PGAERR for an unaligned half-page")
	}
	d.FlashRegs.SR.Store(mcu.PGAERR)
	for i := uint32(0); i < 16; i++ {
		d.Store(testAddr+i*4, i+1)
		if i < 15 && d.Load(testAddr) != 0 {
			t.Fatal("half-page programmed before the last word")
		}
	}
	waitEOP(t, d)
	for i := uint32(0); i < 16; i++ {
		if got := d.Load(testAddr + i*4); got != i+1 {
			t.Fatalf("word %d: got %d", i, got)
		}
	}
}

func TestFailOp(t *testing.T) {
	d := New(STM32L072)
	unlock(d)
	d.FailOp(2)
	d.Store(testAddr, 1)
	waitEOP(t, d)
	d.Store(testAddr+4, 2)
	for d.FlashRegs.SR.Load()&mcu.BSY != 0 {
	}
	if d.FlashRegs.SR.Load()&mcu.EOP != 0 {
		t.Error("failed operation set EOP")
	}
	if got := d.Load(testAddr + 4); got != 0 {
		t.Errorf("failed operation modified memory: 0x%08X", got)
	}
}

func TestEEPROM(t *testing.T) {
	d := New(STM32L072)
	addr := d.Config().EEPROMBase
	d.Store(addr, 5)
	if d.Errors()&mcu.WRPERR == 0 || d.Load(addr) != 0 {
		t.Fatal("locked EEPROM written")
	}
	d.FlashRegs.SR.Store(mcu.WRPERR)
	d.FlashRegs.PEKEYR.Store(mcu.PEKEY1)
	d.FlashRegs.PEKEYR.Store(mcu.PEKEY2)
	d.Store(addr, 5)
	waitEOP(t, d)
	d.Store(addr, 6)
	waitEOP(t, d)
	if got := d.Load(addr); got != 6 {
		t.Errorf("got %d, want 6", got)
	}
}

func TestBusFault(t *testing.T) {
	d := New(STM32L072)
	defer func() {
		var bf *BusFault
		err, _ := recover().(error)
		if !errors.As(err, &bf) || bf.Addr != 0x30000000 || bf.Write {
			t.Errorf("got %v", err)
		}
	}()
	d.Load(0x30000000)
}

func TestRunPropagates(t *testing.T) {
	d := New(STM32L072)
	defer func() {
		if v := recover(); v != "other" {
			t.Errorf("got %v", v)
		}
	}()
	d.Run(func() { panic("other") })
}

func TestPokePeek(t *testing.T) {
	d := New(STM32L072)
	data := []byte{1, 2, 3, 4, 5, 6, 7}
	if err := d.Poke(testAddr+1, data); err != nil {
		t.Fatal(err)
	}
	got, err := d.Peek(testAddr, 8)
	if err != nil {
		t.Fatal(err)
	}
	if want := append([]byte{0}, data...); !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
	if got := d.Load(testAddr); got != 0x03020100 {
		t.Errorf("got 0x%08X", got)
	}
	end := d.Config().FlashBase + d.Config().FlashSize
	var e *Error
	if err := d.Poke(end-2, data); !errors.As(err, &e) || e.Op != "poke" {
		t.Errorf("poke across the end of flash: %v", err)
	}
	if _, err := d.Peek(0x40000000, 4); err == nil {
		t.Error("peek outside the memory map succeeded")
	}
}

func TestHexRoundTrip(t *testing.T) {
	d := New(STM32L072)
	fw := make([]byte, 700)
	for i := range fw {
		fw[i] = byte(i*7 + 3)
	}
	if err := d.Poke(0x08003000, fw); err != nil {
		t.Fatal(err)
	}
	if err := d.PokeWords(d.Config().EEPROMBase, 0x08020000, 0x08020000); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := d.DumpHex(&buf); err != nil {
		t.Fatal(err)
	}
	d2 := New(STM32L072)
	if err := d2.LoadHex(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := d2.Peek(0x08003000, len(fw))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, fw) {
		t.Error("flash content differs")
	}
	if p := d2.Load(d.Config().EEPROMBase + 4); p != 0x08020000 {
		t.Errorf("EEPROM: got 0x%08X", p)
	}
}

func TestDecodeBlinks(t *testing.T) {
	d := New(STM32L072)
	h := &fault.Handler{Core: d, RCC: &d.RCCRegs, Flash: &d.FlashRegs, LED: d.LED(), Delay: d.Delay}
	rst := d.Run(func() { h.Panic(fault.Bootloader, fault.Update, 0x08020000) })
	codes, err := DecodeBlinks(rst.Trace)
	if err != nil {
		t.Fatal(err)
	}
	want := fault.Code{Kind: fault.Bootloader, Reason: fault.Update, Addr: 0x08020000}
	if len(codes) != fault.Repeat || codes[0] != want {
		t.Errorf("got %v, want %d x %v", codes, fault.Repeat, want)
	}
	bad := [][]Level{
		{{On: true, Units: 3}},
		{{On: true, Units: fault.LongUnits}},
		{{On: true, Units: fault.LongUnits}, {On: false, Units: fault.LongUnits}, {On: true, Units: 1}, {On: false, Units: 4}},
	}
	for i, tr := range bad {
		if _, err := DecodeBlinks(tr); err == nil {
			t.Errorf("%d: bad trace accepted", i)
		}
	}
}
