// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sim simulates the parts of an STM32L0/L1 device the bootloader
// uses: program flash, data EEPROM and RAM on one bus, the NVM controller
// with its key sequences, busy and end-of-operation flags, the CRC unit,
// the MSI clock switch, a diagnostic LED and the system reset.
//
// A system reset unwinds the calling goroutine with a *Reset value. Run
// recovers it, so code under test behaves as if the device rebooted.
package sim

import (
	"fmt"

	"github.com/embeddedgo/boot/flash"
	"github.com/embeddedgo/boot/mcu"
)

// Config describes the simulated device.
type Config struct {
	Family     mcu.Family
	Geometry   flash.Geometry
	FlashBase  uint32
	FlashSize  uint32
	EEPROMBase uint32
	EEPROMSize uint32
	RAMBase    uint32
	RAMSize    uint32
	BusyPolls  int  // SR reads that return BSY after an operation starts
	LED        bool // board has a diagnostic LED
}

// STM32L072 is a Cat. 5 STM32L0 with 192 KiB flash and 6 KiB data EEPROM.
var STM32L072 = Config{
	Family:     mcu.L0,
	Geometry:   flash.L0,
	FlashBase:  0x08000000,
	FlashSize:  192 * 1024,
	EEPROMBase: 0x08080000,
	EEPROMSize: 6 * 1024,
	RAMBase:    0x20000000,
	RAMSize:    20 * 1024,
	BusyPolls:  2,
	LED:        true,
}

// STM32L151 is an STM32L1 with 128 KiB flash and 4 KiB data EEPROM.
var STM32L151 = Config{
	Family:     mcu.L1,
	Geometry:   flash.L1,
	FlashBase:  0x08000000,
	FlashSize:  128 * 1024,
	EEPROMBase: 0x08080000,
	EEPROMSize: 4 * 1024,
	RAMBase:    0x20000000,
	RAMSize:    16 * 1024,
	BusyPolls:  3,
	LED:        true,
}

type region struct {
	base  uint32
	words []uint32
}

func (r *region) contains(addr uint32) bool {
	return addr >= r.base && addr-r.base < uint32(len(r.words))*4
}

func (r *region) end() uint32 {
	return r.base + uint32(len(r.words))*4
}

// Device is a simulated microcontroller. It is not safe for concurrent use.
type Device struct {
	cfg    Config
	flash  region
	eeprom region
	ram    region

	FlashRegs mcu.Flash
	CRCRegs   mcu.CRC
	RCCRegs   mcu.RCC

	// NVM controller
	acr, pecr, sr uint32
	pekeySeq      int
	prgkeySeq     int
	keyErr        bool
	busy          int
	pending       uint32
	latch         []uint32
	latchBase     uint32
	ops           int
	failAt        map[int]bool

	// CRC unit
	crc, crcCR uint32

	// RCC
	rccCR, icscr, cfgr, ahbenr uint32

	irqOff  bool
	ledInit bool
	ledOn   bool
	trace   []Level
	execs   int
	resets  int
}

// New returns a powered-on device with erased (zero) memories.
func New(cfg Config) *Device {
	d := &Device{
		cfg:    cfg,
		flash:  region{cfg.FlashBase, make([]uint32, cfg.FlashSize/4)},
		eeprom: region{cfg.EEPROMBase, make([]uint32, cfg.EEPROMSize/4)},
		ram:    region{cfg.RAMBase, make([]uint32, cfg.RAMSize/4)},
		failAt: make(map[int]bool),
	}
	d.FlashRegs = mcu.Flash{
		ACR:     &reg{func() uint32 { return d.acr }, func(v uint32) { d.acr = v & mcu.LATENCY }},
		PECR:    &reg{func() uint32 { return d.pecr }, d.storePECR},
		PEKEYR:  &reg{func() uint32 { return 0 }, d.storePEKEYR},
		PRGKEYR: &reg{func() uint32 { return 0 }, d.storePRGKEYR},
		SR:      &reg{d.loadSR, func(v uint32) { d.sr &^= v &^ (mcu.BSY | mcu.READY) }},
	}
	d.CRCRegs = mcu.CRC{
		DR: &reg{d.loadCRCDR, d.storeCRCDR},
		CR: &reg{func() uint32 { return d.crcCR }, d.storeCRCCR},
	}
	d.RCCRegs = mcu.RCC{
		CR:     &reg{func() uint32 { return d.rccCR }, d.storeRCCCR},
		ICSCR:  &reg{func() uint32 { return d.icscr }, func(v uint32) { d.icscr = v }},
		CFGR:   &reg{func() uint32 { return d.cfgr }, d.storeCFGR},
		AHBENR: &reg{func() uint32 { return d.ahbenr }, func(v uint32) { d.ahbenr = v }},
	}
	d.powerOn()
	return d
}

func (d *Device) powerOn() {
	d.acr = 0
	d.pecr = mcu.PELOCK | mcu.PRGLOCK | mcu.OPTLOCK
	d.sr = mcu.READY
	d.pekeySeq, d.prgkeySeq = 0, 0
	d.keyErr = false
	d.busy, d.pending = 0, 0
	d.latch = d.latch[:0]
	d.crc, d.crcCR = ^uint32(0), 0
	// reset clock: MSI 2.1 MHz
	d.rccCR = mcu.MSION | mcu.MSIRDY
	d.icscr = mcu.MSIRANGE_5
	d.cfgr = 0
	d.ahbenr = 0
	d.irqOff = false
	d.ledInit, d.ledOn = false, false
	d.trace = nil
}

// Config returns the device configuration.
func (d *Device) Config() Config { return d.cfg }

type reg struct {
	load  func() uint32
	store func(uint32)
}

func (r *reg) Load() uint32   { return r.load() }
func (r *reg) Store(v uint32) { r.store(v) }

// BusFault is the panic value of an access outside the memory map.
type BusFault struct {
	Addr  uint32
	Write bool
}

func (f *BusFault) Error() string {
	op := "read"
	if f.Write {
		op = "write"
	}
	return fmt.Sprintf("sim: bus fault: %s at %#08x", op, f.Addr)
}

func (d *Device) regionOf(addr uint32) *region {
	switch {
	case d.flash.contains(addr):
		return &d.flash
	case d.eeprom.contains(addr):
		return &d.eeprom
	case d.ram.contains(addr):
		return &d.ram
	}
	return nil
}

// Load implements mcu.Memory.
func (d *Device) Load(addr uint32) uint32 {
	r := d.regionOf(addr)
	if r == nil || addr&3 != 0 {
		panic(&BusFault{addr, false})
	}
	return r.words[(addr-r.base)/4]
}

// Store implements mcu.Memory. Stores into flash and EEPROM go through the
// NVM controller.
func (d *Device) Store(addr, v uint32) {
	r := d.regionOf(addr)
	if r == nil || addr&3 != 0 {
		panic(&BusFault{addr, true})
	}
	switch r {
	case &d.flash:
		d.programFlash(addr, v)
	case &d.eeprom:
		d.programEEPROM(addr, v)
	default:
		r.words[(addr-r.base)/4] = v
	}
}

// DisableIRQ implements fault.Core.
func (d *Device) DisableIRQ() { d.irqOff = true }

// IRQDisabled reports whether interrupts are masked.
func (d *Device) IRQDisabled() bool { return d.irqOff }

// HalfPageExecs returns the number of half-page routine calls so far.
func (d *Device) HalfPageExecs() int { return d.execs }

// Resets returns the number of system resets so far.
func (d *Device) Resets() int { return d.resets }
