// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package boot is the bootloader entry point. On every reset it installs a
// pending update, if any, verifies the resident firmware and returns its
// entry point. Any failure ends in the fault handler.
//
// The resident firmware starts with a 12-byte header:
//
//	offset 0: size       (bytes, header included)
//	offset 4: crc        (CRC-32 of bytes [8, size))
//	offset 8: entrypoint
package boot

import (
	"github.com/embeddedgo/boot/crc"
	"github.com/embeddedgo/boot/fault"
	"github.com/embeddedgo/boot/flash"
	"github.com/embeddedgo/boot/mcu"
	"github.com/embeddedgo/boot/staging"
	"github.com/embeddedgo/boot/update"
)

// Core is the CPU core: interrupt masking, reset and running code from RAM.
type Core interface {
	fault.Core
	flash.CPU
}

// Hardware lists the device resources used by the bootloader.
type Hardware struct {
	Mem      mcu.Memory
	Flash    *mcu.Flash
	CRC      *mcu.CRC
	RCC      *mcu.RCC
	Core     Core
	LED      fault.LED // nil if none
	Delay    func(units int)
	Family   mcu.Family
	Geometry flash.Geometry
}

// Layout is the memory map of the bootloader.
type Layout struct {
	FirmwareBase uint32
	FirmwareEnd  uint32
	ScratchBase  uint32 // patch updates are disabled if the scratch
	ScratchEnd   uint32 // region is empty
	UpdateBase   uint32 // staged updates must lie in
	UpdateEnd    uint32 // [UpdateBase, UpdateEnd)
	Record       uint32 // update pointer record in data EEPROM
}

// Bootloader ties the components together.
type Bootloader struct {
	hw     Hardware
	layout Layout
	cfg    Config
	fault  *fault.Handler
	crc    *crc.Unit
	flash  *flash.Engine
	inst   *update.Installer
	store  *staging.Store
}

// New returns a bootloader for the device hw with the memory map l.
func New(hw Hardware, l Layout, opts ...Option) *Bootloader {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = update.NopLogger
	}
	b := &Bootloader{hw: hw, layout: l, cfg: cfg}
	b.fault = &fault.Handler{
		Core:  hw.Core,
		RCC:   hw.RCC,
		Flash: hw.Flash,
		LED:   hw.LED,
		Delay: hw.Delay,
	}
	b.crc = &crc.Unit{Regs: hw.CRC, RCC: hw.RCC, Family: hw.Family}
	b.flash = flash.New(hw.Flash, hw.Mem, hw.Core, b.fault, hw.Geometry)
	ul := update.Layout{
		FirmwareBase: l.FirmwareBase,
		FirmwareEnd:  l.FirmwareEnd,
		ScratchBase:  l.ScratchBase,
		ScratchEnd:   l.ScratchEnd,
		UpdateBase:   l.UpdateBase,
		UpdateEnd:    l.UpdateEnd,
		PageBytes:    hw.Geometry.PageBytes(),
	}
	b.inst = update.NewInstaller(hw.Mem, b.flash, b.fault, ul, cfg.PageBuffer, cfg.Logger)
	b.store = &staging.Store{
		Mem:           hw.Mem,
		Regs:          hw.Flash,
		Fault:         b.fault,
		Addr:          l.Record,
		Validator:     b.inst,
		Authenticator: cfg.Authenticator,
	}
	return b
}

// Installer returns the update installer.
func (b *Bootloader) Installer() *update.Installer { return b.inst }

// Store returns the update pointer store.
func (b *Bootloader) Store() *staging.Store { return b.store }

// Fault returns the fault handler.
func (b *Bootloader) Fault() *fault.Handler { return b.fault }

// Boot installs the pending update, verifies the firmware and returns its
// entry point. It does not return if the firmware is corrupt.
func (b *Bootloader) Boot() uint32 {
	log := b.cfg.Logger
	addr, state := b.store.Pending()
	switch state {
	case staging.Staged:
		log.Info("pending update", "addr", addr)
		if err := b.inst.Install(addr, true); err != nil {
			log.Error("update not installed", "addr", addr, "code", uint32(update.CodeOf(err)))
		}
	case staging.Corrupt:
		p1, p2 := b.store.Raw()
		log.Error("corrupt update pointer", "ptr1", p1, "ptr2", p2)
	}
	// Clear before the CRC check: a bad image must not reinstall the same
	// update after the next reset.
	if p1, p2 := b.store.Raw(); p1 != 0 || p2 != 0 {
		b.store.Clear()
	}
	return b.verify()
}

func (b *Bootloader) verify() uint32 {
	mem := b.hw.Mem
	base := b.layout.FirmwareBase
	size := mem.Load(base)
	if size < update.HeaderSize || size&3 != 0 || size > b.layout.FirmwareEnd-base {
		b.cfg.Logger.Error("bad firmware size", "size", size)
		b.fault.Panic(fault.Bootloader, fault.CRC, 0)
		return 0
	}
	sum := b.crc.Checksum(mem, base+8, int(size-8)/4)
	if want := mem.Load(base + 4); sum != want {
		b.cfg.Logger.Error("firmware CRC mismatch", "crc", sum, "want", want)
		b.fault.Panic(fault.Bootloader, fault.CRC, 0)
		return 0
	}
	entry := mem.Load(base + 8)
	if e := entry &^ 1; e < base+update.HeaderSize || e >= base+size {
		b.cfg.Logger.Error("entry point outside firmware", "entry", entry)
		b.fault.Panic(fault.Bootloader, fault.CRC, entry)
		return 0
	}
	b.cfg.Logger.Debug("firmware ok", "size", size, "entry", entry)
	return entry
}

// Run boots and calls jump with the firmware entry point. Firmware never
// returns, if jump does the device faults with FWReturn.
func (b *Bootloader) Run(jump func(entry uint32)) {
	entry := b.Boot()
	jump(entry)
	b.fault.Panic(fault.Bootloader, fault.FWReturn, entry)
}
