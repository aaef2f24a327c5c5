// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package flash erases and programs the on-chip program memory in the units
// the NVM controller requires: words, half-pages and pages.
//
// Every failed end-of-operation check is fatal and goes to the fault
// handler: flash programming has no rollback, so there is no degraded state
// to return to and a failed operation is never retried.
package flash

import (
	"github.com/embeddedgo/boot/fault"
	"github.com/embeddedgo/boot/mcu"
)

// Diagnostic addresses reported with fault.Flash.
const (
	DiagErase      = 1 // range erase
	DiagWriteErase = 2 // erase before write
	DiagHalfPage   = 3 // half-page program
	DiagWord       = 4 // word program
)

// Geometry describes the program memory organization.
type Geometry struct {
	PageWords     int    // erase unit
	HalfPageWords int    // fast program unit
	SR            uint32 // bus address of FLASH_SR, used by the RAM routine
}

var (
	L0 = Geometry{PageWords: 32, HalfPageWords: 16, SR: 0x40022018}
	L1 = Geometry{PageWords: 64, HalfPageWords: 32, SR: 0x40023C18}
)

// PageBytes returns the page size in bytes.
func (g Geometry) PageBytes() uint32 { return uint32(g.PageWords) * 4 }

// HalfPageBytes returns the half-page size in bytes.
func (g Geometry) HalfPageBytes() uint32 { return uint32(g.HalfPageWords) * 4 }

// CPU runs code from RAM.
type CPU interface {
	// ExecRAM calls the position-independent routine code, that must be a
	// RAM-resident copy, with dst in r0 and src in r1.
	ExecRAM(code []uint32, dst uint32, src []uint32)
}

// Engine sequences erase and program operations. It exclusively owns the
// unlock state of the controller while an unlock scope is open. Engine is
// not safe for concurrent use: there is a single caller per boot.
type Engine struct {
	regs  *mcu.Flash
	mem   mcu.Memory
	cpu   CPU
	fault fault.Panicker
	geom  Geometry
	code  []uint32
	depth int
}

// New returns an engine for the controller regs. Addresses are resolved
// through mem and the half-page routine runs on cpu.
func New(regs *mcu.Flash, mem mcu.Memory, cpu CPU, p fault.Panicker, g Geometry) *Engine {
	return &Engine{
		regs:  regs,
		mem:   mem,
		cpu:   cpu,
		fault: p,
		geom:  g,
		code:  HalfPageCode(g),
	}
}

// Geometry returns the memory organization the engine was configured for.
func (e *Engine) Geometry() Geometry { return e.geom }

// Unlock enables erase and program operations and returns the function that
// locks the controller again. Scopes nest: only the outermost relock sets
// PELOCK. The usual form is
//
//	defer e.Unlock()()
func (e *Engine) Unlock() (relock func()) {
	if e.depth == 0 {
		r := e.regs
		r.PEKEYR.Store(mcu.PEKEY1)
		r.PEKEYR.Store(mcu.PEKEY2)
		r.PRGKEYR.Store(mcu.PRGKEY1)
		r.PRGKEYR.Store(mcu.PRGKEY2)
		// erase and half-page programming operate on program memory
		mcu.SetBits(r.PECR, mcu.PROG)
	}
	e.depth++
	done := false
	return func() {
		if done {
			return
		}
		done = true
		e.depth--
		if e.depth == 0 {
			mcu.SetBits(e.regs.PECR, mcu.PELOCK)
		}
	}
}

// Locked reports whether no unlock scope is open.
func (e *Engine) Locked() bool { return e.depth == 0 }

func (e *Engine) wait() {
	for e.regs.SR.Load()&mcu.BSY != 0 {
	}
}

func (e *Engine) checkEOP(diag uint32) {
	if e.regs.SR.Load()&mcu.EOP != 0 {
		e.regs.SR.Store(mcu.EOP)
		return
	}
	e.fault.Panic(fault.Bootloader, fault.Flash, diag)
}

func (e *Engine) erasePage(addr uint32, diag uint32) {
	mcu.SetBits(e.regs.PECR, mcu.ERASE)
	e.mem.Store(addr, 0)
	e.wait()
	e.checkEOP(diag)
	mcu.ClearBits(e.regs.PECR, mcu.ERASE)
}

// Erase erases all pages that intersect [start, end). A failed erase is
// reported with diag as the fault address, DiagErase if diag is 0.
func (e *Engine) Erase(start, end, diag uint32) {
	if diag == 0 {
		diag = DiagErase
	}
	defer e.Unlock()()
	pb := e.geom.PageBytes()
	for a := start &^ (pb - 1); a < end; a += pb {
		e.erasePage(a, diag)
	}
}

// Write programs src at dst in increasing address order. If erase is true
// every page whose first word is about to be written is erased first. Whole
// aligned half-pages use the fast half-page path, anything else is written
// word by word.
func (e *Engine) Write(dst uint32, src []uint32, erase bool) {
	if dst&3 != 0 {
		panic("flash: unaligned destination")
	}
	defer e.Unlock()()
	pb := e.geom.PageBytes()
	hb := e.geom.HalfPageBytes()
	hw := e.geom.HalfPageWords
	for len(src) != 0 {
		if erase && dst&(pb-1) == 0 {
			e.erasePage(dst, DiagWriteErase)
		}
		if dst&(hb-1) == 0 && len(src) >= hw {
			mcu.SetBits(e.regs.PECR, mcu.FPRG)
			// Program memory can't be read while it is being programmed
			// so the routine runs from a fresh RAM copy.
			ram := make([]uint32, len(e.code))
			copy(ram, e.code)
			e.cpu.ExecRAM(ram, dst, src[:hw])
			e.checkEOP(DiagHalfPage)
			mcu.ClearBits(e.regs.PECR, mcu.FPRG)
			src = src[hw:]
			dst += hb
		} else {
			e.mem.Store(dst, src[0])
			e.wait()
			e.checkEOP(DiagWord)
			src = src[1:]
			dst += 4
		}
	}
}

// WritePage erases and programs one page buffer at dst.
func (e *Engine) WritePage(dst uint32, page []uint32) {
	e.Write(dst, page, true)
}
