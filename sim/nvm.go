// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"fmt"

	"github.com/embeddedgo/boot/flash"
	"github.com/embeddedgo/boot/mcu"
)

const (
	lockBits = mcu.PELOCK | mcu.PRGLOCK | mcu.OPTLOCK
	progBits = mcu.PROG | mcu.ERASE | mcu.FPRG | mcu.FIX | mcu.DATA
	errBits  = mcu.WRPERR | mcu.PGAERR | mcu.SIZERR | mcu.NOTZEROERR
)

func (d *Device) storePECR(v uint32) {
	if v&mcu.PELOCK != 0 {
		d.pecr = lockBits
		d.pekeySeq, d.prgkeySeq = 0, 0
		d.latch = d.latch[:0]
		return
	}
	if d.pecr&mcu.PELOCK != 0 {
		return
	}
	locks := d.pecr&(mcu.PRGLOCK|mcu.OPTLOCK) | v&(mcu.PRGLOCK|mcu.OPTLOCK)
	prog := v & progBits
	if locks&mcu.PRGLOCK != 0 {
		prog &^= mcu.PROG | mcu.ERASE | mcu.FPRG
	}
	if prog&mcu.FPRG == 0 {
		d.latch = d.latch[:0]
	}
	d.pecr = locks | prog
}

func (d *Device) storePEKEYR(v uint32) {
	if d.keyErr {
		return
	}
	if d.pecr&mcu.PELOCK == 0 {
		return
	}
	switch {
	case d.pekeySeq == 0 && v == mcu.PEKEY1:
		d.pekeySeq = 1
	case d.pekeySeq == 1 && v == mcu.PEKEY2:
		d.pekeySeq = 0
		d.pecr &^= mcu.PELOCK
	default:
		// locked until the next reset
		d.keyErr = true
	}
}

func (d *Device) storePRGKEYR(v uint32) {
	if d.keyErr {
		return
	}
	if d.pecr&mcu.PELOCK != 0 {
		d.keyErr = true
		return
	}
	if d.pecr&mcu.PRGLOCK == 0 {
		return
	}
	switch {
	case d.prgkeySeq == 0 && v == mcu.PRGKEY1:
		d.prgkeySeq = 1
	case d.prgkeySeq == 1 && v == mcu.PRGKEY2:
		d.prgkeySeq = 0
		d.pecr &^= mcu.PRGLOCK
	default:
		d.keyErr = true
	}
}

func (d *Device) loadSR() uint32 {
	if d.busy > 0 {
		d.busy--
		if d.busy == 0 {
			d.sr = d.sr&^mcu.BSY | d.pending
			d.pending = 0
		}
	}
	return d.sr
}

// finish completes an operation still in progress, as the bus stalls the
// next access until the controller is ready.
func (d *Device) finish() {
	if d.busy > 0 {
		d.busy = 1
		d.loadSR()
	}
}

func (d *Device) reject(flag uint32) {
	d.sr |= flag
}

// begin starts an erase or program operation. The mutation is skipped and
// EOP is never set if the operation was marked to fail.
func (d *Device) begin(mutate func()) {
	d.ops++
	var flags uint32
	if d.failAt[d.ops] {
		delete(d.failAt, d.ops)
	} else {
		mutate()
		flags = mcu.EOP
	}
	if d.cfg.BusyPolls <= 0 {
		d.sr |= flags
		return
	}
	d.sr |= mcu.BSY
	d.pending = flags
	d.busy = d.cfg.BusyPolls
}

func (d *Device) programFlash(addr, v uint32) {
	d.finish()
	if d.pecr&(mcu.PELOCK|mcu.PRGLOCK) != 0 {
		d.reject(mcu.WRPERR)
		return
	}
	g := d.cfg.Geometry
	switch {
	case d.pecr&mcu.ERASE != 0:
		if d.pecr&mcu.PROG == 0 {
			d.reject(mcu.PGAERR)
			return
		}
		base := addr &^ (g.PageBytes() - 1)
		d.begin(func() {
			i := (base - d.flash.base) / 4
			clear(d.flash.words[i : i+uint32(g.PageWords)])
		})
	case d.pecr&mcu.FPRG != 0:
		if d.pecr&mcu.PROG == 0 {
			d.reject(mcu.PGAERR)
			return
		}
		if len(d.latch) == 0 {
			if addr&(g.HalfPageBytes()-1) != 0 {
				d.reject(mcu.PGAERR)
				return
			}
			d.latchBase = addr
		} else if addr != d.latchBase+uint32(len(d.latch))*4 {
			d.latch = d.latch[:0]
			d.reject(mcu.PGAERR)
			return
		}
		d.latch = append(d.latch, v)
		if len(d.latch) < g.HalfPageWords {
			return
		}
		i := (d.latchBase - d.flash.base) / 4
		dst := d.flash.words[i : i+uint32(len(d.latch))]
		for _, w := range dst {
			if w != 0 {
				d.latch = d.latch[:0]
				d.reject(mcu.NOTZEROERR)
				return
			}
		}
		d.begin(func() { copy(dst, d.latch) })
		d.latch = d.latch[:0]
	default:
		i := (addr - d.flash.base) / 4
		if d.flash.words[i] != 0 {
			d.reject(mcu.NOTZEROERR)
			return
		}
		d.begin(func() { d.flash.words[i] = v })
	}
}

func (d *Device) programEEPROM(addr, v uint32) {
	d.finish()
	if d.pecr&mcu.PELOCK != 0 {
		d.reject(mcu.WRPERR)
		return
	}
	i := (addr - d.eeprom.base) / 4
	d.begin(func() { d.eeprom.words[i] = v })
}

// ExecRAM implements flash.CPU. It accepts only the half-page routine and
// performs its stores on the bus, then polls FLASH_SR until not busy.
func (d *Device) ExecRAM(code []uint32, dst uint32, src []uint32) {
	n, ok := flash.HalfPageWords(code)
	if !ok || code[5] != d.cfg.Geometry.SR {
		panic("sim: unknown RAM routine")
	}
	if n != len(src) {
		panic(fmt.Sprintf("sim: RAM routine copies %d words, got %d", n, len(src)))
	}
	d.execs++
	for i, w := range src {
		d.Store(dst+uint32(i)*4, w)
	}
	for d.loadSR()&mcu.BSY != 0 {
	}
}

// FailOp makes the n-th erase or program operation from now (n >= 1)
// complete without EOP and without changing memory.
func (d *Device) FailOp(n int) {
	d.failAt[d.ops+n] = true
}

// Ops returns the number of erase and program operations started so far.
func (d *Device) Ops() int { return d.ops }

// Locked reports whether the NVM controller is locked (PECR.PELOCK).
func (d *Device) Locked() bool { return d.pecr&mcu.PELOCK != 0 }

// Errors returns the error flags currently set in FLASH_SR.
func (d *Device) Errors() uint32 { return d.sr & errBits }
