// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package crc computes firmware checksums with the CRC calculation unit.
//
// The result is the common CRC-32 (IEEE 802.3, reflected, complemented on
// output) of the little-endian bytes of the checked words, so it matches
// the checksum produced by host tooling. The L0 unit reverses input and
// output bits in hardware, on L1 the words are reversed in software.
package crc

import (
	"math/bits"

	"github.com/embeddedgo/boot/mcu"
)

// Unit is the CRC calculation unit together with its clock gate.
type Unit struct {
	Regs   *mcu.CRC
	RCC    *mcu.RCC
	Family mcu.Family
}

// Checksum returns the CRC-32 of nwords words of mem starting at addr. The
// unit is enabled and reset on entry and disabled on return so Checksum
// keeps no state between calls.
func (u *Unit) Checksum(mem mcu.Memory, addr uint32, nwords int) uint32 {
	mcu.SetBits(u.RCC.AHBENR, mcu.CRCEN)
	soft := u.Family != mcu.L0
	if soft {
		u.Regs.CR.Store(mcu.CRCRESET)
	} else {
		u.Regs.CR.Store(mcu.REV_IN_WORD | mcu.REV_OUT | mcu.CRCRESET)
	}
	for ; nwords > 0; nwords-- {
		v := mem.Load(addr)
		if soft {
			v = bits.Reverse32(v)
		}
		u.Regs.DR.Store(v)
		addr += 4
	}
	v := u.Regs.DR.Load()
	mcu.ClearBits(u.RCC.AHBENR, mcu.CRCEN)
	if soft {
		v = bits.Reverse32(v)
	}
	return ^v
}
