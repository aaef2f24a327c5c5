// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"math/bits"

	"github.com/embeddedgo/boot/mcu"
)

const crcPoly = 0x04C11DB7

func (d *Device) crcEnabled() bool { return d.ahbenr&mcu.CRCEN != 0 }

func (d *Device) storeCRCCR(v uint32) {
	if !d.crcEnabled() {
		return
	}
	if d.cfg.Family != mcu.L0 {
		v &^= mcu.REV_IN_WORD | mcu.REV_OUT
	}
	if v&mcu.CRCRESET != 0 {
		d.crc = ^uint32(0)
	}
	d.crcCR = v &^ mcu.CRCRESET
}

func (d *Device) storeCRCDR(v uint32) {
	if !d.crcEnabled() {
		return
	}
	if d.crcCR&mcu.REV_IN_WORD == mcu.REV_IN_WORD {
		v = bits.Reverse32(v)
	}
	c := d.crc ^ v
	for i := 0; i < 32; i++ {
		if c&0x80000000 != 0 {
			c = c<<1 ^ crcPoly
		} else {
			c <<= 1
		}
	}
	d.crc = c
}

func (d *Device) loadCRCDR() uint32 {
	if !d.crcEnabled() {
		return 0
	}
	if d.crcCR&mcu.REV_OUT != 0 {
		return bits.Reverse32(d.crc)
	}
	return d.crc
}

func (d *Device) storeRCCCR(v uint32) {
	v &^= mcu.MSIRDY
	if v&mcu.MSION != 0 {
		v |= mcu.MSIRDY
	}
	d.rccCR = v
}

func (d *Device) storeCFGR(v uint32) {
	d.cfgr = v&^mcu.SWS | (v&mcu.SW)<<2
}
