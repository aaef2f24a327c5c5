// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package crc_test

import (
	"hash/crc32"
	"math/rand"
	"testing"

	"github.com/embeddedgo/boot/crc"
	"github.com/embeddedgo/boot/mcu"
	"github.com/embeddedgo/boot/sim"
)

func newUnit(t *testing.T, f mcu.Family) (*sim.Device, *crc.Unit) {
	t.Helper()
	cfg := sim.STM32L072
	if f == mcu.L1 {
		cfg = sim.STM32L151
	}
	d := sim.New(cfg)
	return d, &crc.Unit{Regs: &d.CRCRegs, RCC: &d.RCCRegs, Family: f}
}

func TestChecksum(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, f := range []mcu.Family{mcu.L0, mcu.L1} {
		for _, n := range []int{0, 4, 8, 12, 64, 1016, 4096} {
			buf := make([]byte, n)
			rnd.Read(buf)
			t.Run(f.String(), func(t *testing.T) {
				d, u := newUnit(t, f)
				base := d.Config().RAMBase
				if err := d.Poke(base, buf); err != nil {
					t.Fatal(err)
				}
				got := u.Checksum(d, base, n/4)
				want := crc32.ChecksumIEEE(buf)
				if got != want {
					t.Errorf("%d bytes: got 0x%08X, want 0x%08X", n, got, want)
				}
				if d.RCCRegs.AHBENR.Load()&mcu.CRCEN != 0 {
					t.Error("CRC unit left enabled")
				}
				if again := u.Checksum(d, base, n/4); again != got {
					t.Errorf("second call: got 0x%08X, want 0x%08X", again, got)
				}
			})
		}
	}
}

func TestChecksumKnown(t *testing.T) {
	data := []byte("123456789abc")
	for _, f := range []mcu.Family{mcu.L0, mcu.L1} {
		d, u := newUnit(t, f)
		base := d.Config().RAMBase
		if err := d.Poke(base, data[:8]); err != nil {
			t.Fatal(err)
		}
		want := crc32.ChecksumIEEE(data[:8])
		if got := u.Checksum(d, base, 2); got != want {
			t.Errorf("%v: got 0x%08X, want 0x%08X", f, got, want)
		}
	}
}
