// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mcu describes the STM32L0/L1 resources the bootloader drives: the
// memory bus and the FLASH, CRC and RCC register blocks. Everything is
// accessed through small interfaces so that the same code runs against the
// real peripherals or against a simulated device.
package mcu

import "io"

// Reg is a 32-bit memory-mapped peripheral register.
type Reg interface {
	Load() uint32
	Store(v uint32)
}

// SetBits performs a read-modify-write that sets mask in r.
func SetBits(r Reg, mask uint32) {
	r.Store(r.Load() | mask)
}

// ClearBits performs a read-modify-write that clears mask in r.
func ClearBits(r Reg, mask uint32) {
	r.Store(r.Load() &^ mask)
}

// StoreBits replaces the bits selected by mask with the corresponding bits
// of v.
func StoreBits(r Reg, mask, v uint32) {
	r.Store(r.Load()&^mask | v&mask)
}

// Memory is the CPU view of the address space. Addresses passed to Load and
// Store must be word aligned. A Store into the flash or data EEPROM address
// range is a programming (or erase) request handled by the flash controller.
type Memory interface {
	Load(addr uint32) uint32
	Store(addr, v uint32)
}

// LoadByte reads the byte at addr (little-endian word layout).
func LoadByte(m Memory, addr uint32) byte {
	return byte(m.Load(addr&^3) >> (8 * (addr & 3)))
}

// ReadBytes fills p with the bytes starting at addr.
func ReadBytes(m Memory, addr uint32, p []byte) {
	for len(p) != 0 {
		if addr&3 == 0 && len(p) >= 4 {
			w := m.Load(addr)
			p[0], p[1], p[2], p[3] = byte(w), byte(w>>8), byte(w>>16), byte(w>>24)
			p = p[4:]
			addr += 4
			continue
		}
		p[0] = LoadByte(m, addr)
		p = p[1:]
		addr++
	}
}

type busReader struct {
	m Memory
}

func (r busReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > 1<<32 {
		return 0, io.EOF
	}
	n := len(p)
	if rem := 1<<32 - off; int64(n) > rem {
		n = int(rem)
	}
	ReadBytes(r.m, uint32(off), p[:n])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// NewReader returns a reader of the n bytes of m starting at addr.
func NewReader(m Memory, addr, n uint32) *io.SectionReader {
	return io.NewSectionReader(busReader{m}, int64(addr), int64(n))
}
