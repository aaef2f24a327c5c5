// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mcu

// Flash is the embedded Flash/data EEPROM interface (NVM controller).
type Flash struct {
	ACR     Reg
	PECR    Reg
	PEKEYR  Reg
	PRGKEYR Reg
	SR      Reg
}

// ACR bits.
const (
	LATENCY uint32 = 1 << 0 // one wait state
)

// PECR bits.
const (
	PELOCK  uint32 = 1 << 0
	PRGLOCK uint32 = 1 << 1
	OPTLOCK uint32 = 1 << 2
	PROG    uint32 = 1 << 3
	DATA    uint32 = 1 << 4
	FIX     uint32 = 1 << 8
	ERASE   uint32 = 1 << 9
	FPRG    uint32 = 1 << 10
)

// SR bits.
const (
	BSY        uint32 = 1 << 0
	EOP        uint32 = 1 << 1
	HVOFF      uint32 = 1 << 2
	READY      uint32 = 1 << 3
	WRPERR     uint32 = 1 << 8
	PGAERR     uint32 = 1 << 9
	SIZERR     uint32 = 1 << 10
	NOTZEROERR uint32 = 1 << 16
)

// Unlock keys.
const (
	PEKEY1  uint32 = 0x89ABCDEF
	PEKEY2  uint32 = 0x02030405
	PRGKEY1 uint32 = 0x8C9DAEBF
	PRGKEY2 uint32 = 0x13141516
)

// CRC is the CRC calculation unit.
type CRC struct {
	DR Reg
	CR Reg
}

// CR bits.
const (
	CRCRESET    uint32 = 1 << 0
	REV_IN_WORD uint32 = 3 << 5
	REV_OUT     uint32 = 1 << 7
)

// RCC is the reset and clock control block (the part the bootloader uses).
type RCC struct {
	CR     Reg
	ICSCR  Reg
	CFGR   Reg
	AHBENR Reg
}

// RCC bits.
const (
	MSION      uint32 = 1 << 8
	MSIRDY     uint32 = 1 << 9
	MSIRANGE   uint32 = 7 << 13
	MSIRANGE_5 uint32 = 5 << 13 // about 2.1 MHz
	SW         uint32 = 3 << 0
	SW_MSI     uint32 = 0 << 0
	SWS        uint32 = 3 << 2
	SWS_MSI    uint32 = 0 << 2
	CRCEN      uint32 = 1 << 12
)

// Family selects between the L0 and L1 variants of the peripherals.
type Family int

const (
	L0 Family = iota // CRC unit with REV_IN/REV_OUT
	L1               // CRC unit without bit reversal
)

func (f Family) String() string {
	switch f {
	case L0:
		return "stm32l0"
	case L1:
		return "stm32l1"
	}
	return "unknown"
}
