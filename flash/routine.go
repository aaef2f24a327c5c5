// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flash

// Thumb code of the half-page program routine. The word count immediate and
// the FLASH_SR literal depend on the device.
//
//	0:  movs  r2, #N
//	2:  ldmia r1!, {r3}
//	4:  stmia r0!, {r3}
//	6:  subs  r2, #1
//	8:  bne   2
//	10: ldr   r2, [pc, #8]   ; FLASH_SR
//	12: ldr   r3, [r2]
//	14: lsls  r3, r3, #31    ; BSY
//	16: bmi   12
//	18: bx    lr
//	20: .word FLASH_SR
const (
	opMovsR2 = 0x2200
	opLdmia  = 0xC908
	opStmia  = 0xC008
	opSubs   = 0x3A01
	opBne    = 0xD1FB
	opLdrLit = 0x4A02
	opLdrR3  = 0x6813
	opLsls   = 0x07DB
	opBmi    = 0xD4FC
	opBxLr   = 0x4770
)

// HalfPageCode returns the image of the half-page routine for g. The engine
// never executes it in place: each call works on a RAM copy.
func HalfPageCode(g Geometry) []uint32 {
	h := []uint32{
		opMovsR2 | uint32(g.HalfPageWords)&0xff, opLdmia,
		opStmia, opSubs,
		opBne, opLdrLit,
		opLdrR3, opLsls,
		opBmi, opBxLr,
	}
	code := make([]uint32, 0, len(h)/2+1)
	for i := 0; i < len(h); i += 2 {
		code = append(code, h[i]|h[i+1]<<16)
	}
	return append(code, g.SR)
}

// HalfPageWords decodes the word count of a half-page routine image. It
// returns false if code is not such a routine.
func HalfPageWords(code []uint32) (int, bool) {
	if len(code) != 6 {
		return 0, false
	}
	ref := HalfPageCode(Geometry{HalfPageWords: int(code[0] & 0xff), SR: code[5]})
	for i := range ref {
		if code[i] != ref[i] {
			return 0, false
		}
	}
	return int(code[0] & 0xff), true
}
