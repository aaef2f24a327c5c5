// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fault

// Blink timing in Delay units.
const (
	ShortUnits  = 1 // one blink: on, then off
	NibbleUnits = 2 // extra pause after a nibble
	LongUnits   = 5 // frame start blink and pause after a value
)

func (h *Handler) frame(c Code) {
	h.LED.Set(true)
	h.Delay(LongUnits)
	h.LED.Set(false)
	h.Delay(LongUnits)
	h.Blink(uint32(c.Kind))
	h.Delay(LongUnits)
	h.Blink(uint32(c.Reason))
	h.Delay(LongUnits)
	h.Blink(c.Addr)
	h.Delay(LongUnits)
}

// Blink blinks v nibble by nibble, least significant nibble first. A nibble
// n is shown as n+1 blinks so 0x0 gives one blink and 0xf gives sixteen.
func (h *Handler) Blink(v uint32) {
	for {
		n := v & 0xf
		for {
			h.LED.Set(true)
			h.Delay(ShortUnits)
			h.LED.Set(false)
			h.Delay(ShortUnits)
			if n == 0 {
				break
			}
			n--
		}
		v >>= 4
		h.Delay(NibbleUnits)
		if v == 0 {
			return
		}
	}
}
