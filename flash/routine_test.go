// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flash

import "testing"

func TestHalfPageCode(t *testing.T) {
	for _, g := range []Geometry{L0, L1} {
		code := HalfPageCode(g)
		if len(code) != 6 {
			t.Fatalf("got %d words, want 6", len(code))
		}
		if code[5] != g.SR {
			t.Errorf("literal: got 0x%08X, want 0x%08X", code[5], g.SR)
		}
		n, ok := HalfPageWords(code)
		if !ok || n != g.HalfPageWords {
			t.Errorf("decoded %d, %t; want %d", n, ok, g.HalfPageWords)
		}
		// movs r2, #N; ldmia r1!, {r3}
		if want := uint32(opLdmia)<<16 | opMovsR2 | uint32(g.HalfPageWords); code[0] != want {
			t.Errorf("first word: got 0x%08X, want 0x%08X", code[0], want)
		}
	}
	bad := HalfPageCode(L0)
	bad[2] ^= 1
	if _, ok := HalfPageWords(bad); ok {
		t.Error("modified routine accepted")
	}
	if _, ok := HalfPageWords(bad[:5]); ok {
		t.Error("short routine accepted")
	}
}
