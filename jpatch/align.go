// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jpatch

// Align appends operations that do not change the target until the length
// of patch is a multiple of 4. The appended DEL operations only move the
// source position past its end.
//
// A bare ESC at the very end of patch is taken as data by Apply but would
// become an escape sequence after Align, so such a patch must escape it
// as ESC ESC first.
func Align(patch []byte) []byte {
	switch len(patch) & 3 {
	case 1:
		patch = append(patch, ESC, DEL, 0)
	case 2:
		patch = append(patch, ESC, DEL, 0, ESC, DEL, 0)
	case 3:
		patch = append(patch, ESC, DEL, 253, 0, 0)
	}
	return patch
}
