// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package image

import (
	"io"

	"github.com/marcinbor85/gohex"
	"github.com/pkg/errors"
)

// WriteHex writes the sections to w in the Intel HEX format.
func WriteHex(w io.Writer, ss Sections) error {
	mem := gohex.NewMemory()
	for _, s := range ss {
		if err := mem.AddBinary(uint32(s.Paddr), s.Data); err != nil {
			return errors.Wrapf(err, "hex: section at %#x", s.Paddr)
		}
	}
	return errors.Wrap(mem.DumpIntelHex(w, 16), "hex")
}
