// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/marcinbor85/gohex"
	"github.com/pkg/errors"
)

// Error describes a failed image operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "sim: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func wrapErr(op string, errp *error) {
	if *errp != nil {
		*errp = &Error{op, *errp}
	}
}

func (d *Device) span(addr uint32, n int) (*region, error) {
	r := d.regionOf(addr)
	if r == nil || uint64(addr)+uint64(n) > uint64(r.end()) {
		return nil, fmt.Errorf("%#08x+%d outside the memory map", addr, n)
	}
	return r, nil
}

// Poke writes p at addr directly into the memory array, bypassing the NVM
// controller. It is used to provision images and records.
func (d *Device) Poke(addr uint32, p []byte) (err error) {
	defer wrapErr("poke", &err)
	r, err := d.span(addr, len(p))
	if err != nil {
		return err
	}
	for i, b := range p {
		a := addr + uint32(i) - r.base
		sh := 8 * (a & 3)
		w := &r.words[a/4]
		*w = *w&^(0xff<<sh) | uint32(b)<<sh
	}
	return nil
}

// PokeWords writes words at the word aligned addr, bypassing the NVM
// controller.
func (d *Device) PokeWords(addr uint32, words ...uint32) (err error) {
	defer wrapErr("poke", &err)
	if addr&3 != 0 {
		return fmt.Errorf("unaligned address %#08x", addr)
	}
	r, err := d.span(addr, len(words)*4)
	if err != nil {
		return err
	}
	copy(r.words[(addr-r.base)/4:], words)
	return nil
}

// Peek returns a copy of n bytes of memory starting at addr.
func (d *Device) Peek(addr uint32, n int) (p []byte, err error) {
	defer wrapErr("peek", &err)
	r, err := d.span(addr, n)
	if err != nil {
		return nil, err
	}
	p = make([]byte, n)
	for i := range p {
		a := addr + uint32(i) - r.base
		p[i] = byte(r.words[a/4] >> (8 * (a & 3)))
	}
	return p, nil
}

// LoadHex provisions the memory with the data records of an Intel HEX file.
func (d *Device) LoadHex(r io.Reader) error {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return errors.Wrap(err, "sim: parse Intel HEX")
	}
	for _, s := range mem.GetDataSegments() {
		if err := d.Poke(s.Address, s.Data); err != nil {
			return err
		}
	}
	return nil
}

// DumpHex writes the non-volatile memory (flash and data EEPROM) as Intel
// HEX. Blocks of erased memory are left out.
func (d *Device) DumpHex(w io.Writer) error {
	mem := gohex.NewMemory()
	for _, r := range []*region{&d.flash, &d.eeprom} {
		if err := addSegments(mem, r); err != nil {
			return errors.Wrap(err, "sim: build Intel HEX")
		}
	}
	return errors.Wrap(mem.DumpIntelHex(w, 16), "sim: write Intel HEX")
}

const hexBlock = 64 // words

func addSegments(mem *gohex.Memory, r *region) error {
	var seg []byte
	var base uint32
	flush := func() error {
		if len(seg) == 0 {
			return nil
		}
		err := mem.AddBinary(base, seg)
		seg = nil
		return err
	}
	for i := 0; i < len(r.words); i += hexBlock {
		blk := r.words[i:min(i+hexBlock, len(r.words))]
		erased := true
		for _, w := range blk {
			if w != 0 {
				erased = false
				break
			}
		}
		if erased {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		if len(seg) == 0 {
			base = r.base + uint32(i)*4
		}
		for _, w := range blk {
			seg = binary.LittleEndian.AppendUint32(seg, w)
		}
	}
	return flush()
}
