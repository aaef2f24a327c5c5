// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package image reads firmware images (ELF or raw binaries) and builds
// firmware and update files from them.
package image

import (
	"bytes"
	"cmp"
	"debug/elf"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Section is a block of bytes loaded at Paddr.
type Section struct {
	Paddr uint64
	Data  []byte
}

type Sections []*Section

// ReadELF returns the file contents of the loadable segments of the program
// at their physical (flash) addresses, and the entry point. Segments
// without file data (.bss, stacks) are skipped.
func ReadELF(name string) (Sections, uint32, error) {
	f, err := elf.Open(name)
	if err != nil {
		return nil, 0, errors.Wrap(err, "readelf")
	}
	defer f.Close()
	var ss Sections
	for i, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Filesz == 0 {
			continue
		}
		data := make([]byte, p.Filesz)
		if _, err := p.ReadAt(data, 0); err != nil {
			return nil, 0, errors.Wrapf(err, "readelf: segment %d", i)
		}
		ss = append(ss, &Section{Paddr: p.Paddr, Data: data})
	}
	if len(ss) == 0 {
		return nil, 0, errors.Errorf("readelf: %s: no loadable segments", name)
	}
	return ss, uint32(f.Entry), nil
}

// ReadBins reads raw binaries described as BIN1:ADDR1[,BIN2:ADDR2...].
func ReadBins(descr string) (Sections, error) {
	var ss Sections
	for _, ba := range strings.Split(descr, ",") {
		i := strings.LastIndexByte(ba, ':')
		if i <= 0 {
			return nil, fmt.Errorf("readbins: %q: want BIN:ADDR", ba)
		}
		addr, err := strconv.ParseUint(ba[i+1:], 0, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "readbins: %q", ba)
		}
		data, err := os.ReadFile(ba[:i])
		if err != nil {
			return nil, errors.Wrap(err, "readbins")
		}
		ss = append(ss, &Section{Paddr: addr, Data: data})
	}
	return ss, nil
}

// SortByPaddr sorts sections by load address.
func (ss Sections) SortByPaddr() {
	slices.SortStableFunc(ss, func(a, b *Section) int {
		return cmp.Compare(a.Paddr, b.Paddr)
	})
}

// Flatten returns the sections as one contiguous block starting at the
// lowest Paddr. Gaps are filled with pad.
func (ss Sections) Flatten(pad byte) (base uint32, data []byte, err error) {
	if len(ss) == 0 {
		return 0, nil, errors.New("flatten: no sections")
	}
	ss.SortByPaddr()
	start := ss[0].Paddr
	end := start
	for _, s := range ss {
		if s.Paddr < end {
			return 0, nil, errors.Errorf("flatten: section at %#x overlaps the previous one", s.Paddr)
		}
		if gap := int(s.Paddr - end); gap > 0 {
			data = append(data, bytes.Repeat([]byte{pad}, gap)...)
		}
		data = append(data, s.Data...)
		end = s.Paddr + uint64(len(s.Data))
	}
	if end > 1<<32 {
		return 0, nil, errors.New("flatten: image exceeds the address space")
	}
	return uint32(start), data, nil
}
