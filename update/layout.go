// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package update

import "github.com/embeddedgo/boot/mcu"

// Layout is the program memory map seen by the installer. All bounds are
// page aligned, ends are exclusive. A zero scratch region disables patch
// updates. Staged updates must lie entirely inside the update area.
type Layout struct {
	FirmwareBase uint32
	FirmwareEnd  uint32
	ScratchBase  uint32
	ScratchEnd   uint32
	UpdateBase   uint32
	UpdateEnd    uint32
	PageBytes    uint32
}

// Dest is the result of a successful validation.
type Dest struct {
	Addr    uint32 // where the new image is written
	Size    uint32 // image size in bytes
	Payload uint32 // payload address
	PSize   uint32 // payload size in bytes
	Src     uint32 // patch source image, patch updates only
	SrcSize uint32
}

func (l *Layout) roundUp(n uint32) uint32 {
	return (n + l.PageBytes - 1) &^ (l.PageBytes - 1)
}

func overlaps(a, an, b, bn uint32) bool {
	return uint64(a) < uint64(b)+uint64(bn) && uint64(b) < uint64(a)+uint64(an)
}

// Holds reports whether [addr, addr+n) is inside the update area.
func (l *Layout) Holds(addr, n uint32) bool {
	return addr >= l.UpdateBase && uint64(addr)+uint64(n) <= uint64(l.UpdateEnd)
}

func (l *Layout) check(h Header, addr uint32) (Dest, error) {
	if h.Size&3 != 0 || h.FWSize&3 != 0 {
		return Dest{}, ESize
	}
	if h.Size < HeaderSize || !l.Holds(addr, h.Size) {
		return Dest{}, ESize
	}
	if h.FWSize < HeaderSize {
		return Dest{}, ESize
	}
	return Dest{
		Size:    h.FWSize,
		Payload: addr + HeaderSize,
		PSize:   h.Size - HeaderSize,
	}, nil
}

// InstallInit validates a plain or LZ4 update staged at addr and returns
// its destination: the firmware base.
func (l *Layout) InstallInit(h Header, addr uint32) (Dest, error) {
	d, err := l.check(h, addr)
	if err != nil {
		return d, err
	}
	d.Addr = l.FirmwareBase
	span := l.roundUp(d.Size)
	if uint64(d.Addr)+uint64(span) > uint64(l.FirmwareEnd) {
		return Dest{}, ESize
	}
	if overlaps(addr, h.Size, d.Addr, span) {
		return Dest{}, ESize
	}
	return d, nil
}

// PatchInit validates a patch update staged at addr. The resident firmware,
// as described by its header, is the patch source and the scratch region
// receives the result.
func (l *Layout) PatchInit(mem mcu.Memory, h Header, addr uint32) (Dest, error) {
	d, err := l.check(h, addr)
	if err != nil {
		return d, err
	}
	if l.ScratchEnd <= l.ScratchBase {
		return Dest{}, ESize
	}
	span := l.roundUp(d.Size)
	if uint64(l.ScratchBase)+uint64(span) > uint64(l.ScratchEnd) ||
		uint64(l.FirmwareBase)+uint64(span) > uint64(l.FirmwareEnd) {
		return Dest{}, ESize
	}
	d.Addr = l.ScratchBase
	d.Src = l.FirmwareBase
	d.SrcSize = mem.Load(l.FirmwareBase)
	if d.SrcSize < HeaderSize || d.SrcSize > l.FirmwareEnd-l.FirmwareBase {
		return Dest{}, ESize
	}
	if overlaps(addr, h.Size, l.ScratchBase, span) ||
		overlaps(addr, h.Size, l.FirmwareBase, span) {
		return Dest{}, ESize
	}
	return d, nil
}
