// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package update

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/embeddedgo/boot/fault"
	"github.com/embeddedgo/boot/flash"
	"github.com/embeddedgo/boot/jpatch"
	"github.com/embeddedgo/boot/mcu"
)

// State of the installer.
type State int

const (
	NotStaged State = iota
	Validating
	Installing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case NotStaged:
		return "not staged"
	case Validating:
		return "validating"
	case Installing:
		return "installing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Installer installs staged updates. It has a single caller per boot and
// is not safe for concurrent use.
type Installer struct {
	mem    mcu.Memory
	eng    *flash.Engine
	fault  fault.Panicker
	layout Layout
	log    Logger
	buf    []uint32
	bytes  []byte
	state  State

	// Progress, if not nil, receives the progress of patch updates.
	Progress func(percent uint8)
}

// NewInstaller returns an installer that programs flash through eng using a
// staging buffer of pages pages. A nil log discards messages.
func NewInstaller(mem mcu.Memory, eng *flash.Engine, p fault.Panicker, l Layout, pages int, log Logger) *Installer {
	if pages < 1 {
		pages = 1
	}
	if log == nil {
		log = NopLogger
	}
	n := eng.Geometry().PageWords * pages
	return &Installer{
		mem:    mem,
		eng:    eng,
		fault:  p,
		layout: l,
		log:    log,
		buf:    make([]uint32, n),
		bytes:  make([]byte, n*4),
	}
}

// State returns the state reached by the last Install call. A successful
// dry run stays in Validating.
func (in *Installer) State() State { return in.state }

// Layout returns the memory map used by the installer.
func (in *Installer) Layout() Layout { return in.layout }

// Validate performs a dry run of the update staged at addr and returns its
// total size. Memory is not modified.
func (in *Installer) Validate(addr uint32) (uint32, error) {
	if err := in.Install(addr, false); err != nil {
		return 0, err
	}
	return ReadHeader(in.mem, addr).Size, nil
}

// Install validates the update staged at addr and, if install is true,
// writes it into flash. Validation errors are returned as Code values and
// leave memory untouched. Errors during installation are fatal.
func (in *Installer) Install(addr uint32, install bool) error {
	in.state = Validating
	if !in.layout.Holds(addr, HeaderSize) {
		in.state = Failed
		in.log.Error("update outside the update area", "addr", addr)
		return ESize
	}
	h := ReadHeader(in.mem, addr)
	d, err := in.validate(h, addr)
	if err != nil {
		in.state = Failed
		in.log.Error("update rejected", "addr", addr, "type", h.Type, "err", err)
		return err
	}
	in.log.Debug("update valid", "addr", addr, "type", h.Type, "dst", d.Addr, "size", d.Size)
	if !install {
		return nil
	}
	in.state = Installing
	in.log.Info("installing update", "type", h.Type, "size", d.Size)
	switch h.Type {
	case Plain:
		in.copy(addr, d.Addr, mcu.NewReader(in.mem, d.Payload, d.Size), d.Size)
	case LZ4:
		zr := lz4.NewReader(mcu.NewReader(in.mem, d.Payload, d.PSize))
		in.copy(addr, d.Addr, zr, d.Size)
	case Patch:
		in.patch(addr, d)
	}
	in.state = Done
	in.log.Info("update installed", "dst", in.layout.FirmwareBase, "size", d.Size)
	return nil
}

func (in *Installer) validate(h Header, addr uint32) (d Dest, err error) {
	switch h.Type {
	case Plain:
		if d, err = in.layout.InstallInit(h, addr); err != nil {
			return
		}
		if d.PSize < d.Size {
			return Dest{}, ESize
		}
	case LZ4:
		if d, err = in.layout.InstallInit(h, addr); err != nil {
			return
		}
		if lz4BlockMax(in.mem, d) > LZ4MaxBlock {
			return Dest{}, ESize
		}
		zr := lz4.NewReader(mcu.NewReader(in.mem, d.Payload, d.PSize))
		_, err := io.CopyN(io.Discard, zr, int64(d.Size))
		if err == io.EOF {
			return Dest{}, ESize
		}
		if err != nil {
			in.log.Debug("lz4 decode", "err", err)
			return Dest{}, EUnknown
		}
		// the payload may be padded after the frame
		var one [1]byte
		if _, err := io.ReadFull(zr, one[:]); err == nil {
			return Dest{}, ESize
		}
	case Patch:
		if d, err = in.layout.PatchInit(in.mem, h, addr); err != nil {
			return
		}
		var c counter
		if err := in.applyPatch(d, &c); err != nil {
			in.log.Debug("patch dry run", "err", err)
			return Dest{}, EUnknown
		}
		if c.n != int64(d.Size) {
			return Dest{}, ESize
		}
	default:
		return Dest{}, ENoImpl
	}
	return d, nil
}

// LZ4MaxBlock is the largest LZ4 block size accepted in update payloads.
const LZ4MaxBlock = 64 << 10

const lz4Magic = 0x184d2204

// lz4BlockMax returns the block maximum size declared in the LZ4 frame
// descriptor of the payload, or 0 if the payload is not an LZ4 frame.
func lz4BlockMax(mem mcu.Memory, d Dest) int {
	if d.PSize < 8 || mem.Load(d.Payload) != lz4Magic {
		return 0
	}
	bd := mem.Load(d.Payload+4) >> 8 & 0xff
	id := bd >> 4 & 7
	if id < 4 {
		return 0 // reserved, rejected by the decoder
	}
	return 1 << (8 + 2*id)
}

// copy programs n bytes read from r at dst, one staging buffer at a time.
// The last buffer is padded with zeros to a page boundary.
func (in *Installer) copy(addr, dst uint32, r io.Reader, n uint32) {
	defer in.eng.Unlock()()
	pb := in.layout.PageBytes
	for n > 0 {
		m := uint32(len(in.bytes))
		if n < m {
			m = n
		}
		if _, err := io.ReadFull(r, in.bytes[:m]); err != nil {
			in.log.Error("update read", "err", err)
			in.fault.Panic(fault.Bootloader, fault.Update, addr)
			return
		}
		w := (m + pb - 1) &^ (pb - 1) / 4
		clear(in.bytes[m : w*4])
		for i := range in.buf[:w] {
			in.buf[i] = binary.LittleEndian.Uint32(in.bytes[i*4:])
		}
		in.eng.Write(dst, in.buf[:w], true)
		dst += m
		n -= m
	}
}

func (in *Installer) applyPatch(d Dest, target jpatch.Stream) error {
	pb := int(in.layout.PageBytes)
	ctx := &jpatch.Context{
		SourceBuf: make([]byte, pb),
		PatchBuf:  make([]byte, pb),
		TargetBuf: make([]byte, pb),
		Progress:  in.Progress,
	}
	src := NewStream(in.mem, d.Src, d.SrcSize)
	pat := NewStream(in.mem, d.Payload, d.PSize)
	return jpatch.Apply(ctx, src, pat, target)
}

// patch builds the new image in the scratch region, then copies it over
// the resident firmware.
func (in *Installer) patch(addr uint32, d Dest) {
	dst := NewFlashStream(in.mem, in.eng, d.Addr, d.Size)
	if err := in.applyPatch(d, dst); err != nil {
		in.log.Error("patch", "err", err)
		in.fault.Panic(fault.Bootloader, fault.Update, addr)
		return
	}
	if dst.Tell() != int64(d.Size) {
		in.log.Error("patch", "err", errors.New("short target"), "size", dst.Tell())
		in.fault.Panic(fault.Bootloader, fault.Update, addr)
		return
	}
	in.copy(addr, in.layout.FirmwareBase, mcu.NewReader(in.mem, d.Addr, d.Size), d.Size)
}
