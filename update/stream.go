// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package update

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/embeddedgo/boot/flash"
	"github.com/embeddedgo/boot/mcu"
)

var (
	ErrSeek     = errors.New("update: seek outside the stream")
	ErrReadOnly = errors.New("update: read-only stream")
	ErrAlign    = errors.New("update: unaligned page write")
)

// Stream is a file like view of size bytes of memory at base. Reads and
// writes never go past size. Writes program flash in whole pages, the part
// of the last page past size is filled with zeros.
type Stream struct {
	mem  mcu.Memory
	eng  *flash.Engine
	base uint32
	size uint32
	pos  uint32
	page []uint32
}

// NewStream returns a read-only stream.
func NewStream(mem mcu.Memory, base, size uint32) *Stream {
	return &Stream{mem: mem, base: base, size: size}
}

// NewFlashStream returns a stream that writes through eng. The target
// region must be page aligned.
func NewFlashStream(mem mcu.Memory, eng *flash.Engine, base, size uint32) *Stream {
	return &Stream{
		mem:  mem,
		eng:  eng,
		base: base,
		size: size,
		page: make([]uint32, eng.Geometry().PageWords),
	}
}

// Size returns the logical length of the stream.
func (s *Stream) Size() uint32 { return s.size }

func (s *Stream) Read(p []byte) (int, error) {
	if s.pos >= s.size {
		return 0, io.EOF
	}
	n := len(p)
	if rem := s.size - s.pos; uint64(n) > uint64(rem) {
		n = int(rem)
	}
	mcu.ReadBytes(s.mem, s.base+s.pos, p[:n])
	s.pos += uint32(n)
	return n, nil
}

// Write programs p at the current position, which must be page aligned.
// The flash controller stays unlocked for the duration of one call only.
func (s *Stream) Write(p []byte) (int, error) {
	if s.eng == nil {
		return 0, ErrReadOnly
	}
	pb := s.eng.Geometry().PageBytes()
	if s.pos&(pb-1) != 0 {
		return 0, ErrAlign
	}
	defer s.eng.Unlock()()
	n := 0
	for n < len(p) && s.pos < s.size {
		m := int(pb)
		if rem := len(p) - n; m > rem {
			m = rem
		}
		if rem := s.size - s.pos; uint64(m) > uint64(rem) {
			m = int(rem)
		}
		chunk := p[n : n+m]
		for i := range s.page {
			var w [4]byte
			if k := i * 4; k < len(chunk) {
				copy(w[:], chunk[k:])
			}
			s.page[i] = binary.LittleEndian.Uint32(w[:])
		}
		s.eng.WritePage(s.base+s.pos, s.page)
		n += m
		s.pos += uint32(m)
	}
	return n, nil
}

// Seek moves the cursor. It fails, leaving the cursor unchanged, if the new
// position is outside [0, Size()].
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(s.pos) + offset
	case io.SeekEnd:
		next = int64(s.size) + offset
	default:
		return int64(s.pos), ErrSeek
	}
	if next < 0 || next > int64(s.size) {
		return int64(s.pos), ErrSeek
	}
	s.pos = uint32(next)
	return next, nil
}

// Tell returns the cursor position.
func (s *Stream) Tell() int64 { return int64(s.pos) }

// counter is a target stream that only counts bytes.
type counter struct {
	n int64
}

func (c *counter) Read([]byte) (int, error)       { return 0, io.EOF }
func (c *counter) Seek(int64, int) (int64, error) { return c.n, ErrSeek }
func (c *counter) Tell() int64                    { return c.n }

func (c *counter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
