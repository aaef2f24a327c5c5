// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package staging keeps the update pointer: the address of a staged update,
// stored twice in data EEPROM so that an interrupted write is detected on
// the next boot.
package staging

import (
	"crypto/sha256"
	"crypto/subtle"
	"io"

	"github.com/embeddedgo/boot/fault"
	"github.com/embeddedgo/boot/mcu"
	"github.com/embeddedgo/boot/update"
)

// DiagRecord is the fault address reported when a record write does not
// complete.
const DiagRecord = 5

// State of the update pointer record.
type State int

const (
	None    State = iota // 0/0
	Staged               // X/X, X != 0
	Corrupt              // fields differ
)

func (s State) String() string {
	switch s {
	case None:
		return "none"
	case Staged:
		return "staged"
	}
	return "corrupt"
}

// Validator checks a staged update without modifying memory and returns
// its size in bytes.
type Validator interface {
	Validate(addr uint32) (size uint32, err error)
}

// Authenticator checks the hash supplied with a staged update against the
// update bytes read from r.
type Authenticator interface {
	Authenticate(r io.Reader, hash []byte) error
}

// SHA256 requires hash to be the SHA-256 digest of the staged update,
// header included.
type SHA256 struct{}

func (SHA256) Authenticate(r io.Reader, hash []byte) error {
	if len(hash) != sha256.Size {
		return update.EHash
	}
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(h.Sum(nil), hash) != 1 {
		return update.EHash
	}
	return nil
}

// Store is the update pointer record at Addr (two consecutive words).
type Store struct {
	Mem   mcu.Memory
	Regs  *mcu.Flash
	Fault fault.Panicker
	Addr  uint32

	Validator     Validator
	Authenticator Authenticator // nil accepts any hash
}

// Raw returns both fields of the record.
func (s *Store) Raw() (ptr1, ptr2 uint32) {
	return s.Mem.Load(s.Addr), s.Mem.Load(s.Addr + 4)
}

// Pending returns the staged update address. The address is valid only if
// state is Staged.
func (s *Store) Pending() (addr uint32, state State) {
	p1, p2 := s.Raw()
	switch {
	case p1 != p2:
		return 0, Corrupt
	case p1 == 0:
		return 0, None
	}
	return p1, Staged
}

// Stage validates and authenticates the update at ptr and records it as
// pending. Stage(0, nil) clears the record. Errors leave the record
// unchanged.
func (s *Store) Stage(ptr uint32, hash []byte) error {
	if ptr == 0 {
		s.Clear()
		return nil
	}
	size, err := s.Validator.Validate(ptr)
	if err != nil {
		return err
	}
	if s.Authenticator != nil {
		r := mcu.NewReader(s.Mem, ptr, size)
		if err := s.Authenticator.Authenticate(r, hash); err != nil {
			return err
		}
	}
	s.set(ptr)
	return nil
}

// Clear resets the record to 0/0.
func (s *Store) Clear() { s.set(0) }

func (s *Store) set(v uint32) {
	r := s.Regs
	r.PEKEYR.Store(mcu.PEKEY1)
	r.PEKEYR.Store(mcu.PEKEY2)
	s.write(s.Addr, v)
	s.write(s.Addr+4, v)
	mcu.SetBits(r.PECR, mcu.PELOCK)
}

func (s *Store) write(addr, v uint32) {
	s.Mem.Store(addr, v)
	for s.Regs.SR.Load()&mcu.BSY != 0 {
	}
	if s.Regs.SR.Load()&mcu.EOP == 0 {
		mcu.SetBits(s.Regs.PECR, mcu.PELOCK)
		s.Fault.Panic(fault.Bootloader, fault.Flash, DiagRecord)
		return
	}
	s.Regs.SR.Store(mcu.EOP)
}
