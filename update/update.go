// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package update installs firmware updates staged in memory.
//
// A staged update is a 12-byte header followed by the payload:
//
//	offset 0: type   (0 plain, 1 LZ4, 2 patch)
//	offset 4: size   (header + payload, bytes)
//	offset 8: fwsize (installed firmware, bytes)
//
// Every strategy runs in two phases. Validation computes the destination
// and checks bounds without touching memory. Installation programs flash
// and treats every failure as fatal.
package update

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/embeddedgo/boot/mcu"
)

// Type is the update encoding.
type Type uint32

const (
	Plain Type = 0
	LZ4   Type = 1
	Patch Type = 2
)

func (t Type) String() string {
	switch t {
	case Plain:
		return "plain"
	case LZ4:
		return "lz4"
	case Patch:
		return "patch"
	}
	return fmt.Sprintf("type(%d)", uint32(t))
}

// HeaderSize is the size of the encoded Header.
const HeaderSize = 12

// Header precedes a staged update.
type Header struct {
	Type   Type
	Size   uint32 // header + payload
	FWSize uint32 // resulting firmware
}

// ReadHeader reads the header of the update staged at addr.
func ReadHeader(mem mcu.Memory, addr uint32) Header {
	return Header{
		Type:   Type(mem.Load(addr)),
		Size:   mem.Load(addr + 4),
		FWSize: mem.Load(addr + 8),
	}
}

// AppendBinary appends the encoded header to b.
func (h Header) AppendBinary(b []byte) ([]byte, error) {
	b = binary.LittleEndian.AppendUint32(b, uint32(h.Type))
	b = binary.LittleEndian.AppendUint32(b, h.Size)
	b = binary.LittleEndian.AppendUint32(b, h.FWSize)
	return b, nil
}

// Code is the result code returned through the boot table.
type Code uint32

const (
	OK       Code = 0
	ESize    Code = 1 // bad size or destination out of range
	ENoImpl  Code = 2 // unknown update type
	EUnknown Code = 3
	EHash    Code = 4 // missing or wrong update hash
)

func (c Code) Error() string {
	switch c {
	case OK:
		return "update: ok"
	case ESize:
		return "update: bad size"
	case ENoImpl:
		return "update: not implemented"
	case EUnknown:
		return "update: unknown error"
	case EHash:
		return "update: hash mismatch"
	}
	return fmt.Sprintf("update: error %d", uint32(c))
}

// CodeOf maps err to its result code: nil is OK, errors that are not
// (and do not wrap) a Code are EUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return EUnknown
}

// Logger is the logging interface used by the installer and the
// bootloader. Keys and values alternate in kv.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger discards everything.
var NopLogger Logger = nopLogger{}
