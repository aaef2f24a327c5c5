// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boot

import (
	"github.com/embeddedgo/boot/fault"
	"github.com/embeddedgo/boot/update"
)

// Version of the boot table.
const Version = 0x100

// Table is the boot table: the services the bootloader exports to the
// firmware.
type Table struct {
	Version uint32

	// StageUpdate validates the update at ptr, checks its hash and records
	// it for installation on the next reset. StageUpdate(0, nil) cancels a
	// staged update. It returns an update.Code.
	StageUpdate func(ptr uint32, hash []byte) uint32

	// Panic reports a fatal firmware error. It does not return.
	Panic func(reason fault.Reason, addr uint32)
}

// Table returns the boot table.
func (b *Bootloader) Table() Table {
	return Table{
		Version: Version,
		StageUpdate: func(ptr uint32, hash []byte) uint32 {
			return uint32(update.CodeOf(b.store.Stage(ptr, hash)))
		},
		Panic: b.fault.FirmwarePanic,
	}
}
