// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package image

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"

	"github.com/embeddedgo/boot/jpatch"
	"github.com/embeddedgo/boot/update"
)

// Firmware fills in the 12-byte header of the firmware image fw: size,
// CRC-32 of bytes [8, size) and entry. The image is padded with zeros to
// a multiple of 4 bytes.
func Firmware(fw []byte, entry uint32) ([]byte, error) {
	if len(fw) < update.HeaderSize {
		return nil, fmt.Errorf("firmware: image too short (%d bytes)", len(fw))
	}
	for len(fw)&3 != 0 {
		fw = append(fw, 0)
	}
	binary.LittleEndian.PutUint32(fw[0:], uint32(len(fw)))
	binary.LittleEndian.PutUint32(fw[8:], entry)
	binary.LittleEndian.PutUint32(fw[4:], crc32.ChecksumIEEE(fw[8:]))
	return fw, nil
}

// Verify checks the header of the firmware image fw linked at base.
func Verify(fw []byte, base uint32) (size, entry uint32, err error) {
	if len(fw) < update.HeaderSize {
		return 0, 0, errors.New("verify: image too short")
	}
	size = binary.LittleEndian.Uint32(fw[0:])
	sum := binary.LittleEndian.Uint32(fw[4:])
	entry = binary.LittleEndian.Uint32(fw[8:])
	if size < update.HeaderSize || size&3 != 0 || int64(size) > int64(len(fw)) {
		return 0, 0, fmt.Errorf("verify: bad size %d", size)
	}
	if c := crc32.ChecksumIEEE(fw[8:size]); c != sum {
		return 0, 0, fmt.Errorf("verify: CRC 0x%08X, want 0x%08X", c, sum)
	}
	if e := entry &^ 1; e < base+update.HeaderSize || e >= base+size {
		return 0, 0, fmt.Errorf("verify: entry point %#08x outside the image", entry)
	}
	return size, entry, nil
}

// Update wraps payload into an update of type t. The payload is the
// firmware for Plain and LZ4 (compressed here) and a JojoDiff patch for
// Patch, whose result is fwsize bytes long. Patches are aligned with
// no-op operations instead of zero padding.
func Update(t update.Type, payload []byte, fwsize uint32) ([]byte, error) {
	switch t {
	case update.Plain:
		fwsize = uint32(len(payload))
	case update.LZ4:
		fwsize = uint32(len(payload))
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if err := zw.Apply(lz4.BlockSizeOption(lz4.Block64Kb)); err != nil {
			return nil, errors.Wrap(err, "lz4")
		}
		if _, err := zw.Write(payload); err != nil {
			return nil, errors.Wrap(err, "lz4")
		}
		if err := zw.Close(); err != nil {
			return nil, errors.Wrap(err, "lz4")
		}
		payload = buf.Bytes()
	case update.Patch:
		if fwsize == 0 {
			return nil, errors.New("update: patch needs the resulting firmware size")
		}
		payload = jpatch.Align(payload)
	default:
		return nil, fmt.Errorf("update: unknown type %v", t)
	}
	h := update.Header{Type: t, FWSize: fwsize}
	n := update.HeaderSize + len(payload)
	n = (n + 3) &^ 3
	h.Size = uint32(n)
	b, _ := h.AppendBinary(make([]byte, 0, n))
	b = append(b, payload...)
	for len(b) < n {
		b = append(b, 0)
	}
	return b, nil
}
