// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/embeddedgo/boot/bootsim/internal/image"
	"github.com/embeddedgo/boot/staging"
	"github.com/embeddedgo/boot/update"
)

var checkCmd = &cobra.Command{
	Use:   "check [FIRMWARE]",
	Short: "Verify a firmware image or the device state",
	Long: "With an argument check verifies the header and CRC of a firmware " +
		"image file. Without it prints the update pointer record of the " +
		"device and validates the staged update.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			t, err := lookupTarget()
			if err != nil {
				return err
			}
			fw, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "check")
			}
			size, entry, err := image.Verify(fw, t.Firmware.Base)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %d bytes, entry point %#08x\n", args[0], size, entry)
			return nil
		}
		d, err := openDevice()
		if err != nil {
			return err
		}
		st := d.boot.Store()
		p1, p2 := st.Raw()
		addr, state := st.Pending()
		fmt.Fprintf(out, "update pointer: %#08x/%#08x (%v)\n", p1, p2, state)
		if state != staging.Staged {
			return nil
		}
		h := update.ReadHeader(d.dev, addr)
		fmt.Fprintf(out, "update: %v, %d bytes, firmware %d bytes\n", h.Type, h.Size, h.FWSize)
		if _, err := d.boot.Installer().Validate(addr); err != nil {
			return err
		}
		fmt.Fprintln(out, "update valid")
		return nil
	},
}
