// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/embeddedgo/boot/bootsim/internal/util"
)

var (
	bootOpts = struct {
		progress bool
	}{}

	bootCmd = &cobra.Command{
		Use:   "boot",
		Short: "Reset the device and run the bootloader",
		Long: "Boot installs the pending update, verifies the firmware and " +
			"prints its entry point. A fault is reported with the code the " +
			"device blinks before it resets.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDevice()
			if err != nil {
				return err
			}
			if bootOpts.progress {
				p := &util.Progress{W: os.Stderr, Pre: "patch", Post: "%"}
				d.boot.Installer().Progress = p.Percent
			}
			var entry uint32
			rst := d.dev.Run(func() { entry = d.boot.Boot() })
			if err := d.save(); err != nil {
				return err
			}
			if rst != nil {
				codes, err := rst.Codes()
				if err != nil || len(codes) == 0 {
					return fmt.Errorf("device reset, no diagnostic code")
				}
				return fmt.Errorf("device fault: %v", codes[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "entry point: %#08x\n", entry)
			return nil
		},
	}
)

func init() {
	bootCmd.Flags().BoolVarP(&bootOpts.progress, "progress", "p", false, "show patch progress")
}
