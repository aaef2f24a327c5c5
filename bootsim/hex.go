// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/embeddedgo/boot/bootsim/internal/image"
	"github.com/embeddedgo/boot/bootsim/internal/util"
)

var (
	hexOpts = struct {
		addr string
	}{}

	hexCmd = &cobra.Command{
		Use:   "hex FILE [HEX]",
		Short: "Convert a firmware or update file to Intel HEX",
		Long: "Hex converts a packed file to the Intel HEX format for a " +
			"flash programmer. A firmware image is placed at the firmware " +
			"base, anything else at the start of the update area unless " +
			"--addr is given.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := lookupTarget()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "hex")
			}
			addr := t.Updates.Base
			if _, _, err := image.Verify(data, t.Firmware.Base); err == nil {
				addr = t.Firmware.Base
			}
			if hexOpts.addr != "" {
				a, err := strconv.ParseUint(hexOpts.addr, 0, 32)
				if err != nil {
					return errors.Wrap(err, "hex: addr")
				}
				addr = uint32(a)
			}
			var out string
			if len(args) == 2 {
				out = args[1]
			}
			out = util.OutFile(args[0], out, ".hex")
			w, err := os.Create(out)
			if err != nil {
				return errors.Wrap(err, "hex")
			}
			defer w.Close()
			ss := image.Sections{{Paddr: uint64(addr), Data: data}}
			if err := image.WriteHex(w, ss); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bytes at %#08x\n", out, len(data), addr)
			return w.Close()
		},
	}
)

func init() {
	hexCmd.Flags().StringVarP(&hexOpts.addr, "addr", "a", "", "load address")
}
