// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/embeddedgo/boot/targets"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List the board profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ts := targets.All()
		if rootOpts.targets != "" {
			ext, err := targets.Load(rootOpts.targets)
			if err != nil {
				return err
			}
			ts = append(ext, ts...)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFAMILY\tFIRMWARE\tSCRATCH\tCHIPS")
		for _, t := range ts {
			scratch := "-"
			if t.Scratch.End > t.Scratch.Base {
				scratch = fmt.Sprintf("%#08x-%#08x", t.Scratch.Base, t.Scratch.End)
			}
			fmt.Fprintf(w, "%s\t%s\t%#08x-%#08x\t%s\t%s\n",
				t.Name, t.Family, t.Firmware.Base, t.Firmware.End, scratch,
				strings.Join(t.Chips, ","))
		}
		return w.Flush()
	},
}
