// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/embeddedgo/boot/update"
)

var (
	stageOpts = struct {
		addr   string
		noHash bool
		cancel bool
	}{}

	stageCmd = &cobra.Command{
		Use:   "stage [UPDATE]",
		Short: "Store an update on the device and stage it",
		Long: "Stage copies the update file into the device memory and " +
			"calls the StageUpdate service of the boot table, as the " +
			"running firmware would.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDevice()
			if err != nil {
				return err
			}
			tab := d.boot.Table()
			if stageOpts.cancel {
				if c := update.Code(tab.StageUpdate(0, nil)); c != update.OK {
					return c
				}
				return d.save()
			}
			if len(args) != 1 {
				return errors.New("stage: missing update file")
			}
			up, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "stage")
			}
			addr := d.target.Updates.Base
			if stageOpts.addr != "" {
				a, err := strconv.ParseUint(stageOpts.addr, 0, 32)
				if err != nil {
					return errors.Wrap(err, "stage: address")
				}
				addr = uint32(a)
			}
			if err := d.dev.Poke(addr, up); err != nil {
				return err
			}
			var hash []byte
			if !stageOpts.noHash {
				sum := sha256.Sum256(up)
				hash = sum[:]
			}
			if c := update.Code(tab.StageUpdate(addr, hash)); c != update.OK {
				return c
			}
			fmt.Fprintf(cmd.OutOrStdout(), "staged %d bytes at %#08x\n", len(up), addr)
			return d.save()
		},
	}
)

func init() {
	stageCmd.Flags().StringVarP(&stageOpts.addr, "addr", "a", "", "update address (default: start of the update area)")
	stageCmd.Flags().BoolVar(&stageOpts.noHash, "no-hash", false, "do not pass the SHA-256 of the update")
	stageCmd.Flags().BoolVar(&stageOpts.cancel, "cancel", false, "clear the update pointer")
}
