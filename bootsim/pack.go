// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/embeddedgo/boot/bootsim/internal/image"
	"github.com/embeddedgo/boot/update"
)

var (
	packOpts = struct {
		typ    string
		inc    string
		entry  string
		output string
		fwOut  string
		fwsize uint32
	}{}

	packCmd = &cobra.Command{
		Use:   "pack [ELF | PATCH]",
		Short: "Build a firmware update",
		Long: "Pack builds the firmware image from an ELF file and/or binary " +
			"includes (--inc BIN:ADDR,...), fills in its header and wraps it " +
			"into a plain or LZ4 update. For --type=patch the argument is a " +
			"JojoDiff patch and --fwsize the size of the patched firmware.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := parseType(packOpts.typ)
			if err != nil {
				return err
			}
			var payload []byte
			if typ == update.Patch {
				if len(args) != 1 {
					return errors.New("pack: missing patch file")
				}
				if payload, err = os.ReadFile(args[0]); err != nil {
					return errors.Wrap(err, "pack")
				}
			} else if payload, err = buildFirmware(args); err != nil {
				return err
			}
			up, err := image.Update(typ, payload, packOpts.fwsize)
			if err != nil {
				return err
			}
			if err := os.WriteFile(packOpts.output, up, 0o644); err != nil {
				return errors.Wrap(err, "pack")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v update, %d bytes\n", packOpts.output, typ, len(up))
			return nil
		},
	}
)

func init() {
	packCmd.Flags().StringVarP(&packOpts.typ, "type", "t", "plain", "update type (plain, lz4, patch)")
	packCmd.Flags().StringVar(&packOpts.inc, "inc", "", "binary files to be included BIN1:ADDR1[,BIN2:ADDR2[,...]]")
	packCmd.Flags().StringVarP(&packOpts.entry, "entry", "e", "", "entry point (default: ELF entry)")
	packCmd.Flags().StringVarP(&packOpts.output, "output", "o", "update.bin", "output file")
	packCmd.Flags().StringVar(&packOpts.fwOut, "fw", "", "also write the firmware image to this file")
	packCmd.Flags().Uint32Var(&packOpts.fwsize, "fwsize", 0, "size of the patched firmware")
}

func parseType(s string) (update.Type, error) {
	for _, t := range []update.Type{update.Plain, update.LZ4, update.Patch} {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("pack: unknown update type %q", s)
}

func buildFirmware(args []string) ([]byte, error) {
	var (
		sections image.Sections
		entry    uint32
	)
	if len(args) == 1 {
		ss, e, err := image.ReadELF(args[0])
		if err != nil {
			return nil, err
		}
		sections, entry = ss, e
	}
	if packOpts.inc != "" {
		ss, err := image.ReadBins(packOpts.inc)
		if err != nil {
			return nil, err
		}
		sections = append(sections, ss...)
	}
	if packOpts.entry != "" {
		e, err := strconv.ParseUint(packOpts.entry, 0, 32)
		if err != nil {
			return nil, errors.Wrap(err, "pack: entry")
		}
		entry = uint32(e)
	}
	t, err := lookupTarget()
	if err != nil {
		return nil, err
	}
	base, data, err := sections.Flatten(0)
	if err != nil {
		return nil, err
	}
	if base != t.Firmware.Base {
		return nil, fmt.Errorf("pack: image starts at %#08x, firmware base is %#08x", base, t.Firmware.Base)
	}
	fw, err := image.Firmware(data, entry)
	if err != nil {
		return nil, err
	}
	if _, _, err := image.Verify(fw, base); err != nil {
		return nil, err
	}
	if packOpts.fwOut != "" {
		if err := os.WriteFile(packOpts.fwOut, fw, 0o644); err != nil {
			return nil, errors.Wrap(err, "pack")
		}
	}
	return fw, nil
}
