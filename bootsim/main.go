// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Bootsim runs the bootloader on a simulated STM32L0/L1 device. The state
// of the non-volatile memory is kept in an Intel HEX file between runs.
package main

import (
	"flag"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/embeddedgo/boot/bootsim/internal/util"
)

var (
	rootOpts = struct {
		target  string
		targets string
		image   string
	}{}

	rootCmd = &cobra.Command{
		Use:   "bootsim",
		Short: "Run the bootloader on a simulated device",
		Long: "Bootsim packs firmware updates, stages them on a simulated " +
			"STM32L0/L1 device and runs the bootloader against it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// glog flags are already set through pflag
			flag.CommandLine.Parse(nil)
		},
	}
)

func init() {
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	rootCmd.PersistentFlags().AddFlagSet(pflag.CommandLine)
	rootCmd.PersistentFlags().StringVar(&rootOpts.target, "target", "stm32l072", "board profile")
	rootCmd.PersistentFlags().StringVar(&rootOpts.targets, "targets", "", "YAML file with additional board profiles")
	rootCmd.PersistentFlags().StringVarP(&rootOpts.image, "image", "i", "device.hex", "device memory image (Intel HEX)")
	rootCmd.AddCommand(bootCmd, stageCmd, packCmd, checkCmd, hexCmd, targetsCmd)
}

func main() {
	err := rootCmd.Execute()
	glog.Flush()
	util.FatalErr("bootsim", err)
}
