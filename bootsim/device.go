// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"io/fs"
	"os"

	pkgerrors "github.com/pkg/errors"

	"github.com/embeddedgo/boot/boot"
	"github.com/embeddedgo/boot/bootsim/internal/util"
	"github.com/embeddedgo/boot/sim"
	"github.com/embeddedgo/boot/targets"
)

func lookupTarget() (targets.Target, error) {
	if rootOpts.targets != "" {
		ts, err := targets.Load(rootOpts.targets)
		if err != nil {
			return targets.Target{}, err
		}
		if t, err := ts.Find(rootOpts.target); err == nil {
			return t, nil
		}
	}
	return targets.Lookup(rootOpts.target)
}

type device struct {
	target targets.Target
	dev    *sim.Device
	boot   *boot.Bootloader
}

// openDevice creates the simulated device and loads the memory image if it
// exists.
func openDevice() (*device, error) {
	t, err := lookupTarget()
	if err != nil {
		return nil, err
	}
	d := &device{target: t, dev: sim.New(t.Sim())}
	f, err := os.Open(rootOpts.image)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		util.Warn("%s: new device", rootOpts.image)
	case err != nil:
		return nil, pkgerrors.Wrap(err, "open image")
	default:
		defer f.Close()
		if err := d.dev.LoadHex(f); err != nil {
			return nil, pkgerrors.Wrap(err, rootOpts.image)
		}
	}
	opts := append(t.Options(), boot.WithLogger(util.Glog{}))
	d.boot = boot.New(targets.Hardware(d.dev), t.Layout(), opts...)
	return d, nil
}

// save writes the memory image back.
func (d *device) save() error {
	f, err := os.Create(rootOpts.image)
	if err != nil {
		return pkgerrors.Wrap(err, "save image")
	}
	if err := d.dev.DumpHex(f); err != nil {
		f.Close()
		return err
	}
	return pkgerrors.Wrap(f.Close(), "save image")
}
