// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package targets describes the supported boards: memory map, flash
// geometry and the bootloader layout.
package targets

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/embeddedgo/boot/boot"
	"github.com/embeddedgo/boot/flash"
	"github.com/embeddedgo/boot/mcu"
	"github.com/embeddedgo/boot/sim"
)

//go:embed targets.yaml
var rawTargets []byte

var builtin Targets

var ErrNotFound = errors.New("target not found")

// Memory is a region given by its size.
type Memory struct {
	Base uint32 `yaml:"base"`
	Size uint32 `yaml:"size"`
}

// Region is a region given by its bounds.
type Region struct {
	Base uint32 `yaml:"base"`
	End  uint32 `yaml:"end"`
}

// Target is a board profile.
type Target struct {
	Name       string   `yaml:"name"`
	Chips      []string `yaml:"chips"`
	Family     string   `yaml:"family"`
	Flash      Memory   `yaml:"flash"`
	EEPROM     Memory   `yaml:"eeprom"`
	RAM        Memory   `yaml:"ram"`
	Firmware   Region   `yaml:"firmware"`
	Scratch    Region   `yaml:"scratch"`
	Updates    Region   `yaml:"updates"`
	Record     uint32   `yaml:"record"`
	PageBuffer int      `yaml:"pageBuffer"`
	BusyPolls  int      `yaml:"busyPolls"`
	LED        bool     `yaml:"led"`
}

type Targets []Target

// All returns the built-in profiles.
func All() Targets {
	return builtin
}

// Lookup finds a built-in profile by name or chip.
func Lookup(name string) (Target, error) {
	return builtin.Find(name)
}

// Find returns the target with the given name or chip.
func (ts Targets) Find(name string) (Target, error) {
	name = strings.ToLower(name)
	for _, t := range ts {
		if t.Name == name || slices.Contains(t.Chips, name) {
			return t, nil
		}
	}
	return Target{}, errors.Wrap(ErrNotFound, name)
}

// Load reads profiles from the YAML file at path.
func Load(path string) (Targets, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "targets")
	}
	defer f.Close()
	ts, err := decode(f)
	return ts, errors.Wrapf(err, "targets: %s", path)
}

func decode(r io.Reader) (Targets, error) {
	var doc struct {
		Targets Targets `yaml:"targets"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	for i := range doc.Targets {
		if err := doc.Targets[i].Check(); err != nil {
			return nil, err
		}
	}
	return doc.Targets, nil
}

// FamilyID returns the peripheral family of t.
func (t *Target) FamilyID() (mcu.Family, error) {
	switch strings.ToLower(t.Family) {
	case mcu.L0.String():
		return mcu.L0, nil
	case mcu.L1.String():
		return mcu.L1, nil
	}
	return 0, errors.Errorf("%s: unknown family %q", t.Name, t.Family)
}

// Geometry returns the flash organization of t.
func (t *Target) Geometry() flash.Geometry {
	if f, _ := t.FamilyID(); f == mcu.L1 {
		return flash.L1
	}
	return flash.L0
}

func (t *Target) inFlash(r Region) bool {
	return r.Base >= t.Flash.Base && r.End <= t.Flash.Base+t.Flash.Size
}

// Check validates the consistency of the profile.
func (t *Target) Check() error {
	if t.Name == "" {
		return errors.New("target without name")
	}
	if _, err := t.FamilyID(); err != nil {
		return err
	}
	pb := t.Geometry().PageBytes()
	aligned := func(r Region) bool { return (r.Base|r.End)&(pb-1) == 0 }
	if t.Firmware.End <= t.Firmware.Base || !t.inFlash(t.Firmware) || !aligned(t.Firmware) {
		return errors.Errorf("%s: bad firmware region", t.Name)
	}
	if t.Scratch != (Region{}) {
		if t.Scratch.End <= t.Scratch.Base || !t.inFlash(t.Scratch) || !aligned(t.Scratch) {
			return errors.Errorf("%s: bad scratch region", t.Name)
		}
	}
	if t.Updates.End <= t.Updates.Base {
		return errors.Errorf("%s: bad update area", t.Name)
	}
	if t.Record < t.EEPROM.Base || t.Record+8 > t.EEPROM.Base+t.EEPROM.Size || t.Record&3 != 0 {
		return errors.Errorf("%s: update record outside EEPROM", t.Name)
	}
	return nil
}

// Sim returns the simulator configuration of t.
func (t *Target) Sim() sim.Config {
	f, _ := t.FamilyID()
	return sim.Config{
		Family:     f,
		Geometry:   t.Geometry(),
		FlashBase:  t.Flash.Base,
		FlashSize:  t.Flash.Size,
		EEPROMBase: t.EEPROM.Base,
		EEPROMSize: t.EEPROM.Size,
		RAMBase:    t.RAM.Base,
		RAMSize:    t.RAM.Size,
		BusyPolls:  t.BusyPolls,
		LED:        t.LED,
	}
}

// Layout returns the bootloader memory map of t.
func (t *Target) Layout() boot.Layout {
	return boot.Layout{
		FirmwareBase: t.Firmware.Base,
		FirmwareEnd:  t.Firmware.End,
		ScratchBase:  t.Scratch.Base,
		ScratchEnd:   t.Scratch.End,
		UpdateBase:   t.Updates.Base,
		UpdateEnd:    t.Updates.End,
		Record:       t.Record,
	}
}

// Options returns the bootloader options implied by t.
func (t *Target) Options() []boot.Option {
	return []boot.Option{boot.WithPageBuffer(t.PageBuffer)}
}

// Hardware binds the bootloader to the simulated device d.
func Hardware(d *sim.Device) boot.Hardware {
	cfg := d.Config()
	return boot.Hardware{
		Mem:      d,
		Flash:    &d.FlashRegs,
		CRC:      &d.CRCRegs,
		RCC:      &d.RCCRegs,
		Core:     d,
		LED:      d.LED(),
		Delay:    d.Delay,
		Family:   cfg.Family,
		Geometry: cfg.Geometry,
	}
}

func init() {
	ts, err := decode(bytes.NewReader(rawTargets))
	if err != nil {
		panic(err)
	}
	builtin = ts
}
