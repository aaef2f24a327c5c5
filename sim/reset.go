// Copyright 2026 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"fmt"

	"github.com/embeddedgo/boot/fault"
	"github.com/embeddedgo/boot/mcu"
)

// Level is a period of constant LED state, measured in Delay units.
type Level struct {
	On    bool
	Units int
}

// Reset describes the device state captured at a system reset.
type Reset struct {
	Trace       []Level // LED activity since power on
	IRQDisabled bool
	MSI         bool   // system clock switched to MSI
	MSIRange    uint32 // ICSCR.MSIRANGE field
	Latency     uint32 // FLASH.ACR.LATENCY
}

func (r *Reset) Error() string {
	if c, ok := r.Code(); ok {
		return "sim: system reset: " + c.String()
	}
	return "sim: system reset"
}

// Codes decodes the diagnostic frames blinked before the reset.
func (r *Reset) Codes() ([]fault.Code, error) {
	return DecodeBlinks(r.Trace)
}

// Code returns the first decoded diagnostic code.
func (r *Reset) Code() (fault.Code, bool) {
	codes, err := r.Codes()
	if err != nil || len(codes) == 0 {
		return fault.Code{}, false
	}
	return codes[0], true
}

// SystemReset implements fault.Core. It resets the peripherals, keeps the
// memory content and unwinds the caller with a *Reset panic.
func (d *Device) SystemReset() {
	r := &Reset{
		Trace:       d.trace,
		IRQDisabled: d.irqOff,
		MSI:         d.cfgr&mcu.SWS == mcu.SWS_MSI,
		MSIRange:    d.icscr & mcu.MSIRANGE,
		Latency:     d.acr & mcu.LATENCY,
	}
	d.resets++
	d.powerOn()
	panic(r)
}

// Run calls f and returns the reset f ended with, or nil if f returned
// normally. Other panics are propagated.
func (d *Device) Run(f func()) (r *Reset) {
	defer func() {
		if v := recover(); v != nil {
			rst, ok := v.(*Reset)
			if !ok {
				panic(v)
			}
			r = rst
		}
	}()
	f()
	return nil
}

type led struct{ d *Device }

func (l led) Init() {
	l.d.ledInit = true
	l.d.ledOn = false
}

func (l led) Set(on bool) {
	if !l.d.ledInit {
		panic("sim: LED used before Init")
	}
	l.d.ledOn = on
}

// LED returns the diagnostic LED or nil if the board has none.
func (d *Device) LED() fault.LED {
	if !d.cfg.LED {
		return nil
	}
	return led{d}
}

// Delay records units of time spent in the current LED state.
func (d *Device) Delay(units int) {
	if n := len(d.trace); n > 0 && d.trace[n-1].On == d.ledOn {
		d.trace[n-1].Units += units
		return
	}
	d.trace = append(d.trace, Level{d.ledOn, units})
}

// Trace returns the LED activity recorded since power on.
func (d *Device) Trace() []Level { return d.trace }

// DecodeBlinks decodes the frames produced by the fault handler blink
// encoder.
func DecodeBlinks(trace []Level) ([]fault.Code, error) {
	var codes []fault.Code
	next := func(on bool) (int, error) {
		if len(trace) == 0 {
			return 0, fmt.Errorf("sim: blink trace truncated")
		}
		l := trace[0]
		trace = trace[1:]
		if l.On != on {
			return 0, fmt.Errorf("sim: blink trace: unexpected LED state %t", l.On)
		}
		return l.Units, nil
	}
	const (
		gapBlink  = fault.ShortUnits
		gapNibble = fault.ShortUnits + fault.NibbleUnits
		gapValue  = gapNibble + fault.LongUnits
	)
	for len(trace) != 0 {
		if on, err := next(true); err != nil {
			return nil, err
		} else if on != fault.LongUnits {
			return nil, fmt.Errorf("sim: blink trace: bad frame start (%d units)", on)
		}
		if off, err := next(false); err != nil {
			return nil, err
		} else if off != fault.LongUnits {
			return nil, fmt.Errorf("sim: blink trace: bad frame gap (%d units)", off)
		}
		var vals [3]uint32
		for k := range vals {
			var v uint32
			shift, n := 0, 0
		value:
			for {
				on, err := next(true)
				if err != nil {
					return nil, err
				}
				if on != fault.ShortUnits {
					return nil, fmt.Errorf("sim: blink trace: bad blink (%d units)", on)
				}
				n++
				off, err := next(false)
				if err != nil {
					return nil, err
				}
				switch off {
				case gapBlink:
				case gapNibble, gapValue:
					if n > 16 || shift > 28 {
						return nil, fmt.Errorf("sim: blink trace: nibble overflow")
					}
					v |= uint32(n-1) << shift
					shift += 4
					n = 0
					if off == gapValue {
						break value
					}
				default:
					return nil, fmt.Errorf("sim: blink trace: bad gap (%d units)", off)
				}
			}
			vals[k] = v
		}
		codes = append(codes, fault.Code{
			Kind:   fault.Kind(vals[0]),
			Reason: fault.Reason(vals[1]),
			Addr:   vals[2],
		})
	}
	return codes, nil
}
