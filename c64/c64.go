// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package c64 assembles a Commodore 64 class machine: a 6510 processor
// with 64K of RAM, the BASIC, KERNAL and character ROMs, and the banking
// logic controlled by the processor port.
//
// The address map never changes once the machine is built. Each banked
// area is occupied by a device that consults the processor port on every
// access to decide which memory is visible.
//
//	$0000-$0001  processor port
//	$0002-$9FFF  RAM
//	$A000-$BFFF  BASIC ROM or RAM
//	$C000-$CFFF  RAM
//	$D000-$DFFF  I/O, character ROM or RAM
//	$E000-$FFFF  KERNAL ROM or RAM
//
// Writes to an area showing ROM always reach the RAM beneath it.
package c64

import (
	"errors"
	"fmt"

	"github.com/beevik/go64/bus"
	"github.com/beevik/go64/machine"
)

// Errors
var (
	ErrROMSize = errors.New("c64: ROM image has the wrong size")
)

// ROM image sizes
const (
	BASICSize  = 0x2000
	KERNALSize = 0x2000
	CharSize   = 0x1000
)

// ROMs holds the firmware images of the machine.
type ROMs struct {
	BASIC  []byte
	KERNAL []byte
	Char   []byte
}

func (r *ROMs) validate() error {
	images := []struct {
		name string
		b    []byte
		size int
	}{
		{"BASIC", r.BASIC, BASICSize},
		{"KERNAL", r.KERNAL, KERNALSize},
		{"character", r.Char, CharSize},
	}
	for _, i := range images {
		if len(i.b) != i.size {
			return fmt.Errorf("%w: %s is %d bytes, exp %d", ErrROMSize, i.name, len(i.b), i.size)
		}
	}
	return nil
}

// Config holds the settings of a C64.
type Config struct {
	machine.Config
	RandomRAM bool   // fill RAM with pseudo-random bytes at power-on
	Seed      uint64 // seed for the RAM contents
}

// A C64 is a machine with Commodore 64 memory banking.
type C64 struct {
	*machine.Machine
	Port *ProcessorPort
	RAM  *bus.RAM
	IO   *bus.RAM // stands in for the chips of the I/O area

	basic  *bus.ROM
	kernal *bus.ROM
	char   *bus.ROM
}

// New builds a C64 from its ROM images. The returned machine has not been
// reset.
func New(roms ROMs, cfg Config) (*C64, error) {
	if err := roms.validate(); err != nil {
		return nil, err
	}

	m, err := machine.New(cfg.Config)
	if err != nil {
		return nil, err
	}

	c := &C64{
		Machine: m,
		Port:    NewProcessorPort(),
		IO:      bus.NewRAM(0x1000),
		basic:   bus.NewROM("basic", roms.BASIC, m.Log),
		kernal:  bus.NewROM("kernal", roms.KERNAL, m.Log),
		char:    bus.NewROM("char", roms.Char, m.Log),
	}
	if cfg.RandomRAM {
		c.RAM = bus.NewRandomRAM(0x10000, cfg.Seed)
	} else {
		c.RAM = bus.NewRAM(0x10000)
	}

	attachments := []machine.Attachment{
		{Range: bus.NewRange(0x0000, 2), Device: c.Port},
		{Range: bus.Span(0x0002, 0x9fff), Device: c.RAM},
		{Range: bus.NewRange(0xa000, BASICSize), Device: c.newBank(0xa000, BASICSize, c.selectBASIC)},
		{Range: bus.Span(0xc000, 0xcfff), Device: c.RAM},
		{Range: bus.NewRange(0xd000, CharSize), Device: c.newBank(0xd000, CharSize, c.selectIO)},
		{Range: bus.NewRange(0xe000, KERNALSize), Device: c.newBank(0xe000, KERNALSize, c.selectKERNAL)},
	}
	for _, a := range attachments {
		if err := m.AttachDevice(a.Range, a.Device); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// BASIC is visible only when both LORAM and HIRAM are high.
func (c *C64) selectBASIC() bus.Device {
	if c.Port.line(LORAM) && c.Port.line(HIRAM) {
		return c.basic
	}
	return nil
}

// The KERNAL is visible whenever HIRAM is high.
func (c *C64) selectKERNAL() bus.Device {
	if c.Port.line(HIRAM) {
		return c.kernal
	}
	return nil
}

// With LORAM and HIRAM both low, $D000 shows RAM. Otherwise CHAREN
// chooses between I/O and the character ROM.
func (c *C64) selectIO() bus.Device {
	switch {
	case !c.Port.line(LORAM) && !c.Port.line(HIRAM):
		return nil
	case c.Port.line(CHAREN):
		return c.IO
	default:
		return c.char
	}
}

// A bank is a banked area of the address space starting at bus address
// base. It is attached with local addresses starting at 0. Reads come from
// the device chosen by the selector, or from the RAM beneath the area when
// it chooses none. Writes go to the selected device only when it is I/O.
type bank struct {
	c      *C64
	base   uint16
	size   int
	choose func() bus.Device
}

func (c *C64) newBank(base uint16, size int, choose func() bus.Device) *bank {
	return &bank{c: c, base: base, size: size, choose: choose}
}

// Size returns the number of addresses the bank covers.
func (b *bank) Size() int {
	return b.size
}

func (b *bank) Read(addr uint16) byte {
	if d := b.choose(); d != nil {
		return d.Read(addr)
	}
	return b.c.RAM.Read(b.base + addr)
}

func (b *bank) Write(addr uint16, v byte) {
	if d := b.choose(); d == b.c.IO {
		d.Write(addr, v)
		return
	}
	b.c.RAM.Write(b.base+addr, v)
}

// Visible returns the name of the memory currently visible at addr.
func (c *C64) Visible(addr uint16) string {
	mp, ok := c.Map.Lookup(addr)
	if !ok {
		return "unmapped"
	}
	b, ok := mp.Device.(*bank)
	if !ok {
		if mp.Device == bus.Device(c.Port) {
			return "port"
		}
		return "ram"
	}
	switch d := b.choose().(type) {
	case nil:
		return "ram"
	case *bus.ROM:
		return d.Name()
	default:
		return "io"
	}
}
