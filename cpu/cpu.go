// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu implements a cycle-accurate NMOS 6502 CPU emulator.
//
// The CPU advances one clock cycle per call to Tick, and every cycle
// performs exactly one bus access: the same reads, dummy reads and writes,
// in the same order, as the real chip.
package cpu

// The Bus interface presents the address space through which all CPU
// memory accesses occur.
type Bus interface {
	Read(addr uint16) (byte, error)
	Write(addr uint16, v byte) error
}

// A Signal is an interrupt input of the CPU.
type Signal interface {
	Asserted() bool
}

// CPU represents a single 6502 CPU attached to a bus.
type CPU struct {
	Reg     Registers       // CPU registers
	Bus     Bus             // attached address space
	IRQ     Signal          // maskable interrupt input, level sensitive
	NMI     Signal          // non-maskable interrupt input, edge sensitive
	Cycles  uint64          // total executed CPU cycles
	LastPC  uint16          // address of the current or last instruction
	InstSet *InstructionSet // Instruction set used by the CPU

	inst       *Instruction // instruction being executed, nil for interrupts
	seq        []cycleFunc  // remaining cycles of the current instruction
	addr       uint16       // effective address
	ptr        byte         // zero page pointer
	data       byte         // value in flight
	crossed    bool         // indexed address crossed a page
	vector     uint16       // interrupt vector being serviced
	nmiLevel   bool         // NMI input during the previous cycle
	nmiPending bool         // NMI edge not yet serviced
	stalled    bool         // stopped at an unimplemented opcode
	debugger   *Debugger
}

// Interrupt vectors
const (
	vectorNMI   = 0xfffa
	vectorReset = 0xfffc
	vectorIRQ   = 0xfffe
)

// NewCPU creates an emulated 6502 CPU bound to the specified bus. The
// registers hold their post-reset values, but PC is not loaded until
// Reset is called.
func NewCPU(b Bus) *CPU {
	c := &CPU{
		Bus:     b,
		InstSet: GetInstructionSet(),
	}
	c.Reg.Init()
	return c
}

// SetPC updates the CPU program counter to 'addr'. It should only be
// called at an instruction boundary.
func (c *CPU) SetPC(addr uint16) {
	c.Reg.PC = addr
	c.LastPC = addr
}

// GetInstruction returns the instruction whose opcode is at the requested
// address.
func (c *CPU) GetInstruction(addr uint16) (*Instruction, error) {
	opcode, err := c.Bus.Read(addr)
	if err != nil {
		return nil, err
	}
	return c.InstSet.Lookup(opcode), nil
}

// NextAddr returns the address of the next instruction following the
// instruction at addr.
func (c *CPU) NextAddr(addr uint16) (uint16, error) {
	inst, err := c.GetInstruction(addr)
	if err != nil {
		return 0, err
	}
	return addr + uint16(inst.Length), nil
}

// AtBoundary reports whether the CPU has completed its current
// instruction or interrupt sequence. The next Tick starts a new one.
func (c *CPU) AtBoundary() bool {
	return len(c.seq) == 0
}

// Reset performs the reset sequence: A, X and Y are cleared, SP becomes
// $FD, only the interrupt disable flag is set, and PC is loaded from the
// reset vector. Any unfinished instruction and pending NMI are discarded.
// The stack is not touched, so repeated resets leave the CPU in the same
// state.
func (c *CPU) Reset() error {
	lo, err := c.Bus.Read(vectorReset)
	if err != nil {
		return err
	}
	hi, err := c.Bus.Read(vectorReset + 1)
	if err != nil {
		return err
	}

	c.Reg.Init()
	c.Reg.PC = uint16(lo) | uint16(hi)<<8
	c.LastPC = c.Reg.PC
	c.Cycles = 0
	c.inst = nil
	c.seq = nil
	c.stalled = false
	c.nmiPending = false
	c.nmiLevel = c.NMI != nil && c.NMI.Asserted()
	return nil
}

// Tick runs one clock cycle. At an instruction boundary the CPU either
// begins servicing an interrupt or fetches the next opcode. Otherwise it
// performs the next cycle of the current instruction.
//
// If the cycle fails, the current instruction is abandoned and PC is
// restored to the address of its opcode.
func (c *CPU) Tick() error {
	c.sampleNMI()

	var err error
	if len(c.seq) == 0 {
		err = c.begin()
	} else {
		next := c.seq[0]
		c.seq = c.seq[1:]
		err = next(c)
	}
	c.Cycles++

	if err != nil {
		c.seq = nil
		c.Reg.PC = c.LastPC
		return err
	}

	if len(c.seq) == 0 && c.debugger != nil {
		c.debugger.onUpdatePC(c, c.Reg.PC)
	}
	return nil
}

// NMI is latched on the transition of the input from released to
// asserted. Holding it asserted does not cause further interrupts.
func (c *CPU) sampleNMI() {
	level := c.NMI != nil && c.NMI.Asserted()
	if level && !c.nmiLevel {
		c.nmiPending = true
	}
	c.nmiLevel = level
}

func (c *CPU) irqRequested() bool {
	return c.IRQ != nil && c.IRQ.Asserted() && !c.Reg.InterruptDisable
}

// Begin the next instruction or interrupt sequence.
func (c *CPU) begin() error {
	c.LastPC = c.Reg.PC
	c.stalled = false

	if c.nmiPending || c.irqRequested() {
		return c.beginInterrupt()
	}

	opcode, err := c.read(c.Reg.PC)
	if err != nil {
		return err
	}

	c.inst = c.InstSet.Lookup(opcode)
	if c.inst.impl == nil {
		c.stalled = true
		return &UnimplementedOpcodeError{Opcode: opcode, PC: c.Reg.PC}
	}

	c.Reg.PC++
	c.seq = c.inst.seq
	return nil
}

// An interrupt replaces the instruction at PC. Its opcode is fetched and
// discarded. An IRQ taken with a BRK at PC also skips the BRK.
func (c *CPU) beginInterrupt() error {
	opcode, err := c.read(c.Reg.PC)
	if err != nil {
		return err
	}

	if c.nmiPending {
		c.vector = vectorNMI
		c.nmiPending = false
	} else {
		c.vector = vectorIRQ
		if opcode == 0x00 {
			c.Reg.PC++
		}
	}

	c.inst = nil
	c.seq = interruptSeq
	return nil
}

// SubstituteNOP resumes a CPU stopped at an unimplemented opcode,
// executing the opcode as a no-op of its documented length and duration.
// It reports false if the CPU is not stopped at an unimplemented opcode.
func (c *CPU) SubstituteNOP() bool {
	if !c.stalled {
		return false
	}
	c.stalled = false
	c.Reg.PC++
	c.seq = c.inst.seq
	return true
}

// AttachDebugger attaches a debugger to the CPU. The debugger receives
// notifications whenever the CPU completes an instruction or stores a
// byte to memory.
func (c *CPU) AttachDebugger(debugger *Debugger) {
	c.debugger = debugger
}

// DetachDebugger detaches the current debugger from the CPU.
func (c *CPU) DetachDebugger() {
	c.debugger = nil
}
