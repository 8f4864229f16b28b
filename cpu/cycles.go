// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// A cycleFunc performs the work of one clock cycle of an instruction,
// including exactly one bus access. A cycleFunc may end its instruction
// early by clearing the CPU's remaining sequence.
type cycleFunc func(c *CPU) error

// Cycle sequences by addressing mode and access kind. Each sequence holds
// the cycles that follow the opcode fetch.
var (
	seqImplied     = []cycleFunc{impliedExec}
	seqAccumulator = []cycleFunc{accumulatorModify}
	seqBranch      = []cycleFunc{branchOffset, branchTaken, branchFix}

	readSeq = map[Mode][]cycleFunc{
		IMM: {immediateRead},
		ZPG: {zpAddr, readEA},
		ZPX: {zpAddr, zpIndexX, readEA},
		ZPY: {zpAddr, zpIndexY, readEA},
		ABS: {absLo, absHi, readEA},
		ABX: {absLo, absHiX, readIndexed, readEA},
		ABY: {absLo, absHiY, readIndexed, readEA},
		IDX: {zpPtr, ptrIndexX, ptrLo, ptrHi, readEA},
		IDY: {zpPtr, ptrLo, ptrHiY, readIndexed, readEA},
	}

	writeSeq = map[Mode][]cycleFunc{
		ZPG: {zpAddr, writeEA},
		ZPX: {zpAddr, zpIndexX, writeEA},
		ZPY: {zpAddr, zpIndexY, writeEA},
		ABS: {absLo, absHi, writeEA},
		ABX: {absLo, absHiX, dummyIndexed, writeEA},
		ABY: {absLo, absHiY, dummyIndexed, writeEA},
		IDX: {zpPtr, ptrIndexX, ptrLo, ptrHi, writeEA},
		IDY: {zpPtr, ptrLo, ptrHiY, dummyIndexed, writeEA},
	}

	modifySeq = map[Mode][]cycleFunc{
		ZPG: {zpAddr, modifyRead, modifyDummyWrite, modifyWrite},
		ZPX: {zpAddr, zpIndexX, modifyRead, modifyDummyWrite, modifyWrite},
		ABS: {absLo, absHi, modifyRead, modifyDummyWrite, modifyWrite},
		ABX: {absLo, absHiX, dummyIndexed, modifyRead, modifyDummyWrite, modifyWrite},
	}

	// Instructions whose cycles are unique to them.
	controlSeq = map[byte][]cycleFunc{
		0x00: {brkPadding, pushPCH, pushPCL, pushStatusBrk, vectorLo, vectorHi},
		0x08: {dummyPC, pushStatusBrk},
		0x20: {absLo, stackDummy, pushPCH, pushPCL, jsrHi},
		0x28: {dummyPC, stackDummy, pullStatus},
		0x40: {dummyPC, stackDummy, pullStatus, pullPCL, pullPCH},
		0x48: {dummyPC, pushA},
		0x4c: {absLo, jmpAbs},
		0x60: {dummyPC, stackDummy, pullPCL, pullPCH, rtsIncrement},
		0x68: {dummyPC, stackDummy, pullA},
		0x6c: {absLo, absHi, indirectLo, jmpIndirect},
	}

	// The opcode fetch of a hardware interrupt is discarded and followed
	// by these cycles.
	interruptSeq = []cycleFunc{dummyPC, pushPCH, pushPCL, pushStatusIRQ, vectorLo, vectorHi}
)

func sequenceFor(d *opcodeData, im *opcodeImpl) []cycleFunc {
	if seq, ok := controlSeq[d.opcode]; ok {
		return seq
	}
	switch {
	case im.branch != nil:
		return seqBranch
	case im.exec != nil:
		return seqImplied
	case im.read != nil:
		return readSeq[d.mode]
	case im.write != nil:
		return writeSeq[d.mode]
	case im.modify != nil && d.mode == ACC:
		return seqAccumulator
	case im.modify != nil:
		return modifySeq[d.mode]
	}
	return nil
}

// nopSequence fetches and discards the operand bytes of an instruction,
// then idles until the instruction has used all of its cycles.
func nopSequence(length, cycles byte) []cycleFunc {
	seq := make([]cycleFunc, 0, cycles-1)
	for i := byte(1); i < length; i++ {
		seq = append(seq, skipOperand)
	}
	for len(seq) < int(cycles)-1 {
		seq = append(seq, dummyPC)
	}
	return seq
}

//
// Bus helpers
//

func (c *CPU) read(addr uint16) (byte, error) {
	return c.Bus.Read(addr)
}

func (c *CPU) write(addr uint16, v byte) error {
	if c.debugger != nil {
		c.debugger.onDataStore(c, addr, v)
	}
	return c.Bus.Write(addr, v)
}

// Read the byte at PC and advance PC past it.
func (c *CPU) fetch() (byte, error) {
	v, err := c.read(c.Reg.PC)
	if err != nil {
		return 0, err
	}
	c.Reg.PC++
	return v, nil
}

// Push writes to the current stack slot, then moves SP down, wrapping
// within page 1.
func (c *CPU) push(v byte) error {
	if err := c.write(stackAddress(c.Reg.SP), v); err != nil {
		return err
	}
	c.Reg.SP--
	return nil
}

// Pull moves SP up, then reads the stack slot it points to.
func (c *CPU) pull() (byte, error) {
	c.Reg.SP++
	return c.read(stackAddress(c.Reg.SP))
}

func stackAddress(sp byte) uint16 {
	return 0x100 | uint16(sp)
}

// The address the CPU actually accesses before correcting the high byte
// of an indexed address that crossed a page.
func (c *CPU) uncorrected() uint16 {
	if c.crossed {
		return c.addr - 0x100
	}
	return c.addr
}

func (c *CPU) index(base uint16, idx byte) {
	c.addr = base + uint16(idx)
	c.crossed = (base^c.addr)&0xff00 != 0
}

//
// Operand and address cycles
//

func dummyPC(c *CPU) error {
	_, err := c.read(c.Reg.PC)
	return err
}

func skipOperand(c *CPU) error {
	_, err := c.fetch()
	return err
}

func impliedExec(c *CPU) error {
	if err := dummyPC(c); err != nil {
		return err
	}
	c.inst.impl.exec(c)
	return nil
}

func accumulatorModify(c *CPU) error {
	if err := dummyPC(c); err != nil {
		return err
	}
	c.Reg.A = c.inst.impl.modify(c, c.Reg.A)
	return nil
}

func immediateRead(c *CPU) error {
	v, err := c.fetch()
	if err != nil {
		return err
	}
	c.inst.impl.read(c, v)
	return nil
}

func zpAddr(c *CPU) error {
	v, err := c.fetch()
	c.addr = uint16(v)
	return err
}

// Zero page indexing reads the unindexed address while adding, and the
// sum never leaves page zero.
func zpIndexX(c *CPU) error {
	_, err := c.read(c.addr)
	c.addr = uint16(byte(c.addr) + c.Reg.X)
	return err
}

func zpIndexY(c *CPU) error {
	_, err := c.read(c.addr)
	c.addr = uint16(byte(c.addr) + c.Reg.Y)
	return err
}

func absLo(c *CPU) error {
	v, err := c.fetch()
	c.addr = uint16(v)
	return err
}

func absHi(c *CPU) error {
	v, err := c.fetch()
	c.addr |= uint16(v) << 8
	return err
}

func absHiX(c *CPU) error {
	v, err := c.fetch()
	c.index(c.addr|uint16(v)<<8, c.Reg.X)
	return err
}

func absHiY(c *CPU) error {
	v, err := c.fetch()
	c.index(c.addr|uint16(v)<<8, c.Reg.Y)
	return err
}

func zpPtr(c *CPU) error {
	v, err := c.fetch()
	c.ptr = v
	return err
}

func ptrIndexX(c *CPU) error {
	_, err := c.read(uint16(c.ptr))
	c.ptr += c.Reg.X
	return err
}

func ptrLo(c *CPU) error {
	v, err := c.read(uint16(c.ptr))
	c.addr = uint16(v)
	return err
}

// The pointer's high byte comes from the next zero page address, wrapping
// from $FF to $00.
func ptrHi(c *CPU) error {
	v, err := c.read(uint16(c.ptr + 1))
	c.addr |= uint16(v) << 8
	return err
}

func ptrHiY(c *CPU) error {
	v, err := c.read(uint16(c.ptr + 1))
	c.index(c.addr|uint16(v)<<8, c.Reg.Y)
	return err
}

// An indexed read that did not cross a page completes here. Otherwise the
// read at the uncorrected address is discarded and repeated at the correct
// address in the next cycle.
func readIndexed(c *CPU) error {
	if c.crossed {
		_, err := c.read(c.uncorrected())
		return err
	}
	if err := readEA(c); err != nil {
		return err
	}
	c.seq = nil
	return nil
}

func dummyIndexed(c *CPU) error {
	_, err := c.read(c.uncorrected())
	return err
}

func readEA(c *CPU) error {
	v, err := c.read(c.addr)
	if err != nil {
		return err
	}
	c.inst.impl.read(c, v)
	return nil
}

func writeEA(c *CPU) error {
	return c.write(c.addr, c.inst.impl.write(c))
}

func modifyRead(c *CPU) error {
	v, err := c.read(c.addr)
	c.data = v
	return err
}

// The unmodified value is written back while the result is computed.
func modifyDummyWrite(c *CPU) error {
	if err := c.write(c.addr, c.data); err != nil {
		return err
	}
	c.data = c.inst.impl.modify(c, c.data)
	return nil
}

func modifyWrite(c *CPU) error {
	return c.write(c.addr, c.data)
}

//
// Branches
//

func branchOffset(c *CPU) error {
	v, err := c.fetch()
	if err != nil {
		return err
	}
	if !c.inst.impl.branch(c) {
		c.seq = nil
		return nil
	}
	c.data = v
	return nil
}

// A taken branch reads the next opcode while adding the offset to the low
// byte of PC.
func branchTaken(c *CPU) error {
	if err := dummyPC(c); err != nil {
		return err
	}
	target := c.Reg.PC + uint16(int8(c.data))
	if (target^c.Reg.PC)&0xff00 == 0 {
		c.Reg.PC = target
		c.seq = nil
		return nil
	}
	c.addr = target
	c.Reg.PC = c.Reg.PC&0xff00 | target&0x00ff
	return nil
}

// The branch crossed a page: the read at the uncorrected PC is discarded
// while the high byte is fixed.
func branchFix(c *CPU) error {
	if err := dummyPC(c); err != nil {
		return err
	}
	c.Reg.PC = c.addr
	return nil
}

//
// Jumps, subroutines and the stack
//

func jmpAbs(c *CPU) error {
	v, err := c.fetch()
	if err != nil {
		return err
	}
	c.Reg.PC = c.addr | uint16(v)<<8
	return nil
}

func indirectLo(c *CPU) error {
	v, err := c.read(c.addr)
	c.data = v
	return err
}

// The NMOS 6502 never carries into the high byte of the pointer, so
// JMP ($12FF) takes its high byte from $1200.
func jmpIndirect(c *CPU) error {
	v, err := c.read(c.addr&0xff00 | uint16(byte(c.addr)+1))
	if err != nil {
		return err
	}
	c.Reg.PC = uint16(c.data) | uint16(v)<<8
	return nil
}

func stackDummy(c *CPU) error {
	_, err := c.read(stackAddress(c.Reg.SP))
	return err
}

func jsrHi(c *CPU) error {
	v, err := c.read(c.Reg.PC)
	if err != nil {
		return err
	}
	c.Reg.PC = c.addr | uint16(v)<<8
	return nil
}

func pushPCH(c *CPU) error {
	return c.push(byte(c.Reg.PC >> 8))
}

func pushPCL(c *CPU) error {
	return c.push(byte(c.Reg.PC))
}

func pushA(c *CPU) error {
	return c.push(c.Reg.A)
}

func pullA(c *CPU) error {
	v, err := c.pull()
	if err != nil {
		return err
	}
	c.Reg.A = v
	c.updateNZ(v)
	return nil
}

func pullStatus(c *CPU) error {
	v, err := c.pull()
	if err != nil {
		return err
	}
	c.Reg.RestorePS(v)
	return nil
}

func pullPCL(c *CPU) error {
	v, err := c.pull()
	c.addr = uint16(v)
	return err
}

func pullPCH(c *CPU) error {
	v, err := c.pull()
	if err != nil {
		return err
	}
	c.Reg.PC = c.addr | uint16(v)<<8
	return nil
}

func rtsIncrement(c *CPU) error {
	if err := dummyPC(c); err != nil {
		return err
	}
	c.Reg.PC++
	return nil
}

//
// Interrupts
//

// BRK skips the byte following its opcode.
func brkPadding(c *CPU) error {
	c.vector = vectorIRQ
	return skipOperand(c)
}

func pushStatusBrk(c *CPU) error {
	return c.pushStatus(true)
}

func pushStatusIRQ(c *CPU) error {
	return c.pushStatus(false)
}

// An NMI detected by the time the status byte is pushed takes over the
// vector fetch of a BRK or IRQ sequence.
func (c *CPU) pushStatus(brk bool) error {
	if err := c.push(c.Reg.SavePS(brk)); err != nil {
		return err
	}
	if c.inst == nil || c.inst.Opcode == 0x00 {
		if c.vector == vectorIRQ && c.nmiPending {
			c.vector = vectorNMI
			c.nmiPending = false
		}
	}
	return nil
}

func vectorLo(c *CPU) error {
	v, err := c.read(c.vector)
	if err != nil {
		return err
	}
	c.addr = uint16(v)
	c.Reg.InterruptDisable = true
	return nil
}

func vectorHi(c *CPU) error {
	v, err := c.read(c.vector + 1)
	if err != nil {
		return err
	}
	c.Reg.PC = c.addr | uint16(v)<<8
	return nil
}
