// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Registers contains the state of all 6502 registers.
type Registers struct {
	A                byte   // accumulator
	X                byte   // X indexing register
	Y                byte   // Y indexing register
	SP               byte   // stack pointer ($100 + SP = stack memory location)
	PC               uint16 // program counter
	Carry            bool   // PS: Carry bit
	Zero             bool   // PS: Zero bit
	InterruptDisable bool   // PS: Interrupt disable bit
	Decimal          bool   // PS: Decimal bit
	Overflow         bool   // PS: Overflow bit
	Sign             bool   // PS: Sign bit
}

// Bits assigned to the processor status byte
const (
	CarryBit            = 1 << 0
	ZeroBit             = 1 << 1
	InterruptDisableBit = 1 << 2
	DecimalBit          = 1 << 3
	BreakBit            = 1 << 4
	ReservedBit         = 1 << 5
	OverflowBit         = 1 << 6
	SignBit             = 1 << 7
)

// Register state established by a reset.
const (
	resetSP = 0xfd
	resetPS = ReservedBit | InterruptDisableBit
)

// SavePS returns the processor status as it appears when pushed on the
// stack. The reserved bit is always set. The break bit is set only if brk
// is true, as it is for BRK and PHP.
func (r *Registers) SavePS(brk bool) byte {
	var ps byte = ReservedBit
	if r.Carry {
		ps |= CarryBit
	}
	if r.Zero {
		ps |= ZeroBit
	}
	if r.InterruptDisable {
		ps |= InterruptDisableBit
	}
	if r.Decimal {
		ps |= DecimalBit
	}
	if brk {
		ps |= BreakBit
	}
	if r.Overflow {
		ps |= OverflowBit
	}
	if r.Sign {
		ps |= SignBit
	}
	return ps
}

// RestorePS restores the processor status from a byte. The break and
// reserved bits have no storage and are discarded.
func (r *Registers) RestorePS(ps byte) {
	r.Carry = (ps & CarryBit) != 0
	r.Zero = (ps & ZeroBit) != 0
	r.InterruptDisable = (ps & InterruptDisableBit) != 0
	r.Decimal = (ps & DecimalBit) != 0
	r.Overflow = (ps & OverflowBit) != 0
	r.Sign = (ps & SignBit) != 0
}

// Init puts the registers in their post-reset state: A, X, Y = 0,
// SP = $FD and only the interrupt disable flag set. PC is left alone
// because it comes from the reset vector.
func (r *Registers) Init() {
	r.A = 0
	r.X = 0
	r.Y = 0
	r.SP = resetSP
	r.RestorePS(resetPS)
}

func boolToUint(v bool) uint {
	if v {
		return 1
	}
	return 0
}

func boolToByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
