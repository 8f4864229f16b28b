// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a 6502 instruction set
// disassembler.
package disasm

import (
	"fmt"
	"strings"

	"github.com/beevik/go64/bus"
	"github.com/beevik/go64/cpu"
)

// Disassembler formatting for addressing modes
var modeFormat = []string{
	"#$%s",    // IMM
	"%s",      // IMP
	"$%s",     // REL
	"$%s",     // ZPG
	"$%s,X",   // ZPX
	"$%s,Y",   // ZPY
	"$%s",     // ABS
	"$%s,X",   // ABX
	"$%s,Y",   // ABY
	"($%s)",   // IND
	"($%s,X)", // IDX
	"($%s),Y", // IDY
	"%s",      // ACC
}

var hex = "0123456789ABCDEF"

// Return a hexadecimal string representation of the little-endian byte
// slice.
func hexString(b []byte) string {
	hexlen := len(b) * 2
	hexbuf := make([]byte, hexlen)
	j := hexlen - 1
	for _, n := range b {
		hexbuf[j] = hex[n&0xf]
		hexbuf[j-1] = hex[n>>4]
		j -= 2
	}
	return string(hexbuf)
}

// Disassemble the machine code at address 'addr'. Return a 'line' string
// representing the disassembled instruction and a 'next' address that
// starts the following line of machine code.
func Disassemble(r bus.Reader, addr uint16) (line string, next uint16, err error) {
	inst, operand, err := fetch(r, addr)
	if err != nil {
		return "", addr, err
	}

	if inst.Mode == cpu.REL {
		// Convert relative offset to absolute address.
		braddr := addr + uint16(inst.Length) + uint16(int8(operand[0]))
		operand = []byte{byte(braddr), byte(braddr >> 8)}
	}

	format := "%s " + modeFormat[inst.Mode]
	line = strings.TrimSpace(fmt.Sprintf(format, inst.Name, hexString(operand)))
	next = addr + uint16(inst.Length)
	return line, next, nil
}

// Line returns a monitor-style line for the instruction at addr: its
// address, its code bytes and its disassembly.
func Line(r bus.Reader, addr uint16) (line string, next uint16, err error) {
	text, next, err := Disassemble(r, addr)
	if err != nil {
		return "", addr, err
	}

	code := make([]byte, next-addr)
	for i := range code {
		if code[i], err = r.Read(addr + uint16(i)); err != nil {
			return "", addr, err
		}
	}

	return fmt.Sprintf("%04X-   %-8s    %-15s", addr, codeString(code), text), next, nil
}

func fetch(r bus.Reader, addr uint16) (*cpu.Instruction, []byte, error) {
	opcode, err := r.Read(addr)
	if err != nil {
		return nil, nil, err
	}

	inst := cpu.GetInstructionSet().Lookup(opcode)
	operand := make([]byte, inst.Length-1)
	for i := range operand {
		if operand[i], err = r.Read(addr + 1 + uint16(i)); err != nil {
			return nil, nil, err
		}
	}
	return inst, operand, nil
}

func codeString(b []byte) string {
	s := make([]string, len(b))
	for i, v := range b {
		s[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(s, " ")
}

// GetRegisterString returns a string describing the contents of the 6502
// registers.
func GetRegisterString(r *cpu.Registers) string {
	return fmt.Sprintf("A=%02X X=%02X Y=%02X PS=[%s] SP=%02X PC=%04X",
		r.A, r.X, r.Y, getStatusBits(r), r.SP, r.PC)
}

// Return a string representing the CPU's status flags.
func getStatusBits(r *cpu.Registers) string {
	v := []bool{r.Sign, r.Overflow, false, false, r.Decimal, r.InterruptDisable, r.Zero, r.Carry}
	b := []byte("NV-BDIZC")
	for i := range b {
		if !v[i] {
			b[i] = '-'
		}
	}
	return string(b)
}
