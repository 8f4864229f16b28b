// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/go64/cpu"
	"github.com/beevik/prefixtree/v2"
)

var errEmptyValue = errors.New("missing value")

// A register is a CPU register or status flag the monitor can read and
// change.
type register struct {
	name string
	size int // 0 for flags, else bytes
	get  func(r *cpu.Registers) int
	set  func(r *cpu.Registers, v int)
}

var (
	registers    []register
	registerTree = prefixtree.New[*register]()
)

func flagRegister(name string, f func(r *cpu.Registers) *bool) register {
	return register{
		name: name,
		get:  func(r *cpu.Registers) int { return boolToInt(*f(r)) },
		set:  func(r *cpu.Registers, v int) { *f(r) = v != 0 },
	}
}

func init() {
	registers = []register{
		{"a", 1, func(r *cpu.Registers) int { return int(r.A) }, func(r *cpu.Registers, v int) { r.A = byte(v) }},
		{"x", 1, func(r *cpu.Registers) int { return int(r.X) }, func(r *cpu.Registers, v int) { r.X = byte(v) }},
		{"y", 1, func(r *cpu.Registers) int { return int(r.Y) }, func(r *cpu.Registers, v int) { r.Y = byte(v) }},
		{"sp", 1, func(r *cpu.Registers) int { return int(r.SP) }, func(r *cpu.Registers, v int) { r.SP = byte(v) }},
		{"pc", 2, func(r *cpu.Registers) int { return int(r.PC) }, func(r *cpu.Registers, v int) { r.PC = uint16(v) }},
		flagRegister("sign", func(r *cpu.Registers) *bool { return &r.Sign }),
		flagRegister("negative", func(r *cpu.Registers) *bool { return &r.Sign }),
		flagRegister("overflow", func(r *cpu.Registers) *bool { return &r.Overflow }),
		flagRegister("decimal", func(r *cpu.Registers) *bool { return &r.Decimal }),
		flagRegister("interrupt", func(r *cpu.Registers) *bool { return &r.InterruptDisable }),
		flagRegister("zero", func(r *cpu.Registers) *bool { return &r.Zero }),
		flagRegister("carry", func(r *cpu.Registers) *bool { return &r.Carry }),
	}
	for i := range registers {
		registerTree.Add(registers[i].name, &registers[i])
	}
}

// Find a register by name. Unlike the register command, values must name
// registers exactly.
func findRegister(name string) *register {
	for i := range registers {
		if registers[i].size > 0 && registers[i].name == name {
			return &registers[i]
		}
	}
	return nil
}

// parseValue evaluates a sequence of terms joined by + and -. A term is
// a number, a register name, or "." for the program counter.
func (h *Host) parseValue(s string) (int, error) {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, errEmptyValue
	}

	total, sign := 0, 1
	for len(s) > 0 {
		switch s[0] {
		case '+':
			s = s[1:]
			continue
		case '-':
			sign = -sign
			s = s[1:]
			continue
		}

		n := strings.IndexAny(s[1:], "+-") + 1
		if n == 0 {
			n = len(s)
		}
		v, err := h.parseTerm(s[:n])
		if err != nil {
			return 0, err
		}
		total += sign * v
		s, sign = s[n:], 1
	}
	return total, nil
}

// parseAddr evaluates a value and truncates it to a 16-bit address.
// Negative values count back from $10000.
func (h *Host) parseAddr(s string) (uint16, error) {
	v, err := h.parseValue(s)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

func (h *Host) parseTerm(t string) (int, error) {
	lt := strings.ToLower(t)

	var base int
	switch {
	case lt == ".":
		return int(h.m.CPU.Reg.PC), nil
	case strings.HasPrefix(lt, "$"):
		lt, base = lt[1:], 16
	case strings.HasPrefix(lt, "0x"):
		lt, base = lt[2:], 16
	case strings.HasPrefix(lt, "%"):
		lt, base = lt[1:], 2
	case h.settings.HexMode:
		if v, err := strconv.ParseUint(lt, 16, 32); err == nil {
			return int(v), nil
		}
	default:
		base = 10
	}

	if base != 0 {
		if v, err := strconv.ParseUint(lt, base, 32); err == nil {
			return int(v), nil
		}
	}

	if r := findRegister(lt); r != nil {
		v := r.get(&h.m.CPU.Reg)
		if r.name == "sp" {
			v |= 0x0100
		}
		return v, nil
	}
	return 0, fmt.Errorf("invalid value '%s'", t)
}
