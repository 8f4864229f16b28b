// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package machine_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/beevik/go64/bus"
	"github.com/beevik/go64/cpu"
	"github.com/beevik/go64/machine"
)

// Create a machine with 64K of RAM, a reset vector pointing at $1000 and
// an IRQ vector pointing at $2000. The code is stored at $1000.
func newMachine(t *testing.T, cfg machine.Config, code ...byte) *machine.Machine {
	t.Helper()
	m, err := machine.New(cfg, machine.Attachment{Range: bus.Span(0, 0xffff), Device: bus.NewRAM(0x10000)})
	if err != nil {
		t.Fatal(err)
	}
	store(t, m, 0xfffc, 0x00, 0x10, 0x00, 0x20)
	store(t, m, 0x1000, code...)
	if err := m.Reset(); err != nil {
		t.Fatal(err)
	}
	return m
}

func store(t *testing.T, m *machine.Machine, addr uint16, b ...byte) {
	t.Helper()
	if err := m.Map.Store(addr, b); err != nil {
		t.Fatal(err)
	}
}

func step(t *testing.T, m *machine.Machine) int {
	t.Helper()
	n, err := m.Step()
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	return n
}

func expectPC(t *testing.T, m *machine.Machine, pc uint16) {
	t.Helper()
	if m.CPU.Reg.PC != pc {
		t.Errorf("PC incorrect. exp: $%04X, got: $%04X", pc, m.CPU.Reg.PC)
	}
}

func expectSteps(t *testing.T, got, exp int) {
	t.Helper()
	if got != exp {
		t.Errorf("Step cycles incorrect. exp: %d, got: %d", exp, got)
	}
}

func expectCycles(t *testing.T, m *machine.Machine, cycles uint64) {
	t.Helper()
	if m.Clock.Cycles() != cycles {
		t.Errorf("Cycles incorrect. exp: %d, got: %d", cycles, m.Clock.Cycles())
	}
}

func TestLoadImmediate(t *testing.T) {
	ram := bus.NewRAM(8)
	m, err := machine.New(machine.Config{}, machine.Attachment{Range: bus.NewRange(0, 8), Device: ram})
	if err != nil {
		t.Fatal(err)
	}
	store(t, m, 0x0000, 0xa9, 0x42) // LDA #$42
	m.CPU.SetPC(0x0000)

	expectSteps(t, step(t, m), 2)
	expectPC(t, m, 0x0002)
	expectCycles(t, m, 2)
	if m.CPU.Reg.A != 0x42 {
		t.Errorf("ACC incorrect. exp: $42, got: $%02X", m.CPU.Reg.A)
	}
}

func TestRangeConflict(t *testing.T) {
	m, err := machine.New(machine.Config{},
		machine.Attachment{Range: bus.NewRange(0x0000, 0x1000), Device: bus.NewRAM(0x1000)},
		machine.Attachment{Range: bus.NewRange(0x0800, 0x1000), Device: bus.NewRAM(0x1000)},
	)
	if m != nil {
		t.Error("machine constructed despite a range conflict")
	}
	if !errors.Is(err, bus.ErrRangeConflict) {
		t.Errorf("exp range conflict, got: %v", err)
	}

	var rc *bus.RangeConflictError
	if errors.As(err, &rc) && rc.Existing.Base != 0x0000 {
		t.Errorf("conflicting range incorrect: %v", rc.Existing)
	}
}

func TestUnmappedAccess(t *testing.T) {
	m, err := machine.New(machine.Config{}, machine.Attachment{Range: bus.NewRange(0, 0x8000), Device: bus.NewRAM(0x8000)})
	if err != nil {
		t.Fatal(err)
	}
	store(t, m, 0x0200, 0xad, 0x00, 0x90) // LDA $9000
	m.CPU.SetPC(0x0200)

	n, err := m.Step()
	var ua *bus.UnmappedAccessError
	switch {
	case !errors.As(err, &ua):
		t.Fatalf("exp unmapped access, got: %v", err)
	case ua.Addr != 0x9000 || ua.Write:
		t.Errorf("unmapped access incorrect: %v", ua)
	}
	expectSteps(t, n, 4)
	expectPC(t, m, 0x0200)

	if !m.Halted() || !errors.Is(m.Err(), bus.ErrUnmappedAccess) {
		t.Errorf("machine not halted on unmapped access: %v", m.Err())
	}

	_, err = m.Step()
	if !errors.Is(err, machine.ErrHalted) || !errors.Is(err, bus.ErrUnmappedAccess) {
		t.Errorf("halted machine stepped: %v", err)
	}
	expectCycles(t, m, 4)
}

func TestIRQMasked(t *testing.T) {
	m := newMachine(t, machine.Config{},
		0xea, // NOP
		0xea, // NOP
		0x58, // CLI
		0xea, // NOP
	)
	m.IRQ.NewSource("test").Assert()

	expectSteps(t, step(t, m), 2)
	expectPC(t, m, 0x1001)
	expectSteps(t, step(t, m), 2)
	expectPC(t, m, 0x1002)
	expectSteps(t, step(t, m), 2)
	expectPC(t, m, 0x1003)

	expectSteps(t, step(t, m), 7)
	expectPC(t, m, 0x2000)
	if !m.CPU.Reg.InterruptDisable {
		t.Error("interrupt disable flag not set by IRQ service")
	}
}

func TestStackWrap(t *testing.T) {
	m := newMachine(t, machine.Config{},
		0xa2, 0x00, // LDX #$00
		0x9a,       // TXS
		0xa9, 0x55, // LDA #$55
		0x48,       // PHA
		0x48,       // PHA
	)
	for range 5 {
		step(t, m)
	}

	if m.CPU.Reg.SP != 0xfe {
		t.Errorf("SP incorrect. exp: $FE, got: $%02X", m.CPU.Reg.SP)
	}
	for _, addr := range []uint16{0x0100, 0x01ff} {
		if v, _ := m.Map.Read(addr); v != 0x55 {
			t.Errorf("Mem[$%04X] incorrect. exp: $55, got: $%02X", addr, v)
		}
	}
}

func TestOpcodePolicyHalt(t *testing.T) {
	m := newMachine(t, machine.Config{}, 0x04, 0x10, 0xea)

	n, err := m.Step()
	if !errors.Is(err, cpu.ErrUnimplementedOpcode) {
		t.Fatalf("exp unimplemented opcode, got: %v", err)
	}
	expectSteps(t, n, 1)
	expectPC(t, m, 0x1000)

	if _, err := m.Step(); !errors.Is(err, machine.ErrHalted) {
		t.Errorf("exp halted, got: %v", err)
	}

	if err := m.Reset(); err != nil {
		t.Fatal(err)
	}
	if m.Halted() {
		t.Error("reset did not clear the halt")
	}
	expectCycles(t, m, 0)
}

func TestOpcodePolicyNOP(t *testing.T) {
	m := newMachine(t, machine.Config{Unimplemented: machine.NOP},
		0x04, 0x10, // undocumented zero page NOP
		0x02,       // undocumented jam
		0xa9, 0x01, // LDA #$01
	)

	expectSteps(t, step(t, m), 3)
	expectPC(t, m, 0x1002)
	expectSteps(t, step(t, m), 2)
	expectPC(t, m, 0x1003)
	expectSteps(t, step(t, m), 2)
	expectPC(t, m, 0x1005)

	found := false
	for _, e := range m.Log.Entries() {
		if strings.Contains(e.Detail, "$04") {
			found = true
		}
	}
	if !found {
		t.Error("substituted NOP not logged")
	}
}

func TestRunUntil(t *testing.T) {
	m := newMachine(t, machine.Config{},
		0xe8,             // INX
		0x4c, 0x00, 0x10, // JMP $1000
	)

	reason, err := m.RunUntil(nil, 10)
	if err != nil || reason != machine.StopBudget {
		t.Errorf("exp budget stop, got: %v %v", reason, err)
	}
	expectCycles(t, m, 10)

	reason, err = m.RunUntil(func(m *machine.Machine) bool { return m.CPU.Reg.X == 10 }, 0)
	if err != nil || reason != machine.StopCondition {
		t.Errorf("exp condition stop, got: %v %v", reason, err)
	}
	expectPC(t, m, 0x1001)
	expectCycles(t, m, 47)
}

func TestRunUntilError(t *testing.T) {
	m := newMachine(t, machine.Config{}, 0xea, 0xea, 0x02)

	reason, err := m.RunUntil(nil, 100)
	if reason != machine.StopError || !errors.Is(err, cpu.ErrUnimplementedOpcode) {
		t.Errorf("exp error stop, got: %v %v", reason, err)
	}
	expectPC(t, m, 0x1002)
}

// A device that counts its ticks and records the CPU's cycle count each
// time it is ticked.
type counter struct {
	bus.RAM
	c       *cpu.CPU
	ticks   int
	resets  int
	cpuSeen []uint64
}

func (d *counter) Tick() error {
	d.ticks++
	d.cpuSeen = append(d.cpuSeen, d.c.Cycles)
	return nil
}

func (d *counter) Reset() {
	d.resets++
}

func TestDeviceTicks(t *testing.T) {
	dev := &counter{RAM: *bus.NewRAM(0x100)}
	m, err := machine.New(machine.Config{},
		machine.Attachment{Range: bus.Span(0, 0xbfff), Device: bus.NewRAM(0xc000)},
		machine.Attachment{Range: bus.NewRange(0xc000, 0x100), Device: dev},
		machine.Attachment{Range: bus.NewRange(0xc100, 0x100), Device: dev},
		machine.Attachment{Range: bus.NewRange(0xc200, 0x3e00), Device: bus.NewRAM(0x3e00)},
	)
	if err != nil {
		t.Fatal(err)
	}
	dev.c = m.CPU
	store(t, m, 0xfffc, 0x00, 0x10)
	store(t, m, 0x1000, 0xad, 0x00, 0xc0)

	if err := m.Reset(); err != nil {
		t.Fatal(err)
	}
	if dev.resets != 1 {
		t.Errorf("device resets incorrect. exp: 1, got: %d", dev.resets)
	}

	expectSteps(t, step(t, m), 4)
	if dev.ticks != 4 {
		t.Errorf("device ticks incorrect. exp: 4, got: %d", dev.ticks)
	}
	for i, c := range dev.cpuSeen {
		if c != uint64(i+1) {
			t.Errorf("device ticked before the CPU in cycle %d", i+1)
		}
	}

	err = m.AttachDevice(bus.NewRange(0xc000, 0x10), bus.NewRAM(0x10))
	if !errors.Is(err, machine.ErrRunning) {
		t.Errorf("exp running error, got: %v", err)
	}
}

func TestDeviceTicksNOPPolicy(t *testing.T) {
	dev := &counter{RAM: *bus.NewRAM(0x100)}
	m, err := machine.New(machine.Config{Unimplemented: machine.NOP},
		machine.Attachment{Range: bus.Span(0, 0xbfff), Device: bus.NewRAM(0xc000)},
		machine.Attachment{Range: bus.NewRange(0xc000, 0x100), Device: dev},
		machine.Attachment{Range: bus.NewRange(0xc100, 0x3f00), Device: bus.NewRAM(0x3f00)},
	)
	if err != nil {
		t.Fatal(err)
	}
	dev.c = m.CPU
	store(t, m, 0xfffc, 0x00, 0x10)
	store(t, m, 0x1000,
		0x04, 0x10, // undocumented zero page NOP
		0x02,       // undocumented jam
		0xea,       // NOP
	)
	if err := m.Reset(); err != nil {
		t.Fatal(err)
	}

	expectSteps(t, step(t, m), 3)
	expectSteps(t, step(t, m), 2)
	expectSteps(t, step(t, m), 2)
	expectCycles(t, m, 7)

	if uint64(dev.ticks) != m.Clock.Cycles() {
		t.Errorf("device ticks incorrect. exp: %d, got: %d", m.Clock.Cycles(), dev.ticks)
	}
	for i, c := range dev.cpuSeen {
		if c != uint64(i+1) {
			t.Errorf("device tick %d saw CPU cycle %d", i+1, c)
		}
	}
}

// A device of a type that cannot be compared with ==.
type sliceMem []byte

func (d sliceMem) Read(addr uint16) byte { return d[addr] }
func (d sliceMem) Write(addr uint16, v byte) { d[addr] = v }

func TestUncomparableDevice(t *testing.T) {
	lo, hi := make(sliceMem, 0x8000), make(sliceMem, 0x8000)
	m, err := machine.New(machine.Config{},
		machine.Attachment{Range: bus.NewRange(0x0000, 0x8000), Device: lo},
		machine.Attachment{Range: bus.NewRange(0x8000, 0x8000), Device: hi},
	)
	if err != nil {
		t.Fatal(err)
	}

	store(t, m, 0x7fff, 0x11, 0x22)
	if lo[0x7fff] != 0x11 || hi[0x0000] != 0x22 {
		t.Errorf("writes incorrect: $%02X $%02X", lo[0x7fff], hi[0x0000])
	}
}

func TestTrace(t *testing.T) {
	m := newMachine(t, machine.Config{Trace: true}, 0xa9, 0x42)
	step(t, m)

	var lines []string
	for _, e := range m.Log.Entries() {
		if e.Tag == "trace" {
			lines = append(lines, e.Detail)
		}
	}
	if len(lines) != 1 {
		t.Fatalf("trace lines incorrect. exp: 1, got: %d", len(lines))
	}
	if !strings.Contains(lines[0], "LDA #$42") || !strings.Contains(lines[0], "PC=1000") {
		t.Errorf("trace line incorrect: %q", lines[0])
	}
}

func TestResetIdempotent(t *testing.T) {
	m := newMachine(t, machine.Config{}, 0xa9, 0x42, 0xaa)
	step(t, m)
	step(t, m)

	if err := m.Reset(); err != nil {
		t.Fatal(err)
	}
	first := m.CPU.Reg
	if err := m.Reset(); err != nil {
		t.Fatal(err)
	}
	if m.CPU.Reg != first {
		t.Errorf("second reset changed registers.\nexp: %+v\ngot: %+v", first, m.CPU.Reg)
	}
	expectPC(t, m, 0x1000)
}

func TestPolicyNames(t *testing.T) {
	for _, p := range []machine.OpcodePolicy{machine.Halt, machine.NOP} {
		got, err := machine.ParseOpcodePolicy(strings.ToUpper(p.String()))
		if err != nil || got != p {
			t.Errorf("ParseOpcodePolicy(%q) incorrect: %v %v", p.String(), got, err)
		}
	}
	if _, err := machine.ParseOpcodePolicy("skip"); err == nil {
		t.Error("invalid policy accepted")
	}
}
