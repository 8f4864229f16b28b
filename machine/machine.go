// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package machine composes a CPU, an address map of bus devices and a
// clock into one runnable emulated computer.
//
// A Machine is built in three phases. It is constructed with its initial
// devices, further devices may be attached, and then it runs one
// instruction at a time under the control of Step or RunUntil. Once the
// clock has ticked, no more devices may be attached.
package machine

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/beevik/go64/bus"
	"github.com/beevik/go64/clock"
	"github.com/beevik/go64/cpu"
	"github.com/beevik/go64/disasm"
	"github.com/beevik/go64/logger"
)

// Errors
var (
	ErrHalted  = errors.New("machine halted")
	ErrRunning = errors.New("machine is running")
)

// An OpcodePolicy decides what a Machine does when the CPU fetches an
// opcode it does not implement.
type OpcodePolicy int

// Opcode policies
const (
	Halt OpcodePolicy = iota // stop and report the opcode
	NOP                      // log a warning and skip the opcode
)

var policyNames = []string{"halt", "nop"}

func (p OpcodePolicy) String() string {
	if int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("OpcodePolicy(%d)", int(p))
}

// ParseOpcodePolicy converts the name of a policy into an OpcodePolicy.
func ParseOpcodePolicy(s string) (OpcodePolicy, error) {
	for i, n := range policyNames {
		if strings.EqualFold(s, n) {
			return OpcodePolicy(i), nil
		}
	}
	return Halt, fmt.Errorf("invalid opcode policy %q", s)
}

// UnmarshalText sets the policy from its name. The policy is unchanged if
// the name is not recognized.
func (p *OpcodePolicy) UnmarshalText(b []byte) error {
	v, err := ParseOpcodePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Config holds the settings of a Machine.
type Config struct {
	Unimplemented OpcodePolicy // handling of unimplemented opcodes
	Trace         bool         // log every instruction before it executes
	LogSize       int          // number of log entries retained
}

// An Attachment pairs a device with the address range it occupies.
type Attachment struct {
	Range  bus.Range
	Device bus.Device
}

// A Resetter is a device with state that must be reinitialized when the
// machine is reset.
type Resetter interface {
	Reset()
}

// A StopReason explains why RunUntil returned.
type StopReason int

// Stop reasons
const (
	StopCondition StopReason = iota // the stop condition was satisfied
	StopBudget                      // the cycle budget was used up
	StopError                       // the machine halted
)

func (r StopReason) String() string {
	switch r {
	case StopCondition:
		return "condition"
	case StopBudget:
		return "budget"
	default:
		return "error"
	}
}

// A Machine is an emulated computer.
type Machine struct {
	Config Config
	Clock  *clock.Clock
	Map    *bus.AddressMap
	CPU    *cpu.CPU
	IRQ    *bus.Line // maskable interrupt line
	NMI    *bus.Line // non-maskable interrupt line
	Log    *logger.Logger

	resetters []Resetter
	started   bool
	err       error
}

// New creates a machine and attaches the provided devices to it, in
// order. If any device cannot be attached, no machine is returned.
//
// The CPU is the first ticker registered with the clock, so within each
// cycle it runs before every tickable device.
func New(cfg Config, devs ...Attachment) (*Machine, error) {
	m := &Machine{
		Config: cfg,
		Clock:  clock.New(),
		Map:    bus.NewAddressMap(),
		IRQ:    bus.NewLine("IRQ"),
		NMI:    bus.NewLine("NMI"),
		Log:    logger.New(cfg.LogSize),
	}

	m.CPU = cpu.NewCPU(m.Map)
	m.CPU.IRQ = m.IRQ
	m.CPU.NMI = m.NMI
	m.Clock.Register(cpuTicker{m})

	for _, a := range devs {
		if err := m.AttachDevice(a.Range, a.Device); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AttachDevice maps a device into the address range r. Devices that
// implement clock.Ticker are ticked every cycle after the CPU and after
// every tickable device attached before them. The same device may be
// attached to more than one range, but it is ticked only once per cycle.
func (m *Machine) AttachDevice(r bus.Range, d bus.Device) error {
	if m.started {
		return ErrRunning
	}
	if err := m.Map.Attach(r, d); err != nil {
		return err
	}
	if m.attachedElsewhere(d, r) {
		return nil
	}
	if t, ok := d.(clock.Ticker); ok {
		m.Clock.Register(t)
	}
	if rs, ok := d.(Resetter); ok {
		m.resetters = append(m.resetters, rs)
	}
	return nil
}

// Report whether d was already mapped to a range other than r. Devices of
// a type that cannot be compared are never recognized, so each of their
// attachments is ticked and reset separately.
func (m *Machine) attachedElsewhere(d bus.Device, r bus.Range) bool {
	for _, mp := range m.Map.Mappings() {
		if sameDevice(mp.Device, d) && mp.Range != r {
			return true
		}
	}
	return false
}

func sameDevice(a, b bus.Device) bool {
	t := reflect.TypeOf(a)
	return t == reflect.TypeOf(b) && t.Comparable() && a == b
}

// The CPU as registered with the clock. The opcode policy is applied within
// the cycle, so devices ticked after the CPU still see the cycle when an
// unimplemented opcode is executed as a NOP.
type cpuTicker struct {
	m *Machine
}

func (t cpuTicker) Tick() error {
	err := t.m.CPU.Tick()
	if err != nil && t.m.substitute(err) {
		return nil
	}
	return err
}

// Reset resets every resettable device and then the CPU, zeroes the clock
// and clears any halt.
func (m *Machine) Reset() error {
	for _, rs := range m.resetters {
		rs.Reset()
	}

	m.Clock.Reset()
	m.err = nil
	if err := m.CPU.Reset(); err != nil {
		m.halt(err)
		return err
	}

	m.Log.Logf("machine", "reset, PC=$%04X", m.CPU.Reg.PC)
	return nil
}

// Err returns the error that halted the machine, or nil if it is not
// halted.
func (m *Machine) Err() error {
	return m.err
}

// Halted reports whether the machine has stopped on an error.
func (m *Machine) Halted() bool {
	return m.err != nil
}

func (m *Machine) halt(err error) {
	m.err = err
	m.Log.Logf("machine", "halted: %v", err)
}

// Step runs the clock until the CPU completes one instruction or one
// interrupt sequence, and returns the number of cycles it took.
//
// If a cycle fails, the machine halts and the error is returned. A halted
// machine refuses to step until it is reset.
func (m *Machine) Step() (int, error) {
	if m.err != nil {
		return 0, fmt.Errorf("%w: %w", ErrHalted, m.err)
	}

	if m.Config.Trace {
		m.trace()
	}

	start := m.Clock.Cycles()
	for {
		m.started = true
		if err := m.Clock.Tick(); err != nil {
			m.halt(err)
			return int(m.Clock.Cycles() - start), err
		}
		if m.CPU.AtBoundary() {
			return int(m.Clock.Cycles() - start), nil
		}
	}
}

// Resume the CPU after an unimplemented opcode if the policy allows it.
func (m *Machine) substitute(err error) bool {
	if m.Config.Unimplemented != NOP || !errors.Is(err, cpu.ErrUnimplementedOpcode) {
		return false
	}
	if !m.CPU.SubstituteNOP() {
		return false
	}
	m.Log.Logf("machine", "executing NOP for %v", err)
	return true
}

// RunUntil steps the machine until cond reports true or at least budget
// cycles have run. The condition is checked before every instruction, so
// an instruction is never interrupted partway. A budget of zero means no
// limit.
func (m *Machine) RunUntil(cond func(m *Machine) bool, budget uint64) (StopReason, error) {
	var ran uint64
	for {
		if cond != nil && cond(m) {
			return StopCondition, nil
		}
		if budget > 0 && ran >= budget {
			return StopBudget, nil
		}

		n, err := m.Step()
		ran += uint64(n)
		if err != nil {
			return StopError, err
		}
	}
}

// Log the instruction about to execute along with the register state.
func (m *Machine) trace() {
	line, _, err := disasm.Line(m.Map, m.CPU.Reg.PC)
	if err != nil {
		m.Log.Logf("trace", "%04X-   %v", m.CPU.Reg.PC, err)
		return
	}
	m.Log.Logf("trace", "%s %s C=%d", line, disasm.GetRegisterString(&m.CPU.Reg), m.Clock.Cycles())
}
