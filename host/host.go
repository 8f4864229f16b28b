// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host implements an interactive monitor for an emulated machine.
//
// Within the host it is possible to load machine code into memory, step
// through it one instruction at a time or run it until a breakpoint is
// hit, measure the number of clock cycles elapsed, set address and data
// breakpoints, dump and change the contents of memory, disassemble code,
// drive the interrupt lines, and manipulate CPU registers.
package host

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/beevik/cmd"
	"github.com/beevik/go64/bus"
	"github.com/beevik/go64/cpu"
	"github.com/beevik/go64/disasm"
	"github.com/beevik/go64/machine"
)

var errQuit = errors.New("exiting program")

type displayFlags uint8

const (
	displayRegisters displayFlags = 1 << iota
	displayCycles

	displayAll = displayRegisters | displayCycles
)

type state byte

const (
	stateProcessingCommands state = iota
	stateRunning
	stateBreakpoint
	stateStepOverBreakpoint
)

// A selection is a command found in the command tree along with the
// arguments that followed it.
type selection struct {
	Command *cmd.Command
	Args    []string
}

// A Host is a monitor attached to one emulated machine.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	m           *machine.Machine
	debugger    *cpu.Debugger
	handler     *debugHandler
	irq         *bus.LineSource
	nmi         *bus.LineSource
	lastCmd     *selection
	state       state
	interrupted atomic.Bool
	settings    *settings
}

// New creates a monitor for the machine m and attaches a debugger to its
// CPU.
func New(m *machine.Machine) *Host {
	h := &Host{
		m:        m,
		state:    stateProcessingCommands,
		settings: newSettings(m.Config),
		irq:      m.IRQ.NewSource("monitor"),
		nmi:      m.NMI.NewSource("monitor"),
	}
	h.settings.NextDisasmAddr = m.CPU.Reg.PC

	h.handler = newDebugHandler(h)
	h.debugger = cpu.NewDebugger(h.handler)
	m.CPU.AttachDebugger(h.debugger)

	return h
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the next command to be entered.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	h.input = bufio.NewScanner(r)
	h.output = bufio.NewWriter(w)
	h.interactive = interactive

	if interactive {
		h.println()
	}

	h.displayPC()

	for {
		h.prompt()

		line, err := h.getLine()
		if err != nil {
			break
		}
		if err := h.processLine(line); err != nil {
			break
		}
	}
	h.flush()
}

func (h *Host) processLine(line string) error {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		return nil
	}

	var c selection
	if line != "" {
		n, args, err := cmds.Lookup(line)
		switch {
		case errors.Is(err, cmd.ErrNotFound):
			h.println("Command not found.")
			return nil
		case errors.Is(err, cmd.ErrAmbiguous):
			h.println("Command is ambiguous.")
			return nil
		case err != nil:
			h.printf("ERROR: %v.\n", err)
			return nil
		}

		// A subtree named without a subcommand lists its commands.
		command, ok := n.(*cmd.Command)
		if !ok {
			n.DisplayHelp(h.output)
			h.flush()
			return nil
		}
		c = selection{Command: command, Args: args}
	} else if h.lastCmd != nil {
		c = *h.lastCmd
	}

	if c.Command == nil {
		return nil
	}
	h.lastCmd = &c

	handler := c.Command.Data.(func(*Host, selection) error)
	return handler(h, c)
}

// Break interrupts a running machine at the next instruction boundary.
// It may be called from any goroutine.
func (h *Host) Break() {
	h.interrupted.Store(true)
}

func (h *Host) print(args ...any) {
	fmt.Fprint(h.output, args...)
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return h.input.Text(), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.print("* ")
		h.flush()
	}
}

func (h *Host) displayPC() {
	if h.interactive {
		d, _ := h.disassemble(h.m.CPU.Reg.PC, displayAll)
		h.println(d)
	}
}

func (h *Host) cmdBreakpointList(c selection) error {
	h.println("Addr  Enabled")
	h.println("----- -------")
	for _, b := range h.debugger.GetBreakpoints() {
		h.printf("$%04X %v\n", b.Address, !b.Disabled)
	}
	return nil
}

func (h *Host) cmdBreakpointAdd(c selection) error {
	addr, ok := h.addrArg(c)
	if !ok {
		return nil
	}

	h.debugger.AddBreakpoint(addr)
	h.printf("Breakpoint added at $%04X.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointRemove(c selection) error {
	addr, ok := h.addrArg(c)
	if !ok {
		return nil
	}

	if h.debugger.GetBreakpoint(addr) == nil {
		h.printf("No breakpoint was set on $%04X.\n", addr)
		return nil
	}

	h.debugger.RemoveBreakpoint(addr)
	h.printf("Breakpoint at $%04X removed.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointEnable(c selection) error {
	return h.enableBreakpoint(c, true)
}

func (h *Host) cmdBreakpointDisable(c selection) error {
	return h.enableBreakpoint(c, false)
}

func (h *Host) enableBreakpoint(c selection, enable bool) error {
	addr, ok := h.addrArg(c)
	if !ok {
		return nil
	}

	b := h.debugger.GetBreakpoint(addr)
	if b == nil {
		h.printf("No breakpoint was set on $%04X.\n", addr)
		return nil
	}

	b.Disabled = !enable
	h.printf("Breakpoint at $%04X %s.\n", addr, enabledString(enable))
	return nil
}

func (h *Host) cmdDataBreakpointList(c selection) error {
	h.println("Addr  Enabled  Value")
	h.println("----- -------  -----")
	for _, b := range h.debugger.GetDataBreakpoints() {
		if b.Conditional {
			h.printf("$%04X %-5v    $%02X\n", b.Address, !b.Disabled, b.Value)
		} else {
			h.printf("$%04X %-5v    <none>\n", b.Address, !b.Disabled)
		}
	}
	return nil
}

func (h *Host) cmdDataBreakpointAdd(c selection) error {
	addr, ok := h.addrArg(c)
	if !ok {
		return nil
	}

	if len(c.Args) > 1 {
		value, err := h.parseValue(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.debugger.AddConditionalDataBreakpoint(addr, byte(value))
		h.printf("Conditional data breakpoint added at $%04X for value $%02X.\n", addr, byte(value))
	} else {
		h.debugger.AddDataBreakpoint(addr)
		h.printf("Data breakpoint added at $%04X.\n", addr)
	}

	return nil
}

func (h *Host) cmdDataBreakpointRemove(c selection) error {
	addr, ok := h.addrArg(c)
	if !ok {
		return nil
	}

	if h.debugger.GetDataBreakpoint(addr) == nil {
		h.printf("No data breakpoint was set on $%04X.\n", addr)
		return nil
	}

	h.debugger.RemoveDataBreakpoint(addr)
	h.printf("Data breakpoint at $%04X removed.\n", addr)
	return nil
}

func (h *Host) cmdDataBreakpointEnable(c selection) error {
	return h.enableDataBreakpoint(c, true)
}

func (h *Host) cmdDataBreakpointDisable(c selection) error {
	return h.enableDataBreakpoint(c, false)
}

func (h *Host) enableDataBreakpoint(c selection, enable bool) error {
	addr, ok := h.addrArg(c)
	if !ok {
		return nil
	}

	b := h.debugger.GetDataBreakpoint(addr)
	if b == nil {
		h.printf("No data breakpoint was set on $%04X.\n", addr)
		return nil
	}

	b.Disabled = !enable
	h.printf("Data breakpoint at $%04X %s.\n", addr, enabledString(enable))
	return nil
}

func (h *Host) cmdDisassemble(c selection) error {
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	var addr uint16
	switch c.Args[0] {
	case "$":
		addr = h.settings.NextDisasmAddr
	default:
		a, err := h.parseAddr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	lines := h.settings.DisasmLines
	if len(c.Args) > 1 {
		l, err := h.parseValue(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		lines = l
	}

	for range lines {
		d, next := h.disassemble(addr, 0)
		h.println(d)
		addr = next
	}

	h.settings.NextDisasmAddr = addr
	h.lastCmd.Args = []string{"$", strconv.Itoa(lines)}
	return nil
}

func (h *Host) cmdEvaluate(c selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	v, err := h.parseValue(strings.Join(c.Args, " "))
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.printf("$%04X (%d)\n", uint16(v), v)
	return nil
}

func (h *Host) cmdExecute(c selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	file, err := os.Open(c.Args[0])
	if err != nil {
		h.printf("Failed to open '%s': %v\n", filepath.Base(c.Args[0]), err)
		return nil
	}
	defer file.Close()

	s := bufio.NewScanner(file)
	for s.Scan() {
		if err := h.processLine(s.Text()); err != nil {
			return err
		}
	}
	if err := s.Err(); err != nil {
		h.printf("Failed to read '%s': %v\n", filepath.Base(c.Args[0]), err)
	}
	return nil
}

func (h *Host) cmdHelp(c selection) error {
	if err := cmds.GetHelp(h.output, c.Args); err != nil {
		h.printf("%v.\n", err)
	}
	h.flush()
	return nil
}

func (h *Host) cmdInterruptIRQ(c selection) error {
	return h.driveLine(c, h.m.IRQ, h.irq)
}

func (h *Host) cmdInterruptNMI(c selection) error {
	return h.driveLine(c, h.m.NMI, h.nmi)
}

func (h *Host) driveLine(c selection, l *bus.Line, s *bus.LineSource) error {
	if len(c.Args) > 0 {
		on, err := stringToBool(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		s.Set(on)
	}

	if l.Asserted() {
		h.printf("%s asserted by %s.\n", l.Name(), strings.Join(l.Asserting(), ", "))
	} else {
		h.printf("%s released.\n", l.Name())
	}
	return nil
}

func (h *Host) cmdLoad(c selection) error {
	if len(c.Args) < 2 {
		h.displayHelpText(c.Command)
		return nil
	}

	filename := c.Args[0]
	addr, err := h.parseAddr(c.Args[1])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	code, err := os.ReadFile(filename)
	if err != nil {
		h.printf("Failed to read '%s': %v\n", filepath.Base(filename), err)
		return nil
	}
	if len(code) == 0 {
		h.printf("File '%s' is empty.\n", filepath.Base(filename))
		return nil
	}

	if err := h.m.Map.Store(addr, code); err != nil {
		h.printf("Failed to load '%s': %v\n", filepath.Base(filename), err)
		return nil
	}

	h.m.CPU.SetPC(addr)
	h.settings.NextDisasmAddr = addr
	h.printf("Loaded '%s' to $%04X..$%04X\n", filepath.Base(filename), addr, int(addr)+len(code)-1)
	return nil
}

func (h *Host) cmdLog(c selection) error {
	n := h.settings.LogLines
	if len(c.Args) > 0 {
		if strings.EqualFold(c.Args[0], "clear") {
			h.m.Log.Clear()
			h.println("Log cleared.")
			return nil
		}

		v, err := h.parseValue(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		n = v
	}

	if h.m.Log.Len() == 0 {
		h.println("Log is empty.")
		return nil
	}
	h.m.Log.Tail(h.output, n)
	h.flush()
	return nil
}

func (h *Host) cmdMap(c selection) error {
	h.println("Range        Offset  Device")
	h.println("-----------  ------  ------")
	for _, mp := range h.m.Map.Mappings() {
		h.printf("%-11s  $%04X   %T\n", mp.Range, mp.Offset, mp.Device)
	}
	return nil
}

func (h *Host) cmdMemoryDump(c selection) error {
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	var addr uint16
	switch c.Args[0] {
	case "$":
		addr = h.settings.NextMemDumpAddr
	default:
		a, err := h.parseAddr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	n := h.settings.MemDumpBytes
	if len(c.Args) > 1 {
		v, err := h.parseValue(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		n = v
	}

	if err := bus.Dump(h.output, h.m.Map, addr, n); err != nil {
		h.printf("%v\n", err)
	}
	h.flush()

	h.settings.NextMemDumpAddr = addr + uint16(n)
	h.lastCmd.Args = []string{"$", strconv.Itoa(n)}
	return nil
}

func (h *Host) cmdMemorySet(c selection) error {
	if len(c.Args) < 2 {
		h.displayHelpText(c.Command)
		return nil
	}

	addr, err := h.parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	for i, a := range c.Args[1:] {
		v, err := h.parseValue(a)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		if err := h.m.Map.Write(addr+uint16(i), byte(v)); err != nil {
			h.printf("%v\n", err)
			return nil
		}
	}

	h.printf("Memory at $%04X..$%04X set.\n", addr, addr+uint16(len(c.Args)-2))
	return nil
}

func (h *Host) cmdMemoryCopy(c selection) error {
	if len(c.Args) < 3 {
		h.displayHelpText(c.Command)
		return nil
	}

	var addr [3]uint16
	for i := range addr {
		a, err := h.parseAddr(c.Args[i])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr[i] = a
	}

	dst, begin, end := addr[0], addr[1], addr[2]
	if end < begin {
		h.println("Source range is empty.")
		return nil
	}

	b := make([]byte, int(end)-int(begin)+1)
	if err := h.m.Map.Load(begin, b); err != nil {
		h.printf("%v\n", err)
		return nil
	}
	if err := h.m.Map.Store(dst, b); err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.printf("Copied $%04X..$%04X to $%04X.\n", begin, end, dst)
	return nil
}

func (h *Host) cmdQuit(c selection) error {
	return errQuit
}

func (h *Host) cmdRegister(c selection) error {
	if len(c.Args) == 0 {
		d, _ := h.disassemble(h.m.CPU.Reg.PC, displayAll)
		h.println(d)
		return nil
	}
	if len(c.Args) < 2 {
		h.displayHelpText(c.Command)
		return nil
	}

	r, err := registerTree.FindValue(strings.ToLower(c.Args[0]))
	if err != nil {
		h.printf("Register '%s' not found.\n", c.Args[0])
		return nil
	}

	value := strings.Join(c.Args[1:], " ")
	var v int
	if b, errB := stringToBool(value); r.size == 0 && errB == nil {
		v = boolToInt(b)
	} else if v, err = h.parseValue(value); err != nil {
		h.printf("%v\n", err)
		return nil
	}

	r.set(&h.m.CPU.Reg, v)
	name := strings.ToUpper(r.name)
	switch r.size {
	case 0:
		h.printf("Register %s set to %v.\n", name, v != 0)
	case 1:
		h.printf("Register %s set to $%02X.\n", name, byte(v))
	default:
		h.printf("Register %s set to $%04X.\n", name, uint16(v))
	}

	if r.name == "pc" {
		h.m.CPU.SetPC(uint16(v))
		h.settings.NextDisasmAddr = uint16(v)
	}
	return nil
}

func (h *Host) cmdReset(c selection) error {
	if err := h.m.Reset(); err != nil {
		h.printf("Reset failed: %v\n", err)
		return nil
	}

	h.settings.NextDisasmAddr = h.m.CPU.Reg.PC
	h.printf("Machine reset. PC=$%04X\n", h.m.CPU.Reg.PC)
	h.displayPC()
	return nil
}

func (h *Host) cmdRun(c selection) error {
	if len(c.Args) > 0 {
		pc, err := h.parseAddr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.m.CPU.SetPC(pc)
	}

	h.printf("Running from $%04X. Press ctrl-C to break.\n", h.m.CPU.Reg.PC)

	h.interrupted.Store(false)
	h.state = stateRunning
	h.run()
	h.state = stateProcessingCommands

	h.settings.NextDisasmAddr = h.m.CPU.Reg.PC
	return nil
}

func (h *Host) cmdSet(c selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()

	case 1:
		h.displayHelpText(c.Command)

	default:
		key, value := c.Args[0], strings.Join(c.Args[1:], " ")
		if err := h.settings.Set(key, value, h.parseValue); err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.settings.apply(h.m)
		h.println("Setting updated.")
	}

	return nil
}

func (h *Host) cmdStepIn(c selection) error {
	return h.stepCount(c, h.step)
}

func (h *Host) cmdStepOver(c selection) error {
	return h.stepCount(c, h.stepOver)
}

// Step the machine the number of times requested by the command.
func (h *Host) stepCount(c selection, step func()) error {
	count := 1
	if len(c.Args) > 0 {
		n, err := h.parseValue(c.Args[0])
		if err == nil {
			count = n
		}
	}

	h.interrupted.Store(false)
	h.state = stateRunning
	for i := count - 1; i >= 0 && h.state == stateRunning && !h.interrupted.Load(); i-- {
		step()
		switch {
		case i == h.settings.MaxStepLines:
			h.println("...")
		case i < h.settings.MaxStepLines:
			h.displayPC()
		}
	}
	h.state = stateProcessingCommands

	h.settings.NextDisasmAddr = h.m.CPU.Reg.PC
	return nil
}

// Step the machine by one instruction.
func (h *Host) step() {
	_, err := h.m.Step()
	h.handler.report()
	if err != nil {
		h.printf("Machine halted: %v.\n", err)
		h.state = stateProcessingCommands
	}
}

// Run the machine until the host leaves the running state, the user
// interrupts it, or the machine halts.
func (h *Host) run() {
	reason, err := h.m.RunUntil(func(*machine.Machine) bool {
		return h.state != stateRunning || h.interrupted.Load()
	}, 0)
	h.handler.report()

	switch {
	case reason == machine.StopError:
		h.printf("Machine halted: %v.\n", err)
		h.state = stateProcessingCommands
	case h.interrupted.Load():
		h.println("Interrupted.")
		h.displayPC()
	}
}

func (h *Host) stepOver() {
	c := h.m.CPU

	// JSR instructions need to be handled specially.
	inst, err := c.GetInstruction(c.Reg.PC)
	if err != nil || inst.Name != "JSR" {
		h.step()
		return
	}

	// Place a step-over breakpoint on the instruction following the JSR.
	// Either modify an already existing breakpoint on that instruction, or
	// create a temporary one.
	next := c.Reg.PC + uint16(inst.Length)
	tmpBreakpointCreated := false
	b := h.debugger.GetBreakpoint(next)
	if b == nil {
		b = h.debugger.AddBreakpoint(next)
		tmpBreakpointCreated = true
	}
	b.StepOver = true

	h.run()
	b.StepOver = false

	// If we were interrupted by the temporary step-over breakpoint,
	// then continue as normal.
	if h.state == stateStepOverBreakpoint {
		h.state = stateRunning
	}

	if tmpBreakpointCreated {
		h.debugger.RemoveBreakpoint(next)
	}
}

// Parse the address argument of a command, displaying the command's help
// text if it is missing.
func (h *Host) addrArg(c selection) (uint16, bool) {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return 0, false
	}

	addr, err := h.parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return 0, false
	}
	return addr, true
}

func (h *Host) disassemble(addr uint16, flags displayFlags) (str string, next uint16) {
	str, next, err := disasm.Line(h.m.Map, addr)
	if err != nil {
		return fmt.Sprintf("%04X-   %v", addr, err), addr + 1
	}

	if (flags & displayRegisters) != 0 {
		str += " " + disasm.GetRegisterString(&h.m.CPU.Reg)
	}

	if (flags & displayCycles) != 0 {
		str += fmt.Sprintf(" C=%-12d", h.m.Clock.Cycles())
	}

	return str, next
}

func (h *Host) displayHelpText(c *cmd.Command) {
	if c.Usage != "" {
		c.DisplayUsage(h.output)
		h.flush()
	} else {
		h.println("<no help text>")
	}
}

func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
