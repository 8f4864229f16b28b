// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import "github.com/beevik/go64/cpu"

// The debugHandler receives notifications from the cpu debugger. A data
// breakpoint fires in the middle of an instruction, so hits are held
// until the instruction completes and then reported by the host.
type debugHandler struct {
	host   *Host
	hit    *cpu.Breakpoint
	data   *cpu.DataBreakpoint
	dataPC uint16 // address of the instruction that stored the data
}

func newDebugHandler(h *Host) *debugHandler {
	return &debugHandler{host: h}
}

func (h *debugHandler) OnBreakpoint(cpu *cpu.CPU, b *cpu.Breakpoint) {
	if b.StepOver {
		h.host.state = stateStepOverBreakpoint
		return
	}
	h.hit = b
	h.host.state = stateBreakpoint
}

func (h *debugHandler) OnDataBreakpoint(cpu *cpu.CPU, b *cpu.DataBreakpoint) {
	h.data = b
	h.dataPC = cpu.LastPC
	h.host.state = stateBreakpoint
}

// Report and clear any breakpoint hit during the last instruction.
func (h *debugHandler) report() {
	switch {
	case h.data != nil:
		h.host.printf("Data breakpoint hit on address $%04X.\n", h.data.Address)
		if h.dataPC != h.host.m.CPU.Reg.PC {
			d, _ := h.host.disassemble(h.dataPC, displayAll)
			h.host.println(d)
		}
		h.host.displayPC()
	case h.hit != nil:
		h.host.printf("Breakpoint hit at $%04X.\n", h.hit.Address)
		h.host.displayPC()
	}
	h.hit, h.data = nil, nil
}
