// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package c64

// Processor port bits
const (
	LORAM  byte = 1 << 0 // BASIC ROM visible at $A000
	HIRAM  byte = 1 << 1 // KERNAL ROM visible at $E000
	CHAREN byte = 1 << 2 // I/O rather than character ROM at $D000
)

// Undriven port bits are pulled high. The rest float low.
const portPullUps = 0x1f

// ProcessorPort is the 6510's on-chip I/O port, which occupies bus
// addresses $0000 (data direction) and $0001 (data). A direction bit of 1
// makes the corresponding data bit an output.
type ProcessorPort struct {
	ddr  byte
	data byte
}

// NewProcessorPort creates a processor port in its reset state, with
// every bit configured as an input.
func NewProcessorPort() *ProcessorPort {
	return &ProcessorPort{}
}

// Read returns the direction register at address 0 and the port pins at
// address 1.
func (p *ProcessorPort) Read(addr uint16) byte {
	if addr&1 == 0 {
		return p.ddr
	}
	return p.Lines()
}

// Write updates the direction register at address 0 or the output latch
// at address 1.
func (p *ProcessorPort) Write(addr uint16, v byte) {
	if addr&1 == 0 {
		p.ddr = v
	} else {
		p.data = v
	}
}

// Size returns the number of addresses occupied by the port.
func (p *ProcessorPort) Size() int {
	return 2
}

// Reset makes every bit an input and clears the output latch.
func (p *ProcessorPort) Reset() {
	p.ddr = 0
	p.data = 0
}

// Lines returns the levels of the port pins. Output bits carry the latched
// data; input bits carry their pull-ups.
func (p *ProcessorPort) Lines() byte {
	return p.data&p.ddr | portPullUps&^p.ddr
}

func (p *ProcessorPort) line(bit byte) bool {
	return p.Lines()&bit != 0
}
