// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/beevik/go64/bus"
	"github.com/beevik/go64/cpu"
)

// An access is one bus cycle observed by a recordingBus.
type access struct {
	addr  uint16
	v     byte
	write bool
}

func (a access) String() string {
	if a.write {
		return fmt.Sprintf("W $%04X=$%02X", a.addr, a.v)
	}
	return fmt.Sprintf("R $%04X=$%02X", a.addr, a.v)
}

type recordingBus struct {
	m   *bus.AddressMap
	log []access
}

func (b *recordingBus) Read(addr uint16) (byte, error) {
	v, err := b.m.Read(addr)
	b.log = append(b.log, access{addr, v, false})
	return v, err
}

func (b *recordingBus) Write(addr uint16, v byte) error {
	b.log = append(b.log, access{addr, v, true})
	return b.m.Write(addr, v)
}

// Create a CPU with 64K of RAM holding code at $1000 and reset it so that
// it begins executing the code.
func loadCPU(t *testing.T, code ...byte) (*cpu.CPU, *bus.RAM, *recordingBus) {
	t.Helper()
	ram := bus.NewRAM(0x10000)
	m := bus.NewAddressMap()
	if err := m.Attach(bus.Span(0x0000, 0xffff), ram); err != nil {
		t.Fatal(err)
	}
	copy(ram.Bytes()[0x1000:], code)
	ram.Bytes()[0xfffc] = 0x00
	ram.Bytes()[0xfffd] = 0x10

	b := &recordingBus{m: m}
	c := cpu.NewCPU(b)
	if err := c.Reset(); err != nil {
		t.Fatal(err)
	}
	b.log = nil
	return c, ram, b
}

// Tick the CPU through one instruction or interrupt sequence and return
// the number of cycles it took.
func stepCPU(t *testing.T, c *cpu.CPU) int {
	t.Helper()
	for n := 1; ; n++ {
		if err := c.Tick(); err != nil {
			t.Fatalf("Tick failed at $%04X: %v", c.Reg.PC, err)
		}
		if c.AtBoundary() {
			return n
		}
	}
}

func runCPU(t *testing.T, c *cpu.CPU, steps int) {
	t.Helper()
	for i := 0; i < steps; i++ {
		stepCPU(t, c)
	}
}

func expectPC(t *testing.T, c *cpu.CPU, pc uint16) {
	t.Helper()
	if c.Reg.PC != pc {
		t.Errorf("PC incorrect. exp: $%04X, got: $%04X", pc, c.Reg.PC)
	}
}

func expectCycles(t *testing.T, c *cpu.CPU, cycles uint64) {
	t.Helper()
	if c.Cycles != cycles {
		t.Errorf("Cycles incorrect. exp: %d, got: %d", cycles, c.Cycles)
	}
}

func expectACC(t *testing.T, c *cpu.CPU, acc byte) {
	t.Helper()
	if c.Reg.A != acc {
		t.Errorf("Accumulator incorrect. exp: $%02X, got: $%02X", acc, c.Reg.A)
	}
}

func expectSP(t *testing.T, c *cpu.CPU, sp byte) {
	t.Helper()
	if c.Reg.SP != sp {
		t.Errorf("stack pointer incorrect. exp: $%02X, got: $%02X", sp, c.Reg.SP)
	}
}

func expectMem(t *testing.T, ram *bus.RAM, addr uint16, v byte) {
	t.Helper()
	got := ram.Bytes()[addr]
	if got != v {
		t.Errorf("Memory at $%04X incorrect. exp: $%02X, got: $%02X", addr, v, got)
	}
}

func expectAccesses(t *testing.T, b *recordingBus, exp []access) {
	t.Helper()
	if len(b.log) != len(exp) {
		t.Fatalf("Bus cycle count incorrect. exp: %d, got: %d\n%v", len(exp), len(b.log), b.log)
	}
	for i := range exp {
		if b.log[i] != exp[i] {
			t.Errorf("Bus cycle %d incorrect. exp: %v, got: %v", i+1, exp[i], b.log[i])
		}
	}
}

func TestAccumulator(t *testing.T) {
	c, ram, _ := loadCPU(t,
		0xa9, 0x5e, // LDA #$5E
		0x85, 0x15, // STA $15
		0x8d, 0x00, 0x15, // STA $1500
	)
	runCPU(t, c, 3)

	expectPC(t, c, 0x1007)
	expectCycles(t, c, 9)
	expectACC(t, c, 0x5e)
	expectMem(t, ram, 0x15, 0x5e)
	expectMem(t, ram, 0x1500, 0x5e)
}

func TestStack(t *testing.T) {
	c, ram, _ := loadCPU(t,
		0xa9, 0x11, // LDA #$11
		0x48,       // PHA
		0xa9, 0x12, // LDA #$12
		0x48,       // PHA
		0xa9, 0x13, // LDA #$13
		0x48,             // PHA
		0x68,             // PLA
		0x8d, 0x00, 0x20, // STA $2000
		0x68,             // PLA
		0x8d, 0x01, 0x20, // STA $2001
		0x68,             // PLA
		0x8d, 0x02, 0x20, // STA $2002
	)

	runCPU(t, c, 6)
	expectSP(t, c, 0xfa)
	expectACC(t, c, 0x13)
	expectMem(t, ram, 0x1fd, 0x11)
	expectMem(t, ram, 0x1fc, 0x12)
	expectMem(t, ram, 0x1fb, 0x13)

	runCPU(t, c, 6)
	expectACC(t, c, 0x11)
	expectSP(t, c, 0xfd)
	expectMem(t, ram, 0x2000, 0x13)
	expectMem(t, ram, 0x2001, 0x12)
	expectMem(t, ram, 0x2002, 0x11)
}

func TestIndirect(t *testing.T) {
	c, ram, _ := loadCPU(t,
		0xa2, 0x80, // LDX #$80
		0xa0, 0x40, // LDY #$40
		0xa9, 0xee, // LDA #$EE
		0x9d, 0x00, 0x20, // STA $2000,X
		0x99, 0x00, 0x20, // STA $2000,Y
		0xa9, 0x11, // LDA #$11
		0x85, 0x06, // STA $06
		0xa9, 0x05, // LDA #$05
		0x85, 0x07, // STA $07
		0xa2, 0x01, // LDX #$01
		0xa0, 0x01, // LDY #$01
		0xa9, 0xbb, // LDA #$BB
		0x81, 0x05, // STA ($05,X)
		0x91, 0x06, // STA ($06),Y
	)
	runCPU(t, c, 14)

	expectMem(t, ram, 0x2080, 0xee)
	expectMem(t, ram, 0x2040, 0xee)
	expectMem(t, ram, 0x0511, 0xbb)
	expectMem(t, ram, 0x0512, 0xbb)
}

func TestPageCross(t *testing.T) {
	c, ram, _ := loadCPU(t,
		0xa9, 0x55, // LDA #$55       2 cycles
		0x8d, 0x01, 0x11, // STA $1101      4 cycles
		0xa9, 0x00, // LDA #$00       2 cycles
		0xa2, 0xff, // LDX #$FF       2 cycles
		0xbd, 0x02, 0x10, // LDA $1002,X    5 cycles
	)
	runCPU(t, c, 5)

	expectPC(t, c, 0x100c)
	expectCycles(t, c, 15)
	expectACC(t, c, 0x55)
	expectMem(t, ram, 0x1101, 0x55)
}

func TestCycleCounts(t *testing.T) {
	tests := []struct {
		name   string
		x, y   byte
		code   []byte
		cycles int
	}{
		{"LDA imm", 0, 0, []byte{0xa9, 0x01}, 2},
		{"LDA zpg", 0, 0, []byte{0xa5, 0x10}, 3},
		{"LDA zpx", 1, 0, []byte{0xb5, 0x10}, 4},
		{"LDA abs", 0, 0, []byte{0xad, 0x00, 0x20}, 4},
		{"LDA abx", 1, 0, []byte{0xbd, 0x00, 0x20}, 4},
		{"LDA abx cross", 1, 0, []byte{0xbd, 0xff, 0x20}, 5},
		{"LDA aby cross", 0, 2, []byte{0xb9, 0xff, 0x20}, 5},
		{"LDA idx", 1, 0, []byte{0xa1, 0x10}, 6},
		{"LDA idy", 0, 1, []byte{0xb1, 0x10}, 5},
		{"LDA idy cross", 0, 0xff, []byte{0xb1, 0x20}, 6},
		{"STA abx", 1, 0, []byte{0x9d, 0x00, 0x20}, 5},
		{"STA aby cross", 0, 1, []byte{0x99, 0xff, 0x20}, 5},
		{"STA idy", 0, 1, []byte{0x91, 0x10}, 6},
		{"INC zpg", 0, 0, []byte{0xe6, 0x10}, 5},
		{"INC abx", 1, 0, []byte{0xfe, 0x00, 0x20}, 7},
		{"ASL acc", 0, 0, []byte{0x0a}, 2},
		{"JMP abs", 0, 0, []byte{0x4c, 0x00, 0x20}, 3},
		{"JMP ind", 0, 0, []byte{0x6c, 0x00, 0x20}, 5},
		{"JSR", 0, 0, []byte{0x20, 0x00, 0x20}, 6},
		{"PHA", 0, 0, []byte{0x48}, 3},
		{"PLA", 0, 0, []byte{0x68}, 4},
		{"BRK", 0, 0, []byte{0x00}, 7},
		{"BNE not taken", 0, 0, []byte{0xa9, 0x00, 0xd0, 0x02}, 2},
		{"BEQ taken", 0, 0, []byte{0xa9, 0x00, 0xf0, 0x02}, 3},
		{"BEQ taken back across page", 0, 0, []byte{0xa9, 0x00, 0xf0, 0x80}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ram, _ := loadCPU(t, tt.code...)
			ram.Bytes()[0x10] = 0x10 // indirect pointers
			ram.Bytes()[0x11] = 0x30
			ram.Bytes()[0x20] = 0x80
			ram.Bytes()[0x21] = 0x30
			c.Reg.X, c.Reg.Y = tt.x, tt.y

			// Branch tests set the flags with a leading LDA.
			if tt.code[0] == 0xa9 && len(tt.code) > 2 {
				stepCPU(t, c)
			}
			if got := stepCPU(t, c); got != tt.cycles {
				t.Errorf("Cycles incorrect. exp: %d, got: %d", tt.cycles, got)
			}
		})
	}
}

func TestBranchPageCross(t *testing.T) {
	c, ram, b := loadCPU(t)
	copy(ram.Bytes()[0x10fb:], []byte{0xd0, 0x05}) // BNE $1102
	c.SetPC(0x10fb)

	if got := stepCPU(t, c); got != 4 {
		t.Errorf("Cycles incorrect. exp: 4, got: %d", got)
	}
	expectPC(t, c, 0x1102)
	expectAccesses(t, b, []access{
		{0x10fb, 0xd0, false}, // opcode
		{0x10fc, 0x05, false}, // offset
		{0x10fd, 0x00, false}, // next opcode, discarded
		{0x1002, 0x00, false}, // uncorrected target, discarded
	})
}

func TestModifyBusCycles(t *testing.T) {
	c, ram, b := loadCPU(t, 0xe6, 0x10) // INC $10
	ram.Bytes()[0x10] = 0x41

	stepCPU(t, c)
	expectMem(t, ram, 0x10, 0x42)
	expectAccesses(t, b, []access{
		{0x1000, 0xe6, false},
		{0x1001, 0x10, false},
		{0x0010, 0x41, false},
		{0x0010, 0x41, true}, // unmodified value written back
		{0x0010, 0x42, true},
	})
}

func TestIndexedReadBusCycles(t *testing.T) {
	c, ram, b := loadCPU(t, 0xbd, 0xff, 0x20) // LDA $20FF,X
	ram.Bytes()[0x2100] = 0x99
	c.Reg.X = 1

	stepCPU(t, c)
	expectACC(t, c, 0x99)
	expectAccesses(t, b, []access{
		{0x1000, 0xbd, false},
		{0x1001, 0xff, false},
		{0x1002, 0x20, false},
		{0x2000, 0x00, false}, // uncorrected high byte
		{0x2100, 0x99, false},
	})
}

func TestIndexedWriteBusCycles(t *testing.T) {
	c, _, b := loadCPU(t, 0x9d, 0x00, 0x20) // STA $2000,X
	c.Reg.A, c.Reg.X = 0x77, 1

	stepCPU(t, c)
	expectAccesses(t, b, []access{
		{0x1000, 0x9d, false},
		{0x1001, 0x00, false},
		{0x1002, 0x20, false},
		{0x2001, 0x00, false}, // always paid, even without a page cross
		{0x2001, 0x77, true},
	})
}

func TestZeroPageWrap(t *testing.T) {
	c, ram, _ := loadCPU(t,
		0xb5, 0x80, // LDA $80,X
		0xa1, 0xff, // LDA ($FF,X)
	)
	ram.Bytes()[0x007f] = 0x31
	ram.Bytes()[0x00ff] = 0x00
	ram.Bytes()[0x0000] = 0x30
	ram.Bytes()[0x3000] = 0x62
	c.Reg.X = 0xff

	stepCPU(t, c)
	expectACC(t, c, 0x31)

	// ($FF,X) with X=0 reads its pointer from $FF and $00.
	c.Reg.X = 0
	stepCPU(t, c)
	expectACC(t, c, 0x62)
}

func TestJMPIndirectPageWrap(t *testing.T) {
	c, ram, _ := loadCPU(t, 0x6c, 0xff, 0x20) // JMP ($20FF)
	ram.Bytes()[0x20ff] = 0x34
	ram.Bytes()[0x2000] = 0x12
	ram.Bytes()[0x2100] = 0x56

	stepCPU(t, c)
	expectPC(t, c, 0x1234)
}

func TestSubroutine(t *testing.T) {
	c, ram, _ := loadCPU(t, 0x20, 0x00, 0x20) // JSR $2000
	ram.Bytes()[0x2000] = 0x60                // RTS

	stepCPU(t, c)
	expectPC(t, c, 0x2000)
	expectSP(t, c, 0xfb)
	expectMem(t, ram, 0x1fd, 0x10)
	expectMem(t, ram, 0x1fc, 0x02)

	stepCPU(t, c)
	expectPC(t, c, 0x1003)
	expectSP(t, c, 0xfd)
	expectCycles(t, c, 12)
}

func TestStackWrap(t *testing.T) {
	c, ram, _ := loadCPU(t,
		0x48, // PHA
		0x48, // PHA
		0x68, // PLA
		0x68, // PLA
	)
	c.Reg.SP = 0x00
	c.Reg.A = 0xa5

	stepCPU(t, c)
	expectSP(t, c, 0xff)
	expectMem(t, ram, 0x0100, 0xa5)

	stepCPU(t, c)
	expectSP(t, c, 0xfe)
	expectMem(t, ram, 0x01ff, 0xa5)

	c.Reg.A = 0
	runCPU(t, c, 2)
	expectSP(t, c, 0x00)
	expectACC(t, c, 0xa5)
}

type arithTest struct {
	a, v      byte
	carry     bool
	result    byte
	c, z, n   bool
	overflow  bool
	checkFlag bool
}

func runArith(t *testing.T, opcode byte, decimal bool, tests []arithTest) {
	t.Helper()
	for _, tt := range tests {
		c, _, _ := loadCPU(t, opcode, tt.v)
		c.Reg.A = tt.a
		c.Reg.Carry = tt.carry
		c.Reg.Decimal = decimal
		stepCPU(t, c)

		id := fmt.Sprintf("$%02X op $%02X (C=%v, D=%v)", tt.a, tt.v, tt.carry, decimal)
		if c.Reg.A != tt.result {
			t.Errorf("%s: result incorrect. exp: $%02X, got: $%02X", id, tt.result, c.Reg.A)
		}
		if c.Reg.Carry != tt.c {
			t.Errorf("%s: carry incorrect. exp: %v, got: %v", id, tt.c, c.Reg.Carry)
		}
		if !tt.checkFlag {
			continue
		}
		if c.Reg.Zero != tt.z {
			t.Errorf("%s: zero incorrect. exp: %v, got: %v", id, tt.z, c.Reg.Zero)
		}
		if c.Reg.Sign != tt.n {
			t.Errorf("%s: sign incorrect. exp: %v, got: %v", id, tt.n, c.Reg.Sign)
		}
		if c.Reg.Overflow != tt.overflow {
			t.Errorf("%s: overflow incorrect. exp: %v, got: %v", id, tt.overflow, c.Reg.Overflow)
		}
	}
}

func TestADC(t *testing.T) {
	runArith(t, 0x69, false, []arithTest{
		{0x01, 0x01, false, 0x02, false, false, false, false, true},
		{0x7f, 0x01, false, 0x80, false, false, true, true, true},
		{0xff, 0x01, false, 0x00, true, true, false, false, true},
		{0x80, 0x80, false, 0x00, true, true, false, true, true},
		{0x80, 0xff, false, 0x7f, true, false, false, true, true},
		{0x3f, 0x40, true, 0x80, false, false, true, true, true},
	})
}

func TestSBC(t *testing.T) {
	runArith(t, 0xe9, false, []arithTest{
		{0x05, 0x03, true, 0x02, true, false, false, false, true},
		{0x05, 0x05, true, 0x00, true, true, false, false, true},
		{0x00, 0x01, true, 0xff, false, false, true, false, true},
		{0x80, 0x01, true, 0x7f, true, false, false, true, true},
		{0x7f, 0xff, true, 0x80, false, false, true, true, true},
		{0x05, 0x03, false, 0x01, true, false, false, false, true},
	})
}

func TestADCDecimal(t *testing.T) {
	runArith(t, 0x69, true, []arithTest{
		{0x09, 0x01, false, 0x10, false, false, false, false, true},
		{0x12, 0x34, true, 0x47, false, false, false, false, false},
		{0x58, 0x46, true, 0x05, true, false, true, true, true},
		{0x50, 0x50, false, 0x00, true, false, true, true, true},

		// Z comes from the binary sum ($9A), N from the unadjusted result.
		{0x99, 0x01, false, 0x00, true, false, true, false, true},

		// Invalid BCD digits.
		{0x0f, 0x01, false, 0x16, false, false, false, false, false},
		{0x9a, 0x00, false, 0x00, true, false, false, false, false},
	})
}

func TestSBCDecimal(t *testing.T) {
	runArith(t, 0xe9, true, []arithTest{
		{0x10, 0x01, true, 0x09, true, false, false, false, true},
		{0x46, 0x12, true, 0x34, true, false, false, false, true},
		{0x40, 0x13, true, 0x27, true, false, false, false, true},
		{0x00, 0x01, true, 0x99, false, false, true, false, true},
		{0x32, 0x02, false, 0x29, true, false, false, false, true},
	})
}

func TestCompare(t *testing.T) {
	c, _, _ := loadCPU(t,
		0xc9, 0x10, // CMP #$10
		0xe0, 0x20, // CPX #$20
		0xc0, 0x01, // CPY #$01
	)
	c.Reg.A, c.Reg.X, c.Reg.Y = 0x10, 0x10, 0x00

	stepCPU(t, c)
	if !c.Reg.Carry || !c.Reg.Zero || c.Reg.Sign {
		t.Errorf("CMP equal flags incorrect: %+v", c.Reg)
	}
	stepCPU(t, c)
	if c.Reg.Carry || c.Reg.Zero || !c.Reg.Sign {
		t.Errorf("CPX less flags incorrect: %+v", c.Reg)
	}
	stepCPU(t, c)
	if c.Reg.Carry || c.Reg.Zero || !c.Reg.Sign {
		t.Errorf("CPY less flags incorrect: %+v", c.Reg)
	}
}

func TestReset(t *testing.T) {
	c, ram, b := loadCPU(t, 0xa9, 0x42, 0x48) // LDA #$42, PHA
	runCPU(t, c, 2)

	stack := append([]byte(nil), ram.Bytes()[0x100:0x200]...)
	b.log = nil

	if err := c.Reset(); err != nil {
		t.Fatal(err)
	}
	first := c.Reg
	if err := c.Reset(); err != nil {
		t.Fatal(err)
	}
	if c.Reg != first {
		t.Errorf("second reset changed registers. exp: %+v, got: %+v", first, c.Reg)
	}

	expectPC(t, c, 0x1000)
	expectSP(t, c, 0xfd)
	expectACC(t, c, 0x00)
	expectCycles(t, c, 0)
	if ps := c.Reg.SavePS(false); ps != 0x24 {
		t.Errorf("status incorrect. exp: $24, got: $%02X", ps)
	}
	if string(stack) != string(ram.Bytes()[0x100:0x200]) {
		t.Error("reset modified the stack")
	}
	for _, a := range b.log {
		if a.write {
			t.Errorf("reset wrote to the bus: %v", a)
		}
	}
}

func TestIRQMasked(t *testing.T) {
	c, ram, _ := loadCPU(t,
		0xea, // NOP
		0xea, // NOP
		0x58, // CLI
		0xea, // NOP
	)
	ram.Bytes()[0xfffe] = 0x00
	ram.Bytes()[0xffff] = 0x20

	irq := bus.NewLine("IRQ")
	c.IRQ = irq
	irq.NewSource("test").Assert()

	runCPU(t, c, 3)
	expectPC(t, c, 0x1003)

	if got := stepCPU(t, c); got != 7 {
		t.Errorf("interrupt cycles incorrect. exp: 7, got: %d", got)
	}
	expectPC(t, c, 0x2000)
	expectSP(t, c, 0xfa)
	expectMem(t, ram, 0x1fd, 0x10)
	expectMem(t, ram, 0x1fc, 0x03)
	expectMem(t, ram, 0x1fb, 0x20) // B clear, I clear
	if !c.Reg.InterruptDisable {
		t.Error("interrupt disable flag not set by IRQ")
	}
}

func TestNMIEdge(t *testing.T) {
	c, ram, _ := loadCPU(t, 0xea, 0xea, 0xea, 0xea)
	for a := 0x3000; a < 0x3010; a++ {
		ram.Bytes()[a] = 0xea
	}
	ram.Bytes()[0xfffa] = 0x00
	ram.Bytes()[0xfffb] = 0x30

	nmi := bus.NewLine("NMI")
	c.NMI = nmi
	src := nmi.NewSource("test")

	// An edge during an instruction is serviced after it completes.
	if err := c.Tick(); err != nil {
		t.Fatal(err)
	}
	src.Assert()
	for !c.AtBoundary() {
		if err := c.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	expectPC(t, c, 0x1001)

	if got := stepCPU(t, c); got != 7 {
		t.Errorf("interrupt cycles incorrect. exp: 7, got: %d", got)
	}
	expectPC(t, c, 0x3000)
	expectMem(t, ram, 0x1fc, 0x01)
	expectMem(t, ram, 0x1fb, 0x24)

	// Holding the line does not retrigger.
	runCPU(t, c, 3)
	expectPC(t, c, 0x3003)

	src.Release()
	stepCPU(t, c)
	expectPC(t, c, 0x3004)

	src.Assert()
	stepCPU(t, c)
	expectPC(t, c, 0x3000)
	expectSP(t, c, 0xf7)
}

func TestBRK(t *testing.T) {
	c, ram, _ := loadCPU(t, 0x00, 0xff) // BRK, padding
	ram.Bytes()[0xfffe] = 0x00
	ram.Bytes()[0xffff] = 0x20
	ram.Bytes()[0x2000] = 0x40 // RTI

	stepCPU(t, c)
	expectPC(t, c, 0x2000)
	expectMem(t, ram, 0x1fd, 0x10)
	expectMem(t, ram, 0x1fc, 0x02)
	expectMem(t, ram, 0x1fb, 0x34) // B set

	stepCPU(t, c)
	expectPC(t, c, 0x1002)
	expectSP(t, c, 0xfd)
	expectCycles(t, c, 13)
}

func TestIRQSkipsBRK(t *testing.T) {
	c, ram, _ := loadCPU(t, 0x00) // BRK
	ram.Bytes()[0xfffe] = 0x00
	ram.Bytes()[0xffff] = 0x20
	ram.Bytes()[0x2000] = 0x40 // RTI

	irq := bus.NewLine("IRQ")
	src := irq.NewSource("test")
	c.IRQ = irq
	c.Reg.InterruptDisable = false
	src.Assert()

	stepCPU(t, c)
	expectPC(t, c, 0x2000)
	expectMem(t, ram, 0x1fb, 0x20) // B clear

	src.Release()
	stepCPU(t, c)
	expectPC(t, c, 0x1001)
}

func TestNMIHijacksBRK(t *testing.T) {
	c, ram, _ := loadCPU(t, 0x00, 0x00) // BRK
	ram.Bytes()[0xfffa] = 0x00
	ram.Bytes()[0xfffb] = 0x30
	ram.Bytes()[0xfffe] = 0x00
	ram.Bytes()[0xffff] = 0x20

	nmi := bus.NewLine("NMI")
	c.NMI = nmi

	// Opcode, padding, PCH and PCL.
	for i := 0; i < 4; i++ {
		if err := c.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	nmi.NewSource("test").Assert()

	for !c.AtBoundary() {
		if err := c.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	expectPC(t, c, 0x3000)
	expectCycles(t, c, 7)
	expectMem(t, ram, 0x1fb, 0x34) // still a BRK
}

func TestUnimplementedOpcode(t *testing.T) {
	c, _, _ := loadCPU(t, 0x04, 0x10) // undocumented 2-byte NOP

	err := c.Tick()
	if !errors.Is(err, cpu.ErrUnimplementedOpcode) {
		t.Fatalf("exp unimplemented opcode, got: %v", err)
	}
	var ue *cpu.UnimplementedOpcodeError
	if !errors.As(err, &ue) || ue.Opcode != 0x04 || ue.PC != 0x1000 {
		t.Errorf("error incorrect: %v", err)
	}
	expectPC(t, c, 0x1000)
	expectCycles(t, c, 1)

	if !c.SubstituteNOP() {
		t.Fatal("SubstituteNOP refused")
	}
	for !c.AtBoundary() {
		if err := c.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	expectPC(t, c, 0x1002)
	expectCycles(t, c, 3)

	if c.SubstituteNOP() {
		t.Error("SubstituteNOP accepted a CPU that is not stopped")
	}
}

func TestBusErrorAbortsInstruction(t *testing.T) {
	ram := bus.NewRAM(0x8000)
	m := bus.NewAddressMap()
	if err := m.Attach(bus.NewRange(0x0000, 0x8000), ram); err != nil {
		t.Fatal(err)
	}
	copy(ram.Bytes()[0x1000:], []byte{0xad, 0x00, 0x90}) // LDA $9000

	c := cpu.NewCPU(m)
	c.SetPC(0x1000)

	var err error
	for i := 0; i < 4 && err == nil; i++ {
		err = c.Tick()
	}
	var ua *bus.UnmappedAccessError
	if !errors.As(err, &ua) || ua.Addr != 0x9000 {
		t.Fatalf("exp unmapped access at $9000, got: %v", err)
	}
	expectPC(t, c, 0x1000)
	if !c.AtBoundary() {
		t.Error("aborted instruction left cycles pending")
	}
}

type breakRecorder struct {
	pcs  []uint16
	data []uint16
}

func (r *breakRecorder) OnBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	r.pcs = append(r.pcs, b.Address)
}

func (r *breakRecorder) OnDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	r.data = append(r.data, b.Address)
}

func TestDebugger(t *testing.T) {
	c, _, _ := loadCPU(t,
		0xa9, 0x01, // LDA #$01
		0x85, 0x20, // STA $20
		0x85, 0x21, // STA $21
	)
	rec := &breakRecorder{}
	d := cpu.NewDebugger(rec)
	d.AddBreakpoint(0x1004)
	d.AddBreakpoint(0x1002).Disabled = true
	d.AddDataBreakpoint(0x20)
	d.AddConditionalDataBreakpoint(0x21, 0x02)
	c.AttachDebugger(d)

	runCPU(t, c, 3)

	if len(rec.pcs) != 1 || rec.pcs[0] != 0x1004 {
		t.Errorf("breakpoints incorrect: %v", rec.pcs)
	}
	if len(rec.data) != 1 || rec.data[0] != 0x20 {
		t.Errorf("data breakpoints incorrect: %v", rec.data)
	}

	bps := d.GetBreakpoints()
	if len(bps) != 2 || bps[0].Address != 0x1002 || bps[1].Address != 0x1004 {
		t.Errorf("GetBreakpoints not sorted: %v", bps)
	}
}
