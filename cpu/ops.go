// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Update the Zero and Negative flags based on the value of 'v'.
func (c *CPU) updateNZ(v byte) {
	c.Reg.Zero = (v == 0)
	c.Reg.Sign = ((v & 0x80) != 0)
}

// Add with carry. In decimal mode the NMOS 6502 sets Z from the binary sum
// and N and V from the result before the high digit is adjusted. Invalid
// BCD digits are processed by the same rules as valid ones.
func (c *CPU) adc(v byte) {
	a, b := uint(c.Reg.A), uint(v)
	carry := boolToUint(c.Reg.Carry)

	if !c.Reg.Decimal {
		sum := a + b + carry
		c.Reg.Carry = sum >= 0x100
		c.Reg.Overflow = (^(a^b) & (a^sum) & 0x80) != 0
		c.Reg.A = byte(sum)
		c.updateNZ(c.Reg.A)
		return
	}

	lo := (a & 0x0f) + (b & 0x0f) + carry
	if lo >= 0x0a {
		lo = ((lo + 0x06) & 0x0f) + 0x10
	}
	r := (a & 0xf0) + (b & 0xf0) + lo

	c.Reg.Zero = byte(a+b+carry) == 0
	c.Reg.Sign = (r & 0x80) != 0
	c.Reg.Overflow = (^(a^b) & (a^r) & 0x80) != 0

	if r >= 0xa0 {
		r += 0x60
	}
	c.Reg.Carry = r >= 0x100
	c.Reg.A = byte(r)
}

// Subtract with carry. The NMOS 6502 sets every flag from the binary
// difference, even in decimal mode.
func (c *CPU) sbc(v byte) {
	a, b := int(c.Reg.A), int(v)
	borrow := 1 - int(boolToUint(c.Reg.Carry))

	diff := a - b - borrow
	c.Reg.Carry = diff >= 0
	c.Reg.Overflow = ((a^b)&(a^diff)&0x80) != 0
	c.updateNZ(byte(diff))

	if !c.Reg.Decimal {
		c.Reg.A = byte(diff)
		return
	}

	lo := (a & 0x0f) - (b & 0x0f) - borrow
	if lo < 0 {
		lo = ((lo - 0x06) & 0x0f) - 0x10
	}
	r := (a & 0xf0) - (b & 0xf0) + lo
	if r < 0 {
		r -= 0x60
	}
	c.Reg.A = byte(r)
}

// Boolean AND
func (c *CPU) and(v byte) {
	c.Reg.A &= v
	c.updateNZ(c.Reg.A)
}

// Boolean OR
func (c *CPU) ora(v byte) {
	c.Reg.A |= v
	c.updateNZ(c.Reg.A)
}

// Boolean XOR
func (c *CPU) eor(v byte) {
	c.Reg.A ^= v
	c.updateNZ(c.Reg.A)
}

// Bit Test
func (c *CPU) bit(v byte) {
	c.Reg.Zero = ((v & c.Reg.A) == 0)
	c.Reg.Sign = ((v & 0x80) != 0)
	c.Reg.Overflow = ((v & 0x40) != 0)
}

func (c *CPU) compare(reg, v byte) {
	c.Reg.Carry = reg >= v
	c.updateNZ(reg - v)
}

// Compare to accumulator
func (c *CPU) cmp(v byte) { c.compare(c.Reg.A, v) }

// Compare to X register
func (c *CPU) cpx(v byte) { c.compare(c.Reg.X, v) }

// Compare to Y register
func (c *CPU) cpy(v byte) { c.compare(c.Reg.Y, v) }

// load Accumulator
func (c *CPU) lda(v byte) {
	c.Reg.A = v
	c.updateNZ(v)
}

// load the X register
func (c *CPU) ldx(v byte) {
	c.Reg.X = v
	c.updateNZ(v)
}

// load the Y register
func (c *CPU) ldy(v byte) {
	c.Reg.Y = v
	c.updateNZ(v)
}

// Arithmetic Shift Left
func (c *CPU) asl(v byte) byte {
	c.Reg.Carry = (v & 0x80) != 0
	v <<= 1
	c.updateNZ(v)
	return v
}

// Logical Shift Right
func (c *CPU) lsr(v byte) byte {
	c.Reg.Carry = (v & 1) != 0
	v >>= 1
	c.updateNZ(v)
	return v
}

// Rotate Left
func (c *CPU) rol(v byte) byte {
	r := (v << 1) | boolToByte(c.Reg.Carry)
	c.Reg.Carry = (v & 0x80) != 0
	c.updateNZ(r)
	return r
}

// Rotate Right
func (c *CPU) ror(v byte) byte {
	r := (v >> 1) | (boolToByte(c.Reg.Carry) << 7)
	c.Reg.Carry = (v & 1) != 0
	c.updateNZ(r)
	return r
}

// Increment memory value
func (c *CPU) inc(v byte) byte {
	v++
	c.updateNZ(v)
	return v
}

// Decrement memory value
func (c *CPU) dec(v byte) byte {
	v--
	c.updateNZ(v)
	return v
}

// Increment X register
func (c *CPU) inx() {
	c.Reg.X++
	c.updateNZ(c.Reg.X)
}

// Increment Y register
func (c *CPU) iny() {
	c.Reg.Y++
	c.updateNZ(c.Reg.Y)
}

// Decrement X register
func (c *CPU) dex() {
	c.Reg.X--
	c.updateNZ(c.Reg.X)
}

// Decrement Y register
func (c *CPU) dey() {
	c.Reg.Y--
	c.updateNZ(c.Reg.Y)
}

// Transfer Accumulator to X register
func (c *CPU) tax() {
	c.Reg.X = c.Reg.A
	c.updateNZ(c.Reg.X)
}

// Transfer Accumulator to Y register
func (c *CPU) tay() {
	c.Reg.Y = c.Reg.A
	c.updateNZ(c.Reg.Y)
}

// Transfer stack pointer to X register
func (c *CPU) tsx() {
	c.Reg.X = c.Reg.SP
	c.updateNZ(c.Reg.X)
}

// Transfer X register to Accumulator
func (c *CPU) txa() {
	c.Reg.A = c.Reg.X
	c.updateNZ(c.Reg.A)
}

// Transfer Y register to the Accumulator
func (c *CPU) tya() {
	c.Reg.A = c.Reg.Y
	c.updateNZ(c.Reg.A)
}
