// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"math/rand/v2"

	"github.com/beevik/go64/logger"
)

// RAM is a read/write memory device.
type RAM struct {
	b []byte
}

// NewRAM creates a zero-filled RAM device holding size bytes.
func NewRAM(size int) *RAM {
	return &RAM{b: make([]byte, size)}
}

// NewRandomRAM creates a RAM device holding size bytes of pseudo-random
// contents, as real DRAM has at power-on. The same seed always produces
// the same contents.
func NewRandomRAM(size int, seed uint64) *RAM {
	r := NewRAM(size)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range r.b {
		r.b[i] = byte(rng.Uint32())
	}
	return r
}

// Read returns the byte stored at addr.
func (r *RAM) Read(addr uint16) byte {
	return r.b[addr]
}

// Write stores v at addr.
func (r *RAM) Write(addr uint16, v byte) {
	r.b[addr] = v
}

// Size returns the capacity of the RAM in bytes.
func (r *RAM) Size() int {
	return len(r.b)
}

// Bytes returns the RAM's backing store.
func (r *RAM) Bytes() []byte {
	return r.b
}

// ROM is a read-only memory device. Writes are ignored.
type ROM struct {
	name string
	b    []byte
	log  *logger.Logger
}

// NewROM creates a ROM device holding a copy of data. Ignored writes are
// reported to log, which may be nil.
func NewROM(name string, data []byte, log *logger.Logger) *ROM {
	b := make([]byte, len(data))
	copy(b, data)
	return &ROM{name: name, b: b, log: log}
}

// Read returns the byte stored at addr.
func (r *ROM) Read(addr uint16) byte {
	return r.b[addr]
}

// Write ignores the write and logs it.
func (r *ROM) Write(addr uint16, v byte) {
	r.log.Logf(r.name, "ignoring write of $%02X to read-only $%04X", v, addr)
}

// Size returns the capacity of the ROM in bytes.
func (r *ROM) Size() int {
	return len(r.b)
}

// Name returns the name given to the ROM.
func (r *ROM) Name() string {
	return r.name
}

// TestMemory is a device whose every byte holds the low byte of its own
// address. Writes are discarded. It is useful for exercising the CPU
// without setting up memory contents.
type TestMemory struct{}

// Read returns the low byte of addr.
func (TestMemory) Read(addr uint16) byte {
	return byte(addr)
}

// Write does nothing.
func (TestMemory) Write(addr uint16, v byte) {}
