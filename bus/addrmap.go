// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"fmt"
	"sort"
)

// A Range is a span of bus addresses. The first address of the span maps to
// the device-local address Offset.
type Range struct {
	Base   uint16 // first bus address
	Size   int    // number of addresses, 1 through $10000
	Offset uint16 // device-local address of Base
}

// NewRange returns a range of size addresses starting at base. The first
// address maps to device-local address 0.
func NewRange(base uint16, size int) Range {
	return Range{Base: base, Size: size}
}

// Span returns the range covering first through last inclusive, with
// device-local addresses equal to bus addresses.
func Span(first, last uint16) Range {
	return Range{Base: first, Size: int(last) - int(first) + 1, Offset: first}
}

// WithOffset returns a copy of the range whose first address maps to the
// device-local address off.
func (r Range) WithOffset(off uint16) Range {
	r.Offset = off
	return r
}

// Last returns the last bus address in the range.
func (r Range) Last() uint16 {
	return r.Base + uint16(r.Size-1)
}

// Contains reports whether addr lies in the range.
func (r Range) Contains(addr uint16) bool {
	return uint32(addr) >= r.start() && uint32(addr) < r.end()
}

func (r Range) String() string {
	if r.Size <= 0 {
		return fmt.Sprintf("$%04X+%d", r.Base, r.Size)
	}
	return fmt.Sprintf("$%04X-$%04X", r.Base, r.Last())
}

func (r Range) start() uint32 { return uint32(r.Base) }
func (r Range) end() uint32   { return uint32(r.Base) + uint32(r.Size) }

func (r Range) valid() bool {
	return r.Size > 0 && r.end() <= 0x10000
}

// A Mapping is one entry of an address map.
type Mapping struct {
	Range
	Device Device
}

// An AddressMap maps ranges of the 16-bit bus address space to devices.
// Ranges never overlap, so every address resolves to at most one device.
type AddressMap struct {
	mappings []Mapping // sorted by base address
}

// NewAddressMap creates an empty address map.
func NewAddressMap() *AddressMap {
	return &AddressMap{}
}

// Attach maps the range r to the device d. It fails with a
// *RangeConflictError if r overlaps an attached range.
func (m *AddressMap) Attach(r Range, d Device) error {
	if !r.valid() || d == nil {
		return fmt.Errorf("%w: %v", ErrInvalidRange, r)
	}
	if s, ok := d.(Sizer); ok && int(r.Offset)+r.Size > s.Size() {
		return fmt.Errorf("%w: %v with offset $%04X exceeds device size %d", ErrInvalidRange, r, r.Offset, s.Size())
	}

	// Find the first attached range ending after the new range's base. If it
	// also begins before the new range's end, they overlap.
	i := sort.Search(len(m.mappings), func(i int) bool {
		return m.mappings[i].end() > r.start()
	})
	if i < len(m.mappings) && m.mappings[i].start() < r.end() {
		return &RangeConflictError{Range: r, Existing: m.mappings[i].Range}
	}

	m.mappings = append(m.mappings, Mapping{})
	copy(m.mappings[i+1:], m.mappings[i:])
	m.mappings[i] = Mapping{Range: r, Device: d}
	return nil
}

// Lookup returns the mapping that owns the bus address addr.
func (m *AddressMap) Lookup(addr uint16) (Mapping, bool) {
	if mp := m.resolve(addr); mp != nil {
		return *mp, true
	}
	return Mapping{}, false
}

// Mappings returns all attached mappings in address order.
func (m *AddressMap) Mappings() []Mapping {
	c := make([]Mapping, len(m.mappings))
	copy(c, m.mappings)
	return c
}

func (m *AddressMap) resolve(addr uint16) *Mapping {
	a := uint32(addr)
	i := sort.Search(len(m.mappings), func(i int) bool {
		return m.mappings[i].end() > a
	})
	if i < len(m.mappings) && m.mappings[i].start() <= a {
		return &m.mappings[i]
	}
	return nil
}

// Read reads the byte at the bus address addr.
func (m *AddressMap) Read(addr uint16) (byte, error) {
	mp := m.resolve(addr)
	if mp == nil {
		return 0, &UnmappedAccessError{Addr: addr}
	}
	return mp.Device.Read(addr - mp.Base + mp.Offset), nil
}

// Write writes the byte v to the bus address addr.
func (m *AddressMap) Write(addr uint16, v byte) error {
	mp := m.resolve(addr)
	if mp == nil {
		return &UnmappedAccessError{Addr: addr, Write: true}
	}
	mp.Device.Write(addr-mp.Base+mp.Offset, v)
	return nil
}

// Load reads len(b) consecutive bytes starting at addr into b.
func (m *AddressMap) Load(addr uint16, b []byte) error {
	if int(addr)+len(b) > 0x10000 {
		return fmt.Errorf("%w: $%04X+%d", ErrInvalidRange, addr, len(b))
	}
	for i := range b {
		v, err := m.Read(addr + uint16(i))
		if err != nil {
			return err
		}
		b[i] = v
	}
	return nil
}

// Store writes the bytes of b to consecutive addresses starting at addr.
// It is the way firmware and program images are placed into attached
// devices before a machine runs.
func (m *AddressMap) Store(addr uint16, b []byte) error {
	if int(addr)+len(b) > 0x10000 {
		return fmt.Errorf("%w: $%04X+%d", ErrInvalidRange, addr, len(b))
	}
	for i, v := range b {
		if err := m.Write(addr+uint16(i), v); err != nil {
			return err
		}
	}
	return nil
}
