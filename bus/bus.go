// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bus implements the shared 16-bit address space through which the
// CPU and all other emulated chips communicate.
//
// Devices (RAM, ROM, peripheral chips) are attached to an AddressMap, each
// over a range of bus addresses. The map resolves every bus access to
// exactly one device and translates the bus address into the device's own
// local address space. Devices never talk to each other directly; all
// traffic goes through the map, and interrupt requests go through Lines.
package bus

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrRangeConflict  = errors.New("bus: address range conflict")
	ErrUnmappedAccess = errors.New("bus: unmapped access")
	ErrInvalidRange   = errors.New("bus: invalid address range")
)

// A Device is anything that can be attached to the bus. Addresses passed to
// a device are local to it: the address map has already subtracted the base
// of the device's range and added the range's offset.
//
// Read and Write are total over the device's attached range. Read may have
// a side effect only where the emulated hardware has one (e.g., a status
// register that clears on read). Write never fails.
//
// Devices that change state on every clock cycle also implement the
// clock.Ticker interface. Passive memory does not.
type Device interface {
	Read(addr uint16) byte
	Write(addr uint16, v byte)
}

// A Sizer is a device with a fixed local address space. The address map
// rejects ranges that would address past the end of it.
type Sizer interface {
	Size() int
}

// A Reader reads bytes from bus addresses.
type Reader interface {
	Read(addr uint16) (byte, error)
}

// A RangeConflictError is returned when a device range overlaps a range
// that is already attached.
type RangeConflictError struct {
	Range    Range // the range being attached
	Existing Range // the attached range it overlaps
}

func (e *RangeConflictError) Error() string {
	return fmt.Sprintf("bus: range %v conflicts with attached range %v", e.Range, e.Existing)
}

// Is reports whether target is ErrRangeConflict.
func (e *RangeConflictError) Is(target error) bool {
	return target == ErrRangeConflict
}

// An UnmappedAccessError is returned when an address with no attached device
// is read or written.
type UnmappedAccessError struct {
	Addr  uint16 // the bus address accessed
	Write bool   // true for a write, false for a read
}

func (e *UnmappedAccessError) Error() string {
	op := "read from"
	if e.Write {
		op = "write to"
	}
	return fmt.Sprintf("bus: unmapped %s $%04X", op, e.Addr)
}

// Is reports whether target is ErrUnmappedAccess.
func (e *UnmappedAccessError) Is(target error) bool {
	return target == ErrUnmappedAccess
}
