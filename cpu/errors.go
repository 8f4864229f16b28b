// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrUnimplementedOpcode = errors.New("unimplemented opcode")
)

// An UnimplementedOpcodeError is returned by Tick when the CPU fetches an
// opcode it does not implement. The CPU stops at the opcode with PC
// pointing at it.
type UnimplementedOpcodeError struct {
	Opcode byte
	PC     uint16
}

func (e *UnimplementedOpcodeError) Error() string {
	return fmt.Sprintf("unimplemented opcode $%02X at $%04X", e.Opcode, e.PC)
}

func (e *UnimplementedOpcodeError) Is(target error) bool {
	return target == ErrUnimplementedOpcode
}
