// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

import (
	"errors"
	"io"
	"strings"
)

const hexDigits = "0123456789ABCDEF"

// Dump writes a hex dump of n bytes starting at bus address addr to w.
// Lines hold 8 bytes aligned on 8-byte boundaries, followed by their
// printable characters. Addresses with no attached device are shown as
// "--". Dumps shorter than 8 bytes are not aligned.
func Dump(w io.Writer, r Reader, addr uint16, n int) error {
	if n <= 0 {
		return nil
	}

	last := uint32(addr) + uint32(n) - 1
	if last > 0xffff {
		last = 0xffff
	}

	line := []byte("    -" + strings.Repeat(" ", 35) + "\n")

	if n < 8 {
		addrToBuf(addr, line[0:4])
		for a, c1, c2 := uint32(addr), 6, 32; a <= last; a, c1, c2 = a+1, c1+3, c2+1 {
			if err := dumpByte(r, uint16(a), line[c1:c1+2], &line[c2]); err != nil {
				return err
			}
		}
		_, err := w.Write(line)
		return err
	}

	start := uint32(addr) &^ 7
	stop := (last + 8) &^ 7
	for row := start; row < stop; row += 8 {
		addrToBuf(uint16(row), line[0:4])
		for i, c1, c2 := uint32(0), 6, 32; i < 8; i, c1, c2 = i+1, c1+3, c2+1 {
			a := row + i
			if a < uint32(addr) || a > last {
				line[c1], line[c1+1], line[c2] = ' ', ' ', ' '
				continue
			}
			if err := dumpByte(r, uint16(a), line[c1:c1+2], &line[c2]); err != nil {
				return err
			}
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func dumpByte(r Reader, addr uint16, hex []byte, ch *byte) error {
	v, err := r.Read(addr)
	switch {
	case errors.Is(err, ErrUnmappedAccess):
		hex[0], hex[1], *ch = '-', '-', ' '
		return nil
	case err != nil:
		return err
	}
	byteToBuf(v, hex)
	*ch = toPrintableChar(v)
	return nil
}

func addrToBuf(addr uint16, b []byte) {
	b[0] = hexDigits[(addr>>12)&0xf]
	b[1] = hexDigits[(addr>>8)&0xf]
	b[2] = hexDigits[(addr>>4)&0xf]
	b[3] = hexDigits[addr&0xf]
}

func byteToBuf(v byte, b []byte) {
	b[0] = hexDigits[v>>4]
	b[1] = hexDigits[v&0xf]
}

func toPrintableChar(v byte) byte {
	switch {
	case v >= 32 && v < 127:
		return v
	case v >= 160 && v < 255:
		return v - 128
	default:
		return '.'
	}
}
