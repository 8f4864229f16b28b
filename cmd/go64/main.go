// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/beevik/go64/bus"
	"github.com/beevik/go64/c64"
	"github.com/beevik/go64/host"
	"github.com/beevik/go64/machine"
	"github.com/beevik/term"
)

var (
	basicROM  string
	kernalROM string
	charROM   string
	trace     bool
	nop       bool
	randomRAM bool
	seed      uint64
	logSize   int
)

func init() {
	flag.StringVar(&basicROM, "basic", "", "BASIC ROM image")
	flag.StringVar(&kernalROM, "kernal", "", "KERNAL ROM image")
	flag.StringVar(&charROM, "char", "", "character ROM image")
	flag.BoolVar(&trace, "trace", false, "log every instruction executed")
	flag.BoolVar(&nop, "nop", false, "execute unimplemented opcodes as NOP instead of halting")
	flag.BoolVar(&randomRAM, "random-ram", false, "fill C64 RAM with pseudo-random bytes at power-on")
	flag.Uint64Var(&seed, "seed", 1, "seed for -random-ram")
	flag.IntVar(&logSize, "log", 1024, "maximum number of machine log entries")
	flag.CommandLine.Usage = func() {
		fmt.Println("Usage: go64 [options] [script] ..\nOptions:")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	m, err := newMachine()
	if err != nil {
		exitOnError(err)
	}
	if err := m.Reset(); err != nil {
		exitOnError(err)
	}

	h := host.New(m)

	// Run commands contained in command-line files.
	for _, filename := range flag.Args() {
		file, err := os.Open(filename)
		if err != nil {
			exitOnError(err)
		}
		h.RunCommands(file, os.Stdout, false)
		file.Close()
	}

	// Break on Ctrl-C.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go handleInterrupt(h, c)

	h.RunCommands(os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
}

// Build a C64 when ROM images are supplied, or a bare machine with 64K of
// RAM otherwise.
func newMachine() (*machine.Machine, error) {
	cfg := machine.Config{Trace: trace, LogSize: logSize}
	if nop {
		cfg.Unimplemented = machine.NOP
	}

	if basicROM == "" && kernalROM == "" && charROM == "" {
		return machine.New(cfg, machine.Attachment{
			Range:  bus.Span(0x0000, 0xffff),
			Device: bus.NewRAM(0x10000),
		})
	}

	var roms c64.ROMs
	for _, r := range []struct {
		filename string
		image    *[]byte
	}{
		{basicROM, &roms.BASIC},
		{kernalROM, &roms.KERNAL},
		{charROM, &roms.Char},
	} {
		if r.filename == "" {
			return nil, errors.New("-basic, -kernal and -char must be given together")
		}
		b, err := os.ReadFile(r.filename)
		if err != nil {
			return nil, err
		}
		*r.image = b
	}

	c, err := c64.New(roms, c64.Config{Config: cfg, RandomRAM: randomRAM, Seed: seed})
	if err != nil {
		return nil, err
	}
	return c.Machine, nil
}

func handleInterrupt(h *host.Host, c chan os.Signal) {
	for {
		<-c
		h.Break()
	}
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
