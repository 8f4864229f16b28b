// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package clock implements the scheduler that advances every emulated chip
// of a machine in lockstep, one clock cycle at a time.
package clock

import "fmt"

// A Ticker is a device whose state changes on every clock cycle.
type Ticker interface {
	Tick() error
}

// A Clock owns the global cycle count of one machine and the order in
// which its tickers are advanced.
//
// Within one cycle, tickers are advanced in the order they were
// registered. Devices that observe each other's state through the bus
// depend on this order, so it never changes after registration.
type Clock struct {
	cycles  uint64
	tickers []Ticker
}

// New creates a clock at cycle 0 with no registered tickers.
func New() *Clock {
	return &Clock{}
}

// Register appends t to the tick order.
func (c *Clock) Register(t Ticker) {
	c.tickers = append(c.tickers, t)
}

// Len returns the number of registered tickers.
func (c *Clock) Len() int {
	return len(c.tickers)
}

// Tick advances the cycle count by one and then ticks every registered
// ticker once, in registration order. If a ticker fails, the remaining
// tickers are not advanced in this cycle and the error is returned.
func (c *Clock) Tick() error {
	c.cycles++
	for _, t := range c.tickers {
		if err := t.Tick(); err != nil {
			return fmt.Errorf("cycle %d: %w", c.cycles, err)
		}
	}
	return nil
}

// Cycles returns the number of cycles elapsed since the clock was created
// or last reset.
func (c *Clock) Cycles() uint64 {
	return c.cycles
}

// Reset sets the cycle count back to zero. The tick order is unchanged.
func (c *Clock) Reset() {
	c.cycles = 0
}
