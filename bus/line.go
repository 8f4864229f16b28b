// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bus

// A Line is an interrupt request signal shared by any number of devices.
// Like the open-collector IRQ and NMI lines of the real hardware, it is
// asserted as long as at least one of its sources asserts it.
type Line struct {
	name     string
	sources  []*LineSource
	asserted int
}

// NewLine creates a deasserted interrupt line.
func NewLine(name string) *Line {
	return &Line{name: name}
}

// Name returns the name of the line.
func (l *Line) Name() string {
	return l.name
}

// NewSource returns a new handle through which one device drives the line.
func (l *Line) NewSource(name string) *LineSource {
	s := &LineSource{name: name, line: l}
	l.sources = append(l.sources, s)
	return s
}

// Asserted reports whether any source currently asserts the line.
func (l *Line) Asserted() bool {
	return l.asserted > 0
}

// Asserting returns the names of all sources currently asserting the line.
func (l *Line) Asserting() []string {
	var names []string
	for _, s := range l.sources {
		if s.on {
			names = append(names, s.name)
		}
	}
	return names
}

// A LineSource is one device's connection to a Line.
type LineSource struct {
	name string
	line *Line
	on   bool
}

// Assert pulls the line. Asserting an already asserted source has no
// effect.
func (s *LineSource) Assert() {
	if !s.on {
		s.on = true
		s.line.asserted++
	}
}

// Release stops asserting the line.
func (s *LineSource) Release() {
	if s.on {
		s.on = false
		s.line.asserted--
	}
}

// Set asserts the line if on is true and releases it otherwise.
func (s *LineSource) Set(on bool) {
	if on {
		s.Assert()
	} else {
		s.Release()
	}
}

// Asserted reports whether this source is asserting its line.
func (s *LineSource) Asserted() bool {
	return s.on
}
