// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logger implements a bounded, tagged log used by the emulated
// machine and its devices.
//
// Each entry consists of a tag naming the component that made the entry
// and a single line of detail. Consecutive identical entries are collapsed
// into one entry with a repeat count, so a device that complains on every
// clock cycle does not flood the log.
//
// A nil *Logger is valid and discards everything logged to it.
package logger

import (
	"fmt"
	"io"
	"strings"
)

// DefaultMaxEntries is the number of entries retained by a logger created
// with a non-positive maximum.
const DefaultMaxEntries = 256

// An Entry is a single line in the log.
type Entry struct {
	Tag      string // component that made the entry
	Detail   string // the logged text
	Repeated int    // number of additional identical entries collapsed into this one
}

func (e *Entry) String() string {
	var sb strings.Builder
	sb.WriteString(e.Tag)
	sb.WriteString(": ")
	sb.WriteString(e.Detail)
	if e.Repeated > 0 {
		fmt.Fprintf(&sb, " (repeat x%d)", e.Repeated+1)
	}
	return sb.String()
}

// A Logger holds the most recent log entries.
type Logger struct {
	maxEntries int
	entries    []Entry
	echo       io.Writer
}

// New creates a logger that retains at most maxEntries entries.
func New(maxEntries int) *Logger {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Logger{
		maxEntries: maxEntries,
		entries:    make([]Entry, 0, maxEntries),
	}
}

// SetEcho causes every new or repeated entry to be written to w as well. A
// nil writer turns echoing off.
func (l *Logger) SetEcho(w io.Writer) {
	if l != nil {
		l.echo = w
	}
}

// Log adds an entry to the log.
func (l *Logger) Log(tag, detail string) {
	if l == nil {
		return
	}

	tag = strings.ReplaceAll(tag, "\n", "")
	detail = strings.ReplaceAll(detail, "\n", "")

	var e *Entry
	if n := len(l.entries); n > 0 && l.entries[n-1].Tag == tag && l.entries[n-1].Detail == detail {
		e = &l.entries[n-1]
		e.Repeated++
	} else {
		if len(l.entries) == l.maxEntries {
			copy(l.entries, l.entries[1:])
			l.entries = l.entries[:len(l.entries)-1]
		}
		l.entries = append(l.entries, Entry{Tag: tag, Detail: detail})
		e = &l.entries[len(l.entries)-1]
	}

	if l.echo != nil {
		io.WriteString(l.echo, e.String()+"\n")
	}
}

// Logf adds a formatted entry to the log.
func (l *Logger) Logf(tag, format string, args ...any) {
	if l == nil {
		return
	}
	l.Log(tag, fmt.Sprintf(format, args...))
}

// Len returns the number of entries currently held.
func (l *Logger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Entries returns a copy of all held entries, oldest first.
func (l *Logger) Entries() []Entry {
	if l == nil {
		return nil
	}
	c := make([]Entry, len(l.entries))
	copy(c, l.entries)
	return c
}

// Clear removes all entries.
func (l *Logger) Clear() {
	if l != nil {
		l.entries = l.entries[:0]
	}
}

// Write writes every held entry to w. It returns false if the log is empty.
func (l *Logger) Write(w io.Writer) bool {
	if l == nil || len(l.entries) == 0 {
		return false
	}
	for i := range l.entries {
		io.WriteString(w, l.entries[i].String()+"\n")
	}
	return true
}

// Tail writes the most recent n entries to w.
func (l *Logger) Tail(w io.Writer, n int) {
	if l == nil {
		return
	}
	n = min(n, len(l.entries))
	for i := len(l.entries) - n; i < len(l.entries); i++ {
		io.WriteString(w, l.entries[i].String()+"\n")
	}
}
