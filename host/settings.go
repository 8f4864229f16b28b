// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"encoding"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/beevik/go64/machine"
	"github.com/beevik/prefixtree/v2"
)

// Monitor settings. Fields tagged with machine configure the machine and
// are pushed into it whenever a setting changes.
type settings struct {
	HexMode         bool                 `doc:"hexadecimal input mode"`
	MemDumpBytes    int                  `doc:"default number of memory bytes to dump"`
	DisasmLines     int                  `doc:"default number of lines to disassemble"`
	MaxStepLines    int                  `doc:"max lines to disassemble when stepping"`
	LogLines        int                  `doc:"default number of log entries to display"`
	Trace           bool                 `doc:"log every instruction executed" machine:"Trace"`
	Unimplemented   machine.OpcodePolicy `doc:"unimplemented opcode policy (halt or nop)" machine:"Unimplemented"`
	NextDisasmAddr  uint16               `doc:"address of next disassembly"`
	NextMemDumpAddr uint16               `doc:"address of next memory dump"`
}

func newSettings(cfg machine.Config) *settings {
	s := &settings{
		MemDumpBytes: 64,
		DisasmLines:  10,
		MaxStepLines: 20,
		LogLines:     20,
	}
	s.sync(reflect.ValueOf(&cfg).Elem(), false)
	return s
}

// apply copies the machine settings into the machine's configuration.
func (s *settings) apply(m *machine.Machine) {
	s.sync(reflect.ValueOf(&m.Config).Elem(), true)
}

// Copy each machine field between the settings and cfg, in the direction
// given by toMachine.
func (s *settings) sync(cfg reflect.Value, toMachine bool) {
	value := reflect.ValueOf(s).Elem()
	for _, f := range settingsFields {
		if f.machine == "" {
			continue
		}
		src, dst := cfg.FieldByName(f.machine), value.Field(f.index)
		if toMachine {
			src, dst = dst, src
		}
		dst.Set(src)
	}
}

type settingsField struct {
	name    string
	index   int
	typ     reflect.Type
	doc     string
	machine string // name of the machine.Config field, if any
}

var (
	settingsTree   = prefixtree.New[*settingsField]()
	settingsFields []settingsField

	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

func init() {
	settingsType := reflect.TypeFor[settings]()
	settingsFields = make([]settingsField, settingsType.NumField())
	for i := range settingsFields {
		f := settingsType.Field(i)
		settingsFields[i] = settingsField{
			name:    f.Name,
			index:   i,
			typ:     f.Type,
			doc:     f.Tag.Get("doc"),
			machine: f.Tag.Get("machine"),
		}
		settingsTree.Add(strings.ToLower(f.Name), &settingsFields[i])
	}
}

func (s *settings) Display(w io.Writer) {
	value := reflect.ValueOf(s).Elem()
	for i, f := range settingsFields {
		v := value.Field(i)
		var s string
		switch {
		case f.typ.Kind() == reflect.Uint16:
			s = fmt.Sprintf("    %-16s $%04X", f.name, uint16(v.Uint()))
		case f.textual():
			s = fmt.Sprintf("    %-16s \"%v\"", f.name, v)
		default:
			s = fmt.Sprintf("    %-16s %v", f.name, v)
		}
		fmt.Fprintf(w, "%-28s (%s)\n", s, f.doc)
	}
}

// Set parses value and stores it in the setting named by key, which may
// be any unique prefix of the setting's name. Numbers are parsed with
// parseNum. The setting is unchanged if the value is invalid.
func (s *settings) Set(key, value string, parseNum func(string) (int, error)) error {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return fmt.Errorf("setting '%s' not found", key)
	}

	v := reflect.ValueOf(s).Elem().Field(f.index)
	switch {
	case reflect.PointerTo(f.typ).Implements(textUnmarshalerType):
		return v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(value))

	case f.typ.Kind() == reflect.String:
		v.SetString(value)

	case f.typ.Kind() == reflect.Bool:
		b, err := stringToBool(value)
		if err != nil {
			return err
		}
		v.SetBool(b)

	default:
		n, err := parseNum(value)
		if err != nil {
			return err
		}
		if v.CanInt() {
			v.SetInt(int64(n))
		} else {
			v.SetUint(uint64(n))
		}
	}
	return nil
}

// Settings holding names are displayed in quotes.
func (f *settingsField) textual() bool {
	return f.typ.Kind() == reflect.String || reflect.PointerTo(f.typ).Implements(textUnmarshalerType)
}
