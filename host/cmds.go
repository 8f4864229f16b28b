// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import "github.com/beevik/cmd"

var cmds *cmd.Tree

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "go64"})

	root.AddCommand(cmd.CommandDescriptor{
		Name:        "help",
		Description: "Display help for a command.",
		Usage:       "help [<command>]",
		Data:        (*Host).cmdHelp,
	})

	// Breakpoint commands
	bp := root.AddSubtree(cmd.TreeDescriptor{Name: "breakpoint", Brief: "Breakpoint commands"})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:        "list",
		Brief:       "List breakpoints",
		Description: "List all current breakpoints.",
		Usage:       "breakpoint list",
		Data:        (*Host).cmdBreakpointList,
	})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:  "add",
		Brief: "Add a breakpoint",
		Description: "Add a breakpoint at the specified address." +
			" The breakpoint starts enabled.",
		Usage: "breakpoint add <address>",
		Data:  (*Host).cmdBreakpointAdd,
	})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:        "remove",
		Brief:       "Remove a breakpoint",
		Description: "Remove a breakpoint at the specified address.",
		Usage:       "breakpoint remove <address>",
		Data:        (*Host).cmdBreakpointRemove,
	})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:        "enable",
		Brief:       "Enable a breakpoint",
		Description: "Enable a previously added breakpoint.",
		Usage:       "breakpoint enable <address>",
		Data:        (*Host).cmdBreakpointEnable,
	})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:  "disable",
		Brief: "Disable a breakpoint",
		Description: "Disable a previously added breakpoint. This" +
			" prevents the breakpoint from being hit when running the" +
			" machine.",
		Usage: "breakpoint disable <address>",
		Data:  (*Host).cmdBreakpointDisable,
	})

	// Data breakpoint commands
	db := root.AddSubtree(cmd.TreeDescriptor{Name: "databreakpoint", Brief: "Data breakpoint commands"})
	db.AddCommand(cmd.CommandDescriptor{
		Name:        "list",
		Brief:       "List data breakpoints",
		Description: "List all current data breakpoints.",
		Usage:       "databreakpoint list",
		Data:        (*Host).cmdDataBreakpointList,
	})
	db.AddCommand(cmd.CommandDescriptor{
		Name:  "add",
		Brief: "Add a data breakpoint",
		Description: "Add a new data breakpoint at the specified" +
			" memory address. When the CPU stores data at this address, the" +
			" breakpoint will stop the machine. Optionally, a byte" +
			" value may be specified, and the machine will stop only" +
			" when this value is stored. The data breakpoint starts" +
			" enabled.",
		Usage: "databreakpoint add <address> [<value>]",
		Data:  (*Host).cmdDataBreakpointAdd,
	})
	db.AddCommand(cmd.CommandDescriptor{
		Name:  "remove",
		Brief: "Remove a data breakpoint",
		Description: "Remove a previously added data breakpoint at" +
			" the specified memory address.",
		Usage: "databreakpoint remove <address>",
		Data:  (*Host).cmdDataBreakpointRemove,
	})
	db.AddCommand(cmd.CommandDescriptor{
		Name:        "enable",
		Brief:       "Enable a data breakpoint",
		Description: "Enable a previously added data breakpoint.",
		Usage:       "databreakpoint enable <address>",
		Data:        (*Host).cmdDataBreakpointEnable,
	})
	db.AddCommand(cmd.CommandDescriptor{
		Name:        "disable",
		Brief:       "Disable a data breakpoint",
		Description: "Disable a previously added data breakpoint.",
		Usage:       "databreakpoint disable <address>",
		Data:        (*Host).cmdDataBreakpointDisable,
	})

	root.AddCommand(cmd.CommandDescriptor{
		Name:  "disassemble",
		Brief: "Disassemble code",
		Description: "Disassemble machine code starting at the requested" +
			" address. The number of instruction lines to disassemble may be" +
			" specified as an option. If no address is specified, the" +
			" disassembly continues from where the last disassembly left off.",
		Usage: "disassemble [<address>] [<lines>]",
		Data:  (*Host).cmdDisassemble,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "evaluate",
		Brief: "Evaluate a value",
		Description: "Evaluate a value made of numbers and register names" +
			" joined by + and -. Numbers may be written in decimal, in" +
			" hexadecimal with a $ or 0x prefix, or in binary with a %" +
			" prefix.",
		Usage: "evaluate <value>",
		Data:  (*Host).cmdEvaluate,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "execute",
		Brief: "Execute a go64 script file",
		Description: "Load a go64 script file from disk and execute the" +
			" commands it contains.",
		Usage: "execute <filename>",
		Data:  (*Host).cmdExecute,
	})

	// Interrupt commands
	in := root.AddSubtree(cmd.TreeDescriptor{Name: "interrupt", Brief: "Interrupt line commands"})
	in.AddCommand(cmd.CommandDescriptor{
		Name:  "irq",
		Brief: "Drive the IRQ line",
		Description: "Assert or release the monitor's connection to the" +
			" maskable interrupt line. Without a value, display the state" +
			" of the line and every source asserting it.",
		Usage: "interrupt irq [on|off]",
		Data:  (*Host).cmdInterruptIRQ,
	})
	in.AddCommand(cmd.CommandDescriptor{
		Name:  "nmi",
		Brief: "Drive the NMI line",
		Description: "Assert or release the monitor's connection to the" +
			" non-maskable interrupt line. The CPU services an NMI once" +
			" each time the line goes from released to asserted.",
		Usage: "interrupt nmi [on|off]",
		Data:  (*Host).cmdInterruptNMI,
	})

	root.AddCommand(cmd.CommandDescriptor{
		Name:  "load",
		Brief: "Load a binary file",
		Description: "Load the contents of a raw binary file into the" +
			" emulated machine's memory at the specified address, and set" +
			" the program counter to that address.",
		Usage: "load <filename> <address>",
		Data:  (*Host).cmdLoad,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "log",
		Brief: "Display the machine log",
		Description: "Display the most recent entries of the machine log." +
			" The number of entries may be specified as an option. Use" +
			" 'log clear' to empty the log.",
		Usage: "log [<entries>|clear]",
		Data:  (*Host).cmdLog,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "map",
		Brief:       "Display the address map",
		Description: "Display every device attached to the address map.",
		Usage:       "map",
		Data:        (*Host).cmdMap,
	})

	// Memory commands
	me := root.AddSubtree(cmd.TreeDescriptor{Name: "memory", Brief: "Memory commands"})
	me.AddCommand(cmd.CommandDescriptor{
		Name:  "dump",
		Brief: "Dump memory at address",
		Description: "Dump the contents of memory starting from the" +
			" specified address. The number of bytes to dump may be" +
			" specified as an option. If no address is specified, the" +
			" memory dump continues from where the last dump left off.",
		Usage: "memory dump [<address>] [<bytes>]",
		Data:  (*Host).cmdMemoryDump,
	})
	me.AddCommand(cmd.CommandDescriptor{
		Name:  "set",
		Brief: "Set memory at address",
		Description: "Set the contents of memory starting from the specified" +
			" address. The values to assign should be a series of" +
			" space-separated byte values.",
		Usage: "memory set <address> <byte> [<byte> ...]",
		Data:  (*Host).cmdMemorySet,
	})
	me.AddCommand(cmd.CommandDescriptor{
		Name:  "copy",
		Brief: "Copy memory",
		Description: "Copy memory from one range of addresses to another. You" +
			" must specify the destination address, the first byte of the source" +
			" address, and the last byte of the source address.",
		Usage: "memory copy <dst addr> <src addr begin> <src addr end>",
		Data:  (*Host).cmdMemoryCopy,
	})

	root.AddCommand(cmd.CommandDescriptor{
		Name:        "quit",
		Brief:       "Quit the program",
		Description: "Quit the program.",
		Usage:       "quit",
		Data:        (*Host).cmdQuit,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "register",
		Brief: "View or change register values",
		Description: "When used without arguments, this command displays the current" +
			" contents of the CPU registers. When used with arguments, this" +
			" command changes the value of a register or one of the CPU's status" +
			" flags. Allowed register names include A, X, Y, PC and SP. Allowed status" +
			" flag names include Sign (or Negative), Zero, Carry, Interrupt," +
			" Decimal and Overflow. Names may be abbreviated.",
		Usage: "register [<name> <value>]",
		Data:  (*Host).cmdRegister,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "reset",
		Brief: "Reset the machine",
		Description: "Reset every device and the CPU, load the program" +
			" counter from the reset vector and zero the cycle count.",
		Usage: "reset",
		Data:  (*Host).cmdReset,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "run",
		Brief: "Run the machine",
		Description: "Run the machine until a breakpoint is hit, until it" +
			" halts or until the user types Ctrl-C. If an address is" +
			" specified, the program counter is set to it first.",
		Usage: "run [<address>]",
		Data:  (*Host).cmdRun,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "set",
		Brief: "Set a configuration variable",
		Description: "Set the value of a configuration variable. To see the" +
			" current values of all configuration variables, type set" +
			" without any arguments.",
		Usage: "set [<var> <value>]",
		Data:  (*Host).cmdSet,
	})

	// Step commands
	st := root.AddSubtree(cmd.TreeDescriptor{Name: "step", Brief: "Step the machine"})
	st.AddCommand(cmd.CommandDescriptor{
		Name:  "in",
		Brief: "Step into next instruction",
		Description: "Step the machine by a single instruction. If the" +
			" instruction is a subroutine call, step into the subroutine." +
			" The number of steps may be specified as an option.",
		Usage: "step in [<count>]",
		Data:  (*Host).cmdStepIn,
	})
	st.AddCommand(cmd.CommandDescriptor{
		Name:  "over",
		Brief: "Step over next instruction",
		Description: "Step the machine by a single instruction. If the" +
			" instruction is a subroutine call, step over the subroutine." +
			" The number of steps may be specified as an option.",
		Usage: "step over [<count>]",
		Data:  (*Host).cmdStepOver,
	})

	// Add command shortcuts.
	root.AddShortcut("ba", "breakpoint add")
	root.AddShortcut("br", "breakpoint remove")
	root.AddShortcut("bl", "breakpoint list")
	root.AddShortcut("be", "breakpoint enable")
	root.AddShortcut("bd", "breakpoint disable")
	root.AddShortcut("d", "disassemble")
	root.AddShortcut("dbl", "databreakpoint list")
	root.AddShortcut("dba", "databreakpoint add")
	root.AddShortcut("dbr", "databreakpoint remove")
	root.AddShortcut("dbe", "databreakpoint enable")
	root.AddShortcut("dbd", "databreakpoint disable")
	root.AddShortcut("e", "evaluate")
	root.AddShortcut("m", "memory dump")
	root.AddShortcut("mc", "memory copy")
	root.AddShortcut("ms", "memory set")
	root.AddShortcut("r", "register")
	root.AddShortcut("s", "step over")
	root.AddShortcut("si", "step in")
	root.AddShortcut("?", "help")
	root.AddShortcut(".", "register")

	cmds = root
}
