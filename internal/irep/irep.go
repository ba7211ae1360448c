// Package irep holds the parsed (not raw-binary) representation of a Rite
// code unit: instructions, constant pool, symbol table, child scopes and
// optional lvar debug names. internal/riteio builds these from a binary
// container; internal/lifter consumes them without any binary concerns.
package irep

import "ritedecomp/internal/opcode"

// PoolKind tags a constant-pool entry's literal type.
type PoolKind int

const (
	PoolString PoolKind = iota
	PoolFixnum
	PoolFloat
)

// PoolValue is one decoded constant-pool entry (§3 "sequence of byte
// strings, decoded as UTF-8 with replacement" for strings; mruby stores
// numeric pool literals as their ASCII text form, parsed here at load
// time).
type PoolValue struct {
	Kind  PoolKind
	Str   string
	Int   int64
	Float float64
}

// Irep is one immutable compiled code unit (§3 "Irep (parsed)"): a
// lexical scope's instructions, literal pool, symbol table, and nested
// child scopes, plus whatever lvar debug names the optional debug section
// bound to it.
type Irep struct {
	NumLocalVars int
	NumRegisters int
	Instructions []opcode.Instruction
	Pool         []PoolValue
	// Symbols holds the symbol table; "" marks the 0xFFFF length sentinel
	// (empty/anonymous symbol, §3).
	Symbols []string
	Children []*Irep

	// Lvars maps register index to source name, populated from the
	// optional debug section. Empty (not nil) when the section is absent.
	Lvars map[int]string
}

// Symbol returns the symbol-table entry at idx, or "" if out of range —
// callers enforce the "every Bx/B symbol/pool index lies within its
// irep's table" invariant (§3) before trusting this for anything other
// than a bounds-checked lookup.
func (ir *Irep) Symbol(idx int) (string, bool) {
	if idx < 0 || idx >= len(ir.Symbols) {
		return "", false
	}
	return ir.Symbols[idx], true
}

// PoolEntry returns the constant-pool entry at idx.
func (ir *Irep) PoolEntry(idx int) (PoolValue, bool) {
	if idx < 0 || idx >= len(ir.Pool) {
		return PoolValue{}, false
	}
	return ir.Pool[idx], true
}

// Child returns the idx-th nested irep (referenced by LAMBDA/EXEC).
func (ir *Irep) Child(idx int) (*Irep, bool) {
	if idx < 0 || idx >= len(ir.Children) {
		return nil, false
	}
	return ir.Children[idx], true
}
