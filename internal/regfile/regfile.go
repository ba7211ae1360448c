// Package regfile implements the per-irep register file (C3): a flat array
// of slots tracking each register's current value expression and whichever
// local-variable identity currently rides along with it.
package regfile

import "ritedecomp/internal/expr"

// Slot is one VM register's tracked state.
type Slot struct {
	// Value is the expression last materialized into this register.
	Value *expr.Node
	// Lvar is the symbol name bound to this register for its whole
	// lifetime in the irep's debug table, or "" if none.
	Lvar string
	// Temp is a borrowed lvar identity copied in by move_in — ValueOrSymbol
	// falls back to it when the slot has no Lvar of its own, without
	// implying Value itself is the named variable's permanent home.
	Temp string
}

// File is the R+1-slot register array for one irep traversal (§4.3: one
// over-allocation simplifies call-frame off-by-one arithmetic).
type File struct {
	slots []Slot

	// faulted latches the first out-of-range register access so callers
	// don't have to check every individual read/write; the access itself
	// returns a safe zero value instead of indexing out of bounds.
	faulted  bool
	faultReg int
}

// New allocates a register file with R+1 slots, seeding each lvar-bound
// slot's initial value with a symbol read of its own name (§3: "initially
// the associated local-variable symbol if any, else nil").
func New(numRegisters int, lvars map[int]string) *File {
	f := &File{slots: make([]Slot, numRegisters+1)}
	for reg, name := range lvars {
		if reg < 0 || reg >= len(f.slots) {
			continue
		}
		f.slots[reg].Lvar = name
		f.slots[reg].Value = expr.Symbol(name)
	}
	return f
}

// Clone returns a shallow copy of the register array, used when a sub-parse
// (if/while/case arm, lambda default, loop body) starts from the enclosing
// state without leaking its own mutations back (§9 "Register copy on
// sub-parse").
func (f *File) Clone() *File {
	out := &File{slots: make([]Slot, len(f.slots))}
	copy(out.slots, f.slots)
	return out
}

// Len reports the number of addressable slots (R+1).
func (f *File) Len() int { return len(f.slots) }

// InRange reports whether reg is a valid slot index — callers use this to
// enforce the register-safety invariant (§8 property 2) before every access.
func (f *File) InRange(reg int) bool { return reg >= 0 && reg < len(f.slots) }

// Fault reports the first out-of-range register index this file was asked
// to access, if any. A malformed or fuzzed file can carry an instruction
// whose register operand exceeds the irep's declared register count; rather
// than let that index a slice out of bounds, every accessor below latches
// the bad index here and returns a harmless zero value, so the caller can
// check once (after a lift step completes) and turn it into a typed error.
func (f *File) Fault() (int, bool) { return f.faultReg, f.faulted }

func (f *File) fault(reg int) bool {
	if f.InRange(reg) {
		return false
	}
	if !f.faulted {
		f.faulted = true
		f.faultReg = reg
	}
	return true
}

// Load sets a slot's value expression directly, clearing any borrowed temp
// identity (§4.3 load).
func (f *File) Load(reg int, value *expr.Node) {
	if f.fault(reg) {
		return
	}
	s := &f.slots[reg]
	s.Value = value
	s.Temp = ""
}

// MoveIn implements move_in (§4.3): if the source slot has an associated
// lvar, that name becomes this slot's value-or-symbol identity; otherwise
// this slot simply inherits the source's current value expression. Either
// way, any lvar/temp identity on the source propagates into this slot's
// temp field so later reads can still recover the original variable's name.
func (f *File) MoveIn(dst, src int) {
	if f.fault(dst) || f.fault(src) {
		return
	}
	s := &f.slots[src]
	d := &f.slots[dst]
	if s.Lvar != "" {
		d.Value = expr.Symbol(s.Lvar)
		d.Temp = s.Lvar
		return
	}
	d.Value = s.Value
	if s.Temp != "" {
		d.Temp = s.Temp
	}
}

// ValueOrSymbol returns the expression to use when reading a register as an
// operand: the associated lvar name (if any) wins over the raw value so
// that assignments to named variables are not inlined into their uses
// (§4.3 value_or_symbol).
func (f *File) ValueOrSymbol(reg int) *expr.Node {
	if f.fault(reg) {
		return expr.Nil()
	}
	s := &f.slots[reg]
	if s.Lvar != "" {
		return expr.Symbol(s.Lvar)
	}
	if s.Temp != "" {
		return expr.Symbol(s.Temp)
	}
	if s.Value != nil {
		return s.Value
	}
	return expr.Nil()
}

// Value returns the slot's raw current value expression, bypassing the
// lvar-name preference (used when the lifter needs the expression actually
// computed, e.g. as an assignment's right-hand side).
func (f *File) Value(reg int) *expr.Node {
	if f.fault(reg) {
		return expr.Nil()
	}
	v := f.slots[reg].Value
	if v == nil {
		return expr.Nil()
	}
	return v
}

// Lvar reports the register's bound local-variable name, if any. An
// out-of-range reg is reported as unbound rather than faulted: callers that
// walk a parent chain (upvalue/for-loop resolution) rely on "not here" to
// mean "try the next enclosing scope", not "this file is corrupt".
func (f *File) Lvar(reg int) (string, bool) {
	if !f.InRange(reg) {
		return "", false
	}
	name := f.slots[reg].Lvar
	return name, name != ""
}

// BindLvar permanently associates reg with a local-variable name, as driven
// by the irep's lvar debug section.
func (f *File) BindLvar(reg int, name string) {
	if f.fault(reg) {
		return
	}
	f.slots[reg].Lvar = name
}

// WrapAssignIfLvar wraps value as "name = value" when reg is bound to a
// named local, per §4.7's "destination register A is an lvar" rule;
// otherwise it returns value unchanged.
func (f *File) WrapAssignIfLvar(reg int, value *expr.Node) *expr.Node {
	if name, ok := f.Lvar(reg); ok {
		return expr.Assign(expr.Symbol(name), value)
	}
	return value
}
