package regfile

import (
	"testing"

	"ritedecomp/internal/expr"
)

func TestNewSeedsLvarValue(t *testing.T) {
	f := New(3, map[int]string{1: "x"})
	if f.Len() != 4 {
		t.Fatalf("Len = %d, want 4", f.Len())
	}
	if name, ok := f.Lvar(1); !ok || name != "x" {
		t.Fatalf("Lvar(1) = %q,%v want x,true", name, ok)
	}
	if got := f.ValueOrSymbol(1); got.Kind != expr.KindSymbol || got.Str != "x" {
		t.Fatalf("ValueOrSymbol(1) = %+v", got)
	}
}

func TestLoadClearsTemp(t *testing.T) {
	f := New(2, map[int]string{1: "y"})
	f.MoveIn(0, 1) // seed temp "y" via a move from an lvar-bound slot
	f.Load(0, expr.Int(5))
	if got := f.ValueOrSymbol(0); got.Kind != expr.KindInt || got.Int != 5 {
		t.Fatalf("ValueOrSymbol(0) = %+v, want Int 5 (temp cleared)", got)
	}
}

func TestMoveInCopiesLvarIdentity(t *testing.T) {
	f := New(2, map[int]string{0: "a"})
	f.MoveIn(1, 0)
	if got := f.ValueOrSymbol(1); got.Kind != expr.KindSymbol || got.Str != "a" {
		t.Fatalf("ValueOrSymbol(1) = %+v, want symbol a", got)
	}
}

func TestMoveInCopiesRawValueWhenNoLvar(t *testing.T) {
	f := New(2, nil)
	f.Load(0, expr.String("hi"))
	f.MoveIn(1, 0)
	if got := f.Value(1); got.Kind != expr.KindString || got.Str != "hi" {
		t.Fatalf("Value(1) = %+v", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	f := New(1, map[int]string{0: "x"})
	clone := f.Clone()
	clone.Load(0, expr.Int(99))
	if got := f.Value(0); got.Kind != expr.KindSymbol {
		t.Fatalf("original mutated by clone: %+v", got)
	}
	if got := clone.Value(0); got.Kind != expr.KindInt || got.Int != 99 {
		t.Fatalf("clone.Value(0) = %+v", got)
	}
}

func TestWrapAssignIfLvar(t *testing.T) {
	f := New(1, map[int]string{0: "x"})
	wrapped := f.WrapAssignIfLvar(0, expr.Int(7))
	if wrapped.Kind != expr.KindAssign || wrapped.Target.Str != "x" {
		t.Fatalf("wrapped = %+v", wrapped)
	}

	f2 := New(1, nil)
	plain := f2.WrapAssignIfLvar(0, expr.Int(7))
	if plain.Kind != expr.KindInt {
		t.Fatalf("plain = %+v, want raw int node", plain)
	}
}

func TestInRange(t *testing.T) {
	f := New(2, nil)
	if !f.InRange(0) || !f.InRange(2) || f.InRange(3) || f.InRange(-1) {
		t.Fatalf("InRange bounds wrong for Len=%d", f.Len())
	}
}

func TestOutOfRangeAccessLatchesFaultInsteadOfPanicking(t *testing.T) {
	f := New(1, nil)
	if got := f.Value(9); got.Kind != expr.KindNil {
		t.Fatalf("Value(9) = %+v, want Nil", got)
	}
	reg, faulted := f.Fault()
	if !faulted || reg != 9 {
		t.Fatalf("Fault() = %d,%v, want 9,true", reg, faulted)
	}
}

func TestFaultLatchesFirstOffenderOnly(t *testing.T) {
	f := New(1, nil)
	f.Load(5, expr.Int(1))
	f.Load(7, expr.Int(2))
	reg, faulted := f.Fault()
	if !faulted || reg != 5 {
		t.Fatalf("Fault() = %d,%v, want 5,true", reg, faulted)
	}
}

func TestLvarOutOfRangeReportsUnboundNotFault(t *testing.T) {
	f := New(1, nil)
	if name, ok := f.Lvar(9); ok || name != "" {
		t.Fatalf("Lvar(9) = %q,%v, want \"\",false", name, ok)
	}
	if _, faulted := f.Fault(); faulted {
		t.Fatalf("Lvar on an out-of-range register should not latch a fault")
	}
}

func TestInRangeStaysAccurateAfterAFault(t *testing.T) {
	f := New(1, nil)
	f.Value(9)
	if !f.InRange(0) || f.InRange(9) {
		t.Fatalf("InRange should be unaffected by a latched fault")
	}
}
