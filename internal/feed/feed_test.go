package feed

import (
	"testing"

	"ritedecomp/internal/opcode"
)

func seq(ops ...opcode.Op) []opcode.Instruction {
	out := make([]opcode.Instruction, len(ops))
	for i, o := range ops {
		out[i] = opcode.Instruction{Op: o}
	}
	return out
}

func TestCurNextAdvance(t *testing.T) {
	f := New(seq(opcode.NOP, opcode.MOVE, opcode.STOP))
	if ins, ok := f.Cur(); !ok || ins.Op != opcode.NOP {
		t.Fatalf("Cur = %+v,%v", ins, ok)
	}
	ins, ok := f.Next()
	if !ok || ins.Op != opcode.NOP || f.Pos() != 1 {
		t.Fatalf("Next = %+v,%v pos=%d", ins, ok, f.Pos())
	}
	if ins, ok := f.Cur(); !ok || ins.Op != opcode.MOVE {
		t.Fatalf("Cur after Next = %+v,%v", ins, ok)
	}
}

func TestJumpAndGetRel(t *testing.T) {
	f := New(seq(opcode.NOP, opcode.MOVE, opcode.ADD, opcode.STOP))
	f.Jump(2)
	if f.Pos() != 2 {
		t.Fatalf("Pos = %d, want 2", f.Pos())
	}
	if ins, ok := f.GetRel(1); !ok || ins.Op != opcode.STOP {
		t.Fatalf("GetRel(1) = %+v,%v", ins, ok)
	}
	if ins, ok := f.GetRel(-1); !ok || ins.Op != opcode.MOVE {
		t.Fatalf("GetRel(-1) = %+v,%v", ins, ok)
	}
}

func TestSeekIsMonotonicForward(t *testing.T) {
	f := New(seq(opcode.NOP, opcode.MOVE, opcode.ADD, opcode.STOP))
	f.Seek(3)
	if f.Pos() != 3 {
		t.Fatalf("Pos = %d, want 3", f.Pos())
	}
	f.Seek(1)
	if f.Pos() != 3 {
		t.Fatalf("Seek backward moved cursor: Pos = %d, want 3", f.Pos())
	}
}

func TestSliceRetainsBackReference(t *testing.T) {
	full := seq(opcode.NOP, opcode.MOVE, opcode.ADD, opcode.STOP, opcode.RETURN)
	f := New(full)
	sub := f.Slice(1, 3)
	if sub.Pos() != 1 || sub.Hi() != 3 {
		t.Fatalf("sub bounds = [%d,%d)", sub.Pos(), sub.Hi())
	}
	if sub.HasMore() == false {
		t.Fatalf("sub should have opcodes")
	}
	jumped := sub.GetJumpedOpcodes(4)
	if len(jumped) != 4 || jumped[3].Op != opcode.RETURN {
		t.Fatalf("GetJumpedOpcodes should see past sub's own slice: %+v", jumped)
	}
}

func TestBlankTail(t *testing.T) {
	full := seq(opcode.NOP, opcode.MOVE, opcode.NOP, opcode.NOP)
	f := New(full).Slice(0, 4)
	if !f.Slice(2, 4).BlankTail(2) {
		t.Fatalf("expected blank tail of length 2")
	}
	if f.Slice(0, 4).BlankTail(0) {
		t.Fatalf("expected non-blank tail of length 4")
	}
}
