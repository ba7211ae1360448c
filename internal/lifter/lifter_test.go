package lifter

import (
	"strings"
	"testing"

	"ritedecomp/internal/decomperr"
	"ritedecomp/internal/irep"
	"ritedecomp/internal/opcode"
)

func ins(op opcode.Op, a, b, c int32) opcode.Instruction {
	return opcode.Instruction{Op: op, A: a, B: b, C: c}
}

func jmpIns(op opcode.Op, a int32, sbx int32) opcode.Instruction {
	return opcode.Instruction{Op: op, A: a, SBx: sbx}
}

func decompile(t *testing.T, ir *irep.Irep) string {
	t.Helper()
	out, err := Decompile("t.mrb", ir, true)
	if err != nil {
		t.Fatalf("Decompile: %v", err)
	}
	return out
}

// TestSimpleAssignAndAdd mirrors the "simple assignment and addition"
// scenario: a trailing implicit program-level RETURN on an lvar-bound
// register is fully suppressed.
func TestSimpleAssignAndAdd(t *testing.T) {
	ir := &irep.Irep{
		NumRegisters: 3,
		Symbols:      []string{"+"},
		Lvars:        map[int]string{1: "x"},
		Instructions: []opcode.Instruction{
			{Op: opcode.LOADI, A: 1, SBx: 3},
			{Op: opcode.LOADI, A: 2, SBx: 4},
			ins(opcode.ADD, 1, 0, 0),
			ins(opcode.RETURN, 1, 0, 0),
		},
	}
	got := decompile(t, ir)
	want := "x = 3 + 4"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// TestIfElse builds: cond = (1 == 2); if cond then x=10 else x=20 end, with
// the real pc-relative-to-next-instruction jump convention.
func TestIfElse(t *testing.T) {
	// R1/R2 hold the comparison operands (EQ writes its result back into R1);
	// R3 is the lvar "x" the two branches assign, kept separate from R1 so
	// the comparison result and the assigned variable don't alias.
	// idx: 0 LOADI R1,1  1 LOADI R2,2  2 EQ R1 (sym "==")
	//      3 JMPNOT R1,sbx  4 LOADI R3,10  5 JMP,sbx  6 LOADI R3,20  7 STOP
	// JMPNOT at 3 must land on idx6 (else start): target=3+1+sbx=6 -> sbx=2
	// JMP at 5 must land on idx7 (end): target=5+1+sbx=7 -> sbx=1
	instrs := []opcode.Instruction{
		{Op: opcode.LOADI, A: 1, SBx: 1},
		{Op: opcode.LOADI, A: 2, SBx: 2},
		ins(opcode.EQ, 1, 0, 0),
		jmpIns(opcode.JMPNOT, 1, 2),
		{Op: opcode.LOADI, A: 3, SBx: 10},
		jmpIns(opcode.JMP, 0, 1),
		{Op: opcode.LOADI, A: 3, SBx: 20},
		{Op: opcode.STOP},
	}
	ir := &irep.Irep{
		NumRegisters: 4,
		Symbols:      []string{"=="},
		Lvars:        map[int]string{3: "x"},
		Instructions: instrs,
	}
	got := decompile(t, ir)
	want := "if 1 == 2\n  x = 10\nelse\n  x = 20\nend"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// TestWhileLoop builds: i = 0; while i < 3 do i = i + 1 end.
func TestWhileLoop(t *testing.T) {
	// R1 is the lvar "i"; R2 is the increment literal (ADD always reads its
	// operands from A,A+1, so the "1" must sit right after i's register).
	// The condition copies i into scratch R3 via MOVE before comparing —
	// comparing directly in R1 would overwrite i's slot with the boolean
	// result and make ValueOrSymbol print "i" in place of "i < 3".
	// idx: 0 LOADI R1,0        i = 0
	//      1 JMP -> 4 (cond check)
	//      2 LOADI R2,1        body: literal 1
	//      3 ADD R1 (sym "+")  i = i + 1   (uses R1,R2)
	//      4 MOVE R3,R1        cond: copy i
	//      5 LOADI R4,3        literal 3
	//      6 LT R3 (sym "<")   R3 = i < 3  (uses R3,R4)
	//      7 JMPIF R3 -> back to idx2 (loop head)
	//      8 STOP
	// JMP at 1 -> target 4: 1+1+sbx=4 -> sbx=2
	// JMPIF at 7 -> target 2: 7+1+sbx=2 -> sbx=-6
	instrs := []opcode.Instruction{
		{Op: opcode.LOADI, A: 1, SBx: 0},
		jmpIns(opcode.JMP, 0, 2),
		{Op: opcode.LOADI, A: 2, SBx: 1},
		ins(opcode.ADD, 1, 0, 0),
		{Op: opcode.MOVE, A: 3, B: 1},
		{Op: opcode.LOADI, A: 4, SBx: 3},
		ins(opcode.LT, 3, 1, 0),
		jmpIns(opcode.JMPIF, 3, -6),
		{Op: opcode.STOP},
	}
	ir := &irep.Irep{
		NumRegisters: 5,
		Symbols:      []string{"+", "<"},
		Lvars:        map[int]string{1: "i"},
		Instructions: instrs,
	}
	got := decompile(t, ir)
	if !strings.Contains(got, "while i < 3\n") || !strings.HasSuffix(got, "\nend") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, "i = i + 1") {
		t.Fatalf("expected body reconstruction, got %q", got)
	}
	if !strings.Contains(got, "i = 0") {
		t.Fatalf("expected initial assignment, got %q", got)
	}
}

// TestCaseWithSameVariable builds a minimal case/when dispatch ladder over
// $x with two arms (both conditions $x === v) plus an else, and checks the
// header gets lifted to a bare `case $x`.
func TestCaseWithSameVariable(t *testing.T) {
	// EQ writes its result back into R1, so arm 2 reloads $x into R1 before
	// comparing; otherwise its left operand would be arm 1's comparison.
	// 0: GETGLOBAL R1        -> $x (scrutinee, also the case head value)
	// 1: LOADI R2,1          -> arm1 literal
	// 2: EQ R1 (sym "===")   -> R1 = R1 === R2   (A=1, operands R1,R2)
	// 3: JMPIF R1 -> body1(9): 3+1+sbx=9 -> sbx=5
	// 4: GETGLOBAL R1        -> $x again
	// 5: LOADI R2,2          -> arm2 literal
	// 6: EQ R1 (sym "===")   -> R1 = R1 === R2
	// 7: JMPIF R1 -> body2(11): 7+1+sbx=11 -> sbx=3
	// 8: JMP -> elseStart(13): 8+1+sbx=13 -> sbx=4
	// 9: LOADI R3,10 (arm1 body: x = 10)
	// 10: JMP -> caseEnd(14): 10+1+sbx=14 -> sbx=3
	// 11: LOADI R3,20 (arm2 body: x = 20)
	// 12: JMP -> caseEnd(14): 12+1+sbx=14 -> sbx=1
	// 13: LOADI R3,0 (else body: x = 0)
	// 14: STOP
	instrs := []opcode.Instruction{
		{Op: opcode.GETGLOBAL, A: 1, Bx: 1},
		{Op: opcode.LOADI, A: 2, SBx: 1},
		ins(opcode.EQ, 1, 0, 0),
		jmpIns(opcode.JMPIF, 1, 5),
		{Op: opcode.GETGLOBAL, A: 1, Bx: 1},
		{Op: opcode.LOADI, A: 2, SBx: 2},
		ins(opcode.EQ, 1, 0, 0),
		jmpIns(opcode.JMPIF, 1, 3),
		jmpIns(opcode.JMP, 0, 4),
		{Op: opcode.LOADI, A: 3, SBx: 10},
		jmpIns(opcode.JMP, 0, 3),
		{Op: opcode.LOADI, A: 3, SBx: 20},
		jmpIns(opcode.JMP, 0, 1),
		{Op: opcode.LOADI, A: 3, SBx: 0},
		{Op: opcode.STOP},
	}
	ir := &irep.Irep{
		NumRegisters: 4,
		Symbols:      []string{"===", "$x"},
		Lvars:        map[int]string{3: "x"},
		Instructions: instrs,
	}
	got := decompile(t, ir)
	if !strings.HasPrefix(got, "case $x\n") {
		t.Fatalf("expected lifted case header, got %q", got)
	}
	if !strings.Contains(got, "when 1") || !strings.Contains(got, "when 2") {
		t.Fatalf("expected both when arms, got %q", got)
	}
	if !strings.Contains(got, "else") {
		t.Fatalf("expected else arm, got %q", got)
	}
}

// TestForLoopResolvesEnclosingLvarName builds a top-level scope that binds
// register 2 to "item" and a for-loop-desugared LAMBDA child whose body
// binds the loop variable into that same enclosing register via SETUPVAR.
// The variable name must come from the enclosing scope, not a v%d
// placeholder or a name found inside the child irep's own (empty) Lvars.
func TestForLoopResolvesEnclosingLvarName(t *testing.T) {
	child := &irep.Irep{
		NumRegisters: 2,
		Instructions: []opcode.Instruction{
			{Op: opcode.ENTER, Spec: opcode.ArgSpec{Req: 1}},
			ins(opcode.SETUPVAR, 1, 2, 0),
			{Op: opcode.STOP},
		},
	}
	ir := &irep.Irep{
		NumRegisters: 3,
		Lvars:        map[int]string{2: "item"},
		Children:     []*irep.Irep{child},
		Instructions: []opcode.Instruction{
			{Op: opcode.LAMBDA, A: 0, Bz: 0},
			{Op: opcode.STOP},
		},
	}
	got := decompile(t, ir)
	if !strings.Contains(got, "for item in") {
		t.Fatalf("expected enclosing lvar name \"item\" in for-loop header, got %q", got)
	}
	if strings.Contains(got, "v2") {
		t.Fatalf("fell back to placeholder name, got %q", got)
	}
}

// TestRegisterOutOfRangeSurfacesTypedError feeds an ADD whose operand
// register lies past the irep's declared register count; this must surface
// as a decomperr.RegisterOutOfRange error, not a runtime slice-index panic.
func TestRegisterOutOfRangeSurfacesTypedError(t *testing.T) {
	ir := &irep.Irep{
		NumRegisters: 1,
		Symbols:      []string{"+"},
		Instructions: []opcode.Instruction{
			ins(opcode.ADD, 50, 0, 0),
			{Op: opcode.STOP},
		},
	}
	_, err := Decompile("t.mrb", ir, true)
	if err == nil {
		t.Fatalf("expected an error for an out-of-range register")
	}
	de, ok := err.(*decomperr.DecompileError)
	if !ok {
		t.Fatalf("err = %T, want *decomperr.DecompileError", err)
	}
	if de.Kind != decomperr.RegisterOutOfRange {
		t.Fatalf("Kind = %v, want RegisterOutOfRange", de.Kind)
	}
}

// TestIndexOutOfRangeSurfacesTypedError feeds a GETGLOBAL whose symbol
// index lies past the irep's symbol table; this must surface as a
// decomperr.IndexOutOfRange error rather than silently substituting "".
func TestIndexOutOfRangeSurfacesTypedError(t *testing.T) {
	ir := &irep.Irep{
		NumRegisters: 1,
		Symbols:      []string{},
		Instructions: []opcode.Instruction{
			{Op: opcode.GETGLOBAL, A: 0, Bx: 3},
			{Op: opcode.STOP},
		},
	}
	_, err := Decompile("t.mrb", ir, true)
	if err == nil {
		t.Fatalf("expected an error for an out-of-range symbol index")
	}
	de, ok := err.(*decomperr.DecompileError)
	if !ok {
		t.Fatalf("err = %T, want *decomperr.DecompileError", err)
	}
	if de.Kind != decomperr.IndexOutOfRange {
		t.Fatalf("Kind = %v, want IndexOutOfRange", de.Kind)
	}
}
