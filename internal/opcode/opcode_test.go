package opcode

import "testing"

func TestDecodeABC(t *testing.T) {
	// ADD R(1) R(2) R(3): op=ADD, A=1, B=2, C=3
	word := uint32(ADD) | (uint32(1) << (7 + 16)) | (uint32(2) << (7 + 7)) | (uint32(3) << 7)
	ins := Decode(word)
	if ins.Op != ADD {
		t.Fatalf("Op = %v, want ADD", ins.Op)
	}
	if ins.A != 1 || ins.B != 2 || ins.C != 3 {
		t.Fatalf("A,B,C = %d,%d,%d want 1,2,3", ins.A, ins.B, ins.C)
	}
}

func TestDecodeABx(t *testing.T) {
	word := uint32(LOADL) | (uint32(4) << (7 + 16)) | (uint32(1000) << 7)
	ins := Decode(word)
	if ins.Op != LOADL || ins.A != 4 || ins.Bx != 1000 {
		t.Fatalf("got %+v", ins)
	}
}

func TestDecodeAsBxSigned(t *testing.T) {
	// sBx = -3 encodes as Bx = -3 + 0x7FFF
	biased := uint32(int32(sBxBias) - 3)
	word := uint32(JMPNOT) | (uint32(1) << (7 + 16)) | (biased << 7)
	ins := Decode(word)
	if ins.Op != JMPNOT || ins.SBx != -3 {
		t.Fatalf("got SBx=%d, want -3", ins.SBx)
	}
}

func TestDecodeAspecForLoop(t *testing.T) {
	ins := Decode(uint32(ENTER) | (uint32(0x40000) << 7))
	if !ins.Spec.IsForLoopSpec() {
		t.Fatalf("expected for-loop argspec, got %+v", ins.Spec)
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	// Only the low 7 bits select the opcode; 100 is above Max (81).
	ins := Decode(uint32(100))
	if ins.Op != UNKNOWN {
		t.Fatalf("Op = %v, want UNKNOWN for out-of-table byte", ins.Op)
	}
}

func TestMaxInTable(t *testing.T) {
	if Max != 81 {
		t.Fatalf("Max = %d, want 81", Max)
	}
}
