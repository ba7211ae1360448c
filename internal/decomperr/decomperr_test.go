package decomperr

import (
	"errors"
	"testing"
)

func TestNewIsFatal(t *testing.T) {
	err := New(MalformedContainer, Offset{File: "a.mrb", ByteOffset: 4}, "bad magic %q", "XXXX")
	if !err.Fatal {
		t.Fatalf("New() should be fatal")
	}
	want := `malformed container: bad magic "XXXX" at a.mrb (byte offset 4)`
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestSoftIsNotFatal(t *testing.T) {
	err := Soft(UnexpectedJump, Offset{File: "a.mrb", IrepIndex: 2, Instruction: 9}, "unexpected JMP")
	if err.Fatal {
		t.Fatalf("Soft() should not be fatal")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("short read")
	err := Wrap(cause, MalformedContainer, Offset{File: "a.mrb"}, "truncated section")
	if errors.Unwrap(err) == nil {
		t.Fatalf("Wrap should preserve an unwrappable cause")
	}
}

func TestRaiseStub(t *testing.T) {
	if got := RaiseStub("unexpected JMP at 12"); got != "ERROR: unexpected JMP at 12" {
		t.Fatalf("RaiseStub = %q", got)
	}
}
