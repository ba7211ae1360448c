package pctx

import (
	"testing"

	"ritedecomp/internal/expr"
)

func TestTopLevelIsNormal(t *testing.T) {
	c := New()
	if !c.IsNormal() || c.HasMoreOutside() {
		t.Fatalf("fresh context should be normal with no more-outside")
	}
}

func TestPushAndNewDoesNotMutateParent(t *testing.T) {
	c := New()
	child := c.PushAndNew(KindIf, true)
	if !c.IsNormal() {
		t.Fatalf("parent mutated by PushAndNew")
	}
	if !child.IsIf() || !child.HasMoreOutside() {
		t.Fatalf("child = %+v", child)
	}
}

func TestLoopSearchStopsAtMethod(t *testing.T) {
	c := New().PushAndNew(KindWhileLoop, true).PushAndNew(KindMethod, false).PushAndNew(KindIf, false)
	if c.IsWhileLoop() {
		t.Fatalf("loop scope should not cross an intervening method frame")
	}
}

func TestLoopSearchFindsEnclosingLoop(t *testing.T) {
	c := New().PushAndNew(KindForLoop, true).PushAndNew(KindIf, false)
	if !c.IsForLoop() {
		t.Fatalf("expected IsForLoop true through an if frame")
	}
	if c.IsWhileLoop() {
		t.Fatalf("expected IsWhileLoop false")
	}
}

func TestWhenCondCallback(t *testing.T) {
	cb := &Collector{}
	c := New().PushWhenCond(cb)
	if !c.IsWhenCond() {
		t.Fatalf("expected when-condition scope")
	}
	got := c.Callback()
	if got != cb {
		t.Fatalf("Callback() did not return the attached collector")
	}
	got.Surface(expr.Int(1))
	if len(cb.Exprs) != 1 {
		t.Fatalf("Surface did not append to shared collector")
	}
}

func TestCallbackNilOutsideWhenCond(t *testing.T) {
	c := New()
	if c.Callback() != nil {
		t.Fatalf("expected nil callback outside when-condition scope")
	}
}
