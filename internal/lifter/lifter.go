// Package lifter is the central engine (C7): it walks an irep's opcode
// feed, updates a register file, consults a parsing context for scope, and
// pushes reconstructed Expression IR nodes into a code generator buffer.
// Jump opcodes drive the bulk of the interesting behavior and live in
// jumps.go; lambda/method/class/module materialization and argument
// parsing live in blocks.go.
package lifter

import (
	"fmt"

	"ritedecomp/internal/codegen"
	"ritedecomp/internal/decomperr"
	"ritedecomp/internal/expr"
	"ritedecomp/internal/feed"
	"ritedecomp/internal/irep"
	"ritedecomp/internal/opcode"
	"ritedecomp/internal/pctx"
	"ritedecomp/internal/regfile"
)

// Lifter holds the state of one irep traversal (or sub-parse). Sub-parses
// (if/else arms, case arms, loop conditions/bodies, lambda defaults) each
// get their own Lifter over a feed.Slice and a regfile.Clone, per §9's
// register-copy discipline; parent links the enclosing traversal for
// upvalue resolution (§4.7 "walk the parent reader chain").
type Lifter struct {
	file     string
	ir       *irep.Irep
	regs     *regfile.File
	feed     *feed.Feed
	ctx      *pctx.Context
	buf      *codegen.Buffer
	curClass *expr.Node
	parent   *Lifter

	// idxFaulted/idxFault latch the first out-of-range symbol or literal
	// pool index this lifter was asked to resolve (irep.Symbol/PoolEntry
	// already report these misses safely via their ok bool; sym/poolEntry
	// record the first one here so run() can turn it into a typed error
	// instead of the caller silently substituting a zero value).
	idxFaulted bool
	idxFault   int
}

// Decompile is the top-level entry point: parses the root irep and renders
// the reconstructed source.
func Decompile(file string, root *irep.Irep, noComments bool) (string, error) {
	l := newTop(file, root)
	if err := l.run(); err != nil {
		return "", err
	}
	p := expr.NewPrinter(noComments)
	return l.buf.Render(p), nil
}

func newTop(file string, ir *irep.Irep) *Lifter {
	return &Lifter{
		file:     file,
		ir:       ir,
		regs:     regfile.New(ir.NumRegisters, ir.Lvars),
		feed:     feed.New(ir.Instructions),
		ctx:      pctx.New(),
		buf:      codegen.New(),
		curClass: expr.MainClass,
	}
}

// child constructs a sub-lifter sharing the same irep and curClass but a
// fresh register-file copy, a bounded feed slice, and a new parsing
// context frame.
func (l *Lifter) child(lo, hi int, kind pctx.Kind, hasMoreOutside bool) *Lifter {
	return &Lifter{
		file:     l.file,
		ir:       l.ir,
		regs:     l.regs.Clone(),
		feed:     l.feed.Slice(lo, hi),
		ctx:      l.ctx.PushAndNew(kind, hasMoreOutside),
		buf:      codegen.New(),
		curClass: l.curClass,
		parent:   l,
	}
}

// childWhenCond is child specialized for when-condition sub-parses,
// attaching the collector the case reconstructor reads back from.
func (l *Lifter) childWhenCond(lo, hi int, cb *pctx.Collector) *Lifter {
	c := l.child(lo, hi, pctx.KindWhenCond, l.ctx.HasMoreOutside())
	c.ctx = l.ctx.PushWhenCond(cb)
	return c
}

// childIrep constructs a sub-lifter over an entirely different irep (a
// lambda/method body or EXEC'd class body), linking parent for upvalue
// resolution.
func (l *Lifter) childIrep(ir *irep.Irep, kind pctx.Kind, curClass *expr.Node) *Lifter {
	return &Lifter{
		file:     l.file,
		ir:       ir,
		regs:     regfile.New(ir.NumRegisters, ir.Lvars),
		feed:     feed.New(ir.Instructions),
		ctx:      pctx.New().PushAndNew(kind, false),
		buf:      codegen.New(),
		curClass: curClass,
		parent:   l,
	}
}

// subIrepRange constructs a sub-lifter over a bounded instruction range of
// a (possibly different) irep — used for lambda/method bodies and
// optional-argument default-value sub-ranges, which both need to parse
// a slice of a child irep rather than the whole thing.
func (l *Lifter) subIrepRange(ir *irep.Irep, lo, hi int, kind pctx.Kind, curClass *expr.Node) *Lifter {
	return &Lifter{
		file:     l.file,
		ir:       ir,
		regs:     regfile.New(ir.NumRegisters, ir.Lvars),
		feed:     feed.New(ir.Instructions).Slice(lo, hi),
		ctx:      pctx.New().PushAndNew(kind, false),
		buf:      codegen.New(),
		curClass: curClass,
		parent:   l,
	}
}

// body runs the lifter to completion and returns its pruned expression
// list, ready to embed as a structured child's body.
func (l *Lifter) body() ([]*expr.Node, error) {
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.buf.Body(false), nil
}

func (l *Lifter) err(kind decomperr.Kind, format string, args ...any) error {
	return decomperr.New(kind, decomperr.Offset{File: l.file, Instruction: l.feed.Pos()}, format, args...)
}

// subFault reports a register fault latched on a sub-lifter's own register
// file. A sub-lifter's run loop checks its own faults as they happen, but a
// handful of callers read sub.regs directly after sub.body() has already
// returned (e.g. to recover a register's final value for a loop condition or
// default-argument expression); this catches a fault from one of those
// direct reads before it's mistaken for a valid zero value.
func (l *Lifter) subFault(sub *Lifter, pos int) error {
	if reg, faulted := sub.regs.Fault(); faulted {
		return decomperr.New(decomperr.RegisterOutOfRange,
			decomperr.Offset{File: l.file, Instruction: pos},
			"instruction addressed register %d outside the irep's %d slots", reg, sub.regs.Len())
	}
	return nil
}

// push appends n to the buffer.
func (l *Lifter) push(n *expr.Node) { l.buf.Push(n) }

// setReg wraps val as "name = val" when dest is an lvar (pushing the
// assignment) and always loads val as dest's new current value; when dest
// is not an lvar the raw value is pushed and flagged prunable so it
// disappears from top-level output unless something else consumes it
// (§4.7 "otherwise the raw expression is pushed").
func (l *Lifter) setReg(dest int, val *expr.Node) {
	wrapped := l.regs.WrapAssignIfLvar(dest, val)
	if wrapped == val {
		val.CanBeOptimizedAway = true
	}
	l.regs.Load(dest, val)
	l.push(wrapped)
}

// use marks a register's current value as consumed by another expression
// and returns it — callers embed the result as a child of the expression
// they are building.
func (l *Lifter) use(reg int) *expr.Node {
	v := l.regs.Value(reg)
	codegen.MarkUsed(v)
	return v
}

// useNamed prefers the register's bound lvar name over its raw value
// (§4.3 value_or_symbol) — used for plain reads that should print the
// variable name, not re-inline its last-computed expression.
func (l *Lifter) useNamed(reg int) *expr.Node {
	v := l.regs.ValueOrSymbol(reg)
	codegen.MarkUsed(v)
	return v
}

func (l *Lifter) sym(idx int) string {
	s, ok := l.ir.Symbol(idx)
	if !ok && !l.idxFaulted {
		l.idxFaulted = true
		l.idxFault = idx
	}
	return s
}

// poolEntry reads the idx-th literal pool entry, latching idxFault on a miss
// the same way sym does.
func (l *Lifter) poolEntry(idx int) irep.PoolValue {
	pv, ok := l.ir.PoolEntry(idx)
	if !ok && !l.idxFaulted {
		l.idxFaulted = true
		l.idxFault = idx
	}
	return pv
}

// run is the main dispatch loop: decode, interpret, advance. Jump opcodes
// may themselves advance the cursor arbitrarily (they own their own
// sub-parses) so the loop simply keeps asking the feed for the next
// instruction after each step.
func (l *Lifter) run() error {
	for l.feed.HasMore() {
		pos := l.feed.Pos()
		ins, ok := l.feed.Next()
		if !ok {
			break
		}
		if err := l.step(pos, ins); err != nil {
			return err
		}
		if reg, faulted := l.regs.Fault(); faulted {
			return decomperr.New(decomperr.RegisterOutOfRange,
				decomperr.Offset{File: l.file, Instruction: pos},
				"instruction addressed register %d outside the irep's %d slots", reg, l.regs.Len())
		}
		if l.idxFaulted {
			return decomperr.New(decomperr.IndexOutOfRange,
				decomperr.Offset{File: l.file, Instruction: pos},
				"instruction referenced out-of-range symbol/pool index %d", l.idxFault)
		}
	}
	return nil
}

func (l *Lifter) step(pos int, ins opcode.Instruction) error {
	switch ins.Op {
	case opcode.NOP:
		// no-op

	case opcode.MOVE:
		l.regs.MoveIn(int(ins.A), int(ins.B))
		l.push(l.use(int(ins.B)))

	case opcode.LOADL:
		pv := l.poolEntry(int(ins.Bx))
		l.setReg(int(ins.A), poolNode(pv))

	case opcode.LOADI:
		l.setReg(int(ins.A), expr.Int(int64(ins.SBx)))

	case opcode.LOADSYM:
		l.setReg(int(ins.A), expr.SymLit(l.sym(int(ins.Bx))))

	case opcode.LOADNIL:
		l.setReg(int(ins.A), expr.Nil())

	case opcode.LOADSELF:
		l.setReg(int(ins.A), expr.Self())

	case opcode.LOADT:
		l.setReg(int(ins.A), expr.True())

	case opcode.LOADF:
		l.setReg(int(ins.A), expr.False())

	case opcode.GETGLOBAL:
		l.setReg(int(ins.A), expr.Symbol(l.sym(int(ins.Bx))))
	case opcode.SETGLOBAL:
		l.push(expr.Assign(expr.Symbol(l.sym(int(ins.Bx))), l.use(int(ins.A))))

	case opcode.GETSPECIAL:
		l.setReg(int(ins.A), expr.Symbol(fmt.Sprintf("$%d", ins.Bx)))
	case opcode.SETSPECIAL:
		l.push(expr.Assign(expr.Symbol(fmt.Sprintf("$%d", ins.Bx)), l.use(int(ins.A))))

	case opcode.GETIV:
		l.setReg(int(ins.A), expr.Symbol(l.sym(int(ins.Bx))))
	case opcode.SETIV:
		l.push(expr.Assign(expr.Symbol(l.sym(int(ins.Bx))), l.use(int(ins.A))))

	case opcode.GETCV:
		l.setReg(int(ins.A), expr.Symbol(l.sym(int(ins.Bx))))
	case opcode.SETCV:
		l.push(expr.Assign(expr.Symbol(l.sym(int(ins.Bx))), l.use(int(ins.A))))

	case opcode.GETCONST:
		l.setReg(int(ins.A), expr.Symbol(l.sym(int(ins.Bx))))
	case opcode.SETCONST:
		l.push(expr.Assign(expr.Symbol(l.sym(int(ins.Bx))), l.use(int(ins.A))))

	case opcode.GETMCNST:
		l.setReg(int(ins.A), expr.MConst(l.use(int(ins.A)), l.sym(int(ins.Bx))))
	case opcode.SETMCNST:
		l.push(expr.Assign(expr.MConst(l.use(int(ins.A+1)), l.sym(int(ins.Bx))), l.use(int(ins.A))))

	case opcode.GETUPVAR:
		val, err := l.resolveUpvar(int(ins.B))
		if err != nil {
			return err
		}
		l.setReg(int(ins.A), val)
	case opcode.SETUPVAR:
		if err := l.assignUpvar(int(ins.B), l.use(int(ins.A))); err != nil {
			return err
		}

	// ADD/SUB/MUL/DIV and EQ/LT/LE/GT/GE carry their operator text as a
	// symbol-table index in B rather than an implicit fixed mnemonic — the
	// same optimized-send encoding is why a case/when comparison compiled
	// as EQ with B pointing at the "===" symbol prints as "===", not "==".
	case opcode.ADD, opcode.SUB, opcode.MUL, opcode.DIV,
		opcode.EQ, opcode.LT, opcode.LE, opcode.GT, opcode.GE:
		l.setReg(int(ins.A), expr.TwoOp(l.sym(int(ins.B)), l.useNamed(int(ins.A)), l.useNamed(int(ins.A+1))))
	case opcode.ADDI:
		l.setReg(int(ins.A), expr.TwoOp(l.sym(int(ins.B)), l.useNamed(int(ins.A)), expr.Int(int64(ins.C))))
	case opcode.SUBI:
		l.setReg(int(ins.A), expr.TwoOp(l.sym(int(ins.B)), l.useNamed(int(ins.A)), expr.Int(int64(ins.C))))

	case opcode.ARRAY:
		elems := make([]*expr.Node, 0, ins.C)
		for i := int32(0); i < ins.C; i++ {
			elems = append(elems, l.use(int(ins.B+i)))
		}
		l.setReg(int(ins.A), expr.Array(elems))
	case opcode.ARYCAT:
		l.setReg(int(ins.A), expr.ArrayConcat(l.use(int(ins.A)), l.use(int(ins.B))))
	case opcode.ARYPUSH:
		l.setReg(int(ins.A), expr.ArrayPush(l.use(int(ins.A)), l.use(int(ins.B))))
	case opcode.AREF:
		l.setReg(int(ins.A), expr.ArrayRef(l.use(int(ins.B)), expr.Int(int64(ins.C))))
	case opcode.ASET:
		l.push(expr.Assign(expr.ArrayRef(l.use(int(ins.B)), expr.Int(int64(ins.C))), l.use(int(ins.A))))
	case opcode.APOST:
		// post-splat destructure: A holds the remainder array already
		// sliced by the VM; nothing further to reconstruct here beyond
		// exposing it as a value.
		l.setReg(int(ins.A), l.use(int(ins.A)))

	case opcode.STRING:
		pv := l.poolEntry(int(ins.Bx))
		l.setReg(int(ins.A), poolNode(pv))
	case opcode.STRCAT:
		parts := expr.AppendStringPart(expr.AppendStringPart(nil, l.use(int(ins.A))), l.use(int(ins.B)))
		l.setReg(int(ins.A), expr.StringConcat(parts))

	case opcode.HASH:
		n := int(ins.C)
		keys := make([]*expr.Node, 0, n)
		vals := make([]*expr.Node, 0, n)
		for i := 0; i < n; i++ {
			keys = append(keys, l.use(int(ins.B)+2*i))
			vals = append(vals, l.use(int(ins.B)+2*i+1))
		}
		l.setReg(int(ins.A), expr.Hash(keys, vals))

	case opcode.RANGE:
		inclusive := ins.C == 0
		l.setReg(int(ins.A), expr.Range(l.use(int(ins.B)), l.use(int(ins.B+1)), inclusive))

	case opcode.SEND, opcode.FSEND:
		return l.liftSend(ins, false)
	case opcode.SENDB:
		return l.liftSend(ins, true)
	case opcode.SUPER:
		return l.liftSuper(ins)
	case opcode.ARGARY:
		// Compiler idiom that should never surface in well-formed source;
		// render the in-band marker §4.7 calls for.
		l.setReg(int(ins.A), expr.Raise("ARGARY: compiler-internal marker reached the lifter"))

	case opcode.LAMBDA:
		return l.liftLambda(pos, ins)

	case opcode.OCLASS:
		l.setReg(int(ins.A), expr.ClassSym("Object", nil, false))
	case opcode.CLASS:
		return l.liftClass(ins)
	case opcode.MODULE:
		l.setReg(int(ins.A), expr.ModuleSym(l.sym(int(ins.B))))
	case opcode.EXEC:
		return l.liftExec(ins)
	case opcode.METHOD:
		// Reached standalone (not consumed by the LAMBDA+METHOD combo in
		// liftLambda) only for malformed input; treat as a no-op finalize.
	case opcode.SCLASS:
		l.setReg(int(ins.A), expr.ClassSym("", nil, true))
	case opcode.TCLASS:
		l.setReg(int(ins.A), l.curClass)

	case opcode.RETURN:
		return l.liftReturn(ins)

	case opcode.JMP, opcode.JMPIF, opcode.JMPNOT:
		return l.liftJump(pos, ins)

	case opcode.STOP, opcode.DEBUG:
		// terminal/diagnostic markers carry no source-level meaning

	case opcode.BLKPUSH:
		// Placeholder marking "the block argument of the enclosing call"
		// (§4.7); liftSend rewrites a SEND/SENDB whose receiver is this
		// marker into a `yield` call and drops the placeholder.
		l.setReg(int(ins.A), expr.BlkPush())

	case opcode.KARG, opcode.KDICT, opcode.ONERR, opcode.RESCUE, opcode.POPERR,
		opcode.EPUSH, opcode.EPOP, opcode.TAILCALL:
		// Exception/keyword-arg machinery and tail-call hints: out of
		// scope per spec.md's Non-goals (no raise/rescue surface
		// reconstruction); silently skip rather than fail the file.

	case opcode.RAISE:
		l.push(expr.Raise(fmt.Sprintf("raise at instruction %d", pos)))

	default:
		return l.err(decomperr.UnknownOpcode, "opcode byte out of table: %v", ins.Op)
	}
	return nil
}

func poolNode(pv irep.PoolValue) *expr.Node {
	switch pv.Kind {
	case irep.PoolFixnum:
		return expr.Int(pv.Int)
	case irep.PoolFloat:
		return expr.Float(pv.Float)
	default:
		return expr.String(pv.Str)
	}
}
