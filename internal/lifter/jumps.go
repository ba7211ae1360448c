package lifter

import (
	"ritedecomp/internal/decomperr"
	"ritedecomp/internal/expr"
	"ritedecomp/internal/opcode"
	"ritedecomp/internal/pctx"
)

// liftReturn handles RETURN A B (§4.7 "Returns"). B distinguishes a loop
// continue (0, inside a for-loop with more to run), an explicit break (1),
// and an ordinary return (0 or 2) — except a script's own trailing implicit
// RETURN, which carries no source-level meaning and is always dropped: S1
// shows a top-level lvar-bound RETURN fully suppressed, which only holds
// together if that suppression is checked before the lvar/has-more test
// below, not folded into it.
func (l *Lifter) liftReturn(ins opcode.Instruction) error {
	a := int(ins.A)
	b := ins.B
	val := l.use(a)

	if b == 1 {
		l.push(expr.Break())
		return nil
	}

	if b == 0 && l.ctx.IsForLoop() && (l.feed.HasMore() || l.ctx.HasMoreOutside()) {
		l.push(expr.Next())
		return nil
	}

	if l.parent == nil && l.ctx.IsNormal() && !l.ctx.HasMoreOutside() && !l.feed.HasMore() {
		return nil
	}

	_, isLvar := l.regs.Lvar(a)
	if isLvar || l.feed.HasMore() || l.ctx.HasMoreOutside() {
		if val.Kind == expr.KindNil {
			l.push(expr.Return(nil))
		} else {
			l.push(expr.Return(val))
		}
	}
	return nil
}

// liftJump dispatches the three jump opcodes to their reconstruction
// algorithms (§4.7 "Jumps"). Every target is computed as pos + 1 + sBx: the
// displacement is relative to the instruction after the jump, matching the
// fetch-then-add convention real register VMs use for pc-relative jumps.
func (l *Lifter) liftJump(pos int, ins opcode.Instruction) error {
	switch ins.Op {
	case opcode.JMP:
		return l.liftPlainJump(pos, ins)
	case opcode.JMPIF:
		return l.liftJmpIf(pos, ins)
	case opcode.JMPNOT:
		return l.liftJmpNot(pos, ins)
	}
	return nil
}

func (l *Lifter) instructionAt(idx int) (opcode.Instruction, bool) {
	if idx < 0 || idx >= len(l.ir.Instructions) {
		return opcode.Instruction{}, false
	}
	return l.ir.Instructions[idx], true
}

// scanForTrailingJump walks forward from `from` for the first JMP — the
// unconditional jump to case_end that closes a when-arm's or while-loop
// body's flat instruction run.
func (l *Lifter) scanForTrailingJump(from int) (int, opcode.Instruction, bool) {
	for i := from; i < len(l.ir.Instructions); i++ {
		if l.ir.Instructions[i].Op == opcode.JMP {
			return i, l.ir.Instructions[i], true
		}
	}
	return 0, opcode.Instruction{}, false
}

// liftPlainJump handles JMP (§4.7): backward jumps are loop continues,
// forward jumps at the end of a while-scope are breaks, short forward
// jumps into padding are silently skipped, and everything else is first
// tried as a while/until header and only reported as an unexpected jump
// if that fails — matching "Loop reconstruction"'s explicit fallback.
func (l *Lifter) liftPlainJump(pos int, ins opcode.Instruction) error {
	target := pos + 1 + int(ins.SBx)

	if target <= pos {
		l.push(expr.Next())
		return nil
	}

	if target == l.feed.Hi() && l.ctx.IsWhileLoop() {
		l.push(expr.Break())
		return nil
	}

	if l.feed.BlankTail(target) {
		l.feed.Seek(target)
		return nil
	}

	if node, newEnd, ok, err := l.tryLoopHeader(pos, target); err != nil {
		return err
	} else if ok {
		l.push(node)
		l.feed.Seek(newEnd)
		return nil
	}

	count := target - (pos + 1)
	if count < 0 {
		count = 0
	}
	skipped := l.feed.GetJumpedOpcodes(count)
	l.push(expr.Raise(decomperr.RaiseStub("unexpected JMP")))
	for _, s := range skipped {
		l.push(expr.LineComment(s.String()))
	}
	l.feed.Seek(target)
	return nil
}

// tryLoopHeader implements "Loop reconstruction": from the jump target,
// scan forward for a JMPIF (while) or JMPNOT (until) whose own target
// lands back at the body start (pos+1, the loop head). The body is
// (pos+1, target); the condition is (target, terminator's position).
func (l *Lifter) tryLoopHeader(pos, target int) (*expr.Node, int, bool, error) {
	bodyLo, bodyHi := pos+1, target
	for q := target; q < l.feed.Hi(); q++ {
		term, ok := l.instructionAt(q)
		if !ok {
			break
		}
		if term.Op != opcode.JMPIF && term.Op != opcode.JMPNOT {
			continue
		}
		termTarget := q + 1 + int(term.SBx)
		if termTarget != bodyLo || termTarget >= q {
			continue
		}

		bodySub := l.child(bodyLo, bodyHi, pctx.KindWhileLoop, true)
		bodyNodes, err := bodySub.body()
		if err != nil {
			return nil, 0, false, err
		}
		condSub := l.child(target, q, pctx.KindNormal, true)
		if _, err := condSub.body(); err != nil {
			return nil, 0, false, err
		}
		cond := condSub.regs.ValueOrSymbol(int(term.A))
		if err := l.subFault(condSub, q); err != nil {
			return nil, 0, false, err
		}
		isUntil := term.Op == opcode.JMPNOT
		return expr.While(cond, bodyNodes, isUntil), q + 1, true, nil
	}
	return nil, 0, false, nil
}

// liftJmpIf handles JMPIF A sBx (§4.7): when-condition surfacing inside a
// case's condition sub-parse, else a case head, else a short-circuit ||.
func (l *Lifter) liftJmpIf(pos int, ins opcode.Instruction) error {
	target := pos + 1 + int(ins.SBx)
	a := int(ins.A)

	if l.ctx.IsWhenCond() && ins.SBx > 0 {
		if cb := l.ctx.Callback(); cb != nil {
			cb.SurfaceAt(l.useNamed(a), target)
			return nil
		}
	}

	if ins.SBx > 0 {
		if last, ok := l.instructionAt(target - 1); ok && last.Op == opcode.JMP && last.SBx > 0 {
			return l.liftCase(pos, ins, target, target-1, last)
		}
	}

	left := l.useNamed(a)
	sub := l.child(pos+1, target, pctx.KindNormal, l.ctx.HasMoreOutside())
	if _, err := sub.body(); err != nil {
		return err
	}
	right := sub.regs.ValueOrSymbol(a)
	if err := l.subFault(sub, target); err != nil {
		return err
	}
	l.setReg(a, expr.Logical("||", left, right))
	l.feed.Seek(target)
	return nil
}

// liftJmpNot handles JMPNOT A sBx (§4.7): if/else when the target holds a
// trailing forward JMP, else a short-circuit &&.
func (l *Lifter) liftJmpNot(pos int, ins opcode.Instruction) error {
	target := pos + 1 + int(ins.SBx)
	a := int(ins.A)

	if last, ok := l.instructionAt(target - 1); ok && last.Op == opcode.JMP && last.SBx > 0 {
		thenLo, thenHi := pos+1, target-1
		elseLo := target
		elseHi := target + int(last.SBx)

		thenSub := l.child(thenLo, thenHi, pctx.KindIf, true)
		thenBody, err := thenSub.body()
		if err != nil {
			return err
		}
		elseSub := l.child(elseLo, elseHi, pctx.KindIf, true)
		elseBody, err := elseSub.body()
		if err != nil {
			return err
		}
		cond := l.useNamed(a)
		l.push(expr.If(cond, thenBody, elseBody))
		l.feed.Seek(elseHi)
		return nil
	}

	left := l.useNamed(a)
	sub := l.child(pos+1, target, pctx.KindNormal, l.ctx.HasMoreOutside())
	if _, err := sub.body(); err != nil {
		return err
	}
	right := sub.regs.ValueOrSymbol(a)
	if err := l.subFault(sub, target); err != nil {
		return err
	}
	l.setReg(a, expr.Logical("&&", left, right))
	l.feed.Seek(target)
	return nil
}

// liftCase implements "Case reconstruction": the head JMPIF's own arm is
// already known (firstBodyStart); the rest are surfaced by re-parsing the
// condition-check span (pos+1, chainJmpPos) under a when-condition context,
// whose callback records each subsequent arm's condition and body target.
// Bodies lie consecutively after all condition checks, each closed by its
// own trailing JMP to case_end; case_end itself is only known once the
// first body's trailing JMP is found.
func (l *Lifter) liftCase(pos int, headIns opcode.Instruction, firstBodyStart, chainJmpPos int, chainJmp opcode.Instruction) error {
	condReg := int(headIns.A)

	cb := &pctx.Collector{}
	whenSub := l.childWhenCond(pos+1, chainJmpPos, cb)
	if _, err := whenSub.body(); err != nil {
		return err
	}

	conds := append([]*expr.Node{l.useNamed(condReg)}, cb.Exprs...)
	targets := append([]int{firstBodyStart}, cb.Targets...)

	elseStart := chainJmpPos + 1 + int(chainJmp.SBx)

	var arms []expr.WhenArm
	var caseEnd int
	for i, bodyStart := range targets {
		bodyEndPos, trailingJmp, ok := l.scanForTrailingJump(bodyStart)
		if !ok {
			return l.err(decomperr.UnexpectedJump, "case arm body at instruction %d has no trailing JMP to case_end", bodyStart)
		}
		sub := l.child(bodyStart, bodyEndPos, pctx.KindNormal, true)
		body, err := sub.body()
		if err != nil {
			return err
		}
		arms = append(arms, expr.WhenArm{Conds: []*expr.Node{conds[i]}, Body: body})
		caseEnd = bodyEndPos + 1 + int(trailingJmp.SBx)
	}

	var elseBody []*expr.Node
	if elseStart < caseEnd {
		elseSub := l.child(elseStart, caseEnd, pctx.KindNormal, true)
		var err error
		elseBody, err = elseSub.body()
		if err != nil {
			return err
		}
	}

	header, liftedArms := liftCaseHeader(arms)
	l.push(expr.Case(header, liftedArms, elseBody))
	l.feed.Seek(caseEnd)
	return nil
}

// liftCaseHeader implements "when every when-condition is of the form
// X === v with the same X, lift X to a case X header" (§4.3 print rules).
func liftCaseHeader(arms []expr.WhenArm) (*expr.Node, []expr.WhenArm) {
	var x *expr.Node
	for _, a := range arms {
		for _, c := range a.Conds {
			if c.Kind != expr.KindTwoOp || c.Op != "===" {
				return nil, arms
			}
			if x == nil {
				x = c.Left
			} else if !sameExprText(x, c.Left) {
				return nil, arms
			}
		}
	}
	if x == nil {
		return nil, arms
	}

	out := make([]expr.WhenArm, len(arms))
	for i, a := range arms {
		newConds := make([]*expr.Node, len(a.Conds))
		for j, c := range a.Conds {
			newConds[j] = c.Right
		}
		out[i] = expr.WhenArm{Conds: newConds, Body: a.Body}
	}
	return x, out
}

func sameExprText(a, b *expr.Node) bool {
	p := expr.NewPrinter(true)
	return p.RenderProgram([]*expr.Node{a}) == p.RenderProgram([]*expr.Node{b})
}
