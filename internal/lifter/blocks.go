package lifter

import (
	"fmt"

	"ritedecomp/internal/decomperr"
	"ritedecomp/internal/expr"
	"ritedecomp/internal/irep"
	"ritedecomp/internal/opcode"
	"ritedecomp/internal/pctx"
)

// liftLambda handles LAMBDA (§4.7 "Blocks and control flow" / "Lambdas,
// methods — argument parsing" / "For-loops"): parse the referenced child
// irep as a lambda body, recognizing the anonymous for-loop argspec first
// and the LAMBDA+METHOD combo second.
func (l *Lifter) liftLambda(pos int, ins opcode.Instruction) error {
	childIdx := int(ins.Bz)
	child, ok := l.ir.Child(childIdx)
	if !ok {
		return l.err(decomperr.MalformedContainer, "LAMBDA references out-of-range child irep %d", childIdx)
	}
	if len(child.Instructions) == 0 || child.Instructions[0].Op != opcode.ENTER {
		return l.err(decomperr.UnknownOpcode, "lambda child irep missing ENTER header")
	}
	spec := child.Instructions[0].Spec

	if spec.IsForLoopSpec() {
		node, err := l.liftForLoopBody(child)
		if err != nil {
			return err
		}
		l.setReg(int(ins.A), node)
		return nil
	}

	params, bodyStart, err := l.parseParams(child, spec)
	if err != nil {
		return err
	}

	sub := l.subIrepRange(child, bodyStart, len(child.Instructions), pctx.KindMethod, l.curClass)
	body, err := sub.body()
	if err != nil {
		return err
	}

	// "If the immediately following opcode is METHOD, consume both and
	// emit a method definition with the lambda's args/body" (§4.7).
	if next, ok := l.feed.Cur(); ok && next.Op == opcode.METHOD {
		l.feed.Next()
		name := l.sym(int(next.B))
		l.push(expr.Method(l.curClass, name, params, body))
		return nil
	}

	l.setReg(int(ins.A), expr.Lambda(params, body))
	return nil
}

// parseParams implements the ENTER(Aspec)-driven argument list described
// in §4.7: required args in lvar order, then optional args whose default
// value lives in a JMP/JMP-delimited sub-range, then *rest and &block.
func (l *Lifter) parseParams(child *irep.Irep, spec opcode.ArgSpec) ([]*expr.Node, int, error) {
	var params []*expr.Node
	reg := 1 // register 0 is self; formal args start at 1

	lvarName := func(r int) string {
		if n, ok := child.Lvars[r]; ok {
			return n
		}
		return fmt.Sprintf("a%d", r)
	}

	for i := 0; i < int(spec.Req); i++ {
		params = append(params, expr.Arg(lvarName(reg), nil, ""))
		reg++
	}

	pos := 1 // cursor into child.Instructions, just past ENTER
	for i := 0; i < int(spec.Opt); i++ {
		if pos+1 >= len(child.Instructions) {
			break
		}
		jmp1 := child.Instructions[pos]
		jmp2 := child.Instructions[pos+1]
		lo := pos + 1 + int(jmp1.SBx)
		hi := pos + 2 + int(jmp2.SBx)
		sub := l.subIrepRange(child, lo, hi, pctx.KindNormal, l.curClass)
		if _, err := sub.body(); err != nil {
			return nil, 0, err
		}
		def := sub.regs.Value(reg)
		if err := l.subFault(sub, lo); err != nil {
			return nil, 0, err
		}
		params = append(params, expr.Arg(lvarName(reg), def, ""))
		reg++
		pos = hi
	}

	if spec.Rest {
		params = append(params, expr.Arg(lvarName(reg), nil, "*"))
		reg++
	}
	if spec.Block {
		params = append(params, expr.Arg(lvarName(reg), nil, "&"))
	}

	return params, pos, nil
}

// liftForLoopBody builds the for-loop's Vars/Body pair from a for-desugared
// lambda's child irep; the collection being iterated is not known here —
// it is filled in by liftSend once it sees this marker as a SENDB block
// for an "each" call (§4.7 for-loops).
func (l *Lifter) liftForLoopBody(child *irep.Irep) (*expr.Node, error) {
	vars, bodyStart := l.forLoopVars(child)
	sub := l.subIrepRange(child, bodyStart, len(child.Instructions), pctx.KindForLoop, l.curClass)
	body, err := sub.body()
	if err != nil {
		return nil, err
	}
	varNodes := make([]*expr.Node, len(vars))
	for i, v := range vars {
		varNodes[i] = expr.Arg(v, nil, "")
	}
	return expr.For(varNodes, nil, body), nil
}

// forLoopVars scans the for-loop lambda body for the destructured
// AREF/SETUPVAR pairs or the single-var SETUPVAR sequence that bind the
// iteration variables (§4.7), returning their names and the instruction
// index where the real loop body begins. SETUPVAR's B operand is a
// register in the *enclosing* scope ("for x in ..." binds x outside the
// desugared block-lambda, same as any other upvalue), so the name is
// resolved by walking l's own regfile and then its parent chain, the way
// resolveUpvar/assignUpvar do in upvalues.go.
func (l *Lifter) forLoopVars(child *irep.Irep) ([]string, int) {
	var vars []string
	i := 1 // just past ENTER
	for i < len(child.Instructions) {
		ins := child.Instructions[i]
		switch {
		case ins.Op == opcode.SETUPVAR:
			vars = append(vars, l.forVarName(int(ins.B)))
			i++
		case ins.Op == opcode.AREF && i+1 < len(child.Instructions) && child.Instructions[i+1].Op == opcode.SETUPVAR:
			nxt := child.Instructions[i+1]
			vars = append(vars, l.forVarName(int(nxt.B)))
			i += 2
		default:
			if len(vars) == 0 {
				vars = []string{"v"}
				i = 1
			}
			return vars, i
		}
	}
	if len(vars) == 0 {
		vars = []string{"v"}
		i = 1
	}
	return vars, i
}

// forVarName resolves a for-loop variable's upvalue register to its name
// by walking outward from l (the scope that owns the enclosing `for`)
// through the parent chain, falling back to a placeholder only if no
// enclosing scope binds the register at all.
func (l *Lifter) forVarName(upvarSlot int) string {
	for p := l; p != nil; p = p.parent {
		if name, ok := p.regs.Lvar(upvarSlot); ok {
			return name
		}
	}
	return fmt.Sprintf("v%d", upvarSlot)
}

// liftClass handles CLASS A B (§4.7 "Classes and modules"): B names the
// class via the symbol table, A+1's current value is the parent (nil →
// none).
func (l *Lifter) liftClass(ins opcode.Instruction) error {
	name := l.sym(int(ins.B))
	parent := l.use(int(ins.A) + 1)
	if parent.Kind == expr.KindNil {
		parent = nil
	}
	l.setReg(int(ins.A), expr.ClassSym(name, parent, false))
	return nil
}

// liftExec handles EXEC A Bx: execute the Bx-th child irep with the
// current class/module (A's value) as the new curClass, collecting its
// expressions as the class/module body (§4.7).
func (l *Lifter) liftExec(ins opcode.Instruction) error {
	childIdx := int(ins.Bx)
	child, ok := l.ir.Child(childIdx)
	if !ok {
		return l.err(decomperr.MalformedContainer, "EXEC references out-of-range child irep %d", childIdx)
	}
	classSym := l.use(int(ins.A))
	sub := l.childIrep(child, pctx.KindNormal, classSym)
	body, err := sub.body()
	if err != nil {
		return err
	}
	if classSym.Kind == expr.KindModuleSym {
		l.push(expr.Module(classSym, body))
		return nil
	}
	l.push(expr.Class(classSym, body))
	return nil
}
