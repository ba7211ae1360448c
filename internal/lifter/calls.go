package lifter

import (
	"ritedecomp/internal/expr"
	"ritedecomp/internal/opcode"
)

// liftSend handles SEND/FSEND (plain call) and SENDB (call with a trailing
// block register), per §4.7 "Calls".
func (l *Lifter) liftSend(ins opcode.Instruction, withBlock bool) error {
	a := int(ins.A)
	receiver := l.use(a)
	sym := l.sym(int(ins.B))
	argc := int(ins.C)

	var args []*expr.Node
	for i := 0; i < argc; i++ {
		args = append(args, l.use(a+1+i))
	}

	source := receiver
	switch {
	case receiver.Kind == expr.KindBlkPush:
		// "if source is a blk-push placeholder with the same register,
		// rewrite symbol to yield and drop source" (§4.7).
		sym = "yield"
		source = nil
	case receiver.Kind == expr.KindSelf && l.curClass == expr.MainClass:
		// "Main-class source object" suppression (§4.2, §4.7).
		source = nil
	}

	var result *expr.Node
	if withBlock {
		blockReg := a + 1 + argc
		block := l.use(blockReg)
		if block.Kind == expr.KindFor && sym == "each" {
			// The lambda materialized a for-loop marker (§4.7
			// for-loops); this SENDB is the desugared `coll.each {
			// |v| ... }` — collapse both into one for-loop node whose
			// source is this call's own receiver.
			result = expr.For(block.Params, source, block.Body)
			l.setReg(a, result)
			return nil
		}
		result = expr.CallBlock(source, sym, args, block)
	} else {
		result = expr.Call(source, sym, args)
	}
	l.setReg(a, result)
	return nil
}

// liftSuper handles SUPER A B C: symbol is always "super"; C == 0x7F means
// the call forwards no explicit args (§4.7).
func (l *Lifter) liftSuper(ins opcode.Instruction) error {
	a := int(ins.A)
	argc := int(ins.C)
	var args []*expr.Node
	if argc != 0x7f {
		for i := 0; i < argc; i++ {
			args = append(args, l.use(a+1+i))
		}
	}
	l.setReg(a, expr.Call(nil, "super", args))
	return nil
}
