package lifter

import (
	"ritedecomp/internal/decomperr"
	"ritedecomp/internal/expr"
)

// resolveUpvar implements GETUPVAR's "walk the parent chain" rule (§4.7):
// the first enclosing scope whose lvar map contains register reg provides
// the variable. A miss is fatal (§7 "Missing upvalue").
func (l *Lifter) resolveUpvar(reg int) (*expr.Node, error) {
	for p := l.parent; p != nil; p = p.parent {
		if name, ok := p.regs.Lvar(reg); ok {
			return expr.Symbol(name), nil
		}
	}
	return nil, l.err(decomperr.MissingUpvalue, "no enclosing scope binds upvalue register %d", reg)
}

// assignUpvar implements SETUPVAR: the assignment target is the name bound
// in the owning enclosing scope, not a name local to this scope (§4.7).
func (l *Lifter) assignUpvar(reg int, val *expr.Node) error {
	for p := l.parent; p != nil; p = p.parent {
		if name, ok := p.regs.Lvar(reg); ok {
			l.push(expr.Assign(expr.Symbol(name), val))
			return nil
		}
	}
	return l.err(decomperr.MissingUpvalue, "no enclosing scope binds upvalue register %d", reg)
}
