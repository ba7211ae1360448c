// Package codegen implements the code generator (C6): an append-only buffer
// of expressions emitted during one irep traversal, with a late prune pass
// that drops entries that turned out to be pure intermediates consumed by a
// later expression, then renders the survivors to text via internal/expr.
package codegen

import (
	"ritedecomp/internal/expr"
)

// Buffer is the ordered, append-only expression list for one irep (or
// sub-parse) traversal.
type Buffer struct {
	entries []*expr.Node
}

// New returns an empty buffer.
func New() *Buffer { return &Buffer{} }

// Push appends an expression in emission order. Emission order mirrors
// instruction index in the originating irep (§8 property 4), except where a
// sub-parse has already folded a whole range into one structured node
// (case/if/while/lambda/class) before it reaches Push.
func (b *Buffer) Push(n *expr.Node) {
	if n == nil {
		return
	}
	b.entries = append(b.entries, n)
}

// MarkUsed flags n as referenced by a later expression, which the prune
// pass consults alongside CanBeOptimizedAway.
func MarkUsed(n *expr.Node) {
	if n != nil {
		n.HasUsages = true
	}
}

// Body returns the pruned, ordered node list ready to hand to a structured
// parent (if/while/case/lambda/method/class body) or to the top-level
// printer — entries with CanBeOptimizedAway && HasUsages were consumed into
// a parent expression and are dropped (§4.6).
func (b *Buffer) Body(noComments bool) []*expr.Node {
	out := make([]*expr.Node, 0, len(b.entries))
	for _, n := range b.entries {
		if n.CanBeOptimizedAway && n.HasUsages {
			continue
		}
		if noComments && n.Kind == expr.KindLineComment {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Render prunes the buffer and renders it to source text via p.
func (b *Buffer) Render(p *expr.Printer) string {
	return p.RenderProgram(b.Body(p.NoComments))
}

// Len reports the number of entries pushed so far (including ones the next
// prune pass would drop).
func (b *Buffer) Len() int { return len(b.entries) }
