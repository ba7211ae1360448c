package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Printer renders the Expression IR to surface syntax. It is the part of
// C2 described in spec.md §4.2; C6 (internal/codegen) owns the outer
// ordered buffer of top-level pushed expressions and hands the surviving
// entries to RenderProgram in one call.
type Printer struct {
	// NoComments drops KindLineComment nodes from rendering (teacher's
	// code generator supports the equivalent "comments disabled" mode).
	NoComments bool
}

func NewPrinter(noComments bool) *Printer { return &Printer{NoComments: noComments} }

const indentUnit = "  "

func indentOf(n int) string { return strings.Repeat(indentUnit, n) }

// RenderProgram renders a top-level body: one rendered statement per line,
// no leading/trailing blank lines.
func (p *Printer) RenderProgram(body []*Node) string {
	return strings.TrimRight(p.renderBody(body, 0), "\n")
}

func (p *Printer) renderBody(nodes []*Node, indent int) string {
	var sb strings.Builder
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.Kind == KindLineComment && p.NoComments {
			continue
		}
		sb.WriteString(p.renderStmt(n, indent))
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderStmt renders a node in statement position: control-flow and
// definition constructs get their own multi-line shape; everything else
// falls back to value-expression rendering.
func (p *Printer) renderStmt(n *Node, indent int) string {
	ind := indentOf(indent)
	switch n.Kind {
	case KindIf:
		var sb strings.Builder
		sb.WriteString(ind)
		sb.WriteString("if ")
		sb.WriteString(p.renderExpr(n.Cond, 99))
		sb.WriteString("\n")
		sb.WriteString(p.renderBody(n.Then, indent+1))
		if len(n.Else) > 0 {
			sb.WriteString(ind)
			sb.WriteString("else\n")
			sb.WriteString(p.renderBody(n.Else, indent+1))
		}
		sb.WriteString(ind)
		sb.WriteString("end")
		return sb.String()

	case KindWhile:
		kw := "while"
		if n.IsUntil {
			kw = "until"
		}
		var sb strings.Builder
		sb.WriteString(ind)
		sb.WriteString(kw)
		sb.WriteString(" ")
		sb.WriteString(p.renderExpr(n.Cond, 99))
		sb.WriteString("\n")
		sb.WriteString(p.renderBody(n.Body, indent+1))
		sb.WriteString(ind)
		sb.WriteString("end")
		return sb.String()

	case KindCase:
		var sb strings.Builder
		sb.WriteString(ind)
		sb.WriteString("case")
		if n.Header != nil {
			sb.WriteString(" ")
			sb.WriteString(p.renderExpr(n.Header, 99))
		}
		sb.WriteString("\n")
		for _, arm := range n.Arms {
			sb.WriteString(ind)
			sb.WriteString("when ")
			parts := make([]string, len(arm.Conds))
			for i, c := range arm.Conds {
				parts[i] = p.renderExpr(c, 99)
			}
			sb.WriteString(strings.Join(parts, ", "))
			sb.WriteString("\n")
			sb.WriteString(p.renderBody(arm.Body, indent+1))
		}
		if len(n.Else) > 0 {
			sb.WriteString(ind)
			sb.WriteString("else\n")
			sb.WriteString(p.renderBody(n.Else, indent+1))
		}
		sb.WriteString(ind)
		sb.WriteString("end")
		return sb.String()

	case KindFor:
		var sb strings.Builder
		sb.WriteString(ind)
		sb.WriteString("for ")
		names := make([]string, len(n.Params))
		for i, v := range n.Params {
			names[i] = v.Str
		}
		sb.WriteString(strings.Join(names, ", "))
		sb.WriteString(" in ")
		sb.WriteString(p.renderExpr(n.Source, 99))
		sb.WriteString("\n")
		sb.WriteString(p.renderBody(n.Body, indent+1))
		sb.WriteString(ind)
		sb.WriteString("end")
		return sb.String()

	case KindMethod:
		var sb strings.Builder
		sb.WriteString(ind)
		sb.WriteString("def ")
		sb.WriteString(n.Name)
		sb.WriteString(p.renderParamList(n.Params))
		sb.WriteString("\n")
		sb.WriteString(p.renderBody(n.Body, indent+1))
		sb.WriteString(ind)
		sb.WriteString("end")
		return sb.String()

	case KindClass:
		var sb strings.Builder
		sb.WriteString(ind)
		sym := n.Target
		if sym != nil && sym.Singleton {
			sb.WriteString("class << self")
		} else {
			sb.WriteString("class ")
			if sym != nil {
				sb.WriteString(sym.Str)
				if sym.Parent != nil && sym.Parent.Kind != KindNil {
					sb.WriteString(" < ")
					sb.WriteString(p.renderExpr(sym.Parent, 99))
				}
			}
		}
		sb.WriteString("\n")
		sb.WriteString(p.renderBody(n.Body, indent+1))
		sb.WriteString(ind)
		sb.WriteString("end")
		return sb.String()

	case KindModule:
		var sb strings.Builder
		sb.WriteString(ind)
		sb.WriteString("module ")
		if n.Target != nil {
			sb.WriteString(n.Target.Str)
		}
		sb.WriteString("\n")
		sb.WriteString(p.renderBody(n.Body, indent+1))
		sb.WriteString(ind)
		sb.WriteString("end")
		return sb.String()

	case KindReturn:
		if n.Value == nil || n.Value.Kind == KindNil {
			return ind + "return"
		}
		return ind + "return " + p.renderExpr(n.Value, 99)

	case KindBreak:
		return ind + "break"

	case KindNext:
		return ind + "next"

	case KindLineComment:
		return ind + "# " + n.Str

	case KindRaise:
		return ind + fmt.Sprintf("raise %q", n.Str)

	default:
		return ind + p.renderExpr(n, 99)
	}
}

func (p *Printer) renderParamList(params []*Node) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, len(params))
	for i, a := range params {
		parts[i] = p.renderParam(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (p *Printer) renderParam(a *Node) string {
	s := a.Prefix + a.Str
	if a.Default != nil {
		s += " = " + p.renderExpr(a.Default, PrioAssign)
	}
	return s
}

// renderExpr renders a node in value position; parentPriority drives
// automatic parenthesization for two-op children (§4.2 / §8 property 6).
func (p *Printer) renderExpr(n *Node, parentPriority int) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindNil:
		return "nil"
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	case KindSelf:
		return "self"
	case KindInt:
		return strconv.FormatInt(n.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(n.Float, 'g', -1, 64)
	case KindString:
		return strconv.Quote(n.Str)
	case KindSymbol:
		return n.Str
	case KindSymLit:
		return ":" + n.Str
	case KindClassSym, KindModuleSym:
		return n.Str
	case KindMConst:
		if n.Source != nil {
			return p.renderExpr(n.Source, 0) + "::" + n.Str
		}
		return n.Str

	case KindTwoOp, KindLogical:
		s := p.renderExpr(n.Left, n.Priority) + " " + n.Op + " " + p.renderExpr(n.Right, n.Priority)
		if n.Priority > parentPriority {
			return "(" + s + ")"
		}
		return s

	case KindAssign:
		s := p.renderExpr(n.Target, 0) + " = " + p.renderExpr(n.Value, PrioAssign)
		if PrioAssign > parentPriority {
			return "(" + s + ")"
		}
		return s

	case KindArray:
		return p.renderArray(n.Elems)

	case KindArrayConcat:
		return p.renderExpr(n.Base, 99) + " + " + p.renderExpr(n.Value, 99)

	case KindArrayPush:
		return p.renderExpr(n.Base, 99) + " << " + p.renderExpr(n.Value, 99)

	case KindArrayRef:
		return p.renderExpr(n.Base, 99) + "[" + p.renderExpr(n.Index, 99) + "]"

	case KindStringConcat:
		return p.renderStringConcat(n)

	case KindHash:
		return p.renderHash(n)

	case KindRange:
		op := "..."
		if n.Inclusive {
			op = ".."
		}
		s := p.renderExpr(n.Left, n.Priority) + op + p.renderExpr(n.Right, n.Priority)
		if n.Priority > parentPriority {
			return "(" + s + ")"
		}
		return s

	case KindCall:
		return p.renderCall(n, parentPriority)

	case KindCallBlock:
		return p.renderCallBlock(n)

	case KindLambda:
		return p.renderLambda(n)

	case KindBlkPush:
		return "<block>"

	case KindBlock:
		parts := make([]string, len(n.Body))
		for i, s := range n.Body {
			parts[i] = p.renderExpr(s, 99)
		}
		return strings.Join(parts, "; ")

	case KindRaise:
		return fmt.Sprintf("raise %q", n.Str)

	default:
		return p.renderStmt(n, 0)
	}
}

func (p *Printer) renderArray(elems []*Node) string {
	parts := make([]string, len(elems))
	total := 0
	for i, e := range elems {
		parts[i] = p.renderExpr(e, 99)
		total += len(parts[i])
	}
	if total <= 80 {
		return "[" + strings.Join(parts, ", ") + "]"
	}
	var sb strings.Builder
	sb.WriteString("[\n")
	for _, part := range parts {
		sb.WriteString(indentUnit)
		sb.WriteString(part)
		sb.WriteString(",\n")
	}
	sb.WriteString("]")
	return sb.String()
}

func (p *Printer) renderStringConcat(n *Node) string {
	var sb strings.Builder
	sb.WriteString("\"")
	for _, part := range n.Elems {
		if part.Kind == KindString {
			sb.WriteString(escapeInterpolated(part.Str))
		} else {
			sb.WriteString("#{")
			sb.WriteString(p.renderExpr(part, 99))
			sb.WriteString("}")
		}
	}
	sb.WriteString("\"")
	return sb.String()
}

func escapeInterpolated(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// hashKeyText renders a hash key, quoting numeric-leading symbol keys since
// `1foo:` is not valid source syntax (§4.2).
func (p *Printer) hashKeyText(k *Node) string {
	if k.Kind == KindSymLit && len(k.Str) > 0 && k.Str[0] >= '0' && k.Str[0] <= '9' {
		return strconv.Quote(k.Str)
	}
	return p.renderExpr(k, 99)
}

func (p *Printer) renderHash(n *Node) string {
	if len(n.Keys) == 1 {
		return "{ " + p.hashKeyText(n.Keys[0]) + " => " + p.renderExpr(n.Vals[0], 99) + " }"
	}
	var sb strings.Builder
	sb.WriteString("{\n")
	for i, k := range n.Keys {
		sb.WriteString(indentUnit)
		sb.WriteString(p.hashKeyText(k))
		sb.WriteString(" => ")
		sb.WriteString(p.renderExpr(n.Vals[i], 99))
		sb.WriteString(",\n")
	}
	sb.WriteString("}")
	return sb.String()
}

func (p *Printer) renderCall(n *Node, parentPriority int) string {
	if n.IsOperatorCall {
		if len(n.Args) == 1 {
			s := p.renderExpr(n.Source, n.Priority) + " " + n.Op + " " + p.renderExpr(n.Args[0], n.Priority)
			if n.Priority > parentPriority {
				return "(" + s + ")"
			}
			return s
		}
		s := n.Op + p.renderExpr(n.Source, n.Priority)
		if n.Priority > parentPriority {
			return "(" + s + ")"
		}
		return s
	}

	var sb strings.Builder
	if n.Source != nil && n.Source != MainClass {
		sb.WriteString(p.renderExpr(n.Source, 0))
		sb.WriteString(".")
	}
	sb.WriteString(n.Str)
	if len(n.Args) > 0 {
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = p.renderExpr(a, 99)
		}
		sb.WriteString("(")
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString(")")
	}
	return sb.String()
}

func (p *Printer) renderCallBlock(n *Node) string {
	var sb strings.Builder
	if n.Source != nil && n.Source != MainClass {
		sb.WriteString(p.renderExpr(n.Source, 0))
		sb.WriteString(".")
	}
	sb.WriteString(n.Str)
	if len(n.Args) > 0 {
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = p.renderExpr(a, 99)
		}
		sb.WriteString("(")
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString(")")
	}
	sb.WriteString(" ")
	sb.WriteString(p.renderLambda(n.Block))
	return sb.String()
}

func (p *Printer) renderLambda(n *Node) string {
	if n == nil {
		return "{ }"
	}
	paramStr := ""
	if len(n.Params) > 0 {
		parts := make([]string, len(n.Params))
		for i, a := range n.Params {
			parts[i] = p.renderParam(a)
		}
		paramStr = "|" + strings.Join(parts, ", ") + "| "
	}
	if len(n.Body) <= 1 {
		body := ""
		if len(n.Body) == 1 {
			body = p.renderExpr(n.Body[0], 99)
		}
		return "{ " + paramStr + body + " }"
	}
	var sb strings.Builder
	sb.WriteString("{ ")
	sb.WriteString(paramStr)
	sb.WriteString("\n")
	sb.WriteString(p.renderBody(n.Body, 1))
	sb.WriteString("}")
	return sb.String()
}
