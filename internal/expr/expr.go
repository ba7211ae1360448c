// Package expr holds the lifter's expression IR: a tagged tree of surface
// source constructs (literals, calls, control flow, class/method bodies)
// that a deterministic pretty-printer renders to text. Nodes form a DAG —
// the same node may be referenced as both an lvalue's target and a later
// rvalue — never a cycle, so the arena-style tagged struct below carries no
// child-of-child back-reference, only forward pointers.
package expr

// Kind tags which fields of a Node are meaningful.
type Kind int

const (
	KindNil Kind = iota
	KindTrue
	KindFalse
	KindSelf
	KindInt
	KindFloat
	KindString
	KindSymbol    // bare identifier: a local var, global, ivar, cvar or const read
	KindSymLit    // :foo
	KindClassSym  // class name, optionally with Parent and Singleton
	KindModuleSym // module name
	KindMConst    // A::B
	KindTwoOp     // raw arithmetic/comparison produced directly by an opcode
	KindLogical   // short-circuit && / ||
	KindAssign    // target = value
	KindArray
	KindArrayConcat // ARYCAT: base + other
	KindArrayPush   // ARYPUSH: base << value
	KindArrayRef    // AREF: base[index]
	KindStringConcat
	KindHash
	KindRange
	KindCall      // SEND/FSEND/SUPER style method call
	KindCallBlock // SENDB: call with an attached block
	KindArg       // formal parameter: name (+ default, "*"/"&" prefix)
	KindLambda
	KindMethod
	KindBlock // an ordered sequence of expressions (a body)
	KindClass
	KindModule
	KindIf
	KindWhile
	KindCase
	KindReturn
	KindBreak
	KindNext
	KindLineComment
	KindRaise   // injected diagnostic stub (§7)
	KindBlkPush // placeholder marking "the block argument of the enclosing call"
	KindFor     // for v[, v2...] in source / body / end; desugared from coll.each { |v| ... }
)

// WhenArm is one `when cond1, cond2 ... / body` arm of a Case node (or the
// trailing elseless/else body when Conds is empty).
type WhenArm struct {
	Conds []*Node
	Body  []*Node
}

// Node is every Expression IR variant. Every node carries Register (the VM
// register it materialized in, or 0), HasUsages (set when another node
// references it) and CanBeOptimizedAway (true for pure value expressions
// that dominate no output); the code generator's render pass drops entries
// where both hold.
type Node struct {
	Kind               Kind
	Register           int
	HasUsages          bool
	CanBeOptimizedAway bool

	// Leaf payloads.
	Str   string // string/symbol/class/method name, comment/raise text
	Int   int64
	Float float64

	// Two-op / logical.
	Left, Right *Node
	Op          string
	Priority    int

	// Call / call-with-block.
	Source         *Node // receiver; nil or MainClass sentinel means implicit self
	Args           []*Node
	Block          *Node
	IsOperatorCall bool

	// Array / string-concat / hash.
	Elems []*Node
	Keys  []*Node
	Vals  []*Node

	// Range.
	Inclusive bool

	// Assignment / array ops.
	Target *Node
	Value  *Node
	Base   *Node
	Index  *Node

	// Class / module / method / lambda.
	Parent    *Node
	Singleton bool
	Name      string
	Params    []*Node
	Body      []*Node

	// Arg node only.
	Default *Node
	Prefix  string // "", "*", "&"

	// If / while / until / case.
	Cond    *Node
	Then    []*Node
	Else    []*Node
	IsUntil bool
	Header  *Node // case X header; nil for condition-less case
	Arms    []WhenArm
}

// MainClass is the sentinel current-class value that signals top-level code;
// call rendering suppresses a `self.` prefix when Source is this sentinel
// (§4.2 "Main-class source object").
var MainClass = &Node{Kind: KindSelf, Str: "main"}

func leaf(k Kind) *Node { return &Node{Kind: k} }

func Nil() *Node   { return leaf(KindNil) }
func True() *Node  { return leaf(KindTrue) }
func False() *Node { return leaf(KindFalse) }
func Self() *Node  { return leaf(KindSelf) }

func Int(v int64) *Node      { return &Node{Kind: KindInt, Int: v} }
func Float(v float64) *Node  { return &Node{Kind: KindFloat, Float: v} }
func String(v string) *Node  { return &Node{Kind: KindString, Str: v} }
func Symbol(name string) *Node { return &Node{Kind: KindSymbol, Str: name} }
func SymLit(name string) *Node { return &Node{Kind: KindSymLit, Str: name} }

func ClassSym(name string, parent *Node, singleton bool) *Node {
	return &Node{Kind: KindClassSym, Str: name, Parent: parent, Singleton: singleton}
}

func ModuleSym(name string) *Node { return &Node{Kind: KindModuleSym, Str: name} }

func MConst(scope *Node, name string) *Node {
	return &Node{Kind: KindMConst, Source: scope, Str: name}
}

// TwoOp priority table (§4.2): 0 highest … 15 lowest.
const (
	PrioUnaryBang  = 0
	PrioPow        = 1
	PrioUnaryMinus = 2
	PrioMulDivMod  = 3
	PrioAddSub     = 4
	PrioShift      = 5
	PrioBitAnd     = 6
	PrioBitOrXor   = 7
	PrioCompare    = 8
	PrioEquality   = 9
	PrioAnd        = 10
	PrioOr         = 11
	PrioRange      = 12
	PrioTernary    = 13
	PrioAssign     = 15
)

var binaryPriority = map[string]int{
	"**": PrioPow,
	"*": PrioMulDivMod, "/": PrioMulDivMod, "%": PrioMulDivMod,
	"+": PrioAddSub, "-": PrioAddSub,
	"<<": PrioShift, ">>": PrioShift,
	"&": PrioBitAnd,
	"|": PrioBitOrXor, "^": PrioBitOrXor,
	"<": PrioCompare, "<=": PrioCompare, ">": PrioCompare, ">=": PrioCompare,
	"==": PrioEquality, "!=": PrioEquality, "=~": PrioEquality, "===": PrioEquality, "<=>": PrioEquality,
	"&&": PrioAnd,
	"||": PrioOr,
	"..": PrioRange, "...": PrioRange,
}

var unaryPriority = map[string]int{
	"!": PrioUnaryBang, "~": PrioUnaryBang, "+@": PrioUnaryBang,
	"-@": PrioUnaryMinus,
}

// BinaryPriority reports the priority of a binary operator token and
// whether it is recognized at all.
func BinaryPriority(op string) (int, bool) {
	p, ok := binaryPriority[op]
	return p, ok
}

// UnaryPriority reports the priority of a unary operator token (its symbol
// form, e.g. "-@") and whether it is recognized at all.
func UnaryPriority(op string) (int, bool) {
	p, ok := unaryPriority[op]
	return p, ok
}

// TwoOp builds a raw binary-operator node (produced directly by an
// arithmetic/comparison opcode, as opposed to a SEND that happens to match
// an operator symbol).
func TwoOp(op string, left, right *Node) *Node {
	prio, _ := BinaryPriority(op)
	return &Node{Kind: KindTwoOp, Op: op, Left: left, Right: right, Priority: prio}
}

func Logical(op string, left, right *Node) *Node {
	prio, _ := BinaryPriority(op)
	return &Node{Kind: KindLogical, Op: op, Left: left, Right: right, Priority: prio}
}

func Assign(target, value *Node) *Node {
	return &Node{Kind: KindAssign, Target: target, Value: value, Priority: PrioAssign}
}

func Array(elems []*Node) *Node { return &Node{Kind: KindArray, Elems: elems} }

func ArrayConcat(base, other *Node) *Node {
	return &Node{Kind: KindArrayConcat, Base: base, Value: other}
}

func ArrayPush(base, value *Node) *Node {
	return &Node{Kind: KindArrayPush, Base: base, Value: value}
}

func ArrayRef(base, index *Node) *Node {
	return &Node{Kind: KindArrayRef, Base: base, Index: index}
}

// AppendStringPart flattens left-associated STRCAT chains into one ordered
// list of interpolation parts (§4.2 "String concatenation").
func AppendStringPart(parts []*Node, part *Node) []*Node {
	if part.Kind == KindStringConcat {
		return append(append([]*Node{}, parts...), part.Elems...)
	}
	return append(parts, part)
}

func StringConcat(parts []*Node) *Node { return &Node{Kind: KindStringConcat, Elems: parts} }

func Hash(keys, vals []*Node) *Node { return &Node{Kind: KindHash, Keys: keys, Vals: vals} }

func Range(left, right *Node, inclusive bool) *Node {
	return &Node{Kind: KindRange, Left: left, Right: right, Inclusive: inclusive, Priority: PrioRange}
}

// knownOperatorArity classifies a method symbol as a binary or unary
// operator (or neither), driving §4.2's "method-call as operator" rule.
func knownOperatorArity(sym string) (binary bool, unary bool, rendered string) {
	if _, ok := binaryPriority[sym]; ok {
		return true, false, sym
	}
	stripped := sym
	if len(sym) > 0 && sym[len(sym)-1] == '@' {
		stripped = sym[:len(sym)-1]
	}
	if _, ok := unaryPriority[sym]; ok {
		return false, true, stripped
	}
	if sym == "!" || sym == "~" {
		return false, true, stripped
	}
	return false, false, sym
}

// Call builds a SEND-shaped method call, auto-detecting the operator-call
// form per §4.2.
func Call(source *Node, sym string, args []*Node) *Node {
	n := &Node{Kind: KindCall, Source: source, Str: sym, Args: args}
	binary, unary, rendered := knownOperatorArity(sym)
	switch {
	case binary && len(args) == 1:
		n.IsOperatorCall = true
		n.Op = rendered
		n.Priority, _ = BinaryPriority(rendered)
	case unary && len(args) == 0:
		n.IsOperatorCall = true
		n.Op = rendered
		if p, ok := unaryPriority[sym]; ok {
			n.Priority = p
		} else {
			n.Priority = PrioUnaryBang
		}
	}
	return n
}

func CallBlock(source *Node, sym string, args []*Node, block *Node) *Node {
	call := Call(source, sym, args)
	return &Node{Kind: KindCallBlock, Source: source, Str: sym, Args: args, Block: block, Priority: call.Priority}
}

func Arg(name string, def *Node, prefix string) *Node {
	return &Node{Kind: KindArg, Str: name, Default: def, Prefix: prefix}
}

func Lambda(params []*Node, body []*Node) *Node {
	return &Node{Kind: KindLambda, Params: params, Body: body}
}

func Method(parent *Node, name string, params []*Node, body []*Node) *Node {
	return &Node{Kind: KindMethod, Parent: parent, Name: name, Params: params, Body: body}
}

func Block(body []*Node) *Node { return &Node{Kind: KindBlock, Body: body} }

func Class(sym *Node, body []*Node) *Node {
	return &Node{Kind: KindClass, Target: sym, Body: body}
}

func Module(sym *Node, body []*Node) *Node {
	return &Node{Kind: KindModule, Target: sym, Body: body}
}

func If(cond *Node, then, els []*Node) *Node {
	return &Node{Kind: KindIf, Cond: cond, Then: then, Else: els}
}

func While(cond *Node, body []*Node, until bool) *Node {
	return &Node{Kind: KindWhile, Cond: cond, Body: body, IsUntil: until}
}

func Case(header *Node, arms []WhenArm, elseBody []*Node) *Node {
	return &Node{Kind: KindCase, Header: header, Arms: arms, Else: elseBody}
}

func Return(value *Node) *Node { return &Node{Kind: KindReturn, Value: value} }
func Break() *Node             { return leaf(KindBreak) }
func Next() *Node              { return leaf(KindNext) }

func LineComment(text string) *Node {
	n := leaf(KindLineComment)
	n.Str = text
	n.CanBeOptimizedAway = false
	return n
}

func Raise(message string) *Node { return &Node{Kind: KindRaise, Str: message} }

func BlkPush() *Node { return leaf(KindBlkPush) }

// For builds a for-loop node. vars holds the iteration variable names as
// Arg nodes (built via Arg(name, nil, "")); source is the collection being
// iterated, nil until the enclosing SENDB site (the desugared `.each`
// call) fills it in (§4.7 for-loops).
func For(vars []*Node, source *Node, body []*Node) *Node {
	return &Node{Kind: KindFor, Params: vars, Source: source, Body: body}
}
