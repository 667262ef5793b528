package hir

import (
	"github.com/depyler-lang/depyler/internal/position"
)

// BinOp enumerates binary operators carried by Binary expressions.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
	OpEq
	OpNotEq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
	OpAnd
	OpOr
	OpIn
	OpNotIn
	OpBitAnd
	OpBitOr
	OpBitXor
	OpLShift
	OpRShift
)

// IsComparison reports whether the operator yields a bool from two ordered operands.
func (op BinOp) IsComparison() bool {
	switch op {
	case OpEq, OpNotEq, OpLt, OpLtEq, OpGt, OpGtEq:
		return true
	default:
		return false
	}
}

// IsArithmetic reports whether the operator is numeric arithmetic.
func (op BinOp) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpFloorDiv, OpMod, OpPow:
		return true
	default:
		return false
	}
}

func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpFloorDiv:
		return "//"
	case OpMod:
		return "%"
	case OpPow:
		return "**"
	case OpEq:
		return "=="
	case OpNotEq:
		return "!="
	case OpLt:
		return "<"
	case OpLtEq:
		return "<="
	case OpGt:
		return ">"
	case OpGtEq:
		return ">="
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpIn:
		return "in"
	case OpNotIn:
		return "not in"
	case OpBitAnd:
		return "&"
	case OpBitOr:
		return "|"
	case OpBitXor:
		return "^"
	case OpLShift:
		return "<<"
	case OpRShift:
		return ">>"
	default:
		return "<?>"
	}
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpPos
	OpNot
	OpBitNot
)

// Expr is implemented by every HIR expression node. Expressions carry their
// source span and an optional inferred type filled in by enrichment passes.
type Expr interface {
	GetSpan() position.Span
	// InferredType returns the annotated type, or Unknown if no pass set one.
	InferredType() Type
	// SetInferredType is called by enrichment passes only; after lowering
	// begins the HIR tree is read-only.
	SetInferredType(t Type)
	exprNode()
}

// exprBase carries span and inferred-type bookkeeping shared by all variants.
type exprBase struct {
	span position.Span
	ty   Type
}

func (b *exprBase) GetSpan() position.Span { return b.span }
func (b *exprBase) InferredType() Type     { return b.ty }
func (b *exprBase) SetInferredType(t Type) { b.ty = t }

// SetSpan attaches the source span; called by the bridge at construction.
func (b *exprBase) SetSpan(s position.Span) { b.span = s }

// LitKind discriminates literal payloads.
type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitStr
	LitBool
	LitNone
)

// Literal is a constant expression.
type Literal struct {
	exprBase
	Str   string
	Int   int64
	Float float64
	Bool  bool
	Kind  LitKind
}

// Var references a name in scope.
type Var struct {
	exprBase
	Name string
}

// Binary is a two-operand operation. Chained Python comparisons are rejected
// by the bridge, so Left/Right are always a single pair.
type Binary struct {
	exprBase
	Left  Expr
	Right Expr
	Op    BinOp
}

// Unary is a one-operand operation.
type Unary struct {
	exprBase
	Operand Expr
	Op      UnaryOp
}

// Call is a call of a named function. Method calls use MethodCall.
type Call struct {
	exprBase
	Func   string
	Args   []Expr
	Kwargs map[string]Expr
}

// MethodCall is obj.method(args). The object may itself be a module
// reference (re.match → object Var{"re"}), which the stdlib mapping tables
// in the code generator resolve.
type MethodCall struct {
	exprBase
	Object Expr
	Method string
	Args   []Expr
	Kwargs map[string]Expr
}

// Index is base[index].
type Index struct {
	exprBase
	Base Expr
	Idx  Expr
}

// SliceExpr is base[start:stop:step]; any bound may be nil.
type SliceExpr struct {
	exprBase
	Base  Expr
	Start Expr
	Stop  Expr
	Step  Expr
}

// Attribute is value.attr in non-call position.
type Attribute struct {
	exprBase
	Value Expr
	Attr  string
}

// ListLit is a list literal.
type ListLit struct {
	exprBase
	Elems []Expr
}

// DictLit is a dict literal; Keys and Values are parallel.
type DictLit struct {
	exprBase
	Keys   []Expr
	Values []Expr
}

// SetLit is a set literal.
type SetLit struct {
	exprBase
	Elems []Expr
}

// FrozenSetLit is frozenset({...}).
type FrozenSetLit struct {
	exprBase
	Elems []Expr
}

// TupleLit is a tuple expression.
type TupleLit struct {
	exprBase
	Elems []Expr
}

// Comprehension is one `for target in iter if cond...` clause.
type Comprehension struct {
	Iter       Expr
	Targets    []string
	Conditions []Expr
}

// ListComp is [elt for ...].
type ListComp struct {
	exprBase
	Element    Expr
	Generators []Comprehension
}

// SetComp is {elt for ...}.
type SetComp struct {
	exprBase
	Element    Expr
	Generators []Comprehension
}

// DictComp is {k: v for ...}.
type DictComp struct {
	exprBase
	Key        Expr
	Value      Expr
	Generators []Comprehension
}

// GeneratorExp is (elt for ...).
type GeneratorExp struct {
	exprBase
	Element    Expr
	Generators []Comprehension
}

// Lambda is lambda params: body.
type Lambda struct {
	exprBase
	Body   Expr
	Params []string
}

// Await is `await value`; the enclosing function must be async.
type Await struct {
	exprBase
	Value Expr
}

// FStringPart is either a literal fragment or an interpolated expression.
type FStringPart struct {
	Expr    Expr
	Literal string
}

// FString is an f-string with interleaved literal and expression parts.
type FString struct {
	exprBase
	Parts []FStringPart
}

// IfExpr is Python's conditional expression `then if cond else els`.
type IfExpr struct {
	exprBase
	Cond Expr
	Then Expr
	Else Expr
}

// Borrow wraps an expression in &/&mut. Introduced only by lowering passes
// during ownership analysis, never produced by the bridge.
type Borrow struct {
	exprBase
	Inner   Expr
	Mutable bool
}

func (*Literal) exprNode()      {}
func (*Var) exprNode()          {}
func (*Binary) exprNode()       {}
func (*Unary) exprNode()        {}
func (*Call) exprNode()         {}
func (*MethodCall) exprNode()   {}
func (*Index) exprNode()        {}
func (*SliceExpr) exprNode()    {}
func (*Attribute) exprNode()    {}
func (*ListLit) exprNode()      {}
func (*DictLit) exprNode()      {}
func (*SetLit) exprNode()       {}
func (*FrozenSetLit) exprNode() {}
func (*TupleLit) exprNode()     {}
func (*ListComp) exprNode()     {}
func (*SetComp) exprNode()      {}
func (*DictComp) exprNode()     {}
func (*GeneratorExp) exprNode() {}
func (*Lambda) exprNode()       {}
func (*IfExpr) exprNode()       {}
func (*Await) exprNode()        {}
func (*FString) exprNode()      {}
func (*Borrow) exprNode()       {}

// Constructors used by the bridge; they exist so spans are never forgotten.

func NewLiteral(span position.Span, kind LitKind) *Literal {
	return &Literal{exprBase: exprBase{span: span}, Kind: kind}
}

func NewIntLit(span position.Span, v int64) *Literal {
	return &Literal{exprBase: exprBase{span: span}, Kind: LitInt, Int: v}
}

func NewFloatLit(span position.Span, v float64) *Literal {
	return &Literal{exprBase: exprBase{span: span}, Kind: LitFloat, Float: v}
}

func NewStrLit(span position.Span, v string) *Literal {
	return &Literal{exprBase: exprBase{span: span}, Kind: LitStr, Str: v}
}

func NewBoolLit(span position.Span, v bool) *Literal {
	return &Literal{exprBase: exprBase{span: span}, Kind: LitBool, Bool: v}
}

func NewNoneLit(span position.Span) *Literal {
	return &Literal{exprBase: exprBase{span: span}, Kind: LitNone}
}

func NewVar(span position.Span, name string) *Var {
	return &Var{exprBase: exprBase{span: span}, Name: name}
}

func NewBinary(span position.Span, op BinOp, left, right Expr) *Binary {
	return &Binary{exprBase: exprBase{span: span}, Op: op, Left: left, Right: right}
}

func NewUnary(span position.Span, op UnaryOp, operand Expr) *Unary {
	return &Unary{exprBase: exprBase{span: span}, Op: op, Operand: operand}
}

func NewCall(span position.Span, fn string, args []Expr) *Call {
	return &Call{exprBase: exprBase{span: span}, Func: fn, Args: args}
}

func NewMethodCall(span position.Span, obj Expr, method string, args []Expr) *MethodCall {
	return &MethodCall{exprBase: exprBase{span: span}, Object: obj, Method: method, Args: args}
}

func NewIndex(span position.Span, base, idx Expr) *Index {
	return &Index{exprBase: exprBase{span: span}, Base: base, Idx: idx}
}

func NewAttribute(span position.Span, value Expr, attr string) *Attribute {
	return &Attribute{exprBase: exprBase{span: span}, Value: value, Attr: attr}
}

func NewBorrow(span position.Span, inner Expr, mutable bool) *Borrow {
	return &Borrow{exprBase: exprBase{span: span}, Inner: inner, Mutable: mutable}
}
