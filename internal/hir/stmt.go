package hir

import (
	"github.com/depyler-lang/depyler/internal/position"
)

// Stmt is implemented by every HIR statement node.
type Stmt interface {
	GetSpan() position.Span
	stmtNode()
}

type stmtBase struct {
	span position.Span
}

func (b *stmtBase) GetSpan() position.Span { return b.span }

// SetSpan attaches the source span; called by the bridge at construction.
func (b *stmtBase) SetSpan(s position.Span) { b.span = s }

// TargetKind discriminates assignment target shapes.
type TargetKind int

const (
	TargetSymbol TargetKind = iota
	TargetTuple
	TargetIndex
	TargetAttribute
)

// AssignTarget is the left-hand side of an assignment.
//
//   - TargetSymbol: Name is the variable.
//   - TargetTuple: Elems are the unpacked names.
//   - TargetIndex: Base[Idx] = value.
//   - TargetAttribute: Value.Attr = value.
type AssignTarget struct {
	Base  Expr
	Idx   Expr
	Value Expr
	Name  string
	Attr  string
	Elems []string
	Kind  TargetKind
}

// Assign is `target = value`, optionally annotated.
type Assign struct {
	stmtBase
	Value      Expr
	Annotation *Type
	Target     AssignTarget
}

// Return is `return value`; Value is nil for a bare return.
type Return struct {
	stmtBase
	Value Expr
}

// If is an if/elif/else chain; elifs are folded into nested Else blocks by
// the bridge.
type If struct {
	stmtBase
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// While loops on a truthiness-coerced condition.
type While struct {
	stmtBase
	Cond Expr
	Body []Stmt
}

// For is `for target in iter: body`. Multiple targets come from tuple
// unpacking of the iteration variable (e.g. `for k, v in d.items()`).
type For struct {
	stmtBase
	Iter    Expr
	Targets []string
	Body    []Stmt
}

// Break exits the innermost (or labeled) loop.
type Break struct {
	stmtBase
	Label string
}

// Continue resumes the innermost (or labeled) loop.
type Continue struct {
	stmtBase
	Label string
}

// With is `with context as target: body`.
type With struct {
	stmtBase
	Context Expr
	Target  string
	Body    []Stmt
}

// ExceptHandler is one `except [Type [as name]]:` clause.
type ExceptHandler struct {
	ExceptionType string
	Name          string
	Body          []Stmt
}

// Try is try/except/else/finally.
type Try struct {
	stmtBase
	Body      []Stmt
	Handlers  []ExceptHandler
	OrElse    []Stmt
	FinalBody []Stmt
}

// Raise is `raise exc from cause`; both may be nil (bare raise).
type Raise struct {
	stmtBase
	Exception Expr
	Cause     Expr
}

// Assert is `assert test, msg`.
type Assert struct {
	stmtBase
	Test Expr
	Msg  Expr
}

// ExprStmt is an expression evaluated for effect.
type ExprStmt struct {
	stmtBase
	Value Expr
}

// Pass is the no-op statement.
type Pass struct {
	stmtBase
}

// Block groups statements without introducing Python scope; produced by
// lowering passes that need to splice several statements in place of one.
type Block struct {
	stmtBase
	Stmts []Stmt
}

// FunctionDef is a nested function definition; the code generator lowers it
// to a move closure.
type FunctionDef struct {
	stmtBase
	Def *Function
}

func (*Assign) stmtNode()      {}
func (*Return) stmtNode()      {}
func (*If) stmtNode()          {}
func (*While) stmtNode()       {}
func (*For) stmtNode()         {}
func (*Break) stmtNode()       {}
func (*Continue) stmtNode()    {}
func (*With) stmtNode()        {}
func (*Try) stmtNode()         {}
func (*Raise) stmtNode()       {}
func (*Assert) stmtNode()      {}
func (*ExprStmt) stmtNode()    {}
func (*Pass) stmtNode()        {}
func (*Block) stmtNode()       {}
func (*FunctionDef) stmtNode() {}

// WalkStmts calls fn for every statement, descending into nested bodies.
// It is the traversal used by the inference and mutability passes.
func WalkStmts(stmts []Stmt, fn func(Stmt) bool) {
	for _, s := range stmts {
		if !fn(s) {
			continue
		}

		switch n := s.(type) {
		case *If:
			WalkStmts(n.Then, fn)
			WalkStmts(n.Else, fn)
		case *While:
			WalkStmts(n.Body, fn)
		case *For:
			WalkStmts(n.Body, fn)
		case *With:
			WalkStmts(n.Body, fn)
		case *Try:
			WalkStmts(n.Body, fn)
			for _, h := range n.Handlers {
				WalkStmts(h.Body, fn)
			}

			WalkStmts(n.OrElse, fn)
			WalkStmts(n.FinalBody, fn)
		case *Block:
			WalkStmts(n.Stmts, fn)
		case *FunctionDef:
			WalkStmts(n.Def.Body, fn)
		}
	}
}
