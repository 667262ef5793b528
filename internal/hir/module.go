package hir

import (
	"github.com/depyler-lang/depyler/internal/position"
)

// FunctionID indexes a function in its module's arena. Method bodies refer
// to their enclosing class through ClassID rather than an owning pointer,
// which keeps the HIR acyclic.
type FunctionID int

// ClassID indexes a class in its module's arena.
type ClassID int

// InvalidClass marks a function that is not a method.
const InvalidClass ClassID = -1

// Param is a named, typed function parameter.
type Param struct {
	Name string
	Type Type
}

// FunctionProperties is the structured flag set carried by every function.
type FunctionProperties struct {
	CustomAttributes []string
	PanicFree        bool
	AlwaysTerminates bool
	IsAsync          bool
	IsGenerator      bool
	IsClassMethod    bool
	IsStaticMethod   bool
}

// Function is a lowered Python function or method.
type Function struct {
	Name        string
	Docstring   string
	Params      []Param
	RetType     Type
	Body        []Stmt
	Annotations map[string]string
	Properties  FunctionProperties
	Span        position.Span
	Class       ClassID
}

// Field is one declared class attribute.
type Field struct {
	Name string
	Type Type
}

// Class is a lowered Python class. Methods are arena ids into the module's
// function table.
type Class struct {
	Name    string
	Bases   []string
	Fields  []Field
	Methods []FunctionID
	Span    position.Span
}

// Import records one Python import and the names it binds.
type Import struct {
	Module string
	Names  []string // empty for plain `import module`
	Alias  string
}

// TypeAlias is `Name = SomeType` at module level.
type TypeAlias struct {
	Name   string
	Target Type
}

// Protocol is a Python Protocol class recorded for trait-bound inference.
type Protocol struct {
	Name    string
	Methods []string
}

// Module is the root of the HIR for one compilation unit. It is built once
// by the bridge, enriched in place by the inference passes, and read-only
// once code generation begins.
type Module struct {
	Name        string
	Filename    string
	Functions   []*Function
	Classes     []*Class
	Imports     []Import
	TypeAliases []TypeAlias
	Protocols   []Protocol
}

// AddFunction appends a function and returns its arena id.
func (m *Module) AddFunction(f *Function) FunctionID {
	m.Functions = append(m.Functions, f)

	return FunctionID(len(m.Functions) - 1)
}

// AddClass appends a class and returns its arena id.
func (m *Module) AddClass(c *Class) ClassID {
	m.Classes = append(m.Classes, c)

	return ClassID(len(m.Classes) - 1)
}

// Function returns the function for an arena id, or nil if out of range.
func (m *Module) Function(id FunctionID) *Function {
	if id < 0 || int(id) >= len(m.Functions) {
		return nil
	}

	return m.Functions[id]
}

// Class returns the class for an arena id, or nil if out of range.
func (m *Module) Class(id ClassID) *Class {
	if id < 0 || int(id) >= len(m.Classes) {
		return nil
	}

	return m.Classes[id]
}

// TopLevelFunctions returns functions that are not methods, in declaration order.
func (m *Module) TopLevelFunctions() []*Function {
	out := make([]*Function, 0, len(m.Functions))

	for _, f := range m.Functions {
		if f.Class == InvalidClass {
			out = append(out, f)
		}
	}

	return out
}
