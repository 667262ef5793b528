package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/depyler-lang/depyler/internal/diagnostics"
	"github.com/depyler-lang/depyler/internal/hir"
	"github.com/depyler-lang/depyler/internal/inference"
	"github.com/depyler-lang/depyler/internal/typemap"
)

// Options configures module emission.
type Options struct {
	// IntType overrides the default i32 integer mapping.
	IntType string
	// NASAMode replaces chrono with the internal datetime shims, keeping
	// emitted code free of external time crates.
	NASAMode bool
}

// GenModule emits a full Rust module for one compilation unit: use
// declarations first, then helper shims, then structs and functions in
// declaration order. Output is deterministic for identical input.
func GenModule(mod *hir.Module, opts Options) (string, error) {
	needs := &typemap.Needs{}
	mapper := typemap.New(needs)
	mapper.NASAMode = opts.NASAMode

	if opts.IntType != "" {
		mapper.IntType = opts.IntType
	}

	// Run the inference passes before any emission so signatures settle.
	for _, fn := range mod.Functions {
		inference.InferParams(fn)
		inference.InferReturn(fn)
	}

	var body strings.Builder

	for _, cls := range mod.Classes {
		text, err := genClass(mod, cls, mapper)
		if err != nil {
			return "", err
		}

		body.WriteString(text)
		body.WriteByte('\n')
	}

	for _, fn := range mod.TopLevelFunctions() {
		text, err := GenFunction(mod, fn, mapper)
		if err != nil {
			return "", err
		}

		body.WriteString(text)
		body.WriteByte('\n')
	}

	var out strings.Builder

	if mod.Name != "" {
		fmt.Fprintf(&out, "// Generated from %s\n", mod.Filename)
	}

	if needs.UnionFallback {
		out.WriteString("// TODO: a union type was widened to its first arm\n")
	}

	if uses := useDecls(needs); len(uses) > 0 {
		out.WriteByte('\n')

		for _, u := range uses {
			out.WriteString(u)
			out.WriteByte('\n')
		}
	}

	if prelude := helperDecls(needs, mapper.IntType); prelude != "" {
		out.WriteByte('\n')
		out.WriteString(prelude)
	}

	out.WriteByte('\n')
	out.WriteString(body.String())

	return out.String(), nil
}

// useDecls renders the import block for the accumulated needs, sorted.
func useDecls(needs *typemap.Needs) []string {
	var uses []string

	if needs.HashMap {
		uses = append(uses, "use std::collections::HashMap;")
	}

	if needs.HashSet {
		uses = append(uses, "use std::collections::HashSet;")
	}

	if needs.Regex {
		uses = append(uses, "use regex::Regex;")
	}

	sort.Strings(uses)

	return uses
}

// helperDecls emits the Python-semantics helper functions and, in NASA
// mode, the datetime shim types.
func helperDecls(needs *typemap.Needs, intType string) string {
	var b strings.Builder

	if needs.FlooredDiv {
		fmt.Fprintf(&b, `fn floored_div(a: %[1]s, b: %[1]s) -> %[1]s {
    let q = a / b;
    if (a %% b != 0) && ((a < 0) != (b < 0)) { q - 1 } else { q }
}

`, intType)
	}

	if needs.PyModulo {
		fmt.Fprintf(&b, `fn py_mod(a: %[1]s, b: %[1]s) -> %[1]s {
    let r = a %% b;
    if r != 0 && ((r < 0) != (b < 0)) { r + b } else { r }
}

`, intType)
	}

	if needs.DateTimeShims {
		b.WriteString(dateTimeShims)
	}

	return b.String()
}

// dateTimeShims are the deterministic datetime replacements used when
// emitted code must not depend on chrono.
const dateTimeShims = `#[derive(Debug, Clone, Copy, PartialEq, Eq, PartialOrd, Ord, Default)]
pub struct DepylerDateTime {
    pub epoch_secs: i64,
}

impl DepylerDateTime {
    pub fn now() -> Self {
        Self::default()
    }

    pub fn timestamp(&self) -> i64 {
        self.epoch_secs
    }
}

#[derive(Debug, Clone, Copy, PartialEq, Eq, PartialOrd, Ord, Default)]
pub struct DepylerDate {
    pub days: i64,
}

impl DepylerDate {
    pub fn today() -> Self {
        Self::default()
    }
}

#[derive(Debug, Clone, Copy, PartialEq, Eq, PartialOrd, Ord, Default)]
pub struct DepylerTimeDelta {
    pub secs: i64,
}

impl DepylerTimeDelta {
    pub fn days(n: i64) -> Self {
        Self { secs: n * 86_400 }
    }

    pub fn seconds(n: i64) -> Self {
        Self { secs: n }
    }

    pub fn minutes(n: i64) -> Self {
        Self { secs: n * 60 }
    }

    pub fn hours(n: i64) -> Self {
        Self { secs: n * 3_600 }
    }

    pub fn weeks(n: i64) -> Self {
        Self { secs: n * 604_800 }
    }
}

`

// isExceptionBase reports whether a base class name marks an exception.
func isExceptionBase(bases []string) bool {
	for _, b := range bases {
		if strings.Contains(b, "Exception") || strings.Contains(b, "Error") {
			return true
		}
	}

	return false
}

// genClass emits a struct plus its impl block; exception classes become
// error structs with Display and Error implementations.
func genClass(mod *hir.Module, cls *hir.Class, mapper *typemap.Mapper) (string, error) {
	if isExceptionBase(cls.Bases) {
		mapper.Needs.ErrorTrait = true

		return genErrorClass(cls), nil
	}

	var b strings.Builder

	b.WriteString("#[derive(Debug, Clone)]\n")
	fmt.Fprintf(&b, "pub struct %s {\n", cls.Name)

	for _, f := range cls.Fields {
		fmt.Fprintf(&b, "    pub %s: %s,\n", f.Name, mapper.Map(f.Type))
	}

	b.WriteString("}\n\n")

	var impl strings.Builder

	for _, id := range cls.Methods {
		m := mod.Function(id)
		if m == nil {
			continue
		}

		var (
			text string
			err  error
		)

		if m.Name == "__init__" {
			text, err = genConstructor(mod, m, mapper)
		} else {
			text, err = GenFunction(mod, m, mapper)
		}

		if err != nil {
			return "", err
		}

		for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
			if line == "" {
				impl.WriteByte('\n')
			} else {
				impl.WriteString("    " + line + "\n")
			}
		}

		impl.WriteByte('\n')
	}

	if impl.Len() > 0 {
		fmt.Fprintf(&b, "impl %s {\n", cls.Name)
		b.WriteString(strings.TrimRight(impl.String(), "\n"))
		b.WriteString("\n}\n")
	}

	return b.String(), nil
}

// genConstructor lowers __init__ to an associated new(). The body must be
// a sequence of self-attribute assignments; anything else has no struct
// literal equivalent.
func genConstructor(mod *hir.Module, fn *hir.Function, mapper *typemap.Mapper) (string, error) {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name + ": " + mapper.Map(p.Type)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "pub fn new(%s) -> Self {\n", strings.Join(params, ", "))
	b.WriteString("    Self {\n")

	c := &Ctx{
		Module:     mod,
		Mapper:     mapper,
		Needs:      mapper.Needs,
		ParamTypes: make(map[string]hir.Type),
		declared:   make(map[string]bool),
		modules:    make(map[string]string),
		Mutable:    make(map[string]bool),
		ParamModes: make(map[string]typemap.ParamMode),
	}

	for _, p := range fn.Params {
		c.ParamTypes[p.Name] = p.Type
	}

	for _, s := range fn.Body {
		a, ok := s.(*hir.Assign)
		if !ok || a.Target.Kind != hir.TargetAttribute || !isVarNamed(a.Target.Value, "self") {
			if _, isPass := s.(*hir.Pass); isPass {
				continue
			}

			return "", diagnostics.Lowering(s.GetSpan(), "__init__ must only assign self attributes")
		}

		value, err := c.genExpr(a.Value)
		if err != nil {
			return "", err
		}

		fmt.Fprintf(&b, "        %s: %s,\n", a.Target.Attr, value)
	}

	b.WriteString("    }\n")
	b.WriteString("}\n")

	return b.String(), nil
}

// genErrorClass emits the Rust error-type triple for a Python exception
// class: struct, Display, Error.
func genErrorClass(cls *hir.Class) string {
	var b strings.Builder

	b.WriteString("#[derive(Debug, Clone)]\n")
	fmt.Fprintf(&b, "pub struct %s {\n    pub message: String,\n}\n\n", cls.Name)

	fmt.Fprintf(&b, `impl %s {
    pub fn new(message: impl Into<String>) -> Self {
        Self { message: message.into() }
    }
}

impl std::fmt::Display for %s {
    fn fmt(&self, f: &mut std::fmt::Formatter<'_>) -> std::fmt::Result {
        write!(f, "%s: {}", self.message)
    }
}

impl std::error::Error for %s {}
`, cls.Name, cls.Name, cls.Name, cls.Name)

	return b.String()
}
