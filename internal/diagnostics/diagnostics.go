// Package diagnostics defines the error taxonomy shared across the Depyler
// pipeline. Per-unit errors are collected, never fatal: one bad Python file
// must not abort a batch run.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/depyler-lang/depyler/internal/position"
)

// Kind classifies pipeline errors.
type Kind int

const (
	// KindParse: Python source will not parse.
	KindParse Kind = iota
	// KindUnsupportedConstruct: a Python form the bridge refuses.
	KindUnsupportedConstruct
	// KindInferenceGap: a parameter type remains Unknown after inference
	// and generic fallback.
	KindInferenceGap
	// KindLowering: well-formed HIR that cannot be emitted.
	KindLowering
	// KindCodeGenAssertion: invariant violation inside the generator.
	KindCodeGenAssertion
	// KindBuildFailure: rustc rejected the emitted Rust.
	KindBuildFailure
	// KindIO: reading or writing source, checkpoint, or report files.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse error"
	case KindUnsupportedConstruct:
		return "unsupported construct"
	case KindInferenceGap:
		return "inference gap"
	case KindLowering:
		return "lowering error"
	case KindCodeGenAssertion:
		return "codegen assertion"
	case KindBuildFailure:
		return "build failure"
	case KindIO:
		return "io error"
	default:
		return "unknown"
	}
}

// Diagnostic is one recorded pipeline error.
type Diagnostic struct {
	Message   string
	Construct string // the offending Python construct, when known
	Hint      string
	Span      position.Span
	Kind      Kind
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	var b strings.Builder

	if d.Span.IsValid() {
		b.WriteString(d.Span.String())
		b.WriteString(": ")
	}

	b.WriteString(d.Kind.String())

	if d.Construct != "" {
		fmt.Fprintf(&b, " (%s)", d.Construct)
	}

	b.WriteString(": ")
	b.WriteString(d.Message)

	if d.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(d.Hint)
	}

	return b.String()
}

// Render formats a diagnostic with the offending source line and a caret
// run underneath it. Falls back to Error() when the span does not map
// into sf.
func Render(d *Diagnostic, sf *position.SourceFile) string {
	out := d.Error()
	if sf == nil || !d.Span.IsValid() {
		return out
	}

	line := sf.GetLine(d.Span.Start.Line)
	if line == "" {
		return out
	}

	width := 1
	if d.Span.Start.Line == d.Span.End.Line {
		if text := sf.GetSpanText(d.Span); text != "" {
			width = len(text)
		}
	}

	var b strings.Builder
	b.WriteString(out)
	b.WriteString("\n  ")
	b.WriteString(line)
	b.WriteString("\n  ")
	b.WriteString(strings.Repeat(" ", d.Span.Start.Column-1))
	b.WriteString(strings.Repeat("^", width))

	return b.String()
}

// Unsupported builds an UnsupportedConstruct diagnostic naming the construct.
func Unsupported(span position.Span, construct, message string) *Diagnostic {
	return &Diagnostic{
		Kind:      KindUnsupportedConstruct,
		Span:      span,
		Construct: construct,
		Message:   message,
	}
}

// InferenceGap builds an InferenceGap diagnostic with the annotation hint.
func InferenceGap(span position.Span, param string) *Diagnostic {
	return &Diagnostic{
		Kind:    KindInferenceGap,
		Span:    span,
		Message: fmt.Sprintf("cannot infer a type for parameter %q", param),
		Hint:    fmt.Sprintf("add a type annotation to %q", param),
	}
}

// Lowering builds a LoweringError diagnostic.
func Lowering(span position.Span, message string) *Diagnostic {
	return &Diagnostic{Kind: KindLowering, Span: span, Message: message}
}

// Collector accumulates per-unit diagnostics without aborting the pipeline.
type Collector struct {
	diags []*Diagnostic
}

// Add records a diagnostic.
func (c *Collector) Add(d *Diagnostic) {
	c.diags = append(c.diags, d)
}

// Addf records a diagnostic built from a format string.
func (c *Collector) Addf(kind Kind, span position.Span, format string, args ...any) {
	c.Add(&Diagnostic{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any diagnostics were recorded.
func (c *Collector) HasErrors() bool { return len(c.diags) > 0 }

// All returns recorded diagnostics in insertion order.
func (c *Collector) All() []*Diagnostic { return c.diags }

// Err returns a single error summarizing the collection, or nil.
func (c *Collector) Err() error {
	if len(c.diags) == 0 {
		return nil
	}

	if len(c.diags) == 1 {
		return c.diags[0]
	}

	msgs := make([]string, len(c.diags))
	for i, d := range c.diags {
		msgs[i] = d.Error()
	}

	return fmt.Errorf("%d errors:\n%s", len(c.diags), strings.Join(msgs, "\n"))
}
