package converge

import (
	"strings"

	"github.com/depyler-lang/depyler/internal/rustc"
)

// Category buckets a rustc error by the kind of defect behind it.
type Category int

const (
	TranspilerGap Category = iota
	TypeMismatch
	BorrowChecker
	MissingImport
	TraitBound
	LifetimeError
	SyntaxError
	Other
)

func (c Category) String() string {
	switch c {
	case TranspilerGap:
		return "transpiler_gap"
	case TypeMismatch:
		return "type_mismatch"
	case BorrowChecker:
		return "borrow_checker"
	case MissingImport:
		return "missing_import"
	case TraitBound:
		return "trait_bound"
	case LifetimeError:
		return "lifetime_error"
	case SyntaxError:
		return "syntax_error"
	default:
		return "other"
	}
}

// Classification is the triage result for one diagnostic.
type Classification struct {
	Category    Category `json:"category"`
	Subcategory string   `json:"subcategory"`
	Confidence  float64  `json:"confidence"`
}

// Classify maps one rustc diagnostic to a category, a finer-grained
// subcategory string, and a confidence in [0,1].
func Classify(d rustc.Diagnostic) Classification {
	switch d.Code {
	case "E0308":
		return Classification{TypeMismatch, "mismatched_types", 0.9}
	case "E0277":
		return Classification{TraitBound, "missing_trait", 0.85}
	case "E0382":
		return Classification{BorrowChecker, "use_after_move", 0.8}
	case "E0502":
		return Classification{BorrowChecker, "conflicting_borrow", 0.8}
	case "E0507":
		return Classification{BorrowChecker, "move_out_of_borrow", 0.8}
	case "E0425":
		return Classification{TranspilerGap, "undefined_variable", 0.9}
	case "E0433", "E0432":
		return Classification{MissingImport, "unresolved_path", 0.9}
	case "E0599":
		return Classification{TranspilerGap, "missing_method", 0.85}
	case "E0106", "E0495", "E0621":
		return Classification{LifetimeError, "lifetime_annotation", 0.75}
	case rustc.TimeoutCode:
		return Classification{Other, "build_timeout", 1.0}
	case TranspileCode:
		return Classification{TranspilerGap, "unsupported_construct", 1.0}
	case "":
		if strings.HasPrefix(d.Message, "expected") || strings.Contains(d.Message, "unexpected token") {
			return Classification{SyntaxError, "malformed_output", 0.95}
		}
		return Classification{Other, "uncoded", 0.3}
	default:
		return Classification{Other, "unmapped_" + d.Code, 0.3}
	}
}
