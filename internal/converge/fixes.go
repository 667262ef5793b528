package converge

import "github.com/depyler-lang/depyler/internal/transpiler"

// Fix is an automated remediation for one gap type. Apply adjusts the
// transpile options for the next iteration; it must be idempotent. Applied
// reports whether the fix would still change anything, so the loop never
// records the same fix twice.
type Fix struct {
	Name        string  `json:"name"`
	GapType     string  `json:"gap_type"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`

	Apply func(o *transpiler.Options) bool `json:"-"`
}

// registry holds the fixes the loop may apply on its own. Gap types with
// no entry (borrow_checker, missing_method, unknown) need a human; their
// clusters still surface in reports, just without auto-fix.
var registry = []Fix{
	{
		Name:        "widen-int",
		GapType:     "type_inference",
		Description: "map Python int to i64 to absorb widening mismatches",
		Confidence:  0.85,
		Apply: func(o *transpiler.Options) bool {
			if o.IntType == "i64" {
				return false
			}
			o.IntType = "i64"
			return true
		},
	},
	{
		Name:        "shim-datetime",
		GapType:     "missing_import",
		Description: "switch datetime lowering to the internal shim types",
		Confidence:  0.8,
		Apply: func(o *transpiler.Options) bool {
			if o.NASAMode {
				return false
			}
			o.NASAMode = true
			return true
		},
	},
}

// FixFor returns the registered fix for a gap type, or nil.
func FixFor(gapType string) *Fix {
	for i := range registry {
		if registry[i].GapType == gapType {
			return &registry[i]
		}
	}
	return nil
}
