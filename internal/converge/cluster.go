package converge

import (
	"sort"

	"github.com/depyler-lang/depyler/internal/rustc"
)

// RootCause names the transpiler gap a cluster of errors points back at:
// what kind of emission is wrong and which generator stage owns it.
type RootCause struct {
	GapType  string `json:"gap_type"`
	Location string `json:"location"`
}

// Unknown is the root cause for error codes with no mapping.
var Unknown = RootCause{GapType: "unknown", Location: "unknown"}

// rootCauses maps rustc error codes to the generator stage responsible.
var rootCauses = map[string]RootCause{
	"E0599":       {GapType: "missing_method", Location: "expr_gen"},
	"E0308":       {GapType: "type_inference", Location: "type_mapper"},
	"E0277":       {GapType: "missing_trait", Location: "type_mapper"},
	"E0425":       {GapType: "undefined_variable", Location: "func_gen"},
	"E0433":       {GapType: "missing_import", Location: "stmt_gen"},
	"E0382":       {GapType: "borrow_checker", Location: "expr_gen"},
	"E0502":       {GapType: "borrow_checker", Location: "expr_gen"},
	"E0507":       {GapType: "borrow_checker", Location: "expr_gen"},
	TranspileCode: {GapType: "unsupported_construct", Location: "ast_bridge"},
}

// Cluster groups every occurrence of one error code across the corpus.
type Cluster struct {
	Code            string    `json:"code"`
	Count           int       `json:"count"`
	ExamplesBlocked []string  `json:"examples_blocked"`
	Sample          string    `json:"sample_message"`
	RootCause       RootCause `json:"root_cause"`
	FixConfidence   float64   `json:"fix_confidence"`
	Fix             *Fix      `json:"-"`
}

// Impact scores a cluster: how many examples it blocks, scaled by how
// confident we are that the attached fix addresses it. Zero iff the
// cluster blocks nothing.
func (c *Cluster) Impact() float64 {
	return float64(len(c.ExamplesBlocked)) * c.FixConfidence
}

// ClusterErrors groups the diagnostics of all failing builds by error code
// and attaches root causes and candidate fixes. Output is sorted by impact
// descending, ties broken by code, so iteration reports are stable.
func ClusterErrors(results []rustc.BuildResult) []*Cluster {
	byCode := make(map[string]*Cluster)
	for _, r := range results {
		if r.Success {
			continue
		}
		seen := make(map[string]bool)
		for _, d := range r.Diagnostics {
			cl := byCode[d.Code]
			if cl == nil {
				cl = &Cluster{Code: d.Code, Sample: d.Message, RootCause: Unknown}
				if rc, ok := rootCauses[d.Code]; ok {
					cl.RootCause = rc
				}
				cl.Fix = FixFor(cl.RootCause.GapType)
				if cl.Fix != nil {
					cl.FixConfidence = cl.Fix.Confidence
				} else {
					cl.FixConfidence = Classify(d).Confidence * 0.5
				}
				byCode[d.Code] = cl
			}
			cl.Count++
			if !seen[d.Code] {
				seen[d.Code] = true
				cl.ExamplesBlocked = append(cl.ExamplesBlocked, r.File)
			}
		}
	}
	out := make([]*Cluster, 0, len(byCode))
	for _, cl := range byCode {
		sort.Strings(cl.ExamplesBlocked)
		out = append(out, cl)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Impact() != out[j].Impact() {
			return out[i].Impact() > out[j].Impact()
		}
		return out[i].Code < out[j].Code
	})
	return out
}
