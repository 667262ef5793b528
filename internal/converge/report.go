package converge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Report formats a loop state for output. Formats: "terminal" (default),
// "json", "markdown".
func Report(state *State, format string) (string, error) {
	switch format {
	case "", "terminal":
		return terminalReport(state), nil
	case "json":
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	case "markdown":
		return markdownReport(state), nil
	default:
		return "", fmt.Errorf("unknown report format %q", format)
	}
}

func terminalReport(state *State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "iteration %d: %.1f%% compiling (%d/%d)\n",
		state.Iteration, state.Rate, passingCount(state), len(state.Examples))
	for _, cl := range state.Clusters {
		fmt.Fprintf(&b, "  %-10s ×%-3d blocks %d  [%s/%s]  %s\n",
			codeLabel(cl.Code), cl.Count, len(cl.ExamplesBlocked),
			cl.RootCause.GapType, cl.RootCause.Location, cl.Sample)
	}
	for _, fix := range state.FixesApplied {
		fmt.Fprintf(&b, "  applied: %s\n", fix)
	}
	return b.String()
}

func markdownReport(state *State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Convergence report\n\n")
	fmt.Fprintf(&b, "- Iteration: %d\n- Compilation rate: %.1f%%\n- Examples: %d\n\n",
		state.Iteration, state.Rate, len(state.Examples))
	if len(state.Clusters) > 0 {
		b.WriteString("| Code | Count | Blocked | Root cause | Impact |\n")
		b.WriteString("|------|-------|---------|------------|--------|\n")
		for _, cl := range state.Clusters {
			fmt.Fprintf(&b, "| %s | %d | %d | %s/%s | %.2f |\n",
				codeLabel(cl.Code), cl.Count, len(cl.ExamplesBlocked),
				cl.RootCause.GapType, cl.RootCause.Location, cl.Impact())
		}
		b.WriteString("\n")
	}
	if len(state.FixesApplied) > 0 {
		b.WriteString("## Fixes applied\n\n")
		for _, fix := range state.FixesApplied {
			fmt.Fprintf(&b, "- %s\n", fix)
		}
	}
	return b.String()
}

func codeLabel(code string) string {
	if code == "" {
		return "(none)"
	}
	return code
}

func passingCount(state *State) int {
	n := 0
	for _, ex := range state.Examples {
		if ex.Compiles {
			n++
		}
	}
	return n
}
