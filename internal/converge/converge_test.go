package converge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depyler-lang/depyler/internal/config"
	"github.com/depyler-lang/depyler/internal/rustc"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		code    string
		message string
		want    Category
		sub     string
	}{
		{"E0308", "mismatched types", TypeMismatch, "mismatched_types"},
		{"E0277", "the trait bound is not satisfied", TraitBound, "missing_trait"},
		{"E0382", "use of moved value", BorrowChecker, "use_after_move"},
		{"E0502", "cannot borrow", BorrowChecker, "conflicting_borrow"},
		{"E0425", "cannot find value", TranspilerGap, "undefined_variable"},
		{"E0433", "failed to resolve", MissingImport, "unresolved_path"},
		{"E0599", "no method named", TranspilerGap, "missing_method"},
		{"E0106", "missing lifetime specifier", LifetimeError, "lifetime_annotation"},
		{rustc.TimeoutCode, "build exceeded its deadline", Other, "build_timeout"},
		{TranspileCode, "unsupported construct: yield", TranspilerGap, "unsupported_construct"},
		{"", "expected `;`, found `}`", SyntaxError, "malformed_output"},
		{"E9999", "who knows", Other, "unmapped_E9999"},
	}
	for _, tt := range tests {
		t.Run(tt.code+"/"+tt.sub, func(t *testing.T) {
			got := Classify(rustc.Diagnostic{Code: tt.code, Message: tt.message})
			assert.Equal(t, tt.want, got.Category)
			assert.Equal(t, tt.sub, got.Subcategory)
			assert.GreaterOrEqual(t, got.Confidence, 0.0)
			assert.LessOrEqual(t, got.Confidence, 1.0)
		})
	}
}

func failResult(file string, codes ...string) rustc.BuildResult {
	r := rustc.BuildResult{File: file}
	for _, c := range codes {
		r.Diagnostics = append(r.Diagnostics, rustc.Diagnostic{Code: c, Message: "msg " + c, File: file})
	}
	return r
}

func TestClusterErrors(t *testing.T) {
	results := []rustc.BuildResult{
		{File: "a.py", Success: true},
		failResult("b.py", "E0308"),
		failResult("c.py", "E0308", "E0599"),
		failResult("d.py", "E0599"),
	}
	clusters := ClusterErrors(results)
	require.Len(t, clusters, 2)

	for _, cl := range clusters {
		assert.GreaterOrEqual(t, cl.Impact(), 0.0)
		assert.True(t, sortedStrings(cl.ExamplesBlocked))
	}

	// E0308 carries a registered fix, so it outranks E0599 on impact.
	assert.Equal(t, "E0308", clusters[0].Code)
	assert.Equal(t, RootCause{"type_inference", "type_mapper"}, clusters[0].RootCause)
	assert.Equal(t, []string{"b.py", "c.py"}, clusters[0].ExamplesBlocked)
	require.NotNil(t, clusters[0].Fix)
	assert.Equal(t, "widen-int", clusters[0].Fix.Name)

	assert.Equal(t, "E0599", clusters[1].Code)
	assert.Equal(t, RootCause{"missing_method", "expr_gen"}, clusters[1].RootCause)
	assert.Nil(t, clusters[1].Fix)
}

func TestClusterUnknownCode(t *testing.T) {
	clusters := ClusterErrors([]rustc.BuildResult{failResult("x.py", "E0700")})
	require.Len(t, clusters, 1)
	assert.Equal(t, Unknown, clusters[0].RootCause)
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}

// fakeBuilder passes or fails by base file name.
type fakeBuilder struct {
	fail map[string][]rustc.Diagnostic
}

func (f *fakeBuilder) Compile(_ context.Context, file string) (rustc.BuildResult, error) {
	base := strings.TrimSuffix(filepath.Base(file), ".rs")
	if diags, ok := f.fail[base]; ok {
		return rustc.BuildResult{Diagnostics: diags}, nil
	}
	return rustc.BuildResult{Success: true}, nil
}

func corpus(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		body := fmt.Sprintf("def f%d(n: int) -> int:\n    return n + %d\n", i, i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("ex%02d.py", i)), []byte(body), 0o644))
	}
	return dir
}

func TestRunLoopArithmetic(t *testing.T) {
	dir := corpus(t, 10)
	builder := &fakeBuilder{fail: map[string][]rustc.Diagnostic{
		"ex00": {{Code: "E0308", Message: "mismatched types"}},
		"ex01": {{Code: "E0308", Message: "mismatched types"}},
		"ex02": {{Code: "E0599", Message: "no method named push"}},
	}}
	var first *State
	state, err := Run(context.Background(), Options{
		Converge: config.Converge{
			InputDir:      dir,
			TargetRate:    100,
			MaxIterations: 2,
			ParallelJobs:  4,
		},
		Builder:   builder,
		OutputDir: t.TempDir(),
	}, func(s *State) {
		if first == nil {
			cp := *s
			first = &cp
		}
	})
	require.NoError(t, err)

	require.NotNil(t, first)
	assert.Equal(t, 1, first.Iteration)
	assert.Equal(t, 70.0, first.Rate)
	assert.False(t, first.TargetMet)

	// Target unreached within the budget; the loop stops at the cap.
	assert.Equal(t, 2, state.Iteration)
	assert.Equal(t, 70.0, state.Rate)
	require.Len(t, state.Examples, 10)
	assert.Equal(t, "E0308", state.Examples[0].LastError)
	assert.True(t, state.Examples[3].Compiles)

	require.NotEmpty(t, state.Clusters)
	assert.Equal(t, "E0308", state.Clusters[0].Code)
	for i := 1; i < len(state.Clusters); i++ {
		assert.GreaterOrEqual(t, state.Clusters[i-1].Impact(), state.Clusters[i].Impact())
	}
}

func TestRunStopsAtTarget(t *testing.T) {
	dir := corpus(t, 4)
	state, err := Run(context.Background(), Options{
		Converge: config.Converge{
			InputDir:      dir,
			TargetRate:    100,
			MaxIterations: 10,
			ParallelJobs:  2,
		},
		Builder:   &fakeBuilder{},
		OutputDir: t.TempDir(),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Iteration)
	assert.Equal(t, 100.0, state.Rate)
	assert.True(t, state.TargetMet)
}

func TestRunWritesCheckpoints(t *testing.T) {
	dir := corpus(t, 3)
	ckDir := t.TempDir()
	_, err := Run(context.Background(), Options{
		Converge: config.Converge{
			InputDir:      dir,
			TargetRate:    100,
			MaxIterations: 1,
			ParallelJobs:  1,
			CheckpointDir: ckDir,
		},
		Builder:   &fakeBuilder{fail: map[string][]rustc.Diagnostic{"ex00": {{Code: "E0308"}}}},
		OutputDir: t.TempDir(),
	}, nil)
	require.NoError(t, err)

	cp, err := ReadCheckpoint(filepath.Join(ckDir, "checkpoint_001.json"))
	require.NoError(t, err)
	assert.Equal(t, 1, cp.Iteration)
	assert.InDelta(t, 66.7, cp.CompilationRate, 0.1)
	require.Len(t, cp.Examples, 3)
	assert.False(t, cp.Examples[0].Compiles)
	assert.Equal(t, "E0308", cp.Examples[0].LastError)

	// The atomic write leaves no temp files behind.
	entries, err := os.ReadDir(ckDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), e.Name())
	}
}

func TestApplyTopFix(t *testing.T) {
	fix := FixFor("type_inference")
	require.NotNil(t, fix)
	state := &State{Clusters: []*Cluster{{
		Code:            "E0308",
		ExamplesBlocked: []string{"a.py"},
		RootCause:       RootCause{"type_inference", "type_mapper"},
		FixConfidence:   fix.Confidence,
		Fix:             fix,
	}}}
	opts := Options{Converge: config.Converge{AutoFix: true, FixThreshold: 0.8}}

	require.True(t, applyTopFix(state, &opts))
	assert.Equal(t, "i64", opts.Transpile.IntType)
	require.Len(t, state.FixesApplied, 1)
	assert.Contains(t, state.FixesApplied[0], "widen-int")

	// Idempotent: a second application changes nothing and records nothing.
	assert.False(t, applyTopFix(state, &opts))
	assert.Len(t, state.FixesApplied, 1)

	// Below-threshold confidence is never auto-applied.
	opts2 := Options{Converge: config.Converge{AutoFix: true, FixThreshold: 0.99}}
	state.FixesApplied = nil
	assert.False(t, applyTopFix(state, &opts2))
}

func TestFixForUnknownGap(t *testing.T) {
	assert.Nil(t, FixFor("borrow_checker"))
	assert.Nil(t, FixFor("unknown"))
}

func TestBisect(t *testing.T) {
	files := make([]string, 16)
	for i := range files {
		files[i] = fmt.Sprintf("f%02d.py", i)
	}
	culprit := "f11.py"
	probe := func(_ context.Context, set []string) (bool, error) {
		for _, f := range set {
			if f == culprit {
				return true, nil
			}
		}
		return false, nil
	}
	got, calls, err := Bisect(context.Background(), files, probe)
	require.NoError(t, err)
	assert.Equal(t, culprit, got)
	assert.LessOrEqual(t, calls, 5) // ceil(log2(16)) + 1
}

func TestBisectSingleAndEmpty(t *testing.T) {
	got, calls, err := Bisect(context.Background(), []string{"only.py"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "only.py", got)
	assert.Zero(t, calls)

	_, _, err = Bisect(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestReportFormats(t *testing.T) {
	state := &State{
		Iteration: 2,
		Rate:      70.0,
		Examples: []ExampleState{
			{Path: "a.py", Compiles: true},
			{Path: "b.py", Compiles: false, LastError: "E0308"},
		},
		Clusters: []*Cluster{{
			Code:            "E0308",
			Count:           3,
			ExamplesBlocked: []string{"b.py"},
			Sample:          "mismatched types",
			RootCause:       RootCause{"type_inference", "type_mapper"},
			FixConfidence:   0.85,
		}},
		FixesApplied: []string{"widen-int: map Python int to i64 to absorb widening mismatches"},
	}

	term, err := Report(state, "terminal")
	require.NoError(t, err)
	assert.Contains(t, term, "70.0% compiling (1/2)")
	assert.Contains(t, term, "E0308")
	assert.Contains(t, term, "applied: widen-int")

	md, err := Report(state, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "| E0308 | 3 | 1 | type_inference/type_mapper |")

	js, err := Report(state, "json")
	require.NoError(t, err)
	assert.Contains(t, js, `"compilation_rate": 70`)

	_, err = Report(state, "xml")
	assert.Error(t, err)
}

func TestWatchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, t.TempDir(), 10*time.Millisecond, func(context.Context) error { return nil })
	}()
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop on cancellation")
	}
}

var _ Builder = (*rustc.Toolchain)(nil)
