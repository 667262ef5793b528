package converge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/depyler-lang/depyler/internal/config"
	"github.com/depyler-lang/depyler/internal/position"
	"github.com/depyler-lang/depyler/internal/rustc"
	"github.com/depyler-lang/depyler/internal/transpiler"
)

// TranspileCode marks units that never reached rustc because the
// transpiler itself rejected them.
const TranspileCode = "TRANSPILE"

// Builder compiles one emitted Rust file. The production implementation is
// *rustc.Toolchain; tests substitute a fake.
type Builder interface {
	Compile(ctx context.Context, file string) (rustc.BuildResult, error)
}

// Options configures one convergence run.
type Options struct {
	config.Converge

	Transpile transpiler.Options
	Builder   Builder
	// OutputDir receives emitted .rs files; empty writes them alongside
	// their sources.
	OutputDir string
}

// State is the loop's visible progress after each iteration.
type State struct {
	Iteration    int            `json:"iteration"`
	Rate         float64        `json:"compilation_rate"`
	Examples     []ExampleState `json:"examples"`
	Clusters     []*Cluster     `json:"error_clusters"`
	FixesApplied []string       `json:"fixes_applied"`
	TargetMet    bool           `json:"target_met"`
}

// Observer is notified after every iteration; the CLI display modes hang
// off this.
type Observer func(*State)

// Run drives the convergence loop until the target rate is reached, the
// iteration budget is exhausted, or the context is canceled. Cancellation
// still writes a final checkpoint when one is configured.
func Run(ctx context.Context, opts Options, observe Observer) (*State, error) {
	sources, err := transpiler.ListSources(opts.InputDir)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no .py files under %s", opts.InputDir)
	}
	if opts.Builder == nil {
		return nil, errors.New("converge: no builder configured")
	}

	state := &State{}
	for state.Iteration < opts.MaxIterations {
		state.Iteration++

		results, err := buildAll(ctx, sources, opts)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return state, err
		}
		canceled := ctx.Err() != nil

		passing := 0
		state.Examples = make([]ExampleState, 0, len(results))
		for _, r := range results {
			ex := ExampleState{Path: r.File, Compiles: r.Success}
			if r.Success {
				passing++
			} else if len(r.Diagnostics) > 0 {
				d := r.Diagnostics[0]
				ex.LastError = d.Code
				if ex.LastError == "" {
					ex.LastError = d.Message
				}
			}
			state.Examples = append(state.Examples, ex)
		}
		state.Rate = float64(passing) / float64(len(results)) * 100
		state.Clusters = ClusterErrors(results)
		state.TargetMet = state.Rate >= opts.TargetRate

		if opts.CheckpointDir != "" {
			cp := Checkpoint{
				Iteration:       state.Iteration,
				CompilationRate: state.Rate,
				Examples:        state.Examples,
				ErrorClusters:   state.Clusters,
				FixesApplied:    state.FixesApplied,
				Config:          opts.Converge,
			}
			if _, err := WriteCheckpoint(opts.CheckpointDir, cp); err != nil {
				return state, err
			}
		}
		if observe != nil {
			observe(state)
		}
		if canceled {
			return state, ctx.Err()
		}
		if state.TargetMet {
			return state, nil
		}
		applyTopFix(state, &opts)
	}
	return state, nil
}

// applyTopFix applies the highest-impact cluster's fix when auto-fix is on
// and the confidence clears the threshold. Reports whether anything changed.
func applyTopFix(state *State, opts *Options) bool {
	if !opts.AutoFix || len(state.Clusters) == 0 {
		return false
	}
	top := state.Clusters[0]
	if top.Fix == nil || top.FixConfidence < opts.FixThreshold {
		return false
	}
	if !top.Fix.Apply(&opts.Transpile) {
		return false
	}
	state.FixesApplied = append(state.FixesApplied,
		fmt.Sprintf("%s: %s", top.Fix.Name, top.Fix.Description))
	return true
}

// buildAll transpiles and compiles every source with a bounded worker set.
// Results come back in source order, which is already sorted by path.
func buildAll(ctx context.Context, sources []string, opts Options) ([]rustc.BuildResult, error) {
	results := make([]rustc.BuildResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	jobs := opts.ParallelJobs
	if jobs <= 0 {
		jobs = 1
	}
	g.SetLimit(jobs)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			results[i] = buildOne(gctx, src, opts)
			return nil
		})
	}
	err := g.Wait()
	return results, err
}

func buildOne(ctx context.Context, src string, opts Options) rustc.BuildResult {
	var source *position.SourceFile
	code, terr := func() (string, error) {
		data, err := os.ReadFile(src)
		if err != nil {
			return "", err
		}
		source = position.NewSourceFile(src, string(data))
		return transpiler.Transpile(ctx, src, data, opts.Transpile)
	}()
	if terr != nil {
		return rustc.BuildResult{
			File: src,
			Diagnostics: []rustc.Diagnostic{{
				Code:    TranspileCode,
				Message: transpiler.RenderError(terr, source),
				File:    src,
			}},
		}
	}

	out := transpiler.RustPath(src)
	if opts.OutputDir != "" {
		out = filepath.Join(opts.OutputDir, filepath.Base(out))
	}
	if err := os.WriteFile(out, []byte(code), 0o644); err != nil {
		return rustc.BuildResult{
			File:        src,
			Diagnostics: []rustc.Diagnostic{{Message: err.Error(), File: src}},
		}
	}

	bctx := ctx
	if opts.BuildTimeout > 0 {
		var cancel context.CancelFunc
		bctx, cancel = context.WithTimeout(ctx, opts.BuildTimeout.Std())
		defer cancel()
	}
	res, err := opts.Builder.Compile(bctx, out)
	res.File = src
	if err != nil {
		res.Success = false
		res.Diagnostics = append(res.Diagnostics, rustc.Diagnostic{Message: err.Error(), File: src})
	}
	return res
}
