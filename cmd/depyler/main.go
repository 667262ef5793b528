// Command depyler transpiles annotated Python to Rust and drives the
// convergence loop that compiles the output corpus with rustc.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/depyler-lang/depyler/internal/config"
	"github.com/depyler-lang/depyler/internal/converge"
	"github.com/depyler-lang/depyler/internal/rustc"
	"github.com/depyler-lang/depyler/internal/transpiler"
)

const version = "0.3.0"

type CLI struct {
	Config string `help:"Path to the project config file." default:"depyler.yaml"`

	Transpile TranspileCmd `cmd:"" help:"Transpile a single Python file to Rust."`
	Compile   CompileCmd   `cmd:"" help:"Transpile a Python file and type-check the result with rustc."`
	Converge  ConvergeCmd  `cmd:"" help:"Run the convergence loop over a corpus directory."`
	Report    ReportCmd    `cmd:"" help:"Produce a one-shot corpus compilation report."`
	Version   VersionCmd   `cmd:"" help:"Print version information."`
}

func (c *CLI) project() (config.Project, error) {
	return config.Load(c.Config)
}

type VersionCmd struct{}

func (c *VersionCmd) Run(*CLI) error {
	fmt.Printf("depyler %s\n", version)
	return nil
}

type TranspileCmd struct {
	File string `arg:"" help:"Python source file." type:"existingfile"`
	Out  string `help:"Output path; defaults to the input with a .rs extension." short:"o"`
}

func (c *TranspileCmd) Run(cli *CLI) error {
	cfg, err := cli.project()
	if err != nil {
		return err
	}
	out, err := transpiler.TranspileFile(signalContext(), c.File, c.Out, transpiler.FromConfig(cfg))
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}

type CompileCmd struct {
	File string `arg:"" help:"Python source file." type:"existingfile"`
}

func (c *CompileCmd) Run(cli *CLI) error {
	cfg, err := cli.project()
	if err != nil {
		return err
	}
	ctx := signalContext()
	out, err := transpiler.TranspileFile(ctx, c.File, "", transpiler.FromConfig(cfg))
	if err != nil {
		return err
	}
	tc, err := rustc.Discover(ctx)
	if err != nil {
		return err
	}
	res, err := tc.Compile(ctx, out)
	if err != nil {
		return err
	}
	if res.Success {
		fmt.Printf("%s compiles\n", out)
		return nil
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintf(os.Stderr, "%s:%d:%d: %s %s\n", d.File, d.Line, d.Column, d.Code, d.Message)
	}
	fmt.Fprintf(os.Stderr, "%s: %d errors\n", out, len(res.Diagnostics))
	return nil
}

type ConvergeCmd struct {
	InputDir      string        `help:"Directory of Python examples." required:"" type:"existingdir"`
	TargetRate    float64       `help:"Stop once this compilation percentage is reached." default:"-1"`
	MaxIterations int           `help:"Iteration budget." default:"0"`
	AutoFix       bool          `help:"Apply high-confidence fixes automatically."`
	CheckpointDir string        `help:"Write per-iteration checkpoints here."`
	ParallelJobs  int           `help:"Concurrent rustc invocations." default:"0"`
	OutputDir     string        `help:"Directory for emitted .rs files."`
	DisplayMode   string        `help:"Per-iteration output." enum:"rich,minimal,json,silent" default:"rich"`
	Watch         bool          `help:"Re-run the loop when the input directory changes." short:"w"`
	Debounce      time.Duration `help:"Watch debounce interval." default:"500ms"`
}

func (c *ConvergeCmd) Run(cli *CLI) error {
	cfg, err := cli.project()
	if err != nil {
		return err
	}
	cc := cfg.Converge
	cc.InputDir = c.InputDir
	if c.TargetRate >= 0 {
		cc.TargetRate = c.TargetRate
	}
	if c.MaxIterations > 0 {
		cc.MaxIterations = c.MaxIterations
	}
	if c.ParallelJobs > 0 {
		cc.ParallelJobs = c.ParallelJobs
	}
	if c.CheckpointDir != "" {
		cc.CheckpointDir = c.CheckpointDir
	}
	if c.AutoFix {
		cc.AutoFix = true
	}
	cc.DisplayMode = c.DisplayMode

	ctx := signalContext()
	tc, err := rustc.Discover(ctx)
	if err != nil {
		return err
	}
	opts := converge.Options{
		Converge:  cc,
		Transpile: transpiler.FromConfig(cfg),
		Builder:   tc,
		OutputDir: c.OutputDir,
	}
	run := func(ctx context.Context) error {
		state, err := converge.Run(ctx, opts, observer(cc.DisplayMode))
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(os.Stderr, "interrupted; final checkpoint written")
				return nil
			}
			return err
		}
		if !state.TargetMet {
			fmt.Fprintf(os.Stderr, "warning: target rate %.1f%% not reached (final %.1f%%)\n",
				cc.TargetRate, state.Rate)
		}
		return nil
	}
	if c.Watch {
		if err := run(ctx); err != nil {
			return err
		}
		err := converge.Watch(ctx, c.InputDir, c.Debounce, run)
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return run(ctx)
}

// observer maps a display mode to a per-iteration printer.
func observer(mode string) converge.Observer {
	switch mode {
	case "silent":
		return nil
	case "minimal":
		return func(s *converge.State) {
			fmt.Printf("iteration %d: %.1f%%\n", s.Iteration, s.Rate)
		}
	case "json":
		return func(s *converge.State) {
			out, err := converge.Report(s, "json")
			if err == nil {
				fmt.Print(out)
			}
		}
	default: // rich
		return func(s *converge.State) {
			out, err := converge.Report(s, "terminal")
			if err == nil {
				fmt.Print(out)
			}
		}
	}
}

type ReportCmd struct {
	Corpus string `help:"Directory of Python examples." required:"" type:"existingdir"`
	Format string `help:"Report format." enum:"terminal,json,markdown" default:"terminal"`
	Output string `help:"Write the report here instead of stdout."`
}

func (c *ReportCmd) Run(cli *CLI) error {
	cfg, err := cli.project()
	if err != nil {
		return err
	}
	ctx := signalContext()
	tc, err := rustc.Discover(ctx)
	if err != nil {
		return err
	}
	cc := cfg.Converge
	cc.InputDir = c.Corpus
	cc.TargetRate = 0
	cc.MaxIterations = 1
	cc.AutoFix = false
	cc.CheckpointDir = ""
	state, err := converge.Run(ctx, converge.Options{
		Converge:  cc,
		Transpile: transpiler.FromConfig(cfg),
		Builder:   tc,
	}, nil)
	if err != nil {
		return err
	}
	out, err := converge.Report(state, c.Format)
	if err != nil {
		return err
	}
	if c.Output != "" {
		return os.WriteFile(c.Output, []byte(out), 0o644)
	}
	fmt.Print(out)
	return nil
}

// signalContext is canceled by Ctrl-C or SIGTERM; in-flight builds are
// dropped and the loop writes its final checkpoint before returning.
func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("depyler"),
		kong.Description("Python-to-Rust transpiler with a compile-and-converge feedback loop."),
		kong.UsageOnError(),
	)
	err := ctx.Run(cli)
	ctx.FatalIfErrorf(err)
}
