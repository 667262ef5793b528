package transpiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/depyler-lang/depyler/internal/astbridge"
	"github.com/depyler-lang/depyler/internal/codegen"
	"github.com/depyler-lang/depyler/internal/config"
	"github.com/depyler-lang/depyler/internal/diagnostics"
	"github.com/depyler-lang/depyler/internal/position"
)

// Options selects per-run code generation behavior.
type Options struct {
	IntType  string
	NASAMode bool
}

// FromConfig lowers a project config into transpile options.
func FromConfig(cfg config.Project) Options {
	return Options{IntType: cfg.IntType, NASAMode: cfg.NASAMode}
}

// Unit is the outcome of transpiling one Python file.
type Unit struct {
	Path   string
	Rust   string
	Source *position.SourceFile
	Err    error
}

// RenderError formats a unit's error for display, with the offending
// source line when the error is a pipeline diagnostic.
func (u Unit) RenderError() string {
	return RenderError(u.Err, u.Source)
}

// RenderError formats err with source context when it carries a span that
// maps into sf.
func RenderError(err error, sf *position.SourceFile) string {
	if err == nil {
		return ""
	}

	var d *diagnostics.Diagnostic
	if errors.As(err, &d) {
		return diagnostics.Render(d, sf)
	}

	return err.Error()
}

// Transpile converts one Python source buffer to Rust. A panic anywhere in
// the pipeline is recovered and reported as an error so one bad file cannot
// take down a batch run.
func Transpile(ctx context.Context, filename string, src []byte, opts Options) (rust string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error transpiling %s: %v", filename, r)
		}
	}()
	mod, err := astbridge.ConvertSource(ctx, filename, src)
	if err != nil {
		return "", err
	}
	return codegen.GenModule(mod, codegen.Options{IntType: opts.IntType, NASAMode: opts.NASAMode})
}

// TranspileFile reads, converts and writes one file. An empty outPath
// defaults to the input path with a .rs extension.
func TranspileFile(ctx context.Context, path, outPath string, opts Options) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	rust, err := Transpile(ctx, path, src, opts)
	if err != nil {
		return "", err
	}
	if outPath == "" {
		outPath = RustPath(path)
	}
	if err := os.WriteFile(outPath, []byte(rust), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

// RustPath maps example.py to example.rs alongside it.
func RustPath(pyPath string) string {
	return strings.TrimSuffix(pyPath, filepath.Ext(pyPath)) + ".rs"
}

// TranspileDir converts every .py file under dir (non-recursive), collecting
// per-unit errors instead of stopping at the first one. Results are sorted
// by path.
func TranspileDir(ctx context.Context, dir string, opts Options) ([]Unit, error) {
	paths, err := ListSources(dir)
	if err != nil {
		return nil, err
	}
	units := make([]Unit, 0, len(paths))
	for _, p := range paths {
		u := Unit{Path: p}
		src, err := os.ReadFile(p)
		if err != nil {
			u.Err = err
		} else {
			u.Source = position.NewSourceFile(p, string(src))
			u.Rust, u.Err = Transpile(ctx, p, src, opts)
		}
		units = append(units, u)
	}
	return units, nil
}

// ListSources returns the .py files directly under dir, sorted.
func ListSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".py") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
