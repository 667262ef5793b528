package rustc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"time"
)

// TimeoutCode is the synthetic diagnostic code attached when a build
// exceeds its context deadline.
const TimeoutCode = "TIMEOUT"

// Diagnostic is one rustc error, flattened to its primary span.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
}

// BuildResult captures one compile attempt.
type BuildResult struct {
	File        string
	Success     bool
	Diagnostics []Diagnostic
	Took        time.Duration
}

// rustcMessage mirrors the subset of rustc's JSON diagnostic format we read.
type rustcMessage struct {
	Message string `json:"message"`
	Code    *struct {
		Code string `json:"code"`
	} `json:"code"`
	Level string `json:"level"`
	Spans []struct {
		FileName    string `json:"file_name"`
		LineStart   int    `json:"line_start"`
		ColumnStart int    `json:"column_start"`
		IsPrimary   bool   `json:"is_primary"`
	} `json:"spans"`
}

// ParseDiagnostics decodes rustc stderr (one JSON object per line) into the
// error-level diagnostics, each located at its primary span.
func ParseDiagnostics(stderr []byte) []Diagnostic {
	var out []Diagnostic
	sc := bufio.NewScanner(bytes.NewReader(stderr))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var msg rustcMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		if msg.Level != "error" {
			continue
		}
		d := Diagnostic{Message: msg.Message}
		if msg.Code != nil {
			d.Code = msg.Code.Code
		}
		for _, sp := range msg.Spans {
			if sp.IsPrimary {
				d.File = sp.FileName
				d.Line = sp.LineStart
				d.Column = sp.ColumnStart
				break
			}
		}
		out = append(out, d)
	}
	return out
}

// Compile type-checks one Rust source file. A context deadline that fires
// mid-build yields a failed result carrying the synthetic TIMEOUT code
// rather than an error; hard failures to even spawn rustc return an error.
func (tc *Toolchain) Compile(ctx context.Context, file string) (BuildResult, error) {
	outDir, err := os.MkdirTemp("", "depyler-rustc-")
	if err != nil {
		return BuildResult{File: file}, err
	}
	defer os.RemoveAll(outDir)

	spec := tc.CompileSpec(file, outDir)
	cmd := exec.CommandContext(ctx, spec.Cmd, spec.Args...)
	cmd.Dir = spec.WorkDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	took := time.Since(start)

	res := BuildResult{File: file, Took: took}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled) {
		res.Diagnostics = []Diagnostic{{
			Code:    TimeoutCode,
			Message: "build exceeded its deadline",
			File:    file,
		}}
		return res, nil
	}
	if runErr == nil {
		res.Success = true
		return res, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		return res, runErr
	}
	res.Diagnostics = ParseDiagnostics(stderr.Bytes())
	if len(res.Diagnostics) == 0 {
		res.Diagnostics = []Diagnostic{{Message: "rustc failed without diagnostics", File: file}}
	}
	return res, nil
}
