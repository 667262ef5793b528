package rustc

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	semver "github.com/Masterminds/semver/v3"
)

// MinVersion is the oldest rustc release the emitted code targets.
// let-else and the 2021 edition idioms used by the generator need it.
const MinVersion = "1.65.0"

// Edition is passed to every compile invocation.
const Edition = "2021"

// Toolchain is a located and version-checked rustc binary.
type Toolchain struct {
	Path    string
	Version *semver.Version
}

// CommandSpec describes an external build command to be executed by a runner.
type CommandSpec struct {
	Env     map[string]string
	WorkDir string
	Cmd     string
	Args    []string
}

var versionRe = regexp.MustCompile(`rustc\s+(\d+\.\d+\.\d+)`)

// ParseVersion extracts the semantic version from `rustc --version` output,
// e.g. "rustc 1.75.0 (82e1608df 2023-12-21)".
func ParseVersion(line string) (*semver.Version, error) {
	m := versionRe.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("unrecognized rustc version output: %q", strings.TrimSpace(line))
	}
	return semver.NewVersion(m[1])
}

// Discover locates rustc on PATH and verifies it meets MinVersion.
func Discover(ctx context.Context) (*Toolchain, error) {
	path, err := exec.LookPath("rustc")
	if err != nil {
		return nil, fmt.Errorf("rustc not found on PATH: %w", err)
	}
	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return nil, fmt.Errorf("rustc --version: %w", err)
	}
	ver, err := ParseVersion(string(out))
	if err != nil {
		return nil, err
	}
	min := semver.MustParse(MinVersion)
	if ver.LessThan(min) {
		return nil, fmt.Errorf("rustc %s is older than the required %s", ver, MinVersion)
	}
	return &Toolchain{Path: path, Version: ver}, nil
}

// CompileSpec builds the command that type-checks one emitted Rust file.
// The generated modules are libraries without a main, so the build uses
// --crate-type lib and emits only metadata; nothing is linked.
func (tc *Toolchain) CompileSpec(file, outDir string) CommandSpec {
	args := []string{
		"--error-format=json",
		"--crate-type", "lib",
		"--edition", Edition,
		"--emit", "metadata",
		"--out-dir", outDir,
		file,
	}
	return CommandSpec{Cmd: tc.Path, Args: args}
}
