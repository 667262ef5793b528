package converge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/depyler-lang/depyler/internal/config"
)

// ExampleState is one corpus file's standing in a checkpoint.
type ExampleState struct {
	Path      string `json:"path"`
	Compiles  bool   `json:"compiles"`
	LastError string `json:"last_error,omitempty"`
}

// Checkpoint is the on-disk snapshot written after each iteration.
type Checkpoint struct {
	Iteration       int             `json:"iteration"`
	CompilationRate float64         `json:"compilation_rate"`
	Examples        []ExampleState  `json:"examples"`
	ErrorClusters   []*Cluster      `json:"error_clusters"`
	FixesApplied    []string        `json:"fixes_applied"`
	Config          config.Converge `json:"config"`
}

// WriteCheckpoint persists a checkpoint atomically: the JSON goes to a
// temp file in the same directory and is renamed into place, so a
// cancellation mid-write never leaves a torn file behind.
func WriteCheckpoint(dir string, cp Checkpoint) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("checkpoint_%03d.json", cp.Iteration))
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return "", err
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp.Name())
		if werr != nil {
			return "", werr
		}
		return "", cerr
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}

// ReadCheckpoint loads a checkpoint file.
func ReadCheckpoint(path string) (Checkpoint, error) {
	var cp Checkpoint
	data, err := os.ReadFile(path)
	if err != nil {
		return cp, err
	}
	if err := json.Unmarshal(data, &cp); err != nil {
		return cp, fmt.Errorf("parse checkpoint %s: %w", path, err)
	}
	return cp, nil
}
