// Package lineage records which emitted artifacts derive from which, as a
// small JSON DAG stored under .depyler/ at the project root.
package lineage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Dir is the metadata directory relative to the project root.
const Dir = ".depyler"

const fileName = "lineage.json"

// Record is one node in the derivation graph.
type Record struct {
	ModelID   string    `json:"model_id"`
	Parents   []string  `json:"parents,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Note      string    `json:"note,omitempty"`
}

// Graph is the full lineage DAG, keyed by model id.
type Graph struct {
	Records map[string]Record `json:"records"`
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{Records: make(map[string]Record)}
}

// Load reads the lineage file under root. A missing file yields an empty
// graph.
func Load(root string) (*Graph, error) {
	data, err := os.ReadFile(filepath.Join(root, Dir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return NewGraph(), nil
		}
		return nil, err
	}
	g := NewGraph()
	if err := json.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("parse lineage: %w", err)
	}
	if g.Records == nil {
		g.Records = make(map[string]Record)
	}
	return g, nil
}

// Add inserts a record. Parents must already exist and the edge must not
// close a cycle; ids are unique.
func (g *Graph) Add(rec Record) error {
	if rec.ModelID == "" {
		return fmt.Errorf("lineage: empty model id")
	}
	if _, ok := g.Records[rec.ModelID]; ok {
		return fmt.Errorf("lineage: duplicate model id %q", rec.ModelID)
	}
	for _, p := range rec.Parents {
		if _, ok := g.Records[p]; !ok {
			return fmt.Errorf("lineage: unknown parent %q of %q", p, rec.ModelID)
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	g.Records[rec.ModelID] = rec
	return nil
}

// Ancestors returns every transitive parent of id, sorted.
func (g *Graph) Ancestors(id string) []string {
	seen := make(map[string]bool)
	var walk func(string)
	walk = func(cur string) {
		for _, p := range g.Records[cur].Parents {
			if !seen[p] {
				seen[p] = true
				walk(p)
			}
		}
	}
	walk(id)
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Save writes the graph atomically under root, creating .depyler/ as
// needed.
func (g *Graph) Save(root string) error {
	dir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".lineage-*.tmp")
	if err != nil {
		return err
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp.Name())
		if werr != nil {
			return werr
		}
		return cerr
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, fileName))
}
