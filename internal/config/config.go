package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// NASAModeEnv toggles deterministic datetime lowering without external
// crates. Any non-empty value other than "0" and "false" enables it.
const NASAModeEnv = "DEPYLER_NASA_MODE"

// Duration accepts the "30s"/"2m" string form in YAML, which yaml.v3 does
// not give time.Duration natively.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	v, err := time.ParseDuration(n.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", n.Value, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) { return time.Duration(d).String(), nil }

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Project is the depyler.yaml file at the project root.
type Project struct {
	// IntType overrides the default i32 mapping for Python int.
	IntType string `yaml:"int_type" validate:"omitempty,oneof=i32 i64 isize"`
	// NASAMode forces the internal datetime shims; the environment
	// variable wins over the file.
	NASAMode bool `yaml:"nasa_mode"`
	// OutputDir receives emitted .rs files during batch runs.
	OutputDir string `yaml:"output_dir"`

	Converge Converge `yaml:"converge"`
}

// Converge configures the convergence loop.
type Converge struct {
	InputDir      string   `yaml:"input_dir" json:"input_dir" validate:"required"`
	TargetRate    float64  `yaml:"target_rate" json:"target_rate" validate:"gte=0,lte=100"`
	MaxIterations int      `yaml:"max_iterations" json:"max_iterations" validate:"gte=1"`
	AutoFix       bool     `yaml:"auto_fix" json:"auto_fix"`
	FixThreshold  float64  `yaml:"fix_threshold" json:"fix_threshold" validate:"gte=0,lte=1"`
	CheckpointDir string   `yaml:"checkpoint_dir" json:"checkpoint_dir,omitempty"`
	ParallelJobs  int      `yaml:"parallel_jobs" json:"parallel_jobs" validate:"gte=0"`
	BuildTimeout  Duration `yaml:"build_timeout" json:"build_timeout"`
	DisplayMode   string   `yaml:"display_mode" json:"display_mode" validate:"omitempty,oneof=rich minimal json silent"`
}

// Default returns a Project with the documented defaults filled in.
func Default() Project {
	return Project{
		Converge: Converge{
			TargetRate:    80,
			MaxIterations: 10,
			FixThreshold:  0.8,
			ParallelJobs:  runtime.NumCPU(),
			BuildTimeout:  Duration(60 * time.Second),
			DisplayMode:   "rich",
		},
	}
}

// Load reads and validates a depyler.yaml. Missing file is not an error;
// the defaults are returned so a bare checkout still works.
func Load(path string) (Project, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints. The converge section is only
// validated when an input dir is set, since transpile-only runs never
// touch it.
func (p *Project) Validate() error {
	v := validator.New()
	if err := v.StructExcept(p, "Converge"); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if p.Converge.InputDir != "" {
		if err := v.Struct(p.Converge); err != nil {
			return fmt.Errorf("invalid converge config: %w", err)
		}
	}
	return nil
}

func (p *Project) applyEnv() {
	switch os.Getenv(NASAModeEnv) {
	case "", "0", "false":
	default:
		p.NASAMode = true
	}
}
