package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

type IgnoreRule struct {
	Rule    string `json:"rule"`
	Path    string `json:"path"`
	Reason  string `json:"reason"`
	Expires string `json:"expires"`
}

// AnalysisConfig tunes the interval solver.
type AnalysisConfig struct {
	MaxIterations     int  `json:"maxIterations"`
	WideningThreshold int  `json:"wideningThreshold"`
	NarrowingPasses   int  `json:"narrowingPasses"`
	PathSensitivity   bool `json:"pathSensitivity"`
	OverflowChecks    bool `json:"overflowChecks"`
}

type Config struct {
	SeverityThreshold string         `json:"severityThreshold"`
	TimeBudgetMs      int            `json:"timeBudgetMs"`
	Analysis          AnalysisConfig `json:"analysis"`
	Ignore            []IgnoreRule   `json:"ignore"`
	Plugins           []string       `json:"plugins"`
}

func Default() Config {
	return Config{
		SeverityThreshold: "low",
		TimeBudgetMs:      30000,
		Analysis: AnalysisConfig{
			MaxIterations:     50,
			WideningThreshold: 3,
			NarrowingPasses:   2,
			PathSensitivity:   true,
			OverflowChecks:    true,
		},
	}
}

// Load searches upwards from startDir for .solrange-config.json and
// overlays it on the defaults. Returns the path it loaded, if any.
func Load(startDir string) (Config, string, error) {
	cfg := Default()
	dir := startDir
	for {
		candidate := filepath.Join(dir, ".solrange-config.json")
		if _, err := os.Stat(candidate); err == nil {
			b, err := os.ReadFile(candidate)
			if err != nil {
				return cfg, candidate, err
			}
			_ = json.Unmarshal(b, &cfg)
			cfg.normalize()
			return cfg, candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached root
			break
		}
		dir = parent
	}
	return cfg, "", nil
}

// normalize clamps nonsense values back to the defaults so a partial or
// hand-edited config cannot wedge the solver.
func (c *Config) normalize() {
	d := Default()
	if c.Analysis.MaxIterations <= 0 {
		c.Analysis.MaxIterations = d.Analysis.MaxIterations
	}
	if c.Analysis.WideningThreshold <= 0 {
		c.Analysis.WideningThreshold = d.Analysis.WideningThreshold
	}
	if c.Analysis.NarrowingPasses < 0 {
		c.Analysis.NarrowingPasses = d.Analysis.NarrowingPasses
	}
	if c.SeverityThreshold == "" {
		c.SeverityThreshold = d.SeverityThreshold
	}
}
