package engine

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xab-mack/solrange/internal/analysis"
	"github.com/xab-mack/solrange/internal/cache"
	"github.com/xab-mack/solrange/internal/config"
	"github.com/xab-mack/solrange/internal/logger"
	"github.com/xab-mack/solrange/internal/model"
	"github.com/xab-mack/solrange/internal/plugins"
	"github.com/xab-mack/solrange/internal/solidity"
)

// cacheTag is bumped whenever the analysis or finding schema changes,
// invalidating stale cached scan results.
const cacheTag = "solrange-scan-v1"

type Engine struct {
	registry *plugins.Registry
}

func New() *Engine {
	reg := plugins.NewRegistry()
	reg.RegisterBuiltin()
	return &Engine{registry: reg}
}

// Scan discovers Solidity sources under req.Path, solves their value
// ranges and runs the detectors over the solved project.
func (e *Engine) Scan(ctx context.Context, req model.ScanRequest) (*model.ScanResult, error) {
	start := time.Now()
	log := logger.Logger().With().Str("component", "engine").Logger()

	cfgDir := req.ConfigPath
	if cfgDir == "" {
		cfgDir = req.Path
	}
	cfg, cfgFile, _ := config.Load(cfgDir)
	if cfgFile != "" {
		log.Debug().Str("config", cfgFile).Msg("loaded config")
	}

	files := discoverFiles(req.Path)
	log.Debug().Int("files", len(files)).Str("path", req.Path).Msg("discovered sources")

	pctx := &analysis.ProjectContext{
		RootPath:     req.Path,
		Files:        files,
		FileContents: map[string]string{},
		Units:        map[string]*solidity.Unit{},
	}
	var hashes []string
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			log.Warn().Str("file", f).Err(err).Msg("unreadable source, skipping")
			continue
		}
		content := string(b)
		pctx.FileContents[f] = content
		pctx.Units[f] = solidity.Parse(f, content)
		hashes = append(hashes, cache.HashBytes(b))
	}

	cacheKey := scanCacheKey(hashes, cfg)
	if req.UseCache && cacheKey != "" {
		if data, ok := cache.Load(cacheKey); ok {
			var cached model.ScanResult
			if err := json.Unmarshal(data, &cached); err == nil {
				cached.Elapsed = time.Since(start)
				log.Debug().Msg("scan served from cache")
				return &cached, nil
			}
		}
	}

	analyzer := analysis.NewAnalyzer(analysisOptions(cfg))
	results := analysis.NewResults()
	for _, f := range files {
		if u := pctx.Units[f]; u != nil {
			results.Merge(analyzer.AnalyzeUnit(u))
		}
	}
	pctx.Results = results

	findings := e.registry.Run(ctx, pctx, req)
	findings = calibrateFindings(findings)
	findings = applyIgnores(findings, cfg)
	findings = filterBySeverity(findings, cfg)
	findings = filterByPlugins(findings, cfg)
	if req.Baseline != "" {
		if b, err := loadBaseline(req.Baseline); err == nil {
			findings = filterByBaseline(findings, b)
		} else {
			log.Warn().Str("baseline", req.Baseline).Err(err).Msg("baseline not loaded")
		}
	}
	sortFindings(findings)

	result := &model.ScanResult{
		Findings: findings,
		Summary:  results.ExportSummary(),
		Elapsed:  time.Since(start),
	}
	if req.UseCache && cacheKey != "" {
		if data, err := json.Marshal(result); err == nil {
			_ = cache.Store(cacheKey, data)
		}
	}
	return result, nil
}

// scanCacheKey keys a scan on every input that can change its output.
func scanCacheKey(fileHashes []string, cfg config.Config) string {
	if len(fileHashes) == 0 {
		return ""
	}
	cfgJSON, _ := json.Marshal(cfg)
	parts := append([]string{cacheTag, string(cfgJSON)}, fileHashes...)
	return cache.Key(parts...)
}

func analysisOptions(cfg config.Config) analysis.Options {
	return analysis.Options{
		MaxIterations:     cfg.Analysis.MaxIterations,
		WideningThreshold: cfg.Analysis.WideningThreshold,
		NarrowingPasses:   cfg.Analysis.NarrowingPasses,
		PathSensitivity:   cfg.Analysis.PathSensitivity,
		OverflowChecks:    cfg.Analysis.OverflowChecks,
	}
}

// discoverFiles returns Solidity sources under root in stable order,
// skipping common dependency directories.
func discoverFiles(root string) []string {
	var out []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch d.Name() {
			case "node_modules", ".git", "out", "artifacts":
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(d.Name()) == ".sol" {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out
}

func sortFindings(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].File != findings[j].File {
			return findings[i].File < findings[j].File
		}
		if findings[i].StartLine != findings[j].StartLine {
			return findings[i].StartLine < findings[j].StartLine
		}
		return findings[i].RuleID < findings[j].RuleID
	})
}
