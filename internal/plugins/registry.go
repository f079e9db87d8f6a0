package plugins

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/xab-mack/solrange/internal/analysis"
	"github.com/xab-mack/solrange/internal/model"
)

// Detector inspects a solved project context and emits findings.
type Detector interface {
	Meta() model.RuleMeta
	Analyze(ctx context.Context, pctx *analysis.ProjectContext, req model.ScanRequest) ([]model.Finding, error)
}

type Registry struct{ detectors []Detector }

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) Register(d Detector) { r.detectors = append(r.detectors, d) }

func (r *Registry) RegisterBuiltin() {
	r.Register(&intervalAnomalies{})
	r.Register(&defiRangeViolation{})
	r.Register(&flashloanCallback{})
	r.Register(&unboundedFlashloan{})
	r.Register(&uncheckedBalanceChange{})
}

func (r *Registry) Detectors() []Detector { return r.detectors }

// Run executes all detectors concurrently against the project context,
// bounded by CPU count. Detector errors drop that detector's findings
// rather than failing the scan.
func (r *Registry) Run(ctx context.Context, pctx *analysis.ProjectContext, req model.ScanRequest) []model.Finding {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		cpu = 2
	}
	type res struct{ fs []model.Finding }
	ch := make(chan res, len(r.detectors))
	var wg sync.WaitGroup
	sem := make(chan struct{}, cpu)
	for _, d := range r.detectors {
		d := d
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			fs, err := d.Analyze(ctx, pctx, req)
			if err != nil {
				ch <- res{}
				return
			}
			for i := range fs {
				fs[i].File = filepath.ToSlash(fs[i].File)
			}
			ch <- res{fs: fs}
		}()
	}
	wg.Wait()
	close(ch)
	var out []model.Finding
	for r := range ch {
		out = append(out, r.fs...)
	}
	return out
}
