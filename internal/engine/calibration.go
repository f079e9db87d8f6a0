package engine

import "github.com/xab-mack/solrange/internal/model"

// calibrateFindings merges duplicate findings at the same location and
// bumps confidence when independent detectors corroborate each other.
func calibrateFindings(in []model.Finding) []model.Finding {
	type key struct {
		file  string
		start int
		rule  string
	}
	groups := map[key][]model.Finding{}
	var order []key
	for _, f := range in {
		k := key{file: f.File, start: f.StartLine, rule: f.RuleID}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], f)
	}
	var out []model.Finding
	for _, k := range order {
		fs := groups[k]
		if len(fs) == 1 {
			out = append(out, fs[0])
			continue
		}
		merged := fs[0]
		maxSev := merged.Severity
		totalConf := 0.0
		for _, f := range fs {
			if model.SeverityGTE(f.Severity, maxSev) {
				maxSev = f.Severity
			}
			totalConf += f.Confidence
		}
		merged.Severity = maxSev
		merged.Confidence = totalConf/float64(len(fs)) + 0.1
		if merged.Confidence > 0.99 {
			merged.Confidence = 0.99
		}
		out = append(out, merged)
	}
	return out
}
