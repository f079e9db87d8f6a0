package report

import (
	"encoding/json"

	"github.com/xab-mack/solrange/internal/model"
)

type sarif struct {
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}
type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules,omitempty"`
}
type sarifRule struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type sarifResult struct {
	RuleID    string       `json:"ruleId"`
	Level     string       `json:"level"`
	Message   sarifMessage `json:"message"`
	Locations []sarifLoc   `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}
type sarifLoc struct {
	Physical sarifPhys `json:"physicalLocation"`
}
type sarifPhys struct {
	ArtifactLocation sarifArt    `json:"artifactLocation"`
	Region           sarifRegion `json:"region"`
}
type sarifArt struct {
	URI string `json:"uri"`
}
type sarifRegion struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

func ToSARIF(findings []model.Finding) ([]byte, error) {
	var results []sarifResult
	ruleSeen := map[string]bool{}
	var rules []sarifRule
	for _, f := range findings {
		level := "note"
		switch f.Severity {
		case model.SeverityLow:
			level = "note"
		case model.SeverityMedium:
			level = "warning"
		case model.SeverityHigh, model.SeverityCritical:
			level = "error"
		}
		if !ruleSeen[f.RuleID] {
			ruleSeen[f.RuleID] = true
			rules = append(rules, sarifRule{ID: f.RuleID})
		}
		msg := f.Message
		if f.Interval != "" {
			msg += " (interval " + f.Interval + ")"
		}
		results = append(results, sarifResult{
			RuleID:  f.RuleID,
			Level:   level,
			Message: sarifMessage{Text: msg},
			Locations: []sarifLoc{{Physical: sarifPhys{
				ArtifactLocation: sarifArt{URI: f.File},
				Region:           sarifRegion{StartLine: f.StartLine, EndLine: f.EndLine},
			}}},
		})
	}
	s := sarif{Version: "2.1.0", Runs: []sarifRun{{
		Tool:    sarifTool{Driver: sarifDriver{Name: "solrange", Rules: rules}},
		Results: results,
	}}}
	return json.MarshalIndent(s, "", "  ")
}
