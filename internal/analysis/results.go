package analysis

import (
	"sort"

	"github.com/xab-mack/solrange/internal/interval"
)

// Results aggregates solved functions across one or more units, keyed
// by "Contract.function".
type Results struct {
	Functions map[string]*FunctionResult
	order     []string
}

func NewResults() *Results {
	return &Results{Functions: map[string]*FunctionResult{}}
}

func key(contract, fn string) string { return contract + "." + fn }

func (r *Results) Add(fr *FunctionResult) {
	k := key(fr.Contract, fr.Function)
	if _, ok := r.Functions[k]; !ok {
		r.order = append(r.order, k)
	}
	r.Functions[k] = fr
}

// Merge folds another result set in; later entries win on key clashes.
func (r *Results) Merge(o *Results) {
	if o == nil {
		return
	}
	for _, k := range o.order {
		if _, ok := r.Functions[k]; !ok {
			r.order = append(r.order, k)
		}
		r.Functions[k] = o.Functions[k]
	}
}

// Each visits solved functions in insertion order.
func (r *Results) Each(visit func(*FunctionResult)) {
	for _, k := range r.order {
		visit(r.Functions[k])
	}
}

func (r *Results) Function(contract, fn string) *FunctionResult {
	return r.Functions[key(contract, fn)]
}

// GetInterval returns the solved interval of a variable at function
// exit, falling back to the entry state for parameters never written.
func (r *Results) GetInterval(contract, fn, variable string) (interval.Interval, bool) {
	fr := r.Function(contract, fn)
	if fr == nil {
		return interval.Top(), false
	}
	if iv, ok := fr.Exit[variable]; ok {
		return iv, true
	}
	if iv, ok := fr.Entry[variable]; ok {
		return iv, true
	}
	return interval.Top(), false
}

// Violations returns all range violations in insertion order.
func (r *Results) Violations() []Violation {
	var out []Violation
	for _, k := range r.order {
		out = append(out, r.Functions[k].Violations...)
	}
	return out
}

// FunctionSummary is the JSON shape of one function in the summary
// export: parameter and return intervals as decimal range strings.
type FunctionSummary struct {
	Params map[string]string `json:"params"`
	Return map[string]string `json:"return"`
}

// ExportSummary renders the solved intervals per function. Keys are
// "Contract.function"; keys within are variable names, with the
// anonymous return slot exported as "value".
func (r *Results) ExportSummary() map[string]FunctionSummary {
	out := make(map[string]FunctionSummary, len(r.Functions))
	keys := append([]string(nil), r.order...)
	sort.Strings(keys)
	for _, k := range keys {
		fr := r.Functions[k]
		fs := FunctionSummary{Params: map[string]string{}, Return: map[string]string{}}
		for name := range fr.Entry {
			iv, _ := r.GetInterval(fr.Contract, fr.Function, name)
			fs.Params[name] = iv.String()
		}
		if iv, ok := fr.Exit[retKey]; ok {
			fs.Return["value"] = iv.String()
		}
		out[k] = fs
	}
	return out
}
