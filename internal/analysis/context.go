package analysis

import (
	"github.com/xab-mack/solrange/internal/solidity"
)

// ProjectContext is the shared view of a scanned project handed to
// detectors: discovered files, their contents, parsed units and the
// solved interval results.
type ProjectContext struct {
	RootPath     string
	Files        []string
	FileContents map[string]string
	Units        map[string]*solidity.Unit
	Results      *Results
}

// Unit returns the parsed unit for a file, or nil.
func (p *ProjectContext) Unit(file string) *solidity.Unit {
	return p.Units[file]
}

// EachContract walks every contract of every unit in file order.
func (p *ProjectContext) EachContract(visit func(file string, u *solidity.Unit, c *solidity.Contract)) {
	for _, f := range p.Files {
		u := p.Units[f]
		if u == nil {
			continue
		}
		for _, c := range u.Contracts {
			visit(f, u, c)
		}
	}
}

// Contract finds a contract by name across all units.
func (p *ProjectContext) Contract(name string) (*solidity.Contract, string) {
	for _, f := range p.Files {
		u := p.Units[f]
		if u == nil {
			continue
		}
		for _, c := range u.Contracts {
			if c.Name == name {
				return c, f
			}
		}
	}
	return nil, ""
}
