package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/xab-mack/solrange/internal/model"
)

type modelT struct {
	findings []model.Finding
	cursor   int
}

func initialModel(findings []model.Finding) modelT { return modelT{findings: findings} }

func (m modelT) Init() tea.Cmd { return nil }

func (m modelT) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.findings)-1 {
				m.cursor++
			}
		}
	}
	return m, nil
}

func (m modelT) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Range findings (%d)  [j/k move, q quit]\n\n", len(m.findings))
	for i, f := range m.findings {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%s [%s] %s:%d %s\n", marker, f.RuleID, f.Severity, f.File, f.StartLine, f.Message)
	}
	if len(m.findings) > 0 {
		f := m.findings[m.cursor]
		fmt.Fprintf(&b, "\n%s.%s", f.Contract, f.Function)
		if f.Variable != "" {
			fmt.Fprintf(&b, "  %s = %s", f.Variable, f.Interval)
		}
		fmt.Fprintf(&b, "  (confidence %.2f)\n", f.Confidence)
		if f.Snippet != "" {
			fmt.Fprintf(&b, "\n%s\n", f.Snippet)
		}
	}
	return b.String()
}

// Run launches the interactive findings browser.
func Run(findings []model.Finding) error {
	p := tea.NewProgram(initialModel(findings))
	_, err := p.Run()
	return err
}
