package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/xab-mack/solrange/internal/engine"
	"github.com/xab-mack/solrange/internal/logger"
	"github.com/xab-mack/solrange/internal/model"
	"github.com/xab-mack/solrange/internal/report"
	"github.com/xab-mack/solrange/internal/tui"
)

func AddCommands(root *cobra.Command) {
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newRulesCmd())
}

func newAnalyzeCmd() *cobra.Command {
	var (
		path          string
		format        string
		budgetMs      int
		failOn        string
		outputFile    string
		jsonOut       string
		sarifOut      string
		showSummary   bool
		debug         bool
		useTUI        bool
		noCache       bool
		baselinePath  string
		writeBaseline string
	)
	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Run interval range analysis over Solidity sources",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				path = "."
			}
			if debug {
				logger.SetDebug()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(budgetMs)*time.Millisecond)
			defer cancel()

			eng := engine.New()
			result, err := eng.Scan(ctx, model.ScanRequest{
				Path:       path,
				TimeBudget: time.Duration(budgetMs) * time.Millisecond,
				Baseline:   baselinePath,
				UseCache:   !noCache,
			})
			if err != nil {
				return err
			}

			if jsonOut != "" {
				data, err := report.ToRangeReport(result.Findings)
				if err != nil {
					return err
				}
				if err := os.WriteFile(jsonOut, data, 0o644); err != nil {
					return err
				}
			}
			if useTUI {
				return tui.Run(result.Findings)
			}
			switch format {
			case "json":
				data, _ := json.MarshalIndent(result, "", "  ")
				if outputFile != "" {
					return os.WriteFile(outputFile, data, 0o644)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			case "sarif":
				data, _ := report.ToSARIF(result.Findings)
				if sarifOut != "" {
					return os.WriteFile(sarifOut, data, 0o644)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Findings: %d (elapsed %s)\n", len(result.Findings), result.Elapsed)
				for _, f := range result.Findings {
					fmt.Fprintf(cmd.OutOrStdout(), "- %s [%s] %s:%d %s", f.RuleID, f.Severity, f.File, f.StartLine, f.Message)
					if f.Interval != "" {
						fmt.Fprintf(cmd.OutOrStdout(), " interval=%s", f.Interval)
					}
					fmt.Fprintf(cmd.OutOrStdout(), " (conf=%.2f)\n", f.Confidence)
				}
			}
			if showSummary {
				data, err := report.SummaryJSON(result.Summary)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			}

			if writeBaseline != "" {
				if err := engine.WriteBaseline(writeBaseline, result.Findings); err != nil {
					return err
				}
			}
			if failOn != "" {
				threshold := model.ParseSeverity(failOn)
				for _, f := range result.Findings {
					if model.SeverityGTE(f.Severity, threshold) {
						return fmt.Errorf("fail-on threshold met: %s", f.Severity)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table|json|sarif")
	cmd.Flags().IntVar(&budgetMs, "budget-ms", 30000, "Time budget for the analysis in milliseconds")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Fail if a finding of severity or higher is found (low|medium|high|critical)")
	cmd.Flags().StringVarP(&outputFile, "out", "o", "", "Write full report to file (with --format json)")
	cmd.Flags().StringVar(&jsonOut, "json", "", "Write the compact range-violation report to file")
	cmd.Flags().StringVar(&sarifOut, "sarif-out", "", "Write SARIF report to file (with --format sarif)")
	cmd.Flags().BoolVar(&showSummary, "summary", false, "Print the per-function interval summary")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Render interactive TUI output")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the scan result cache")
	cmd.Flags().StringVar(&baselinePath, "baseline", "", "Suppress findings recorded in a baseline file")
	cmd.Flags().StringVar(&writeBaseline, "write-baseline", "", "Write a baseline file with finding fingerprints")
	return cmd
}
