package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"envscan/internal/config"
	"envscan/internal/dedup"
	"envscan/internal/pipeline"
)

func newDedupCommand(ctx *commandContext) *cobra.Command {
	var (
		newPath      string
		previousPath string
		outputPath   string
		filteredPath string
		workflow     string
		enforce      string
		lookbackDays int
		jsonOut      bool
	)

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Run the cross-day dedup gate over a day's signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("new", newPath); err != nil {
				return err
			}
			if err := requireFlag("previous", previousPath); err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			gate := dedup.NewGate(cfg, workflow, ctx.loggerFor())
			if cmd.Flags().Changed("enforce") {
				mode := strings.ToLower(strings.TrimSpace(enforce))
				if mode != config.EnforceStrict && mode != config.EnforceLenient {
					return pipeline.Wrap(pipeline.ErrValidation, "cli", "parse flags",
						fmt.Sprintf("--enforce must be %q or %q", config.EnforceStrict, config.EnforceLenient), nil)
				}
				gate.Enforce = mode
			}
			if cmd.Flags().Changed("lookback-days") {
				if lookbackDays < 0 {
					return pipeline.Wrap(pipeline.ErrValidation, "cli", "parse flags", "--lookback-days must be >= 0", nil)
				}
				gate.LookbackDays = lookbackDays
			}

			res, err := gate.RunFiles(commandContextFor(cmd), dedup.Request{
				SignalsPath:  newPath,
				PreviousPath: previousPath,
				OutputPath:   outputPath,
				FilteredPath: filteredPath,
			})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, res.Report)
			}
			renderGateReport(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&newPath, "new", "", "Classified signals JSON for today")
	cmd.Flags().StringVar(&previousPath, "previous", "", "Previous signals export JSON")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Gate report output path")
	cmd.Flags().StringVar(&filteredPath, "filtered", "", "Filtered signals output path (default: beside the report)")
	cmd.Flags().StringVarP(&workflow, "workflow", "w", "", "Workflow name recorded in the report")
	cmd.Flags().StringVar(&enforce, "enforce", config.EnforceStrict, "strict removes definite duplicates, lenient only reports them")
	cmd.Flags().IntVar(&lookbackDays, "lookback-days", 0, "Only compare against history collected within this many days (0 disables)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the gate report as JSON")
	return cmd
}

func renderGateReport(cmd *cobra.Command, res *dedup.Outputs) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	report := res.Report
	stats := report.Statistics

	fmt.Fprintln(out, renderStatusLine("Gate", gateStatusKind(report.Status), report.Status+": "+report.Message, colorize))
	fmt.Fprintln(out, renderStatusLine("Input", statusInfo,
		fmt.Sprintf("%d signals, history %d, ambiguous URLs %d", stats.TotalInput, report.HistorySize, report.AmbiguousURLs), colorize))
	fmt.Fprintln(out, renderStatusLine("Pass-through", statusInfo,
		fmt.Sprintf("%d (removed %d, uncertain %d)", stats.PassThrough, stats.Removed, stats.Uncertain), colorize))
	for _, w := range report.Warnings {
		fmt.Fprintln(out, renderStatusLine("Warning", statusWarn, w, colorize))
	}

	rows := make([][]string, 0, len(dedup.Stages))
	for _, stage := range dedup.Stages {
		rows = append(rows, []string{string(stage), strconv.Itoa(report.StageBreakdown[stage])})
	}
	fmt.Fprintln(out, renderTable([]string{"Stage", "Duplicates"}, rows, []columnAlignment{alignLeft, alignRight}))

	if len(report.Duplicates) > 0 {
		dupRows := make([][]string, 0, len(report.Duplicates))
		for _, m := range report.Duplicates {
			dupRows = append(dupRows, []string{m.SignalID, m.MatchedSignalID, string(m.Stage), strconv.FormatFloat(m.Score, 'f', 4, 64)})
		}
		fmt.Fprintln(out, renderTable([]string{"Signal", "Matched", "Stage", "Score"}, dupRows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
	}
	if res.FilteredPath != "" {
		fmt.Fprintf(out, "Filtered signals written to %s\n", res.FilteredPath)
	}
}
