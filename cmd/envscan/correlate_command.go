package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"envscan/internal/config"
	"envscan/internal/evolution"
	"envscan/internal/pipeline"
)

func newCorrelateCommand(ctx *commandContext) *cobra.Command {
	var (
		indexSpecs   []string
		outputPath   string
		registryPath string
		jsonOut      bool
		overrides    overrideFlags
	)

	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Correlate evolution threads across workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			files, err := indexFiles(cfg, indexSpecs)
			if err != nil {
				return err
			}
			reg, err := ctx.loadRegistry(registryPath)
			if err != nil {
				return err
			}
			evoCfg, err := evolution.ResolveConfig(overrides.correlation(cmd), reg)
			if err != nil {
				return err
			}

			report, err := evolution.CorrelateFiles(commandContextFor(cmd), files, evoCfg.Correlation, outputPath, time.Now(), ctx.loggerFor())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, report)
			}
			renderCorrelations(cmd, report, outputPath)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&indexSpecs, "index", nil, "Workflow index as workflow=path (repeatable; default: configured workflows)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Correlation report output path")
	cmd.Flags().StringVar(&registryPath, "registry", "", "Workflow registry YAML (default: paths.registry_path)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the correlation report as JSON")
	overrides.registerCorrelation(cmd)
	return cmd
}

// indexFiles parses workflow=path specs, or falls back to the configured
// workflow list in order.
func indexFiles(cfg *config.Config, specs []string) ([]evolution.IndexFile, error) {
	if len(specs) == 0 {
		files := make([]evolution.IndexFile, 0, len(cfg.Evolution.Workflows))
		for _, wf := range cfg.Evolution.Workflows {
			files = append(files, evolution.IndexFile{Workflow: wf, Path: cfg.IndexPath(wf)})
		}
		return files, nil
	}
	files := make([]evolution.IndexFile, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		wf, path, ok := strings.Cut(spec, "=")
		wf, path = strings.TrimSpace(wf), strings.TrimSpace(path)
		if !ok || wf == "" || path == "" {
			return nil, pipeline.Wrap(pipeline.ErrValidation, "cli", "parse flags",
				fmt.Sprintf("--index %q must be workflow=path", spec), nil)
		}
		if _, dup := seen[wf]; dup {
			return nil, pipeline.Wrap(pipeline.ErrValidation, "cli", "parse flags",
				fmt.Sprintf("workflow %q given twice", wf), nil)
		}
		seen[wf] = struct{}{}
		files = append(files, evolution.IndexFile{Workflow: wf, Path: path})
	}
	return files, nil
}

func renderCorrelations(cmd *cobra.Command, report *evolution.CorrelationReport, outputPath string) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	if !report.Enabled {
		fmt.Fprintln(out, renderStatusLine("Correlation", statusWarn, "disabled by workflow registry", colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine("Correlation", statusOK,
		fmt.Sprintf("%d correlations across %s", report.TotalCorrelations, strings.Join(report.Workflows, ", ")), colorize))
	if len(report.Correlations) > 0 {
		rows := make([][]string, 0, len(report.Correlations))
		for _, c := range report.Correlations {
			rows = append(rows, []string{
				c.SourceWorkflow + " " + c.SourceThreadID,
				c.TargetWorkflow + " " + c.TargetThreadID,
				strconv.FormatFloat(c.CombinedScore, 'f', 3, 64),
				string(c.Confidence),
				strconv.Itoa(c.LeadDays),
			})
		}
		fmt.Fprintln(out, renderTable([]string{"Source", "Target", "Score", "Confidence", "Lead days"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight}))
	}
	if outputPath != "" {
		fmt.Fprintf(out, "Correlation report written to %s\n", outputPath)
	}
}
