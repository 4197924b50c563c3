package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"envscan/internal/archive"
	"envscan/internal/config"
	"envscan/internal/evolution"
	"envscan/internal/logging"
	"envscan/internal/pipeline"
	"envscan/internal/signal"
)

func newTrackCommand(ctx *commandContext) *cobra.Command {
	var (
		signalsPath   string
		indexPath     string
		workflow      string
		scanDate      string
		outputPath    string
		signalsDBPath string
		rankedPath    string
		registryPath  string
		backupDir     string
		jsonOut       bool
		overrides     overrideFlags
	)

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Match a day's signals to evolution threads and write the evolution map",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("signals", signalsPath); err != nil {
				return err
			}
			if err := requireFlag("workflow", workflow); err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.loggerFor()

			reg, err := ctx.loadRegistry(registryPath)
			if err != nil {
				return err
			}
			evoCfg, err := evolution.ResolveConfig(overrides.tracking(cmd), reg)
			if err != nil {
				return err
			}

			if strings.TrimSpace(indexPath) == "" {
				indexPath = cfg.IndexPath(workflow)
			}
			if strings.TrimSpace(backupDir) == "" {
				backupDir = cfg.Evolution.BackupDir
			}
			if strings.TrimSpace(scanDate) == "" {
				scanDate = time.Now().Format(signal.DateLayout)
			}

			tracker := &evolution.Tracker{
				Config:   evoCfg,
				Store:    evolution.NewStore(indexPath, backupDir, logger),
				Workflow: workflow,
				Logger:   logger,
			}

			titles, closeTitles, err := titleSource(cfg, signalsDBPath, logger)
			if err != nil {
				return err
			}
			defer closeTitles()
			tracker.Titles = titles

			if rankedPath = firstSet(rankedPath, cfg.Evolution.PriorityRankedPath); rankedPath != "" {
				lookup, err := evolution.LoadPSSTLookup(rankedPath)
				if err != nil {
					logging.WarnWithContext(logger, "priority-ranked file unreadable", "psst_lookup_unavailable",
						logging.String("path", rankedPath),
						logging.Error(err),
						logging.String(logging.FieldImpact, "signals without pSST scores stay unscored"),
					)
				} else {
					tracker.PSST = lookup
				}
			}

			m, err := tracker.TrackFiles(commandContextFor(cmd), evolution.Request{
				SignalsPath: signalsPath,
				ScanDate:    scanDate,
				OutputPath:  outputPath,
			})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, m)
			}
			renderEvolutionMap(cmd, m, outputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&signalsPath, "signals", "", "Classified signals JSON for the scan date")
	cmd.Flags().StringVar(&indexPath, "index", "", "Thread index path (default: evolution index_dir/evolution-index-<workflow>.json)")
	cmd.Flags().StringVarP(&workflow, "workflow", "w", "", "Workflow name")
	cmd.Flags().StringVar(&scanDate, "scan-date", "", "Scan date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Evolution map output path")
	cmd.Flags().StringVar(&signalsDBPath, "signals-db", "", "Signals database JSON used to fill in missing titles")
	cmd.Flags().StringVar(&rankedPath, "priority-ranked", "", "Priority-ranked JSON used to fill in missing pSST scores")
	cmd.Flags().StringVar(&registryPath, "registry", "", "Workflow registry YAML (default: paths.registry_path)")
	cmd.Flags().StringVar(&backupDir, "backup-dir", "", "Directory for pre-run index backups (default: evolution backup_dir)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the evolution map as JSON")
	overrides.registerTracking(cmd)
	return cmd
}

// titleSource prefers an explicit signals database JSON, then the SQLite
// archive when one exists. The returned close func is always safe to call.
func titleSource(cfg *config.Config, signalsDBPath string, logger *slog.Logger) (evolution.TitleSource, func(), error) {
	noop := func() {}
	if path := firstSet(signalsDBPath, cfg.Evolution.SignalsDBPath); path != "" {
		titles, err := evolution.LoadSignalsDBTitles(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logging.WarnWithContext(logger, "signals database missing", "title_lookup_unavailable",
					logging.String("path", path),
					logging.String(logging.FieldImpact, "untitled signals keep their id as title"),
				)
				return nil, noop, nil
			}
			return nil, noop, pipeline.Wrap(pipeline.ErrCorruptInput, "evolution", "load signals db", path, err)
		}
		return titles, noop, nil
	}
	if cfg.Paths.ArchivePath == "" {
		return nil, noop, nil
	}
	if _, err := os.Stat(cfg.Paths.ArchivePath); err != nil {
		return nil, noop, nil
	}
	store, err := archive.Open(cfg.Paths.ArchivePath)
	if err != nil {
		return nil, noop, pipeline.Wrap(pipeline.ErrTransient, "archive", "open", cfg.Paths.ArchivePath, err)
	}
	return store, func() { _ = store.Close() }, nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func renderEvolutionMap(cmd *cobra.Command, m *evolution.Map, outputPath string) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	if !m.TrackingEnabled {
		fmt.Fprintln(out, renderStatusLine("Tracking", statusWarn, "disabled by workflow registry", colorize))
		return
	}
	s := m.Summary
	fmt.Fprintln(out, renderStatusLine("Tracking", statusOK,
		fmt.Sprintf("%s %s, %d signals, %d active threads", m.Workflow, m.ScanDate, s.TotalSignals, s.Active), colorize))

	rows := [][]string{
		{string(evolution.StateNew), strconv.Itoa(s.New)},
		{string(evolution.StateRecurring), strconv.Itoa(s.Recurring)},
		{string(evolution.StateStrengthening), strconv.Itoa(s.Strengthening)},
		{string(evolution.StateWeakening), strconv.Itoa(s.Weakening)},
		{string(evolution.StateTransformed), strconv.Itoa(s.Transformed)},
		{string(evolution.StateFaded), strconv.Itoa(s.Faded)},
	}
	fmt.Fprintln(out, renderTable([]string{"State", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))

	for _, e := range m.Entries {
		if e.State == evolution.StateRecurring {
			continue
		}
		fmt.Fprintln(out, renderStatusLine(e.ThreadID, stateKind(e.State), fmt.Sprintf("%s %s", e.State, e.CanonicalTitle), colorize))
	}
	for _, f := range m.Faded {
		fmt.Fprintln(out, renderStatusLine(f.ThreadID, stateKind(evolution.StateFaded), fmt.Sprintf("%s (%s)", evolution.StateFaded, f.Reason), colorize))
	}
	if outputPath != "" {
		fmt.Fprintf(out, "Evolution map written to %s\n", outputPath)
	}
}
