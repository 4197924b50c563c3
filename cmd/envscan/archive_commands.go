package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"envscan/internal/archive"
	"envscan/internal/fileutil"
	"envscan/internal/pipeline"
	"envscan/internal/signal"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage the SQLite signals archive",
	}
	cmd.AddCommand(newArchiveImportCommand(ctx))
	cmd.AddCommand(newArchiveExportCommand(ctx))
	cmd.AddCommand(newArchiveStatsCommand(ctx))
	return cmd
}

func (c *commandContext) openArchive() (*archive.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := archive.Open(cfg.Paths.ArchivePath)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrTransient, "archive", "open", cfg.Paths.ArchivePath, err)
	}
	return store, nil
}

func newArchiveImportCommand(ctx *commandContext) *cobra.Command {
	var (
		filePath string
		scanDate string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Record a day's signals in the archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("file", filePath); err != nil {
				return err
			}
			if strings.TrimSpace(scanDate) == "" {
				scanDate = time.Now().Format(signal.DateLayout)
			}
			if _, err := signal.ParseDate(scanDate); err != nil {
				return pipeline.Wrap(pipeline.ErrValidation, "cli", "parse flags", "--scan-date", err)
			}
			signals, err := signal.LoadBatch(filePath)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return pipeline.Wrap(pipeline.ErrNotFound, "archive", "load signals", filePath, err)
				}
				return pipeline.Wrap(pipeline.ErrCorruptInput, "archive", "load signals", filePath, err)
			}

			store, err := ctx.openArchive()
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := store.Import(commandContextFor(cmd), signals, scanDate)
			if err != nil {
				return pipeline.Wrap(pipeline.ErrTransient, "archive", "import", filePath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s signals for %s (%s already archived, %s without id)\n",
				humanize.Comma(int64(res.Added)), scanDate,
				humanize.Comma(int64(res.Skipped)), humanize.Comma(int64(res.MissingID)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Signals JSON to import")
	cmd.Flags().StringVar(&scanDate, "scan-date", "", "Scan date YYYY-MM-DD (default: today)")
	return cmd
}

func newArchiveExportCommand(ctx *commandContext) *cobra.Command {
	var (
		days       int
		outputPath string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recent signals as a previous-signals file for the dedup gate",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 {
				return pipeline.Wrap(pipeline.ErrValidation, "cli", "parse flags", "--days must be >= 0", nil)
			}
			store, err := ctx.openArchive()
			if err != nil {
				return err
			}
			defer store.Close()

			export, err := store.Export(commandContextFor(cmd), days, time.Now())
			if err != nil {
				return pipeline.Wrap(pipeline.ErrTransient, "archive", "export", store.Path(), err)
			}
			if strings.TrimSpace(outputPath) == "" {
				return writeJSON(cmd, export)
			}
			if err := fileutil.WriteJSONAtomic(outputPath, export); err != nil {
				return pipeline.Wrap(pipeline.ErrTransient, "archive", "write export", outputPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s signals to %s\n", humanize.Comma(int64(len(export.Signals))), outputPath)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Export signals scanned within this many days")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (default: stdout)")
	return cmd
}

func newArchiveStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize archived signals by source and category",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openArchive()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(commandContextFor(cmd))
			if err != nil {
				return pipeline.Wrap(pipeline.ErrTransient, "archive", "stats", store.Path(), err)
			}
			if jsonOut {
				return writeJSON(cmd, stats)
			}

			out := cmd.OutOrStdout()
			span := "empty"
			if stats.Total > 0 {
				span = stats.FirstScan + " to " + stats.LastScan
			}
			fmt.Fprintf(out, "%s signals (%s)\n", humanize.Comma(int64(stats.Total)), span)
			for _, section := range []struct {
				title  string
				counts []archive.Count
			}{
				{"Source", stats.BySource},
				{"Category", stats.ByCategory},
			} {
				if len(section.counts) == 0 {
					continue
				}
				rows := make([][]string, 0, len(section.counts))
				for _, c := range section.counts {
					rows = append(rows, []string{c.Name, strconv.Itoa(c.Count)})
				}
				fmt.Fprintln(out, renderTable([]string{section.title, "Signals"}, rows, []columnAlignment{alignLeft, alignRight}))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print stats as JSON")
	return cmd
}
