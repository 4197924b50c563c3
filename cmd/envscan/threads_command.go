package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"envscan/internal/evolution"
	"envscan/internal/pipeline"
)

func newThreadsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "Inspect evolution thread indexes",
	}
	cmd.AddCommand(newThreadsListCommand(ctx))
	return cmd
}

// threadRow is the JSON shape of one listed thread.
type threadRow struct {
	ID              string          `json:"thread_id"`
	CanonicalTitle  string          `json:"canonical_title"`
	State           evolution.State `json:"state"`
	PrimaryCategory string          `json:"primary_category"`
	AppearanceCount int             `json:"appearance_count"`
	CreatedDate     string          `json:"created_date"`
	LastSeenDate    string          `json:"last_seen_date"`
}

func newThreadsListCommand(ctx *commandContext) *cobra.Command {
	var (
		indexPath string
		workflow  string
		state     string
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List threads in a workflow index",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(indexPath) == "" {
				if strings.TrimSpace(workflow) == "" {
					return pipeline.Wrap(pipeline.ErrValidation, "cli", "parse flags", "--index or --workflow is required", nil)
				}
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				indexPath = cfg.IndexPath(workflow)
			}
			filter := evolution.State(strings.ToUpper(strings.TrimSpace(state)))

			idx, err := evolution.LoadIndexFile(indexPath)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return pipeline.Wrap(pipeline.ErrNotFound, "evolution", "load index", indexPath, err)
				}
				return err
			}
			rows := make([]threadRow, 0, len(idx.Threads))
			for _, id := range idx.SortedIDs() {
				t := idx.Threads[id]
				if filter != "" && t.State != filter {
					continue
				}
				rows = append(rows, threadRow{
					ID:              id,
					CanonicalTitle:  t.CanonicalTitle,
					State:           t.State,
					PrimaryCategory: t.PrimaryCategory,
					AppearanceCount: t.AppearanceCount,
					CreatedDate:     t.CreatedDate,
					LastSeenDate:    t.LastSeenDate,
				})
			}

			if jsonOut {
				return writeJSON(cmd, rows)
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No threads")
				return nil
			}
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{
					r.ID, r.CanonicalTitle, string(r.State), r.PrimaryCategory,
					strconv.Itoa(r.AppearanceCount), r.LastSeenDate,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Thread", "Title", "State", "Category", "Seen", "Last seen"}, table,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d of %d threads (%d active)\n", len(rows), idx.TotalThreads, idx.ActiveThreads)
			return nil
		},
	}

	cmd.Flags().StringVar(&indexPath, "index", "", "Thread index path")
	cmd.Flags().StringVarP(&workflow, "workflow", "w", "", "Workflow whose configured index to read")
	cmd.Flags().StringVar(&state, "state", "", "Only list threads in this state")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print threads as JSON")
	return cmd
}
