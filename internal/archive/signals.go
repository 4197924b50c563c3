package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"envscan/internal/dedup"
	"envscan/internal/signal"
)

// lookupChunk bounds the number of ids bound into one IN clause.
const lookupChunk = 500

const signalColumns = "id, title, url, category, source, keywords_json, psst_score, collected_at, published_date, raw_json"

// ImportResult summarizes one import.
type ImportResult struct {
	Added      int      `json:"added"`
	Skipped    int      `json:"skipped"`
	MissingID  int      `json:"missing_id"`
	SkippedIDs []string `json:"skipped_ids,omitempty"`
}

// Import inserts signals recorded for scanDate. Ids already archived are
// skipped rather than replaced; signals without an id cannot be archived.
// Concurrent importers serialize on <archive>.lock.
func (s *Store) Import(ctx context.Context, signals []signal.Signal, scanDate string) (ImportResult, error) {
	ctx = ensureContext(ctx)
	if _, err := signal.ParseDate(scanDate); err != nil {
		return ImportResult{}, fmt.Errorf("import scan date: %w", err)
	}

	lock := flock.New(s.path + ".lock")
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return ImportResult{}, fmt.Errorf("acquire archive lock: %w", err)
	}
	if !locked {
		return ImportResult{}, fmt.Errorf("acquire archive lock: %s is held", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	var result ImportResult
	addedAt := s.now().Format(time.RFC3339)
	err = retryOnBusy(ctx, func() error {
		result = ImportResult{}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO signals
			(id, title, url, category, source, keywords_json, psst_score, collected_at, published_date, scan_date, added_at, raw_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, sig := range signals {
			if strings.TrimSpace(sig.ID) == "" {
				result.MissingID++
				continue
			}
			keywords := sig.Keywords
			if keywords == nil {
				keywords = []string{}
			}
			kwJSON, err := json.Marshal(keywords)
			if err != nil {
				return fmt.Errorf("encode keywords for %s: %w", sig.ID, err)
			}
			var psst sql.NullFloat64
			if sig.HasPSST {
				psst = sql.NullFloat64{Float64: sig.PSSTScore, Valid: true}
			}
			raw, err := json.Marshal(sig)
			if err != nil {
				return fmt.Errorf("encode signal %s: %w", sig.ID, err)
			}

			res, err := stmt.ExecContext(ctx,
				sig.ID, sig.Title, sig.URL, sig.Category, sig.Source, string(kwJSON), psst,
				sig.CollectedAt, sig.PublishedDate, scanDate, addedAt, string(raw),
			)
			if err != nil {
				return fmt.Errorf("insert signal %s: %w", sig.ID, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				result.Skipped++
				result.SkippedIDs = append(result.SkippedIDs, sig.ID)
				continue
			}
			result.Added++
		}
		return tx.Commit()
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("import signals: %w", err)
	}
	return result, nil
}

// Titles returns the archived, non-blank titles for ids.
func (s *Store) Titles(ctx context.Context, ids []string) (map[string]string, error) {
	ctx = ensureContext(ctx)
	out := make(map[string]string, len(ids))
	for start := 0; start < len(ids); start += lookupChunk {
		chunk := ids[start:min(start+lookupChunk, len(ids))]
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		rows, err := s.db.QueryContext(ctx,
			"SELECT id, title FROM signals WHERE title <> '' AND id IN ("+placeholders+")", args...)
		if err != nil {
			return nil, fmt.Errorf("query titles: %w", err)
		}
		for rows.Next() {
			var id, title string
			if err := rows.Scan(&id, &title); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan title: %w", err)
			}
			out[id] = title
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// Recent returns signals whose scan date falls within the last days days of
// now, oldest first. days <= 0 returns the whole archive.
func (s *Store) Recent(ctx context.Context, days int, now time.Time) ([]signal.Signal, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + signalColumns + " FROM signals"
	var args []any
	if days > 0 {
		cutoff := now.UTC().AddDate(0, 0, -days).Format(signal.DateLayout)
		query += " WHERE scan_date >= ?"
		args = append(args, cutoff)
	}
	query += " ORDER BY scan_date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent signals: %w", err)
	}
	defer rows.Close()

	var out []signal.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func scanSignal(scanner interface{ Scan(dest ...any) error }) (signal.Signal, error) {
	var (
		sig     signal.Signal
		kwJSON  string
		psst    sql.NullFloat64
		rawJSON sql.NullString
	)
	if err := scanner.Scan(&sig.ID, &sig.Title, &sig.URL, &sig.Category, &sig.Source,
		&kwJSON, &psst, &sig.CollectedAt, &sig.PublishedDate, &rawJSON); err != nil {
		return signal.Signal{}, fmt.Errorf("scan signal: %w", err)
	}
	if err := json.Unmarshal([]byte(kwJSON), &sig.Keywords); err != nil {
		return signal.Signal{}, fmt.Errorf("decode keywords for %s: %w", sig.ID, err)
	}
	if psst.Valid {
		sig.PSSTScore, sig.HasPSST = psst.Float64, true
	}
	if rawJSON.Valid && rawJSON.String != "" {
		sig.Raw = json.RawMessage(rawJSON.String)
	}
	return sig, nil
}

// Count is one bucket of a Stats breakdown.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats summarizes the archive.
type Stats struct {
	Total      int     `json:"total"`
	FirstScan  string  `json:"first_scan_date,omitempty"`
	LastScan   string  `json:"last_scan_date,omitempty"`
	BySource   []Count `json:"by_source"`
	ByCategory []Count `json:"by_category"`
}

// Stats counts archived signals per source and per category. Buckets are
// ordered by count, then name.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var (
		st          Stats
		first, last sql.NullString
	)
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1), MIN(scan_date), MAX(scan_date) FROM signals").Scan(&st.Total, &first, &last); err != nil {
		return Stats{}, fmt.Errorf("count signals: %w", err)
	}
	st.FirstScan, st.LastScan = first.String, last.String

	var err error
	if st.BySource, err = s.countBy(ctx, "source"); err != nil {
		return Stats{}, err
	}
	if st.ByCategory, err = s.countBy(ctx, "category"); err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *Store) countBy(ctx context.Context, column string) ([]Count, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT CASE WHEN "+column+" = '' THEN 'unknown' ELSE "+column+" END AS bucket, COUNT(1) FROM signals GROUP BY bucket")
	if err != nil {
		return nil, fmt.Errorf("count by %s: %w", column, err)
	}
	defer rows.Close()

	out := []Count{}
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("scan %s count: %w", column, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// HistoryExport is the previous-signals document the dedup gate reads.
type HistoryExport struct {
	ExportedAt time.Time         `json:"exported_at"`
	Days       int               `json:"lookback_days"`
	Signals    []signal.Signal   `json:"signals"`
	URLIndex   map[string]string `json:"url_index"`
}

// Export builds a previous-signals document from the last days days. The
// url index leaves out URLs shared by more than one signal.
func (s *Store) Export(ctx context.Context, days int, now time.Time) (*HistoryExport, error) {
	signals, err := s.Recent(ctx, days, now)
	if err != nil {
		return nil, err
	}
	if signals == nil {
		signals = []signal.Signal{}
	}
	idx := dedup.BuildIndex(signals, dedup.Options{})
	return &HistoryExport{
		ExportedAt: now.UTC(),
		Days:       days,
		Signals:    signals,
		URLIndex:   idx.URLIndex(),
	}, nil
}
