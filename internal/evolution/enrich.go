package evolution

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"envscan/internal/signal"
)

// TitleSource resolves titles for signals that arrived without one.
type TitleSource interface {
	Titles(ctx context.Context, ids []string) (map[string]string, error)
}

// StaticTitles is an in-memory TitleSource.
type StaticTitles map[string]string

// Titles returns the known titles among ids.
func (s StaticTitles) Titles(_ context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if title, ok := s[id]; ok {
			out[id] = title
		}
	}
	return out, nil
}

// LoadSignalsDBTitles builds a title lookup from a signals database JSON
// export ({"signals": [...]} or a bare list).
func LoadSignalsDBTitles(path string) (StaticTitles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signals db: %w", err)
	}
	hist, err := signal.DecodeHistory(data)
	if err != nil {
		return nil, fmt.Errorf("decode signals db: %w", err)
	}
	out := make(StaticTitles, len(hist.Signals))
	for _, sig := range hist.Signals {
		if sig.ID == "" || !sig.HasTitle() {
			continue
		}
		if _, seen := out[sig.ID]; !seen {
			out[sig.ID] = sig.Title
		}
	}
	return out, nil
}

// LoadPSSTLookup reads signal id to pSST score pairs from a priority-ranked
// file. Signals may sit under ranked_signals or signals, keyed by id or
// signal_id, scored under psst_score or pSST_score.
func LoadPSSTLookup(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read priority-ranked file: %w", err)
	}
	var doc struct {
		Ranked  json.RawMessage `json:"ranked_signals"`
		Signals json.RawMessage `json:"signals"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode priority-ranked file: %w", err)
	}
	items := doc.Ranked
	if len(items) == 0 || string(items) == "null" {
		items = doc.Signals
	}
	if len(items) == 0 || string(items) == "null" {
		return map[string]float64{}, nil
	}
	ranked, err := signal.DecodeSignals(items)
	if err != nil {
		return nil, fmt.Errorf("decode priority-ranked signals: %w", err)
	}

	out := make(map[string]float64, len(ranked))
	for _, sig := range ranked {
		if !sig.HasPSST {
			continue
		}
		id := sig.ID
		if id == "" {
			var alt struct {
				SignalID string `json:"signal_id"`
			}
			_ = json.Unmarshal(sig.Raw, &alt)
			id = strings.TrimSpace(alt.SignalID)
		}
		if id != "" {
			out[id] = sig.PSSTScore
		}
	}
	return out, nil
}
