package signal

import (
	"encoding/json"
	"strings"
)

// Signal is one collected or classified item.
type Signal struct {
	ID            string
	Title         string
	URL           string
	Keywords      []string
	Category      string
	CollectedAt   string
	PublishedDate string
	Source        string
	// PSSTScore is the trust/quality score assigned by the scoring stage.
	// HasPSST distinguishes an explicit 0 from an absent score.
	PSSTScore float64
	HasPSST   bool

	// Raw is the original JSON object, kept so filtered output can pass
	// signals through untouched.
	Raw json.RawMessage
}

// Indexable reports whether the signal carries enough text to be matched.
// Signals with neither a title nor a URL are always treated as new.
func (s Signal) Indexable() bool {
	return strings.TrimSpace(s.Title) != "" || strings.TrimSpace(s.URL) != ""
}

// HasTitle reports whether the signal has a non-blank title.
func (s Signal) HasTitle() bool {
	return strings.TrimSpace(s.Title) != ""
}

// MarshalJSON emits the original object when available so pass-through output
// preserves fields this package does not model.
func (s Signal) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	out := map[string]any{
		"id":    s.ID,
		"title": s.Title,
	}
	if s.URL != "" {
		out["url"] = s.URL
	}
	if len(s.Keywords) > 0 {
		out["keywords"] = s.Keywords
	}
	if s.Category != "" {
		out["category"] = s.Category
	}
	if s.CollectedAt != "" {
		out["collected_at"] = s.CollectedAt
	}
	if s.PublishedDate != "" {
		out["published_date"] = s.PublishedDate
	}
	if s.Source != "" {
		out["source"] = map[string]string{"name": s.Source}
	}
	if s.HasPSST {
		out["psst_score"] = s.PSSTScore
	}
	return json.Marshal(out)
}
