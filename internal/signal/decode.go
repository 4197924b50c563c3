package signal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// batchKeys are the object keys that may hold a batch of signals, in lookup order.
var batchKeys = []string{"classified_signals", "items", "signals", "new_signals"}

// flexString accepts JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// flexFloat accepts JSON numbers and numeric strings. Valid is false for null
// or absent values.
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = flexFloat{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*f = flexFloat{}
			return nil
		}
		*f = flexFloat{Value: v, Valid: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat{Value: v, Valid: true}
	return nil
}

// flexStrings accepts a list of strings or a single comma-separated string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*f = out
		return nil
	}
	var items []flexString
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(string(item)); s != "" {
			out = append(out, s)
		}
	}
	*f = out
	return nil
}

// wireSource accepts either a source object or a bare source name.
type wireSource struct {
	Name          string
	URL           string
	PublishedDate string
}

func (w *wireSource) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &w.Name)
	}
	var obj struct {
		Name          string `json:"name"`
		URL           string `json:"url"`
		PublishedDate string `json:"published_date"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	w.Name, w.URL, w.PublishedDate = obj.Name, obj.URL, obj.PublishedDate
	return nil
}

type wireSignal struct {
	ID       flexString  `json:"id"`
	Title    string      `json:"title"`
	URL      string      `json:"url"`
	Keywords flexStrings `json:"keywords"`
	Content  *struct {
		Keywords flexStrings `json:"keywords"`
	} `json:"content"`
	FinalCategory       string     `json:"final_category"`
	PreliminaryCategory string     `json:"preliminary_category"`
	Category            string     `json:"category"`
	SteepsCategory      string     `json:"steeps_category"`
	CollectedAt         string     `json:"collected_at"`
	PublishedDate       string     `json:"published_date"`
	Source              wireSource `json:"source"`
	PSSTScore           flexFloat  `json:"psst_score"`
	PSSTScoreAlt        flexFloat  `json:"pSST_score"`
}

func (w wireSignal) canonical(raw json.RawMessage) Signal {
	sig := Signal{
		ID:            strings.TrimSpace(string(w.ID)),
		Title:         strings.TrimSpace(w.Title),
		URL:           strings.TrimSpace(w.URL),
		CollectedAt:   strings.TrimSpace(w.CollectedAt),
		PublishedDate: strings.TrimSpace(w.PublishedDate),
		Source:        strings.TrimSpace(w.Source.Name),
		Raw:           raw,
	}
	if sig.URL == "" {
		sig.URL = strings.TrimSpace(w.Source.URL)
	}
	if sig.PublishedDate == "" {
		sig.PublishedDate = strings.TrimSpace(w.Source.PublishedDate)
	}
	if w.Content != nil && len(w.Content.Keywords) > 0 {
		sig.Keywords = []string(w.Content.Keywords)
	} else {
		sig.Keywords = []string(w.Keywords)
	}
	sig.Category = firstNonEmpty(w.FinalCategory, w.PreliminaryCategory, w.Category, w.SteepsCategory)
	switch {
	case w.PSSTScore.Valid:
		sig.PSSTScore, sig.HasPSST = w.PSSTScore.Value, true
	case w.PSSTScoreAlt.Valid:
		sig.PSSTScore, sig.HasPSST = w.PSSTScoreAlt.Value, true
	}
	return sig
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// DecodeSignals decodes a JSON array of signal objects.
func DecodeSignals(data []byte) ([]Signal, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode signal list: %w", err)
	}
	out := make([]Signal, 0, len(raws))
	for i, raw := range raws {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			continue
		}
		var w wireSignal
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("decode signal %d: %w", i, err)
		}
		out = append(out, w.canonical(raw))
	}
	return out, nil
}

// DecodeBatch decodes today's signals from either a bare list or an object
// holding the list under one of the known batch keys.
func DecodeBatch(data []byte) ([]Signal, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("signal batch is empty")
	}
	if trimmed[0] == '[' {
		return DecodeSignals(trimmed)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("decode signal batch: %w", err)
	}
	for _, key := range batchKeys {
		if raw, ok := obj[key]; ok && isJSONArray(raw) {
			return DecodeSignals(raw)
		}
	}
	return []Signal{}, nil
}

// LoadBatch reads and decodes a signal batch file.
func LoadBatch(path string) ([]Signal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signals: %w", err)
	}
	return DecodeBatch(data)
}

// History is the previous-signal corpus used by the dedup gate.
type History struct {
	Signals []Signal
	// URLIndex is a precomputed normalized-url to signal-id map, when the
	// history file carried one.
	URLIndex map[string]string
	// Missing is set when no history file existed.
	Missing bool
}

// DecodeHistory accepts {signals, url_index}, the legacy {indexes: {by_url}}
// layout, or a bare list.
func DecodeHistory(data []byte) (History, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return History{}, nil
	}
	if trimmed[0] == '[' {
		signals, err := DecodeSignals(trimmed)
		return History{Signals: signals}, err
	}

	var doc struct {
		Signals  json.RawMessage   `json:"signals"`
		URLIndex map[string]string `json:"url_index"`
		Indexes  struct {
			ByURL map[string]string `json:"by_url"`
		} `json:"indexes"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return History{}, fmt.Errorf("decode history: %w", err)
	}

	hist := History{URLIndex: doc.URLIndex}
	if hist.URLIndex == nil && len(doc.Indexes.ByURL) > 0 {
		hist.URLIndex = doc.Indexes.ByURL
	}
	if isJSONArray(doc.Signals) {
		signals, err := DecodeSignals(doc.Signals)
		if err != nil {
			return History{}, err
		}
		hist.Signals = signals
	}
	return hist, nil
}

// LoadHistory reads a previous-signals file. A missing file is not an error:
// it yields an empty history with Missing set.
func LoadHistory(path string) (History, error) {
	if strings.TrimSpace(path) == "" {
		return History{Missing: true}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return History{Missing: true}, nil
		}
		return History{}, fmt.Errorf("read previous signals: %w", err)
	}
	return DecodeHistory(data)
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
