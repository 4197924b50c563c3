package dedup

import (
	"math"
	"sort"

	"envscan/internal/signal"
	"envscan/internal/textutil"
)

// Stage names a cascade stage.
type Stage string

const (
	StageURL    Stage = "A_url"
	StageTopic  Stage = "B_topic"
	StageTitle  Stage = "C_title"
	StageEntity Stage = "D_entity"
)

// Stages lists the cascade stages in evaluation order.
var Stages = []Stage{StageURL, StageTopic, StageTitle, StageEntity}

// Verdict classifies a new signal relative to history.
type Verdict string

const (
	VerdictDuplicate Verdict = "definite_duplicate"
	VerdictUncertain Verdict = "uncertain"
	VerdictNew       Verdict = "definite_new"
)

// Result is the cascade outcome for one signal. Stage is empty for
// definite_new. Score is rounded to four decimal places.
type Result struct {
	Verdict      Verdict
	Stage        Stage
	Score        float64
	MatchedID    string
	MatchedTitle string
}

type historyEntry struct {
	id          string
	title       string
	fingerprint textutil.Set
	entities    textutil.Set
}

// Index holds the precomputed history the cascade compares against.
type Index struct {
	entries    []historyEntry
	titles     map[string]string
	urls       map[string]string
	ambiguous  int
	thresholds Thresholds
}

// Options configures BuildIndex.
type Options struct {
	Thresholds Thresholds
	// URLIndex is a precomputed normalized-url to signal-id map shipped with
	// the history file. Entries pointing at signals outside history are ignored.
	URLIndex map[string]string
}

// BuildIndex precomputes fingerprints and entity sets for every titled
// history signal and builds the URL index. A normalized URL claimed by more
// than one distinct signal id is ambiguous and left out of the index.
func BuildIndex(history []signal.Signal, opts Options) *Index {
	ix := &Index{
		entries:    make([]historyEntry, 0, len(history)),
		titles:     make(map[string]string, len(history)),
		urls:       make(map[string]string),
		thresholds: opts.Thresholds,
	}

	claims := make(map[string]map[string]struct{})
	claim := func(rawURL, id string) {
		norm := textutil.NormalizeURL(rawURL)
		if norm == "" || id == "" {
			return
		}
		ids, ok := claims[norm]
		if !ok {
			ids = make(map[string]struct{}, 1)
			claims[norm] = ids
		}
		ids[id] = struct{}{}
	}

	for _, sig := range history {
		if !sig.HasTitle() {
			continue
		}
		id := signalKey(sig)
		ix.entries = append(ix.entries, historyEntry{
			id:          id,
			title:       sig.Title,
			fingerprint: textutil.TopicFingerprint(sig.Title, sig.Keywords),
			entities:    textutil.ExtractEntities(sig.Title, sig.Keywords),
		})
		if _, seen := ix.titles[id]; !seen {
			ix.titles[id] = sig.Title
		}
		claim(sig.URL, id)
	}
	for rawURL, id := range opts.URLIndex {
		if _, known := ix.titles[id]; known {
			claim(rawURL, id)
		}
	}

	for norm, ids := range claims {
		if len(ids) != 1 {
			ix.ambiguous++
			continue
		}
		for id := range ids {
			ix.urls[norm] = id
		}
	}
	return ix
}

// Len returns the number of history signals in the index.
func (ix *Index) Len() int { return len(ix.entries) }

// AmbiguousURLs returns how many normalized URLs were excluded.
func (ix *Index) AmbiguousURLs() int { return ix.ambiguous }

// URLIndex returns a copy of the normalized-url to signal-id map.
func (ix *Index) URLIndex() map[string]string {
	out := make(map[string]string, len(ix.urls))
	for k, v := range ix.urls {
		out[k] = v
	}
	return out
}

// SortedURLs returns the indexed URLs in lexical order.
func (ix *Index) SortedURLs() []string {
	out := make([]string, 0, len(ix.urls))
	for k := range ix.urls {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type candidate struct {
	score float64
	entry *historyEntry
}

func (ix *Index) best(score func(*historyEntry) float64) candidate {
	var out candidate
	for i := range ix.entries {
		e := &ix.entries[i]
		if s := score(e); s > out.score {
			out = candidate{score: s, entry: e}
		}
	}
	return out
}

// Classify runs the cascade for one signal.
func (ix *Index) Classify(sig signal.Signal) Result {
	if !sig.Indexable() {
		return Result{Verdict: VerdictNew}
	}

	if norm := textutil.NormalizeURL(sig.URL); norm != "" {
		if id, ok := ix.urls[norm]; ok {
			return Result{
				Verdict:      VerdictDuplicate,
				Stage:        StageURL,
				Score:        1.0,
				MatchedID:    id,
				MatchedTitle: ix.titles[id],
			}
		}
	}

	fingerprint := textutil.TopicFingerprint(sig.Title, sig.Keywords)
	entities := textutil.ExtractEntities(sig.Title, sig.Keywords)

	stages := []struct {
		stage     Stage
		definite  float64
		uncertain float64
		score     func(*historyEntry) float64
	}{
		{StageTopic, ix.thresholds.TopicDefinite, ix.thresholds.TopicUncertain, func(e *historyEntry) float64 {
			return textutil.OverlapCoefficient(fingerprint, e.fingerprint)
		}},
		{StageTitle, ix.thresholds.TitleDefinite, ix.thresholds.TitleUncertain, func(e *historyEntry) float64 {
			return textutil.TitleSimilarity(sig.Title, e.title)
		}},
		{StageEntity, ix.thresholds.EntityDefinite, ix.thresholds.EntityUncertain, func(e *historyEntry) float64 {
			return textutil.Jaccard(entities, e.entities)
		}},
	}

	var uncertain Result
	var uncertainScore float64
	for _, st := range stages {
		best := ix.best(st.score)
		if best.entry == nil {
			continue
		}
		if best.score >= st.definite {
			return Result{
				Verdict:      VerdictDuplicate,
				Stage:        st.stage,
				Score:        round4(best.score),
				MatchedID:    best.entry.id,
				MatchedTitle: best.entry.title,
			}
		}
		if best.score >= st.uncertain && best.score > uncertainScore {
			uncertainScore = best.score
			uncertain = Result{
				Verdict:      VerdictUncertain,
				Stage:        st.stage,
				Score:        round4(best.score),
				MatchedID:    best.entry.id,
				MatchedTitle: best.entry.title,
			}
		}
	}
	if uncertain.Verdict == VerdictUncertain {
		return uncertain
	}
	return Result{Verdict: VerdictNew}
}

func signalKey(sig signal.Signal) string {
	if sig.ID != "" {
		return sig.ID
	}
	if sig.Title != "" {
		return sig.Title
	}
	return "unknown"
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
