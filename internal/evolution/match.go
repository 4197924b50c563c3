package evolution

import "envscan/internal/textutil"

// MatchConfig holds the matcher thresholds.
type MatchConfig struct {
	TitleThreshold          float64
	SemanticThreshold       float64
	HighConfidenceThreshold float64
	Weights                 MatchWeights
}

// MatchConfig extracts the matcher settings from a resolved config.
func (c Config) MatchConfig() MatchConfig {
	return MatchConfig{
		TitleThreshold:          c.TitleThreshold,
		SemanticThreshold:       c.SemanticThreshold,
		HighConfidenceThreshold: c.HighConfidenceThreshold,
		Weights:                 c.Weights,
	}
}

// MatchResult is the winning thread for a signal.
type MatchResult struct {
	ThreadID          string
	Confidence        Confidence
	TitleSimilarity   float64
	KeywordSimilarity float64
	Combined          float64
}

// Observation is one classified signal as the tracker sees it, after title
// enrichment and pSST backfill.
type Observation struct {
	SignalID string
	Title    string
	Keywords []string
	Category string
	PSST     float64
	Source   string
}

// KeywordSet returns the normalized keyword set used for matching.
func (o Observation) KeywordSet() textutil.Set {
	return textutil.KeywordSet(o.Title, o.Keywords)
}

// Match finds the best live thread for obs. A thread is a candidate when its
// title similarity or keyword Jaccard clears the corresponding threshold.
// Candidates are ranked by a weighted blend of the two scores; threads are
// visited in id order and the first highest score wins.
func Match(obs Observation, idx *Index, cfg MatchConfig) (MatchResult, bool) {
	keywords := obs.KeywordSet()
	var best MatchResult
	found := false

	for _, id := range idx.SortedIDs() {
		thread := idx.Threads[id]
		if thread.State == StateFaded {
			continue
		}
		titleSim := textutil.TitleSimilarity(obs.Title, thread.CanonicalTitle)
		kwSim := textutil.Jaccard(keywords, threadKeywordSet(thread))

		titleOK := titleSim >= cfg.TitleThreshold
		kwOK := kwSim >= cfg.SemanticThreshold
		var combined float64
		switch {
		case titleOK && kwOK:
			combined = cfg.Weights.Both*titleSim + (1-cfg.Weights.Both)*kwSim
		case kwOK:
			combined = cfg.Weights.Dominant*kwSim + (1-cfg.Weights.Dominant)*titleSim
		case titleOK:
			combined = cfg.Weights.Dominant*titleSim + (1-cfg.Weights.Dominant)*kwSim
		default:
			continue
		}

		if !found || combined > best.Combined {
			found = true
			best = MatchResult{
				ThreadID:          id,
				TitleSimilarity:   titleSim,
				KeywordSimilarity: kwSim,
				Combined:          combined,
			}
		}
	}
	if !found {
		return MatchResult{}, false
	}
	best.Confidence = ConfidenceMedium
	if best.Combined >= cfg.HighConfidenceThreshold {
		best.Confidence = ConfidenceHigh
	}
	return best, true
}

func threadKeywordSet(t *Thread) textutil.Set {
	set := make(textutil.Set, len(t.Keywords))
	for _, kw := range t.Keywords {
		set.Add(textutil.Lower(kw))
	}
	return set
}
