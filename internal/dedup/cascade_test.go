package dedup

import (
	"testing"

	"envscan/internal/signal"
	"envscan/internal/textutil"
)

func TestBuildIndexExcludesAmbiguousURLs(t *testing.T) {
	history := []signal.Signal{
		{ID: "a", Title: "Ocean heat record", URL: "https://www.nature.com/news/"},
		{ID: "b", Title: "Arctic ice minimum", URL: "https://nature.com/news"},
		{ID: "c", Title: "Coral bleaching spreads", URL: "https://example.org/coral"},
	}
	ix := BuildIndex(history, Options{Thresholds: DefaultThresholds()})

	urls := ix.URLIndex()
	if _, ok := urls["nature.com/news"]; ok {
		t.Errorf("ambiguous URL present in index: %v", urls)
	}
	if got := urls[textutil.NormalizeURL("https://example.org/coral")]; got != "c" {
		t.Errorf("url index for coral = %q, want c", got)
	}
	if ix.AmbiguousURLs() != 1 {
		t.Errorf("AmbiguousURLs() = %d, want 1", ix.AmbiguousURLs())
	}

	res := ix.Classify(signal.Signal{ID: "n", Title: "Unrelated fisheries quota", URL: "https://nature.com/news"})
	if res.Stage == StageURL {
		t.Errorf("ambiguous URL produced a Stage A match: %+v", res)
	}
}

func TestBuildIndexSameIDTwiceIsNotAmbiguous(t *testing.T) {
	history := []signal.Signal{
		{ID: "a", Title: "Ocean heat record", URL: "https://example.org/ocean"},
		{ID: "a", Title: "Ocean heat record", URL: "https://example.org/ocean/"},
	}
	ix := BuildIndex(history, Options{Thresholds: DefaultThresholds()})
	if ix.AmbiguousURLs() != 0 {
		t.Errorf("AmbiguousURLs() = %d, want 0", ix.AmbiguousURLs())
	}
}

func TestBuildIndexHonoursPrecomputedURLIndex(t *testing.T) {
	history := []signal.Signal{{ID: "a", Title: "Ocean heat record"}}
	ix := BuildIndex(history, Options{
		Thresholds: DefaultThresholds(),
		URLIndex: map[string]string{
			"example.org/ocean": "a",
			"example.org/gone":  "pruned-id",
		},
	})
	res := ix.Classify(signal.Signal{ID: "n", Title: "Something else entirely", URL: "https://example.org/ocean"})
	if res.Verdict != VerdictDuplicate || res.Stage != StageURL || res.MatchedID != "a" {
		t.Errorf("Classify() = %+v, want Stage A match on a", res)
	}
	if res.MatchedTitle != "Ocean heat record" {
		t.Errorf("MatchedTitle = %q", res.MatchedTitle)
	}
	if _, ok := ix.URLIndex()[textutil.NormalizeURL("example.org/gone")]; ok {
		t.Error("url index kept an entry for a signal outside history")
	}
}

func TestBuildIndexSkipsUntitledHistory(t *testing.T) {
	ix := BuildIndex([]signal.Signal{{ID: "a", URL: "https://example.org/a"}}, Options{Thresholds: DefaultThresholds()})
	if ix.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ix.Len())
	}
}

func TestClassifyStageAIgnoresURLNoise(t *testing.T) {
	ix := BuildIndex([]signal.Signal{
		{ID: "prev", Title: "Grid battery prices fall", URL: "https://www.example.com/energy/batteries/"},
	}, Options{Thresholds: DefaultThresholds()})

	res := ix.Classify(signal.Signal{ID: "new", Title: "Different words here", URL: "HTTPS://Example.com/energy/batteries"})
	if res.Verdict != VerdictDuplicate || res.Stage != StageURL || res.Score != 1.0 {
		t.Errorf("Classify() = %+v, want Stage A duplicate", res)
	}
}

func TestClassifyRegression(t *testing.T) {
	const newTitle = "New START Treaty Expiration Risk — Nuclear Arms Control Gap"
	ix := BuildIndex([]signal.Signal{
		{ID: "prev-001", Title: "New START Nuclear Treaty Expires"},
	}, Options{Thresholds: DefaultThresholds()})

	res := ix.Classify(signal.Signal{ID: "new-001", Title: newTitle})
	if res.Verdict != VerdictDuplicate || res.Stage != StageTopic {
		t.Fatalf("Classify() = %+v, want Stage B duplicate", res)
	}
	if res.Score < 0.60 {
		t.Errorf("Score = %v, want >= 0.60", res.Score)
	}

	unrelated := textutil.OverlapCoefficient(
		textutil.TopicFingerprint(newTitle, nil),
		textutil.TopicFingerprint("Iceberg Quantum Breaks RSA-2048 Encryption", nil),
	)
	if unrelated >= 0.30 {
		t.Errorf("unrelated overlap = %v, want < 0.30", unrelated)
	}
}

func TestClassifyUncertainCarriesBestStage(t *testing.T) {
	ix := BuildIndex([]signal.Signal{
		{ID: "prev-001", Title: "New START Nuclear Treaty Expires"},
	}, Options{Thresholds: DefaultThresholds()})

	res := ix.Classify(signal.Signal{ID: "new-001", Title: "New START Treaty Expiration Risk"})
	if res.Verdict != VerdictUncertain {
		t.Fatalf("Verdict = %v, want uncertain", res.Verdict)
	}
	if res.Stage != StageTitle {
		t.Errorf("Stage = %v, want %v (highest uncertain score)", res.Stage, StageTitle)
	}
	if res.Score < 0.80 || res.Score >= 0.90 {
		t.Errorf("Score = %v, want within title uncertain band", res.Score)
	}
	if res.MatchedID != "prev-001" {
		t.Errorf("MatchedID = %q", res.MatchedID)
	}
}

func TestClassifyEarlierStageWins(t *testing.T) {
	ix := BuildIndex([]signal.Signal{
		{ID: "p", Title: "Quantum sensing breakthrough reported"},
	}, Options{Thresholds: DefaultThresholds()})

	res := ix.Classify(signal.Signal{ID: "n", Title: "Quantum sensing breakthrough"})
	if res.Stage != StageTopic {
		t.Errorf("Stage = %v, want %v even though title similarity is also definite", res.Stage, StageTopic)
	}
}

func TestClassifyNew(t *testing.T) {
	ix := BuildIndex([]signal.Signal{
		{ID: "prev-001", Title: "New START Nuclear Treaty Expires"},
	}, Options{Thresholds: DefaultThresholds()})

	tests := []signal.Signal{
		{ID: "new-002", Title: "Completely Novel Discovery in Marine Biology"},
		{ID: "blank"},
	}
	for _, sig := range tests {
		res := ix.Classify(sig)
		if res.Verdict != VerdictNew || res.Stage != "" || res.Score != 0 {
			t.Errorf("Classify(%q) = %+v, want definite_new with no stage", sig.ID, res)
		}
	}
}

func TestClassifyTiesKeepFirstHistoryEntry(t *testing.T) {
	ix := BuildIndex([]signal.Signal{
		{ID: "first", Title: "Desalination plant capacity doubles"},
		{ID: "second", Title: "Desalination plant capacity doubles"},
	}, Options{Thresholds: DefaultThresholds()})

	res := ix.Classify(signal.Signal{ID: "n", Title: "Desalination plant capacity doubles"})
	if res.MatchedID != "first" {
		t.Errorf("MatchedID = %q, want first", res.MatchedID)
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("DefaultThresholds().Validate() error = %v", err)
	}
	tests := []struct {
		name string
		edit func(*Thresholds)
	}{
		{"above one", func(th *Thresholds) { th.TitleDefinite = 1.2 }},
		{"negative", func(th *Thresholds) { th.EntityUncertain = -0.1 }},
		{"uncertain above definite", func(th *Thresholds) { th.TopicUncertain = 0.7 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.edit(&th)
			if err := th.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
