package schema

import (
	"strings"
	"testing"
)

const validReport = `{
  "gate_id": "0b1c",
  "gate_version": "1.0.0",
  "checked_at": "2026-01-10T08:00:00Z",
  "gate_status": "PASS_WITH_REMOVAL",
  "enforce": "strict",
  "thresholds": {"url_exact": 1.0, "topic_fingerprint_definite": 0.6},
  "statistics": {"total_input": 2, "definite_new": 1, "definite_duplicates": 1, "uncertain": 0, "pass_through": 1},
  "stage_breakdown": {"A_url": 0, "B_topic": 1, "C_title": 0, "D_entity": 0},
  "duplicates": [{"signal_id": "new-001", "signal_title": "t", "matched_signal_id": "prev-001", "matched_title": "p", "stage": "B_topic", "score": 0.75}],
  "uncertain_signals": [],
  "surviving_signals": ["new-002"]
}`

func TestValidateGateReport(t *testing.T) {
	if err := ValidateJSON(GateReport, []byte(validReport)); err != nil {
		t.Fatalf("ValidateJSON() error = %v", err)
	}
}

func TestValidateGateReportRejects(t *testing.T) {
	tests := []struct {
		name string
		edit func(string) string
	}{
		{"bad status", func(s string) string { return strings.Replace(s, "PASS_WITH_REMOVAL", "FAIL", 1) }},
		{"bad stage", func(s string) string { return strings.Replace(s, `"stage": "B_topic"`, `"stage": "Z"`, 1) }},
		{"score above one", func(s string) string { return strings.Replace(s, "0.75", "1.5", 1) }},
		{"bad timestamp", func(s string) string { return strings.Replace(s, "2026-01-10T08:00:00Z", "yesterday", 1) }},
		{"trailing content", func(s string) string { return s + " {}" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateJSON(GateReport, []byte(tt.edit(validReport))); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateEvolutionMapRejectsThreadIDTitle(t *testing.T) {
	doc := map[string]any{
		"tracker_version":  "1.0.0",
		"run_id":           "r1",
		"workflow":         "wf1-general",
		"scan_date":        "2026-01-10",
		"computed_at":      "2026-01-10T08:00:00Z",
		"tracking_enabled": true,
		"config_source":    "defaults",
		"summary": map[string]int{
			"total_signals_today": 1, "new_signals": 1, "recurring_signals": 0,
			"strengthening_signals": 0, "weakening_signals": 0, "transformed_signals": 0,
			"faded_threads": 0, "active_threads": 1,
		},
		"evolution_entries": []map[string]any{{
			"signal_id":        "s1",
			"thread_id":        "THREAD-WF1-001",
			"canonical_title":  "THREAD-WF1-001",
			"state":            "NEW",
			"confidence":       "N/A",
			"appearance_count": 1,
			"metrics": map[string]any{
				"velocity": 0, "direction": "STABLE", "expansion": 0, "days_tracked": 0,
				"psst_current": 50, "psst_previous": 0, "psst_delta": "0",
			},
			"thread_history_summary": []map[string]any{{"date": "2026-01-10", "title": "x", "score": 50}},
		}},
		"faded_threads":       []any{},
		"new_threads_created": []string{"THREAD-WF1-001"},
	}
	if err := Validate(EvolutionMap, doc); err == nil {
		t.Fatal("expected error for thread id used as canonical_title")
	}

	doc["evolution_entries"].([]map[string]any)[0]["canonical_title"] = "Quantum sensing advances"
	if err := Validate(EvolutionMap, doc); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateThreadIndex(t *testing.T) {
	valid := `{"index_version":"1.0.0","workflow":"wf1-general","thread_id_counter":2,
	  "threads":{"THREAD-WF1-001":{"canonical_title":"t","state":"NEW","created_date":"2026-01-10",
	  "last_seen_date":"2026-01-10","appearance_count":1,"appearances":[{"scan_date":"2026-01-10","signal_id":"s1"}]}}}`
	if err := ValidateJSON(ThreadIndex, []byte(valid)); err != nil {
		t.Fatalf("ValidateJSON() error = %v", err)
	}
	bad := strings.Replace(valid, `"thread_id_counter":2`, `"thread_id_counter":0`, 1)
	if err := ValidateJSON(ThreadIndex, []byte(bad)); err == nil {
		t.Fatal("expected error for zero counter")
	}
	badKey := strings.Replace(valid, `"THREAD-WF1-001"`, `"wf1-001"`, 1)
	if err := ValidateJSON(ThreadIndex, []byte(badKey)); err == nil {
		t.Fatal("expected error for malformed thread id key")
	}
}

func TestValidateUnknownDocument(t *testing.T) {
	if err := ValidateJSON(Document("nope.schema.json"), []byte(`{}`)); err == nil {
		t.Fatal("expected error for unknown schema")
	}
}
