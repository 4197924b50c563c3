package main

import (
	"fmt"
	"strings"
	"testing"

	"envscan/internal/dedup"
	"envscan/internal/evolution"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Gate", statusError, "no history", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Gate:", "[ERROR] no history")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Gate", statusOK, "PASS", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestGateStatusKind(t *testing.T) {
	tests := []struct {
		status string
		want   statusKind
	}{
		{dedup.StatusPass, statusOK},
		{dedup.StatusPassWithRemoval, statusInfo},
		{dedup.StatusWarn, statusWarn},
	}
	for _, tt := range tests {
		if got := gateStatusKind(tt.status); got != tt.want {
			t.Errorf("gateStatusKind(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestStateKind(t *testing.T) {
	if got := stateKind(evolution.StateFaded); got != statusWarn {
		t.Errorf("stateKind(FADED) = %v, want warn", got)
	}
	if got := stateKind(evolution.StateStrengthening); got != statusOK {
		t.Errorf("stateKind(STRENGTHENING) = %v, want ok", got)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"Stage", "Duplicates"}, [][]string{{"A_url"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "A_url") || !strings.Contains(out, "DUPLICATES") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if strings.Contains(out, "<nil>") {
		t.Fatalf("short row rendered a nil cell:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty render for no headers")
	}
}
