package textutil

import "testing"

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"wf1-general", "wf1-general"},
		{"WF2 arXiv", "wf2_arxiv"},
		{"  ", "unknown"},
		{"../etc", "etc"},
		{"wf3-naïve", "wf3-na_ve"},
		{"--", "unknown"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.in); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
