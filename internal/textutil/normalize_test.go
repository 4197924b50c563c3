package textutil

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"https www", "https://www.Example.com/news/article/", "example.com/news/article"},
		{"http same resource", "http://example.com/news/article", "example.com/news/article"},
		{"query and fragment", "https://example.com/a?utm_source=x#top", "example.com/a"},
		{"host only", "https://example.com/", "example.com"},
		{"schemeless", "example.com/a/", "example.com/a"},
		{"port kept", "https://example.com:8080/x", "example.com:8080/x"},
		{"escaped path", "https://example.com/a%3Fb", "example.com/a%3Fb"},
		{"unparseable port", "http://WWW.a.com:bad/x/?q=1#f", "a.com:bad/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	inputs := []string{
		"https://www.example.com/news/article/",
		"http://WWW.www.example.com/path?x=1",
		"https://example.com:8080/x/",
		"https://example.com/a%3Fb#frag",
		"example.com/a b",
		"mailto:someone@example.com",
		"https://a.com:bad/x?q=1",
		"",
	}
	for _, in := range inputs {
		once := NormalizeURL(in)
		twice := NormalizeURL(once)
		if once != twice {
			t.Errorf("NormalizeURL not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeURLUnparseableSchemesCollide(t *testing.T) {
	httpURL := NormalizeURL("http://a.com:bad/x?q=1")
	httpsURL := NormalizeURL("https://a.com:bad/x?q=2")
	if httpURL != httpsURL {
		t.Errorf("NormalizeURL http = %q, https = %q, want equal", httpURL, httpsURL)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"New START Treaty — Nuclear   Arms!", "new start treaty nuclear arms"},
		{"RSA-2048 broken?", "rsa2048 broken"},
		{"Ünïcode Títle", "ünïcode títle"},
		{"반도체 수출 규제!", "반도체 수출 규제"},
	}
	for _, tt := range tests {
		if got := NormalizeText(tt.in); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
