package browser

import (
	"strings"
	"testing"

	"github.com/cyberbrowser/cyberbrowser/internal/config"
)

// TestResolve tests address-bar input resolution.
func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "full URL passes through",
			input: "https://example.org/page?x=1",
			want:  "https://example.org/page?x=1",
		},
		{
			name:  "http URL passes through",
			input: "http://example.org",
			want:  "http://example.org",
		},
		{
			name:  "about page passes through",
			input: "about:blank",
			want:  "about:blank",
		},
		{
			name:  "bare hostname gets https",
			input: "example.org",
			want:  "https://example.org",
		},
		{
			name:  "hostname with path gets https",
			input: "example.org/downloads",
			want:  "https://example.org/downloads",
		},
		{
			name:  "localhost with port gets https",
			input: "localhost:8080",
			want:  "https://localhost:8080",
		},
		{
			name:  "onion address gets https",
			input: "expyuzz4wqqyqhjn.onion",
			want:  "https://expyuzz4wqqyqhjn.onion",
		},
		{
			name:  "surrounding whitespace is trimmed",
			input: "  example.org  ",
			want:  "https://example.org",
		},
		{
			name:  "empty input resolves to empty",
			input: "   ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Resolve(tt.input, config.EngineDuckDuckGo)
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestResolveSearch tests that non-URL input becomes a search query.
func TestResolveSearch(t *testing.T) {
	t.Parallel()

	t.Run("phrase with spaces", func(t *testing.T) {
		t.Parallel()

		got := Resolve("tor exit nodes", config.EngineDuckDuckGo)
		if !strings.HasPrefix(got, "https://duckduckgo.com/?q=") {
			t.Errorf("expected DuckDuckGo query URL, got %q", got)
		}
		if !strings.Contains(got, "tor+exit+nodes") {
			t.Errorf("expected escaped query in %q", got)
		}
	})

	t.Run("single word without dot", func(t *testing.T) {
		t.Parallel()

		got := Resolve("weather", config.EngineGoogle)
		if !strings.HasPrefix(got, "https://www.google.com/search?q=") {
			t.Errorf("expected Google query URL, got %q", got)
		}
	})

	t.Run("trailing dot is a sentence not a host", func(t *testing.T) {
		t.Parallel()

		got := Resolve("done.", config.EngineDuckDuckGo)
		if !strings.HasPrefix(got, "https://duckduckgo.com/?q=") {
			t.Errorf("expected search URL, got %q", got)
		}
	})
}
