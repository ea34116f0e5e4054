package browser

import (
	"net"
	"strings"

	"github.com/cyberbrowser/cyberbrowser/internal/config"
)

// Resolve turns address-bar input into a navigable URL.
//
// Input that already carries a scheme passes through untouched. Bare
// hostnames ("example.org", "localhost:8080", "xyz.onion/page") get an
// https:// prefix. Everything else becomes a query against the given
// search engine. Empty input resolves to "" and the caller decides what
// to do with it.
func Resolve(input string, searchEngine config.SearchEngine) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	for _, scheme := range []string{"http://", "https://", "file://", "about:"} {
		if strings.HasPrefix(input, scheme) {
			return input
		}
	}

	if looksLikeHost(input) {
		return "https://" + input
	}

	return searchEngine.QueryURL(input)
}

// looksLikeHost reports whether the input is plausibly a hostname with an
// optional port, path, or query rather than a search phrase.
func looksLikeHost(s string) bool {
	if strings.ContainsAny(s, " \t") {
		return false
	}

	host := s
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	if host == "localhost" {
		return true
	}
	if strings.HasSuffix(host, ".onion") {
		return true
	}

	// A dotted name like "example.org"; a leading or trailing dot is more
	// likely a typo'd sentence fragment than a host.
	return strings.Contains(host, ".") &&
		!strings.HasPrefix(host, ".") &&
		!strings.HasSuffix(host, ".")
}
