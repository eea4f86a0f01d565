package clients

import (
	"testing"
)

func TestFindTeamLinks(t *testing.T) {
	html := []byte(`<html><body>
		<nav>
			<a href="/team">Team</a>
			<a href="/about-us">About</a>
			<a href="/portfolio">Portfolio</a>
			<a href="https://example.com/people#leadership">People</a>
			<a href="https://other-site.com/team">External</a>
			<a href="/team">Team (footer)</a>
		</nav>
	</body></html>`)

	links, err := FindTeamLinks(html, "https://example.com")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := map[string]bool{
		"https://example.com/team":     true,
		"https://example.com/about-us": true,
		"https://example.com/people":   true,
	}
	if len(links) != len(expected) {
		t.Fatalf("Expected %d links, got %d: %v", len(expected), len(links), links)
	}
	for _, link := range links {
		if !expected[link] {
			t.Errorf("Unexpected link %q", link)
		}
	}
}

func TestFindTeamLinksNoMatches(t *testing.T) {
	html := []byte(`<html><body><a href="/blog">Blog</a></body></html>`)

	links, err := FindTeamLinks(html, "https://example.com")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("Expected no team links, got %v", links)
	}
}

func TestExtractTextEmpty(t *testing.T) {
	if _, err := ExtractText(nil, "https://example.com"); err == nil {
		t.Error("Expected error for empty HTML data")
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare json", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFence(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
