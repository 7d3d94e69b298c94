package visual

import (
	"strings"
	"testing"
)

func TestNeedsVisual(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Please see the Architecture diagram", true},
		{"Let's recap what we covered", false},
		{"here is a FLOWCHART of the process", true},
		{"a flow chart helps", true},
		{"the network topology", true},
		{"an illustrative example", true}, // "illustrat" family
		{"draw a timeline of events", true},
		{"picture this scenario", true},
		{"", false},
		{"thanks, that makes sense", false},
	}

	for _, tt := range tests {
		if got := NeedsVisual(tt.text); got != tt.want {
			t.Errorf("NeedsVisual(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestNeedsVisual_CaseInsensitiveSubstring(t *testing.T) {
	if !NeedsVisual("ArChItEcTuRe") {
		t.Error("detection must be case-insensitive")
	}
	if !NeedsVisual("misarchitectured") {
		t.Error("detection must match substrings")
	}
}

func TestComposeQuery(t *testing.T) {
	q := ComposeQuery("  binary tree structure  ")
	if !strings.HasPrefix(q, "binary tree structure ") {
		t.Errorf("composed query should start with the trimmed text, got %q", q)
	}
	if !strings.Contains(q, "flowchart") || !strings.Contains(q, "infographic") {
		t.Errorf("composed query missing context keywords: %q", q)
	}
	// Deterministic: same text, same key.
	if q != ComposeQuery("binary tree structure") {
		t.Error("ComposeQuery must be deterministic for equal trimmed input")
	}
}
