// Package visual decides when a tutor utterance would benefit from an
// illustrative image, and builds the search query used to find one.
//
// Detection is a pure keyword heuristic. It is the admission-control step in
// front of the image search API: only text that names an illustration-family
// concept triggers the (costly) upstream call.
package visual

import (
	"regexp"
	"strings"
)

// cuePattern matches illustration-family terms, case-insensitively, anywhere
// in the text.
var cuePattern = regexp.MustCompile(`(?i)(diagram|flow\s?chart|illustrat|visual|mind\s?map|graph|architecture|chart|timeline|schematic|infograph|concept|process|image|picture|figure|map|wireframe|network)`)

// queryContext is the fixed visual-domain keyword suffix appended to the
// triggering text. It widens recall for the image search; the composed
// string — not the raw conversation text — is the cache and dedup key.
const queryContext = "diagram flowchart illustration visual infographic schematic mindmap concept map timeline architecture process chart graph image"

// NeedsVisual reports whether text likely benefits from a visual aid.
// Pure function: no state, no external calls.
func NeedsVisual(text string) bool {
	return cuePattern.MatchString(text)
}

// ComposeQuery concatenates the triggering text with the fixed visual-domain
// context keywords. All cache lookups, dedup checks, and upstream searches
// key on this composed string.
func ComposeQuery(text string) string {
	return strings.TrimSpace(text) + " " + queryContext
}
