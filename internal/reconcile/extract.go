package reconcile

import (
	"encoding/json"
	"regexp"

	"github.com/studypal/studypal-backend/internal/session"
)

// AidPayload is the structured block the model embeds in a response when it
// generated a study aid. Shapes are duck-typed on the model side; anything
// beyond array-type checks is accepted as-is.
type AidPayload struct {
	Title      string              `json:"title"`
	Flashcards []session.Flashcard `json:"flashcards"`
	Quiz       []session.QuizItem  `json:"quiz"`
	Slides     []session.Slide     `json:"slides"`
}

// HasAids reports whether any aid array is present and non-empty. Empty
// arrays are ignored entirely.
func (p *AidPayload) HasAids() bool {
	return len(p.Quiz) > 0 || len(p.Flashcards) > 0 || len(p.Slides) > 0
}

// fenceRe matches a json-tagged fenced code block. Non-greedy so the first
// closing fence wins; only the first occurrence is ever considered.
var fenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// Extract finds the first json fence in text and parses it. It returns the
// payload, the full fenced match for stripping, and whether a payload was
// parsed. Malformed JSON inside the fence yields ok == false; the caller
// keeps the raw text untouched.
func Extract(text string) (*AidPayload, string, bool) {
	m := fenceRe.FindStringSubmatch(text)
	if m == nil {
		return nil, "", false
	}

	var payload AidPayload
	if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
		return nil, "", false
	}
	return &payload, m[0], true
}

// DedupeSources collapses citations sharing a URI, first occurrence winning,
// and drops entries without a URI.
func DedupeSources(sources []session.Source) []session.Source {
	if len(sources) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(sources))
	var out []session.Source
	for _, src := range sources {
		if src.URI == "" || seen[src.URI] {
			continue
		}
		seen[src.URI] = true
		out = append(out, src)
	}
	return out
}
