package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/studypal/studypal-backend/internal/providers"
)

// SuggestService produces autocomplete suggestions for a partial query.
// Every failure path yields an empty list; autocomplete is never worth an
// error dialog.
type SuggestService struct {
	registry        *providers.Registry
	log             *logrus.Logger
	defaultProvider string
	max             int
}

// NewSuggestService creates a suggest service capped at max suggestions.
func NewSuggestService(registry *providers.Registry, log *logrus.Logger, defaultProvider string, max int) *SuggestService {
	if log == nil {
		log = logrus.New()
	}
	if max <= 0 {
		max = 5
	}
	return &SuggestService{registry: registry, log: log, defaultProvider: defaultProvider, max: max}
}

// Suggest returns up to the configured number of suggestion strings.
func (s *SuggestService) Suggest(ctx context.Context, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}
	}

	provider := s.registry.Get(s.defaultProvider)
	if provider == nil {
		return []string{}
	}

	prompt := fmt.Sprintf(
		"The learner is typing a study question. Complete it with up to %d likely questions as a JSON array of strings. Partial input: %q",
		s.max, query)

	raw, err := provider.Generate(ctx, providers.Request{
		Prompt:      prompt,
		System:      "You output only a JSON array of suggestion strings, nothing else.",
		StringArray: true,
	})
	if err != nil {
		s.log.WithError(err).Debug("autocomplete generation failed")
		return []string{}
	}

	suggestions := parseSuggestions(raw)
	if len(suggestions) > s.max {
		suggestions = suggestions[:s.max]
	}
	return suggestions
}

// parseSuggestions accepts a bare JSON array, tolerating a surrounding code
// fence that some models add despite the schema.
func parseSuggestions(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var suggestions []string
	if err := json.Unmarshal([]byte(raw), &suggestions); err != nil {
		return []string{}
	}
	out := suggestions[:0]
	for _, suggestion := range suggestions {
		if strings.TrimSpace(suggestion) != "" {
			out = append(out, suggestion)
		}
	}
	return out
}
