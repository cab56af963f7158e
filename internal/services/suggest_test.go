package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/studypal/studypal-backend/internal/providers"
)

func newSuggestFixture(provider providers.Provider, max int) *SuggestService {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	registry := providers.NewRegistry()
	if provider != nil {
		registry.Register("fake", provider)
	}
	return NewSuggestService(registry, log, "fake", max)
}

func TestSuggest_ReturnsParsedSuggestions(t *testing.T) {
	svc := newSuggestFixture(&fakeProvider{genOut: `["what is osmosis?", "what is diffusion?"]`}, 5)
	got := svc.Suggest(context.Background(), "what is")
	assert.Equal(t, []string{"what is osmosis?", "what is diffusion?"}, got)
}

func TestSuggest_CapsAtMax(t *testing.T) {
	svc := newSuggestFixture(&fakeProvider{genOut: `["a", "b", "c", "d"]`}, 2)
	got := svc.Suggest(context.Background(), "query")
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestSuggest_EmptyOnFailure(t *testing.T) {
	cases := map[string]*SuggestService{
		"provider error":   newSuggestFixture(&fakeProvider{genErr: errors.New("boom")}, 5),
		"missing provider": newSuggestFixture(nil, 5),
		"malformed output": newSuggestFixture(&fakeProvider{genOut: "not json at all"}, 5),
	}
	for name, svc := range cases {
		t.Run(name, func(t *testing.T) {
			got := svc.Suggest(context.Background(), "query")
			assert.Equal(t, []string{}, got)
		})
	}
}

func TestSuggest_EmptyQuery(t *testing.T) {
	svc := newSuggestFixture(&fakeProvider{genOut: `["x"]`}, 5)
	assert.Equal(t, []string{}, svc.Suggest(context.Background(), "   "))
}

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"bare array", `["a", "b"]`, []string{"a", "b"}},
		{"fenced array", "```json\n[\"a\"]\n```", []string{"a"}},
		{"plain fence", "```\n[\"a\"]\n```", []string{"a"}},
		{"blank entries dropped", `["a", "  ", ""]`, []string{"a"}},
		{"object not array", `{"suggestions": ["a"]}`, []string{}},
		{"empty string", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSuggestions(tt.raw))
		})
	}
}
