package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studypal/studypal-backend/internal/session"
)

func TestExtract_NoFence(t *testing.T) {
	payload, fenced, ok := Extract("just a plain explanation with no structured block")
	assert.False(t, ok)
	assert.Nil(t, payload)
	assert.Empty(t, fenced)
}

func TestExtract_Flashcards(t *testing.T) {
	text := "Here you go!\n```json\n{\"title\":\"T\",\"flashcards\":[{\"question\":\"Q\",\"answer\":\"A\",\"context\":\"C\"}]}\n```\nEnjoy."

	payload, fenced, ok := Extract(text)
	require.True(t, ok)
	assert.Equal(t, "T", payload.Title)
	require.Len(t, payload.Flashcards, 1)
	assert.Equal(t, session.Flashcard{Question: "Q", Answer: "A", Context: "C"}, payload.Flashcards[0])
	assert.True(t, payload.HasAids())
	assert.Contains(t, text, fenced)
}

func TestExtract_MalformedJSON(t *testing.T) {
	// Trailing comma must not surface as an error; the raw text stays.
	text := "```json\n{\"title\":\"T\",\"quiz\":[{\"question\":\"Q\"},]}\n```"

	payload, _, ok := Extract(text)
	assert.False(t, ok)
	assert.Nil(t, payload)
}

func TestExtract_FirstFenceOnly(t *testing.T) {
	text := "```json\n{\"title\":\"first\",\"quiz\":[{\"question\":\"Q\",\"answer\":\"A\"}]}\n```\n" +
		"```json\n{\"title\":\"second\",\"slides\":[{\"title\":\"S\"}]}\n```"

	payload, _, ok := Extract(text)
	require.True(t, ok)
	assert.Equal(t, "first", payload.Title)
	assert.Len(t, payload.Quiz, 1)
	assert.Empty(t, payload.Slides)
}

func TestExtract_UntaggedFenceIgnored(t *testing.T) {
	_, _, ok := Extract("```\n{\"title\":\"T\",\"quiz\":[{\"question\":\"Q\"}]}\n```")
	assert.False(t, ok)
}

func TestHasAids_EmptyArrays(t *testing.T) {
	payload, _, ok := Extract("```json\n{\"title\":\"T\",\"flashcards\":[],\"quiz\":[],\"slides\":[]}\n```")
	require.True(t, ok)
	assert.False(t, payload.HasAids())
}

func TestDedupeSources(t *testing.T) {
	sources := []session.Source{
		{URI: "https://a.example", Title: "first title"},
		{URI: "https://b.example", Title: "b"},
		{URI: "https://a.example", Title: "second title"},
		{URI: "", Title: "no uri"},
	}

	deduped := DedupeSources(sources)
	require.Len(t, deduped, 2)
	assert.Equal(t, "https://a.example", deduped[0].URI)
	assert.Equal(t, "first title", deduped[0].Title)
	assert.Equal(t, "https://b.example", deduped[1].URI)
}

func TestDedupeSources_Empty(t *testing.T) {
	assert.Nil(t, DedupeSources(nil))
	assert.Nil(t, DedupeSources([]session.Source{}))
}
