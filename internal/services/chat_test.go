package services

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studypal/studypal-backend/internal/api/models"
	"github.com/studypal/studypal-backend/internal/audit"
	"github.com/studypal/studypal-backend/internal/kv"
	"github.com/studypal/studypal-backend/internal/providers"
	"github.com/studypal/studypal-backend/internal/reconcile"
	"github.com/studypal/studypal-backend/internal/session"
)

// fakeProvider replays a scripted chunk sequence and records the last
// one-shot request it saw.
type fakeProvider struct {
	chunks []providers.Chunk
	genOut string
	genErr error
	genReq providers.Request
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) StreamGenerate(ctx context.Context, req providers.Request) (<-chan providers.Chunk, error) {
	out := make(chan providers.Chunk, len(f.chunks))
	for _, c := range f.chunks {
		out <- c
	}
	close(out)
	return out, nil
}

func (f *fakeProvider) Generate(ctx context.Context, req providers.Request) (string, error) {
	f.genReq = req
	return f.genOut, f.genErr
}

// trailingProvider mimics streams that deliver a finish marker and then one
// more terminal chunk before closing, the way an SSE stream ends with a
// finish_reason chunk followed by EOF.
type trailingProvider struct {
	done chan struct{}
}

func (p *trailingProvider) Name() string { return "fake" }

func (p *trailingProvider) StreamGenerate(ctx context.Context, req providers.Request) (<-chan providers.Chunk, error) {
	out := make(chan providers.Chunk)
	go func() {
		defer close(p.done)
		defer close(out)
		out <- providers.Chunk{Delta: "answer"}
		out <- providers.Chunk{FinishReason: "stop"}
		out <- providers.Chunk{FinishReason: "stop"}
	}()
	return out, nil
}

func (p *trailingProvider) Generate(ctx context.Context, req providers.Request) (string, error) {
	return "", nil
}

func newChatFixture(t *testing.T, provider providers.Provider) (*ChatService, *session.Store) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	blob := kv.NewMemoryStore()
	store := session.NewStore(blob, log)
	require.NoError(t, store.Load(context.Background()))

	auditLog := audit.NewLogger(log, 10)
	settings := NewSettingsService(blob, "en-US", auditLog, log)
	registry := providers.NewRegistry()
	registry.Register("fake", provider)

	chat := NewChatService(store, registry, reconcile.New(store, log), settings, auditLog, log, "fake")
	return chat, store
}

func drain(t *testing.T, events <-chan models.StreamEvent) []models.StreamEvent {
	t.Helper()
	var out []models.StreamEvent
	for event := range events {
		out = append(out, event)
	}
	return out
}

func TestStreamTurn_ConcatenatesFragments(t *testing.T) {
	provider := &fakeProvider{chunks: []providers.Chunk{
		{Delta: "Osmosis is "},
		{Delta: "the movement of water "},
		{Delta: "across a membrane.", FinishReason: "stop"},
	}}
	chat, store := newChatFixture(t, provider)

	events, err := chat.StreamTurn(context.Background(), models.ChatRequest{Prompt: "what is osmosis?"})
	require.NoError(t, err)
	got := drain(t, events)

	require.GreaterOrEqual(t, len(got), 3)
	assert.Equal(t, models.EventMeta, got[0].Type)
	last := got[len(got)-1]
	require.Equal(t, models.EventComplete, last.Type)
	assert.Equal(t, "Osmosis is the movement of water across a membrane.", last.Result.Content)

	sessions := store.List()
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Messages, 2)
	assert.Equal(t, session.RoleUser, sessions[0].Messages[0].Role)
	assert.Equal(t, "what is osmosis?", sessions[0].Messages[0].Content)
	assert.Equal(t, session.RoleAssistant, sessions[0].Messages[1].Role)
	assert.Equal(t, "Osmosis is the movement of water across a membrane.", sessions[0].Messages[1].Content)
}

func TestStreamTurn_ExtractsAids(t *testing.T) {
	provider := &fakeProvider{chunks: []providers.Chunk{
		{Delta: "```json\n{\"title\":\"Cell Basics\",\"flashcards\":"},
		{Delta: "[{\"question\":\"Q\",\"answer\":\"A\"}]}\n```", FinishReason: "stop"},
	}}
	chat, store := newChatFixture(t, provider)

	events, err := chat.StreamTurn(context.Background(), models.ChatRequest{Prompt: "make flashcards"})
	require.NoError(t, err)
	got := drain(t, events)

	last := got[len(got)-1]
	require.Equal(t, models.EventComplete, last.Type)
	assert.Equal(t, []session.Mode{session.ModeFlashcards}, last.Result.Applied)
	assert.Equal(t, `I've created the "Cell Basics" for you.`, last.Result.Content)
	assert.Equal(t, session.ModeFlashcards, store.Mode())

	sessions := store.List()
	require.Len(t, sessions, 1)
	assert.Equal(t, "Cell Basics", sessions[0].FlashcardsTitle)
	require.Len(t, sessions[0].Flashcards, 1)
}

func TestStreamTurn_ErrorReplacesPlaceholder(t *testing.T) {
	provider := &fakeProvider{chunks: []providers.Chunk{
		{Delta: "partial "},
		{Error: "429: rate limit exceeded"},
	}}
	chat, store := newChatFixture(t, provider)

	events, err := chat.StreamTurn(context.Background(), models.ChatRequest{Prompt: "hello"})
	require.NoError(t, err)
	got := drain(t, events)

	last := got[len(got)-1]
	require.Equal(t, models.EventError, last.Type)
	assert.Equal(t, providers.CategoryRateLimit, last.Error.Category)

	sessions := store.List()
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Messages, 2)
	// The placeholder must hold the user-facing error line, not the partial.
	assert.Equal(t, providers.UserMessage(providers.CategoryRateLimit), sessions[0].Messages[1].Content)
}

func TestStreamTurn_AttachesSources(t *testing.T) {
	provider := &fakeProvider{chunks: []providers.Chunk{
		{Delta: "grounded ", Sources: []session.Source{{URI: "https://a.example", Title: "first"}}},
		{Delta: "answer", Sources: []session.Source{{URI: "https://a.example", Title: "dupe"}}, FinishReason: "stop"},
	}}
	chat, store := newChatFixture(t, provider)

	events, err := chat.StreamTurn(context.Background(), models.ChatRequest{Prompt: "search it", WebSearch: true})
	require.NoError(t, err)
	got := drain(t, events)

	last := got[len(got)-1]
	require.Equal(t, models.EventComplete, last.Type)
	require.Len(t, last.Result.Sources, 1)
	assert.Equal(t, "first", last.Result.Sources[0].Title)

	sessions := store.List()
	assert.True(t, sessions[0].Messages[0].UsedWebSearch)
	require.Len(t, sessions[0].Messages[1].Sources, 1)
}

func TestStreamTurn_EmptyPrompt(t *testing.T) {
	chat, _ := newChatFixture(t, &fakeProvider{})
	_, err := chat.StreamTurn(context.Background(), models.ChatRequest{Prompt: "   "})
	assert.Error(t, err)
}

func TestStreamTurn_UnknownProvider(t *testing.T) {
	chat, store := newChatFixture(t, &fakeProvider{})

	events, err := chat.StreamTurn(context.Background(), models.ChatRequest{
		Prompt:   "hello",
		Provider: "nope",
	})
	require.NoError(t, err)
	got := drain(t, events)

	require.Len(t, got, 1)
	assert.Equal(t, models.EventError, got[0].Type)

	// No unfinished placeholder: the assistant message carries the error.
	sessions := store.List()
	require.Len(t, sessions, 1)
	assert.NotEmpty(t, sessions[0].Messages[1].Content)
}

func TestStreamTurn_ReleasesProducerAfterFinish(t *testing.T) {
	provider := &trailingProvider{done: make(chan struct{})}
	chat, _ := newChatFixture(t, provider)

	events, err := chat.StreamTurn(context.Background(), models.ChatRequest{Prompt: "hi"})
	require.NoError(t, err)
	drain(t, events)

	select {
	case <-provider.done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream producer still blocked after the turn completed")
	}
}

func TestStreamTurn_FinalizesWithoutReader(t *testing.T) {
	provider := &fakeProvider{chunks: []providers.Chunk{
		{Delta: "partial "},
		{Delta: "answer", FinishReason: "stop"},
	}}
	chat, store := newChatFixture(t, provider)

	events, err := chat.StreamTurn(context.Background(), models.ChatRequest{Prompt: "hello"})
	require.NoError(t, err)

	// Take the meta frame and walk away, like a client that disconnected.
	<-events

	assert.Eventually(t, func() bool {
		sessions := store.List()
		if len(sessions) != 1 || len(sessions[0].Messages) != 2 {
			return false
		}
		return sessions[0].Messages[1].Content == "partial answer"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStreamTurn_ExistingSession(t *testing.T) {
	provider := &fakeProvider{chunks: []providers.Chunk{
		{Delta: "second answer", FinishReason: "stop"},
	}}
	chat, store := newChatFixture(t, provider)
	ctx := context.Background()

	sess := store.Create(ctx, "existing")
	events, err := chat.StreamTurn(ctx, models.ChatRequest{SessionID: sess.ID, Prompt: "follow-up"})
	require.NoError(t, err)
	drain(t, events)

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "second answer", got.Messages[1].Content)
}
