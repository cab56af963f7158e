package services

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studypal/studypal-backend/internal/audit"
	"github.com/studypal/studypal-backend/internal/kv"
	"github.com/studypal/studypal-backend/internal/session"
)

func newVoiceFixture(t *testing.T) (*VoiceService, *session.Store) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	store := session.NewStore(kv.NewMemoryStore(), log)
	require.NoError(t, store.Load(context.Background()))
	return NewVoiceService(store, audit.NewLogger(log, 10)), store
}

func TestInterpret_ModeSwitch(t *testing.T) {
	svc, store := newVoiceFixture(t)

	resp := svc.Interpret(context.Background(), "Show Flashcards")
	assert.True(t, resp.Handled)
	assert.Equal(t, "show_flashcards", resp.Action)
	assert.Equal(t, session.ModeFlashcards, resp.Mode)
	assert.Equal(t, session.ModeFlashcards, store.Mode())
}

func TestInterpret_Pagination(t *testing.T) {
	svc, _ := newVoiceFixture(t)
	ctx := context.Background()

	svc.Interpret(ctx, "show slides")
	resp := svc.Interpret(ctx, "next slide")
	assert.Equal(t, 1, resp.CardIndex)

	resp = svc.Interpret(ctx, "next")
	assert.Equal(t, 2, resp.CardIndex)

	resp = svc.Interpret(ctx, "go back")
	assert.Equal(t, 1, resp.CardIndex)

	// Switching mode resets pagination.
	resp = svc.Interpret(ctx, "show quiz")
	assert.Equal(t, 0, resp.CardIndex)
}

func TestInterpret_PreviousClampsAtZero(t *testing.T) {
	svc, _ := newVoiceFixture(t)
	resp := svc.Interpret(context.Background(), "previous")
	assert.True(t, resp.Handled)
	assert.Equal(t, 0, resp.CardIndex)
}

func TestInterpret_DictatedPrompt(t *testing.T) {
	svc, _ := newVoiceFixture(t)

	resp := svc.Interpret(context.Background(), "ask what is photosynthesis")
	assert.True(t, resp.Handled)
	assert.Equal(t, "dictate_prompt", resp.Action)
	assert.Equal(t, "what is photosynthesis", resp.Arg)

	resp = svc.Interpret(context.Background(), "search for krebs cycle")
	assert.Equal(t, "dictate_search", resp.Action)
	assert.Equal(t, "krebs cycle", resp.Arg)
}

func TestInterpret_StopWins(t *testing.T) {
	svc, store := newVoiceFixture(t)

	resp := svc.Interpret(context.Background(), "okay stop listening please")
	assert.True(t, resp.Stopped)
	assert.Equal(t, "stop_listening", resp.Action)
	// Stop never falls through to other handlers.
	assert.Equal(t, session.ModeChat, store.Mode())
}

func TestInterpret_NewSession(t *testing.T) {
	svc, store := newVoiceFixture(t)

	resp := svc.Interpret(context.Background(), "new session")
	assert.Equal(t, "new_session", resp.Action)
	assert.Len(t, store.List(), 1)
	assert.NotEmpty(t, store.ActiveID())
}

func TestInterpret_Unrecognized(t *testing.T) {
	svc, _ := newVoiceFixture(t)
	resp := svc.Interpret(context.Background(), "make me a sandwich")
	assert.False(t, resp.Handled)
	assert.Empty(t, resp.Action)
}
