package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studypal/studypal-backend/internal/api/models"
	"github.com/studypal/studypal-backend/internal/audit"
	"github.com/studypal/studypal-backend/internal/kv"
	"github.com/studypal/studypal-backend/internal/providers"
	"github.com/studypal/studypal-backend/internal/session"
)

func newSummaryFixture(t *testing.T, provider providers.Provider, maxChars int) (*SummaryService, *session.Store) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	blob := kv.NewMemoryStore()
	store := session.NewStore(blob, log)
	require.NoError(t, store.Load(context.Background()))

	auditLog := audit.NewLogger(log, 10)
	settings := NewSettingsService(blob, "en-US", auditLog, log)
	registry := providers.NewRegistry()
	if provider != nil {
		registry.Register("fake", provider)
	}

	svc := NewSummaryService(store, registry, settings, auditLog, log, "fake", maxChars)
	return svc, store
}

func TestSummarize_CreatesSession(t *testing.T) {
	provider := &fakeProvider{genOut: "Osmosis moves water across membranes."}
	svc, store := newSummaryFixture(t, provider, 0)

	sessionID, summary, err := svc.Summarize(context.Background(), "", "Chapter 3: osmosis and diffusion.")
	require.NoError(t, err)
	assert.Equal(t, "Osmosis moves water across membranes.", summary)

	sess, err := store.Get(sessionID)
	require.NoError(t, err)
	assert.Equal(t, "Uploaded Document", sess.Title)
	assert.Equal(t, "Chapter 3: osmosis and diffusion.", sess.SourceDocument)
	assert.Equal(t, summary, sess.SourceSummary)
}

func TestSummarize_ExistingSession(t *testing.T) {
	provider := &fakeProvider{genOut: "Short summary."}
	svc, store := newSummaryFixture(t, provider, 0)
	ctx := context.Background()

	sess := store.Create(ctx, "Biology")
	sessionID, _, err := svc.Summarize(ctx, sess.ID, "Document text.")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, sessionID)

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Biology", got.Title)
	assert.Equal(t, "Short summary.", got.SourceSummary)
}

func TestSummarize_EmptyDocument(t *testing.T) {
	svc, _ := newSummaryFixture(t, &fakeProvider{}, 0)
	_, _, err := svc.Summarize(context.Background(), "", "   ")
	assert.Error(t, err)
}

func TestSummarize_UnknownSession(t *testing.T) {
	svc, _ := newSummaryFixture(t, &fakeProvider{}, 0)
	_, _, err := svc.Summarize(context.Background(), "session-0", "Document text.")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSummarize_TruncatesDocumentRuneSafe(t *testing.T) {
	provider := &fakeProvider{genOut: "summary"}
	svc, store := newSummaryFixture(t, provider, 5)

	document := "αβγδεζη"
	sessionID, _, err := svc.Summarize(context.Background(), "", document)
	require.NoError(t, err)

	// The prompt carries the first five runes only, cut on a rune boundary.
	assert.Contains(t, provider.genReq.Prompt, "αβγδε")
	assert.NotContains(t, provider.genReq.Prompt, "ζ")

	// The stored document stays complete.
	sess, err := store.Get(sessionID)
	require.NoError(t, err)
	assert.Equal(t, document, sess.SourceDocument)
}

func TestSummarize_ProviderError(t *testing.T) {
	provider := &fakeProvider{genErr: errors.New("boom")}
	svc, store := newSummaryFixture(t, provider, 0)
	ctx := context.Background()

	sess := store.Create(ctx, "Biology")
	_, _, err := svc.Summarize(ctx, sess.ID, "Document text.")
	require.Error(t, err)

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.SourceSummary)
	assert.Empty(t, got.SourceDocument)
}

func TestSummarize_FoldsProfileIntoSystem(t *testing.T) {
	provider := &fakeProvider{genOut: "summary"}
	svc, _ := newSummaryFixture(t, provider, 0)
	ctx := context.Background()

	svc.settings.Set(ctx, models.Settings{Profile: "first-year chemistry student", Language: "en-GB"})
	_, _, err := svc.Summarize(ctx, "", "Document text.")
	require.NoError(t, err)
	assert.True(t, strings.Contains(provider.genReq.System, "first-year chemistry student"))
	assert.True(t, strings.Contains(provider.genReq.System, "en-GB"))
}
