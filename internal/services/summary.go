package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/studypal/studypal-backend/internal/audit"
	"github.com/studypal/studypal-backend/internal/providers"
	"github.com/studypal/studypal-backend/internal/session"
)

// SummaryService turns an uploaded document into a study summary stored on
// the session. One-shot, no streaming.
type SummaryService struct {
	store           *session.Store
	registry        *providers.Registry
	settings        *SettingsService
	audit           *audit.Logger
	log             *logrus.Logger
	defaultProvider string
	maxChars        int
}

// NewSummaryService creates a summary service. maxChars bounds the document
// text sent upstream.
func NewSummaryService(
	store *session.Store,
	registry *providers.Registry,
	settings *SettingsService,
	auditLog *audit.Logger,
	log *logrus.Logger,
	defaultProvider string,
	maxChars int,
) *SummaryService {
	if log == nil {
		log = logrus.New()
	}
	if maxChars <= 0 {
		maxChars = 60000
	}
	return &SummaryService{
		store:           store,
		registry:        registry,
		settings:        settings,
		audit:           auditLog,
		log:             log,
		defaultProvider: defaultProvider,
		maxChars:        maxChars,
	}
}

// Summarize generates a summary for the document and stores both document
// and summary on the session. The session is created when sessionID is empty.
func (s *SummaryService) Summarize(ctx context.Context, sessionID, document string) (string, string, error) {
	document = strings.TrimSpace(document)
	if document == "" {
		return "", "", fmt.Errorf("document must not be empty")
	}

	if sessionID == "" {
		sessionID = s.store.Create(ctx, "Uploaded Document").ID
	} else if _, err := s.store.Get(sessionID); err != nil {
		return "", "", err
	}

	truncated := document
	if runes := []rune(truncated); len(runes) > s.maxChars {
		truncated = string(runes[:s.maxChars])
	}

	provider := s.registry.Get(s.defaultProvider)
	if provider == nil {
		return "", "", providers.ErrNotConfigured
	}

	settings := s.settings.Get(ctx)
	prompt := fmt.Sprintf(
		"Summarize the following study material for the learner. Focus on the key concepts they need to remember.\n\n%s",
		truncated)
	system := "You summarize study material clearly and concisely."
	if settings.Profile != "" {
		system += " About the learner: " + settings.Profile
	}
	if settings.Language != "" {
		system += fmt.Sprintf(" Respond in the language with code %q.", settings.Language)
	}

	summary, err := provider.Generate(ctx, providers.Request{Prompt: prompt, System: system})
	if err != nil {
		s.log.WithError(err).Error("document summarization failed")
		return "", "", err
	}

	err = s.store.Update(ctx, sessionID, session.Patch{
		SourceDocument: &document,
		SourceSummary:  &summary,
	})
	if err != nil {
		return "", "", err
	}

	s.audit.Record(audit.EventSummary, sessionID, "document summarized", nil)
	return sessionID, summary, nil
}
