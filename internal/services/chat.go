package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/studypal/studypal-backend/internal/api/models"
	"github.com/studypal/studypal-backend/internal/audit"
	"github.com/studypal/studypal-backend/internal/providers"
	"github.com/studypal/studypal-backend/internal/reconcile"
	"github.com/studypal/studypal-backend/internal/session"
)

// ChatService runs chat turns: it inserts the user message and the assistant
// placeholder, streams fragments from the provider into the placeholder, and
// hands the completed text to the reconciler.
type ChatService struct {
	store           *session.Store
	registry        *providers.Registry
	reconciler      *reconcile.Reconciler
	settings        *SettingsService
	audit           *audit.Logger
	log             *logrus.Logger
	defaultProvider string
}

// NewChatService creates a chat service.
func NewChatService(
	store *session.Store,
	registry *providers.Registry,
	reconciler *reconcile.Reconciler,
	settings *SettingsService,
	auditLog *audit.Logger,
	log *logrus.Logger,
	defaultProvider string,
) *ChatService {
	if log == nil {
		log = logrus.New()
	}
	return &ChatService{
		store:           store,
		registry:        registry,
		reconciler:      reconciler,
		settings:        settings,
		audit:           auditLog,
		log:             log,
		defaultProvider: defaultProvider,
	}
}

// StreamTurn executes one chat turn and returns the event stream for it.
// The placeholder is inserted before this returns, so the UI sees the
// "thinking" state immediately; all later mutations re-derive the session by
// id, making fragments for a deleted session silent no-ops.
func (s *ChatService) StreamTurn(ctx context.Context, req models.ChatRequest) (<-chan models.StreamEvent, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt must not be empty")
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = s.store.Create(ctx, deriveTitle(req.Prompt)).ID
	}

	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	history := make([]providers.Turn, 0, len(sess.Messages))
	for _, msg := range sess.Messages {
		history = append(history, providers.Turn{Role: msg.Role, Content: msg.Content})
	}

	if err := s.store.AppendMessage(ctx, sessionID, session.Message{
		ID:            uuid.New().String(),
		Role:          session.RoleUser,
		Content:       req.Prompt,
		Image:         req.Image,
		CreatedAt:     time.Now(),
		UsedWebSearch: req.WebSearch,
	}); err != nil {
		return nil, err
	}
	if err := s.store.AppendMessage(ctx, sessionID, session.Message{
		ID:        uuid.New().String(),
		Role:      session.RoleAssistant,
		CreatedAt: time.Now(),
	}); err != nil {
		return nil, err
	}

	providerID := req.Provider
	if providerID == "" {
		providerID = s.defaultProvider
	}
	provider := s.registry.Get(providerID)

	// queue decouples the turn pipeline from the consumer: persistence and
	// reconciliation run to completion even when the reader stops taking
	// events, so the placeholder is always finalized or failed.
	events := make(chan models.StreamEvent)
	queue := make(chan models.StreamEvent)
	go forwardEvents(queue, events)

	go func() {
		defer close(queue)

		// The turn must finish persisting even if the caller's request
		// context dies with the connection.
		bg := context.Background()

		if provider == nil {
			s.failTurn(bg, queue, sessionID, providers.CategoryUnknown,
				fmt.Sprintf("provider not configured: %s", providerID))
			return
		}

		queue <- models.StreamEvent{
			Type:      models.EventMeta,
			SessionID: sessionID,
			Meta:      &models.StreamMeta{Provider: providerID, Model: req.Model},
		}

		stream, err := provider.StreamGenerate(ctx, providers.Request{
			Prompt:    req.Prompt,
			History:   history,
			System:    s.systemInstruction(bg),
			Image:     req.Image,
			WebSearch: req.WebSearch,
			Model:     req.Model,
		})
		if err != nil {
			s.failTurn(bg, queue, sessionID, providers.Classify(err), err.Error())
			return
		}

		var full strings.Builder
		var sources []session.Source
		for chunk := range stream {
			if chunk.Error != "" {
				s.failTurn(bg, queue, sessionID, providers.ClassifyMessage(chunk.Error), chunk.Error)
				return
			}
			if chunk.Delta != "" {
				full.WriteString(chunk.Delta)
				s.reconciler.AppendFragment(bg, sessionID, chunk.Delta)
				queue <- models.StreamEvent{
					Type:      models.EventContent,
					SessionID: sessionID,
					Content:   chunk.Delta,
				}
			}
			sources = append(sources, chunk.Sources...)
			if chunk.FinishReason != "" {
				break
			}
		}
		// Let a producer with chunks past the finish marker close its channel.
		for range stream {
		}

		result := s.reconciler.Finalize(bg, sessionID, full.String(), sources)
		s.audit.Record(audit.EventChatTurn, sessionID, "chat turn completed", map[string]string{
			"provider": providerID,
		})
		for _, mode := range result.Applied {
			s.audit.Record(audit.EventAidGenerated, sessionID, "study aid generated", map[string]string{
				"kind": string(mode),
			})
		}

		queue <- models.StreamEvent{
			Type:      models.EventComplete,
			SessionID: sessionID,
			Result:    &result,
		}
	}()

	return events, nil
}

// forwardEvents relays pipeline events to the consumer through an unbounded
// backlog. The pipeline side never blocks; a departed reader only strands
// this relay, which the handlers drain on exit.
func forwardEvents(in <-chan models.StreamEvent, out chan<- models.StreamEvent) {
	defer close(out)
	var backlog []models.StreamEvent
	for in != nil || len(backlog) > 0 {
		var send chan<- models.StreamEvent
		var head models.StreamEvent
		if len(backlog) > 0 {
			send = out
			head = backlog[0]
		}
		select {
		case event, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			backlog = append(backlog, event)
		case send <- head:
			backlog = backlog[1:]
		}
	}
}

// failTurn converts an upstream failure into the inline error line plus the
// transient notification frame, so no unfinished placeholder survives.
func (s *ChatService) failTurn(ctx context.Context, events chan<- models.StreamEvent, sessionID string, cat providers.Category, raw string) {
	userMsg := providers.UserMessage(cat)
	s.reconciler.Fail(ctx, sessionID, userMsg)
	s.log.WithFields(logrus.Fields{"session_id": sessionID, "category": string(cat)}).
		WithField("cause", raw).Error("chat turn failed")
	s.audit.Record(audit.EventChatError, sessionID, "chat turn failed", map[string]string{
		"category": string(cat),
	})
	events <- models.StreamEvent{
		Type:      models.EventError,
		SessionID: sessionID,
		Error:     &models.StreamError{Category: cat, Message: userMsg},
	}
}

// systemInstruction folds the study profile and language into the standing
// instruction that also teaches the model the embedded aid payload format.
func (s *ChatService) systemInstruction(ctx context.Context) string {
	var b strings.Builder
	b.WriteString("You are a friendly study assistant helping a learner understand their material.\n")

	settings := s.settings.Get(ctx)
	if settings.Profile != "" {
		b.WriteString("About the learner: ")
		b.WriteString(settings.Profile)
		b.WriteString("\n")
	}
	if settings.Language != "" {
		fmt.Fprintf(&b, "Respond in the language with code %q unless asked otherwise.\n", settings.Language)
	}

	b.WriteString(`When the learner asks for flashcards, a quiz, or slides, include exactly one fenced code block tagged json in your reply, shaped like:
` + "```json" + `
{"title": "...", "flashcards": [{"question": "...", "answer": "...", "context": "..."}], "quiz": [{"question": "...", "options": ["..."], "answer": "...", "explanation": "..."}], "slides": [{"title": "...", "bullets": ["..."], "notes": "..."}]}
` + "```" + `
Include only the arrays that were asked for and keep any commentary outside the block.`)
	return b.String()
}

func deriveTitle(prompt string) string {
	title := strings.TrimSpace(prompt)
	if runes := []rune(title); len(runes) > 40 {
		title = strings.TrimSpace(string(runes[:40])) + "…"
	}
	if title == "" {
		title = "New Study Session"
	}
	return title
}
