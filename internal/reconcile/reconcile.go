package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/studypal/studypal-backend/internal/session"
)

// Reconciler merges a completed model response into session state: it pulls
// the embedded aid payload out of the accumulated text, replaces the matching
// aid slots, and rewrites the assistant placeholder with the visible remainder.
type Reconciler struct {
	store *session.Store
	log   *logrus.Logger
}

// Result describes what a finalized response did to the session.
type Result struct {
	// Content is the final visible message text.
	Content string `json:"content"`
	// Sources are the deduplicated citations attached to the message.
	Sources []session.Source `json:"sources,omitempty"`
	// Applied lists the aid kinds replaced, in check order.
	Applied []session.Mode `json:"applied,omitempty"`
	// Mode is the display mode after reconciliation.
	Mode session.Mode `json:"mode"`
}

func New(store *session.Store, log *logrus.Logger) *Reconciler {
	if log == nil {
		log = logrus.New()
	}
	return &Reconciler{store: store, log: log}
}

// AppendFragment appends a streamed text fragment to the session's trailing
// assistant placeholder. A fragment arriving after the session was deleted is
// a silent no-op.
func (r *Reconciler) AppendFragment(ctx context.Context, sessionID, fragment string) {
	if fragment == "" {
		return
	}
	err := r.store.UpdateFunc(ctx, sessionID, func(sess *session.Session) {
		if i := lastAssistantIndex(sess); i >= 0 {
			sess.Messages[i].Content += fragment
		}
	})
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		r.log.WithError(err).Warn("failed to append stream fragment")
	}
}

// Finalize runs the one-shot post-processing over the full accumulated text:
// extract the first json fence, distribute any aids into the session, strip
// the fence from the visible text, and attach deduplicated sources. The
// trailing assistant placeholder is replaced with the final content.
func (r *Reconciler) Finalize(ctx context.Context, sessionID, full string, sources []session.Source) Result {
	result := Result{Content: full, Mode: r.store.Mode()}
	result.Sources = DedupeSources(sources)

	payload, fenced, ok := Extract(full)
	if !ok && strings.Contains(full, "```json") {
		// Malformed JSON inside the fence: keep the raw text, tell no one.
		r.log.Debug("embedded aid payload did not parse, keeping raw text")
	}

	if ok && payload.HasAids() {
		applied := r.apply(ctx, sessionID, payload)
		result.Applied = applied
		result.Mode = r.store.Mode()

		visible := strings.TrimSpace(strings.Replace(full, fenced, "", 1))
		if visible == "" {
			visible = fallbackSentence(payload, applied)
		}
		result.Content = visible
	}

	err := r.store.UpdateFunc(ctx, sessionID, func(sess *session.Session) {
		if i := lastAssistantIndex(sess); i >= 0 {
			sess.Messages[i].Content = result.Content
			sess.Messages[i].Sources = result.Sources
		}
	})
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		r.log.WithError(err).Warn("failed to finalize assistant message")
	}
	return result
}

// Fail replaces the unfinished placeholder with a user-visible error line so
// the transcript is never left holding a dangling "thinking" message.
func (r *Reconciler) Fail(ctx context.Context, sessionID, message string) {
	err := r.store.UpdateFunc(ctx, sessionID, func(sess *session.Session) {
		if i := lastAssistantIndex(sess); i >= 0 {
			sess.Messages[i].Content = message
		}
	})
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		r.log.WithError(err).Warn("failed to record stream error on placeholder")
	}
}

// apply replaces aid slots in a fixed check order: quiz, then flashcards,
// then slides. The display mode follows each assignment, so when several
// kinds arrive at once the last-checked one ends up on screen.
func (r *Reconciler) apply(ctx context.Context, sessionID string, payload *AidPayload) []session.Mode {
	var applied []session.Mode

	err := r.store.UpdateFunc(ctx, sessionID, func(sess *session.Session) {
		if len(payload.Quiz) > 0 {
			sess.QuizItems = payload.Quiz
			sess.QuizTitle = payload.Title
			applied = append(applied, session.ModeQuiz)
		}
		if len(payload.Flashcards) > 0 {
			sess.Flashcards = payload.Flashcards
			sess.FlashcardsTitle = payload.Title
			applied = append(applied, session.ModeFlashcards)
		}
		if len(payload.Slides) > 0 {
			sess.Slides = payload.Slides
			sess.SlidesTitle = payload.Title
			applied = append(applied, session.ModeSlides)
		}
	})
	if err != nil {
		// Session vanished mid-stream; nothing to switch to.
		return nil
	}

	for _, mode := range applied {
		r.store.SetMode(mode)
	}
	return applied
}

// fallbackSentence substitutes for a response that was nothing but the aid
// payload, so the transcript still reads naturally.
func fallbackSentence(payload *AidPayload, applied []session.Mode) string {
	title := payload.Title
	if title == "" && len(applied) > 0 {
		switch applied[len(applied)-1] {
		case session.ModeQuiz:
			title = "quiz"
		case session.ModeFlashcards:
			title = "flashcards"
		case session.ModeSlides:
			title = "slide deck"
		}
	}
	return fmt.Sprintf("I've created the %q for you.", title)
}

func lastAssistantIndex(sess *session.Session) int {
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		if sess.Messages[i].Role == session.RoleAssistant {
			return i
		}
	}
	return -1
}
