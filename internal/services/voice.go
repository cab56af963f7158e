package services

import (
	"context"

	"github.com/studypal/studypal-backend/internal/api/models"
	"github.com/studypal/studypal-backend/internal/audit"
	"github.com/studypal/studypal-backend/internal/command"
	"github.com/studypal/studypal-backend/internal/session"
)

// VoiceService interprets final speech transcripts into navigation actions.
// Mode switches and pagination apply directly to the session store; dictated
// prompts are handed back to the caller, which submits them as a chat turn.
type VoiceService struct {
	store *session.Store
	audit *audit.Logger
}

// NewVoiceService creates a voice command service.
func NewVoiceService(store *session.Store, auditLog *audit.Logger) *VoiceService {
	return &VoiceService{store: store, audit: auditLog}
}

// Interpret resolves one transcript. The dispatch table is rebuilt per call
// with closures writing into the local response, which keeps the dispatcher
// itself stateless.
func (v *VoiceService) Interpret(ctx context.Context, transcript string) models.CommandResponse {
	resp := models.CommandResponse{}

	d := command.New(func() {
		resp.Action = "stop_listening"
	})

	setMode := func(name string, mode session.Mode) command.Action {
		return func() {
			v.store.SetMode(mode)
			resp.Action = name
		}
	}
	d.Handle("show flashcards", setMode("show_flashcards", session.ModeFlashcards))
	d.Handle("flashcards", setMode("show_flashcards", session.ModeFlashcards))
	d.Handle("show quiz", setMode("show_quiz", session.ModeQuiz))
	d.Handle("quiz", setMode("show_quiz", session.ModeQuiz))
	d.Handle("show slides", setMode("show_slides", session.ModeSlides))
	d.Handle("slides", setMode("show_slides", session.ModeSlides))
	d.Handle("show chat", setMode("show_chat", session.ModeChat))
	d.Handle("back to chat", setMode("show_chat", session.ModeChat))

	advance := func(name string, delta int) command.Action {
		return func() {
			v.store.Advance(delta)
			resp.Action = name
		}
	}
	d.Handle("next", advance("next", 1))
	d.Handle("next card", advance("next", 1))
	d.Handle("next slide", advance("next", 1))
	d.Handle("previous", advance("previous", -1))
	d.Handle("previous card", advance("previous", -1))
	d.Handle("go back", advance("previous", -1))

	d.Handle("new session", func() {
		v.store.Create(ctx, "")
		resp.Action = "new_session"
	})

	capture := func(name string) command.PrefixAction {
		return func(arg string) {
			resp.Action = name
			resp.Arg = arg
		}
	}
	d.HandlePrefix("ask ", capture("dictate_prompt"))
	d.HandlePrefix("search for ", capture("dictate_search"))
	d.HandlePrefix("tell me about ", capture("dictate_prompt"))

	result := d.Dispatch(transcript)
	resp.Handled = result.Handled
	resp.Stopped = result.Stopped
	resp.Mode = v.store.Mode()
	resp.CardIndex = v.store.CardIndex()

	if result.Handled && v.audit != nil {
		v.audit.Record(audit.EventCommand, v.store.ActiveID(), "voice command dispatched", map[string]string{
			"action": resp.Action,
		})
	}
	return resp
}
