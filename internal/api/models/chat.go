package models

import (
	"github.com/studypal/studypal-backend/internal/providers"
	"github.com/studypal/studypal-backend/internal/reconcile"
	"github.com/studypal/studypal-backend/internal/session"
)

// ChatRequest is one chat turn from the UI.
type ChatRequest struct {
	// SessionID targets an existing session; empty creates one.
	SessionID string `json:"session_id,omitempty"`
	Prompt    string `json:"prompt"`
	// Image is an optional inline upload sent with the prompt.
	Image *session.Image `json:"image,omitempty"`
	// WebSearch asks the provider for search grounding on this turn.
	WebSearch bool `json:"web_search,omitempty"`
	// Provider/Model override the configured defaults.
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// Stream event types.
const (
	EventMeta     = "meta"
	EventContent  = "content"
	EventComplete = "complete"
	EventError    = "error"
)

// StreamEvent is one frame of the chat stream sent to the UI.
type StreamEvent struct {
	Type string `json:"type"`
	// SessionID is set on every frame so the UI can drop frames for
	// sessions it no longer shows.
	SessionID string `json:"session_id,omitempty"`
	// Content is the text fragment on "content" frames.
	Content string `json:"content,omitempty"`
	// Meta describes the provider handling the turn.
	Meta *StreamMeta `json:"meta,omitempty"`
	// Result carries the reconciled outcome on the "complete" frame.
	Result *reconcile.Result `json:"result,omitempty"`
	// Error is set on "error" frames; the stream ends after one.
	Error *StreamError `json:"error,omitempty"`
}

// StreamMeta identifies the provider and model serving a turn.
type StreamMeta struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

// StreamError is the transient notification shown to the user; the same
// category drives the inline message replacing the placeholder.
type StreamError struct {
	Category providers.Category `json:"category"`
	Message  string             `json:"message"`
}

// SummarizeRequest asks for a one-shot summary of an uploaded document.
type SummarizeRequest struct {
	SessionID string `json:"session_id"`
	Document  string `json:"document"`
}

// SuggestRequest asks for autocomplete suggestions for a partial query.
type SuggestRequest struct {
	Query string `json:"query"`
}

// CommandRequest carries a final speech transcript for interpretation.
type CommandRequest struct {
	Transcript string `json:"transcript"`
}

// CommandResponse reports how a transcript was resolved.
type CommandResponse struct {
	Handled bool `json:"handled"`
	// Stopped is true when a reserved phrase ended the listening session.
	Stopped bool   `json:"stopped"`
	Action  string `json:"action,omitempty"`
	// Arg is the dictated remainder for prompt-capturing commands.
	Arg       string       `json:"arg,omitempty"`
	Mode      session.Mode `json:"mode"`
	CardIndex int          `json:"card_index"`
}

// Settings is the user-tunable state the browser persists through us.
type Settings struct {
	Profile  string `json:"profile"`
	Theme    string `json:"theme"`
	Voice    string `json:"voice"`
	Language string `json:"language"`
}
