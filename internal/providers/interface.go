package providers

import (
	"context"

	"github.com/studypal/studypal-backend/internal/session"
)

// Provider is the generative AI collaborator: a black box that turns a
// prompt plus conversation history into a stream of text fragments, with
// optional grounding citations when web search is enabled.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// StreamGenerate starts a streaming generation. The returned channel is
	// closed after a terminal chunk (FinishReason or Error set).
	StreamGenerate(ctx context.Context, req Request) (<-chan Chunk, error)

	// Generate performs a one-shot generation and returns the full text.
	Generate(ctx context.Context, req Request) (string, error)
}

// Request describes one generation call.
type Request struct {
	// Prompt is the new user input.
	Prompt string `json:"prompt"`
	// History is the prior conversation, role-tagged, oldest first.
	History []Turn `json:"history,omitempty"`
	// System is the system instruction (study profile, language, aid format).
	System string `json:"system,omitempty"`
	// Image is an optional inline payload sent with the prompt.
	Image *session.Image `json:"image,omitempty"`
	// WebSearch enables search grounding when the provider supports it.
	WebSearch bool `json:"web_search,omitempty"`
	// Model overrides the provider's default model.
	Model string `json:"model,omitempty"`
	// StringArray constrains the output to a strict JSON array of strings.
	StringArray bool `json:"string_array,omitempty"`
}

// Turn is one prior message in the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chunk is one increment of a streaming response.
type Chunk struct {
	// Delta is the text fragment, possibly empty on citation-only chunks.
	Delta string `json:"delta,omitempty"`
	// Sources are grounding citations attached to this chunk.
	Sources []session.Source `json:"sources,omitempty"`
	// FinishReason is set on the final chunk of a successful stream.
	FinishReason string `json:"finish_reason,omitempty"`
	// Error is set when the stream failed; no further chunks follow.
	Error string `json:"error,omitempty"`
}
