package providers

import (
	"errors"
	"strings"
)

// Category buckets an upstream generation failure into the message the user
// actually sees. Everything unmatched falls through to CategoryUnknown.
type Category string

const (
	CategoryCredential  Category = "credential"
	CategoryRateLimit   Category = "rate_limit"
	CategoryMalformed   Category = "malformed_request"
	CategoryUnavailable Category = "unavailable"
	CategoryUnknown     Category = "unknown"
)

// Classify buckets a provider error by message pattern. Providers surface
// errors as opaque strings, so pattern matching is all there is to go on.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	return ClassifyMessage(err.Error())
}

// ClassifyMessage is Classify over a raw error string, for stream chunks
// that carry the failure as text.
func ClassifyMessage(msg string) Category {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "api key") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "authentication") ||
		strings.Contains(lower, "permission denied"):
		return CategoryCredential
	case strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "resource exhausted"):
		return CategoryRateLimit
	case strings.Contains(lower, "invalid") ||
		strings.Contains(lower, "bad request") ||
		strings.Contains(lower, "malformed"):
		return CategoryMalformed
	case strings.Contains(lower, "unavailable") ||
		strings.Contains(lower, "overloaded") ||
		strings.Contains(lower, "connection") ||
		strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "network"):
		return CategoryUnavailable
	default:
		return CategoryUnknown
	}
}

// UserMessage renders a category as the inline error line shown in place of
// the unfinished assistant message.
func UserMessage(cat Category) string {
	switch cat {
	case CategoryCredential:
		return "Sorry, the AI service rejected the configured credentials. Please check the API key in settings."
	case CategoryRateLimit:
		return "Sorry, the AI service is rate limiting requests right now. Please wait a moment and try again."
	case CategoryMalformed:
		return "Sorry, that request couldn't be processed. Please rephrase and try again."
	case CategoryUnavailable:
		return "Sorry, the AI service is currently unreachable. Please try again shortly."
	default:
		return "Sorry, something went wrong while generating a response. Please try again."
	}
}

// ErrNotConfigured is returned when no provider matches the requested id.
var ErrNotConfigured = errors.New("provider not configured")
