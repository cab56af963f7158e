package session

import (
	"encoding/json"
	"time"
)

// Role values for messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Mode is the study aid the UI is currently displaying.
type Mode string

const (
	ModeChat       Mode = "chat"
	ModeFlashcards Mode = "flashcards"
	ModeQuiz       Mode = "quiz"
	ModeSlides     Mode = "slides"
)

// Session is one continuous study conversation with its transcript and any
// aids generated from it. Aid slots are independent and replaced wholesale
// whenever a new aid of that kind arrives.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Messages []Message `json:"messages"`

	Flashcards      []Flashcard `json:"flashcards,omitempty"`
	FlashcardsTitle string      `json:"flashcardsTitle,omitempty"`
	QuizItems       []QuizItem  `json:"quizItems,omitempty"`
	QuizTitle       string      `json:"quizTitle,omitempty"`
	Slides          []Slide     `json:"slides,omitempty"`
	SlidesTitle     string      `json:"slidesTitle,omitempty"`

	SourceDocument string `json:"sourceDocument,omitempty"`
	SourceSummary  string `json:"sourceSummary,omitempty"`
}

// Message is a single chat turn. Assistant messages start as an empty
// placeholder, grow in place while the response streams, and are replaced
// once with the reconciled content.
type Message struct {
	ID            string    `json:"id"`
	Role          string    `json:"role"`
	Content       string    `json:"content"`
	Image         *Image    `json:"image,omitempty"`
	Sources       []Source  `json:"sources,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UsedWebSearch bool      `json:"usedWebSearch,omitempty"`
}

// Image is an inline payload attached to a user message.
type Image struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

// Source is a grounding citation attached to an assistant message.
type Source struct {
	URI     string `json:"uri"`
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
}

// Flashcard, QuizItem and Slide come straight from the model's structured
// payload; beyond array-type and non-empty checks their contents are trusted.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Context  string `json:"context,omitempty"`
}

type QuizItem struct {
	Question    string   `json:"question"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

type Slide struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}

// EnvelopeVersion is the current persisted schema version. Version 1 is the
// historical bare session array, accepted and upgraded on load.
const EnvelopeVersion = 2

// Envelope is the versioned wrapper the session list is persisted in.
type Envelope struct {
	Version  int       `json:"version"`
	Sessions []Session `json:"sessions"`
}

// Patch is a partial update applied to a session. Nil fields are untouched.
type Patch struct {
	Title           *string
	Flashcards      []Flashcard
	FlashcardsTitle *string
	QuizItems       []QuizItem
	QuizTitle       *string
	Slides          []Slide
	SlidesTitle     *string
	SourceDocument  *string
	SourceSummary   *string
}

// Clone returns a deep copy so callers can hand sessions out without
// aliasing the store's backing slices.
func (s Session) Clone() Session {
	out := s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	for i, m := range s.Messages {
		if len(m.Sources) > 0 {
			out.Messages[i].Sources = append([]Source(nil), m.Sources...)
		}
	}
	if s.Flashcards != nil {
		out.Flashcards = append([]Flashcard(nil), s.Flashcards...)
	}
	if s.QuizItems != nil {
		out.QuizItems = append([]QuizItem(nil), s.QuizItems...)
		for i, q := range s.QuizItems {
			if len(q.Options) > 0 {
				out.QuizItems[i].Options = append([]string(nil), q.Options...)
			}
		}
	}
	if s.Slides != nil {
		out.Slides = append([]Slide(nil), s.Slides...)
		for i, sl := range s.Slides {
			if len(sl.Bullets) > 0 {
				out.Slides[i].Bullets = append([]string(nil), sl.Bullets...)
			}
		}
	}
	return out
}

// MarshalJSON keeps Messages non-nil so the persisted form round-trips as an
// array rather than null.
func (s Session) MarshalJSON() ([]byte, error) {
	type alias Session
	a := alias(s)
	if a.Messages == nil {
		a.Messages = []Message{}
	}
	return json.Marshal(a)
}
