package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EventType labels what happened.
type EventType string

const (
	EventSessionCreate EventType = "session.create"
	EventSessionDelete EventType = "session.delete"
	EventChatTurn      EventType = "chat.turn"
	EventChatError     EventType = "chat.error"
	EventAidGenerated  EventType = "aid.generated"
	EventSummary       EventType = "summary.generated"
	EventSettingsSet   EventType = "settings.update"
	EventCommand       EventType = "command.dispatch"
	EventLogin         EventType = "auth.login"
)

// Event is one recorded activity entry, surfaced on the settings screen.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Type      EventType         `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Logger keeps a bounded in-memory ring of events and mirrors each one to
// the structured log. Losing old entries is fine; this is an activity view,
// not a compliance trail.
type Logger struct {
	mu     sync.Mutex
	log    *logrus.Logger
	events []Event
	limit  int
}

// NewLogger creates a ring of at most limit events.
func NewLogger(log *logrus.Logger, limit int) *Logger {
	if log == nil {
		log = logrus.New()
	}
	if limit <= 0 {
		limit = 200
	}
	return &Logger{log: log, limit: limit}
}

// Record appends an event, evicting the oldest past the limit.
func (l *Logger) Record(eventType EventType, sessionID, detail string, fields map[string]string) {
	event := Event{
		ID:        uuid.New(),
		Type:      eventType,
		SessionID: sessionID,
		Detail:    detail,
		Fields:    fields,
		CreatedAt: time.Now(),
	}

	entry := l.log.WithField("event", string(eventType))
	if sessionID != "" {
		entry = entry.WithField("session_id", sessionID)
	}
	for k, v := range fields {
		entry = entry.WithField(k, v)
	}
	entry.Info(detail)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	if len(l.events) > l.limit {
		l.events = l.events[len(l.events)-l.limit:]
	}
}

// Recent returns up to limit events, newest first.
func (l *Logger) Recent(limit int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.events) {
		limit = len(l.events)
	}
	out := make([]Event, limit)
	for i := 0; i < limit; i++ {
		out[i] = l.events[len(l.events)-1-i]
	}
	return out
}
