package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/studypal/studypal-backend/internal/kv"
)

// ErrNotFound is returned when a session id does not resolve. Streaming
// callers treat it as a silent no-op: a late fragment for a deleted session
// must land nowhere.
var ErrNotFound = errors.New("session not found")

// Store holds the session list in memory and re-serializes the full
// versioned envelope to the key-value store after every mutation. It also
// carries the UI's runtime state (active session, display mode, card index),
// which is not persisted.
type Store struct {
	mu       sync.Mutex
	kv       kv.Store
	log      *logrus.Logger
	sessions []Session
	activeID string
	mode     Mode
	card     int
}

// NewStore creates a store over the given blob store. Call Load before use.
func NewStore(store kv.Store, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	return &Store{kv: store, log: log, mode: ModeChat}
}

// Load reads the persisted envelope. Legacy bare-array payloads are accepted
// and upgraded on the next save; unparseable payloads are backed up
// best-effort under a timestamped key and discarded.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.kv.Get(ctx, kv.KeySessions)
	if errors.Is(err, kv.ErrNotFound) {
		s.sessions = nil
		return nil
	}
	if err != nil {
		s.log.WithError(err).Error("failed to read session envelope, starting empty")
		s.sessions = nil
		return nil
	}

	sessions, ok := decodeEnvelope(raw, s.log)
	if !ok {
		backupKey := fmt.Sprintf("%s.corrupt.%d", kv.KeySessions, time.Now().UnixMilli())
		if backupErr := s.kv.Set(ctx, backupKey, raw); backupErr != nil {
			s.log.WithError(backupErr).Warn("failed to back up corrupted session payload")
		}
		s.sessions = nil
		return nil
	}

	s.sessions = sessions
	s.activeID = ""
	if latest := latestUpdated(sessions); latest != nil {
		s.activeID = latest.ID
	}
	return nil
}

func decodeEnvelope(raw []byte, log *logrus.Logger) ([]Session, bool) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err == nil && (env.Version != 0 || env.Sessions != nil) {
		switch {
		case env.Version > EnvelopeVersion:
			log.WithField("version", env.Version).Warn("session envelope is newer than this build, loading as-is")
		case env.Version < EnvelopeVersion:
			// Forward migration hook. Older envelopes carry nothing that
			// needs rewriting yet.
		}
		return env.Sessions, true
	}

	// Legacy format: a bare session array with no envelope.
	var legacy []Session
	if err := json.Unmarshal(raw, &legacy); err == nil {
		return legacy, true
	}

	log.Warn("discarding unparseable session payload")
	return nil, false
}

// persist writes the envelope back. Failures are logged and swallowed; a
// write error must never take down a chat turn.
func (s *Store) persist(ctx context.Context) {
	sessions := s.sessions
	if sessions == nil {
		sessions = []Session{}
	}
	raw, err := json.Marshal(Envelope{Version: EnvelopeVersion, Sessions: sessions})
	if err != nil {
		s.log.WithError(err).Error("failed to marshal session envelope")
		return
	}
	if err := s.kv.Set(ctx, kv.KeySessions, raw); err != nil {
		s.log.WithError(err).Error("failed to persist session envelope")
	}
}

// Create adds a new empty session, makes it active, and returns a copy.
// IDs are derived from the creation timestamp.
func (s *Store) Create(ctx context.Context, title string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	id := fmt.Sprintf("session-%d", now.UnixMilli())
	for s.indexOf(id) >= 0 {
		now = now.Add(time.Millisecond)
		id = fmt.Sprintf("session-%d", now.UnixMilli())
	}
	if title == "" {
		title = "New Study Session"
	}

	sess := Session{
		ID:        id,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Message{},
	}
	s.sessions = append(s.sessions, sess)
	s.activeID = id
	s.persist(ctx)
	return sess.Clone()
}

// Get returns a copy of the session with the given id.
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return Session{}, ErrNotFound
	}
	return s.sessions[i].Clone(), nil
}

// List returns copies of all sessions, most recently updated first.
func (s *Store) List() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Update applies a partial patch and stamps UpdatedAt.
func (s *Store) Update(ctx context.Context, id string, patch Patch) error {
	return s.UpdateFunc(ctx, id, func(sess *Session) {
		if patch.Title != nil {
			sess.Title = *patch.Title
		}
		if patch.Flashcards != nil {
			sess.Flashcards = patch.Flashcards
		}
		if patch.FlashcardsTitle != nil {
			sess.FlashcardsTitle = *patch.FlashcardsTitle
		}
		if patch.QuizItems != nil {
			sess.QuizItems = patch.QuizItems
		}
		if patch.QuizTitle != nil {
			sess.QuizTitle = *patch.QuizTitle
		}
		if patch.Slides != nil {
			sess.Slides = patch.Slides
		}
		if patch.SlidesTitle != nil {
			sess.SlidesTitle = *patch.SlidesTitle
		}
		if patch.SourceDocument != nil {
			sess.SourceDocument = *patch.SourceDocument
		}
		if patch.SourceSummary != nil {
			sess.SourceSummary = *patch.SourceSummary
		}
	})
}

// UpdateFunc applies a full transform to the session, stamps UpdatedAt, and
// persists. The target is re-derived by id under the lock, so a transform
// racing a delete resolves to ErrNotFound rather than touching stale state.
func (s *Store) UpdateFunc(ctx context.Context, id string, fn func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	fn(&s.sessions[i])
	s.sessions[i].UpdatedAt = time.Now()
	s.persist(ctx)
	return nil
}

// AppendMessage adds a message to the session transcript.
func (s *Store) AppendMessage(ctx context.Context, id string, msg Message) error {
	return s.UpdateFunc(ctx, id, func(sess *Session) {
		sess.Messages = append(sess.Messages, msg)
	})
}

// Delete removes a session. If it was active, the most recently updated
// survivor becomes active, or none when the list empties.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
	if s.activeID == id {
		s.activeID = ""
		if latest := latestUpdated(s.sessions); latest != nil {
			s.activeID = latest.ID
		}
	}
	s.persist(ctx)
	return nil
}

// ActiveID returns the active session id, or "" when none exists.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// SetActive switches the active session.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return ErrNotFound
	}
	s.activeID = id
	return nil
}

// Mode returns the current display mode.
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches the display mode and resets pagination.
func (s *Store) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode != s.mode {
		s.card = 0
	}
	s.mode = mode
}

// CardIndex returns the current pagination position within the active aid.
func (s *Store) CardIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.card
}

// Advance moves pagination by delta, clamped at zero. The upper bound is the
// UI's concern since it knows which aid is on screen.
func (s *Store) Advance(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.card += delta
	if s.card < 0 {
		s.card = 0
	}
	return s.card
}

func (s *Store) indexOf(id string) int {
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func latestUpdated(sessions []Session) *Session {
	var latest *Session
	for i := range sessions {
		if latest == nil || sessions[i].UpdatedAt.After(latest.UpdatedAt) {
			latest = &sessions[i]
		}
	}
	return latest
}
