package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/studypal/studypal-backend/internal/api/models"
	"github.com/studypal/studypal-backend/internal/audit"
	"github.com/studypal/studypal-backend/internal/kv"
)

// SettingsService persists the four user-tunable keys: study profile, theme
// identifier, preferred voice, and language code. The browser applies them;
// this side only stores. Read failures degrade to defaults, never crash.
type SettingsService struct {
	kv              kv.Store
	defaultLanguage string
	audit           *audit.Logger
	log             *logrus.Logger
}

// NewSettingsService creates a settings service.
func NewSettingsService(store kv.Store, defaultLanguage string, auditLog *audit.Logger, log *logrus.Logger) *SettingsService {
	if log == nil {
		log = logrus.New()
	}
	return &SettingsService{kv: store, defaultLanguage: defaultLanguage, audit: auditLog, log: log}
}

// Get returns the current settings, defaulting anything unreadable.
func (s *SettingsService) Get(ctx context.Context) models.Settings {
	return models.Settings{
		Profile:  s.read(ctx, kv.KeyProfile, ""),
		Theme:    s.read(ctx, kv.KeyTheme, "default"),
		Voice:    s.read(ctx, kv.KeyVoice, ""),
		Language: s.read(ctx, kv.KeyLanguage, s.defaultLanguage),
	}
}

// Set writes all four keys. Individual write failures are logged and the
// rest still apply.
func (s *SettingsService) Set(ctx context.Context, settings models.Settings) {
	s.write(ctx, kv.KeyProfile, settings.Profile)
	s.write(ctx, kv.KeyTheme, settings.Theme)
	s.write(ctx, kv.KeyVoice, settings.Voice)
	s.write(ctx, kv.KeyLanguage, settings.Language)
	if s.audit != nil {
		s.audit.Record(audit.EventSettingsSet, "", "settings updated", nil)
	}
}

func (s *SettingsService) read(ctx context.Context, key, fallback string) string {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return fallback
	}
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("failed to read setting, using default")
		return fallback
	}
	return string(raw)
}

func (s *SettingsService) write(ctx context.Context, key, value string) {
	if err := s.kv.Set(ctx, key, []byte(value)); err != nil {
		s.log.WithError(err).WithField("key", key).Error("failed to persist setting")
	}
}
