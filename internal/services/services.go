package services

import (
	"github.com/sirupsen/logrus"

	"github.com/studypal/studypal-backend/internal/audit"
	"github.com/studypal/studypal-backend/internal/config"
	"github.com/studypal/studypal-backend/internal/kv"
	"github.com/studypal/studypal-backend/internal/providers"
	"github.com/studypal/studypal-backend/internal/reconcile"
	"github.com/studypal/studypal-backend/internal/session"
)

// Services bundles the application services the handlers depend on.
type Services struct {
	Store    *session.Store
	Chat     *ChatService
	Summary  *SummaryService
	Suggest  *SuggestService
	Settings *SettingsService
	Voice    *VoiceService
	Audit    *audit.Logger
}

// NewServices wires the service graph over the given stores and providers.
func NewServices(
	cfg *config.Config,
	store kv.Store,
	registry *providers.Registry,
	log *logrus.Logger,
) *Services {
	if log == nil {
		log = logrus.New()
	}

	sessions := session.NewStore(store, log)
	reconciler := reconcile.New(sessions, log)
	auditLog := audit.NewLogger(log, 200)
	settings := NewSettingsService(store, cfg.Study.Language, auditLog, log)

	chat := NewChatService(sessions, registry, reconciler, settings, auditLog, log, cfg.DefaultProvider)

	return &Services{
		Store:    sessions,
		Chat:     chat,
		Summary:  NewSummaryService(sessions, registry, settings, auditLog, log, cfg.DefaultProvider, cfg.Study.MaxDocumentChars),
		Suggest:  NewSuggestService(registry, log, cfg.DefaultProvider, cfg.Study.MaxSuggestions),
		Settings: settings,
		Voice:    NewVoiceService(sessions, auditLog),
		Audit:    auditLog,
	}
}
