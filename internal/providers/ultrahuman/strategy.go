package ultrahuman

import (
	"log/slog"

	"healthsync/internal/config"
	"healthsync/internal/domain"
)

const (
	ProviderName = "ultrahuman"
	displayName  = "Ultrahuman"

	// IconURL points to the provider icon served by the frontend.
	IconURL = "/static/provider-icons/ultrahuman.svg"
)

// Strategy bundles the Ultrahuman OAuth and 24/7 data components.
type Strategy struct {
	cfg   config.UltrahumanConfig
	oauth *OAuth
	data  *Data247
}

func NewStrategy(cfg config.UltrahumanConfig, states domain.StateStore, connections domain.ConnectionStore, log *slog.Logger) *Strategy {
	oauth := NewOAuth(cfg, states, log)
	client := NewClient(cfg.APIBaseURL, connections, oauth, log)
	return &Strategy{
		cfg:   cfg,
		oauth: oauth,
		data:  NewData247(ProviderName, cfg.APIBaseURL, client, log),
	}
}

func (s *Strategy) Name() string {
	return ProviderName
}

func (s *Strategy) DisplayName() string {
	return displayName
}

func (s *Strategy) APIBaseURL() string {
	return s.cfg.APIBaseURL
}

func (s *Strategy) OAuth() domain.OAuthProvider {
	return s.oauth
}

func (s *Strategy) Data247() domain.ProviderData {
	return s.data
}
