package service

import (
	"basegraph.app/chat/core/config"
	"basegraph.app/chat/internal/store"
)

type ServicesConfig struct {
	Sessions store.SessionStore
	WorkOS   config.WorkOSConfig
	Auth     config.AuthConfig
}

type Services struct {
	auth AuthService
}

// NewServices wires the services. Auth is nil when WorkOS is not configured,
// which leaves the chat routes open.
func NewServices(cfg ServicesConfig) *Services {
	s := &Services{}
	if cfg.WorkOS.Enabled() && cfg.Sessions != nil {
		s.auth = NewAuthService(cfg.Sessions, cfg.WorkOS, cfg.Auth)
	}
	return s
}

func (s *Services) Auth() AuthService {
	return s.auth
}

func (s *Services) AuthEnabled() bool {
	return s.auth != nil
}
