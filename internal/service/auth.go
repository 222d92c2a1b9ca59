package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"basegraph.app/chat/common/id"
	"basegraph.app/chat/core/config"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/store"
	"github.com/workos/workos-go/v6/pkg/usermanagement"
)

var (
	ErrInvalidCode     = errors.New("invalid authorization code")
	ErrSessionExpired  = errors.New("session expired")
	ErrEmailNotAllowed = errors.New("email domain not allowed")
)

type AuthService interface {
	GetAuthorizationURL(state string) (string, error)
	HandleCallback(ctx context.Context, code string) (*model.Session, error)
	ValidateSession(ctx context.Context, sessionID int64) (*model.User, error)
	Logout(ctx context.Context, sessionID int64) error
}

type authService struct {
	sessionStore   store.SessionStore
	cfg            config.WorkOSConfig
	allowedDomains []string
	sessionTTL     time.Duration

	authenticate func(context.Context, usermanagement.AuthenticateWithCodeOpts) (usermanagement.AuthenticateResponse, error)
}

func NewAuthService(
	sessionStore store.SessionStore,
	cfg config.WorkOSConfig,
	authCfg config.AuthConfig,
) AuthService {
	usermanagement.SetAPIKey(cfg.APIKey)

	ttl := authCfg.SessionTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &authService{
		sessionStore:   sessionStore,
		cfg:            cfg,
		allowedDomains: normalizeDomains(authCfg.AllowedEmailDomains),
		sessionTTL:     ttl,
		authenticate:   usermanagement.AuthenticateWithCode,
	}
}

func (s *authService) GetAuthorizationURL(state string) (string, error) {
	url, err := usermanagement.GetAuthorizationURL(usermanagement.GetAuthorizationURLOpts{
		ClientID:    s.cfg.ClientID,
		RedirectURI: s.cfg.RedirectURI,
		State:       state,
		Provider:    "authkit",
	})
	if err != nil {
		return "", fmt.Errorf("generating authorization URL: %w", err)
	}
	return url.String(), nil
}

func (s *authService) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	authResponse, err := s.authenticate(ctx, usermanagement.AuthenticateWithCodeOpts{
		ClientID: s.cfg.ClientID,
		Code:     code,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to authenticate with code", "error", err)
		return nil, ErrInvalidCode
	}

	workosUser := authResponse.User
	if !emailAllowed(workosUser.Email, s.allowedDomains) {
		slog.WarnContext(ctx, "sign-in rejected by email domain policy", "email", workosUser.Email)
		return nil, ErrEmailNotAllowed
	}

	var avatarURL *string
	if workosUser.ProfilePictureURL != "" {
		avatarURL = &workosUser.ProfilePictureURL
	}

	session := &model.Session{
		ID: id.New(),
		User: model.User{
			ID:        workosUser.ID,
			Name:      buildUserName(workosUser),
			Email:     workosUser.Email,
			AvatarURL: avatarURL,
		},
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}

	if err := s.sessionStore.Create(ctx, session); err != nil {
		slog.ErrorContext(ctx, "failed to create session",
			"error", err,
			"email", workosUser.Email,
		)
		return nil, fmt.Errorf("creating session: %w", err)
	}

	slog.InfoContext(ctx, "user authenticated",
		"user_id", session.User.ID,
		"email", session.User.Email,
		"session_id", session.ID,
	)

	return session, nil
}

func (s *authService) ValidateSession(ctx context.Context, sessionID int64) (*model.User, error) {
	session, err := s.sessionStore.GetValid(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return &session.User, nil
}

func (s *authService) Logout(ctx context.Context, sessionID int64) error {
	if err := s.sessionStore.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func buildUserName(user usermanagement.User) string {
	if user.FirstName != "" && user.LastName != "" {
		return user.FirstName + " " + user.LastName
	}
	if user.FirstName != "" {
		return user.FirstName
	}
	if user.LastName != "" {
		return user.LastName
	}
	return user.Email
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// emailAllowed accepts every address when no domains are configured.
func emailAllowed(email string, domains []string) bool {
	if len(domains) == 0 {
		return true
	}
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range domains {
		if domain == d {
			return true
		}
	}
	return false
}
