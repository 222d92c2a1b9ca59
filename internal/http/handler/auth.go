package handler

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"basegraph.app/chat/internal/http/middleware"
	"basegraph.app/chat/internal/service"
	"github.com/gin-gonic/gin"
)

const stateCookieName = "chat_oauth_state"

type AuthHandler struct {
	authService  service.AuthService
	dashboardURL string
	isProduction bool
	sessionTTL   time.Duration
}

func NewAuthHandler(
	authService service.AuthService,
	dashboardURL string,
	isProduction bool,
	sessionTTL time.Duration,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		dashboardURL: dashboardURL,
		isProduction: isProduction,
		sessionTTL:   sessionTTL,
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	state, err := generateState()
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to generate state", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate login"})
		return
	}

	authURL, err := h.authService.GetAuthorizationURL(state)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to get authorization URL", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate login"})
		return
	}

	c.SetCookie(
		stateCookieName,
		state,
		600,
		"/",
		"",
		h.isProduction,
		true,
	)

	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

func (h *AuthHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	code := c.Query("code")
	state := c.Query("state")
	errorParam := c.Query("error")

	if errorParam != "" {
		slog.WarnContext(ctx, "OAuth error", "error", errorParam, "description", c.Query("error_description"))
		h.redirectWithError(c, errorParam)
		return
	}

	storedState, err := c.Cookie(stateCookieName)
	if err != nil || state != storedState {
		slog.WarnContext(ctx, "state mismatch", "expected", storedState, "got", state)
		h.redirectWithError(c, "invalid_state")
		return
	}

	h.clearCookie(c, stateCookieName)

	if code == "" {
		h.redirectWithError(c, "no_code")
		return
	}

	session, err := h.authService.HandleCallback(ctx, code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCode):
			h.redirectWithError(c, "invalid_code")
		case errors.Is(err, service.ErrEmailNotAllowed):
			h.redirectWithError(c, "email_not_allowed")
		default:
			slog.ErrorContext(ctx, "failed to handle callback", "error", err)
			h.redirectWithError(c, "callback_failed")
		}
		return
	}

	c.SetCookie(
		middleware.SessionCookieName,
		strconv.FormatInt(session.ID, 10),
		int(h.sessionTTL.Seconds()),
		"/",
		"",
		h.isProduction,
		true,
	)

	slog.InfoContext(ctx, "user logged in", "user_id", session.User.ID, "email", session.User.Email)

	c.Redirect(http.StatusTemporaryRedirect, h.dashboardURL+"/chat")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()

	if cookie, err := c.Cookie(middleware.SessionCookieName); err == nil {
		if sessionID, err := strconv.ParseInt(cookie, 10, 64); err == nil && sessionID > 0 {
			if err := h.authService.Logout(ctx, sessionID); err != nil {
				slog.WarnContext(ctx, "failed to delete session", "error", err, "session_id", sessionID)
			}
		}
	}

	h.clearCookie(c, middleware.SessionCookieName)

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me runs behind RequireAuth.
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.GetUser(c.Request.Context())
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"avatar_url": user.AvatarURL,
	})
}

func (h *AuthHandler) redirectWithError(c *gin.Context, code string) {
	c.Redirect(http.StatusTemporaryRedirect, h.dashboardURL+"?auth_error="+url.QueryEscape(code))
}

func (h *AuthHandler) clearCookie(c *gin.Context, name string) {
	c.SetCookie(
		name,
		"",
		-1,
		"/",
		"",
		h.isProduction,
		true,
	)
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
