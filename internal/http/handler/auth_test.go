package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/chat/internal/http/handler"
	"basegraph.app/chat/internal/http/middleware"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/service"
)

var _ = Describe("AuthHandler", func() {
	var (
		router *gin.Engine
		svc    *mockAuthService
	)

	BeforeEach(func() {
		router = gin.New()
		svc = &mockAuthService{}
		h := handler.NewAuthHandler(svc, "http://dash.local", false, time.Hour)
		router.GET("/auth/login", h.Login)
		router.GET("/auth/callback", h.Callback)
		router.POST("/auth/logout", h.Logout)
		router.GET("/auth/me", middleware.RequireAuth(svc), h.Me)
	})

	callback := func(query string, state string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+query, nil)
		if state != "" {
			req.AddCookie(&http.Cookie{Name: "chat_oauth_state", Value: state})
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("redirects to the authorization URL with a state cookie", func() {
		var gotState string
		svc.getAuthorizationURLFn = func(state string) (string, error) {
			gotState = state
			return "https://auth.example.com/authorize?state=" + state, nil
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

		Expect(w.Code).To(Equal(http.StatusTemporaryRedirect))
		Expect(gotState).NotTo(BeEmpty())
		Expect(w.Header().Get("Location")).To(HaveSuffix(gotState))
		Expect(w.Header().Get("Set-Cookie")).To(ContainSubstring("chat_oauth_state="))
	})

	It("sets the session cookie and redirects to the chat on success", func() {
		svc.handleCallbackFn = func(_ context.Context, code string) (*model.Session, error) {
			Expect(code).To(Equal("abc"))
			return &model.Session{ID: 99, User: model.User{ID: "u1", Email: "ann@example.com"}}, nil
		}

		w := callback("code=abc&state=s1", "s1")

		Expect(w.Code).To(Equal(http.StatusTemporaryRedirect))
		Expect(w.Header().Get("Location")).To(Equal("http://dash.local/chat"))
		Expect(w.Header().Values("Set-Cookie")).To(ContainElement(ContainSubstring("chat_session=99")))
	})

	It("rejects a state mismatch", func() {
		w := callback("code=abc&state=s1", "other")
		Expect(w.Header().Get("Location")).To(Equal("http://dash.local?auth_error=invalid_state"))
	})

	It("reports a disallowed email domain", func() {
		svc.handleCallbackFn = func(context.Context, string) (*model.Session, error) {
			return nil, service.ErrEmailNotAllowed
		}
		w := callback("code=abc&state=s1", "s1")
		Expect(w.Header().Get("Location")).To(Equal("http://dash.local?auth_error=email_not_allowed"))
	})

	It("logs out and clears the cookie even if deletion fails", func() {
		var deleted int64
		svc.logoutFn = func(_ context.Context, id int64) error {
			deleted = id
			return errors.New("redis down")
		}
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "42"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(deleted).To(Equal(int64(42)))
		Expect(w.Header().Get("Set-Cookie")).To(ContainSubstring("Max-Age=0"))
	})

	Describe("Me", func() {
		It("returns the authenticated user", func() {
			svc.validateSessionFn = func(_ context.Context, id int64) (*model.User, error) {
				Expect(id).To(Equal(int64(42)))
				return &model.User{ID: "u1", Name: "Ann", Email: "ann@example.com"}, nil
			}
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "42"})
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{"id":"u1","name":"Ann","email":"ann@example.com","avatar_url":null}`))
		})

		It("returns 401 without a session cookie", func() {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("returns 401 for an expired session", func() {
			svc.validateSessionFn = func(context.Context, int64) (*model.User, error) {
				return nil, service.ErrSessionExpired
			}
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "42"})
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(w.Body.String()).To(MatchJSON(`{"error":"session expired"}`))
		})
	})
})
