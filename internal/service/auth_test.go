package service

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/workos/workos-go/v6/pkg/usermanagement"

	"basegraph.app/chat/core/config"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/store"
)

var _ = Describe("AuthService", func() {
	var (
		ctx      context.Context
		sessions *mockSessionStore
		svc      *authService
		created  *model.Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		created = nil
		sessions = &mockSessionStore{
			createFn: func(_ context.Context, s *model.Session) error {
				created = s
				return nil
			},
		}
		svc = NewAuthService(sessions, config.WorkOSConfig{ClientID: "client_1"}, config.AuthConfig{
			AllowedEmailDomains: []string{"@Example.com"},
			SessionTTL:          time.Hour,
		}).(*authService)
	})

	signIn := func(user usermanagement.User) {
		svc.authenticate = func(_ context.Context, opts usermanagement.AuthenticateWithCodeOpts) (usermanagement.AuthenticateResponse, error) {
			Expect(opts.ClientID).To(Equal("client_1"))
			Expect(opts.Code).To(Equal("code-1"))
			return usermanagement.AuthenticateResponse{User: user}, nil
		}
	}

	Describe("HandleCallback", func() {
		It("creates a session for an allowed email", func() {
			signIn(usermanagement.User{ID: "user_1", Email: "ann@example.com", FirstName: "Ann", LastName: "Lee"})

			session, err := svc.HandleCallback(ctx, "code-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(session).To(BeIdenticalTo(created))
			Expect(session.ID).To(BeNumerically(">", 0))
			Expect(session.User.Name).To(Equal("Ann Lee"))
			Expect(session.User.AvatarURL).To(BeNil())
			Expect(session.ExpiresAt).To(BeTemporally("~", time.Now().Add(time.Hour), time.Minute))
		})

		It("rejects emails outside the allowed domains", func() {
			signIn(usermanagement.User{ID: "user_2", Email: "eve@elsewhere.org"})

			_, err := svc.HandleCallback(ctx, "code-1")
			Expect(err).To(MatchError(ErrEmailNotAllowed))
			Expect(created).To(BeNil())
		})

		It("maps exchange failures to ErrInvalidCode", func() {
			svc.authenticate = func(context.Context, usermanagement.AuthenticateWithCodeOpts) (usermanagement.AuthenticateResponse, error) {
				return usermanagement.AuthenticateResponse{}, errors.New("bad code")
			}
			_, err := svc.HandleCallback(ctx, "code-1")
			Expect(err).To(MatchError(ErrInvalidCode))
		})

		It("wraps session store failures", func() {
			signIn(usermanagement.User{ID: "user_1", Email: "ann@example.com"})
			sessions.createFn = func(context.Context, *model.Session) error { return errors.New("redis down") }

			_, err := svc.HandleCallback(ctx, "code-1")
			Expect(err).To(MatchError(ContainSubstring("creating session")))
		})
	})

	Describe("ValidateSession", func() {
		It("returns the session's user", func() {
			sessions.getValidFn = func(_ context.Context, id int64) (*model.Session, error) {
				return &model.Session{ID: id, User: model.User{Email: "ann@example.com"}}, nil
			}
			user, err := svc.ValidateSession(ctx, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Email).To(Equal("ann@example.com"))
		})

		It("maps missing sessions to ErrSessionExpired", func() {
			sessions.getValidFn = func(context.Context, int64) (*model.Session, error) { return nil, store.ErrNotFound }
			_, err := svc.ValidateSession(ctx, 3)
			Expect(err).To(MatchError(ErrSessionExpired))
		})
	})
})

var _ = DescribeTable("emailAllowed",
	func(email string, domains []string, want bool) {
		Expect(emailAllowed(email, normalizeDomains(domains))).To(Equal(want))
	},
	Entry("no policy", "x@any.io", nil, true),
	Entry("matching domain", "x@corp.com", []string{"corp.com"}, true),
	Entry("case and @ are ignored", "X@CORP.COM", []string{" @corp.com "}, true),
	Entry("subdomain is not the domain", "x@eu.corp.com", []string{"corp.com"}, false),
	Entry("no at sign", "corp.com", []string{"corp.com"}, false),
)
