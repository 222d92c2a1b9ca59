package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"basegraph.app/chat/common"
)

// ErrTurnInFlight is returned by SubmitTurn while another turn is outstanding.
var ErrTurnInFlight = errors.New("a turn is already in flight")

const defaultTurnTimeout = 10 * time.Minute

type Config struct {
	// BaseURL is the relay origin, e.g. http://localhost:8080.
	BaseURL string
	AppName string

	// UserIDOverride and SessionIDOverride win over the authenticated email
	// and the persisted identity respectively.
	UserIDOverride    string
	SessionIDOverride string

	HTTPClient *http.Client
	Identity   *IdentityStore
	Users      UserResolver

	// TurnTimeout bounds one SubmitTurn. Zero means ten minutes; negative
	// disables the bound.
	TurnTimeout time.Duration

	Logger *slog.Logger
}

// Client owns one conversation against the relay.
type Client struct {
	baseURL     string
	appName     string
	userID      string
	sessionID   string
	http        *http.Client
	identity    *IdentityStore
	users       UserResolver
	turnTimeout time.Duration
	logger      *slog.Logger

	conversation *Conversation

	mu         sync.Mutex
	turnSeq    uint64
	cancelTurn context.CancelFunc
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("relay base URL is required")
	}
	if cfg.AppName == "" {
		return nil, fmt.Errorf("app name is required")
	}

	c := &Client{
		baseURL:      common.NormalizeLoopback(cfg.BaseURL),
		appName:      cfg.AppName,
		userID:       strings.TrimSpace(cfg.UserIDOverride),
		sessionID:    strings.TrimSpace(cfg.SessionIDOverride),
		http:         cfg.HTTPClient,
		identity:     cfg.Identity,
		users:        cfg.Users,
		turnTimeout:  cfg.TurnTimeout,
		logger:       cfg.Logger,
		conversation: NewConversation(),
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.identity == nil {
		c.identity = NewIdentityStore(NewMemoryStorage(), c.logger)
	}
	if c.turnTimeout == 0 {
		c.turnTimeout = defaultTurnTimeout
	}
	return c, nil
}

// Conversation exposes the state the rendering layer observes.
func (c *Client) Conversation() *Conversation {
	return c.conversation
}

// Start resolves the session identity and, when one was persisted earlier,
// loads its history in the background. The returned channel is closed once
// that load has finished, or immediately when there is nothing to load.
// Failures are logged only.
func (c *Client) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	sessionID, restored := c.identity.Resolve()
	if !restored {
		close(done)
		return done
	}

	gen := c.conversation.generation()
	go func() {
		defer close(done)
		c.loadHistory(ctx, gen, sessionID)
	}()
	return done
}

// Abort cancels the outstanding turn, if any. The turn then resolves as a
// failed one.
func (c *Client) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelTurn != nil {
		c.cancelTurn()
	}
}

func (c *Client) resolveUserID(ctx context.Context) string {
	if c.userID != "" {
		return c.userID
	}
	if c.users == nil {
		return ""
	}
	email, err := c.users.Email(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "resolving authenticated user failed", "error", err)
		return ""
	}
	return email
}

// resolveSessionID prefers the override, then the identity resolved by
// Start. Before Start there is no session id.
func (c *Client) resolveSessionID() string {
	if c.sessionID != "" {
		return c.sessionID
	}
	return c.identity.Current()
}

// trackTurn records cancel as the outstanding turn's and returns a release
// func that forgets it again, unless a newer turn has replaced it.
func (c *Client) trackTurn(cancel context.CancelFunc) (release func()) {
	c.mu.Lock()
	c.turnSeq++
	seq := c.turnSeq
	c.cancelTurn = cancel
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.turnSeq == seq {
			c.cancelTurn = nil
		}
	}
}
