package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"basegraph.app/chat/internal/model"
	"github.com/redis/go-redis/v9"
)

type redisSessionStore struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

// NewRedisSessionStore stores each session as a JSON value whose TTL is the
// time left until the session expires.
func NewRedisSessionStore(client redis.UniversalClient, keyPrefix string) SessionStore {
	return &redisSessionStore{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

func (s *redisSessionStore) Create(ctx context.Context, session *model.Session) error {
	now := s.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	ttl := session.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return fmt.Errorf("session %d already expired", session.ID)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

func (s *redisSessionStore) GetValid(ctx context.Context, id int64) (*model.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	if session.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return &session, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, id int64) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *redisSessionStore) key(id int64) string {
	return s.keyPrefix + ":session:" + strconv.FormatInt(id, 10)
}
