package store

import (
	"context"

	"basegraph.app/chat/internal/model"
)

// SessionStore keeps authenticated sessions. Expired sessions are reported
// as ErrNotFound.
type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	GetValid(ctx context.Context, id int64) (*model.Session, error)
	Delete(ctx context.Context, id int64) error
}
