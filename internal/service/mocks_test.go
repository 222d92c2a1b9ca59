package service

import (
	"context"

	"basegraph.app/chat/internal/model"
)

type mockSessionStore struct {
	createFn   func(ctx context.Context, session *model.Session) error
	getValidFn func(ctx context.Context, id int64) (*model.Session, error)
	deleteFn   func(ctx context.Context, id int64) error
}

func (m *mockSessionStore) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionStore) GetValid(ctx context.Context, id int64) (*model.Session, error) {
	if m.getValidFn != nil {
		return m.getValidFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionStore) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}
