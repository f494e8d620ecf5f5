package core

import (
	"context"
	"errors"
)

// ErrNotFound is returned by ConversationBackend implementations when a
// conversation id is absent from the store.
var ErrNotFound = errors.New("conversation not found")

// ConversationBackend is the narrow durable collaborator behind the
// conversation store: a key/value or document store reached through full
// save/load of one conversation at a time. Retention (TTL) is the backend's
// own concern.
type ConversationBackend interface {
	Save(ctx context.Context, conv *ConversationContext) error
	Load(ctx context.Context, id string) (*ConversationContext, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*ConversationContext, error)
}
