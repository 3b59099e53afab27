// Package events carries document change notifications from the store to
// the change reactions: in-process, over NATS, or pushed by Firestore.
package events

import (
	"context"

	"github.com/anonto42/socialape/backend/internal/docstore"
)

// Kind of change to a document
type Kind string

const (
	Created Kind = "created"
	Updated Kind = "updated"
	Deleted Kind = "deleted"
)

// Change describes one committed write. Before is nil for a created
// document and After is nil for a deleted one.
type Change struct {
	Collection string             `json:"collection"`
	ID         string             `json:"id"`
	Before     *docstore.Snapshot `json:"before,omitempty"`
	After      *docstore.Snapshot `json:"after,omitempty"`
}

func (c Change) Kind() Kind {
	switch {
	case c.Before == nil:
		return Created
	case c.After == nil:
		return Deleted
	default:
		return Updated
	}
}

// Handler consumes changes
type Handler interface {
	Handle(ctx context.Context, change Change) error
}

type HandlerFunc func(ctx context.Context, change Change) error

func (f HandlerFunc) Handle(ctx context.Context, change Change) error {
	return f(ctx, change)
}

// Publisher delivers changes to whoever reacts to them
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}
