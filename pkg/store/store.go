package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence surface the bot consumes.
type Store interface {
	// FindRegistered returns the registration for uniqueID, or ErrNotFound.
	FindRegistered(ctx context.Context, uniqueID string) (*Registered, error)
	// UpsertRegistered inserts or fully replaces the registration keyed by
	// UniqueID.
	UpsertRegistered(ctx context.Context, rec *Registered) error
	// WasGreeted reports whether uniqueID already received the greeting.
	WasGreeted(ctx context.Context, uniqueID string) (bool, error)
	// MarkGreeted records that uniqueID has been greeted. Idempotent.
	MarkGreeted(ctx context.Context, uniqueID string) error
	// ListJobs returns every stored job listing.
	ListJobs(ctx context.Context) ([]Job, error)
}
