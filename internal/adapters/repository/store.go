// Package repository holds the event stores behind the Store interface.
package repository

import (
	"context"

	"github.com/okian/timeforge/internal/domain/model"
)

// Store provides read/write access to owner-scoped event collections.
// Implementations are safe for concurrent use and return copies.
type Store interface {
	// List returns the owner's events ordered by start.
	List(ctx context.Context, owner string) ([]model.Event, error)

	// Get returns one event. Returns ErrNotFound if the id is unknown to owner.
	Get(ctx context.Context, owner, id string) (model.Event, error)

	// Add stores a new event. Returns ErrDuplicateID if the id already exists.
	Add(ctx context.Context, e model.Event) error

	// Replace overwrites the editable fields of an event, keeping completion.
	Replace(ctx context.Context, owner, id string, d model.Draft) (model.Event, error)

	// Remove deletes an event.
	Remove(ctx context.Context, owner, id string) error

	// ToggleCompleted flips the completed flag and returns the updated event.
	ToggleCompleted(ctx context.Context, owner, id string) (model.Event, error)

	// Owners lists every owner with at least one event.
	Owners(ctx context.Context) ([]string, error)

	// Count returns the number of events across all owners.
	Count(ctx context.Context) int

	Close() error
}
