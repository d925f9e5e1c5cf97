package repository

import (
	"context"

	"github.com/mediahub/library-notifier/internal/domain"
)

// ItemRepository defines all persistence operations for library items.
// The pgx implementation is in pg_item_repo.go.
// Tests use a hand-written in-memory mock (mock_item_repo.go).
type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	// MergeProviderIDs adds the given provider ids to the item, overwriting
	// entries with the same key. Returns ErrNotFound for unknown ids.
	MergeProviderIDs(ctx context.Context, id string, providerIDs map[string]string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit int) ([]*domain.Item, error)
}
