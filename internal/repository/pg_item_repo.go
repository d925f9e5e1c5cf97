package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediahub/library-notifier/internal/domain"
)

type pgItemRepository struct {
	pool *pgxpool.Pool
}

// NewPgItemRepository returns an ItemRepository backed by PostgreSQL.
// Provider ids live in a jsonb column so enrichment can merge keys without
// a read-modify-write round trip.
func NewPgItemRepository(pool *pgxpool.Pool) ItemRepository {
	return &pgItemRepository{pool: pool}
}

func (r *pgItemRepository) Create(ctx context.Context, item *domain.Item) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO items
			(id, parent_id, kind, name, overview, index_number,
			 production_year, virtual, provider_ids, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		item.ID, nullable(item.ParentID), item.Kind, item.Name, item.Overview,
		item.IndexNumber, item.ProductionYear, item.Virtual,
		providerMap(item.ProviderIDs), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateItem
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *pgItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, parent_id, kind, name, overview, index_number,
		       production_year, virtual, provider_ids, created_at, updated_at
		FROM items WHERE id = $1`, id)

	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return item, err
}

func (r *pgItemRepository) MergeProviderIDs(ctx context.Context, id string, providerIDs map[string]string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE items
		SET provider_ids = provider_ids || $2,
		    updated_at   = now()
		WHERE id = $1`,
		id, providerMap(providerIDs),
	)
	if err != nil {
		return fmt.Errorf("merge provider ids: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgItemRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgItemRepository) List(ctx context.Context, limit int) ([]*domain.Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, parent_id, kind, name, overview, index_number,
		       production_year, virtual, provider_ids, created_at, updated_at
		FROM items
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var (
		item     domain.Item
		parentID *string
	)
	err := row.Scan(
		&item.ID, &parentID, &item.Kind, &item.Name, &item.Overview,
		&item.IndexNumber, &item.ProductionYear, &item.Virtual,
		&item.ProviderIDs, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if parentID != nil {
		item.ParentID = *parentID
	}
	return &item, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// providerMap never hands pgx a nil map, so the jsonb column stays '{}'
// instead of NULL for items without providers.
func providerMap(ids map[string]string) map[string]string {
	if ids == nil {
		return map[string]string{}
	}
	return ids
}
