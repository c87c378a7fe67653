package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, c *Content) error
	GetByID(ctx context.Context, id uuid.UUID) (*Content, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, kind Kind, limit, offset int) ([]*Content, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID, kind Kind) (int64, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, c *Content) error {
	query := `
		INSERT INTO saved_content (id, user_id, kind, title, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query, c.ID, c.OwnerUserID, string(c.Kind), c.Title, []byte(c.Payload), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting content: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Content, error) {
	query := `
		SELECT id, user_id, kind, title, payload, created_at
		FROM saved_content
		WHERE id = $1`

	c, err := scanContent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying content by id: %w", err)
	}
	return c, nil
}

// ListByOwner returns the owner's content newest first. An empty kind
// matches every kind.
func (r *postgresRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, kind Kind, limit, offset int) ([]*Content, error) {
	query := `
		SELECT id, user_id, kind, title, payload, created_at
		FROM saved_content
		WHERE user_id = $1 AND ($2 = '' OR kind = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, ownerID, string(kind), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing content: %w", err)
	}
	defer rows.Close()

	var items []*Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning content row: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *postgresRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID, kind Kind) (int64, error) {
	query := `SELECT COUNT(*) FROM saved_content WHERE user_id = $1 AND ($2 = '' OR kind = $2)`

	var count int64
	if err := r.pool.QueryRow(ctx, query, ownerID, string(kind)).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting content: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM saved_content WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting content: %w", err)
	}
	return nil
}

func scanContent(row pgx.Row) (*Content, error) {
	c := &Content{}
	var kind string
	var payload []byte
	if err := row.Scan(&c.ID, &c.OwnerUserID, &kind, &c.Title, &payload, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Kind = Kind(kind)
	c.Payload = payload
	return c, nil
}
