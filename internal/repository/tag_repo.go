package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tubemark-backend/internal/models"
)

type TagRepo struct {
	pool *pgxpool.Pool
}

func NewTagRepo(pool *pgxpool.Pool) *TagRepo {
	return &TagRepo{pool: pool}
}

const tagColumns = `id, owner_id, name, color, usage_count, created_at, updated_at`

func scanTag(row rowScanner) (*models.Tag, error) {
	t := &models.Tag{}
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Color, &t.UsageCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TagRepo) Create(ctx context.Context, t *models.Tag) error {
	t.ID = uuid.New()
	if t.Color == "" {
		t.Color = models.DefaultTagColor
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tags (id, owner_id, name, color) VALUES ($1, $2, $3, $4)
		RETURNING usage_count, created_at, updated_at`,
		t.ID, t.OwnerID, t.Name, t.Color,
	).Scan(&t.UsageCount, &t.CreatedAt, &t.UpdatedAt)
	return mapWriteErr(err)
}

func (r *TagRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Tag, error) {
	return scanTag(r.pool.QueryRow(ctx, "SELECT "+tagColumns+" FROM tags WHERE id = $1 AND owner_id = $2", id, ownerID))
}

func (r *TagRepo) GetByName(ctx context.Context, ownerID uuid.UUID, name string) (*models.Tag, error) {
	return scanTag(r.pool.QueryRow(ctx, "SELECT "+tagColumns+" FROM tags WHERE name = $1 AND owner_id = $2", name, ownerID))
}

func (r *TagRepo) List(ctx context.Context, ownerID uuid.UUID, search string, limit, offset int) ([]*models.Tag, int, error) {
	args := []interface{}{ownerID}
	argIdx := 2

	where := "WHERE owner_id = $1"
	if search != "" {
		where += fmt.Sprintf(" AND name ILIKE $%d ESCAPE '\\'", argIdx)
		args = append(args, containsPattern(search))
		argIdx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tags "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM tags %s ORDER BY usage_count DESC, name ASC LIMIT $%d OFFSET $%d",
		tagColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	tags, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return tags, total, nil
}

// ListAll returns every tag of the owner, most used first.
func (r *TagRepo) ListAll(ctx context.Context, ownerID uuid.UUID) ([]*models.Tag, error) {
	return r.query(ctx,
		"SELECT "+tagColumns+" FROM tags WHERE owner_id = $1 ORDER BY usage_count DESC, name ASC", ownerID)
}

func (r *TagRepo) query(ctx context.Context, query string, args ...interface{}) ([]*models.Tag, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]*models.Tag, 0)
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *TagRepo) Update(ctx context.Context, t *models.Tag) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE tags SET name = $1, color = $2, updated_at = NOW()
		WHERE id = $3 AND owner_id = $4 RETURNING updated_at`,
		t.Name, t.Color, t.ID, t.OwnerID,
	).Scan(&t.UpdatedAt)
	return mapWriteErr(err)
}

func (r *TagRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM tags WHERE id = $1 AND owner_id = $2", id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SyncUsage registers tags that appear on the owner's videos and recounts usage for all of the owner's tags.
func (r *TagRepo) SyncUsage(ctx context.Context, ownerID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO tags (id, owner_id, name, color)
		SELECT gen_random_uuid(), $1, name, $2
		FROM (
			SELECT DISTINCT lower(btrim(t)) AS name
			FROM videos, unnest(tags) AS t
			WHERE owner_id = $1
		) used
		WHERE name <> ''
		ON CONFLICT (owner_id, name) DO NOTHING
	`, ownerID, models.DefaultTagColor)
	if err != nil {
		return fmt.Errorf("insert used tags: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE tags tg
		SET usage_count = counts.n, updated_at = NOW()
		FROM (
			SELECT t.id, COUNT(v.id)::int AS n
			FROM tags t
			LEFT JOIN videos v ON v.owner_id = t.owner_id AND t.name = ANY(v.tags)
			WHERE t.owner_id = $1
			GROUP BY t.id
		) counts
		WHERE tg.id = counts.id AND tg.usage_count <> counts.n
	`, ownerID)
	if err != nil {
		return fmt.Errorf("recount tag usage: %w", err)
	}

	return tx.Commit(ctx)
}
