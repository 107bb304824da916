package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tubemark-backend/internal/models"
)

type NoteRepo struct {
	pool *pgxpool.Pool
}

func NewNoteRepo(pool *pgxpool.Pool) *NoteRepo {
	return &NoteRepo{pool: pool}
}

const noteSelect = `SELECT n.id, n.owner_id, n.video_id, n.content, n.timestamp_seconds, n.created_at, n.updated_at,
	v.id, v.youtube_id, v.title, v.thumbnail, v.duration
	FROM notes n
	JOIN videos v ON v.id = n.video_id`

func scanNote(row rowScanner) (*models.Note, error) {
	n := &models.Note{Video: &models.VideoSummary{}}
	err := row.Scan(
		&n.ID, &n.OwnerID, &n.VideoID, &n.Content, &n.Timestamp, &n.CreatedAt, &n.UpdatedAt,
		&n.Video.ID, &n.Video.YouTubeID, &n.Video.Title, &n.Video.Thumbnail, &n.Video.Duration,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *NoteRepo) Create(ctx context.Context, n *models.Note) error {
	n.ID = uuid.New()
	return r.pool.QueryRow(ctx,
		`INSERT INTO notes (id, owner_id, video_id, content, timestamp_seconds) VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		n.ID, n.OwnerID, n.VideoID, n.Content, n.Timestamp,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
}

func (r *NoteRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Note, error) {
	return scanNote(r.pool.QueryRow(ctx, noteSelect+" WHERE n.id = $1 AND n.owner_id = $2", id, ownerID))
}

func (r *NoteRepo) List(ctx context.Context, ownerID uuid.UUID, f models.NoteFilter) ([]*models.Note, int, error) {
	args := []interface{}{ownerID}
	argIdx := 2

	where := "WHERE n.owner_id = $1"
	if f.VideoID != nil {
		where += fmt.Sprintf(" AND n.video_id = $%d", argIdx)
		args = append(args, *f.VideoID)
		argIdx++
	}
	if f.Search != "" {
		where += fmt.Sprintf(" AND n.content ILIKE $%d ESCAPE '\\'", argIdx)
		args = append(args, containsPattern(f.Search))
		argIdx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM notes n "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("%s %s ORDER BY n.created_at DESC, n.id LIMIT $%d OFFSET $%d", noteSelect, where, argIdx, argIdx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notes := make([]*models.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		notes = append(notes, n)
	}
	return notes, total, rows.Err()
}

func (r *NoteRepo) Update(ctx context.Context, n *models.Note) error {
	return r.pool.QueryRow(ctx,
		`UPDATE notes SET content = $1, timestamp_seconds = $2, updated_at = NOW()
		WHERE id = $3 AND owner_id = $4 RETURNING updated_at`,
		n.Content, n.Timestamp, n.ID, n.OwnerID,
	).Scan(&n.UpdatedAt)
}

func (r *NoteRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM notes WHERE id = $1 AND owner_id = $2", id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
