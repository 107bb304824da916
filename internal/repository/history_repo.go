package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tubemark-backend/internal/models"
)

type HistoryRepo struct {
	pool *pgxpool.Pool
}

func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

const historySelect = `SELECT h.id, h.owner_id, h.video_id, h.watched_at, h.duration, h.position, h.created_at,
	v.id, v.youtube_id, v.title, v.thumbnail, v.duration
	FROM history h
	JOIN videos v ON v.id = h.video_id`

// recordWatchSQL bumps watch_count and stamps last_watched_at, creating the row if needed.
const recordWatchSQL = `INSERT INTO user_videos (id, user_id, video_id, watch_count, last_watched_at)
	VALUES ($1, $2, $3, 1, $4)
	ON CONFLICT (user_id, video_id) DO UPDATE
	SET watch_count = user_videos.watch_count + 1,
		last_watched_at = GREATEST(COALESCE(user_videos.last_watched_at, EXCLUDED.last_watched_at), EXCLUDED.last_watched_at),
		updated_at = NOW()`

// CreateWithWatch inserts the entry and bumps the owner's watch stats for the video
// in one transaction.
func (r *HistoryRepo) CreateWithWatch(ctx context.Context, e *models.HistoryEntry) error {
	e.ID = uuid.New()
	if e.WatchedAt.IsZero() {
		e.WatchedAt = time.Now().UTC()
	}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO history (id, owner_id, video_id, watched_at, duration, position)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
			e.ID, e.OwnerID, e.VideoID, e.WatchedAt, e.Duration, e.Position,
		).Scan(&e.CreatedAt); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		if _, err := tx.Exec(ctx, recordWatchSQL, uuid.New(), e.OwnerID, e.VideoID, e.WatchedAt); err != nil {
			return fmt.Errorf("record watch: %w", err)
		}
		return nil
	})
	return err
}

func (r *HistoryRepo) List(ctx context.Context, ownerID uuid.UUID, f models.HistoryFilter) ([]*models.HistoryEntry, int, error) {
	args := []interface{}{ownerID}
	argIdx := 2

	where := "WHERE h.owner_id = $1"
	if f.VideoID != nil {
		where += fmt.Sprintf(" AND h.video_id = $%d", argIdx)
		args = append(args, *f.VideoID)
		argIdx++
	}
	if f.Start != nil {
		where += fmt.Sprintf(" AND h.watched_at >= $%d", argIdx)
		args = append(args, *f.Start)
		argIdx++
	}
	if f.End != nil {
		where += fmt.Sprintf(" AND h.watched_at <= $%d", argIdx)
		args = append(args, *f.End)
		argIdx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM history h "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("%s %s ORDER BY h.watched_at DESC, h.id LIMIT $%d OFFSET $%d", historySelect, where, argIdx, argIdx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := make([]*models.HistoryEntry, 0)
	for rows.Next() {
		e := &models.HistoryEntry{Video: &models.VideoSummary{}}
		if err := rows.Scan(
			&e.ID, &e.OwnerID, &e.VideoID, &e.WatchedAt, &e.Duration, &e.Position, &e.CreatedAt,
			&e.Video.ID, &e.Video.YouTubeID, &e.Video.Title, &e.Video.Thumbnail, &e.Video.Duration,
		); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// Stats aggregates the owner's sessions watched at or after since; a nil since covers all time.
func (r *HistoryRepo) Stats(ctx context.Context, ownerID uuid.UUID, since *time.Time) (*models.WatchStats, error) {
	s := &models.WatchStats{}
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(duration), 0), COUNT(*), COUNT(DISTINCT video_id)
		FROM history
		WHERE owner_id = $1 AND ($2::timestamptz IS NULL OR watched_at >= $2)
	`, ownerID, since).Scan(&s.TotalWatchTime, &s.TotalSessions, &s.UniqueVideosCount)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *HistoryRepo) Clear(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM history WHERE owner_id = $1", ownerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
