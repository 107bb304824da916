package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tubemark-backend/internal/models"
)

type UserVideoRepo struct {
	pool *pgxpool.Pool
}

func NewUserVideoRepo(pool *pgxpool.Pool) *UserVideoRepo {
	return &UserVideoRepo{pool: pool}
}

const userVideoColumns = `id, user_id, video_id, is_liked, is_pinned, is_in_watchlist, watch_count,
	last_watched_at, liked_at, pinned_at, added_to_watchlist_at, created_at, updated_at`

// GetOrCreate returns the (user, video) overlay row, inserting a default one when absent.
func (r *UserVideoRepo) GetOrCreate(ctx context.Context, userID, videoID uuid.UUID) (*models.UserVideo, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_videos (id, user_id, video_id) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, video_id) DO NOTHING`,
		uuid.New(), userID, videoID,
	)
	if err != nil {
		return nil, err
	}

	uv := &models.UserVideo{}
	err = r.pool.QueryRow(ctx,
		"SELECT "+userVideoColumns+" FROM user_videos WHERE user_id = $1 AND video_id = $2",
		userID, videoID,
	).Scan(
		&uv.ID, &uv.UserID, &uv.VideoID, &uv.IsLiked, &uv.IsPinned, &uv.IsInWatchlist, &uv.WatchCount,
		&uv.LastWatchedAt, &uv.LikedAt, &uv.PinnedAt, &uv.AddedToWatchlistAt, &uv.CreatedAt, &uv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return uv, nil
}

func (r *UserVideoRepo) Save(ctx context.Context, uv *models.UserVideo) error {
	return r.pool.QueryRow(ctx,
		`UPDATE user_videos SET is_liked = $1, is_pinned = $2, is_in_watchlist = $3,
		liked_at = $4, pinned_at = $5, added_to_watchlist_at = $6, updated_at = NOW()
		WHERE id = $7 RETURNING updated_at`,
		uv.IsLiked, uv.IsPinned, uv.IsInWatchlist, uv.LikedAt, uv.PinnedAt, uv.AddedToWatchlistAt, uv.ID,
	).Scan(&uv.UpdatedAt)
}
