package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tubemark-backend/internal/models"
)

type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

const videoColumns = `v.id, v.owner_id, v.youtube_id, v.title, v.description, v.thumbnail, v.duration,
	v.published_at, v.channel_title, v.view_count, v.like_count, v.tags, v.created_at, v.updated_at`

const videoViewColumns = videoColumns + `,
	COALESCE(uv.is_liked, FALSE), COALESCE(uv.is_pinned, FALSE), COALESCE(uv.is_in_watchlist, FALSE),
	COALESCE(uv.watch_count, 0), uv.last_watched_at`

const videoViewFrom = `FROM videos v
	LEFT JOIN user_videos uv ON uv.video_id = v.id AND uv.user_id = v.owner_id`

// Sortable list columns keyed by their wire name.
var videoSortColumns = map[string]string{
	"addedAt":       "v.created_at",
	"title":         "v.title",
	"publishedAt":   "v.published_at",
	"channelTitle":  "v.channel_title",
	"viewCount":     "v.view_count",
	"watchCount":    "COALESCE(uv.watch_count, 0)",
	"lastWatchedAt": "uv.last_watched_at",
}

func IsVideoSortField(field string) bool {
	_, ok := videoSortColumns[field]
	return ok
}

func scanVideo(row rowScanner) (*models.Video, error) {
	v := &models.Video{}
	err := row.Scan(
		&v.ID, &v.OwnerID, &v.YouTubeID, &v.Title, &v.Description, &v.Thumbnail, &v.Duration,
		&v.PublishedAt, &v.ChannelTitle, &v.ViewCount, &v.LikeCount, &v.Tags, &v.AddedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func scanVideoView(row rowScanner) (*models.VideoView, error) {
	vv := &models.VideoView{}
	v := &vv.Video
	err := row.Scan(
		&v.ID, &v.OwnerID, &v.YouTubeID, &v.Title, &v.Description, &v.Thumbnail, &v.Duration,
		&v.PublishedAt, &v.ChannelTitle, &v.ViewCount, &v.LikeCount, &v.Tags, &v.AddedAt, &v.UpdatedAt,
		&vv.IsLiked, &vv.IsPinned, &vv.IsInWatchlist, &vv.WatchCount, &vv.LastWatchedAt,
	)
	if err != nil {
		return nil, err
	}
	return vv, nil
}

func (r *VideoRepo) Create(ctx context.Context, v *models.Video) error {
	v.ID = uuid.New()
	if v.Tags == nil {
		v.Tags = []string{}
	}

	query := `INSERT INTO videos (id, owner_id, youtube_id, title, description, thumbnail, duration,
		published_at, channel_title, view_count, like_count, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		v.ID, v.OwnerID, v.YouTubeID, v.Title, v.Description, v.Thumbnail, v.Duration,
		v.PublishedAt, v.ChannelTitle, v.ViewCount, v.LikeCount, v.Tags,
	).Scan(&v.AddedAt, &v.UpdatedAt)
	return mapWriteErr(err)
}

func (r *VideoRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Video, error) {
	return scanVideo(r.pool.QueryRow(ctx,
		"SELECT "+videoColumns+" FROM videos v WHERE v.id = $1 AND v.owner_id = $2", id, ownerID))
}

func (r *VideoRepo) GetByYouTubeID(ctx context.Context, ownerID uuid.UUID, youtubeID string) (*models.Video, error) {
	return scanVideo(r.pool.QueryRow(ctx,
		"SELECT "+videoColumns+" FROM videos v WHERE v.youtube_id = $1 AND v.owner_id = $2", youtubeID, ownerID))
}

func (r *VideoRepo) GetView(ctx context.Context, ownerID, id uuid.UUID) (*models.VideoView, error) {
	return scanVideoView(r.pool.QueryRow(ctx,
		"SELECT "+videoViewColumns+" "+videoViewFrom+" WHERE v.id = $1 AND v.owner_id = $2", id, ownerID))
}

func (r *VideoRepo) List(ctx context.Context, ownerID uuid.UUID, f models.VideoFilter) ([]*models.VideoView, int, error) {
	var args []interface{}
	argIdx := 1

	where := fmt.Sprintf("WHERE v.owner_id = $%d", argIdx)
	args = append(args, ownerID)
	argIdx++

	if f.Search != "" {
		where += fmt.Sprintf(" AND (v.title ILIKE $%[1]d ESCAPE '\\' OR v.description ILIKE $%[1]d ESCAPE '\\' OR v.channel_title ILIKE $%[1]d ESCAPE '\\')", argIdx)
		args = append(args, containsPattern(f.Search))
		argIdx++
	}
	if len(f.Tags) > 0 {
		where += fmt.Sprintf(" AND v.tags && $%d::text[]", argIdx)
		args = append(args, f.Tags)
		argIdx++
	}
	if f.Liked != nil {
		where += fmt.Sprintf(" AND COALESCE(uv.is_liked, FALSE) = $%d", argIdx)
		args = append(args, *f.Liked)
		argIdx++
	}
	if f.Pinned != nil {
		where += fmt.Sprintf(" AND COALESCE(uv.is_pinned, FALSE) = $%d", argIdx)
		args = append(args, *f.Pinned)
		argIdx++
	}
	if f.Watchlist != nil {
		where += fmt.Sprintf(" AND COALESCE(uv.is_in_watchlist, FALSE) = $%d", argIdx)
		args = append(args, *f.Watchlist)
		argIdx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+videoViewFrom+" "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s %s %s ORDER BY %s LIMIT $%d OFFSET $%d",
		videoViewColumns, videoViewFrom, where, videoOrderBy(f), argIdx, argIdx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	videos := make([]*models.VideoView, 0)
	for rows.Next() {
		vv, err := scanVideoView(rows)
		if err != nil {
			return nil, 0, err
		}
		videos = append(videos, vv)
	}

	return videos, total, rows.Err()
}

// videoOrderBy puts pinned videos first unless the caller filtered on pinned=false.
func videoOrderBy(f models.VideoFilter) string {
	column, ok := videoSortColumns[f.SortBy]
	if !ok {
		column = videoSortColumns["addedAt"]
	}
	direction := "DESC NULLS LAST"
	if f.SortOrder == "asc" {
		direction = "ASC NULLS LAST"
	}

	orderBy := column + " " + direction + ", v.id ASC"
	if f.Pinned == nil || *f.Pinned {
		orderBy = "COALESCE(uv.is_pinned, FALSE) DESC, " + orderBy
	}
	return orderBy
}

func (r *VideoRepo) Update(ctx context.Context, v *models.Video) error {
	if v.Tags == nil {
		v.Tags = []string{}
	}
	return r.pool.QueryRow(ctx,
		`UPDATE videos SET title = $1, description = $2, thumbnail = $3, tags = $4, updated_at = NOW()
		WHERE id = $5 AND owner_id = $6 RETURNING updated_at`,
		v.Title, v.Description, v.Thumbnail, v.Tags, v.ID, v.OwnerID,
	).Scan(&v.UpdatedAt)
}

// Delete removes the video; user_videos, notes, history and playlist rows cascade.
func (r *VideoRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM videos WHERE id = $1 AND owner_id = $2", id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SavedYouTubeIDs reports which of the given YouTube ids the owner has already saved.
func (r *VideoRepo) SavedYouTubeIDs(ctx context.Context, ownerID uuid.UUID, youtubeIDs []string) (map[string]bool, error) {
	saved := make(map[string]bool)
	if len(youtubeIDs) == 0 {
		return saved, nil
	}

	rows, err := r.pool.Query(ctx,
		"SELECT youtube_id FROM videos WHERE owner_id = $1 AND youtube_id = ANY($2)", ownerID, youtubeIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		saved[id] = true
	}
	return saved, rows.Err()
}
