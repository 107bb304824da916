package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tubemark-backend/internal/models"
)

type PlaylistRepo struct {
	pool *pgxpool.Pool
}

func NewPlaylistRepo(pool *pgxpool.Pool) *PlaylistRepo {
	return &PlaylistRepo{pool: pool}
}

const playlistSelect = `SELECT p.id, p.owner_id, p.name, p.description, p.created_at, p.updated_at,
	COALESCE(array_agg(pv.video_id::text ORDER BY pv.position) FILTER (WHERE pv.video_id IS NOT NULL), '{}')
	FROM playlists p
	LEFT JOIN playlist_videos pv ON pv.playlist_id = p.id`

func scanPlaylist(row rowScanner) (*models.Playlist, error) {
	p := &models.Playlist{}
	var videoIDs []string
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt, &videoIDs); err != nil {
		return nil, err
	}

	p.VideoIDs = make([]uuid.UUID, 0, len(videoIDs))
	for _, raw := range videoIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse playlist video id: %w", err)
		}
		p.VideoIDs = append(p.VideoIDs, id)
	}
	p.VideoCount = len(p.VideoIDs)
	return p, nil
}

func (r *PlaylistRepo) Create(ctx context.Context, p *models.Playlist) error {
	p.ID = uuid.New()
	p.VideoIDs = []uuid.UUID{}
	p.VideoCount = 0

	return r.pool.QueryRow(ctx,
		`INSERT INTO playlists (id, owner_id, name, description) VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		p.ID, p.OwnerID, p.Name, p.Description,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *PlaylistRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Playlist, error) {
	return scanPlaylist(r.pool.QueryRow(ctx,
		playlistSelect+" WHERE p.id = $1 AND p.owner_id = $2 GROUP BY p.id", id, ownerID))
}

func (r *PlaylistRepo) List(ctx context.Context, ownerID uuid.UUID, search string, limit, offset int) ([]*models.Playlist, int, error) {
	args := []interface{}{ownerID}
	argIdx := 2

	where := "WHERE p.owner_id = $1"
	if search != "" {
		where += fmt.Sprintf(" AND (p.name ILIKE $%d ESCAPE '\\' OR p.description ILIKE $%d ESCAPE '\\')", argIdx, argIdx)
		args = append(args, containsPattern(search))
		argIdx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM playlists p "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("%s %s GROUP BY p.id ORDER BY p.updated_at DESC, p.id LIMIT $%d OFFSET $%d",
		playlistSelect, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	playlists := make([]*models.Playlist, 0)
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, 0, err
		}
		playlists = append(playlists, p)
	}
	return playlists, total, rows.Err()
}

func (r *PlaylistRepo) Update(ctx context.Context, p *models.Playlist) error {
	return r.pool.QueryRow(ctx,
		`UPDATE playlists SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3 AND owner_id = $4 RETURNING updated_at`,
		p.Name, p.Description, p.ID, p.OwnerID,
	).Scan(&p.UpdatedAt)
}

func (r *PlaylistRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM playlists WHERE id = $1 AND owner_id = $2", id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AddVideo appends the video at the end of the playlist. Re-adding a member is a no-op.
func (r *PlaylistRepo) AddVideo(ctx context.Context, playlistID, videoID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO playlist_videos (playlist_id, video_id, position)
		SELECT $1, $2, COALESCE(MAX(position), 0) + 1 FROM playlist_videos WHERE playlist_id = $1
		ON CONFLICT (playlist_id, video_id) DO NOTHING`,
		playlistID, videoID,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = r.pool.Exec(ctx, "UPDATE playlists SET updated_at = NOW() WHERE id = $1", playlistID)
	return true, err
}

func (r *PlaylistRepo) RemoveVideo(ctx context.Context, playlistID, videoID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2", playlistID, videoID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = r.pool.Exec(ctx, "UPDATE playlists SET updated_at = NOW() WHERE id = $1", playlistID)
	return true, err
}

// ListVideos returns the playlist's videos in insertion order, merged with the owner's flags.
func (r *PlaylistRepo) ListVideos(ctx context.Context, ownerID, playlistID uuid.UUID) ([]*models.VideoView, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+videoViewColumns+" "+videoViewFrom+`
		JOIN playlist_videos pv ON pv.video_id = v.id
		WHERE pv.playlist_id = $1 AND v.owner_id = $2
		ORDER BY pv.position`,
		playlistID, ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	videos := make([]*models.VideoView, 0)
	for rows.Next() {
		vv, err := scanVideoView(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, vv)
	}
	return videos, rows.Err()
}
