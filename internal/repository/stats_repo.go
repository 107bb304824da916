package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tubemark-backend/internal/models"
)

type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

func (r *StatsRepo) Dashboard(ctx context.Context, userID uuid.UUID) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	t := &stats.Totals
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM videos WHERE owner_id = $1),
			(SELECT COUNT(*) FROM user_videos WHERE user_id = $1 AND is_liked),
			(SELECT COUNT(*) FROM user_videos WHERE user_id = $1 AND is_pinned),
			(SELECT COUNT(*) FROM user_videos WHERE user_id = $1 AND is_in_watchlist),
			(SELECT COUNT(*) FROM playlists WHERE owner_id = $1),
			(SELECT COUNT(*) FROM notes WHERE owner_id = $1),
			(SELECT COUNT(*) FROM tags WHERE owner_id = $1)
	`, userID).Scan(&t.Videos, &t.Liked, &t.Pinned, &t.Watchlist, &t.Playlists, &t.Notes, &t.Tags)
	if err != nil {
		return nil, err
	}

	wt := &stats.WatchTime
	err = r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(duration), 0),
			COALESCE(SUM(duration) FILTER (WHERE watched_at >= date_trunc('day', NOW())), 0),
			COALESCE(SUM(duration) FILTER (WHERE watched_at >= NOW() - INTERVAL '7 days'), 0),
			COALESCE(SUM(duration) FILTER (WHERE watched_at >= NOW() - INTERVAL '30 days'), 0)
		FROM history
		WHERE owner_id = $1
	`, userID).Scan(&wt.Total, &wt.Today, &wt.Week, &wt.Month)
	if err != nil {
		return nil, err
	}

	if stats.TopTags, err = r.topTags(ctx, userID); err != nil {
		return nil, err
	}
	if stats.MostWatched, err = r.mostWatched(ctx, userID); err != nil {
		return nil, err
	}
	if stats.DailyActivity, err = r.dailyActivity(ctx, userID); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *StatsRepo) topTags(ctx context.Context, userID uuid.UUID) ([]models.TagCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t, COUNT(*)
		FROM videos, unnest(tags) AS t
		WHERE owner_id = $1
		GROUP BY t
		ORDER BY COUNT(*) DESC, t ASC
		LIMIT 5
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.TagCount, 0, 5)
	for rows.Next() {
		var tc models.TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (r *StatsRepo) mostWatched(ctx context.Context, userID uuid.UUID) ([]models.MostWatchedVideo, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT v.id, v.youtube_id, v.title, v.thumbnail, uv.watch_count
		FROM user_videos uv
		JOIN videos v ON v.id = uv.video_id
		WHERE uv.user_id = $1 AND uv.watch_count > 0
		ORDER BY uv.watch_count DESC, uv.last_watched_at DESC NULLS LAST
		LIMIT 5
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.MostWatchedVideo, 0, 5)
	for rows.Next() {
		var mw models.MostWatchedVideo
		if err := rows.Scan(&mw.ID, &mw.YouTubeID, &mw.Title, &mw.Thumbnail, &mw.WatchCount); err != nil {
			return nil, err
		}
		out = append(out, mw)
	}
	return out, rows.Err()
}

// dailyActivity returns one row per day for the last 7 days, oldest first, watch time in minutes.
func (r *StatsRepo) dailyActivity(ctx context.Context, userID uuid.UUID) ([]models.DailyActivity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			to_char(d.day, 'YYYY-MM-DD'),
			COALESCE(SUM(h.duration), 0) / 60,
			COUNT(DISTINCT h.video_id)
		FROM generate_series(
			date_trunc('day', NOW()) - INTERVAL '6 days',
			date_trunc('day', NOW()),
			INTERVAL '1 day'
		) AS d(day)
		LEFT JOIN history h
			ON h.owner_id = $1
			AND h.watched_at >= d.day
			AND h.watched_at < d.day + INTERVAL '1 day'
		GROUP BY d.day
		ORDER BY d.day
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.DailyActivity, 0, 7)
	for rows.Next() {
		var da models.DailyActivity
		if err := rows.Scan(&da.Date, &da.WatchTime, &da.VideosWatched); err != nil {
			return nil, err
		}
		out = append(out, da)
	}
	return out, rows.Err()
}
