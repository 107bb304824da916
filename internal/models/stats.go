package models

import "github.com/google/uuid"

type DashboardStats struct {
	Totals        StatsTotals        `json:"totals"`
	WatchTime     WatchTimeStats     `json:"watchTime"`
	TopTags       []TagCount         `json:"topTags"`
	MostWatched   []MostWatchedVideo `json:"mostWatched"`
	DailyActivity []DailyActivity    `json:"dailyActivity"`
}

type StatsTotals struct {
	Videos    int `json:"videos"`
	Liked     int `json:"liked"`
	Pinned    int `json:"pinned"`
	Watchlist int `json:"watchlist"`
	Playlists int `json:"playlists"`
	Notes     int `json:"notes"`
	Tags      int `json:"tags"`
}

// WatchTimeStats values are seconds.
type WatchTimeStats struct {
	Total int64 `json:"total"`
	Today int64 `json:"today"`
	Week  int64 `json:"week"`
	Month int64 `json:"month"`
}

type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type MostWatchedVideo struct {
	ID         uuid.UUID `json:"id"`
	YouTubeID  string    `json:"youtubeId"`
	Title      string    `json:"title"`
	Thumbnail  string    `json:"thumbnail"`
	WatchCount int       `json:"watchCount"`
}

// DailyActivity WatchTime is minutes.
type DailyActivity struct {
	Date          string `json:"date"`
	WatchTime     int64  `json:"watchTime"`
	VideosWatched int    `json:"videosWatched"`
}
