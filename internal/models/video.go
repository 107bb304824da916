package models

import (
	"time"

	"github.com/google/uuid"
)

// Video is a saved catalog entry. AddedAt maps to the row's created_at.
type Video struct {
	ID           uuid.UUID  `json:"id"`
	OwnerID      uuid.UUID  `json:"ownerId"`
	YouTubeID    string     `json:"youtubeId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Thumbnail    string     `json:"thumbnail"`
	Duration     string     `json:"duration"`
	PublishedAt  *time.Time `json:"publishedAt"`
	ChannelTitle string     `json:"channelTitle"`
	ViewCount    int64      `json:"viewCount"`
	LikeCount    int64      `json:"likeCount"`
	Tags         []string   `json:"tags"`
	AddedAt      time.Time  `json:"addedAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// UserVideo is the per-user interaction overlay for a Video.
type UserVideo struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             uuid.UUID  `json:"userId"`
	VideoID            uuid.UUID  `json:"videoId"`
	IsLiked            bool       `json:"isLiked"`
	IsPinned           bool       `json:"isPinned"`
	IsInWatchlist      bool       `json:"isInWatchlist"`
	WatchCount         int        `json:"watchCount"`
	LastWatchedAt      *time.Time `json:"lastWatchedAt"`
	LikedAt            *time.Time `json:"likedAt"`
	PinnedAt           *time.Time `json:"pinnedAt"`
	AddedToWatchlistAt *time.Time `json:"addedToWatchlistAt"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// VideoView is a Video merged with the caller's UserVideo flags.
type VideoView struct {
	Video
	IsLiked       bool       `json:"isLiked"`
	IsPinned      bool       `json:"isPinned"`
	IsInWatchlist bool       `json:"isInWatchlist"`
	WatchCount    int        `json:"watchCount"`
	LastWatchedAt *time.Time `json:"lastWatchedAt"`
}

// Merge overlays uv onto v. A nil uv yields default flags.
func Merge(v *Video, uv *UserVideo) *VideoView {
	view := &VideoView{Video: *v}
	if uv != nil {
		view.IsLiked = uv.IsLiked
		view.IsPinned = uv.IsPinned
		view.IsInWatchlist = uv.IsInWatchlist
		view.WatchCount = uv.WatchCount
		view.LastWatchedAt = uv.LastWatchedAt
	}
	return view
}

// VideoSummary is the small video reference embedded in notes and history rows.
type VideoSummary struct {
	ID        uuid.UUID `json:"id"`
	YouTubeID string    `json:"youtubeId"`
	Title     string    `json:"title"`
	Thumbnail string    `json:"thumbnail"`
	Duration  string    `json:"duration"`
}

type VideoFilter struct {
	Search    string
	Tags      []string
	Liked     *bool
	Pinned    *bool
	Watchlist *bool
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

type SaveVideoRequest struct {
	YouTubeID string   `json:"youtubeId" validate:"required,max=255"`
	Tags      []string `json:"tags" validate:"omitempty,max=50,dive,required,max=50"`
}

// UpdateVideoRequest only carries mutable fields; youtubeId, addedAt and ids in the body are ignored.
type UpdateVideoRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=1,max=300"`
	Description *string  `json:"description" validate:"omitempty,max=10000"`
	Thumbnail   *string  `json:"thumbnail" validate:"omitempty,url"`
	Tags        []string `json:"tags" validate:"omitempty,max=50,dive,required,max=50"`
}
