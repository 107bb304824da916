package models

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one viewing session. Duration and Position are seconds.
type HistoryEntry struct {
	ID        uuid.UUID     `json:"id"`
	OwnerID   uuid.UUID     `json:"ownerId"`
	VideoID   uuid.UUID     `json:"videoId"`
	WatchedAt time.Time     `json:"watchedAt"`
	Duration  int           `json:"duration"`
	Position  int           `json:"position"`
	Video     *VideoSummary `json:"video,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

type HistoryFilter struct {
	VideoID *uuid.UUID
	Start   *time.Time
	End     *time.Time
	Limit   int
	Offset  int
}

type CreateHistoryRequest struct {
	VideoID  uuid.UUID `json:"videoId" validate:"required"`
	Duration *int      `json:"duration" validate:"required,min=0"`
	Position int       `json:"position" validate:"min=0"`
}

const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodAll   = "all"
)

type WatchStats struct {
	Period            string `json:"period"`
	TotalWatchTime    int64  `json:"totalWatchTime"`
	TotalSessions     int64  `json:"totalSessions"`
	UniqueVideosCount int64  `json:"uniqueVideosCount"`
}
