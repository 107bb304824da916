package models

import (
	"time"

	"github.com/google/uuid"
)

// Note is a user annotation on a saved video. Timestamp is seconds into the video.
type Note struct {
	ID        uuid.UUID     `json:"id"`
	OwnerID   uuid.UUID     `json:"ownerId"`
	VideoID   uuid.UUID     `json:"videoId"`
	Content   string        `json:"content"`
	Timestamp *int          `json:"timestamp"`
	Video     *VideoSummary `json:"video,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type NoteFilter struct {
	VideoID *uuid.UUID
	Search  string
	Limit   int
	Offset  int
}

type CreateNoteRequest struct {
	VideoID   uuid.UUID `json:"videoId" validate:"required"`
	Content   string    `json:"content" validate:"required,max=10000"`
	Timestamp *int      `json:"timestamp" validate:"omitempty,min=0"`
}

type UpdateNoteRequest struct {
	Content   *string `json:"content" validate:"omitempty,max=10000"`
	Timestamp *int    `json:"timestamp" validate:"omitempty,min=0"`
}
