package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tubemark-backend/internal/middleware"
	"tubemark-backend/internal/models"
	"tubemark-backend/internal/services"
)

const defaultHistoryLimit = 50

type historyStore interface {
	CreateWithWatch(ctx context.Context, e *models.HistoryEntry) error
	List(ctx context.Context, ownerID uuid.UUID, f models.HistoryFilter) ([]*models.HistoryEntry, int, error)
	Stats(ctx context.Context, ownerID uuid.UUID, since *time.Time) (*models.WatchStats, error)
	Clear(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type HistoryHandler struct {
	*Responder
	history historyStore
	videos  ownedVideoLookup
	now     func() time.Time
}

func NewHistoryHandler(rs *Responder, history historyStore, videos ownedVideoLookup) *HistoryHandler {
	return &HistoryHandler{Responder: rs, history: history, videos: videos, now: time.Now}
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit, offset := pageParams(r, defaultHistoryLimit)
	f := models.HistoryFilter{Limit: limit, Offset: offset}

	if raw := q.Get("videoId"); raw != "" {
		videoID, err := uuid.Parse(raw)
		if err != nil {
			h.errorResp(w, r, http.StatusBadRequest, "Invalid videoId")
			return
		}
		f.VideoID = &videoID
	}

	var err error
	if f.Start, err = parseDateParam(q.Get("startDate"), false); err != nil {
		h.fail(w, r, &services.ValidationError{Fields: map[string]string{"startDate": err.Error()}}, "")
		return
	}
	if f.End, err = parseDateParam(q.Get("endDate"), true); err != nil {
		h.fail(w, r, &services.ValidationError{Fields: map[string]string{"endDate": err.Error()}}, "")
		return
	}

	entries, total, err := h.history.List(r.Context(), middleware.GetUserID(r.Context()), f)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch history")
		return
	}
	if entries == nil {
		entries = []*models.HistoryEntry{}
	}

	h.page(w, entries, models.NewPagination(page, limit, total))
}

func (h *HistoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateHistoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID := middleware.GetUserID(r.Context())

	if _, err := h.videos.GetByID(r.Context(), userID, req.VideoID); err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Video not found"), "Failed to create history entry")
		return
	}

	entry := &models.HistoryEntry{
		OwnerID:   userID,
		VideoID:   req.VideoID,
		WatchedAt: h.now().UTC(),
		Duration:  *req.Duration,
		Position:  req.Position,
	}
	if err := h.history.CreateWithWatch(r.Context(), entry); err != nil {
		h.fail(w, r, err, "Failed to create history entry")
		return
	}

	h.created(w, entry, "History entry created successfully")
}

func (h *HistoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = models.PeriodWeek
	}

	var since *time.Time
	now := h.now()
	switch period {
	case models.PeriodDay:
		t := now.Add(-24 * time.Hour)
		since = &t
	case models.PeriodWeek:
		t := now.Add(-7 * 24 * time.Hour)
		since = &t
	case models.PeriodMonth:
		t := now.Add(-30 * 24 * time.Hour)
		since = &t
	case models.PeriodAll:
	default:
		h.fail(w, r, &services.ValidationError{Fields: map[string]string{"period": "must be one of day, week, month, all"}}, "")
		return
	}

	stats, err := h.history.Stats(r.Context(), middleware.GetUserID(r.Context()), since)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch statistics")
		return
	}
	stats.Period = period

	h.ok(w, stats, "")
}

func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.history.Clear(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err, "Failed to clear history")
		return
	}

	h.ok(w, nil, fmt.Sprintf("Deleted %d history entries", n))
}

// parseDateParam accepts RFC3339 or YYYY-MM-DD. A bare date used as an upper bound covers the whole day.
func parseDateParam(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, errors.New("must be an RFC3339 timestamp or YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return &t, nil
}
