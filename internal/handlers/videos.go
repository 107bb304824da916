package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tubemark-backend/internal/middleware"
	"tubemark-backend/internal/models"
	"tubemark-backend/internal/repository"
)

const defaultVideoLimit = 50

type videoService interface {
	List(ctx context.Context, userID uuid.UUID, f models.VideoFilter) ([]*models.VideoView, int, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.VideoView, error)
	Save(ctx context.Context, userID uuid.UUID, rawID string, tags []string) (*models.VideoView, error)
	Update(ctx context.Context, userID, id uuid.UUID, req models.UpdateVideoRequest) (*models.VideoView, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	ToggleLike(ctx context.Context, userID, id uuid.UUID) (*models.VideoView, error)
	TogglePin(ctx context.Context, userID, id uuid.UUID) (*models.VideoView, error)
	ToggleWatchlist(ctx context.Context, userID, id uuid.UUID) (*models.VideoView, error)
}

type VideoHandler struct {
	*Responder
	videos videoService
}

func NewVideoHandler(rs *Responder, videos videoService) *VideoHandler {
	return &VideoHandler{Responder: rs, videos: videos}
}

func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit, offset := pageParams(r, defaultVideoLimit)

	f := models.VideoFilter{
		Search:    strings.TrimSpace(q.Get("search")),
		Tags:      splitList(q.Get("tags")),
		Liked:     boolParam(r, "liked"),
		Pinned:    boolParam(r, "pinned"),
		Watchlist: boolParam(r, "watchlist"),
		SortBy:    q.Get("sortBy"),
		SortOrder: strings.ToLower(q.Get("sortOrder")),
		Limit:     limit,
		Offset:    offset,
	}
	if f.SortBy != "" && !repository.IsVideoSortField(f.SortBy) {
		h.errorResp(w, r, http.StatusBadRequest, "Invalid sortBy value")
		return
	}
	if f.SortOrder != "" && f.SortOrder != "asc" && f.SortOrder != "desc" {
		h.errorResp(w, r, http.StatusBadRequest, "Invalid sortOrder value")
		return
	}

	videos, total, err := h.videos.List(r.Context(), middleware.GetUserID(r.Context()), f)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch videos")
		return
	}
	if videos == nil {
		videos = []*models.VideoView{}
	}

	h.page(w, videos, models.NewPagination(page, limit, total))
}

func (h *VideoHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req models.SaveVideoRequest
	if !h.decode(w, r, &req) {
		return
	}

	video, err := h.videos.Save(r.Context(), middleware.GetUserID(r.Context()), req.YouTubeID, req.Tags)
	if err != nil {
		h.fail(w, r, err, "Failed to save video")
		return
	}

	h.created(w, video, "Video saved successfully")
}

func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Video not found")
	if !ok {
		return
	}

	video, err := h.videos.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch video")
		return
	}

	h.ok(w, video, "")
}

func (h *VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Video not found")
	if !ok {
		return
	}
	var req models.UpdateVideoRequest
	if !h.decode(w, r, &req) {
		return
	}

	video, err := h.videos.Update(r.Context(), middleware.GetUserID(r.Context()), id, req)
	if err != nil {
		h.fail(w, r, err, "Failed to update video")
		return
	}

	h.ok(w, video, "Video updated successfully")
}

func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Video not found")
	if !ok {
		return
	}

	if err := h.videos.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		h.fail(w, r, err, "Failed to delete video")
		return
	}

	h.ok(w, nil, "Video deleted successfully")
}

func (h *VideoHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.videos.ToggleLike, "Failed to toggle like status", func(v *models.VideoView) string {
		if v.IsLiked {
			return "Video liked successfully"
		}
		return "Video unliked successfully"
	})
}

func (h *VideoHandler) TogglePin(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.videos.TogglePin, "Failed to toggle pin status", func(v *models.VideoView) string {
		if v.IsPinned {
			return "Video pinned successfully"
		}
		return "Video unpinned successfully"
	})
}

func (h *VideoHandler) ToggleWatchlist(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.videos.ToggleWatchlist, "Failed to toggle watchlist status", func(v *models.VideoView) string {
		if v.IsInWatchlist {
			return "Video added to watchlist successfully"
		}
		return "Video removed from watchlist successfully"
	})
}

type toggleFunc func(ctx context.Context, userID, id uuid.UUID) (*models.VideoView, error)

func (h *VideoHandler) toggle(w http.ResponseWriter, r *http.Request, fn toggleFunc, fallback string, message func(*models.VideoView) string) {
	id, ok := h.pathID(w, r, "id", "Video not found")
	if !ok {
		return
	}

	video, err := fn(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		h.fail(w, r, err, fallback)
		return
	}

	h.ok(w, video, message(video))
}

// splitList splits a comma separated query value, dropping blanks.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
