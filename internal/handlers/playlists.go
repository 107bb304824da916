package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tubemark-backend/internal/middleware"
	"tubemark-backend/internal/models"
	"tubemark-backend/internal/services"
)

const defaultPlaylistLimit = 50

type playlistStore interface {
	Create(ctx context.Context, p *models.Playlist) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Playlist, error)
	List(ctx context.Context, ownerID uuid.UUID, search string, limit, offset int) ([]*models.Playlist, int, error)
	Update(ctx context.Context, p *models.Playlist) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	AddVideo(ctx context.Context, playlistID, videoID uuid.UUID) (bool, error)
	RemoveVideo(ctx context.Context, playlistID, videoID uuid.UUID) (bool, error)
	ListVideos(ctx context.Context, ownerID, playlistID uuid.UUID) ([]*models.VideoView, error)
}

// ownedVideoLookup checks that a video belongs to the caller.
type ownedVideoLookup interface {
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Video, error)
}

type PlaylistHandler struct {
	*Responder
	playlists playlistStore
	videos    ownedVideoLookup
}

func NewPlaylistHandler(rs *Responder, playlists playlistStore, videos ownedVideoLookup) *PlaylistHandler {
	return &PlaylistHandler{Responder: rs, playlists: playlists, videos: videos}
}

func (h *PlaylistHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r, defaultPlaylistLimit)
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	playlists, total, err := h.playlists.List(r.Context(), middleware.GetUserID(r.Context()), search, limit, offset)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch playlists")
		return
	}
	if playlists == nil {
		playlists = []*models.Playlist{}
	}

	h.page(w, playlists, models.NewPagination(page, limit, total))
}

func (h *PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePlaylistRequest
	if !h.decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.fail(w, r, &services.ValidationError{Message: "Playlist name is required", Fields: map[string]string{"name": "is required"}}, "")
		return
	}

	p := &models.Playlist{
		OwnerID:     middleware.GetUserID(r.Context()),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
	}
	if err := h.playlists.Create(r.Context(), p); err != nil {
		h.fail(w, r, err, "Failed to create playlist")
		return
	}

	h.created(w, p, "Playlist created successfully")
}

func (h *PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Playlist not found")
	if !ok {
		return
	}
	userID := middleware.GetUserID(r.Context())

	p, err := h.playlists.GetByID(r.Context(), userID, id)
	if err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Playlist not found"), "Failed to fetch playlist")
		return
	}

	videos, err := h.playlists.ListVideos(r.Context(), userID, id)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch playlist")
		return
	}

	h.ok(w, models.PlaylistDetail{Playlist: *p, Videos: videos}, "")
}

func (h *PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Playlist not found")
	if !ok {
		return
	}
	var req models.UpdatePlaylistRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.playlists.GetByID(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Playlist not found"), "Failed to update playlist")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			h.fail(w, r, &services.ValidationError{Message: "Playlist name is required", Fields: map[string]string{"name": "must not be empty"}}, "")
			return
		}
		p.Name = name
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}

	if err := h.playlists.Update(r.Context(), p); err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Playlist not found"), "Failed to update playlist")
		return
	}

	h.ok(w, p, "Playlist updated successfully")
}

func (h *PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Playlist not found")
	if !ok {
		return
	}

	if err := h.playlists.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Playlist not found"), "Failed to delete playlist")
		return
	}

	h.ok(w, nil, "Playlist deleted successfully")
}

func (h *PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Playlist not found")
	if !ok {
		return
	}
	var req models.PlaylistVideoRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID := middleware.GetUserID(r.Context())

	if _, err := h.playlists.GetByID(r.Context(), userID, id); err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Playlist not found"), "Failed to add video to playlist")
		return
	}
	if _, err := h.videos.GetByID(r.Context(), userID, req.VideoID); err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Video not found"), "Failed to add video to playlist")
		return
	}

	if _, err := h.playlists.AddVideo(r.Context(), id, req.VideoID); err != nil {
		h.fail(w, r, err, "Failed to add video to playlist")
		return
	}

	p, err := h.playlists.GetByID(r.Context(), userID, id)
	if err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Playlist not found"), "Failed to add video to playlist")
		return
	}

	h.ok(w, p, "Video added to playlist successfully")
}

func (h *PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Playlist not found")
	if !ok {
		return
	}
	videoID, ok := h.pathID(w, r, "videoId", "Video not found")
	if !ok {
		return
	}
	userID := middleware.GetUserID(r.Context())

	if _, err := h.playlists.GetByID(r.Context(), userID, id); err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Playlist not found"), "Failed to remove video from playlist")
		return
	}

	if _, err := h.playlists.RemoveVideo(r.Context(), id, videoID); err != nil {
		h.fail(w, r, err, "Failed to remove video from playlist")
		return
	}

	p, err := h.playlists.GetByID(r.Context(), userID, id)
	if err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Playlist not found"), "Failed to remove video from playlist")
		return
	}

	h.ok(w, p, "Video removed from playlist successfully")
}
