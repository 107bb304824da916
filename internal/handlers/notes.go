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

const defaultNoteLimit = 50

type noteStore interface {
	Create(ctx context.Context, n *models.Note) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Note, error)
	List(ctx context.Context, ownerID uuid.UUID, f models.NoteFilter) ([]*models.Note, int, error)
	Update(ctx context.Context, n *models.Note) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type NoteHandler struct {
	*Responder
	notes  noteStore
	videos ownedVideoLookup
}

func NewNoteHandler(rs *Responder, notes noteStore, videos ownedVideoLookup) *NoteHandler {
	return &NoteHandler{Responder: rs, notes: notes, videos: videos}
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r, defaultNoteLimit)
	f := models.NoteFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:  limit,
		Offset: offset,
	}
	if raw := r.URL.Query().Get("videoId"); raw != "" {
		videoID, err := uuid.Parse(raw)
		if err != nil {
			h.errorResp(w, r, http.StatusBadRequest, "Invalid videoId")
			return
		}
		f.VideoID = &videoID
	}

	notes, total, err := h.notes.List(r.Context(), middleware.GetUserID(r.Context()), f)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch notes")
		return
	}
	if notes == nil {
		notes = []*models.Note{}
	}

	h.page(w, notes, models.NewPagination(page, limit, total))
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateNoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		h.fail(w, r, &services.ValidationError{Message: "Video ID and content are required", Fields: map[string]string{"content": "is required"}}, "")
		return
	}
	userID := middleware.GetUserID(r.Context())

	if _, err := h.videos.GetByID(r.Context(), userID, req.VideoID); err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Video not found"), "Failed to create note")
		return
	}

	n := &models.Note{
		OwnerID:   userID,
		VideoID:   req.VideoID,
		Content:   content,
		Timestamp: req.Timestamp,
	}
	if err := h.notes.Create(r.Context(), n); err != nil {
		h.fail(w, r, err, "Failed to create note")
		return
	}

	created, err := h.notes.GetByID(r.Context(), userID, n.ID)
	if err != nil {
		h.fail(w, r, err, "Failed to create note")
		return
	}

	h.created(w, created, "Note created successfully")
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Note not found")
	if !ok {
		return
	}

	n, err := h.notes.GetByID(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Note not found"), "Failed to fetch note")
		return
	}

	h.ok(w, n, "")
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Note not found")
	if !ok {
		return
	}
	var req models.UpdateNoteRequest
	if !h.decode(w, r, &req) {
		return
	}

	n, err := h.notes.GetByID(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Note not found"), "Failed to update note")
		return
	}

	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		if content == "" {
			h.fail(w, r, &services.ValidationError{Fields: map[string]string{"content": "must not be empty"}}, "")
			return
		}
		n.Content = content
	}
	if req.Timestamp != nil {
		n.Timestamp = req.Timestamp
	}

	if err := h.notes.Update(r.Context(), n); err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Note not found"), "Failed to update note")
		return
	}

	h.ok(w, n, "Note updated successfully")
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Note not found")
	if !ok {
		return
	}

	if err := h.notes.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Note not found"), "Failed to delete note")
		return
	}

	h.ok(w, nil, "Note deleted successfully")
}
