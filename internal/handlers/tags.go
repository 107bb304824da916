package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"tubemark-backend/internal/middleware"
	"tubemark-backend/internal/models"
	"tubemark-backend/internal/repository"
	"tubemark-backend/internal/services"
)

const defaultTagLimit = 100

type tagStore interface {
	Create(ctx context.Context, t *models.Tag) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Tag, error)
	GetByName(ctx context.Context, ownerID uuid.UUID, name string) (*models.Tag, error)
	List(ctx context.Context, ownerID uuid.UUID, search string, limit, offset int) ([]*models.Tag, int, error)
	Update(ctx context.Context, t *models.Tag) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type TagHandler struct {
	*Responder
	tags  tagStore
	usage services.TagUsageQueue
}

func NewTagHandler(rs *Responder, tags tagStore, usage services.TagUsageQueue) *TagHandler {
	return &TagHandler{Responder: rs, tags: tags, usage: usage}
}

func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r, defaultTagLimit)
	search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search")))

	tags, total, err := h.tags.List(r.Context(), middleware.GetUserID(r.Context()), search, limit, offset)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch tags")
		return
	}
	if tags == nil {
		tags = []*models.Tag{}
	}

	h.page(w, tags, models.NewPagination(page, limit, total))
}

func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTagRequest
	if !h.decode(w, r, &req) {
		return
	}
	name := strings.ToLower(strings.TrimSpace(req.Name))
	if name == "" {
		h.fail(w, r, &services.ValidationError{Message: "Tag name is required", Fields: map[string]string{"name": "is required"}}, "")
		return
	}
	userID := middleware.GetUserID(r.Context())

	if existing, err := h.tags.GetByName(r.Context(), userID, name); err == nil {
		h.fail(w, r, &services.ConflictError{Message: "Tag already exists", Existing: existing}, "")
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		h.fail(w, r, err, "Failed to create tag")
		return
	}

	t := &models.Tag{OwnerID: userID, Name: name, Color: strings.ToUpper(req.Color)}
	if err := h.tags.Create(r.Context(), t); err != nil {
		h.fail(w, r, h.conflictOr(r.Context(), userID, name, err), "Failed to create tag")
		return
	}

	h.scheduleRecount(r.Context(), userID)
	h.created(w, t, "Tag created successfully")
}

func (h *TagHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Tag not found")
	if !ok {
		return
	}
	var req models.UpdateTagRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID := middleware.GetUserID(r.Context())

	t, err := h.tags.GetByID(r.Context(), userID, id)
	if err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Tag not found"), "Failed to update tag")
		return
	}

	renamed := false
	if req.Name != nil {
		name := strings.ToLower(strings.TrimSpace(*req.Name))
		if name == "" {
			h.fail(w, r, &services.ValidationError{Message: "Tag name is required", Fields: map[string]string{"name": "must not be empty"}}, "")
			return
		}
		renamed = name != t.Name
		t.Name = name
	}
	if req.Color != nil {
		t.Color = strings.ToUpper(*req.Color)
	}

	if err := h.tags.Update(r.Context(), t); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			err = h.conflictOr(r.Context(), userID, t.Name, err)
		}
		h.fail(w, r, services.NotFoundOr(err, "Tag not found"), "Failed to update tag")
		return
	}

	if renamed {
		h.scheduleRecount(r.Context(), userID)
	}
	h.ok(w, t, "Tag updated successfully")
}

func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Tag not found")
	if !ok {
		return
	}

	if err := h.tags.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		h.fail(w, r, services.NotFoundOr(err, "Tag not found"), "Failed to delete tag")
		return
	}

	h.ok(w, nil, "Tag deleted successfully")
}

// conflictOr turns a unique violation on name into a ConflictError carrying the clashing tag.
func (h *TagHandler) conflictOr(ctx context.Context, userID uuid.UUID, name string, err error) error {
	if !errors.Is(err, repository.ErrDuplicate) {
		return err
	}
	existing, lookupErr := h.tags.GetByName(ctx, userID, name)
	if lookupErr != nil {
		return &services.ConflictError{Message: "Tag already exists"}
	}
	return &services.ConflictError{Message: "Tag already exists", Existing: existing}
}

func (h *TagHandler) scheduleRecount(ctx context.Context, userID uuid.UUID) {
	if h.usage == nil {
		return
	}
	if err := h.usage.EnqueueTagUsage(ctx, userID); err != nil {
		h.logger.Warn("failed to enqueue tag usage recount", "user_id", userID, "error", err)
	}
}
