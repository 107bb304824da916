package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tubemark-backend/internal/middleware"
	"tubemark-backend/internal/models"
	"tubemark-backend/internal/services"
)

const (
	defaultSearchResults    = 25
	defaultTagSearchResults = 20
)

type videoSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.ExternalVideo, error)
	GetVideo(ctx context.Context, videoID string) (*models.ExternalVideo, error)
	SearchByTags(ctx context.Context, tags []string, maxResults int) ([]models.ExternalVideo, error)
}

// searchResponse adds the result count, and for tag searches the tags used, next to the envelope.
type searchResponse struct {
	models.Response
	Count        int      `json:"count"`
	SearchedTags []string `json:"searchedTags,omitempty"`
}

type YouTubeHandler struct {
	*Responder
	youtube videoSearcher
}

func NewYouTubeHandler(rs *Responder, youtube videoSearcher) *YouTubeHandler {
	return &YouTubeHandler{Responder: rs, youtube: youtube}
}

func (h *YouTubeHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.fail(w, r, &services.ValidationError{Message: "Search query is required", Fields: map[string]string{"q": "is required"}}, "")
		return
	}
	maxResults := intParam(r, "maxResults", defaultSearchResults)

	videos, err := h.youtube.Search(r.Context(), query, maxResults)
	if err != nil {
		h.fail(w, r, err, "Failed to search YouTube videos")
		return
	}
	if videos == nil {
		videos = []models.ExternalVideo{}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Response: models.Response{Success: true, Data: videos},
		Count:    len(videos),
	})
}

func (h *YouTubeHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	video, err := h.youtube.GetVideo(r.Context(), chi.URLParam(r, "videoId"))
	if err != nil {
		h.fail(w, r, err, "Failed to get video details")
		return
	}

	h.ok(w, video, "")
}

func (h *YouTubeHandler) SearchByTags(w http.ResponseWriter, r *http.Request) {
	var req models.SearchByTagsRequest
	if !h.decode(w, r, &req) {
		return
	}
	tags := services.NormalizeTags(req.Tags)
	if len(tags) == 0 {
		h.fail(w, r, &services.ValidationError{Message: "Tags array is required", Fields: map[string]string{"tags": "is required"}}, "")
		return
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = defaultTagSearchResults
	}

	videos, err := h.youtube.SearchByTags(r.Context(), tags, maxResults)
	if err != nil {
		h.fail(w, r, err, "Failed to search by tags")
		return
	}
	if videos == nil {
		videos = []models.ExternalVideo{}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Response:     models.Response{Success: true, Data: videos},
		Count:        len(videos),
		SearchedTags: tags,
	})
}

type recommender interface {
	Recommend(ctx context.Context, userID uuid.UUID, selected []string, maxResults int) (*models.Recommendations, error)
	Save(ctx context.Context, userID uuid.UUID, youtubeID string, tags []string) (*models.VideoView, error)
}

type RecommendationHandler struct {
	*Responder
	recommender recommender
}

func NewRecommendationHandler(rs *Responder, rec recommender) *RecommendationHandler {
	return &RecommendationHandler{Responder: rs, recommender: rec}
}

func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	selected := splitList(r.URL.Query().Get("tags"))
	maxResults := intParam(r, "maxResults", services.DefaultRecommendations)

	recs, err := h.recommender.Recommend(r.Context(), middleware.GetUserID(r.Context()), selected, maxResults)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch recommendations")
		return
	}

	h.ok(w, recs, "")
}

func (h *RecommendationHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req models.SaveRecommendationRequest
	if !h.decode(w, r, &req) {
		return
	}

	video, err := h.recommender.Save(r.Context(), middleware.GetUserID(r.Context()), req.YouTubeID, req.Tags)
	if err != nil {
		h.fail(w, r, err, "Failed to save video")
		return
	}

	h.created(w, video, "Video saved successfully")
}

func intParam(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
