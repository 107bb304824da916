package services

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"tubemark-backend/internal/models"
)

const (
	DefaultRecommendations = 12
	recommendationTagCount = 3
)

type tagLister interface {
	ListAll(ctx context.Context, ownerID uuid.UUID) ([]*models.Tag, error)
}

type tagSearcher interface {
	SearchByTags(ctx context.Context, tags []string, maxResults int) ([]models.ExternalVideo, error)
}

type savedVideoChecker interface {
	SavedYouTubeIDs(ctx context.Context, ownerID uuid.UUID, youtubeIDs []string) (map[string]bool, error)
}

// Recommender suggests YouTube videos from the caller's most used tags.
type Recommender struct {
	tags   tagLister
	search tagSearcher
	saved  savedVideoChecker
	videos *VideoService
}

func NewRecommender(tags tagLister, search tagSearcher, saved savedVideoChecker, videos *VideoService) *Recommender {
	return &Recommender{tags: tags, search: search, saved: saved, videos: videos}
}

// TopTags returns the names of the n most used tags, ties broken by name.
func TopTags(tags []*models.Tag, n int) []string {
	sorted := make([]*models.Tag, len(tags))
	copy(sorted, tags)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].UsageCount != sorted[j].UsageCount {
			return sorted[i].UsageCount > sorted[j].UsageCount
		}
		return sorted[i].Name < sorted[j].Name
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	names := make([]string, 0, n)
	for _, t := range sorted[:n] {
		names = append(names, t.Name)
	}
	return names
}

// Recommend searches by the selected tags, or the caller's top tags when none are selected,
// and drops videos already in the caller's catalog.
func (r *Recommender) Recommend(ctx context.Context, userID uuid.UUID, selected []string, maxResults int) (*models.Recommendations, error) {
	if maxResults <= 0 {
		maxResults = DefaultRecommendations
	}

	selected = NormalizeTags(selected)
	if len(selected) == 0 {
		tags, err := r.tags.ListAll(ctx, userID)
		if err != nil {
			return nil, err
		}
		selected = TopTags(tags, recommendationTagCount)
	}

	result := &models.Recommendations{Tags: selected, Videos: []models.ExternalVideo{}}
	if len(selected) == 0 {
		return result, nil
	}

	found, err := r.search.SearchByTags(ctx, selected, maxResults)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(found))
	for _, v := range found {
		ids = append(ids, v.YouTubeID)
	}
	saved, err := r.saved.SavedYouTubeIDs(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	for _, v := range found {
		if !saved[v.YouTubeID] {
			result.Videos = append(result.Videos, v)
		}
	}
	return result, nil
}

// Save stores a recommended video for the caller, tagged with the active selection.
func (r *Recommender) Save(ctx context.Context, userID uuid.UUID, youtubeID string, tags []string) (*models.VideoView, error) {
	return r.videos.Save(ctx, userID, youtubeID, tags)
}
