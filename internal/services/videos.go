package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"tubemark-backend/internal/models"
	"tubemark-backend/internal/repository"
)

type videoStore interface {
	Create(ctx context.Context, v *models.Video) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Video, error)
	GetByYouTubeID(ctx context.Context, ownerID uuid.UUID, youtubeID string) (*models.Video, error)
	GetView(ctx context.Context, ownerID, id uuid.UUID) (*models.VideoView, error)
	List(ctx context.Context, ownerID uuid.UUID, f models.VideoFilter) ([]*models.VideoView, int, error)
	Update(ctx context.Context, v *models.Video) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type userVideoStore interface {
	GetOrCreate(ctx context.Context, userID, videoID uuid.UUID) (*models.UserVideo, error)
	Save(ctx context.Context, uv *models.UserVideo) error
}

// VideoMetadataSource resolves a YouTube id to its metadata.
type VideoMetadataSource interface {
	GetVideo(ctx context.Context, videoID string) (*models.ExternalVideo, error)
}

// TagUsageQueue schedules a recount of a user's tag usage.
type TagUsageQueue interface {
	EnqueueTagUsage(ctx context.Context, userID uuid.UUID) error
}

type VideoService struct {
	videos     videoStore
	userVideos userVideoStore
	metadata   VideoMetadataSource
	usage      TagUsageQueue
	logger     *slog.Logger
}

func NewVideoService(videos videoStore, userVideos userVideoStore, metadata VideoMetadataSource, usage TagUsageQueue, logger *slog.Logger) *VideoService {
	return &VideoService{
		videos:     videos,
		userVideos: userVideos,
		metadata:   metadata,
		usage:      usage,
		logger:     logger,
	}
}

func (s *VideoService) List(ctx context.Context, userID uuid.UUID, f models.VideoFilter) ([]*models.VideoView, int, error) {
	f.Tags = NormalizeTags(f.Tags)
	return s.videos.List(ctx, userID, f)
}

func (s *VideoService) Get(ctx context.Context, userID, id uuid.UUID) (*models.VideoView, error) {
	view, err := s.videos.GetView(ctx, userID, id)
	if err != nil {
		return nil, NotFoundOr(err, "Video not found")
	}
	return view, nil
}

// Save stores a YouTube video in the caller's catalog. Saving the same YouTube id twice
// yields a ConflictError carrying the existing record.
func (s *VideoService) Save(ctx context.Context, userID uuid.UUID, rawID string, tags []string) (*models.VideoView, error) {
	youtubeID, err := NormalizeVideoID(rawID)
	if err != nil {
		return nil, err
	}

	existing, err := s.existing(ctx, userID, youtubeID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &ConflictError{Message: "Video already saved", Existing: existing}
	}

	meta, err := s.metadata.GetVideo(ctx, youtubeID)
	if err != nil {
		return nil, err
	}

	v := &models.Video{
		OwnerID:      userID,
		YouTubeID:    youtubeID,
		Title:        meta.Title,
		Description:  meta.Description,
		Thumbnail:    meta.Thumbnail,
		Duration:     meta.Duration,
		PublishedAt:  meta.PublishedAt,
		ChannelTitle: meta.ChannelTitle,
		ViewCount:    meta.ViewCount,
		LikeCount:    meta.LikeCount,
		Tags:         NormalizeTags(tags),
	}
	if err := s.videos.Create(ctx, v); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			existing, lookupErr := s.existing(ctx, userID, youtubeID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			return nil, &ConflictError{Message: "Video already saved", Existing: existing}
		}
		return nil, err
	}

	s.scheduleTagUsage(ctx, userID)
	return models.Merge(v, nil), nil
}

func (s *VideoService) existing(ctx context.Context, userID uuid.UUID, youtubeID string) (*models.VideoView, error) {
	v, err := s.videos.GetByYouTubeID(ctx, userID, youtubeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.videos.GetView(ctx, userID, v.ID)
}

// Update applies the mutable fields of req. Identity fields are never touched.
func (s *VideoService) Update(ctx context.Context, userID, id uuid.UUID, req models.UpdateVideoRequest) (*models.VideoView, error) {
	v, err := s.videos.GetByID(ctx, userID, id)
	if err != nil {
		return nil, NotFoundOr(err, "Video not found")
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, &ValidationError{Fields: map[string]string{"title": "must not be empty"}}
		}
		v.Title = title
	}
	if req.Description != nil {
		v.Description = *req.Description
	}
	if req.Thumbnail != nil {
		v.Thumbnail = *req.Thumbnail
	}
	tagsChanged := req.Tags != nil
	if tagsChanged {
		v.Tags = NormalizeTags(req.Tags)
	}

	if err := s.videos.Update(ctx, v); err != nil {
		return nil, NotFoundOr(err, "Video not found")
	}
	if tagsChanged {
		s.scheduleTagUsage(ctx, userID)
	}
	return s.Get(ctx, userID, id)
}

// Delete removes the video together with its interaction rows, notes, history and playlist entries.
func (s *VideoService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.videos.Delete(ctx, userID, id); err != nil {
		return NotFoundOr(err, "Video not found")
	}
	s.scheduleTagUsage(ctx, userID)
	return nil
}

func (s *VideoService) ToggleLike(ctx context.Context, userID, id uuid.UUID) (*models.VideoView, error) {
	return s.toggle(ctx, userID, id, func(uv *models.UserVideo, now time.Time) {
		uv.IsLiked = !uv.IsLiked
		uv.LikedAt = stamp(uv.IsLiked, now)
	})
}

func (s *VideoService) TogglePin(ctx context.Context, userID, id uuid.UUID) (*models.VideoView, error) {
	return s.toggle(ctx, userID, id, func(uv *models.UserVideo, now time.Time) {
		uv.IsPinned = !uv.IsPinned
		uv.PinnedAt = stamp(uv.IsPinned, now)
	})
}

func (s *VideoService) ToggleWatchlist(ctx context.Context, userID, id uuid.UUID) (*models.VideoView, error) {
	return s.toggle(ctx, userID, id, func(uv *models.UserVideo, now time.Time) {
		uv.IsInWatchlist = !uv.IsInWatchlist
		uv.AddedToWatchlistAt = stamp(uv.IsInWatchlist, now)
	})
}

func (s *VideoService) toggle(ctx context.Context, userID, id uuid.UUID, flip func(*models.UserVideo, time.Time)) (*models.VideoView, error) {
	v, err := s.videos.GetByID(ctx, userID, id)
	if err != nil {
		return nil, NotFoundOr(err, "Video not found")
	}

	uv, err := s.userVideos.GetOrCreate(ctx, userID, v.ID)
	if err != nil {
		return nil, err
	}
	flip(uv, time.Now().UTC())
	if err := s.userVideos.Save(ctx, uv); err != nil {
		return nil, err
	}
	return models.Merge(v, uv), nil
}

func stamp(on bool, now time.Time) *time.Time {
	if !on {
		return nil
	}
	return &now
}

func (s *VideoService) scheduleTagUsage(ctx context.Context, userID uuid.UUID) {
	if s.usage == nil {
		return
	}
	if err := s.usage.EnqueueTagUsage(ctx, userID); err != nil {
		s.logger.Warn("failed to enqueue tag usage recount", "user_id", userID, "error", err)
	}
}

// NormalizeTags trims and lowercases tags, dropping empties and duplicates while keeping order.
func NormalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
