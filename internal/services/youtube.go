package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	yt "github.com/kkdai/youtube/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"tubemark-backend/internal/models"
)

const (
	maxYouTubeResults = 50
	tagSearchWorkers  = 5
)

// YouTubeGateway reads video metadata from the YouTube Data API v3.
type YouTubeGateway struct {
	svc    *youtube.Service
	logger *slog.Logger
}

// NewYouTubeGateway builds a gateway for apiKey. An empty key yields a gateway whose
// lookups fail with an unavailable UpstreamError and whose tag search returns nothing.
func NewYouTubeGateway(ctx context.Context, apiKey string, logger *slog.Logger, opts ...option.ClientOption) (*YouTubeGateway, error) {
	g := &YouTubeGateway{logger: logger}
	if apiKey == "" {
		return g, nil
	}

	svc, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create youtube client: %w", err)
	}
	g.svc = svc
	return g, nil
}

func (g *YouTubeGateway) Configured() bool {
	return g.svc != nil
}

func errNotConfigured() error {
	return &UpstreamError{Kind: UpstreamUnavailable, Message: "YouTube API key not configured"}
}

func requestFailed(msg string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &UpstreamError{Kind: UpstreamRequestFailed, Message: msg, Err: fmt.Errorf("youtube api status %d: %s", apiErr.Code, apiErr.Message)}
	}
	return &UpstreamError{Kind: UpstreamRequestFailed, Message: msg, Err: err}
}

// Search runs a relevance-ordered video search and enriches the hits with duration and statistics.
func (g *YouTubeGateway) Search(ctx context.Context, query string, maxResults int) ([]models.ExternalVideo, error) {
	if !g.Configured() {
		return nil, errNotConfigured()
	}
	maxResults = clamp(maxResults, 1, maxYouTubeResults)

	resp, err := g.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		Order("relevance").
		SafeSearch("moderate").
		MaxResults(int64(maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, requestFailed("Failed to search YouTube videos", err)
	}

	ids := make([]string, 0, len(resp.Items))
	snippets := make(map[string]*youtube.SearchResultSnippet, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		ids = append(ids, item.Id.VideoId)
		snippets[item.Id.VideoId] = item.Snippet
	}
	if len(ids) == 0 {
		return []models.ExternalVideo{}, nil
	}

	details, err := g.videoDetails(ctx, ids)
	if err != nil {
		return nil, err
	}

	videos := make([]models.ExternalVideo, 0, len(ids))
	for _, id := range ids {
		if v, ok := details[id]; ok {
			videos = append(videos, v)
			continue
		}
		if s := snippets[id]; s != nil {
			videos = append(videos, models.ExternalVideo{
				YouTubeID:    id,
				Title:        s.Title,
				Description:  s.Description,
				Thumbnail:    thumbnailURL(s.Thumbnails),
				Duration:     "PT0S",
				PublishedAt:  parsePublishedAt(s.PublishedAt),
				ChannelTitle: s.ChannelTitle,
			})
		}
	}
	return videos, nil
}

// GetVideo fetches a single video by id or URL.
func (g *YouTubeGateway) GetVideo(ctx context.Context, videoID string) (*models.ExternalVideo, error) {
	if !g.Configured() {
		return nil, errNotConfigured()
	}

	id, err := NormalizeVideoID(videoID)
	if err != nil {
		return nil, err
	}

	details, err := g.videoDetails(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	v, ok := details[id]
	if !ok {
		return nil, &NotFoundError{Message: "Video not found"}
	}
	return &v, nil
}

func (g *YouTubeGateway) videoDetails(ctx context.Context, ids []string) (map[string]models.ExternalVideo, error) {
	resp, err := g.svc.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, requestFailed("Failed to fetch video details", err)
	}

	out := make(map[string]models.ExternalVideo, len(resp.Items))
	for _, item := range resp.Items {
		out[item.Id] = toExternalVideo(item)
	}
	return out, nil
}

// SearchByTags searches each tag concurrently with a per-tag budget of ceil(max/len(tags)).
// A failing tag contributes no results. Results are de-duplicated (first occurrence wins),
// ordered by view count and truncated to maxResults.
func (g *YouTubeGateway) SearchByTags(ctx context.Context, tags []string, maxResults int) ([]models.ExternalVideo, error) {
	if len(tags) == 0 || !g.Configured() {
		return []models.ExternalVideo{}, nil
	}
	maxResults = clamp(maxResults, 1, maxYouTubeResults)
	perTag := (maxResults + len(tags) - 1) / len(tags)

	results := make([][]models.ExternalVideo, len(tags))
	var eg errgroup.Group
	eg.SetLimit(tagSearchWorkers)
	for i, tag := range tags {
		eg.Go(func() error {
			videos, err := g.Search(ctx, tag, perTag)
			if err != nil {
				g.logger.Warn("tag search failed", "tag", tag, "error", err)
				return nil
			}
			results[i] = videos
			return nil
		})
	}
	_ = eg.Wait()

	return mergeTagResults(results, maxResults), nil
}

func mergeTagResults(results [][]models.ExternalVideo, maxResults int) []models.ExternalVideo {
	seen := make(map[string]bool)
	merged := make([]models.ExternalVideo, 0, maxResults)
	for _, videos := range results {
		for _, v := range videos {
			if seen[v.YouTubeID] {
				continue
			}
			seen[v.YouTubeID] = true
			merged = append(merged, v)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ViewCount > merged[j].ViewCount
	})
	if len(merged) > maxResults {
		merged = merged[:maxResults]
	}
	return merged
}

func toExternalVideo(item *youtube.Video) models.ExternalVideo {
	v := models.ExternalVideo{YouTubeID: item.Id, Duration: "PT0S"}
	if s := item.Snippet; s != nil {
		v.Title = s.Title
		v.Description = s.Description
		v.Thumbnail = thumbnailURL(s.Thumbnails)
		v.PublishedAt = parsePublishedAt(s.PublishedAt)
		v.ChannelTitle = s.ChannelTitle
	}
	if cd := item.ContentDetails; cd != nil && cd.Duration != "" {
		v.Duration = cd.Duration
	}
	v.DurationSeconds = ParseDuration(v.Duration)
	if st := item.Statistics; st != nil {
		v.ViewCount = int64(st.ViewCount)
		v.LikeCount = int64(st.LikeCount)
	}
	return v
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	if t.Medium != nil && t.Medium.Url != "" {
		return t.Medium.Url
	}
	if t.Default != nil {
		return t.Default.Url
	}
	return ""
}

func parsePublishedAt(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

var bareVideoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// NormalizeVideoID accepts a bare video id or any YouTube URL form. Only URL-like
// input goes through the URL extractor; bare ids of any length are kept as given.
func NormalizeVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	invalid := &ValidationError{
		Message: "Invalid YouTube video ID",
		Fields:  map[string]string{"youtubeId": "must be a YouTube video id or URL"},
	}

	if strings.Contains(raw, "youtu") || strings.ContainsAny(raw, "/?&=") {
		id, err := yt.ExtractVideoID(raw)
		if err != nil || id == "" {
			return "", invalid
		}
		return id, nil
	}
	if !bareVideoIDRe.MatchString(raw) {
		return "", invalid
	}
	return raw, nil
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseDuration converts an ISO-8601 duration such as PT1H2M3S to seconds. Unparseable input is 0.
func ParseDuration(s string) int {
	m := isoDurationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	n := func(i int) int {
		v, _ := strconv.Atoi(m[i])
		return v
	}
	return n(1)*86400 + n(2)*3600 + n(3)*60 + n(4)
}

// FormatDuration renders seconds as h:mm:ss, or m:ss below an hour.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
