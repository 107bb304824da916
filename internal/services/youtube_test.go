package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"tubemark-backend/internal/logger"
	"tubemark-backend/internal/models"
)

type fakeYouTubeVideo struct {
	title    string
	duration string
	views    int
}

// fakeYouTubeAPI serves the subset of the Data API the gateway calls.
type fakeYouTubeAPI struct {
	mu       sync.Mutex
	searches map[string][]string
	videos   map[string]fakeYouTubeVideo
	failing  map[string]bool
	queries  []string
}

func (f *fakeYouTubeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/search"):
		query := q.Get("q")
		f.mu.Lock()
		f.queries = append(f.queries, query)
		f.mu.Unlock()

		if f.failing[query] {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"code":500,"message":"backend error"}}`))
			return
		}
		max, _ := strconv.Atoi(q.Get("maxResults"))
		ids := f.searches[query]
		if max > 0 && len(ids) > max {
			ids = ids[:max]
		}
		items := make([]map[string]interface{}, 0, len(ids))
		for _, id := range ids {
			items = append(items, map[string]interface{}{
				"id":      map[string]string{"kind": "youtube#video", "videoId": id},
				"snippet": map[string]string{"title": f.videos[id].title},
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"items": items})

	case strings.HasSuffix(r.URL.Path, "/videos"):
		var ids []string
		for _, raw := range q["id"] {
			ids = append(ids, strings.Split(raw, ",")...)
		}
		items := make([]map[string]interface{}, 0, len(ids))
		for _, id := range ids {
			v, ok := f.videos[id]
			if !ok {
				continue
			}
			items = append(items, map[string]interface{}{
				"id": id,
				"snippet": map[string]interface{}{
					"title":        v.title,
					"channelTitle": "Channel " + id,
					"publishedAt":  "2024-01-02T03:04:05Z",
					"thumbnails": map[string]interface{}{
						"default": map[string]string{"url": "https://i.ytimg.com/" + id + "/default.jpg"},
						"medium":  map[string]string{"url": "https://i.ytimg.com/" + id + "/mqdefault.jpg"},
					},
				},
				"contentDetails": map[string]string{"duration": v.duration},
				"statistics":     map[string]string{"viewCount": strconv.Itoa(v.views), "likeCount": "7"},
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"items": items})

	default:
		http.NotFound(w, r)
	}
}

func newFakeGateway(t *testing.T, api *fakeYouTubeAPI) *YouTubeGateway {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	g, err := NewYouTubeGateway(context.Background(), "test-key", logger.Discard(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return g
}

func sampleAPI() *fakeYouTubeAPI {
	return &fakeYouTubeAPI{
		searches: map[string][]string{
			"go":   {"aaaaaaaaaaa", "bbbbbbbbbbb"},
			"rust": {"bbbbbbbbbbb", "ccccccccccc"},
			"jazz": {"ddddddddddd"},
		},
		videos: map[string]fakeYouTubeVideo{
			"aaaaaaaaaaa": {title: "A", duration: "PT1H2M3S", views: 10},
			"bbbbbbbbbbb": {title: "B", duration: "PT45S", views: 50},
			"ccccccccccc": {title: "C", duration: "PT4M", views: 30},
			"ddddddddddd": {title: "D", duration: "PT0S", views: 99},
		},
		failing: map[string]bool{"broken": true},
	}
}

func TestYouTubeGateway_Search(t *testing.T) {
	g := newFakeGateway(t, sampleAPI())

	videos, err := g.Search(context.Background(), "go", 25)
	require.NoError(t, err)
	require.Len(t, videos, 2)

	a := videos[0]
	assert.Equal(t, "aaaaaaaaaaa", a.YouTubeID)
	assert.Equal(t, "A", a.Title)
	assert.Equal(t, "PT1H2M3S", a.Duration)
	assert.Equal(t, 3723, a.DurationSeconds)
	assert.Equal(t, "https://i.ytimg.com/aaaaaaaaaaa/mqdefault.jpg", a.Thumbnail)
	assert.EqualValues(t, 10, a.ViewCount)
	assert.EqualValues(t, 7, a.LikeCount)
	require.NotNil(t, a.PublishedAt)
	assert.Equal(t, 2024, a.PublishedAt.Year())
}

func TestYouTubeGateway_SearchUpstreamFailure(t *testing.T) {
	g := newFakeGateway(t, sampleAPI())

	_, err := g.Search(context.Background(), "broken", 5)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, UpstreamRequestFailed, upstream.Kind)
}

func TestYouTubeGateway_GetVideo(t *testing.T) {
	g := newFakeGateway(t, sampleAPI())

	v, err := g.GetVideo(context.Background(), "https://www.youtube.com/watch?v=ccccccccccc")
	require.NoError(t, err)
	assert.Equal(t, "C", v.Title)
	assert.Equal(t, 240, v.DurationSeconds)

	_, err = g.GetVideo(context.Background(), "zzzzzzzzzzz")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = g.GetVideo(context.Background(), "V1")
	assert.ErrorAs(t, err, &nf, "short ids reach the API")

	_, err = g.GetVideo(context.Background(), "bad id!")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestYouTubeGateway_SearchByTags(t *testing.T) {
	api := sampleAPI()
	g := newFakeGateway(t, api)

	videos, err := g.SearchByTags(context.Background(), []string{"go", "rust", "broken"}, 4)
	require.NoError(t, err)

	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.YouTubeID)
	}
	assert.Equal(t, []string{"bbbbbbbbbbb", "ccccccccccc", "aaaaaaaaaaa"}, ids)
	assert.ElementsMatch(t, []string{"go", "rust", "broken"}, api.queries)
}

func TestYouTubeGateway_SearchByTagsTruncates(t *testing.T) {
	g := newFakeGateway(t, sampleAPI())

	videos, err := g.SearchByTags(context.Background(), []string{"go", "rust", "jazz"}, 2)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "ddddddddddd", videos[0].YouTubeID)
	assert.Equal(t, "bbbbbbbbbbb", videos[1].YouTubeID)
}

func TestYouTubeGateway_WithoutKey(t *testing.T) {
	g, err := NewYouTubeGateway(context.Background(), "", logger.Discard())
	require.NoError(t, err)
	assert.False(t, g.Configured())

	_, err = g.Search(context.Background(), "go", 10)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, UpstreamUnavailable, upstream.Kind)

	videos, err := g.SearchByTags(context.Background(), []string{"go"}, 10)
	require.NoError(t, err)
	assert.Empty(t, videos)

	videos, err = g.SearchByTags(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestMergeTagResults_FirstOccurrenceWins(t *testing.T) {
	results := [][]models.ExternalVideo{
		{{YouTubeID: "x", Title: "from first tag", ViewCount: 5}},
		{{YouTubeID: "x", Title: "from second tag", ViewCount: 500}, {YouTubeID: "y", ViewCount: 5}},
	}

	merged := mergeTagResults(results, 10)
	require.Len(t, merged, 2)
	assert.Equal(t, "from first tag", merged[0].Title)
	assert.Equal(t, "y", merged[1].YouTubeID)
}

func TestParseDuration(t *testing.T) {
	tests := map[string]int{
		"PT1H2M3S": 3723,
		"PT45S":    45,
		"PT4M":     240,
		"PT2H":     7200,
		"PT":       0,
		"P1DT1S":   86401,
		"PT0S":     0,
		"":         0,
		"garbage":  0,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseDuration(in), in)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1:02:03", FormatDuration(3723))
	assert.Equal(t, "0:45", FormatDuration(45))
	assert.Equal(t, "10:00", FormatDuration(600))
	assert.Equal(t, "0:00", FormatDuration(-3))
}

func TestNormalizeVideoID(t *testing.T) {
	for _, raw := range []string{
		"dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
		"  dQw4w9WgXcQ ",
	} {
		id, err := NormalizeVideoID(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, "dQw4w9WgXcQ", id, raw)
	}

	for _, raw := range []string{"V1", "short", " abc_-9 "} {
		id, err := NormalizeVideoID(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, strings.TrimSpace(raw), id)
	}

	for _, raw := range []string{"", "   ", "has space", "bad!id", "https://example.com/nothing"} {
		_, err := NormalizeVideoID(raw)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, raw)
	}
}
