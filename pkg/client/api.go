package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"tubemark-backend/internal/models"
)

type (
	UpdateVideoRequest    = models.UpdateVideoRequest
	UpdatePlaylistRequest = models.UpdatePlaylistRequest
	UpdateNoteRequest     = models.UpdateNoteRequest
	UpdateTagRequest      = models.UpdateTagRequest
	UpdateProfileRequest  = models.UpdateProfileRequest
)

// ListOptions pages through a collection. Zero values use the server defaults.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.Page > 0 {
		v.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Search != "" {
		v.Set("search", o.Search)
	}
	return v
}

type VideoQuery struct {
	ListOptions
	Tags      []string
	Liked     *bool
	Pinned    *bool
	Watchlist *bool
	SortBy    string
	SortOrder string
}

func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

func setBool(v url.Values, key string, b *bool) {
	if b != nil {
		v.Set(key, strconv.FormatBool(*b))
	}
}

// ──── Auth ────

func (c *Client) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	return c.session(ctx, "/auth/register", map[string]string{"email": email, "password": password, "name": name})
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.session(ctx, "/auth/login", map[string]string{"email": email, "password": password})
}

// GoogleLogin signs in with an ID token obtained from Google.
func (c *Client) GoogleLogin(ctx context.Context, idToken string) (*AuthResult, error) {
	return c.session(ctx, "/auth/google", map[string]string{"idToken": idToken})
}

func (c *Client) session(ctx context.Context, path string, body interface{}) (*AuthResult, error) {
	var result AuthResult
	if _, err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	c.setTokens(result.TokenPair)
	return &result, nil
}

// Logout revokes the refresh token and forgets both tokens locally.
func (c *Client) Logout(ctx context.Context) error {
	body := map[string]string{"refreshToken": c.Tokens().RefreshToken}
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", body, nil)
	c.setTokens(TokenPair{})
	return err
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if _, err := c.do(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*User, error) {
	var u User
	if _, err := c.do(ctx, http.MethodPut, "/auth/profile", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ──── Videos ────

func (c *Client) ListVideos(ctx context.Context, q VideoQuery) ([]Video, *Pagination, error) {
	v := q.values()
	if len(q.Tags) > 0 {
		v.Set("tags", strings.Join(q.Tags, ","))
	}
	setBool(v, "liked", q.Liked)
	setBool(v, "pinned", q.Pinned)
	setBool(v, "watchlist", q.Watchlist)
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}
	if q.SortOrder != "" {
		v.Set("sortOrder", q.SortOrder)
	}

	var videos []Video
	p, err := c.do(ctx, http.MethodGet, withQuery("/videos", v), nil, &videos)
	return videos, p, err
}

func (c *Client) GetVideo(ctx context.Context, id uuid.UUID) (*Video, error) {
	return c.video(ctx, http.MethodGet, "/videos/"+id.String(), nil)
}

// SaveVideo accepts a bare id or a YouTube URL.
func (c *Client) SaveVideo(ctx context.Context, youtubeID string, tags []string) (*Video, error) {
	return c.video(ctx, http.MethodPost, "/videos", map[string]interface{}{"youtubeId": youtubeID, "tags": tags})
}

func (c *Client) UpdateVideo(ctx context.Context, id uuid.UUID, req UpdateVideoRequest) (*Video, error) {
	return c.video(ctx, http.MethodPut, "/videos/"+id.String(), req)
}

func (c *Client) DeleteVideo(ctx context.Context, id uuid.UUID) error {
	_, err := c.do(ctx, http.MethodDelete, "/videos/"+id.String(), nil, nil)
	return err
}

func (c *Client) ToggleLike(ctx context.Context, id uuid.UUID) (*Video, error) {
	return c.video(ctx, http.MethodPatch, "/videos/"+id.String()+"/like", nil)
}

func (c *Client) TogglePin(ctx context.Context, id uuid.UUID) (*Video, error) {
	return c.video(ctx, http.MethodPatch, "/videos/"+id.String()+"/pin", nil)
}

func (c *Client) ToggleWatchlist(ctx context.Context, id uuid.UUID) (*Video, error) {
	return c.video(ctx, http.MethodPatch, "/videos/"+id.String()+"/watchlist", nil)
}

func (c *Client) video(ctx context.Context, method, path string, body interface{}) (*Video, error) {
	var v Video
	if _, err := c.do(ctx, method, path, body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ──── Playlists ────

func (c *Client) ListPlaylists(ctx context.Context, opts ListOptions) ([]Playlist, *Pagination, error) {
	var playlists []Playlist
	p, err := c.do(ctx, http.MethodGet, withQuery("/playlists", opts.values()), nil, &playlists)
	return playlists, p, err
}

func (c *Client) GetPlaylist(ctx context.Context, id uuid.UUID) (*PlaylistDetail, error) {
	var p PlaylistDetail
	if _, err := c.do(ctx, http.MethodGet, "/playlists/"+id.String(), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreatePlaylist(ctx context.Context, name, description string) (*Playlist, error) {
	return c.playlist(ctx, http.MethodPost, "/playlists", map[string]string{"name": name, "description": description})
}

func (c *Client) UpdatePlaylist(ctx context.Context, id uuid.UUID, req UpdatePlaylistRequest) (*Playlist, error) {
	return c.playlist(ctx, http.MethodPut, "/playlists/"+id.String(), req)
}

func (c *Client) DeletePlaylist(ctx context.Context, id uuid.UUID) error {
	_, err := c.do(ctx, http.MethodDelete, "/playlists/"+id.String(), nil, nil)
	return err
}

func (c *Client) AddToPlaylist(ctx context.Context, playlistID, videoID uuid.UUID) (*Playlist, error) {
	return c.playlist(ctx, http.MethodPost, "/playlists/"+playlistID.String()+"/videos", map[string]uuid.UUID{"videoId": videoID})
}

func (c *Client) RemoveFromPlaylist(ctx context.Context, playlistID, videoID uuid.UUID) (*Playlist, error) {
	return c.playlist(ctx, http.MethodDelete, "/playlists/"+playlistID.String()+"/videos/"+videoID.String(), nil)
}

func (c *Client) playlist(ctx context.Context, method, path string, body interface{}) (*Playlist, error) {
	var p Playlist
	if _, err := c.do(ctx, method, path, body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ──── Notes ────

func (c *Client) ListNotes(ctx context.Context, videoID *uuid.UUID, opts ListOptions) ([]Note, *Pagination, error) {
	v := opts.values()
	if videoID != nil {
		v.Set("videoId", videoID.String())
	}
	var notes []Note
	p, err := c.do(ctx, http.MethodGet, withQuery("/notes", v), nil, &notes)
	return notes, p, err
}

// CreateNote attaches content to a saved video; timestamp is seconds into the video.
func (c *Client) CreateNote(ctx context.Context, videoID uuid.UUID, content string, timestamp *int) (*Note, error) {
	body := map[string]interface{}{"videoId": videoID, "content": content}
	if timestamp != nil {
		body["timestamp"] = *timestamp
	}
	return c.note(ctx, http.MethodPost, "/notes", body)
}

func (c *Client) UpdateNote(ctx context.Context, id uuid.UUID, req UpdateNoteRequest) (*Note, error) {
	return c.note(ctx, http.MethodPut, "/notes/"+id.String(), req)
}

func (c *Client) DeleteNote(ctx context.Context, id uuid.UUID) error {
	_, err := c.do(ctx, http.MethodDelete, "/notes/"+id.String(), nil, nil)
	return err
}

func (c *Client) note(ctx context.Context, method, path string, body interface{}) (*Note, error) {
	var n Note
	if _, err := c.do(ctx, method, path, body, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ──── History ────

func (c *Client) ListHistory(ctx context.Context, opts ListOptions) ([]HistoryEntry, *Pagination, error) {
	var entries []HistoryEntry
	p, err := c.do(ctx, http.MethodGet, withQuery("/history", opts.values()), nil, &entries)
	return entries, p, err
}

// RecordWatch logs a viewing session; duration and position are seconds.
func (c *Client) RecordWatch(ctx context.Context, videoID uuid.UUID, duration, position int) (*HistoryEntry, error) {
	var e HistoryEntry
	body := map[string]interface{}{"videoId": videoID, "duration": duration, "position": position}
	if _, err := c.do(ctx, http.MethodPost, "/history", body, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) WatchStats(ctx context.Context, period string) (*WatchStats, error) {
	var s WatchStats
	if _, err := c.do(ctx, http.MethodGet, withQuery("/history/stats", url.Values{"period": {period}}), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) ClearHistory(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/history", nil, nil)
	return err
}

// ──── Tags ────

func (c *Client) ListTags(ctx context.Context, opts ListOptions) ([]Tag, *Pagination, error) {
	var tags []Tag
	p, err := c.do(ctx, http.MethodGet, withQuery("/tags", opts.values()), nil, &tags)
	return tags, p, err
}

func (c *Client) CreateTag(ctx context.Context, name, color string) (*Tag, error) {
	return c.tag(ctx, http.MethodPost, "/tags", map[string]string{"name": name, "color": color})
}

func (c *Client) UpdateTag(ctx context.Context, id uuid.UUID, req UpdateTagRequest) (*Tag, error) {
	return c.tag(ctx, http.MethodPut, "/tags/"+id.String(), req)
}

func (c *Client) DeleteTag(ctx context.Context, id uuid.UUID) error {
	_, err := c.do(ctx, http.MethodDelete, "/tags/"+id.String(), nil, nil)
	return err
}

func (c *Client) tag(ctx context.Context, method, path string, body interface{}) (*Tag, error) {
	var t Tag
	if _, err := c.do(ctx, method, path, body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ──── YouTube and recommendations ────

func (c *Client) SearchYouTube(ctx context.Context, query string, maxResults int) ([]ExternalVideo, error) {
	v := url.Values{"q": {query}}
	if maxResults > 0 {
		v.Set("maxResults", strconv.Itoa(maxResults))
	}
	var videos []ExternalVideo
	_, err := c.do(ctx, http.MethodGet, withQuery("/youtube/search", v), nil, &videos)
	return videos, err
}

func (c *Client) Recommendations(ctx context.Context, tags []string, maxResults int) (*models.Recommendations, error) {
	v := url.Values{}
	if len(tags) > 0 {
		v.Set("tags", strings.Join(tags, ","))
	}
	if maxResults > 0 {
		v.Set("maxResults", strconv.Itoa(maxResults))
	}
	var recs models.Recommendations
	if _, err := c.do(ctx, http.MethodGet, withQuery("/recommendations", v), nil, &recs); err != nil {
		return nil, err
	}
	return &recs, nil
}

func (c *Client) SaveRecommendation(ctx context.Context, youtubeID string, tags []string) (*Video, error) {
	return c.video(ctx, http.MethodPost, "/recommendations/save", map[string]interface{}{"youtubeId": youtubeID, "tags": tags})
}
