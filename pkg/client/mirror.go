package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tubemark-backend/internal/models"
)

const (
	ResourceVideos    = models.ResourceVideos
	ResourcePlaylists = models.ResourcePlaylists
	ResourceNotes     = models.ResourceNotes
	ResourceHistory   = models.ResourceHistory
	ResourceTags      = models.ResourceTags
)

// fetchPageSize is the largest page the server hands out.
const fetchPageSize = 100

// Mirror keeps one Store per resource. Mutations go to the server first and
// the affected stores are then refetched; nothing is patched locally.
type Mirror struct {
	api    *Client
	logger *slog.Logger

	Videos    *Store[Video]
	Playlists *Store[Playlist]
	Notes     *Store[Note]
	History   *Store[HistoryEntry]
	Tags      *Store[Tag]

	persistPath string
	persistMu   sync.Mutex
}

type MirrorOption func(*Mirror)

// WithPersistence writes a JSON snapshot to path after every refresh. Load reads it back.
func WithPersistence(path string) MirrorOption {
	return func(m *Mirror) { m.persistPath = path }
}

func WithLogger(logger *slog.Logger) MirrorOption {
	return func(m *Mirror) { m.logger = logger }
}

func NewMirror(api *Client, opts ...MirrorOption) *Mirror {
	m := &Mirror{api: api, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(m)
	}

	m.Videos = newStore(ResourceVideos, func(ctx context.Context) ([]Video, error) {
		return fetchAll(ctx, func(ctx context.Context, page int) ([]Video, *Pagination, error) {
			return api.ListVideos(ctx, VideoQuery{ListOptions: ListOptions{Page: page, Limit: fetchPageSize}})
		})
	})
	m.Playlists = newStore(ResourcePlaylists, func(ctx context.Context) ([]Playlist, error) {
		return fetchAll(ctx, func(ctx context.Context, page int) ([]Playlist, *Pagination, error) {
			return api.ListPlaylists(ctx, ListOptions{Page: page, Limit: fetchPageSize})
		})
	})
	m.Notes = newStore(ResourceNotes, func(ctx context.Context) ([]Note, error) {
		return fetchAll(ctx, func(ctx context.Context, page int) ([]Note, *Pagination, error) {
			return api.ListNotes(ctx, nil, ListOptions{Page: page, Limit: fetchPageSize})
		})
	})
	m.History = newStore(ResourceHistory, func(ctx context.Context) ([]HistoryEntry, error) {
		return fetchAll(ctx, func(ctx context.Context, page int) ([]HistoryEntry, *Pagination, error) {
			return api.ListHistory(ctx, ListOptions{Page: page, Limit: fetchPageSize})
		})
	})
	m.Tags = newStore(ResourceTags, func(ctx context.Context) ([]Tag, error) {
		return fetchAll(ctx, func(ctx context.Context, page int) ([]Tag, *Pagination, error) {
			return api.ListTags(ctx, ListOptions{Page: page, Limit: fetchPageSize})
		})
	})

	if m.persistPath != "" {
		persist := func() {
			if err := m.persist(); err != nil {
				m.logger.Warn("failed to persist mirror snapshot", "path", m.persistPath, "error", err)
			}
		}
		m.Videos.onRefresh = persist
		m.Playlists.onRefresh = persist
		m.Notes.onRefresh = persist
		m.History.onRefresh = persist
		m.Tags.onRefresh = persist
	}
	return m
}

// fetchAll walks every page of a collection.
func fetchAll[T any](ctx context.Context, list func(ctx context.Context, page int) ([]T, *Pagination, error)) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		items, p, err := list(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if p == nil || page >= p.Pages || len(items) == 0 {
			return all, nil
		}
	}
}

// Invalidate marks a resource stale. Unknown resources are ignored.
func (m *Mirror) Invalidate(resource string) {
	switch resource {
	case ResourceVideos:
		m.Videos.Invalidate()
	case ResourcePlaylists:
		m.Playlists.Invalidate()
	case ResourceNotes:
		m.Notes.Invalidate()
	case ResourceHistory:
		m.History.Invalidate()
	case ResourceTags:
		m.Tags.Invalidate()
	}
}

// Refresh refetches the named resources, or all of them when none are given.
func (m *Mirror) Refresh(ctx context.Context, resources ...string) error {
	if len(resources) == 0 {
		resources = []string{ResourceVideos, ResourcePlaylists, ResourceNotes, ResourceHistory, ResourceTags}
	}

	var errs []error
	for _, resource := range resources {
		m.Invalidate(resource)
		var err error
		switch resource {
		case ResourceVideos:
			_, err = m.Videos.Refresh(ctx)
		case ResourcePlaylists:
			_, err = m.Playlists.Refresh(ctx)
		case ResourceNotes:
			_, err = m.Notes.Refresh(ctx)
		case ResourceHistory:
			_, err = m.History.Refresh(ctx)
		case ResourceTags:
			_, err = m.Tags.Refresh(ctx)
		default:
			err = fmt.Errorf("unknown resource %q", resource)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("refresh %s: %w", resource, err))
		}
	}
	return errors.Join(errs...)
}

// settle refetches after a successful mutation. A failed refetch leaves the
// store invalidated for the next Get and is only logged.
func (m *Mirror) settle(ctx context.Context, resources ...string) {
	if err := m.Refresh(ctx, resources...); err != nil {
		m.logger.Warn("mirror refetch after mutation failed", "resources", resources, "error", err)
	}
}

// ──── Mutations ────

// SaveVideo refetches videos. The server recounts tag usage in the background, so
// the tags store is only invalidated here; Watch invalidates it again once the
// recount lands.
func (m *Mirror) SaveVideo(ctx context.Context, youtubeID string, tags []string) (*Video, error) {
	v, err := m.api.SaveVideo(ctx, youtubeID, tags)
	if err != nil {
		return nil, err
	}
	m.settle(ctx, ResourceVideos)
	m.Tags.Invalidate()
	return v, nil
}

// UpdateVideo follows the same tag rules as SaveVideo.
func (m *Mirror) UpdateVideo(ctx context.Context, id uuid.UUID, req UpdateVideoRequest) (*Video, error) {
	v, err := m.api.UpdateVideo(ctx, id, req)
	if err != nil {
		return nil, err
	}
	m.settle(ctx, ResourceVideos)
	m.Tags.Invalidate()
	return v, nil
}

// DeleteVideo also refetches everything that cascades from a video.
func (m *Mirror) DeleteVideo(ctx context.Context, id uuid.UUID) error {
	if err := m.api.DeleteVideo(ctx, id); err != nil {
		return err
	}
	m.settle(ctx)
	return nil
}

func (m *Mirror) ToggleLike(ctx context.Context, id uuid.UUID) (*Video, error) {
	return m.toggle(ctx, id, m.api.ToggleLike)
}

func (m *Mirror) TogglePin(ctx context.Context, id uuid.UUID) (*Video, error) {
	return m.toggle(ctx, id, m.api.TogglePin)
}

func (m *Mirror) ToggleWatchlist(ctx context.Context, id uuid.UUID) (*Video, error) {
	return m.toggle(ctx, id, m.api.ToggleWatchlist)
}

func (m *Mirror) toggle(ctx context.Context, id uuid.UUID, fn func(context.Context, uuid.UUID) (*Video, error)) (*Video, error) {
	v, err := fn(ctx, id)
	if err != nil {
		return nil, err
	}
	m.settle(ctx, ResourceVideos)
	return v, nil
}

func (m *Mirror) CreatePlaylist(ctx context.Context, name, description string) (*Playlist, error) {
	return m.playlistChange(ctx, func() (*Playlist, error) { return m.api.CreatePlaylist(ctx, name, description) })
}

func (m *Mirror) UpdatePlaylist(ctx context.Context, id uuid.UUID, req UpdatePlaylistRequest) (*Playlist, error) {
	return m.playlistChange(ctx, func() (*Playlist, error) { return m.api.UpdatePlaylist(ctx, id, req) })
}

func (m *Mirror) DeletePlaylist(ctx context.Context, id uuid.UUID) error {
	_, err := m.playlistChange(ctx, func() (*Playlist, error) { return nil, m.api.DeletePlaylist(ctx, id) })
	return err
}

func (m *Mirror) AddToPlaylist(ctx context.Context, playlistID, videoID uuid.UUID) (*Playlist, error) {
	return m.playlistChange(ctx, func() (*Playlist, error) { return m.api.AddToPlaylist(ctx, playlistID, videoID) })
}

func (m *Mirror) RemoveFromPlaylist(ctx context.Context, playlistID, videoID uuid.UUID) (*Playlist, error) {
	return m.playlistChange(ctx, func() (*Playlist, error) { return m.api.RemoveFromPlaylist(ctx, playlistID, videoID) })
}

func (m *Mirror) playlistChange(ctx context.Context, fn func() (*Playlist, error)) (*Playlist, error) {
	p, err := fn()
	if err != nil {
		return nil, err
	}
	m.settle(ctx, ResourcePlaylists)
	return p, nil
}

func (m *Mirror) CreateNote(ctx context.Context, videoID uuid.UUID, content string, timestamp *int) (*Note, error) {
	n, err := m.api.CreateNote(ctx, videoID, content, timestamp)
	if err != nil {
		return nil, err
	}
	m.settle(ctx, ResourceNotes)
	return n, nil
}

func (m *Mirror) UpdateNote(ctx context.Context, id uuid.UUID, req UpdateNoteRequest) (*Note, error) {
	n, err := m.api.UpdateNote(ctx, id, req)
	if err != nil {
		return nil, err
	}
	m.settle(ctx, ResourceNotes)
	return n, nil
}

func (m *Mirror) DeleteNote(ctx context.Context, id uuid.UUID) error {
	if err := m.api.DeleteNote(ctx, id); err != nil {
		return err
	}
	m.settle(ctx, ResourceNotes)
	return nil
}

// RecordWatch also refetches videos, whose watch counts change.
func (m *Mirror) RecordWatch(ctx context.Context, videoID uuid.UUID, duration, position int) (*HistoryEntry, error) {
	e, err := m.api.RecordWatch(ctx, videoID, duration, position)
	if err != nil {
		return nil, err
	}
	m.settle(ctx, ResourceHistory, ResourceVideos)
	return e, nil
}

func (m *Mirror) ClearHistory(ctx context.Context) error {
	if err := m.api.ClearHistory(ctx); err != nil {
		return err
	}
	m.settle(ctx, ResourceHistory)
	return nil
}

func (m *Mirror) CreateTag(ctx context.Context, name, color string) (*Tag, error) {
	t, err := m.api.CreateTag(ctx, name, color)
	if err != nil {
		return nil, err
	}
	m.settle(ctx, ResourceTags)
	return t, nil
}

func (m *Mirror) UpdateTag(ctx context.Context, id uuid.UUID, req UpdateTagRequest) (*Tag, error) {
	t, err := m.api.UpdateTag(ctx, id, req)
	if err != nil {
		return nil, err
	}
	m.settle(ctx, ResourceTags)
	return t, nil
}

func (m *Mirror) DeleteTag(ctx context.Context, id uuid.UUID) error {
	if err := m.api.DeleteTag(ctx, id); err != nil {
		return err
	}
	m.settle(ctx, ResourceTags)
	return nil
}

// ──── Persistence ────

type snapshot struct {
	SavedAt   time.Time      `json:"savedAt"`
	Videos    []Video        `json:"videos"`
	Playlists []Playlist     `json:"playlists"`
	Notes     []Note         `json:"notes"`
	History   []HistoryEntry `json:"history"`
	Tags      []Tag          `json:"tags"`
}

// persist writes the loaded stores; unloaded ones are null. The file is replaced by rename.
func (m *Mirror) persist() error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	snap := snapshot{SavedAt: time.Now().UTC()}
	if m.Videos.Loaded() {
		snap.Videos = m.Videos.Items()
	}
	if m.Playlists.Loaded() {
		snap.Playlists = m.Playlists.Items()
	}
	if m.Notes.Loaded() {
		snap.Notes = m.Notes.Items()
	}
	if m.History.Loaded() {
		snap.History = m.History.Items()
	}
	if m.Tags.Loaded() {
		snap.Tags = m.Tags.Items()
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.persistPath), ".mirror-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), m.persistPath)
}

// Load seeds the stores from the persisted snapshot. A missing file is not an error.
func (m *Mirror) Load() error {
	if m.persistPath == "" {
		return nil
	}
	data, err := os.ReadFile(m.persistPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read mirror snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode mirror snapshot: %w", err)
	}

	if snap.Videos != nil {
		m.Videos.set(snap.Videos, snap.SavedAt)
	}
	if snap.Playlists != nil {
		m.Playlists.set(snap.Playlists, snap.SavedAt)
	}
	if snap.Notes != nil {
		m.Notes.set(snap.Notes, snap.SavedAt)
	}
	if snap.History != nil {
		m.History.set(snap.History, snap.SavedAt)
	}
	if snap.Tags != nil {
		m.Tags.set(snap.Tags, snap.SavedAt)
	}
	return nil
}

// ──── Live invalidation ────

// Watch listens on the server's live channel and invalidates stores as events
// arrive. It returns when ctx is done or the connection drops.
func (m *Mirror) Watch(ctx context.Context) error {
	wsURL, err := m.liveURL()
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return &APIError{Status: resp.StatusCode, Message: "Unauthorized"}
		}
		return fmt.Errorf("dial live channel: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read live channel: %w", err)
		}
		if event.Type == models.EventInvalidate {
			m.logger.Debug("live invalidation", "resource", event.Resource, "method", event.Method, "path", event.Path)
			m.Invalidate(event.Resource)
		}
	}
}

func (m *Mirror) liveURL() (string, error) {
	u, err := url.Parse(m.api.baseURL + "/api/ws")
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"token": {m.api.Tokens().Token}}.Encode()
	return u.String(), nil
}
