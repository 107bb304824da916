package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"tubemark-backend/internal/logger"
	"tubemark-backend/internal/models"
	"tubemark-backend/internal/services"
)

type stubVideoService struct {
	gotFilter models.VideoFilter
	listTotal int
	saveErr   error
	flags     map[uuid.UUID]*models.VideoView
}

func newStubVideoService() *stubVideoService {
	return &stubVideoService{flags: map[uuid.UUID]*models.VideoView{}}
}

func (s *stubVideoService) List(_ context.Context, _ uuid.UUID, f models.VideoFilter) ([]*models.VideoView, int, error) {
	s.gotFilter = f
	return nil, s.listTotal, nil
}

func (s *stubVideoService) view(id uuid.UUID) (*models.VideoView, error) {
	v, ok := s.flags[id]
	if !ok {
		return nil, &services.NotFoundError{Message: "Video not found"}
	}
	return v, nil
}

func (s *stubVideoService) Get(_ context.Context, _, id uuid.UUID) (*models.VideoView, error) {
	return s.view(id)
}

func (s *stubVideoService) Save(_ context.Context, _ uuid.UUID, rawID string, tags []string) (*models.VideoView, error) {
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	return &models.VideoView{Video: models.Video{ID: uuid.New(), YouTubeID: rawID, Tags: tags}}, nil
}

func (s *stubVideoService) Update(_ context.Context, _, id uuid.UUID, _ models.UpdateVideoRequest) (*models.VideoView, error) {
	return s.view(id)
}

func (s *stubVideoService) Delete(_ context.Context, _, id uuid.UUID) error {
	_, err := s.view(id)
	return err
}

func (s *stubVideoService) ToggleLike(_ context.Context, _, id uuid.UUID) (*models.VideoView, error) {
	v, err := s.view(id)
	if err == nil {
		v.IsLiked = !v.IsLiked
	}
	return v, err
}

func (s *stubVideoService) TogglePin(_ context.Context, _, id uuid.UUID) (*models.VideoView, error) {
	v, err := s.view(id)
	if err == nil {
		v.IsPinned = !v.IsPinned
	}
	return v, err
}

func (s *stubVideoService) ToggleWatchlist(_ context.Context, _, id uuid.UUID) (*models.VideoView, error) {
	v, err := s.view(id)
	if err == nil {
		v.IsInWatchlist = !v.IsInWatchlist
	}
	return v, err
}

func TestVideoHandler_ListParsesFilters(t *testing.T) {
	svc := newStubVideoService()
	svc.listTotal = 45
	h := NewVideoHandler(testResponder(), svc)

	req := newRequest(t, http.MethodGet,
		"/api/videos?search=+go+&tags=music,%20jazz,,&pinned=true&sortBy=title&sortOrder=ASC&page=2&limit=20",
		nil, uuid.New(), nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	f := svc.gotFilter
	if f.Search != "go" {
		t.Errorf("expected trimmed search, got %q", f.Search)
	}
	if len(f.Tags) != 2 || f.Tags[0] != "music" || f.Tags[1] != "jazz" {
		t.Errorf("unexpected tags %v", f.Tags)
	}
	if f.Pinned == nil || !*f.Pinned {
		t.Errorf("expected pinned=true filter")
	}
	if f.Liked != nil || f.Watchlist != nil {
		t.Errorf("expected absent flags to stay nil")
	}
	if f.SortBy != "title" || f.SortOrder != "asc" {
		t.Errorf("unexpected sort %s %s", f.SortBy, f.SortOrder)
	}
	if f.Limit != 20 || f.Offset != 20 {
		t.Errorf("expected limit 20 offset 20, got %d %d", f.Limit, f.Offset)
	}

	env := decodeEnvelope(t, rr)
	if string(env.Data) != "[]" {
		t.Errorf("expected empty array data, got %s", string(env.Data))
	}
	if env.Pagination == nil || env.Pagination.Total != 45 || env.Pagination.Pages != 3 || env.Pagination.Page != 2 {
		t.Errorf("unexpected pagination %+v", env.Pagination)
	}
}

func TestVideoHandler_ListRejectsUnknownSort(t *testing.T) {
	h := NewVideoHandler(testResponder(), newStubVideoService())

	for _, query := range []string{"?sortBy=password", "?sortOrder=sideways"} {
		rr := httptest.NewRecorder()
		h.List(rr, newRequest(t, http.MethodGet, "/api/videos"+query, nil, uuid.New(), nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", query, rr.Code)
		}
	}
}

func TestVideoHandler_SaveConflictReturnsExisting(t *testing.T) {
	svc := newStubVideoService()
	existing := &models.VideoView{Video: models.Video{ID: uuid.New(), YouTubeID: "dQw4w9WgXcQ"}}
	svc.saveErr = &services.ConflictError{Message: "Video already saved", Existing: existing}
	h := NewVideoHandler(testResponder(), svc)

	rr := httptest.NewRecorder()
	h.Save(rr, newRequest(t, http.MethodPost, "/api/videos", map[string]string{"youtubeId": "dQw4w9WgXcQ"}, uuid.New(), nil))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	var got models.VideoView
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if got.ID != existing.ID {
		t.Errorf("expected existing video %s in data, got %s", existing.ID, got.ID)
	}
}

func TestVideoHandler_SaveCreated(t *testing.T) {
	h := NewVideoHandler(testResponder(), newStubVideoService())

	rr := httptest.NewRecorder()
	body := map[string]interface{}{"youtubeId": "https://youtu.be/dQw4w9WgXcQ", "tags": []string{"music"}}
	h.Save(rr, newRequest(t, http.MethodPost, "/api/videos", body, uuid.New(), nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if env := decodeEnvelope(t, rr); env.Message != "Video saved successfully" || !env.Success {
		t.Errorf("unexpected envelope %+v", env)
	}
}

// memVideoStore backs a real VideoService for end-to-end handler tests.
type memVideoStore struct {
	videos map[uuid.UUID]*models.Video
}

func (m *memVideoStore) Create(_ context.Context, v *models.Video) error {
	v.ID = uuid.New()
	cp := *v
	m.videos[v.ID] = &cp
	return nil
}

func (m *memVideoStore) GetByID(_ context.Context, ownerID, id uuid.UUID) (*models.Video, error) {
	v, ok := m.videos[id]
	if !ok || v.OwnerID != ownerID {
		return nil, pgx.ErrNoRows
	}
	cp := *v
	return &cp, nil
}

func (m *memVideoStore) GetByYouTubeID(_ context.Context, ownerID uuid.UUID, youtubeID string) (*models.Video, error) {
	for _, v := range m.videos {
		if v.OwnerID == ownerID && v.YouTubeID == youtubeID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memVideoStore) GetView(ctx context.Context, ownerID, id uuid.UUID) (*models.VideoView, error) {
	v, err := m.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return models.Merge(v, nil), nil
}

func (m *memVideoStore) List(context.Context, uuid.UUID, models.VideoFilter) ([]*models.VideoView, int, error) {
	return nil, 0, nil
}

func (m *memVideoStore) Update(context.Context, *models.Video) error { return nil }
func (m *memVideoStore) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (m *memVideoStore) GetOrCreate(_ context.Context, userID, videoID uuid.UUID) (*models.UserVideo, error) {
	return &models.UserVideo{UserID: userID, VideoID: videoID}, nil
}

func (m *memVideoStore) Save(context.Context, *models.UserVideo) error { return nil }

type echoMetadata struct{}

func (echoMetadata) GetVideo(_ context.Context, videoID string) (*models.ExternalVideo, error) {
	return &models.ExternalVideo{YouTubeID: videoID, Title: "Title " + videoID}, nil
}

func TestVideoHandler_SaveShortIDScenario(t *testing.T) {
	store := &memVideoStore{videos: map[uuid.UUID]*models.Video{}}
	svc := services.NewVideoService(store, store, echoMetadata{}, &countingQueue{}, logger.Discard())
	h := NewVideoHandler(testResponder(), svc)
	userA, userB := uuid.New(), uuid.New()

	save := func(user uuid.UUID) (*httptest.ResponseRecorder, models.VideoView) {
		rr := httptest.NewRecorder()
		h.Save(rr, newRequest(t, http.MethodPost, "/api/videos", map[string]string{"youtubeId": "V1"}, user, nil))
		var got models.VideoView
		if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &got); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		return rr, got
	}

	rr, first := save(userA)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if first.YouTubeID != "V1" {
		t.Errorf("expected youtubeId V1, got %q", first.YouTubeID)
	}

	rr, existing := save(userA)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on re-save, got %d", rr.Code)
	}
	if existing.ID != first.ID {
		t.Errorf("expected existing record %s, got %s", first.ID, existing.ID)
	}

	if rr, _ := save(userB); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 for another user, got %d", rr.Code)
	}
}

func TestVideoHandler_SaveRequiresYouTubeID(t *testing.T) {
	h := NewVideoHandler(testResponder(), newStubVideoService())

	rr := httptest.NewRecorder()
	h.Save(rr, newRequest(t, http.MethodPost, "/api/videos", map[string]string{}, uuid.New(), nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Fields["youtubeId"] == "" {
		t.Errorf("expected youtubeId field error, got %v", env.Fields)
	}
}

func TestVideoHandler_ToggleMessages(t *testing.T) {
	svc := newStubVideoService()
	id := uuid.New()
	svc.flags[id] = &models.VideoView{Video: models.Video{ID: id}}
	h := NewVideoHandler(testResponder(), svc)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{"like", h.ToggleLike, "Video liked successfully"},
		{"unlike", h.ToggleLike, "Video unliked successfully"},
		{"pin", h.TogglePin, "Video pinned successfully"},
		{"unpin", h.TogglePin, "Video unpinned successfully"},
		{"watchlist add", h.ToggleWatchlist, "Video added to watchlist successfully"},
		{"watchlist remove", h.ToggleWatchlist, "Video removed from watchlist successfully"},
	}

	for _, tc := range tests {
		rr := httptest.NewRecorder()
		tc.handler(rr, newRequest(t, http.MethodPatch, "/", nil, uuid.New(), map[string]string{"id": id.String()}))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.name, rr.Code)
		}
		if env := decodeEnvelope(t, rr); env.Message != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.want, env.Message)
		}
	}
}

func TestVideoHandler_MalformedOrUnknownIDIsNotFound(t *testing.T) {
	h := NewVideoHandler(testResponder(), newStubVideoService())

	for _, id := range []string{"not-a-uuid", uuid.NewString()} {
		rr := httptest.NewRecorder()
		h.Get(rr, newRequest(t, http.MethodGet, "/", nil, uuid.New(), map[string]string{"id": id}))
		if rr.Code != http.StatusNotFound {
			t.Errorf("id %q: expected 404, got %d", id, rr.Code)
		}
		if env := decodeEnvelope(t, rr); env.Error != "Video not found" {
			t.Errorf("id %q: unexpected error %q", id, env.Error)
		}
	}
}

// ownedVideos answers GetByID only for ids registered to the owner.
type ownedVideos map[uuid.UUID]uuid.UUID

func (o ownedVideos) GetByID(_ context.Context, ownerID, id uuid.UUID) (*models.Video, error) {
	if owner, ok := o[id]; ok && owner == ownerID {
		return &models.Video{ID: id, OwnerID: ownerID}, nil
	}
	return nil, pgx.ErrNoRows
}

type memPlaylists struct {
	items map[uuid.UUID]*models.Playlist
}

func newMemPlaylists() *memPlaylists {
	return &memPlaylists{items: map[uuid.UUID]*models.Playlist{}}
}

func (m *memPlaylists) Create(_ context.Context, p *models.Playlist) error {
	p.ID = uuid.New()
	p.VideoIDs = []uuid.UUID{}
	m.items[p.ID] = p
	return nil
}

func (m *memPlaylists) GetByID(_ context.Context, ownerID, id uuid.UUID) (*models.Playlist, error) {
	p, ok := m.items[id]
	if !ok || p.OwnerID != ownerID {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	cp.VideoIDs = append([]uuid.UUID{}, p.VideoIDs...)
	cp.VideoCount = len(cp.VideoIDs)
	return &cp, nil
}

func (m *memPlaylists) List(context.Context, uuid.UUID, string, int, int) ([]*models.Playlist, int, error) {
	return nil, 0, nil
}

func (m *memPlaylists) Update(_ context.Context, p *models.Playlist) error {
	m.items[p.ID] = p
	return nil
}

func (m *memPlaylists) Delete(_ context.Context, ownerID, id uuid.UUID) error {
	if _, err := m.GetByID(context.Background(), ownerID, id); err != nil {
		return err
	}
	delete(m.items, id)
	return nil
}

func (m *memPlaylists) AddVideo(_ context.Context, playlistID, videoID uuid.UUID) (bool, error) {
	p := m.items[playlistID]
	for _, id := range p.VideoIDs {
		if id == videoID {
			return false, nil
		}
	}
	p.VideoIDs = append(p.VideoIDs, videoID)
	return true, nil
}

func (m *memPlaylists) RemoveVideo(_ context.Context, playlistID, videoID uuid.UUID) (bool, error) {
	p := m.items[playlistID]
	for i, id := range p.VideoIDs {
		if id == videoID {
			p.VideoIDs = append(p.VideoIDs[:i], p.VideoIDs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memPlaylists) ListVideos(context.Context, uuid.UUID, uuid.UUID) ([]*models.VideoView, error) {
	return []*models.VideoView{}, nil
}

func TestPlaylistHandler_AddVideoIsIdempotent(t *testing.T) {
	userID, videoID := uuid.New(), uuid.New()
	store := newMemPlaylists()
	p := &models.Playlist{OwnerID: userID, Name: "Focus"}
	store.Create(context.Background(), p)
	h := NewPlaylistHandler(testResponder(), store, ownedVideos{videoID: userID})

	params := map[string]string{"id": p.ID.String()}
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.AddVideo(rr, newRequest(t, http.MethodPost, "/", map[string]string{"videoId": videoID.String()}, userID, params))
		if rr.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d: %s", i, rr.Code, rr.Body.String())
		}
		env := decodeEnvelope(t, rr)
		var got models.Playlist
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("decode playlist: %v", err)
		}
		if got.VideoCount != 1 {
			t.Errorf("attempt %d: expected 1 video, got %d", i, got.VideoCount)
		}
	}
}

func TestPlaylistHandler_AddVideoRejectsForeignVideo(t *testing.T) {
	userID, otherUser, videoID := uuid.New(), uuid.New(), uuid.New()
	store := newMemPlaylists()
	p := &models.Playlist{OwnerID: userID, Name: "Focus"}
	store.Create(context.Background(), p)
	h := NewPlaylistHandler(testResponder(), store, ownedVideos{videoID: otherUser})

	rr := httptest.NewRecorder()
	h.AddVideo(rr, newRequest(t, http.MethodPost, "/", map[string]string{"videoId": videoID.String()},
		userID, map[string]string{"id": p.ID.String()}))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Error != "Video not found" {
		t.Errorf("unexpected error %q", env.Error)
	}
}

func TestPlaylistHandler_OtherOwnerSeesNotFound(t *testing.T) {
	store := newMemPlaylists()
	p := &models.Playlist{OwnerID: uuid.New(), Name: "Private"}
	store.Create(context.Background(), p)
	h := NewPlaylistHandler(testResponder(), store, ownedVideos{})

	rr := httptest.NewRecorder()
	h.Get(rr, newRequest(t, http.MethodGet, "/", nil, uuid.New(), map[string]string{"id": p.ID.String()}))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Error != "Playlist not found" {
		t.Errorf("unexpected error %q", env.Error)
	}
}

func TestPlaylistHandler_CreateRejectsBlankName(t *testing.T) {
	h := NewPlaylistHandler(testResponder(), newMemPlaylists(), ownedVideos{})

	rr := httptest.NewRecorder()
	h.Create(rr, newRequest(t, http.MethodPost, "/", map[string]string{"name": "   "}, uuid.New(), nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Error != "Playlist name is required" {
		t.Errorf("unexpected error %q", env.Error)
	}
}

type memNotes struct {
	items map[uuid.UUID]*models.Note
}

func (m *memNotes) Create(_ context.Context, n *models.Note) error {
	n.ID = uuid.New()
	m.items[n.ID] = n
	return nil
}

func (m *memNotes) GetByID(_ context.Context, ownerID, id uuid.UUID) (*models.Note, error) {
	n, ok := m.items[id]
	if !ok || n.OwnerID != ownerID {
		return nil, pgx.ErrNoRows
	}
	cp := *n
	cp.Video = &models.VideoSummary{ID: n.VideoID, Title: "Lecture"}
	return &cp, nil
}

func (m *memNotes) List(context.Context, uuid.UUID, models.NoteFilter) ([]*models.Note, int, error) {
	return nil, 0, nil
}

func (m *memNotes) Update(_ context.Context, n *models.Note) error {
	m.items[n.ID] = n
	return nil
}

func (m *memNotes) Delete(_ context.Context, ownerID, id uuid.UUID) error {
	if n, ok := m.items[id]; !ok || n.OwnerID != ownerID {
		return pgx.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func TestNoteHandler_Create(t *testing.T) {
	userID, videoID := uuid.New(), uuid.New()
	notes := &memNotes{items: map[uuid.UUID]*models.Note{}}
	h := NewNoteHandler(testResponder(), notes, ownedVideos{videoID: userID})

	body := map[string]interface{}{"videoId": videoID, "content": "  key point  ", "timestamp": 95}
	rr := httptest.NewRecorder()
	h.Create(rr, newRequest(t, http.MethodPost, "/api/notes", body, userID, nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	env := decodeEnvelope(t, rr)
	var got models.Note
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode note: %v", err)
	}
	if got.Content != "key point" {
		t.Errorf("expected trimmed content, got %q", got.Content)
	}
	if got.Timestamp == nil || *got.Timestamp != 95 {
		t.Errorf("expected timestamp 95, got %v", got.Timestamp)
	}
	if got.Video == nil || got.Video.Title != "Lecture" {
		t.Errorf("expected embedded video summary, got %+v", got.Video)
	}
}

func TestNoteHandler_CreateForUnownedVideo(t *testing.T) {
	notes := &memNotes{items: map[uuid.UUID]*models.Note{}}
	videoID := uuid.New()
	h := NewNoteHandler(testResponder(), notes, ownedVideos{videoID: uuid.New()})

	rr := httptest.NewRecorder()
	h.Create(rr, newRequest(t, http.MethodPost, "/api/notes",
		map[string]interface{}{"videoId": videoID, "content": "x"}, uuid.New(), nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if len(notes.items) != 0 {
		t.Errorf("expected no note to be stored")
	}
}

func TestNoteHandler_UpdateRejectsBlankContent(t *testing.T) {
	userID := uuid.New()
	n := &models.Note{ID: uuid.New(), OwnerID: userID, Content: "original"}
	notes := &memNotes{items: map[uuid.UUID]*models.Note{n.ID: n}}
	h := NewNoteHandler(testResponder(), notes, ownedVideos{})

	rr := httptest.NewRecorder()
	h.Update(rr, newRequest(t, http.MethodPut, "/", map[string]string{"content": "  "}, userID,
		map[string]string{"id": n.ID.String()}))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if notes.items[n.ID].Content != "original" {
		t.Errorf("expected content to be unchanged")
	}
}
