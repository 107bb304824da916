package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tubemark-backend/internal/models"
)

// fakeAPI is an in-memory stand-in for the server that speaks the same envelope.
type fakeAPI struct {
	mu           sync.Mutex
	token        string
	refreshToken string
	rotations    int
	refreshCalls int
	listCalls    map[string]int
	videos       []models.VideoView
	events       []models.Event
	srv          *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{token: "t0", refreshToken: "r0", listCalls: map[string]int{}}

	r := chi.NewRouter()
	r.Post("/api/auth/login", f.login)
	r.Post("/api/auth/refresh", f.refresh)
	r.Get("/api/ws", f.ws)
	r.Group(func(r chi.Router) {
		r.Use(f.auth)
		r.Get("/api/videos", f.listVideos)
		r.Post("/api/videos", f.saveVideo)
		r.Delete("/api/videos/{id}", f.deleteVideo)
		r.Patch("/api/videos/{id}/like", f.likeVideo)
		for _, resource := range []string{"playlists", "notes", "history", "tags"} {
			resource := resource
			r.Get("/api/"+resource, func(w http.ResponseWriter, r *http.Request) {
				f.mu.Lock()
				f.listCalls[resource]++
				f.mu.Unlock()
				writeEnvelope(w, http.StatusOK, models.Response{Success: true, Data: []struct{}{}, Pagination: models.NewPagination(1, 100, 0)})
			})
		}
	})
	r.Get("/api/boom", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func writeEnvelope(w http.ResponseWriter, status int, resp models.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (f *fakeAPI) calls(resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls[resource]
}

func (f *fakeAPI) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func (f *fakeAPI) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		ok := r.Header.Get("Authorization") == "Bearer "+f.token
		f.mu.Unlock()
		if !ok {
			writeEnvelope(w, http.StatusUnauthorized, models.Response{Error: "Token has expired"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *fakeAPI) issue() models.TokenPair {
	f.rotations++
	f.token = fmt.Sprintf("t%d", f.rotations)
	f.refreshToken = fmt.Sprintf("r%d", f.rotations)
	return models.TokenPair{Token: f.token, RefreshToken: f.refreshToken}
}

func (f *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	json.NewDecoder(r.Body).Decode(&body)
	if body["password"] != "password123" {
		writeEnvelope(w, http.StatusUnauthorized, models.Response{Error: "Invalid email or password"})
		return
	}

	f.mu.Lock()
	pair := f.issue()
	f.mu.Unlock()
	writeEnvelope(w, http.StatusOK, models.Response{Success: true, Data: models.AuthResult{
		User:      &models.User{ID: uuid.New(), Email: body["email"]},
		TokenPair: pair,
	}})
}

func (f *fakeAPI) refresh(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if body["refreshToken"] != f.refreshToken {
		writeEnvelope(w, http.StatusUnauthorized, models.Response{Error: "Invalid refresh token"})
		return
	}
	writeEnvelope(w, http.StatusOK, models.Response{Success: true, Data: f.issue()})
}

func (f *fakeAPI) listVideos(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	f.mu.Lock()
	f.listCalls["videos"]++
	total := len(f.videos)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	items := append([]models.VideoView{}, f.videos[start:end]...)
	f.mu.Unlock()

	writeEnvelope(w, http.StatusOK, models.Response{Success: true, Data: items, Pagination: models.NewPagination(page, limit, total)})
}

func (f *fakeAPI) saveVideo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		YouTubeID string   `json:"youtubeId"`
		Tags      []string `json:"tags"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	if body.YouTubeID == "" {
		writeEnvelope(w, http.StatusBadRequest, models.Response{Error: "Validation failed", Fields: map[string]string{"youtubeId": "is required"}})
		return
	}

	v := models.VideoView{Video: models.Video{
		ID:        uuid.New(),
		YouTubeID: body.YouTubeID,
		Title:     "Server title for " + body.YouTubeID,
		Tags:      body.Tags,
		AddedAt:   time.Now().UTC(),
	}}
	f.mu.Lock()
	f.videos = append(f.videos, v)
	f.mu.Unlock()
	writeEnvelope(w, http.StatusCreated, models.Response{Success: true, Data: v, Message: "Video saved successfully"})
}

func (f *fakeAPI) find(id string) int {
	for i, v := range f.videos {
		if v.ID.String() == id {
			return i
		}
	}
	return -1
}

func (f *fakeAPI) likeVideo(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	i := f.find(chi.URLParam(r, "id"))
	if i < 0 {
		f.mu.Unlock()
		writeEnvelope(w, http.StatusNotFound, models.Response{Error: "Video not found"})
		return
	}
	f.videos[i].IsLiked = !f.videos[i].IsLiked
	v := f.videos[i]
	f.mu.Unlock()
	writeEnvelope(w, http.StatusOK, models.Response{Success: true, Data: v})
}

func (f *fakeAPI) deleteVideo(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	i := f.find(chi.URLParam(r, "id"))
	if i >= 0 {
		f.videos = append(f.videos[:i], f.videos[i+1:]...)
	}
	f.mu.Unlock()
	if i < 0 {
		writeEnvelope(w, http.StatusNotFound, models.Response{Error: "Video not found"})
		return
	}
	writeEnvelope(w, http.StatusOK, models.Response{Success: true, Message: "Video deleted successfully"})
}

var testUpgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// ws sends the queued events and hangs up.
func (f *fakeAPI) ws(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	ok := r.URL.Query().Get("token") == f.token
	events := append([]models.Event{}, f.events...)
	f.mu.Unlock()
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := testUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for _, e := range events {
		if err := conn.WriteJSON(e); err != nil {
			return
		}
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
}

func (f *fakeAPI) seedVideos(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		f.videos = append(f.videos, models.VideoView{Video: models.Video{
			ID:        uuid.New(),
			YouTubeID: strings.Repeat("x", 3) + strconv.Itoa(i),
		}})
	}
}

// loggedIn returns a client holding the fake's current tokens.
func (f *fakeAPI) loggedIn() *Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return New(f.srv.URL, WithTokens(f.token, f.refreshToken))
}
