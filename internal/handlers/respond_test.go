package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tubemark-backend/internal/logger"
	"tubemark-backend/internal/middleware"
	"tubemark-backend/internal/models"
	"tubemark-backend/internal/services"
)

// envelope mirrors models.Response with raw data for assertions.
type envelope struct {
	Success    bool               `json:"success"`
	Data       json.RawMessage    `json:"data"`
	Message    string             `json:"message"`
	Error      string             `json:"error"`
	Fields     map[string]string  `json:"fields"`
	Pagination *models.Pagination `json:"pagination"`
	Count      int                `json:"count"`
	Searched   []string           `json:"searchedTags"`
}

func testResponder() *Responder {
	return NewResponder(logger.Discard(), false)
}

// newRequest builds a request carrying the caller id and chi URL params.
func newRequest(t *testing.T, method, target string, body interface{}, userID uuid.UUID, params map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
	return req
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return env
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		query                           string
		wantPage, wantLimit, wantOffset int
	}{
		{"", 1, 50, 0},
		{"?page=3&limit=10", 3, 10, 20},
		{"?page=0&limit=0", 1, 1, 0},
		{"?page=-2&limit=-5", 1, 1, 0},
		{"?limit=1000", 1, 100, 0},
		{"?page=abc&limit=xyz", 1, 50, 0},
		{"?page=9223372036854775807&limit=100", maxPage, 100, (maxPage - 1) * 100},
		{"?page=99999999999999999999", 1, 50, 0},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/videos"+tc.query, nil)
			page, limit, offset := pageParams(r, 50)
			if page != tc.wantPage || limit != tc.wantLimit || offset != tc.wantOffset {
				t.Errorf("got page=%d limit=%d offset=%d, want %d/%d/%d",
					page, limit, offset, tc.wantPage, tc.wantLimit, tc.wantOffset)
			}
		})
	}
}

func TestResponderFail(t *testing.T) {
	existing := map[string]string{"id": "abc"}

	tests := []struct {
		name       string
		err        error
		devMode    bool
		wantStatus int
		wantError  string
		wantDetail bool
	}{
		{"validation", &services.ValidationError{Fields: map[string]string{"email": "is required"}}, false, http.StatusBadRequest, "Validation failed", false},
		{"unauthorized", &services.UnauthorizedError{Message: "Invalid email or password"}, false, http.StatusUnauthorized, "Invalid email or password", false},
		{"not found", &services.NotFoundError{Message: "Video not found"}, false, http.StatusNotFound, "Video not found", false},
		{"conflict", &services.ConflictError{Message: "Video already saved", Existing: existing}, false, http.StatusConflict, "Video already saved", false},
		{"rate limited", &services.RateLimitError{Message: "slow down"}, false, http.StatusTooManyRequests, "slow down", false},
		{"upstream prod", &services.UpstreamError{Kind: services.UpstreamRequestFailed, Message: "YouTube search failed"}, false, http.StatusInternalServerError, "Failed to do thing", false},
		{"upstream dev", &services.UpstreamError{Kind: services.UpstreamUnavailable, Message: "YouTube API key not configured"}, true, http.StatusInternalServerError, "Failed to do thing", true},
		{"unexpected prod", errors.New("pq: connection reset"), false, http.StatusInternalServerError, "Failed to do thing", false},
		{"unexpected dev", errors.New("pq: connection reset"), true, http.StatusInternalServerError, "Failed to do thing", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rs := NewResponder(logger.Discard(), tc.devMode)
			rr := httptest.NewRecorder()
			rs.fail(rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err, "Failed to do thing")

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rr.Code)
			}
			env := decodeEnvelope(t, rr)
			if env.Success {
				t.Errorf("expected success=false")
			}
			if env.Error != tc.wantError {
				t.Errorf("expected error %q, got %q", tc.wantError, env.Error)
			}
			if tc.wantDetail && env.Message == "" {
				t.Errorf("expected error detail in development mode")
			}
			if !tc.wantDetail && env.Message != "" {
				t.Errorf("expected no error detail, got %q", env.Message)
			}
		})
	}
}

func TestResponderFail_ConflictCarriesExisting(t *testing.T) {
	rr := httptest.NewRecorder()
	testResponder().fail(rr, httptest.NewRequest(http.MethodPost, "/", nil),
		&services.ConflictError{Message: "Tag already exists", Existing: &models.Tag{Name: "music"}}, "")

	env := decodeEnvelope(t, rr)
	var tag models.Tag
	if err := json.Unmarshal(env.Data, &tag); err != nil {
		t.Fatalf("decode existing: %v", err)
	}
	if tag.Name != "music" {
		t.Errorf("expected existing tag in data, got %s", string(env.Data))
	}
}

func TestDecode_RejectsBadBodies(t *testing.T) {
	rs := testResponder()

	rr := httptest.NewRecorder()
	var req models.RegisterRequest
	if rs.decode(rr, newRequest(t, http.MethodPost, "/", "{not json", uuid.Nil, nil), &req) {
		t.Fatal("expected malformed JSON to be rejected")
	}
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	body := map[string]string{"email": "nope", "password": "short", "name": ""}
	if rs.decode(rr, newRequest(t, http.MethodPost, "/", body, uuid.Nil, nil), &req) {
		t.Fatal("expected invalid fields to be rejected")
	}
	env := decodeEnvelope(t, rr)
	for _, field := range []string{"email", "password", "name"} {
		if _, ok := env.Fields[field]; !ok {
			t.Errorf("expected field error for %s, got %v", field, env.Fields)
		}
	}
}

func TestNotFoundRoute(t *testing.T) {
	rr := httptest.NewRecorder()
	testResponder().NotFound(rr, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Error != "Route not found" {
		t.Errorf("unexpected error %q", env.Error)
	}
}
