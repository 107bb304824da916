package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tubemark-backend/internal/middleware"
	"tubemark-backend/internal/models"
	"tubemark-backend/internal/services"
	"tubemark-backend/internal/validation"
)

const (
	maxPageLimit = 100
	maxPage      = 1_000_000
)

// Responder writes the JSON envelope and translates service errors into status codes.
// Every handler embeds one.
type Responder struct {
	logger    *slog.Logger
	validator *validation.Validator
	devMode   bool
}

func NewResponder(logger *slog.Logger, devMode bool) *Responder {
	return &Responder{logger: logger, validator: validation.New(), devMode: devMode}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (rs *Responder) ok(w http.ResponseWriter, data interface{}, message string) {
	writeJSON(w, http.StatusOK, models.Response{Success: true, Data: data, Message: message})
}

func (rs *Responder) created(w http.ResponseWriter, data interface{}, message string) {
	writeJSON(w, http.StatusCreated, models.Response{Success: true, Data: data, Message: message})
}

func (rs *Responder) page(w http.ResponseWriter, data interface{}, p *models.Pagination) {
	writeJSON(w, http.StatusOK, models.Response{Success: true, Data: data, Pagination: p})
}

func (rs *Responder) errorResp(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, models.Response{
		Success:   false,
		Error:     message,
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

// fail maps err onto the envelope. fallback is the error text for unexpected failures.
func (rs *Responder) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	resp := models.Response{Success: false, RequestID: middleware.GetRequestID(r.Context())}
	status := http.StatusInternalServerError

	var (
		validationErr   *services.ValidationError
		unauthorizedErr *services.UnauthorizedError
		notFoundErr     *services.NotFoundError
		conflictErr     *services.ConflictError
		rateLimitErr    *services.RateLimitError
		upstreamErr     *services.UpstreamError
	)
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		resp.Error = validationErr.Error()
		resp.Fields = validationErr.Fields
	case errors.As(err, &unauthorizedErr):
		status = http.StatusUnauthorized
		resp.Error = unauthorizedErr.Message
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
		resp.Error = notFoundErr.Message
	case errors.As(err, &conflictErr):
		status = http.StatusConflict
		resp.Error = conflictErr.Message
		resp.Data = conflictErr.Existing
	case errors.As(err, &rateLimitErr):
		status = http.StatusTooManyRequests
		resp.Error = rateLimitErr.Message
	case errors.As(err, &upstreamErr):
		rs.logger.Warn("upstream request failed",
			"request_id", resp.RequestID,
			"method", r.Method,
			"path", r.URL.Path,
			"kind", upstreamErr.Kind,
			"error", err,
		)
		resp.Error = fallback
		if rs.devMode {
			resp.Message = upstreamErr.Error()
		}
	default:
		rs.logger.Error("request failed",
			"request_id", resp.RequestID,
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		resp.Error = fallback
		if resp.Error == "" {
			resp.Error = "Internal server error"
		}
		if rs.devMode {
			resp.Message = err.Error()
		}
	}

	writeJSON(w, status, resp)
}

// NotFound answers unknown routes with the error envelope.
func (rs *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	rs.errorResp(w, r, http.StatusNotFound, "Route not found")
}

func (rs *Responder) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	rs.errorResp(w, r, http.StatusMethodNotAllowed, "Method not allowed")
}

// decode reads a JSON body into dst and validates it. On failure the response is already written.
func (rs *Responder) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			rs.errorResp(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		rs.errorResp(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := rs.validator.Validate(dst); err != nil {
		rs.fail(w, r, err, "Invalid request body")
		return false
	}
	return true
}

// pathID parses a uuid URL parameter. Malformed ids read as not found.
func (rs *Responder) pathID(w http.ResponseWriter, r *http.Request, param, notFound string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		rs.errorResp(w, r, http.StatusNotFound, notFound)
		return uuid.Nil, false
	}
	return id, true
}

// pageParams reads page and limit; page is clamped to [1,maxPage] and limit to [1,100].
func pageParams(r *http.Request, defaultLimit int) (page, limit, offset int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}

	limit = defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	return page, limit, (page - 1) * limit
}

// boolParam returns nil when the parameter is absent or not a boolean.
func boolParam(r *http.Request, name string) *bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	if err != nil {
		return nil
	}
	return &v
}
