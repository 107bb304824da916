package websocket

import (
	"context"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"tubemark-backend/internal/middleware"
	"tubemark-backend/internal/models"
)

// EventPublisher is satisfied by *Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, userID uuid.UUID, event models.Event) error
}

// Invalidate publishes one invalidate event per resource after every successful
// mutating request made by an authenticated user.
func Invalidate(pub EventPublisher, logger *slog.Logger, resources ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if pub == nil || !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status < 200 || status >= 300 {
				return
			}
			userID := middleware.GetUserID(r.Context())
			if userID == uuid.Nil {
				return
			}

			// the request context may already be cancelled once the response is written
			ctx := context.WithoutCancel(r.Context())
			for _, resource := range resources {
				event := models.Event{
					Type:     models.EventInvalidate,
					Resource: resource,
					Method:   r.Method,
					Path:     r.URL.Path,
				}
				if err := pub.Publish(ctx, userID, event); err != nil {
					logger.Warn("failed to publish invalidation", "user_id", userID, "resource", resource, "error", err)
				}
			}
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
