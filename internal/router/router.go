package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"tubemark-backend/internal/handlers"
	"tubemark-backend/internal/middleware"
	"tubemark-backend/internal/models"
	"tubemark-backend/internal/websocket"
)

const maxBodyBytes = 10 << 20

var cascadeResources = []string{
	models.ResourceVideos,
	models.ResourcePlaylists,
	models.ResourceNotes,
	models.ResourceHistory,
	models.ResourceTags,
}

// Handlers groups everything the router mounts.
type Handlers struct {
	Responder       *handlers.Responder
	Auth            *handlers.AuthHandler
	Videos          *handlers.VideoHandler
	Playlists       *handlers.PlaylistHandler
	Notes           *handlers.NoteHandler
	History         *handlers.HistoryHandler
	Tags            *handlers.TagHandler
	YouTube         *handlers.YouTubeHandler
	Recommendations *handlers.RecommendationHandler
	Stats           *handlers.StatsHandler
}

type Options struct {
	FrontendURL     string
	Environment     string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

func New(
	jwtAuth *middleware.JWTAuth,
	h Handlers,
	wsHub *websocket.Hub,
	events websocket.EventPublisher,
	logger *slog.Logger,
	opts Options,
) (http.Handler, func()) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(opts.FrontendURL))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	r.NotFound(h.Responder.NotFound)
	r.MethodNotAllowed(h.Responder.MethodNotAllowed)

	limiter := middleware.NewRateLimiter(opts.RateLimitMax, opts.RateLimitWindow)

	// authed mounts owner-scoped routes that publish an invalidation for each resource after a mutation.
	authed := func(r chi.Router, resources ...string) chi.Router {
		return r.With(jwtAuth.Middleware, websocket.Invalidate(events, logger, resources...))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Middleware)

		r.Get("/health", handlers.Health(opts.Environment))
		r.Get("/ws", wsHub.HandleWebSocket)

		// ──── Auth Routes ────
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Post("/refresh", h.Auth.Refresh)
			r.Post("/google", h.Auth.GoogleToken)
			r.Get("/google", h.Auth.GoogleRedirect)
			r.Get("/google/callback", h.Auth.GoogleCallback)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", h.Auth.Logout)
				r.Get("/me", h.Auth.Me)
				r.Put("/profile", h.Auth.UpdateProfile)
			})
		})

		// ──── Video Routes ────
		r.Route("/videos", func(r chi.Router) {
			// deleting a video cascades to every per-user collection
			authed(r, cascadeResources...).Delete("/{id}", h.Videos.Delete)

			r = authed(r, models.ResourceVideos)
			r.Get("/", h.Videos.List)
			r.Post("/", h.Videos.Save)
			r.Get("/{id}", h.Videos.Get)
			r.Put("/{id}", h.Videos.Update)
			r.Patch("/{id}/like", h.Videos.ToggleLike)
			r.Patch("/{id}/pin", h.Videos.TogglePin)
			r.Patch("/{id}/watchlist", h.Videos.ToggleWatchlist)
		})

		// ──── Playlist Routes ────
		r.Route("/playlists", func(r chi.Router) {
			r = authed(r, models.ResourcePlaylists)
			r.Get("/", h.Playlists.List)
			r.Post("/", h.Playlists.Create)
			r.Get("/{id}", h.Playlists.Get)
			r.Put("/{id}", h.Playlists.Update)
			r.Delete("/{id}", h.Playlists.Delete)
			r.Post("/{id}/videos", h.Playlists.AddVideo)
			r.Delete("/{id}/videos/{videoId}", h.Playlists.RemoveVideo)
		})

		// ──── Note Routes ────
		r.Route("/notes", func(r chi.Router) {
			r = authed(r, models.ResourceNotes)
			r.Get("/", h.Notes.List)
			r.Post("/", h.Notes.Create)
			r.Get("/{id}", h.Notes.Get)
			r.Put("/{id}", h.Notes.Update)
			r.Delete("/{id}", h.Notes.Delete)
		})

		// ──── History Routes ────
		r.Route("/history", func(r chi.Router) {
			// recording a watch also bumps the video's watch count
			authed(r, models.ResourceHistory, models.ResourceVideos).Post("/", h.History.Create)

			r = authed(r, models.ResourceHistory)
			r.Get("/", h.History.List)
			r.Get("/stats", h.History.Stats)
			r.Delete("/", h.History.Clear)
		})

		// ──── Tag Routes ────
		r.Route("/tags", func(r chi.Router) {
			r = authed(r, models.ResourceTags)
			r.Get("/", h.Tags.List)
			r.Post("/", h.Tags.Create)
			r.Put("/{id}", h.Tags.Update)
			r.Delete("/{id}", h.Tags.Delete)
		})

		// ──── YouTube Routes ────
		r.Route("/youtube", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/search", h.YouTube.Search)
			r.Get("/video/{videoId}", h.YouTube.GetVideo)
			r.Post("/search-by-tags", h.YouTube.SearchByTags)
		})

		// ──── Recommendation Routes ────
		r.Route("/recommendations", func(r chi.Router) {
			r = authed(r, models.ResourceVideos)
			r.Get("/", h.Recommendations.List)
			r.Post("/save", h.Recommendations.Save)
		})

		// ──── Stats Routes ────
		r.Route("/stats", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", h.Stats.Dashboard)
		})
	})

	return r, limiter.Stop
}
