package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/SocialGo/internal/service"
	"github.com/utafrali/SocialGo/pkg/health"
	"github.com/utafrali/SocialGo/pkg/middleware"
)

// ServiceName labels HTTP metrics and spans.
const ServiceName = "social"

// RouterConfig carries the transport settings that handlers need.
type RouterConfig struct {
	CORS           middleware.CORSConfig
	CookieSecure   bool
	MaxUploadBytes int64

	// MediaFiles, when set, is served under /media/. Only the in-memory media
	// backend needs this.
	MediaFiles MediaFileSource
}

// NewRouter creates a chi router with all social service routes registered.
func NewRouter(
	users *service.UserService,
	sessions *service.SessionManager,
	tweets *service.TweetService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if cfg.MediaFiles != nil {
		r.Get("/media/*", serveMedia(cfg.MediaFiles))
	}

	cookies := cookieWriter{secure: cfg.CookieSecure, accessTTL: sessions.AccessTTL(), refreshTTL: sessions.RefreshTTL()}
	authHandler := NewAuthHandler(users, sessions, cookies, cfg.MaxUploadBytes, logger)
	userHandler := NewUserHandler(users, cfg.MaxUploadBytes, logger)
	tweetHandler := NewTweetHandler(tweets, logger)
	requireAuth := middleware.Authenticate(sessions.VerifyAccess, logger)

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh-token", authHandler.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/logout", authHandler.Logout)
			r.Post("/change-password", authHandler.ChangePassword)
			r.Get("/me", userHandler.GetProfile)
			r.Patch("/me/avatar", userHandler.UpdateAvatar)
			r.Patch("/me/cover-image", userHandler.UpdateCoverImage)
		})
	})

	r.Route("/api/v1/tweets", func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/", tweetHandler.Create)
		r.Get("/user/{userId}", tweetHandler.ListByUser)
		r.Get("/{tweetId}", tweetHandler.Get)
		r.Patch("/{tweetId}", tweetHandler.Update)
		r.Delete("/{tweetId}", tweetHandler.Delete)
	})

	return r
}
