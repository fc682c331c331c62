package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/homevista/brokerage/internal/auth"
	"github.com/homevista/brokerage/internal/domain"
	"github.com/homevista/brokerage/internal/service"
	"github.com/homevista/brokerage/pkg/health"
	"github.com/homevista/brokerage/pkg/middleware"
)

// RouterConfig carries the router's cross-cutting settings.
type RouterConfig struct {
	CORS          middleware.CORSConfig
	AuthRateLimit int // requests per second per client on auth endpoints
	AuthRateBurst int
}

// NewRouter creates a chi router with all brokerage routes registered.
func NewRouter(
	authService *service.AuthService,
	propertyService *service.PropertyService,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("brokerage"))

	// Health and metrics
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Token validator bridging the JWT manager to the auth middleware.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID:   claims.UserID,
			Email:    claims.Email,
			Username: claims.Username,
			Role:     domain.NormalizeRole(claims.Role),
		}, nil
	}

	authHandler := NewAuthHandler(authService, logger)
	propertyHandler := NewPropertyHandler(propertyService, logger)

	// Public auth endpoints, rate limited against brute force.
	r.Route("/api/v1/auth", func(r chi.Router) {
		if cfg.AuthRateLimit > 0 {
			r.Use(middleware.RateLimit(cfg.AuthRateLimit, cfg.AuthRateBurst, logger))
		}

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
			r.Post("/verify-email", authHandler.VerifyEmail)
		})

		r.Get("/check-email", authHandler.CheckEmail)
		r.Get("/check-username", authHandler.CheckUsername)

		// Authenticated auth endpoints.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))
			r.Get("/session", authHandler.Session)

			r.Group(func(r chi.Router) {
				r.Use(ContentTypeJSON)
				r.Post("/change-password", authHandler.ChangePassword)
			})
		})
	})

	// Property endpoints.
	r.Route("/api/v1/properties", func(r chi.Router) {
		// Browsing is public.
		r.Get("/", propertyHandler.List)
		r.Get("/{id}", propertyHandler.Get)

		// Mutations require an agent or admin.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))
			r.Use(middleware.RequireRole(domain.RoleAgent, domain.RoleAdmin, domain.RoleSuperAdmin))

			// Multipart endpoints parse their own content type.
			r.Post("/with-media", propertyHandler.CreateWithMedia)
			r.Put("/{id}/with-media", propertyHandler.UpdateWithMedia)
			r.Post("/{id}/images", propertyHandler.UploadImages)
			r.Post("/{id}/videos", propertyHandler.UploadVideos)

			r.Get("/{id}/videos/info", propertyHandler.VideoInfo)

			r.Group(func(r chi.Router) {
				r.Use(ContentTypeJSON)
				r.Post("/", propertyHandler.Create)
				r.Delete("/{id}", propertyHandler.Delete)
				r.Delete("/{id}/images", propertyHandler.DeleteImage)
				r.Delete("/{id}/videos", propertyHandler.DeleteVideo)
			})
		})
	})

	return r
}
