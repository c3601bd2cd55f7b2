// Package api is the HTTP transport of the account service. It exposes the
// /api/v1/users routes over echo, keeps session tokens in cookies and wraps
// every response in the JSON envelope clients expect.
package api

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrijs2005/accounthub/internal/logging"
	"github.com/dmitrijs2005/accounthub/internal/server/config"
	"github.com/dmitrijs2005/accounthub/internal/server/metrics"
	"github.com/dmitrijs2005/accounthub/internal/server/models"
	"github.com/dmitrijs2005/accounthub/internal/server/services"
	"github.com/dmitrijs2005/accounthub/internal/server/uploads"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

// Request body caps for JSON routes and for routes that carry image files.
const (
	jsonBodyLimit  = "16K"
	mediaBodyLimit = "10M"
)

// AccountService is the business logic behind the routes.
type AccountService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.PublicAccount, error)
	Login(ctx context.Context, username, email, password string) (*models.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, accountID string) error
	Authenticate(ctx context.Context, accessToken string) (*models.PublicAccount, error)
	ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error
	UpdateDetails(ctx context.Context, accountID, fullName, email string) (*models.PublicAccount, error)
	UpdateAvatar(ctx context.Context, accountID string, a *uploads.Artifact) (*models.PublicAccount, error)
	UpdateCoverImage(ctx context.Context, accountID string, a *uploads.Artifact) (*models.PublicAccount, error)
}

// Stager puts incoming multipart files into the staging area.
type Stager interface {
	Stage(fh *multipart.FileHeader) (*uploads.Artifact, error)
	Discard(a *uploads.Artifact)
}

type HTTPServer struct {
	address       string
	corsOrigin    string
	secureCookies bool
	authRateLimit float64

	accounts AccountService
	stager   Stager
	logger   logging.Logger
	metrics  *metrics.Metrics
}

func NewHTTPServer(cfg *config.Config, l logging.Logger, accounts AccountService, stager Stager, m *metrics.Metrics) *HTTPServer {
	return &HTTPServer{
		address:       cfg.EndpointAddrHTTP,
		corsOrigin:    cfg.CORSOrigin,
		secureCookies: cfg.SecureCookies,
		authRateLimit: cfg.AuthRateLimit,
		accounts:      accounts,
		stager:        stager,
		logger:        l.With("module", "http_server"),
		metrics:       m,
	}
}

// Handler builds the echo instance with every route and middleware attached.
func (s *HTTPServer) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				args = append(args, "error", v.Error)
			}
			s.logger.Info(c.Request().Context(), "request", args...)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{s.corsOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	limited := s.authLimiter()
	auth := s.requireAuth
	jsonBody := middleware.BodyLimit(jsonBodyLimit)
	mediaBody := middleware.BodyLimit(mediaBodyLimit)

	g := e.Group("/api/v1/users")
	g.POST("/register", s.register, slices.Concat(limited, []echo.MiddlewareFunc{mediaBody})...)
	g.POST("/login", s.login, slices.Concat(limited, []echo.MiddlewareFunc{jsonBody})...)
	g.POST("/refresh-token", s.refreshToken, slices.Concat(limited, []echo.MiddlewareFunc{jsonBody})...)

	g.POST("/logout", s.logout, auth)
	g.POST("/change-password", s.changePassword, jsonBody, auth)
	g.GET("/current-user", s.currentUser, auth)
	g.PATCH("/update-account", s.updateAccount, jsonBody, auth)
	g.PATCH("/avatar", s.updateAvatar, mediaBody, auth)
	g.PATCH("/cover-image", s.updateCoverImage, mediaBody, auth)

	return e
}

// authLimiter throttles the unauthenticated credential routes per client IP.
// A non-positive limit disables throttling.
func (s *HTTPServer) authLimiter() []echo.MiddlewareFunc {
	if s.authRateLimit <= 0 {
		return nil
	}
	burst := int(s.authRateLimit)
	if burst < 1 {
		burst = 1
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(s.authRateLimit),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return []echo.MiddlewareFunc{middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	e := s.Handler()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := e.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
