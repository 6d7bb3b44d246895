package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tunzy-shop/tunzy-session/internal/adapter/metrics"
	"github.com/tunzy-shop/tunzy-session/internal/app"
	"github.com/tunzy-shop/tunzy-session/internal/platform/config"
)

type appService interface {
	Pair(ctx context.Context, phoneNumber string) (*app.PairResult, error)
	QR(ctx context.Context) (*app.QRResult, error)
	SessionCount() (int, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	clock  clockwork.Clock

	app          appService
	static       http.FileSystem
	registry     *prometheus.Registry
	httpMetrics  *metrics.HTTPMetrics
	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, app appService, clock clockwork.Clock, registry *prometheus.Registry, healthChecks []HealthCheck) (*Server, error) {
	static, err := staticFileSystem()
	if err != nil {
		return nil, fmt.Errorf("failed to load web client: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		clock:        clock,
		app:          app,
		static:       static,
		registry:     registry,
		httpMetrics:  metrics.NewHTTPMetrics(registry),
		healthChecks: healthChecks,
		startTime:    clock.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start("0.0.0.0:" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
