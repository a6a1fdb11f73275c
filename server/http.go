package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autotrack/domain"
	"github.com/autotrack/history"
)

// Status exposes the state of the cycle runner
type Status interface {
	Running() bool
	Latest() *domain.CycleReport
}

// HistoryReader lists stored cycles
type HistoryReader interface {
	Recent(ctx context.Context, n int) ([]history.Summary, error)
}

// StatusConfig configures the HTTP status surface
type StatusConfig struct {
	Addr     string
	Version  string
	Status   Status
	History  HistoryReader
	Gatherer prometheus.Gatherer
}

// StatusServer serves health, metrics and the latest report over HTTP
type StatusServer struct {
	config StatusConfig
	echo   *echo.Echo
	logger *slog.Logger
}

func NewStatusServer(config StatusConfig, logger *slog.Logger) *StatusServer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	logger = logger.With("component", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	s := &StatusServer{config: config, echo: e, logger: logger}
	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{})))
	e.GET("/report/latest", s.latest)
	if config.History != nil {
		e.GET("/report/history", s.history)
	}
	return s
}

// Handler returns the router, mainly for tests
func (s *StatusServer) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called
func (s *StatusServer) Start() error {
	s.logger.Info("HTTP status server listening", "addr", s.config.Addr)
	if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *StatusServer) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type healthResponse struct {
	Status       string     `json:"status"`
	Version      string     `json:"version"`
	CycleRunning bool       `json:"cycle_running"`
	LastCycle    *time.Time `json:"last_cycle,omitempty"`
}

func (s *StatusServer) health(c echo.Context) error {
	resp := healthResponse{Status: "ok", Version: s.config.Version}
	if s.config.Status != nil {
		resp.CycleRunning = s.config.Status.Running()
		if latest := s.config.Status.Latest(); latest != nil {
			resp.LastCycle = &latest.FinishedAt
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *StatusServer) latest(c echo.Context) error {
	if s.config.Status == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no cycle has finished yet")
	}
	report := s.config.Status.Latest()
	if report == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no cycle has finished yet")
	}
	return c.JSON(http.StatusOK, report)
}

func (s *StatusServer) history(c echo.Context) error {
	limit := 7
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 365")
		}
		limit = n
	}

	cycles, err := s.config.History.Recent(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error("failed to read history", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read history")
	}
	if cycles == nil {
		cycles = []history.Summary{}
	}
	return c.JSON(http.StatusOK, cycles)
}
