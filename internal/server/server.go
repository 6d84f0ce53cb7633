// Package server exposes a listing.Source over HTTP with the same routes the
// browse client consumes: GET /collections, GET /items and GET /items/:id.
// Unfiltered responses are cached in an expiring LRU.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/taxa/pkg/config"
	"github.com/vanderheijden86/taxa/pkg/listing"
	"github.com/vanderheijden86/taxa/pkg/logging"
)

// MaxPageSize caps the limit parameter of /items.
const MaxPageSize = 200

// Server serves one listing source.
type Server struct {
	app      *fiber.App
	src      listing.Source
	cache    *expirable.LRU[string, []byte]
	log      logrus.FieldLogger
	pageSize int

	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) { s.log = l }
}

// WithDefaultPageSize sets the page size used when limit is absent.
func WithDefaultPageSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// New builds the fiber app for src.
func New(src listing.Source, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		src:      src,
		log:      logging.Discard(),
		pageSize: 20,
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = 512
	}
	s.cache = expirable.NewLRU[string, []byte](size, nil, cfg.CacheTTL)

	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxa",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"route", "status"})
	s.latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "taxa",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	s.registry.MustRegister(
		s.requests,
		s.latency,
		collectors.NewGoCollector(),
		newTimingCollector(),
	)

	s.app = fiber.New(fiber.Config{
		AppName:               "taxa",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          s.errorHandler,
	})
	s.app.Use(s.observe)
	s.register()
	return s
}

func (s *Server) register() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := &listingAPI{server: s}
	api.Register(s.app)
}

// App returns the fiber app, for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

// Registry returns the prometheus registry behind /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Purge drops every cached response. Call it after the source changes.
func (s *Server) Purge() {
	s.cache.Purge()
}

// Listen serves on addr until ctx is done.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() { errc <- s.app.Listen(addr) }()
	s.log.WithField("addr", addr).Info("listing server started")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.app.ShutdownWithContext(shutdownCtx)
	}
}

// observe records per-route metrics and logs each request.
func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		// Let the error handler set the final status before recording.
		if herr := s.errorHandler(c, err); herr != nil {
			return herr
		}
	}
	route := c.Route().Path
	status := c.Response().StatusCode()
	elapsed := time.Since(start)

	s.requests.WithLabelValues(route, statusClass(status)).Inc()
	s.latency.WithLabelValues(route).Observe(elapsed.Seconds())
	s.log.WithFields(logrus.Fields{
		"method":  c.Method(),
		"path":    c.Path(),
		"status":  status,
		"elapsed": elapsed,
	}).Debug("request")
	return nil
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	}
	return "2xx"
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code, msg = fe.Code, fe.Message
	case errors.Is(err, listing.ErrNotFound):
		code, msg = fiber.StatusNotFound, "not found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code, msg = fiber.StatusServiceUnavailable, "request cancelled"
	default:
		s.log.WithError(err).WithField("path", c.Path()).Error("request failed")
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
