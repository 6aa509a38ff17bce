package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/MikhailRaia/urlshort/internal/logger"
	"github.com/MikhailRaia/urlshort/internal/metrics"
	"github.com/MikhailRaia/urlshort/internal/middleware"
	"github.com/MikhailRaia/urlshort/internal/model"
	"github.com/MikhailRaia/urlshort/internal/storage"
)

// maxBodySize caps JSON request bodies under /api/url.
const maxBodySize = 100 << 10

const (
	msgNotFound     = "No url found"
	msgServerError  = "Server error"
	msgInvalidURL   = "Invalid long url"
	msgInvalidBody  = "Invalid request body"
	msgBodyTooLarge = "Request body too large"
)

type URLService interface {
	Shorten(ctx context.Context, longURL string) (model.URL, error)
	ShortenBatch(ctx context.Context, items []model.BatchRequestItem) ([]model.BatchResponseItem, error)
	Resolve(ctx context.Context, code string) (string, error)
	Lookup(ctx context.Context, code string) (model.URL, error)
	List(ctx context.Context, limit, offset int) ([]model.URL, error)
	Delete(ctx context.Context, code string) error
	Stats(ctx context.Context) (model.Stats, error)
	Ping(ctx context.Context) error
}

// Option customizes a Handler.
type Option func(*Handler)

// WithMetrics instruments every route and exposes GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithRateLimiter limits the shorten endpoints per client IP.
func WithRateLimiter(rl *middleware.RateLimiter) Option {
	return func(h *Handler) { h.limiter = rl }
}

// WithTrustedProxy takes the client address from X-Forwarded-For and
// X-Real-IP. Only enable it behind a proxy that sets those headers.
func WithTrustedProxy(trusted bool) Option {
	return func(h *Handler) { h.trustProxy = trusted }
}

// WithAdminAuth mounts the management routes behind the given guard.
func WithAdminAuth(a *middleware.AdminAuth) Option {
	return func(h *Handler) { h.adminAuth = a }
}

type Handler struct {
	urlService URLService
	metrics    *metrics.Metrics
	limiter    *middleware.RateLimiter
	adminAuth  *middleware.AdminAuth
	trustProxy bool
}

func NewHandler(urlService URLService, opts ...Option) *Handler {
	h := &Handler{
		urlService: urlService,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *Handler) RegisterRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	if h.trustProxy {
		r.Use(chimiddleware.RealIP)
	}
	if h.metrics != nil {
		r.Use(h.metrics.Middleware)
	}
	r.Use(logger.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Use(middleware.GzipMiddleware)

	r.Get("/ping", h.handlePing)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/api/url", func(r chi.Router) {
		r.Use(chimiddleware.RequestSize(maxBodySize))
		r.Use(middleware.GzipReader(maxBodySize))

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.AllowContentType("application/json"))
			if h.limiter != nil {
				r.Use(h.limiter.Middleware)
			}

			r.Post("/shorten", h.handleShorten)
			r.Post("/shorten/batch", h.handleShortenBatch)
		})

		r.Get("/{code}", h.handleLookup)

		if h.adminAuth != nil {
			r.Group(func(r chi.Router) {
				r.Use(h.adminAuth.RequireAdmin)

				r.Get("/", h.handleList)
				r.Get("/stats", h.handleStats)
				r.Delete("/{code}", h.handleDelete)
			})
		}
	})

	r.Get("/{code}", h.handleRedirect)

	return r
}

func (h *Handler) handleRedirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	longURL, err := h.urlService.Resolve(r.Context(), code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgNotFound)
			return
		}

		log.Error().Err(err).Str("code", code).Msg("Failed to resolve short code")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	http.Redirect(w, r, longURL, http.StatusFound)
}

func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	if err := h.urlService.Ping(r.Context()); err != nil {
		log.Error().Err(err).Msg("Storage ping failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
