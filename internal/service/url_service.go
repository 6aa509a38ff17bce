package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MikhailRaia/urlshort/internal/cache"
	"github.com/MikhailRaia/urlshort/internal/events"
	"github.com/MikhailRaia/urlshort/internal/generator"
	"github.com/MikhailRaia/urlshort/internal/model"
	"github.com/MikhailRaia/urlshort/internal/storage"
)

var (
	ErrInvalidURL     = errors.New("invalid long url")
	ErrInvalidBaseURL = errors.New("invalid base url")
	ErrCodeGeneration = errors.New("could not generate a free short code")
	ErrEmptyBatch     = errors.New("batch is empty")
)

const maxCodeGenAttempts = 5

// Cache is a look-aside cache for code to long URL resolution.
type Cache interface {
	Get(ctx context.Context, code string) (string, error)
	Set(ctx context.Context, code, longURL string) error
	Delete(ctx context.Context, code string) error
}

// ClickRecorder receives one call per served redirect.
type ClickRecorder interface {
	Record(code string)
}

// Observer is notified about created links and redirect outcomes.
type Observer interface {
	LinkCreated()
	Redirect(result string)
}

// Redirect outcomes reported to the Observer.
const (
	RedirectCache    = "cache"
	RedirectStore    = "store"
	RedirectNotFound = "not_found"
	RedirectError    = "error"
)

// Option customizes a URLService.
type Option func(*URLService)

func WithCache(c Cache) Option {
	return func(s *URLService) { s.cache = c }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *URLService) { s.publisher = p }
}

func WithClickRecorder(r ClickRecorder) Option {
	return func(s *URLService) { s.clicks = r }
}

func WithCodeLength(n int) Option {
	return func(s *URLService) { s.codeLength = n }
}

func WithObserver(o Observer) Option {
	return func(s *URLService) { s.observer = o }
}

type noopRecorder struct{}

func (noopRecorder) Record(string) {}

type noopObserver struct{}

func (noopObserver) LinkCreated()    {}
func (noopObserver) Redirect(string) {}

// URLService provides business logic for creating and resolving short URLs.
type URLService struct {
	storage    storage.URLStorage
	baseURL    string
	codeLength int
	cache      Cache
	publisher  events.Publisher
	clicks     ClickRecorder
	observer   Observer
	now        func() time.Time
}

// NewURLService constructs a URLService with the given storage and base URL.
func NewURLService(storage storage.URLStorage, baseURL string, opts ...Option) *URLService {
	s := &URLService{
		storage:    storage,
		baseURL:    strings.TrimRight(baseURL, "/"),
		codeLength: 8,
		cache:      cache.Noop{},
		publisher:  events.Noop{},
		clicks:     noopRecorder{},
		observer:   noopObserver{},
		now:        func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// IsWebURL reports whether raw is an absolute http or https URL with a host
// no longer than model.MaxLongURLLength.
func IsWebURL(raw string) bool {
	if len(raw) > model.MaxLongURLLength {
		return false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *URLService) newURL(longURL string) (model.URL, error) {
	code, err := generator.GenerateCode(s.codeLength)
	if err != nil {
		return model.URL{}, fmt.Errorf("error generating code: %w", err)
	}

	shortURL, err := url.JoinPath(s.baseURL, code)
	if err != nil {
		return model.URL{}, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}

	return model.URL{
		ID:        generator.GenerateID(),
		Code:      code,
		LongURL:   longURL,
		ShortURL:  shortURL,
		CreatedAt: s.now(),
	}, nil
}

// Shorten stores longURL under a fresh code. When longURL was shortened
// before, the stored record is returned together with storage.ErrURLExists.
func (s *URLService) Shorten(ctx context.Context, longURL string) (model.URL, error) {
	if !IsWebURL(s.baseURL) {
		return model.URL{}, ErrInvalidBaseURL
	}

	longURL = strings.TrimSpace(longURL)
	if !IsWebURL(longURL) {
		return model.URL{}, ErrInvalidURL
	}

	for attempt := 0; attempt < maxCodeGenAttempts; attempt++ {
		candidate, err := s.newURL(longURL)
		if err != nil {
			return model.URL{}, err
		}

		saved, err := s.storage.Save(ctx, candidate)
		switch {
		case err == nil:
			s.observer.LinkCreated()
			s.publish(ctx, model.EventLinkCreated, saved)
			return saved, nil
		case errors.Is(err, storage.ErrURLExists):
			return saved, err
		case errors.Is(err, storage.ErrCodeExists):
			log.Debug().Str("code", candidate.Code).Msg("Short code collision, retrying")
			continue
		default:
			return model.URL{}, fmt.Errorf("error saving URL: %w", err)
		}
	}

	return model.URL{}, ErrCodeGeneration
}

// ShortenBatch shortens every item, reusing stored records for known long URLs.
func (s *URLService) ShortenBatch(ctx context.Context, items []model.BatchRequestItem) ([]model.BatchResponseItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	if !IsWebURL(s.baseURL) {
		return nil, ErrInvalidBaseURL
	}

	longURLs := make([]string, len(items))
	for i, item := range items {
		longURLs[i] = strings.TrimSpace(item.LongURL)
		if !IsWebURL(longURLs[i]) {
			return nil, fmt.Errorf("%w: item %q", ErrInvalidURL, item.CorrelationID)
		}
	}

	for attempt := 0; attempt < maxCodeGenAttempts; attempt++ {
		candidates := make([]model.URL, len(items))
		for i, longURL := range longURLs {
			candidate, err := s.newURL(longURL)
			if err != nil {
				return nil, err
			}
			candidates[i] = candidate
		}

		saved, err := s.storage.SaveBatch(ctx, candidates)
		if errors.Is(err, storage.ErrCodeExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error saving batch: %w", err)
		}

		result := make([]model.BatchResponseItem, len(items))
		for i, item := range items {
			if saved[i].Code == candidates[i].Code {
				s.observer.LinkCreated()
				s.publish(ctx, model.EventLinkCreated, saved[i])
			}
			result[i] = model.BatchResponseItem{
				CorrelationID: item.CorrelationID,
				Code:          saved[i].Code,
				ShortURL:      saved[i].ShortURL,
			}
		}
		return result, nil
	}

	return nil, ErrCodeGeneration
}

// Resolve returns the long URL for code and records a click.
func (s *URLService) Resolve(ctx context.Context, code string) (string, error) {
	longURL, err := s.cache.Get(ctx, code)
	if err == nil {
		s.clicks.Record(code)
		s.observer.Redirect(RedirectCache)
		return longURL, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warn().Err(err).Str("code", code).Msg("Cache lookup failed")
	}

	url, err := s.storage.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.observer.Redirect(RedirectNotFound)
			return "", err
		}
		s.observer.Redirect(RedirectError)
		return "", fmt.Errorf("error resolving code: %w", err)
	}

	s.fillCache(ctx, code, url.LongURL)

	s.clicks.Record(code)
	s.observer.Redirect(RedirectStore)
	return url.LongURL, nil
}

// fillCache stores longURL for code, then re-reads storage so that a Delete
// racing with this lookup cannot leave a stale entry behind.
func (s *URLService) fillCache(ctx context.Context, code, longURL string) {
	if _, ok := s.cache.(cache.Noop); ok {
		return
	}

	if err := s.cache.Set(ctx, code, longURL); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("Cache store failed")
		return
	}

	if _, err := s.storage.GetByCode(ctx, code); errors.Is(err, storage.ErrNotFound) {
		if err := s.cache.Delete(ctx, code); err != nil {
			log.Warn().Err(err).Str("code", code).Msg("Cache eviction failed")
		}
	}
}

// Lookup returns the stored record for code without counting a click.
func (s *URLService) Lookup(ctx context.Context, code string) (model.URL, error) {
	return s.storage.GetByCode(ctx, code)
}

// List returns stored records, newest first.
func (s *URLService) List(ctx context.Context, limit, offset int) ([]model.URL, error) {
	urls, err := s.storage.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error listing URLs: %w", err)
	}
	return urls, nil
}

// Delete removes the record for code and evicts it from the cache.
func (s *URLService) Delete(ctx context.Context, code string) error {
	url, err := s.storage.GetByCode(ctx, code)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, code); err != nil {
		return err
	}

	if err := s.cache.Delete(ctx, code); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("Cache eviction failed")
	}

	s.publish(ctx, model.EventLinkDeleted, url)
	return nil
}

// Stats returns store-wide counters.
func (s *URLService) Stats(ctx context.Context) (model.Stats, error) {
	return s.storage.Stats(ctx)
}

// Ping checks that the storage is reachable.
func (s *URLService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

func (s *URLService) publish(ctx context.Context, eventType string, url model.URL) {
	event := model.Event{
		Type:    eventType,
		Code:    url.Code,
		LongURL: url.LongURL,
		At:      s.now(),
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("type", eventType).Str("code", url.Code).Msg("Failed to publish event")
	}
}
