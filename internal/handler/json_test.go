package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MikhailRaia/urlshort/internal/middleware"
	"github.com/MikhailRaia/urlshort/internal/model"
	"github.com/MikhailRaia/urlshort/internal/service"
	"github.com/MikhailRaia/urlshort/internal/storage"
)

var testURL = model.URL{
	ID:        "0f8fad5b-d9cb-469f-a165-70867728950e",
	Code:      "abc12345",
	LongURL:   "https://example.com/some/long/path",
	ShortURL:  "http://localhost:5000/abc12345",
	Clicks:    3,
	CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
}

const testURLJSON = `{
	"id": "0f8fad5b-d9cb-469f-a165-70867728950e",
	"urlCode": "abc12345",
	"longUrl": "https://example.com/some/long/path",
	"shortUrl": "http://localhost:5000/abc12345",
	"clicks": 3,
	"date": "2024-05-01T12:00:00Z"
}`

func TestHandleShorten(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		shortenURL  model.URL
		shortenErr  error
		wantStatus  int
		wantBody    string
		wantCalled  bool
	}{
		{
			name:        "Created",
			body:        `{"longUrl":"https://example.com/some/long/path"}`,
			contentType: "application/json",
			shortenURL:  testURL,
			wantStatus:  http.StatusCreated,
			wantBody:    testURLJSON,
			wantCalled:  true,
		},
		{
			name:        "Already shortened",
			body:        `{"longUrl":"https://example.com/some/long/path"}`,
			contentType: "application/json; charset=utf-8",
			shortenURL:  testURL,
			shortenErr:  storage.ErrURLExists,
			wantStatus:  http.StatusOK,
			wantBody:    testURLJSON,
			wantCalled:  true,
		},
		{
			name:        "Invalid long url",
			body:        `{"longUrl":"not a url"}`,
			contentType: "application/json",
			shortenErr:  service.ErrInvalidURL,
			wantStatus:  http.StatusBadRequest,
			wantBody:    `{"error":"Invalid long url"}`,
			wantCalled:  true,
		},
		{
			name:        "Server error",
			body:        `{"longUrl":"https://example.com"}`,
			contentType: "application/json",
			shortenErr:  errors.New("database is locked"),
			wantStatus:  http.StatusInternalServerError,
			wantBody:    `{"error":"Server error"}`,
			wantCalled:  true,
		},
		{
			name:        "Malformed JSON",
			body:        `{"longUrl":`,
			contentType: "application/json",
			wantStatus:  http.StatusBadRequest,
			wantBody:    `{"error":"Invalid request body"}`,
		},
		{
			name:        "Wrong content type",
			body:        "https://example.com",
			contentType: "text/plain",
			wantStatus:  http.StatusUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			mockService := &MockURLService{
				ShortenFunc: func(ctx context.Context, longURL string) (model.URL, error) {
					called = true
					return tt.shortenURL, tt.shortenErr
				},
			}

			req := httptest.NewRequest(http.MethodPost, "/api/url/shorten", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rr := httptest.NewRecorder()

			NewHandler(mockService).RegisterRoutes().ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalled, called)
			if tt.wantBody != "" {
				assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
				assert.JSONEq(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestHandleShorten_PassesLongURL(t *testing.T) {
	var got string
	mockService := &MockURLService{
		ShortenFunc: func(ctx context.Context, longURL string) (model.URL, error) {
			got = longURL
			return testURL, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/url/shorten", strings.NewReader(`{"longUrl":"https://golang.org/doc"}`))
	req.Header.Set("Content-Type", "application/json")

	NewHandler(mockService).RegisterRoutes().ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "https://golang.org/doc", got)
}

func TestHandleShorten_RateLimitKeysOnPeerAddress(t *testing.T) {
	mockService := &MockURLService{
		ShortenFunc: func(ctx context.Context, longURL string) (model.URL, error) {
			return testURL, nil
		},
	}

	send := func(router http.Handler, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/url/shorten", strings.NewReader(`{"longUrl":"https://example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwardedFor)
		req.RemoteAddr = "192.0.2.10:4321"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	t.Run("forwarded headers ignored by default", func(t *testing.T) {
		router := NewHandler(mockService, WithRateLimiter(middleware.NewRateLimiter(1, 1))).RegisterRoutes()

		assert.Equal(t, http.StatusCreated, send(router, "203.0.113.1"))

		rejected := 0
		for i := 2; i <= 50; i++ {
			if send(router, fmt.Sprintf("203.0.113.%d", i)) == http.StatusTooManyRequests {
				rejected++
			}
		}
		assert.GreaterOrEqual(t, rejected, 45, "rotating X-Forwarded-For must not refill the bucket")
	})

	t.Run("trusted proxy", func(t *testing.T) {
		limiter := middleware.NewRateLimiter(1, 1)
		router := NewHandler(mockService, WithRateLimiter(limiter), WithTrustedProxy(true)).RegisterRoutes()

		assert.Equal(t, http.StatusCreated, send(router, "203.0.113.1"))
		assert.Equal(t, http.StatusTooManyRequests, send(router, "203.0.113.1"))
		assert.Equal(t, http.StatusCreated, send(router, "203.0.113.2"))
		assert.Equal(t, 2, limiter.Clients())
	})
}

func TestHandleShorten_BodyTooLarge(t *testing.T) {
	mockService := &MockURLService{
		ShortenFunc: func(ctx context.Context, longURL string) (model.URL, error) {
			t.Fatal("service must not be called for oversized bodies")
			return model.URL{}, nil
		},
	}

	huge := fmt.Sprintf(`{"longUrl":"https://example.com/%s"}`, strings.Repeat("a", maxBodySize))
	req := httptest.NewRequest(http.MethodPost, "/api/url/shorten", bytes.NewBufferString(huge))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	NewHandler(mockService).RegisterRoutes().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestHandleLookup(t *testing.T) {
	tests := []struct {
		name       string
		lookupURL  model.URL
		lookupErr  error
		wantStatus int
		wantBody   string
	}{
		{name: "Found", lookupURL: testURL, wantStatus: http.StatusOK, wantBody: testURLJSON},
		{name: "Not found", lookupErr: storage.ErrNotFound, wantStatus: http.StatusNotFound, wantBody: `{"error":"No url found"}`},
		{name: "Server error", lookupErr: errors.New("timeout"), wantStatus: http.StatusInternalServerError, wantBody: `{"error":"Server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockURLService{
				LookupFunc: func(ctx context.Context, code string) (model.URL, error) {
					assert.Equal(t, "abc12345", code)
					return tt.lookupURL, tt.lookupErr
				},
			}

			rr := httptest.NewRecorder()
			NewHandler(mockService).RegisterRoutes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/url/abc12345", nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
		})
	}
}
