package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/MikhailRaia/urlshort/internal/pool"
	"github.com/rs/zerolog/log"
)

const compressorPoolSize = 64

type compressor struct {
	*gzip.Writer
}

// Reset detaches the compressor from the previous response.
func (c *compressor) Reset() {
	c.Writer.Reset(io.Discard)
}

var compressors = pool.New(compressorPoolSize, func() *compressor {
	gz, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
	return &compressor{Writer: gz}
})

func compressible(contentType string) bool {
	return strings.Contains(contentType, "application/json") ||
		strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "text/plain")
}

// GzipMiddleware compresses eligible responses with gzip when accepted by the client.
func GzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		wrapper := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapper, r)

		if len(wrapper.body) == 0 || !compressible(w.Header().Get("Content-Type")) {
			w.WriteHeader(wrapper.statusCode)
			w.Write(wrapper.body)
			return
		}

		gz := compressors.Get()
		defer compressors.Put(gz)

		gz.Writer.Reset(w)

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		w.Header().Del("Content-Length")
		w.WriteHeader(wrapper.statusCode)

		if _, err := gz.Write(wrapper.body); err != nil {
			log.Error().Err(err).Msg("Failed to write gzip response")
			return
		}
		if err := gz.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to flush gzip response")
		}
	})
}

// responseWriterWrapper buffers the response so the compression decision
// can be made after the handler sets Content-Type.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

// WriteHeader captures the status code without immediately writing it.
func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
}

// Write appends the byte slice to the body buffer.
func (w *responseWriterWrapper) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return len(b), nil
}

// GzipReader transparently decompresses gzipped request bodies. The
// decompressed body is capped at maxBytes, reading past it fails with
// *http.MaxBytesError. A non-positive maxBytes disables the cap.
func GzipReader(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Content-Encoding") != "gzip" {
				next.ServeHTTP(w, r)
				return
			}

			gzReader, err := gzip.NewReader(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Failed to read gzipped request")
				return
			}
			defer gzReader.Close()

			body := io.NopCloser(gzReader)
			if maxBytes > 0 {
				body = http.MaxBytesReader(w, body, maxBytes)
			}

			r.Body = body
			r.Header.Del("Content-Encoding")
			r.ContentLength = -1

			next.ServeHTTP(w, r)
		})
	}
}
