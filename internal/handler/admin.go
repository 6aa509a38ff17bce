package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/MikhailRaia/urlshort/internal/middleware"
	"github.com/MikhailRaia/urlshort/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit = defaultListLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			return 0, 0, errors.New("invalid limit")
		}
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, errors.New("invalid offset")
		}
	}

	return limit, offset, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pagination")
		return
	}

	urls, err := h.urlService.List(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list URLs")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	writeJSON(w, http.StatusOK, urls)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.urlService.Stats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to collect stats")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.urlService.Delete(r.Context(), code); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgNotFound)
			return
		}

		log.Error().Err(err).Str("code", code).Msg("Failed to delete URL")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	subject := ""
	if claims, ok := middleware.GetClaimsFromContext(r.Context()); ok {
		subject = claims.Subject
	}
	log.Info().Str("code", code).Str("subject", subject).Msg("URL deleted")

	w.WriteHeader(http.StatusNoContent)
}
