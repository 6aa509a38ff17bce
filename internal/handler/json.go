package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/MikhailRaia/urlshort/internal/model"
	"github.com/MikhailRaia/urlshort/internal/service"
	"github.com/MikhailRaia/urlshort/internal/storage"
)

func (h *Handler) handleShorten(w http.ResponseWriter, r *http.Request) {
	var request model.ShortenRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	url, err := h.urlService.Shorten(r.Context(), request.LongURL)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, url)
	case errors.Is(err, storage.ErrURLExists):
		writeJSON(w, http.StatusOK, url)
	case errors.Is(err, service.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, msgInvalidURL)
	default:
		log.Error().Err(err).Str("long_url", request.LongURL).Msg("Failed to shorten URL")
		writeError(w, http.StatusInternalServerError, msgServerError)
	}
}

func (h *Handler) handleShortenBatch(w http.ResponseWriter, r *http.Request) {
	var items []model.BatchRequestItem
	if !decodeJSON(w, r, &items) {
		return
	}

	result, err := h.urlService.ShortenBatch(r.Context(), items)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, result)
	case errors.Is(err, service.ErrEmptyBatch):
		writeError(w, http.StatusBadRequest, "Empty batch")
	case errors.Is(err, service.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, msgInvalidURL)
	default:
		log.Error().Err(err).Int("items", len(items)).Msg("Failed to shorten batch")
		writeError(w, http.StatusInternalServerError, msgServerError)
	}
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	url, err := h.urlService.Lookup(r.Context(), code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgNotFound)
			return
		}

		log.Error().Err(err).Str("code", code).Msg("Failed to look up short code")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	writeJSON(w, http.StatusOK, url)
}
