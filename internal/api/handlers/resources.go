package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/smartfetcher/smartfetcher/internal/llm"
	"github.com/smartfetcher/smartfetcher/internal/store"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// ══════════════════════════════════════════════════════════════
// ── Resource Handlers ────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// SearchByTag serves GET /search?tag=.
func (h *Handlers) SearchByTag(w http.ResponseWriter, r *http.Request) {
	tag, ok, tooLong := boundedParam(r, "tag", MaxTagLen)
	if !ok {
		respondError(w, http.StatusBadRequest, "Tag parameter is required", CodeMissingTag, r.URL.Query().Get("tag"))
		return
	}
	if tooLong {
		respondError(w, http.StatusBadRequest, "Tag exceeds maximum length of 100 characters", CodeTagTooLong, echo(tag))
		return
	}
	if h.Matcher == nil {
		respondError(w, http.StatusServiceUnavailable, "Semantic matching service is unavailable", CodeServiceUnavailable, tag)
		return
	}

	results, err := h.Matcher.FindMatching(r.Context(), tag)
	if err != nil {
		if errors.Is(err, llm.ErrBackendUnavailable) {
			log.Warn().Err(err).Str("tag", tag).Msg("Semantic search backend unavailable")
			respondError(w, http.StatusServiceUnavailable, "Semantic matching service is unavailable", CodeServiceUnavailable, tag)
			return
		}
		log.Error().Err(err).Str("tag", tag).Msg("Semantic search failed")
		respondError(w, http.StatusInternalServerError, "Semantic search failed", models.AgentCodeInternalError, tag)
		return
	}
	if results == nil {
		results = []models.Resource{}
	}
	respondJSON(w, http.StatusOK, models.SearchResponse{Results: results, Count: len(results), Query: tag})
}

func (h *Handlers) ListResources(w http.ResponseWriter, r *http.Request) {
	resources := h.Index.List(r.Context())
	if resources == nil {
		resources = []models.Resource{}
	}
	respondJSON(w, http.StatusOK, models.ResourceListResponse{Resources: resources, Count: len(resources)})
}

func (h *Handlers) GetResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !store.ValidID(id) {
		respondError(w, http.StatusBadRequest, "Invalid UUID format", CodeInvalidUUID, id)
		return
	}

	res, err := h.Index.Get(r.Context(), strings.ToLower(id))
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "Resource not found", CodeResourceNotFound, id)
		} else {
			respondError(w, http.StatusInternalServerError, err.Error(), models.AgentCodeInternalError, id)
		}
		return
	}
	respondJSON(w, http.StatusOK, models.ResourceResponse{Resource: *res})
}
