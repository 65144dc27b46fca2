package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/smartfetcher/smartfetcher/internal/llm"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// NLSearch serves GET /nl/search?q=.
func (h *Handlers) NLSearch(w http.ResponseWriter, r *http.Request) {
	q, ok, tooLong := boundedParam(r, "q", MaxNLQueryLen)
	if !ok {
		respondError(w, http.StatusBadRequest, "Query parameter 'q' is required", CodeMissingQuery, r.URL.Query().Get("q"))
		return
	}
	if tooLong {
		respondError(w, http.StatusBadRequest, "Query exceeds maximum length of 1000 characters", CodeQueryTooLong, echo(q))
		return
	}

	res, err := h.Searcher.Search(r.Context(), q, 0)
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrBackendUnavailable):
			respondError(w, http.StatusServiceUnavailable, "Natural language search service is unavailable", CodeServiceUnavailable, q)
		case errors.Is(err, context.Canceled):
			// client went away
		default:
			log.Error().Err(err).Str("query", q).Msg("NL search failed")
			respondError(w, http.StatusInternalServerError, "Natural language search failed", models.AgentCodeInternalError, q)
		}
		return
	}

	items := res.Items
	if items == nil {
		items = []models.ResourceItem{}
	}
	candidates := res.CandidateTags
	if candidates == nil {
		candidates = []string{}
	}
	respondJSON(w, http.StatusOK, models.NLSearchResponse{
		Results:       items,
		Count:         len(items),
		Query:         q,
		Message:       res.Message,
		CandidateTags: candidates,
		Reasoning:     res.Reasoning,
	})
}
