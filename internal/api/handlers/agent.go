package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// ══════════════════════════════════════════════════════════════
// ── Experimental Agent ───────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// RunAgent serves POST /experimental/agent.
//
// The agent runs under AgentTimeout; when it elapses the caller gets 504
// TOOL_TIMEOUT and the run is cancelled through its context. A request for
// sources that ends with no verified citation is a 404, distinguishing
// "every candidate was fabricated" from "nothing matched".
func (h *Handlers) RunAgent(w http.ResponseWriter, r *http.Request) {
	var req models.AgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", CodeInvalidRequest, "")
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		respondError(w, http.StatusBadRequest, "Query is required", CodeInvalidRequest, "")
		return
	}
	if utf8.RuneCountInString(query) > MaxAgentQueryLen {
		respondError(w, http.StatusBadRequest, "Query exceeds maximum length of 4000 characters", CodeInvalidRequest, echo(query))
		return
	}

	maxTokens := h.AgentMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	if maxTokens < MinAgentTokens || maxTokens > MaxAgentTokens {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("max_tokens must be between %d and %d", MinAgentTokens, MaxAgentTokens), CodeInvalidRequest, query)
		return
	}

	if h.Agent == nil {
		respondError(w, http.StatusInternalServerError, "Agent is not configured", models.AgentCodeInternalError, query)
		return
	}

	ctx := r.Context()
	if h.AgentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.AgentTimeout)
		defer cancel()
	}

	done := make(chan *models.AgentResult, 1)
	go func() {
		done <- h.Agent.Run(ctx, query, req.IncludeSources, maxTokens)
	}()

	var res *models.AgentResult
	select {
	case res = <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn().Dur("timeout", h.AgentTimeout).Str("query", query).Msg("Agent timed out")
			respondError(w, http.StatusGatewayTimeout,
				fmt.Sprintf("Agent did not finish within %s", h.AgentTimeout), models.AgentCodeToolTimeout, query)
		}
		return
	}

	if res.Failed() {
		respondJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: res.Error, Code: res.Code, Query: query})
		return
	}

	if req.IncludeSources && res.Status == models.AgentStatusSuccess && len(res.Resources) == 0 {
		if res.CandidateSources > 0 {
			log.Warn().Str("session_id", res.SessionID).Int("candidates", res.CandidateSources).Msg("All candidate citations failed validation")
			respondError(w, http.StatusNotFound, "No valid resources could be verified for this query", models.AgentCodeNoValidResources, query)
		} else {
			respondError(w, http.StatusNotFound, "No resources found for this query", models.AgentCodeNoResourcesFound, query)
		}
		return
	}

	respondJSON(w, http.StatusOK, res)
}
