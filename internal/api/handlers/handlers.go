// Package handlers implements the HTTP handlers for the smart resource
// fetcher. Every non-2xx response carries a models.ErrorResponse.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/smartfetcher/smartfetcher/pkg/contracts"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// Input bounds enforced at the boundary.
const (
	MaxTagLen        = 100
	MaxNLQueryLen    = 1000
	MaxAgentQueryLen = 4000
	MinAgentTokens   = 128
	MaxAgentTokens   = 4096
)

// Error codes returned by the HTTP layer.
const (
	CodeMissingTag         = "MISSING_TAG"
	CodeTagTooLong         = "TAG_TOO_LONG"
	CodeMissingQuery       = "MISSING_QUERY"
	CodeQueryTooLong       = "QUERY_TOO_LONG"
	CodeInvalidUUID        = "INVALID_UUID"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeResourceNotFound   = "RESOURCE_NOT_FOUND"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Index    contracts.ResourceIndex
	Matcher  contracts.TagMatcher // nil when no model backend is configured
	Searcher contracts.ResourceSearcher
	Agent    contracts.AgentRunner

	// Health is computed once at startup and served as-is.
	Health *models.HealthSnapshot

	AgentTimeout   time.Duration
	AgentMaxTokens int
	Version        string
}

// ══════════════════════════════════════════════════════════════
// ── System Handlers ──────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := h.Health
	if snap == nil {
		snap = &models.HealthSnapshot{Status: models.HealthUnhealthy, BackendStatus: models.BackendDisconnected}
	}
	status := http.StatusOK
	if snap.Status == models.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, snap)
}

func (h *Handlers) VersionInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"version": h.Version,
		"service": "smart-fetcher",
	})
}

// ── Helpers ─────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message, code, query string) {
	respondJSON(w, status, models.ErrorResponse{Error: message, Code: code, Query: query})
}

// echo shortens over-long input before it is reflected in an error body.
func echo(s string) string {
	if utf8.RuneCountInString(s) <= 50 {
		return s
	}
	return string([]rune(s)[:50]) + "..."
}

// boundedParam trims a query parameter and checks it is non-empty and at
// most max characters.
func boundedParam(r *http.Request, name string, max int) (value string, present, tooLong bool) {
	value = strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return "", false, false
	}
	return value, true, utf8.RuneCountInString(value) > max
}
