package models

import (
	"encoding/json"
	"strings"
)

// ── Resources ───────────────────────────────────────────────

// ResourceLinkPrefix is the path prefix of every internal resource link.
const ResourceLinkPrefix = "/resources/"

// SummaryMaxLen is the description length kept in a ResourceItem summary.
const SummaryMaxLen = 200

// Resource is a single retrievable record. Resources are generated once at
// startup and never mutated.
type Resource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tag         string `json:"tag"`
}

// Link returns the internal link for the resource.
func (r *Resource) Link() string {
	return ResourceLink(r.ID)
}

// ResourceLink builds "/resources/{id}".
func ResourceLink(id string) string {
	return ResourceLinkPrefix + id
}

// ResourceItem is the search-result view of a Resource.
type ResourceItem struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Summary string   `json:"summary"`
	Link    string   `json:"link"`
	Tags    []string `json:"tags"`
}

// NewResourceItem builds an item for r. tags is the tag list that drove the
// search, not necessarily the resource's own tag.
func NewResourceItem(r *Resource, tags []string) ResourceItem {
	t := make([]string, len(tags))
	copy(t, tags)
	return ResourceItem{
		ID:      r.ID,
		Name:    r.Name,
		Summary: Summarize(r.Description),
		Link:    r.Link(),
		Tags:    t,
	}
}

// Summarize truncates a description to SummaryMaxLen characters followed by
// "..." when it is longer.
func Summarize(description string) string {
	runes := []rune(description)
	if len(runes) <= SummaryMaxLen {
		return description
	}
	return string(runes[:SummaryMaxLen]) + "..."
}

// ── Tag Extraction ──────────────────────────────────────────

// ExtractionMode records which extractor path produced a result.
type ExtractionMode string

const (
	ExtractionModeLLM     ExtractionMode = "llm"
	ExtractionModeKeyword ExtractionMode = "keyword"
)

// TagExtractionResult is the outcome of turning a query into candidate tags.
type TagExtractionResult struct {
	Tags       []string       `json:"tags"`
	Confidence float64        `json:"confidence"`
	Ambiguous  bool           `json:"ambiguous"`
	Reasoning  string         `json:"reasoning"`
	Mode       ExtractionMode `json:"mode,omitempty"`
}

// ── Link Verification ───────────────────────────────────────

// LinkVerificationResult reports whether an internal link resolves.
// Valid implies ID is set and exists; !Valid implies Error is set.
type LinkVerificationResult struct {
	Valid bool    `json:"valid"`
	ID    *string `json:"id"`
	Error *string `json:"error"`
}

// ── NL Search ───────────────────────────────────────────────

// NLSearchResult is the orchestrator output for a natural-language query.
type NLSearchResult struct {
	Items         []ResourceItem `json:"items"`
	Message       *string        `json:"message"`
	CandidateTags []string       `json:"candidate_tags"`
	Reasoning     string         `json:"reasoning"`
}

// ── Agent ───────────────────────────────────────────────────

// AgentStatus is the terminal state of one agent invocation.
type AgentStatus string

const (
	AgentStatusSuccess    AgentStatus = "success"
	AgentStatusNoEvidence AgentStatus = "no_evidence"
	AgentStatusToolError  AgentStatus = "tool_error"
)

// Agent error codes.
const (
	AgentCodeInternalError    = "INTERNAL_ERROR"
	AgentCodeToolTimeout      = "TOOL_TIMEOUT"
	AgentCodeNoValidResources = "NO_VALID_RESOURCES"
	AgentCodeNoResourcesFound = "NO_RESOURCES_FOUND"
)

// AgentCitation is a verified reference attached to an agent answer.
type AgentCitation struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Summary *string `json:"summary,omitempty"`
}

// AgentRequest is the body of POST /experimental/agent.
type AgentRequest struct {
	Query          string `json:"query"`
	IncludeSources bool   `json:"include_sources"`
	MaxTokens      *int   `json:"max_tokens,omitempty"`
}

// AgentMeta is attached to every agent response.
type AgentMeta struct {
	Experimental bool `json:"experimental"`
}

// AgentResult is what the retrieval agent returns for one run.
type AgentResult struct {
	Answer    string          `json:"answer,omitempty"`
	Query     string          `json:"query"`
	Meta      AgentMeta       `json:"meta"`
	Resources []AgentCitation `json:"resources,omitempty"`

	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`

	// Not serialized; used by the HTTP boundary.
	Status           AgentStatus `json:"-"`
	SessionID        string      `json:"-"`
	CandidateSources int         `json:"-"`
}

// Failed reports whether the run ended in an error shape.
func (r *AgentResult) Failed() bool {
	return r.Code != ""
}

// ── Health ──────────────────────────────────────────────────

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type BackendStatus string

const (
	BackendConnected       BackendStatus = "connected"
	BackendModelNotRunning BackendStatus = "model_not_running"
	BackendDisconnected    BackendStatus = "disconnected"
)

// HealthSnapshot is computed once at startup and served verbatim.
type HealthSnapshot struct {
	Status          HealthStatus  `json:"status"`
	BackendStatus   BackendStatus `json:"backend_status"`
	BackendMessage  string        `json:"backend_message"`
	ModelName       string        `json:"model_name"`
	ResourcesLoaded int           `json:"resources_loaded"`
}

// ── API Responses ───────────────────────────────────────────

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Query string `json:"query"`
}

type SearchResponse struct {
	Results []Resource `json:"results"`
	Count   int        `json:"count"`
	Query   string     `json:"query"`
}

type ResourceResponse struct {
	Resource Resource `json:"resource"`
}

type ResourceListResponse struct {
	Resources []Resource `json:"resources"`
	Count     int        `json:"count"`
}

type NLSearchResponse struct {
	Results       []ResourceItem `json:"results"`
	Count         int            `json:"count"`
	Query         string         `json:"query"`
	Message       *string        `json:"message"`
	CandidateTags []string       `json:"candidate_tags"`
	Reasoning     string         `json:"reasoning"`
}

// ── Model Backend ───────────────────────────────────────────

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a chat completion call against the model backend.
type CompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type CompletionResponse struct {
	ID      string     `json:"id"`
	Model   string     `json:"model"`
	Content string     `json:"content"`
	Usage   TokenUsage `json:"usage"`
	Cached  bool       `json:"cached,omitempty"`
}

type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// ── MCP Types ───────────────────────────────────────────────

type MCPRequest struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

type MCPResponse struct {
	Jsonrpc string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type MCPToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"inputSchema,omitempty"`
}

type MCPToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

type MCPToolResult struct {
	Content []MCPContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

type MCPContent struct {
	Type string `json:"type"` // text
	Text string `json:"text,omitempty"`
}

// Text concatenates the text content blocks of a tool result.
func (r *MCPToolResult) Text() string {
	var b strings.Builder
	for _, c := range r.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}
