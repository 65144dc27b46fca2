// Package agent implements the experimental retrieval agent.
//
// Each Run is a bounded tool-calling loop:
//
//	build messages → call model → if tool_calls, execute each via the MCP
//	gateway → feed results back → repeat until an answer or the iteration
//	limit, then force a final answer.
//
// When sources are requested the agent searches again on the original query
// and returns only citations whose links verify. Fabricated links are logged
// and dropped.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/smartfetcher/smartfetcher/internal/mcpgw"
	"github.com/smartfetcher/smartfetcher/internal/sessionlog"
	"github.com/smartfetcher/smartfetcher/internal/tools"
	"github.com/smartfetcher/smartfetcher/pkg/contracts"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

const (
	// DefaultMaxIterations bounds the tool loop.
	DefaultMaxIterations = 5

	// DefaultMaxTokens is used when Run is given maxTokens <= 0.
	DefaultMaxTokens = 1024

	// citationLimit is how many search hits are considered as citations.
	citationLimit = 3
)

// User-facing messages.
const (
	UnavailableMessage = "Agent is currently unavailable. The language model backend could not be initialized. " +
		"Please check that Ollama is running and the configured model is available."
	UnexpectedMessage = "An unexpected error occurred while processing your query."
	NoEvidenceAnswer  = "I couldn't find sufficient information to answer your query. " +
		"This might be because the query is too specific, too broad, or the relevant resources are not yet in the system. " +
		"Try rephrasing your query or making it more specific."
)

// ErrNoEvidence is returned by the loop when the model produced no answer.
var ErrNoEvidence = errors.New("no resources found")

var tracer = otel.Tracer("smartfetcher/agent")

// Agent runs retrieval sessions. It is safe for concurrent use.
type Agent struct {
	client        contracts.CompletionClient
	gateway       *mcpgw.Gateway
	searcher      contracts.ResourceSearcher
	checker       contracts.LinkChecker
	events        *sessionlog.Logger
	audit         zerolog.Logger
	maxIterations int

	available bool
}

// Option configures an Agent.
type Option func(*Agent)

// WithMaxIterations overrides DefaultMaxIterations.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithSessionLogger sets the session event log.
func WithSessionLogger(l *sessionlog.Logger) Option {
	return func(a *Agent) { a.events = l }
}

// WithAuditLogger sets where hallucination and validation events go.
func WithAuditLogger(l zerolog.Logger) Option {
	return func(a *Agent) { a.audit = l }
}

// New builds an agent. The agent is unavailable for its whole lifetime when
// client is nil or gw lacks either agent tool.
func New(client contracts.CompletionClient, gw *mcpgw.Gateway, searcher contracts.ResourceSearcher, checker contracts.LinkChecker, opts ...Option) *Agent {
	a := &Agent{
		client:        client,
		gateway:       gw,
		searcher:      searcher,
		checker:       checker,
		events:        sessionlog.Nop(),
		audit:         log.Logger,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.init(); err != nil {
		a.events.ToolAction(sessionlog.WithSession(context.Background(), "system"), "agent_init", nil, "Failed to initialize: "+err.Error())
		log.Warn().Err(err).Msg("Retrieval agent unavailable")
		return a
	}
	a.available = true
	log.Info().Int("max_iterations", a.maxIterations).Str("model", client.Model()).Msg("Retrieval agent initialized")
	return a
}

func (a *Agent) init() error {
	if a.client == nil {
		return errors.New("no language model backend")
	}
	if a.gateway == nil || a.searcher == nil || a.checker == nil {
		return errors.New("missing tool dependencies")
	}
	have := make(map[string]bool)
	for _, t := range a.gateway.Tools() {
		have[t.Name] = true
	}
	for _, name := range []string{tools.SearchResourcesName, tools.ValidateResourceName} {
		if !have[name] {
			return fmt.Errorf("tool %q not registered", name)
		}
	}
	return nil
}

// Available reports whether construction succeeded.
func (a *Agent) Available() bool { return a.available }

// Run answers query. It never returns a Go error: failures are reported in
// the result's Code.
func (a *Agent) Run(ctx context.Context, query string, includeSources bool, maxTokens int) *models.AgentResult {
	sessionID := uuid.New().String()
	ctx = sessionlog.WithSession(ctx, sessionID)
	ctx, span := tracer.Start(ctx, "agent.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("agent.session_id", sessionID),
		attribute.Bool("agent.include_sources", includeSources),
	)

	a.events.SessionStart(sessionID, query)
	result := &models.AgentResult{
		Query:     query,
		Meta:      models.AgentMeta{Experimental: true},
		SessionID: sessionID,
	}

	if !a.available {
		a.events.SessionEnd(sessionID, string(models.AgentStatusToolError), "")
		return fail(result, UnavailableMessage)
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	answer, err := a.loop(ctx, query, maxTokens)
	var citations []models.AgentCitation
	if err == nil && includeSources {
		citations, result.CandidateSources, err = a.citations(ctx, query, sessionID)
	}

	if err != nil {
		if isNoEvidence(err) {
			a.events.SessionEnd(sessionID, string(models.AgentStatusNoEvidence), NoEvidenceAnswer)
			span.SetAttributes(attribute.String("agent.status", string(models.AgentStatusNoEvidence)))
			result.Answer = NoEvidenceAnswer
			result.Status = models.AgentStatusNoEvidence
			return result
		}
		a.events.SessionEnd(sessionID, string(models.AgentStatusToolError), "")
		a.events.ToolAction(ctx, "agent_run", map[string]interface{}{"query": query}, "Unexpected error: "+err.Error())
		span.RecordError(err)
		return fail(result, UnexpectedMessage)
	}

	a.events.SessionEnd(sessionID, string(models.AgentStatusSuccess), answer)
	span.SetAttributes(
		attribute.String("agent.status", string(models.AgentStatusSuccess)),
		attribute.Int("agent.citations", len(citations)),
	)
	result.Answer = answer
	result.Status = models.AgentStatusSuccess
	if includeSources && len(citations) > 0 {
		result.Resources = citations
	}
	return result
}

func fail(r *models.AgentResult, msg string) *models.AgentResult {
	r.Error = msg
	r.Code = models.AgentCodeInternalError
	r.Status = models.AgentStatusToolError
	return r
}

func isNoEvidence(err error) bool {
	if errors.Is(err, ErrNoEvidence) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no resources found") || strings.Contains(msg, "no information")
}
