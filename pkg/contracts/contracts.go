// Package contracts defines the service interfaces shared by the smart
// resource fetcher components.
//
// Concrete implementations live in internal/. Components depend on these
// interfaces so tests can swap in fakes (a scripted completion client, a
// fixed index) without standing up the model backend.
package contracts

import (
	"context"

	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// ── Resource Index ──────────────────────────────────────────

// ResourceIndex is the read-only lookup contract over the resource dataset.
// Implementation: internal/store.MemoryIndex
type ResourceIndex interface {
	// Get returns the resource with the given id, or a *store.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Resource, error)

	// ListByTag returns resources carrying tag in insertion order.
	ListByTag(ctx context.Context, tag string) []models.Resource

	// List returns every resource in insertion order.
	List(ctx context.Context) []models.Resource

	// UniqueTags returns each tag once, in order of first occurrence.
	UniqueTags(ctx context.Context) []string

	// Count returns the number of resources.
	Count() int
}

// ── Model Backend ───────────────────────────────────────────

// CompletionClient sends chat completions to a language-model backend.
// Implementations: internal/llm.OllamaClient, internal/llm.CachedClient
type CompletionClient interface {
	Complete(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResponse, error)

	// Model returns the configured model name.
	Model() string
}

// ── Core Services ───────────────────────────────────────────

// TagExtractor turns a free-text query into candidate tags.
// Implementation: internal/extractor.Extractor
type TagExtractor interface {
	Extract(ctx context.Context, query string) *models.TagExtractionResult
}

// ResourceSearcher runs the natural-language search pipeline.
// Implementation: internal/nlsearch.Orchestrator
type ResourceSearcher interface {
	// Search returns up to limit items; limit <= 0 means the configured default.
	Search(ctx context.Context, query string, limit int) (*models.NLSearchResult, error)
}

// LinkChecker decides whether a cited link can be trusted.
// Implementation: internal/linkverify.Verifier
type LinkChecker interface {
	VerifyLink(ctx context.Context, link string) (bool, error)
}

// TagMatcher finds resources whose tag is semantically related to a tag.
// Implementation: internal/semantic.Finder
type TagMatcher interface {
	FindMatching(ctx context.Context, tag string) ([]models.Resource, error)
}

// ── Agent ───────────────────────────────────────────────────

// AgentRunner answers a question with the retrieval agent. Failures are
// reported inside the result, never as a Go error.
// Implementation: internal/agent.Agent
type AgentRunner interface {
	Run(ctx context.Context, query string, includeSources bool, maxTokens int) *models.AgentResult
}
