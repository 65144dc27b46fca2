// Package extractor turns free-text queries into canonical resource tags.
//
// Two modes are chosen at construction: LLM-backed when a completion client
// is supplied, keyword matching otherwise. The LLM path falls back to keyword
// matching on any backend error or when the model names no valid tag. Both
// paths feed their raw candidates through the same allow-list stage, so no
// tag outside the canonical set ever leaves this package.
package extractor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/smartfetcher/smartfetcher/pkg/contracts"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

const (
	// DefaultAmbiguityThreshold is compared against 1 - confidence.
	DefaultAmbiguityThreshold = 0.15

	// MaxLLMTags caps how many tags the LLM path may return.
	MaxLLMTags = 3

	// KeywordReasoning is reported when keyword matching found a tag.
	KeywordReasoning = "Keyword-based matching (fallback mode)"

	defaultMaxTokens = 256
)

var tracer = otel.Tracer("smartfetcher/extractor")

// Extractor implements contracts.TagExtractor.
type Extractor struct {
	client    contracts.CompletionClient
	tags      []string
	canonical map[string]string // lower-case → canonical spelling
	patterns  []*regexp.Regexp  // parallel to tags
	threshold float64
	maxTokens int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithAmbiguityThreshold overrides DefaultAmbiguityThreshold.
func WithAmbiguityThreshold(t float64) Option {
	return func(e *Extractor) { e.threshold = t }
}

// WithMaxTokens bounds the completion length of the LLM path.
func WithMaxTokens(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// New builds an extractor over the canonical tags. A nil client selects
// keyword mode for the extractor's lifetime.
func New(client contracts.CompletionClient, tags []string, opts ...Option) *Extractor {
	e := &Extractor{
		client:    client,
		tags:      append([]string(nil), tags...),
		canonical: make(map[string]string, len(tags)),
		patterns:  make([]*regexp.Regexp, len(tags)),
		threshold: DefaultAmbiguityThreshold,
		maxTokens: defaultMaxTokens,
	}
	for i, t := range e.tags {
		e.canonical[strings.ToLower(t)] = t
		e.patterns[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(t) + `\b`)
	}
	for _, opt := range opts {
		opt(e)
	}
	if client == nil {
		log.Warn().Msg("Tag extractor has no model backend; using keyword matching")
	}
	return e
}

// Mode reports which path Extract tries first.
func (e *Extractor) Mode() models.ExtractionMode {
	if e.client == nil {
		return models.ExtractionModeKeyword
	}
	return models.ExtractionModeLLM
}

// Tags returns the canonical tag set.
func (e *Extractor) Tags() []string {
	return append([]string(nil), e.tags...)
}

// Extract never fails: backend problems degrade to keyword matching.
func (e *Extractor) Extract(ctx context.Context, query string) *models.TagExtractionResult {
	ctx, span := tracer.Start(ctx, "extractor.Extract")
	defer span.End()

	var res *models.TagExtractionResult
	if e.client != nil {
		var err error
		res, err = e.extractLLM(ctx, query)
		if err != nil {
			log.Warn().Err(err).Str("query", query).Msg("LLM tag extraction failed; falling back to keyword matching")
			res = nil
		}
	}
	if res == nil {
		res = e.extractKeywords(query)
	}

	span.SetAttributes(
		attribute.String("extractor.mode", string(res.Mode)),
		attribute.Int("extractor.tags", len(res.Tags)),
		attribute.Bool("extractor.ambiguous", res.Ambiguous),
	)
	log.Info().
		Str("query", query).
		Strs("tags", res.Tags).
		Float64("confidence", res.Confidence).
		Bool("ambiguous", res.Ambiguous).
		Str("mode", string(res.Mode)).
		Msg("Tags extracted")
	return res
}

// extractLLM returns (nil, nil) when the model produced no valid tag.
func (e *Extractor) extractLLM(ctx context.Context, query string) (*models.TagExtractionResult, error) {
	temp := 0.0
	resp, err := e.client.Complete(ctx, &models.CompletionRequest{
		Messages: []models.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Query: %s\nAvailable tags: %s", query, strings.Join(e.tags, ", "))},
		},
		MaxTokens:   e.maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return nil, err
	}

	rawTags, reasoning := parseCompletion(resp.Content)
	tags := e.allowList(splitTags(rawTags), MaxLLMTags)
	if len(tags) == 0 {
		log.Info().Str("query", query).Str("raw", rawTags).Msg("Model named no valid tag; falling back to keyword matching")
		return nil, nil
	}

	confidence := 1.0
	if len(tags) > 1 {
		confidence = 0.7
	}
	return &models.TagExtractionResult{
		Tags:       tags,
		Confidence: confidence,
		Ambiguous:  len(tags) > 1 && (1.0-confidence) < e.threshold,
		Reasoning:  reasoning,
		Mode:       models.ExtractionModeLLM,
	}, nil
}

func (e *Extractor) extractKeywords(query string) *models.TagExtractionResult {
	var candidates []string
	for i, p := range e.patterns {
		if p.MatchString(query) {
			candidates = append(candidates, e.tags[i])
		}
	}
	tags := e.allowList(candidates, 0)

	res := &models.TagExtractionResult{Tags: tags, Mode: models.ExtractionModeKeyword}
	switch {
	case len(tags) == 1:
		res.Confidence = 1.0
		res.Reasoning = KeywordReasoning
	case len(tags) > 1:
		res.Confidence = 0.5
		res.Ambiguous = true
		res.Reasoning = KeywordReasoning
	default:
		res.Tags = []string{}
	}
	return res
}

// allowList keeps candidates that name a canonical tag, mapped to canonical
// spelling, de-duplicated, in candidate order. limit <= 0 keeps all.
func (e *Extractor) allowList(candidates []string, limit int) []string {
	out := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		tag, ok := e.canonical[strings.ToLower(c)]
		if !ok {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
