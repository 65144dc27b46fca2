// Package nlsearch implements the natural-language search pipeline:
//
//	query → tag extraction → resource lookup → link verification → items
//
// Guidance messages are produced when no tag matches or when the query
// spans several categories.
package nlsearch

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/smartfetcher/smartfetcher/internal/linkverify"
	"github.com/smartfetcher/smartfetcher/pkg/contracts"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

const (
	// DefaultResultCap applies when the caller gives no limit.
	DefaultResultCap = 5

	// suggestionCount is how many tags a no-match message suggests.
	suggestionCount = 3
)

var tracer = otel.Tracer("smartfetcher/nlsearch")

// Orchestrator implements contracts.ResourceSearcher.
type Orchestrator struct {
	extractor  contracts.TagExtractor
	index      contracts.ResourceIndex
	defaultCap int
}

// New creates an orchestrator. defaultCap <= 0 uses DefaultResultCap.
func New(ex contracts.TagExtractor, index contracts.ResourceIndex, defaultCap int) *Orchestrator {
	if defaultCap <= 0 {
		defaultCap = DefaultResultCap
	}
	return &Orchestrator{extractor: ex, index: index, defaultCap: defaultCap}
}

// DefaultCap returns the cap used when Search is called with limit <= 0.
func (o *Orchestrator) DefaultCap() int { return o.defaultCap }

// Search runs the pipeline. limit <= 0 means the default cap.
func (o *Orchestrator) Search(ctx context.Context, query string, limit int) (*models.NLSearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = o.defaultCap
	}

	ctx, span := tracer.Start(ctx, "nlsearch.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("nlsearch.query_len", len(query)), attribute.Int("nlsearch.cap", limit))

	extraction := o.extractor.Extract(ctx, query)

	// No match: suggest tags instead of returning nothing silently.
	if len(extraction.Tags) == 0 {
		suggestions := o.index.UniqueTags(ctx)
		if len(suggestions) > suggestionCount {
			suggestions = suggestions[:suggestionCount]
		}
		msg := fmt.Sprintf("No matching resources found. Try searching with tags like: %s", strings.Join(suggestions, ", "))
		log.Info().Str("query", query).Msg("No tags extracted")
		span.SetAttributes(attribute.String("nlsearch.outcome", "no_match"))
		return &models.NLSearchResult{
			Items:         []models.ResourceItem{},
			Message:       &msg,
			CandidateTags: suggestions,
			Reasoning:     extraction.Reasoning,
		}, nil
	}

	items := o.collect(ctx, query, extraction.Tags, limit)
	span.SetAttributes(attribute.Int("nlsearch.results", len(items)))

	if extraction.Ambiguous && len(extraction.Tags) > 1 {
		msg := fmt.Sprintf("Your query matches multiple categories. Did you mean: %s? Please refine your query.",
			strings.Join(extraction.Tags, ", "))
		log.Info().Str("query", query).Strs("tags", extraction.Tags).Msg("Ambiguous query")
		span.SetAttributes(attribute.String("nlsearch.outcome", "ambiguous"))
		return &models.NLSearchResult{
			Items:         items,
			Message:       &msg,
			CandidateTags: append([]string(nil), extraction.Tags...),
			Reasoning:     extraction.Reasoning,
		}, nil
	}

	log.Info().Str("query", query).Int("results", len(items)).Msg("Returning verified resource items")
	span.SetAttributes(attribute.String("nlsearch.outcome", "standard"))
	return &models.NLSearchResult{
		Items:         items,
		CandidateTags: []string{},
		Reasoning:     extraction.Reasoning,
	}, nil
}

// collect walks resources tag by tag in extractor order and keeps up to limit
// items whose link verifies. Items that fail verification are logged and
// dropped.
func (o *Orchestrator) collect(ctx context.Context, query string, tags []string, limit int) []models.ResourceItem {
	items := make([]models.ResourceItem, 0, limit)
	for _, tag := range tags {
		for _, r := range o.index.ListByTag(ctx, tag) {
			if len(items) == limit {
				return items
			}
			item := models.NewResourceItem(&r, tags)

			res, err := linkverify.VerifyInternalLink(ctx, item.Link, o.index)
			if err != nil {
				log.Error().Err(err).Str("id", item.ID).Str("query", query).Msg("Link verification error; dropping item")
				continue
			}
			if !res.Valid {
				log.Error().Str("id", item.ID).Str("reason", *res.Error).Str("query", query).Msg("Link verification failed; dropping item")
				continue
			}
			items = append(items, item)
		}
	}
	return items
}
