// Package semantic serves exact-tag search by asking the model which
// resources carry tags related to the requested one.
//
// The model reply is untrusted text: identifiers are pulled out by pattern
// and every one is resolved through the resource index before it is
// returned.
package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/smartfetcher/smartfetcher/internal/llm"
	"github.com/smartfetcher/smartfetcher/pkg/contracts"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

var (
	tracer = otel.Tracer("smartfetcher/semantic")
	idRe   = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
)

const systemPrompt = `You find resources whose tags are semantically related to a search tag.
Consider synonyms, related concepts and contextual similarity.
You receive the search tag and a JSON list of resources with their id and tag.
Reply with a JSON array containing the ids of every matching resource and nothing else.`

// readiness is implemented by clients that can check the backend before a call.
type readiness interface {
	EnsureReady(ctx context.Context) error
}

// Finder matches tags to resources through the model backend.
type Finder struct {
	client  contracts.CompletionClient
	index   contracts.ResourceIndex
	context string
}

type resourceContext struct {
	ID  string `json:"id"`
	Tag string `json:"tag"`
}

// NewFinder pre-renders the resource context sent with every request.
// A nil client makes every search fail with llm.ErrBackendUnavailable.
func NewFinder(client contracts.CompletionClient, index contracts.ResourceIndex) (*Finder, error) {
	all := index.List(context.Background())
	rc := make([]resourceContext, 0, len(all))
	for _, r := range all {
		rc = append(rc, resourceContext{ID: r.ID, Tag: r.Tag})
	}
	raw, err := json.Marshal(rc)
	if err != nil {
		return nil, fmt.Errorf("encode resource context: %w", err)
	}
	return &Finder{client: client, index: index, context: string(raw)}, nil
}

// FindMatching returns resources whose tags the model judged related to tag,
// in the order the model listed them. Unknown ids are dropped.
func (f *Finder) FindMatching(ctx context.Context, tag string) ([]models.Resource, error) {
	if f.client == nil {
		return nil, fmt.Errorf("semantic search: no model configured: %w", llm.ErrBackendUnavailable)
	}

	ctx, span := tracer.Start(ctx, "semantic.FindMatching")
	defer span.End()
	span.SetAttributes(attribute.String("semantic.tag", tag))

	if r, ok := f.client.(readiness); ok {
		if err := r.EnsureReady(ctx); err != nil {
			return nil, err
		}
	}

	temp := 0.0
	resp, err := f.client.Complete(ctx, &models.CompletionRequest{
		Messages: []models.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Search tag: %s\nResources: %s", tag, f.context)},
		},
		Temperature: &temp,
	})
	if err != nil {
		return nil, classify(err)
	}

	results := f.resolve(ctx, resp.Content)
	span.SetAttributes(attribute.Int("semantic.results", len(results)))
	log.Info().Str("tag", tag).Int("results", len(results)).Msg("Semantic tag search complete")
	return results, nil
}

func (f *Finder) resolve(ctx context.Context, reply string) []models.Resource {
	seen := make(map[string]struct{})
	out := []models.Resource{}
	for _, id := range idRe.FindAllString(reply, -1) {
		id = strings.ToLower(id)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		r, err := f.index.Get(ctx, id)
		if err != nil {
			log.Debug().Str("id", id).Msg("Model returned unknown resource id")
			continue
		}
		out = append(out, *r)
	}
	return out
}

// classify maps transport-looking failures onto llm.ErrBackendUnavailable.
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection") || strings.Contains(msg, "refused") || strings.Contains(msg, "timeout") {
		return fmt.Errorf("ollama service unavailable: %w: %w", llm.ErrBackendUnavailable, err)
	}
	return err
}
