package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/smartfetcher/smartfetcher/internal/sessionlog"
	"github.com/smartfetcher/smartfetcher/internal/tools"
	"github.com/smartfetcher/smartfetcher/pkg/contracts"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// citations searches the original query independently of the tool trace and
// returns the verified subset of the top hits along with how many hits were
// considered.
func (a *Agent) citations(ctx context.Context, query, sessionID string) ([]models.AgentCitation, int, error) {
	ctx, span := tracer.Start(ctx, "agent.citations")
	defer span.End()

	res, err := a.searcher.Search(ctx, query, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("citation search: %w", err)
	}
	items := res.Items
	if len(items) > citationLimit {
		items = items[:citationLimit]
	}
	a.events.ToolAction(ctx, "citation_search", map[string]interface{}{"query": query}, fmt.Sprintf("Found %d candidates", len(items)))

	return FilterCitations(ctx, a.checker, a.audit, items, query, sessionID), len(items), nil
}

// FilterCitations keeps the items whose link verifies, in order. Rejected
// links are logged as hallucinations; a verification error counts as a
// rejection.
func FilterCitations(ctx context.Context, checker contracts.LinkChecker, audit zerolog.Logger, items []models.ResourceItem, query, sessionID string) []models.AgentCitation {
	if sessionID == "" {
		sessionID = sessionlog.SessionID(ctx)
	}
	var out []models.AgentCitation
	for _, it := range items {
		valid, err := tools.CheckLink(ctx, checker, it.Link)
		if err != nil {
			safeLog(func() {
				audit.Error().Err(err).
					Str("url", it.Link).
					Str("title", it.Name).
					Str("query", query).
					Str("session_id", sessionID).
					Msg("Resource validation error - treating as invalid")
			})
			continue
		}
		if !valid {
			safeLog(func() {
				audit.Warn().
					Str("url", it.Link).
					Str("title", it.Name).
					Str("query", query).
					Str("session_id", sessionID).
					Msg("Hallucination detected - invalid resource")
			})
			continue
		}

		c := models.AgentCitation{Title: it.Name, URL: it.Link}
		if it.Summary != "" {
			summary := it.Summary
			c.Summary = &summary
		}
		out = append(out, c)
	}
	return out
}

// safeLog runs emit and swallows any panic from the log sink.
func safeLog(emit func()) {
	defer func() { _ = recover() }()
	emit()
}
