// Package tools defines the tools the retrieval agent may call and the
// explicit result type they return. Handlers never panic or return Go errors
// across the tool boundary; failures travel inside Result.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/smartfetcher/smartfetcher/internal/sessionlog"
	"github.com/smartfetcher/smartfetcher/pkg/contracts"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// Tool names exposed to the model.
const (
	SearchResourcesName  = "search_resources"
	ValidateResourceName = "validate_resource"
)

// NoResourcesFound is what search_resources reports for an empty result.
const NoResourcesFound = "No resources found matching the query."

// searchDisplayLimit is how many hits search_resources shows the model.
const searchDisplayLimit = 5

// Result is the outcome of one tool call.
type Result struct {
	OK    bool
	Text  string // what the model sees
	Value any    // typed value for in-process callers
	Err   error
}

// Success builds a successful result.
func Success(text string, value any) Result {
	return Result{OK: true, Text: text, Value: value}
}

// Failure builds a failed result; text is what the model sees.
func Failure(err error, text string) Result {
	return Result{OK: false, Text: text, Err: err}
}

// Handler executes a tool with decoded JSON arguments.
type Handler func(ctx context.Context, args map[string]interface{}) Result

// Tool is a named, described, schema-typed handler.
type Tool struct {
	Name        string
	Description string
	Schema      map[string]interface{}
	Handler     Handler
}

func stringSchema(param, desc string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			param: map[string]interface{}{"type": "string", "description": desc},
		},
		"required": []string{param},
	}
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return s, nil
}

// SearchResources exposes the NL search pipeline to the model.
func SearchResources(searcher contracts.ResourceSearcher, events *sessionlog.Logger) Tool {
	return Tool{
		Name:        SearchResourcesName,
		Description: "Search for resources using a natural language query. Returns relevant resources with titles, summaries and links.",
		Schema:      stringSchema("query", "Natural language search query"),
		Handler: func(ctx context.Context, args map[string]interface{}) Result {
			query, err := stringArg(args, "query")
			if err != nil {
				return Failure(err, "Error searching resources: "+err.Error())
			}
			params := map[string]interface{}{"query": query}

			res, err := searcher.Search(ctx, query, 0)
			if err != nil {
				events.ToolAction(ctx, SearchResourcesName, params, "Error: "+err.Error())
				return Failure(err, "Error searching resources: "+err.Error())
			}
			events.ToolAction(ctx, SearchResourcesName, params, fmt.Sprintf("Found %d results", len(res.Items)))

			if len(res.Items) == 0 {
				return Success(NoResourcesFound, res.Items)
			}
			return Success(FormatItems(res.Items), res.Items)
		},
	}
}

// FormatItems renders up to five items as "- name: summary (Link: link)" lines.
func FormatItems(items []models.ResourceItem) string {
	if len(items) > searchDisplayLimit {
		items = items[:searchDisplayLimit]
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		summary := it.Summary
		if summary == "" {
			summary = "No summary"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s (Link: %s)", it.Name, summary, it.Link))
	}
	return strings.Join(lines, "\n")
}

// ValidateResource exposes link verification. Any error or panic during
// verification yields false.
func ValidateResource(checker contracts.LinkChecker, events *sessionlog.Logger) Tool {
	return Tool{
		Name:        ValidateResourceName,
		Description: "Validate that a resource link is real and resolves to an existing resource. Returns true or false.",
		Schema:      stringSchema("url", "Resource URL or internal link to validate"),
		Handler: func(ctx context.Context, args map[string]interface{}) Result {
			url, err := stringArg(args, "url")
			if err != nil {
				return Failure(err, "false")
			}
			params := map[string]interface{}{"url": url}

			valid, err := CheckLink(ctx, checker, url)
			if err != nil {
				events.ToolAction(ctx, ValidateResourceName, params, "Error: "+err.Error())
				log.Error().Err(err).Str("url", url).Str("session_id", sessionlog.SessionID(ctx)).Msg("Resource validation failed; treating as invalid")
				return Success("false", false)
			}
			events.ToolAction(ctx, ValidateResourceName, params, fmt.Sprintf("Valid: %t", valid))
			return Success(fmt.Sprintf("%t", valid), valid)
		},
	}
}

// CheckLink runs checker, converting a panic into an error.
func CheckLink(ctx context.Context, checker contracts.LinkChecker, url string) (valid bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			valid, err = false, fmt.Errorf("link check panicked: %v", r)
		}
	}()
	return checker.VerifyLink(ctx, url)
}
