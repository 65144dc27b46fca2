package tools_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartfetcher/smartfetcher/internal/sessionlog"
	"github.com/smartfetcher/smartfetcher/internal/tools"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

type fakeSearcher struct {
	items []models.ResourceItem
	err   error
}

func (f fakeSearcher) Search(context.Context, string, int) (*models.NLSearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.NLSearchResult{Items: f.items}, nil
}

type fakeChecker func(string) (bool, error)

func (f fakeChecker) VerifyLink(_ context.Context, url string) (bool, error) { return f(url) }

func items(n int) []models.ResourceItem {
	out := make([]models.ResourceItem, n)
	for i := range out {
		out[i] = models.ResourceItem{
			ID:      fmt.Sprintf("id-%d", i),
			Name:    fmt.Sprintf("Item %d", i),
			Summary: "sum",
			Link:    fmt.Sprintf("/resources/id-%d", i),
		}
	}
	return out
}

func TestSearchResources_FormatsTopFive(t *testing.T) {
	tool := tools.SearchResources(fakeSearcher{items: items(7)}, sessionlog.Nop())
	res := tool.Handler(context.Background(), map[string]interface{}{"query": "x"})

	assert.True(t, res.OK)
	assert.Equal(t,
		"- Item 0: sum (Link: /resources/id-0)\n"+
			"- Item 1: sum (Link: /resources/id-1)\n"+
			"- Item 2: sum (Link: /resources/id-2)\n"+
			"- Item 3: sum (Link: /resources/id-3)\n"+
			"- Item 4: sum (Link: /resources/id-4)",
		res.Text)
}

func TestSearchResources_EmptyAndErrors(t *testing.T) {
	ctx := context.Background()

	res := tools.SearchResources(fakeSearcher{}, sessionlog.Nop()).Handler(ctx, map[string]interface{}{"query": "x"})
	assert.True(t, res.OK)
	assert.Equal(t, tools.NoResourcesFound, res.Text)

	res = tools.SearchResources(fakeSearcher{err: errors.New("index down")}, sessionlog.Nop()).Handler(ctx, map[string]interface{}{"query": "x"})
	assert.False(t, res.OK)
	assert.Equal(t, "Error searching resources: index down", res.Text)

	res = tools.SearchResources(fakeSearcher{}, sessionlog.Nop()).Handler(ctx, map[string]interface{}{"query": 3})
	assert.False(t, res.OK)
}

func TestFormatItems_NoSummary(t *testing.T) {
	got := tools.FormatItems([]models.ResourceItem{{Name: "A", Link: "/resources/a"}})
	assert.Equal(t, "- A: No summary (Link: /resources/a)", got)
}

func TestValidateResource_FailClosed(t *testing.T) {
	ctx := context.Background()
	args := map[string]interface{}{"url": "/resources/x"}

	tests := []struct {
		name    string
		checker fakeChecker
		want    bool
	}{
		{"valid", func(string) (bool, error) { return true, nil }, true},
		{"invalid", func(string) (bool, error) { return false, nil }, false},
		{"error", func(string) (bool, error) { return true, errors.New("lookup failed") }, false},
		{"panic", func(string) (bool, error) { panic("bad") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tools.ValidateResource(tt.checker, sessionlog.Nop()).Handler(ctx, args)
			assert.True(t, res.OK)
			assert.Equal(t, tt.want, res.Value)
			assert.Equal(t, fmt.Sprintf("%t", tt.want), res.Text)
		})
	}
}

func TestCheckLink_RecoversPanic(t *testing.T) {
	ok, err := tools.CheckLink(context.Background(), fakeChecker(func(string) (bool, error) { panic("x") }), "u")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "panicked")
}
