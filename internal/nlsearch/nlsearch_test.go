package nlsearch_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfetcher/smartfetcher/internal/extractor"
	"github.com/smartfetcher/smartfetcher/internal/nlsearch"
	"github.com/smartfetcher/smartfetcher/internal/store"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

func id(n int) string {
	return fmt.Sprintf("550e8400-e29b-41d4-a716-%012d", n)
}

// buildIndex creates perTag resources for each tag, interleaved by tag.
func buildIndex(t *testing.T, tags []string, perTag int, desc string) *store.MemoryIndex {
	t.Helper()
	var rs []models.Resource
	n := 1
	for i := 0; i < perTag; i++ {
		for _, tag := range tags {
			rs = append(rs, models.Resource{ID: id(n), Name: fmt.Sprintf("%s %d", tag, i), Description: desc, Tag: tag})
			n++
		}
	}
	idx, err := store.NewMemoryIndex(rs)
	require.NoError(t, err)
	return idx
}

func TestSearch_EndToEndHiking(t *testing.T) {
	idx, err := store.NewMemoryIndex([]models.Resource{
		{ID: "550e8400-e29b-41d4-a716-446655440001", Name: "Trail Guide", Description: "Paths.", Tag: "hiking"},
	})
	require.NoError(t, err)
	o := nlsearch.New(extractor.New(nil, []string{"hiking", "finance"}), idx, 0)

	got, err := o.Search(context.Background(), "I love hiking", 0)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "/resources/550e8400-e29b-41d4-a716-446655440001", got.Items[0].Link)
	assert.Equal(t, []string{"hiking"}, got.Items[0].Tags)
	assert.Nil(t, got.Message)
	assert.Empty(t, got.CandidateTags)
	assert.Equal(t, extractor.KeywordReasoning, got.Reasoning)
}

func TestSearch_CapIsExact(t *testing.T) {
	tags := []string{"home", "car"}
	idx := buildIndex(t, tags, 10, "d")
	o := nlsearch.New(extractor.New(nil, tags), idx, 5)

	got, err := o.Search(context.Background(), "my home", 0)
	require.NoError(t, err)
	assert.Len(t, got.Items, 5)

	got, err = o.Search(context.Background(), "my home", 3)
	require.NoError(t, err)
	assert.Len(t, got.Items, 3)

	got, err = o.Search(context.Background(), "my home", 50)
	require.NoError(t, err)
	assert.Len(t, got.Items, 10)
}

func TestSearch_NoMatchSuggestsTags(t *testing.T) {
	tags := []string{"home", "car", "food", "art"}
	idx := buildIndex(t, tags, 1, "d")
	o := nlsearch.New(extractor.New(nil, tags), idx, 0)

	got, err := o.Search(context.Background(), "quantum chromodynamics", 0)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	require.NotNil(t, got.Message)
	assert.Equal(t, "No matching resources found. Try searching with tags like: home, car, food", *got.Message)
	assert.Equal(t, []string{"home", "car", "food"}, got.CandidateTags)
	assert.Empty(t, got.Reasoning)
}

func TestSearch_AmbiguousUnionInExtractorOrder(t *testing.T) {
	tags := []string{"home", "car", "food"}
	idx := buildIndex(t, tags, 4, "d")
	o := nlsearch.New(extractor.New(nil, tags), idx, 6)

	got, err := o.Search(context.Background(), "food for the car", 0)
	require.NoError(t, err)

	// keyword extractor returns canonical order: car, food
	require.NotNil(t, got.Message)
	assert.Equal(t, "Your query matches multiple categories. Did you mean: car, food? Please refine your query.", *got.Message)
	assert.Equal(t, []string{"car", "food"}, got.CandidateTags)
	require.Len(t, got.Items, 6)
	for i, item := range got.Items {
		wantPrefix := "car"
		if i >= 4 {
			wantPrefix = "food"
		}
		assert.True(t, strings.HasPrefix(item.Name, wantPrefix), "item %d = %s", i, item.Name)
		assert.Equal(t, []string{"car", "food"}, item.Tags)
	}
}

func TestSearch_SummaryTruncation(t *testing.T) {
	long := strings.Repeat("x", 250)
	idx := buildIndex(t, []string{"art"}, 1, long)
	o := nlsearch.New(extractor.New(nil, []string{"art"}), idx, 0)

	got, err := o.Search(context.Background(), "art", 0)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Len(t, got.Items[0].Summary, 203)
	assert.True(t, strings.HasSuffix(got.Items[0].Summary, "..."))
}

// phantomIndex lists a resource under "art" that Get cannot resolve.
type phantomIndex struct {
	*store.MemoryIndex
}

func (p phantomIndex) ListByTag(ctx context.Context, tag string) []models.Resource {
	out := p.MemoryIndex.ListByTag(ctx, tag)
	if tag == "art" {
		out = append([]models.Resource{{ID: id(999), Name: "ghost", Description: "d", Tag: "art"}}, out...)
	}
	return out
}

func TestSearch_DropsItemsFailingVerification(t *testing.T) {
	idx := phantomIndex{buildIndex(t, []string{"art"}, 3, "d")}
	o := nlsearch.New(extractor.New(nil, []string{"art"}), idx, 3)

	got, err := o.Search(context.Background(), "art", 0)
	require.NoError(t, err)
	require.Len(t, got.Items, 3)
	for _, item := range got.Items {
		assert.NotEqual(t, id(999), item.ID)
	}
}

func TestSearch_CancelledContext(t *testing.T) {
	o := nlsearch.New(extractor.New(nil, []string{"art"}), buildIndex(t, []string{"art"}, 1, "d"), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Search(ctx, "art", 0)
	assert.ErrorIs(t, err, context.Canceled)
}
