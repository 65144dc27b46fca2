package store_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfetcher/smartfetcher/internal/store"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

func testResources() []models.Resource {
	return []models.Resource{
		{ID: "550e8400-e29b-41d4-a716-446655440001", Name: "Trail Guide", Description: "Paths.", Tag: "hiking"},
		{ID: "550e8400-e29b-41d4-a716-446655440002", Name: "Budget Sheet", Description: "Money.", Tag: "finance"},
		{ID: "550e8400-e29b-41d4-a716-446655440003", Name: "Boot Review", Description: "Boots.", Tag: "hiking"},
	}
}

func newTestIndex(t *testing.T) *store.MemoryIndex {
	t.Helper()
	idx, err := store.NewMemoryIndex(testResources())
	require.NoError(t, err)
	return idx
}

func TestMemoryIndex_Get(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	got, err := idx.Get(ctx, "550e8400-e29b-41d4-a716-446655440002")
	require.NoError(t, err)
	assert.Equal(t, "Budget Sheet", got.Name)

	_, err = idx.Get(ctx, "550e8400-e29b-41d4-a716-446655449999")
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err), "Get() error = %v, want ErrNotFound", err)
}

func TestMemoryIndex_ListByTagKeepsInsertionOrder(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	var ids []string
	for _, r := range idx.ListByTag(ctx, "hiking") {
		ids = append(ids, r.ID)
	}
	want := []string{"550e8400-e29b-41d4-a716-446655440001", "550e8400-e29b-41d4-a716-446655440003"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("ListByTag() mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, idx.ListByTag(ctx, "music"))
}

func TestMemoryIndex_ListByTagsConcatenates(t *testing.T) {
	idx := newTestIndex(t)
	got := idx.ListByTags(context.Background(), []string{"finance", "hiking"})
	require.Len(t, got, 3)
	assert.Equal(t, "finance", got[0].Tag)
	assert.Equal(t, "hiking", got[1].Tag)
}

func TestMemoryIndex_UniqueTagsFirstOccurrence(t *testing.T) {
	idx := newTestIndex(t)
	assert.Equal(t, []string{"hiking", "finance"}, idx.UniqueTags(context.Background()))
	assert.Equal(t, 3, idx.Count())
	assert.Len(t, idx.List(context.Background()), 3)
}

func TestNewMemoryIndex_RejectsDuplicateIDs(t *testing.T) {
	rs := testResources()
	rs = append(rs, rs[0])
	_, err := store.NewMemoryIndex(rs)
	assert.Error(t, err)
}

func TestGenerateResources_Deterministic(t *testing.T) {
	a, err := store.GenerateResources(50, store.DefaultDatasetSeed)
	require.NoError(t, err)
	b, err := store.GenerateResources(50, store.DefaultDatasetSeed)
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("GenerateResources() not deterministic (-a +b):\n%s", diff)
	}

	c, err := store.GenerateResources(50, 7)
	require.NoError(t, err)
	assert.NotEqual(t, a[0].ID, c[0].ID)
}

func TestGenerateResources_DefaultDatasetValidates(t *testing.T) {
	rs, err := store.GenerateResources(store.DefaultDatasetSize, store.DefaultDatasetSeed)
	require.NoError(t, err)

	rep := store.ValidateDataset(rs, store.DefaultDatasetSize, store.DefaultMinPerTag)
	assert.True(t, rep.OverallPass, rep.Summary())
	assert.Len(t, rep.TagDistribution, len(store.CanonicalTags))
	for _, tc := range rep.TagDistribution {
		assert.GreaterOrEqual(t, tc.Count, 33, "tag %s", tc.Tag)
	}

	idx, err := store.NewMemoryIndex(rs)
	require.NoError(t, err)
	assert.ElementsMatch(t, store.CanonicalTags, idx.UniqueTags(context.Background()))
}
