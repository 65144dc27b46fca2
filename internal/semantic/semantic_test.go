package semantic_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfetcher/smartfetcher/internal/llm"
	"github.com/smartfetcher/smartfetcher/internal/semantic"
	"github.com/smartfetcher/smartfetcher/internal/store"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

const (
	homeID = "550e8400-e29b-41d4-a716-446655440001"
	carID  = "550e8400-e29b-41d4-a716-446655440002"
)

type replyClient struct {
	reply  string
	err    error
	ready  error
	prompt string
}

func (c *replyClient) Model() string { return "test" }

func (c *replyClient) EnsureReady(context.Context) error { return c.ready }

func (c *replyClient) Complete(_ context.Context, req *models.CompletionRequest) (*models.CompletionResponse, error) {
	c.prompt = req.Messages[len(req.Messages)-1].Content
	if c.err != nil {
		return nil, c.err
	}
	return &models.CompletionResponse{Content: c.reply}, nil
}

func newIndex(t *testing.T) *store.MemoryIndex {
	t.Helper()
	idx, err := store.NewMemoryIndex([]models.Resource{
		{ID: homeID, Name: "House", Description: "d", Tag: "home"},
		{ID: carID, Name: "Sedan", Description: "d", Tag: "car"},
	})
	require.NoError(t, err)
	return idx
}

func TestFindMatching_ResolvesAndFiltersIDs(t *testing.T) {
	c := &replyClient{reply: `Sure! ["550E8400-E29B-41D4-A716-446655440002", "` + homeID + `", "` + carID + `", "550e8400-e29b-41d4-a716-000000000000"]`}
	f, err := semantic.NewFinder(c, newIndex(t))
	require.NoError(t, err)

	got, err := f.FindMatching(context.Background(), "vehicle")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, carID, got[0].ID)
	assert.Equal(t, homeID, got[1].ID)

	assert.Contains(t, c.prompt, "Search tag: vehicle")
	assert.Contains(t, c.prompt, `{"id":"`+homeID+`","tag":"home"}`)
}

func TestFindMatching_EmptyReply(t *testing.T) {
	f, err := semantic.NewFinder(&replyClient{reply: "[]"}, newIndex(t))
	require.NoError(t, err)

	got, err := f.FindMatching(context.Background(), "music")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindMatching_BackendUnavailable(t *testing.T) {
	ctx := context.Background()

	f, _ := semantic.NewFinder(nil, newIndex(t))
	_, err := f.FindMatching(ctx, "home")
	assert.ErrorIs(t, err, llm.ErrBackendUnavailable)

	f, _ = semantic.NewFinder(&replyClient{ready: llm.ErrBackendUnavailable}, newIndex(t))
	_, err = f.FindMatching(ctx, "home")
	assert.ErrorIs(t, err, llm.ErrBackendUnavailable)

	f, _ = semantic.NewFinder(&replyClient{err: errors.New("dial tcp: connection refused")}, newIndex(t))
	_, err = f.FindMatching(ctx, "home")
	assert.ErrorIs(t, err, llm.ErrBackendUnavailable)

	f, _ = semantic.NewFinder(&replyClient{err: errors.New("bad output")}, newIndex(t))
	_, err = f.FindMatching(ctx, "home")
	require.Error(t, err)
	assert.NotErrorIs(t, err, llm.ErrBackendUnavailable)
}
