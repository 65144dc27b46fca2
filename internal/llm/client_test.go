package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfetcher/smartfetcher/internal/llm"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// fakeOllama serves the subset of the Ollama API the client uses.
type fakeOllama struct {
	tagsStatus int
	running    []string
	chatStatus int
	reply      string
	lastReq    map[string]interface{}
}

func (f *fakeOllama) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		if f.tagsStatus != 0 {
			w.WriteHeader(f.tagsStatus)
		}
		w.Write([]byte(`{"models":[{"name":"gpt-oss:20b"}]}`))
	})
	mux.HandleFunc("/api/ps", func(w http.ResponseWriter, r *http.Request) {
		var ps struct {
			Models []map[string]string `json:"models"`
		}
		ps.Models = []map[string]string{}
		for _, name := range f.running {
			ps.Models = append(ps.Models, map[string]string{"name": name, "model": name})
		}
		json.NewEncoder(w).Encode(ps)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&f.lastReq)
		if f.chatStatus != 0 && f.chatStatus != http.StatusOK {
			w.WriteHeader(f.chatStatus)
			w.Write([]byte(`{"error":"boom"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"choices": []map[string]interface{}{{"message": map[string]string{"role": "assistant", "content": f.reply}}},
			"usage":   map[string]int{"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5},
		})
	})
	return mux
}

func newFake(t *testing.T, f *fakeOllama) *llm.OllamaClient {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return llm.NewOllamaClient(srv.URL, "gpt-oss:20b", 5*time.Second)
}

func TestOllamaClient_Complete(t *testing.T) {
	f := &fakeOllama{tagsStatus: http.StatusOK, reply: "tags: home"}
	c := newFake(t, f)

	resp, err := c.Complete(context.Background(), &models.CompletionRequest{
		Messages:  []models.ChatMessage{{Role: "user", Content: "hi"}},
		MaxTokens: 256,
	})
	require.NoError(t, err)
	assert.Equal(t, "tags: home", resp.Content)
	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, int64(5), resp.Usage.TotalTokens)
	assert.Equal(t, "gpt-oss:20b", f.lastReq["model"])
	assert.EqualValues(t, 256, f.lastReq["max_tokens"])
}

func TestOllamaClient_CompleteErrors(t *testing.T) {
	ctx := context.Background()
	req := &models.CompletionRequest{Messages: []models.ChatMessage{{Role: "user", Content: "hi"}}}

	_, err := newFake(t, &fakeOllama{chatStatus: http.StatusNotFound}).Complete(ctx, req)
	assert.ErrorIs(t, err, llm.ErrBackendUnavailable)

	_, err = newFake(t, &fakeOllama{chatStatus: http.StatusInternalServerError}).Complete(ctx, req)
	var se *llm.StatusError
	require.True(t, errors.As(err, &se), "Complete() error = %v, want *StatusError", err)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.NotErrorIs(t, err, llm.ErrBackendUnavailable)

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	_, err = llm.NewOllamaClient(url, "m", time.Second).Complete(ctx, req)
	assert.ErrorIs(t, err, llm.ErrBackendUnavailable)
}
