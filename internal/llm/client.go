// Package llm talks to the Ollama model backend: chat completions over the
// OpenAI-compatible endpoint, startup health probes, and an optional on-disk
// response cache.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// DefaultEndpoint is the Ollama address used when none is configured.
const DefaultEndpoint = "http://localhost:11434"

// ErrBackendUnavailable marks failures where the backend could not serve the
// request at all: unreachable, refused, timed out, or the model is missing.
var ErrBackendUnavailable = errors.New("model backend unavailable")

// StatusError is returned for non-200 backend responses that are not
// availability failures.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ollama: status %d: %s", e.StatusCode, e.Body)
}

var tracer = otel.Tracer("smartfetcher/llm")

// OllamaClient implements contracts.CompletionClient against Ollama.
type OllamaClient struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewOllamaClient creates a client. timeout bounds each HTTP round trip.
func NewOllamaClient(endpoint, model string, timeout time.Duration) *OllamaClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &OllamaClient{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *OllamaClient) Model() string    { return c.model }
func (c *OllamaClient) Endpoint() string { return c.endpoint }

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Temperature *float64             `json:"temperature,omitempty"`
	Stream      bool                 `json:"stream"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends a chat completion to {endpoint}/v1/chat/completions.
func (c *OllamaClient) Complete(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	ctx, span := tracer.Start(ctx, "llm.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", model),
		attribute.Int("llm.messages", len(req.Messages)),
		attribute.Int("llm.max_tokens", req.MaxTokens),
	)

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("ollama: request failed: %w: %w", ErrBackendUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		span.SetStatus(codes.Error, httpResp.Status)
		if httpResp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("ollama: model %q not available: %w", model, ErrBackendUnavailable)
		}
		return nil, &StatusError{StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	var oaiResp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&oaiResp); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}

	content := ""
	if len(oaiResp.Choices) > 0 {
		content = oaiResp.Choices[0].Message.Content
	}
	id := oaiResp.ID
	if id == "" {
		id = uuid.New().String()
	}

	span.SetAttributes(attribute.Int64("llm.total_tokens", oaiResp.Usage.TotalTokens))

	return &models.CompletionResponse{
		ID:      id,
		Model:   model,
		Content: content,
		Usage: models.TokenUsage{
			InputTokens:  oaiResp.Usage.PromptTokens,
			OutputTokens: oaiResp.Usage.CompletionTokens,
			TotalTokens:  oaiResp.Usage.TotalTokens,
		},
	}, nil
}
