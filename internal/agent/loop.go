package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/smartfetcher/smartfetcher/internal/sessionlog"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolResult is the outcome of one ToolCall as fed back to the model.
type ToolResult struct {
	ToolCallID string
	Name       string
	Content    string
	IsError    bool
}

// step is one parsed model reply: either tool calls or an answer.
type step struct {
	ToolCalls []ToolCall
	Answer    string
}

const finalAnswerPrompt = `You have used all available tool calls. Give your final answer now as {"answer": "..."} without calling any tool.`

// loop runs the bounded tool loop and returns the final answer text.
func (a *Agent) loop(ctx context.Context, query string, maxTokens int) (string, error) {
	messages := []models.ChatMessage{
		{Role: "system", Content: a.systemPrompt()},
		{Role: "user", Content: query},
	}

	for turn := 1; turn <= a.maxIterations; turn++ {
		resp, err := a.client.Complete(ctx, &models.CompletionRequest{Messages: messages, MaxTokens: maxTokens})
		if err != nil {
			return "", fmt.Errorf("model call failed (turn %d): %w", turn, err)
		}

		s := parseStep(resp.Content)
		if len(s.ToolCalls) == 0 {
			log.Debug().Str("session_id", sessionlog.SessionID(ctx)).Int("turns", turn).Msg("Agent loop complete")
			return answerOrNoEvidence(s.Answer)
		}

		messages = append(messages, models.ChatMessage{Role: "assistant", Content: resp.Content})
		for _, tc := range s.ToolCalls {
			tr := a.executeTool(ctx, tc)
			messages = append(messages, models.ChatMessage{
				Role:    "tool",
				Content: fmt.Sprintf("[Tool: %s] %s", tr.Name, tr.Content),
			})
		}

		log.Debug().
			Str("session_id", sessionlog.SessionID(ctx)).
			Int("turn", turn).
			Int("tool_calls", len(s.ToolCalls)).
			Msg("Agent loop continuing")
	}

	// Iterations exhausted: ask once more without tools.
	messages = append(messages, models.ChatMessage{Role: "user", Content: finalAnswerPrompt})
	resp, err := a.client.Complete(ctx, &models.CompletionRequest{Messages: messages, MaxTokens: maxTokens})
	if err != nil {
		return "", fmt.Errorf("model call failed (final): %w", err)
	}
	s := parseStep(resp.Content)
	if len(s.ToolCalls) > 0 || strings.TrimSpace(s.Answer) == "" {
		return "", fmt.Errorf("%w after %d turns", ErrNoEvidence, a.maxIterations)
	}
	log.Warn().Str("session_id", sessionlog.SessionID(ctx)).Int("max_turns", a.maxIterations).Msg("Agent hit max turns")
	return strings.TrimSpace(s.Answer), nil
}

func answerOrNoEvidence(answer string) (string, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", ErrNoEvidence
	}
	return answer, nil
}

// executeTool calls a tool via the MCP gateway and returns its result.
func (a *Agent) executeTool(ctx context.Context, tc ToolCall) ToolResult {
	ctx, span := tracer.Start(ctx, "agent.tool_call")
	defer span.End()
	span.SetAttributes(attribute.String("agent.tool", tc.Name))

	paramsJSON, _ := json.Marshal(models.MCPToolCallParams{
		Name:      tc.Name,
		Arguments: tc.Arguments,
	})
	mcpResp := a.gateway.HandleJSONRPC(ctx, &models.MCPRequest{
		Jsonrpc: "2.0",
		Method:  "tools/call",
		Params:  paramsJSON,
		ID:      tc.ID,
	})

	if mcpResp == nil {
		return ToolResult{ToolCallID: tc.ID, Name: tc.Name, Content: "Error: no response", IsError: true}
	}
	if mcpResp.Error != nil {
		return ToolResult{
			ToolCallID: tc.ID,
			Name:       tc.Name,
			Content:    fmt.Sprintf("Error: %s", mcpResp.Error.Message),
			IsError:    true,
		}
	}

	res, ok := mcpResp.Result.(models.MCPToolResult)
	if !ok {
		raw, _ := json.Marshal(mcpResp.Result)
		return ToolResult{ToolCallID: tc.ID, Name: tc.Name, Content: string(raw)}
	}
	return ToolResult{
		ToolCallID: tc.ID,
		Name:       tc.Name,
		Content:    res.Text(),
		IsError:    res.IsError,
	}
}

// systemPrompt lists the gateway tools and the reply protocol.
func (a *Agent) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You answer questions about a catalog of resources. ")
	b.WriteString("Use the tools to find real resources before answering and only cite links returned by search_resources.\n\n")
	b.WriteString("Available tools:\n")
	for _, t := range a.gateway.Tools() {
		fmt.Fprintf(&b, "- %s(%s): %s\n", t.Name, describeParams(t.Schema), t.Description)
	}
	b.WriteString("\nTo use a tool, respond with only a JSON block: {\"tool_calls\": [{\"name\": \"tool_name\", \"arguments\": {...}}]}\n")
	b.WriteString("When you are done, respond with only: {\"answer\": \"your answer\"}")
	return b.String()
}

func describeParams(schema map[string]interface{}) string {
	props, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return ""
	}
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// parseStep reads a model reply. Supported shapes:
//  1. {"tool_calls": [...]}
//  2. a bare JSON array of tool calls
//  3. {"answer": "..."}
//  4. anything else is the answer text itself
//
// JSON may be wrapped in a markdown code fence or surrounded by prose.
func parseStep(content string) step {
	text := strings.TrimSpace(content)
	if text == "" {
		return step{}
	}

	for _, candidate := range jsonCandidates(text) {
		var obj struct {
			ToolCalls []ToolCall `json:"tool_calls"`
			Answer    *string    `json:"answer"`
		}
		if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
			if len(obj.ToolCalls) > 0 {
				return step{ToolCalls: withIDs(obj.ToolCalls)}
			}
			if obj.Answer != nil {
				return step{Answer: *obj.Answer}
			}
		}
		var calls []ToolCall
		if err := json.Unmarshal([]byte(candidate), &calls); err == nil && len(calls) > 0 && calls[0].Name != "" {
			return step{ToolCalls: withIDs(calls)}
		}
	}
	return step{Answer: text}
}

func withIDs(calls []ToolCall) []ToolCall {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = fmt.Sprintf("call_%d", i)
		}
	}
	return calls
}

// jsonCandidates returns text itself, the body of a code fence, and the
// outermost {...} / [...] spans, in that order.
func jsonCandidates(text string) []string {
	out := []string{text}
	if i := strings.Index(text, "```"); i >= 0 {
		body := text[i+3:]
		body = strings.TrimPrefix(body, "json")
		if j := strings.Index(body, "```"); j >= 0 {
			out = append(out, strings.TrimSpace(body[:j]))
		}
	}
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start, end := strings.Index(text, pair[0]), strings.LastIndex(text, pair[1])
		if start >= 0 && end > start {
			out = append(out, text[start:end+1])
		}
	}
	return out
}
