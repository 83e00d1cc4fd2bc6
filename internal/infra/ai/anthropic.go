package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

// AnthropicProvider implements Provider for the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	budget     *BudgetGate

	mu    sync.Mutex
	usage UsageStats
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewAnthropicProvider reads ANTHROPIC_API_KEY from the environment.
func NewAnthropicProvider(model string, budget *BudgetGate) *AnthropicProvider {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicProvider{
		apiKey:     os.Getenv("ANTHROPIC_API_KEY"),
		baseURL:    "https://api.anthropic.com/v1/messages",
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		budget:     budget,
	}
}

func (p *AnthropicProvider) Name() string    { return "anthropic" }
func (p *AnthropicProvider) Available() bool { return p.apiKey != "" }

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if !p.Available() {
		return nil, fmt.Errorf("ai: anthropic API key not configured")
	}
	estimated := costFor(2000+req.MaxTokens, p.model)
	if p.budget != nil && !p.budget.Allow(estimated) {
		return nil, &ErrBudgetExceeded{Status: p.budget.Status()}
	}

	var system string
	var messages []anthropicMessage
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		messages = append(messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	body, err := json.Marshal(anthropicRequest{
		Model: model, MaxTokens: req.MaxTokens, System: system, Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: marshal request: %w", err)
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ai: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ai: anthropic status %d: %s", resp.StatusCode, respBody)
	}

	var out anthropicResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("ai: parse response: %w", err)
	}
	if len(out.Content) == 0 {
		return nil, fmt.Errorf("ai: empty completion")
	}

	total := out.Usage.InputTokens + out.Usage.OutputTokens
	cost := costFor(total, model)
	if p.budget != nil {
		p.budget.Record(cost)
	}
	p.mu.Lock()
	p.usage.TotalRequests++
	p.usage.TotalTokens += total
	p.usage.TotalCostUSD += cost
	p.mu.Unlock()

	return &CompletionResponse{
		Content:      out.Content[0].Text,
		Model:        out.Model,
		PromptTokens: out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
		TotalTokens:  total,
		Latency:      time.Since(start),
		FinishReason: out.StopReason,
	}, nil
}

// Usage returns lifetime usage for this provider.
func (p *AnthropicProvider) Usage() UsageStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usage
}

// costFor is a blended per-token estimate, good enough for the budget gate.
func costFor(tokens int, model string) float64 {
	switch model {
	case "claude-3-5-haiku-20241022":
		return float64(tokens) * 0.000001
	default:
		return float64(tokens) * 0.000009
	}
}

var _ Provider = (*AnthropicProvider)(nil)
