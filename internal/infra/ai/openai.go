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

// OpenAIProvider implements Provider for OpenAI-compatible chat APIs,
// including local servers that speak the same protocol.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	budget     *BudgetGate

	mu    sync.Mutex
	usage UsageStats
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

// NewOpenAIProvider reads OPENAI_API_KEY from the environment. baseURL may
// point at any compatible endpoint; empty means the official API.
func NewOpenAIProvider(model, baseURL string, budget *BudgetGate) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1/chat/completions"
	}
	return &OpenAIProvider{
		apiKey:     os.Getenv("OPENAI_API_KEY"),
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		budget:     budget,
	}
}

func (p *OpenAIProvider) Name() string    { return "openai" }
func (p *OpenAIProvider) Available() bool { return p.apiKey != "" }

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if !p.Available() {
		return nil, fmt.Errorf("ai: openai API key not configured")
	}
	estimated := costFor(2000+req.MaxTokens, p.model)
	if p.budget != nil && !p.budget.Allow(estimated) {
		return nil, &ErrBudgetExceeded{Status: p.budget.Status()}
	}

	model := p.model
	if req.Model != "" {
		model = req.Model
	}
	messages := make([]openAIMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openAIMessage{Role: m.Role, Content: m.Content})
	}
	body, err := json.Marshal(openAIRequest{
		Model: model, Messages: messages, MaxTokens: req.MaxTokens, Temperature: req.Temperature,
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
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

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
		return nil, fmt.Errorf("ai: openai status %d: %s", resp.StatusCode, respBody)
	}

	var out openAIResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("ai: parse response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("ai: empty completion")
	}

	cost := costFor(out.Usage.TotalTokens, model)
	if p.budget != nil {
		p.budget.Record(cost)
	}
	p.mu.Lock()
	p.usage.TotalRequests++
	p.usage.TotalTokens += out.Usage.TotalTokens
	p.usage.TotalCostUSD += cost
	p.mu.Unlock()

	return &CompletionResponse{
		Content:      out.Choices[0].Message.Content,
		Model:        out.Model,
		PromptTokens: out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
		TotalTokens:  out.Usage.TotalTokens,
		Latency:      time.Since(start),
		FinishReason: out.Choices[0].FinishReason,
	}, nil
}

var _ Provider = (*OpenAIProvider)(nil)
