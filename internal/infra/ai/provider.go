// Package ai is the reasoning-model integration layer. Providers are
// swappable behind one interface; the engine never knows which backend
// answers, and must keep running when none does.
package ai

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Message is one chat turn sent to a provider.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// CompletionRequest is the input for one reasoning call.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Model       string    `json:"model,omitempty"` // override the provider default
}

// CompletionResponse is the output of one reasoning call.
type CompletionResponse struct {
	Content      string        `json:"content"`
	Model        string        `json:"model"`
	PromptTokens int           `json:"prompt_tokens"`
	OutputTokens int           `json:"output_tokens"`
	TotalTokens  int           `json:"total_tokens"`
	Latency      time.Duration `json:"latency"`
	FinishReason string        `json:"finish_reason"`
}

// Provider is the pluggable reasoning backend.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
	Available() bool
}

// UsageStats tracks spend across a provider's lifetime.
type UsageStats struct {
	TotalRequests int     `json:"total_requests"`
	TotalTokens   int     `json:"total_tokens"`
	TotalCostUSD  float64 `json:"total_cost_usd"`
}

// BudgetGate caps reasoning spend per day and per month. Shared by all
// providers of one city.
type BudgetGate struct {
	mu              sync.Mutex
	dailyLimitUSD   float64
	monthlyLimitUSD float64
	daySpend        float64
	monthSpend      float64
	lastDayReset    time.Time
	lastMonthReset  time.Time
}

func NewBudgetGate(dailyLimit, monthlyLimit float64) *BudgetGate {
	now := time.Now()
	return &BudgetGate{
		dailyLimitUSD:   dailyLimit,
		monthlyLimitUSD: monthlyLimit,
		lastDayReset:    now,
		lastMonthReset:  now,
	}
}

// Allow reserves the estimated cost if it fits the remaining budget.
func (g *BudgetGate) Allow(costUSD float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.maybeReset()
	if g.daySpend+costUSD > g.dailyLimitUSD || g.monthSpend+costUSD > g.monthlyLimitUSD {
		return false
	}
	return true
}

// Record logs the actual cost of a completed call.
func (g *BudgetGate) Record(costUSD float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.maybeReset()
	g.daySpend += costUSD
	g.monthSpend += costUSD
}

func (g *BudgetGate) maybeReset() {
	now := time.Now()
	if now.YearDay() != g.lastDayReset.YearDay() || now.Year() != g.lastDayReset.Year() {
		g.daySpend = 0
		g.lastDayReset = now
	}
	if now.Month() != g.lastMonthReset.Month() || now.Year() != g.lastMonthReset.Year() {
		g.monthSpend = 0
		g.lastMonthReset = now
	}
}

// Status renders the remaining budget for log lines.
func (g *BudgetGate) Status() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("day $%.2f/$%.2f, month $%.2f/$%.2f",
		g.daySpend, g.dailyLimitUSD, g.monthSpend, g.monthlyLimitUSD)
}

// ErrBudgetExceeded signals the gate refused a call.
type ErrBudgetExceeded struct{ Status string }

func (e *ErrBudgetExceeded) Error() string {
	return "ai: budget limit exceeded: " + e.Status
}
