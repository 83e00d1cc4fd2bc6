// Package metrics provides observability for the city engine.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers simulation performance metrics.
type Collector struct {
	// Day-tick metrics
	DayCount      int64
	DayLatencySum int64 // nanoseconds
	DayLatencyMax int64
	LastDayTime   time.Time

	// Event metrics
	EventsWritten    int64
	EventWriteErrors int64

	// Ledger metrics
	Transactions int64

	// WebSocket metrics
	WSObserversActive int64
	WSMessagesOut     int64
	WSObserversDropped int64

	// Reasoning-model metrics
	LLMRequests  int64
	LLMFallbacks int64
	LLMTokensUsed int64
	LLMLatencySum int64

	StartTime time.Time
	mu        sync.RWMutex
}

var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordDay records a completed day tick.
func (c *Collector) RecordDay(latency time.Duration) {
	atomic.AddInt64(&c.DayCount, 1)
	atomic.AddInt64(&c.DayLatencySum, int64(latency))
	if int64(latency) > atomic.LoadInt64(&c.DayLatencyMax) {
		atomic.StoreInt64(&c.DayLatencyMax, int64(latency))
	}
	c.mu.Lock()
	c.LastDayTime = time.Now()
	c.mu.Unlock()
}

// RecordEventWrite records an event write.
func (c *Collector) RecordEventWrite(err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordTransaction records a ledger transaction.
func (c *Collector) RecordTransaction() {
	atomic.AddInt64(&c.Transactions, 1)
}

// RecordObserver records observer connection changes.
func (c *Collector) RecordObserver(delta int64) {
	atomic.AddInt64(&c.WSObserversActive, delta)
}

// RecordObserverDrop records a slow observer removed from the live feed.
func (c *Collector) RecordObserverDrop() {
	atomic.AddInt64(&c.WSObserversDropped, 1)
}

// RecordBroadcast records an outgoing observer message.
func (c *Collector) RecordBroadcast() {
	atomic.AddInt64(&c.WSMessagesOut, 1)
}

// RecordLLMCall records a reasoning-model API call.
func (c *Collector) RecordLLMCall(tokens int, latency time.Duration) {
	atomic.AddInt64(&c.LLMRequests, 1)
	atomic.AddInt64(&c.LLMTokensUsed, int64(tokens))
	atomic.AddInt64(&c.LLMLatencySum, int64(latency))
}

// RecordLLMFallback records a decision that fell back to the role default.
func (c *Collector) RecordLLMFallback() {
	atomic.AddInt64(&c.LLMFallbacks, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dayCount := atomic.LoadInt64(&c.DayCount)
	llmRequests := atomic.LoadInt64(&c.LLMRequests)

	var dayAvg, llmAvg float64
	if dayCount > 0 {
		dayAvg = float64(atomic.LoadInt64(&c.DayLatencySum)) / float64(dayCount) / 1e6 // ms
	}
	if llmRequests > 0 {
		llmAvg = float64(atomic.LoadInt64(&c.LLMLatencySum)) / float64(llmRequests) / 1e9 // seconds
	}

	return map[string]any{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"days": map[string]any{
			"count":          dayCount,
			"avg_latency_ms": dayAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.DayLatencyMax)) / 1e6,
			"last_day":       c.LastDayTime.Format(time.RFC3339),
		},

		"events": map[string]any{
			"written": atomic.LoadInt64(&c.EventsWritten),
			"errors":  atomic.LoadInt64(&c.EventWriteErrors),
		},

		"ledger": map[string]any{
			"transactions": atomic.LoadInt64(&c.Transactions),
		},

		"observers": map[string]any{
			"active":       atomic.LoadInt64(&c.WSObserversActive),
			"messages_out": atomic.LoadInt64(&c.WSMessagesOut),
			"dropped":      atomic.LoadInt64(&c.WSObserversDropped),
		},

		"llm": map[string]any{
			"requests":        llmRequests,
			"fallbacks":       atomic.LoadInt64(&c.LLMFallbacks),
			"tokens_used":     atomic.LoadInt64(&c.LLMTokensUsed),
			"avg_latency_sec": llmAvg,
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Get().Snapshot())
	}
}
