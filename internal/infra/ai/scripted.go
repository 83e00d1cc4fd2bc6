package ai

import (
	"context"
	"sync"
	"time"
)

// ScriptedProvider returns canned responses in order, then repeats the last
// one. It backs the deterministic test scenarios and offline runs where no
// real reasoning backend is configured.
type ScriptedProvider struct {
	mu        sync.Mutex
	responses []string
	next      int
	// Err, when set, is returned on every call to exercise fallbacks.
	Err error
}

func NewScriptedProvider(responses ...string) *ScriptedProvider {
	return &ScriptedProvider{responses: responses}
}

func (p *ScriptedProvider) Name() string    { return "scripted" }
func (p *ScriptedProvider) Available() bool { return true }

func (p *ScriptedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.responses) == 0 {
		return &CompletionResponse{Content: "{}", Model: "scripted"}, nil
	}
	i := p.next
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	p.next++
	return &CompletionResponse{
		Content: p.responses[i],
		Model:   "scripted",
		Latency: time.Microsecond,
	}, nil
}

var _ Provider = (*ScriptedProvider)(nil)
