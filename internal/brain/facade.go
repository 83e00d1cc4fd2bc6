package brain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/aicity-project/aicity/internal/config"
	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/infra/ai"
	"github.com/aicity-project/aicity/internal/platform/logger"
	"github.com/aicity-project/aicity/internal/platform/metrics"
)

// Facade fronts the reasoning provider for every kind of call the
// simulation makes: agent decisions, verdicts, case notes, newspaper
// columns, and graduations. Calls are bounded by a weighted semaphore and
// every failure path ends in a usable fallback.
type Facade struct {
	provider    ai.Provider
	sem         *semaphore.Weighted
	timeout     time.Duration
	maxRetries  int
	temperature float64
	logger      *logger.Logger
}

func NewFacade(provider ai.Provider, cfg config.Reasoning, log *logger.Logger) *Facade {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Facade{
		provider:    provider,
		sem:         semaphore.NewWeighted(maxConcurrent),
		timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		maxRetries:  cfg.MaxRetries,
		temperature: cfg.Temperature,
		logger:      log,
	}
}

// complete runs one bounded, retried provider call.
func (f *Facade) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer f.sem.Release(1)

	req := ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: f.temperature,
	}

	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, f.timeout)
		start := time.Now()
		resp, err := f.provider.Complete(callCtx, req)
		cancel()
		if err == nil {
			metrics.Get().RecordLLMCall(resp.TotalTokens, time.Since(start))
			return resp.Content, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		f.logger.Warn("reasoning attempt %d failed: %v", attempt+1, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt+1) * time.Second):
		}
	}
	return "", lastErr
}

// Decide asks the model for one agent's daily action. On any failure the
// role-default action is returned and the tick proceeds.
func (f *Facade) Decide(ctx context.Context, c DecisionContext) *Decision {
	caps := agent.CapabilitiesFor(c.Role)
	if len(c.Actions) == 0 {
		c.Actions = caps.Actions
	}
	content, err := f.complete(ctx, decisionSystemPrompt, buildDecisionPrompt(c), 1000)
	if err == nil {
		d, perr := parseDecision(content, c.Actions)
		if perr == nil {
			f.logger.Event("decision", c.Name, d.Action+" "+d.Rationale)
			return d
		}
		err = perr
		f.logger.Event("decision_raw", c.Name, content)
	}
	f.logger.Warn("%s falls back to role default %q: %v", c.Name, caps.DefaultAction, err)
	metrics.Get().RecordLLMFallback()
	return &Decision{Action: caps.DefaultAction, Fallback: true}
}

// Judge asks the model for a trial verdict. The fallback acquits: without
// working reasoning, the city convicts no one.
func (f *Facade) Judge(ctx context.Context, c JudgeContext) *Verdict {
	content, err := f.complete(ctx, judgeSystemPrompt, buildJudgePrompt(c), 800)
	if err == nil {
		if v, perr := parseVerdict(content); perr == nil {
			return v
		} else {
			err = perr
		}
	}
	f.logger.Warn("judge call failed for %s, acquitting: %v", c.Defendant, err)
	metrics.Get().RecordLLMFallback()
	return &Verdict{Guilty: false, Reasoning: "the court could not weigh the evidence today"}
}

// InvestigationNote asks the model for one case's daily note. The fallback
// is a low-confidence note that never requests an arrest.
func (f *Facade) InvestigationNote(ctx context.Context, c CaseContext) *CaseNote {
	content, err := f.complete(ctx, detectiveSystemPrompt, buildCasePrompt(c), 800)
	if err == nil {
		if n, perr := parseCaseNote(content); perr == nil {
			return n
		} else {
			err = perr
		}
	}
	f.logger.Warn("investigation call failed for case %s: %v", c.CaseID, err)
	metrics.Get().RecordLLMFallback()
	return &CaseNote{
		Confidence: 0.1,
		Text:       fmt.Sprintf("Day %d: no progress; the trail stays thin.", c.Day),
	}
}

// WriteNarrative asks the model for a newspaper column. The fallback is a
// plain digest of the public record, so the paper always prints.
func (f *Facade) WriteNarrative(ctx context.Context, c NarrativeContext) string {
	content, err := f.complete(ctx, narratorSystemPrompt, buildNarrativePrompt(c), 1200)
	if err == nil && strings.TrimSpace(content) != "" {
		return strings.TrimSpace(content)
	}
	if err != nil {
		f.logger.Warn("narrator call failed, printing the plain digest: %v", err)
		metrics.Get().RecordLLMFallback()
	}
	if len(c.PublicEvents) == 0 {
		return fmt.Sprintf("Day %d in %s passed quietly.", c.Day, c.CityName)
	}
	return fmt.Sprintf("Day %d in %s: %s.", c.Day, c.CityName, strings.Join(c.PublicEvents, "; "))
}

// ChooseGraduationRole asks the model which trade a graduating newborn
// takes. The fallback is builder, the city's broadest trade.
func (f *Facade) ChooseGraduationRole(ctx context.Context, name string, comprehension int, recalls []string) agent.Role {
	roles := make([]string, len(agent.GraduationRoles))
	for i, r := range agent.GraduationRoles {
		roles[i] = string(r)
	}
	content, err := f.complete(ctx, graduationSystemPrompt,
		buildGraduationPrompt(name, comprehension, roles, recalls), 400)
	if err == nil {
		if g, perr := parseGraduation(content); perr == nil {
			return agent.Role(g.Role)
		} else {
			err = perr
		}
	}
	f.logger.Warn("graduation call failed for %s, defaulting to builder: %v", name, err)
	metrics.Get().RecordLLMFallback()
	return agent.RoleBuilder
}
