package brain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aicity-project/aicity/internal/config"
	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/infra/ai"
	"github.com/aicity-project/aicity/internal/platform/logger"
)

func testFacade(provider ai.Provider) *Facade {
	cfg := config.Default().Reasoning
	cfg.MaxRetries = 0
	cfg.TimeoutSeconds = 1
	return NewFacade(provider, cfg, logger.New())
}

func TestDecideParsesWellFormedAnswer(t *testing.T) {
	f := testFacade(ai.NewScriptedProvider(
		`{"action": "steal", "target": "Lena", "mood_self": "hungry", "rationale": "she is rich"}`,
	))
	d := f.Decide(context.Background(), DecisionContext{
		Name: "Marco", Role: agent.RoleThief, Day: 3,
	})
	if d.Fallback {
		t.Fatal("well-formed answer should not fall back")
	}
	if d.Action != "steal" || d.Target != "Lena" {
		t.Errorf("parsed decision wrong: %+v", d)
	}
}

func TestDecideToleratesCodeFencesAndProse(t *testing.T) {
	f := testFacade(ai.NewScriptedProvider(
		"Here is my decision:\n```json\n{\"action\": \"Lurk\", \"rationale\": \"lay low\"}\n```\nGood luck.",
	))
	d := f.Decide(context.Background(), DecisionContext{Name: "Marco", Role: agent.RoleThief})
	if d.Fallback || d.Action != "lurk" {
		t.Errorf("fenced answer not tolerated: %+v", d)
	}
}

func TestDecideRejectsActionOutsideRole(t *testing.T) {
	f := testFacade(ai.NewScriptedProvider(`{"action": "arrest", "target": "Lena"}`))
	d := f.Decide(context.Background(), DecisionContext{Name: "Marco", Role: agent.RoleThief})
	if !d.Fallback {
		t.Fatal("out-of-role action must fall back")
	}
	if d.Action != agent.CapabilitiesFor(agent.RoleThief).DefaultAction {
		t.Errorf("fallback action = %q", d.Action)
	}
}

func TestDecideFallsBackOnProviderError(t *testing.T) {
	p := ai.NewScriptedProvider()
	p.Err = errors.New("backend down")
	f := testFacade(p)
	d := f.Decide(context.Background(), DecisionContext{Name: "Rosa", Role: agent.RoleBuilder})
	if !d.Fallback || d.Action != "work" {
		t.Errorf("expected builder fallback to work, got %+v", d)
	}
}

func TestJudgeAcquitsWhenReasoningFails(t *testing.T) {
	p := ai.NewScriptedProvider()
	p.Err = errors.New("backend down")
	f := testFacade(p)
	v := f.Judge(context.Background(), JudgeContext{Defendant: "Marco", Charge: "theft"})
	if v.Guilty {
		t.Error("a failed judge call must acquit")
	}
}

func TestJudgeParsesVerdict(t *testing.T) {
	f := testFacade(ai.NewScriptedProvider(
		`{"guilty": true, "fine": 300, "reasoning": "two witnesses and the ledger agree"}`,
	))
	v := f.Judge(context.Background(), JudgeContext{Defendant: "Marco", Charge: "theft"})
	if !v.Guilty || v.Fine != 300 {
		t.Errorf("verdict wrong: %+v", v)
	}
}

func TestInvestigationNoteClampsConfidence(t *testing.T) {
	f := testFacade(ai.NewScriptedProvider(
		`{"confidence": 1.7, "suspect_rank": ["Marco"], "case_note_text": "it was Marco", "request_arrest": true}`,
	))
	n := f.InvestigationNote(context.Background(), CaseContext{CaseID: "c1", Day: 4})
	if n.Confidence != 1.0 {
		t.Errorf("confidence not clamped: %f", n.Confidence)
	}
	if !n.RequestArrest || len(n.SuspectRank) != 1 {
		t.Errorf("note wrong: %+v", n)
	}
}

func TestNarrativeFallbackPrintsDigest(t *testing.T) {
	p := ai.NewScriptedProvider()
	p.Err = errors.New("backend down")
	f := testFacade(p)
	got := f.WriteNarrative(context.Background(), NarrativeContext{
		Day: 7, CityName: "AIcity",
		PublicEvents: []string{"a market opened", "Nina was born"},
	})
	if !strings.Contains(got, "a market opened") || !strings.Contains(got, "Day 7") {
		t.Errorf("digest fallback wrong: %q", got)
	}
}

func TestGraduationRoleAllowList(t *testing.T) {
	f := testFacade(ai.NewScriptedProvider(`{"role": "gang_leader", "reasoning": "power"}`))
	got := f.ChooseGraduationRole(context.Background(), "Nina", 80, nil)
	if got != agent.RoleBuilder {
		t.Errorf("disallowed role must fall back to builder, got %s", got)
	}

	f = testFacade(ai.NewScriptedProvider(`{"role": "healer", "reasoning": "to help"}`))
	if got := f.ChooseGraduationRole(context.Background(), "Nina", 80, nil); got != agent.RoleHealer {
		t.Errorf("expected healer, got %s", got)
	}
}

func TestPromptNeverShowsMoodNumber(t *testing.T) {
	p := buildDecisionPrompt(DecisionContext{
		Name: "Marco", Role: agent.RoleThief, Day: 3, MoodText: "worn down and anxious",
	})
	if !strings.Contains(p, "worn down and anxious") {
		t.Error("mood text missing from prompt")
	}
	if strings.Contains(p, "-0.") || strings.Contains(p, "0.5") {
		t.Errorf("prompt leaks numeric mood: %q", p)
	}
}
