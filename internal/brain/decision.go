// Package brain is the decision facade between the simulation and the
// reasoning model. It builds prompts from explicitly listed context, parses
// the model's answers tolerantly, and falls back to role defaults so a day
// tick never stalls on a bad completion.
package brain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/social"
)

// Decision is the parsed output of one agent decision call.
type Decision struct {
	Action      string `json:"action"`
	Target      string `json:"target,omitempty"`
	MessageTo   string `json:"message_to,omitempty"`
	MessageBody string `json:"message_body,omitempty"`
	MoodSelf    string `json:"mood_self,omitempty"`
	Rationale   string `json:"rationale,omitempty"`
	// Fallback marks a decision produced by role defaults, not the model.
	Fallback bool `json:"-"`
}

// Verdict is the parsed output of a judge call.
type Verdict struct {
	Guilty    bool   `json:"guilty"`
	Fine      int64  `json:"fine"`
	Reasoning string `json:"reasoning"`
}

// CaseNote is the parsed output of one daily investigation call.
type CaseNote struct {
	Confidence    float64  `json:"confidence"`
	SuspectRank   []string `json:"suspect_rank"`
	NextActions   string   `json:"next_actions"`
	Text          string   `json:"case_note_text"`
	RequestArrest bool     `json:"request_arrest"`
}

// Graduation is the parsed output of a newborn graduation call.
type Graduation struct {
	Role      string `json:"role"`
	Reasoning string `json:"reasoning"`
}

// DecisionContext carries everything the model is allowed to see for one
// agent's turn. Nothing outside this struct reaches the prompt.
type DecisionContext struct {
	Name          string
	Role          agent.Role
	Tokens        int64
	AgeDays       int
	MoodText      string
	Day           int
	Newspaper     string
	AssetFlags    []string
	Inbox         []social.Message
	PositiveBonds []social.Bond
	NegativeBonds []social.Bond
	Recalls       []string
	Actions       []string
	// SusceptibilityFraming is set only for police and never leaves the
	// prompt: honest / pragmatic / corrupt.
	SusceptibilityFraming string
	// Comprehension is set only for newborns.
	Comprehension int
}

// extractJSON pulls the first JSON object out of a completion, tolerating
// code fences and surrounding prose.
func extractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)
	if i := strings.Index(content, "```"); i >= 0 {
		content = content[i+3:]
		content = strings.TrimPrefix(content, "json")
		if j := strings.Index(content, "```"); j >= 0 {
			content = content[:j]
		}
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("brain: no JSON object in completion")
	}
	return content[start : end+1], nil
}

// parseDecision decodes and validates one decision completion against the
// agent's allowed actions.
func parseDecision(content string, allowed []string) (*Decision, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}
	var d Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("brain: decode decision: %w", err)
	}
	d.Action = strings.ToLower(strings.TrimSpace(d.Action))
	for _, a := range allowed {
		if d.Action == a {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("brain: action %q not in role actions %v", d.Action, allowed)
}

func parseVerdict(content string) (*Verdict, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}
	var v Verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("brain: decode verdict: %w", err)
	}
	if v.Fine < 0 {
		v.Fine = 0
	}
	return &v, nil
}

func parseCaseNote(content string) (*CaseNote, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}
	var n CaseNote
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return nil, fmt.Errorf("brain: decode case note: %w", err)
	}
	if n.Confidence < 0 {
		n.Confidence = 0
	}
	if n.Confidence > 1 {
		n.Confidence = 1
	}
	return &n, nil
}

func parseGraduation(content string) (*Graduation, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}
	var g Graduation
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return nil, fmt.Errorf("brain: decode graduation: %w", err)
	}
	g.Role = strings.ToLower(strings.TrimSpace(g.Role))
	for _, r := range agent.GraduationRoles {
		if g.Role == string(r) {
			return &g, nil
		}
	}
	return nil, fmt.Errorf("brain: role %q not in graduation allow-list", g.Role)
}
