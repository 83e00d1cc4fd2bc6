package brain

import (
	"fmt"
	"strings"

	"github.com/aicity-project/aicity/internal/social"
)

const decisionSystemPrompt = `You are a citizen of a small token economy.
You live on what you earn, you remember what happens to you, and you act in
your own interest. Answer with a single JSON object:
{"action": "...", "target": "...", "message_to": "...", "message_body": "...",
 "mood_self": "...", "rationale": "..."}
"action" must be one of the listed actions. Leave fields you do not use empty.`

const judgeSystemPrompt = `You are the city judge. Weigh only the evidence
presented. Answer with a single JSON object:
{"guilty": true|false, "fine": <tokens>, "reasoning": "..."}`

const detectiveSystemPrompt = `You are a police detective writing the daily
note on an open case. Use only the evidence in front of you. Answer with a
single JSON object:
{"confidence": 0.0-1.0, "suspect_rank": ["name", ...], "next_actions": "...",
 "case_note_text": "...", "request_arrest": true|false}`

const narratorSystemPrompt = `You write the city newspaper. You know only
what is public; never speculate about anything not in the material given.
Write a short, vivid column in plain prose.`

const graduationSystemPrompt = `A newborn has finished schooling and must
choose a trade. Answer with a single JSON object:
{"role": "...", "reasoning": "..."}`

func buildDecisionPrompt(c DecisionContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Day %d.\n\n", c.Day)
	fmt.Fprintf(&b, "You are %s, a %s, age %d days. You hold %d tokens. You feel %s.\n",
		c.Name, c.Role, c.AgeDays, c.Tokens, c.MoodText)
	if c.SusceptibilityFraming != "" {
		fmt.Fprintf(&b, "As an officer you are known to be %s.\n", c.SusceptibilityFraming)
	}
	if c.Role == "newborn" {
		fmt.Fprintf(&b, "Your schooling comprehension is %d out of 100.\n", c.Comprehension)
	}
	if c.Newspaper != "" {
		fmt.Fprintf(&b, "\nYesterday's newspaper:\n%s\n", c.Newspaper)
	}
	if len(c.AssetFlags) > 0 {
		fmt.Fprintf(&b, "\nThe city has: %s.\n", strings.Join(c.AssetFlags, ", "))
	}
	if len(c.Inbox) > 0 {
		b.WriteString("\nYour inbox:\n")
		for _, m := range c.Inbox {
			fmt.Fprintf(&b, "- from %s (day %d): %s\n", m.From, m.Day, m.Body)
		}
	}
	writeBonds(&b, "People you trust", c.PositiveBonds)
	writeBonds(&b, "People you distrust", c.NegativeBonds)
	if len(c.Recalls) > 0 {
		b.WriteString("\nYou remember:\n")
		for _, r := range c.Recalls {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	fmt.Fprintf(&b, "\nYour available actions: %s.\n", strings.Join(c.Actions, ", "))
	b.WriteString("What do you do today?")
	return b.String()
}

func writeBonds(b *strings.Builder, heading string, bonds []social.Bond) {
	if len(bonds) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", heading)
	for _, bond := range bonds {
		line := fmt.Sprintf("- %s (%s)", bond.Other, social.Label(bond.Score))
		if bond.Context != "" {
			line += ": " + bond.Context
		}
		b.WriteString(line + "\n")
	}
}

// JudgeContext is the trial material presented to the judge.
type JudgeContext struct {
	Day       int
	Defendant string
	Charge    string
	Evidence  []string
	CaseNotes []string
	Defense   string
}

func buildJudgePrompt(c JudgeContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Day %d. The city tries %s for %s.\n\nEvidence:\n", c.Day, c.Defendant, c.Charge)
	for _, e := range c.Evidence {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	if len(c.CaseNotes) > 0 {
		b.WriteString("\nInvestigation notes:\n")
		for _, n := range c.CaseNotes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	if c.Defense != "" {
		fmt.Fprintf(&b, "\nDefense statement:\n%s\n", c.Defense)
	}
	b.WriteString("\nDeliver your verdict.")
	return b.String()
}

// CaseContext is the material the detective sees for one open case.
type CaseContext struct {
	Day        int
	CaseID     string
	OpenedDay  int
	Crime      string
	Complainant string
	Evidence   []string
	Ledger     []string // transaction lines around the event window
	PriorNotes []string
	// OfficerFraming conditions the note's tone; it never appears in
	// any output surface.
	OfficerFraming string
}

func buildCasePrompt(c CaseContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Day %d. Case opened day %d: %s. Complainant: %s.\n",
		c.Day, c.OpenedDay, c.Crime, c.Complainant)
	if c.OfficerFraming != "" {
		fmt.Fprintf(&b, "You would describe yourself as %s.\n", c.OfficerFraming)
	}
	b.WriteString("\nEvidence on file:\n")
	if len(c.Evidence) == 0 {
		b.WriteString("- none\n")
	}
	for _, e := range c.Evidence {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	if len(c.Ledger) > 0 {
		b.WriteString("\nLedger records around the event window:\n")
		for _, l := range c.Ledger {
			fmt.Fprintf(&b, "- %s\n", l)
		}
	}
	if len(c.PriorNotes) > 0 {
		b.WriteString("\nYour prior notes:\n")
		for _, n := range c.PriorNotes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	b.WriteString("\nWrite today's note.")
	return b.String()
}

// NarrativeContext is the public material handed to the narrator.
type NarrativeContext struct {
	Day          int
	CityName     string
	PublicEvents []string
	HasArchive   bool // the archive allows citing exact days
	Edition      string // "daily", "weekly", "monthly"
}

func buildNarrativePrompt(c NarrativeContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the %s edition for %s, day %d.\n\nPublic record:\n", c.Edition, c.CityName, c.Day)
	if len(c.PublicEvents) == 0 {
		b.WriteString("- a quiet day; nothing reached the public record\n")
	}
	for _, e := range c.PublicEvents {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	if c.HasArchive {
		b.WriteString("\nThe city archive is open to you; cite days precisely.\n")
	}
	return b.String()
}

func buildGraduationPrompt(name string, comprehension int, roles []string, recalls []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s has come of age with a comprehension of %d/100.\n", name, comprehension)
	if len(recalls) > 0 {
		b.WriteString("\nWhat they lived through:\n")
		for _, r := range recalls {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	fmt.Fprintf(&b, "\nOpen trades: %s.\nChoose one.", strings.Join(roles, ", "))
	return b.String()
}
