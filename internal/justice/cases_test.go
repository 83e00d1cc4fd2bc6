package justice

import (
	"context"
	"strings"
	"testing"

	"github.com/aicity-project/aicity/internal/brain"
	"github.com/aicity-project/aicity/internal/config"
	"github.com/aicity-project/aicity/internal/events"
	"github.com/aicity-project/aicity/internal/infra/ai"
	"github.com/aicity-project/aicity/internal/platform/logger"
)

func testEngine(responses ...string) (*Engine, *events.Log) {
	cfg := config.Default()
	cfg.Reasoning.MaxRetries = 0
	log := events.NewLog(nil)
	facade := brain.NewFacade(ai.NewScriptedProvider(responses...), cfg.Reasoning, logger.New())
	return NewEngine(cfg.Justice, log, facade, logger.New()), log
}

func reportTheft(t *testing.T, e *Engine, log *events.Log, day int) (string, events.Event) {
	t.Helper()
	id := log.Append(day, events.KindTheft, "Marco", "Lena", "", "Marco stole 80 tokens from Lena", events.VisibilityPrivate)
	if err := log.PromoteReported(id, "Lena", day); err != nil {
		t.Fatalf("PromoteReported: %v", err)
	}
	ev, _ := log.Get(id)
	caseID, opened := e.OpenOrLink(day, ev)
	if !opened {
		t.Fatalf("expected a new case")
	}
	return caseID, ev
}

func TestOpenLinkAndReopen(t *testing.T) {
	e, log := testEngine()
	caseID, ev := reportTheft(t, e, log, 1)

	// Same event again: links, does not open a second case.
	if id2, opened := e.OpenOrLink(2, ev); opened || id2 != caseID {
		t.Errorf("duplicate report opened a new case: %s vs %s", id2, caseID)
	}

	// Force cold, then link fresh evidence: reopened.
	c, _ := e.Get(caseID)
	e.Restore([]Case{{
		ID: c.ID, EventID: c.EventID, LinkedEvents: c.LinkedEvents, Crime: c.Crime,
		Complainant: c.Complainant, Status: StatusCold, OpenedDay: 1, LastEvidence: 1, ClosedDay: 15,
	}})
	ev2 := log.Append(20, events.KindTheft, "Marco", "Rosa", "", "another theft", events.VisibilityPrivate)
	if err := e.LinkEvidence(20, caseID, ev2); err != nil {
		t.Fatalf("LinkEvidence: %v", err)
	}
	c, _ = e.Get(caseID)
	if c.Status != StatusOpen || c.LastEvidence != 20 {
		t.Errorf("cold case not reopened by new evidence: %+v", c)
	}
}

func TestInvestigationAppendsNoteAndQueuesArrest(t *testing.T) {
	e, log := testEngine(
		`{"confidence": 0.8, "suspect_rank": ["Marco"], "next_actions": "arrest", "case_note_text": "the witness puts Marco at the scene", "request_arrest": true}`,
	)
	caseID, _ := reportTheft(t, e, log, 1)

	arrests := e.InvestigateDaily(context.Background(), 2, Officer{Name: "Vela", Susceptibility: 0.1}, nil)
	if len(arrests) != 1 || arrests[0].Suspect != "Marco" || arrests[0].CaseID != caseID {
		t.Fatalf("expected one arrest request for Marco, got %+v", arrests)
	}
	c, _ := e.Get(caseID)
	if len(c.Notes) != 1 || c.Suspect != "Marco" {
		t.Errorf("note not appended: %+v", c)
	}
}

func TestLowConfidenceDoesNotArrest(t *testing.T) {
	e, log := testEngine(
		`{"confidence": 0.4, "suspect_rank": ["Marco"], "case_note_text": "thin", "request_arrest": true}`,
	)
	reportTheft(t, e, log, 1)
	arrests := e.InvestigateDaily(context.Background(), 2, Officer{Name: "Vela"}, nil)
	if len(arrests) != 0 {
		t.Errorf("confidence 0.4 is below the 0.65 threshold: %+v", arrests)
	}
}

func TestCaseGoesColdAfterQuietStretch(t *testing.T) {
	e, log := testEngine(
		`{"confidence": 0.2, "case_note_text": "nothing new", "request_arrest": false}`,
	)
	caseID, _ := reportTheft(t, e, log, 1)

	// Day 15: 14 days without new evidence.
	e.InvestigateDaily(context.Background(), 15, Officer{Name: "Vela"}, nil)
	c, _ := e.Get(caseID)
	if c.Status != StatusCold {
		t.Fatalf("expected cold, got %s", c.Status)
	}
	if c.ClosingReport == "" || !strings.Contains(c.ClosingReport, "cold") {
		t.Errorf("missing closing report: %q", c.ClosingReport)
	}
	if len(e.ColdCases()) != 1 {
		t.Error("ColdCases should list the case")
	}
}

func TestBribedCaseSuppressesArrestAndBiasesClosing(t *testing.T) {
	e, log := testEngine(
		`{"confidence": 0.9, "suspect_rank": ["Marco"], "case_note_text": "it is clearly Marco", "request_arrest": true}`,
		`{"confidence": 0.9, "suspect_rank": ["Marco"], "case_note_text": "still Marco", "request_arrest": true}`,
	)
	caseID, _ := reportTheft(t, e, log, 1)

	if drift := e.MarkBribed(caseID); drift != 0.05 {
		t.Errorf("bribe drift = %f, want 0.05", drift)
	}
	arrests := e.InvestigateDaily(context.Background(), 2, Officer{Name: "Vela", Susceptibility: 0.9}, nil)
	if len(arrests) != 0 {
		t.Fatalf("bribed case must not request arrests: %+v", arrests)
	}
	c, _ := e.Get(caseID)
	if c.Notes[0].Confidence != 0.45 {
		t.Errorf("bribed note confidence = %f, want halved 0.45", c.Notes[0].Confidence)
	}

	// Let it run cold; the closing report names no suspect.
	e.InvestigateDaily(context.Background(), 15, Officer{Name: "Vela", Susceptibility: 0.9}, nil)
	c, _ = e.Get(caseID)
	if c.Status != StatusCold {
		t.Fatalf("expected cold, got %s", c.Status)
	}
	if strings.Contains(c.ClosingReport, "suspect on file: Marco") {
		t.Errorf("bribed closing report names the suspect: %q", c.ClosingReport)
	}
}

func TestOfficerFraming(t *testing.T) {
	cases := []struct {
		susceptibility float64
		want           string
	}{
		{0.1, "honest"},
		{0.5, "pragmatic"},
		{0.9, "corrupt"},
	}
	for _, c := range cases {
		got := Officer{Susceptibility: c.susceptibility}.Framing()
		if !strings.Contains(got, c.want) {
			t.Errorf("Framing(%f) = %q, want it to mention %q", c.susceptibility, got, c.want)
		}
	}
}

func TestTrialGuiltySolvesCase(t *testing.T) {
	e, log := testEngine(
		`{"confidence": 0.8, "suspect_rank": ["Marco"], "case_note_text": "strong", "request_arrest": true}`,
		`{"guilty": true, "fine": 300, "reasoning": "the evidence is consistent"}`,
	)
	caseID, _ := reportTheft(t, e, log, 1)
	arrests := e.InvestigateDaily(context.Background(), 2, Officer{Name: "Vela"}, nil)
	out := e.RunTrial(context.Background(), 3, arrests[0], "")
	if !out.Guilty || out.Fine != 300 || out.Defendant != "Marco" {
		t.Fatalf("bad outcome: %+v", out)
	}
	c, _ := e.Get(caseID)
	if c.Status != StatusSolved {
		t.Errorf("case not solved after guilty verdict: %s", c.Status)
	}
}

func TestAcquittalReweighsEvidence(t *testing.T) {
	e, log := testEngine(
		`{"confidence": 0.8, "suspect_rank": ["Marco"], "case_note_text": "strong", "request_arrest": true}`,
		`{"guilty": false, "reasoning": "the witness recanted"}`,
	)
	caseID, _ := reportTheft(t, e, log, 1)
	arrests := e.InvestigateDaily(context.Background(), 2, Officer{Name: "Vela"}, nil)
	out := e.RunTrial(context.Background(), 3, arrests[0], "my client was elsewhere")
	if out.Guilty {
		t.Fatal("expected acquittal")
	}
	c, _ := e.Get(caseID)
	if c.Status != StatusOpen {
		t.Errorf("acquitted case should stay open, got %s", c.Status)
	}
	if c.Notes[0].Confidence != 0.4 {
		t.Errorf("confidence should halve on acquittal, got %f", c.Notes[0].Confidence)
	}
}
