package justice

import (
	"context"
	"fmt"

	"github.com/aicity-project/aicity/internal/brain"
	"github.com/aicity-project/aicity/internal/events"
)

// TrialOutcome is the court's ruling on one arrest. The scheduler applies
// the side effects: fine, event publication, gang collapse, moods.
type TrialOutcome struct {
	CaseID    string
	Defendant string
	Crime     events.Kind
	Guilty    bool
	Fine      int64
	Reasoning string
}

// RunTrial tries an arrested suspect. The judge sees police-scope evidence
// and the case notes; a lawyer's defense statement, when one took the case,
// is heard too. A guilty verdict solves the case; acquittal sends it back
// to the open pile with the evidence re-weighed.
func (e *Engine) RunTrial(ctx context.Context, day int, req ArrestRequest, defense string) TrialOutcome {
	e.mu.Lock()
	c, ok := e.cases[req.CaseID]
	if !ok || c.Status != StatusOpen {
		e.mu.Unlock()
		return TrialOutcome{CaseID: req.CaseID, Defendant: req.Suspect, Guilty: false,
			Reasoning: "no open case to try"}
	}
	scopedCtx := brain.JudgeContext{
		Day:       day,
		Defendant: req.Suspect,
		Charge:    string(c.Crime),
		CaseNotes: c.noteTexts(),
		Defense:   defense,
	}
	crime := c.Crime
	e.mu.Unlock()

	scopedCtx.Evidence = func() []string {
		e.mu.Lock()
		defer e.mu.Unlock()
		return evidenceLines(c, e.eventLog.PoliceScope(events.PoliceFilter{}))
	}()

	verdict := e.facade.Judge(ctx, scopedCtx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if verdict.Guilty {
		c.Status = StatusSolved
		c.ClosedDay = day
		c.Suspect = req.Suspect
		c.ClosingReport = fmt.Sprintf("Case %s solved on day %d: %s found guilty of %s. %s",
			c.ID, day, req.Suspect, c.Crime, verdict.Reasoning)
		e.logger.Event("verdict_guilty", req.Suspect, c.ID)
	} else {
		// Acquittal: the case stays open and prior confidence is halved.
		for i := range c.Notes {
			c.Notes[i].Confidence /= 2
		}
		e.logger.Event("verdict_not_guilty", req.Suspect, c.ID)
	}
	return TrialOutcome{
		CaseID:    c.ID,
		Defendant: req.Suspect,
		Crime:     crime,
		Guilty:    verdict.Guilty,
		Fine:      verdict.Fine,
		Reasoning: verdict.Reasoning,
	}
}
