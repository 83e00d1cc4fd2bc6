// Package justice implements the police case engine and the court: case
// lifecycle, daily investigation notes, arrest requests, trials, and the
// quiet corruption channel that can steer a case cold.
package justice

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aicity-project/aicity/internal/brain"
	"github.com/aicity-project/aicity/internal/config"
	"github.com/aicity-project/aicity/internal/economy"
	"github.com/aicity-project/aicity/internal/events"
	"github.com/aicity-project/aicity/internal/platform/logger"
)

// Status of a police case.
type Status string

const (
	StatusOpen   Status = "open"
	StatusSolved Status = "solved"
	StatusCold   Status = "cold"
)

// Note is one daily investigation note on a case.
type Note struct {
	Day        int      `json:"day"`
	Text       string   `json:"text"`
	Suspects   []string `json:"suspects"`
	Confidence float64  `json:"confidence"`
}

// Case is one police investigation.
type Case struct {
	ID            string      `json:"id"`
	EventID       string      `json:"event_id"`
	LinkedEvents  []string    `json:"linked_events"`
	Crime         events.Kind `json:"crime"`
	Complainant   string      `json:"complainant"`
	Suspect       string      `json:"suspect,omitempty"`
	Status        Status      `json:"status"`
	OpenedDay     int         `json:"opened_day"`
	LastEvidence  int         `json:"last_evidence_day"`
	ClosedDay     int         `json:"closed_day,omitempty"`
	Notes         []Note      `json:"notes"`
	ClosingReport string      `json:"closing_report,omitempty"`
	// bribed steers the investigation toward a cold resolution. It is
	// never serialized to any observer-facing surface.
	bribed bool
}

func (c *Case) clone() Case {
	cp := *c
	cp.LinkedEvents = append([]string(nil), c.LinkedEvents...)
	cp.Notes = append([]Note(nil), c.Notes...)
	return cp
}

// ArrestRequest is queued when an investigation asks for an arrest with
// enough confidence.
type ArrestRequest struct {
	CaseID  string
	Suspect string
	Day     int
}

// Officer carries the investigating officer's hidden disposition into the
// prompt framing. Susceptibility never appears in any output.
type Officer struct {
	Name           string
	Susceptibility float64
}

// Framing converts susceptibility into the descriptive tone the prompt uses.
func (o Officer) Framing() string {
	switch {
	case o.Susceptibility < 0.33:
		return "honest to a fault"
	case o.Susceptibility < 0.67:
		return "pragmatic about the letter of the law"
	default:
		return "corrupt, open to a quiet arrangement"
	}
}

// Engine runs all police cases.
type Engine struct {
	mu      sync.Mutex
	cases   map[string]*Case
	byEvent map[string]string

	cfg      config.Justice
	eventLog *events.Log
	facade   *brain.Facade
	logger   *logger.Logger
}

func NewEngine(cfg config.Justice, eventLog *events.Log, facade *brain.Facade, log *logger.Logger) *Engine {
	return &Engine{
		cases:    make(map[string]*Case),
		byEvent:  make(map[string]string),
		cfg:      cfg,
		eventLog: eventLog,
		facade:   facade,
		logger:   log,
	}
}

// OpenOrLink files a report for an event: a new case is opened, or the
// evidence attaches to the existing case, reopening it if it went cold.
func (e *Engine) OpenOrLink(day int, ev events.Event) (caseID string, opened bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id, ok := e.byEvent[ev.ID]; ok {
		c := e.cases[id]
		c.LastEvidence = day
		if c.Status == StatusCold {
			c.Status = StatusOpen
			c.ClosingReport = ""
			e.logger.Event("case_reopened", c.Complainant, c.ID)
		}
		return id, false
	}
	c := &Case{
		ID:           uuid.NewString(),
		EventID:      ev.ID,
		LinkedEvents: []string{ev.ID},
		Crime:        ev.Kind,
		Complainant:  ev.Target,
		Status:       StatusOpen,
		OpenedDay:    day,
		LastEvidence: day,
	}
	if c.Complainant == "" {
		c.Complainant = "the city"
	}
	e.cases[c.ID] = c
	e.byEvent[ev.ID] = c.ID
	e.logger.Event("case_opened", c.Complainant, fmt.Sprintf("%s (%s)", c.ID, c.Crime))
	return c.ID, true
}

// LinkEvidence attaches another event to an existing case. New evidence
// resets the cold-case clock and reopens a cold case.
func (e *Engine) LinkEvidence(day int, caseID, eventID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.cases[caseID]
	if !ok {
		return fmt.Errorf("justice: no case %s", caseID)
	}
	for _, id := range c.LinkedEvents {
		if id == eventID {
			return nil
		}
	}
	c.LinkedEvents = append(c.LinkedEvents, eventID)
	c.LastEvidence = day
	e.byEvent[eventID] = caseID
	if c.Status == StatusCold {
		c.Status = StatusOpen
		c.ClosingReport = ""
		e.logger.Event("case_reopened", c.Complainant, c.ID)
	}
	return nil
}

// MarkBribed conditions a case toward a cold resolution. Returns the
// susceptibility drift the caller applies to the accepting officer.
func (e *Engine) MarkBribed(caseID string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.cases[caseID]; ok && c.Status == StatusOpen {
		c.bribed = true
	}
	return e.cfg.BribeDrift
}

// GuiltyVerdictDrift is the susceptibility change for an officer who
// watches justice land.
func (e *Engine) GuiltyVerdictDrift() float64 {
	return -e.cfg.BribeDrift
}

// evidenceLines renders a case's police-scope evidence for the prompt.
func evidenceLines(c *Case, scoped []events.Event) []string {
	linked := make(map[string]bool, len(c.LinkedEvents))
	for _, id := range c.LinkedEvents {
		linked[id] = true
	}
	var out []string
	for _, ev := range scoped {
		if !linked[ev.ID] {
			continue
		}
		out = append(out, fmt.Sprintf("day %d, %s: %s (witnesses: %s)",
			ev.Day, ev.Kind, ev.Description, strings.Join(ev.Witnesses, ", ")))
		for _, tr := range ev.Evidence {
			out = append(out, fmt.Sprintf("day %d, %s: %s", tr.Day, tr.Source, tr.Note))
		}
	}
	return out
}

// ledgerLines renders transactions around the case window for the prompt.
func ledgerLines(txs []economy.Transaction, fromDay, toDay int) []string {
	var out []string
	for _, tx := range txs {
		if tx.Day < fromDay || tx.Day > toDay {
			continue
		}
		out = append(out, fmt.Sprintf("day %d: %s -> %s, %d tokens (%s: %s)",
			tx.Day, tx.From, tx.To, tx.Amount, tx.Kind, tx.Reason))
	}
	return out
}

// InvestigateDaily runs one investigation round over every open case, with
// the reasoning calls fanned out under a bounded errgroup. It returns the
// arrest requests that cleared the confidence threshold.
func (e *Engine) InvestigateDaily(ctx context.Context, day int, officer Officer, txs []economy.Transaction) []ArrestRequest {
	scoped := e.eventLog.PoliceScope(events.PoliceFilter{})

	// Snapshot the prompt material under the lock; the reasoning calls
	// run without it.
	e.mu.Lock()
	var open []*Case
	var contexts []brain.CaseContext
	for _, c := range e.cases {
		if c.Status != StatusOpen {
			continue
		}
		open = append(open, c)
		contexts = append(contexts, brain.CaseContext{
			Day:            day,
			CaseID:         c.ID,
			OpenedDay:      c.OpenedDay,
			Crime:          string(c.Crime),
			Complainant:    c.Complainant,
			Evidence:       evidenceLines(c, scoped),
			Ledger:         ledgerLines(txs, c.OpenedDay-2, day),
			PriorNotes:     c.noteTexts(),
			OfficerFraming: officer.Framing(),
		})
	}
	e.mu.Unlock()
	sort.Sort(&caseOrder{open, contexts})

	notes := make([]*brain.CaseNote, len(open))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range open {
		i := i
		g.Go(func() error {
			notes[i] = e.facade.InvestigationNote(gctx, contexts[i])
			return nil
		})
	}
	_ = g.Wait()

	var arrests []ArrestRequest
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, c := range open {
		if notes[i] == nil {
			continue
		}
		note := *notes[i]
		if c.bribed {
			// A paid-off officer files thin notes and asks for no one.
			note.Confidence /= 2
			note.RequestArrest = false
		}
		c.Notes = append(c.Notes, Note{
			Day: day, Text: note.Text, Suspects: note.SuspectRank, Confidence: note.Confidence,
		})
		if len(note.SuspectRank) > 0 {
			c.Suspect = note.SuspectRank[0]
		}
		if note.RequestArrest && note.Confidence >= e.cfg.ArrestConfidence && c.Suspect != "" {
			arrests = append(arrests, ArrestRequest{CaseID: c.ID, Suspect: c.Suspect, Day: day})
		}
	}

	// Cold pass: no new evidence for the configured stretch.
	for _, c := range open {
		if c.Status != StatusOpen {
			continue
		}
		if day-c.LastEvidence >= e.cfg.ColdCaseDays {
			c.Status = StatusCold
			c.ClosedDay = day
			c.ClosingReport = e.closingReport(c, day)
			e.logger.Event("case_cold", c.Complainant, c.ID)
		}
	}
	return arrests
}

// closingReport writes the cold-case closing narrative from police-scope
// material only.
func (e *Engine) closingReport(c *Case, day int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Case %s (%s, opened day %d) closed cold on day %d.", c.ID, c.Crime, c.OpenedDay, day)
	if c.Suspect != "" && !c.bribed {
		fmt.Fprintf(&b, " Last suspect on file: %s.", c.Suspect)
	}
	if c.bribed {
		b.WriteString(" The trail thinned out and no suspect could be held.")
	} else if len(c.Notes) > 0 {
		fmt.Fprintf(&b, " Final note: %s", c.Notes[len(c.Notes)-1].Text)
	}
	return b.String()
}

// caseOrder keeps cases and their prompt contexts sorted together, oldest
// case first with a stable id tiebreak.
type caseOrder struct {
	cases    []*Case
	contexts []brain.CaseContext
}

func (o *caseOrder) Len() int { return len(o.cases) }
func (o *caseOrder) Less(i, j int) bool {
	if o.cases[i].OpenedDay != o.cases[j].OpenedDay {
		return o.cases[i].OpenedDay < o.cases[j].OpenedDay
	}
	return o.cases[i].ID < o.cases[j].ID
}
func (o *caseOrder) Swap(i, j int) {
	o.cases[i], o.cases[j] = o.cases[j], o.cases[i]
	o.contexts[i], o.contexts[j] = o.contexts[j], o.contexts[i]
}

func (c *Case) noteTexts() []string {
	var out []string
	for _, n := range c.Notes {
		out = append(out, fmt.Sprintf("day %d (confidence %.2f): %s", n.Day, n.Confidence, n.Text))
	}
	return out
}

// MarkSolved closes a case after a guilty verdict.
func (e *Engine) MarkSolved(day int, caseID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.cases[caseID]
	if !ok {
		return
	}
	c.Status = StatusSolved
	c.ClosedDay = day
	c.ClosingReport = fmt.Sprintf("Case %s solved on day %d: guilty verdict against %s.", c.ID, day, c.Suspect)
	e.logger.Event("case_solved", c.Suspect, c.ID)
}

// Get returns a copy of one case.
func (e *Engine) Get(caseID string) (Case, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.cases[caseID]; ok {
		return c.clone(), true
	}
	return Case{}, false
}

// ColdCases returns all currently cold cases; the scheduler applies the
// daily inaction mood penalty to their complainants.
func (e *Engine) ColdCases() []Case {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Case
	for _, c := range e.cases {
		if c.Status == StatusCold {
			out = append(out, c.clone())
		}
	}
	return out
}

// OpenCaseCount feeds the lawyer's earnings scale.
func (e *Engine) OpenCaseCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.cases {
		if c.Status == StatusOpen {
			n++
		}
	}
	return n
}

// CaseForEvent finds the case an event is linked to.
func (e *Engine) CaseForEvent(eventID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.byEvent[eventID]
	return id, ok
}

// All returns every case for persistence.
func (e *Engine) All() []Case {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Case, 0, len(e.cases))
	for _, c := range e.cases {
		out = append(out, c.clone())
	}
	return out
}

// Restore loads persisted cases.
func (e *Engine) Restore(cases []Case) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cases = make(map[string]*Case, len(cases))
	e.byEvent = make(map[string]string)
	for _, c := range cases {
		cc := c.clone()
		e.cases[cc.ID] = &cc
		for _, evID := range cc.LinkedEvents {
			e.byEvent[evID] = cc.ID
		}
	}
}
