// Package events provides the city's hidden ledger of actions.
// Every significant action is recorded with a visibility state that gates
// who may observe it. Crimes start private; information spreads only
// through witnesses, rumors, reports, and verdicts.
package events

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Visibility is a monotonically non-decreasing label on an event.
type Visibility int

const (
	VisibilityPrivate Visibility = iota
	VisibilityWitnessed
	VisibilityRumor
	VisibilityReported
	VisibilityPublic
)

var visibilityNames = [...]string{"private", "witnessed", "rumor", "reported", "public"}

func (v Visibility) String() string {
	if v < VisibilityPrivate || v > VisibilityPublic {
		return fmt.Sprintf("visibility(%d)", int(v))
	}
	return visibilityNames[v]
}

// ParseVisibility converts a stored string back to a Visibility.
func ParseVisibility(s string) (Visibility, error) {
	for i, name := range visibilityNames {
		if name == s {
			return Visibility(i), nil
		}
	}
	return VisibilityPrivate, fmt.Errorf("unknown visibility %q", s)
}

// MarshalText serializes the visibility by name, so JSON payloads and
// stored columns carry "public" rather than an ordinal.
func (v Visibility) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText restores a visibility from its name.
func (v *Visibility) UnmarshalText(text []byte) error {
	parsed, err := ParseVisibility(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Kind is the category of a city event.
type Kind string

const (
	KindTheft       Kind = "theft"
	KindArrest      Kind = "arrest"
	KindArson       Kind = "arson"
	KindAssault     Kind = "assault"
	KindBribe       Kind = "bribe"
	KindBlackmail   Kind = "blackmail"
	KindHeal        Kind = "heal"
	KindDeath       Kind = "death"
	KindBirth       Kind = "birth"
	KindBuild       Kind = "build"
	KindDiscovery   Kind = "discovery"
	KindSabotage    Kind = "sabotage"
	KindGraduation  Kind = "graduation"
	KindMeeting     Kind = "meeting"
	KindVerdict     Kind = "verdict"
	KindHeartAttack Kind = "heart_attack"
	KindWindfall    Kind = "windfall"
	KindEarning     Kind = "earning"
	KindGangFormed  Kind = "gang_formed"
)

// Incriminating reports whether the kind is a crime someone could be
// charged with, the material blackmail and police work run on.
func (k Kind) Incriminating() bool {
	switch k {
	case KindTheft, KindArson, KindAssault, KindBribe, KindBlackmail, KindSabotage:
		return true
	}
	return false
}

// ErrVisibilityRegression is returned when a caller attempts to move an
// event's visibility backward. Visibility only moves forward.
var ErrVisibilityRegression = errors.New("events: visibility may not move backward")

// ErrNotFound is returned for unknown event ids.
var ErrNotFound = errors.New("events: no such event")

// Evidence is one entry in an event's open evidence bag.
type Evidence struct {
	Day    int    `json:"day"`
	Source string `json:"source"`
	Note   string `json:"note"`
}

// Event represents an immutable record of an action in the city.
// Only visibility, witnesses, and the evidence trail grow after creation;
// everything else is fixed at append time.
type Event struct {
	ID          string     `json:"id"`
	Seq         int64      `json:"seq"` // total creation order
	Day         int        `json:"day"`
	Kind        Kind       `json:"kind"`
	Actor       string     `json:"actor"`
	Target      string     `json:"target,omitempty"`
	AssetID     string     `json:"asset_id,omitempty"`
	Description string     `json:"description"`
	Visibility  Visibility `json:"visibility"`
	Witnesses   []string   `json:"witnesses,omitempty"`
	Evidence    []Evidence `json:"evidence,omitempty"`
}

func (e *Event) clone() Event {
	out := *e
	out.Witnesses = append([]string(nil), e.Witnesses...)
	out.Evidence = append([]Evidence(nil), e.Evidence...)
	return out
}

// HasWitness reports whether name is in the witness set.
func (e *Event) HasWitness(name string) bool {
	for _, w := range e.Witnesses {
		if w == name {
			return true
		}
	}
	return false
}

// Persister defines how event state changes are durably stored.
type Persister interface {
	AppendEvent(e Event) error
	UpdateEvent(e Event) error
}

// Log is the in-memory append-only log of city events, with the visibility
// machine enforced at the write boundary. Reads return copies.
type Log struct {
	mu        sync.RWMutex
	events    []*Event
	byID      map[string]*Event
	knownBy   map[string]map[string]bool // event id -> agents with a personal memory of it
	persister Persister
	nextSeq   int64
}

// NewLog creates a new event log with an optional persister.
func NewLog(persister Persister) *Log {
	return &Log{
		byID:      make(map[string]*Event),
		knownBy:   make(map[string]map[string]bool),
		persister: persister,
	}
}

// Append records a new event and returns its id.
// Most crimes should start private. Openly public acts (births, deaths,
// verdicts, completed builds) should start public; arrests start reported.
func (l *Log) Append(day int, kind Kind, actor, target, assetID, description string, vis Visibility) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextSeq++
	e := &Event{
		ID:          uuid.NewString(),
		Seq:         l.nextSeq,
		Day:         day,
		Kind:        kind,
		Actor:       actor,
		Target:      target,
		AssetID:     assetID,
		Description: description,
		Visibility:  vis,
	}
	// Actor always personally knows their own event.
	l.recordKnowerLocked(e.ID, actor)
	if target != "" {
		l.recordKnowerLocked(e.ID, target)
	}
	l.events = append(l.events, e)
	l.byID[e.ID] = e

	if l.persister != nil {
		_ = l.persister.AppendEvent(e.clone())
	}
	return e.ID
}

// promoteLocked moves an event forward to the given visibility.
// Promoting to the current state is a no-op. Backward moves are rejected.
func (l *Log) promoteLocked(e *Event, to Visibility) error {
	if to < e.Visibility {
		return fmt.Errorf("%w: %s -> %s (event %s)", ErrVisibilityRegression, e.Visibility, to, e.ID)
	}
	if to == e.Visibility {
		return nil
	}
	e.Visibility = to
	if l.persister != nil {
		_ = l.persister.UpdateEvent(e.clone())
	}
	return nil
}

// PromoteWitnessed moves a private event to witnessed and records the
// witnesses. Witnesses gain a personal memory of the event.
func (l *Log) PromoteWitnessed(eventID string, witnesses []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.byID[eventID]
	if !ok {
		return ErrNotFound
	}
	for _, w := range witnesses {
		if !e.HasWitness(w) {
			e.Witnesses = append(e.Witnesses, w)
		}
		l.recordKnowerLocked(eventID, w)
	}
	return l.promoteLocked(e, VisibilityWitnessed)
}

// PromoteRumor records that a knower told someone about the event.
// The message body lands in the evidence trail so police can later see
// how the information spread.
func (l *Log) PromoteRumor(eventID, from, to string, day int, body string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.byID[eventID]
	if !ok {
		return ErrNotFound
	}
	e.Evidence = append(e.Evidence, Evidence{Day: day, Source: from, Note: fmt.Sprintf("told %s: %s", to, body)})
	l.recordKnowerLocked(eventID, to)
	return l.promoteLocked(e, VisibilityRumor)
}

// PromoteReported records a formal report filed by the victim or a witness.
func (l *Log) PromoteReported(eventID, reporter string, day int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.byID[eventID]
	if !ok {
		return ErrNotFound
	}
	e.Evidence = append(e.Evidence, Evidence{Day: day, Source: reporter, Note: "filed a formal report"})
	return l.promoteLocked(e, VisibilityReported)
}

// Publish marks an event public — a court verdict, an open act, or enough
// independent knowers. From this point the newspaper can reference it.
func (l *Log) Publish(eventID, reason string, day int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.byID[eventID]
	if !ok {
		return ErrNotFound
	}
	e.Evidence = append(e.Evidence, Evidence{Day: day, Source: "city", Note: "made public: " + reason})
	return l.promoteLocked(e, VisibilityPublic)
}

// AddEvidence appends a note to the evidence trail without changing visibility.
func (l *Log) AddEvidence(eventID string, ev Evidence) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.byID[eventID]
	if !ok {
		return ErrNotFound
	}
	e.Evidence = append(e.Evidence, ev)
	if l.persister != nil {
		_ = l.persister.UpdateEvent(e.clone())
	}
	return nil
}

// RecordKnower marks that an agent has a personal memory of the event.
// The knower count drives the five-independent-knowers public promotion.
func (l *Log) RecordKnower(eventID, agentName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recordKnowerLocked(eventID, agentName)
}

func (l *Log) recordKnowerLocked(eventID, agentName string) {
	if agentName == "" {
		return
	}
	set, ok := l.knownBy[eventID]
	if !ok {
		set = make(map[string]bool)
		l.knownBy[eventID] = set
	}
	set[agentName] = true
}

// KnowerCount returns the number of independent agents with a personal
// memory of the event.
func (l *Log) KnowerCount(eventID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.knownBy[eventID])
}

// Get returns a copy of one event.
func (l *Log) Get(eventID string) (Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.byID[eventID]
	if !ok {
		return Event{}, ErrNotFound
	}
	return e.clone(), nil
}

// Visibility returns the current visibility of one event.
func (l *Log) Visibility(eventID string) (Visibility, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.byID[eventID]
	if !ok {
		return VisibilityPrivate, ErrNotFound
	}
	return e.Visibility, nil
}

// Restore re-inserts a persisted event, preserving its id and sequence.
// Only the persistence adapter should call this, during resume.
func (l *Log) Restore(e Event, knowers []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	copy := e.clone()
	stored := &copy
	l.events = append(l.events, stored)
	l.byID[stored.ID] = stored
	if stored.Seq > l.nextSeq {
		l.nextSeq = stored.Seq
	}
	for _, k := range knowers {
		l.recordKnowerLocked(stored.ID, k)
	}
}

// ─── Scoped queries ─────────────────────────────────────────────────────────

// NarratorScope returns public events only. This is the single scope the
// newspaper is permitted — the paper is always behind the truth.
func (l *Log) NarratorScope(sinceDay int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, e := range l.events {
		if e.Visibility == VisibilityPublic && e.Day >= sinceDay {
			out = append(out, e.clone())
		}
	}
	return out
}

// PoliceFilter narrows a police-scope query.
type PoliceFilter struct {
	Suspect  string
	Target   string
	Kind     Kind
	SinceDay int
}

// PoliceScope returns the evidence police can legally access: witnessed,
// reported, and public events. Police never see private events or rumors —
// rumor is not yet in the book.
func (l *Log) PoliceScope(f PoliceFilter) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, e := range l.events {
		switch e.Visibility {
		case VisibilityWitnessed, VisibilityReported, VisibilityPublic:
		default:
			continue
		}
		if e.Day < f.SinceDay {
			continue
		}
		if f.Suspect != "" && e.Actor != f.Suspect && e.Target != f.Suspect {
			continue
		}
		if f.Target != "" && e.Target != f.Target {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		out = append(out, e.clone())
	}
	return out
}

// AgentScope returns what one agent can know: events where they are the
// actor, the target, or a witness, plus everything public.
func (l *Log) AgentScope(name string, sinceDay int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, e := range l.events {
		if e.Day < sinceDay {
			continue
		}
		if e.Actor == name || e.Target == name || e.HasWitness(name) || e.Visibility == VisibilityPublic {
			out = append(out, e.clone())
		}
	}
	return out
}

// ByDay returns all events created on one day, in creation order.
func (l *Log) ByDay(day int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, e := range l.events {
		if e.Day == day {
			out = append(out, e.clone())
		}
	}
	return out
}

// Reported returns reported events since a day — the source the police
// complaint book scans for new cases.
func (l *Log) Reported(sinceDay int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, e := range l.events {
		if e.Visibility == VisibilityReported && e.Day >= sinceDay {
			out = append(out, e.clone())
		}
	}
	return out
}

// UnreportedCrimesAgainst returns below-reported crimes against a victim in
// a recent window. This is how a victim notices their balance is wrong and
// decides to go to the police.
func (l *Log) UnreportedCrimesAgainst(target string, sinceDay int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, e := range l.events {
		if e.Target != target || e.Day < sinceDay {
			continue
		}
		switch e.Kind {
		case KindTheft, KindAssault, KindBlackmail:
		default:
			continue
		}
		if e.Visibility < VisibilityReported {
			out = append(out, e.clone())
		}
	}
	return out
}

// All returns the full history in creation order, for state reconstruction.
func (l *Log) All() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.clone())
	}
	return out
}

// Knowers returns the recorded knower set for an event, for persistence.
func (l *Log) Knowers(eventID string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []string
	for name := range l.knownBy[eventID] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
