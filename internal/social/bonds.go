// Package social tracks the soft fabric of the city: pairwise bonds, the
// mood register, and the short-lived message bus agents gossip through.
package social

import (
	"sort"
	"sync"
)

// Signed deltas applied to a bond for one in-day interaction.
const (
	DeltaCooperative   = 0.10
	DeltaAntagonistic  = -0.15
	DeltaSharedProject = 0.05
	dailyDecay         = 0.005
)

// Bond is one directed view of a pairwise relationship.
type Bond struct {
	Other   string  `json:"other"`
	Score   float64 `json:"score"`
	Context string  `json:"context"` // most recent interaction note
}

type pairKey struct{ a, b string }

func keyFor(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

type bondState struct {
	score   float64
	context string
}

// BondGraph holds all pairwise bonds behind one mutex.
type BondGraph struct {
	mu    sync.Mutex
	bonds map[pairKey]*bondState
}

func NewBondGraph() *BondGraph {
	return &BondGraph{bonds: make(map[pairKey]*bondState)}
}

func clampBond(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// Update applies a signed delta to the bond between two agents and records
// the interaction note as the bond's current context.
func (g *BondGraph) Update(a, b string, delta float64, note string) {
	if a == b || a == "" || b == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	k := keyFor(a, b)
	s, ok := g.bonds[k]
	if !ok {
		s = &bondState{}
		g.bonds[k] = s
	}
	s.score = clampBond(s.score + delta)
	if note != "" {
		s.context = note
	}
}

// DecayDaily drifts every non-zero bond toward 0. Bonds that reach zero are
// forgotten entirely.
func (g *BondGraph) DecayDaily() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, s := range g.bonds {
		switch {
		case s.score > dailyDecay:
			s.score -= dailyDecay
		case s.score < -dailyDecay:
			s.score += dailyDecay
		default:
			delete(g.bonds, k)
		}
	}
}

// Score returns the current bond between two agents (0 if none).
func (g *BondGraph) Score(a, b string) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.bonds[keyFor(a, b)]; ok {
		return s.score
	}
	return 0
}

// Label renders a bond score as the phrase agents reason with.
func Label(score float64) string {
	switch {
	case score >= 0.60:
		return "close ally"
	case score >= 0.20:
		return "friendly"
	case score > -0.20:
		return "acquaintance"
	case score > -0.60:
		return "tense"
	default:
		return "bitter enemy"
	}
}

// bondsOf collects all bonds involving one agent.
func (g *BondGraph) bondsOf(name string) []Bond {
	var out []Bond
	for k, s := range g.bonds {
		switch name {
		case k.a:
			out = append(out, Bond{Other: k.b, Score: s.score, Context: s.context})
		case k.b:
			out = append(out, Bond{Other: k.a, Score: s.score, Context: s.context})
		}
	}
	return out
}

// TopBonds returns an agent's k strongest positive and k strongest negative
// bonds, for the decision context.
func (g *BondGraph) TopBonds(name string, k int) (positive, negative []Bond) {
	g.mu.Lock()
	defer g.mu.Unlock()
	all := g.bondsOf(name)
	sort.Slice(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	for _, b := range all {
		if b.Score > 0 && len(positive) < k {
			positive = append(positive, b)
		}
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Score < 0 && len(negative) < k {
			negative = append(negative, all[i])
		}
	}
	return positive, negative
}

// Snapshot returns every bond as directed records for persistence.
type BondRecord struct {
	AgentA  string  `json:"agent_a" db:"agent_a"`
	AgentB  string  `json:"agent_b" db:"agent_b"`
	Score   float64 `json:"score" db:"score"`
	Context string  `json:"context" db:"context"`
}

func (g *BondGraph) Snapshot() []BondRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]BondRecord, 0, len(g.bonds))
	for k, s := range g.bonds {
		out = append(out, BondRecord{AgentA: k.a, AgentB: k.b, Score: s.score, Context: s.context})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AgentA != out[j].AgentA {
			return out[i].AgentA < out[j].AgentA
		}
		return out[i].AgentB < out[j].AgentB
	})
	return out
}

// Restore loads persisted bond records.
func (g *BondGraph) Restore(records []BondRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bonds = make(map[pairKey]*bondState, len(records))
	for _, r := range records {
		g.bonds[keyFor(r.AgentA, r.AgentB)] = &bondState{score: clampBond(r.Score), context: r.Context}
	}
}
