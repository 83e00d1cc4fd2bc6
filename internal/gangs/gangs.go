// Package gangs implements criminal organizations: recruitment from the
// desperate, probabilistic formation, earning multipliers, exposure on
// arrest, and collapse when the leader goes down.
package gangs

import (
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/aicity-project/aicity/internal/config"
	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/platform/logger"
)

// Status of a gang.
type Status string

const (
	StatusActive Status = "active"
	StatusBroken Status = "broken"
)

// Gang is one criminal organization. Members includes the leader.
type Gang struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Leader        string   `json:"leader"`
	Members       []string `json:"members"`
	Status        Status   `json:"status"`
	KnownToPolice bool     `json:"known_to_police"`
	FormedDay     int      `json:"formed_day"`
	BrokenDay     int      `json:"broken_day,omitempty"`
}

func (g *Gang) hasMember(name string) bool {
	for _, m := range g.Members {
		if m == name {
			return true
		}
	}
	return false
}

// namePool is cycled through as gangs form.
var namePool = []string{
	"The Night Rats",
	"The Shadow Hand",
	"Iron Circle",
	"The Broken Coin",
	"The Gray Wolves",
	"Sons of the Gutter",
}

// Registry holds all gangs behind one mutex.
type Registry struct {
	mu     sync.Mutex
	gangs  map[string]*Gang
	named  int
	cfg    config.Gangs
	logger *logger.Logger
}

func NewRegistry(cfg config.Gangs, log *logger.Logger) *Registry {
	return &Registry{gangs: make(map[string]*Gang), cfg: cfg, logger: log}
}

// Recruitable reports whether an agent can be pulled into a gang, and the
// weight of the pull. Police are never recruitable. An agent within two
// days of starving is twice as easy to turn.
func (r *Registry) Recruitable(role agent.Role, mood float64, balance, dailyBurn int64) (bool, float64) {
	if role == agent.RolePolice {
		return false, 0
	}
	if mood >= r.cfg.RecruitMoodThreshold {
		return false, 0
	}
	weight := 1.0
	if balance < 2*dailyBurn {
		weight = 2.0
	}
	return true, weight
}

// MemberOfActive reports whether an agent already belongs to an active gang.
func (r *Registry) MemberOfActive(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.gangs {
		if g.Status == StatusActive && g.hasMember(name) {
			return true
		}
	}
	return false
}

// TryForm runs one leader's daily formation check against their recruitable
// contacts. Returns the new gang if the roll succeeds.
func (r *Registry) TryForm(rng *rand.Rand, day int, leader string, recruits []string) (Gang, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.gangs {
		if g.Status == StatusActive && g.Leader == leader {
			return Gang{}, false
		}
	}
	if len(recruits) < r.cfg.RecruitTarget {
		return Gang{}, false
	}
	if rng.Float64() >= r.cfg.FormationChance {
		return Gang{}, false
	}
	g := &Gang{
		ID:        uuid.NewString(),
		Name:      namePool[r.named%len(namePool)],
		Leader:    leader,
		Members:   append([]string{leader}, recruits...),
		Status:    StatusActive,
		FormedDay: day,
	}
	r.named++
	r.gangs[g.ID] = g
	r.logger.Event("gang_formed", leader, g.Name)
	return *g, true
}

// Bonus returns the criminal earning multiplier: leader, member, or solo.
func (r *Registry) Bonus(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.gangs {
		if g.Status != StatusActive {
			continue
		}
		if g.Leader == name {
			return r.cfg.LeaderMultiplier
		}
		if g.hasMember(name) {
			return r.cfg.MemberMultiplier
		}
	}
	return 1.0
}

// OnMemberArrest runs the exposure check when a member is arrested.
// Returns the gang and whether it just became known to the police.
func (r *Registry) OnMemberArrest(rng *rand.Rand, name string) (Gang, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.gangs {
		if g.Status != StatusActive || !g.hasMember(name) {
			continue
		}
		if !g.KnownToPolice && rng.Float64() < r.cfg.ExposureChance {
			g.KnownToPolice = true
			r.logger.Event("gang_exposed", name, g.Name)
			return *g, true
		}
		return *g, false
	}
	return Gang{}, false
}

// OnLeaderGuilty collapses the gang led by the convicted agent. All member
// multipliers revert to 1.0 immediately.
func (r *Registry) OnLeaderGuilty(day int, leader string) (Gang, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.gangs {
		if g.Status == StatusActive && g.Leader == leader {
			g.Status = StatusBroken
			g.BrokenDay = day
			r.logger.Event("gang_broken", leader, g.Name)
			return *g, true
		}
	}
	return Gang{}, false
}

// GangOf returns the active gang an agent belongs to.
func (r *Registry) GangOf(name string) (Gang, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.gangs {
		if g.Status == StatusActive && g.hasMember(name) {
			return *g, true
		}
	}
	return Gang{}, false
}

// All returns every gang for persistence.
func (r *Registry) All() []Gang {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Gang, 0, len(r.gangs))
	for _, g := range r.gangs {
		out = append(out, *g)
	}
	return out
}

// Restore loads persisted gangs.
func (r *Registry) Restore(gangs []Gang) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gangs = make(map[string]*Gang, len(gangs))
	r.named = len(gangs)
	for _, g := range gangs {
		cg := g
		r.gangs[cg.ID] = &cg
	}
}
