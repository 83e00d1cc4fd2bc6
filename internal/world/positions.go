// Package world owns the spatial side of the city: the tile map, named
// zones, agent positions, home lots, and the placed-tile layer that standing
// assets occupy.
package world

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/platform/logger"
)

// Map dimensions in tile units. Zone boxes below are expressed against this.
const (
	GridWidth  = 96
	GridHeight = 72
)

// Phase is the coarse time of day used for routing. Citizens commute to
// their work zone in the morning and drift home in the evening.
type Phase string

const (
	PhaseDawn      Phase = "dawn"
	PhaseMorning   Phase = "morning"
	PhaseAfternoon Phase = "afternoon"
	PhaseEvening   Phase = "evening"
	PhaseNight     Phase = "night"
)

// Zone is an axis-aligned named region of the map, inclusive bounds.
type Zone struct {
	ID             string
	X1, Y1, X2, Y2 int
}

// Contains reports whether the point falls inside the zone box.
func (z Zone) Contains(x, y float64) bool {
	return x >= float64(z.X1) && x <= float64(z.X2) &&
		y >= float64(z.Y1) && y <= float64(z.Y2)
}

// Center returns the middle tile of the zone.
func (z Zone) Center() (float64, float64) {
	return float64(z.X1+z.X2) / 2, float64(z.Y1+z.Y2) / 2
}

// Zones is the fixed city layout. Order matters for which-zone lookups:
// earlier entries win when boxes overlap.
var Zones = []Zone{
	{"LOC_BRIDGE", 3, 20, 6, 23},
	{"LOC_RIVER", 3, 0, 6, 72},
	{"LOC_TOWN_SQUARE", 28, 26, 52, 34},
	{"LOC_RESIDENTIAL_N", 18, 14, 58, 26},
	{"LOC_MARKET", 8, 32, 28, 44},
	{"LOC_POLICE_STATION", 54, 30, 68, 40},
	{"LOC_BUILDER_YARD", 64, 14, 82, 28},
	{"LOC_CLINIC", 8, 44, 22, 56},
	{"LOC_RESIDENTIAL_S", 28, 44, 58, 56},
	{"LOC_SCHOOL", 62, 44, 80, 56},
	{"LOC_ARCHIVE", 8, 58, 22, 68},
	{"LOC_VAULT", 30, 58, 44, 68},
	{"LOC_DARK_ALLEY", 64, 58, 82, 68},
	{"LOC_WHISPERING_CAVES", 84, 62, 96, 72},
	{"LOC_OUTSKIRTS_E", 82, 14, 96, 58},
	{"LOC_EXPLORATION_TRAIL", 20, 0, 96, 14},
	{"LOC_WILDERNESS_N", 0, 0, 96, 12},
}

const defaultZone = "LOC_TOWN_SQUARE"

// workZones routes each role to its daytime haunt.
var workZones = map[agent.Role]string{
	agent.RoleBuilder:     "LOC_BUILDER_YARD",
	agent.RoleExplorer:    "LOC_EXPLORATION_TRAIL",
	agent.RolePolice:      "LOC_POLICE_STATION",
	agent.RoleMerchant:    "LOC_MARKET",
	agent.RoleTeacher:     "LOC_SCHOOL",
	agent.RoleHealer:      "LOC_CLINIC",
	agent.RoleMessenger:   "LOC_TOWN_SQUARE",
	agent.RoleLawyer:      "LOC_VAULT",
	agent.RoleThief:       "LOC_DARK_ALLEY",
	agent.RoleNewborn:     "LOC_SCHOOL",
	agent.RoleGangLeader:  "LOC_DARK_ALLEY",
	agent.RoleBlackmailer: "LOC_DARK_ALLEY",
	agent.RoleSaboteur:    "LOC_BUILDER_YARD",
}

// patrolWaypoints is the police beat: station, market, the alley, the
// square, back to the station.
var patrolWaypoints = [][2]float64{
	{61, 35},
	{18, 38},
	{73, 63},
	{40, 30},
	{61, 35},
}

// PositionRecord is the broadcast and persistence shape for one agent's
// position.
type PositionRecord struct {
	Name string  `json:"name" db:"name"`
	X    float64 `json:"x" db:"x"`
	Y    float64 `json:"y" db:"y"`
}

// Positions tracks where every citizen stands on the tile map.
type Positions struct {
	mu  sync.RWMutex
	pos map[string][2]float64
	rng *rand.Rand
	log *logger.Logger
}

// NewPositions returns an empty position tracker. rng drives the random
// scatter inside zones and stays with the caller's seed discipline.
func NewPositions(rng *rand.Rand, log *logger.Logger) *Positions {
	return &Positions{pos: make(map[string][2]float64), rng: rng, log: log}
}

// PlaceStarting scatters each agent inside their role's work zone and writes
// the coordinates back onto the agent.
func (p *Positions) PlaceStarting(roster []*agent.Agent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range roster {
		x, y := p.randomInZoneLocked(workZoneFor(a.Role))
		a.PosX, a.PosY = x, y
		p.pos[a.Name] = [2]float64{x, y}
	}
}

// Destination returns where an agent should head given the time of day:
// home (or work-zone center) at dawn and evening, the work zone otherwise.
// Criminal roles keep to the dark alley after nightfall.
func (p *Positions) Destination(a *agent.Agent, phase Phase, home *Lot) (float64, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch phase {
	case PhaseDawn, PhaseEvening:
		return homeOrZoneCenter(a, home)
	case PhaseNight:
		if a.Role.Criminal() {
			return p.randomInZoneLocked("LOC_DARK_ALLEY")
		}
		return homeOrZoneCenter(a, home)
	}
	return p.randomInZoneLocked(workZoneFor(a.Role))
}

// PatrolWaypoint returns step n of the police beat, wrapping.
func (p *Positions) PatrolWaypoint(step int) (float64, float64) {
	w := patrolWaypoints[step%len(patrolWaypoints)]
	return w[0], w[1]
}

// Set records a new position for the agent.
func (p *Positions) Set(name string, x, y float64) {
	p.mu.Lock()
	p.pos[name] = [2]float64{x, y}
	p.mu.Unlock()
}

// Of returns the last known position, with ok=false for strangers.
func (p *Positions) Of(name string) (x, y float64, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	xy, ok := p.pos[name]
	return xy[0], xy[1], ok
}

// Within reports whether two agents stand inside radius tiles of each other.
// Unknown positions never co-locate.
func (p *Positions) Within(a, b string, radius float64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pa, okA := p.pos[a]
	pb, okB := p.pos[b]
	if !okA || !okB {
		return false
	}
	dx, dy := pa[0]-pb[0], pa[1]-pb[1]
	return math.Sqrt(dx*dx+dy*dy) <= radius
}

// Nearby returns the names of everyone within radius of the given agent,
// excluding the agent itself, sorted for determinism.
func (p *Positions) Nearby(name string, radius float64) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	origin, ok := p.pos[name]
	if !ok {
		return nil
	}
	var out []string
	for other, xy := range p.pos {
		if other == name {
			continue
		}
		dx, dy := origin[0]-xy[0], origin[1]-xy[1]
		if math.Sqrt(dx*dx+dy*dy) <= radius {
			out = append(out, other)
		}
	}
	sort.Strings(out)
	return out
}

// ZoneOf returns the zone ID containing the agent, or "" when unknown or
// out in unzoned grass.
func (p *Positions) ZoneOf(name string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	xy, ok := p.pos[name]
	if !ok {
		return ""
	}
	for _, z := range Zones {
		if z.Contains(xy[0], xy[1]) {
			return z.ID
		}
	}
	return ""
}

// Forget drops a dead agent's position.
func (p *Positions) Forget(name string) {
	p.mu.Lock()
	delete(p.pos, name)
	p.mu.Unlock()
}

// Snapshot returns every position sorted by name, the shape the `positions`
// broadcast and the checkpoint both use.
func (p *Positions) Snapshot() []PositionRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PositionRecord, 0, len(p.pos))
	for name, xy := range p.pos {
		out = append(out, PositionRecord{Name: name, X: xy[0], Y: xy[1]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Restore replaces all positions from a checkpoint.
func (p *Positions) Restore(records []PositionRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = make(map[string][2]float64, len(records))
	for _, r := range records {
		p.pos[r.Name] = [2]float64{r.X, r.Y}
	}
}

func workZoneFor(r agent.Role) string {
	if z, ok := workZones[r]; ok {
		return z
	}
	return defaultZone
}

func zoneByID(id string) Zone {
	for _, z := range Zones {
		if z.ID == id {
			return z
		}
	}
	for _, z := range Zones {
		if z.ID == defaultZone {
			return z
		}
	}
	return Zones[0]
}

func homeOrZoneCenter(a *agent.Agent, home *Lot) (float64, float64) {
	if home != nil {
		return float64(home.X), float64(home.Y)
	}
	return zoneByID(workZoneFor(a.Role)).Center()
}

// randomInZoneLocked picks a uniform point one tile inside the zone box.
// Callers hold p.mu.
func (p *Positions) randomInZoneLocked(id string) (float64, float64) {
	z := zoneByID(id)
	x := float64(z.X1+1) + p.rng.Float64()*float64(z.X2-z.X1-2)
	y := float64(z.Y1+1) + p.rng.Float64()*float64(z.Y2-z.Y1-2)
	return math.Round(x*10) / 10, math.Round(y*10) / 10
}
