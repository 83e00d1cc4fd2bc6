// Package engine owns the day tick: it sequences asset benefits, agent
// turns, meetings, vault policy, event promotions, mood updates,
// persistence, and broadcast, and is the only writer of the day counter.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/aicity-project/aicity/internal/behavior"
	"github.com/aicity-project/aicity/internal/brain"
	"github.com/aicity-project/aicity/internal/config"
	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/economy"
	"github.com/aicity-project/aicity/internal/events"
	"github.com/aicity-project/aicity/internal/gangs"
	"github.com/aicity-project/aicity/internal/justice"
	"github.com/aicity-project/aicity/internal/memory"
	"github.com/aicity-project/aicity/internal/platform/logger"
	"github.com/aicity-project/aicity/internal/platform/metrics"
	"github.com/aicity-project/aicity/internal/projects"
	"github.com/aicity-project/aicity/internal/social"
	"github.com/aicity-project/aicity/internal/world"
)

// Broadcaster pushes committed day events to observers. Implementations
// must not block the tick; slow observers are the implementation's problem.
type Broadcaster interface {
	Broadcast(kind string, day int, payload any)
}

// NopBroadcaster drops everything, for headless simulation and tests.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(string, int, any) {}

// Story is one published narrative artifact.
type Story struct {
	ID      string `json:"id" db:"id"`
	Day     int    `json:"day" db:"day"`
	Edition string `json:"edition" db:"edition"` // daily | weekly | monthly
	Body    string `json:"body" db:"body"`
}

// Graduation records a newborn coming of age.
type Graduation struct {
	Day     int        `json:"day" db:"day"`
	Agent   string     `json:"agent" db:"agent"`
	NewRole agent.Role `json:"new_role" db:"new_role"`
}

// EventRecord pairs an event with its knower set for persistence.
type EventRecord struct {
	Event   events.Event `json:"event"`
	Knowers []string     `json:"knowers"`
}

// Snapshot is the complete persisted state of a city at a day boundary.
type Snapshot struct {
	Day    int    `json:"day"`
	Seed   int64  `json:"seed"`
	City   string `json:"city"`
	Agents []agent.Agent `json:"agents"`

	Ledger       economy.State         `json:"ledger"`
	Transactions []economy.Transaction `json:"transactions"`

	Events []EventRecord `json:"events"`
	Cases  []justice.Case `json:"cases"`
	Gangs  []gangs.Gang   `json:"gangs"`

	Projects []projects.Project `json:"projects"`
	Assets   []projects.Asset   `json:"assets"`

	Messages []social.Message      `json:"messages"`
	Bonds    []social.BondRecord   `json:"bonds"`
	Moods    map[string]float64    `json:"moods"`
	Memories []memory.Entry        `json:"memories"`

	Stories     []Story              `json:"stories"`
	Graduations []Graduation         `json:"graduations"`
	HomeLots    []world.Lot          `json:"home_lots"`
	Tiles       []world.Tile         `json:"tiles"`
	Positions   []world.PositionRecord `json:"positions"`
}

// Persister commits one end-of-day snapshot as a single unit of work.
type Persister interface {
	Checkpoint(ctx context.Context, snap *Snapshot) error
}

// City is the whole simulation: every subsystem plus the day counter.
// RunDay is the only mutator; Snapshot is safe to call between days.
type City struct {
	mu sync.Mutex

	cfg  *config.Config
	day  int
	rng  *rand.Rand
	log  *logger.Logger
	met  *metrics.Collector

	roster []*agent.Agent

	Ledger    *economy.Ledger
	Events    *events.Log
	Bus       *social.Bus
	Moods     *social.MoodRegister
	Bonds     *social.BondGraph
	Memory    *memory.Store
	Gangs     *gangs.Registry
	Projects  *projects.Registry
	Justice   *justice.Engine
	Facade    *brain.Facade
	Positions *world.Positions
	Homes     *world.Homes
	Tiles     *world.Tiles

	dispatcher  *behavior.Dispatcher
	broadcaster Broadcaster
	persister   Persister

	stories     []Story
	graduations []Graduation
	intent      IntentPredicate
	nextCitizen int
}

// Options carries the injectable collaborators for a City.
type Options struct {
	Broadcaster Broadcaster
	Persister   Persister
	// Intent overrides the default meeting-intent keyword predicate.
	Intent IntentPredicate
	// MintKey authorizes supply mints; empty disables minting.
	MintKey string
}

// New assembles a city from configuration. The rng seeds from cfg.Seed so
// two cities with the same seed and the same scripted reasoning provider
// play out identically.
func New(cfg *config.Config, facade *brain.Facade, log *logger.Logger, opts Options) *City {
	if opts.Broadcaster == nil {
		opts.Broadcaster = NopBroadcaster{}
	}
	if opts.Intent == nil {
		opts.Intent = KeywordIntent()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	c := &City{
		cfg:         cfg,
		rng:         rng,
		log:         log,
		met:         metrics.Get(),
		Ledger:      economy.NewLedger(cfg.Economy, opts.MintKey, log, nil),
		Events:      events.NewLog(nil),
		Bus:         social.NewBus(cfg.World.MessageTTLDays),
		Moods:       social.NewMoodRegister(),
		Bonds:       social.NewBondGraph(),
		Memory:      memory.NewStore(),
		Gangs:       gangs.NewRegistry(cfg.Gangs, log),
		Projects:    projects.NewRegistry(cfg.World.AbandonDays, log),
		Facade:      facade,
		Positions:   world.NewPositions(rng, log),
		Homes:       world.NewHomes(cfg.World.HomeTokenFloor, log),
		Tiles:       world.NewTiles(log),
		broadcaster: opts.Broadcaster,
		persister:   opts.Persister,
		intent:      opts.Intent,
	}
	c.Justice = justice.NewEngine(cfg.Justice, c.Events, facade, log)
	c.dispatcher = behavior.NewDispatcher(behavior.Deps{
		Cfg: cfg, Ledger: c.Ledger, Events: c.Events, Bus: c.Bus,
		Moods: c.Moods, Bonds: c.Bonds, Memory: c.Memory, Gangs: c.Gangs,
		Projects: c.Projects, Justice: c.Justice, Logger: log,
	}, rng)
	return c
}

// Day returns the last completed day.
func (c *City) Day() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.day
}

// Populate founds the city: registers each founding citizen with the
// ledger, scatters them on the map, and generates the natural world.
// Call once on a fresh city, never on a resumed one.
func (c *City) Populate(founders []*agent.Agent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range founders {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.Status == "" {
			a.Status = agent.StatusAlive
		}
		if err := c.Ledger.Register(0, a.Name); err != nil {
			return fmt.Errorf("engine: register %s: %w", a.Name, err)
		}
		a.Tokens = c.cfg.Economy.StartingTokens
		c.roster = append(c.roster, a)
	}
	c.nextCitizen = len(founders)
	c.Positions.PlaceStarting(founders)
	c.Tiles.Generate(c.cfg.Seed, 0)
	return nil
}

// Agents returns a copy of every citizen record, the graveyard included.
func (c *City) Agents() []agent.Agent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]agent.Agent, 0, len(c.roster))
	for _, a := range c.roster {
		out = append(out, *a)
	}
	return out
}

// alive returns the living citizens in stable turn order: descending
// balance, ties by id.
func (c *City) alive() []*agent.Agent {
	var out []*agent.Agent
	for _, a := range c.roster {
		if a.Alive() {
			bal, err := c.Ledger.Balance(a.Name)
			if err == nil {
				a.Tokens = bal
			}
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tokens != out[j].Tokens {
			return out[i].Tokens > out[j].Tokens
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (c *City) findAgent(name string) *agent.Agent {
	for _, a := range c.roster {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Stories returns every published narrative artifact.
func (c *City) Stories() []Story {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Story(nil), c.stories...)
}

// Snapshot captures the full city state at the current day boundary.
func (c *City) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *City) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		Day:          c.day,
		Seed:         c.cfg.Seed,
		City:         c.cfg.CityName,
		Ledger:       c.Ledger.State(),
		Transactions: c.Ledger.Transactions(),
		Cases:        c.Justice.All(),
		Gangs:        c.Gangs.All(),
		Projects:     c.Projects.Projects(),
		Assets:       c.Projects.Assets(),
		Messages:     c.Bus.Snapshot(),
		Bonds:        c.Bonds.Snapshot(),
		Moods:        c.Moods.Snapshot(),
		Memories:     c.Memory.Snapshot(),
		Stories:      append([]Story(nil), c.stories...),
		Graduations:  append([]Graduation(nil), c.graduations...),
		HomeLots:     c.Homes.Lots(),
		Tiles:        c.Tiles.Snapshot(),
		Positions:    c.Positions.Snapshot(),
	}
	for _, a := range c.roster {
		snap.Agents = append(snap.Agents, *a)
	}
	for _, ev := range c.Events.All() {
		snap.Events = append(snap.Events, EventRecord{Event: ev, Knowers: c.Events.Knowers(ev.ID)})
	}
	return snap
}

// RestoreFrom loads a checkpoint into a freshly constructed city. The day
// counter resumes at snap.Day; the next RunDay simulates snap.Day+1.
func (c *City) RestoreFrom(snap *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.day = snap.Day
	c.roster = c.roster[:0]
	for i := range snap.Agents {
		a := snap.Agents[i]
		c.roster = append(c.roster, &a)
	}
	c.nextCitizen = len(snap.Agents)
	c.Ledger.Restore(snap.Ledger.Balances, snap.Ledger.Closed, snap.Ledger.Vault,
		snap.Ledger.MintedInPeriod, snap.Ledger.MintPeriodStart, snap.Ledger.NextTxID)
	c.Ledger.RestoreTransactions(snap.Transactions)
	for _, rec := range snap.Events {
		c.Events.Restore(rec.Event, rec.Knowers)
	}
	c.Justice.Restore(snap.Cases)
	c.Gangs.Restore(snap.Gangs)
	c.Projects.Restore(snap.Projects, snap.Assets)
	c.Bus.Restore(snap.Messages)
	c.Bonds.Restore(snap.Bonds)
	for name, mood := range snap.Moods {
		c.Moods.Set(name, mood)
	}
	c.Memory.Restore(snap.Memories)
	c.stories = append([]Story(nil), snap.Stories...)
	c.graduations = append([]Graduation(nil), snap.Graduations...)
	c.Homes.Restore(snap.HomeLots)
	c.Tiles.Restore(snap.Tiles)
	c.Positions.Restore(snap.Positions)
}
