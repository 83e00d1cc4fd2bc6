// Package behavior translates parsed decisions into state mutations. Every
// token movement goes through the ledger and every observable act through
// the event log; the dispatcher itself holds no state beyond its wiring.
package behavior

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/aicity-project/aicity/internal/brain"
	"github.com/aicity-project/aicity/internal/config"
	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/economy"
	"github.com/aicity-project/aicity/internal/events"
	"github.com/aicity-project/aicity/internal/gangs"
	"github.com/aicity-project/aicity/internal/justice"
	"github.com/aicity-project/aicity/internal/memory"
	"github.com/aicity-project/aicity/internal/platform/logger"
	"github.com/aicity-project/aicity/internal/projects"
	"github.com/aicity-project/aicity/internal/social"
)

// Deps wires the dispatcher to the city's subsystems.
type Deps struct {
	Cfg      *config.Config
	Ledger   *economy.Ledger
	Events   *events.Log
	Bus      *social.Bus
	Moods    *social.MoodRegister
	Bonds    *social.BondGraph
	Memory   *memory.Store
	Gangs    *gangs.Registry
	Projects *projects.Registry
	Justice  *justice.Engine
	Logger   *logger.Logger
}

// Dispatcher executes one agent turn at a time. The rng is the city's
// seeded stream; all randomness flows through it.
type Dispatcher struct {
	deps Deps
	rng  *rand.Rand
}

func NewDispatcher(deps Deps, rng *rand.Rand) *Dispatcher {
	return &Dispatcher{deps: deps, rng: rng}
}

// Result reports the side effects the scheduler must carry forward.
type Result struct {
	Arrests []justice.ArrestRequest
	// SusceptibilityDrift is applied to the acting officer.
	SusceptibilityDrift float64
}

// Execute runs one agent's decided action against the world. roster is the
// day's alive-agent snapshot in turn order.
func (d *Dispatcher) Execute(day int, actor *agent.Agent, dec *brain.Decision, roster []*agent.Agent) Result {
	var res Result
	switch dec.Action {
	case "work", "work_overtime":
		d.work(day, actor, dec)
	case "start_project":
		d.startProject(day, actor, dec)
	case "work_on_project":
		d.workOnProject(day, actor)
	case "explore", "explore_deep":
		d.explore(day, actor, dec)
	case "share_discovery":
		d.shareDiscovery(day, actor, roster)
	case "trade", "negotiate", "run_stall":
		d.trade(day, actor, roster)
	case "patrol", "investigate", "arrest":
		res.Arrests = d.patrol(day, actor)
	case "accept_bribe":
		res.SusceptibilityDrift = d.acceptBribe(day, actor)
	case "teach", "mentor":
		d.teach(day, actor, roster)
	case "heal", "tend_clinic":
		d.heal(day, actor, dec, roster)
	case "deliver", "write_paper":
		d.deliver(day, actor, roster)
	case "consult", "defend":
		d.lawyer(day, actor)
	case "steal":
		d.steal(day, actor, dec, roster)
	case "bribe":
		d.bribe(day, actor, dec, roster)
	case "blackmail":
		d.blackmail(day, actor, roster)
	case "destroy_asset":
		d.sabotage(day, actor, roster)
	case "recruit", "coordinate":
		d.gangLead(day, actor, roster)
	case "learn", "observe", "ask":
		d.study(day, actor, roster)
	case "lurk":
		// A quiet day.
	default:
		d.deps.Logger.Warn("%s decided unknown action %q, skipping", actor.Name, dec.Action)
	}

	// Any decision may carry a message; delivery is independent of the
	// action taken.
	if dec.MessageTo != "" && dec.MessageBody != "" {
		d.sendMessage(day, actor, dec.MessageTo, dec.MessageBody, roster)
	}
	return res
}

// earnRoll draws a gross earn inside the role's range.
func (d *Dispatcher) earnRoll(caps agent.Capabilities) int64 {
	if caps.EarnMax <= caps.EarnMin {
		return caps.EarnMin
	}
	return caps.EarnMin + d.rng.Int63n(caps.EarnMax-caps.EarnMin+1)
}

// credit runs an earn through the ledger and applies the strong-earnings
// mood bump.
func (d *Dispatcher) credit(day int, actor *agent.Agent, gross int64, reason string) int64 {
	net, err := d.deps.Ledger.Earn(day, actor.Name, gross, reason)
	if err != nil {
		d.deps.Logger.Warn("earn for %s failed: %v", actor.Name, err)
		return 0
	}
	if net >= d.deps.Cfg.Economy.StrongEarnings {
		actor.Mood = d.deps.Moods.Apply(actor.Name, social.MoodStrongEarnings)
	}
	return net
}

// sendMessage delivers a message, updates the pair bond, and tags the
// message with an event reference when the sender is spreading something
// they witnessed.
func (d *Dispatcher) sendMessage(day int, actor *agent.Agent, to, body string, roster []*agent.Agent) {
	if findAgent(roster, to) == nil {
		return
	}
	ref := d.findSpreadReference(actor.Name, body, day)
	d.deps.Bus.Send(day, actor.Name, to, body, ref)
	d.deps.Bonds.Update(actor.Name, to, social.DeltaCooperative, "wrote to them")
	if ref != "" {
		// Telling someone about a witnessed event turns it into rumor.
		if err := d.deps.Events.PromoteRumor(ref, actor.Name, to, day, body); err == nil {
			d.deps.Memory.Remember(to, day, memory.KindGossip, actor.Name+" told me: "+body)
		}
	}
}

// findSpreadReference checks whether the message mentions the actor of an
// event the sender witnessed and has not yet seen go public.
func (d *Dispatcher) findSpreadReference(sender, body string, day int) string {
	lc := strings.ToLower(body)
	for _, ev := range d.deps.Events.AgentScope(sender, day-d.deps.Cfg.World.MessageTTLDays) {
		if ev.Visibility >= events.VisibilityReported {
			continue
		}
		if !ev.HasWitness(sender) && ev.Target != sender {
			continue
		}
		if ev.Actor != "" && strings.Contains(lc, strings.ToLower(ev.Actor)) {
			return ev.ID
		}
	}
	return ""
}

func findAgent(roster []*agent.Agent, name string) *agent.Agent {
	for _, a := range roster {
		if a.Name == name && a.Alive() {
			return a
		}
	}
	return nil
}

// wealthiest returns alive agents sorted by descending balance.
func (d *Dispatcher) wealthiest(roster []*agent.Agent) []*agent.Agent {
	out := make([]*agent.Agent, 0, len(roster))
	for _, a := range roster {
		if a.Alive() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		bi, _ := d.deps.Ledger.Balance(out[i].Name)
		bj, _ := d.deps.Ledger.Balance(out[j].Name)
		if bi != bj {
			return bi > bj
		}
		return out[i].Name < out[j].Name
	})
	return out
}
