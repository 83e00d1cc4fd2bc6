package behavior

import (
	"math/rand"
	"testing"

	"github.com/aicity-project/aicity/internal/brain"
	"github.com/aicity-project/aicity/internal/config"
	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/economy"
	"github.com/aicity-project/aicity/internal/events"
	"github.com/aicity-project/aicity/internal/gangs"
	"github.com/aicity-project/aicity/internal/infra/ai"
	"github.com/aicity-project/aicity/internal/justice"
	"github.com/aicity-project/aicity/internal/memory"
	"github.com/aicity-project/aicity/internal/platform/logger"
	"github.com/aicity-project/aicity/internal/projects"
	"github.com/aicity-project/aicity/internal/social"
)

type fixture struct {
	d      *Dispatcher
	deps   Deps
	roster []*agent.Agent
}

func newFixture(t *testing.T, seed int64, names map[string]agent.Role) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Reasoning.MaxRetries = 0
	log := logger.New()
	evLog := events.NewLog(nil)
	facade := brain.NewFacade(ai.NewScriptedProvider(), cfg.Reasoning, log)
	deps := Deps{
		Cfg:      cfg,
		Ledger:   economy.NewLedger(cfg.Economy, "k", log, nil),
		Events:   evLog,
		Bus:      social.NewBus(cfg.World.MessageTTLDays),
		Moods:    social.NewMoodRegister(),
		Bonds:    social.NewBondGraph(),
		Memory:   memory.NewStore(),
		Gangs:    gangs.NewRegistry(cfg.Gangs, log),
		Projects: projects.NewRegistry(cfg.World.AbandonDays, log),
		Justice:  justice.NewEngine(cfg.Justice, evLog, facade, log),
		Logger:   log,
	}
	f := &fixture{d: NewDispatcher(deps, rand.New(rand.NewSource(seed))), deps: deps}
	for name, role := range names {
		a := &agent.Agent{ID: name, Name: name, Role: role, Status: agent.StatusAlive}
		if err := deps.Ledger.Register(1, name); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
		f.roster = append(f.roster, a)
	}
	return f
}

func (f *fixture) agent(name string) *agent.Agent {
	for _, a := range f.roster {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func TestWorkCreditsTaxedEarnings(t *testing.T) {
	f := newFixture(t, 1, map[string]agent.Role{"Marco": agent.RoleBuilder})
	f.d.Execute(1, f.agent("Marco"), &brain.Decision{Action: "work"}, f.roster)
	bal, _ := f.deps.Ledger.Balance("Marco")
	if bal <= 1000 {
		t.Errorf("builder earned nothing: %d", bal)
	}
	txs := f.deps.Ledger.Transactions()
	last := txs[len(txs)-1]
	if last.Kind != economy.KindEarn || last.TaxWithheld == 0 {
		t.Errorf("earn transaction wrong: %+v", last)
	}
}

func TestStealMovesTokensAndLogsPrivateTheft(t *testing.T) {
	// Seeds are fixed; find one where the 0.45 roll succeeds.
	for seed := int64(0); seed < 20; seed++ {
		f := newFixture(t, seed, map[string]agent.Role{
			"Marco": agent.RoleThief, "Lena": agent.RoleBuilder,
		})
		f.d.Execute(2, f.agent("Marco"), &brain.Decision{Action: "steal", Target: "Lena"}, f.roster)
		lena, _ := f.deps.Ledger.Balance("Lena")
		if lena == 1000 {
			continue // roll failed with this seed, try the next
		}
		marco, _ := f.deps.Ledger.Balance("Marco")
		if marco+lena != 2000 {
			t.Fatalf("theft created or destroyed tokens: %d + %d", marco, lena)
		}
		thefts := f.deps.Events.ByDay(2)
		if len(thefts) != 1 || thefts[0].Kind != events.KindTheft || thefts[0].Visibility != events.VisibilityPrivate {
			t.Fatalf("theft event wrong: %+v", thefts)
		}
		if f.deps.Moods.Of("Lena") != social.MoodTheftVictim {
			t.Errorf("victim mood = %f", f.deps.Moods.Of("Lena"))
		}
		return
	}
	t.Fatal("no seed under 20 produced a successful theft")
}

func TestThiefNeverTargetsNewborn(t *testing.T) {
	f := newFixture(t, 3, map[string]agent.Role{
		"Marco": agent.RoleThief, "Nina": agent.RoleNewborn,
	})
	for day := 1; day < 30; day++ {
		f.d.Execute(day, f.agent("Marco"), &brain.Decision{Action: "steal", Target: "Nina"}, f.roster)
	}
	if len(f.deps.Events.All()) != 0 {
		t.Error("thief stole with only a newborn available")
	}
}

func TestMessageSpreadPromotesWitnessedToRumor(t *testing.T) {
	f := newFixture(t, 4, map[string]agent.Role{
		"Rosa": agent.RoleBuilder, "Tomas": agent.RoleBuilder,
	})
	id := f.deps.Events.Append(3, events.KindTheft, "Marco", "Lena", "", "theft", events.VisibilityPrivate)
	_ = f.deps.Events.PromoteWitnessed(id, []string{"Rosa"})

	f.d.Execute(4, f.agent("Rosa"), &brain.Decision{
		Action: "work", MessageTo: "Tomas", MessageBody: "I think Marco has sticky fingers",
	}, f.roster)

	vis, _ := f.deps.Events.Visibility(id)
	if vis != events.VisibilityRumor {
		t.Errorf("witnessed event should become rumor when gossiped, got %s", vis)
	}
	if got := f.deps.Events.KnowerCount(id); got != 4 {
		t.Errorf("knower count = %d, want 4 (actor, target, witness, listener)", got)
	}
}

func TestTeachRaisesComprehension(t *testing.T) {
	f := newFixture(t, 5, map[string]agent.Role{
		"Elena": agent.RoleTeacher, "Nina": agent.RoleNewborn,
	})
	f.d.Execute(1, f.agent("Elena"), &brain.Decision{Action: "teach"}, f.roster)
	nina := f.agent("Nina")
	if nina.ComprehensionScore < 5 || nina.ComprehensionScore > 15 {
		t.Errorf("comprehension gain out of range: %d", nina.ComprehensionScore)
	}
	if nina.AssignedTeacher != "Elena" {
		t.Errorf("teacher not assigned: %q", nina.AssignedTeacher)
	}
}

func TestHealLiftsPatientMood(t *testing.T) {
	f := newFixture(t, 6, map[string]agent.Role{
		"Nina": agent.RoleHealer, "Marco": agent.RoleBuilder,
	})
	f.deps.Moods.Set("Marco", -0.8)
	f.d.Execute(1, f.agent("Nina"), &brain.Decision{Action: "heal", Target: "Marco"}, f.roster)
	if got := f.deps.Moods.Of("Marco"); got < -0.66 || got > -0.64 {
		t.Errorf("patient mood = %f, want -0.65", got)
	}
	evs := f.deps.Events.ByDay(1)
	if len(evs) != 1 || evs[0].Kind != events.KindHeal || evs[0].Visibility != events.VisibilityPublic {
		t.Errorf("heal event wrong: %+v", evs)
	}
}

func TestSabotageDestroysAssetAndSoursCity(t *testing.T) {
	f := newFixture(t, 7, map[string]agent.Role{
		"Silas": agent.RoleSaboteur, "Marco": agent.RoleBuilder, "Lena": agent.RoleBuilder,
	})
	// Stand up a road to wreck.
	pid, _ := f.deps.Projects.Start(1, "Marco", projects.AssetRoad)
	_ = f.deps.Projects.Contribute(pid, "Marco", agent.RoleBuilder)
	f.deps.Projects.FinishDay(1)
	_ = f.deps.Projects.Contribute(pid, "Marco", agent.RoleBuilder)
	f.deps.Projects.FinishDay(2)

	f.d.Execute(3, f.agent("Silas"), &brain.Decision{Action: "destroy_asset"}, f.roster)
	if f.deps.Projects.HasStanding(projects.AssetRoad) {
		t.Fatal("road still standing")
	}
	evs := f.deps.Events.ByDay(3)
	if len(evs) != 1 || evs[0].Kind != events.KindSabotage || evs[0].Visibility != events.VisibilityPrivate {
		t.Fatalf("sabotage event wrong: %+v", evs)
	}
	if len(evs[0].Evidence) == 0 {
		t.Error("sabotage left no clues in the evidence trail")
	}
	if f.deps.Moods.Of("Marco") != social.MoodAssetDestroyed || f.deps.Moods.Of("Silas") != 0 {
		t.Errorf("mood deltas wrong: Marco %f, Silas %f",
			f.deps.Moods.Of("Marco"), f.deps.Moods.Of("Silas"))
	}
}

func TestPatrolOpensCasesForScopedThefts(t *testing.T) {
	f := newFixture(t, 8, map[string]agent.Role{
		"Vela": agent.RolePolice, "Marco": agent.RoleThief, "Lena": agent.RoleBuilder,
	})
	id := f.deps.Events.Append(2, events.KindTheft, "Marco", "Lena", "", "theft", events.VisibilityPrivate)
	_ = f.deps.Events.PromoteWitnessed(id, []string{"Rosa"})

	f.d.Execute(3, f.agent("Vela"), &brain.Decision{Action: "patrol"}, f.roster)
	if _, ok := f.deps.Justice.CaseForEvent(id); !ok {
		t.Error("patrol did not open a case for the witnessed theft")
	}
	// A fully private theft stays invisible to the patrol.
	hidden := f.deps.Events.Append(3, events.KindTheft, "Marco", "Lena", "", "quiet theft", events.VisibilityPrivate)
	f.d.Execute(4, f.agent("Vela"), &brain.Decision{Action: "patrol"}, f.roster)
	if _, ok := f.deps.Justice.CaseForEvent(hidden); ok {
		t.Error("patrol saw a private theft")
	}
}

func TestBlackmailSendsAnonymousDemand(t *testing.T) {
	f := newFixture(t, 9, map[string]agent.Role{
		"Bram": agent.RoleBlackmailer, "Marco": agent.RoleThief, "Lena": agent.RoleBuilder,
	})
	id := f.deps.Events.Append(2, events.KindTheft, "Marco", "Lena", "", "theft", events.VisibilityPrivate)
	_ = f.deps.Events.PromoteWitnessed(id, []string{"Bram"})

	f.d.Execute(3, f.agent("Bram"), &brain.Decision{Action: "blackmail"}, f.roster)
	inbox := f.deps.Bus.Inbox("Marco", 3, 10)
	if len(inbox) != 1 || inbox[0].From != social.AnonymousSender {
		t.Fatalf("expected one anonymous demand, got %+v", inbox)
	}
	if inbox[0].EventRef != id {
		t.Errorf("demand not linked to the secret: %+v", inbox[0])
	}
}
