package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/aicity-project/aicity/internal/brain"
	"github.com/aicity-project/aicity/internal/config"
	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/economy"
	"github.com/aicity-project/aicity/internal/events"
	"github.com/aicity-project/aicity/internal/gangs"
	"github.com/aicity-project/aicity/internal/infra/ai"
	"github.com/aicity-project/aicity/internal/justice"
	"github.com/aicity-project/aicity/internal/platform/logger"
	"github.com/aicity-project/aicity/internal/projects"
	"github.com/aicity-project/aicity/internal/world"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testConfig strips the stochastic side channels so a scenario only rolls
// the dice it is about.
func testConfig(seed int64) *config.Config {
	cfg := config.Default()
	cfg.CityName = "Testopol"
	cfg.Seed = seed
	cfg.Reasoning.MaxRetries = 0
	cfg.World.HeartAttackChance = 0
	cfg.World.WindfallChance = 0
	cfg.World.PopulationFloor = 0
	cfg.Economy.SurplusThreshold = 1 << 40
	return cfg
}

func founder(id, name string, role agent.Role) *agent.Agent {
	return &agent.Agent{ID: id, Name: name, Role: role, Status: agent.StatusAlive}
}

func newTestCity(t *testing.T, cfg *config.Config, provider ai.Provider, founders ...*agent.Agent) *City {
	t.Helper()
	log := logger.New()
	facade := brain.NewFacade(provider, cfg.Reasoning, log)
	c := New(cfg, facade, log, Options{})
	if err := c.Populate(founders); err != nil {
		t.Fatalf("populate: %v", err)
	}
	return c
}

// quiet returns a provider whose every completion is empty: decisions fall
// back to role defaults, judges acquit, and the paper prints the plain
// digest. No retries, so days run fast.
func quiet() *ai.ScriptedProvider {
	return ai.NewScriptedProvider("")
}

func runDays(t *testing.T, c *City, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		if err := c.RunDay(ctx); err != nil {
			t.Fatalf("day %d: %v", c.Day(), err)
		}
	}
}

func eventsOfKind(c *City, kind events.Kind) []events.Event {
	var out []events.Event
	for _, ev := range c.Events.All() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func txWith(c *City, kind economy.Kind, reason string) []economy.Transaction {
	var out []economy.Transaction
	for _, tx := range c.Ledger.Transactions() {
		if tx.Kind == kind && tx.Reason == reason {
			out = append(out, tx)
		}
	}
	return out
}

func TestStarvationIsFatalAndPublic(t *testing.T) {
	cfg := testConfig(3)
	cfg.Economy.WelfareFloor = 0 // no safety net in this city
	c := newTestCity(t, cfg, quiet(),
		founder("01", "Ash", agent.RoleThief),
		founder("02", "Brook", agent.RoleThief))

	runDays(t, c, 12)

	for _, a := range c.Agents() {
		if a.Status != agent.StatusDead {
			t.Errorf("%s should have starved, status %s", a.Name, a.Status)
		}
	}
	deaths := eventsOfKind(c, events.KindDeath)
	if len(deaths) != 2 {
		t.Fatalf("want 2 death events, got %d", len(deaths))
	}
	for _, ev := range deaths {
		if ev.Visibility != events.VisibilityPublic {
			t.Errorf("death of %s should be public immediately", ev.Actor)
		}
	}
	if closed := c.Ledger.State().Closed; len(closed) != 2 {
		t.Errorf("both estates should be settled and closed, got %v", closed)
	}
	// The city keeps ticking with nobody left in it.
	runDays(t, c, 1)
}

func TestWelfareKeepsTheBrokeAlive(t *testing.T) {
	cfg := testConfig(5)
	c := newTestCity(t, cfg, quiet(),
		founder("01", "Lutz", agent.RoleThief))

	runDays(t, c, 15)

	a := c.Agents()[0]
	if a.Status != agent.StatusAlive {
		t.Fatalf("welfare should have kept Lutz alive, status %s", a.Status)
	}
	grants := txWith(c, economy.KindWelfare, "welfare grant")
	if len(grants) == 0 {
		t.Error("a lurker below the floor never drew welfare")
	}
	bal, err := c.Ledger.Balance("Lutz")
	if err != nil || bal < cfg.Economy.WelfareFloor {
		t.Errorf("vault policy left Lutz at %d, below the floor %d (%v)",
			bal, cfg.Economy.WelfareFloor, err)
	}
}

func TestWelfareTopsUpToTheFloor(t *testing.T) {
	cfg := testConfig(5)
	c := newTestCity(t, cfg, quiet(),
		founder("01", "Lutz", agent.RoleThief))
	// Deep enough in debt that the standard grant alone cannot reach the
	// floor: 140 burns to 40, and 40 + 150 still falls short of 200.
	if err := c.Ledger.Spend(0, "Lutz", 860, "a bad bet"); err != nil {
		t.Fatalf("spend down: %v", err)
	}

	runDays(t, c, 1)

	bal, err := c.Ledger.Balance("Lutz")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal < cfg.Economy.WelfareFloor {
		t.Errorf("after vault policy Lutz holds %d, want at least the floor %d",
			bal, cfg.Economy.WelfareFloor)
	}
	if bal != cfg.Economy.WelfareFloor {
		t.Errorf("a lurker with no income should land exactly on the floor, got %d", bal)
	}
}

// theftChain builds the three-citizen city for the crime-to-verdict
// scenario and scripts the responses day by day: the thief steals on day
// one, the detective closes in on day two, and the judge convicts.
func theftChain(t *testing.T, seed int64) *City {
	cfg := testConfig(seed)
	cfg.Justice.VictimReportChance = 1.0
	provider := ai.NewScriptedProvider(
		// Day 1: Mona trades, Nadia strikes, Pavel walks the beat.
		"",
		`{"action":"steal","target":"Mona"}`,
		"",
		// Day 2: the morning paper, three quiet turns, a confident case
		// note, and the verdict.
		"Nothing to report.",
		"", "", "",
		`{"confidence":0.9,"suspect_rank":["Nadia"],"request_arrest":true,"case_note_text":"Ledger gap on Mona's side lines up with Nadia's habits."}`,
		`{"guilty":true,"fine":250,"reasoning":"The ledger does not lie."}`,
	)
	return newTestCity(t, cfg, provider,
		founder("01", "Mona", agent.RoleMerchant),
		founder("02", "Nadia", agent.RoleThief),
		founder("03", "Pavel", agent.RolePolice))
}

func TestTheftReportTrialChain(t *testing.T) {
	for seed := int64(0); seed < 40; seed++ {
		c := theftChain(t, seed)
		runDays(t, c, 1)
		if len(eventsOfKind(c, events.KindTheft)) == 0 {
			continue // the steal roll failed under this seed
		}
		runDays(t, c, 1)

		cases := c.Justice.All()
		if len(cases) == 0 {
			t.Fatal("the victim's report never opened a case")
		}
		var solved bool
		for _, cc := range cases {
			if cc.Status == justice.StatusSolved && cc.Suspect == "Nadia" {
				solved = true
			}
		}
		if !solved {
			t.Fatalf("no case solved against Nadia: %+v", cases)
		}
		theft := eventsOfKind(c, events.KindTheft)[0]
		if got, _ := c.Events.Visibility(theft.ID); got != events.VisibilityPublic {
			t.Errorf("the verdict should have published the theft, visibility %d", got)
		}
		if len(eventsOfKind(c, events.KindVerdict)) == 0 {
			t.Error("no verdict event in the record")
		}
		if len(txWith(c, economy.KindFine, "court fine")) == 0 {
			t.Error("the fine never reached the vault")
		}
		if mood := c.Moods.Of("Mona"); mood < -0.001 {
			t.Errorf("justice served should have lifted Mona's mood, got %.2f", mood)
		}
		// Theft, report, and conviction each cost the pair a delta: the
		// bond must have dropped by at least 0.30 from its neutral start.
		if bond := c.Bonds.Score("Nadia", "Mona"); bond > -0.30 {
			t.Errorf("the chain should have soured the bond by 0.30 or more, got %.2f", bond)
		}
		return
	}
	t.Fatal("no seed under 40 produced a successful theft")
}

// gangSaga scripts a leader recruiting in the alley on day one, robbing the
// merchant on day two, and facing the judge on day three.
func gangSaga(t *testing.T, seed int64) *City {
	cfg := testConfig(seed)
	cfg.Justice.VictimReportChance = 1.0
	cfg.Gangs.FormationChance = 1.0
	provider := ai.NewScriptedProvider(
		// Day 1: the pitch goes out; everyone else keeps their head down.
		`{"action":"lurk","message_to":"Rika","message_body":"let's talk after dark"}`,
		"", "", "", "",
		// Day 2: paper, two earners, then Vex's strike.
		"Quiet streets.",
		"", "",
		`{"action":"steal","target":"Mona"}`,
		"", "",
		// Day 3: paper, five quiet turns, the case note, the verdict.
		"Quiet streets.",
		"", "", "", "", "",
		`{"confidence":0.9,"suspect_rank":["Vex"],"request_arrest":true,"case_note_text":"Three people place Vex near the stall."}`,
		`{"guilty":true,"fine":200,"reasoning":"The pattern holds."}`,
	)
	c := newTestCity(t, cfg, provider,
		founder("01", "Vex", agent.RoleGangLeader),
		founder("02", "Rika", agent.RoleThief),
		founder("03", "Sira", agent.RoleThief),
		founder("04", "Mona", agent.RoleMerchant),
		founder("05", "Pavel", agent.RolePolice))
	// Both recruits are miserable enough to listen, and Sira was already
	// invited in writing.
	c.Moods.Set("Rika", -0.9)
	c.Moods.Set("Sira", -0.9)
	c.Bus.Send(1, "Vex", "Sira", "join me in the alley", "")
	return c
}

func TestGangBreaksWhenLeaderConvicted(t *testing.T) {
	for seed := int64(0); seed < 80; seed++ {
		c := gangSaga(t, seed)
		runDays(t, c, 1)
		all := c.Gangs.All()
		if len(all) != 1 {
			continue // the meeting never happened under this seed
		}
		if all[0].Leader != "Vex" || all[0].Status != gangs.StatusActive {
			t.Fatalf("unexpected gang after formation: %+v", all[0])
		}
		if c.Gangs.Bonus("Vex") <= 1.0 {
			t.Error("an active leader should carry the crime multiplier")
		}
		runDays(t, c, 1)
		if len(eventsOfKind(c, events.KindTheft)) == 0 {
			continue // the steal roll failed under this seed
		}
		runDays(t, c, 1)

		g := c.Gangs.All()[0]
		if g.Status != gangs.StatusBroken || g.BrokenDay != 3 {
			t.Fatalf("the verdict against the leader should break the gang: %+v", g)
		}
		if c.Gangs.Bonus("Vex") != 1.0 {
			t.Errorf("a broken gang pays no bonus, got %.2f", c.Gangs.Bonus("Vex"))
		}
		return
	}
	t.Fatal("no seed under 80 carried the gang saga through")
}

func TestHospitalCompletionPaysHealers(t *testing.T) {
	cfg := testConfig(9)
	provider := ai.NewScriptedProvider(`{"action":"work_on_project"}`)
	c := newTestCity(t, cfg, provider,
		founder("01", "Bo", agent.RoleBuilder),
		founder("02", "Ines", agent.RoleHealer))
	if _, err := c.Projects.Start(0, "Bo", projects.AssetHospital); err != nil {
		t.Fatalf("start hospital: %v", err)
	}

	runDays(t, c, 5)

	if !c.Projects.HasStanding(projects.AssetHospital) {
		t.Fatal("five full crew days should finish the hospital")
	}
	builds := eventsOfKind(c, events.KindBuild)
	if len(builds) != 1 || builds[0].Visibility != events.VisibilityPublic {
		t.Fatalf("completion should land as one public build event: %+v", builds)
	}
	var placed int
	for _, tile := range c.Tiles.Snapshot() {
		if tile.Layer == world.LayerBuilding {
			placed++
		}
	}
	if placed == 0 {
		t.Error("the finished hospital left no tiles on the map")
	}

	runDays(t, c, 1)
	grants := txWith(c, economy.KindWelfare, "asset benefit")
	if len(grants) == 0 {
		t.Fatal("the healer drew no benefit the day after completion")
	}
	for _, tx := range grants {
		if tx.To != "Ines" || tx.Amount != 40 || tx.TaxWithheld != 0 {
			t.Errorf("the hospital bonus is 40 untaxed tokens to the healer, got %+v", tx)
		}
	}
}

func TestPopulationFloorRefillsCriticalRoles(t *testing.T) {
	cfg := testConfig(13)
	cfg.World.PopulationFloor = 6
	c := newTestCity(t, cfg, quiet(),
		founder("01", "Bo", agent.RoleBuilder),
		founder("02", "Tea", agent.RoleTeacher))

	runDays(t, c, 1)

	var alive int
	haveRole := make(map[agent.Role]bool)
	for _, a := range c.Agents() {
		if a.Status == agent.StatusAlive {
			alive++
			haveRole[a.Role] = true
		}
	}
	if alive != 6 {
		t.Fatalf("population should refill to the floor, got %d", alive)
	}
	for _, critical := range []agent.Role{agent.RoleHealer, agent.RoleMerchant, agent.RolePolice} {
		if !haveRole[critical] {
			t.Errorf("critical role %s left unfilled", critical)
		}
	}
	births := eventsOfKind(c, events.KindBirth)
	if len(births) != 4 {
		t.Fatalf("want 4 birth events, got %d", len(births))
	}
	for _, ev := range births {
		if ev.Visibility != events.VisibilityPublic {
			t.Errorf("birth of %s should be public", ev.Actor)
		}
	}
	if bal, err := c.Ledger.Balance(births[0].Actor); err != nil || bal == 0 {
		t.Errorf("newcomer %s never registered with the ledger: %d, %v", births[0].Actor, bal, err)
	}
}

func TestNewbornGraduates(t *testing.T) {
	niko := founder("01", "Niko", agent.RoleNewborn)
	niko.ComprehensionScore = 99
	c := newTestCity(t, testConfig(17), quiet(), niko)

	runDays(t, c, 1)

	a := c.Agents()[0]
	if a.Role != agent.RoleBuilder {
		t.Errorf("fallback graduation should pick builder, got %s", a.Role)
	}
	grads := c.Snapshot().Graduations
	if len(grads) != 1 || grads[0].Agent != "Niko" {
		t.Fatalf("want one graduation for Niko, got %+v", grads)
	}
	evs := eventsOfKind(c, events.KindGraduation)
	if len(evs) != 1 || evs[0].Visibility != events.VisibilityPublic {
		t.Errorf("graduation should be a public event: %+v", evs)
	}
}

func TestEditionSchedule(t *testing.T) {
	c := newTestCity(t, testConfig(21), quiet(),
		founder("01", "Bo", agent.RoleBuilder))

	runDays(t, c, 8)

	var dailies, weeklies int
	for _, s := range c.Stories() {
		switch s.Edition {
		case "daily":
			dailies++
			if !strings.Contains(s.Body, "Testopol") {
				t.Errorf("daily for day %d misses the city name: %q", s.Day, s.Body)
			}
		case "weekly":
			weeklies++
			if s.Day != 7 {
				t.Errorf("weekly should review day 7, got %d", s.Day)
			}
		}
	}
	if dailies != 7 {
		t.Errorf("eight days should print seven dailies, got %d", dailies)
	}
	if weeklies != 1 {
		t.Errorf("want exactly one weekly, got %d", weeklies)
	}
}

func TestNarratorPrintsOnlyPublicRecord(t *testing.T) {
	const secretMark = "velvet ledger"
	const publicMark = "bronze bell"
	c := newTestCity(t, testConfig(23), quiet(),
		founder("01", "Mona", agent.RoleMerchant))

	runDays(t, c, 1)

	// Plant one event at every sub-public rung, plus a public one.
	c.Events.Append(1, events.KindTheft, "Ghost", "", "",
		"the "+secretMark+" went missing", events.VisibilityPrivate)
	w := c.Events.Append(1, events.KindAssault, "Ghost", "", "",
		"a scuffle over the "+secretMark, events.VisibilityPrivate)
	_ = c.Events.PromoteWitnessed(w, []string{"Mona"})
	r := c.Events.Append(1, events.KindBribe, "Ghost", "", "",
		"coins changed hands near the "+secretMark, events.VisibilityPrivate)
	_ = c.Events.PromoteWitnessed(r, []string{"Mona"})
	_ = c.Events.PromoteRumor(r, "Mona", "Ghost", 1, "did you hear about the "+secretMark+"?")
	rep := c.Events.Append(1, events.KindTheft, "Ghost", "Stranger", "",
		"the "+secretMark+" was lifted outright", events.VisibilityPrivate)
	_ = c.Events.PromoteReported(rep, "Stranger", 1)
	c.Events.Append(1, events.KindBuild, "Mona", "", "",
		"the "+publicMark+" was hung in the square", events.VisibilityPublic)

	runDays(t, c, 1)

	var daily string
	for _, s := range c.Stories() {
		if s.Edition == "daily" && s.Day == 1 {
			daily = s.Body
		}
	}
	if daily == "" {
		t.Fatal("no daily edition for day 1")
	}
	if !strings.Contains(daily, publicMark) {
		t.Errorf("the public record should reach the paper: %q", daily)
	}
	if strings.Contains(daily, secretMark) {
		t.Errorf("a sub-public event leaked into the paper: %q", daily)
	}
}

// evLine is an event stripped of its random id for history comparison.
type evLine struct {
	Seq         int64
	Day         int
	Kind        events.Kind
	Actor       string
	Target      string
	Description string
	Visibility  events.Visibility
}

func history(c *City) []evLine {
	var out []evLine
	for _, ev := range c.Events.All() {
		out = append(out, evLine{
			Seq: ev.Seq, Day: ev.Day, Kind: ev.Kind, Actor: ev.Actor,
			Target: ev.Target, Description: ev.Description, Visibility: ev.Visibility,
		})
	}
	return out
}

func TestSameSeedSameHistory(t *testing.T) {
	build := func() *City {
		return newTestCity(t, testConfig(7), quiet(),
			founder("01", "Bo", agent.RoleBuilder),
			founder("02", "Mona", agent.RoleMerchant),
			founder("03", "Nadia", agent.RoleThief),
			founder("04", "Pavel", agent.RolePolice),
			founder("05", "Remy", agent.RoleExplorer))
	}
	a, b := build(), build()
	runDays(t, a, 4)
	runDays(t, b, 4)

	if diff := cmp.Diff(history(a), history(b)); diff != "" {
		t.Errorf("event history diverged under the same seed:\n%s", diff)
	}
	if diff := cmp.Diff(a.Ledger.Transactions(), b.Ledger.Transactions()); diff != "" {
		t.Errorf("transaction log diverged under the same seed:\n%s", diff)
	}
	if diff := cmp.Diff(a.Moods.Snapshot(), b.Moods.Snapshot()); diff != "" {
		t.Errorf("moods diverged under the same seed:\n%s", diff)
	}
	if a.Ledger.Vault() != b.Ledger.Vault() {
		t.Errorf("vault state diverged: %+v vs %+v", a.Ledger.Vault(), b.Ledger.Vault())
	}
}

type memPersister struct {
	snaps     []*Snapshot
	failFirst int
	calls     int
}

func (p *memPersister) Checkpoint(_ context.Context, snap *Snapshot) error {
	p.calls++
	if p.failFirst > 0 {
		p.failFirst--
		return errors.New("disk hiccup")
	}
	p.snaps = append(p.snaps, snap)
	return nil
}

type recordingBroadcaster struct {
	kinds []string
}

func (b *recordingBroadcaster) Broadcast(kind string, _ int, _ any) {
	b.kinds = append(b.kinds, kind)
}

func TestCheckpointRoundTrip(t *testing.T) {
	cfg := testConfig(11)
	log := logger.New()
	facade := brain.NewFacade(quiet(), cfg.Reasoning, log)
	pers := &memPersister{}
	a := New(cfg, facade, log, Options{Persister: pers})
	if err := a.Populate([]*agent.Agent{
		founder("01", "Bo", agent.RoleBuilder),
		founder("02", "Mona", agent.RoleMerchant),
		founder("03", "Nadia", agent.RoleThief),
		founder("04", "Pavel", agent.RolePolice),
	}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	runDays(t, a, 3)
	if len(pers.snaps) != 3 {
		t.Fatalf("want 3 checkpoints, got %d", len(pers.snaps))
	}

	b := newTestCity(t, testConfig(11), quiet())
	b.RestoreFrom(pers.snaps[len(pers.snaps)-1])

	snapA, snapB := a.Snapshot(), b.Snapshot()
	if snapB.Day != 3 {
		t.Fatalf("restored day = %d, want 3", snapB.Day)
	}
	if diff := cmp.Diff(snapA.Agents, snapB.Agents); diff != "" {
		t.Errorf("agents did not survive the round trip:\n%s", diff)
	}
	if diff := cmp.Diff(snapA.Ledger, snapB.Ledger); diff != "" {
		t.Errorf("ledger state did not survive the round trip:\n%s", diff)
	}
	if diff := cmp.Diff(snapA.Transactions, snapB.Transactions); diff != "" {
		t.Errorf("transactions did not survive the round trip:\n%s", diff)
	}
	if diff := cmp.Diff(snapA.Events, snapB.Events); diff != "" {
		t.Errorf("event log did not survive the round trip:\n%s", diff)
	}
	if diff := cmp.Diff(snapA.Moods, snapB.Moods); diff != "" {
		t.Errorf("moods did not survive the round trip:\n%s", diff)
	}
	if diff := cmp.Diff(snapA.Bonds, snapB.Bonds); diff != "" {
		t.Errorf("bonds did not survive the round trip:\n%s", diff)
	}
	if diff := cmp.Diff(snapA.Messages, snapB.Messages); diff != "" {
		t.Errorf("messages did not survive the round trip:\n%s", diff)
	}
	if diff := cmp.Diff(snapA.Memories, snapB.Memories); diff != "" {
		t.Errorf("memories did not survive the round trip:\n%s", diff)
	}
	if diff := cmp.Diff(snapA.Stories, snapB.Stories); diff != "" {
		t.Errorf("stories did not survive the round trip:\n%s", diff)
	}
	if diff := cmp.Diff(snapA.HomeLots, snapB.HomeLots); diff != "" {
		t.Errorf("home lots did not survive the round trip:\n%s", diff)
	}
	if diff := cmp.Diff(snapA.Tiles, snapB.Tiles); diff != "" {
		t.Errorf("tiles did not survive the round trip:\n%s", diff)
	}
	if diff := cmp.Diff(snapA.Positions, snapB.Positions); diff != "" {
		t.Errorf("positions did not survive the round trip:\n%s", diff)
	}

	// The restored city keeps playing.
	runDays(t, b, 1)
	if b.Day() != 4 {
		t.Errorf("day after resume = %d, want 4", b.Day())
	}
}

func TestCheckpointRetriesBeforeCommitting(t *testing.T) {
	cfg := testConfig(19)
	log := logger.New()
	facade := brain.NewFacade(quiet(), cfg.Reasoning, log)
	pers := &memPersister{failFirst: 1}
	rec := &recordingBroadcaster{}
	c := New(cfg, facade, log, Options{Persister: pers, Broadcaster: rec})
	if err := c.Populate([]*agent.Agent{founder("01", "Bo", agent.RoleBuilder)}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if err := c.RunDay(context.Background()); err != nil {
		t.Fatalf("one failed attempt should be retried away: %v", err)
	}
	if pers.calls != 2 {
		t.Errorf("want 2 checkpoint attempts, got %d", pers.calls)
	}
	if len(rec.kinds) == 0 {
		t.Error("a committed day should broadcast its feed")
	}
}

func TestFailedCheckpointWithholdsBroadcast(t *testing.T) {
	cfg := testConfig(19)
	log := logger.New()
	facade := brain.NewFacade(quiet(), cfg.Reasoning, log)
	pers := &memPersister{failFirst: 3}
	rec := &recordingBroadcaster{}
	c := New(cfg, facade, log, Options{Persister: pers, Broadcaster: rec})
	if err := c.Populate([]*agent.Agent{founder("01", "Bo", agent.RoleBuilder)}); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if err := c.RunDay(context.Background()); err == nil {
		t.Fatal("a day that cannot persist must fail")
	}
	if len(pers.snaps) != 0 {
		t.Errorf("nothing should be stored, got %d snapshots", len(pers.snaps))
	}
	if len(rec.kinds) != 0 {
		t.Errorf("an unpersisted day must not broadcast, got %v", rec.kinds)
	}
}

func TestStreetDice(t *testing.T) {
	cfg := testConfig(27)
	cfg.World.HeartAttackChance = 1.0
	cfg.World.WindfallChance = 1.0
	c := newTestCity(t, cfg, quiet(), founder("01", "Bo", agent.RoleBuilder))

	runDays(t, c, 1)

	if evs := eventsOfKind(c, events.KindHeartAttack); len(evs) != 1 || evs[0].Visibility != events.VisibilityPublic {
		t.Errorf("want one public heart attack event, got %+v", evs)
	}
	if evs := eventsOfKind(c, events.KindWindfall); len(evs) != 1 || evs[0].Visibility != events.VisibilityPublic {
		t.Errorf("want one public windfall event, got %+v", evs)
	}
	if len(txWith(c, economy.KindFine, "medical emergency")) == 0 {
		t.Error("the treatment bill never hit the ledger")
	}
	if len(txWith(c, economy.KindEarn, "windfall")) == 0 {
		t.Error("the windfall never hit the ledger")
	}
}

func TestColdCaseReopensOnNewEvidence(t *testing.T) {
	c := newTestCity(t, testConfig(31), quiet(),
		founder("01", "Mona", agent.RoleMerchant),
		founder("02", "Pavel", agent.RolePolice))

	runDays(t, c, 1)
	id := c.Events.Append(1, events.KindTheft, "Ondra", "Mona", "",
		"Mona's strongbox came up light", events.VisibilityPrivate)
	if err := c.Events.PromoteReported(id, "Mona", 1); err != nil {
		t.Fatalf("report: %v", err)
	}
	ev, err := c.Events.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	caseID, opened := c.Justice.OpenOrLink(1, ev)
	if !opened {
		t.Fatal("the report should open a fresh case")
	}

	// Fourteen evidence-free days with a fallback detective go nowhere.
	runDays(t, c, 13)
	moodBefore := c.Moods.Of("Mona")
	runDays(t, c, 1)
	cc, ok := c.Justice.Get(caseID)
	if !ok || cc.Status != justice.StatusCold {
		t.Fatalf("the case should have gone cold, got %+v", cc)
	}
	if after := c.Moods.Of("Mona"); after >= moodBefore {
		t.Errorf("a cold case should weigh on the complainant: %.2f -> %.2f", moodBefore, after)
	}

	fresh := c.Events.Append(15, events.KindTheft, "Ondra", "Mona", "",
		"the strongbox was hit again", events.VisibilityReported)
	if err := c.Justice.LinkEvidence(15, caseID, fresh); err != nil {
		t.Fatalf("link evidence: %v", err)
	}
	cc, _ = c.Justice.Get(caseID)
	if cc.Status != justice.StatusOpen {
		t.Errorf("new evidence should reopen a cold case, got %s", cc.Status)
	}
}
