package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/aicity-project/aicity/internal/brain"
	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/events"
	"github.com/aicity-project/aicity/internal/justice"
	"github.com/aicity-project/aicity/internal/memory"
	"github.com/aicity-project/aicity/internal/projects"
	"github.com/aicity-project/aicity/internal/social"
	"github.com/aicity-project/aicity/internal/world"
)

// feedItem is one committed day event queued for broadcast. Broadcast order
// matches commit order, so items accumulate as phases run and flush last.
type feedItem struct {
	kind    string
	payload any
}

// RunDay advances the simulation one day through the nine ordered phases.
// Either the checkpoint commits and the day broadcasts, or the error leaves
// storage at the last completed day and nothing is broadcast.
func (c *City) RunDay(ctx context.Context) error {
	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.day++
	day := c.day
	var feed []feedItem
	c.log.Info("day %d begins", day)

	// Phase 1: day-open. Yesterday's public record becomes this morning's
	// paper before anyone acts on it.
	c.writeEditions(ctx, day, &feed)

	// Phase 2: asset benefits land before any agent acts.
	c.applyAssetBenefits(day)

	roster := c.alive()

	// Phase 3: per-agent turns in descending-balance order.
	arrests := c.runTurns(ctx, day, roster, &feed)

	// Investigations run on the day's full ledger, then the arrest queue
	// goes to court.
	arrests = append(arrests, c.investigate(ctx, day)...)
	c.runTrials(ctx, day, arrests, &feed)

	// Phase 4: meetings.
	c.matchMeetings(day, &feed)

	// Phase 5: vault policy.
	c.applyVaultPolicy(day, &feed)

	// Phase 6: event-log promotions.
	c.promoteEvents(day, &feed)

	// Phase 7: mood and bond upkeep, then the population turns over.
	c.applyDailyMoods(day)
	c.Bonds.DecayDaily()
	c.graduateNewborns(ctx, day, &feed)
	c.checkBirths(day, &feed)

	// Homes are bought out of the day's proceeds; evening positions close
	// the day.
	for _, claim := range c.Homes.CheckPurchases(day, c.roster, c.Ledger) {
		feed = append(feed, feedItem{"home_claimed", claim})
	}
	c.settleEvening(day, &feed)

	// The day must balance before it may be persisted.
	if err := c.Ledger.Reconcile(); err != nil {
		return fmt.Errorf("engine: day %d failed reconciliation: %w", day, err)
	}

	// Phase 8: persistence checkpoint, retried with bounded backoff.
	if c.persister != nil {
		snap := c.snapshotLocked()
		var err error
		for attempt := 0; attempt < 3; attempt++ {
			if err = c.persister.Checkpoint(ctx, snap); err == nil {
				break
			}
			c.log.Warn("checkpoint attempt %d for day %d failed: %v", attempt+1, day, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
			}
		}
		if err != nil {
			return fmt.Errorf("engine: day %d checkpoint: %w", day, err)
		}
	}

	// Phase 9: broadcast in commit order.
	for _, item := range feed {
		c.broadcaster.Broadcast(item.kind, day, item.payload)
		c.met.RecordBroadcast()
	}
	c.met.RecordDay(time.Since(start))
	c.log.Info("day %d complete: %d alive, %d open cases, vault %d",
		day, len(c.alive()), c.Justice.OpenCaseCount(), c.Ledger.Vault().VaultBalance)
	return nil
}

// applyAssetBenefits pays each standing asset's role-scoped daily grant.
func (c *City) applyAssetBenefits(day int) {
	for _, b := range c.Projects.StandingBenefits() {
		var eligible []*agent.Agent
		for _, a := range c.roster {
			if a.Alive() && a.Role == b.Role {
				eligible = append(eligible, a)
			}
		}
		if len(eligible) == 0 {
			continue
		}
		amount := b.Amount
		if b.Split {
			amount = b.Amount / int64(len(eligible))
			if amount == 0 {
				amount = 1
			}
		}
		for _, a := range eligible {
			if _, err := c.Ledger.Benefit(day, a.Name, amount, "asset benefit"); err != nil {
				c.log.Warn("asset benefit for %s failed: %v", a.Name, err)
			}
		}
	}
}

// runTurns gives every living citizen one decision and its consequences,
// then the daily burn and the day's dice.
func (c *City) runTurns(ctx context.Context, day int, roster []*agent.Agent, feed *[]feedItem) []justice.ArrestRequest {
	var arrests []justice.ArrestRequest
	for _, a := range roster {
		if !a.Alive() {
			continue // died earlier this phase
		}
		a.AgeDays++
		// Morning commute before the agent acts.
		x, y := c.Positions.Destination(a, world.PhaseMorning, c.Homes.LotOf(a.Name))
		a.PosX, a.PosY = x, y
		c.Positions.Set(a.Name, x, y)

		dec := c.Facade.Decide(ctx, c.decisionContext(day, a))
		res := c.dispatcher.Execute(day, a, dec, roster)
		arrests = append(arrests, res.Arrests...)
		if dec.MessageTo != "" && dec.MessageBody != "" {
			if to := c.findAgent(dec.MessageTo); to != nil && to.Alive() {
				*feed = append(*feed, feedItem{"message", map[string]any{
					"from": a.Name, "to": dec.MessageTo, "body": dec.MessageBody,
				}})
			}
		}
		if res.SusceptibilityDrift != 0 {
			a.BribeSusceptibility = clamp01(a.BribeSusceptibility + res.SusceptibilityDrift)
		}
		if bal, err := c.Ledger.Balance(a.Name); err == nil {
			a.Tokens = bal
		}
		*feed = append(*feed, feedItem{"agent_update", agentPayload(a, c.Moods.Of(a.Name))})

		starved, err := c.Ledger.BurnDaily(day, a.Name, c.cfg.Economy.DailyBurn)
		if err != nil {
			c.log.Warn("burn for %s failed: %v", a.Name, err)
		}
		if starved {
			c.kill(day, a, "starvation", feed)
			continue
		}
		c.rollDice(day, a, feed)
	}
	return arrests
}

// rollDice runs the independent per-agent stochastic events.
func (c *City) rollDice(day int, a *agent.Agent, feed *[]feedItem) {
	if c.rng.Float64() < c.cfg.World.HeartAttackChance {
		cost := 50 + c.rng.Int63n(151)
		taken, err := c.Ledger.Fine(day, a.Name, cost, "medical emergency")
		if err == nil {
			c.Events.Append(day, events.KindHeartAttack, a.Name, "", "",
				fmt.Sprintf("%s collapsed in the street; treatment cost %d tokens", a.Name, taken),
				events.VisibilityPublic)
			*feed = append(*feed, feedItem{"heart_attack", map[string]any{"agent": a.Name, "cost": taken}})
		}
	}
	if c.rng.Float64() < c.cfg.World.WindfallChance {
		gross := 100 + c.rng.Int63n(201)
		net, err := c.Ledger.Earn(day, a.Name, gross, "windfall")
		if err == nil {
			c.Events.Append(day, events.KindWindfall, a.Name, "", "",
				fmt.Sprintf("%s came into %d tokens of unexpected luck", a.Name, net),
				events.VisibilityPublic)
			*feed = append(*feed, feedItem{"windfall", map[string]any{"agent": a.Name, "amount": net}})
		}
	}
}

// decisionContext packs everything the reasoning model is allowed to see
// for one agent turn.
func (c *City) decisionContext(day int, a *agent.Agent) brain.DecisionContext {
	caps := agent.CapabilitiesFor(a.Role)
	pos, neg := c.Bonds.TopBonds(a.Name, 3)
	bal, _ := c.Ledger.Balance(a.Name)
	dc := brain.DecisionContext{
		Name:          a.Name,
		Role:          a.Role,
		Tokens:        bal,
		AgeDays:       a.AgeDays,
		MoodText:      social.Describe(c.Moods.Of(a.Name)),
		Day:           day,
		Newspaper:     c.latestDaily(),
		AssetFlags:    c.assetFlags(),
		Inbox:         c.Bus.Inbox(a.Name, day, 10),
		PositiveBonds: pos,
		NegativeBonds: neg,
		Recalls:       c.Memory.Recall(a.Name, string(a.Role), 5),
		Actions:       caps.Actions,
	}
	if a.Role == agent.RolePolice {
		dc.SusceptibilityFraming = justice.Officer{Name: a.Name, Susceptibility: a.BribeSusceptibility}.Framing()
	}
	if a.Role == agent.RoleNewborn {
		dc.Comprehension = a.ComprehensionScore
	}
	return dc
}

func (c *City) assetFlags() []string {
	var flags []string
	for _, asset := range c.Projects.StandingAssets() {
		flags = append(flags, string(asset.Type))
	}
	return flags
}

// investigate runs the daily pass over open cases with the first living
// officer on the force.
func (c *City) investigate(ctx context.Context, day int) []justice.ArrestRequest {
	var officer *agent.Agent
	for _, a := range c.roster {
		if a.Alive() && a.Role == agent.RolePolice {
			officer = a
			break
		}
	}
	if officer == nil {
		return nil
	}
	coldBefore := coldCaseIDs(c.Justice.ColdCases())
	arrests := c.Justice.InvestigateDaily(ctx, day,
		justice.Officer{Name: officer.Name, Susceptibility: officer.BribeSusceptibility},
		c.Ledger.Transactions())
	// Complainants of freshly cold cases feel the inaction.
	for _, cc := range c.Justice.ColdCases() {
		if !coldBefore[cc.ID] && cc.Complainant != "" {
			c.applyMood(cc.Complainant, social.MoodColdCase)
		}
	}
	return arrests
}

func coldCaseIDs(cases []justice.Case) map[string]bool {
	out := make(map[string]bool, len(cases))
	for _, cc := range cases {
		out[cc.ID] = true
	}
	return out
}

// runTrials takes the day's arrest queue to court.
func (c *City) runTrials(ctx context.Context, day int, arrests []justice.ArrestRequest, feed *[]feedItem) {
	for _, req := range arrests {
		defendant := c.findAgent(req.Suspect)
		if defendant == nil || !defendant.Alive() {
			continue
		}
		defendant.Status = agent.StatusImprisoned
		c.Events.Append(day, events.KindArrest, req.Suspect, "", "",
			fmt.Sprintf("%s was taken into custody", req.Suspect), events.VisibilityPublic)
		*feed = append(*feed, feedItem{"arrest", map[string]any{"agent": req.Suspect, "case_id": req.CaseID}})

		// Arrest may blow a gang's cover.
		if gang, exposed := c.Gangs.OnMemberArrest(c.rng, req.Suspect); exposed {
			id := c.Events.Append(day, events.KindGangFormed, gang.Leader, "", "",
				fmt.Sprintf("word spreads that %s runs with %s", req.Suspect, gang.Name),
				events.VisibilityPrivate)
			_ = c.Events.PromoteWitnessed(id, []string{req.Suspect})
			_ = c.Events.PromoteRumor(id, req.Suspect, "the precinct", day, "gang association surfaced in custody")
			*feed = append(*feed, feedItem{"gang_event", map[string]any{"gang": gang.Name, "known_to_police": true}})
		}

		outcome := c.Justice.RunTrial(ctx, day, req, c.defenseStatement(day, req))
		defendant.Status = agent.StatusAlive

		if outcome.Guilty {
			fine := outcome.Fine
			if fine <= 0 {
				fine = 300
			}
			paid, err := c.Ledger.Fine(day, req.Suspect, fine, "court fine")
			if err != nil {
				c.log.Warn("fine against %s failed: %v", req.Suspect, err)
			}
			c.Events.Append(day, events.KindVerdict, req.Suspect, "", "",
				fmt.Sprintf("%s found guilty of %s, fined %d tokens", req.Suspect, outcome.Crime, paid),
				events.VisibilityPublic)
			c.publishCaseEvents(day, req.CaseID, feed)
			c.sourVictimBonds(req.CaseID, req.Suspect)

			if gang, broken := c.Gangs.OnLeaderGuilty(day, req.Suspect); broken {
				*feed = append(*feed, feedItem{"gang_event", map[string]any{"gang": gang.Name, "status": "broken"}})
			}
			if cc, ok := c.Justice.Get(req.CaseID); ok && cc.Complainant != "" {
				c.applyMood(cc.Complainant, social.MoodJusticeServed)
			}
			// The officer on the case watches the verdict land.
			for _, a := range c.roster {
				if a.Alive() && a.Role == agent.RolePolice {
					a.BribeSusceptibility = clamp01(a.BribeSusceptibility - c.Justice.GuiltyVerdictDrift())
					break
				}
			}
		}
		*feed = append(*feed, feedItem{"verdict", map[string]any{
			"agent": req.Suspect, "guilty": outcome.Guilty, "fine": outcome.Fine,
			"reasoning": outcome.Reasoning,
		}})
	}
}

// publishCaseEvents moves every event linked to a solved case into the
// public record, the verdict exception to the promotion ladder.
func (c *City) publishCaseEvents(day int, caseID string, feed *[]feedItem) {
	cc, ok := c.Justice.Get(caseID)
	if !ok {
		return
	}
	ids := append([]string{cc.EventID}, cc.LinkedEvents...)
	for _, id := range ids {
		if id == "" {
			continue
		}
		prior, err := c.Events.Get(id)
		if err != nil || prior.Visibility == events.VisibilityPublic {
			continue
		}
		if err := c.Events.Publish(id, "court verdict", day); err != nil {
			c.log.Warn("publishing case event %s: %v", id, err)
			continue
		}
		if fresh, err := c.Events.Get(id); err == nil {
			*feed = append(*feed, feedItem{string(fresh.Kind), fresh})
		}
	}
}

// sourVictimBonds applies the conviction's antagonistic hit between the
// convict and each victim of the case's events. The theft already cost the
// pair one delta; the verdict makes the grudge permanent.
func (c *City) sourVictimBonds(caseID, convict string) {
	cc, ok := c.Justice.Get(caseID)
	if !ok {
		return
	}
	seen := make(map[string]bool)
	for _, id := range append([]string{cc.EventID}, cc.LinkedEvents...) {
		ev, err := c.Events.Get(id)
		if err != nil || ev.Target == "" || ev.Target == convict || seen[ev.Target] {
			continue
		}
		seen[ev.Target] = true
		c.Bonds.Update(ev.Target, convict, social.DeltaAntagonistic, "saw them convicted for it")
	}
}

// defenseStatement finds a living lawyer willing to stand up in court.
func (c *City) defenseStatement(day int, req justice.ArrestRequest) string {
	for _, a := range c.roster {
		if a.Alive() && a.Role == agent.RoleLawyer {
			if _, err := c.Ledger.Earn(day, a.Name, 60, "defense retainer"); err == nil {
				return fmt.Sprintf("%s argues the evidence against %s is circumstantial and the city cannot meet its burden.",
					a.Name, req.Suspect)
			}
		}
	}
	return ""
}

// applyVaultPolicy runs welfare then public goods.
func (c *City) applyVaultPolicy(day int, feed *[]feedItem) {
	eco := c.cfg.Economy
	for _, a := range c.roster {
		if !a.Alive() {
			continue
		}
		bal, err := c.Ledger.Balance(a.Name)
		if err != nil || bal >= eco.WelfareFloor {
			continue
		}
		// The standard grant, raised to whatever it takes to reach the
		// floor. Anyone left under the floor after this means the vault
		// itself ran dry.
		grant := eco.WelfareGrant
		if need := eco.WelfareFloor - bal; need > grant {
			grant = need
		}
		granted, err := c.Ledger.Welfare(day, a.Name, grant)
		if err != nil {
			c.log.Warn("welfare for %s failed: %v", a.Name, err)
			continue
		}
		if granted > 0 {
			c.applyMood(a.Name, social.MoodWelfare)
		}
	}

	if c.Ledger.Vault().VaultBalance > eco.SurplusThreshold {
		if c.fundPublicWorks(day) {
			return
		}
	}
	// No surplus project to fund: a small community bonus instead.
	if c.Ledger.Vault().VaultBalance > eco.SurplusThreshold {
		for _, a := range c.roster {
			if a.Alive() {
				if _, err := c.Ledger.Welfare(day, a.Name, eco.CommunityBonus); err != nil {
					break
				}
			}
		}
		*feed = append(*feed, feedItem{"agent_update", map[string]any{"community_bonus": eco.CommunityBonus}})
	}
}

// fundPublicWorks hires a builder onto the most advanced active project for
// one funded day of progress. Reports whether any project was funded.
func (c *City) fundPublicWorks(day int) bool {
	var best *struct {
		id       string
		progress float64
	}
	for _, p := range c.Projects.Projects() {
		if p.Status != "active" {
			continue
		}
		if best == nil || p.Progress > best.progress {
			best = &struct {
				id       string
				progress float64
			}{p.ID, p.Progress}
		}
	}
	if best == nil {
		return false
	}
	for _, a := range c.roster {
		if !a.Alive() || a.Role != agent.RoleBuilder {
			continue
		}
		if _, err := c.Ledger.Earn(day, a.Name, 80, "public works stipend"); err != nil {
			return false
		}
		if err := c.Projects.Contribute(best.id, a.Name, a.Role); err != nil {
			return false
		}
		c.log.Event("public_works", a.Name, best.id)
		return true
	}
	return false
}

// promoteEvents is the visibility phase: co-location witnessing, victim
// self-discovery, the knower threshold, and project completions becoming
// build events.
func (c *City) promoteEvents(day int, feed *[]feedItem) {
	// Finish the day's construction first so build events join today's log.
	completed, abandoned := c.Projects.FinishDay(day)
	for _, done := range completed {
		c.Events.Append(day, events.KindBuild, done.Project.Proposer, "", done.Asset.ID,
			fmt.Sprintf("the %s stands finished after %d days", done.Asset.Type, day-done.Project.StartedDay),
			events.VisibilityPublic)
		*feed = append(*feed, feedItem{"construction_complete", map[string]any{
			"project_id": done.Project.ID, "asset_id": done.Asset.ID, "type": done.Asset.Type,
		}})
		*feed = append(*feed, feedItem{"asset_built", done.Asset})
		for _, tile := range c.Tiles.PlaceAsset(day, done.Asset.ID, done.Asset.Type, done.Project.Proposer) {
			*feed = append(*feed, feedItem{"tile_placed", tile})
		}
		for _, builder := range done.Asset.Builders {
			for _, other := range done.Asset.Builders {
				if builder < other {
					c.Bonds.Update(builder, other, social.DeltaSharedProject, "raised a building together")
				}
			}
		}
	}
	for _, p := range abandoned {
		c.log.Event("project_abandoned", p.Proposer, string(p.Type))
		*feed = append(*feed, feedItem{"construction_progress", map[string]any{"project_id": p.ID, "status": "abandoned"}})
	}
	for _, p := range c.Projects.Projects() {
		if p.Status == projects.StatusActive {
			*feed = append(*feed, feedItem{"construction_progress", map[string]any{
				"project_id": p.ID, "type": p.Type, "status": p.Status,
				"progress": p.Progress, "goal": p.Goal,
			}})
		}
	}

	// Sabotaged assets lose their tiles.
	for _, asset := range c.Projects.Assets() {
		if asset.Destroyed && asset.DestroyedDay == day {
			for _, tile := range c.Tiles.RemoveAsset(asset.ID) {
				*feed = append(*feed, feedItem{"tile_removed", tile})
			}
		}
	}

	// Co-location witnesses for today's still-private events. Agents in
	// criminal roles keep their heads down and rarely come forward.
	busy := make(map[string]bool)
	for _, a := range c.roster {
		if a.Alive() && a.Role.Criminal() {
			busy[a.Name] = true
		}
	}
	for _, ev := range c.Events.ByDay(day) {
		if ev.Visibility != events.VisibilityPrivate || ev.Actor == "" {
			continue
		}
		nearby := c.aliveNames(c.Positions.Nearby(ev.Actor, c.cfg.Events.CoLocationRadius))
		witnessed, err := c.Events.RollWitnesses(c.rng, ev.ID, nearby, busy,
			c.cfg.Events.WitnessChance, c.cfg.Events.BusyWitnessChance)
		if err != nil {
			continue
		}
		for _, w := range witnessed {
			c.Memory.Remember(w.Name, day, memory.KindWitness, w.Fragment)
		}
	}

	// Victims of recent private crimes may notice and go to the police.
	for _, a := range c.roster {
		if !a.Alive() {
			continue
		}
		for _, ev := range c.Events.UnreportedCrimesAgainst(a.Name, day-3) {
			if c.rng.Float64() >= c.cfg.Justice.VictimReportChance {
				continue
			}
			if err := c.Events.PromoteReported(ev.ID, a.Name, day); err != nil {
				continue
			}
			if fresh, err := c.Events.Get(ev.ID); err == nil {
				c.Justice.OpenOrLink(day, fresh)
			}
			if ev.Actor != "" && ev.Actor != a.Name {
				c.Bonds.Update(a.Name, ev.Actor, social.DeltaAntagonistic, "went to the police about them")
			}
			c.Memory.Remember(a.Name, day, memory.KindCaseNote,
				fmt.Sprintf("I reported the %s against me to the police", ev.Kind))
		}
	}

	// Enough independent knowers makes a thing common knowledge.
	for _, ev := range c.Events.All() {
		if ev.Visibility >= events.VisibilityPublic {
			continue
		}
		if c.Events.KnowerCount(ev.ID) >= c.cfg.Events.PublicKnowers {
			if err := c.Events.Publish(ev.ID, "common knowledge", day); err == nil {
				c.Memory.PublishCity(day, memory.KindGossip, ev.Description)
				if fresh, err := c.Events.Get(ev.ID); err == nil {
					*feed = append(*feed, feedItem{string(fresh.Kind), fresh})
				}
			}
		}
	}
}

func (c *City) aliveNames(names []string) []string {
	var out []string
	for _, n := range names {
		if a := c.findAgent(n); a != nil && a.Alive() {
			out = append(out, n)
		}
	}
	return out
}

// applyDailyMoods applies the standing daily pressures.
func (c *City) applyDailyMoods(day int) {
	for _, a := range c.roster {
		if !a.Alive() {
			continue
		}
		bal, err := c.Ledger.Balance(a.Name)
		if err == nil && bal < c.cfg.Economy.WelfareFloor {
			c.applyMood(a.Name, social.MoodDailyStress)
		}
	}
	// Long-cold cases keep wearing their complainants down.
	for _, cc := range c.Justice.ColdCases() {
		if cc.Complainant != "" && c.findAgent(cc.Complainant) != nil {
			c.applyMood(cc.Complainant, social.MoodColdCase)
		}
	}
}

func (c *City) applyMood(name string, delta float64) {
	a := c.findAgent(name)
	if a == nil || !a.Alive() {
		return
	}
	a.Mood = c.Moods.Apply(name, delta)
}

// settleEvening walks everyone home, lights the windows, and expires old
// mail.
func (c *City) settleEvening(day int, feed *[]feedItem) {
	for _, a := range c.roster {
		if !a.Alive() {
			continue
		}
		lot := c.Homes.LotOf(a.Name)
		x, y := c.Positions.Destination(a, world.PhaseEvening, lot)
		a.PosX, a.PosY = x, y
		c.Positions.Set(a.Name, x, y)
		c.Homes.SetAtHome(a.Name, lot != nil)
	}
	c.Bus.Expire(day)
	*feed = append(*feed, feedItem{"positions", c.Positions.Snapshot()})
	*feed = append(*feed, feedItem{"time_phase", map[string]any{"phase": string(world.PhaseNight)}})
}

// kill handles a death mid-tick: the estate settles to the vault, the
// record stays for the graveyard, and the event is public immediately.
func (c *City) kill(day int, a *agent.Agent, cause string, feed *[]feedItem) {
	a.Kill(cause)
	a.Tokens = 0
	if err := c.Ledger.SettleDeath(day, a.Name); err != nil {
		c.log.Error("settling estate of %s: %v", a.Name, err)
	}
	c.Events.Append(day, events.KindDeath, a.Name, "", "",
		fmt.Sprintf("%s died of %s on day %d", a.Name, cause, day), events.VisibilityPublic)
	c.Moods.Forget(a.Name)
	c.Memory.Forget(a.Name)
	c.Positions.Forget(a.Name)
	c.Homes.Release(a.Name)
	c.log.Event("death", a.Name, cause)
	*feed = append(*feed, feedItem{"death", map[string]any{"agent": a.Name, "cause": cause}})
}

func agentPayload(a *agent.Agent, mood float64) map[string]any {
	// BribeSusceptibility is deliberately absent: it never leaves the
	// reasoning prompt.
	return map[string]any{
		"name": a.Name, "role": string(a.Role), "status": string(a.Status),
		"tokens": a.Tokens, "mood": mood, "age_days": a.AgeDays,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
