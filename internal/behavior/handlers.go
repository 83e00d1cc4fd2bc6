package behavior

import (
	"fmt"
	"strings"

	"github.com/aicity-project/aicity/internal/brain"
	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/events"
	"github.com/aicity-project/aicity/internal/justice"
	"github.com/aicity-project/aicity/internal/memory"
	"github.com/aicity-project/aicity/internal/projects"
	"github.com/aicity-project/aicity/internal/social"
)

// work settles an ordinary builder day. Overtime and desperate language in
// the decision raise the roll.
func (d *Dispatcher) work(day int, actor *agent.Agent, dec *brain.Decision) {
	caps := agent.CapabilitiesFor(actor.Role)
	gross := d.earnRoll(caps)
	if dec.Action == "work_overtime" {
		gross = gross * 3 / 2
	}
	if desperate(dec.Rationale) || desperate(dec.MoodSelf) {
		gross += gross / 10
	}
	d.credit(day, actor, gross, "a day's work")
}

func desperate(text string) bool {
	lc := strings.ToLower(text)
	for _, w := range []string{"desperate", "starving", "broke", "last chance"} {
		if strings.Contains(lc, w) {
			return true
		}
	}
	return false
}

// startProject opens a construction project of the decided type.
func (d *Dispatcher) startProject(day int, actor *agent.Agent, dec *brain.Decision) {
	t := projects.AssetType(strings.ToLower(dec.Target))
	if _, ok := projects.Specs[t]; !ok {
		t = projects.AssetMarket
	}
	id, err := d.deps.Projects.Start(day, actor.Name, t)
	if err != nil {
		d.deps.Logger.Info("%s could not start a %s: %v", actor.Name, t, err)
		d.work(day, actor, dec)
		return
	}
	_ = d.deps.Projects.Contribute(id, actor.Name, actor.Role)
	d.credit(day, actor, d.earnRoll(agent.CapabilitiesFor(actor.Role))/2, "laying groundwork")
}

// workOnProject contributes to the oldest active project the actor's role
// can serve.
func (d *Dispatcher) workOnProject(day int, actor *agent.Agent) {
	for _, p := range d.deps.Projects.Projects() {
		if p.Status != projects.StatusActive {
			continue
		}
		if err := d.deps.Projects.Contribute(p.ID, actor.Name, actor.Role); err == nil {
			d.deps.Bonds.Update(actor.Name, p.Proposer, social.DeltaSharedProject, "worked their project")
			d.credit(day, actor, d.earnRoll(agent.CapabilitiesFor(actor.Role))/2, "site work on the "+string(p.Type))
			return
		}
	}
	d.credit(day, actor, d.earnRoll(agent.CapabilitiesFor(actor.Role)), "a day's work")
}

// explore is a high-variance earn with a chance of a private discovery.
func (d *Dispatcher) explore(day int, actor *agent.Agent, dec *brain.Decision) {
	caps := agent.CapabilitiesFor(actor.Role)
	gross := d.earnRoll(caps)
	if dec.Action == "explore_deep" {
		// Deep runs double or bust.
		if d.rng.Float64() < 0.5 {
			gross *= 2
		} else {
			gross = 0
		}
	}
	if d.deps.Projects.HasStanding(projects.AssetRoad) {
		gross += 25
	}
	d.credit(day, actor, gross, "expedition findings")
	if d.rng.Float64() < 0.10 {
		d.deps.Events.Append(day, events.KindDiscovery, actor.Name, "", "",
			actor.Name+" found something out beyond the city edge", events.VisibilityPrivate)
		d.deps.Memory.Remember(actor.Name, day, memory.KindPersonal, "I found something out there; I have told no one")
	}
}

// shareDiscovery publishes the explorer's most recent private discovery.
func (d *Dispatcher) shareDiscovery(day int, actor *agent.Agent, roster []*agent.Agent) {
	for _, ev := range d.deps.Events.AgentScope(actor.Name, 0) {
		if ev.Kind == events.KindDiscovery && ev.Actor == actor.Name && ev.Visibility < events.VisibilityPublic {
			_ = d.deps.Events.Publish(ev.ID, "the explorer shared it", day)
			d.deps.Memory.PublishCity(day, memory.KindPersonal, ev.Description)
			d.credit(day, actor, 80, "presenting a discovery")
			return
		}
	}
	d.explore(day, actor, &brain.Decision{Action: "explore"})
}

// trade scales a merchant's earn with the number of wealthy citizens.
func (d *Dispatcher) trade(day int, actor *agent.Agent, roster []*agent.Agent) {
	caps := agent.CapabilitiesFor(actor.Role)
	wealthy := 0
	for _, a := range roster {
		if !a.Alive() || a.Name == actor.Name {
			continue
		}
		if bal, err := d.deps.Ledger.Balance(a.Name); err == nil && bal > d.deps.Cfg.Economy.StartingTokens {
			wealthy++
		}
	}
	gross := d.earnRoll(caps) + int64(wealthy)*10
	d.credit(day, actor, gross, "trading")
}

// patrol earns the beat wage and scans recent thefts in police scope,
// opening cases and rolling for arrests.
func (d *Dispatcher) patrol(day int, actor *agent.Agent) []justice.ArrestRequest {
	d.credit(day, actor, d.earnRoll(agent.CapabilitiesFor(actor.Role)), "the beat")

	chance := 0.25
	if d.deps.Projects.HasStanding(projects.AssetWatchtower) {
		chance = 0.30
	}
	var arrests []justice.ArrestRequest
	for _, ev := range d.deps.Events.PoliceScope(events.PoliceFilter{Kind: events.KindTheft, SinceDay: day - 7}) {
		caseID, opened := "", false
		if existing, ok := d.deps.Justice.CaseForEvent(ev.ID); ok {
			caseID = existing
		} else {
			caseID, opened = d.deps.Justice.OpenOrLink(day, ev)
		}
		if opened {
			d.deps.Logger.Event("patrol_case", actor.Name, caseID)
		}
		if ev.Actor != "" && d.rng.Float64() < chance {
			arrests = append(arrests, justice.ArrestRequest{CaseID: caseID, Suspect: ev.Actor, Day: day})
		}
	}
	return arrests
}

// acceptBribe takes the arrangement offered to this officer: the open case
// naming the briber goes quiet, and the officer's disposition drifts.
func (d *Dispatcher) acceptBribe(day int, actor *agent.Agent) float64 {
	for _, m := range d.deps.Bus.Inbox(actor.Name, day, 20) {
		if m.EventRef == "" || !strings.Contains(strings.ToLower(m.Body), "arrangement") {
			continue
		}
		ev, err := d.deps.Events.Get(m.EventRef)
		if err != nil || ev.Kind != events.KindBribe {
			continue
		}
		if caseID := bribeTargetCase(d, ev.Actor); caseID != "" {
			drift := d.deps.Justice.MarkBribed(caseID)
			d.deps.Logger.Event("bribe_accepted", actor.Name, caseID)
			return drift
		}
	}
	// No arrangement on the table: the day becomes an ordinary patrol.
	d.credit(day, actor, d.earnRoll(agent.CapabilitiesFor(actor.Role)), "the beat")
	return 0
}

// bribeTargetCase finds the open case whose suspect is the briber.
func bribeTargetCase(d *Dispatcher, briber string) string {
	for _, c := range d.deps.Justice.All() {
		if c.Status == justice.StatusOpen && c.Suspect == briber {
			return c.ID
		}
	}
	return ""
}

// bribe sends tokens and a quiet note to an officer; the transfer is a
// ledger record the police scope can later surface.
func (d *Dispatcher) bribe(day int, actor *agent.Agent, dec *brain.Decision, roster []*agent.Agent) {
	officer := findAgent(roster, dec.Target)
	if officer == nil || officer.Role != agent.RolePolice {
		for _, a := range roster {
			if a.Alive() && a.Role == agent.RolePolice {
				officer = a
				break
			}
		}
	}
	if officer == nil {
		return
	}
	moved, err := d.deps.Ledger.Transfer(day, actor.Name, officer.Name, 200, "a consideration")
	if err != nil || moved == 0 {
		return
	}
	id := d.deps.Events.Append(day, events.KindBribe, actor.Name, officer.Name, "",
		fmt.Sprintf("%s pressed %d tokens on officer %s", actor.Name, moved, officer.Name),
		events.VisibilityPrivate)
	d.deps.Bus.Send(day, actor.Name, officer.Name,
		"consider it an arrangement between professionals", id)
}

// teach earns by student count and accrues comprehension for newborns.
func (d *Dispatcher) teach(day int, actor *agent.Agent, roster []*agent.Agent) {
	students := 0
	double := d.deps.Projects.HasStanding(projects.AssetSchool)
	for _, a := range roster {
		if !a.Alive() || a.Role != agent.RoleNewborn {
			continue
		}
		students++
		if a.AssignedTeacher == "" {
			a.AssignedTeacher = actor.Name
		}
		gain := 5 + d.rng.Intn(11)
		if double {
			gain *= 2
		}
		a.ComprehensionScore += gain
		if a.ComprehensionScore > 100 {
			a.ComprehensionScore = 100
		}
		d.deps.Bonds.Update(actor.Name, a.Name, social.DeltaCooperative, "lessons")
	}
	caps := agent.CapabilitiesFor(actor.Role)
	d.credit(day, actor, d.earnRoll(caps)+int64(students)*15, "teaching")
}

// heal tends the worst-off citizen, lifting their mood, and earns by the
// count of critical cases.
func (d *Dispatcher) heal(day int, actor *agent.Agent, dec *brain.Decision, roster []*agent.Agent) {
	var patient *agent.Agent
	if dec.Target != "" {
		patient = findAgent(roster, dec.Target)
	}
	critical := 0
	for _, a := range roster {
		if !a.Alive() || a.Name == actor.Name {
			continue
		}
		bal, _ := d.deps.Ledger.Balance(a.Name)
		if d.deps.Moods.Of(a.Name) < -0.6 || bal < 2*d.deps.Cfg.Economy.DailyBurn {
			critical++
			if patient == nil {
				patient = a
			}
		}
	}
	caps := agent.CapabilitiesFor(actor.Role)
	d.credit(day, actor, d.earnRoll(caps)+int64(critical)*20, "the clinic")
	if patient != nil && patient.Name != actor.Name {
		patient.Mood = d.deps.Moods.Apply(patient.Name, social.MoodHealed)
		d.deps.Bonds.Update(actor.Name, patient.Name, social.DeltaCooperative, "treated them")
		d.deps.Events.Append(day, events.KindHeal, actor.Name, patient.Name, "",
			actor.Name+" treated "+patient.Name+" at the clinic", events.VisibilityPublic)
	}
}

// deliver earns by city size; the paper itself is written by the narrator
// during day-open.
func (d *Dispatcher) deliver(day int, actor *agent.Agent, roster []*agent.Agent) {
	alive := 0
	for _, a := range roster {
		if a.Alive() {
			alive++
		}
	}
	caps := agent.CapabilitiesFor(actor.Role)
	d.credit(day, actor, d.earnRoll(caps)+int64(alive)*5, "deliveries")
}

// lawyer earns on the open-case docket.
func (d *Dispatcher) lawyer(day int, actor *agent.Agent) {
	caps := agent.CapabilitiesFor(actor.Role)
	gross := d.earnRoll(caps) + int64(d.deps.Justice.OpenCaseCount())*30
	d.credit(day, actor, gross, "counsel")
}

// steal picks a target by wealth and distaste, rolls for success, and logs
// a private theft event either way the coin lands for witnesses to catch.
func (d *Dispatcher) steal(day int, actor *agent.Agent, dec *brain.Decision, roster []*agent.Agent) {
	target := findAgent(roster, dec.Target)
	if target == nil || target.Name == actor.Name || target.Role == agent.RoleNewborn {
		target = d.pickMark(actor, roster)
	}
	if target == nil {
		return
	}
	if d.rng.Float64() >= 0.45 {
		d.deps.Logger.Event("theft_failed", actor.Name, target.Name)
		return
	}
	want := int64(float64(40+d.rng.Int63n(81)) * d.deps.Gangs.Bonus(actor.Name))
	moved, err := d.deps.Ledger.Transfer(day, target.Name, actor.Name, want, "unexplained loss")
	if err != nil || moved == 0 {
		return
	}
	d.deps.Events.Append(day, events.KindTheft, actor.Name, target.Name, "",
		fmt.Sprintf("%s stole %d tokens from %s", actor.Name, moved, target.Name),
		events.VisibilityPrivate)
	target.Mood = d.deps.Moods.Apply(target.Name, social.MoodTheftVictim)
	d.deps.Bonds.Update(actor.Name, target.Name, social.DeltaAntagonistic, "something went missing")
	d.deps.Memory.Remember(actor.Name, day, memory.KindPersonal,
		fmt.Sprintf("I took %d tokens off %s; nobody stopped me", moved, target.Name))
}

// pickMark prefers wealthy targets the thief has no warm bond with.
func (d *Dispatcher) pickMark(actor *agent.Agent, roster []*agent.Agent) *agent.Agent {
	for _, a := range d.wealthiest(roster) {
		if a.Name == actor.Name || a.Role == agent.RoleNewborn {
			continue
		}
		if d.deps.Bonds.Score(actor.Name, a.Name) > 0.2 {
			continue
		}
		return a
	}
	return nil
}

// blackmail finds something the actor knows about someone else and sends an
// anonymous demand. Non-payment risks the secret landing in the book.
func (d *Dispatcher) blackmail(day int, actor *agent.Agent, roster []*agent.Agent) {
	var mark events.Event
	for _, ev := range d.deps.Events.AgentScope(actor.Name, 0) {
		if ev.Actor == actor.Name || ev.Actor == "" || ev.Visibility >= events.VisibilityReported {
			continue
		}
		if !ev.Kind.Incriminating() {
			continue
		}
		if findAgent(roster, ev.Actor) == nil {
			continue
		}
		mark = ev
		break
	}
	if mark.ID == "" {
		return
	}
	demand := int64(100 + d.rng.Int63n(101))
	d.deps.Bus.Send(day, social.AnonymousSender, mark.Actor,
		fmt.Sprintf("pay %d tokens or the city hears what you did", demand), mark.ID)

	if d.rng.Float64() < 0.5 {
		moved, err := d.deps.Ledger.Transfer(day, mark.Actor, actor.Name, demand, "debt settled quietly")
		if err == nil && moved > 0 {
			d.deps.Events.Append(day, events.KindBlackmail, actor.Name, mark.Actor, "",
				"someone paid to keep a secret buried", events.VisibilityPrivate)
			return
		}
	}
	// Refusal or empty pockets: the secret may surface.
	if d.rng.Float64() < 0.3 {
		if err := d.deps.Events.PromoteReported(mark.ID, social.AnonymousSender, day); err == nil {
			if ev, gerr := d.deps.Events.Get(mark.ID); gerr == nil {
				d.deps.Justice.OpenOrLink(day, ev)
			}
		}
	}
}

// sabotage destroys a standing asset, leaving scattered clues in the
// evidence trail and souring the whole city's mood.
func (d *Dispatcher) sabotage(day int, actor *agent.Agent, roster []*agent.Agent) {
	standing := d.deps.Projects.StandingAssets()
	if len(standing) == 0 {
		return
	}
	target := standing[d.rng.Intn(len(standing))]
	destroyed, err := d.deps.Projects.Destroy(day, target.ID)
	if err != nil {
		return
	}
	id := d.deps.Events.Append(day, events.KindSabotage, actor.Name, "", destroyed.ID,
		fmt.Sprintf("the %s was wrecked in the night", destroyed.Type), events.VisibilityPrivate)
	for _, clue := range sabotageClues(actor.Name, string(destroyed.Type)) {
		_ = d.deps.Events.AddEvidence(id, events.Evidence{Day: day, Source: "scene", Note: clue})
	}
	for _, a := range roster {
		if a.Alive() && a.Name != actor.Name {
			a.Mood = d.deps.Moods.Apply(a.Name, social.MoodAssetDestroyed)
		}
	}
}

// sabotageClues are the partial traces left at the scene. They hint at the
// culprit without naming them outright.
func sabotageClues(actor, asset string) []string {
	return []string{
		"tool marks suggest somebody who knew the " + asset + " from the inside",
		"a scrap of cloth caught on a nail, torn from a work coat",
		"whoever did it came alone, after the lamps went out",
		"a neighbor half-remembers a figure about the height of " + actor,
	}
}

// gangLead runs the leader's day: criminal income and recruitment notes to
// the desperate. Formation itself rolls in the daily gang phase.
func (d *Dispatcher) gangLead(day int, actor *agent.Agent, roster []*agent.Agent) {
	caps := agent.CapabilitiesFor(actor.Role)
	gross := int64(float64(d.earnRoll(caps)) * d.deps.Gangs.Bonus(actor.Name))
	d.credit(day, actor, gross, "collections")
	for _, a := range roster {
		if !a.Alive() || a.Name == actor.Name {
			continue
		}
		bal, _ := d.deps.Ledger.Balance(a.Name)
		if ok, _ := d.deps.Gangs.Recruitable(a.Role, d.deps.Moods.Of(a.Name), bal, d.deps.Cfg.Economy.DailyBurn); ok {
			d.deps.Bus.Send(day, actor.Name, a.Name,
				"the city gave you nothing; my people look after their own", "")
			d.deps.Bonds.Update(actor.Name, a.Name, social.DeltaCooperative, "made an offer")
		}
	}
}

// study is a newborn's school day: small allowance, slow comprehension.
func (d *Dispatcher) study(day int, actor *agent.Agent, roster []*agent.Agent) {
	gain := 2 + d.rng.Intn(4)
	if d.deps.Projects.HasStanding(projects.AssetSchool) {
		gain *= 2
	}
	actor.ComprehensionScore += gain
	if actor.ComprehensionScore > 100 {
		actor.ComprehensionScore = 100
	}
	d.credit(day, actor, d.earnRoll(agent.CapabilitiesFor(actor.Role)), "chores")
}
