package engine

import (
	"fmt"
	"strings"

	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/events"
	"github.com/aicity-project/aicity/internal/projects"
	"github.com/aicity-project/aicity/internal/social"
)

// IntentPredicate decides whether a message proposes a meeting. Pluggable
// so a reasoning-model classifier can replace the keyword scan.
type IntentPredicate func(body string) bool

// KeywordIntent is the default: a plain scan for meeting language.
func KeywordIntent() IntentPredicate {
	keywords := []string{"meet", "let's talk", "come see me", "find me at", "join me"}
	return func(body string) bool {
		lc := strings.ToLower(body)
		for _, kw := range keywords {
			if strings.Contains(lc, kw) {
				return true
			}
		}
		return false
	}
}

// matchMeetings scans the day's messages for meeting intent between two
// living agents standing in the same part of town, and fires the outcome
// their roles and relationship imply.
func (c *City) matchMeetings(day int, feed *[]feedItem) {
	seen := make(map[string]bool) // unordered pair, one meeting per day
	for _, msg := range c.Bus.OnDay(day) {
		if msg.From == social.AnonymousSender || !c.intent(msg.Body) {
			continue
		}
		a, b := c.findAgent(msg.From), c.findAgent(msg.To)
		if a == nil || b == nil || !a.Alive() || !b.Alive() || a.Name == b.Name {
			continue
		}
		key := pairID(a.Name, b.Name)
		if seen[key] {
			continue
		}
		if !c.Positions.Within(a.Name, b.Name, c.cfg.Events.CoLocationRadius) {
			continue
		}
		seen[key] = true
		outcome := c.holdMeeting(day, a, b)
		c.Events.Append(day, events.KindMeeting, a.Name, b.Name, "",
			fmt.Sprintf("%s and %s met: %s", a.Name, b.Name, outcome), events.VisibilityPublic)
		*feed = append(*feed, feedItem{"meeting", map[string]any{
			"a": a.Name, "b": b.Name, "outcome": outcome,
		}})
	}
}

// holdMeeting picks and executes the outcome of one face-to-face.
func (c *City) holdMeeting(day int, a, b *agent.Agent) string {
	switch {
	case a.Role == agent.RoleGangLeader || b.Role == agent.RoleGangLeader:
		return c.meetingGangPitch(day, a, b)
	case a.Role == agent.RolePolice || b.Role == agent.RolePolice:
		return c.meetingDebrief(day, a, b)
	case a.Role == agent.RoleBuilder || b.Role == agent.RoleBuilder:
		return c.meetingProject(day, a, b)
	case c.Bonds.Score(a.Name, b.Name) < -0.20:
		c.Bonds.Update(a.Name, b.Name, social.DeltaCooperative, "sat down to clear the air")
		return "an attempt to bury the hatchet"
	default:
		return c.meetingTrade(day, a, b)
	}
}

// meetingGangPitch lets a leader close on recruits gathered through their
// recent messages.
func (c *City) meetingGangPitch(day int, a, b *agent.Agent) string {
	leader := a
	if b.Role == agent.RoleGangLeader {
		leader = b
	}
	if c.Gangs.MemberOfActive(leader.Name) {
		return "gang business, kept quiet"
	}
	var recruits []string
	for _, msg := range c.Bus.SentBy(leader.Name, day) {
		r := c.findAgent(msg.To)
		if r == nil || !r.Alive() {
			continue
		}
		bal, _ := c.Ledger.Balance(r.Name)
		if ok, _ := c.Gangs.Recruitable(r.Role, c.Moods.Of(r.Name), bal, c.cfg.Economy.DailyBurn); ok {
			recruits = append(recruits, r.Name)
		}
	}
	gang, formed := c.Gangs.TryForm(c.rng, day, leader.Name, recruits)
	if !formed {
		return "whispers that came to nothing"
	}
	c.Events.Append(day, events.KindGangFormed, leader.Name, "", "",
		fmt.Sprintf("%s was founded in a back room", gang.Name), events.VisibilityPrivate)
	for _, m := range gang.Members {
		if m != leader.Name {
			c.Bonds.Update(leader.Name, m, social.DeltaCooperative, "swore in together")
		}
	}
	return "a pact sealed in the dark"
}

// meetingDebrief lets an informant put a witnessed crime in the book.
func (c *City) meetingDebrief(day int, a, b *agent.Agent) string {
	informant := a
	if a.Role == agent.RolePolice {
		informant = b
	}
	for _, ev := range c.Events.AgentScope(informant.Name, day-c.cfg.World.MessageTTLDays) {
		if ev.Visibility >= events.VisibilityReported || ev.Actor == informant.Name {
			continue
		}
		if !ev.Kind.Incriminating() {
			continue
		}
		if err := c.Events.PromoteReported(ev.ID, informant.Name, day); err != nil {
			continue
		}
		if fresh, err := c.Events.Get(ev.ID); err == nil {
			c.Justice.OpenOrLink(day, fresh)
		}
		return fmt.Sprintf("%s went on record about a %s", informant.Name, ev.Kind)
	}
	return "a quiet word with the law"
}

// meetingProject starts a build if nothing of the kind is already going.
func (c *City) meetingProject(day int, a, b *agent.Agent) string {
	proposer := a
	if b.Role == agent.RoleBuilder {
		proposer = b
	}
	for _, t := range []projects.AssetType{
		projects.AssetMarket, projects.AssetRoad, projects.AssetSchool,
		projects.AssetWatchtower, projects.AssetHospital, projects.AssetArchive,
	} {
		if c.Projects.HasStanding(t) {
			continue
		}
		if _, active := c.Projects.ActiveByType(t); active {
			continue
		}
		if _, err := c.Projects.Start(day, proposer.Name, t); err != nil {
			continue
		}
		c.Bonds.Update(a.Name, b.Name, social.DeltaSharedProject, "planned a build")
		return fmt.Sprintf("ground broken on a %s", t)
	}
	return "talk of building, nothing started"
}

// meetingTrade moves a little money from the richer party to the poorer
// and warms the bond.
func (c *City) meetingTrade(day int, a, b *agent.Agent) string {
	balA, _ := c.Ledger.Balance(a.Name)
	balB, _ := c.Ledger.Balance(b.Name)
	from, to := a.Name, b.Name
	if balB > balA {
		from, to = b.Name, a.Name
	}
	moved, err := c.Ledger.Transfer(day, from, to, 30, "market-day trade")
	if err != nil || moved == 0 {
		return "haggling with no sale"
	}
	c.Bonds.Update(a.Name, b.Name, social.DeltaCooperative, "struck a deal")
	return fmt.Sprintf("a trade of %d tokens", moved)
}

func pairID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
