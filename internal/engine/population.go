package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/events"
	"github.com/aicity-project/aicity/internal/projects"
	"github.com/aicity-project/aicity/internal/social"
)

var greekPrefixes = []string{
	"Alpha", "Beta", "Gamma", "Delta", "Epsilon", "Zeta", "Eta", "Theta",
	"Iota", "Kappa", "Lambda", "Mu", "Nu", "Xi", "Omicron", "Pi",
}

// criticalRoles are filled first when the city repopulates: a city without
// them cannot heal, trade, or keep order.
var criticalRoles = []agent.Role{agent.RoleHealer, agent.RoleMerchant, agent.RolePolice}

// checkBirths keeps the city above the population floor. New citizens are
// newborns unless a critical role has gone unfilled.
func (c *City) checkBirths(day int, feed *[]feedItem) {
	alive := 0
	haveRole := make(map[agent.Role]bool)
	for _, a := range c.roster {
		if a.Alive() {
			alive++
			haveRole[a.Role] = true
		}
	}
	for alive < c.cfg.World.PopulationFloor {
		role := agent.RoleNewborn
		for _, critical := range criticalRoles {
			if !haveRole[critical] {
				role = critical
				haveRole[critical] = true
				break
			}
		}
		name := c.nextCitizenName()
		newcomer := &agent.Agent{
			ID:     uuid.NewString(),
			Name:   name,
			Role:   role,
			Status: agent.StatusAlive,
		}
		if err := c.Ledger.Register(day, name); err != nil {
			c.log.Error("registering newcomer %s: %v", name, err)
			return
		}
		newcomer.Tokens = c.cfg.Economy.StartingTokens
		c.roster = append(c.roster, newcomer)
		c.Positions.PlaceStarting([]*agent.Agent{newcomer})
		c.Events.Append(day, events.KindBirth, name, "", "",
			fmt.Sprintf("%s arrived in the city as a %s", name, role), events.VisibilityPublic)
		c.log.Event("birth", name, string(role))
		*feed = append(*feed, feedItem{"birth", map[string]any{"agent": name, "role": string(role)}})
		alive++
	}
}

func (c *City) nextCitizenName() string {
	n := c.nextCitizen
	c.nextCitizen++
	prefix := greekPrefixes[n%len(greekPrefixes)]
	return fmt.Sprintf("%s-%d", prefix, n/len(greekPrefixes)+1)
}

// graduateNewborns grows comprehension daily and lets the reasoning model
// pick a trade for anyone who reaches full marks.
func (c *City) graduateNewborns(ctx context.Context, day int, feed *[]feedItem) {
	for _, a := range c.roster {
		if !a.Alive() || a.Role != agent.RoleNewborn {
			continue
		}
		gain := 1
		if t := c.findAgent(a.AssignedTeacher); t != nil && t.Alive() {
			gain = 2
			if c.Bonds.Score(a.Name, t.Name) >= 0.20 {
				gain = 3
			}
		}
		if c.Projects.HasStanding(projects.AssetSchool) {
			gain *= 2
		}
		a.ComprehensionScore += gain
		if a.ComprehensionScore < 100 {
			continue
		}
		a.ComprehensionScore = 100

		newRole := c.Facade.ChooseGraduationRole(ctx, a.Name, a.ComprehensionScore,
			c.Memory.Recall(a.Name, "", 5))
		a.Role = newRole
		a.AssignedTeacher = ""
		c.graduations = append(c.graduations, Graduation{Day: day, Agent: a.Name, NewRole: newRole})
		c.Events.Append(day, events.KindGraduation, a.Name, "", "",
			fmt.Sprintf("%s came of age and took up life as a %s", a.Name, newRole),
			events.VisibilityPublic)
		c.applyMood(a.Name, social.MoodStrongEarnings)
		c.log.Event("graduation", a.Name, string(newRole))
		*feed = append(*feed, feedItem{"graduation", map[string]any{"agent": a.Name, "role": string(newRole)}})
	}
}
