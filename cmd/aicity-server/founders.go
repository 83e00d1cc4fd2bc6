package main

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/aicity-project/aicity/internal/domain/agent"
)

var firstNames = []string{
	"Marcus", "Elena", "Kai", "Nadia", "Theo", "Asha", "Luca", "Zara",
	"Omar", "Iris", "Felix", "Mira", "Dario", "Sable", "Renn", "Lyra",
}

var lastNames = []string{
	"Cross", "Vale", "Stone", "Wren", "Drake", "Holt", "Lane", "Marsh",
	"Crane", "Fox", "Reed", "Bloom", "Ward", "Shaw", "Hart", "Quinn",
}

// roleWeights shapes the founding population: mostly productive trades,
// a thin criminal margin so the justice system has work to do.
var roleWeights = []struct {
	role   agent.Role
	weight int
}{
	{agent.RoleBuilder, 200},
	{agent.RoleExplorer, 150},
	{agent.RoleMerchant, 150},
	{agent.RolePolice, 100},
	{agent.RoleTeacher, 100},
	{agent.RoleHealer, 100},
	{agent.RoleMessenger, 100},
	{agent.RoleLawyer, 50},
	{agent.RoleThief, 30},
}

// defaultFounders deals out n founding citizens. The same seed always
// produces the same roster.
func defaultFounders(n int, seedValue int64) []*agent.Agent {
	rng := rand.New(rand.NewSource(seedValue))

	var deck []agent.Role
	for _, rw := range roleWeights {
		for i := 0; i < rw.weight; i++ {
			deck = append(deck, rw.role)
		}
	}

	used := make(map[string]bool, n)
	founders := make([]*agent.Agent, 0, n)
	for i := 0; i < n; i++ {
		name := ""
		for attempt := 0; attempt < 200; attempt++ {
			name = firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]
			if !used[name] {
				break
			}
		}
		if used[name] {
			name = fmt.Sprintf("%s %d", name, i)
		}
		used[name] = true

		founders = append(founders, &agent.Agent{
			ID:     uuid.NewString(),
			Name:   name,
			Role:   deck[rng.Intn(len(deck))],
			Status: agent.StatusAlive,
		})
	}
	return founders
}
