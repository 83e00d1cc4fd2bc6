package events

import (
	"fmt"
	"math/rand"
)

// witnessTemplates are the first-person memory fragments a bystander keeps
// after seeing something. %[1]s is the actor, %[2]s the target.
var witnessTemplates = map[Kind][]string{
	KindTheft: {
		"I saw %[1]s slip something out of %[2]s's pocket near the market",
		"I noticed %[1]s lurking around %[2]s's place, and now %[2]s looks upset",
		"I'm almost sure I watched %[1]s take something that wasn't theirs from %[2]s",
	},
	KindAssault: {
		"I saw %[1]s strike %[2]s — it was ugly",
		"There was a scuffle and %[1]s was the one throwing punches at %[2]s",
	},
	KindArson: {
		"I saw %[1]s hanging around the building just before the fire started",
		"Someone who looked a lot like %[1]s was carrying an oil can near there",
	},
	KindSabotage: {
		"I caught %[1]s tampering with the works when they thought nobody was looking",
		"I saw %[1]s near the machinery with tools they had no business carrying",
	},
	KindBribe: {
		"I watched %[1]s press a purse into %[2]s's hands behind the station",
		"%[1]s and %[2]s exchanged something quietly, and both looked around first",
	},
	KindBlackmail: {
		"I overheard %[1]s telling %[2]s to pay up or everyone would hear about it",
	},
}

// genericWitnessTemplate covers kinds without a specific set.
const genericWitnessTemplate = "I saw %[1]s do something suspicious involving %[2]s"

// WitnessFragment returns the memory text a witness stores for an event.
func WitnessFragment(rng *rand.Rand, kind Kind, actor, target string) string {
	if target == "" {
		target = "someone"
	}
	tmpl := genericWitnessTemplate
	if set, ok := witnessTemplates[kind]; ok && len(set) > 0 {
		tmpl = set[rng.Intn(len(set))]
	}
	return fmt.Sprintf(tmpl, actor, target)
}

// Witnessed is one bystander observation produced by a witness roll.
type Witnessed struct {
	Name     string
	Fragment string
}

// RollWitnesses decides which nearby bystanders saw a covert act.
// busy marks agents with their own reasons to avoid the police, who rarely
// come forward even when they saw everything. The actor and target never
// witness their own event.
func (l *Log) RollWitnesses(rng *rand.Rand, eventID string, nearby []string, busy map[string]bool, baseChance, busyChance float64) ([]Witnessed, error) {
	l.mu.RLock()
	e, ok := l.byID[eventID]
	if !ok {
		l.mu.RUnlock()
		return nil, ErrNotFound
	}
	kind, actor, target := e.Kind, e.Actor, e.Target
	l.mu.RUnlock()

	var saw []Witnessed
	var names []string
	for _, name := range nearby {
		if name == actor || name == target {
			continue
		}
		chance := baseChance
		if busy[name] {
			chance = busyChance
		}
		if rng.Float64() < chance {
			names = append(names, name)
			saw = append(saw, Witnessed{Name: name, Fragment: WitnessFragment(rng, kind, actor, target)})
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	if err := l.PromoteWitnessed(eventID, names); err != nil {
		return nil, err
	}
	return saw, nil
}
