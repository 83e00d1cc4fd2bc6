package events

import (
	"errors"
	"math/rand"
	"testing"
)

func TestVisibilityOnlyMovesForward(t *testing.T) {
	log := NewLog(nil)
	id := log.Append(3, KindTheft, "Marco", "Lena", "", "Marco stole 80 tokens from Lena", VisibilityPrivate)

	if err := log.PromoteReported(id, "Lena", 4); err != nil {
		t.Fatalf("PromoteReported: %v", err)
	}
	// Backward: reported -> witnessed must be rejected.
	if err := log.PromoteWitnessed(id, []string{"Rosa"}); !errors.Is(err, ErrVisibilityRegression) {
		t.Errorf("expected ErrVisibilityRegression, got %v", err)
	}
	// The rejected promotion must not corrupt the state.
	vis, _ := log.Visibility(id)
	if vis != VisibilityReported {
		t.Errorf("visibility changed on rejected promotion: %s", vis)
	}

	if err := log.Publish(id, "court verdict", 6); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	vis, _ = log.Visibility(id)
	if vis != VisibilityPublic {
		t.Errorf("expected public, got %s", vis)
	}
}

func TestPromotionToCurrentStateIsNoOp(t *testing.T) {
	log := NewLog(nil)
	id := log.Append(1, KindTheft, "Marco", "Lena", "", "theft", VisibilityPrivate)
	if err := log.PromoteWitnessed(id, []string{"Rosa"}); err != nil {
		t.Fatalf("first promotion: %v", err)
	}
	if err := log.PromoteWitnessed(id, []string{"Tomas"}); err != nil {
		t.Errorf("promotion to current state should be a no-op, got %v", err)
	}
	e, _ := log.Get(id)
	if len(e.Witnesses) != 2 {
		t.Errorf("expected both witnesses recorded, got %v", e.Witnesses)
	}
}

func TestNarratorScopeSeesOnlyPublic(t *testing.T) {
	log := NewLog(nil)
	log.Append(1, KindTheft, "Marco", "Lena", "", "hidden theft", VisibilityPrivate)
	rep := log.Append(1, KindTheft, "Marco", "Rosa", "", "reported theft", VisibilityPrivate)
	_ = log.PromoteReported(rep, "Rosa", 1)
	log.Append(1, KindBirth, "Nina", "", "", "a child was born", VisibilityPublic)

	got := log.NarratorScope(0)
	if len(got) != 1 {
		t.Fatalf("narrator should see exactly the public event, got %d", len(got))
	}
	if got[0].Kind != KindBirth {
		t.Errorf("narrator saw %s, want %s", got[0].Kind, KindBirth)
	}
}

func TestPoliceScopeExcludesPrivateAndRumor(t *testing.T) {
	log := NewLog(nil)
	log.Append(1, KindTheft, "Marco", "Lena", "", "private theft", VisibilityPrivate)
	rum := log.Append(1, KindTheft, "Marco", "Ana", "", "rumored theft", VisibilityPrivate)
	_ = log.PromoteRumor(rum, "Ana", "Rosa", 2, "Marco robbed me")
	wit := log.Append(2, KindAssault, "Dario", "Tomas", "", "witnessed assault", VisibilityPrivate)
	_ = log.PromoteWitnessed(wit, []string{"Rosa"})
	rep := log.Append(3, KindTheft, "Marco", "Rosa", "", "reported theft", VisibilityPrivate)
	_ = log.PromoteReported(rep, "Rosa", 3)

	got := log.PoliceScope(PoliceFilter{})
	if len(got) != 2 {
		t.Fatalf("police should see witnessed+reported only, got %d events", len(got))
	}
	for _, e := range got {
		if e.Visibility != VisibilityWitnessed && e.Visibility != VisibilityReported {
			t.Errorf("police saw %s event", e.Visibility)
		}
	}

	bySuspect := log.PoliceScope(PoliceFilter{Suspect: "Marco"})
	if len(bySuspect) != 1 || bySuspect[0].ID != rep {
		t.Errorf("suspect filter returned wrong events: %v", bySuspect)
	}
}

func TestAgentScopeIsParticipationPlusPublic(t *testing.T) {
	log := NewLog(nil)
	mine := log.Append(1, KindTheft, "Marco", "Lena", "", "Marco's theft", VisibilityPrivate)
	seen := log.Append(1, KindAssault, "Dario", "Tomas", "", "assault", VisibilityPrivate)
	_ = log.PromoteWitnessed(seen, []string{"Marco"})
	log.Append(1, KindBirth, "Nina", "", "", "birth", VisibilityPublic)
	hidden := log.Append(1, KindTheft, "Ana", "Rosa", "", "unrelated theft", VisibilityPrivate)

	got := log.AgentScope("Marco", 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 events in Marco's scope, got %d", len(got))
	}
	for _, e := range got {
		if e.ID == hidden {
			t.Error("agent scope leaked an unrelated private event")
		}
		if e.ID == mine && e.Actor != "Marco" {
			t.Error("own event missing actor")
		}
	}
}

func TestKnowerCountGrowsThroughRumors(t *testing.T) {
	log := NewLog(nil)
	id := log.Append(1, KindTheft, "Marco", "Lena", "", "theft", VisibilityPrivate)
	// Actor and target are knowers at creation.
	if got := log.KnowerCount(id); got != 2 {
		t.Fatalf("expected 2 initial knowers, got %d", got)
	}
	_ = log.PromoteRumor(id, "Lena", "Rosa", 2, "Marco took my tokens")
	_ = log.PromoteRumor(id, "Rosa", "Tomas", 3, "heard Marco is a thief")
	_ = log.PromoteRumor(id, "Rosa", "Tomas", 4, "repeat") // same knower, no growth
	if got := log.KnowerCount(id); got != 4 {
		t.Errorf("expected 4 knowers, got %d", got)
	}
}

func TestUnreportedCrimesAgainst(t *testing.T) {
	log := NewLog(nil)
	theft := log.Append(5, KindTheft, "Marco", "Lena", "", "theft", VisibilityPrivate)
	rep := log.Append(5, KindTheft, "Ana", "Lena", "", "theft 2", VisibilityPrivate)
	_ = log.PromoteReported(rep, "Lena", 5)
	log.Append(5, KindHeal, "Nina", "Lena", "", "healed", VisibilityPublic)

	got := log.UnreportedCrimesAgainst("Lena", 3)
	if len(got) != 1 || got[0].ID != theft {
		t.Errorf("expected only the unreported theft, got %v", got)
	}
}

func TestRollWitnessesSkipsParticipants(t *testing.T) {
	log := NewLog(nil)
	rng := rand.New(rand.NewSource(7))
	id := log.Append(1, KindTheft, "Marco", "Lena", "", "theft", VisibilityPrivate)

	// Chance 1.0: every eligible bystander sees it, participants never do.
	saw, err := log.RollWitnesses(rng, id, []string{"Marco", "Lena", "Rosa", "Tomas"}, nil, 1.0, 1.0)
	if err != nil {
		t.Fatalf("RollWitnesses: %v", err)
	}
	if len(saw) != 2 {
		t.Fatalf("expected 2 witnesses, got %d", len(saw))
	}
	for _, w := range saw {
		if w.Name == "Marco" || w.Name == "Lena" {
			t.Errorf("participant %s recorded as witness", w.Name)
		}
		if w.Fragment == "" {
			t.Errorf("witness %s has empty memory fragment", w.Name)
		}
	}
	vis, _ := log.Visibility(id)
	if vis != VisibilityWitnessed {
		t.Errorf("expected witnessed after roll, got %s", vis)
	}

	// Chance 0: nobody sees anything, visibility untouched.
	quiet := log.Append(1, KindTheft, "Ana", "Rosa", "", "quiet theft", VisibilityPrivate)
	saw, err = log.RollWitnesses(rng, quiet, []string{"Tomas"}, nil, 0, 0)
	if err != nil || saw != nil {
		t.Errorf("expected no witnesses, got %v err %v", saw, err)
	}
	vis, _ = log.Visibility(quiet)
	if vis != VisibilityPrivate {
		t.Errorf("unseen event should stay private, got %s", vis)
	}
}

func TestRollWitnessesBusyBystandersStayQuiet(t *testing.T) {
	log := NewLog(nil)
	rng := rand.New(rand.NewSource(11))
	id := log.Append(1, KindTheft, "Marco", "Lena", "", "theft", VisibilityPrivate)

	// Rosa keeps her head down; Tomas has nothing to hide.
	busy := map[string]bool{"Rosa": true}
	saw, err := log.RollWitnesses(rng, id, []string{"Rosa", "Tomas"}, busy, 1.0, 0)
	if err != nil {
		t.Fatalf("RollWitnesses: %v", err)
	}
	if len(saw) != 1 || saw[0].Name != "Tomas" {
		t.Fatalf("only the bystander with nothing to hide should come forward, got %v", saw)
	}
}

func TestRestorePreservesSequence(t *testing.T) {
	log := NewLog(nil)
	log.Restore(Event{ID: "e-9", Seq: 9, Day: 2, Kind: KindTheft, Actor: "Marco", Visibility: VisibilityReported}, []string{"Marco", "Lena"})
	id := log.Append(3, KindBirth, "Nina", "", "", "birth", VisibilityPublic)
	e, _ := log.Get(id)
	if e.Seq != 10 {
		t.Errorf("new event should continue the sequence, got seq %d", e.Seq)
	}
	if got := log.KnowerCount("e-9"); got != 2 {
		t.Errorf("restored knowers lost: %d", got)
	}
}
