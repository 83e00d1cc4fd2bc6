package social

import (
	"math"
	"testing"
)

func TestBondUpdateAndClamp(t *testing.T) {
	g := NewBondGraph()
	for i := 0; i < 20; i++ {
		g.Update("Marco", "Lena", DeltaCooperative, "traded supplies")
	}
	if got := g.Score("Marco", "Lena"); got != 1 {
		t.Errorf("bond should clamp at 1, got %f", got)
	}
	// Key is unordered: both directions read the same bond.
	if got := g.Score("Lena", "Marco"); got != 1 {
		t.Errorf("reversed lookup got %f", got)
	}
	for i := 0; i < 30; i++ {
		g.Update("Marco", "Lena", DeltaAntagonistic, "stole from me")
	}
	if got := g.Score("Marco", "Lena"); got != -1 {
		t.Errorf("bond should clamp at -1, got %f", got)
	}
}

func TestBondDecayForgetsAtZero(t *testing.T) {
	g := NewBondGraph()
	g.Update("Marco", "Lena", 0.004, "nodded in passing")
	g.DecayDaily()
	if got := g.Score("Marco", "Lena"); got != 0 {
		t.Errorf("tiny bond should decay to nothing, got %f", got)
	}
	g.Update("Marco", "Rosa", 0.5, "helped on the site")
	g.DecayDaily()
	if got := g.Score("Marco", "Rosa"); math.Abs(got-0.495) > 1e-9 {
		t.Errorf("expected 0.495 after one decay, got %f", got)
	}
}

func TestTopBonds(t *testing.T) {
	g := NewBondGraph()
	g.Update("Marco", "Lena", 0.8, "")
	g.Update("Marco", "Rosa", 0.3, "")
	g.Update("Marco", "Tomas", 0.1, "")
	g.Update("Marco", "Dario", -0.9, "")
	g.Update("Marco", "Ana", -0.2, "")
	g.Update("Lena", "Rosa", 0.99, "") // not Marco's

	pos, neg := g.TopBonds("Marco", 2)
	if len(pos) != 2 || pos[0].Other != "Lena" || pos[1].Other != "Rosa" {
		t.Errorf("positive bonds wrong: %+v", pos)
	}
	if len(neg) != 2 || neg[0].Other != "Dario" {
		t.Errorf("negative bonds wrong: %+v", neg)
	}
}

func TestBondLabels(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.9, "close ally"},
		{0.3, "friendly"},
		{0.0, "acquaintance"},
		{-0.4, "tense"},
		{-0.8, "bitter enemy"},
	}
	for _, c := range cases {
		if got := Label(c.score); got != c.want {
			t.Errorf("Label(%f) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestMoodClampAndDescribe(t *testing.T) {
	m := NewMoodRegister()
	for i := 0; i < 10; i++ {
		m.Apply("Marco", MoodAssetDestroyed)
	}
	if got := m.Of("Marco"); got != -1 {
		t.Errorf("mood should clamp at -1, got %f", got)
	}
	if got := Describe(m.Of("Marco")); got != "desperate, close to breaking" {
		t.Errorf("Describe(-1) = %q", got)
	}
	m.Set("Lena", 0.3)
	if got := Describe(m.Of("Lena")); got != "content and steady" {
		t.Errorf("Describe(0.3) = %q", got)
	}
}

func TestInboxTTLAndBound(t *testing.T) {
	b := NewBus(3)
	b.Send(1, "Lena", "Marco", "old news", "")
	b.Send(3, "Rosa", "Marco", "recent", "")
	b.Send(4, "Tomas", "Marco", "today a", "")
	b.Send(4, "Ana", "Marco", "today b", "")
	b.Send(4, "Ana", "Lena", "not for Marco", "")

	// Day 4: the day-1 message is exactly TTL old and expired.
	got := b.Inbox("Marco", 4, 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 live messages, got %d", len(got))
	}
	if got[0].Body != "recent" {
		t.Errorf("inbox order wrong: %+v", got)
	}

	// Bounded to the most recent entries.
	got = b.Inbox("Marco", 4, 2)
	if len(got) != 2 || got[0].Body != "today a" {
		t.Errorf("bounded inbox wrong: %+v", got)
	}

	if dropped := b.Expire(4); dropped != 1 {
		t.Errorf("expected 1 expired message, dropped %d", dropped)
	}
}

func TestAnonymousMessagesKeepSenderHidden(t *testing.T) {
	b := NewBus(3)
	b.Send(2, AnonymousSender, "Marco", "pay 200 or everyone hears about the market job", "ev-1")
	got := b.Inbox("Marco", 2, 10)
	if len(got) != 1 || got[0].From != AnonymousSender {
		t.Errorf("anonymous note not delivered as ANON: %+v", got)
	}
	if got[0].EventRef != "ev-1" {
		t.Errorf("event reference lost: %+v", got[0])
	}
}
