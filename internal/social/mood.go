package social

import "sync"

// Documented mood deltas, accumulated per day and clamped to [-1, 1].
const (
	MoodTheftVictim    = -0.20
	MoodAssetDestroyed = -0.30
	MoodColdCase       = -0.15
	MoodWelfare        = 0.10
	MoodHealed         = 0.15
	MoodJusticeServed  = 0.20
	MoodStrongEarnings = 0.05
	MoodDailyStress    = -0.10
)

// MoodRegister tracks every agent's mood. The numeric value never reaches
// the reasoning model; Describe converts it to text first.
type MoodRegister struct {
	mu    sync.Mutex
	moods map[string]float64
}

func NewMoodRegister() *MoodRegister {
	return &MoodRegister{moods: make(map[string]float64)}
}

// Apply adds a delta to an agent's mood, clamped to [-1, 1].
func (m *MoodRegister) Apply(agent string, delta float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.moods[agent] + delta
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	m.moods[agent] = v
	return v
}

// Of returns an agent's current mood value.
func (m *MoodRegister) Of(agent string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.moods[agent]
}

// Set overwrites an agent's mood. Used on restore and on registration.
func (m *MoodRegister) Set(agent string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	m.moods[agent] = v
}

// Forget drops a dead agent from the register.
func (m *MoodRegister) Forget(agent string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.moods, agent)
}

// Snapshot returns a copy of all moods.
func (m *MoodRegister) Snapshot() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.moods))
	for k, v := range m.moods {
		out[k] = v
	}
	return out
}

// Describe renders a mood value as the phrase the reasoning model sees.
func Describe(mood float64) string {
	switch {
	case mood >= 0.60:
		return "thriving, full of optimism"
	case mood >= 0.20:
		return "content and steady"
	case mood > -0.20:
		return "getting by, neither happy nor sad"
	case mood > -0.60:
		return "worn down and anxious"
	default:
		return "desperate, close to breaking"
	}
}
