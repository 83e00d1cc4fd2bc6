package world

import (
	"sort"
	"sync"

	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/economy"
	"github.com/aicity-project/aicity/internal/platform/logger"
)

// HomePurchaseCost is what a lot sells for. Agents only shop once their
// balance clears the configured token floor, so the purchase never starves
// anyone.
const HomePurchaseCost = 300

// Lot is one residential parcel. Owner is empty until claimed.
type Lot struct {
	ID    string `json:"id" db:"id"`
	X     int    `json:"x" db:"x"`
	Y     int    `json:"y" db:"y"`
	Owner string `json:"owner,omitempty" db:"owner"`
}

// Claim records one successful home purchase for broadcast.
type Claim struct {
	Agent string `json:"agent"`
	Role  string `json:"role"`
	LotID string `json:"lot_id"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

// defaultLots lays out the residential rows, six north and four south.
func defaultLots() []Lot {
	return []Lot{
		{ID: "home_01", X: 20, Y: 16}, {ID: "home_02", X: 26, Y: 16},
		{ID: "home_03", X: 32, Y: 16}, {ID: "home_04", X: 38, Y: 16},
		{ID: "home_05", X: 44, Y: 16}, {ID: "home_06", X: 50, Y: 16},
		{ID: "home_07", X: 30, Y: 47}, {ID: "home_08", X: 36, Y: 47},
		{ID: "home_09", X: 42, Y: 47}, {ID: "home_10", X: 48, Y: 47},
	}
}

// Homes manages lot ownership and the at-home flags behind the window-light
// display.
type Homes struct {
	mu         sync.Mutex
	lots       []Lot
	atHome     map[string]bool
	tokenFloor int64
	log        *logger.Logger
}

// NewHomes returns the full lot inventory, all unowned. tokenFloor is the
// balance an agent must hold before they consider buying.
func NewHomes(tokenFloor int64, log *logger.Logger) *Homes {
	return &Homes{lots: defaultLots(), atHome: make(map[string]bool), tokenFloor: tokenFloor, log: log}
}

// CheckPurchases runs once per day after agent turns. Any living agent above
// the token floor with no home buys the next free lot through the ledger.
// Returns the claims for the home_claimed broadcast.
func (h *Homes) CheckPurchases(day int, roster []*agent.Agent, ledger *economy.Ledger) []Claim {
	h.mu.Lock()
	defer h.mu.Unlock()
	var claims []Claim
	for _, a := range roster {
		if !a.Alive() || a.HomeLot != "" {
			continue
		}
		bal, err := ledger.Balance(a.Name)
		if err != nil || bal < h.tokenFloor {
			continue
		}
		lot := h.nextFreeLocked()
		if lot == nil {
			h.log.Info("no free home lots left for %s", a.Name)
			break
		}
		if err := ledger.Spend(day, a.Name, HomePurchaseCost, "home purchase"); err != nil {
			h.log.Warn("home purchase by %s failed: %v", a.Name, err)
			continue
		}
		lot.Owner = a.Name
		a.HomeLot = lot.ID
		h.log.Event("home_claimed", a.Name, lot.ID)
		claims = append(claims, Claim{
			Agent: a.Name, Role: string(a.Role), LotID: lot.ID, X: lot.X, Y: lot.Y,
		})
	}
	return claims
}

// LotOf returns the lot owned by the agent, or nil.
func (h *Homes) LotOf(name string) *Lot {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.lots {
		if h.lots[i].Owner == name {
			lot := h.lots[i]
			return &lot
		}
	}
	return nil
}

// Release frees a dead owner's lot for resale.
func (h *Homes) Release(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.lots {
		if h.lots[i].Owner == name {
			h.lots[i].Owner = ""
		}
	}
	delete(h.atHome, name)
}

// SetAtHome flips the at-home flag driving the window light.
func (h *Homes) SetAtHome(name string, home bool) {
	h.mu.Lock()
	h.atHome[name] = home
	h.mu.Unlock()
}

// HomeLight describes one occupied lot for the home_lights broadcast.
type HomeLight struct {
	LotID   string `json:"lot_id"`
	Owner   string `json:"owner"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	LightOn bool   `json:"light_on"`
}

// LightsSnapshot returns every occupied lot and whether its owner is in.
func (h *Homes) LightsSnapshot() []HomeLight {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []HomeLight
	for _, lot := range h.lots {
		if lot.Owner == "" {
			continue
		}
		out = append(out, HomeLight{
			LotID: lot.ID, Owner: lot.Owner, X: lot.X, Y: lot.Y,
			LightOn: h.atHome[lot.Owner],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LotID < out[j].LotID })
	return out
}

// Lots returns a copy of every lot for persistence.
func (h *Homes) Lots() []Lot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Lot, len(h.lots))
	copy(out, h.lots)
	return out
}

// Restore replaces ownership from a checkpoint. Unknown lot IDs are
// ignored, keeping the fixed city layout authoritative.
func (h *Homes) Restore(lots []Lot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	byID := make(map[string]string, len(lots))
	for _, l := range lots {
		byID[l.ID] = l.Owner
	}
	for i := range h.lots {
		if owner, ok := byID[h.lots[i].ID]; ok {
			h.lots[i].Owner = owner
		}
	}
}

func (h *Homes) nextFreeLocked() *Lot {
	for i := range h.lots {
		if h.lots[i].Owner == "" {
			return &h.lots[i]
		}
	}
	return nil
}
