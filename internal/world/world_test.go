package world

import (
	"math/rand"
	"testing"

	"github.com/aicity-project/aicity/internal/config"
	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/economy"
	"github.com/aicity-project/aicity/internal/platform/logger"
	"github.com/aicity-project/aicity/internal/projects"
)

func TestStartingPositionsLandInWorkZones(t *testing.T) {
	p := NewPositions(rand.New(rand.NewSource(1)), logger.New())
	roster := []*agent.Agent{
		{Name: "Marco", Role: agent.RoleBuilder, Status: agent.StatusAlive},
		{Name: "Vela", Role: agent.RolePolice, Status: agent.StatusAlive},
	}
	p.PlaceStarting(roster)
	if got := p.ZoneOf("Marco"); got != "LOC_BUILDER_YARD" {
		t.Errorf("builder starts in %q", got)
	}
	if got := p.ZoneOf("Vela"); got != "LOC_POLICE_STATION" {
		t.Errorf("police starts in %q", got)
	}
	if roster[0].PosX == 0 && roster[0].PosY == 0 {
		t.Error("position not written back to agent")
	}
}

func TestWithinRadius(t *testing.T) {
	p := NewPositions(rand.New(rand.NewSource(1)), logger.New())
	p.Set("A", 10, 10)
	p.Set("B", 14, 13) // distance 5
	p.Set("C", 40, 40)
	if !p.Within("A", "B", 8) {
		t.Error("A and B should co-locate at radius 8")
	}
	if p.Within("A", "C", 8) {
		t.Error("A and C are across the map")
	}
	if p.Within("A", "ghost", 8) {
		t.Error("unknown agents never co-locate")
	}
	near := p.Nearby("A", 8)
	if len(near) != 1 || near[0] != "B" {
		t.Errorf("Nearby = %v", near)
	}
}

func TestDestinationRouting(t *testing.T) {
	p := NewPositions(rand.New(rand.NewSource(1)), logger.New())
	thief := &agent.Agent{Name: "Marco", Role: agent.RoleThief, Status: agent.StatusAlive}

	x, y := p.Destination(thief, PhaseNight, nil)
	alley := zoneByID("LOC_DARK_ALLEY")
	if !alley.Contains(x, y) {
		t.Errorf("thief at night should be in the alley, got (%f, %f)", x, y)
	}

	home := &Lot{ID: "home_01", X: 20, Y: 16}
	x, y = p.Destination(thief, PhaseEvening, home)
	if x != 20 || y != 16 {
		t.Errorf("evening should head home, got (%f, %f)", x, y)
	}
}

func TestHomePurchases(t *testing.T) {
	log := logger.New()
	cfg := config.Default()
	ledger := economy.NewLedger(cfg.Economy, "k", log, nil)
	h := NewHomes(cfg.World.HomeTokenFloor, log)
	roster := []*agent.Agent{
		{Name: "Rich", Role: agent.RoleBuilder, Status: agent.StatusAlive},
		{Name: "Poor", Role: agent.RoleBuilder, Status: agent.StatusAlive},
	}
	if err := ledger.Register(1, "Rich"); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Register(1, "Poor"); err != nil {
		t.Fatal(err)
	}
	// Starting balance is 1000, above the 500 floor; drain Poor below it.
	if err := ledger.Spend(1, "Poor", 700, "bad luck"); err != nil {
		t.Fatal(err)
	}

	claims := h.CheckPurchases(2, roster, ledger)
	if len(claims) != 1 || claims[0].Agent != "Rich" || claims[0].LotID != "home_01" {
		t.Fatalf("claims = %+v", claims)
	}
	if roster[0].HomeLot != "home_01" {
		t.Errorf("agent not marked as homeowner: %q", roster[0].HomeLot)
	}
	bal, _ := ledger.Balance("Rich")
	if bal != 1000-HomePurchaseCost {
		t.Errorf("purchase not charged: %d", bal)
	}
	// Second pass buys nothing new.
	if again := h.CheckPurchases(3, roster, ledger); len(again) != 0 {
		t.Errorf("repeat purchase: %+v", again)
	}
}

func TestHomeReleaseOnDeath(t *testing.T) {
	h := NewHomes(500, logger.New())
	h.lots[0].Owner = "Marco"
	h.SetAtHome("Marco", true)
	h.Release("Marco")
	if h.LotOf("Marco") != nil {
		t.Error("lot still owned after release")
	}
	if lights := h.LightsSnapshot(); len(lights) != 0 {
		t.Errorf("lights = %+v", lights)
	}
}

func TestTileGenerationIsIdempotent(t *testing.T) {
	tiles := NewTiles(logger.New())
	n := tiles.Generate(42, 1)
	if n == 0 {
		t.Fatal("nothing generated")
	}
	if again := tiles.Generate(42, 2); again != 0 {
		t.Errorf("second generation placed %d tiles", again)
	}
	hasWater := false
	for _, tile := range tiles.Snapshot() {
		if tile.Type == "water" {
			hasWater = true
			break
		}
	}
	if !hasWater {
		t.Error("no river in the generated world")
	}
}

func TestAssetTilesPlacedAndRemoved(t *testing.T) {
	tiles := NewTiles(logger.New())
	placed := tiles.PlaceAsset(3, "asset-1", projects.AssetMarket, "Marco")
	if len(placed) != 4 {
		t.Fatalf("market footprint is 2x2, placed %d", len(placed))
	}
	for _, tile := range placed {
		if tile.Type != "market" || tile.Layer != LayerBuilding || tile.AssetID != "asset-1" {
			t.Errorf("bad tile: %+v", tile)
		}
	}
	removed := tiles.RemoveAsset("asset-1")
	if len(removed) != 4 {
		t.Fatalf("removed %d tiles", len(removed))
	}
	if len(tiles.Snapshot()) != 0 {
		t.Error("map not back to grass")
	}
	if tiles.RemoveAsset("asset-1") != nil {
		t.Error("double remove returned tiles")
	}
}

func TestTileRestoreRebuildsAssetIndex(t *testing.T) {
	tiles := NewTiles(logger.New())
	tiles.PlaceAsset(3, "asset-1", projects.AssetRoad, "Marco")
	snap := tiles.Snapshot()

	fresh := NewTiles(logger.New())
	fresh.Restore(snap)
	if got := fresh.RemoveAsset("asset-1"); len(got) != len(snap) {
		t.Errorf("restored index lost tiles: %d vs %d", len(got), len(snap))
	}
}
