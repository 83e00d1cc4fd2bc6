package world

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/aicity-project/aicity/internal/platform/logger"
	"github.com/aicity-project/aicity/internal/projects"
)

// Tile layers, drawn bottom to top. Grass is the implicit default layer
// and never stored.
const (
	LayerGround   = 0
	LayerRoad     = 1
	LayerNature   = 2
	LayerBuilding = 3
)

// Tile is one non-grass cell of the map.
type Tile struct {
	Col      int    `json:"col" db:"col"`
	Row      int    `json:"row" db:"row"`
	Type     string `json:"tile_type" db:"tile_type"`
	Layer    int    `json:"layer" db:"layer"`
	BuiltBy  string `json:"built_by,omitempty" db:"built_by"`
	BuiltDay int    `json:"built_day" db:"built_day"`
	AssetID  string `json:"asset_id,omitempty" db:"asset_id"`
}

// assetSite fixes where each asset type rises and how much ground it takes.
type assetSite struct {
	tileType      string
	layer         int
	col, row      int
	width, height int
}

var assetSites = map[projects.AssetType]assetSite{
	projects.AssetMarket:     {tileType: "market", layer: LayerBuilding, col: 16, row: 36, width: 2, height: 2},
	projects.AssetWatchtower: {tileType: "watchtower", layer: LayerBuilding, col: 58, row: 32, width: 2, height: 2},
	projects.AssetHospital:   {tileType: "hospital", layer: LayerBuilding, col: 12, row: 48, width: 2, height: 3},
	projects.AssetSchool:     {tileType: "school", layer: LayerBuilding, col: 68, row: 48, width: 2, height: 3},
	projects.AssetRoad:       {tileType: "road", layer: LayerRoad, col: 28, row: 30, width: 24, height: 1},
	projects.AssetArchive:    {tileType: "archive", layer: LayerBuilding, col: 12, row: 60, width: 2, height: 2},
}

type tileKey struct {
	col, row, layer int
}

// Tiles is the single source of truth for non-grass map cells. Asset
// completion places tiles, sabotage removes them.
type Tiles struct {
	mu      sync.Mutex
	cells   map[tileKey]Tile
	byAsset map[string][]tileKey
	log     *logger.Logger
}

// NewTiles returns an empty map layer.
func NewTiles(log *logger.Logger) *Tiles {
	return &Tiles{cells: make(map[tileKey]Tile), byAsset: make(map[string][]tileKey), log: log}
}

// Generate seeds the natural world: a meandering river down the map and
// scattered trees. Idempotent, skips when any tiles already exist, so a
// resumed city keeps its geography. Returns the number of tiles placed.
func (t *Tiles) Generate(seed int64, day int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.cells) > 0 {
		return 0
	}
	rng := rand.New(rand.NewSource(seed))

	water := make(map[[2]int]bool)
	riverCenter := 4
	for row := 0; row < GridHeight; row++ {
		// sin gives the river a smooth meander without a noise library.
		wobble := int(math.Sin(float64(row)*0.31) * 2)
		for dc := 0; dc < 2; dc++ {
			col := riverCenter + wobble + dc
			if col < 0 || col >= GridWidth {
				continue
			}
			t.cells[tileKey{col, row, LayerGround}] = Tile{
				Col: col, Row: row, Type: "water", Layer: LayerGround, BuiltDay: day,
			}
			water[[2]int{col, row}] = true
		}
	}

	treeTypes := []string{"tree_pine", "tree_pine", "tree_oak", "tree_oak", "bush", "rock"}
	for row := 0; row < GridHeight; row++ {
		for col := 0; col < GridWidth; col++ {
			if nearWater(water, col, row) {
				continue
			}
			if rng.Float64() < 0.12 {
				kind := treeTypes[rng.Intn(len(treeTypes))]
				t.cells[tileKey{col, row, LayerNature}] = Tile{
					Col: col, Row: row, Type: kind, Layer: LayerNature, BuiltDay: day,
				}
			}
		}
	}
	n := len(t.cells)
	t.log.Info("world generated, %d tiles placed", n)
	return n
}

func nearWater(water map[[2]int]bool, col, row int) bool {
	for dc := -2; dc <= 2; dc++ {
		if water[[2]int{col + dc, row}] {
			return true
		}
	}
	return false
}

// PlaceAsset stamps a completed asset's footprint onto the map, clearing
// any nature underneath. Returns the placed tiles for the tile_placed
// broadcast.
func (t *Tiles) PlaceAsset(day int, assetID string, kind projects.AssetType, builtBy string) []Tile {
	site, ok := assetSites[kind]
	if !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var placed []Tile
	for dr := 0; dr < site.height; dr++ {
		for dc := 0; dc < site.width; dc++ {
			col, row := site.col+dc, site.row+dr
			delete(t.cells, tileKey{col, row, LayerNature})
			key := tileKey{col, row, site.layer}
			tile := Tile{
				Col: col, Row: row, Type: site.tileType, Layer: site.layer,
				BuiltBy: builtBy, BuiltDay: day, AssetID: assetID,
			}
			t.cells[key] = tile
			t.byAsset[assetID] = append(t.byAsset[assetID], key)
			placed = append(placed, tile)
		}
	}
	t.log.Event("tile_placed", builtBy, string(kind))
	return placed
}

// RemoveAsset clears a destroyed asset's footprint back to grass. Returns
// the removed tiles for the tile_removed broadcast.
func (t *Tiles) RemoveAsset(assetID string) []Tile {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := t.byAsset[assetID]
	if len(keys) == 0 {
		return nil
	}
	var removed []Tile
	for _, k := range keys {
		if tile, ok := t.cells[k]; ok {
			removed = append(removed, tile)
			delete(t.cells, k)
		}
	}
	delete(t.byAsset, assetID)
	return removed
}

// Snapshot returns every non-grass tile ordered by layer then diagonal,
// the order the frontend paints in.
func (t *Tiles) Snapshot() []Tile {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Tile, 0, len(t.cells))
	for _, tile := range t.cells {
		out = append(out, tile)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Layer != out[j].Layer {
			return out[i].Layer < out[j].Layer
		}
		return out[i].Col+out[i].Row < out[j].Col+out[j].Row
	})
	return out
}

// Restore replaces the map from a checkpoint.
func (t *Tiles) Restore(tiles []Tile) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cells = make(map[tileKey]Tile, len(tiles))
	t.byAsset = make(map[string][]tileKey)
	for _, tile := range tiles {
		key := tileKey{tile.Col, tile.Row, tile.Layer}
		t.cells[key] = tile
		if tile.AssetID != "" {
			t.byAsset[tile.AssetID] = append(t.byAsset[tile.AssetID], key)
		}
	}
}
