package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/aicity-project/aicity/internal/brain"
	"github.com/aicity-project/aicity/internal/config"
	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/engine"
	"github.com/aicity-project/aicity/internal/infra/ai"
	"github.com/aicity-project/aicity/internal/justice"
	"github.com/aicity-project/aicity/internal/platform/logger"
	"github.com/aicity-project/aicity/internal/projects"
	"github.com/aicity-project/aicity/internal/world"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "city.db"), logger.New())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func playedSnapshot(t *testing.T, days int) *engine.Snapshot {
	t.Helper()
	cfg := config.Default()
	cfg.CityName = "Testopol"
	cfg.Seed = 23
	cfg.Reasoning.MaxRetries = 0
	cfg.World.HeartAttackChance = 0
	cfg.World.WindfallChance = 0
	cfg.World.PopulationFloor = 0
	log := logger.New()
	facade := brain.NewFacade(ai.NewScriptedProvider(""), cfg.Reasoning, log)
	city := engine.New(cfg, facade, log, engine.Options{})
	err := city.Populate([]*agent.Agent{
		{ID: "01", Name: "Mona", Role: agent.RoleMerchant, Status: agent.StatusAlive},
		{ID: "02", Name: "Nadia", Role: agent.RoleThief, Status: agent.StatusAlive},
		{ID: "03", Name: "Pavel", Role: agent.RolePolice, Status: agent.StatusAlive},
	})
	if err != nil {
		t.Fatalf("populate: %v", err)
	}
	for i := 0; i < days; i++ {
		if err := city.RunDay(context.Background()); err != nil {
			t.Fatalf("day %d: %v", city.Day(), err)
		}
	}
	return city.Snapshot()
}

func TestLoadEmptyDatabase(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Load(context.Background()); !errors.Is(err, ErrNoCheckpoint) {
		t.Fatalf("load fresh db: err = %v, want ErrNoCheckpoint", err)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	snap := playedSnapshot(t, 3)

	if err := store.Checkpoint(ctx, snap); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	opts := cmp.Options{
		cmpopts.IgnoreUnexported(justice.Case{}, projects.Project{}),
		cmpopts.EquateEmpty(),
		cmpopts.SortSlices(func(a, b agent.Agent) bool { return a.ID < b.ID }),
		cmpopts.SortSlices(func(a, b world.Tile) bool {
			if a.Layer != b.Layer {
				return a.Layer < b.Layer
			}
			if a.Row != b.Row {
				return a.Row < b.Row
			}
			return a.Col < b.Col
		}),
		cmpopts.SortSlices(func(a, b world.Lot) bool { return a.ID < b.ID }),
	}
	if diff := cmp.Diff(snap, loaded, opts); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckpointReplacesPreviousDay(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := playedSnapshot(t, 1)
	if err := store.Checkpoint(ctx, first); err != nil {
		t.Fatalf("checkpoint day 1: %v", err)
	}
	second := playedSnapshot(t, 2)
	if err := store.Checkpoint(ctx, second); err != nil {
		t.Fatalf("checkpoint day 2: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Day != 2 {
		t.Fatalf("loaded day = %d, want 2", loaded.Day)
	}
	if len(loaded.Transactions) != len(second.Transactions) {
		t.Fatalf("transactions = %d, want %d", len(loaded.Transactions), len(second.Transactions))
	}
}

func TestRestoredCityKeepsPlaying(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	snap := playedSnapshot(t, 2)
	if err := store.Checkpoint(ctx, snap); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg := config.Default()
	cfg.CityName = loaded.City
	cfg.Seed = loaded.Seed
	cfg.Reasoning.MaxRetries = 0
	log := logger.New()
	facade := brain.NewFacade(ai.NewScriptedProvider(""), cfg.Reasoning, log)
	city := engine.New(cfg, facade, log, engine.Options{})
	city.RestoreFrom(loaded)

	if city.Day() != 2 {
		t.Fatalf("restored day = %d, want 2", city.Day())
	}
	if err := city.RunDay(ctx); err != nil {
		t.Fatalf("resumed day: %v", err)
	}
	if city.Day() != 3 {
		t.Fatalf("day after resume = %d, want 3", city.Day())
	}
}

func TestVisibilityColumnRejectsUnknownLabel(t *testing.T) {
	store := openTestStore(t)
	_, err := store.db.Exec(`INSERT INTO event_log
		(id, seq, day, kind, actor, visibility, payload, knowers)
		VALUES ('x', 1, 1, 'theft', 'Nadia', 'secret', '{}', '[]')`)
	if err == nil {
		t.Fatal("insert with unknown visibility label succeeded")
	}
}
