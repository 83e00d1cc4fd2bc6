package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aicity-project/aicity/internal/brain"
	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/engine"
	"github.com/aicity-project/aicity/internal/infra/ai"
	"github.com/aicity-project/aicity/internal/infra/storage"
	"github.com/aicity-project/aicity/internal/platform/logger"
)

var (
	simDays       int
	simPopulation int
	simPersist    bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run headless city days and print a summary",
	Long: `Plays the given number of days with no network surface. With --persist
the run checkpoints to the configured database, so a later serve can
pick up where the simulation stopped.`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simDays, "days", 30, "number of days to play")
	simulateCmd.Flags().IntVar(&simPopulation, "population", 12, "founding population")
	simulateCmd.Flags().BoolVar(&simPersist, "persist", false, "checkpoint each day to the database")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New()

	opts := engine.Options{MintKey: os.Getenv("AICITY_MINT_KEY")}
	if simPersist {
		store, err := storage.Open(cfg.DBPath, log)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Persister = store
	}

	budget := ai.NewBudgetGate(budgetDaily, budgetMonthly)
	provider := ai.ForName(cfg.Reasoning.Provider, cfg.Reasoning.Model, budget)
	facade := brain.NewFacade(provider, cfg.Reasoning, log)
	city := engine.New(cfg, facade, log, opts)
	if err := city.Populate(defaultFounders(simPopulation, cfg.Seed)); err != nil {
		return err
	}

	ctx := context.Background()
	for i := 0; i < simDays; i++ {
		if err := city.RunDay(ctx); err != nil {
			return fmt.Errorf("day %d: %w", city.Day()+1, err)
		}
	}

	printSummary(cmd, city)
	return nil
}

func printSummary(cmd *cobra.Command, city *engine.City) {
	snap := city.Snapshot()

	alive, imprisoned, dead := 0, 0, 0
	for _, a := range snap.Agents {
		switch a.Status {
		case agent.StatusAlive:
			alive++
		case agent.StatusImprisoned:
			imprisoned++
		case agent.StatusDead:
			dead++
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s after %d days\n", snap.City, snap.Day)
	fmt.Fprintf(out, "  citizens: %d alive, %d imprisoned, %d dead\n", alive, imprisoned, dead)
	fmt.Fprintf(out, "  vault: %s tokens (supply %s, burned %s)\n",
		humanize.Comma(snap.Ledger.Vault.VaultBalance),
		humanize.Comma(snap.Ledger.Vault.TotalSupply),
		humanize.Comma(snap.Ledger.Vault.Burned))
	fmt.Fprintf(out, "  ledger: %s transactions\n", humanize.Comma(int64(len(snap.Transactions))))
	fmt.Fprintf(out, "  record: %d events, %d cases, %d gangs, %d assets\n",
		len(snap.Events), len(snap.Cases), len(snap.Gangs), len(snap.Assets))

	if n := len(snap.Stories); n > 0 {
		last := snap.Stories[n-1]
		fmt.Fprintf(out, "  latest %s edition (day %d): %s\n", last.Edition, last.Day, last.Body)
	}
}
