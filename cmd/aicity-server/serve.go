package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aicity-project/aicity/internal/brain"
	"github.com/aicity-project/aicity/internal/engine"
	"github.com/aicity-project/aicity/internal/infra/ai"
	"github.com/aicity-project/aicity/internal/infra/storage"
	"github.com/aicity-project/aicity/internal/network"
	"github.com/aicity-project/aicity/internal/platform/logger"
)

var (
	servePopulation int
	dayInterval     time.Duration
	budgetDaily     float64
	budgetMonthly   float64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the city with the observer feed and snapshot API",
	Long: `Starts or resumes a city. Each day-interval tick plays one full day,
checkpoints it to the database and pushes the committed events to every
connected WebSocket observer. The database decides whether this is a
fresh founding or a resume: a committed checkpoint always wins.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePopulation, "population", 12, "founding population for a fresh city")
	serveCmd.Flags().DurationVar(&dayInterval, "day-interval", 30*time.Second, "wall-clock length of one city day")
	serveCmd.Flags().Float64Var(&budgetDaily, "budget-daily", 10.0, "reasoning spend limit per day (USD)")
	serveCmd.Flags().Float64Var(&budgetMonthly, "budget-monthly", 50.0, "reasoning spend limit per month (USD)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New()
	log.Info("Initializing %s (seed %d, db %s)", cfg.CityName, cfg.Seed, cfg.DBPath)

	store, err := storage.Open(cfg.DBPath, log)
	if err != nil {
		return err
	}
	defer store.Close()

	budget := ai.NewBudgetGate(budgetDaily, budgetMonthly)
	provider := ai.ForName(cfg.Reasoning.Provider, cfg.Reasoning.Model, budget)
	facade := brain.NewFacade(provider, cfg.Reasoning, log)

	hub := network.NewHub(log, nil)
	city := engine.New(cfg, facade, log, engine.Options{
		Broadcaster: hub,
		Persister:   store,
		MintKey:     os.Getenv("AICITY_MINT_KEY"),
	})
	hub.SetSource(city)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snap, err := store.Load(ctx)
	switch {
	case err == nil:
		city.RestoreFrom(snap)
		log.Info("Resumed %s at day %d with %d citizens", snap.City, snap.Day, len(snap.Agents))
	case errors.Is(err, storage.ErrNoCheckpoint):
		if err := city.Populate(defaultFounders(servePopulation, cfg.Seed)); err != nil {
			return err
		}
		log.Info("Founded %s with %d citizens", cfg.CityName, servePopulation)
	default:
		return err
	}

	go hub.Run(ctx)

	mux := http.NewServeMux()
	network.NewServer(city, hub, log).RegisterRoutes(mux)
	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		log.Info("Observer API listening on %s", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed: %v", err)
			stop()
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	ticker := time.NewTicker(dayInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Shutting down at day %d", city.Day())
			return nil
		case <-ticker.C:
			if err := city.RunDay(ctx); err != nil {
				// A day that cannot commit must not be replayed over:
				// halt and leave the database at the last good day.
				log.Error("Day %d failed: %v", city.Day()+1, err)
				return err
			}
		}
	}
}
