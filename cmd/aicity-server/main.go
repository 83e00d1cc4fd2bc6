// Package main is the entry point for the AIcity server. It only
// handles dependency injection and process lifecycle; no simulation
// logic belongs here.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aicity-project/aicity/internal/config"
)

var (
	cfgPath    string
	dbPath     string
	listenAddr string
	seed       int64
)

var rootCmd = &cobra.Command{
	Use:   "aicity-server",
	Short: "AIcity — an autonomous token-driven agent society",
	Long: `AIcity runs a closed city of reasoning agents on a discrete day clock:
a token ledger with taxation and welfare, a five-stage event visibility
machine, police cases and trials, gangs, shared construction projects,
and a narrator that writes the city's newspaper.

serve    runs the city with the WebSocket observer feed and snapshot API
simulate runs headless days and prints a summary
replay   prints the public record stored in the city database`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "override the configured database path")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "addr", "", "override the configured listen address")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", -1, "override the configured world seed")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
}

// loadConfig resolves the effective configuration from file and flags.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
		}
		cfg = loaded
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if seed >= 0 {
		cfg.Seed = seed
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
