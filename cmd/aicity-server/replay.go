package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aicity-project/aicity/internal/events"
	"github.com/aicity-project/aicity/internal/infra/storage"
	"github.com/aicity-project/aicity/internal/platform/logger"
)

var replayEdition string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Print the public record stored in the city database",
	Long: `Reads the last committed checkpoint and prints the city's public
history: every published newspaper edition and every event that reached
public visibility. Private, witnessed and rumored events stay out of
the replay, exactly as they stayed out of the live feed.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayEdition, "edition", "", "limit stories to one edition (daily|weekly|monthly)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New()

	store, err := storage.Open(cfg.DBPath, log)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := store.Load(context.Background())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s — day %d, %s tokens in the vault\n\n",
		snap.City, snap.Day, humanize.Comma(snap.Ledger.Vault.VaultBalance))

	fmt.Fprintln(out, "Public record:")
	for _, rec := range snap.Events {
		if rec.Event.Visibility != events.VisibilityPublic {
			continue
		}
		fmt.Fprintf(out, "  day %3d  %-12s %s\n", rec.Event.Day, rec.Event.Kind, rec.Event.Description)
	}

	fmt.Fprintln(out, "\nEditions:")
	for _, story := range snap.Stories {
		if replayEdition != "" && story.Edition != replayEdition {
			continue
		}
		fmt.Fprintf(out, "  [%s, day %d] %s\n", story.Edition, story.Day, story.Body)
	}
	return nil
}
