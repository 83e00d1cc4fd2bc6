package engine

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/aicity-project/aicity/internal/brain"
	"github.com/aicity-project/aicity/internal/memory"
	"github.com/aicity-project/aicity/internal/projects"
)

// writeEditions publishes the morning paper from yesterday's public record,
// plus the weekly review every seventh day and the chronicle on day 30.
// The narrator sees public events and nothing else.
func (c *City) writeEditions(ctx context.Context, day int, feed *[]feedItem) {
	if day < 2 {
		return // nothing to report on the first morning
	}
	daily := c.writeStory(ctx, day, "daily", c.publicLines(day-1))
	*feed = append(*feed, feedItem{"newspaper", daily})

	if (day-1)%7 == 0 {
		weekly := c.writeStory(ctx, day, "weekly", c.editionBodies("daily", 7))
		*feed = append(*feed, feedItem{"weekly_report", weekly})
	}
	if day-1 == 30 {
		monthly := c.writeStory(ctx, day, "monthly", c.editionBodies("daily", 30))
		*feed = append(*feed, feedItem{"monthly_chronicle", monthly})
	}
}

func (c *City) writeStory(ctx context.Context, day int, edition string, lines []string) Story {
	body := c.Facade.WriteNarrative(ctx, brain.NarrativeContext{
		Day:          day - 1,
		CityName:     c.cfg.CityName,
		PublicEvents: lines,
		HasArchive:   c.Projects.HasStanding(projects.AssetArchive),
		Edition:      edition,
	})
	story := Story{ID: uuid.NewString(), Day: day - 1, Edition: edition, Body: body}
	c.stories = append(c.stories, story)
	if edition == "daily" {
		c.Memory.PublishCity(day-1, memory.KindNewspaper, body)
	}
	vault := c.Ledger.Vault()
	c.log.Info("%s edition published for day %d (%s tokens circulating)",
		edition, day-1, humanize.Comma(vault.Circulating))
	return story
}

// publicLines renders one day's public record for the narrator. Only
// events that reached public visibility ever appear here.
func (c *City) publicLines(day int) []string {
	var lines []string
	for _, ev := range c.Events.NarratorScope(day) {
		if ev.Day != day {
			continue
		}
		lines = append(lines, ev.Description)
	}
	return lines
}

// editionBodies collects the most recent n bodies of one edition as source
// material for a roundup.
func (c *City) editionBodies(edition string, n int) []string {
	var bodies []string
	for i := len(c.stories) - 1; i >= 0 && len(bodies) < n; i-- {
		if c.stories[i].Edition == edition {
			bodies = append(bodies, fmt.Sprintf("Day %d: %s", c.stories[i].Day, c.stories[i].Body))
		}
	}
	// Oldest first reads better in a roundup.
	for i, j := 0, len(bodies)-1; i < j; i, j = i+1, j-1 {
		bodies[i], bodies[j] = bodies[j], bodies[i]
	}
	return bodies
}

// latestDaily returns the newest daily edition for decision context.
func (c *City) latestDaily() string {
	for i := len(c.stories) - 1; i >= 0; i-- {
		if c.stories[i].Edition == "daily" {
			return c.stories[i].Body
		}
	}
	return ""
}
