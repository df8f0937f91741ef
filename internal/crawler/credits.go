package crawler

import (
	"context"
	"fmt"
	"log"

	"podgraph/internal/models"
	"podgraph/internal/pagescrape"
	"podgraph/internal/resolver"
)

// CreditsReport summarizes one credit-scrape batch. Individual item
// failures never abort the batch.
type CreditsReport struct {
	Processed   int                 `json:"processed"`
	Failed      int                 `json:"failed"`
	PeopleFound int                 `json:"people_found"`
	Details     []CreditsItemResult `json:"details"`
}

type CreditsItemResult struct {
	EpisodeID   int    `json:"episode_id"`
	Title       string `json:"title"`
	PeopleFound int    `json:"people_found"`
	Error       string `json:"error,omitempty"`
}

// ScrapeCredits finds episodes that still have no people linked, scrapes
// their episode pages for credit entries and persists each appearance.
func (c *Crawler) ScrapeCredits(ctx context.Context, scraper *pagescrape.Scraper, batchSize int) (CreditsReport, error) {
	episodes, err := c.store.EpisodesNeedingCredits(ctx, batchSize)
	if err != nil {
		return CreditsReport{}, fmt.Errorf("select episodes for credit scrape: %w", err)
	}

	var report CreditsReport
	for _, ep := range episodes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		item := CreditsItemResult{EpisodeID: ep.EpisodeID, Title: ep.Title}

		people, err := scraper.EpisodeCredits(ctx, *ep.PodcastCatalogID, *ep.CatalogID)
		if err != nil {
			log.Printf("crawler: credit scrape failed for episode %d: %v", ep.EpisodeID, err)
			item.Error = err.Error()
			report.Failed++
			report.Details = append(report.Details, item)
			continue
		}
		if len(people) == 0 {
			log.Printf("crawler: no credits found for episode %q", ep.Title)
			report.Failed++
			report.Details = append(report.Details, item)
			continue
		}

		for _, person := range people {
			if err := c.saveCredit(ctx, ep.EpisodeID, person); err != nil {
				log.Printf("crawler: failed to save credit %q on episode %d: %v", person.Name, ep.EpisodeID, err)
				continue
			}
			item.PeopleFound++
		}
		report.Processed++
		report.PeopleFound += item.PeopleFound
		report.Details = append(report.Details, item)
	}
	return report, nil
}

func (c *Crawler) saveCredit(ctx context.Context, episodeID int, person models.RawPerson) error {
	first, last, err := resolver.SplitName(person.Name)
	if err != nil {
		return err
	}
	_, err = c.store.SaveAppearance(ctx, episodeID, first, last, person)
	return err
}
