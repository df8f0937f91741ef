// Package crawler runs the per-podcast crawl pipeline: catalog lookup,
// feed parse, and reconciliation of the merged episode records.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"podgraph/internal/catalog"
	"podgraph/internal/db"
	"podgraph/internal/feedparse"
	"podgraph/internal/models"
	"podgraph/internal/resolver"
)

type Crawler struct {
	store    *db.Store
	catalog  *catalog.Client
	feeds    *feedparse.Parser
	resolver *resolver.Resolver
}

func New(store *db.Store, cat *catalog.Client, feeds *feedparse.Parser, res *resolver.Resolver) *Crawler {
	return &Crawler{store: store, catalog: cat, feeds: feeds, resolver: res}
}

// Result summarizes one podcast crawl.
type Result struct {
	PodcastID     int
	Processed     int
	Failed        int
	LatestEpisode *time.Time
}

// CrawlPodcast fetches one podcast from the catalog, enriches its episodes
// from the RSS feed, and persists everything. Each episode is its own
// atomic unit: a failure partway through keeps the episodes already
// written.
func (c *Crawler) CrawlPodcast(ctx context.Context, catalogID string) (Result, error) {
	pod, catalogEps, err := c.catalog.Lookup(ctx, catalogID)
	if err != nil {
		return Result{}, fmt.Errorf("catalog lookup: %w", err)
	}
	if pod.FeedURL == "" {
		return Result{}, errors.New("podcast has no feed URL")
	}

	feedEps, err := c.feeds.Fetch(ctx, pod.FeedURL)
	if err != nil {
		// The catalog data alone is still worth persisting.
		log.Printf("crawler: feed fetch failed for %s, continuing with catalog data: %v", catalogID, err)
		feedEps = nil
	}
	byTitle := make(map[string]models.RawEpisode, len(feedEps))
	for _, ep := range feedEps {
		if _, ok := byTitle[ep.Title]; !ok {
			byTitle[ep.Title] = ep
		}
	}

	res, err := c.resolver.ResolvePodcast(ctx, pod)
	if err != nil {
		return Result{}, fmt.Errorf("resolve podcast: %w", err)
	}
	podcastID, err := c.store.SavePodcast(ctx, pod)
	if err != nil {
		return Result{}, fmt.Errorf("save podcast: %w", err)
	}
	log.Printf("crawler: %s podcast %q (id %d)", res.Action, pod.Title, podcastID)

	result := Result{PodcastID: podcastID}
	for _, ep := range catalogEps {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		merged := mergeEpisode(ep, byTitle)
		if _, err := c.resolver.ResolveEpisode(ctx, podcastID, merged); err != nil {
			log.Printf("crawler: skipping episode %q: %v", merged.Title, err)
			result.Failed++
			continue
		}
		if _, err := c.store.SaveEpisode(ctx, podcastID, merged); err != nil {
			log.Printf("crawler: failed to save episode %q: %v", merged.Title, err)
			result.Failed++
			continue
		}
		result.Processed++
		if merged.PublishedDate != nil &&
			(result.LatestEpisode == nil || merged.PublishedDate.After(*result.LatestEpisode)) {
			result.LatestEpisode = merged.PublishedDate
		}
	}
	return result, nil
}

// mergeEpisode fills catalog-record gaps from the matching feed entry.
// The feed is where durations as strings and episode/season numbers live.
func mergeEpisode(cat models.RawEpisode, feedByTitle map[string]models.RawEpisode) models.RawEpisode {
	feed, ok := feedByTitle[cat.Title]
	if !ok {
		return cat
	}
	if cat.Description == "" {
		cat.Description = feed.Description
	}
	if cat.AudioURL == "" {
		cat.AudioURL = feed.AudioURL
	}
	if cat.DurationSeconds == nil {
		cat.DurationSeconds = feed.DurationSeconds
	}
	if cat.PublishedDate == nil {
		cat.PublishedDate = feed.PublishedDate
	}
	if cat.EpisodeNumber == nil {
		cat.EpisodeNumber = feed.EpisodeNumber
	}
	if cat.SeasonNumber == nil {
		cat.SeasonNumber = feed.SeasonNumber
	}
	return cat
}
