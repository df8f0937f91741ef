package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"podgraph/internal/crawler"
	"podgraph/internal/db"
	"podgraph/internal/enrich"
	"podgraph/internal/pagescrape"
	"podgraph/pkg/tasks"
)

// Config bounds how much work each periodic task takes on.
type Config struct {
	MinInterval time.Duration
	LeaseTTL    time.Duration
	CrawlBatch  int
	EnrichBatch int
}

func DefaultConfig() Config {
	return Config{
		MinInterval: 24 * time.Hour,
		LeaseTTL:    30 * time.Minute,
		CrawlBatch:  25,
		EnrichBatch: 50,
	}
}

type TaskHandler struct {
	store       *db.Store
	crawler     *crawler.Crawler
	enricher    *enrich.Enricher
	scraper     *pagescrape.Scraper
	asynqClient tasks.TaskEnqueuer
	cfg         Config
}

func NewTaskHandler(store *db.Store, c *crawler.Crawler, e *enrich.Enricher, scraper *pagescrape.Scraper, client tasks.TaskEnqueuer, cfg Config) *TaskHandler {
	if cfg.CrawlBatch <= 0 {
		cfg.CrawlBatch = DefaultConfig().CrawlBatch
	}
	if cfg.EnrichBatch <= 0 {
		cfg.EnrichBatch = DefaultConfig().EnrichBatch
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultConfig().MinInterval
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = DefaultConfig().LeaseTTL
	}
	return &TaskHandler{
		store:       store,
		crawler:     c,
		enricher:    e,
		scraper:     scraper,
		asynqClient: client,
		cfg:         cfg,
	}
}

// HandleCrawlDueTask fans a bounded batch of due podcasts out into
// per-podcast crawl tasks.
func (h *TaskHandler) HandleCrawlDueTask(ctx context.Context, t *asynq.Task) error {
	log.Println("Selecting podcasts due for a crawl...")

	ids, err := h.store.DueForCrawl(ctx, h.cfg.MinInterval, h.cfg.CrawlBatch)
	if err != nil {
		return fmt.Errorf("failed to select due podcasts: %w", err)
	}

	for _, id := range ids {
		task, err := tasks.NewCrawlPodcastTask(id)
		if err != nil {
			log.Printf("failed to create crawl task for podcast %s: %v", id, err)
			continue
		}
		if _, err := h.asynqClient.Enqueue(task); err != nil {
			log.Printf("failed to enqueue crawl task for podcast %s: %v", id, err)
			continue
		}
	}

	summary, err := h.store.GetTrackingSummary(ctx)
	if err != nil {
		log.Printf("failed to load tracking summary: %v", err)
	} else {
		log.Printf("Enqueued %d crawl task(s). Tracking: %d total, %d pending, %d in progress, %d success, %d failed, %d episodes",
			len(ids), summary.Total, summary.Pending, summary.InProgress,
			summary.Success, summary.Failed, summary.TotalEpisodes)
	}
	return nil
}

// HandleCrawlPodcastTask crawls one podcast end to end under a lease.
// A podcast another worker already claimed is skipped without error.
func (h *TaskHandler) HandleCrawlPodcastTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.CrawlPodcastTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	claimed, err := h.store.ClaimForCrawl(ctx, p.CatalogID, h.cfg.LeaseTTL)
	if err != nil {
		return fmt.Errorf("failed to claim podcast %s: %w", p.CatalogID, err)
	}
	if !claimed {
		log.Printf("Podcast %s is already claimed, skipping", p.CatalogID)
		return nil
	}

	log.Printf("Crawling podcast %s", p.CatalogID)
	result, err := h.crawler.CrawlPodcast(ctx, p.CatalogID)
	if err != nil {
		if markErr := h.store.MarkCrawlFailed(ctx, p.CatalogID, err.Error()); markErr != nil {
			log.Printf("failed to mark podcast %s failed: %v", p.CatalogID, markErr)
		}
		return fmt.Errorf("crawl podcast %s: %w", p.CatalogID, err)
	}

	if err := h.store.MarkCrawlSuccess(ctx, p.CatalogID, result.Processed, result.LatestEpisode); err != nil {
		return fmt.Errorf("failed to mark podcast %s success: %w", p.CatalogID, err)
	}
	log.Printf("Crawled podcast %s: %d episode(s) saved, %d failed", p.CatalogID, result.Processed, result.Failed)
	return nil
}

// HandleReclaimLeasesTask requeues crawls whose worker died mid-flight.
func (h *TaskHandler) HandleReclaimLeasesTask(ctx context.Context, t *asynq.Task) error {
	n, err := h.store.ReclaimExpiredLeases(ctx)
	if err != nil {
		return fmt.Errorf("failed to reclaim expired leases: %w", err)
	}
	if n > 0 {
		log.Printf("Reclaimed %d expired crawl lease(s)", n)
	}
	return nil
}

// HandleScrapeCreditsTask scrapes episode web pages for credit listings.
func (h *TaskHandler) HandleScrapeCreditsTask(ctx context.Context, t *asynq.Task) error {
	report, err := h.crawler.ScrapeCredits(ctx, h.scraper, h.cfg.EnrichBatch)
	if err != nil {
		return fmt.Errorf("failed to scrape credits: %w", err)
	}
	logReport("scrape credits", report)
	return nil
}

func (h *TaskHandler) HandleEnrichHostsTask(ctx context.Context, t *asynq.Task) error {
	report, err := h.enricher.EnrichHosts(ctx, h.cfg.EnrichBatch)
	if err != nil {
		return fmt.Errorf("failed to enrich hosts: %w", err)
	}
	logReport("enrich hosts", report)
	return nil
}

func (h *TaskHandler) HandleMatchPodcastsTask(ctx context.Context, t *asynq.Task) error {
	report, err := h.enricher.MatchPodcasts(ctx, h.cfg.EnrichBatch)
	if err != nil {
		return fmt.Errorf("failed to match podcasts: %w", err)
	}
	logReport("match podcasts", report)
	return nil
}

func (h *TaskHandler) HandleMatchEpisodesTask(ctx context.Context, t *asynq.Task) error {
	report, err := h.enricher.MatchEpisodes(ctx, h.cfg.EnrichBatch)
	if err != nil {
		return fmt.Errorf("failed to match episodes: %w", err)
	}
	logReport("match episodes", report)
	return nil
}

func (h *TaskHandler) HandleSyncCreditsTask(ctx context.Context, t *asynq.Task) error {
	report, err := h.enricher.SyncCredits(ctx, h.cfg.EnrichBatch)
	if err != nil {
		return fmt.Errorf("failed to sync credits: %w", err)
	}
	logReport("sync credits", report)
	return nil
}

func (h *TaskHandler) HandleDiscoverGuestsTask(ctx context.Context, t *asynq.Task) error {
	report, err := h.enricher.DiscoverGuests(ctx, h.cfg.EnrichBatch)
	if err != nil {
		return fmt.Errorf("failed to discover guests: %w", err)
	}
	logReport("discover guests", report)
	return nil
}

func logReport(name string, report interface{}) {
	b, err := json.Marshal(report)
	if err != nil {
		log.Printf("%s finished (report not serializable: %v)", name, err)
		return
	}
	log.Printf("%s finished: %s", name, b)
}
