package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"podgraph/internal/db"
	"podgraph/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	store, err := db.Connect(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}
	defer store.Close()

	// Seed the crawl schedule from the environment so a fresh deployment
	// has something to work on.
	if ids := splitIDs(os.Getenv("PODCAST_IDS")); len(ids) > 0 {
		if err := store.RegisterPodcasts(context.Background(), ids); err != nil {
			log.Fatalf("could not register podcasts: %v", err)
		}
		log.Printf("Registered %d podcast(s) for tracking", len(ids))
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddr},
		&asynq.SchedulerOpts{},
	)

	register := func(cronspec string, task *asynq.Task, err error) {
		if err != nil {
			log.Fatalf("could not create task: %v", err)
		}
		if _, err := scheduler.Register(cronspec, task); err != nil {
			log.Fatalf("could not register task %s: %v", task.Type(), err)
		}
	}

	crawlDue, err := tasks.NewCrawlDueTask()
	register("@every 1h", crawlDue, err)
	reclaim, err := tasks.NewReclaimLeasesTask()
	register("@every 10m", reclaim, err)
	scrapeCredits, err := tasks.NewScrapeCreditsTask()
	register("@every 2h", scrapeCredits, err)
	matchPodcasts, err := tasks.NewMatchPodcastsTask()
	register("@every 3h", matchPodcasts, err)
	matchEpisodes, err := tasks.NewMatchEpisodesTask()
	register("@every 3h", matchEpisodes, err)
	syncCredits, err := tasks.NewSyncCreditsTask()
	register("@every 4h", syncCredits, err)
	enrichHosts, err := tasks.NewEnrichHostsTask()
	register("@every 6h", enrichHosts, err)
	discoverGuests, err := tasks.NewDiscoverGuestsTask()
	register("@every 12h", discoverGuests, err)

	log.Printf("Scheduler starting (commit: %s)", CommitSHA)
	if err := scheduler.Run(); err != nil {
		log.Fatalf("could not run scheduler: %v", err)
	}
}

func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}
