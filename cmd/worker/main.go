package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"podgraph/internal/catalog"
	"podgraph/internal/crawler"
	"podgraph/internal/db"
	"podgraph/internal/enrich"
	"podgraph/internal/feedparse"
	"podgraph/internal/graphapi"
	"podgraph/internal/pagescrape"
	"podgraph/internal/resolver"
	"podgraph/internal/worker"
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

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer client.Close()

	graphClient := graphapi.NewClient(
		os.Getenv("GRAPH_API_URL"),
		os.Getenv("GRAPH_CLIENT_ID"),
		os.Getenv("GRAPH_API_KEY"),
	)

	res := resolver.New(store, resolver.SequenceRatio{}, envFloat("MATCH_THRESHOLD", resolver.DefaultThreshold))
	crawl := crawler.New(store, catalog.NewClient(""), feedparse.New(), res)
	enricher := enrich.New(store, graphClient, res, nil)
	scraper := pagescrape.New("")

	cfg := worker.Config{
		MinInterval: time.Duration(envInt("CRAWL_MIN_INTERVAL_HOURS", 24)) * time.Hour,
		LeaseTTL:    time.Duration(envInt("LEASE_TTL_MINUTES", 30)) * time.Minute,
		CrawlBatch:  envInt("CRAWL_BATCH_SIZE", 25),
		EnrichBatch: envInt("ENRICH_BATCH_SIZE", 50),
	}
	taskHandler := worker.NewTaskHandler(store, crawl, enricher, scraper, client, cfg)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			// Sequential processing keeps the upstream sources gentle;
			// per-source pacing is handled by the clients themselves.
			Concurrency: envInt("WORKER_CONCURRENCY", 1),
			Queues: map[string]int{
				"high":    2,
				"default": 1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := 5 * time.Minute
				maxDelay := 24 * time.Hour
				for i := 0; i < n; i++ {
					delay *= 2
					if delay > maxDelay {
						delay = maxDelay
						break
					}
				}
				log.Printf("Task %s failed %d times, retrying in %v", task.Type(), n+1, delay)
				return delay
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeCrawlDue, taskHandler.HandleCrawlDueTask)
	mux.HandleFunc(tasks.TypeCrawlPodcast, taskHandler.HandleCrawlPodcastTask)
	mux.HandleFunc(tasks.TypeReclaimLeases, taskHandler.HandleReclaimLeasesTask)
	mux.HandleFunc(tasks.TypeScrapeCredits, taskHandler.HandleScrapeCreditsTask)
	mux.HandleFunc(tasks.TypeEnrichHosts, taskHandler.HandleEnrichHostsTask)
	mux.HandleFunc(tasks.TypeMatchPodcasts, taskHandler.HandleMatchPodcastsTask)
	mux.HandleFunc(tasks.TypeMatchEpisodes, taskHandler.HandleMatchEpisodesTask)
	mux.HandleFunc(tasks.TypeSyncCredits, taskHandler.HandleSyncCreditsTask)
	mux.HandleFunc(tasks.TypeDiscoverGuests, taskHandler.HandleDiscoverGuestsTask)

	log.Printf("Worker starting (commit: %s)", CommitSHA)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}
