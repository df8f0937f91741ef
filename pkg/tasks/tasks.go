package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeCrawlDue       = "crawl:due"
	TypeCrawlPodcast   = "crawl:podcast"
	TypeReclaimLeases  = "crawl:reclaim"
	TypeScrapeCredits  = "scrape:credits"
	TypeEnrichHosts    = "enrich:hosts"
	TypeMatchPodcasts  = "enrich:podcasts"
	TypeMatchEpisodes  = "enrich:episodes"
	TypeSyncCredits    = "enrich:credits"
	TypeDiscoverGuests = "enrich:guests"
)

type CrawlPodcastTaskPayload struct {
	CatalogID string
}

func NewCrawlPodcastTask(catalogID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CrawlPodcastTaskPayload{CatalogID: catalogID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCrawlPodcast, payload), nil
}

func NewCrawlDueTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeCrawlDue, nil), nil
}

func NewReclaimLeasesTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeReclaimLeases, nil), nil
}

func NewScrapeCreditsTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeScrapeCredits, nil), nil
}

func NewEnrichHostsTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeEnrichHosts, nil), nil
}

func NewMatchPodcastsTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeMatchPodcasts, nil), nil
}

func NewMatchEpisodesTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeMatchEpisodes, nil), nil
}

func NewSyncCreditsTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeSyncCredits, nil), nil
}

func NewDiscoverGuestsTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeDiscoverGuests, nil), nil
}
