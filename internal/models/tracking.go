package models

import "time"

// TrackingRecord is the per-podcast crawl state machine row. A podcast is
// registered pending and only the crawl tracker moves it between states.
type TrackingRecord struct {
	CatalogID         string     `db:"catalog_id" json:"catalog_id"`
	Status            string     `db:"status" json:"status"`
	LastScrapedAt     *time.Time `db:"last_scraped_at" json:"last_scraped_at"`
	LeaseExpiresAt    *time.Time `db:"lease_expires_at" json:"lease_expires_at"`
	ScrapeCount       int        `db:"scrape_count" json:"scrape_count"`
	ErrorMessage      *string    `db:"error_message" json:"error_message"`
	TotalEpisodes     *int       `db:"total_episodes" json:"total_episodes"`
	LatestEpisodeDate *time.Time `db:"latest_episode_date" json:"latest_episode_date"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}
