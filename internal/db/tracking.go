package db

import (
	"context"
	"fmt"
	"time"

	"podgraph/internal/models"
)

// RegisterPodcasts adds catalog ids to the tracking table in pending
// state. Already-registered podcasts are left untouched.
func (s *Store) RegisterPodcasts(ctx context.Context, catalogIDs []string) error {
	for _, id := range catalogIDs {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO podcast_tracking (catalog_id, status)
			VALUES ($1, $2)
			ON CONFLICT (catalog_id) DO NOTHING`, id, StatusPending)
		if err != nil {
			return fmt.Errorf("register podcast %s: %w", id, err)
		}
	}
	return nil
}

// DueForCrawl selects podcasts eligible for a crawl attempt: not currently
// claimed, and never scraped or last scraped longer than minInterval ago.
// Records never scraped sort first.
func (s *Store) DueForCrawl(ctx context.Context, minInterval time.Duration, limit int) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT catalog_id
		FROM podcast_tracking
		WHERE status <> $1
		  AND (last_scraped_at IS NULL OR last_scraped_at < NOW() - ($2 * INTERVAL '1 second'))
		ORDER BY last_scraped_at ASC NULLS FIRST
		LIMIT $3`,
		StatusInProgress, int(minInterval.Seconds()), limit)
	if err != nil {
		return nil, fmt.Errorf("select due podcasts: %w", err)
	}
	return ids, nil
}

// ClaimForCrawl atomically moves a record into in_progress under a lease.
// Returns false when another worker holds a live claim, or the record does
// not exist. An expired lease is claimable again.
func (s *Store) ClaimForCrawl(ctx context.Context, catalogID string, leaseTTL time.Duration) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE podcast_tracking SET
			status           = $2,
			lease_expires_at = NOW() + ($3 * INTERVAL '1 second')
		WHERE catalog_id = $1
		  AND (status <> $2 OR lease_expires_at IS NULL OR lease_expires_at < NOW())`,
		catalogID, StatusInProgress, int(leaseTTL.Seconds()))
	if err != nil {
		return false, fmt.Errorf("claim podcast %s: %w", catalogID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkCrawlSuccess records a completed crawl: stamps last_scraped_at,
// bumps scrape_count, clears the error and releases the lease.
func (s *Store) MarkCrawlSuccess(ctx context.Context, catalogID string, totalEpisodes int, latestEpisode *time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE podcast_tracking SET
			status              = $2,
			last_scraped_at     = NOW(),
			lease_expires_at    = NULL,
			scrape_count        = scrape_count + 1,
			error_message       = NULL,
			total_episodes      = COALESCE($3, total_episodes),
			latest_episode_date = COALESCE($4, latest_episode_date)
		WHERE catalog_id = $1`,
		catalogID, StatusSuccess, totalEpisodes, latestEpisode)
	if err != nil {
		return fmt.Errorf("mark podcast %s success: %w", catalogID, err)
	}
	return nil
}

// MarkCrawlFailed records a failed crawl attempt. Episode data written
// before the failure stays; only the tracking row itself transitions.
func (s *Store) MarkCrawlFailed(ctx context.Context, catalogID string, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE podcast_tracking SET
			status           = $2,
			last_scraped_at  = NOW(),
			lease_expires_at = NULL,
			scrape_count     = scrape_count + 1,
			error_message    = $3
		WHERE catalog_id = $1`,
		catalogID, StatusFailed, errMsg)
	if err != nil {
		return fmt.Errorf("mark podcast %s failed: %w", catalogID, err)
	}
	return nil
}

// ReclaimExpiredLeases requeues records whose crawl died without reaching
// a terminal status. They are marked failed so the next selection pass
// picks them up again.
func (s *Store) ReclaimExpiredLeases(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE podcast_tracking SET
			status           = $2,
			lease_expires_at = NULL,
			error_message    = 'crawl lease expired without completing'
		WHERE status = $1 AND lease_expires_at IS NOT NULL AND lease_expires_at < NOW()`,
		StatusInProgress, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("reclaim expired leases: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) GetTrackingRecord(ctx context.Context, catalogID string) (models.TrackingRecord, error) {
	var rec models.TrackingRecord
	err := s.db.GetContext(ctx, &rec, "SELECT * FROM podcast_tracking WHERE catalog_id = $1", catalogID)
	return rec, err
}

// TrackingSummary is the per-status rollup logged after each crawl batch.
type TrackingSummary struct {
	Total         int `db:"total"`
	Pending       int `db:"pending"`
	InProgress    int `db:"in_progress"`
	Success       int `db:"success"`
	Failed        int `db:"failed"`
	TotalEpisodes int `db:"total_episodes"`
}

func (s *Store) GetTrackingSummary(ctx context.Context) (TrackingSummary, error) {
	var sum TrackingSummary
	err := s.db.GetContext(ctx, &sum, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'in_progress') AS in_progress,
			COUNT(*) FILTER (WHERE status = 'success') AS success,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed,
			COALESCE(SUM(total_episodes), 0) AS total_episodes
		FROM podcast_tracking`)
	return sum, err
}
