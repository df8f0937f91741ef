package db

import (
	"context"
	"fmt"

	"podgraph/internal/models"
)

// SaveEpisode upserts an episode keyed on (podcast, title), returning the
// internal id. Empty incoming fields keep existing values.
func (s *Store) SaveEpisode(ctx context.Context, podcastID int, rec models.RawEpisode) (int, error) {
	var existingCatalogID *string
	err := s.db.GetContext(ctx, &existingCatalogID,
		"SELECT catalog_id FROM episodes WHERE podcast_id = $1 AND title = $2", podcastID, rec.Title)
	if err == nil && existingCatalogID != nil && rec.CatalogID != "" && *existingCatalogID != rec.CatalogID {
		return 0, fmt.Errorf("episode %q of podcast %d already has catalog id %s, incoming %s: %w",
			rec.Title, podcastID, *existingCatalogID, rec.CatalogID, ErrExternalIDConflict)
	}

	var episodeID int
	query := `
		INSERT INTO episodes (podcast_id, title, description, audio_url, duration_seconds, published_date, episode_number, season_number, catalog_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (podcast_id, title) DO UPDATE SET
			description      = COALESCE(EXCLUDED.description, episodes.description),
			audio_url        = COALESCE(EXCLUDED.audio_url, episodes.audio_url),
			duration_seconds = COALESCE(EXCLUDED.duration_seconds, episodes.duration_seconds),
			published_date   = COALESCE(EXCLUDED.published_date, episodes.published_date),
			episode_number   = COALESCE(EXCLUDED.episode_number, episodes.episode_number),
			season_number    = COALESCE(EXCLUDED.season_number, episodes.season_number),
			catalog_id       = COALESCE(episodes.catalog_id, EXCLUDED.catalog_id)
		RETURNING episode_id`
	err = s.db.GetContext(ctx, &episodeID, query,
		podcastID, rec.Title, nullif(rec.Description), nullif(rec.AudioURL),
		rec.DurationSeconds, rec.PublishedDate, rec.EpisodeNumber, rec.SeasonNumber,
		nullif(rec.CatalogID))
	if err != nil {
		return 0, fmt.Errorf("upsert episode %q for podcast %d: %w", rec.Title, podcastID, err)
	}
	return episodeID, nil
}

func (s *Store) GetEpisodeByTitle(ctx context.Context, podcastID int, title string) (models.Episode, error) {
	var e models.Episode
	err := s.db.GetContext(ctx, &e,
		"SELECT * FROM episodes WHERE podcast_id = $1 AND title = $2", podcastID, title)
	return e, err
}

// EpisodeRef is the slice of episode state the enrichment workflows need.
type EpisodeRef struct {
	EpisodeID        int     `db:"episode_id"`
	Title            string  `db:"title"`
	GraphID          *string `db:"graph_id"`
	CatalogID        *string `db:"catalog_id"`
	PodcastTitle     string  `db:"podcast_title"`
	PodcastCatalogID *string `db:"podcast_catalog_id"`
}

// EpisodesWithoutGraphID returns episodes that still need a graph id, but
// only where the owning podcast already has one to anchor the search.
func (s *Store) EpisodesWithoutGraphID(ctx context.Context, limit int) ([]EpisodeRef, error) {
	var refs []EpisodeRef
	err := s.db.SelectContext(ctx, &refs, `
		SELECT e.episode_id, e.title, e.graph_id, e.catalog_id,
		       p.title AS podcast_title, p.catalog_id AS podcast_catalog_id
		FROM episodes e
		JOIN podcasts p ON e.podcast_id = p.podcast_id
		WHERE e.graph_id IS NULL AND p.graph_id IS NOT NULL
		ORDER BY e.episode_id
		LIMIT $1`, limit)
	return refs, err
}

// EpisodesNeedingCredits returns episodes with a catalog id but no linked
// people yet, for the episode-page credit scrape.
func (s *Store) EpisodesNeedingCredits(ctx context.Context, limit int) ([]EpisodeRef, error) {
	var refs []EpisodeRef
	err := s.db.SelectContext(ctx, &refs, `
		SELECT e.episode_id, e.title, e.graph_id, e.catalog_id,
		       p.title AS podcast_title, p.catalog_id AS podcast_catalog_id
		FROM episodes e
		JOIN podcasts p ON e.podcast_id = p.podcast_id
		LEFT JOIN episode_hosts eh ON e.episode_id = eh.episode_id
		WHERE e.catalog_id IS NOT NULL
		  AND p.catalog_id IS NOT NULL
		  AND eh.episode_id IS NULL
		ORDER BY e.episode_id
		LIMIT $1`, limit)
	return refs, err
}

// EpisodesWithGraphIDWithoutCredits feeds the structured credit sync.
func (s *Store) EpisodesWithGraphIDWithoutCredits(ctx context.Context, limit int) ([]EpisodeRef, error) {
	var refs []EpisodeRef
	err := s.db.SelectContext(ctx, &refs, `
		SELECT e.episode_id, e.title, e.graph_id, e.catalog_id,
		       p.title AS podcast_title, p.catalog_id AS podcast_catalog_id
		FROM episodes e
		JOIN podcasts p ON e.podcast_id = p.podcast_id
		LEFT JOIN episode_hosts eh ON e.episode_id = eh.episode_id
		WHERE e.graph_id IS NOT NULL
		  AND eh.episode_id IS NULL
		ORDER BY e.episode_id
		LIMIT $1`, limit)
	return refs, err
}

// GuestScanEpisode carries the free text the guest-name extractor works
// over.
type GuestScanEpisode struct {
	EpisodeID   int     `db:"episode_id"`
	Title       string  `db:"title"`
	Description *string `db:"description"`
}

// EpisodesWithoutHosts returns episodes with no people linked at all, for
// guest discovery from episode text.
func (s *Store) EpisodesWithoutHosts(ctx context.Context, limit int) ([]GuestScanEpisode, error) {
	var eps []GuestScanEpisode
	err := s.db.SelectContext(ctx, &eps, `
		SELECT e.episode_id, e.title, e.description
		FROM episodes e
		LEFT JOIN episode_hosts eh ON e.episode_id = eh.episode_id
		WHERE eh.episode_id IS NULL
		ORDER BY e.episode_id
		LIMIT $1`, limit)
	return eps, err
}

// AttachEpisodeGraphID sets the graph id unless a different one is already
// stored.
func (s *Store) AttachEpisodeGraphID(ctx context.Context, episodeID int, graphID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE episodes SET graph_id = $2
		WHERE episode_id = $1 AND (graph_id IS NULL OR graph_id = $2)`,
		episodeID, graphID)
	if err != nil {
		return fmt.Errorf("attach graph id to episode %d: %w", episodeID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("episode %d: %w", episodeID, ErrExternalIDConflict)
	}
	return nil
}
