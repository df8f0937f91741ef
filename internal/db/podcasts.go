package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"podgraph/internal/models"
)

// SavePodcast upserts a podcast together with its channel and genre links
// as one atomic unit, returning the internal id. Empty incoming fields
// never overwrite stored values; a catalog id, once set, is never replaced
// by a different one.
func (s *Store) SavePodcast(ctx context.Context, rec models.RawPodcast) (int, error) {
	var podcastID int
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := podcastByTitle(ctx, tx, rec.Title)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lookup podcast %q: %w", rec.Title, err)
		}
		if err == nil && existing.CatalogID != nil && rec.CatalogID != "" && *existing.CatalogID != rec.CatalogID {
			return fmt.Errorf("podcast %q already has catalog id %s, incoming %s: %w",
				rec.Title, *existing.CatalogID, rec.CatalogID, ErrExternalIDConflict)
		}

		var channelID *int
		if rec.ChannelName != "" {
			id, err := upsertChannel(ctx, tx, rec.ChannelName)
			if err != nil {
				return err
			}
			channelID = &id
		}

		query := `
			INSERT INTO podcasts (title, description, cover_art_url, website_url, language, rss_feed_url, catalog_id, channel_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (title) DO UPDATE SET
				description   = COALESCE(EXCLUDED.description, podcasts.description),
				cover_art_url = COALESCE(EXCLUDED.cover_art_url, podcasts.cover_art_url),
				website_url   = COALESCE(EXCLUDED.website_url, podcasts.website_url),
				language      = COALESCE(EXCLUDED.language, podcasts.language),
				rss_feed_url  = COALESCE(EXCLUDED.rss_feed_url, podcasts.rss_feed_url),
				catalog_id    = COALESCE(podcasts.catalog_id, EXCLUDED.catalog_id),
				channel_id    = COALESCE(EXCLUDED.channel_id, podcasts.channel_id)
			RETURNING podcast_id`
		if err := tx.GetContext(ctx, &podcastID, query,
			rec.Title, nullif(rec.Description), nullif(rec.ArtworkURL), nullif(rec.WebsiteURL),
			nullif(rec.Language), nullif(rec.FeedURL), nullif(rec.CatalogID), channelID); err != nil {
			return fmt.Errorf("upsert podcast %q: %w", rec.Title, err)
		}

		if len(rec.Genres) > 0 {
			if err := replacePodcastGenres(ctx, tx, podcastID, rec.Genres); err != nil {
				return err
			}
		}
		return nil
	})
	return podcastID, err
}

func podcastByTitle(ctx context.Context, q sqlx.QueryerContext, title string) (models.Podcast, error) {
	var p models.Podcast
	err := sqlx.GetContext(ctx, q, &p, "SELECT * FROM podcasts WHERE title = $1", title)
	return p, err
}

func (s *Store) GetPodcastByTitle(ctx context.Context, title string) (models.Podcast, error) {
	return podcastByTitle(ctx, s.db, title)
}

func (s *Store) GetPodcastByCatalogID(ctx context.Context, catalogID string) (models.Podcast, error) {
	var p models.Podcast
	err := s.db.GetContext(ctx, &p, "SELECT * FROM podcasts WHERE catalog_id = $1", catalogID)
	return p, err
}

func upsertChannel(ctx context.Context, tx *sqlx.Tx, name string) (int, error) {
	var id int
	query := `
		INSERT INTO channels (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING channel_id`
	if err := tx.GetContext(ctx, &id, query, name); err != nil {
		return 0, fmt.Errorf("upsert channel %q: %w", name, err)
	}
	return id, nil
}

func upsertGenre(ctx context.Context, tx *sqlx.Tx, g models.RawGenre) (int, error) {
	var id int
	query := `
		INSERT INTO genres (name, catalog_genre_id)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET
			catalog_genre_id = COALESCE(EXCLUDED.catalog_genre_id, genres.catalog_genre_id)
		RETURNING genre_id`
	if err := tx.GetContext(ctx, &id, query, g.Name, nullif(g.CatalogID)); err != nil {
		return 0, fmt.Errorf("upsert genre %q: %w", g.Name, err)
	}
	return id, nil
}

// replacePodcastGenres rewrites a podcast's genre links from the incoming
// record, keeping at most one genre marked primary.
func replacePodcastGenres(ctx context.Context, tx *sqlx.Tx, podcastID int, genres []models.RawGenre) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM podcast_genres WHERE podcast_id = $1", podcastID); err != nil {
		return fmt.Errorf("clear genres for podcast %d: %w", podcastID, err)
	}
	primarySeen := false
	for _, g := range genres {
		if g.Name == "" {
			continue
		}
		genreID, err := upsertGenre(ctx, tx, g)
		if err != nil {
			return err
		}
		isPrimary := g.Primary && !primarySeen
		if isPrimary {
			primarySeen = true
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO podcast_genres (podcast_id, genre_id, is_primary)
			VALUES ($1, $2, $3)
			ON CONFLICT (podcast_id, genre_id) DO UPDATE SET is_primary = EXCLUDED.is_primary`,
			podcastID, genreID, isPrimary)
		if err != nil {
			return fmt.Errorf("link genre %q to podcast %d: %w", g.Name, podcastID, err)
		}
	}
	return nil
}

// PodcastsWithoutGraphID returns a bounded batch of podcasts that still
// need a metadata-graph id attached.
func (s *Store) PodcastsWithoutGraphID(ctx context.Context, limit int) ([]models.Podcast, error) {
	var podcasts []models.Podcast
	err := s.db.SelectContext(ctx, &podcasts,
		"SELECT * FROM podcasts WHERE graph_id IS NULL AND catalog_id IS NOT NULL ORDER BY podcast_id LIMIT $1", limit)
	return podcasts, err
}

// AttachPodcastGraphID sets the graph id and refreshes profile fields
// from the graph, keeping stored values only where the incoming field is
// empty. A podcast that already carries a different graph id is left
// untouched and reported as a conflict.
func (s *Store) AttachPodcastGraphID(ctx context.Context, podcastID int, graphID, websiteURL, artworkURL string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE podcasts SET
			graph_id      = $2,
			website_url   = COALESCE($3, website_url),
			cover_art_url = COALESCE($4, cover_art_url)
		WHERE podcast_id = $1 AND (graph_id IS NULL OR graph_id = $2)`,
		podcastID, graphID, nullif(websiteURL), nullif(artworkURL))
	if err != nil {
		return fmt.Errorf("attach graph id to podcast %d: %w", podcastID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("podcast %d: %w", podcastID, ErrExternalIDConflict)
	}
	return nil
}
