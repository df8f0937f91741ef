package db

import (
	"context"
	"fmt"
)

// HostConnection is one co-appearance row: an unordered pair of hosts who
// share at least one episode of a podcast. The smaller host id is always
// reported as source, so each pair appears once per podcast.
type HostConnection struct {
	SourceID         int     `db:"source_id" json:"source_id"`
	SourceName       string  `db:"source_name" json:"source_name"`
	SourceImage      *string `db:"source_image" json:"source_image"`
	SourceRole       *string `db:"source_role" json:"source_role"`
	TargetID         int     `db:"target_id" json:"target_id"`
	TargetName       string  `db:"target_name" json:"target_name"`
	TargetImage      *string `db:"target_image" json:"target_image"`
	TargetRole       *string `db:"target_role" json:"target_role"`
	Channel          *string `db:"channel" json:"channel"`
	Genre            string  `db:"genre" json:"genre"`
	PodcastTitle     string  `db:"podcast_title" json:"podcast_title"`
	EpisodesTogether int     `db:"episodes_together" json:"episodes_together"`
}

// HostConnections derives the co-appearance graph from persisted episode
// and host links. Scoped to podcasts with a primary genre; ordered by
// shared-episode count descending with stable tie-breaks.
func (s *Store) HostConnections(ctx context.Context) ([]HostConnection, error) {
	var rows []HostConnection
	err := s.db.SelectContext(ctx, &rows, `
		SELECT
			h1.host_id AS source_id,
			TRIM(h1.first_name || ' ' || h1.last_name) AS source_name,
			h1.profile_image_url AS source_image,
			MIN(eh1.role) AS source_role,
			h2.host_id AS target_id,
			TRIM(h2.first_name || ' ' || h2.last_name) AS target_name,
			h2.profile_image_url AS target_image,
			MIN(eh2.role) AS target_role,
			c.name AS channel,
			g.name AS genre,
			p.title AS podcast_title,
			COUNT(DISTINCT e.episode_id) AS episodes_together
		FROM hosts h1
		JOIN episode_hosts eh1 ON h1.host_id = eh1.host_id
		JOIN episodes e ON eh1.episode_id = e.episode_id
		JOIN podcasts p ON e.podcast_id = p.podcast_id
		JOIN podcast_genres pg ON p.podcast_id = pg.podcast_id AND pg.is_primary = TRUE
		JOIN genres g ON pg.genre_id = g.genre_id
		LEFT JOIN channels c ON p.channel_id = c.channel_id
		JOIN episode_hosts eh2 ON e.episode_id = eh2.episode_id
		JOIN hosts h2 ON eh2.host_id = h2.host_id
		WHERE h1.host_id < h2.host_id
		GROUP BY
			h1.host_id, h1.first_name, h1.last_name, h1.profile_image_url,
			h2.host_id, h2.first_name, h2.last_name, h2.profile_image_url,
			c.name, g.name, p.title
		ORDER BY episodes_together DESC, source_id, target_id, podcast_title`)
	if err != nil {
		return nil, fmt.Errorf("query host connections: %w", err)
	}
	return rows, nil
}
