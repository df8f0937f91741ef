package models

import "time"

type Episode struct {
	ID              int        `db:"episode_id"`
	PodcastID       int        `db:"podcast_id"`
	Title           string     `db:"title"`
	Description     *string    `db:"description"`
	AudioURL        *string    `db:"audio_url"`
	DurationSeconds *int       `db:"duration_seconds"`
	PublishedDate   *time.Time `db:"published_date"`
	EpisodeNumber   *int       `db:"episode_number"`
	SeasonNumber    *int       `db:"season_number"`
	CatalogID       *string    `db:"catalog_id"`
	GraphID         *string    `db:"graph_id"`
}

// EpisodeHost links a person to an episode they appeared on. A repeat
// observation of the same pair updates is_guest/role instead of duplicating.
type EpisodeHost struct {
	EpisodeID int     `db:"episode_id"`
	HostID    int     `db:"host_id"`
	IsGuest   bool    `db:"is_guest"`
	Role      *string `db:"role"`
}
