package models

import "time"

// Podcast is a show tracked by the system. Title is unique; once a catalog
// id is known it becomes the stronger key.
type Podcast struct {
	ID          int       `db:"podcast_id"`
	Title       string    `db:"title"`
	Description *string   `db:"description"`
	CoverArtURL *string   `db:"cover_art_url"`
	WebsiteURL  *string   `db:"website_url"`
	Language    *string   `db:"language"`
	FeedURL     *string   `db:"rss_feed_url"`
	CatalogID   *string   `db:"catalog_id"`
	GraphID     *string   `db:"graph_id"`
	ChannelID   *int      `db:"channel_id"`
	CreatedAt   time.Time `db:"created_at"`
}

// Channel is the publisher or network behind one or more podcasts.
type Channel struct {
	ID   int    `db:"channel_id"`
	Name string `db:"name"`
}

type Genre struct {
	ID             int     `db:"genre_id"`
	Name           string  `db:"name"`
	CatalogGenreID *string `db:"catalog_genre_id"`
}
