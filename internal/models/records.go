package models

import "time"

// Source identifies which external system produced a canonical record.
type Source string

const (
	SourceCatalog Source = "catalog"
	SourceFeed    Source = "feed"
	SourcePage    Source = "page"
	SourceGraph   Source = "graph"
)

// RawPodcast is the canonical podcast record every source adapter
// normalizes into, independent of where it came from.
type RawPodcast struct {
	Title       string
	Description string
	ArtworkURL  string
	WebsiteURL  string
	Language    string
	FeedURL     string
	CatalogID   string
	GraphID     string
	ChannelName string
	Genres      []RawGenre
	Source      Source
	Confidence  float64
}

type RawGenre struct {
	Name      string
	CatalogID string
	Primary   bool
}

type RawEpisode struct {
	Title           string
	Description     string
	AudioURL        string
	DurationSeconds *int
	PublishedDate   *time.Time
	EpisodeNumber   *int
	SeasonNumber    *int
	CatalogID       string
	GraphID         string
	Source          Source
	Confidence      float64
}

// RawPerson is a single observed appearance of a person on an episode.
type RawPerson struct {
	Name       string
	Role       string
	Bio        string
	ImageURL   string
	WebsiteURL string
	GraphID    string
	IsGuest    bool
	Source     Source
	Confidence float64
}
