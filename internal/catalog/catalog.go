// Package catalog is the source adapter for the structured catalog lookup
// API. It returns canonical records; callers never see the wire shape.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"podgraph/internal/models"
)

const (
	DefaultBaseURL = "https://itunes.apple.com"
	// The lookup endpoint caps recent episodes per request.
	episodeLimit = 50

	sourceConfidence = 0.9
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type podcastLookup struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		CollectionName    string   `json:"collectionName"`
		ArtistName        string   `json:"artistName"`
		Description       string   `json:"description"`
		ArtworkURL600     string   `json:"artworkUrl600"`
		CollectionViewURL string   `json:"collectionViewUrl"`
		LanguageCode      string   `json:"languageCode"`
		FeedURL           string   `json:"feedUrl"`
		TrackID           int64    `json:"trackId"`
		PrimaryGenreName  string   `json:"primaryGenreName"`
		Genres            []string `json:"genres"`
		GenreIDs          []string `json:"genreIds"`
	} `json:"results"`
}

type episodeLookup struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		TrackName       string `json:"trackName"`
		Description     string `json:"description"`
		EpisodeURL      string `json:"episodeUrl"`
		TrackTimeMillis int64  `json:"trackTimeMillis"`
		ReleaseDate     string `json:"releaseDate"`
		TrackID         int64  `json:"trackId"`
	} `json:"results"`
}

// Lookup fetches podcast metadata and its most recent episodes for one
// catalog id.
func (c *Client) Lookup(ctx context.Context, catalogID string) (models.RawPodcast, []models.RawEpisode, error) {
	var podcast podcastLookup
	if err := c.get(ctx, catalogID, "podcast", 0, &podcast); err != nil {
		return models.RawPodcast{}, nil, err
	}
	if podcast.ResultCount == 0 {
		return models.RawPodcast{}, nil, fmt.Errorf("no podcast found for catalog id %s", catalogID)
	}
	p := podcast.Results[0]

	rec := models.RawPodcast{
		Title:       p.CollectionName,
		Description: p.Description,
		ArtworkURL:  p.ArtworkURL600,
		WebsiteURL:  p.CollectionViewURL,
		Language:    p.LanguageCode,
		FeedURL:     p.FeedURL,
		CatalogID:   catalogID,
		ChannelName: p.ArtistName,
		Source:      models.SourceCatalog,
		Confidence:  sourceConfidence,
	}
	if rec.Language == "" {
		rec.Language = "en"
	}
	for i, name := range p.Genres {
		if name == "" || name == "Podcasts" {
			continue
		}
		g := models.RawGenre{Name: name, Primary: name == p.PrimaryGenreName}
		if i < len(p.GenreIDs) {
			g.CatalogID = p.GenreIDs[i]
		}
		rec.Genres = append(rec.Genres, g)
	}

	var episodes episodeLookup
	if err := c.get(ctx, catalogID, "podcastEpisode", episodeLimit, &episodes); err != nil {
		return models.RawPodcast{}, nil, err
	}
	var eps []models.RawEpisode
	// First result is the podcast itself, the rest are episodes.
	if episodes.ResultCount > 1 {
		for _, e := range episodes.Results[1:] {
			ep := models.RawEpisode{
				Title:           e.TrackName,
				Description:     e.Description,
				AudioURL:        e.EpisodeURL,
				DurationSeconds: models.DurationFromMillis(e.TrackTimeMillis),
				Source:          models.SourceCatalog,
				Confidence:      sourceConfidence,
			}
			if e.TrackID != 0 {
				ep.CatalogID = fmt.Sprintf("%d", e.TrackID)
			}
			if e.ReleaseDate != "" {
				if t, err := time.Parse(time.RFC3339, e.ReleaseDate); err == nil {
					ep.PublishedDate = &t
				} else {
					log.Printf("catalog: could not parse release date %q for %q", e.ReleaseDate, e.TrackName)
				}
			}
			eps = append(eps, ep)
		}
	}
	return rec, eps, nil
}

func (c *Client) get(ctx context.Context, catalogID, entity string, limit int, out any) error {
	params := url.Values{}
	params.Set("id", catalogID)
	params.Set("entity", entity)
	params.Set("country", "US")
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/lookup?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build lookup request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog lookup for %s: %w", catalogID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog lookup for %s: status %d", catalogID, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response for %s: %w", catalogID, err)
	}
	return nil
}
