package graphapi

import (
	"context"
	"encoding/json"
	"fmt"
)

// Person is a directory entry from the graph's people search or a credit
// list.
type Person struct {
	GraphID    string
	Name       string
	Bio        string
	ImageURL   string
	WebsiteURL string
}

type PodcastResult struct {
	GraphID     string
	Title       string
	Description string
	WebURL      string
	ImageURL    string
	CatalogID   string
}

type EpisodeResult struct {
	GraphID      string
	Title        string
	Description  string
	PodcastTitle string
	Credits      []Credit
}

// Credit is one (role, person) tuple on an episode, with the optional
// time range the appearance covers.
type Credit struct {
	Role      string
	Person    Person
	StartTime string
	EndTime   string
}

const searchPeopleQuery = `
query SearchCreator($name: String!) {
    creators(searchTerm: $name) {
        data {
            pcid
            name
            bio
            imageUrl
            url
        }
    }
}`

// SearchPeople runs a name-based directory search and returns candidates
// in the order the directory ranked them.
func (c *Client) SearchPeople(ctx context.Context, name string) ([]Person, error) {
	data, err := c.execute(ctx, searchPeopleQuery, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Creators struct {
			Data []struct {
				PCID     string `json:"pcid"`
				Name     string `json:"name"`
				Bio      string `json:"bio"`
				ImageURL string `json:"imageUrl"`
				URL      string `json:"url"`
			} `json:"data"`
		} `json:"creators"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode people search: %w", err)
	}
	people := make([]Person, 0, len(payload.Creators.Data))
	for _, p := range payload.Creators.Data {
		people = append(people, Person{
			GraphID:    p.PCID,
			Name:       p.Name,
			Bio:        p.Bio,
			ImageURL:   p.ImageURL,
			WebsiteURL: p.URL,
		})
	}
	return people, nil
}

const searchPodcastsQuery = `
query SearchPodcast($searchTerm: String!) {
    podcasts(searchTerm: $searchTerm) {
        data {
            id
            title
            description
            webUrl
            imageUrl
            applePodcastsId
        }
    }
}`

func (c *Client) SearchPodcasts(ctx context.Context, term string) ([]PodcastResult, error) {
	data, err := c.execute(ctx, searchPodcastsQuery, map[string]any{"searchTerm": term})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Podcasts struct {
			Data []struct {
				ID          string `json:"id"`
				Title       string `json:"title"`
				Description string `json:"description"`
				WebURL      string `json:"webUrl"`
				ImageURL    string `json:"imageUrl"`
				CatalogID   string `json:"applePodcastsId"`
			} `json:"data"`
		} `json:"podcasts"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode podcast search: %w", err)
	}
	results := make([]PodcastResult, 0, len(payload.Podcasts.Data))
	for _, p := range payload.Podcasts.Data {
		results = append(results, PodcastResult{
			GraphID:     p.ID,
			Title:       p.Title,
			Description: p.Description,
			WebURL:      p.WebURL,
			ImageURL:    p.ImageURL,
			CatalogID:   p.CatalogID,
		})
	}
	return results, nil
}

const searchEpisodesQuery = `
query SearchEpisode($searchTerm: String!) {
    episodes(searchTerm: $searchTerm) {
        data {
            id
            title
            description
            podcast {
                title
            }
            credits {
                data {
                    creator {
                        name
                    }
                    role {
                        title
                    }
                }
            }
        }
    }
}`

func (c *Client) SearchEpisodes(ctx context.Context, term string) ([]EpisodeResult, error) {
	data, err := c.execute(ctx, searchEpisodesQuery, map[string]any{"searchTerm": term})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Episodes struct {
			Data []struct {
				ID          string `json:"id"`
				Title       string `json:"title"`
				Description string `json:"description"`
				Podcast     struct {
					Title string `json:"title"`
				} `json:"podcast"`
				Credits struct {
					Data []struct {
						Creator struct {
							Name string `json:"name"`
						} `json:"creator"`
						Role struct {
							Title string `json:"title"`
						} `json:"role"`
					} `json:"data"`
				} `json:"credits"`
			} `json:"data"`
		} `json:"episodes"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode episode search: %w", err)
	}
	results := make([]EpisodeResult, 0, len(payload.Episodes.Data))
	for _, e := range payload.Episodes.Data {
		result := EpisodeResult{
			GraphID:      e.ID,
			Title:        e.Title,
			Description:  e.Description,
			PodcastTitle: e.Podcast.Title,
		}
		for _, cr := range e.Credits.Data {
			result.Credits = append(result.Credits, Credit{
				Role:   cr.Role.Title,
				Person: Person{Name: cr.Creator.Name},
			})
		}
		results = append(results, result)
	}
	return results, nil
}

const episodeCreditsQuery = `
query GetEpisodeCredits($episodeId: ID!) {
    episode(identifier: { id: $episodeId }) {
        id
        title
        credits(first: 100) {
            edges {
                node {
                    role
                    creator {
                        id
                        name
                        bio
                        imageUrl
                        websiteUrl
                    }
                    startTime
                    endTime
                }
            }
        }
    }
}`

// EpisodeCredits fetches the structured credit list for one episode
// already known to the graph.
func (c *Client) EpisodeCredits(ctx context.Context, episodeGraphID string) ([]Credit, error) {
	data, err := c.execute(ctx, episodeCreditsQuery, map[string]any{"episodeId": episodeGraphID})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Episode struct {
			Credits struct {
				Edges []struct {
					Node struct {
						Role    string `json:"role"`
						Creator struct {
							ID         string `json:"id"`
							Name       string `json:"name"`
							Bio        string `json:"bio"`
							ImageURL   string `json:"imageUrl"`
							WebsiteURL string `json:"websiteUrl"`
						} `json:"creator"`
						StartTime string `json:"startTime"`
						EndTime   string `json:"endTime"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"credits"`
		} `json:"episode"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode episode credits: %w", err)
	}
	credits := make([]Credit, 0, len(payload.Episode.Credits.Edges))
	for _, edge := range payload.Episode.Credits.Edges {
		n := edge.Node
		credits = append(credits, Credit{
			Role: n.Role,
			Person: Person{
				GraphID:    n.Creator.ID,
				Name:       n.Creator.Name,
				Bio:        n.Creator.Bio,
				ImageURL:   n.Creator.ImageURL,
				WebsiteURL: n.Creator.WebsiteURL,
			},
			StartTime: n.StartTime,
			EndTime:   n.EndTime,
		})
	}
	return credits, nil
}
