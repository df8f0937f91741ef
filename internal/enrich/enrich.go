// Package enrich holds the batch workflows that pull data from the
// metadata-graph API into the store: attaching graph ids to hosts,
// podcasts and episodes, and syncing structured episode credits.
package enrich

import (
	"context"
	"fmt"
	"log"
	"strings"

	"podgraph/internal/db"
	"podgraph/internal/graphapi"
	"podgraph/internal/models"
	"podgraph/internal/resolver"
)

type Enricher struct {
	store     *db.Store
	client    *graphapi.Client
	resolver  *resolver.Resolver
	extractor resolver.NameExtractor
}

func New(store *db.Store, client *graphapi.Client, res *resolver.Resolver, extractor resolver.NameExtractor) *Enricher {
	if extractor == nil {
		extractor = resolver.NewRegexExtractor()
	}
	return &Enricher{store: store, client: client, resolver: res, extractor: extractor}
}

type ItemStatus string

const (
	StatusUpdated  ItemStatus = "updated"
	StatusSkipped  ItemStatus = "skipped"
	StatusNotFound ItemStatus = "not_found"
	StatusError    ItemStatus = "error"
)

type ItemResult struct {
	EntityID int        `json:"entity_id"`
	Name     string     `json:"name"`
	Status   ItemStatus `json:"status"`
	GraphID  string     `json:"graph_id,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// Report aggregates per-item outcomes for one bounded batch. Processed
// counts items that reached an outcome without erroring.
type Report struct {
	Processed int          `json:"processed"`
	Updated   int          `json:"updated"`
	Skipped   int          `json:"skipped"`
	NotFound  int          `json:"not_found"`
	Failed    int          `json:"failed"`
	Details   []ItemResult `json:"details"`
}

func (r *Report) add(item ItemResult) {
	switch item.Status {
	case StatusUpdated:
		r.Processed++
		r.Updated++
	case StatusSkipped:
		r.Processed++
		r.Skipped++
	case StatusNotFound:
		r.Processed++
		r.NotFound++
	case StatusError:
		r.Failed++
	}
	r.Details = append(r.Details, item)
}

// EnrichHosts attaches graph ids and profile data to hosts that lack
// them, fuzzily matching each host's name against the directory.
func (e *Enricher) EnrichHosts(ctx context.Context, batchSize int) (Report, error) {
	hosts, err := e.store.HostsWithoutGraphID(ctx, batchSize)
	if err != nil {
		return Report{}, fmt.Errorf("select hosts to enrich: %w", err)
	}

	var report Report
	for _, h := range hosts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		name := h.DisplayName()
		item := ItemResult{EntityID: h.ID, Name: name}

		people, err := e.client.SearchPeople(ctx, name)
		if err != nil {
			item.Status = StatusError
			item.Reason = err.Error()
			log.Printf("enrich: directory search failed for host %q (%s): %v", name, graphapi.KindOf(err), err)
			report.add(item)
			continue
		}
		match, score, ok := e.resolver.BestDirectoryMatch(name, people)
		if !ok {
			item.Status = StatusNotFound
			log.Printf("enrich: no directory match above %.2f for host %q", e.resolver.Threshold(), name)
			report.add(item)
			continue
		}

		if err := e.store.AttachHostGraphID(ctx, h.ID, match.GraphID, match.Bio, match.ImageURL, match.WebsiteURL); err != nil {
			item.Status = StatusError
			item.Reason = err.Error()
			report.add(item)
			continue
		}
		item.Status = StatusUpdated
		item.GraphID = match.GraphID
		log.Printf("enrich: matched host %q to graph id %s (score %.2f)", name, match.GraphID, score)
		report.add(item)
	}
	return report, nil
}

// MatchPodcasts attaches graph ids to podcasts, searching the graph by
// catalog id. The first result is taken as the best match, the way the
// graph ranks exact catalog-id searches.
func (e *Enricher) MatchPodcasts(ctx context.Context, batchSize int) (Report, error) {
	podcasts, err := e.store.PodcastsWithoutGraphID(ctx, batchSize)
	if err != nil {
		return Report{}, fmt.Errorf("select podcasts to match: %w", err)
	}

	var report Report
	for _, p := range podcasts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		item := ItemResult{EntityID: p.ID, Name: p.Title}

		results, err := e.client.SearchPodcasts(ctx, *p.CatalogID)
		if err != nil {
			item.Status = StatusError
			item.Reason = err.Error()
			log.Printf("enrich: podcast search failed for %q: %v", p.Title, err)
			report.add(item)
			continue
		}
		if len(results) == 0 {
			item.Status = StatusNotFound
			report.add(item)
			continue
		}

		best := results[0]
		if err := e.store.AttachPodcastGraphID(ctx, p.ID, best.GraphID, best.WebURL, best.ImageURL); err != nil {
			item.Status = StatusError
			item.Reason = err.Error()
			report.add(item)
			continue
		}
		item.Status = StatusUpdated
		item.GraphID = best.GraphID
		report.add(item)
	}
	return report, nil
}

// MatchEpisodes attaches graph ids to episodes whose podcast is already
// known to the graph, and links any credits the search result carries.
func (e *Enricher) MatchEpisodes(ctx context.Context, batchSize int) (Report, error) {
	episodes, err := e.store.EpisodesWithoutGraphID(ctx, batchSize)
	if err != nil {
		return Report{}, fmt.Errorf("select episodes to match: %w", err)
	}

	var report Report
	for _, ep := range episodes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		item := ItemResult{EntityID: ep.EpisodeID, Name: ep.Title}

		results, err := e.client.SearchEpisodes(ctx, ep.Title)
		if err != nil {
			item.Status = StatusError
			item.Reason = err.Error()
			log.Printf("enrich: episode search failed for %q: %v", ep.Title, err)
			report.add(item)
			continue
		}
		best, ok := pickEpisode(results, ep.PodcastTitle)
		if !ok {
			item.Status = StatusNotFound
			report.add(item)
			continue
		}

		if err := e.store.AttachEpisodeGraphID(ctx, ep.EpisodeID, best.GraphID); err != nil {
			item.Status = StatusError
			item.Reason = err.Error()
			report.add(item)
			continue
		}
		for _, credit := range best.Credits {
			if err := e.saveCredit(ctx, ep.EpisodeID, credit, false); err != nil {
				log.Printf("enrich: failed to save credit %q on episode %d: %v",
					credit.Person.Name, ep.EpisodeID, err)
			}
		}
		item.Status = StatusUpdated
		item.GraphID = best.GraphID
		report.add(item)
	}
	return report, nil
}

// pickEpisode prefers a result whose podcast title matches ours; falls
// back to the first result.
func pickEpisode(results []graphapi.EpisodeResult, podcastTitle string) (graphapi.EpisodeResult, bool) {
	if len(results) == 0 {
		return graphapi.EpisodeResult{}, false
	}
	for _, r := range results {
		if r.PodcastTitle == podcastTitle {
			return r, true
		}
	}
	return results[0], true
}

// SyncCredits pulls structured credit lists for episodes the graph knows
// and persists each (role, person) appearance.
func (e *Enricher) SyncCredits(ctx context.Context, batchSize int) (Report, error) {
	episodes, err := e.store.EpisodesWithGraphIDWithoutCredits(ctx, batchSize)
	if err != nil {
		return Report{}, fmt.Errorf("select episodes for credit sync: %w", err)
	}

	var report Report
	for _, ep := range episodes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		item := ItemResult{EntityID: ep.EpisodeID, Name: ep.Title}

		credits, err := e.client.EpisodeCredits(ctx, *ep.GraphID)
		if err != nil {
			item.Status = StatusError
			item.Reason = err.Error()
			log.Printf("enrich: credit fetch failed for episode %q: %v", ep.Title, err)
			report.add(item)
			continue
		}
		if len(credits) == 0 {
			item.Status = StatusNotFound
			report.add(item)
			continue
		}

		saved := 0
		for _, credit := range credits {
			isGuest := guestRole(credit.Role)
			if err := e.saveCredit(ctx, ep.EpisodeID, credit, isGuest); err != nil {
				log.Printf("enrich: failed to save credit %q on episode %d: %v",
					credit.Person.Name, ep.EpisodeID, err)
				continue
			}
			saved++
		}
		if saved == 0 {
			item.Status = StatusError
			item.Reason = "no credits could be saved"
			report.add(item)
			continue
		}
		item.Status = StatusUpdated
		report.add(item)
	}
	return report, nil
}

func (e *Enricher) saveCredit(ctx context.Context, episodeID int, credit graphapi.Credit, isGuest bool) error {
	person := models.RawPerson{
		Name:       credit.Person.Name,
		Role:       credit.Role,
		Bio:        credit.Person.Bio,
		ImageURL:   credit.Person.ImageURL,
		WebsiteURL: credit.Person.WebsiteURL,
		GraphID:    credit.Person.GraphID,
		IsGuest:    isGuest,
		Source:     models.SourceGraph,
		Confidence: 0.95,
	}
	first, last, err := resolver.SplitName(person.Name)
	if err != nil {
		return err
	}
	_, err = e.store.SaveAppearance(ctx, episodeID, first, last, person)
	return err
}

func guestRole(role string) bool {
	switch strings.ToLower(role) {
	case "guest", "interviewee", "featured":
		return true
	}
	return false
}
