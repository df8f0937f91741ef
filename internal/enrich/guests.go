package enrich

import (
	"context"
	"fmt"
	"log"

	"podgraph/internal/graphapi"
	"podgraph/internal/models"
	"podgraph/internal/resolver"
)

// DiscoverGuests scans episode titles and descriptions for guest-name
// phrasing and links any names it finds as guest appearances. Names that
// also match the directory pick up graph profile data on the way in.
func (e *Enricher) DiscoverGuests(ctx context.Context, batchSize int) (Report, error) {
	episodes, err := e.store.EpisodesWithoutHosts(ctx, batchSize)
	if err != nil {
		return Report{}, fmt.Errorf("select episodes for guest scan: %w", err)
	}

	var report Report
	for _, ep := range episodes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		item := ItemResult{EntityID: ep.EpisodeID, Name: ep.Title}

		description := ""
		if ep.Description != nil {
			description = *ep.Description
		}
		names := e.extractor.Extract(ep.Title, description)
		if len(names) == 0 {
			item.Status = StatusSkipped
			report.add(item)
			continue
		}

		saved := 0
		var lastErr error
		for _, name := range names {
			if err := e.saveGuess(ctx, ep.EpisodeID, name); err != nil {
				lastErr = err
				log.Printf("enrich: failed to save guest %q on episode %d: %v", name, ep.EpisodeID, err)
				continue
			}
			saved++
		}
		if saved == 0 {
			item.Status = StatusError
			if lastErr != nil {
				item.Reason = lastErr.Error()
			}
			report.add(item)
			continue
		}
		item.Status = StatusUpdated
		log.Printf("enrich: linked %d guest name(s) to episode %q", saved, ep.Title)
		report.add(item)
	}
	return report, nil
}

// saveGuess persists one extracted name as a guest appearance. Names the
// store already knows are linked as-is; only unknown names go out to the
// directory. Directory lookup failures are tolerated; the name still
// lands without profile data.
func (e *Enricher) saveGuess(ctx context.Context, episodeID int, name string) error {
	first, last, err := resolver.SplitName(name)
	if err != nil {
		return err
	}

	person := models.RawPerson{
		Name:       name,
		Role:       "Guest",
		IsGuest:    true,
		Source:     models.SourceFeed,
		Confidence: 0.5,
	}
	res, err := e.resolver.ResolvePerson(ctx, person)
	if err != nil {
		return err
	}
	if res.Action == resolver.ActionCreate {
		people, err := e.client.SearchPeople(ctx, name)
		if err != nil {
			log.Printf("enrich: directory search failed for extracted name %q (%s): %v",
				name, graphapi.KindOf(err), err)
		} else if match, _, ok := e.resolver.BestDirectoryMatch(name, people); ok {
			person.GraphID = match.GraphID
			person.Bio = match.Bio
			person.ImageURL = match.ImageURL
			person.WebsiteURL = match.WebsiteURL
			person.Source = models.SourceGraph
			person.Confidence = 0.85
		}
	}

	_, err = e.store.SaveAppearance(ctx, episodeID, first, last, person)
	return err
}
