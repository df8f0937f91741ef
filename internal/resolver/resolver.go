// Package resolver decides whether an incoming canonical record refers to
// an entity the store already knows: deterministic external-id matches
// first, then natural keys, then fuzzy name similarity against directory
// search results.
package resolver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"podgraph/internal/db"
	"podgraph/internal/graphapi"
	"podgraph/internal/models"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionMerge  Action = "merge"
)

// Resolution reports what should happen to an incoming record: create a
// new entity, update the matched one, or merge (attach an external id to a
// local entity for the first time).
type Resolution struct {
	Action     Action
	EntityID   int
	Confidence float64
}

// DefaultThreshold is the minimum similarity score a directory candidate
// needs to count as a match.
const DefaultThreshold = 0.85

type Resolver struct {
	store     *db.Store
	sim       Similarity
	threshold float64
}

func New(store *db.Store, sim Similarity, threshold float64) *Resolver {
	if sim == nil {
		sim = SequenceRatio{}
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Resolver{store: store, sim: sim, threshold: threshold}
}

// ResolvePodcast matches on catalog id first, then exact title.
func (r *Resolver) ResolvePodcast(ctx context.Context, rec models.RawPodcast) (Resolution, error) {
	if rec.Title == "" {
		return Resolution{}, errors.New("podcast record has an empty title")
	}
	if rec.CatalogID != "" {
		p, err := r.store.GetPodcastByCatalogID(ctx, rec.CatalogID)
		if err == nil {
			return Resolution{Action: ActionUpdate, EntityID: p.ID, Confidence: 1}, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return Resolution{}, fmt.Errorf("podcast lookup by catalog id: %w", err)
		}
	}
	p, err := r.store.GetPodcastByTitle(ctx, rec.Title)
	if err == nil {
		if rec.CatalogID != "" && p.CatalogID == nil {
			return Resolution{Action: ActionMerge, EntityID: p.ID, Confidence: 1}, nil
		}
		if rec.CatalogID != "" && p.CatalogID != nil && *p.CatalogID != rec.CatalogID {
			return Resolution{}, fmt.Errorf("podcast %q: %w", rec.Title, db.ErrExternalIDConflict)
		}
		return Resolution{Action: ActionUpdate, EntityID: p.ID, Confidence: 1}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Resolution{}, fmt.Errorf("podcast lookup by title: %w", err)
	}
	return Resolution{Action: ActionCreate, Confidence: rec.Confidence}, nil
}

// ResolveEpisode matches on (podcast, title).
func (r *Resolver) ResolveEpisode(ctx context.Context, podcastID int, rec models.RawEpisode) (Resolution, error) {
	if rec.Title == "" {
		return Resolution{}, errors.New("episode record has an empty title")
	}
	e, err := r.store.GetEpisodeByTitle(ctx, podcastID, rec.Title)
	if err == nil {
		if rec.CatalogID != "" && e.CatalogID == nil {
			return Resolution{Action: ActionMerge, EntityID: e.ID, Confidence: 1}, nil
		}
		if rec.CatalogID != "" && e.CatalogID != nil && *e.CatalogID != rec.CatalogID {
			return Resolution{}, fmt.Errorf("episode %q: %w", rec.Title, db.ErrExternalIDConflict)
		}
		return Resolution{Action: ActionUpdate, EntityID: e.ID, Confidence: 1}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Resolution{}, fmt.Errorf("episode lookup: %w", err)
	}
	return Resolution{Action: ActionCreate, Confidence: rec.Confidence}, nil
}

// ResolvePerson matches on graph id first, then case-normalized
// (first, last) name.
func (r *Resolver) ResolvePerson(ctx context.Context, rec models.RawPerson) (Resolution, error) {
	first, last, err := SplitName(rec.Name)
	if err != nil {
		return Resolution{}, err
	}
	if rec.GraphID != "" {
		h, err := r.store.GetHostByGraphID(ctx, rec.GraphID)
		if err == nil {
			return Resolution{Action: ActionUpdate, EntityID: h.ID, Confidence: 1}, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return Resolution{}, fmt.Errorf("host lookup by graph id: %w", err)
		}
	}
	h, err := r.store.GetHostByName(ctx, first, last)
	if err == nil {
		if rec.GraphID != "" && h.GraphID == nil {
			return Resolution{Action: ActionMerge, EntityID: h.ID, Confidence: 1}, nil
		}
		if rec.GraphID != "" && h.GraphID != nil && *h.GraphID != rec.GraphID {
			return Resolution{}, fmt.Errorf("host %s %s: %w", first, last, db.ErrExternalIDConflict)
		}
		return Resolution{Action: ActionUpdate, EntityID: h.ID, Confidence: 1}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Resolution{}, fmt.Errorf("host lookup by name: %w", err)
	}
	return Resolution{Action: ActionCreate, Confidence: rec.Confidence}, nil
}

// BestDirectoryMatch picks the highest-scoring directory candidate at or
// above the threshold. Ties keep the first-seen candidate. Only used for
// person records matched against metadata-graph search results; local
// natural-key lookups never go fuzzy.
func (r *Resolver) BestDirectoryMatch(name string, candidates []graphapi.Person) (graphapi.Person, float64, bool) {
	var best graphapi.Person
	bestScore := 0.0
	found := false
	lower := strings.ToLower(name)
	for _, c := range candidates {
		score := r.sim.Ratio(lower, strings.ToLower(c.Name))
		if score >= r.threshold && score > bestScore {
			best = c
			bestScore = score
			found = true
		}
	}
	return best, bestScore, found
}

// Threshold reports the configured similarity cutoff.
func (r *Resolver) Threshold() float64 {
	return r.threshold
}
