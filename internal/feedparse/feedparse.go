// Package feedparse is the source adapter for podcast RSS feeds.
package feedparse

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"podgraph/internal/models"
)

const sourceConfidence = 0.8

type Parser struct {
	fp *gofeed.Parser
}

func New() *Parser {
	fp := gofeed.NewParser()
	fp.UserAgent = "podgraph/1.0"
	return &Parser{fp: fp}
}

// Fetch downloads and parses a feed into canonical episode records.
// Durations arrive as free-form strings and are normalized to seconds.
func (p *Parser) Fetch(ctx context.Context, feedURL string) ([]models.RawEpisode, error) {
	feed, err := p.fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	episodes := make([]models.RawEpisode, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Title == "" {
			continue
		}
		ep := models.RawEpisode{
			Title:       item.Title,
			Description: item.Description,
			Source:      models.SourceFeed,
			Confidence:  sourceConfidence,
		}
		if item.PublishedParsed != nil {
			t := *item.PublishedParsed
			ep.PublishedDate = &t
		}
		if item.ITunesExt != nil {
			ep.DurationSeconds = models.DurationFromString(item.ITunesExt.Duration)
			ep.EpisodeNumber = atoiPtr(item.ITunesExt.Episode)
			ep.SeasonNumber = atoiPtr(item.ITunesExt.Season)
		}
		for _, enc := range item.Enclosures {
			if strings.HasPrefix(enc.Type, "audio") && enc.URL != "" {
				ep.AudioURL = enc.URL
				break
			}
		}
		if ep.AudioURL == "" {
			ep.AudioURL = item.Link
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}

func atoiPtr(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}
