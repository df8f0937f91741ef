// Package pagescrape is the source adapter for episode web pages: it pulls
// the credits shelf off an episode page, when the page has one.
package pagescrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"podgraph/internal/models"
)

const (
	DefaultBaseURL = "https://podcasts.apple.com"

	sourceConfidence = 0.6
)

type Scraper struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func New(baseURL string) *Scraper {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Scraper{
		baseURL:    baseURL,
		userAgent:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// EpisodeCredits scrapes the credit entries from one episode page.
// Returns an empty slice when the page carries no credits section.
func (s *Scraper) EpisodeCredits(ctx context.Context, podcastCatalogID, episodeCatalogID string) ([]models.RawPerson, error) {
	pageURL := fmt.Sprintf("%s/us/podcast/id%s?i=%s", s.baseURL, podcastCatalogID, episodeCatalogID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build episode page request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch episode page %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch episode page %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse episode page %s: %w", pageURL, err)
	}

	var people []models.RawPerson
	doc.Find("ul.shelf-grid__list li").Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Find("h3.title").First().Text())
		if name == "" {
			return
		}
		role := strings.TrimSpace(sel.Find("p.subtitle").First().Text())
		if role == "" {
			role = "Unknown"
		}
		person := models.RawPerson{
			Name:       name,
			Role:       role,
			IsGuest:    strings.Contains(strings.ToLower(role), "guest"),
			Source:     models.SourcePage,
			Confidence: sourceConfidence,
		}
		if srcset, ok := sel.Find(`source[type="image/jpeg"]`).First().Attr("srcset"); ok {
			person.ImageURL = firstImage(srcset)
		}
		people = append(people, person)
	})
	return people, nil
}

// firstImage takes the first URL out of a srcset list.
func firstImage(srcset string) string {
	first := strings.SplitN(srcset, ",", 2)[0]
	return strings.SplitN(strings.TrimSpace(first), " ", 2)[0]
}
