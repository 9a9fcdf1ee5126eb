package feed

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/nvoss/ainews/internal/config"
)

// recencyWindow is how far back a feed entry may be published and still
// be considered a candidate.
const recencyWindow = 48 * time.Hour

// Candidate is a freshly fetched news item, not yet deduplicated or
// classified. The URL is its identity key.
type Candidate struct {
	Title        string
	URL          string
	Summary      string
	PublishedAt  time.Time
	SourceName   string
	SourceDomain string
	Credibility  int
}

// Fetcher pulls candidate items from the configured RSS sources.
type Fetcher struct {
	sources []config.Source
	parser  *gofeed.Parser
}

// NewFetcher creates a fetcher over the given sources.
func NewFetcher(sources []config.Source) *Fetcher {
	return &Fetcher{sources: sources, parser: gofeed.NewParser()}
}

// FetchAll fetches every configured feed and returns candidates in feed
// order, deduplicated by URL within the batch. A failing feed is logged
// and skipped; it never aborts the batch.
func (f *Fetcher) FetchAll(ctx context.Context) []Candidate {
	cutoff := time.Now().Add(-recencyWindow)
	seen := make(map[string]struct{})
	var all []Candidate

	for _, src := range f.sources {
		parsed, err := f.parser.ParseURLWithContext(src.Feed, ctx)
		if err != nil {
			log.Printf("Failed to fetch feed %s (%s): %v", src.Name, src.Feed, err)
			continue
		}

		count := 0
		for _, item := range parsed.Items {
			c := mapItem(item, src)
			if c == nil {
				continue
			}
			if c.PublishedAt.Before(cutoff) {
				continue
			}
			if _, dup := seen[c.URL]; dup {
				continue
			}
			seen[c.URL] = struct{}{}
			all = append(all, *c)
			count++
		}
		log.Printf("Fetched %d candidates from %s", count, src.Name)
	}

	log.Printf("Fetch complete: %d unique candidates from %d sources", len(all), len(f.sources))
	return all
}

func mapItem(item *gofeed.Item, src config.Source) *Candidate {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	publishedAt := time.Now().UTC()
	if item.PublishedParsed != nil {
		publishedAt = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		publishedAt = item.UpdatedParsed.UTC()
	}

	var summary string
	if item.Description != "" {
		summary = stripHTML(item.Description)
	} else if item.Content != "" {
		summary = stripHTML(item.Content)
	}

	return &Candidate{
		Title:        title,
		URL:          itemURL,
		Summary:      summary,
		PublishedAt:  publishedAt,
		SourceName:   src.Name,
		SourceDomain: extractDomain(src.URL),
		Credibility:  src.Credibility,
	}
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func extractDomain(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil || u.Hostname() == "" {
		return siteURL
	}
	return strings.ToLower(u.Hostname())
}
