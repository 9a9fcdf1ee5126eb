package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nvoss/ainews/internal/config"
)

func rssFeed(items string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Test Feed</title>` + items + `</channel></rss>`
}

func rssItem(title, link string, published time.Time) string {
	return fmt.Sprintf(
		`<item><title>%s</title><link>%s</link><description>&lt;p&gt;Summary of %s&lt;/p&gt;</description><pubDate>%s</pubDate></item>`,
		title, link, title, published.Format(time.RFC1123Z),
	)
}

func serveFeed(t *testing.T, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestFetchAll(t *testing.T) {
	now := time.Now()
	feedURL := serveFeed(t, rssFeed(
		rssItem("OpenAI Ships New Model", "https://example.com/a", now.Add(-time.Hour))+
			rssItem("Old News", "https://example.com/old", now.Add(-80*time.Hour)),
	))

	f := NewFetcher([]config.Source{
		{Name: "Example", URL: "https://www.example.com/blog", Feed: feedURL, Credibility: 90},
	})

	candidates := f.FetchAll(context.Background())
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate (recency cutoff), got %d", len(candidates))
	}

	c := candidates[0]
	if c.Title != "OpenAI Ships New Model" {
		t.Errorf("unexpected title: %q", c.Title)
	}
	if c.URL != "https://example.com/a" {
		t.Errorf("unexpected URL: %q", c.URL)
	}
	if c.Summary != "Summary of OpenAI Ships New Model" {
		t.Errorf("expected HTML-stripped summary, got %q", c.Summary)
	}
	if c.SourceName != "Example" || c.SourceDomain != "www.example.com" {
		t.Errorf("unexpected source metadata: %q / %q", c.SourceName, c.SourceDomain)
	}
	if c.Credibility != 90 {
		t.Errorf("expected credibility 90, got %d", c.Credibility)
	}
}

func TestFetchAllDeduplicatesAcrossSources(t *testing.T) {
	now := time.Now()
	body := rssFeed(rssItem("Shared Story", "https://example.com/shared", now.Add(-time.Hour)))
	first := serveFeed(t, body)
	second := serveFeed(t, body)

	f := NewFetcher([]config.Source{
		{Name: "One", URL: "https://one.example.com", Feed: first, Credibility: 80},
		{Name: "Two", URL: "https://two.example.com", Feed: second, Credibility: 80},
	})

	candidates := f.FetchAll(context.Background())
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate after batch dedup, got %d", len(candidates))
	}
	if candidates[0].SourceName != "One" {
		t.Errorf("expected first sighting to win, got %q", candidates[0].SourceName)
	}
}

func TestFetchAllSkipsFailingFeed(t *testing.T) {
	now := time.Now()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)
	good := serveFeed(t, rssFeed(rssItem("Works", "https://example.com/ok", now.Add(-time.Hour))))

	f := NewFetcher([]config.Source{
		{Name: "Broken", URL: "https://broken.example.com", Feed: broken.URL, Credibility: 50},
		{Name: "Good", URL: "https://good.example.com", Feed: good, Credibility: 90},
	})

	candidates := f.FetchAll(context.Background())
	if len(candidates) != 1 {
		t.Fatalf("expected the good feed to survive a broken one, got %d candidates", len(candidates))
	}
}

func TestMapItemSkipsItemsWithoutURLOrTitle(t *testing.T) {
	now := time.Now()
	feedURL := serveFeed(t, rssFeed(
		`<item><title>No Link</title></item>`+
			rssItem("Has Everything", "https://example.com/full", now.Add(-time.Minute)),
	))

	f := NewFetcher([]config.Source{{Name: "S", URL: "https://s.example.com", Feed: feedURL, Credibility: 70}})
	candidates := f.FetchAll(context.Background())
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
}
