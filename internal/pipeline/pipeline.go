package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nvoss/ainews/internal/classify"
	"github.com/nvoss/ainews/internal/feed"
	"github.com/nvoss/ainews/internal/store"
	"github.com/nvoss/ainews/internal/summarize"
	"github.com/nvoss/ainews/internal/telegram"
)

// ErrCycleRunning is returned when a cycle is requested while another
// one is still in flight.
var ErrCycleRunning = errors.New("a cycle is already running")

// Fetcher produces candidate items from the configured sources.
type Fetcher interface {
	FetchAll(ctx context.Context) []feed.Candidate
}

// Classifier decides whether a candidate is relevant.
type Classifier interface {
	Classify(ctx context.Context, item feed.Candidate) classify.Decision
}

// Summarizer produces notification and digest copy.
type Summarizer interface {
	Summarize(ctx context.Context, a store.Article) summarize.Summary
	BuildDigest(ctx context.Context, articles []store.Article) *summarize.Digest
}

// Enricher fetches full article text for accepted items.
type Enricher interface {
	Extract(ctx context.Context, articleURL string) (string, error)
}

// Notifier fans a message out to subscribers.
type Notifier interface {
	Broadcast(ctx context.Context, articleID int64, text string, keyboard *telegram.InlineKeyboard) (telegram.BroadcastResult, error)
}

// Options carries the tunables of a processing cycle.
type Options struct {
	VerificationThreshold int
	MaxItemsPerCycle      int
	ItemDelay             time.Duration
	DigestWindowHours     int
	DigestLimit           int
}

// CycleResult summarizes one processing cycle.
type CycleResult struct {
	Fetched    int
	Duplicates int
	Rejected   int
	Accepted   int
	Notified   int
	Failed     int
}

// DigestResult summarizes one digest run.
type DigestResult struct {
	Articles int
	Sent     int
}

// Pipeline runs the fetch-classify-summarize-notify cycle. A single
// Pipeline serializes its cycles: only one of RunCycle and RunDigest
// executes at a time.
type Pipeline struct {
	db         *store.DB
	fetcher    Fetcher
	classifier Classifier
	summarizer Summarizer
	enricher   Enricher
	notifier   Notifier
	opts       Options

	running atomic.Bool
}

// New creates a pipeline. enricher may be nil to skip content
// enrichment; notifier may be nil to run without deliveries.
func New(db *store.DB, fetcher Fetcher, classifier Classifier, summarizer Summarizer, enricher Enricher, notifier Notifier, opts Options) *Pipeline {
	if opts.MaxItemsPerCycle <= 0 {
		opts.MaxItemsPerCycle = 500
	}
	if opts.DigestLimit <= 0 {
		opts.DigestLimit = 10
	}
	if opts.DigestWindowHours <= 0 {
		opts.DigestWindowHours = 24
	}
	return &Pipeline{
		db:         db,
		fetcher:    fetcher,
		classifier: classifier,
		summarizer: summarizer,
		enricher:   enricher,
		notifier:   notifier,
		opts:       opts,
	}
}

// Running reports whether a cycle is currently in flight.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// RunCycle fetches candidates and processes each one independently. A
// failure on one item never aborts the cycle; the item is counted and
// the cycle moves on.
func (p *Pipeline) RunCycle(ctx context.Context) (*CycleResult, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrCycleRunning
	}
	defer p.running.Store(false)

	r := &CycleResult{}

	candidates := p.fetcher.FetchAll(ctx)
	if len(candidates) > p.opts.MaxItemsPerCycle {
		log.Printf("Capping cycle at %d of %d candidates", p.opts.MaxItemsPerCycle, len(candidates))
		candidates = candidates[:p.opts.MaxItemsPerCycle]
	}
	r.Fetched = len(candidates)

	for i, item := range candidates {
		if ctx.Err() != nil {
			return r, ctx.Err()
		}
		p.processItem(ctx, item, r)

		if p.opts.ItemDelay > 0 && i < len(candidates)-1 {
			select {
			case <-ctx.Done():
				return r, ctx.Err()
			case <-time.After(p.opts.ItemDelay):
			}
		}
	}

	log.Printf("Cycle complete: %d fetched, %d duplicates, %d rejected, %d accepted, %d notified, %d failed",
		r.Fetched, r.Duplicates, r.Rejected, r.Accepted, r.Notified, r.Failed)
	return r, nil
}

// processItem runs the per-item state machine. The article row is
// committed right after classification so a crash later in the item
// never causes reprocessing on the next cycle. A panic in any
// collaborator is contained here: the item is counted as failed and the
// cycle moves on.
func (p *Pipeline) processItem(ctx context.Context, item feed.Candidate, r *CycleResult) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Panic processing %s: %v", item.URL, rec)
			r.Failed++
		}
	}()
	exists, err := p.db.ExistsByURL(item.URL)
	if err != nil {
		log.Printf("Error checking %s: %v", item.URL, err)
		r.Failed++
		return
	}
	if exists {
		r.Duplicates++
		return
	}

	decision := p.classifier.Classify(ctx, item)

	article := store.Article{
		URL:          item.URL,
		Title:        item.Title,
		SourceName:   item.SourceName,
		SourceDomain: item.SourceDomain,
		PublishedAt:  store.FormatTime(item.PublishedAt),
		IsRelevant:   decision.Relevant,
		Confidence:   decision.Confidence,
		Credibility:  item.Credibility,
		IsVerified:   item.Credibility >= p.opts.VerificationThreshold,
	}
	if item.Summary != "" {
		article.Content = &item.Summary
	}
	if decision.Reason != "" {
		article.VerificationReason = &decision.Reason
	}

	id, err := p.db.InsertArticle(article)
	if err != nil {
		log.Printf("Error inserting %s: %v", item.URL, err)
		r.Failed++
		return
	}
	if id == 0 {
		r.Duplicates++
		return
	}
	article.ID = id

	if !decision.Relevant {
		r.Rejected++
		return
	}
	r.Accepted++
	log.Printf("Accepted: %s (confidence %d)", item.Title, decision.Confidence)

	if p.enricher != nil {
		if text, err := p.enricher.Extract(ctx, item.URL); err != nil {
			log.Printf("Enrichment failed for %s: %v", item.URL, err)
		} else if text != "" {
			if err := p.db.UpdateContent(id, text); err != nil {
				log.Printf("Error storing content for %s: %v", item.URL, err)
			} else {
				article.Content = &text
			}
		}
	}

	summary := p.summarizer.Summarize(ctx, article)
	stored := summary.Headline + "\n\n" + summary.WhyMatters
	if err := p.db.UpdateSummary(id, stored); err != nil {
		log.Printf("Error storing summary for %s: %v", item.URL, err)
	} else {
		article.Summary = &stored
	}

	if p.notifier == nil {
		return
	}

	text := telegram.FormatArticle(article)
	res, err := p.notifier.Broadcast(ctx, id, text, nil)
	if err != nil {
		log.Printf("Broadcast failed for %s: %v", item.URL, err)
		r.Failed++
		return
	}
	// An article counts as notified only when at least one subscriber
	// actually received it. Otherwise it stays eligible for the digest
	// but is never re-sent as a breaking notification.
	if res.Sent >= 1 {
		if err := p.db.MarkNotified(id, time.Now().UTC()); err != nil {
			log.Printf("Error marking %s notified: %v", item.URL, err)
		}
		r.Notified++
	}
}

// RunDigest builds and delivers the daily roundup of recent verified
// relevant articles. A failed or empty digest skips delivery cleanly.
func (p *Pipeline) RunDigest(ctx context.Context) (*DigestResult, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrCycleRunning
	}
	defer p.running.Store(false)

	articles, err := p.db.RecentVerifiedRelevant(p.opts.DigestWindowHours, p.opts.DigestLimit)
	if err != nil {
		return nil, fmt.Errorf("loading digest articles: %w", err)
	}

	r := &DigestResult{Articles: len(articles)}
	if len(articles) == 0 {
		log.Println("No articles for digest")
		return r, nil
	}

	digest := p.summarizer.BuildDigest(ctx, articles)
	if digest == nil {
		log.Println("Digest unavailable, skipping delivery")
		return r, nil
	}

	if p.notifier == nil {
		return r, nil
	}

	text, keyboard := renderDigest(digest)
	res, err := p.notifier.Broadcast(ctx, 0, text, keyboard)
	if err != nil {
		return r, fmt.Errorf("broadcasting digest: %w", err)
	}
	r.Sent = res.Sent
	log.Printf("Digest delivered to %d of %d subscribers", res.Sent, res.Attempted)
	return r, nil
}

// renderDigest turns a digest into message text plus one read-more
// button per item.
func renderDigest(d *summarize.Digest) (string, *telegram.InlineKeyboard) {
	var sb strings.Builder
	sb.WriteString("📰 *Daily AI Digest*\n\n")
	if d.Intro != "" {
		sb.WriteString(d.Intro + "\n\n")
	}
	for i, item := range d.Items {
		fmt.Fprintf(&sb, "%d. *%s*\n", i+1, item.Headline)
		if item.Impact != "" {
			fmt.Fprintf(&sb, "   %s\n", item.Impact)
		}
	}
	if d.Outro != "" {
		sb.WriteString("\n" + d.Outro)
	}

	kb := &telegram.InlineKeyboard{}
	for i, item := range d.Items {
		label := fmt.Sprintf("%d. %s", i+1, truncate(item.Headline, 30))
		kb.InlineKeyboard = append(kb.InlineKeyboard, []telegram.InlineButton{{
			Text:         label,
			CallbackData: fmt.Sprintf("read_%d", item.ArticleID),
		}})
	}
	return sb.String(), kb
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
