package summarize

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/nvoss/ainews/internal/llm"
	"github.com/nvoss/ainews/internal/store"
)

const fallbackWhyMatters = "Significant development in the AI field."

const summaryPrompt = `Summarize this AI news article for a Telegram notification.

Title: %s
Source: %s
Content: %s

Respond ONLY with valid JSON in this exact format:
{
    "headline": "A punchy headline under 10 words",
    "why_matters": "One sentence on why practitioners should care"
}`

const digestPrompt = `You are writing a daily AI news digest for a Telegram channel.

Here are today's verified AI news articles:
%s

Respond ONLY with valid JSON in this exact format:
{
    "intro": "One energetic sentence opening the digest",
    "items": [
        {"index": 1, "headline": "Rewritten punchy headline", "impact": "One sentence on the impact"}
    ],
    "outro": "One short closing sentence"
}

Include every article exactly once, in the order given. Keep headlines under 12 words.`

// Summary is the notification copy for a single article.
type Summary struct {
	Headline   string
	WhyMatters string
}

// DigestItem is one entry of the daily digest, tied back to the stored
// article so the delivery layer can attach a read-more button.
type DigestItem struct {
	ArticleID int64
	Headline  string
	Impact    string
}

// Digest is the rendered daily roundup.
type Digest struct {
	Intro string
	Items []DigestItem
	Outro string
}

// Summarizer turns stored articles into notification and digest copy.
type Summarizer struct {
	provider  llm.Provider
	maxTokens int
}

// New creates a summarizer backed by the given LLM provider. The
// provider may be nil; summaries then always use the fallback.
func New(provider llm.Provider) *Summarizer {
	return &Summarizer{provider: provider, maxTokens: 512}
}

// Summarize produces notification copy for one article. It never fails:
// any LLM problem degrades to a deterministic fallback built from the
// article title.
func (s *Summarizer) Summarize(ctx context.Context, a store.Article) Summary {
	fallback := Summary{Headline: a.Title, WhyMatters: fallbackWhyMatters}

	if s.provider == nil {
		return fallback
	}

	content := a.Title
	if a.Content != nil && *a.Content != "" {
		content = *a.Content
	}
	if runes := []rune(content); len(runes) > 2000 {
		content = string(runes[:2000])
	}

	prompt := fmt.Sprintf(summaryPrompt, a.Title, a.SourceName, content)
	responseText, err := s.provider.Generate(ctx, prompt, s.maxTokens)
	if err != nil {
		log.Printf("Summary error for %q: %v", a.Title, err)
		return fallback
	}

	parsed := llm.ParseJSONResponse(responseText)
	if parsed == nil {
		log.Printf("Unparseable summary response for %q", a.Title)
		return fallback
	}

	headline, _ := parsed["headline"].(string)
	whyMatters, _ := parsed["why_matters"].(string)
	if strings.TrimSpace(headline) == "" || strings.TrimSpace(whyMatters) == "" {
		return fallback
	}
	return Summary{Headline: headline, WhyMatters: whyMatters}
}

// BuildDigest produces the daily roundup for the given articles. It
// returns nil when there is nothing to send or when the LLM fails; the
// caller treats nil as "skip delivery".
func (s *Summarizer) BuildDigest(ctx context.Context, articles []store.Article) *Digest {
	if len(articles) == 0 {
		return nil
	}
	if s.provider == nil {
		log.Println("No LLM provider available for digest")
		return nil
	}

	var sb strings.Builder
	for i, a := range articles {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, a.Title, a.SourceName)
		if a.Summary != nil && *a.Summary != "" {
			fmt.Fprintf(&sb, "   %s\n", *a.Summary)
		}
	}

	prompt := fmt.Sprintf(digestPrompt, sb.String())
	responseText, err := s.provider.Generate(ctx, prompt, 1024)
	if err != nil {
		log.Printf("Digest error: %v", err)
		return nil
	}

	parsed := llm.ParseJSONResponse(responseText)
	if parsed == nil {
		log.Println("Unparseable digest response")
		return nil
	}

	d := &Digest{}
	d.Intro, _ = parsed["intro"].(string)
	d.Outro, _ = parsed["outro"].(string)

	rawItems, _ := parsed["items"].([]any)
	for _, raw := range rawItems {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		idx := 0
		if n, ok := m["index"].(float64); ok {
			idx = int(n)
		}
		if idx < 1 || idx > len(articles) {
			continue
		}
		headline, _ := m["headline"].(string)
		impact, _ := m["impact"].(string)
		if strings.TrimSpace(headline) == "" {
			headline = articles[idx-1].Title
		}
		d.Items = append(d.Items, DigestItem{
			ArticleID: articles[idx-1].ID,
			Headline:  headline,
			Impact:    impact,
		})
	}

	if len(d.Items) == 0 {
		log.Println("Digest response contained no usable items")
		return nil
	}
	return d
}
