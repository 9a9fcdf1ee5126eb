package classify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/nvoss/ainews/internal/config"
	"github.com/nvoss/ainews/internal/feed"
	"github.com/nvoss/ainews/internal/llm"
)

const classifyPrompt = `Classify if this news article is primarily about AI/ML technology.

Title: %s
Summary: %s

Respond ONLY with valid JSON in this exact format:
{
    "relevant": true or false,
    "confidence": 0-100,
    "reasoning": "brief explanation"
}

Focus on:
- AI models and research
- Machine learning breakthroughs
- AI products and releases
- AI policy and regulation
- AI hardware

NOT relevant if it's only:
- General tech news
- Business news mentioning AI in passing
- Generic productivity tools using AI as a buzzword`

// Decision is the outcome of the relevance gate for one candidate.
type Decision struct {
	Relevant   bool
	Confidence int
	Reason     string
}

// Classifier is the two-stage relevance gate: a cheap keyword pre-filter
// followed by an LLM verdict. The LLM is only consulted when the keyword
// stage passes.
type Classifier struct {
	provider  llm.Provider
	keywords  config.Keywords
	threshold int
	maxTokens int
}

// New creates a classifier. threshold is the minimum LLM confidence
// (0-100) required to accept an article as relevant.
func New(provider llm.Provider, keywords config.Keywords, threshold int) *Classifier {
	return &Classifier{
		provider:  provider,
		keywords:  keywords,
		threshold: threshold,
		maxTokens: 256,
	}
}

// Classify decides whether a candidate is AI-relevant. It never returns
// an error: every failure mode degrades to a rejection with a reason
// recorded for audit.
func (c *Classifier) Classify(ctx context.Context, item feed.Candidate) Decision {
	if !c.matchesKeywords(item) {
		return Decision{Relevant: false, Confidence: 0, Reason: "no keyword match"}
	}

	if c.provider == nil {
		return Decision{Relevant: false, Confidence: 0, Reason: "error: no LLM provider"}
	}

	summary := item.Summary
	if runes := []rune(summary); len(runes) > 500 {
		summary = string(runes[:500])
	}
	prompt := fmt.Sprintf(classifyPrompt, item.Title, summary)

	responseText, err := c.provider.Generate(ctx, prompt, c.maxTokens)
	if err != nil {
		log.Printf("Classification error for %q: %v", item.Title, err)
		return Decision{Relevant: false, Confidence: 0, Reason: fmt.Sprintf("error: %v", err)}
	}

	parsed := llm.ParseJSONResponse(responseText)
	if parsed == nil {
		log.Printf("Unparseable classification response for %q", item.Title)
		return Decision{Relevant: false, Confidence: 0, Reason: "parse error"}
	}

	relevant := getBool(parsed, "relevant")
	confidence := clamp(getInt(parsed, "confidence", 0), 0, 100)
	reason := getString(parsed, "reasoning", "")

	// Acceptance requires both the verdict and enough confidence. A
	// rejected item keeps the returned confidence and reason for audit.
	if relevant && confidence >= c.threshold {
		return Decision{Relevant: true, Confidence: confidence, Reason: reason}
	}
	return Decision{Relevant: false, Confidence: confidence, Reason: reason}
}

// matchesKeywords is the stage-1 pre-filter: a case-insensitive substring
// match of title+summary against the three keyword sets.
func (c *Classifier) matchesKeywords(item feed.Candidate) bool {
	text := strings.ToLower(item.Title + " " + item.Summary)
	for _, set := range [][]string{c.keywords.Primary, c.keywords.Companies, c.keywords.Topics} {
		for _, kw := range set {
			if strings.Contains(text, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func getBool(m map[string]any, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func getString(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

func getInt(m map[string]any, key string, fallback int) int {
	if v, ok := m[key]; ok {
		if n, ok := v.(float64); ok {
			return int(n)
		}
	}
	return fallback
}
