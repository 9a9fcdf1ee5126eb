package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nvoss/ainews/internal/store"
)

type mockProvider struct {
	response string
	err      error
	prompt   string
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	m.prompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockProvider) IsConfigured() bool { return true }

func ptr(s string) *string { return &s }

func TestSummarize(t *testing.T) {
	provider := &mockProvider{response: `{"headline": "GPT-5 lands", "why_matters": "Raises the bar for reasoning."}`}
	s := New(provider)

	got := s.Summarize(context.Background(), store.Article{
		Title:      "OpenAI announces GPT-5",
		SourceName: "OpenAI Blog",
		Content:    ptr("The new flagship model improves reasoning across benchmarks."),
	})

	if got.Headline != "GPT-5 lands" {
		t.Errorf("Unexpected headline: %q", got.Headline)
	}
	if got.WhyMatters != "Raises the bar for reasoning." {
		t.Errorf("Unexpected why_matters: %q", got.WhyMatters)
	}
}

func TestSummarizeFallbackOnError(t *testing.T) {
	provider := &mockProvider{err: errors.New("timeout")}
	s := New(provider)

	got := s.Summarize(context.Background(), store.Article{Title: "OpenAI announces GPT-5"})

	if got.Headline != "OpenAI announces GPT-5" {
		t.Errorf("Expected fallback headline from title, got %q", got.Headline)
	}
	if got.WhyMatters != fallbackWhyMatters {
		t.Errorf("Expected fallback why_matters, got %q", got.WhyMatters)
	}
}

func TestSummarizeFallbackOnBadJSON(t *testing.T) {
	provider := &mockProvider{response: "Here is a summary of the article."}
	s := New(provider)

	got := s.Summarize(context.Background(), store.Article{Title: "AI news"})
	if got.Headline != "AI news" || got.WhyMatters != fallbackWhyMatters {
		t.Errorf("Expected fallback summary, got %+v", got)
	}
}

func TestSummarizeFallbackOnEmptyFields(t *testing.T) {
	provider := &mockProvider{response: `{"headline": "", "why_matters": "x"}`}
	s := New(provider)

	got := s.Summarize(context.Background(), store.Article{Title: "AI news"})
	if got.Headline != "AI news" {
		t.Errorf("Expected fallback when headline empty, got %+v", got)
	}
}

func TestSummarizeNoProvider(t *testing.T) {
	s := New(nil)
	got := s.Summarize(context.Background(), store.Article{Title: "AI news"})
	if got.Headline != "AI news" || got.WhyMatters != fallbackWhyMatters {
		t.Errorf("Expected fallback summary, got %+v", got)
	}
}

func TestSummarizeTruncatesContentOnRuneBoundary(t *testing.T) {
	provider := &mockProvider{response: `{"headline": "h", "why_matters": "w"}`}
	s := New(provider)

	s.Summarize(context.Background(), store.Article{
		Title:   "AI story",
		Content: ptr(strings.Repeat("ü", 2100)),
	})

	if !utf8.ValidString(provider.prompt) {
		t.Error("Expected prompt to remain valid UTF-8 after truncation")
	}
}

func TestBuildDigest(t *testing.T) {
	provider := &mockProvider{response: `{
		"intro": "Big day in AI.",
		"items": [
			{"index": 1, "headline": "GPT-5 lands", "impact": "New reasoning ceiling."},
			{"index": 2, "headline": "Gemini update", "impact": "Faster responses."}
		],
		"outro": "See you tomorrow."
	}`}
	s := New(provider)

	articles := []store.Article{
		{ID: 11, Title: "OpenAI announces GPT-5"},
		{ID: 22, Title: "Google updates Gemini"},
	}
	d := s.BuildDigest(context.Background(), articles)
	if d == nil {
		t.Fatal("Expected a digest")
	}
	if d.Intro != "Big day in AI." || d.Outro != "See you tomorrow." {
		t.Errorf("Unexpected framing: %+v", d)
	}
	if len(d.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(d.Items))
	}
	if d.Items[0].ArticleID != 11 || d.Items[1].ArticleID != 22 {
		t.Errorf("Digest items not tied to article IDs: %+v", d.Items)
	}
}

func TestBuildDigestEmptyInput(t *testing.T) {
	s := New(&mockProvider{response: "{}"})
	if d := s.BuildDigest(context.Background(), nil); d != nil {
		t.Errorf("Expected nil digest for empty input, got %+v", d)
	}
}

func TestBuildDigestLLMFailure(t *testing.T) {
	s := New(&mockProvider{err: errors.New("timeout")})
	d := s.BuildDigest(context.Background(), []store.Article{{ID: 1, Title: "x"}})
	if d != nil {
		t.Errorf("Expected nil digest on LLM failure, got %+v", d)
	}
}

func TestBuildDigestSkipsOutOfRangeItems(t *testing.T) {
	provider := &mockProvider{response: `{
		"intro": "Hi.",
		"items": [
			{"index": 0, "headline": "bad", "impact": ""},
			{"index": 5, "headline": "bad", "impact": ""},
			{"index": 1, "headline": "", "impact": "Falls back to title."}
		],
		"outro": "Bye."
	}`}
	s := New(provider)

	d := s.BuildDigest(context.Background(), []store.Article{{ID: 7, Title: "Original title"}})
	if d == nil {
		t.Fatal("Expected a digest")
	}
	if len(d.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(d.Items))
	}
	if d.Items[0].Headline != "Original title" {
		t.Errorf("Expected headline fallback to article title, got %q", d.Items[0].Headline)
	}
}
