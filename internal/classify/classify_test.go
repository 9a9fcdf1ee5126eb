package classify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nvoss/ainews/internal/config"
	"github.com/nvoss/ainews/internal/feed"
)

type mockProvider struct {
	response string
	err      error
	called   bool
	prompt   string
}

func (m *mockProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	m.called = true
	m.prompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockProvider) IsConfigured() bool { return true }

func testKeywords() config.Keywords {
	return config.Keywords{
		Primary:   []string{"artificial intelligence", "AI", "machine learning", "LLM"},
		Companies: []string{"OpenAI", "Anthropic", "DeepMind"},
		Topics:    []string{"chatbot", "neural network"},
	}
}

func TestClassifyAcceptsRelevantArticle(t *testing.T) {
	provider := &mockProvider{response: `{"relevant": true, "confidence": 95, "reasoning": "Major model release"}`}
	c := New(provider, testKeywords(), 85)

	d := c.Classify(context.Background(), feed.Candidate{
		Title:   "OpenAI announces GPT-5",
		Summary: "The new flagship model improves reasoning.",
	})

	if !d.Relevant {
		t.Error("Expected article to be relevant")
	}
	if d.Confidence != 95 {
		t.Errorf("Expected confidence 95, got %d", d.Confidence)
	}
	if d.Reason != "Major model release" {
		t.Errorf("Unexpected reason: %q", d.Reason)
	}
}

func TestClassifySkipsLLMWithoutKeywordMatch(t *testing.T) {
	provider := &mockProvider{response: `{"relevant": true, "confidence": 99, "reasoning": "x"}`}
	c := New(provider, testKeywords(), 85)

	d := c.Classify(context.Background(), feed.Candidate{
		Title:   "Apple releases iPhone 16",
		Summary: "The new phone has a better camera.",
	})

	if d.Relevant {
		t.Error("Expected article to be rejected")
	}
	if d.Confidence != 0 {
		t.Errorf("Expected confidence 0, got %d", d.Confidence)
	}
	if d.Reason != "no keyword match" {
		t.Errorf("Unexpected reason: %q", d.Reason)
	}
	if provider.called {
		t.Error("LLM should not be consulted when keywords do not match")
	}
}

func TestClassifyRejectsBelowThreshold(t *testing.T) {
	provider := &mockProvider{response: `{"relevant": true, "confidence": 60, "reasoning": "Tangential AI mention"}`}
	c := New(provider, testKeywords(), 85)

	d := c.Classify(context.Background(), feed.Candidate{
		Title:   "Startup adds AI feature to spreadsheet app",
		Summary: "The AI assistant suggests formulas.",
	})

	if d.Relevant {
		t.Error("Expected rejection below confidence threshold")
	}
	if d.Confidence != 60 {
		t.Errorf("Expected confidence 60 preserved, got %d", d.Confidence)
	}
}

func TestClassifyRejectsWhenVerdictNegative(t *testing.T) {
	provider := &mockProvider{response: `{"relevant": false, "confidence": 90, "reasoning": "Business news"}`}
	c := New(provider, testKeywords(), 85)

	d := c.Classify(context.Background(), feed.Candidate{
		Title:   "Anthropic raises funding round",
		Summary: "Investors value the company higher.",
	})

	if d.Relevant {
		t.Error("Expected rejection when verdict is negative regardless of confidence")
	}
}

func TestClassifyParseError(t *testing.T) {
	provider := &mockProvider{response: "I think this article is about AI."}
	c := New(provider, testKeywords(), 85)

	d := c.Classify(context.Background(), feed.Candidate{
		Title:   "AI breakthrough announced",
		Summary: "Researchers publish new results.",
	})

	if d.Relevant {
		t.Error("Expected rejection on unparseable response")
	}
	if d.Reason != "parse error" {
		t.Errorf("Expected parse error reason, got %q", d.Reason)
	}
}

func TestClassifyTransportError(t *testing.T) {
	provider := &mockProvider{err: errors.New("connection refused")}
	c := New(provider, testKeywords(), 85)

	d := c.Classify(context.Background(), feed.Candidate{
		Title:   "AI breakthrough announced",
		Summary: "Researchers publish new results.",
	})

	if d.Relevant {
		t.Error("Expected rejection on transport error")
	}
	if d.Reason != "error: connection refused" {
		t.Errorf("Unexpected reason: %q", d.Reason)
	}
}

func TestClassifyNoProvider(t *testing.T) {
	c := New(nil, testKeywords(), 85)

	d := c.Classify(context.Background(), feed.Candidate{
		Title:   "AI breakthrough announced",
		Summary: "Researchers publish new results.",
	})

	if d.Relevant {
		t.Error("Expected rejection without a provider")
	}
}

func TestClassifyTruncatesSummaryOnRuneBoundary(t *testing.T) {
	provider := &mockProvider{response: `{"relevant": true, "confidence": 90, "reasoning": "x"}`}
	c := New(provider, testKeywords(), 85)

	c.Classify(context.Background(), feed.Candidate{
		Title:   "AI research roundup",
		Summary: strings.Repeat("ü", 600),
	})

	if !utf8.ValidString(provider.prompt) {
		t.Error("Expected prompt to remain valid UTF-8 after truncation")
	}
}

func TestClassifyClampsConfidence(t *testing.T) {
	provider := &mockProvider{response: `{"relevant": true, "confidence": 140, "reasoning": "x"}`}
	c := New(provider, testKeywords(), 85)

	d := c.Classify(context.Background(), feed.Candidate{
		Title:   "AI model sets new record",
		Summary: "Benchmarks improve across the board.",
	})

	if d.Confidence != 100 {
		t.Errorf("Expected confidence clamped to 100, got %d", d.Confidence)
	}
}
