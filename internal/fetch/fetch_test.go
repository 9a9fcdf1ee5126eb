package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Test Article</title></head>
<body>
<nav>Home | About | Contact</nav>
<article>
<h1>AI Lab Ships New Model</h1>
<p>%s</p>
</article>
<footer>Copyright</footer>
</body>
</html>`

func TestExtract(t *testing.T) {
	body := strings.Repeat("The model posts strong results across reasoning benchmarks. ", 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, articleHTML, body)
	}))
	defer srv.Close()

	e := NewEnricher(5 * time.Second)
	text, err := e.Extract(context.Background(), srv.URL+"/article")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !strings.Contains(text, "strong results across reasoning benchmarks") {
		t.Errorf("Expected article body in extracted text, got %q", text)
	}
	if strings.Contains(text, "Home | About") {
		t.Errorf("Expected navigation chrome stripped, got %q", text)
	}
}

func TestExtractShortContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, articleHTML, "Too short.")
	}))
	defer srv.Close()

	e := NewEnricher(5 * time.Second)
	text, err := e.Extract(context.Background(), srv.URL+"/article")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if text != "" {
		t.Errorf("Expected empty text for thin page, got %q", text)
	}
}

func TestExtractHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	e := NewEnricher(5 * time.Second)
	if _, err := e.Extract(context.Background(), srv.URL+"/article"); err == nil {
		t.Error("Expected error for HTTP 403")
	}
}

func TestExtractConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	e := NewEnricher(time.Second)
	if _, err := e.Extract(context.Background(), srv.URL); err == nil {
		t.Error("Expected error for unreachable server")
	}
}
