package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const articleColumns = `id, url, title, source_name, source_domain, published_at,
	content, summary, is_relevant, confidence, credibility, is_verified,
	verification_reason, notification_sent, sent_at, created_at, updated_at`

// ExistsByURL reports whether an article with the given URL is already
// tracked. This is the dedup authority for the pipeline.
func (db *DB) ExistsByURL(url string) (bool, error) {
	var one int
	err := db.conn.QueryRow("SELECT 1 FROM articles WHERE url = ?", url).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertArticle creates a new tracked article with its full relevance and
// credibility snapshot. Returns the new ID, or 0 if the URL already exists.
func (db *DB) InsertArticle(a Article) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO articles (url, title, source_name, source_domain, published_at,
			content, is_relevant, confidence, credibility, is_verified, verification_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.URL, a.Title, a.SourceName, a.SourceDomain, a.PublishedAt,
		a.Content, a.IsRelevant, a.Confidence, a.Credibility, a.IsVerified, a.VerificationReason,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, nil
		}
		return 0, fmt.Errorf("inserting article: %w", err)
	}
	return result.LastInsertId()
}

// UpdateSummary stores the generated summary for an article.
func (db *DB) UpdateSummary(articleID int64, summary string) error {
	_, err := db.conn.Exec(
		"UPDATE articles SET summary = ?, updated_at = datetime('now') WHERE id = ?",
		summary, articleID,
	)
	return err
}

// UpdateContent replaces the raw content for an article, typically after
// full-text enrichment.
func (db *DB) UpdateContent(articleID int64, content string) error {
	_, err := db.conn.Exec(
		"UPDATE articles SET content = ?, updated_at = datetime('now') WHERE id = ?",
		content, articleID,
	)
	return err
}

// MarkNotified flags an article as delivered and records when.
func (db *DB) MarkNotified(articleID int64, at time.Time) error {
	_, err := db.conn.Exec(
		`UPDATE articles SET notification_sent = 1, sent_at = ?, updated_at = datetime('now')
		WHERE id = ?`,
		FormatTime(at), articleID,
	)
	return err
}

// RecentVerifiedRelevant returns verified, relevant articles published
// within the trailing window, newest first, capped at limit.
func (db *DB) RecentVerifiedRelevant(windowHours, limit int) ([]Article, error) {
	rows, err := db.conn.Query(
		fmt.Sprintf(`SELECT %s FROM articles
		WHERE is_relevant = 1 AND is_verified = 1
		AND published_at >= datetime('now', ?)
		ORDER BY published_at DESC LIMIT ?`, articleColumns),
		fmt.Sprintf("-%d hours", windowHours), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// RecentArticles returns the most recently tracked articles, newest first.
func (db *DB) RecentArticles(limit int) ([]Article, error) {
	rows, err := db.conn.Query(
		fmt.Sprintf("SELECT %s FROM articles ORDER BY created_at DESC, id DESC LIMIT ?", articleColumns),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// ArticleByID returns a single article, or nil if not found.
func (db *DB) ArticleByID(articleID int64) (*Article, error) {
	row := db.conn.QueryRow(
		fmt.Sprintf("SELECT %s FROM articles WHERE id = ?", articleColumns), articleID,
	)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ArticleByURL returns a single article, or nil if not found.
func (db *DB) ArticleByURL(url string) (*Article, error) {
	row := db.conn.QueryRow(
		fmt.Sprintf("SELECT %s FROM articles WHERE url = ?", articleColumns), url,
	)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticleRow(s rowScanner) (*Article, error) {
	var a Article
	var relevant, verified, notified int
	if err := s.Scan(&a.ID, &a.URL, &a.Title, &a.SourceName, &a.SourceDomain,
		&a.PublishedAt, &a.Content, &a.Summary, &relevant, &a.Confidence,
		&a.Credibility, &verified, &a.VerificationReason, &notified,
		&a.SentAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.IsRelevant = relevant != 0
	a.IsVerified = verified != 0
	a.NotificationSent = notified != 0
	return &a, nil
}

func scanArticles(rows *sql.Rows) ([]Article, error) {
	var articles []Article
	for rows.Next() {
		a, err := scanArticleRow(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

func scanArticle(row *sql.Row) (*Article, error) {
	return scanArticleRow(row)
}
