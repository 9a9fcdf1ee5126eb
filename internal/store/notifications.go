package store

// LogNotification appends one delivery attempt to the audit log. The log
// is write-only from the pipeline's point of view; nothing reads it back
// during processing.
func (db *DB) LogNotification(articleID int64, chatID string, success bool, errText string) error {
	var errPtr *string
	if errText != "" {
		errPtr = &errText
	}
	_, err := db.conn.Exec(
		"INSERT INTO notification_log (article_id, chat_id, success, error) VALUES (?, ?, ?, ?)",
		articleID, chatID, success, errPtr,
	)
	return err
}

// NotificationsForArticle returns the logged delivery attempts for one
// article, oldest first. Used by diagnostics, not by the pipeline.
func (db *DB) NotificationsForArticle(articleID int64) ([]NotificationRecord, error) {
	rows, err := db.conn.Query(
		`SELECT id, article_id, chat_id, sent_at, success, error
		FROM notification_log WHERE article_id = ? ORDER BY id`, articleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []NotificationRecord
	for rows.Next() {
		var r NotificationRecord
		var success int
		if err := rows.Scan(&r.ID, &r.ArticleID, &r.ChatID, &r.SentAt, &success, &r.Error); err != nil {
			return nil, err
		}
		r.Success = success != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetStats returns aggregate counts across all tables.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	queries := []struct {
		dest  *int
		query string
	}{
		{&s.TotalArticles, "SELECT COUNT(*) FROM articles"},
		{&s.RelevantArticles, "SELECT COUNT(*) FROM articles WHERE is_relevant = 1"},
		{&s.VerifiedArticles, "SELECT COUNT(*) FROM articles WHERE is_verified = 1"},
		{&s.NotifiedArticles, "SELECT COUNT(*) FROM articles WHERE notification_sent = 1"},
		{&s.TotalSubscribers, "SELECT COUNT(*) FROM subscribers"},
		{&s.ActiveSubscribers, "SELECT COUNT(*) FROM subscribers WHERE is_active = 1"},
		{&s.NotificationsSent, "SELECT COUNT(*) FROM notification_log WHERE success = 1"},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return s, nil
}
