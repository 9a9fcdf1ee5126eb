package store

import (
	"database/sql"
	"time"
)

const subscriberColumns = `id, chat_id, username, first_name, last_name,
	is_active, subscribed_at, unsubscribed_at, created_at, updated_at`

// Subscribe creates or reactivates a subscriber for the given chat.
// Subscribing an already-active chat is a no-op; the returned outcome
// tells the caller which of the three cases applied.
func (db *DB) Subscribe(chatID string, username, firstName, lastName *string) (SubscribeOutcome, error) {
	existing, err := db.SubscriberByChatID(chatID)
	if err != nil {
		return SubscribeCreated, err
	}

	if existing == nil {
		_, err := db.conn.Exec(
			`INSERT INTO subscribers (chat_id, username, first_name, last_name) VALUES (?, ?, ?, ?)`,
			chatID, username, firstName, lastName,
		)
		return SubscribeCreated, err
	}

	if existing.IsActive {
		return SubscribeAlreadyActive, nil
	}

	_, err = db.conn.Exec(
		`UPDATE subscribers SET is_active = 1, subscribed_at = ?, unsubscribed_at = NULL,
		updated_at = datetime('now') WHERE chat_id = ?`,
		FormatTime(time.Now()), chatID,
	)
	return SubscribeReactivated, err
}

// Unsubscribe deactivates a subscriber. Returns false when the chat was
// not actively subscribed; that is not an error.
func (db *DB) Unsubscribe(chatID string) (bool, error) {
	existing, err := db.SubscriberByChatID(chatID)
	if err != nil {
		return false, err
	}
	if existing == nil || !existing.IsActive {
		return false, nil
	}

	_, err = db.conn.Exec(
		`UPDATE subscribers SET is_active = 0, unsubscribed_at = ?, updated_at = datetime('now')
		WHERE chat_id = ?`,
		FormatTime(time.Now()), chatID,
	)
	return true, err
}

// SubscriberByChatID returns a subscriber, or nil if absent.
func (db *DB) SubscriberByChatID(chatID string) (*Subscriber, error) {
	row := db.conn.QueryRow(
		"SELECT "+subscriberColumns+" FROM subscribers WHERE chat_id = ?", chatID,
	)
	s, err := scanSubscriberRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ActiveSubscribers returns all currently active subscribers.
func (db *DB) ActiveSubscribers() ([]Subscriber, error) {
	rows, err := db.conn.Query(
		"SELECT " + subscriberColumns + " FROM subscribers WHERE is_active = 1 ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscribers(rows)
}

// AllSubscribers returns every subscriber, active or not.
func (db *DB) AllSubscribers() ([]Subscriber, error) {
	rows, err := db.conn.Query(
		"SELECT " + subscriberColumns + " FROM subscribers ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscribers(rows)
}

func scanSubscriberRow(s rowScanner) (*Subscriber, error) {
	var sub Subscriber
	var active int
	if err := s.Scan(&sub.ID, &sub.ChatID, &sub.Username, &sub.FirstName,
		&sub.LastName, &active, &sub.SubscribedAt, &sub.UnsubscribedAt,
		&sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	sub.IsActive = active != 0
	return &sub, nil
}

func scanSubscribers(rows *sql.Rows) ([]Subscriber, error) {
	var subs []Subscriber
	for rows.Next() {
		s, err := scanSubscriberRow(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}
