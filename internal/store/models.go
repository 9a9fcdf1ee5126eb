package store

// Article is a tracked article. One row exists per canonical URL; the
// relevance decision and credibility snapshot are written once at
// creation and never change afterwards.
type Article struct {
	ID                 int64
	URL                string
	Title              string
	SourceName         string
	SourceDomain       string
	PublishedAt        string
	Content            *string
	Summary            *string
	IsRelevant         bool
	Confidence         int
	Credibility        int
	IsVerified         bool
	VerificationReason *string
	NotificationSent   bool
	SentAt             *string
	CreatedAt          *string
	UpdatedAt          *string
}

// Subscriber is a chat subscriber. Rows are never deleted; the active
// flag toggles with subscribe/unsubscribe.
type Subscriber struct {
	ID             int64
	ChatID         string
	Username       *string
	FirstName      *string
	LastName       *string
	IsActive       bool
	SubscribedAt   *string
	UnsubscribedAt *string
	CreatedAt      *string
	UpdatedAt      *string
}

// NotificationRecord is one row of the append-only delivery log.
type NotificationRecord struct {
	ID        int64
	ArticleID int64
	ChatID    string
	SentAt    *string
	Success   bool
	Error     *string
}

// SubscribeOutcome describes what a subscribe call did.
type SubscribeOutcome int

const (
	// SubscribeCreated means a new subscriber row was created.
	SubscribeCreated SubscribeOutcome = iota
	// SubscribeReactivated means an inactive subscriber was flipped
	// back to active.
	SubscribeReactivated
	// SubscribeAlreadyActive means the subscriber was already active
	// and nothing changed.
	SubscribeAlreadyActive
)

// Stats contains aggregate database statistics.
type Stats struct {
	TotalArticles     int
	RelevantArticles  int
	VerifiedArticles  int
	NotifiedArticles  int
	TotalSubscribers  int
	ActiveSubscribers int
	NotificationsSent int
}
