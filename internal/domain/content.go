package domain

import "time"

// ContentItem is a normalized article fetched from a client's source.
// PublishedAt is UTC; the zero value means the source date was missing or unparsable.
type ContentItem struct {
	ID          string
	Title       string
	Link        string
	ImageURL    string
	PublishedAt time.Time
}

// ScoredItem pairs an item with its engagement score.
type ScoredItem struct {
	Item  ContentItem
	Score float64
}

// Post is what gets handed to the social publisher.
type Post struct {
	Item    ContentItem
	Caption string
}

// Session is an authenticated handle on a social account, valid for one run.
type Session struct {
	AccountID string
	Username  string
	Token     string
}

// AccountStats are the account-level counters reported by the social network.
type AccountStats struct {
	Followers  int64
	Following  int64
	MediaCount int64
}

// Report is a rendered summary ready for delivery.
type Report struct {
	Recipient  string
	ClientName string
	Subject    string
	Body       string
}
