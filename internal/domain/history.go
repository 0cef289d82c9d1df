package domain

import "time"

// SearchHistoryEntry is an append-only record of one search call. Results
// holds the surfaced tool IDs in ranked order at query time; entries are
// never mutated after creation.
type SearchHistoryEntry struct {
	ID        string
	Query     string
	Results   []string
	CreatedAt time.Time
}
