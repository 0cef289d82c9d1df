package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps an existing client (e.g. a rueidis mock) in a Store.
func NewStoreForTest(client rueidis.Client) *Store {
	return &Store{client: client}
}
