package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps an existing rueidis client, used by tests.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
