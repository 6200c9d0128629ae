package datasets

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ShardCache keeps up to a fixed number of loaded shards keyed by address,
// evicting the least recently used. The reader consults it before touching
// the filesystem.
type ShardCache struct {
	shards *lru.Cache[ShardAddr, *Shard]
}

// NewShardCache creates a cache holding at most capacity shards.
func NewShardCache(capacity int) (*ShardCache, error) {
	shards, err := lru.New[ShardAddr, *Shard](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create shard cache: %w", err)
	}
	return &ShardCache{shards: shards}, nil
}

// Get returns the cached shard at addr and marks it recently used.
func (c *ShardCache) Get(addr ShardAddr) (*Shard, bool) {
	return c.shards.Get(addr)
}

// Add stores s under its own address.
func (c *ShardCache) Add(s *Shard) {
	c.shards.Add(s.Addr, s)
}

func (c *ShardCache) Len() int {
	return c.shards.Len()
}

// Purge drops every cached shard.
func (c *ShardCache) Purge() {
	c.shards.Purge()
}
