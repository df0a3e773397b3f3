package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meetly/meetly/internal/model"
)

// Cache key prefixes and TTLs.
const (
	joinKeyPrefix     = "meeting:join:"
	negCacheKeySuffix = ":neg"

	// DefaultMeetingTTL is the TTL for cached join lookups when
	// Options.JoinTTL is unset.
	DefaultMeetingTTL = time.Hour

	// NegativeCacheTTL is the default TTL for negative entries.
	NegativeCacheTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetMeetingByLink retrieves a cached meeting by public link id.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetMeetingByLink(ctx context.Context, linkID string) (*model.Meeting, error) {
	cmd := c.client.HGetAll(ctx, joinKey(linkID))
	result, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	var cached model.CachedMeeting
	if err := cmd.Scan(&cached); err != nil {
		return nil, fmt.Errorf("decode cached meeting: %w", err)
	}

	return cached.ToMeeting(linkID), nil
}

// SetMeeting stores a meeting under its public link and clears any
// negative entry.
func (c *Cache) SetMeeting(ctx context.Context, m *model.Meeting) error {
	key := joinKey(m.PublicLinkID)

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, m.ToCachedMeeting())
	pipe.Expire(ctx, key, c.joinTTL)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache meeting: %w", err)
	}

	return nil
}

// DeleteMeeting evicts the cached entries for the given public links.
func (c *Cache) DeleteMeeting(ctx context.Context, linkIDs ...string) error {
	if len(linkIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, 2*len(linkIDs))
	for _, id := range linkIDs {
		key := joinKey(id)
		keys = append(keys, key, key+negCacheKeySuffix)
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete meeting from cache: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if a public link is in negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, linkID string) (bool, error) {
	exists, err := c.client.Exists(ctx, joinKey(linkID)+negCacheKeySuffix).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks a public link as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, linkID string) error {
	err := c.client.SetEx(ctx, joinKey(linkID)+negCacheKeySuffix, "", c.negativeTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}

func joinKey(linkID string) string {
	return joinKeyPrefix + linkID
}
