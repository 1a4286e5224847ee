// Package events remembers which call events were already handled so repeated
// webhook deliveries are acknowledged without reprocessing.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProviderRetell names the call platform in dedup keys and rows.
const ProviderRetell = "retell"

const (
	dedupKeyPrefix  = "pharmacy:processed:"
	defaultDedupTTL = 72 * time.Hour
)

// RedisDeduper claims event ids with SET NX so only the first delivery wins.
type RedisDeduper struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisDeduper returns a deduper backed by rdb. A non-positive ttl uses the
// default retention.
func NewRedisDeduper(rdb redis.Cmdable, ttl time.Duration) *RedisDeduper {
	if rdb == nil {
		panic("events: redis client required")
	}
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func dedupKey(provider, eventID string) string {
	return dedupKeyPrefix + provider + ":" + eventID
}

// Claim reports true when this is the first time eventID has been seen.
func (d *RedisDeduper) Claim(ctx context.Context, eventID string) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, errors.New("events: event id required")
	}
	ok, err := d.rdb.SetNX(ctx, dedupKey(ProviderRetell, eventID), time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("events: claim %s: %w", eventID, err)
	}
	return ok, nil
}

// Release forgets a claim so a later delivery is processed again.
func (d *RedisDeduper) Release(ctx context.Context, eventID string) error {
	if err := d.rdb.Del(ctx, dedupKey(ProviderRetell, strings.TrimSpace(eventID))).Err(); err != nil {
		return fmt.Errorf("events: release %s: %w", eventID, err)
	}
	return nil
}
