// Package statcache caches backend dashboard aggregates in Redis so the
// deck can keep serving the last known numbers while the backend is slow
// or unreachable. A nil cache is valid and caches nothing.
package statcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"courierdeck/feed"
	"courierdeck/upstream"
)

// TTL bounds how stale a served aggregate can be.
const TTL = 5 * time.Minute

type Cache struct {
	client *redis.Client
}

func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func statsKey(scope, startDate, endDate string) string {
	return fmt.Sprintf("courierdeck:stats:%s:%s:%s", scope, startDate, endDate)
}

func userStatsKey(userID, timeframe, startDate, endDate string) string {
	return fmt.Sprintf("courierdeck:userstats:%s:%s:%s:%s", userID, timeframe, startDate, endDate)
}

const feedStateKey = "courierdeck:feed:state"

// SetStats stores an aggregate report. scope is "admin" or "user".
func (c *Cache) SetStats(ctx context.Context, scope, startDate, endDate string, report *upstream.StatsReport) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsKey(scope, startDate, endDate), data, TTL).Err()
}

// GetStats returns a cached report, or nil on miss.
func (c *Cache) GetStats(ctx context.Context, scope, startDate, endDate string) (*upstream.StatsReport, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, statsKey(scope, startDate, endDate)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var report upstream.StatsReport
	return &report, json.Unmarshal(data, &report)
}

func (c *Cache) SetUserStats(ctx context.Context, userID, timeframe, startDate, endDate string, report *upstream.UserStatsReport) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, userStatsKey(userID, timeframe, startDate, endDate), data, TTL).Err()
}

func (c *Cache) GetUserStats(ctx context.Context, userID, timeframe, startDate, endDate string) (*upstream.UserStatsReport, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, userStatsKey(userID, timeframe, startDate, endDate)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var report upstream.UserStatsReport
	return &report, json.Unmarshal(data, &report)
}

// SetFeedState mirrors the feed's connection state for external monitors.
func (c *Cache) SetFeedState(ctx context.Context, s feed.State) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, feedStateKey, data, 0).Err()
}

func (c *Cache) GetFeedState(ctx context.Context) (*feed.State, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, feedStateKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s feed.State
	return &s, json.Unmarshal(data, &s)
}
