package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"customerSegments/business/segmentation"
	"customerSegments/domain"

	"github.com/redis/go-redis/v9"
)

// cachedSegments is the stored form of one tenant's segment set.
type cachedSegments struct {
	Axes     map[string][]domain.DiscoveredSegment `json:"axes"`
	CachedAt time.Time                             `json:"cached_at"`
}

type SegmentCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ segmentation.SegmentCache = (*SegmentCache)(nil)

func NewSegmentCache(client *redis.Client, ttl time.Duration) *SegmentCache {
	return &SegmentCache{
		client: client,
		ttl:    ttl,
	}
}

func segmentsKey(tenantID string) string {
	return fmt.Sprintf("segments:tenant:%s", tenantID)
}

func (c *SegmentCache) Get(ctx context.Context, tenantID string) (map[string][]domain.DiscoveredSegment, bool, error) {
	val, err := c.client.Get(ctx, segmentsKey(tenantID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get segments from Redis: %w", err)
	}

	var cached cachedSegments
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached segments: %w", err)
	}
	return cached.Axes, true, nil
}

func (c *SegmentCache) Set(ctx context.Context, tenantID string, segments map[string][]domain.DiscoveredSegment) error {
	jsonData, err := json.Marshal(cachedSegments{Axes: segments, CachedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal segments: %w", err)
	}

	if err := c.client.Set(ctx, segmentsKey(tenantID), jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store segments in Redis: %w", err)
	}
	return nil
}

func (c *SegmentCache) Invalidate(ctx context.Context, tenantID string) error {
	if err := c.client.Del(ctx, segmentsKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate segments: %w", err)
	}
	return nil
}
