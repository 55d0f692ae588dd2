package session

import (
	"context"
	"strconv"
	"time"

	"galaxydistance/internal/cache"
	"galaxydistance/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultViewedMax      = 10
	DefaultViewedPageSize = 4
)

// ViewedTracker remembers the galaxies a guest opened most recently.
type ViewedTracker struct {
	rdb      redis.Cmdable
	max      int
	pageSize int
	ttl      time.Duration
	now      func() time.Time
}

// NewViewedTracker keeps at most maxItems ids per guest, expiring with the guest window ttl.
func NewViewedTracker(rdb redis.Cmdable, maxItems, pageSize int, ttl time.Duration) *ViewedTracker {
	if maxItems <= 0 {
		maxItems = DefaultViewedMax
	}
	if pageSize <= 0 {
		pageSize = DefaultViewedPageSize
	}
	if pageSize > maxItems {
		pageSize = maxItems
	}
	if ttl <= 0 {
		ttl = cache.DefaultGuestSessionTTL
	}
	return &ViewedTracker{rdb: rdb, max: maxItems, pageSize: pageSize, ttl: ttl, now: time.Now}
}

// WithClock replaces the clock used to order views.
func (t *ViewedTracker) WithClock(now func() time.Time) *ViewedTracker {
	t.now = now
	return t
}

// Record marks galaxyID as viewed now. Re-viewing moves it to the front.
func (t *ViewedTracker) Record(ctx context.Context, guestToken string, galaxyID uint) error {
	if guestToken == "" {
		return nil
	}
	key := cache.ViewedKey(guestToken)

	_, err := t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(t.now().UnixMicro()),
			Member: strconv.FormatUint(uint64(galaxyID), 10),
		})
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-t.max-1))
		pipe.Expire(ctx, key, t.ttl)
		return nil
	})
	if err != nil {
		return models.NewDependencyError("session store", err)
	}
	return nil
}

// Recent returns up to count galaxy ids, newest first. count outside [1, max]
// is replaced by the page size or clamped to max.
func (t *ViewedTracker) Recent(ctx context.Context, guestToken string, count int) ([]uint, error) {
	if guestToken == "" {
		return []uint{}, nil
	}
	if count <= 0 {
		count = t.pageSize
	}
	if count > t.max {
		count = t.max
	}

	members, err := t.rdb.ZRevRange(ctx, cache.ViewedKey(guestToken), 0, int64(count-1)).Result()
	if err != nil {
		return nil, models.NewDependencyError("session store", err)
	}

	ids := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil || id == 0 {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}
