package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
	"course-marketplace/internal/infra/metrics"
	red "course-marketplace/internal/infra/redis"
)

var _ repository.CourseRepository = (*courseRepoCacheDecorator)(nil)

// courseRepoCacheDecorator caches catalog reads in Redis. Inventory writes
// invalidate the cached row since the counter changed underneath it.
type courseRepoCacheDecorator struct {
	inner repository.CourseRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewCourseRepoCacheDecorator(inner repository.CourseRepository, cache red.RedisClient, ttl time.Duration) repository.CourseRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &courseRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func courseKey(id string) string { return fmt.Sprintf("course:%s", id) }

func (d *courseRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Course, error) {
	// Transactional reads bypass the cache: settlement must see current rows.
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}

	key := courseKey(id)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var c model.Course
		if json.Unmarshal([]byte(val), &c) == nil {
			metrics.IncCacheRequest("course", "hit")
			return &c, nil
		}
	}

	metrics.IncCacheRequest("course", "miss")
	c, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if c != nil {
		if bytes, err := json.Marshal(c); err == nil {
			_ = d.cache.Set(ctx, key, bytes, d.ttl)
		}
	}
	return c, nil
}

func (d *courseRepoCacheDecorator) DecrementInventory(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	_ = d.cache.Del(ctx, courseKey(id))
	return d.inner.DecrementInventory(ctx, tx, id)
}
