package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hiroki-koketsu/go-taskboard/internal/model"
	"github.com/hiroki-koketsu/go-taskboard/internal/taskform"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const categoryKeyPrefix = "taskboard:category:"

// CachedLookup serves category look-ups from Redis before falling back to the
// wrapped Lookup. Worker look-ups always go to the wrapped Lookup.
type CachedLookup struct {
	taskform.Lookup
	rc     *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedLookup creates a CachedLookup. Entries expire after ttl.
func NewCachedLookup(next taskform.Lookup, rc *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedLookup {
	return &CachedLookup{
		Lookup: next,
		rc:     rc,
		ttl:    ttl,
		logger: logger,
	}
}

func categoryKey(id int64) string {
	return fmt.Sprintf("%s%d", categoryKeyPrefix, id)
}

// FindCategory returns the cached category or loads and caches it. Redis
// errors are logged and the look-up falls through. Missing categories are not cached.
func (c *CachedLookup) FindCategory(ctx context.Context, id int64) (*model.TaskCategory, error) {
	ctx, span := tracer.Start(ctx, "CachedLookup.FindCategory",
		trace.WithAttributes(attribute.Int64("category.id", id)),
	)
	defer span.End()

	key := categoryKey(id)
	data, err := c.rc.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var category model.TaskCategory
		if err := json.Unmarshal(data, &category); err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return &category, nil
		}
		c.logger.WarnContext(ctx, "discarding malformed cached category", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "category cache read failed", slog.String("key", key), slog.Any("error", err))
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	category, err := c.Lookup.FindCategory(ctx, id)
	if err != nil || category == nil {
		return category, err
	}

	data, err = json.Marshal(category)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task category: %w", err)
	}
	if err := c.rc.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "category cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return category, nil
}
