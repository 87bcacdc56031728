package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/usecase"
)

// PropertyCache is a read-through cache in front of the property registry.
// Every use case checks ownership through it, so most requests hit Redis
// instead of the registry table. Cache failures fall back to the source.
type PropertyCache struct {
	client *redis.Client
	source usecase.PropertyRepository
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

// NewPropertyCache wraps source with a Redis cache.
func NewPropertyCache(client *redis.Client, source usecase.PropertyRepository, ttl time.Duration, logger zerolog.Logger) *PropertyCache {
	return &PropertyCache{
		client: client,
		source: source,
		ttl:    ttl,
		prefix: "rentledger:property:",
		logger: logger,
	}
}

type cachedProperty struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// GetByID returns the cached property or loads it from the source.
func (c *PropertyCache) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	key := c.prefix + id

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cp cachedProperty
		if err := json.Unmarshal(data, &cp); err == nil {
			return &domain.Property{
				ID:        cp.ID,
				OwnerID:   cp.OwnerID,
				Name:      cp.Name,
				IsActive:  cp.IsActive,
				CreatedAt: cp.CreatedAt,
			}, nil
		}
		c.logger.Warn().Str("property_id", id).Msg("dropping undecodable cached property")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Str("property_id", id).Msg("property cache read failed")
	}

	property, err := c.source.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(cachedProperty{
		ID:        property.ID,
		OwnerID:   property.OwnerID,
		Name:      property.Name,
		IsActive:  property.IsActive,
		CreatedAt: property.CreatedAt,
	})
	if err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Str("property_id", id).Msg("property cache write failed")
		}
	}

	return property, nil
}

// Invalidate drops a cached property.
func (c *PropertyCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.prefix+id).Err()
}
