// Copyright 2025 visey Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache holds the resource catalog between WordPress syncs so that
// recommendation requests never wait on the content API.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/visey-io/visey/base/log"
	"github.com/visey-io/visey/storage/data"
)

const resourcesKey = "visey:resources"

// ResourceCache is a TTL'd cache of the resource catalog with an optional
// shared Redis tier. The in-process tier always runs; the Redis tier is
// enabled by a non-empty URL and lets replicas share one synced catalog.
type ResourceCache struct {
	local *ttlcache.Cache[string, []data.Resource]
	redis *redis.Client
	ttl   time.Duration
}

// Open creates a ResourceCache. An empty redisURL disables the Redis tier.
func Open(redisURL string, ttl time.Duration) (*ResourceCache, error) {
	c := &ResourceCache{
		local: ttlcache.New[string, []data.Resource](
			ttlcache.WithTTL[string, []data.Resource](ttl),
			ttlcache.WithDisableTouchOnHit[string, []data.Resource](),
		),
		ttl: ttl,
	}
	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, errors.Trace(err)
		}
		c.redis = redis.NewClient(opts)
	}
	go c.local.Start()
	return c, nil
}

// SetResources replaces the cached catalog in every tier.
func (c *ResourceCache) SetResources(ctx context.Context, resources []data.Resource) error {
	c.local.Set(resourcesKey, resources, c.ttl)
	if c.redis != nil {
		payload, err := json.Marshal(resources)
		if err != nil {
			return errors.Trace(err)
		}
		if err = c.redis.Set(ctx, resourcesKey, payload, c.ttl).Err(); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// GetResources returns the cached catalog. The second return value reports a
// hit. A Redis hit warms the in-process tier.
func (c *ResourceCache) GetResources(ctx context.Context) ([]data.Resource, bool) {
	if item := c.local.Get(resourcesKey); item != nil && !item.IsExpired() {
		return item.Value(), true
	}
	if c.redis != nil {
		payload, err := c.redis.Get(ctx, resourcesKey).Bytes()
		if err == nil {
			var resources []data.Resource
			if err = json.Unmarshal(payload, &resources); err == nil {
				c.local.Set(resourcesKey, resources, c.ttl)
				return resources, true
			}
			log.Logger().Warn("corrupted resource cache entry", zap.Error(err))
		} else if err != redis.Nil {
			log.Logger().Warn("failed to read resource cache", zap.Error(err))
		}
	}
	return nil, false
}

// Close stops the in-process janitor and closes the Redis connection.
func (c *ResourceCache) Close() error {
	c.local.Stop()
	if c.redis != nil {
		return errors.Trace(c.redis.Close())
	}
	return nil
}
