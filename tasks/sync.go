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

// Package tasks hosts background jobs of the recommendation service.
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/visey-io/visey/base/log"
	"github.com/visey-io/visey/storage/cache"
	"github.com/visey-io/visey/storage/data"
)

// Catalog supplies the full resource list.
type Catalog interface {
	GetResources(ctx context.Context) ([]data.Resource, error)
}

// CatalogSync periodically refreshes the resource cache from the catalog
// source so that recommendation requests rarely pay the fetch cost. A failed
// refresh keeps the previous cache content and is retried on the next tick.
type CatalogSync struct {
	catalog  Catalog
	cache    *cache.ResourceCache
	interval time.Duration
}

// NewCatalogSync creates a catalog sync job.
func NewCatalogSync(catalog Catalog, resourceCache *cache.ResourceCache, interval time.Duration) *CatalogSync {
	return &CatalogSync{
		catalog:  catalog,
		cache:    resourceCache,
		interval: interval,
	}
}

// Run refreshes the cache once immediately and then on every tick until the
// context is canceled.
func (s *CatalogSync) Run(ctx context.Context) {
	s.refresh(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Logger().Info("catalog sync stopped")
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *CatalogSync) refresh(ctx context.Context) {
	start := time.Now()
	resources, err := s.catalog.GetResources(ctx)
	if err != nil {
		log.Logger().Error("failed to refresh catalog", zap.Error(err))
		return
	}
	if err = s.cache.SetResources(ctx, resources); err != nil {
		log.Logger().Error("failed to update resource cache", zap.Error(err))
		return
	}
	log.Logger().Info("catalog refreshed",
		zap.Int("n_resources", len(resources)),
		zap.Duration("used_time", time.Since(start)))
}
