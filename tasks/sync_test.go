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

package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visey-io/visey/storage/cache"
	"github.com/visey-io/visey/storage/data"
)

type mockCatalog struct {
	resources []data.Resource
	err       error
}

func (m *mockCatalog) GetResources(_ context.Context) ([]data.Resource, error) {
	return m.resources, m.err
}

func TestCatalogSyncRefresh(t *testing.T) {
	resourceCache, err := cache.Open("", time.Minute)
	require.NoError(t, err)
	defer resourceCache.Close()
	catalog := &mockCatalog{resources: []data.Resource{{Id: 1, Title: "A"}}}

	sync := NewCatalogSync(catalog, resourceCache, time.Minute)
	sync.refresh(context.Background())

	resources, hit := resourceCache.GetResources(context.Background())
	assert.True(t, hit)
	assert.Equal(t, catalog.resources, resources)
}

func TestCatalogSyncKeepsCacheOnFailure(t *testing.T) {
	resourceCache, err := cache.Open("", time.Minute)
	require.NoError(t, err)
	defer resourceCache.Close()
	catalog := &mockCatalog{resources: []data.Resource{{Id: 1, Title: "A"}}}

	sync := NewCatalogSync(catalog, resourceCache, time.Minute)
	sync.refresh(context.Background())
	catalog.err = errors.New("wordpress is down")
	sync.refresh(context.Background())

	resources, hit := resourceCache.GetResources(context.Background())
	assert.True(t, hit)
	assert.Len(t, resources, 1)
}

func TestCatalogSyncStopsOnCancel(t *testing.T) {
	resourceCache, err := cache.Open("", time.Minute)
	require.NoError(t, err)
	defer resourceCache.Close()

	sync := NewCatalogSync(&mockCatalog{}, resourceCache, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sync.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("catalog sync did not stop")
	}
}
