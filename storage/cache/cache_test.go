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

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visey-io/visey/storage/data"
)

func TestResourceCache(t *testing.T) {
	c, err := Open("", time.Minute)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	_, hit := c.GetResources(ctx)
	assert.False(t, hit)

	resources := []data.Resource{
		{Id: 1, Title: "Funding 101", Categories: []string{"funding"}},
		{Id: 2, Title: "Hiring", Tags: []string{"team"}},
	}
	require.NoError(t, c.SetResources(ctx, resources))
	cached, hit := c.GetResources(ctx)
	assert.True(t, hit)
	assert.Equal(t, resources, cached)
}

func TestResourceCache_Expiry(t *testing.T) {
	c, err := Open("", 10*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.SetResources(ctx, []data.Resource{{Id: 1}}))
	time.Sleep(20 * time.Millisecond)
	_, hit := c.GetResources(ctx)
	assert.False(t, hit)
}

func TestResourceCache_BadRedisURL(t *testing.T) {
	_, err := Open("redis://[::1]:namedport", time.Minute)
	assert.Error(t, err)
}
