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

package logics

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"github.com/visey-io/visey/storage/data"
)

func TestTopResources(t *testing.T) {
	feedback := []data.Feedback{
		{UserId: 1, ResourceId: 100, Rating: lo.ToPtr(int32(5))},
		{UserId: 2, ResourceId: 100, Rating: lo.ToPtr(int32(4))},
		{UserId: 3, ResourceId: 101, Rating: lo.ToPtr(int32(3))},
	}
	top := TopResources(feedback, 10)
	assert.Len(t, top, 2)
	// resource 100: 2 + 0.5*(4.5-3) = 2.75
	assert.Equal(t, int64(100), top[0].ResourceId)
	assert.InDelta(t, 2.75, top[0].Score, 1e-6)
	// resource 101: 1 + 0.5*(3-3) = 1
	assert.Equal(t, int64(101), top[1].ResourceId)
	assert.InDelta(t, 1, top[1].Score, 1e-6)
}

func TestTopResourcesImplicitOnly(t *testing.T) {
	// Unrated interactions average to the neutral rating, so the score
	// degenerates to the interaction count.
	feedback := []data.Feedback{
		{UserId: 1, ResourceId: 100},
		{UserId: 2, ResourceId: 100},
		{UserId: 3, ResourceId: 101},
	}
	top := TopResources(feedback, 10)
	assert.Len(t, top, 2)
	assert.Equal(t, int64(100), top[0].ResourceId)
	assert.InDelta(t, 2, top[0].Score, 1e-6)
	assert.InDelta(t, 1, top[1].Score, 1e-6)
}

func TestTopResourcesBounded(t *testing.T) {
	var feedback []data.Feedback
	for resourceId := int64(0); resourceId < 20; resourceId++ {
		for userId := int64(0); userId <= resourceId; userId++ {
			feedback = append(feedback, data.Feedback{UserId: userId, ResourceId: resourceId})
		}
	}
	top := TopResources(feedback, 5)
	assert.Len(t, top, 5)
	assert.Equal(t, int64(19), top[0].ResourceId)
	assert.Equal(t, int64(15), top[4].ResourceId)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Score, top[i].Score)
	}
}

func TestTopResourcesEmpty(t *testing.T) {
	assert.Empty(t, TopResources(nil, 10))
}
