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
	"sort"

	"github.com/visey-io/visey/base/heap"
	"github.com/visey-io/visey/storage/data"
)

// neutralRating substitutes for absent ratings when averaging.
const neutralRating = 3

// ItemPop is a resource with its popularity score.
type ItemPop struct {
	ResourceId int64
	Score      float32
}

// TopResources blends interaction counts with average ratings into a
// popularity score and returns the top n resources, highest first. Items
// without any explicit rating average to the neutral value.
//
// score = count + 0.5 * (avg_rating - 3)
func TopResources(feedback []data.Feedback, n int) []ItemPop {
	if len(feedback) == 0 {
		return nil
	}
	counts := make(map[int64]int)
	ratingSums := make(map[int64]int)
	ratingCounts := make(map[int64]int)
	for _, f := range feedback {
		counts[f.ResourceId]++
		if f.Rating != nil {
			ratingSums[f.ResourceId] += int(*f.Rating)
			ratingCounts[f.ResourceId]++
		}
	}
	pq := heap.NewPriorityQueue(false)
	for resourceId, count := range counts {
		avgRating := float32(neutralRating)
		if ratingCounts[resourceId] > 0 {
			avgRating = float32(ratingSums[resourceId]) / float32(ratingCounts[resourceId])
		}
		score := float32(count) + 0.5*(avgRating-neutralRating)
		pq.Push(resourceId, score)
		if pq.Len() > n {
			pq.Pop()
		}
	}
	top := make([]ItemPop, 0, pq.Len())
	for pq.Len() > 0 {
		resourceId, score := pq.Pop()
		top = append(top, ItemPop{ResourceId: resourceId, Score: score})
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Score > top[j].Score
	})
	return top
}
