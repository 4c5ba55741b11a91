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
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/visey-io/visey/storage/data"
)

// CollaborativeScores approximates "users like this one also liked X" with
// item-item Jaccard similarity over co-occurring users, without building a
// full similarity graph. A user with no prior interactions scores 0 for
// every candidate; items the user already consumed score 0 as well.
func CollaborativeScores(userId int64, resources []data.Resource, feedback []data.Feedback) map[int64]float32 {
	scores := make(map[int64]float32, len(resources))
	userItems := mapset.NewThreadUnsafeSet[int64]()
	for _, f := range feedback {
		if f.UserId == userId {
			userItems.Add(f.ResourceId)
		}
	}
	if userItems.Cardinality() == 0 {
		for _, resource := range resources {
			scores[resource.Id] = 0
		}
		return scores
	}
	// item -> set of interacting users
	itemUsers := make(map[int64]mapset.Set[int64])
	for _, f := range feedback {
		users, exist := itemUsers[f.ResourceId]
		if !exist {
			users = mapset.NewThreadUnsafeSet[int64]()
			itemUsers[f.ResourceId] = users
		}
		users.Add(f.UserId)
	}
	for _, resource := range resources {
		if userItems.Contains(resource.Id) {
			scores[resource.Id] = 0
			continue
		}
		candidateUsers := itemUsers[resource.Id]
		var best float32
		for itemId := range userItems.Iter() {
			if sim := jaccard(candidateUsers, itemUsers[itemId]); sim > best {
				best = sim
			}
		}
		scores[resource.Id] = best
	}
	return scores
}

func jaccard(a, b mapset.Set[int64]) float32 {
	if a == nil || b == nil || a.Cardinality() == 0 || b.Cardinality() == 0 {
		return 0
	}
	intersection := a.Intersect(b).Cardinality()
	union := a.Union(b).Cardinality()
	if union == 0 {
		return 0
	}
	return float32(intersection) / float32(union)
}
