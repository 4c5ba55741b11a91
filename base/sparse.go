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

package base

// NotId represents an ID that doesn't exist.
const NotId = -1

// SparseIdSet manages the map between sparse IDs and dense IDs. The sparse ID
// is the raw user ID or item ID. The dense ID is the internal index optimized
// for faster parameter access and less memory usage.
type SparseIdSet struct {
	DenseIds  map[int64]int // sparse ID -> dense ID
	SparseIds []int64       // dense ID -> sparse ID
}

// NewSparseIdSet creates a SparseIdSet.
func NewSparseIdSet() *SparseIdSet {
	return &SparseIdSet{
		DenseIds:  make(map[int64]int),
		SparseIds: make([]int64, 0),
	}
}

// Len returns the number of IDs in the set.
func (set *SparseIdSet) Len() int {
	if set == nil {
		return 0
	}
	return len(set.SparseIds)
}

// Add adds a sparse ID. Duplicate IDs take no effect.
func (set *SparseIdSet) Add(sparseId int64) {
	if _, exist := set.DenseIds[sparseId]; !exist {
		set.DenseIds[sparseId] = len(set.SparseIds)
		set.SparseIds = append(set.SparseIds, sparseId)
	}
}

// ToDenseId converts a sparse ID to a dense ID. NotId is returned for an
// unknown sparse ID.
func (set *SparseIdSet) ToDenseId(sparseId int64) int {
	if set == nil {
		return NotId
	}
	if denseId, exist := set.DenseIds[sparseId]; exist {
		return denseId
	}
	return NotId
}

// ToSparseId converts a dense ID back to its sparse ID.
func (set *SparseIdSet) ToSparseId(denseId int) int64 {
	return set.SparseIds[denseId]
}
