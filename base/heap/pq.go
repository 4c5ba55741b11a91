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

package heap

import (
	"container/heap"

	"github.com/chewxy/math32"
	"github.com/scylladb/go-set/i64set"
	"golang.org/x/exp/constraints"
)

type Elem[E any, W constraints.Ordered] struct {
	Value  E
	Weight W
}

type _heap[T any, W constraints.Ordered] struct {
	elems []Elem[T, W]
	desc  bool
}

func (e *_heap[T, W]) Len() int {
	return len(e.elems)
}

func (e *_heap[T, W]) Less(i, j int) bool {
	if e.desc {
		return e.elems[i].Weight > e.elems[j].Weight
	} else {
		return e.elems[i].Weight < e.elems[j].Weight
	}
}

func (e *_heap[T, W]) Swap(i, j int) {
	e.elems[i], e.elems[j] = e.elems[j], e.elems[i]
}

func (e *_heap[T, W]) Push(x interface{}) {
	it := x.(Elem[T, W])
	e.elems = append(e.elems, it)
}

func (e *_heap[T, W]) Pop() interface{} {
	old := e.elems
	item := e.elems[len(old)-1]
	e.elems = old[0 : len(old)-1]
	return item
}

// PriorityQueue represents the priority queue over item ids.
type PriorityQueue struct {
	_heap[int64, float32]
	lookup *i64set.Set
}

// NewPriorityQueue initializes an empty priority queue.
func NewPriorityQueue(desc bool) *PriorityQueue {
	return &PriorityQueue{
		_heap:  _heap[int64, float32]{desc: desc},
		lookup: i64set.New(),
	}
}

// Push inserts a new element into the queue. No action is performed on duplicate elements.
func (p *PriorityQueue) Push(v int64, weight float32) {
	if math32.IsNaN(weight) {
		panic("NaN weight is forbidden")
	} else if !p.lookup.Has(v) {
		newItem := Elem[int64, float32]{
			Value:  v,
			Weight: weight,
		}
		heap.Push(&p._heap, newItem)
		p.lookup.Add(v)
	}
}

// Pop removes the element with the highest priority from the queue and returns it.
func (p *PriorityQueue) Pop() (int64, float32) {
	item := heap.Pop(&p._heap).(Elem[int64, float32])
	p.lookup.Remove(item.Value)
	return item.Value, item.Weight
}

// Peek returns the element with the highest priority without removing it.
func (p *PriorityQueue) Peek() (int64, float32) {
	return p.elems[0].Value, p.elems[0].Weight
}

// Elems exposes the underlying elements in heap order.
func (p *PriorityQueue) Elems() []Elem[int64, float32] {
	return p.elems
}
