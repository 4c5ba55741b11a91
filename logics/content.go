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
	"github.com/visey-io/visey/feature"
	"github.com/visey-io/visey/storage/data"
)

// ContentScores computes the cosine similarity between the user's feature
// vector and every candidate's feature vector. Implicit tokens derived from
// the user's past interactions sharpen the user vector; their order does not
// affect the result.
func ContentScores(profile data.UserProfile, implicitTokens []string, resources []data.Resource) map[int64]float32 {
	userVector := feature.BuildUserVector(profile, implicitTokens)
	scores := make(map[int64]float32, len(resources))
	for _, resource := range resources {
		scores[resource.Id] = feature.CosineSimilarity(userVector, feature.BuildResourceVector(resource))
	}
	return scores
}

// ImplicitTokens derives implicit signal tokens from a user's interaction
// history, newest first.
func ImplicitTokens(feedback []data.Feedback) []string {
	tokens := make([]string, 0, len(feedback))
	for _, f := range feedback {
		tokens = append(tokens, "resource:"+formatId(f.ResourceId))
	}
	return tokens
}
