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

// Package feature turns user profiles and catalog resources into fixed-size
// numeric vectors via the hashing trick. Vectors are a pure function of their
// inputs: the same tokens produce bit-identical vectors across runs and
// processes.
package feature

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/visey-io/visey/common/floats"
	"github.com/visey-io/visey/storage/data"
)

// VectorSize is the dimension of hashed feature vectors.
const VectorSize = 256

// TokenizeProfile generates semantic tokens from a user profile.
func TokenizeProfile(p data.UserProfile) []string {
	tokens := make([]string, 0, 5)
	if p.Industry != "" {
		tokens = append(tokens, "industry:"+strings.ToLower(p.Industry))
	}
	if p.Stage != "" {
		tokens = append(tokens, "stage:"+strings.ToLower(p.Stage))
	}
	if p.TeamSize != "" {
		tokens = append(tokens, "team:"+strings.ToLower(p.TeamSize))
	}
	if p.Funding != "" {
		tokens = append(tokens, "funding:"+strings.ToLower(p.Funding))
	}
	if p.Location != "" {
		tokens = append(tokens, "location:"+strings.ToLower(p.Location))
	}
	return tokens
}

// TokenizeResource generates semantic tokens from a catalog resource. Only
// string and numeric meta values contribute tokens.
func TokenizeResource(r data.Resource) []string {
	tokens := make([]string, 0, len(r.Categories)+len(r.Tags)+len(r.Meta))
	for _, c := range r.Categories {
		tokens = append(tokens, "cat:"+c)
	}
	for _, t := range r.Tags {
		tokens = append(tokens, "tag:"+t)
	}
	for k, v := range r.Meta {
		switch v.(type) {
		case string, int, int32, int64, float32, float64:
			tokens = append(tokens, "meta:"+k+":"+strings.ToLower(fmt.Sprint(v)))
		}
	}
	return tokens
}

// HashTokens maps tokens to vector slots with additive collision accumulation
// and returns the L2-normalized result. An empty token set maps to the zero
// vector.
func HashTokens(tokens []string) []float32 {
	vec := make([]float32, VectorSize)
	if len(tokens) == 0 {
		return vec
	}
	for _, token := range tokens {
		sum := md5.Sum([]byte(token))
		// Low 64 bits of the digest taken modulo a power-of-two size match
		// the full digest modulo the same size.
		index := binary.BigEndian.Uint64(sum[8:]) % VectorSize
		vec[index]++
	}
	if norm := floats.Norm(vec); norm > 0 {
		floats.MulConst(vec, 1/norm)
	}
	return vec
}

// BuildUserVector hashes a profile's tokens together with implicit tokens
// derived from past interactions.
func BuildUserVector(profile data.UserProfile, implicitTokens []string) []float32 {
	tokens := TokenizeProfile(profile)
	for _, token := range implicitTokens {
		tokens = append(tokens, "implicit:"+token)
	}
	return HashTokens(tokens)
}

// BuildResourceVector hashes a resource's tokens.
func BuildResourceVector(resource data.Resource) []float32 {
	return HashTokens(TokenizeResource(resource))
}

// CosineSimilarity computes the cosine of two feature vectors. It returns 0
// when either norm is zero or the shapes mismatch.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	den := floats.Norm(a) * floats.Norm(b)
	if den == 0 {
		return 0
	}
	return floats.Dot(a, b) / den
}
