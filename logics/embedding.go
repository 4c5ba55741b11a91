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
	"context"

	"github.com/juju/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/visey-io/visey/feature"
)

// Embedder is an optional semantic similarity collaborator. A nil Embedder
// degrades to a zero contribution; it is consulted only when the embedding
// weight is positive.
type Embedder interface {
	// Similarity scores the semantic closeness of a profile summary and an
	// item summary in [−1, 1].
	Similarity(ctx context.Context, profileText, itemText string) (float32, error)
}

// OpenAIEmbedder scores similarity with OpenAI text embeddings.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates an embedder backed by the OpenAI embedding API.
func NewOpenAIEmbedder(apiKey, model string) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  openai.EmbeddingModel(model),
	}
}

func (e *OpenAIEmbedder) Similarity(ctx context.Context, profileText, itemText string) (float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{profileText, itemText},
		Model: e.model,
	})
	if err != nil {
		return 0, errors.Trace(err)
	}
	if len(resp.Data) != 2 {
		return 0, errors.Errorf("expected 2 embeddings, got %d", len(resp.Data))
	}
	return feature.CosineSimilarity(resp.Data[0].Embedding, resp.Data[1].Embedding), nil
}
