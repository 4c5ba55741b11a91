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

// Package logics blends four independent signal sources into a single ranked
// recommendation list: hashed-feature content similarity, item-item
// collaborative filtering, popularity smoothing and a latent factor model.
package logics

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/visey-io/visey/base/log"
	"github.com/visey-io/visey/config"
	"github.com/visey-io/visey/model/mf"
	"github.com/visey-io/visey/storage/data"
)

// mfExtraWeight is the fixed weight applied to positive latent factor scores
// on top of the configured signal weights.
const mfExtraWeight = 0.2

// diversityMinCandidates is the candidate count above which the diversity
// filter engages.
const diversityMinCandidates = 10

// maxPerCategory caps how many resources of one primary category survive the
// diversity filter.
const maxPerCategory = 3

// Recommendation is the sole output entity: a scored, explained catalog item.
// Scores are unbounded non-negative reals; weights need not sum to one.
type Recommendation struct {
	ResourceId int64   `json:"resource_id"`
	Score      float32 `json:"score"`
	Reason     string  `json:"reason"`
	Title      string  `json:"title"`
	Link       string  `json:"link"`
}

// Recommender sequences the scorers and owns the latent factor model's
// retrain policy. Model access is serialized: a reader never observes a
// half-replaced model.
type Recommender struct {
	config   config.RecommendConfig
	database data.Database
	embedder Embedder

	modelMutex sync.Mutex
	model      *mf.Model
}

// NewRecommender creates a Recommender. The embedder may be nil; it is only
// consulted when the embedding weight is positive.
func NewRecommender(cfg config.RecommendConfig, database data.Database, embedder Embedder) *Recommender {
	return &Recommender{
		config:   cfg,
		database: database,
		embedder: embedder,
		model: mf.NewModel(mf.Config{
			NFactors:   cfg.MF.NFactors,
			NEpochs:    cfg.MF.NEpochs,
			Lr:         cfg.MF.Lr,
			Reg:        cfg.MF.Reg,
			InitStdDev: cfg.MF.InitStdDev,
			MinRating:  cfg.MF.MinRating,
			MaxRating:  cfg.MF.MaxRating,
			RandomSeed: cfg.MF.RandomSeed,
		}),
	}
}

// Recommend ranks the candidate resources for a profile and returns at most
// topN explained recommendations. A non-positive topN falls back to the
// configured default. An empty candidate list yields an empty result, and a
// failing signal degrades to a zero contribution instead of aborting the
// call: the caller always receives a (possibly empty) ranked list.
func (r *Recommender) Recommend(ctx context.Context, profile data.UserProfile, resources []data.Resource, topN int) []Recommendation {
	if topN <= 0 {
		topN = r.config.TopN
	}
	if len(resources) == 0 {
		log.Logger().Warn("no resources for recommendation", zap.Int64("user_id", profile.UserId))
		return []Recommendation{}
	}
	log.Logger().Info("generating recommendations",
		zap.Int64("user_id", profile.UserId),
		zap.Int("n_resources", len(resources)),
		zap.Int("top_n", topN))

	userFeedback, err := r.database.GetUserFeedback(ctx, profile.UserId)
	if err != nil {
		log.Logger().Warn("failed to load user feedback, degrading to profile only",
			zap.Int64("user_id", profile.UserId), zap.Error(err))
		userFeedback = nil
	}
	allFeedback, err := r.database.GetAllFeedback(ctx)
	if err != nil {
		log.Logger().Warn("failed to load feedback corpus, degrading to content only",
			zap.Int64("user_id", profile.UserId), zap.Error(err))
		allFeedback = nil
	}

	contentScores := ContentScores(profile, ImplicitTokens(userFeedback), resources)
	collabScores := CollaborativeScores(profile.UserId, resources, allFeedback)
	embeddingScores := r.embeddingScores(ctx, profile, resources)
	mfScores := r.mfScores(profile, resources, allFeedback)

	// popularity for cold start boost
	popScores := make(map[int64]float32)
	top := TopResources(allFeedback, r.config.PopularityTopN)
	maxPop := float32(1)
	if len(top) > 0 {
		maxPop = top[0].Score
	}
	for _, item := range top {
		if maxPop > 0 {
			popScores[item.ResourceId] = item.Score / maxPop
		}
	}

	type scoredResource struct {
		resourceId int64
		score      float32
	}
	combined := make([]scoredResource, 0, len(resources))
	for _, resource := range resources {
		score := r.config.ContentWeight*contentScores[resource.Id] +
			r.config.CollabWeight*collabScores[resource.Id] +
			r.config.PopularityWeight*popScores[resource.Id] +
			r.config.EmbeddingWeight*embeddingScores[resource.Id]
		if mfScore := mfScores[resource.Id]; mfScore > 0 {
			score += mfExtraWeight * mfScore
		}
		combined = append(combined, scoredResource{resourceId: resource.Id, score: score})
	}

	// The diversity filter runs before the final sort: it constrains
	// representation, not rank order.
	byId := lo.SliceToMap(resources, func(resource data.Resource) (int64, data.Resource) {
		return resource.Id, resource
	})
	if len(combined) > diversityMinCandidates {
		categoryCounts := make(map[string]int)
		filtered := combined[:0]
		for _, item := range combined {
			resource := byId[item.resourceId]
			if len(resource.Categories) == 0 {
				filtered = append(filtered, item)
				continue
			}
			primary := resource.Categories[0]
			if categoryCounts[primary] < maxPerCategory {
				filtered = append(filtered, item)
				categoryCounts[primary]++
			}
		}
		combined = filtered
	}

	// ties broken by original input order
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].score > combined[j].score
	})
	if len(combined) > topN {
		combined = combined[:topN]
	}

	recommendations := make([]Recommendation, 0, len(combined))
	for _, item := range combined {
		resource := byId[item.resourceId]
		recommendations = append(recommendations, Recommendation{
			ResourceId: item.resourceId,
			Score:      item.score,
			Reason:     explain(profile, resource),
			Title:      resource.Title,
			Link:       resource.Link,
		})
	}
	log.Logger().Info("recommendations generated",
		zap.Int64("user_id", profile.UserId),
		zap.Int("count", len(recommendations)))
	return recommendations
}

// mfScores trains the latent factor model when the retrain policy fires and
// scores the candidates. The policy retrains whenever the model is untrained
// or the corpus reached the minimum interaction count. It does not track
// "new since last train", so once the threshold is crossed every call
// retrains; this always-fresh behavior is accepted, not a bug.
func (r *Recommender) mfScores(profile data.UserProfile, resources []data.Resource, allFeedback []data.Feedback) map[int64]float32 {
	r.modelMutex.Lock()
	defer r.modelMutex.Unlock()
	if !r.model.IsTrained() || len(allFeedback) >= r.config.MF.MinInteractions {
		r.trainModel(allFeedback)
	}
	if !r.model.IsTrained() {
		return nil
	}
	itemIds := lo.Map(resources, func(resource data.Resource, _ int) int64 {
		return resource.Id
	})
	scores := make(map[int64]float32, len(resources))
	for _, item := range r.model.RankItems(profile.UserId, itemIds, len(itemIds)) {
		scores[item.ItemId] = item.Score
	}
	return scores
}

// trainModel rebuilds the latent factor model from explicit ratings only.
// Callers hold modelMutex.
func (r *Recommender) trainModel(allFeedback []data.Feedback) {
	interactions := make([]mf.Interaction, 0, len(allFeedback))
	for _, f := range allFeedback {
		if f.Rating != nil {
			interactions = append(interactions, mf.Interaction{
				UserId: f.UserId,
				ItemId: f.ResourceId,
				Rating: float32(*f.Rating),
			})
		}
	}
	if len(interactions) < r.config.MF.MinInteractions {
		log.Logger().Debug("insufficient training data",
			zap.Int("available", len(interactions)),
			zap.Int("required", r.config.MF.MinInteractions))
		return
	}
	TrainingSeconds.Observe(observeSeconds(func() {
		r.model.Fit(interactions)
	}))
}

// embeddingScores consults the optional semantic collaborator. It degrades
// to zero contributions when the embedder is absent, the weight is zero or a
// request fails.
func (r *Recommender) embeddingScores(ctx context.Context, profile data.UserProfile, resources []data.Resource) map[int64]float32 {
	scores := make(map[int64]float32, len(resources))
	if r.embedder == nil || r.config.EmbeddingWeight <= 0 {
		return scores
	}
	profileText := fmt.Sprintf("industry: %s; stage: %s; team: %s; funding: %s; location: %s",
		profile.Industry, profile.Stage, profile.TeamSize, profile.Funding, profile.Location)
	for _, resource := range resources {
		itemText := strings.TrimSpace(resource.Title + " " + resource.Excerpt)
		similarity, err := r.embedder.Similarity(ctx, profileText, itemText)
		if err != nil {
			log.Logger().Warn("embedding similarity failed",
				zap.Int64("resource_id", resource.Id), zap.Error(err))
			continue
		}
		scores[resource.Id] = similarity
	}
	return scores
}

// explain builds a short reason string by checking whether the user's
// industry, stage or location literally occurs in the resource's metadata.
// Misses are acceptable false negatives, so the fallback reason covers them.
func explain(profile data.UserProfile, resource data.Resource) string {
	meta := strings.ToLower(metaString(resource.Meta))
	var reasons []string
	if profile.Industry != "" && strings.Contains(meta, strings.ToLower(profile.Industry)) {
		reasons = append(reasons, "industry match")
	}
	if profile.Stage != "" && strings.Contains(meta, strings.ToLower(profile.Stage)) {
		reasons = append(reasons, "stage relevance")
	}
	if profile.Location != "" && strings.Contains(meta, strings.ToLower(profile.Location)) {
		reasons = append(reasons, "region relevance")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "similar to your past activity")
	}
	return strings.Join(reasons, ", ")
}

// metaString renders a metadata bag deterministically, keys sorted.
func metaString(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	keys := lo.Keys(meta)
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", k, meta[k]))
	}
	return strings.Join(parts, "; ")
}

func formatId(id int64) string {
	return strconv.FormatInt(id, 10)
}
