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

// Package mf implements a biased matrix factorization model trained with
// stochastic gradient descent. The predicted rating is
//
//	\hat{r}_{ui} = mu + b_u + b_i + q_i^T p_u
//
// clipped to the configured rating range. Users and items absent from the
// training batch fall back to the global bias mu.
package mf

import (
	"encoding/gob"
	"io"
	"sort"

	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/visey-io/visey/base"
	"github.com/visey-io/visey/base/log"
	"github.com/visey-io/visey/common/floats"
)

// Config holds the hyper-parameters of the model.
type Config struct {
	NFactors   int     // number of latent factors
	NEpochs    int     // SGD epochs, always run in full
	Lr         float32 // learning rate
	Reg        float32 // regularization
	InitStdDev float32 // stddev of initial random factors
	MinRating  float32
	MaxRating  float32
	RandomSeed int64
}

// NewConfig returns the default hyper-parameters.
func NewConfig() Config {
	return Config{
		NFactors:   50,
		NEpochs:    100,
		Lr:         0.01,
		Reg:        0.1,
		InitStdDev: 0.1,
		MinRating:  1,
		MaxRating:  5,
	}
}

// Interaction is a single (user, item, rating) training triple.
type Interaction struct {
	UserId int64
	ItemId int64
	Rating float32
}

// Model is a latent factor model. Every Fit call discards the previous state
// entirely: index maps, factors and biases are rebuilt from the new batch.
// A Model is not safe for concurrent Fit and Predict; callers serialize
// access.
type Model struct {
	config Config

	userIndex  *base.SparseIdSet
	itemIndex  *base.SparseIdSet
	userFactor [][]float32 // p_u
	itemFactor [][]float32 // q_i
	userBias   []float32   // b_u
	itemBias   []float32   // b_i
	globalBias float32     // mu
	trained    bool
}

// NewModel creates an untrained model.
func NewModel(config Config) *Model {
	return &Model{config: config}
}

// IsTrained reports whether Fit has completed at least once.
func (m *Model) IsTrained() bool {
	return m.trained
}

// GlobalBias returns mu, the fallback prediction.
func (m *Model) GlobalBias() float32 {
	return m.globalBias
}

// CountUsers returns the number of users in the model's vocabulary.
func (m *Model) CountUsers() int {
	return m.userIndex.Len()
}

// CountItems returns the number of items in the model's vocabulary.
func (m *Model) CountItems() int {
	return m.itemIndex.Len()
}

// Fit trains the model on a batch of interactions and returns the final
// training RMSE. An empty batch leaves the model untouched. Training always
// runs the full epoch count; there is no convergence check and no
// cancellation.
func (m *Model) Fit(interactions []Interaction) float32 {
	if len(interactions) == 0 {
		log.Logger().Warn("no interactions for training")
		return 0
	}
	// Build dense index maps from this batch only.
	userIndex := base.NewSparseIdSet()
	itemIndex := base.NewSparseIdSet()
	for _, interaction := range interactions {
		userIndex.Add(interaction.UserId)
		itemIndex.Add(interaction.ItemId)
	}
	rng := base.NewRandomGenerator(m.config.RandomSeed)
	userFactor := rng.NormalMatrix(userIndex.Len(), m.config.NFactors, 0, m.config.InitStdDev)
	itemFactor := rng.NormalMatrix(itemIndex.Len(), m.config.NFactors, 0, m.config.InitStdDev)
	userBias := make([]float32, userIndex.Len())
	itemBias := make([]float32, itemIndex.Len())
	var globalBias float32
	for _, interaction := range interactions {
		globalBias += interaction.Rating
	}
	globalBias /= float32(len(interactions))

	log.Logger().Info("fit mf",
		zap.Int("n_interactions", len(interactions)),
		zap.Int("n_users", userIndex.Len()),
		zap.Int("n_items", itemIndex.Len()),
		zap.Int("n_factors", m.config.NFactors),
		zap.Int("n_epochs", m.config.NEpochs))

	// Replace the old state before the SGD loop so predictRaw sees the new
	// matrices. Callers must not read concurrently with Fit.
	m.userIndex = userIndex
	m.itemIndex = itemIndex
	m.userFactor = userFactor
	m.itemFactor = itemFactor
	m.userBias = userBias
	m.itemBias = itemBias
	m.globalBias = globalBias

	// Create buffers
	a := make([]float32, m.config.NFactors)
	userSnapshot := make([]float32, m.config.NFactors)
	itemSnapshot := make([]float32, m.config.NFactors)
	var rmse float32
	for epoch := 1; epoch <= m.config.NEpochs; epoch++ {
		var cost float32
		for _, i := range rng.Perm(len(interactions)) {
			interaction := interactions[i]
			u := userIndex.ToDenseId(interaction.UserId)
			v := itemIndex.ToDenseId(interaction.ItemId)
			// Compute error: e_{ui} = r - \hat{r}
			upGrad := interaction.Rating - m.predictRaw(u, v)
			cost += upGrad * upGrad
			copy(userSnapshot, userFactor[u])
			copy(itemSnapshot, itemFactor[v])
			// Update user latent factor: p_u <- p_u + lr * (e_{ui} q_i - reg p_u)
			floats.MulConstTo(itemSnapshot, upGrad, a)
			floats.MulConstAdd(userSnapshot, -m.config.Reg, a)
			floats.MulConstAdd(a, m.config.Lr, userFactor[u])
			// Update item latent factor: q_i <- q_i + lr * (e_{ui} p_u - reg q_i)
			floats.MulConstTo(userSnapshot, upGrad, a)
			floats.MulConstAdd(itemSnapshot, -m.config.Reg, a)
			floats.MulConstAdd(a, m.config.Lr, itemFactor[v])
			// Update biases: b <- b + lr * (e_{ui} - reg b)
			userBias[u] += m.config.Lr * (upGrad - m.config.Reg*userBias[u])
			itemBias[v] += m.config.Lr * (upGrad - m.config.Reg*itemBias[v])
		}
		rmse = math32.Sqrt(cost / float32(len(interactions)))
		if epoch%10 == 0 || epoch == m.config.NEpochs {
			log.Logger().Debug("fit mf",
				zap.Int("epoch", epoch),
				zap.Float32("rmse", rmse))
		}
	}
	m.trained = true
	log.Logger().Info("fit mf complete", zap.Float32("rmse", rmse))
	return rmse
}

// predictRaw predicts a rating from dense indices, clipped to the rating
// range.
func (m *Model) predictRaw(denseUserId, denseItemId int) float32 {
	ret := m.globalBias +
		m.userBias[denseUserId] +
		m.itemBias[denseItemId] +
		floats.Dot(m.userFactor[denseUserId], m.itemFactor[denseItemId])
	return m.clip(ret)
}

func (m *Model) clip(x float32) float32 {
	return math32.Max(m.config.MinRating, math32.Min(m.config.MaxRating, x))
}

// Predict returns the predicted rating for a (user, item) pair. It returns
// the global bias when the model is untrained or when either id was absent
// from the training batch. This is the cold start fallback, not an error.
func (m *Model) Predict(userId, itemId int64) float32 {
	if !m.trained {
		return m.globalBias
	}
	denseUserId := m.userIndex.ToDenseId(userId)
	denseItemId := m.itemIndex.ToDenseId(itemId)
	if denseUserId == base.NotId || denseItemId == base.NotId {
		return m.globalBias
	}
	return m.predictRaw(denseUserId, denseItemId)
}

// ItemScore is a scored candidate item.
type ItemScore struct {
	ItemId int64
	Score  float32
}

// RankItems scores the candidate items known to the model for a user and
// returns the top n by predicted rating. Items absent from the model's
// vocabulary are skipped, not zero-scored. An untrained model or an unknown
// user yields an empty result.
func (m *Model) RankItems(userId int64, itemIds []int64, n int) []ItemScore {
	if !m.trained {
		return nil
	}
	denseUserId := m.userIndex.ToDenseId(userId)
	if denseUserId == base.NotId {
		return nil
	}
	scores := make([]ItemScore, 0, len(itemIds))
	for _, itemId := range itemIds {
		if denseItemId := m.itemIndex.ToDenseId(itemId); denseItemId != base.NotId {
			scores = append(scores, ItemScore{
				ItemId: itemId,
				Score:  m.predictRaw(denseUserId, denseItemId),
			})
		}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	if len(scores) > n {
		scores = scores[:n]
	}
	return scores
}

type modelData struct {
	UserIds    []int64
	ItemIds    []int64
	UserFactor [][]float32
	ItemFactor [][]float32
	UserBias   []float32
	ItemBias   []float32
	GlobalBias float32
	Trained    bool
}

// Marshal writes a trained model snapshot.
func (m *Model) Marshal(w io.Writer) error {
	data := modelData{
		UserFactor: m.userFactor,
		ItemFactor: m.itemFactor,
		UserBias:   m.userBias,
		ItemBias:   m.itemBias,
		GlobalBias: m.globalBias,
		Trained:    m.trained,
	}
	if m.userIndex != nil {
		data.UserIds = m.userIndex.SparseIds
	}
	if m.itemIndex != nil {
		data.ItemIds = m.itemIndex.SparseIds
	}
	return errors.Trace(gob.NewEncoder(w).Encode(data))
}

// Unmarshal reads a model snapshot written by Marshal.
func (m *Model) Unmarshal(r io.Reader) error {
	var data modelData
	if err := gob.NewDecoder(r).Decode(&data); err != nil {
		return errors.Trace(err)
	}
	m.userIndex = base.NewSparseIdSet()
	for _, id := range data.UserIds {
		m.userIndex.Add(id)
	}
	m.itemIndex = base.NewSparseIdSet()
	for _, id := range data.ItemIds {
		m.itemIndex.Add(id)
	}
	m.userFactor = data.UserFactor
	m.itemFactor = data.ItemFactor
	m.userBias = data.UserBias
	m.itemBias = data.ItemBias
	m.globalBias = data.GlobalBias
	m.trained = data.Trained
	return nil
}
