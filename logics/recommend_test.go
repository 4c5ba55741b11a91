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
	"fmt"
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/visey-io/visey/config"
	"github.com/visey-io/visey/storage/data"
)

type RecommenderTestSuite struct {
	suite.Suite
	database    data.Database
	recommender *Recommender
}

func (suite *RecommenderTestSuite) SetupTest() {
	var err error
	suite.database, err = data.Open(
		fmt.Sprintf("sqlite://%s", filepath.Join(suite.T().TempDir(), "feedback.db")), "")
	suite.NoError(err)
	suite.NoError(suite.database.Init())
	suite.recommender = NewRecommender(config.GetDefaultConfig().Recommend, suite.database, nil)
}

func (suite *RecommenderTestSuite) TearDownTest() {
	suite.NoError(suite.database.Close())
}

func (suite *RecommenderTestSuite) TestEmptyResources() {
	recommendations := suite.recommender.Recommend(context.Background(),
		data.UserProfile{UserId: 1, Industry: "Technology"}, nil, 10)
	suite.Empty(recommendations)
}

func (suite *RecommenderTestSuite) TestColdStart() {
	// No feedback at all: only the content signal can separate candidates.
	// "tag:tag136" shares a hash slot with "industry:technology".
	profile := data.UserProfile{UserId: 123, Industry: "Technology"}
	resources := []data.Resource{
		{Id: 1, Title: "AI Playbook", Link: "https://example.com/ai", Tags: []string{"tag136"}},
		{Id: 2, Title: "Funding Guide", Link: "https://example.com/funding", Tags: []string{"tag0"}},
	}
	recommendations := suite.recommender.Recommend(context.Background(), profile, resources, 10)
	suite.Require().Len(recommendations, 2)
	suite.Equal(int64(1), recommendations[0].ResourceId)
	suite.InDelta(0.6, recommendations[0].Score, 1e-6)
	suite.Zero(recommendations[1].Score)
	suite.Equal("AI Playbook", recommendations[0].Title)
	suite.Equal("https://example.com/ai", recommendations[0].Link)
	suite.Equal("similar to your past activity", recommendations[0].Reason)
}

func (suite *RecommenderTestSuite) TestPopularityBoost() {
	ctx := context.Background()
	suite.NoError(suite.database.UpsertFeedback(ctx, data.Feedback{UserId: 2, ResourceId: 20, Rating: lo.ToPtr(int32(5))}))
	suite.NoError(suite.database.UpsertFeedback(ctx, data.Feedback{UserId: 3, ResourceId: 20, Rating: lo.ToPtr(int32(4))}))
	resources := []data.Resource{{Id: 10}, {Id: 20}}
	recommendations := suite.recommender.Recommend(context.Background(),
		data.UserProfile{UserId: 1}, resources, 10)
	suite.Require().Len(recommendations, 2)
	suite.Equal(int64(20), recommendations[0].ResourceId)
	suite.Greater(recommendations[0].Score, recommendations[1].Score)
}

func (suite *RecommenderTestSuite) TestDiversityFilter() {
	var resources []data.Resource
	for i := int64(0); i < 12; i++ {
		resources = append(resources, data.Resource{Id: i, Categories: []string{"funding"}})
	}
	for i := int64(100); i < 103; i++ {
		resources = append(resources, data.Resource{Id: i})
	}
	recommendations := suite.recommender.Recommend(context.Background(),
		data.UserProfile{UserId: 1}, resources, 20)
	// 3 survivors from the crowded category plus the uncategorized ones.
	suite.Len(recommendations, 6)
	categorized := lo.CountBy(recommendations, func(r Recommendation) bool {
		return r.ResourceId < 100
	})
	suite.Equal(3, categorized)
}

func (suite *RecommenderTestSuite) TestDiversityFilterSkippedForSmallSets() {
	var resources []data.Resource
	for i := int64(0); i < 10; i++ {
		resources = append(resources, data.Resource{Id: i, Categories: []string{"funding"}})
	}
	recommendations := suite.recommender.Recommend(context.Background(),
		data.UserProfile{UserId: 1}, resources, 20)
	suite.Len(recommendations, 10)
}

func (suite *RecommenderTestSuite) TestRecommendWithTraining() {
	ctx := context.Background()
	for userId := int64(1); userId <= 4; userId++ {
		for resourceId := int64(100); resourceId <= 102; resourceId++ {
			rating := int32(1 + (userId+resourceId)%5)
			suite.NoError(suite.database.UpsertFeedback(ctx,
				data.Feedback{UserId: userId, ResourceId: resourceId, Rating: lo.ToPtr(rating)}))
		}
	}
	resources := []data.Resource{{Id: 100}, {Id: 101}, {Id: 102}, {Id: 103}}
	recommendations := suite.recommender.Recommend(ctx,
		data.UserProfile{UserId: 1}, resources, 10)
	suite.Require().Len(recommendations, 4)
	for i := 1; i < len(recommendations); i++ {
		suite.GreaterOrEqual(recommendations[i-1].Score, recommendations[i].Score)
	}
	// 12 interactions passed the retrain threshold.
	suite.True(suite.recommender.model.IsTrained())
	suite.Equal(4, suite.recommender.model.CountUsers())
	suite.Equal(3, suite.recommender.model.CountItems())
}

func TestRecommenderTestSuite(t *testing.T) {
	suite.Run(t, new(RecommenderTestSuite))
}

func TestExplain(t *testing.T) {
	profile := data.UserProfile{
		UserId:   1,
		Industry: "Technology",
		Stage:    "Seed",
		Location: "Berlin",
	}
	assert.Equal(t, "industry match, region relevance", explain(profile, data.Resource{
		Meta: map[string]any{"summary": "technology resources for Berlin founders"},
	}))
	assert.Equal(t, "stage relevance", explain(profile, data.Resource{
		Meta: map[string]any{"audience": "seed startups"},
	}))
	assert.Equal(t, "similar to your past activity", explain(profile, data.Resource{}))
}

func TestMetaString(t *testing.T) {
	assert.Equal(t, "", metaString(nil))
	assert.Equal(t, "a:1; b:x", metaString(map[string]any{"b": "x", "a": 1}))
}
