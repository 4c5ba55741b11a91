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

package data

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type SQLiteTestSuite struct {
	suite.Suite
	Database
}

func (suite *SQLiteTestSuite) SetupSuite() {
	var err error
	suite.Database, err = Open(fmt.Sprintf("sqlite://%s/feedback.db", suite.T().TempDir()), "")
	suite.NoError(err)
	suite.NoError(suite.Database.Init())
}

func (suite *SQLiteTestSuite) TearDownSuite() {
	suite.NoError(suite.Database.Close())
}

func (suite *SQLiteTestSuite) SetupTest() {
	suite.NoError(suite.Database.Purge())
}

func (suite *SQLiteTestSuite) TestPing() {
	suite.NoError(suite.Database.Ping())
}

func (suite *SQLiteTestSuite) TestUpsertFeedback() {
	ctx := context.Background()
	suite.NoError(suite.Database.UpsertFeedback(ctx, Feedback{
		UserId:     1,
		ResourceId: 100,
		Rating:     lo.ToPtr(int32(4)),
		Timestamp:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	// replace, not append
	suite.NoError(suite.Database.UpsertFeedback(ctx, Feedback{
		UserId:     1,
		ResourceId: 100,
		Rating:     lo.ToPtr(int32(5)),
		Timestamp:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}))
	feedback, err := suite.Database.GetUserFeedback(ctx, 1)
	suite.NoError(err)
	suite.Len(feedback, 1)
	suite.Equal(int32(5), *feedback[0].Rating)

	count, err := suite.Database.CountFeedback(ctx)
	suite.NoError(err)
	suite.Equal(1, count)
}

func (suite *SQLiteTestSuite) TestImplicitFeedback() {
	ctx := context.Background()
	suite.NoError(suite.Database.UpsertFeedback(ctx, Feedback{UserId: 7, ResourceId: 42}))
	feedback, err := suite.Database.GetUserFeedback(ctx, 7)
	suite.NoError(err)
	suite.Len(feedback, 1)
	suite.Nil(feedback[0].Rating)
	suite.False(feedback[0].Timestamp.IsZero())
}

func (suite *SQLiteTestSuite) TestGetUserFeedbackOrder() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		suite.NoError(suite.Database.UpsertFeedback(ctx, Feedback{
			UserId:     1,
			ResourceId: int64(100 + i),
			Timestamp:  time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
		}))
	}
	feedback, err := suite.Database.GetUserFeedback(ctx, 1)
	suite.NoError(err)
	suite.Len(feedback, 3)
	// newest first
	suite.Equal(int64(102), feedback[0].ResourceId)
	suite.Equal(int64(101), feedback[1].ResourceId)
	suite.Equal(int64(100), feedback[2].ResourceId)
}

func (suite *SQLiteTestSuite) TestGetAllFeedback() {
	ctx := context.Background()
	suite.NoError(suite.Database.UpsertFeedback(ctx, Feedback{UserId: 1, ResourceId: 100}))
	suite.NoError(suite.Database.UpsertFeedback(ctx, Feedback{UserId: 2, ResourceId: 100}))
	suite.NoError(suite.Database.UpsertFeedback(ctx, Feedback{UserId: 2, ResourceId: 101}))
	feedback, err := suite.Database.GetAllFeedback(ctx)
	suite.NoError(err)
	suite.Len(feedback, 3)
	count, err := suite.Database.CountFeedback(ctx)
	suite.NoError(err)
	suite.Equal(3, count)
}

func TestSQLite(t *testing.T) {
	suite.Run(t, new(SQLiteTestSuite))
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	_, err := Open("mongodb://localhost:27017", "")
	assert.Error(t, err)
}

func TestSortFeedbacks(t *testing.T) {
	feedback := []Feedback{
		{ResourceId: 1, Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ResourceId: 2, Timestamp: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
		{ResourceId: 3, Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	SortFeedbacks(feedback)
	assert.Equal(t, int64(2), feedback[0].ResourceId)
	assert.Equal(t, int64(3), feedback[1].ResourceId)
	assert.Equal(t, int64(1), feedback[2].ResourceId)
}
