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
	"sort"
	"strings"
	"time"

	"github.com/juju/errors"
)

const (
	SQLitePrefix   = "sqlite://"
	MySQLPrefix    = "mysql://"
	PostgresPrefix = "postgres://"
)

var ErrUnsupportedScheme = errors.NotSupportedf("database scheme")

// UserProfile describes the user a recommendation is generated for. It is
// supplied by the caller and immutable per call.
type UserProfile struct {
	UserId   int64  `json:"user_id"`
	Industry string `json:"industry,omitempty"`
	Stage    string `json:"stage,omitempty"`
	TeamSize string `json:"team_size,omitempty"`
	Funding  string `json:"funding,omitempty"`
	Location string `json:"location,omitempty"`
}

// Resource is a catalog item (article, guide, resource). The core never
// mutates resources.
type Resource struct {
	Id         int64          `json:"id"`
	Title      string         `json:"title"`
	Link       string         `json:"link"`
	Excerpt    string         `json:"excerpt"`
	Categories []string       `json:"categories"`
	Tags       []string       `json:"tags"`
	Meta       map[string]any `json:"meta"`
}

// Feedback stores an interaction between a user and a resource. A nil rating
// is an implicit signal. The pair (UserId, ResourceId) is unique: a repeated
// interaction replaces the previous rating.
type Feedback struct {
	UserId     int64     `gorm:"primaryKey;column:user_id" json:"user_id"`
	ResourceId int64     `gorm:"primaryKey;column:resource_id" json:"resource_id"`
	Rating     *int32    `gorm:"column:rating" json:"rating,omitempty"`
	Timestamp  time.Time `gorm:"column:time_stamp" json:"timestamp"`
}

// SortFeedbacks sorts feedback from latest to oldest.
func SortFeedbacks(feedback []Feedback) {
	sort.SliceStable(feedback, func(i, j int) bool {
		return feedback[i].Timestamp.After(feedback[j].Timestamp)
	})
}

// Database is the contract of the feedback store. It is the only persisted
// state the recommendation core reads and writes.
type Database interface {
	Init() error
	Ping() error
	Close() error
	Purge() error
	// UpsertFeedback inserts an interaction or replaces the rating of an
	// existing (user, resource) pair.
	UpsertFeedback(ctx context.Context, feedback Feedback) error
	// GetUserFeedback returns a user's interactions, newest first.
	GetUserFeedback(ctx context.Context, userId int64) ([]Feedback, error)
	// GetAllFeedback returns every interaction in the corpus.
	GetAllFeedback(ctx context.Context) ([]Feedback, error)
	// CountFeedback returns the total number of interactions.
	CountFeedback(ctx context.Context) (int, error)
}

// Open a connection to a feedback store addressed by a DSN. The scheme prefix
// selects the driver: sqlite://, mysql:// or postgres://.
func Open(path, tablePrefix string) (Database, error) {
	switch {
	case strings.HasPrefix(path, SQLitePrefix):
		return openSQL(SQLite, path[len(SQLitePrefix):], tablePrefix)
	case strings.HasPrefix(path, MySQLPrefix):
		return openSQL(MySQL, path[len(MySQLPrefix):], tablePrefix)
	case strings.HasPrefix(path, PostgresPrefix):
		return openSQL(Postgres, path, tablePrefix)
	default:
		return nil, errors.Trace(ErrUnsupportedScheme)
	}
}
