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
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
	"moul.io/zapgorm2"

	"github.com/visey-io/visey/base/log"
)

type SQLDriver int

const (
	SQLite SQLDriver = iota
	MySQL
	Postgres
)

// SQLDatabase stores feedback in a SQL database accessed through gorm.
type SQLDatabase struct {
	gormDB *gorm.DB
	driver SQLDriver
}

func openSQL(driver SQLDriver, dsn, tablePrefix string) (Database, error) {
	gormConfig := &gorm.Config{
		Logger: zapgorm2.New(log.Logger()),
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   tablePrefix,
			SingularTable: true,
		},
	}
	var (
		gormDB *gorm.DB
		err    error
	)
	switch driver {
	case SQLite:
		if dir := filepath.Dir(dsn); dir != "." {
			if err = os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Trace(err)
			}
		}
		gormDB, err = gorm.Open(sqlite.Open(dsn), gormConfig)
	case MySQL:
		gormDB, err = gorm.Open(mysql.Open(dsn), gormConfig)
	case Postgres:
		gormDB, err = gorm.Open(postgres.Open(dsn), gormConfig)
	default:
		return nil, errors.Trace(ErrUnsupportedScheme)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &SQLDatabase{gormDB: gormDB, driver: driver}, nil
}

// Init creates the feedback table when missing.
func (d *SQLDatabase) Init() error {
	return errors.Trace(d.gormDB.AutoMigrate(Feedback{}))
}

func (d *SQLDatabase) Ping() error {
	db, err := d.gormDB.DB()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(db.Ping())
}

func (d *SQLDatabase) Close() error {
	db, err := d.gormDB.DB()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(db.Close())
}

// Purge removes all feedback.
func (d *SQLDatabase) Purge() error {
	return errors.Trace(d.gormDB.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Feedback{}).Error)
}

// UpsertFeedback inserts an interaction, replacing the rating and timestamp
// of an existing (user, resource) pair.
func (d *SQLDatabase) UpsertFeedback(ctx context.Context, feedback Feedback) error {
	if feedback.Timestamp.IsZero() {
		feedback.Timestamp = time.Now()
	}
	err := d.gormDB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "resource_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "time_stamp"}),
	}).Create(&feedback).Error
	return errors.Trace(err)
}

// GetUserFeedback returns a user's interactions, newest first.
func (d *SQLDatabase) GetUserFeedback(ctx context.Context, userId int64) ([]Feedback, error) {
	var feedback []Feedback
	err := d.gormDB.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("time_stamp DESC").
		Find(&feedback).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return feedback, nil
}

// GetAllFeedback returns every interaction in the corpus.
func (d *SQLDatabase) GetAllFeedback(ctx context.Context) ([]Feedback, error) {
	var feedback []Feedback
	err := d.gormDB.WithContext(ctx).Find(&feedback).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return feedback, nil
}

// CountFeedback returns the total number of interactions.
func (d *SQLDatabase) CountFeedback(ctx context.Context) (int, error) {
	var count int64
	err := d.gormDB.WithContext(ctx).Model(&Feedback{}).Count(&count).Error
	if err != nil {
		return 0, errors.Trace(err)
	}
	return int(count), nil
}
