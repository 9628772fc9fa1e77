// Package storetest opens migrated in-memory databases for tests.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"race-timing/core/database"
	"race-timing/core/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// New returns a fresh migrated sqlite database private to t.
func New(t *testing.T) *gorm.DB {
	t.Helper()
	name := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: name})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Campaign inserts a campaign and returns it.
func Campaign(t *testing.T, db *gorm.DB, c store.Campaign) *store.Campaign {
	t.Helper()
	if c.Name == "" {
		c.Name = "Test Marathon"
	}
	require.NoError(t, db.WithContext(context.Background()).Create(&c).Error)
	return &c
}

// Event inserts an event and returns it.
func Event(t *testing.T, db *gorm.DB, e store.Event) *store.Event {
	t.Helper()
	if e.Name == "" {
		e.Name = "Event"
	}
	require.NoError(t, db.Create(&e).Error)
	return &e
}

// Runner inserts a runner and returns it.
func Runner(t *testing.T, db *gorm.DB, r store.Runner) *store.Runner {
	t.Helper()
	require.NoError(t, db.Create(&r).Error)
	return &r
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
