package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hnlite/internal/db"
	"hnlite/internal/models"
)

// newTestDB returns a fresh migrated in-memory database that is closed with the test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.OpenMemory("test_" + uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}

func seedUser(t *testing.T, conn *gorm.DB, name string) models.User {
	t.Helper()
	u := models.User{Username: name, PasswordHash: "x"}
	require.NoError(t, conn.Create(&u).Error)
	return u
}

func seedPost(t *testing.T, conn *gorm.DB, author models.User) models.Post {
	t.Helper()
	content := "body"
	p := models.Post{UserID: author.ID, Title: "a post", Content: &content}
	require.NoError(t, conn.Create(&p).Error)
	return p
}

// seedComment inserts a comment row directly, bypassing the counters.
func seedComment(t *testing.T, conn *gorm.DB, c models.Comment) models.Comment {
	t.Helper()
	if c.Content == "" {
		c.Content = "seed"
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	require.NoError(t, conn.Create(&c).Error)
	return c
}

func reload[T any](t *testing.T, conn *gorm.DB, id uint) T {
	t.Helper()
	var row T
	require.NoError(t, conn.First(&row, id).Error)
	return row
}

func count(t *testing.T, conn *gorm.DB, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func defaultQuery() ListQuery {
	return ListQuery{Page: 1, Limit: 10, SortBy: SortPoints, Order: OrderDesc}
}
