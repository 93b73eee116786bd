//go:build integration

package services

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hnlite/internal/config"
	"hnlite/internal/db"
	"hnlite/internal/models"
)

// newPostgresDB connects to HNLITE_TEST_DATABASE_URL and empties every table.
// Run with: go test -tags integration ./internal/services/
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("HNLITE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("HNLITE_TEST_DATABASE_URL not set")
	}
	conn, err := db.Open(config.Config{
		DBDriver:       "postgres",
		DatabaseURL:    dsn,
		DBMaxOpenConns: 20,
		DBMaxIdleConns: 5,
		LogLevel:       "silent",
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, conn.Exec("TRUNCATE comment_upvotes, post_upvotes, comments, posts, users RESTART IDENTITY CASCADE").Error)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}

// With a real connection pool the toggles run in parallel and only the row lock keeps them apart.
func TestToggleCommentVote_PostgresRowLock(t *testing.T) {
	conn := newPostgresDB(t)
	author := seedUser(t, conn, "author")
	post := seedPost(t, conn, author)
	c := seedComment(t, conn, models.Comment{UserID: author.ID, PostID: post.ID})
	ledger := NewVoteLedger(conn)

	t.Run("distinct voters", func(t *testing.T) {
		const voters = 20
		var wg sync.WaitGroup
		for i := 0; i < voters; i++ {
			u := seedUser(t, conn, fmt.Sprintf("voter_%d", i))
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := ledger.ToggleCommentVote(context.Background(), c.ID, u.ID)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.Equal(t, voters, reload[models.Comment](t, conn, c.ID).Points)
		assert.EqualValues(t, voters, count(t, conn, &models.CommentUpvote{}, "comment_id = ?", c.ID))
	})

	t.Run("same voter pairs", func(t *testing.T) {
		voter := seedUser(t, conn, "repeat")
		before := reload[models.Comment](t, conn, c.ID).Points
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := ledger.ToggleCommentVote(context.Background(), c.ID, voter.ID)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.Equal(t, before, reload[models.Comment](t, conn, c.ID).Points)
		assert.EqualValues(t, 0, count(t, conn, &models.CommentUpvote{}, "comment_id = ? AND user_id = ?", c.ID, voter.ID))
	})
}
