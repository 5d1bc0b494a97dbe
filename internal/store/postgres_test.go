//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"garden/internal/db"
	"garden/internal/models"
)

func newPostgresStore(t *testing.T) Store {
	t.Helper()
	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("garden"),
		postgres.WithUsername("garden"),
		postgres.WithPassword("garden"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := db.OpenPostgres(ctx, url)
	require.NoError(t, err)
	require.NoError(t, db.MigratePostgres(ctx, pool))
	s := NewPostgres(pool)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresModerationColumns(t *testing.T) {
	s := newPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, s, models.DefaultAdminEmail, "hash"))
	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "p", Title: "P", Date: models.MustDay("2024-07-01"), Tags: []string{"a", "b"}, Status: models.PostPending}))

	posts, err := s.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 4)
	assert.Equal(t, "p", posts[0].ID)
	assert.Equal(t, []string{"a", "b"}, posts[0].Tags)

	require.NoError(t, s.UpdatePostStatus(ctx, "p", models.PostApproved, 1))
	assert.ErrorIs(t, s.UpdatePostStatus(ctx, "p", models.PostApproved, 1), ErrStale)

	require.NoError(t, s.InsertJoinRequest(ctx, models.JoinRequest{ID: "r", Email: "x@y.z", Reason: "hi", Date: time.Now(), Status: models.RequestPending}))
	require.NoError(t, s.UpdateJoinRequestStatus(ctx, "r", models.RequestRejected, 1))
	r, err := s.GetJoinRequest(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, r.Status)

	assert.ErrorIs(t, s.CreateUser(ctx, models.User{Email: models.DefaultAdminEmail, Role: models.RoleAdmin}), ErrDuplicate)
}
