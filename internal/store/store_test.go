package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garden/internal/db"
	"garden/internal/models"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	s := NewSQLite(conn)
	t.Cleanup(func() { s.Close() })
	return s
}

// forEachStore runs fn against every Store that needs no external service.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func TestPostsPrependAndVersioning(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.InsertPost(ctx, models.Post{ID: "a", Title: "A", Date: models.MustDay("2024-01-01"), Status: models.PostPending}))
		require.NoError(t, s.InsertPost(ctx, models.Post{ID: "b", Title: "B", Date: models.MustDay("2024-01-01"), Tags: []string{"x"}, Status: models.PostPending}))
		assert.ErrorIs(t, s.InsertPost(ctx, models.Post{ID: "a", Title: "again", Status: models.PostPending}), ErrDuplicate)

		posts, err := s.ListPosts(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, "b", posts[0].ID)
		assert.Equal(t, []string{"x"}, posts[0].Tags)

		p, err := s.GetPost(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, int64(1), p.Version)
		assert.True(t, p.Date.Equal(models.MustDay("2024-01-01")))

		require.NoError(t, s.UpdatePostStatus(ctx, "a", models.PostApproved, 1))
		assert.ErrorIs(t, s.UpdatePostStatus(ctx, "a", models.PostApproved, 1), ErrStale)
		assert.ErrorIs(t, s.UpdatePostStatus(ctx, "missing", models.PostApproved, 1), ErrNotFound)

		p, err = s.GetPost(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, models.PostApproved, p.Status)
		assert.Equal(t, int64(2), p.Version)

		require.NoError(t, s.DeletePost(ctx, "a"))
		assert.ErrorIs(t, s.DeletePost(ctx, "a"), ErrNotFound)
		_, err = s.GetPost(ctx, "a")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMomentLikesAreUnchecked(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.InsertMoment(ctx, models.Moment{ID: "m", Content: "hi", Date: time.Now(), Status: models.MomentApproved}))
		for i := 1; i <= 3; i++ {
			n, err := s.LikeMoment(ctx, "m")
			require.NoError(t, err)
			assert.Equal(t, i, n)
		}
		_, err := s.LikeMoment(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUsersAndSessions(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.CreateUser(ctx, models.User{Email: "a@b.com", PasswordHash: "h", Role: models.RoleUser}))
		assert.ErrorIs(t, s.CreateUser(ctx, models.User{Email: "a@b.com", PasswordHash: "h", Role: models.RoleUser}), ErrDuplicate)

		u, err := s.GetUser(ctx, "a@b.com")
		require.NoError(t, err)
		assert.Nil(t, u.LastActive)

		at := time.UnixMilli(time.Now().UnixMilli())
		require.NoError(t, s.TouchUser(ctx, "a@b.com", at))
		assert.ErrorIs(t, s.TouchUser(ctx, "ghost@b.com", at), ErrNotFound)
		u, err = s.GetUser(ctx, "a@b.com")
		require.NoError(t, err)
		require.NotNil(t, u.LastActive)
		assert.True(t, u.LastActive.Equal(at))

		require.NoError(t, s.CreateSession(ctx, models.Session{ID: "s1", Email: "a@b.com", ExpiresAt: at.Add(time.Hour)}))
		sess, err := s.GetSession(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "a@b.com", sess.Email)
		require.NoError(t, s.DeleteUserSessions(ctx, "a@b.com"))
		_, err = s.GetSession(ctx, "s1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCommentsFollowPost(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.InsertPost(ctx, models.Post{ID: "p", Title: "P", Date: time.Now(), Status: models.PostApproved}))
		require.NoError(t, s.InsertComment(ctx, models.Comment{ID: "c1", PostID: "p", Name: "n", Text: "first", Date: time.Now()}))
		require.NoError(t, s.InsertComment(ctx, models.Comment{ID: "c2", PostID: "p", ParentID: "c1", Name: "n", Text: "reply", Date: time.Now()}))

		cs, err := s.ListComments(ctx, "p")
		require.NoError(t, err)
		require.Len(t, cs, 2)
		assert.Equal(t, "c1", cs[0].ID)
		assert.Equal(t, "c1", cs[1].ParentID)

		require.NoError(t, s.DeletePost(ctx, "p"))
		cs, err = s.ListComments(ctx, "p")
		require.NoError(t, err)
		assert.Empty(t, cs)
	})
}

func TestSeedIsIdempotent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, Seed(ctx, s, models.DefaultAdminEmail, "hash"))
		require.NoError(t, Seed(ctx, s, models.DefaultAdminEmail, "other"))

		users, err := s.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, models.RoleAdmin, users[0].Role)
		assert.Equal(t, "hash", users[0].PasswordHash)

		posts, err := s.ListPosts(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, "1", posts[0].ID)
		assert.Equal(t, "3", posts[2].ID)
	})
}

func TestSeedKeepsRejectedContentGone(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, Seed(ctx, s, models.DefaultAdminEmail, "hash"))
		require.NoError(t, s.DeletePost(ctx, "1"))
		require.NoError(t, s.DeleteMoment(ctx, "m1"))

		require.NoError(t, Seed(ctx, s, models.DefaultAdminEmail, "hash"))
		_, err := s.GetPost(ctx, "1")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetMoment(ctx, "m1")
		assert.ErrorIs(t, err, ErrNotFound)

		posts, err := s.ListPosts(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2", posts[0].ID)
	})
}

func TestSeedSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "garden.db")
	open := func() Store {
		conn, err := db.Open(path)
		require.NoError(t, err)
		require.NoError(t, db.Migrate(conn))
		return NewSQLite(conn)
	}

	s := open()
	require.NoError(t, Seed(ctx, s, models.DefaultAdminEmail, "hash"))
	require.NoError(t, s.DeletePost(ctx, "1"))
	require.NoError(t, s.Close())

	s = open()
	defer s.Close()
	require.NoError(t, Seed(ctx, s, models.DefaultAdminEmail, "hash"))
	_, err := s.GetPost(ctx, "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteConstraintErrors(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "a", Title: "A", Date: time.Now(), Status: models.PostPending}))
	assert.ErrorIs(t, s.InsertPost(ctx, models.Post{ID: "a", Title: "A", Date: time.Now(), Status: models.PostPending}), ErrDuplicate)

	err := s.InsertPost(ctx, models.Post{ID: "b", Title: "B", Date: time.Now(), Status: "bogus"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicate, "a CHECK violation is not a duplicate")

	require.NoError(t, s.CreateUser(ctx, models.User{Email: "a@b.com", PasswordHash: "h", Role: models.RoleUser}))
	assert.ErrorIs(t, s.CreateUser(ctx, models.User{Email: "a@b.com", PasswordHash: "h", Role: models.RoleUser}), ErrDuplicate)
}

func TestMissingRowsAreNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		assert.ErrorIs(t, s.DeletePost(ctx, "ghost"), ErrNotFound)
		assert.ErrorIs(t, s.DeleteMoment(ctx, "ghost"), ErrNotFound)
		assert.ErrorIs(t, s.TouchUser(ctx, "ghost@b.com", time.Now()), ErrNotFound)
		assert.ErrorIs(t, s.SetPassword(ctx, "ghost@b.com", "h"), ErrNotFound)
	})
}
