package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Tsuki/internal/core/comments"
	"Tsuki/internal/core/idempotency"
	"Tsuki/internal/core/users"
	"Tsuki/internal/db/clock"
)

func newComment(id, author, target string) *comments.Comment {
	return &comments.Comment{
		ID: id, TargetType: comments.TargetPost, TargetID: target, Depth: 1,
		AuthorID: author, BodyMarkdown: "b", BodyHTML: "<p>b</p>", IPHash: "ip-" + author,
	}
}

func TestCommentRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	userRepo := NewUserRepository(nil)
	require.NoError(t, userRepo.Upsert(ctx, &users.User{ID: "u1", Login: "alice"}))
	repo := NewCommentRepository(userRepo, nil)

	c := newComment("c1", "u1", "p")
	require.NoError(t, repo.Create(ctx, c))
	assert.Equal(t, comments.StatusVisible, c.Status)
	assert.False(t, c.CreatedAt.IsZero())
	assert.Error(t, repo.Create(ctx, newComment("c1", "u1", "p")), "duplicate ids are rejected")

	// callers cannot mutate stored rows through returned pointers
	got, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	got.BodyMarkdown = "tampered"
	again, _ := repo.GetByID(ctx, "c1")
	assert.Equal(t, "b", again.BodyMarkdown)

	updatedAt, err := repo.Update(ctx, "c1", "new", "<p>new</p>")
	require.NoError(t, err)
	assert.True(t, updatedAt.After(c.CreatedAt))

	require.NoError(t, repo.Hide(ctx, "c1"))
	_, err = repo.Update(ctx, "c1", "x", "x")
	assert.ErrorIs(t, err, comments.ErrConcurrentModification)

	require.NoError(t, repo.SoftDelete(ctx, "c1", comments.DeletedByAdmin))
	assert.ErrorIs(t, repo.SoftDelete(ctx, "c1", comments.DeletedByAdmin), comments.ErrCommentNotFound)
	require.NoError(t, repo.Unhide(ctx, "c1"))
	got, _ = repo.GetByID(ctx, "c1")
	assert.Equal(t, comments.StatusDeletedByAdmin, got.Status)
	assert.NotNil(t, got.DeletedAt)

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, comments.ErrCommentNotFound)
}

func TestCommentRepo_ListJoinsAuthors(t *testing.T) {
	ctx := context.Background()
	userRepo := NewUserRepository(nil)
	require.NoError(t, userRepo.Upsert(ctx, &users.User{ID: "u1", Login: "alice"}))
	repo := NewCommentRepository(userRepo, nil)

	require.NoError(t, repo.Create(ctx, newComment("c1", "u1", "p")))
	require.NoError(t, repo.Create(ctx, newComment("c2", "ghost", "p")))

	rows, next, err := repo.ListByTarget(ctx, comments.TargetPost, "p", 10, nil, false)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0].Author.Login)
	assert.Equal(t, "ghost", rows[1].Author.ID)
	assert.Equal(t, users.RoleUser, rows[1].Author.Role)
}

func TestCommentRepo_CountRecent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.New(func() time.Time { return now })
	repo := NewCommentRepository(nil, clk)

	require.NoError(t, repo.Create(ctx, newComment("c1", "u1", "p")))
	now = now.Add(9 * time.Minute)
	require.NoError(t, repo.Create(ctx, newComment("c2", "u1", "p")))

	n, err := repo.CountRecentByUser(ctx, "u1", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	now = now.Add(2 * time.Minute)
	n, err = repo.CountRecentByUser(ctx, "u1", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.CountRecentByIPHash(ctx, "ip-u1", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCommentRepo_ConcurrentPagination(t *testing.T) {
	ctx := context.Background()
	repo := NewCommentRepository(nil, nil)
	for i := 0; i < 10; i++ {
		require.NoError(t, repo.Create(ctx, newComment(fmt.Sprintf("seed-%02d", i), "u1", "p")))
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if err := repo.Create(ctx, newComment(fmt.Sprintf("w%d-%02d", w, i), "u2", "p")); err != nil {
					t.Errorf("insert failed: %v", err)
				}
			}
		}(w)
	}

	seen := map[string]bool{}
	var cursor *string
	for {
		rows, next, err := repo.ListByTarget(ctx, comments.TargetPost, "p", 4, cursor, false)
		require.NoError(t, err)
		for _, row := range rows {
			require.False(t, seen[row.ID], "row %s repeated", row.ID)
			seen[row.ID] = true
		}
		if next == nil {
			break
		}
		cursor = next
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		assert.True(t, seen[fmt.Sprintf("seed-%02d", i)])
	}

	// once writers finish, resuming from the last cursor yields exactly the rest
	all, _, err := repo.ListByTarget(ctx, comments.TargetPost, "p", 1000, nil, false)
	require.NoError(t, err)
	assert.Len(t, all, 110)
}

func TestCommentRepo_ListAdminDescending(t *testing.T) {
	ctx := context.Background()
	repo := NewCommentRepository(nil, nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newComment(fmt.Sprintf("c%d", i), "u1", "p")))
	}
	require.NoError(t, repo.Hide(ctx, "c1"))

	rows, next, err := repo.ListAdmin(ctx, 2, nil, comments.AdminFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "c2", rows[0].ID)
	assert.Equal(t, "c1", rows[1].ID)

	rows, next, err = repo.ListAdmin(ctx, 2, next, comments.AdminFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "c0", rows[0].ID)
	assert.Nil(t, next)

	rows, _, err = repo.ListAdmin(ctx, 10, nil, comments.AdminFilter{Status: comments.StatusHidden})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "c1", rows[0].ID)
}

func TestUserRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(nil)

	require.NoError(t, repo.Upsert(ctx, &users.User{ID: "u1", Login: "alice"}))
	first, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, users.RoleUser, first.Role)

	require.NoError(t, repo.Upsert(ctx, &users.User{ID: "u1", Login: "alice2", Role: users.RoleAdmin}))
	second, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice2", second.Login)
	assert.Equal(t, users.RoleUser, second.Role)
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt))

	_, err = repo.GetByID(ctx, "u2")
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestIdempotencyRepo(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo, err := NewIdempotencyRepository(2, func() time.Time { return now })
	require.NoError(t, err)

	body := []byte(`{"ok":true}`)
	require.NoError(t, repo.Store(ctx, &idempotency.Record{Route: "POST /v1/comments", UserID: "u1", Key: "k", Status: 201, Body: body}))
	body[0] = 'X'

	got, err := repo.Find(ctx, "POST /v1/comments", "u1", "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, `{"ok":true}`, string(got.Body), "stored body is copied")
	assert.Equal(t, now.Add(idempotency.DefaultTTL), got.ExpiresAt)

	got, err = repo.Find(ctx, "POST /v1/comments", "", "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Store(ctx, &idempotency.Record{Route: "r", Key: "short", ExpiresAt: now.Add(time.Minute)}))
	now = now.Add(2 * time.Minute)

	removed, err := repo.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	got, err = repo.Find(ctx, "POST /v1/comments", "u1", "k")
	require.NoError(t, err)
	assert.NotNil(t, got)

	now = now.Add(idempotency.DefaultTTL)
	got, err = repo.Find(ctx, "POST /v1/comments", "u1", "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}
