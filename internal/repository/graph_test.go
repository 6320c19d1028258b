package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"warbler/internal/cache"
	"warbler/internal/models"
	"warbler/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usernames(users []models.User) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return names
}

func TestFollowRepository_CreateIsIdempotentSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "follows" ("follower_id","followed_id","created_at")`) + `.*ON CONFLICT DO NOTHING`).
		WithArgs(1, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), 1, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	user1 := testutil.CreateUser(t, db, 1111, "testuser1")
	user2 := testutil.CreateUser(t, db, 2222, "testuser2")
	user3 := testutil.CreateUser(t, db, 3333, "testuser3")

	require.NoError(t, repo.Create(ctx, user1.ID, user2.ID))
	require.NoError(t, repo.Create(ctx, user1.ID, user2.ID))
	require.NoError(t, repo.Create(ctx, user3.ID, user2.ID))

	var edges int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Equal(t, int64(2), edges, "duplicate follow must not add an edge")

	ok, err := repo.Exists(ctx, user1.ID, user2.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, user2.ID, user1.ID)
	require.NoError(t, err)
	assert.False(t, ok, "follow edges are directed")

	followers, err := repo.Followers(ctx, user2.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"testuser1", "testuser3"}, usernames(followers))

	following, err := repo.Following(ctx, user1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"testuser2"}, usernames(following))

	require.NoError(t, repo.Delete(ctx, user1.ID, user2.ID))
	require.NoError(t, repo.Delete(ctx, user1.ID, user2.ID))
	ok, err = repo.Exists(ctx, user1.ID, user2.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	err = repo.Create(ctx, user1.ID, 9999)
	assert.True(t, models.IsIntegrity(err), "got %v", err)
}

func TestLikeRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, 1, "author")
	fan := testutil.CreateUser(t, db, 2, "fan")
	first := testutil.CreateMessage(t, db, 10, author.ID, "first")
	second := testutil.CreateMessage(t, db, 11, author.ID, "second")

	require.NoError(t, repo.Create(ctx, fan.ID, first.ID))
	require.NoError(t, repo.Create(ctx, fan.ID, first.ID))

	var n int64
	require.NoError(t, db.Model(&models.Like{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	require.NoError(t, db.Model(&models.Like{}).
		Where("user_id = ? AND message_id = ?", fan.ID, first.ID).
		Update("created_at", time.Now().Add(-time.Hour)).Error)
	require.NoError(t, repo.Create(ctx, fan.ID, second.ID))

	liked, err := repo.LikedMessages(ctx, fan.ID)
	require.NoError(t, err)
	require.Len(t, liked, 2)
	assert.Equal(t, second.ID, liked[0].ID)
	assert.Equal(t, int64(1), liked[0].LikesCount)
	require.NotNil(t, liked[0].User)
	assert.Equal(t, "author", liked[0].User.Username)

	ok, err := repo.Exists(ctx, fan.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Delete(ctx, fan.ID, first.ID))
	require.NoError(t, repo.Delete(ctx, fan.ID, first.ID))
	ok, err = repo.Exists(ctx, fan.ID, first.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	err = repo.Create(ctx, fan.ID, 9999)
	assert.True(t, models.IsIntegrity(err), "got %v", err)
}

func TestMessageRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewMessageRepository(db)
	follows := NewFollowRepository(db)
	likes := NewLikeRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, 1, "alice")
	bob := testutil.CreateUser(t, db, 2, "bob")
	carol := testutil.CreateUser(t, db, 3, "carol")

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	post := func(userID uint, text string, offset time.Duration) *models.Message {
		m := &models.Message{UserID: userID, Text: text, Timestamp: base.Add(offset)}
		require.NoError(t, repo.Create(ctx, m))
		require.NotZero(t, m.ID)
		return m
	}

	a1 := post(alice.ID, "alice one", 0)
	b1 := post(bob.ID, "bob one", time.Minute)
	post(carol.ID, "carol one", 2*time.Minute)
	a2 := post(alice.ID, "alice two", 3*time.Minute)

	t.Run("get loads author and like count", func(t *testing.T) {
		require.NoError(t, likes.Create(ctx, bob.ID, a1.ID))
		got, err := repo.GetByID(ctx, a1.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice one", got.Text)
		assert.Equal(t, int64(1), got.LikesCount)
		require.NotNil(t, got.User)
		assert.Equal(t, "alice", got.User.Username)

		_, err = repo.GetByID(ctx, 9999)
		assert.True(t, models.IsNotFound(err))
	})

	t.Run("list by user newest first", func(t *testing.T) {
		msgs, err := repo.ListByUser(ctx, alice.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, a2.ID, msgs[0].ID)
		assert.Equal(t, a1.ID, msgs[1].ID)
	})

	t.Run("timeline includes followed users and self", func(t *testing.T) {
		require.NoError(t, follows.Create(ctx, alice.ID, bob.ID))
		msgs, err := repo.Timeline(ctx, alice.ID, 100)
		require.NoError(t, err)
		ids := []uint{}
		for _, m := range msgs {
			ids = append(ids, m.ID)
		}
		assert.Equal(t, []uint{a2.ID, b1.ID, a1.ID}, ids)
	})

	t.Run("create rejects unknown author", func(t *testing.T) {
		err := repo.Create(ctx, &models.Message{UserID: 9999, Text: "ghost"})
		assert.True(t, models.IsIntegrity(err), "got %v", err)
	})

	t.Run("delete removes message and its likes", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, a1.ID))
		_, err := repo.GetByID(ctx, a1.ID)
		assert.True(t, models.IsNotFound(err))

		var n int64
		require.NoError(t, db.Model(&models.Like{}).Where("message_id = ?", a1.ID).Count(&n).Error)
		assert.Zero(t, n)

		assert.True(t, models.IsNotFound(repo.Delete(ctx, a1.ID)))
	})
}

func TestMessageRepository_DeleteRefreshesLikerProfiles(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	db := testutil.NewTestDB(t)
	users := NewUserRepository(db)
	messages := NewMessageRepository(db)
	likes := NewLikeRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, 2222, "author")
	fan := testutil.CreateUser(t, db, 3333, "fan")
	msg := testutil.CreateMessage(t, db, 1, author.ID, "hello")
	require.NoError(t, likes.Create(ctx, fan.ID, msg.ID))

	profile, err := users.GetProfile(ctx, fan.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), profile.LikesCount)
	require.True(t, mr.Exists(cache.ProfileKey(fan.ID)))

	require.NoError(t, messages.Delete(ctx, msg.ID))
	assert.False(t, mr.Exists(cache.ProfileKey(fan.ID)))
	assert.False(t, mr.Exists(cache.ProfileKey(author.ID)))

	profile, err = users.GetProfile(ctx, fan.ID)
	require.NoError(t, err)
	assert.Zero(t, profile.LikesCount)
}
