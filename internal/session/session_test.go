package session

import (
	"context"
	"testing"
	"time"

	"warbler/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough-123"

type userLookupStub map[uint]*models.User

func (s userLookupStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, models.NewNotFoundError("User", id)
}

func newTestGate(t *testing.T, users userLookupStub, store RevocationStore) *Gate {
	t.Helper()
	g, err := NewGate(Config{Secret: testSecret, TTL: time.Hour}, users, store)
	require.NoError(t, err)
	return g
}

func TestNewGateValidation(t *testing.T) {
	_, err := NewGate(Config{TTL: time.Hour}, userLookupStub{}, nil)
	assert.Error(t, err)
	_, err = NewGate(Config{Secret: testSecret}, userLookupStub{}, nil)
	assert.Error(t, err)
}

func TestIssueAndResolve(t *testing.T) {
	alice := &models.User{ID: 1111, Username: "alice"}
	g := newTestGate(t, userLookupStub{1111: alice}, nil)
	ctx := context.Background()

	token, issued, err := g.Issue(alice)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.TokenID)

	sess := g.Resolve(ctx, token)
	assert.False(t, sess.IsAnonymous())
	assert.Equal(t, uint(1111), sess.UserID)
	assert.Equal(t, issued.TokenID, sess.TokenID)

	_, second, err := g.Issue(alice)
	require.NoError(t, err)
	assert.NotEqual(t, issued.TokenID, second.TokenID)

	_, _, err = g.Issue(nil)
	assert.Error(t, err)
}

func TestResolveRejectsBadTokens(t *testing.T) {
	alice := &models.User{ID: 1}
	g := newTestGate(t, userLookupStub{1: alice}, nil)
	ctx := context.Background()

	other := newTestGate(t, userLookupStub{}, nil)
	other.secret = []byte("a-different-secret-of-decent-length!!")
	foreign, _, err := other.Issue(alice)
	require.NoError(t, err)

	noneToken := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "jti": "x", "iss": DefaultIssuer, "exp": time.Now().Add(time.Hour).Unix()})
	unsigned, err := noneToken.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noJTI := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "iss": DefaultIssuer, "exp": time.Now().Add(time.Hour).Unix()})
	noJTISigned, err := noJTI.SignedString([]byte(testSecret))
	require.NoError(t, err)

	wrongIssuer := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "jti": "x", "iss": "someone-else", "exp": time.Now().Add(time.Hour).Unix()})
	wrongIssuerSigned, err := wrongIssuer.SignedString([]byte(testSecret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"wrong secret": foreign,
		"alg none":     unsigned,
		"missing jti":  noJTISigned,
		"wrong issuer": wrongIssuerSigned,
	} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, g.Resolve(ctx, token).IsAnonymous())
		})
	}
}

func TestResolveExpiredToken(t *testing.T) {
	alice := &models.User{ID: 1}
	g := newTestGate(t, userLookupStub{1: alice}, nil)

	token, _, err := g.Issue(alice)
	require.NoError(t, err)

	g.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.True(t, g.Resolve(context.Background(), token).IsAnonymous())
}

func TestRevokeWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	alice := &models.User{ID: 1}
	store := NewRedisRevocationStore(client)
	g := newTestGate(t, userLookupStub{1: alice}, store)
	ctx := context.Background()

	token, _, err := g.Issue(alice)
	require.NoError(t, err)
	sess := g.Resolve(ctx, token)
	require.False(t, sess.IsAnonymous())

	require.NoError(t, g.Revoke(ctx, sess))
	assert.True(t, mr.Exists("blacklist:"+sess.TokenID))
	ttl := mr.TTL("blacklist:" + sess.TokenID)
	assert.True(t, ttl > 0 && ttl <= time.Hour)

	assert.True(t, g.Resolve(ctx, token).IsAnonymous())

	// Another process sharing Redis sees the revocation too.
	peer := newTestGate(t, userLookupStub{1: alice}, NewRedisRevocationStore(client))
	assert.True(t, peer.Resolve(ctx, token).IsAnonymous())
}

func TestRevokeFallsBackToMemory(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	alice := &models.User{ID: 1}
	g := newTestGate(t, userLookupStub{1: alice}, NewRedisRevocationStore(client))
	ctx := context.Background()

	token, _, err := g.Issue(alice)
	require.NoError(t, err)
	sess := g.Resolve(ctx, token)
	require.False(t, sess.IsAnonymous())

	require.NoError(t, g.Revoke(ctx, sess))
	assert.True(t, g.Resolve(ctx, token).IsAnonymous())
}

func TestMemoryRevocationStoreExpires(t *testing.T) {
	store := NewMemoryRevocationStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "a", time.Minute))
	revoked, err := store.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = store.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestCurrentUser(t *testing.T) {
	alice := &models.User{ID: 1}
	g := newTestGate(t, userLookupStub{1: alice}, nil)
	ctx := context.Background()

	user, err := g.CurrentUser(ctx, Anonymous())
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = g.CurrentUser(ctx, Session{UserID: 1, TokenID: "t"})
	require.NoError(t, err)
	assert.Equal(t, alice, user)

	user, err = g.CurrentUser(ctx, Session{UserID: 2, TokenID: "t"})
	require.NoError(t, err, "a stale session is not an error")
	assert.Nil(t, user)
}

func TestAuthorize(t *testing.T) {
	alice := &models.User{ID: 1}
	bob := &models.User{ID: 2}
	g := newTestGate(t, userLookupStub{1: alice, 2: bob}, nil)
	ctx := context.Background()

	alicesMessage := &models.Message{ID: 10, UserID: alice.ID}
	aliceSess := Session{UserID: alice.ID, TokenID: "a"}
	bobSess := Session{UserID: bob.ID, TokenID: "b"}
	staleSess := Session{UserID: 3, TokenID: "c"}

	tests := []struct {
		name     string
		sess     Session
		action   Action
		resource Owned
		allowed  bool
	}{
		{"anonymous create", Anonymous(), ActionCreateMessage, nil, false},
		{"stale create", staleSess, ActionCreateMessage, nil, false},
		{"user create", aliceSess, ActionCreateMessage, nil, true},
		{"anonymous view follows", Anonymous(), ActionViewFollows, nil, false},
		{"user view follows", bobSess, ActionViewFollows, alice, true},
		{"user follow", bobSess, ActionFollow, alice, true},
		{"user like", bobSess, ActionLike, alicesMessage, true},
		{"owner delete message", aliceSess, ActionDeleteMessage, alicesMessage, true},
		{"non-owner delete message", bobSess, ActionDeleteMessage, alicesMessage, false},
		{"delete message without resource", aliceSess, ActionDeleteMessage, nil, false},
		{"delete own account", aliceSess, ActionDeleteAccount, alice, true},
		{"delete other account", bobSess, ActionDeleteAccount, alice, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := g.Authorize(ctx, tt.sess, tt.action, tt.resource)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.sess.UserID, user.ID)
				return
			}
			assert.Nil(t, user)
			assert.True(t, models.IsUnauthorized(err), "got %v", err)
			assert.False(t, models.IsNotFound(err))
		})
	}
}
