// Package session turns session tokens into user identities and decides
// whether an identity may perform an action.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"warbler/internal/models"
	"warbler/internal/observability"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the cookie carrying the session token.
const CookieName = "warbler_session"

// DefaultIssuer is the token issuer when none is configured.
const DefaultIssuer = "warbler"

// Session is the identity attached to one request. The zero value is anonymous.
type Session struct {
	UserID    uint
	TokenID   string
	ExpiresAt time.Time
}

// Anonymous returns a session with no user.
func Anonymous() Session {
	return Session{}
}

// IsAnonymous reports whether the session carries no user.
func (s Session) IsAnonymous() bool {
	return s.UserID == 0
}

// Action names something a session may attempt.
type Action string

const (
	ActionCreateMessage Action = "create_message"
	ActionDeleteMessage Action = "delete_message"
	ActionViewFollows   Action = "view_follows"
	ActionFollow        Action = "follow"
	ActionLike          Action = "like"
	ActionDeleteAccount Action = "delete_account"
)

// requiresOwnership lists the actions that change or remove a resource.
func (a Action) requiresOwnership() bool {
	switch a {
	case ActionDeleteMessage, ActionDeleteAccount:
		return true
	}
	return false
}

// Owned is implemented by resources with an owning user.
type Owned interface {
	OwnerID() uint
}

// UserLookup resolves user ids. repository.UserRepository satisfies it.
type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// Config holds the signing parameters for session tokens.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Gate issues and checks sessions.
type Gate struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	users   UserLookup
	revoked RevocationStore
	now     func() time.Time
}

// NewGate returns a Gate. The secret must not be empty.
func NewGate(cfg Config, users UserLookup, revoked RevocationStore) (*Gate, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session secret not configured")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if revoked == nil {
		revoked = NewMemoryRevocationStore()
	}
	return &Gate{
		secret:  []byte(cfg.Secret),
		issuer:  cfg.Issuer,
		ttl:     cfg.TTL,
		users:   users,
		revoked: revoked,
		now:     time.Now,
	}, nil
}

// TTL returns how long issued tokens stay valid.
func (g *Gate) TTL() time.Duration {
	return g.ttl
}

// Issue signs a new session token for user.
func (g *Gate) Issue(user *models.User) (string, Session, error) {
	if user == nil || user.ID == 0 {
		return "", Session{}, errors.New("cannot issue a session without a user")
	}

	now := g.now()
	sess := Session{
		UserID:    user.ID,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(g.ttl),
	}
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(user.ID), 10),
		"jti": sess.TokenID,
		"iss": g.issuer,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": sess.ExpiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, sess, nil
}

// Resolve returns the session carried by token. Missing, malformed, expired
// and revoked tokens all resolve to Anonymous.
func (g *Gate) Resolve(ctx context.Context, token string) Session {
	if token == "" {
		return Anonymous()
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.secret, nil
	},
		jwt.WithIssuer(g.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil || !parsed.Valid {
		return Anonymous()
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Anonymous()
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return Anonymous()
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return Anonymous()
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return Anonymous()
	}

	revoked, err := g.revoked.IsRevoked(ctx, jti)
	if err != nil || revoked {
		return Anonymous()
	}

	sess := Session{UserID: uint(userID), TokenID: jti}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		sess.ExpiresAt = exp.Time
	}
	return sess
}

// Revoke ends the session. Later Resolve calls with its token return Anonymous.
func (g *Gate) Revoke(ctx context.Context, sess Session) error {
	if sess.IsAnonymous() || sess.TokenID == "" {
		return nil
	}
	ttl := g.ttl
	if !sess.ExpiresAt.IsZero() {
		ttl = sess.ExpiresAt.Sub(g.now())
	}
	if ttl <= 0 {
		return nil
	}
	if err := g.revoked.Revoke(ctx, sess.TokenID, ttl); err != nil {
		return err
	}
	observability.RecordEvent(observability.EventLogout)
	return nil
}

// CurrentUser returns the user behind sess, or nil when the session is
// anonymous or its user no longer exists.
func (g *Gate) CurrentUser(ctx context.Context, sess Session) (*models.User, error) {
	if sess.IsAnonymous() {
		return nil, nil
	}
	user, err := g.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// Authorize returns the acting user when sess may perform action on resource.
// Every action needs a live user; deleting also needs ownership of resource.
// Denials are always Unauthorized errors.
func (g *Gate) Authorize(ctx context.Context, sess Session, action Action, resource Owned) (*models.User, error) {
	user, err := g.CurrentUser(ctx, sess)
	if err != nil {
		return nil, err
	}
	if user == nil {
		observability.RecordEvent(observability.EventUnauthorized)
		return nil, models.NewUnauthorizedError("Access unauthorized")
	}

	if action.requiresOwnership() {
		if resource == nil || resource.OwnerID() != user.ID {
			observability.RecordEvent(observability.EventUnauthorized)
			return nil, models.NewUnauthorizedError("Access unauthorized")
		}
	}
	return user, nil
}
