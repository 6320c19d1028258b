package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix    = "warbler:user:%d"
	ProfileKeyPrefix = "warbler:profile:%d"
)

const (
	UserTTL    = 5 * time.Minute
	ProfileTTL = 1 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// ProfileKey holds a user together with its derived counts.
func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID), ProfileKey(userID))
}

// InvalidateProfiles drops cached counts for every given user.
func InvalidateProfiles(ctx context.Context, userIDs ...uint) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, ProfileKey(id))
	}
	Invalidate(ctx, keys...)
}
