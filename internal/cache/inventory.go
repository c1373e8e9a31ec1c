package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"seniority/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	UserKeyPrefix      = "user:%d"
	PostKeyPrefix      = "post:%d"
	FollowingKeyPrefix = "user:%d:following"
)

const (
	UserTTL      = 5 * time.Minute
	PostTTL      = 30 * time.Minute
	FollowingTTL = time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func FollowingKey(userID uint) string {
	return fmt.Sprintf(FollowingKeyPrefix, userID)
}

// family returns the key prefix used as a metrics label.
func family(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		if strings.HasSuffix(key, ":following") {
			return key[:i] + ":following"
		}
		return key[:i]
	}
	return key
}

// GetJSON decodes a cached value into dest. It reports false on a miss or
// when no client is configured.
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if client == nil {
		return false, nil
	}
	raw, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores value under key for ttl.
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, raw, ttl).Err()
}

// Aside reads key into dest, or calls fetch to fill dest and stores the
// result. Cache failures never fail the read.
func Aside(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetch func() error) error {
	if hit, err := GetJSON(ctx, key, dest); err == nil && hit {
		observability.CacheResults.WithLabelValues(family(key), "hit").Inc()
		return nil
	}
	observability.CacheResults.WithLabelValues(family(key), "miss").Inc()

	if err := fetch(); err != nil {
		return err
	}
	if err := SetJSON(ctx, key, dest, ttl); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return nil
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateFollowing(ctx context.Context, userIDs ...uint) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, FollowingKey(id))
	}
	Invalidate(ctx, keys...)
}
