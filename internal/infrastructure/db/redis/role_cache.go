package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/carrent/auth-engine/internal/core/domain"
)

// Key layout:
//
//	auth:role:<identity-id>  cached resolved role
//	auth:*                   every other auth-adjacent key, swept on logout
const (
	roleKeyPrefix = "auth:role:"
	authKeyGlob   = "auth:*"
)

// RoleCache implements ports.RoleCache on Redis. Roles are cached without a
// TTL: the resolver's precedence order already ranks the cache below any
// live answer from the profile store, and Logout clears it.
type RoleCache struct {
	client *redis.Client
}

func NewRoleCache(client *redis.Client) *RoleCache {
	return &RoleCache{client: client}
}

// GetRole returns the cached role for an identity, with a found flag.
func (c *RoleCache) GetRole(ctx context.Context, identityID string) (domain.Role, bool, error) {
	v, err := c.client.Get(ctx, roleKeyPrefix+identityID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("role cache get: %w", err)
	}
	return domain.Role(v), true, nil
}

// SetRole caches the resolved role for an identity.
func (c *RoleCache) SetRole(ctx context.Context, identityID string, role domain.Role) error {
	if err := c.client.Set(ctx, roleKeyPrefix+identityID, string(role), 0).Err(); err != nil {
		return fmt.Errorf("role cache set: %w", err)
	}
	return nil
}

// Clear removes every auth-adjacent key. Uses SCAN rather than KEYS so a
// shared Redis is not blocked.
func (c *RoleCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, authKeyGlob, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("role cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("role cache clear: %w", err)
	}
	return nil
}
