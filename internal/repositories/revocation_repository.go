package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "jwt:blacklist:"

// RevocationRepository keeps revoked access-token ids in Redis until the
// token would have expired on its own.
type RevocationRepository struct {
	rdb *redis.Client
}

func NewRevocationRepository(rdb *redis.Client) *RevocationRepository {
	return &RevocationRepository{rdb: rdb}
}

func (r *RevocationRepository) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token %s: %w", jti, err)
	}
	return nil
}

func (r *RevocationRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.rdb.Get(ctx, blacklistPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup revoked token: %w", err)
	}
	return true, nil
}
