package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist records revoked session tokens in Redis. Each entry carries a TTL
// equal to the remaining token lifetime, so the set never outgrows the number
// of live tokens.
type Blacklist struct {
	client *redis.Client
	now    func() time.Time
}

// NewBlacklist constructs a Blacklist backed by the given Redis client.
func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client, now: time.Now}
}

// Revoke invalidates the token until its natural expiry.
func (b *Blacklist) Revoke(ctx context.Context, token string, expiresAt time.Time, reason string) error {
	if token == "" {
		return errors.New("auth: token required")
	}
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		// Already expired; keep the entry briefly so in-flight requests
		// still observe the revocation.
		ttl = time.Minute
	}
	return b.client.Set(ctx, blacklistKey(token), reason, ttl).Err()
}

// Contains reports whether the token has been revoked.
func (b *Blacklist) Contains(ctx context.Context, token string) (bool, error) {
	_, err := b.client.Get(ctx, blacklistKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Tokens are hashed before use as keys so raw credentials never land in Redis.
func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "blacklist:" + hex.EncodeToString(sum[:])
}
