package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Both scripts act only while the caller still owns the key.
const (
	unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`
	renewScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`
)

var (
	ErrLockNotConfigured = errors.New("lock client not configured")
	ErrLockKeyEmpty      = errors.New("lock key is empty")
	ErrLockTTLInvalid    = errors.New("lock ttl must be positive")
)

// Locker guards billing runs across replicas. A lock is a key holding a
// random owner token; only that owner may renew or release it.
type Locker struct {
	client *redis.Client
	unlock *redis.Script
	renew  *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		unlock: redis.NewScript(unlockScript),
		renew:  redis.NewScript(renewScript),
	}
}

// TryLock claims key for ttl. ok is false when another owner holds it.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error) {
	if err := l.validate(key, ttl); err != nil {
		return "", false, err
	}
	token = uuid.NewString()
	ok, err = l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Refresh pushes the expiry of an owned lock to ttl from now. It reports
// false once the lock expired or passed to another owner.
func (l *Locker) Refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if err := l.validate(key, ttl); err != nil {
		return false, err
	}
	renewed, err := l.renew.Run(ctx, l.client, []string{key}, token, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return renewed == 1, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	return l.unlock.Run(ctx, l.client, []string{key}, token).Err()
}

func (l *Locker) validate(key string, ttl time.Duration) error {
	switch {
	case l == nil || l.client == nil:
		return ErrLockNotConfigured
	case key == "":
		return ErrLockKeyEmpty
	case ttl <= 0:
		return ErrLockTTLInvalid
	}
	return nil
}
