package redis

import (
	"context"
	_ "embed"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/sportsfest/registration/pkg/errors"
)

//go:embed unlock.lua
var unlockLua string

var unlockScript = redis.NewScript(unlockLua)

// IntentLocker marks a payment intent as being processed:
//
//	payment:intent:lock:{intent_id} -> owner token, with TTL
//
// The token is per process, so Release never deletes a lock that expired
// and was taken over by another instance.
type IntentLocker struct {
	client *redis.Client
	owner  string
}

// NewIntentLocker creates an IntentLocker on client.
func NewIntentLocker(client *redis.Client) *IntentLocker {
	return &IntentLocker{client: client, owner: uuid.NewString()}
}

// Acquire takes the lock for intentID with SET NX; false means another holder has it.
func (l *IntentLocker) Acquire(ctx context.Context, intentID string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(intentID), l.owner, ttl).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "acquire intent lock failed")
	}
	return ok, nil
}

// Release deletes the lock only if this locker still owns it.
func (l *IntentLocker) Release(ctx context.Context, intentID string) error {
	if err := unlockScript.Run(ctx, l.client, []string{lockKey(intentID)}, l.owner).Err(); err != nil {
		return apperrors.Wrap(err, "release intent lock failed")
	}
	return nil
}

// Held reports whether any instance holds the lock.
func (l *IntentLocker) Held(ctx context.Context, intentID string) (bool, error) {
	return Exists(ctx, l.client, lockKey(intentID))
}

func lockKey(intentID string) string {
	return "payment:intent:lock:" + intentID
}
