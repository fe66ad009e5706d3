package redis

import (
	"context"
	"fmt"
	"time"

	"ms-booking-finance/internal/logger"

	"github.com/go-redis/redis/v8"
)

const schoolLockPrefix = "booking_finance:recalc_lock:"

// releaseScript deletes the lock only while it is still held by owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SchoolLock keeps two instances from recalculating the same school at
// once. The TTL bounds how long a crashed holder blocks the school.
type SchoolLock struct {
	Client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

func NewSchoolLock(client *redis.Client, ttl time.Duration, log *logger.Logger) *SchoolLock {
	return &SchoolLock{Client: client, ttl: ttl, logger: log}
}

func schoolLockKey(schoolID int64) string {
	return fmt.Sprintf("%s%d", schoolLockPrefix, schoolID)
}

// LockSchool returns false when another owner holds the lock.
func (l *SchoolLock) LockSchool(ctx context.Context, schoolID int64, owner string) (bool, error) {
	key := schoolLockKey(schoolID)
	ok, err := l.Client.SetNX(ctx, key, owner, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		l.logger.LogCache("LOCK", key, fmt.Sprintf("acquired by %s", owner))
	} else {
		l.logger.LogCache("LOCK", key, "already held")
	}
	return ok, nil
}

// UnlockSchool is a no-op when the lock expired or belongs to someone else.
func (l *SchoolLock) UnlockSchool(ctx context.Context, schoolID int64, owner string) error {
	key := schoolLockKey(schoolID)
	if err := releaseScript.Run(ctx, l.Client, []string{key}, owner).Err(); err != nil && err != redis.Nil {
		return err
	}
	l.logger.LogCache("UNLOCK", key, fmt.Sprintf("released by %s", owner))
	return nil
}
