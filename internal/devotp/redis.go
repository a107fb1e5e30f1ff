package devotp

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const redisKeyPrefix = "prepmaster:devotp:"

// RedisStore keeps dev OTPs in Redis so every server replica can serve GET /dev/otp.
type RedisStore struct {
	client *redis.Client
	log    logrus.FieldLogger
	nowF   func() time.Time
}

// NewRedisStore returns a Store backed by client.
func NewRedisStore(client *redis.Client, log logrus.FieldLogger) *RedisStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisStore{client: client, log: log, nowF: time.Now}
}

// Put stores otp with a TTL matching expiresAt. Errors are logged; dev retrieval is best-effort.
func (s *RedisStore) Put(ctx context.Context, email, otp string, expiresAt time.Time) {
	ttl := expiresAt.Sub(s.nowF())
	if ttl <= 0 {
		return
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key(email), otp, ttl).Err(); err != nil {
		s.log.WithError(err).Warn("devotp: failed to store otp")
	}
}

// Get returns the stored otp; redis expiry handles the window.
func (s *RedisStore) Get(ctx context.Context, email string) (string, bool) {
	v, err := s.client.Get(ctx, redisKeyPrefix+key(email)).Result()
	if err != nil {
		if err != redis.Nil {
			s.log.WithError(err).Warn("devotp: failed to read otp")
		}
		return "", false
	}
	return v, true
}
