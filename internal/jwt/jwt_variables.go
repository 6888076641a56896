package jwt

import (
	"time"

	"visitor-tracker-backend/internal/env"

	"github.com/go-redis/redis/v8"
)

var (
	USER_SECRET string
	RedisClient *redis.Client
	RoleSecrets map[Role]string
)

const RefreshTokenTTL = 24 * 30 * time.Hour

const (
	RoleUser Role = iota
)

func init() {
	USER_SECRET = env.Get(env.UserSecretKey)

	RoleSecrets = map[Role]string{
		RoleUser: USER_SECRET,
	}

	RedisClient = redis.NewClient(&redis.Options{
		Addr:     env.Get(env.AuthRedisURL),
		Password: env.Get(env.AuthRedisPass),
		DB:       0,
	})
}
