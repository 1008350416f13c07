package utils

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// GetRedisClient connects to the redis instance described by REDIS_HOST,
// REDIS_PORT, REDIS_PASSWD and REDIS_DB, and pings it once.
func GetRedisClient(ctx context.Context) (*redis.Client, error) {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")),
		Password: os.Getenv("REDIS_PASSWD"),
		DB:       db,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, "redis is unreachable")
	}
	return client, nil
}
