package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ictlab/backtest-engine-go/internal/database"
)

// NewMiniredisClient starts an in-process Redis server and returns a
// client wrapper connected to it. Both are torn down with the test.
func NewMiniredisClient(t *testing.T) (*database.RedisClient, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return &database.RedisClient{Client: client}, srv
}
