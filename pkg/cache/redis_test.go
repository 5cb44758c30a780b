package cache

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketsale/pkg/config"
)

func TestConnect_Unreachable(t *testing.T) {
	client, err := Connect(context.Background(), config.RedisConfig{URL: "127.0.0.1:1"})
	assert.Nil(t, client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestConnect(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client, err := Connect(context.Background(), config.RedisConfig{URL: addr})
	if err != nil {
		t.Skip("Redis not available")
	}
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())
}
