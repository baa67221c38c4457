package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stuffkit/backend/internal/infrastructure/config"
)

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.ErrorContains(t, err, "failed to connect to Redis")
}
