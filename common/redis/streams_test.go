package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestPublishJSONToStream_ReadBack(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, CreateConsumerGroup(ctx, client, "nest:test", "readers"))
	// second call must tolerate BUSYGROUP
	require.NoError(t, CreateConsumerGroup(ctx, client, "nest:test", "readers"))

	id, err := PublishJSONToStream(ctx, client, "nest:test", 100, "request.created", map[string]any{"request_id": 7})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := ReadFromStream(ctx, client, "nest:test", "readers", "c1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "request.created", msgs[0].Values["type"])

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &payload))
	assert.Equal(t, float64(7), payload["request_id"])

	require.NoError(t, AckMessage(ctx, client, "nest:test", "readers", msgs[0].ID))
}

func TestPublishToStream_StringifiesValues(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	_, err := PublishToStream(ctx, client, "nest:flat", 0, map[string]interface{}{
		"count":   int64(3),
		"ok":      true,
		"payload": []string{"a"},
	})
	require.NoError(t, err)

	entries, err := client.XRange(ctx, "nest:flat", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "3", entries[0].Values["count"])
	assert.Equal(t, "true", entries[0].Values["ok"])
	assert.Equal(t, `["a"]`, entries[0].Values["payload"])
}
