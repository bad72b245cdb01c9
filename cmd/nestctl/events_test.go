package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	commonredis "nest-data/common/redis"
	"nest-data/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTailStream(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()

	pub := service.NewStreamPublisher(rc, "", 100)
	require.NoError(t, pub.Publish(context.Background(), service.Event{Type: service.EventRequestCreated, ShelterID: 3}))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, tailStream(ctx, rc, &out, "test", "c1", 10, 50*time.Millisecond))
	assert.Contains(t, out.String(), service.EventRequestCreated)

	// 已 ack，重新读取不会再收到
	pending, err := commonredis.ReadFromStream(context.Background(), rc, service.WorkflowStream, "test", "c2", 10, -1)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
