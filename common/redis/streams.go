package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// StreamMessage Redis Streams 消息
type StreamMessage struct {
	Stream string
	ID     string
	Values map[string]interface{}
}

// PublishToStream 发布消息到 Redis Streams（所有值转换为字符串）
func PublishToStream(ctx context.Context, client *redis.Client, stream string, maxLen int64, values map[string]interface{}) (string, error) {
	streamValues := make(map[string]interface{}, len(values))
	for k, v := range values {
		var strValue string
		switch val := v.(type) {
		case string:
			strValue = val
		case []byte:
			strValue = string(val)
		case int:
			strValue = fmt.Sprintf("%d", val)
		case int64:
			strValue = fmt.Sprintf("%d", val)
		case float64:
			strValue = fmt.Sprintf("%f", val)
		case bool:
			if val {
				strValue = "true"
			} else {
				strValue = "false"
			}
		default:
			jsonBytes, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			strValue = string(jsonBytes)
		}
		streamValues[k] = strValue
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: streamValues,
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return client.XAdd(ctx, args).Result()
}

// PublishJSONToStream 发布 JSON 消息到 Redis Streams
func PublishJSONToStream(ctx context.Context, client *redis.Client, stream string, maxLen int64, eventType string, data interface{}) (string, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return PublishToStream(ctx, client, stream, maxLen, map[string]interface{}{
		"type":      eventType,
		"data":      string(jsonBytes),
		"timestamp": time.Now().Unix(),
	})
}

// ReadFromStream 以消费者组方式读取消息
func ReadFromStream(ctx context.Context, client *redis.Client, stream, consumerGroup, consumer string, count int64, block time.Duration) ([]StreamMessage, error) {
	streams, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return []StreamMessage{}, nil
		}
		return nil, err
	}

	var messages []StreamMessage
	for _, s := range streams {
		for _, msg := range s.Messages {
			messages = append(messages, StreamMessage{
				Stream: s.Stream,
				ID:     msg.ID,
				Values: msg.Values,
			})
		}
	}
	return messages, nil
}

// AckMessage 确认消息
func AckMessage(ctx context.Context, client *redis.Client, stream, consumerGroup string, ids ...string) error {
	return client.XAck(ctx, stream, consumerGroup, ids...).Err()
}

// CreateConsumerGroup 创建消费者组；组已存在时忽略
func CreateConsumerGroup(ctx context.Context, client *redis.Client, stream, groupName string) error {
	err := client.XGroupCreateMkStream(ctx, stream, groupName, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}
