package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	commonredis "nest-data/common/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 工作流事件类型
const (
	EventRequestCreated     = "request.created"
	EventRequestAccepted    = "request.accepted"
	EventRequestRejected    = "request.rejected"
	EventResidentAdmitted   = "resident.admitted"
	EventResidentDischarged = "resident.discharged"
	EventSyncFailed         = "sync.failed"
)

// WorkflowStream Redis Stream 名称
const WorkflowStream = "nest:workflow:events"

// Event 工作流事件（尽力投递，失败不影响调用方）
type Event struct {
	Type       string         `json:"type"`
	ShelterID  int64          `json:"shelter_id,omitempty"`
	ProfileID  *int64         `json:"profile_id,omitempty"`
	RequestID  int64          `json:"request_id,omitempty"`
	ResidentID int64          `json:"resident_id,omitempty"`
	RecordID   int64          `json:"record_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	At         time.Time      `json:"at"`
}

// EventPublisher 事件发布
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher 丢弃所有事件
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// StreamPublisher 发布到 Redis Stream
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewStreamPublisher stream 为空时使用 WorkflowStream
func NewStreamPublisher(client *redis.Client, stream string, maxLen int64) *StreamPublisher {
	if stream == "" {
		stream = WorkflowStream
	}
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *StreamPublisher) Publish(ctx context.Context, ev Event) error {
	if _, err := commonredis.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, ev.Type, ev); err != nil {
		return fmt.Errorf("failed to publish %s to stream: %w", ev.Type, err)
	}
	return nil
}

// MQTTClient 由 common/mqtt.Client 实现
type MQTTClient interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	QoS() byte
}

// MQTTPublisher 发布到 nest/shelters/{shelter_id}/events
type MQTTPublisher struct {
	client MQTTClient
}

func NewMQTTPublisher(client MQTTClient) *MQTTPublisher {
	return &MQTTPublisher{client: client}
}

// ShelterEventsWildcard 订阅全部收容所事件
const ShelterEventsWildcard = "nest/shelters/+/events"

// ShelterEventsTopic 收容所事件主题
func ShelterEventsTopic(shelterID int64) string {
	return fmt.Sprintf("nest/shelters/%d/events", shelterID)
}

func (p *MQTTPublisher) Publish(_ context.Context, ev Event) error {
	if ev.ShelterID == 0 {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.client.Publish(ShelterEventsTopic(ev.ShelterID), p.client.QoS(), false, payload)
}

// MultiPublisher 依次发布到多个目标；单个失败只记录日志
type MultiPublisher struct {
	publishers []EventPublisher
	logger     *zap.Logger
}

func NewMultiPublisher(logger *zap.Logger, publishers ...EventPublisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers, logger: logger}
}

func (m *MultiPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	for _, p := range m.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			m.logger.Warn("Failed to publish workflow event",
				zap.String("type", ev.Type),
				zap.Int64("shelter_id", ev.ShelterID),
				zap.Error(err),
			)
		}
	}
	return nil
}
