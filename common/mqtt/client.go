package mqtt

import (
	"fmt"
	"time"

	"nest-data/common/config"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 连接与发布等待上限
const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Handler 处理一条订阅消息；返回的错误只记录日志
type Handler func(topic string, payload []byte) error

// Client paho 客户端封装，供事件发布与 nestctl 订阅使用
type Client struct {
	client paho.Client
	qos    byte
	logger *zap.Logger
}

// ClientID 同一 broker 上的多个实例需要不同的 client id，追加随机后缀
func ClientID(prefix string) string {
	if prefix == "" {
		prefix = "nest"
	}
	return prefix + "-" + uuid.NewString()[:8]
}

// NewClient 连接 broker；失败时返回错误，由调用方决定是否降级
func NewClient(cfg *config.MQTTConfig, logger *zap.Logger) (*Client, error) {
	clientID := ClientID(cfg.ClientID)
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("MQTT connection lost", zap.String("client_id", clientID), zap.Error(err))
		}).
		SetOnConnectHandler(func(paho.Client) {
			logger.Info("MQTT connected", zap.String("broker", cfg.Broker), zap.String("client_id", clientID))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c := paho.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return &Client{client: c, qos: cfg.QoS, logger: logger}, nil
}

// Subscribe 订阅主题（支持通配符）
func (c *Client) Subscribe(topic string, qos byte, handle Handler) error {
	token := c.client.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		if err := handle(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Error("Error handling MQTT message", zap.String("topic", msg.Topic()), zap.Error(err))
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}
	return nil
}

// Publish 等待 broker 确认，超时视为失败
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing to topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

// QoS 配置的发布 QoS
func (c *Client) QoS() byte { return c.qos }

// Disconnect 最多等待 250ms 发送完在途消息
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}
