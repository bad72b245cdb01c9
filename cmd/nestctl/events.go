package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"nest-data/common/mqtt"
	commonredis "nest-data/common/redis"
	"nest-data/internal/service"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func eventsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect workflow events",
	}

	var (
		group    string
		consumer string
		count    int64
		block    time.Duration
		viaMQTT  bool
	)
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Follow the workflow event stream (or shelter MQTT topics with --mqtt)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if viaMQTT {
				return a.tailMQTT(cmd.Context(), cmd.OutOrStdout())
			}
			if consumer == "" {
				consumer = mqtt.ClientID("nestctl")
			}
			rc := commonredis.NewRedisClient(&a.cfg.Redis)
			defer commonredis.Close(rc)
			return tailStream(cmd.Context(), rc, cmd.OutOrStdout(), group, consumer, count, block)
		},
	}
	tail.Flags().StringVar(&group, "group", "nestctl", "Consumer group")
	tail.Flags().StringVar(&consumer, "consumer", "", "Consumer name (default: random)")
	tail.Flags().Int64Var(&count, "count", 10, "Messages per read")
	tail.Flags().DurationVar(&block, "block", 5*time.Second, "Block timeout per read")
	tail.Flags().BoolVar(&viaMQTT, "mqtt", false, "Subscribe to nest/shelters/+/events instead of the Redis stream")

	cmd.AddCommand(tail)
	return cmd
}

// tailStream 消费者组读取并 ack，直到 ctx 取消
func tailStream(ctx context.Context, rc *redis.Client, out io.Writer, group, consumer string, count int64, block time.Duration) error {
	if err := commonredis.CreateConsumerGroup(ctx, rc, service.WorkflowStream, group); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	for ctx.Err() == nil {
		msgs, err := commonredis.ReadFromStream(ctx, rc, service.WorkflowStream, group, consumer, count, block)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read stream: %w", err)
		}
		ids := make([]string, 0, len(msgs))
		for _, m := range msgs {
			fmt.Fprintf(out, "%s\t%v\t%v\n", m.ID, m.Values["type"], m.Values["data"])
			ids = append(ids, m.ID)
		}
		if len(ids) > 0 {
			if err := commonredis.AckMessage(ctx, rc, service.WorkflowStream, group, ids...); err != nil {
				return fmt.Errorf("failed to ack: %w", err)
			}
		}
	}
	return nil
}

func (a *app) tailMQTT(ctx context.Context, out io.Writer) error {
	cfg := a.cfg.MQTT
	cfg.ClientID = "nestctl"
	client, err := mqtt.NewClient(&cfg, a.log)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	err = client.Subscribe(service.ShelterEventsWildcard, cfg.QoS, func(topic string, payload []byte) error {
		_, err := fmt.Fprintf(out, "%s\t%s\n", topic, payload)
		return err
	})
	if err != nil {
		return err
	}
	a.log.Info("Subscribed to shelter events", zap.String("topic", service.ShelterEventsWildcard))
	<-ctx.Done()
	return nil
}
