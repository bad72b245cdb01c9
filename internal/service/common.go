package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nest-data/internal/domain"

	"go.uber.org/zap"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

// publish 尽力投递事件；失败只记录日志
func publish(ctx context.Context, pub EventPublisher, logger *zap.Logger, ev Event) {
	if pub == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = nowUTC()
	}
	if err := pub.Publish(ctx, ev); err != nil {
		logger.Warn("Failed to publish workflow event", zap.String("type", ev.Type), zap.Error(err))
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), domain.ErrInvalidInput)
}
