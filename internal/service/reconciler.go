package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Retrier 由 MedicalSyncService 实现
type Retrier interface {
	RetryFailed(ctx context.Context) (*RetryReport, error)
}

// Reconciler 周期性重试失败的医疗同步
type Reconciler struct {
	retrier  Retrier
	interval time.Duration
	logger   *zap.Logger
}

// NewReconciler interval <= 0 时 Run 直接返回
func NewReconciler(retrier Retrier, interval time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{retrier: retrier, interval: interval, logger: logger}
}

// Run 阻塞直到 ctx 取消
func (r *Reconciler) Run(ctx context.Context) error {
	if r.interval <= 0 {
		r.logger.Info("Sync reconciler disabled")
		return nil
	}
	r.logger.Info("Starting sync reconciler", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping sync reconciler")
			return nil
		case <-ticker.C:
			if _, err := r.retrier.RetryFailed(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("Sync retry pass failed", zap.Error(err))
			}
		}
	}
}
