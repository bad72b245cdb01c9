package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// HealthHandler 健康检查
type HealthHandler struct {
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewHealthHandler db/redis 为 nil 时显示 not configured
func NewHealthHandler(db *sql.DB, redisClient *redis.Client, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, redisClient: redisClient, logger: logger}
}

// HealthCheckResponse 健康检查响应
type HealthCheckResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	services := make(map[string]string)

	check := func(name string, ping func(ctx context.Context) error) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			status = "unhealthy"
			services[name] = "unhealthy: " + err.Error()
			h.logger.Warn("Health check failed", zap.String("service", name), zap.Error(err))
			return
		}
		services[name] = "healthy"
	}

	if h.db != nil {
		check("database", h.db.PingContext)
	} else {
		services["database"] = "not configured (in-memory store)"
	}
	if h.redisClient != nil {
		check("redis", func(ctx context.Context) error { return h.redisClient.Ping(ctx).Err() })
	} else {
		services["redis"] = "not configured"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, HealthCheckResponse{Status: status, Timestamp: time.Now().UTC(), Services: services})
}
