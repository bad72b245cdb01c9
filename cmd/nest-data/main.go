package main

import (
	"context"
	"database/sql"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"nest-data/common/database"
	"nest-data/common/logger"
	"nest-data/common/mqtt"
	commonredis "nest-data/common/redis"
	"nest-data/internal/config"
	httpapi "nest-data/internal/http"
	"nest-data/internal/repository"
	"nest-data/internal/service"
	"nest-data/internal/store"
	"nest-data/migrations"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 事件流最大长度
const eventStreamMaxLen = 10000

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("Failed to load config", zap.Error(err))
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "nest-data")
	if err != nil {
		zap.NewExample().Fatal("Failed to init logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 存储：DB 不可用时回退到内存 store
	var db *sql.DB
	var st repository.Store
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err != nil {
			log.Warn("DB enabled but connection failed, falling back to in-memory store", zap.Error(err))
		} else if err := migrations.Apply(ctx, d); err != nil {
			log.Warn("Schema migration failed, falling back to in-memory store", zap.Error(err))
			_ = database.Close(d)
		} else {
			db = d
			st = repository.NewPostgresStore(db)
			log.Info("DB enabled for nest-data")
		}
	}
	if st == nil {
		st = repository.NewMemoryStore()
		log.Info("Using in-memory store")
	}

	// Redis：床位统计缓存 + 工作流事件流
	var redisClient *redis.Client
	var kv store.KV = store.NopKV{}
	publishers := []service.EventPublisher{}
	rc := commonredis.NewRedisClient(&cfg.Redis)
	pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
	if err := commonredis.Ping(pingCtx, rc); err != nil {
		log.Warn("Redis unavailable, bed-stats cache and event stream disabled", zap.Error(err))
		_ = commonredis.Close(rc)
	} else {
		redisClient = rc
		kv = store.NewRedisKV(rc)
		publishers = append(publishers, service.NewStreamPublisher(rc, service.WorkflowStream, eventStreamMaxLen))
	}
	cancelPing()

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		if c, err := mqtt.NewClient(&cfg.MQTT, log); err != nil {
			log.Warn("MQTT connection failed, shelter event notifications disabled", zap.Error(err))
		} else {
			mqttClient = c
			publishers = append(publishers, service.NewMQTTPublisher(c))
		}
	}
	publisher := service.NewMultiPublisher(log, publishers...)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(reg)

	aiClient := service.NewAIClient(cfg.AI.BaseURL, cfg.AI.Timeout, log)

	profiles := service.NewProfileService(st, log)
	admission := service.NewAdmissionService(st, kv, publisher, metrics, log)
	assignments := service.NewAssignmentService(st, admission, publisher, metrics, log)
	medical := service.NewMedicalSyncService(st, publisher, metrics, service.SyncOptions{
		MaxAttempts: cfg.Sync.MaxAttempts,
		Grace:       cfg.Sync.Grace,
		BatchSize:   cfg.Sync.BatchSize,
	}, log)
	recommendations := service.NewRecommendationService(st, aiClient, log)

	auth := httpapi.NewAuthenticator(cfg.Auth.JWTSecret, log)
	router := httpapi.NewRouter(auth, metrics.HTTPLatency, log)
	router.RegisterInfraRoutes(httpapi.NewHealthHandler(db, redisClient, log), reg)
	router.RegisterNGORoutes(httpapi.NewNGOHandler(profiles, assignments, recommendations, log))
	router.RegisterShelterRoutes(httpapi.NewShelterHandler(assignments, admission, medical, log))

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", httpapi.RequestIDHeader},
		AllowCredentials: true,
	}).Handler(router)

	srv := service.NewServer(cfg.HTTP.Addr, handler, log)
	reconciler := service.NewReconciler(medical, cfg.Sync.RetryInterval, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error { return reconciler.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("nest-data stopped with error", zap.Error(err))
	}

	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	_ = commonredis.Close(redisClient)
	if db != nil {
		_ = database.Close(db)
	}
	log.Info("nest-data stopped")
}
