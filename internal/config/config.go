package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "nest-data/common/config"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config nest-data（HTTP API + sync reconciler）配置
type Config struct {
	HTTP struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	DBEnabled bool                     `yaml:"db_enabled"`
	Database  commoncfg.DatabaseConfig `yaml:"database"`
	Redis     commoncfg.RedisConfig    `yaml:"redis"`
	MQTT      commoncfg.MQTTConfig     `yaml:"mqtt"`
	Log       struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Auth AuthConfig `yaml:"auth"`
	AI   AIConfig   `yaml:"ai"`
	Sync SyncConfig `yaml:"sync"`
}

// AuthConfig bearer token verification
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// AIConfig external recommendation service
type AIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SyncConfig medical sync reconciler
type SyncConfig struct {
	RetryInterval time.Duration `yaml:"retry_interval"` // 0 disables the background loop
	MaxAttempts   int           `yaml:"max_attempts"`
	Grace         time.Duration `yaml:"grace"`
	BatchSize     int           `yaml:"batch_size"`
}

// Load builds the configuration: defaults, then the optional YAML file named
// by NEST_CONFIG_FILE, then environment variables (a local .env is loaded first).
func Load() (*Config, error) {
	cfg, err := LoadTooling()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

// LoadTooling is Load without the JWT_SECRET requirement; nestctl uses it.
func LoadTooling() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("NEST_CONFIG_FILE"); path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":8080"
	cfg.HTTP.AllowedOrigins = []string{"*"}

	// 默认开启 DB；连接失败时回退到内存 store
	cfg.DBEnabled = true
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "nest"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxConns = 20
	cfg.Database.MaxIdle = 5

	cfg.Redis.Addr = "localhost:6379"

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "nest-data"
	cfg.MQTT.QoS = 1

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	cfg.AI.BaseURL = "http://localhost:5001"
	cfg.AI.Timeout = 10 * time.Second

	cfg.Sync.RetryInterval = 5 * time.Minute
	cfg.Sync.MaxAttempts = 5
	cfg.Sync.Grace = time.Minute
	cfg.Sync.BatchSize = 50
	return cfg
}

func loadYAML(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.HTTP.AllowedOrigins = splitList(origins)
	}

	if v := os.Getenv("DB_ENABLED"); v != "" {
		cfg.DBEnabled = v == "true"
	}
	cfg.Database.LoadFromEnv("DB")
	cfg.Redis.LoadFromEnv("REDIS")
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)

	cfg.AI.BaseURL = getEnv("AI_SERVICE_URL", cfg.AI.BaseURL)
	cfg.AI.Timeout = seconds("AI_TIMEOUT_SECONDS", cfg.AI.Timeout)

	cfg.Sync.RetryInterval = seconds("SYNC_RETRY_INTERVAL_SECONDS", cfg.Sync.RetryInterval)
	cfg.Sync.MaxAttempts = parseInt(os.Getenv("SYNC_MAX_ATTEMPTS"), cfg.Sync.MaxAttempts)
	cfg.Sync.Grace = seconds("SYNC_GRACE_SECONDS", cfg.Sync.Grace)
	cfg.Sync.BatchSize = parseInt(os.Getenv("SYNC_BATCH_SIZE"), cfg.Sync.BatchSize)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func seconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
