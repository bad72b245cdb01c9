package config

import (
	"fmt"
	"os"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
	MaxIdle  int    `yaml:"max_idle"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      byte   `yaml:"qos"`
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// LoadFromEnv 从环境变量加载配置
func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	if host := os.Getenv(prefix + "_HOST"); host != "" {
		c.Host = host
	}
	if port := os.Getenv(prefix + "_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.Port)
	}
	if user := os.Getenv(prefix + "_USER"); user != "" {
		c.User = user
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if database := os.Getenv(prefix + "_NAME"); database != "" {
		c.Database = database
	}
	if sslMode := os.Getenv(prefix + "_SSLMODE"); sslMode != "" {
		c.SSLMode = sslMode
	}
	if maxConns := os.Getenv(prefix + "_MAX_CONNS"); maxConns != "" {
		fmt.Sscanf(maxConns, "%d", &c.MaxConns)
	}
	if maxIdle := os.Getenv(prefix + "_MAX_IDLE"); maxIdle != "" {
		fmt.Sscanf(maxIdle, "%d", &c.MaxIdle)
	}
}

// LoadFromEnv 从环境变量加载Redis配置
func (c *RedisConfig) LoadFromEnv(prefix string) {
	if addr := os.Getenv(prefix + "_ADDR"); addr != "" {
		c.Addr = addr
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if db := os.Getenv(prefix + "_DB"); db != "" {
		fmt.Sscanf(db, "%d", &c.DB)
	}
}

// LoadFromEnv 从环境变量加载MQTT配置
func (c *MQTTConfig) LoadFromEnv(prefix string) {
	if enabled := os.Getenv(prefix + "_ENABLED"); enabled != "" {
		c.Enabled = enabled == "true"
	}
	if broker := os.Getenv(prefix + "_BROKER"); broker != "" {
		c.Broker = broker
	}
	if clientID := os.Getenv(prefix + "_CLIENT_ID"); clientID != "" {
		c.ClientID = clientID
	}
	if username := os.Getenv(prefix + "_USERNAME"); username != "" {
		c.Username = username
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
}
