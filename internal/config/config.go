package config

import (
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション設定を表す
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	AMQP        AMQPConfig
	Hold        HoldConfig
	Sweeper     SweeperConfig
	Idempotency IdempotencyConfig
	TxRetry     TxRetryConfig
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig はデータベース設定
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig はRedis設定
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// CacheTTL は空きスロットキャッシュの有効期間
	CacheTTL time.Duration
}

// AMQPConfig は予約イベント配信先の設定
// URLが空の場合はAMQP配信を行わない（ログシンクのみ）
type AMQPConfig struct {
	URL   string
	Queue string
}

// HoldConfig はホールド（仮押さえ）の設定
type HoldConfig struct {
	// Duration はホールドの有効期間（hold_expires_at = created_at + Duration）
	Duration time.Duration
}

// SweeperConfig は期限切れホールドスイーパーの設定
type SweeperConfig struct {
	Interval  time.Duration
	BatchSize int
}

// IdempotencyConfig は冪等性レコードの設定
type IdempotencyConfig struct {
	// CompletedTTL は成功レコードの保持期間（この間はリプレイ対象）
	CompletedTTL time.Duration
	// FailedTTL は失敗レコードの保持期間（リトライストーム防止用の短いTTL）
	FailedTTL time.Duration
	// GCInterval / GCBatchSize は期限切れレコード掃除の設定
	GCInterval  time.Duration
	GCBatchSize int
}

// TxRetryConfig はシリアライゼーション競合リトライの設定
type TxRetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Load は環境変数から設定を読み込む
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "roomshare"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			CacheTTL: getDurationEnv("AVAILABILITY_CACHE_TTL", 30*time.Second),
		},
		AMQP: AMQPConfig{
			URL:   getEnv("AMQP_URL", ""),
			Queue: getEnv("AMQP_QUEUE", "booking.events"),
		},
		Hold: HoldConfig{
			Duration: getDurationEnv("HOLD_DURATION", 24*time.Hour),
		},
		Sweeper: SweeperConfig{
			Interval:  getDurationEnv("SWEEPER_INTERVAL", 1*time.Minute),
			BatchSize: getIntEnv("SWEEPER_BATCH_SIZE", 100),
		},
		Idempotency: IdempotencyConfig{
			CompletedTTL: getDurationEnv("IDEMPOTENCY_COMPLETED_TTL", 24*time.Hour),
			FailedTTL:    getDurationEnv("IDEMPOTENCY_FAILED_TTL", 1*time.Minute),
			GCInterval:   getDurationEnv("IDEMPOTENCY_GC_INTERVAL", 10*time.Minute),
			GCBatchSize:  getIntEnv("IDEMPOTENCY_GC_BATCH_SIZE", 500),
		},
		TxRetry: TxRetryConfig{
			MaxAttempts: getIntEnv("TX_RETRY_MAX_ATTEMPTS", 5),
			BaseBackoff: getDurationEnv("TX_RETRY_BASE_BACKOFF", 25*time.Millisecond),
			MaxBackoff:  getDurationEnv("TX_RETRY_MAX_BACKOFF", 400*time.Millisecond),
		},
	}
}

// DSN はPostgreSQL接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Addr はRedis接続アドレスを返す
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Enabled はAMQP配信が有効かを返す
func (c *AMQPConfig) Enabled() bool {
	return c.URL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
