package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // あれば最優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string

	JWTSecret      string        // JWT署名シークレット
	AccessTokenTTL time.Duration // アクセストークンの有効期限

	// チェックアウト中の行ロック待ちの上限
	CheckoutLockTimeout time.Duration

	RedisAddr string        // 空ならリプレイキャッシュ無効
	ReplayTTL time.Duration // リプレイキャッシュの保持期間

	KafkaBrokers       []string // 空ならoutboxリレー無効
	OutboxTopic        string
	OutboxPollInterval time.Duration

	LogLevel string
}

// .envがあれば読んでから環境変数を読む
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// 環境変数だけから読む（テスト用にLoadと分けている）
func FromEnv() (Config, error) {
	cfg := Config{
		Port: getenv("PORT", "8080"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "app"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getenv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
		OutboxTopic:  getenv("OUTBOX_TOPIC", "orders"),

		LogLevel: getenv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.CheckoutLockTimeout, err = durationEnv("CHECKOUT_LOCK_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ReplayTTL, err = durationEnv("REPLAY_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = durationEnv("OUTBOX_POLL_INTERVAL", time.Second); err != nil {
		return Config{}, err
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.CheckoutLockTimeout < 0 {
		return Config{}, fmt.Errorf("CHECKOUT_LOCK_TIMEOUT must be >= 0")
	}

	return cfg, nil
}

// DSN はgorm用の接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getenv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func splitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
