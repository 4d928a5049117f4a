package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env           string `env:"ENV" env-default:"local"`
	HTTP          HTTPConfig
	Storage       StorageConfig
	Database      DBConfig
	Redis         RedisConfig
	Notifications NotificationsConfig
	Security      SecConfig
}

type HTTPConfig struct {
	Port    uint16        `env:"HTTP_PORT" env-default:"8080"`
	Timeout time.Duration `env:"HTTP_TIMEOUT" env-default:"30s"`
}

// StorageConfig selects the key/value backend: memory, sqlite, postgres or redis.
// Shared must be set when several instances point at the same postgres or
// redis backend; state is then re-read before every change.
type StorageConfig struct {
	Driver     string        `env:"STORAGE_DRIVER" env-default:"sqlite"`
	Shared     bool          `env:"STORAGE_SHARED" env-default:"false"`
	KeyPrefix  string        `env:"STORAGE_KEY_PREFIX" env-default:"dashboard:"`
	OpTimeout  time.Duration `env:"STORAGE_OP_TIMEOUT" env-default:"3s"`
	SQLitePath string        `env:"SQLITE_PATH" env-default:"dashboard.db"`
}

type DBConfig struct {
	Host     string `env:"POSTGRES_HOST" env-default:"localhost"`
	Port     uint16 `env:"POSTGRES_PORT" env-default:"5432"`
	User     string `env:"POSTGRES_USER" env-default:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" env-default:"postgres"`
	DBName   string `env:"POSTGRES_DB" env-default:"dashboard"`
}

type RedisConfig struct {
	Addr                 string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password             string `env:"REDIS_PASSWORD" env-default:""`
	DB                   int    `env:"REDIS_DB" env-default:"0"`
	NotificationsChannel string `env:"REDIS_NOTIFICATIONS_CHANNEL" env-default:"dashboard.notifications"`
}

// NotificationsConfig picks how notifications reach websocket clients:
// "local" delivers in process, "redis" goes through pub/sub so clients of
// every instance see them.
type NotificationsConfig struct {
	Transport string `env:"NOTIFICATIONS_TRANSPORT" env-default:"local"`
}

type SecConfig struct {
	JWTSecret string `env:"JWT_SECRET"`
}

func MustLoad() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment variables")
	}

	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("failed to read environment variables", "error", err)
		os.Exit(1)
	}

	return &cfg
}
