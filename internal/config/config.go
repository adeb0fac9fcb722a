// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	// StorageMongoDB драйвер хранилища на основе MongoDB.
	StorageMongoDB = "mongodb"
	// StoragePostgres драйвер хранилища на основе PostgreSQL.
	StoragePostgres = "postgres"
)

// Config общая структура для хранения настроек
type Config struct {
	Env             string `yaml:"env" env:"ENV" env-default:"local"`
	Storage         `yaml:"storage"`
	RedisConnection `yaml:"redis_connection"`
	HTTPServer      `yaml:"http_server"`
	PayPal          `yaml:"paypal"`
	RabbitMQ        `yaml:"rabbitmq"`
	JWTToken        `yaml:"jwttoken"`
	RateLimit       `yaml:"rate_limit"`
}

// Storage структура для выбора и настройки хранилища аккаунтов
type Storage struct {
	Driver   string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongodb"`
	MongoDB  `yaml:"mongodb"`
	Postgres `yaml:"postgres"`
}

// MongoDB структура для настройки подключения к MongoDB
type MongoDB struct {
	MongoURL        string        `yaml:"url" env:"MONGODB_URL"`
	Database        string        `yaml:"database" env:"MONGODB_DATABASE" env-default:"userbase"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env-default:"10s"`
	MaxPoolSize     uint64        `yaml:"max_pool_size" env-default:"100"`
	MinPoolSize     uint64        `yaml:"min_pool_size" env-default:"1"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env-default:"300s"`
	RetryAttempts   int           `yaml:"retry_attempts" env-default:"3"`
	RetryInterval   time.Duration `yaml:"retry_interval" env-default:"5s"`
}

// Postgres структура для настройки подключения к PostgreSQL
type Postgres struct {
	StorageConnectionString string `yaml:"storage_connection_string" env:"POSTGRES_DSN"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":5001"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env-default:"1h"`
}

// PayPal структура для настройки клиента PayPal
type PayPal struct {
	BaseURL      string        `yaml:"base_url" env:"PAYPAL_BASE_URL" env-default:"https://api-m.sandbox.paypal.com"`
	ClientID     string        `yaml:"client_id" env:"PAYPAL_CLIENT_ID"`
	ClientSecret string        `yaml:"client_secret" env:"PAYPAL_CLIENT_SECRET"`
	Timeout      time.Duration `yaml:"timeout" env-default:"10s"`
	TrialPeriod  time.Duration `yaml:"trial_period" env-default:"336h"`
}

// RabbitMQ структура для настройки публикации событий
type RabbitMQ struct {
	Enabled    bool          `yaml:"enabled" env:"RABBITMQ_ENABLED"`
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string        `yaml:"exchange" env-default:"accounts"`
	RoutingKey string        `yaml:"routing_key" env-default:"account.activated"`
	Retries    int           `yaml:"retries" env-default:"5"`
	Delay      time.Duration `yaml:"delay" env-default:"2s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RateLimit структура для настройки ограничения частоты запросов
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"10"`
	Burst int     `yaml:"burst" env-default:"20"`
}

// MustLoad функция для загрузки конфига, путь к которому берётся из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла, применяет переменные окружения и проверяет значения
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	switch c.Driver {
	case StorageMongoDB:
		if c.MongoURL == "" {
			return fmt.Errorf("storage.mongodb.url is required for driver %q", c.Driver)
		}
	case StoragePostgres:
		if c.StorageConnectionString == "" {
			return fmt.Errorf("storage.postgres.storage_connection_string is required for driver %q", c.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("paypal client credentials are required")
	}
	if c.JWTSecretKey == "" {
		return fmt.Errorf("jwttoken.jwt_secret_key is required")
	}
	if c.RabbitMQ.Enabled && c.RabbitMQ.URL == "" {
		return fmt.Errorf("rabbitmq.url is required when rabbitmq is enabled")
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Storage:\n"+
			"  Driver: %s\n"+
			"  MongoDatabase: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"  CacheTTL: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"PayPal:\n"+
			"  BaseURL: %s\n"+
			"  ClientID: %s\n"+
			"  ClientSecret: %s\n"+
			"  Timeout: %s\n"+
			"  TrialPeriod: %s\n"+
			"RabbitMQ:\n"+
			"  Enabled: %t\n"+
			"  Exchange: %s\n"+
			"JWTToken:\n"+
			"  JWTSecretKey: %s\n",
		c.Env,
		c.Driver,
		c.Database,
		c.AddressRedis,
		c.DB,
		c.CacheTTL,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.BaseURL,
		c.ClientID,
		mask(c.ClientSecret),
		c.PayPal.Timeout,
		c.TrialPeriod,
		c.RabbitMQ.Enabled,
		c.Exchange,
		mask(c.JWTSecretKey),
	)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
