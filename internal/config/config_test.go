package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
env: test
storage:
  driver: mongodb
  mongodb:
    url: "mongodb://localhost:27017"
    database: "userbase_test"
redis_connection:
  addressredis: "localhost:6379"
  password: "redis_pass"
  db: 1
  cache_ttl: 30m
http_server:
  addresshttp: ":8080"
  timeouthttp: 30s
  idle_timeout: 60s
paypal:
  base_url: "https://api-m.sandbox.paypal.com"
  client_id: "client"
  client_secret: "secret"
  timeout: 5s
jwttoken:
  jwt_secret_key: "test_secret_key"
  token_ttl: 24h
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, StorageMongoDB, cfg.Driver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURL)
	assert.Equal(t, "userbase_test", cfg.Database)
	assert.Equal(t, "localhost:6379", cfg.AddressRedis)
	assert.Equal(t, 1, cfg.DB)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, ":8080", cfg.AddressHTTP)
	assert.Equal(t, 30*time.Second, cfg.TimeoutHTTP)
	assert.Equal(t, "client", cfg.ClientID)
	assert.Equal(t, 5*time.Second, cfg.PayPal.Timeout)
	assert.Equal(t, "test_secret_key", cfg.JWTSecretKey)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, 14*24*time.Hour, cfg.TrialPeriod)
	assert.Equal(t, "./migrations", cfg.MigrationsPath)
	assert.Equal(t, "accounts", cfg.Exchange)
	assert.Equal(t, "account.activated", cfg.RoutingKey)
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, 20, cfg.Burst)
}

func TestLoad_FileNotExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Storage:  Storage{Driver: StorageMongoDB, MongoDB: MongoDB{MongoURL: "mongodb://localhost"}},
			PayPal:   PayPal{ClientID: "id", ClientSecret: "secret"},
			JWTToken: JWTToken{JWTSecretKey: "key"},
		}
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "valid", modify: func(*Config) {}},
		{
			name:    "unknown driver",
			modify:  func(c *Config) { c.Driver = "sqlite" },
			wantErr: "unknown storage driver",
		},
		{
			name:    "postgres without dsn",
			modify:  func(c *Config) { c.Driver = StoragePostgres },
			wantErr: "storage_connection_string",
		},
		{
			name:    "missing paypal credentials",
			modify:  func(c *Config) { c.ClientSecret = "" },
			wantErr: "paypal client credentials",
		},
		{
			name:    "rabbitmq enabled without url",
			modify:  func(c *Config) { c.RabbitMQ.Enabled = true },
			wantErr: "rabbitmq.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStringMasksSecrets(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	out := cfg.String()
	assert.NotContains(t, out, "test_secret_key")
	assert.NotContains(t, out, "ClientSecret: secret")
	assert.Contains(t, out, "ClientSecret: ***")
}
