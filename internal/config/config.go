package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig control-plane database connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds a lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// TenantPoolConfig limits each partition's dedicated connection pool.
type TenantPoolConfig struct {
	MaxConns int
	MaxIdle  int
}

// Config brandhub-core service configuration.
type Config struct {
	HTTP struct {
		Addr string
	}
	Database DatabaseConfig
	// Per-partition pool limits. Each active brand gets its own pool, so
	// these are deliberately smaller than the admin pool limits.
	TenantPool TenantPoolConfig
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Token struct {
		PrivateKeyPath string
		PublicKeyPath  string
		KeyID          string
		// Previous public key kept during an overlapping rotation so
		// tokens signed before the cutover keep verifying until expiry.
		RetiredKeyPath string
		RetiredKeyID   string
		Issuer         string
		Audience       string
		TTL            time.Duration
	}
	// MasterKey is the base64-encoded 32-byte AES key protecting the
	// partition-role secrets stored in the control plane.
	MasterKey string
	Webhook   struct {
		URL string
	}
	Audit struct {
		Stream string
	}
	Seed struct {
		Email    string
		Password string
	}
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "brandhub")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.TenantPool.MaxConns = parseInt(getEnv("TENANT_DB_MAX_CONNS", "5"), 5)
	cfg.TenantPool.MaxIdle = parseInt(getEnv("TENANT_DB_MAX_IDLE", "2"), 2)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Token.PrivateKeyPath = getEnv("TOKEN_PRIVATE_KEY", "")
	cfg.Token.PublicKeyPath = getEnv("TOKEN_PUBLIC_KEY", "")
	cfg.Token.KeyID = getEnv("TOKEN_KEY_ID", "primary")
	cfg.Token.RetiredKeyPath = getEnv("TOKEN_RETIRED_PUBLIC_KEY", "")
	cfg.Token.RetiredKeyID = getEnv("TOKEN_RETIRED_KEY_ID", "")
	cfg.Token.Issuer = getEnv("TOKEN_ISSUER", "brandhub-core")
	cfg.Token.Audience = getEnv("TOKEN_AUDIENCE", "brandhub")
	cfg.Token.TTL = parseDuration(getEnv("TOKEN_TTL", "24h"), 24*time.Hour)

	cfg.MasterKey = getEnv("MASTER_KEY", "")

	cfg.Webhook.URL = getEnv("PROVISION_WEBHOOK_URL", "")
	cfg.Audit.Stream = getEnv("AUDIT_STREAM", "brandhub:audit")

	cfg.Seed.Email = getEnv("SEED_PRINCIPAL_EMAIL", "admin@brandhub.local")
	cfg.Seed.Password = getEnv("SEED_PRINCIPAL_PASSWORD", "ChangeMe123!")

	return cfg
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

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
