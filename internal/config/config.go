package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Server configuration
type ServerConfig struct {
	Port string `toml:"port"`
	Host string `toml:"host"`
}

// MongoDB configuration
type MongoConfig struct {
	URI            string        `toml:"uri"`
	Database       string        `toml:"database"`
	MaxPoolSize    int           `toml:"max_pool_size"`
	ConnectTimeout time.Duration `toml:"connect_timeout"`
	AcquireTimeout time.Duration `toml:"acquire_timeout"`
}

// Blob sink configuration. Backend is "disk" or "s3".
type BlobConfig struct {
	Backend     string `toml:"backend"`
	Dir         string `toml:"dir"`
	S3Bucket    string `toml:"s3_bucket"`
	S3Region    string `toml:"s3_region"`
	S3Endpoint  string `toml:"s3_endpoint"`
	S3AccessKey string `toml:"s3_access_key"`
	S3SecretKey string `toml:"s3_secret_key"`
	S3Prefix    string `toml:"s3_prefix"`
}

// Redis configuration. An empty Addr disables the distributed registration lock.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config holds all application configuration
type Config struct {
	Server           ServerConfig `toml:"server"`
	Mongo            MongoConfig  `toml:"mongo"`
	Blob             BlobConfig   `toml:"blob"`
	Redis            RedisConfig  `toml:"redis"`
	Log              LogConfig    `toml:"log"`
	CORSAllowOrigins []string     `toml:"cors_allow_origins"`
	JWTSecret        string       `toml:"jwt_secret"`
}

// Default configuration values
const (
	DefaultServerPort     = "5000"
	DefaultServerHost     = ""
	DefaultMongoURI       = "mongodb://localhost:27017/"
	DefaultMongoDB        = "auc"
	DefaultMaxPoolSize    = 50
	DefaultConnectTimeout = 10 * time.Second
	DefaultAcquireTimeout = 5 * time.Second
	DefaultBlobBackend    = "disk"
	DefaultBlobDir        = "../src/images/photo"
	DefaultS3Region       = "us-east-1"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultCORSOrigin     = "*"
)

// Defaults returns a Config populated with development defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port: DefaultServerPort,
			Host: DefaultServerHost,
		},
		Mongo: MongoConfig{
			URI:            DefaultMongoURI,
			Database:       DefaultMongoDB,
			MaxPoolSize:    DefaultMaxPoolSize,
			ConnectTimeout: DefaultConnectTimeout,
			AcquireTimeout: DefaultAcquireTimeout,
		},
		Blob: BlobConfig{
			Backend:  DefaultBlobBackend,
			Dir:      DefaultBlobDir,
			S3Region: DefaultS3Region,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		CORSAllowOrigins: []string{DefaultCORSOrigin},
	}
}

// Load builds the configuration: defaults, then the TOML file named by
// CONFIG_FILE (if any), then .env, then the process environment.
func Load() (*Config, error) {
	cfg := Defaults()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays values from a TOML file. Keys absent from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays values from environment variables.
func (c *Config) ApplyEnv() {
	c.Server.Port = getEnv("API_PORT", c.Server.Port)
	c.Server.Host = getEnv("API_HOST", c.Server.Host)

	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DATABASE", c.Mongo.Database)
	c.Mongo.MaxPoolSize = getEnvInt("MONGO_MAX_POOL_SIZE", c.Mongo.MaxPoolSize)
	c.Mongo.ConnectTimeout = getEnvDuration("MONGO_CONNECT_TIMEOUT", c.Mongo.ConnectTimeout)
	c.Mongo.AcquireTimeout = getEnvDuration("MONGO_ACQUIRE_TIMEOUT", c.Mongo.AcquireTimeout)

	c.Blob.Backend = getEnv("BLOB_BACKEND", c.Blob.Backend)
	c.Blob.Dir = getEnv("BLOB_DIR", c.Blob.Dir)
	c.Blob.S3Bucket = getEnv("S3_BUCKET", c.Blob.S3Bucket)
	c.Blob.S3Region = getEnv("S3_REGION", c.Blob.S3Region)
	c.Blob.S3Endpoint = getEnv("S3_ENDPOINT", c.Blob.S3Endpoint)
	c.Blob.S3AccessKey = getEnv("S3_ACCESS_KEY", c.Blob.S3AccessKey)
	c.Blob.S3SecretKey = getEnv("S3_SECRET_KEY", c.Blob.S3SecretKey)
	c.Blob.S3Prefix = getEnv("S3_PREFIX", c.Blob.S3Prefix)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.CORSAllowOrigins = getEnvList("CORS_ALLOW_ORIGINS", c.CORSAllowOrigins)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo uri is required")
	}
	if c.Mongo.Database == "" {
		return fmt.Errorf("mongo database is required")
	}
	if c.Mongo.MaxPoolSize <= 0 {
		return fmt.Errorf("mongo max pool size must be positive, got %d", c.Mongo.MaxPoolSize)
	}
	switch c.Blob.Backend {
	case "disk":
		if c.Blob.Dir == "" {
			return fmt.Errorf("blob dir is required for the disk backend")
		}
	case "s3":
		if c.Blob.S3Bucket == "" {
			return fmt.Errorf("s3 bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown blob backend %q", c.Blob.Backend)
	}
	return nil
}

// Address returns the server address string
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("5s") or whole seconds ("5").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
