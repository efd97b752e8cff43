package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Defaults()

	assert.Equal(t, "5000", c.Server.Port)
	assert.Equal(t, ":5000", c.Server.Address())
	assert.Equal(t, "mongodb://localhost:27017/", c.Mongo.URI)
	assert.Equal(t, "auc", c.Mongo.Database)
	assert.Equal(t, 50, c.Mongo.MaxPoolSize)
	assert.Equal(t, 5*time.Second, c.Mongo.AcquireTimeout)
	assert.Equal(t, "disk", c.Blob.Backend)
	assert.Equal(t, "../src/images/photo", c.Blob.Dir)
	assert.Equal(t, []string{"*"}, c.CORSAllowOrigins)
	require.NoError(t, c.Validate())
}

func TestApplyEnv_OverridesDefaults(t *testing.T) {
	t.Setenv("API_PORT", "8081")
	t.Setenv("MONGO_URI", "mongodb://db:27017/")
	t.Setenv("MONGO_DATABASE", "auc_test")
	t.Setenv("MONGO_MAX_POOL_SIZE", "7")
	t.Setenv("MONGO_ACQUIRE_TIMEOUT", "250ms")
	t.Setenv("MONGO_CONNECT_TIMEOUT", "3")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("JWT_SECRET", "s3cret")

	c := Defaults()
	c.ApplyEnv()

	assert.Equal(t, "8081", c.Server.Port)
	assert.Equal(t, "mongodb://db:27017/", c.Mongo.URI)
	assert.Equal(t, "auc_test", c.Mongo.Database)
	assert.Equal(t, 7, c.Mongo.MaxPoolSize)
	assert.Equal(t, 250*time.Millisecond, c.Mongo.AcquireTimeout)
	assert.Equal(t, 3*time.Second, c.Mongo.ConnectTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSAllowOrigins)
	assert.Equal(t, "s3cret", c.JWTSecret)
}

func TestApplyEnv_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("MONGO_MAX_POOL_SIZE", "many")
	t.Setenv("MONGO_ACQUIRE_TIMEOUT", "soon")

	c := Defaults()
	c.ApplyEnv()

	assert.Equal(t, DefaultMaxPoolSize, c.Mongo.MaxPoolSize)
	assert.Equal(t, DefaultAcquireTimeout, c.Mongo.AcquireTimeout)
}

func TestLoadFile_OverlaysTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auc.toml")
	content := `
jwt_secret = "from-file"

[server]
port = "9000"

[mongo]
database = "auc_file"
acquire_timeout = "2s"

[blob]
backend = "s3"
s3_bucket = "avatars"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c := Defaults()
	require.NoError(t, c.LoadFile(path))

	assert.Equal(t, "9000", c.Server.Port)
	assert.Equal(t, "auc_file", c.Mongo.Database)
	assert.Equal(t, DefaultMongoURI, c.Mongo.URI, "keys absent from the file keep defaults")
	assert.Equal(t, 2*time.Second, c.Mongo.AcquireTimeout)
	assert.Equal(t, "s3", c.Blob.Backend)
	assert.Equal(t, "avatars", c.Blob.S3Bucket)
	assert.Equal(t, "from-file", c.JWTSecret)
	require.NoError(t, c.Validate())
}

func TestLoadFile_MissingFile(t *testing.T) {
	c := Defaults()
	require.Error(t, c.LoadFile(filepath.Join(t.TempDir(), "nope.toml")))
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auc.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = \"9000\"\n"), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "9100")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9100", c.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty uri", func(c *Config) { c.Mongo.URI = "" }},
		{"empty database", func(c *Config) { c.Mongo.Database = "" }},
		{"zero pool", func(c *Config) { c.Mongo.MaxPoolSize = 0 }},
		{"disk without dir", func(c *Config) { c.Blob.Dir = "" }},
		{"s3 without bucket", func(c *Config) { c.Blob.Backend = "s3" }},
		{"unknown backend", func(c *Config) { c.Blob.Backend = "ftp" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Defaults()
			tc.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
