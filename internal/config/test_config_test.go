package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"PORT", "APP_ENV", "REPOASSESS_WORKDIR", "REPOASSESS_WORKERS", "DATABASE_URL", "REPOASSESS_GRAPH_DIR",
	"ARTIFACT_S3_ENDPOINT", "ARTIFACT_MINIO_ENDPOINT", "ARTIFACT_S3_REGION", "ARTIFACT_S3_ACCESS_KEY",
	"ARTIFACT_S3_SECRET_KEY", "ARTIFACT_S3_BUCKET", "ARTIFACT_S3_USE_SSL", "MINIO_ROOT_USER",
	"MINIO_ROOT_PASSWORD", "ASSESS_CACHE_TTL", "ASSESS_CACHE_SIZE", "JOB_RETENTION",
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir()) // keep a developer .env out of the test
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.NotEmpty(t, cfg.Workdir)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, 128, cfg.CacheSize)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.JobRetention)
	assert.False(t, cfg.Artifact.Complete())
	assert.False(t, cfg.Artifact.UseSSL)

	opts := cfg.StoreOptions()
	assert.Empty(t, opts.DatabaseURL)
	assert.Equal(t, 128, opts.Cache.MaxEntries)
}

func TestLoad_EnvOverridesFlags(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("REPOASSESS_WORKDIR", "/var/lib/repoassess")
	t.Setenv("REPOASSESS_WORKERS", "6")
	t.Setenv("ASSESS_CACHE_TTL", "90s")
	t.Setenv("ARTIFACT_S3_ENDPOINT", "s3.example.org")
	t.Setenv("ARTIFACT_S3_ACCESS_KEY", "key")
	t.Setenv("ARTIFACT_S3_SECRET_KEY", "secret")

	cfg, err := Load([]string{"-port", ":7000", "-workdir", "/tmp/flag"})
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, "/var/lib/repoassess", cfg.Workdir)
	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.Artifact.Complete())
	assert.True(t, cfg.Artifact.UseSSL)
	assert.Equal(t, "repoassess-graphs", cfg.Artifact.Bucket)
}

func TestLoad_FlagsWithoutEnv(t *testing.T) {
	clearEnv(t)
	cfg, err := Load([]string{"-port", ":7000", "-workdir", "/tmp/flag"})
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Port)
	assert.Equal(t, "/tmp/flag", cfg.Workdir)
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("REPOASSESS_WORKERS", "many")
	_, err := Load(nil)
	assert.ErrorContains(t, err, "REPOASSESS_WORKERS")

	t.Setenv("REPOASSESS_WORKERS", "")
	t.Setenv("JOB_RETENTION", "soon")
	_, err = Load(nil)
	assert.ErrorContains(t, err, "JOB_RETENTION")
}
