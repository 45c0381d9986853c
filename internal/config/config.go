package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"repoassess/internal/store"
)

type Config struct {
	Port         string
	Env          string
	Workdir      string
	Workers      int
	DatabaseURL  string
	GraphDir     string
	Artifact     store.S3Config
	CacheTTL     time.Duration
	CacheSize    int
	JobRetention time.Duration
}

// StoreOptions maps the configuration onto store selection.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		DatabaseURL: c.DatabaseURL,
		S3:          c.Artifact,
		DiskDir:     c.GraphDir,
		Cache:       store.CacheConfig{MaxEntries: c.CacheSize, TTL: c.CacheTTL},
	}
}

// Load reads .env (when present), then command-line flags, then environment
// variables, later sources winning.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("repoassess", flag.ContinueOnError)
	port := fs.String("port", ":8080", "server port")
	workdir := fs.String("workdir", filepath.Join(os.TempDir(), "repoassess"), "directory for remote clones")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if envPort := strings.TrimSpace(os.Getenv("PORT")); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}
	env := firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local")

	cfg := &Config{
		Port:        *port,
		Env:         env,
		Workdir:     firstNonEmpty(strings.TrimSpace(os.Getenv("REPOASSESS_WORKDIR")), *workdir),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		GraphDir:    strings.TrimSpace(os.Getenv("REPOASSESS_GRAPH_DIR")),
		Artifact:    loadArtifactConfig(env),
	}
	var err error
	if cfg.Workers, err = envInt("REPOASSESS_WORKERS", 0); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = envInt("ASSESS_CACHE_SIZE", 128); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = envDuration("ASSESS_CACHE_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.JobRetention, err = envDuration("JOB_RETENTION", 10*time.Minute); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadArtifactConfig(env string) store.S3Config {
	endpoint := strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT"))
	if endpoint == "" && strings.EqualFold(env, "local") {
		endpoint = strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT"))
	}
	return store.S3Config{
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "repoassess-graphs"),
		UseSSL:    resolveUseSSL(env),
	}
}

func resolveUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv("ARTIFACT_S3_USE_SSL")))
	if err != nil {
		return true
	}
	return v
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
