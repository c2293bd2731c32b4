// Package config centralizes how the intake service reads environment
// variables and exposes them as strongly typed Go values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when INTAKE_CONFIG points at a missing file.
var ErrConfigNotFound = errors.New("configuration file not found")

// Config represents runtime configuration for the service.
type Config struct {
	Address     string
	PublicDir   string
	ViewsDir    string
	MaxFileSize int64
	LogLevel    string

	AllowedExtensions []string
	Blacklist         []string

	ReportStore string
	ReportLog   string
	SQLitePath  string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Workers       int

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	S3Region    string
	S3Bucket    string
}

const (
	defaultPort        = "3000"
	defaultPublicDir   = "public"
	defaultMaxFileSize = 10 << 20 // 10 MiB
	defaultLogLevel    = "info"
	defaultExtensions  = ".html,.txt"
	defaultBlacklist   = "index.html,lapor.html,tutorial.html"
	defaultReportStore = "json"
	defaultReportLog   = "db/laporan.json"
	defaultSQLitePath  = "db/laporan.db"
	defaultBucket      = "intake-archive"
	defaultRegion      = "us-east-1"
	defaultWorkerCount = 2
)

// File is the optional YAML overlay referenced by INTAKE_CONFIG. Only
// non-empty fields override the environment.
type File struct {
	PublicDir         string   `yaml:"public_dir"`
	ViewsDir          string   `yaml:"views_dir"`
	ReportLog         string   `yaml:"report_log"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	Blacklist         []string `yaml:"blacklist"`
}

// Load reads configuration from environment variables falling back to
// defaults, then applies the YAML overlay when INTAKE_CONFIG is set.
func Load() (*Config, error) {
	cfg := &Config{
		Address:           ":" + readEnv("PORT", defaultPort),
		PublicDir:         readEnv("INTAKE_PUBLIC_DIR", defaultPublicDir),
		ViewsDir:          readEnv("INTAKE_VIEWS_DIR", ""),
		MaxFileSize:       parseInt64("INTAKE_MAX_FILE_BYTES", defaultMaxFileSize),
		LogLevel:          strings.ToLower(readEnv("INTAKE_LOG_LEVEL", defaultLogLevel)),
		AllowedExtensions: parseList("INTAKE_ALLOWED_EXTENSIONS", defaultExtensions),
		Blacklist:         parseList("INTAKE_BLACKLIST", defaultBlacklist),
		ReportStore:       strings.ToLower(readEnv("INTAKE_REPORT_STORE", defaultReportStore)),
		ReportLog:         readEnv("INTAKE_REPORT_LOG", defaultReportLog),
		SQLitePath:        readEnv("INTAKE_SQLITE_PATH", defaultSQLitePath),
		DatabaseURL:       readEnv("INTAKE_DATABASE_URL", ""),
		RedisAddr:         readEnv("INTAKE_REDIS_ADDR", ""),
		RedisPassword:     readEnv("INTAKE_REDIS_PASSWORD", ""),
		RedisDB:           parseInt("INTAKE_REDIS_DB", 0),
		Workers:           parseInt("INTAKE_WORKERS", defaultWorkerCount),
		S3Endpoint:        readEnv("INTAKE_S3_ENDPOINT", ""),
		S3AccessKey:       readEnv("INTAKE_S3_ACCESS_KEY", ""),
		S3SecretKey:       readEnv("INTAKE_S3_SECRET_KEY", ""),
		S3UseSSL:          parseBool("INTAKE_S3_USE_SSL", false),
		S3Region:          readEnv("INTAKE_S3_REGION", defaultRegion),
		S3Bucket:          readEnv("INTAKE_S3_BUCKET", defaultBucket),
	}
	if path := readEnv("INTAKE_CONFIG", ""); path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
		cfg.apply(f)
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkerCount
	}
	return cfg, nil
}

// LoadFile parses the YAML overlay at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

func (c *Config) apply(f *File) {
	if f.PublicDir != "" {
		c.PublicDir = f.PublicDir
	}
	if f.ViewsDir != "" {
		c.ViewsDir = f.ViewsDir
	}
	if f.ReportLog != "" {
		c.ReportLog = f.ReportLog
	}
	if len(f.AllowedExtensions) > 0 {
		c.AllowedExtensions = f.AllowedExtensions
	}
	if len(f.Blacklist) > 0 {
		c.Blacklist = f.Blacklist
	}
}

// ArchiveEnabled reports whether uploads should be queued for archiving.
func (c *Config) ArchiveEnabled() bool {
	return c.RedisAddr != ""
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseList(key, def string) []string {
	val := readEnv(key, def)
	out := make([]string, 0)
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}
