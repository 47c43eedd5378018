package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "JANUS"

type Config struct {
	Env      string // "dev" | "prod"
	HTTPAddr string
	GRPCAddr string // empty disables the gRPC health listener

	// Storage
	Store   string // "sqlite" | "memory"
	DBPath  string // e.g. "./data/janus.db"
	SeedDev bool

	CORSOrigins []string

	// Enrollment
	EnrollmentTimeout time.Duration
	ReaperInterval    time.Duration

	LogLevel    slog.Level
	AnalyticsTZ *time.Location
}

func defaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("grpc_addr", ":9090")
	v.SetDefault("store", "sqlite")
	v.SetDefault("db_path", "./data/janus.db")
	v.SetDefault("seed_dev", false)
	v.SetDefault("cors_origins", "")
	v.SetDefault("enrollment_timeout", "2m")
	v.SetDefault("reaper_interval", "15s")
	v.SetDefault("log_level", "info")
	v.SetDefault("analytics_tz", "UTC")
}

// FromEnv reads JANUS_* variables, after loading a .env file from the
// working directory if one exists. Variables already set in the process
// environment win over the file. A variable set to the empty string is
// taken as empty, which is how JANUS_GRPC_ADDR disables gRPC.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	defaults(v)

	env := strings.ToLower(strings.TrimSpace(v.GetString("env")))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	cfg := Config{
		Env:         env,
		HTTPAddr:    strings.TrimSpace(v.GetString("http_addr")),
		GRPCAddr:    strings.TrimSpace(v.GetString("grpc_addr")),
		Store:       strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		DBPath:      strings.TrimSpace(v.GetString("db_path")),
		SeedDev:     v.GetBool("seed_dev"),
		CORSOrigins: splitCSV(v.GetString("cors_origins")),
	}

	if cfg.Store != "sqlite" && cfg.Store != "memory" {
		return Config{}, fmt.Errorf("%s_STORE: unsupported store %q (want sqlite or memory)", envPrefix, cfg.Store)
	}
	if cfg.Store == "sqlite" && cfg.DBPath == "" {
		return Config{}, fmt.Errorf("%s_DB_PATH is required for the sqlite store", envPrefix)
	}

	var err error
	if cfg.EnrollmentTimeout, err = positiveDuration(v, "enrollment_timeout"); err != nil {
		return Config{}, err
	}
	if cfg.ReaperInterval, err = positiveDuration(v, "reaper_interval"); err != nil {
		return Config{}, err
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(v.GetString("log_level")))); err != nil {
		return Config{}, fmt.Errorf("%s_LOG_LEVEL: %w", envPrefix, err)
	}

	tz := strings.TrimSpace(v.GetString("analytics_tz"))
	if cfg.AnalyticsTZ, err = time.LoadLocation(tz); err != nil {
		return Config{}, fmt.Errorf("%s_ANALYTICS_TZ: %w", envPrefix, err)
	}

	return cfg, nil
}

func positiveDuration(v *viper.Viper, key string) (time.Duration, error) {
	name := envPrefix + "_" + strings.ToUpper(key)
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", name, d)
	}
	return d, nil
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
