// Package config resolves process settings from flags, the environment and a
// local .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/janisto/simple-web-app/internal/platform/logging"
)

const (
	keyPort            = "port"
	keyLogLevel        = "log-level"
	keyShutdownTimeout = "shutdown-timeout"
	keyMetrics         = "metrics"
	keyDocsPath        = "docs-path"

	DefaultPort            = 8080
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultDocsPath        = "/api-docs"
)

// envFile is read from the working directory when present.
var envFile = ".env"

// envKeys maps each setting to the environment variable it is read from.
var envKeys = map[string]string{
	keyPort:            "PORT",
	keyLogLevel:        "LOG_LEVEL",
	keyShutdownTimeout: "SHUTDOWN_TIMEOUT",
	keyMetrics:         "METRICS_ENABLED",
	keyDocsPath:        "DOCS_PATH",
}

// Config holds the validated process settings.
type Config struct {
	Port            int
	LogLevel        zapcore.Level
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
	DocsPath        string
}

// Addr is the listen address for the configured port.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Load resolves settings with flags taking precedence over environment
// variables, which take precedence over defaults. Variables from .env never
// override ones already present in the environment.
func Load(name string, args []string) (Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	v, err := newViper()
	if err != nil {
		return Config{}, err
	}
	flags := newFlagSet(name)
	if err := parseAndBind(v, flags, args); err != nil {
		return Config{}, err
	}
	return fromViper(v)
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(keyPort, DefaultPort)
	v.SetDefault(keyLogLevel, DefaultLogLevel)
	v.SetDefault(keyShutdownTimeout, DefaultShutdownTimeout.String())
	v.SetDefault(keyMetrics, true)
	v.SetDefault(keyDocsPath, DefaultDocsPath)

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return v, nil
}

func newFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.Int(keyPort, DefaultPort, "TCP port to listen on")
	flags.String(keyLogLevel, DefaultLogLevel, "minimum log level (debug, info, warn, error)")
	flags.Duration(keyShutdownTimeout, DefaultShutdownTimeout, "grace period for in-flight requests on shutdown")
	flags.Bool(keyMetrics, true, "serve Prometheus metrics on /metrics")
	flags.String(keyDocsPath, DefaultDocsPath, "path of the API documentation UI")
	return flags
}

// parseAndBind parses arguments and binds the flag set so that only flags set
// explicitly override the environment.
func parseAndBind(v *viper.Viper, flags *pflag.FlagSet, args []string) error {
	if err := flags.Parse(args); err != nil {
		return err
	}
	return v.BindPFlags(flags)
}

func fromViper(v *viper.Viper) (Config, error) {
	var cfg Config

	port, err := strconv.Atoi(strings.TrimSpace(v.GetString(keyPort)))
	if err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", v.GetString(keyPort), err)
	}
	if port < 1 || port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d: must be between 1 and 65535", port)
	}
	cfg.Port = port

	if cfg.LogLevel, err = logging.ParseLevel(v.GetString(keyLogLevel)); err != nil {
		return Config{}, err
	}

	timeout, err := time.ParseDuration(strings.TrimSpace(v.GetString(keyShutdownTimeout)))
	if err != nil {
		return Config{}, fmt.Errorf("invalid shutdown timeout %q: %w", v.GetString(keyShutdownTimeout), err)
	}
	if timeout <= 0 {
		return Config{}, fmt.Errorf("invalid shutdown timeout %s: must be positive", timeout)
	}
	cfg.ShutdownTimeout = timeout

	if cfg.MetricsEnabled, err = strconv.ParseBool(strings.TrimSpace(v.GetString(keyMetrics))); err != nil {
		return Config{}, fmt.Errorf("invalid metrics flag %q: %w", v.GetString(keyMetrics), err)
	}

	cfg.DocsPath = strings.TrimSpace(v.GetString(keyDocsPath))
	if !strings.HasPrefix(cfg.DocsPath, "/") {
		return Config{}, fmt.Errorf("invalid docs path %q: must start with /", cfg.DocsPath)
	}

	return cfg, nil
}
