// Package config loads server settings from WEBBY_* environment variables
// and command-line flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	werrors "github.com/Brownie44l1/webby/internal/errors"
	"github.com/Brownie44l1/webby/internal/socket"
)

const envPrefix = "WEBBY_"

// Config holds all server configuration
type Config struct {
	// Listening endpoint
	Address string
	Port    uint16
	Backlog int

	// Connections
	MaxConnections   int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	ResolveHostnames bool

	// Logging
	Debug     bool
	AccessLog string
	ErrorLog  string

	// Per client requests per second, 0 disables limiting
	RateLimit float64
	RateBurst int

	// Directory served at /, empty disables the file handler
	StaticRoot string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Address:        "localhost",
		Port:           8080,
		Backlog:        socket.DefaultBacklog,
		MaxConnections: 1024,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		AccessLog:      "stdout",
		ErrorLog:       "stderr",
		RateBurst:      20,
	}
}

// LoadFromEnv loads configuration from environment variables on top of the
// defaults.
func LoadFromEnv() (*Config, error) {
	def := Default()
	cfg := &Config{
		Address: getEnv("ADDRESS", def.Address),
		Port:    uint16(getEnvInt("PORT", int(def.Port))),
		Backlog: getEnvInt("BACKLOG", def.Backlog),

		MaxConnections:   getEnvInt("MAX_CONNECTIONS", def.MaxConnections),
		ReadTimeout:      getEnvDuration("READ_TIMEOUT", def.ReadTimeout),
		WriteTimeout:     getEnvDuration("WRITE_TIMEOUT", def.WriteTimeout),
		ResolveHostnames: getEnvBool("RESOLVE_HOSTNAMES", def.ResolveHostnames),

		Debug:     getEnvBool("DEBUG", def.Debug),
		AccessLog: getEnv("ACCESS_LOG", def.AccessLog),
		ErrorLog:  getEnv("ERROR_LOG", def.ErrorLog),

		RateLimit: getEnvFloat("RATE_LIMIT", def.RateLimit),
		RateBurst: getEnvInt("RATE_BURST", def.RateBurst),

		StaticRoot: getEnv("STATIC_ROOT", def.StaticRoot),
	}

	if p := getEnvInt("PORT", int(def.Port)); p < 0 || p > 65535 {
		return nil, werrors.Newf(werrors.InvalidConfig, "config", "%sPORT out of range: %d", envPrefix, p)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BindFlags registers flags that override the loaded values. Only flags the
// user actually sets change the configuration.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Address, "address", "a", c.Address, "address to listen on")
	fs.Uint16VarP(&c.Port, "port", "p", c.Port, "port to listen on")
	fs.IntVar(&c.Backlog, "backlog", c.Backlog, "listen queue length")
	fs.IntVar(&c.MaxConnections, "max-connections", c.MaxConnections, "connections served at once")
	fs.DurationVar(&c.ReadTimeout, "read-timeout", c.ReadTimeout, "time allowed to receive a request head")
	fs.DurationVar(&c.WriteTimeout, "write-timeout", c.WriteTimeout, "time allowed to send a response")
	fs.BoolVar(&c.ResolveHostnames, "resolve-hostnames", c.ResolveHostnames, "reverse resolve client addresses for logging")
	fs.BoolVarP(&c.Debug, "debug", "d", c.Debug, "enable debug logging")
	fs.StringVar(&c.AccessLog, "access-log", c.AccessLog, "access log destination (stdout, stderr, off or a file)")
	fs.StringVar(&c.ErrorLog, "error-log", c.ErrorLog, "error log destination (stdout, stderr, off or a file)")
	fs.Float64Var(&c.RateLimit, "rate-limit", c.RateLimit, "requests per second allowed per client, 0 disables")
	fs.IntVar(&c.RateBurst, "rate-burst", c.RateBurst, "request burst allowed per client")
	fs.StringVarP(&c.StaticRoot, "root", "r", c.StaticRoot, "directory to serve files from")
}

// Validate ensures configuration is coherent
func (c *Config) Validate() error {
	switch {
	case c.Backlog < 1:
		return werrors.Newf(werrors.InvalidConfig, "config", "backlog must be at least 1, got %d", c.Backlog)
	case c.MaxConnections < 1:
		return werrors.Newf(werrors.InvalidConfig, "config", "max connections must be at least 1, got %d", c.MaxConnections)
	case c.ReadTimeout < 0 || c.WriteTimeout < 0:
		return werrors.Newf(werrors.InvalidConfig, "config", "timeouts cannot be negative")
	case c.RateLimit < 0:
		return werrors.Newf(werrors.InvalidConfig, "config", "rate limit cannot be negative, got %g", c.RateLimit)
	case c.RateLimit > 0 && c.RateBurst < 1:
		return werrors.Newf(werrors.InvalidConfig, "config", "rate burst must be at least 1 when limiting, got %d", c.RateBurst)
	}

	if c.StaticRoot != "" {
		info, err := os.Stat(c.StaticRoot)
		if err != nil {
			return werrors.New(werrors.InvalidConfig, "config", err)
		}
		if !info.IsDir() {
			return werrors.Newf(werrors.InvalidConfig, "config", "static root %s is not a directory", c.StaticRoot)
		}
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("%s:%d backlog=%d max_connections=%d read_timeout=%s write_timeout=%s",
		c.Address, c.Port, c.Backlog, c.MaxConnections, c.ReadTimeout, c.WriteTimeout)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
