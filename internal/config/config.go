package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr        string
	WebSocketOrigin string

	JWTIssuer string
	JWTSecret string
	JWTTTL    time.Duration

	AdminTokenHash string

	Instrument  string
	DefaultCash string

	FeedStartPrice float64
	FeedInterval   time.Duration
	FeedVolatility float64
	FeedDrift      float64

	AnalysisInterval time.Duration
	SignalCooldown   time.Duration
	StochasticDemo   bool

	DBDSN string // empty disables the trade archive

	LogLevel  string
	LogFormat string
}

// Load reads config.yaml from the working directory, if present, and lets
// PT_-prefixed environment variables override everything. Only the JWT secret
// has no usable default.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("PT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("ws_origin", "*")
	v.SetDefault("jwt_issuer", "papertrader")
	v.SetDefault("jwt_ttl", "24h")
	v.SetDefault("admin_token_hash", "")
	v.SetDefault("instrument", "SIM-USD")
	v.SetDefault("default_cash", "10000")
	v.SetDefault("feed_start_price", 100.0)
	v.SetDefault("feed_interval", "500ms")
	v.SetDefault("feed_volatility", 0.05)
	v.SetDefault("feed_drift", 0.0)
	v.SetDefault("analysis_interval", "10s")
	v.SetDefault("signal_cooldown", "30s")
	v.SetDefault("stochastic_demo", true)
	v.SetDefault("db_dsn", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		HTTPAddr:         v.GetString("http_addr"),
		WebSocketOrigin:  v.GetString("ws_origin"),
		JWTIssuer:        v.GetString("jwt_issuer"),
		JWTSecret:        v.GetString("jwt_secret"),
		JWTTTL:           v.GetDuration("jwt_ttl"),
		AdminTokenHash:   v.GetString("admin_token_hash"),
		Instrument:       v.GetString("instrument"),
		DefaultCash:      v.GetString("default_cash"),
		FeedStartPrice:   v.GetFloat64("feed_start_price"),
		FeedInterval:     v.GetDuration("feed_interval"),
		FeedVolatility:   v.GetFloat64("feed_volatility"),
		FeedDrift:        v.GetFloat64("feed_drift"),
		AnalysisInterval: v.GetDuration("analysis_interval"),
		SignalCooldown:   v.GetDuration("signal_cooldown"),
		StochasticDemo:   v.GetBool("stochastic_demo"),
		DBDSN:            v.GetString("db_dsn"),
		LogLevel:         v.GetString("log_level"),
		LogFormat:        v.GetString("log_format"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("jwt_secret (PT_JWT_SECRET) is required")
	}
	if cfg.JWTTTL <= 0 {
		return Config{}, errors.New("jwt_ttl must be positive")
	}
	return cfg, nil
}
