package config

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sngm3741/dispatch-contact/api/internal/logger"
)

const envPrefix = "INTAKE"

// SMTP transport modes.
const (
	SMTPModePlain    = "plain"
	SMTPModeStartTLS = "starttls"
	SMTPModeTLS      = "tls"
)

// JWTConfig defines issuer/secret pair for auth verification.
type JWTConfig struct {
	Issuer string
	Secret []byte
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	// TrustedProxies are the peers whose forwarding headers name the client.
	TrustedProxies []netip.Prefix
}

// MongoConfig holds document store connection settings.
type MongoConfig struct {
	URI                          string
	Database                     string
	MessageCollection            string
	FailedNotificationCollection string
	ConnectTimeout               time.Duration
	SocketTimeout                time.Duration
	ServerSelectionTimeout       time.Duration
	PingTimeout                  time.Duration
	MaxPoolSize                  uint64
}

// SMTPConfig holds outbound mail settings. An empty Host disables delivery.
type SMTPConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	From              string
	ReplyTo           string
	Mode              string
	HeloDomain        string
	MaxConnections    int
	RatePerMinute     int
	CommandTimeout    time.Duration
	SubmissionTimeout time.Duration
}

// Enabled reports whether an SMTP relay is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// Address returns host:port.
func (c SMTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NotifyConfig controls notification content and timing.
type NotifyConfig struct {
	SiteName     string
	AdminAddress string
	Timeout      time.Duration
}

// IntakeConfig holds submission rules.
type IntakeConfig struct {
	RequireMessage bool
	MaxBodyBytes   int64
}

// RateLimitConfig controls per-IP throttling of submissions.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
	IdleTTL           time.Duration
}

// AuthConfig controls bearer authentication of the admin API.
type AuthConfig struct {
	JWTConfigs  []JWTConfig
	JWTAudience string
}

// Enabled reports whether admin routes can be served.
func (c AuthConfig) Enabled() bool {
	return len(c.JWTConfigs) > 0
}

// Config holds runtime configuration shared across the application.
type Config struct {
	Server         ServerConfig
	Mongo          MongoConfig
	SMTP           SMTPConfig
	Notify         NotifyConfig
	Intake         IntakeConfig
	RateLimit      RateLimitConfig
	Auth           AuthConfig
	Log            logger.Config
	AllowedOrigins []string
}

// Load reads .env (optional) and INTAKE_* environment variables.
// Environment variables win over .env entries.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	durations := map[string]*time.Duration{}
	cfg := &Config{}
	durations["server.read_header_timeout"] = &cfg.Server.ReadHeaderTimeout
	durations["server.shutdown_timeout"] = &cfg.Server.ShutdownTimeout
	durations["mongo.connect_timeout"] = &cfg.Mongo.ConnectTimeout
	durations["mongo.socket_timeout"] = &cfg.Mongo.SocketTimeout
	durations["mongo.server_selection_timeout"] = &cfg.Mongo.ServerSelectionTimeout
	durations["mongo.ping_timeout"] = &cfg.Mongo.PingTimeout
	durations["smtp.command_timeout"] = &cfg.SMTP.CommandTimeout
	durations["smtp.submission_timeout"] = &cfg.SMTP.SubmissionTimeout
	durations["notify.timeout"] = &cfg.Notify.Timeout
	durations["ratelimit.idle_ttl"] = &cfg.RateLimit.IdleTTL
	for key, dst := range durations {
		parsed, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("invalid %s: must be positive", key)
		}
		*dst = parsed
	}

	cfg.Server.Addr = v.GetString("server.addr")
	proxies, err := parsePrefixes(parseList(v.GetString("server.trusted_proxies")))
	if err != nil {
		return nil, err
	}
	cfg.Server.TrustedProxies = proxies

	cfg.Mongo.URI = strings.TrimSpace(v.GetString("mongo.uri"))
	cfg.Mongo.Database = strings.TrimSpace(v.GetString("mongo.db"))
	cfg.Mongo.MessageCollection = strings.TrimSpace(v.GetString("mongo.message_collection"))
	cfg.Mongo.FailedNotificationCollection = strings.TrimSpace(v.GetString("mongo.failed_notification_collection"))
	if pool := v.GetInt("mongo.max_pool_size"); pool > 0 {
		cfg.Mongo.MaxPoolSize = uint64(pool)
	}
	if cfg.Mongo.URI == "" || cfg.Mongo.Database == "" || cfg.Mongo.MessageCollection == "" {
		return nil, fmt.Errorf("mongo.uri, mongo.db and mongo.message_collection must be set")
	}

	smtp, err := loadSMTP(v)
	if err != nil {
		return nil, err
	}
	smtp.CommandTimeout = cfg.SMTP.CommandTimeout
	smtp.SubmissionTimeout = cfg.SMTP.SubmissionTimeout
	cfg.SMTP = smtp

	cfg.Notify.SiteName = strings.TrimSpace(v.GetString("notify.site_name"))
	cfg.Notify.AdminAddress = strings.TrimSpace(v.GetString("notify.admin_address"))

	cfg.Intake.RequireMessage = v.GetBool("intake.require_message")
	cfg.Intake.MaxBodyBytes = v.GetInt64("intake.max_body_bytes")
	if cfg.Intake.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("intake.max_body_bytes must be positive")
	}

	cfg.RateLimit.Enabled = v.GetBool("ratelimit.enabled")
	cfg.RateLimit.RequestsPerMinute = v.GetInt("ratelimit.requests_per_minute")
	cfg.RateLimit.Burst = v.GetInt("ratelimit.burst")
	if cfg.RateLimit.Enabled && (cfg.RateLimit.RequestsPerMinute <= 0 || cfg.RateLimit.Burst <= 0) {
		return nil, fmt.Errorf("ratelimit.requests_per_minute and ratelimit.burst must be positive")
	}

	auth, err := loadAuth(v)
	if err != nil {
		return nil, err
	}
	cfg.Auth = auth

	cfg.Log = logger.Config{
		Level:       v.GetString("log.level"),
		Development: v.GetBool("log.development"),
		File:        strings.TrimSpace(v.GetString("log.file")),
		MaxSizeMB:   v.GetInt("log.max_size_mb"),
		MaxBackups:  v.GetInt("log.max_backups"),
		MaxAgeDays:  v.GetInt("log.max_age_days"),
		Compress:    v.GetBool("log.compress"),
	}

	cfg.AllowedOrigins = parseList(v.GetString("cors.allowed_origins"))
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_header_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.trusted_proxies", "")

	v.SetDefault("mongo.uri", "mongodb://mongo:27017")
	v.SetDefault("mongo.db", "dispatch")
	v.SetDefault("mongo.message_collection", "messages")
	v.SetDefault("mongo.failed_notification_collection", "failed_notifications")
	v.SetDefault("mongo.connect_timeout", "10s")
	v.SetDefault("mongo.socket_timeout", "45s")
	v.SetDefault("mongo.server_selection_timeout", "5s")
	v.SetDefault("mongo.ping_timeout", "2s")
	v.SetDefault("mongo.max_pool_size", 10)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.reply_to", "")
	v.SetDefault("smtp.mode", SMTPModeStartTLS)
	v.SetDefault("smtp.helo_domain", "localhost")
	v.SetDefault("smtp.max_connections", 5)
	v.SetDefault("smtp.rate_per_minute", 10)
	v.SetDefault("smtp.command_timeout", "30s")
	v.SetDefault("smtp.submission_timeout", "1m")

	v.SetDefault("notify.site_name", "Dispatch Team")
	v.SetDefault("notify.admin_address", "")
	v.SetDefault("notify.timeout", "30s")

	v.SetDefault("intake.require_message", false)
	v.SetDefault("intake.max_body_bytes", 64*1024)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_minute", 5)
	v.SetDefault("ratelimit.burst", 5)
	v.SetDefault("ratelimit.idle_ttl", "10m")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "dispatch-admin")
	v.SetDefault("auth.dashboard_jwt_secret", "")
	v.SetDefault("auth.dashboard_jwt_issuer", "dispatch-dashboard")
	v.SetDefault("auth.jwt_audience", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("cors.allowed_origins", "*")
}

func loadSMTP(v *viper.Viper) (SMTPConfig, error) {
	cfg := SMTPConfig{
		Host:           strings.TrimSpace(v.GetString("smtp.host")),
		Port:           v.GetInt("smtp.port"),
		Username:       v.GetString("smtp.username"),
		Password:       v.GetString("smtp.password"),
		From:           strings.TrimSpace(v.GetString("smtp.from")),
		ReplyTo:        strings.TrimSpace(v.GetString("smtp.reply_to")),
		Mode:           strings.ToLower(strings.TrimSpace(v.GetString("smtp.mode"))),
		HeloDomain:     strings.TrimSpace(v.GetString("smtp.helo_domain")),
		MaxConnections: v.GetInt("smtp.max_connections"),
		RatePerMinute:  v.GetInt("smtp.rate_per_minute"),
	}
	if !cfg.Enabled() {
		return cfg, nil
	}

	switch cfg.Mode {
	case SMTPModePlain, SMTPModeStartTLS, SMTPModeTLS:
	default:
		return SMTPConfig{}, fmt.Errorf("invalid smtp.mode %q: want plain, starttls or tls", cfg.Mode)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return SMTPConfig{}, fmt.Errorf("invalid smtp.port %d", cfg.Port)
	}
	if cfg.From == "" {
		return SMTPConfig{}, fmt.Errorf("smtp.from must be set when smtp.host is configured")
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 1
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 10
	}
	return cfg, nil
}

func loadAuth(v *viper.Viper) (AuthConfig, error) {
	var cfg AuthConfig
	pairs := []struct{ secretKey, issuerKey string }{
		{"auth.jwt_secret", "auth.jwt_issuer"},
		{"auth.dashboard_jwt_secret", "auth.dashboard_jwt_issuer"},
	}
	for _, p := range pairs {
		secret := strings.TrimSpace(v.GetString(p.secretKey))
		if secret == "" {
			continue
		}
		if len(secret) < 32 {
			return AuthConfig{}, fmt.Errorf("%s must be at least 32 characters long", p.secretKey)
		}
		cfg.JWTConfigs = append(cfg.JWTConfigs, JWTConfig{
			Issuer: strings.TrimSpace(v.GetString(p.issuerKey)),
			Secret: []byte(secret),
		})
	}
	cfg.JWTAudience = strings.TrimSpace(v.GetString("auth.jwt_audience"))
	return cfg, nil
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}
	return values
}

// parsePrefixes accepts CIDR blocks and bare addresses.
func parsePrefixes(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, value := range values {
		if strings.Contains(value, "/") {
			prefix, err := netip.ParsePrefix(value)
			if err != nil {
				return nil, fmt.Errorf("invalid server.trusted_proxies entry %q: %w", value, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(value)
		if err != nil {
			return nil, fmt.Errorf("invalid server.trusted_proxies entry %q: %w", value, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// loadEnvFile loads ./.env, falling back to ../.env. Missing files are ignored
// and existing environment variables are never overwritten.
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}
	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
