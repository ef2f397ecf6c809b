package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                `yaml:"port"`
	Env            string             `yaml:"env"` // "development" | "production"
	JWTSecret      string             `yaml:"jwt_secret"`
	AllowedOrigins []string           `yaml:"allowed_origins"`
	Paths          RuntimePathsConfig `yaml:"paths"`
	Gateway        GatewayConfig      `yaml:"gateway"`
	Redis          RedisRuntimeConfig `yaml:"redis"`
	AdminToken     string             `yaml:"admin_token"`
	TokenTTL       time.Duration      `yaml:"token_ttl"`
	// LogRetention is how long daily log files are kept.
	LogRetention time.Duration `yaml:"log_retention"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
}

// GatewayConfig tunes connection admission.
type GatewayConfig struct {
	MaxConnectionsPerAddress int           `yaml:"max_connections_per_address"`
	VerifyTimeout            time.Duration `yaml:"verify_timeout"`
	// Namespaces restricts which namespaces are mounted. Empty mounts all.
	Namespaces []string `yaml:"namespaces"`
	// StatsInterval is how often connection counts are logged.
	StatsInterval time.Duration `yaml:"stats_interval"`
}

type RedisRuntimeConfig struct {
	Enable   bool              `yaml:"enable"`
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

type rawAppConfig struct {
	Port               int              `yaml:"port"`
	Env                string           `yaml:"env"`
	NodeEnv            string           `yaml:"node_env"`
	JWTSecret          string           `yaml:"jwt_secret"`
	JWTSecretLegacy    string           `yaml:"jwtsecret"`
	AllowedOrigins     []string         `yaml:"allowed_origins"`
	CORSAllowedOrigins []string         `yaml:"cors_allowed_origins"`
	Paths              rawPathsConfig   `yaml:"paths"`
	LogDir             string           `yaml:"log_dir"`
	Gateway            rawGatewayConfig `yaml:"gateway"`
	Redis              rawRedisConfig   `yaml:"redis"`
	RedisURL           string           `yaml:"redis_url"`
	AdminToken         string           `yaml:"admin_token"`
	TokenTTL           string           `yaml:"token_ttl"`
	LogRetention       string           `yaml:"log_retention"`
}

type rawPathsConfig struct {
	Logs string `yaml:"logs"`
}

type rawGatewayConfig struct {
	MaxConnectionsPerAddress *int     `yaml:"max_connections_per_address"`
	VerifyTimeout            string   `yaml:"verify_timeout"`
	Namespaces               []string `yaml:"namespaces"`
	StatsInterval            string   `yaml:"stats_interval"`
}

type rawRedisConfig struct {
	Enable   *bool             `yaml:"enable"`
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       *int              `yaml:"db"`
	TLS      *bool             `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

// Load reads the YAML file at configPath. A missing file at the default path
// yields the defaults; a missing file named explicitly is an error.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	switch {
	case err == nil:
	case os.IsNotExist(err) && !explicit:
		content = nil
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML content over the defaults, applies environment
// overrides and validates the result.
func Parse(content []byte) (*AppConfig, error) {
	cfg := defaultAppConfig()

	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		raw := rawAppConfig{}
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
		if err := applyRawAppConfig(&cfg, raw); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Gateway: GatewayConfig{
			MaxConnectionsPerAddress: defaultMaxConnsPerAddress,
			VerifyTimeout:            defaultVerifyTimeout,
			StatsInterval:            defaultStatsInterval,
		},
		Redis: normalizeRedisConfig(RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		}),
		TokenTTL:     defaultTokenTTL,
		LogRetention: defaultLogRetention,
	}
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) error {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.NodeEnv); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.JWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(raw.JWTSecretLegacy); v != "" {
		cfg.JWTSecret = v
	}

	switch {
	case raw.AllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	case raw.CORSAllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.CORSAllowedOrigins)
	}

	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}

	if raw.Gateway.MaxConnectionsPerAddress != nil {
		cfg.Gateway.MaxConnectionsPerAddress = *raw.Gateway.MaxConnectionsPerAddress
	}
	if v := strings.TrimSpace(raw.Gateway.VerifyTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid gateway.verify_timeout %q: %w", v, err)
		}
		cfg.Gateway.VerifyTimeout = d
	}
	if v := strings.TrimSpace(raw.Gateway.StatsInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid gateway.stats_interval %q: %w", v, err)
		}
		cfg.Gateway.StatsInterval = d
	}
	if raw.Gateway.Namespaces != nil {
		cfg.Gateway.Namespaces = normalizeNamespaces(raw.Gateway.Namespaces)
	}

	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw)

	if v := strings.TrimSpace(raw.AdminToken); v != "" {
		cfg.AdminToken = v
	}
	if v := strings.TrimSpace(raw.TokenTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid token_ttl %q: %w", v, err)
		}
		cfg.TokenTTL = d
	}
	if v := strings.TrimSpace(raw.LogRetention); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid log_retention %q: %w", v, err)
		}
		cfg.LogRetention = d
	}

	cfg.Env = normalizeEnv(cfg.Env)
	cfg.Paths = normalizeRuntimePaths(cfg.Paths)
	return nil
}

func applyRawRedisConfig(current RedisRuntimeConfig, raw rawAppConfig) RedisRuntimeConfig {
	cfg := current

	if raw.Redis.Enable != nil {
		cfg.Enable = *raw.Redis.Enable
	}
	if v := strings.TrimSpace(raw.Redis.URL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(raw.Redis.Host); v != "" {
		cfg.Host = v
	}
	if raw.Redis.Port != 0 {
		cfg.Port = raw.Redis.Port
	}
	if v := strings.TrimSpace(raw.Redis.Username); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(raw.Redis.Password); v != "" {
		cfg.Password = v
	}
	if raw.Redis.DB != nil {
		cfg.DB = *raw.Redis.DB
	}
	if raw.Redis.TLS != nil {
		cfg.TLS = *raw.Redis.TLS
	}
	if v := strings.TrimSpace(raw.Redis.Scheme); v != "" {
		cfg.Scheme = v
	}
	if raw.Redis.Params != nil {
		cfg.Params = copyStringMap(raw.Redis.Params)
	}

	return normalizeRedisConfig(cfg)
}

func applyEnv(cfg *AppConfig) error {
	if v := strings.TrimSpace(os.Getenv(EnvJWTSecret)); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		cfg.Port = port
	}
	return nil
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	if c.Gateway.MaxConnectionsPerAddress < 1 {
		return fmt.Errorf("invalid gateway.max_connections_per_address %d, expected >= 1", c.Gateway.MaxConnectionsPerAddress)
	}
	if c.Gateway.VerifyTimeout <= 0 {
		return fmt.Errorf("invalid gateway.verify_timeout %s, expected > 0", c.Gateway.VerifyTimeout)
	}
	if c.Gateway.StatsInterval <= 0 {
		return fmt.Errorf("invalid gateway.stats_interval %s, expected > 0", c.Gateway.StatsInterval)
	}
	for _, ns := range c.Gateway.Namespaces {
		if !strings.HasPrefix(ns, "/") {
			return fmt.Errorf("invalid gateway.namespaces entry %q, expected a leading /", ns)
		}
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("invalid token_ttl %s, expected > 0", c.TokenTTL)
	}
	if c.LogRetention < time.Hour {
		return fmt.Errorf("invalid log_retention %s, expected >= 1h", c.LogRetention)
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return c.Env == "development"
}

// LogDir resolves the log directory against the executable directory.
func (c *AppConfig) LogDir() string {
	return ResolveRuntimePath(c.Paths.Logs, defaultLogsSubdir)
}
