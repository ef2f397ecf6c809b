package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	// EnvJWTSecret overrides jwt_secret.
	EnvJWTSecret = "GATEWAY_JWT_SECRET"
	// EnvPort overrides port.
	EnvPort = "GATEWAY_PORT"

	defaultPort               = 2333
	defaultEnv                = "development"
	defaultLogsSubdir         = "logs"
	defaultMaxConnsPerAddress = 5
	defaultVerifyTimeout      = 5 * time.Second
	defaultStatsInterval      = 5 * time.Minute
	defaultTokenTTL           = 24 * time.Hour
	defaultLogRetention       = 7 * 24 * time.Hour
	defaultRedisHost          = "localhost"
	defaultRedisPort          = 6379
	defaultRedisDB            = 0
)
