package config

import (
	"strings"
	"time"

	"fchat-backend/internal/database"
	"fchat-backend/internal/domain"
	"fchat-backend/pkg/constants"
	"fchat-backend/pkg/env"
)

// Config holds the full service configuration, assembled from environment
// variables with Docker-secret support for credentials.
type Config struct {
	Port          string
	JWTSecret     string
	TokenDuration time.Duration

	Cockroach *database.CockroachConfig
	Cassandra *database.CassandraConfig
	Redis     *database.RedisConfig

	ICEServers []domain.ICEServer

	StalePresenceThreshold  time.Duration
	PresenceSweepInterval   time.Duration
	ActivityRefreshInterval time.Duration

	EmailMode string // mock or smtp
	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	SMTPFrom  string
}

// Load reads configuration from the environment
func Load() *Config {
	return &Config{
		Port:          env.GetString("PORT", "8080"),
		JWTSecret:     env.GetStringFromFile("JWT_SECRET", ""),
		TokenDuration: env.GetDuration("JWT_TOKEN_DURATION", 15*time.Minute),

		Cockroach: &database.CockroachConfig{
			Host:     env.GetString("COCKROACH_HOST", "localhost"),
			Port:     env.GetInt("COCKROACH_PORT", 26257),
			User:     env.GetString("COCKROACH_USER", "root"),
			Password: env.GetStringFromFile("COCKROACH_PASSWORD", ""),
			Database: env.GetString("COCKROACH_DATABASE", "fchat_db"),
			SSLMode:  env.GetString("COCKROACH_SSLMODE", "disable"),
		},
		Cassandra: &database.CassandraConfig{
			Hosts:    strings.Split(env.GetString("CASSANDRA_HOSTS", "localhost"), ","),
			Keyspace: env.GetString("CASSANDRA_KEYSPACE", "fchat_ks"),
			Username: env.GetStringFromFile("CASSANDRA_USER", ""),
			Password: env.GetStringFromFile("CASSANDRA_PASSWORD", ""),
		},
		Redis: &database.RedisConfig{
			Host:     env.GetString("REDIS_HOST", "localhost"),
			Port:     env.GetInt("REDIS_PORT", 6379),
			Password: env.GetStringFromFile("REDIS_PASSWORD", ""),
			DB:       env.GetInt("REDIS_DB", 0),
		},

		ICEServers: parseICEServers(env.GetString("ICE_SERVERS", "")),

		StalePresenceThreshold:  env.GetDuration("STALE_PRESENCE_THRESHOLD", constants.StalePresenceThreshold),
		PresenceSweepInterval:   env.GetDuration("PRESENCE_SWEEP_INTERVAL", constants.PresenceSweepInterval),
		ActivityRefreshInterval: env.GetDuration("ACTIVITY_REFRESH_INTERVAL", constants.ActivityRefreshInterval),

		EmailMode: env.GetString("EMAIL_MODE", "mock"),
		SMTPHost:  env.GetString("SMTP_HOST", "localhost"),
		SMTPPort:  env.GetInt("SMTP_PORT", 587),
		SMTPUser:  env.GetStringFromFile("SMTP_USER", ""),
		SMTPPass:  env.GetStringFromFile("SMTP_PASSWORD", ""),
		SMTPFrom:  env.GetString("SMTP_FROM", "chat@localhost"),
	}
}

// parseICEServers parses a comma-separated URL list; an empty value falls
// back to the default STUN servers.
func parseICEServers(raw string) []domain.ICEServer {
	if raw == "" {
		return domain.DefaultICEServers
	}

	var servers []domain.ICEServer
	for _, url := range strings.Split(raw, ",") {
		url = strings.TrimSpace(url)
		if url != "" {
			servers = append(servers, domain.ICEServer{URLs: url})
		}
	}
	if len(servers) == 0 {
		return domain.DefaultICEServers
	}
	return servers
}
