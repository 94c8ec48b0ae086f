package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          int
	GinMode       string
	AppPublicKey  string
	ApplicationID string
	MasterSecret  string
	QueueURL      string
	CosmosURL     string
	DatabasePath  string
	TLSCertFile   string
	TLSKeyFile    string
	PollInterval  time.Duration
	LogLevel      string
	LogFormat     string
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

func LoadConfig() (Config, error) {
	return LoadConfigFromEnv(osEnv{})
}

func LoadConfigFromEnv(env Env) (Config, error) {
	cfg := Config{
		Port:         3000,
		GinMode:      "release",
		DatabasePath: "azurebot.db",
		PollInterval: 10 * time.Second,
		LogLevel:     "info",
		LogFormat:    "json",
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}

	cfg.AppPublicKey = env.Getenv("APP_PUBLIC_KEY")
	if cfg.AppPublicKey == "" {
		return Config{}, fmt.Errorf("APP_PUBLIC_KEY is required")
	}

	cfg.ApplicationID = env.Getenv("APPLICATION_ID")
	if cfg.ApplicationID == "" {
		return Config{}, fmt.Errorf("APPLICATION_ID is required")
	}

	cfg.MasterSecret = env.Getenv("MASTER_SECRET")
	if cfg.MasterSecret == "" {
		return Config{}, fmt.Errorf("MASTER_SECRET is required")
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}

	cfg.QueueURL = env.Getenv("QUEUE_URL")
	cfg.CosmosURL = env.Getenv("COSMOS_URL")
	if raw := env.Getenv("DATABASE_PATH"); raw != "" {
		cfg.DatabasePath = raw
	}

	cfg.TLSCertFile = env.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = env.Getenv("TLS_KEY_FILE")

	if raw := env.Getenv("POLL_INTERVAL_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid POLL_INTERVAL_SECONDS")
		}
		cfg.PollInterval = time.Duration(seconds) * time.Second
	}

	if raw := env.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := env.Getenv("LOG_FORMAT"); raw != "" {
		cfg.LogFormat = raw
	}

	return cfg, nil
}
