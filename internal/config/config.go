package config

import (
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	MongoDB  MongoDBConfig
	JWT      JWTConfig
	Timeout  TimeoutConfig
	Sync     SyncConfig
	LogLevel string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int // seconds
}

// TimeoutConfig holds cooldown-specific configuration
type TimeoutConfig struct {
	DurationMinutes int
	DailyLimit      int
	SweepSchedule   string // cron spec for the expired-timeout sweep
}

// SyncConfig holds retry-policy configuration for the sync layer
type SyncConfig struct {
	MaxAttempts        int
	InitialBackoffMs   int
	MaxBackoffMs       int
	BackoffMultiplier  float64
	Jitter             float64
	OperationTimeoutMs int
	OfflineRecheckMs   int
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	viper.SetDefault("Server.Port", "4000")
	viper.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	viper.SetDefault("MongoDB.URI", "mongodb://localhost:27017/?retryWrites=true&w=majority")
	viper.SetDefault("MongoDB.Database", "pairpoints")
	viper.SetDefault("JWT.Secret", "change-me")
	viper.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	viper.SetDefault("Timeout.DurationMinutes", 30)
	viper.SetDefault("Timeout.DailyLimit", 1)
	viper.SetDefault("Timeout.SweepSchedule", "@every 5m")
	viper.SetDefault("Sync.MaxAttempts", 4)
	viper.SetDefault("Sync.InitialBackoffMs", 100)
	viper.SetDefault("Sync.MaxBackoffMs", 10000)
	viper.SetDefault("Sync.BackoffMultiplier", 2.0)
	viper.SetDefault("Sync.Jitter", 0.1)
	viper.SetDefault("Sync.OperationTimeoutMs", 15000)
	viper.SetDefault("Sync.OfflineRecheckMs", 2000)
	viper.SetDefault("LogLevel", "info")
}
