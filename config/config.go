package config

import (
	"rentflow/pkg/logger"

	"github.com/spf13/viper"
)

type Config struct {
	GeneralVersion       string `mapstructure:"GENERAL_VERSION"`
	Environment          string `mapstructure:"ENVIRONMENT"`
	ServerPort           int    `mapstructure:"SERVER_PORT"`
	DatabaseHost         string `mapstructure:"DB_HOST"`
	DatabasePort         int    `mapstructure:"DB_PORT"`
	DatabaseName         string `mapstructure:"DB_NAME"`
	DatabaseUser         string `mapstructure:"DB_USER"`
	DatabasePassword     string `mapstructure:"DB_PASSWORD"`
	DatabaseCacheAddress string `mapstructure:"DB_CACHE_ADDRESS"`
	DatabaseCachePort    int    `mapstructure:"DB_CACHE_PORT"`
	DatabaseCacheReset   int    `mapstructure:"DB_CACHE_RESET"`
	CorsAllowOrigins     string `mapstructure:"CORS_ALLOW_ORIGINS"`
	AuthJWTSecret        string `mapstructure:"AUTH_JWT_SECRET"`
	AuthJWTIssuer        string `mapstructure:"AUTH_JWT_ISSUER"`
	SigningLinkSecret    string `mapstructure:"SIGNING_LINK_SECRET"`
	SigningLinkBaseURL   string `mapstructure:"SIGNING_LINK_BASE_URL"`
	ArtifactPath         string `mapstructure:"ARTIFACT_PATH"`
	SchedulerEnabled     bool   `mapstructure:"SCHEDULER_ENABLED"`
}

var ConfigInstance Config

var envVars = []string{
	"GENERAL_VERSION", "ENVIRONMENT", "SERVER_PORT",
	"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD",
	"DB_CACHE_ADDRESS", "DB_CACHE_PORT", "DB_CACHE_RESET",
	"CORS_ALLOW_ORIGINS",
	"AUTH_JWT_SECRET", "AUTH_JWT_ISSUER",
	"SIGNING_LINK_SECRET", "SIGNING_LINK_BASE_URL",
	"ARTIFACT_PATH", "SCHEDULER_ENABLED",
}

func New() (Config, error) {
	log := logger.New("config").Function("New")
	log.Info("Initializing config")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("DB_CACHE_RESET", -1)
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_CACHE_PORT", 6379)
	v.SetDefault("AUTH_JWT_ISSUER", "rentflow")
	v.SetDefault("ARTIFACT_PATH", "./artifacts")
	v.SetDefault("SCHEDULER_ENABLED", true)

	for _, env := range envVars {
		if err := v.BindEnv(env); err != nil {
			log.Warn("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	envVarsSet := v.IsSet("SERVER_PORT") && v.IsSet("DB_HOST")

	if envVarsSet {
		log.Info("Environment variables detected, skipping file loading")
	} else {
		log.Info("Environment variables not found, attempting to load from files")

		v.SetConfigFile(".env")
		v.SetConfigType("env")

		if err := v.ReadInConfig(); err != nil {
			log.Warn("Could not find .env file", "error", err)
		} else {
			log.Info("Loaded .env file")
		}

		v.SetConfigFile(".env.local")
		if err := v.MergeInConfig(); err != nil {
			log.Debug("No .env.local file found", "error", err)
		} else {
			log.Info("Loaded .env.local overrides")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, log.Err("Fatal error: could not unmarshal config", err)
	}

	if err := validateConfig(config, log); err != nil {
		return Config{}, err
	}

	log.Info("Successfully initialized config",
		"environment", config.Environment,
		"port", config.ServerPort,
		"database", config.DatabaseName,
	)
	ConfigInstance = config
	return config, nil
}

func GetConfig() Config {
	return ConfigInstance
}

func validateConfig(config Config, log logger.Logger) error {
	if config.ServerPort <= 0 {
		return log.Error(
			"Fatal error: invalid server port",
			"port", config.ServerPort,
		)
	}

	if config.AuthJWTSecret == "" {
		return log.Error("Fatal error: AUTH_JWT_SECRET is required")
	}

	if config.SigningLinkSecret == "" {
		return log.Error("Fatal error: SIGNING_LINK_SECRET is required")
	}

	if config.SigningLinkSecret == config.AuthJWTSecret {
		return log.Error("Fatal error: SIGNING_LINK_SECRET must differ from AUTH_JWT_SECRET")
	}

	if config.SigningLinkBaseURL == "" {
		return log.Error("Fatal error: SIGNING_LINK_BASE_URL is required")
	}

	return nil
}
