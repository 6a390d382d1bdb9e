package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/homelet/service-classifieds/pkg/config"
)

// GatewayConfig holds payment gateway settings.
type GatewayConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// PushConfig holds push gateway settings.
type PushConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ServiceConfig holds all configuration for the classifieds service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	DBConfig    config.DatabaseConfig
	JWTConfig   config.JWTConfig
	KafkaConfig config.KafkaConfig
	Gateway     GatewayConfig
	Push        PushConfig
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("classifieds")
	if err != nil {
		return nil, err
	}

	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("DB_NAME", "classifieds")
	v.SetDefault("GATEWAY_TIMEOUT_SECONDS", 10)
	v.SetDefault("PUSH_URL", "https://exp.host/--/api/v2/push")
	v.SetDefault("PUSH_TIMEOUT_SECONDS", 5)

	return &ServiceConfig{
		Port:        config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:      config.GetAppEnv(v),
		DBConfig:    config.LoadDatabaseConfig(v, "DB_NAME"),
		JWTConfig:   config.LoadJWTConfig(v),
		KafkaConfig: config.LoadKafkaConfig(v),
		Gateway:     loadGatewayConfig(v),
		Push:        loadPushConfig(v),
	}, nil
}

func loadGatewayConfig(v *viper.Viper) GatewayConfig {
	return GatewayConfig{
		BaseURL:   v.GetString("GATEWAY_URL"),
		SecretKey: v.GetString("GATEWAY_SECRET_KEY"),
		Timeout:   time.Duration(v.GetInt("GATEWAY_TIMEOUT_SECONDS")) * time.Second,
	}
}

func loadPushConfig(v *viper.Viper) PushConfig {
	return PushConfig{
		BaseURL: v.GetString("PUSH_URL"),
		Timeout: time.Duration(v.GetInt("PUSH_TIMEOUT_SECONDS")) * time.Second,
	}
}
