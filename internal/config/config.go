// Package config содержит логику чтения конфигурации сервиса кредитной оценки.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса кредитной оценки.
type Config struct {
	RunAddress      string `env:"RUN_ADDRESS"`
	DatabaseURI     string `env:"DATABASE_URI"`
	RedisURI        string `env:"REDIS_URI"`
	OracleAddress   string `env:"ORACLE_ADDRESS"`
	OracleEnabled   bool   `env:"ORACLE_ENABLED"`
	ProviderAddress string `env:"EMI_PROVIDER_ADDRESS"`
	APIKey          string `env:"API_KEY"`

	ApprovalThreshold float64 `env:"APPROVAL_THRESHOLD" envDefault:"45"`
	MinCreditLimit    float64 `env:"MIN_CREDIT_LIMIT" envDefault:"2000"`
	MaxCreditLimit    float64 `env:"MAX_CREDIT_LIMIT" envDefault:"50000"`
	FraudVelocityDays int     `env:"FRAUD_VELOCITY_DAYS" envDefault:"7"`

	EMIRate3M float64 `env:"EMI_INTEREST_RATE_3M" envDefault:"0"`
	EMIRate6M float64 `env:"EMI_INTEREST_RATE_6M" envDefault:"2.5"`
	EMIRate9M float64 `env:"EMI_INTEREST_RATE_9M" envDefault:"5"`

	AssessmentCacheTTL time.Duration `env:"ASSESSMENT_CACHE_TTL" envDefault:"300s"`
	OracleCacheTTL     time.Duration `env:"ORACLE_CACHE_TTL" envDefault:"24h"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envRedisURI := cfg.RedisURI
	envOracleAddress := cfg.OracleAddress
	envProviderAddress := cfg.ProviderAddress

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisURI, "c", "", "redis URI for the result cache")
	flag.StringVar(&cfg.OracleAddress, "o", "", "scoring oracle address")
	flag.StringVar(&cfg.ProviderAddress, "p", "", "installment plan provider address")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envRedisURI != "" {
		cfg.RedisURI = envRedisURI
	}
	if envOracleAddress != "" {
		cfg.OracleAddress = envOracleAddress
	}
	if envProviderAddress != "" {
		cfg.ProviderAddress = envProviderAddress
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if cfg.MinCreditLimit < 0 || cfg.MaxCreditLimit < cfg.MinCreditLimit {
		return nil, fmt.Errorf("invalid credit limit bounds: min=%v max=%v", cfg.MinCreditLimit, cfg.MaxCreditLimit)
	}
	if cfg.ApprovalThreshold < 0 || cfg.ApprovalThreshold >= 100 {
		return nil, fmt.Errorf("approval threshold must be in [0,100): %v", cfg.ApprovalThreshold)
	}

	return cfg, nil
}
