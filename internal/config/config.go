package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL  string `env:"DATABASE_URL,required"`
	JWTSecret    string `env:"JWT_SECRET,required"`
	DirectoryURL string `env:"DIRECTORY_URL" envDefault:"http://directory:8081"`
	CustodianURL string `env:"CUSTODIAN_URL" envDefault:"http://custodian:8082"`
	Port         int    `env:"PORT" envDefault:"8080"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv       string `env:"APP_ENV" envDefault:"production"`

	// Rates are parts per 100000: 1000 is 1%.
	FeeRate           int64  `env:"FEE_RATE" envDefault:"1000"`
	IndemnizationRate int64  `env:"INDEMNIZATION_RATE" envDefault:"5000"`
	FeeSinkWallet     string `env:"FEE_SINK_WALLET,required"`
	NativeAsset       string `env:"NATIVE_ASSET" envDefault:"native"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.FeeRate < 0 || cfg.FeeRate > 100_000 {
		return nil, fmt.Errorf("config.Load: FEE_RATE %d out of range [0,100000]", cfg.FeeRate)
	}
	if cfg.IndemnizationRate < 0 || cfg.IndemnizationRate > 100_000 {
		return nil, fmt.Errorf("config.Load: INDEMNIZATION_RATE %d out of range [0,100000]", cfg.IndemnizationRate)
	}
	return &cfg, nil
}
