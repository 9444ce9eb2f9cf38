package server

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string   `envconfig:"PORT" default:"8000"`
	Environment        string   `envconfig:"ENVIRONMENT" default:"development"`
	AllowedOrigins     []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	RateLimitPerMinute int      `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`
	// run the MT5 syncer inside the API process instead of a separate worker
	MT5SyncInProcess bool `envconfig:"MT5_SYNC_IN_PROCESS" default:"false"`
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
