package cache

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// empty disables caching
	RedisURL string        `envconfig:"REDIS_URL" default:""`
	TTL      time.Duration `envconfig:"ANALYTICS_CACHE_TTL" default:"5m"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
