package seed

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	UserEmail string `envconfig:"SEED_USER_EMAIL"`
	Count     int    `envconfig:"SEED_TRADES_COUNT" default:"50"`
	Days      int    `envconfig:"SEED_DAYS" default:"90"`
	RandSeed  int64  `envconfig:"SEED_RANDOM" default:"42"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
