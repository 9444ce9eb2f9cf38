package mt5worker

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// talk to the API's VPS endpoints instead of the database
	Remote bool `envconfig:"MT5_SYNC_REMOTE" default:"false"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
