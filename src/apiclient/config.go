package apiclient

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	APIURL     string        `envconfig:"API_URL" default:"http://localhost:8000"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"30s"`
	VPSSecret  string        `envconfig:"VPS_SECRET" default:""`
	TokenFile  string        `envconfig:"API_TOKEN_FILE" default:""`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
