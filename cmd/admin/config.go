package admin

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Email    string `envconfig:"ADMIN_EMAIL"`
	Password string `envconfig:"ADMIN_PASSWORD"`
	FullName string `envconfig:"ADMIN_FULL_NAME" default:"Administrator"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
