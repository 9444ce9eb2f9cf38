package events

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// comma separated; empty disables publishing
	Brokers []string `envconfig:"KAFKA_BROKERS" default:""`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"trade-events"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
