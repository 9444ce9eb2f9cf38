package mt5sync

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	CheckInterval time.Duration `envconfig:"SYNC_CHECK_INTERVAL" default:"60s"`
	AccountDelay  time.Duration `envconfig:"ACCOUNT_DELAY" default:"2s"`
	BridgeURL     string        `envconfig:"MT5_BRIDGE_URL" default:"http://localhost:8228"`
	BridgeTimeout time.Duration `envconfig:"MT5_BRIDGE_TIMEOUT" default:"30s"`
	// window start for accounts that never synced a trade
	HistoryLookback time.Duration `envconfig:"HISTORY_LOOKBACK" default:"8760h"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
