package security

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	SecretKey                string `envconfig:"SECRET_KEY" default:"dev-secret-key-change-me"`
	AccessTokenExpireMinutes int    `envconfig:"ACCESS_TOKEN_EXPIRE_MINUTES" default:"15"`
	RefreshTokenExpireDays   int    `envconfig:"REFRESH_TOKEN_EXPIRE_DAYS" default:"7"`
	// base64 of 32 random bytes; other strings are padded or cut to 32 bytes
	EncryptionKey string `envconfig:"ENCRYPTION_KEY" default:"Pjk+k4hske5KkKtbaKSVDOgpllRl+0EI6oCAdx88XqI="`
	VPSSecret     string `envconfig:"VPS_SECRET" default:""`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
