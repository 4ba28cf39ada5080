package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr string `envconfig:"ADDR" default:":8080"`

	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"sqlite3"`
	DatabaseURL    string `envconfig:"DATABASE_URL" default:"chatrelay.db"`

	JWTSecret string `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`

	// DELIVERY_DELAY is how long after a message is broadcast before it is
	// marked delivered. Not an acknowledgement: it fires whether or not any
	// recipient is connected.
	DeliveryDelay time.Duration `envconfig:"DELIVERY_DELAY" default:"500ms"`

	StaticDir string `envconfig:"STATIC_DIR" default:"static"`
}

func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
