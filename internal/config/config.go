package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all server configuration.
// Priority: ENV vars > .env file > defaults.
type Config struct {
	Addr string `env:"PARLEY_ADDR" envDefault:":8080"`

	DatabaseDriver string `env:"PARLEY_DB_DRIVER" envDefault:"sqlite3"`
	DatabaseDSN    string `env:"PARLEY_DB_DSN" envDefault:"parley.db"`

	JWTSecret string        `env:"PARLEY_JWT_SECRET,required,notEmpty"`
	TokenTTL  time.Duration `env:"PARLEY_TOKEN_TTL" envDefault:"24h"`

	// Outbound buffer per live session; a session whose buffer is full is
	// skipped during fanout.
	SendBufferSize int `env:"PARLEY_SEND_BUFFER" envDefault:"64"`

	// Inbound events per second per live session.
	MessageRate  float64 `env:"PARLEY_MESSAGE_RATE" envDefault:"10"`
	MessageBurst int     `env:"PARLEY_MESSAGE_BURST" envDefault:"20"`

	LogLevel string `env:"PARLEY_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from a .env file (if present) and the
// environment.
func Load() (*Config, error) {
	// Missing .env is fine; production sets real environment variables.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
